package store

import (
	"encoding/json"
	"fmt"

	"github.com/c360studio/semgraph/rdf"
)

// sparqlResults is the W3C SPARQL 1.1 Query Results JSON envelope.
type sparqlResults struct {
	Head struct {
		Vars []string `json:"vars"`
	} `json:"head"`
	Results *struct {
		Bindings []map[string]sparqlTerm `json:"bindings"`
	} `json:"results"`
	Boolean *bool `json:"boolean"`
}

type sparqlTerm struct {
	Type     string `json:"type"`
	Value    string `json:"value"`
	Lang     string `json:"xml:lang,omitempty"`
	Datatype string `json:"datatype,omitempty"`
}

func decodeSelectJSON(body []byte) (*SelectResult, error) {
	var envelope sparqlResults
	if err := json.Unmarshal(body, &envelope); err != nil {
		return nil, fmt.Errorf("decode select results: %w", err)
	}
	if envelope.Results == nil {
		return nil, fmt.Errorf("select response missing results section")
	}

	result := &SelectResult{Variables: envelope.Head.Vars}
	for _, raw := range envelope.Results.Bindings {
		row := make(Binding, len(raw))
		for name, term := range raw {
			value, err := term.toValue()
			if err != nil {
				return nil, fmt.Errorf("binding %s: %w", name, err)
			}
			row[name] = value
		}
		result.Rows = append(result.Rows, row)
	}
	return result, nil
}

func decodeAskJSON(body []byte) (bool, error) {
	var envelope sparqlResults
	if err := json.Unmarshal(body, &envelope); err != nil {
		return false, fmt.Errorf("decode ask result: %w", err)
	}
	if envelope.Boolean == nil {
		return false, fmt.Errorf("ask response missing boolean section")
	}
	return *envelope.Boolean, nil
}

func (t sparqlTerm) toValue() (rdf.Value, error) {
	switch t.Type {
	case "uri":
		return rdf.URIValue(t.Value), nil
	case "bnode":
		return rdf.URIValue("_:" + t.Value), nil
	case "literal", "typed-literal":
		lit := &rdf.Literal{Value: t.Value, Lang: t.Lang, Datatype: t.Datatype}
		return rdf.Value{Literal: lit}, nil
	default:
		return rdf.Value{}, fmt.Errorf("unknown term type %q", t.Type)
	}
}
