package rdf

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"strings"

	rdfio "github.com/geoknoesis/rdf-go/rdf"
)

// ioFormat maps an engine format to the rdf-go codec format. N3 has no
// dedicated codec and rides the Turtle one, of which it is a superset for
// the constructs the engine emits.
func ioFormat(f Format) rdfio.Format {
	switch f {
	case FormatRDFXML:
		return rdfio.FormatRDFXML
	case FormatJSONLD:
		return rdfio.FormatJSONLD
	case FormatNTriples:
		return rdfio.FormatNTriples
	default:
		return rdfio.FormatTurtle
	}
}

// Decode parses serialized RDF into triples. A parse failure or an
// unsupported serialization yields a *FormatError naming the source format.
func Decode(data string, format Format) ([]Triple, error) {
	dec, err := rdfio.NewReader(strings.NewReader(data), ioFormat(format))
	if err != nil {
		return nil, &FormatError{Format: string(format), Err: err}
	}
	defer dec.Close()

	var triples []Triple
	for {
		quad, err := dec.Next()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return nil, &FormatError{Format: string(format), Err: err}
		}
		t, err := fromQuad(quad)
		if err != nil {
			return nil, &FormatError{Format: string(format), Err: err}
		}
		triples = append(triples, t)
	}
	return triples, nil
}

// Encode serializes triples in the requested format. Turtle, N-Triples and
// N3 use the engine's own writers (prefix-folded output, see writer.go);
// RDF/XML and JSON-LD go through the rdf-go encoder.
func Encode(triples []Triple, format Format) (string, error) {
	switch format {
	case FormatTurtle, FormatN3:
		return writeTurtle(triples), nil
	case FormatNTriples:
		return writeNTriples(triples), nil
	}

	var buf bytes.Buffer
	enc, err := rdfio.NewWriter(&buf, ioFormat(format))
	if err != nil {
		return "", &FormatError{Format: string(format), Err: err}
	}
	for _, t := range triples {
		q, err := toQuad(t)
		if err != nil {
			return "", &FormatError{Format: string(format), Err: err}
		}
		if err := enc.Write(q); err != nil {
			return "", &FormatError{Format: string(format), Err: err}
		}
	}
	if err := enc.Close(); err != nil {
		return "", &FormatError{Format: string(format), Err: err}
	}
	return buf.String(), nil
}

// fromQuad converts one decoded statement. Blank nodes keep their _: label
// in the URI slot so round-trips preserve co-reference.
func fromQuad(q rdfio.Statement) (Triple, error) {
	t := Triple{
		Subject:   termID(q.S),
		Predicate: termID(q.P),
	}
	switch o := q.O.(type) {
	case rdfio.IRI:
		t.Object = URIValue(o.Value)
	case rdfio.BlankNode:
		t.Object = URIValue("_:" + o.ID)
	case rdfio.Literal:
		lit := &Literal{Value: o.Lexical, Lang: o.Lang}
		if o.Datatype.Value != "" {
			lit.Datatype = o.Datatype.Value
		}
		t.Object = Value{Literal: lit}
	default:
		return Triple{}, fmt.Errorf("unsupported object term %T", q.O)
	}
	if q.G != nil {
		t.Graph = termID(q.G)
	}
	return t, t.Validate()
}

func termID(term rdfio.Term) string {
	switch v := term.(type) {
	case rdfio.IRI:
		return v.Value
	case rdfio.BlankNode:
		return "_:" + v.ID
	default:
		return ""
	}
}

func toQuad(t Triple) (rdfio.Statement, error) {
	if err := t.Validate(); err != nil {
		return rdfio.Statement{}, err
	}
	q := rdfio.Statement{
		S: subjectTerm(t.Subject),
		P: rdfio.IRI{Value: t.Predicate},
	}
	if t.Object.IsURI() {
		q.O = subjectTerm(t.Object.URI)
	} else {
		lit := rdfio.Literal{Lexical: t.Object.Literal.Value, Lang: t.Object.Literal.Lang}
		if t.Object.Literal.Datatype != "" {
			lit.Datatype = rdfio.IRI{Value: t.Object.Literal.Datatype}
		}
		q.O = lit
	}
	if t.Graph != "" {
		q.G = rdfio.IRI{Value: t.Graph}
	}
	return q, nil
}

func subjectTerm(id string) rdfio.Term {
	if rest, ok := strings.CutPrefix(id, "_:"); ok {
		return rdfio.BlankNode{ID: rest}
	}
	return rdfio.IRI{Value: id}
}

// DetectNamespaces returns the distinct namespace portions of the subject
// and predicate URIs, used for import statistics.
func DetectNamespaces(triples []Triple) []string {
	seen := make(map[string]struct{})
	var out []string
	note := func(iri string) {
		ns := namespaceOf(iri)
		if ns == "" {
			return
		}
		if _, ok := seen[ns]; !ok {
			seen[ns] = struct{}{}
			out = append(out, ns)
		}
	}
	for _, t := range triples {
		note(t.Subject)
		note(t.Predicate)
		if t.Object.IsURI() {
			note(t.Object.URI)
		}
	}
	return out
}

func namespaceOf(iri string) string {
	if strings.HasPrefix(iri, "_:") {
		return ""
	}
	if i := strings.LastIndexAny(iri, "#/"); i >= 0 {
		return iri[:i+1]
	}
	return ""
}
