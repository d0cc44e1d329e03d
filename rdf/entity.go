package rdf

import (
	"encoding/json"

	"github.com/c360studio/semgraph/vocabulary"
)

// Entity is a materialized view over the triple set for one subject URI:
// asserted types, an ordered predicate-to-values mapping, and the subjects
// of incoming triples. Entities are rebuilt per query, never persisted.
type Entity struct {
	URI        string   `json:"uri"`
	Types      []string `json:"types,omitempty"`
	predicates []string
	values     map[string][]Value
	Incoming   []Triple `json:"incoming,omitempty"`
}

// NewEntity creates an empty entity view for a subject URI.
func NewEntity(uri string) *Entity {
	return &Entity{
		URI:    uri,
		values: make(map[string][]Value),
	}
}

// Absorb folds an outgoing triple into the view. rdf:type objects are
// tracked as asserted types as well as ordinary property values.
func (e *Entity) Absorb(t Triple) {
	if t.Predicate == vocabulary.RDFType && t.Object.IsURI() {
		e.Types = append(e.Types, t.Object.URI)
	}
	e.Add(t.Predicate, t.Object)
}

// Add appends a value under a predicate, preserving first-seen predicate
// order and per-predicate value order.
func (e *Entity) Add(predicate string, v Value) {
	if e.values == nil {
		e.values = make(map[string][]Value)
	}
	if _, seen := e.values[predicate]; !seen {
		e.predicates = append(e.predicates, predicate)
	}
	e.values[predicate] = append(e.values[predicate], v)
}

// Predicates returns predicate URIs in first-seen order.
func (e *Entity) Predicates() []string {
	out := make([]string, len(e.predicates))
	copy(out, e.predicates)
	return out
}

// Values returns the ordered values asserted under a predicate. A predicate
// with no assertions yields nil.
func (e *Entity) Values(predicate string) []Value {
	vals := e.values[predicate]
	if vals == nil {
		return nil
	}
	out := make([]Value, len(vals))
	copy(out, vals)
	return out
}

// PropertyCount returns the number of distinct predicates on the entity.
func (e *Entity) PropertyCount() int {
	return len(e.predicates)
}

// EntityProperty is one predicate with its ordered values, used for the
// JSON projection of an entity view.
type EntityProperty struct {
	Predicate string  `json:"predicate"`
	Values    []Value `json:"values"`
}

// MarshalJSON projects the view with properties as an ordered array, since
// the predicate order is part of the contract and JSON objects drop it.
func (e *Entity) MarshalJSON() ([]byte, error) {
	props := make([]EntityProperty, 0, len(e.predicates))
	for _, p := range e.predicates {
		props = append(props, EntityProperty{Predicate: p, Values: e.values[p]})
	}
	return json.Marshal(struct {
		URI        string           `json:"uri"`
		Types      []string         `json:"types,omitempty"`
		Properties []EntityProperty `json:"properties,omitempty"`
		Incoming   []Triple         `json:"incoming,omitempty"`
	}{e.URI, e.Types, props, e.Incoming})
}

// Triples flattens the view back into outgoing triples, in view order.
func (e *Entity) Triples() []Triple {
	var out []Triple
	for _, p := range e.predicates {
		for _, v := range e.values[p] {
			out = append(out, Triple{Subject: e.URI, Predicate: p, Object: v})
		}
	}
	return out
}
