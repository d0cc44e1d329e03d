package graph

import (
	"context"
	"fmt"
	"sort"

	"github.com/c360studio/semgraph/rdf"
	"github.com/c360studio/semgraph/vocabulary"
)

// EntityRequest describes an entity to create: a URI, an optional type, and
// a property bag. PropertyOrder preserves caller ordering over Properties,
// which keeps the "ordered mapping" contract without an ordered map type;
// predicates absent from PropertyOrder append in map iteration order.
type EntityRequest struct {
	URI           string
	Type          string
	Properties    map[string]rdf.Value
	PropertyOrder []string
}

// CreateEntity asserts the entity's type and properties as triples.
func (c *Coordinator) CreateEntity(ctx context.Context, req EntityRequest) (int, error) {
	if req.URI == "" {
		return 0, &ValidationError{Err: fmt.Errorf("entity URI is required")}
	}

	var triples []rdf.Triple
	if req.Type != "" {
		triples = append(triples, rdf.NewTriple(req.URI, vocabulary.RDFType, req.Type))
	}
	for _, predicate := range orderedPredicates(req) {
		triples = append(triples, rdf.Triple{
			Subject:   req.URI,
			Predicate: predicate,
			Object:    req.Properties[predicate],
		})
	}
	return c.AddTriples(ctx, triples, "")
}

// GetEntity materializes the entity view for a URI: asserted types, ordered
// predicate values, and incoming triples. An unknown URI yields an empty
// view, not an error.
func (c *Coordinator) GetEntity(ctx context.Context, uri string) (*rdf.Entity, error) {
	entity := rdf.NewEntity(uri)

	outgoing, err := c.store.Select(ctx, fmt.Sprintf("SELECT ?p ?o WHERE { <%s> ?p ?o }", uri))
	if err != nil {
		return nil, err
	}
	for _, row := range outgoing.Rows {
		entity.Absorb(rdf.Triple{Subject: uri, Predicate: row["p"].URI, Object: row["o"]})
	}

	incoming, err := c.store.Select(ctx, fmt.Sprintf("SELECT ?s ?p WHERE { ?s ?p <%s> }", uri))
	if err != nil {
		return nil, err
	}
	for _, row := range incoming.Rows {
		entity.Incoming = append(entity.Incoming, rdf.Triple{
			Subject:   row["s"].URI,
			Predicate: row["p"].URI,
			Object:    rdf.URIValue(uri),
		})
	}
	return entity, nil
}

// EntityUpdate lists predicates to clear and properties to add.
type EntityUpdate struct {
	DeletePredicates []string
	AddProperties    map[string]rdf.Value
	AddOrder         []string
}

// UpdateEntity clears each listed predicate then asserts the new
// properties. Each predicate delete is an independent store call; failures
// aggregate as a *PartialFailure, and the add phase runs only when every
// delete succeeded.
func (c *Coordinator) UpdateEntity(ctx context.Context, uri string, update EntityUpdate) error {
	if uri == "" {
		return &ValidationError{Err: fmt.Errorf("entity URI is required")}
	}

	var failed []ItemError
	for i, predicate := range update.DeletePredicates {
		query := fmt.Sprintf("DELETE WHERE { <%s> <%s> ?o }", uri, predicate)
		if _, err := c.store.Update(ctx, query); err != nil {
			failed = append(failed, ItemError{Index: i, Err: err})
		}
	}
	if len(failed) > 0 {
		return &PartialFailure{Succeeded: len(update.DeletePredicates) - len(failed), Failed: failed}
	}

	if len(update.AddProperties) == 0 {
		return nil
	}
	req := EntityRequest{URI: uri, Properties: update.AddProperties, PropertyOrder: update.AddOrder}
	var triples []rdf.Triple
	for _, predicate := range orderedPredicates(req) {
		triples = append(triples, rdf.Triple{Subject: uri, Predicate: predicate, Object: update.AddProperties[predicate]})
	}
	_, err := c.AddTriples(ctx, triples, "")
	return err
}

// DeleteEntity removes all triples where the URI is the subject and all
// where it is the object.
func (c *Coordinator) DeleteEntity(ctx context.Context, uri string) error {
	if _, err := c.store.Update(ctx, fmt.Sprintf("DELETE WHERE { <%s> ?p ?o }", uri)); err != nil {
		return err
	}
	if _, err := c.store.Update(ctx, fmt.Sprintf("DELETE WHERE { ?s ?p <%s> }", uri)); err != nil {
		return err
	}
	return nil
}

func orderedPredicates(req EntityRequest) []string {
	seen := make(map[string]bool, len(req.Properties))
	var out []string
	for _, p := range req.PropertyOrder {
		if _, ok := req.Properties[p]; ok && !seen[p] {
			seen[p] = true
			out = append(out, p)
		}
	}
	var rest []string
	for p := range req.Properties {
		if !seen[p] {
			rest = append(rest, p)
		}
	}
	// Stabilize the unordered remainder.
	sort.Strings(rest)
	return append(out, rest...)
}
