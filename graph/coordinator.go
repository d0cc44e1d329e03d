// Package graph implements the query coordinator: it builds, dispatches,
// and maps the results of read, write, and construct operations against the
// triple store, and owns the engine's error taxonomy for those operations.
package graph

import (
	"context"
	"fmt"
	"log/slog"
	"strings"

	"github.com/c360studio/semgraph/notify"
	"github.com/c360studio/semgraph/rdf"
	"github.com/c360studio/semgraph/store"
)

// DefaultQueryLimit bounds QueryTriples when the caller passes no limit.
const DefaultQueryLimit = 100

// Coordinator coordinates all store access for the engine. It is stateless
// per call; concurrent use is safe.
type Coordinator struct {
	store     store.Client
	publisher *notify.Publisher
	logger    *slog.Logger
}

// Option configures a Coordinator.
type Option func(*Coordinator)

// WithLogger sets the structured logger.
func WithLogger(logger *slog.Logger) Option {
	return func(c *Coordinator) { c.logger = logger }
}

// WithPublisher attaches a mutation event publisher.
func WithPublisher(p *notify.Publisher) Option {
	return func(c *Coordinator) { c.publisher = p }
}

// NewCoordinator creates a coordinator over a store client.
func NewCoordinator(st store.Client, opts ...Option) *Coordinator {
	c := &Coordinator{store: st, logger: slog.Default()}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Store exposes the underlying client for collaborators (reasoning,
// traversal) that compile their own queries.
func (c *Coordinator) Store() store.Client { return c.store }

// AddTriples validates and loads triples into the default graph or
// targetGraph. It returns the number added. Any invalid triple fails the
// whole batch with a *ValidationError before the store is touched.
func (c *Coordinator) AddTriples(ctx context.Context, triples []rdf.Triple, targetGraph string) (int, error) {
	for i, t := range triples {
		if err := t.Validate(); err != nil {
			return 0, &ValidationError{Index: i, Err: err}
		}
	}
	if len(triples) == 0 {
		return 0, nil
	}

	if _, err := c.store.Load(ctx, triples, targetGraph); err != nil {
		return 0, err
	}

	c.publisher.Publish(ctx, notify.KindAdd, targetGraph, len(triples))
	c.logger.Debug("added triples", slog.Int("count", len(triples)), slog.String("graph", targetGraph))
	return len(triples), nil
}

// TripleFilter selects triples by optional subject/predicate/object URI.
// Empty fields are wildcards.
type TripleFilter struct {
	Subject   string
	Predicate string
	Object    string
	Limit     int
}

// QueryTriples runs a bounded pattern query. Result ordering is whatever
// the store returns for a fixed state; no ordering is imposed.
func (c *Coordinator) QueryTriples(ctx context.Context, filter TripleFilter) ([]rdf.Triple, error) {
	limit := filter.Limit
	if limit <= 0 {
		limit = DefaultQueryLimit
	}

	var sb strings.Builder
	sb.WriteString("SELECT ?s ?p ?o WHERE { ?s ?p ?o ")
	if filter.Subject != "" {
		fmt.Fprintf(&sb, "FILTER(?s = <%s>) ", filter.Subject)
	}
	if filter.Predicate != "" {
		fmt.Fprintf(&sb, "FILTER(?p = <%s>) ", filter.Predicate)
	}
	if filter.Object != "" {
		fmt.Fprintf(&sb, "FILTER(?o = <%s>) ", filter.Object)
	}
	fmt.Fprintf(&sb, "} LIMIT %d", limit)

	result, err := c.store.Select(ctx, sb.String())
	if err != nil {
		return nil, err
	}

	triples := make([]rdf.Triple, 0, len(result.Rows))
	for _, row := range result.Rows {
		triples = append(triples, rdf.Triple{
			Subject:   row["s"].URI,
			Predicate: row["p"].URI,
			Object:    row["o"],
		})
	}
	return triples, nil
}

// DeleteTriples deletes each triple independently, best effort. When some
// deletes fail the rest still run and the aggregate comes back as a
// *PartialFailure. Triples must be well formed up front.
func (c *Coordinator) DeleteTriples(ctx context.Context, triples []rdf.Triple, targetGraph string) error {
	for i, t := range triples {
		if err := t.Validate(); err != nil {
			return &ValidationError{Index: i, Err: err}
		}
	}

	var failed []ItemError
	for i, t := range triples {
		pattern := t.TermString()
		var update string
		if targetGraph != "" {
			update = fmt.Sprintf("DELETE WHERE { GRAPH <%s> { %s } }", targetGraph, pattern)
		} else {
			update = fmt.Sprintf("DELETE WHERE { %s }", pattern)
		}
		if _, err := c.store.Update(ctx, update); err != nil {
			failed = append(failed, ItemError{Index: i, Err: err})
		}
	}

	succeeded := len(triples) - len(failed)
	if succeeded > 0 {
		c.publisher.Publish(ctx, notify.KindDelete, targetGraph, succeeded)
	}
	if len(failed) > 0 {
		return &PartialFailure{Succeeded: succeeded, Failed: failed}
	}
	return nil
}
