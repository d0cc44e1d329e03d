// Package traverse implements breadth-first analytics over the graph:
// neighborhood search and minimum-hop path finding.
package traverse

import (
	"context"
	"fmt"

	"github.com/c360studio/semgraph/store"
)

// Edge is one outgoing link from a node.
type Edge struct {
	Predicate string
	Target    string
}

// Expander resolves the outgoing edges of one node. The traversal
// algorithms are written against this interface so per-node queries can be
// swapped for a batched strategy without touching the BFS itself.
type Expander interface {
	Expand(ctx context.Context, node string) ([]Edge, error)
}

// StoreExpander expands nodes with one SELECT per node against the store.
type StoreExpander struct {
	store store.Client
}

// NewStoreExpander builds an Expander over a store client.
func NewStoreExpander(client store.Client) *StoreExpander {
	return &StoreExpander{store: client}
}

// Expand returns the URI-valued objects of every statement about node.
// Literal objects are filtered store-side.
func (e *StoreExpander) Expand(ctx context.Context, node string) ([]Edge, error) {
	query := fmt.Sprintf("SELECT ?p ?o WHERE { <%s> ?p ?o . FILTER(isIRI(?o)) }", node)
	result, err := e.store.Select(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("expanding %s: %w", node, err)
	}
	edges := make([]Edge, 0, len(result.Rows))
	for _, row := range result.Rows {
		target := row["o"].URI
		if target == "" {
			continue
		}
		edges = append(edges, Edge{Predicate: row["p"].URI, Target: target})
	}
	return edges, nil
}
