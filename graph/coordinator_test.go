package graph

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"testing"
	"time"

	"github.com/c360studio/semgraph/rdf"
	"github.com/c360studio/semgraph/store"
	"github.com/c360studio/semgraph/store/storetest"
)

func TestAddTriplesValidatesBatch(t *testing.T) {
	fake := &storetest.Fake{}
	c := NewCoordinator(fake)

	bad := []rdf.Triple{
		rdf.NewTriple("http://example.org/a", "http://example.org/p", "http://example.org/b"),
		{Subject: "http://example.org/a", Predicate: "http://example.org/p"}, // no object
	}
	_, err := c.AddTriples(context.Background(), bad, "")
	var vErr *ValidationError
	if !errors.As(err, &vErr) {
		t.Fatalf("error = %v, want ValidationError", err)
	}
	if vErr.Index != 1 {
		t.Errorf("index = %d, want 1", vErr.Index)
	}
	if len(fake.Loaded) != 0 {
		t.Error("store touched despite invalid batch")
	}
}

func TestAddTriplesLoads(t *testing.T) {
	fake := &storetest.Fake{}
	c := NewCoordinator(fake)

	triples := []rdf.Triple{
		rdf.NewTriple("http://example.org/Alice", "http://example.org/knows", "http://example.org/Bob"),
		rdf.NewLiteralTriple("http://example.org/Alice", "http://example.org/name", "Alice"),
	}
	count, err := c.AddTriples(context.Background(), triples, "http://example.org/g")
	if err != nil {
		t.Fatalf("AddTriples: %v", err)
	}
	if count != 2 {
		t.Errorf("count = %d, want 2", count)
	}
	if len(fake.Loaded) != 1 || fake.Loaded[0].Graph != "http://example.org/g" {
		t.Errorf("loaded = %+v", fake.Loaded)
	}
}

func TestQueryTriplesBuildsFilters(t *testing.T) {
	fake := &storetest.Fake{
		SelectFn: func(_ context.Context, query string) (*store.SelectResult, error) {
			return storetest.Rows([]string{"s", "p", "o"},
				[]rdf.Value{
					rdf.URIValue("http://example.org/Alice"),
					rdf.URIValue("http://example.org/knows"),
					rdf.URIValue("http://example.org/Bob"),
				}), nil
		},
	}
	c := NewCoordinator(fake)

	triples, err := c.QueryTriples(context.Background(), TripleFilter{
		Subject: "http://example.org/Alice",
		Limit:   10,
	})
	if err != nil {
		t.Fatalf("QueryTriples: %v", err)
	}
	if len(triples) != 1 || triples[0].Object.URI != "http://example.org/Bob" {
		t.Errorf("triples = %+v", triples)
	}

	query := fake.Selects[0]
	if !strings.Contains(query, "FILTER(?s = <http://example.org/Alice>)") {
		t.Errorf("query missing subject filter: %s", query)
	}
	if strings.Contains(query, "FILTER(?p") || strings.Contains(query, "FILTER(?o") {
		t.Errorf("unexpected filters: %s", query)
	}
	if !strings.HasSuffix(query, "LIMIT 10") {
		t.Errorf("limit clause: %s", query)
	}
}

func TestQueryTriplesDefaultLimit(t *testing.T) {
	fake := &storetest.Fake{}
	c := NewCoordinator(fake)

	if _, err := c.QueryTriples(context.Background(), TripleFilter{}); err != nil {
		t.Fatalf("QueryTriples: %v", err)
	}
	if !strings.HasSuffix(fake.Selects[0], "LIMIT 100") {
		t.Errorf("query = %s", fake.Selects[0])
	}
}

func TestDeleteTriplesIndependentOutcomes(t *testing.T) {
	calls := 0
	fake := &storetest.Fake{
		UpdateFn: func(_ context.Context, update string) (time.Duration, error) {
			calls++
			if strings.Contains(update, "fail.example.org") {
				return 0, &store.StoreError{Kind: store.ErrorBackend, Operation: "update", Err: fmt.Errorf("boom")}
			}
			return time.Microsecond, nil
		},
	}
	c := NewCoordinator(fake)

	triples := []rdf.Triple{
		rdf.NewTriple("http://example.org/a", "http://example.org/p", "http://example.org/b"),
		rdf.NewTriple("http://fail.example.org/x", "http://example.org/p", "http://example.org/y"),
		rdf.NewLiteralTriple("http://example.org/a", "http://example.org/name", "A"),
	}
	err := c.DeleteTriples(context.Background(), triples, "")

	var partial *PartialFailure
	if !errors.As(err, &partial) {
		t.Fatalf("error = %v, want PartialFailure", err)
	}
	if partial.Succeeded != 2 || len(partial.Failed) != 1 {
		t.Errorf("partial = %+v", partial)
	}
	if partial.Failed[0].Index != 1 {
		t.Errorf("failed index = %d", partial.Failed[0].Index)
	}
	if calls != 3 {
		t.Errorf("update calls = %d, want 3 (best effort continues)", calls)
	}
}

func TestDeleteTriplesAllSucceed(t *testing.T) {
	fake := &storetest.Fake{}
	c := NewCoordinator(fake)

	err := c.DeleteTriples(context.Background(), []rdf.Triple{
		rdf.NewLiteralTriple("http://example.org/a", "http://example.org/name", "A"),
	}, "http://example.org/g")
	if err != nil {
		t.Fatalf("DeleteTriples: %v", err)
	}
	update := fake.Updates[0]
	if !strings.Contains(update, "GRAPH <http://example.org/g>") {
		t.Errorf("update missing graph clause: %s", update)
	}
	if !strings.Contains(update, `"A"`) {
		t.Errorf("update missing literal term: %s", update)
	}
}

func TestDeleteThenQueryRoundTrip(t *testing.T) {
	// Simulate a store that stops returning deleted patterns.
	deleted := make(map[string]bool)
	fake := &storetest.Fake{}
	fake.UpdateFn = func(_ context.Context, update string) (time.Duration, error) {
		deleted[update] = true
		return time.Microsecond, nil
	}
	fake.SelectFn = func(_ context.Context, query string) (*store.SelectResult, error) {
		if len(deleted) > 0 {
			return storetest.Rows([]string{"s", "p", "o"}), nil
		}
		return storetest.Rows([]string{"s", "p", "o"}, []rdf.Value{
			rdf.URIValue("http://example.org/a"),
			rdf.URIValue("http://example.org/p"),
			rdf.URIValue("http://example.org/b"),
		}), nil
	}
	c := NewCoordinator(fake)

	target := rdf.NewTriple("http://example.org/a", "http://example.org/p", "http://example.org/b")
	if err := c.DeleteTriples(context.Background(), []rdf.Triple{target}, ""); err != nil {
		t.Fatalf("DeleteTriples: %v", err)
	}
	got, err := c.QueryTriples(context.Background(), TripleFilter{Subject: target.Subject})
	if err != nil {
		t.Fatalf("QueryTriples: %v", err)
	}
	if len(got) != 0 {
		t.Errorf("deleted triple still visible: %+v", got)
	}
}
