package graph

import (
	"context"
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/c360studio/semgraph/rdf"
	"github.com/c360studio/semgraph/store"
	"github.com/c360studio/semgraph/store/storetest"
	"github.com/c360studio/semgraph/vocabulary"
)

func TestCreateEntityPreservesOrder(t *testing.T) {
	fake := &storetest.Fake{}
	c := NewCoordinator(fake)

	count, err := c.CreateEntity(context.Background(), EntityRequest{
		URI:  "http://example.org/Alice",
		Type: "http://example.org/Person",
		Properties: map[string]rdf.Value{
			"http://example.org/name": rdf.LiteralValue("Alice"),
			"http://example.org/age":  rdf.LiteralValue("30"),
		},
		PropertyOrder: []string{"http://example.org/name", "http://example.org/age"},
	})
	if err != nil {
		t.Fatalf("CreateEntity: %v", err)
	}
	if count != 3 {
		t.Errorf("count = %d, want 3", count)
	}

	loaded := fake.AllLoaded()
	if loaded[0].Predicate != vocabulary.RDFType {
		t.Errorf("first triple = %+v, want type assertion", loaded[0])
	}
	if loaded[1].Predicate != "http://example.org/name" || loaded[2].Predicate != "http://example.org/age" {
		t.Errorf("property order not preserved: %+v", loaded[1:])
	}
}

func TestCreateEntityRequiresURI(t *testing.T) {
	c := NewCoordinator(&storetest.Fake{})
	_, err := c.CreateEntity(context.Background(), EntityRequest{})
	var vErr *ValidationError
	if !errors.As(err, &vErr) {
		t.Fatalf("error = %v, want ValidationError", err)
	}
}

func TestGetEntity(t *testing.T) {
	fake := &storetest.Fake{
		SelectFn: func(_ context.Context, query string) (*store.SelectResult, error) {
			if strings.Contains(query, "?p ?o") {
				return storetest.Rows([]string{"p", "o"},
					[]rdf.Value{rdf.URIValue(vocabulary.RDFType), rdf.URIValue("http://example.org/Person")},
					[]rdf.Value{rdf.URIValue("http://example.org/name"), rdf.LiteralValue("Alice")}), nil
			}
			return storetest.Rows([]string{"s", "p"},
				[]rdf.Value{rdf.URIValue("http://example.org/Bob"), rdf.URIValue("http://example.org/knows")}), nil
		},
	}
	c := NewCoordinator(fake)

	entity, err := c.GetEntity(context.Background(), "http://example.org/Alice")
	if err != nil {
		t.Fatalf("GetEntity: %v", err)
	}
	if len(entity.Types) != 1 || entity.Types[0] != "http://example.org/Person" {
		t.Errorf("types = %v", entity.Types)
	}
	if entity.PropertyCount() != 1 {
		t.Errorf("property count = %d", entity.PropertyCount())
	}
	if len(entity.Incoming) != 1 || entity.Incoming[0].Subject != "http://example.org/Bob" {
		t.Errorf("incoming = %+v", entity.Incoming)
	}
}

func TestGetEntityUnknownURIEmptyView(t *testing.T) {
	c := NewCoordinator(&storetest.Fake{})

	entity, err := c.GetEntity(context.Background(), "http://example.org/nobody")
	if err != nil {
		t.Fatalf("GetEntity: %v", err)
	}
	if len(entity.Types) != 0 || entity.PropertyCount() != 0 || len(entity.Incoming) != 0 {
		t.Errorf("entity not empty: %+v", entity)
	}
}

func TestUpdateEntityPartialDeleteStopsAdds(t *testing.T) {
	fake := &storetest.Fake{
		UpdateFn: func(_ context.Context, update string) (time.Duration, error) {
			if strings.Contains(update, "broken") {
				return 0, errors.New("boom")
			}
			return time.Microsecond, nil
		},
	}
	c := NewCoordinator(fake)

	err := c.UpdateEntity(context.Background(), "http://example.org/Alice", EntityUpdate{
		DeletePredicates: []string{"http://example.org/name", "http://example.org/broken"},
		AddProperties:    map[string]rdf.Value{"http://example.org/name": rdf.LiteralValue("Alicia")},
	})
	var partial *PartialFailure
	if !errors.As(err, &partial) {
		t.Fatalf("error = %v, want PartialFailure", err)
	}
	if partial.Succeeded != 1 || len(partial.Failed) != 1 {
		t.Errorf("partial = %+v", partial)
	}
	if len(fake.Loaded) != 0 {
		t.Error("adds ran despite failed delete phase")
	}
}

func TestDeleteEntityBothDirections(t *testing.T) {
	fake := &storetest.Fake{}
	c := NewCoordinator(fake)

	if err := c.DeleteEntity(context.Background(), "http://example.org/Alice"); err != nil {
		t.Fatalf("DeleteEntity: %v", err)
	}
	if len(fake.Updates) != 2 {
		t.Fatalf("updates = %d, want 2", len(fake.Updates))
	}
	if !strings.Contains(fake.Updates[0], "<http://example.org/Alice> ?p ?o") {
		t.Errorf("subject delete = %s", fake.Updates[0])
	}
	if !strings.Contains(fake.Updates[1], "?s ?p <http://example.org/Alice>") {
		t.Errorf("object delete = %s", fake.Updates[1])
	}
}

func TestGetStatistics(t *testing.T) {
	fake := &storetest.Fake{
		SelectFn: func(_ context.Context, query string) (*store.SelectResult, error) {
			switch {
			case strings.Contains(query, "GROUP BY ?p"):
				return storetest.Rows([]string{"p", "count"},
					[]rdf.Value{rdf.URIValue("http://example.org/knows"), rdf.TypedLiteral("7", vocabulary.XSDInteger)},
					[]rdf.Value{rdf.URIValue("http://xmlns.com/foaf/0.1/name"), rdf.TypedLiteral("3", vocabulary.XSDInteger)}), nil
			case strings.Contains(query, "COUNT(*)"):
				return storetest.CountRow(10), nil
			case strings.Contains(query, "DISTINCT ?s"):
				return storetest.CountRow(4), nil
			case strings.Contains(query, "DISTINCT ?p"):
				return storetest.CountRow(2), nil
			default:
				return storetest.CountRow(6), nil
			}
		},
	}
	c := NewCoordinator(fake)

	stats, err := c.GetStatistics(context.Background())
	if err != nil {
		t.Fatalf("GetStatistics: %v", err)
	}
	if stats.TotalTriples != 10 || stats.DistinctSubjects != 4 || stats.DistinctPredicates != 2 || stats.DistinctObjects != 6 {
		t.Errorf("counts = %+v", stats)
	}
	if stats.PredicateUsage["http://example.org/knows"] != 7 {
		t.Errorf("usage = %v", stats.PredicateUsage)
	}
	want := []string{"http://example.org/", "http://xmlns.com/foaf/0.1/"}
	if len(stats.Namespaces) != 2 || stats.Namespaces[0] != want[0] || stats.Namespaces[1] != want[1] {
		t.Errorf("namespaces = %v, want %v", stats.Namespaces, want)
	}
}
