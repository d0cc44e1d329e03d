package traverse

import (
	"context"
	"errors"
	"reflect"
	"strings"
	"sync"
	"sync/atomic"
	"testing"

	"github.com/c360studio/semgraph/rdf"
	"github.com/c360studio/semgraph/store"
	"github.com/c360studio/semgraph/store/storetest"
)

const ex = "http://example.org/"

// mapExpander serves edges from a static adjacency map and counts
// expansions.
type mapExpander struct {
	edges map[string][]Edge
	calls atomic.Int64

	mu     sync.Mutex
	active int
	peak   int
}

func (m *mapExpander) Expand(_ context.Context, node string) ([]Edge, error) {
	m.calls.Add(1)
	m.mu.Lock()
	m.active++
	if m.active > m.peak {
		m.peak = m.active
	}
	m.mu.Unlock()
	defer func() {
		m.mu.Lock()
		m.active--
		m.mu.Unlock()
	}()
	return m.edges[node], nil
}

func knowsGraph() *mapExpander {
	knows := ex + "knows"
	return &mapExpander{edges: map[string][]Edge{
		ex + "Alice": {{Predicate: knows, Target: ex + "Bob"}},
		ex + "Bob":   {{Predicate: knows, Target: ex + "Carol"}},
	}}
}

func TestFindPath(t *testing.T) {
	traverser := NewTraverser(knowsGraph())

	result, err := traverser.FindPath(context.Background(), ex+"Alice", ex+"Carol", 2)
	if err != nil {
		t.Fatalf("FindPath: %v", err)
	}
	if !result.Found {
		t.Fatal("path not found")
	}
	want := []string{ex + "Alice", ex + "Bob", ex + "Carol"}
	if !reflect.DeepEqual(result.Path, want) {
		t.Errorf("path = %v, want %v", result.Path, want)
	}
	if result.Length != 2 {
		t.Errorf("length = %d", result.Length)
	}
	if len(result.Hops) != 2 || result.Hops[0].Predicate != ex+"knows" {
		t.Errorf("hops = %+v", result.Hops)
	}
	if result.Hops[0].Weight != 1 {
		t.Errorf("weight = %v", result.Hops[0].Weight)
	}
}

func TestFindPathRespectsMaxLength(t *testing.T) {
	traverser := NewTraverser(knowsGraph())

	result, err := traverser.FindPath(context.Background(), ex+"Alice", ex+"Carol", 1)
	if err != nil {
		t.Fatalf("FindPath: %v", err)
	}
	if result.Found {
		t.Errorf("two-hop path found within one hop: %v", result.Path)
	}
}

func TestFindPathNoRoute(t *testing.T) {
	traverser := NewTraverser(knowsGraph())

	result, err := traverser.FindPath(context.Background(), ex+"Carol", ex+"Alice", 5)
	if err != nil {
		t.Fatalf("FindPath: %v", err)
	}
	if result.Found {
		t.Errorf("reverse path found over outgoing edges: %v", result.Path)
	}
}

func TestFindPathSameNode(t *testing.T) {
	traverser := NewTraverser(knowsGraph())

	result, err := traverser.FindPath(context.Background(), ex+"Alice", ex+"Alice", 3)
	if err != nil {
		t.Fatalf("FindPath: %v", err)
	}
	if !result.Found || len(result.Path) != 1 || result.Length != 0 {
		t.Errorf("result = %+v", result)
	}
}

func TestFindPathPrefersMinimumHops(t *testing.T) {
	link := ex + "link"
	expander := &mapExpander{edges: map[string][]Edge{
		ex + "a": {
			{Predicate: link, Target: ex + "b"},
			{Predicate: link, Target: ex + "d"},
		},
		ex + "b": {{Predicate: link, Target: ex + "c"}},
		ex + "c": {{Predicate: link, Target: ex + "d"}},
	}}
	traverser := NewTraverser(expander)

	result, err := traverser.FindPath(context.Background(), ex+"a", ex+"d", 5)
	if err != nil {
		t.Fatalf("FindPath: %v", err)
	}
	if !result.Found || result.Length != 1 {
		t.Errorf("result = %+v", result)
	}
}

func TestFindConnectedEntitiesOneHop(t *testing.T) {
	traverser := NewTraverser(knowsGraph())

	result, err := traverser.FindConnectedEntities(context.Background(), ex+"Alice", 1)
	if err != nil {
		t.Fatalf("FindConnectedEntities: %v", err)
	}
	if want := []string{ex + "Bob"}; !reflect.DeepEqual(result.Entities, want) {
		t.Errorf("entities = %v, want %v", result.Entities, want)
	}
}

func TestFindConnectedEntitiesTwoHops(t *testing.T) {
	traverser := NewTraverser(knowsGraph())

	result, err := traverser.FindConnectedEntities(context.Background(), ex+"Alice", 2)
	if err != nil {
		t.Fatalf("FindConnectedEntities: %v", err)
	}
	want := []string{ex + "Bob", ex + "Carol"}
	if !reflect.DeepEqual(result.Entities, want) {
		t.Errorf("entities = %v, want %v", result.Entities, want)
	}
}

func TestFindConnectedEntitiesExcludesOrigin(t *testing.T) {
	loop := ex + "loop"
	expander := &mapExpander{edges: map[string][]Edge{
		ex + "a": {{Predicate: loop, Target: ex + "b"}},
		ex + "b": {{Predicate: loop, Target: ex + "a"}},
	}}
	traverser := NewTraverser(expander)

	result, err := traverser.FindConnectedEntities(context.Background(), ex+"a", 4)
	if err != nil {
		t.Fatalf("FindConnectedEntities: %v", err)
	}
	if want := []string{ex + "b"}; !reflect.DeepEqual(result.Entities, want) {
		t.Errorf("entities = %v, want %v", result.Entities, want)
	}
}

func TestFindConnectedEntitiesVisitsOnce(t *testing.T) {
	link := ex + "link"
	// Diamond: a -> b, a -> c, b -> d, c -> d.
	expander := &mapExpander{edges: map[string][]Edge{
		ex + "a": {{Predicate: link, Target: ex + "b"}, {Predicate: link, Target: ex + "c"}},
		ex + "b": {{Predicate: link, Target: ex + "d"}},
		ex + "c": {{Predicate: link, Target: ex + "d"}},
	}}
	traverser := NewTraverser(expander)

	result, err := traverser.FindConnectedEntities(context.Background(), ex+"a", 3)
	if err != nil {
		t.Fatalf("FindConnectedEntities: %v", err)
	}
	want := []string{ex + "b", ex + "c", ex + "d"}
	if !reflect.DeepEqual(result.Entities, want) {
		t.Errorf("entities = %v, want %v", result.Entities, want)
	}
	// a, b, c expanded once each; d has no outgoing edges but is expanded
	// as its own level.
	if n := expander.calls.Load(); n != 4 {
		t.Errorf("expansions = %d, want 4", n)
	}
}

func TestFanoutBound(t *testing.T) {
	link := ex + "link"
	edges := map[string][]Edge{}
	var level []Edge
	for _, name := range []string{"b", "c", "d", "e", "f"} {
		level = append(level, Edge{Predicate: link, Target: ex + name})
	}
	edges[ex+"a"] = level
	expander := &mapExpander{edges: edges}
	traverser := NewTraverser(expander, WithFanout(2))

	if _, err := traverser.FindConnectedEntities(context.Background(), ex+"a", 2); err != nil {
		t.Fatalf("FindConnectedEntities: %v", err)
	}
	expander.mu.Lock()
	peak := expander.peak
	expander.mu.Unlock()
	if peak > 2 {
		t.Errorf("peak concurrent expansions = %d, want <= 2", peak)
	}
}

type failingExpander struct{}

func (failingExpander) Expand(context.Context, string) ([]Edge, error) {
	return nil, errors.New("store unavailable")
}

func TestExpanderErrorPropagates(t *testing.T) {
	traverser := NewTraverser(failingExpander{})

	if _, err := traverser.FindConnectedEntities(context.Background(), ex+"a", 1); err == nil {
		t.Error("expander failure not surfaced by FindConnectedEntities")
	}
	if _, err := traverser.FindPath(context.Background(), ex+"a", ex+"b", 1); err == nil {
		t.Error("expander failure not surfaced by FindPath")
	}
}

func TestStoreExpander(t *testing.T) {
	fake := &storetest.Fake{
		SelectFn: func(_ context.Context, _ string) (*store.SelectResult, error) {
			return storetest.Rows([]string{"p", "o"},
				[]rdf.Value{rdf.URIValue(ex + "knows"), rdf.URIValue(ex + "Bob")},
				[]rdf.Value{rdf.URIValue(ex + "name"), rdf.LiteralValue("Alice")}), nil
		},
	}
	expander := NewStoreExpander(fake)

	edges, err := expander.Expand(context.Background(), ex+"Alice")
	if err != nil {
		t.Fatalf("Expand: %v", err)
	}
	if len(edges) != 1 {
		t.Fatalf("edges = %+v", edges)
	}
	if edges[0].Predicate != ex+"knows" || edges[0].Target != ex+"Bob" {
		t.Errorf("edge = %+v", edges[0])
	}
	if len(fake.Selects) != 1 {
		t.Fatalf("selects = %v", fake.Selects)
	}
	query := fake.Selects[0]
	if want := "<" + ex + "Alice> ?p ?o"; !strings.Contains(query, want) {
		t.Errorf("query = %q", query)
	}
	if !strings.Contains(query, "FILTER(isIRI(?o))") {
		t.Errorf("query = %q", query)
	}
}
