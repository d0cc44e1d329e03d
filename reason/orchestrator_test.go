package reason

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

const ex = "http://example.org/"

func modelFake(triples []rdf.Triple) *storetest.Fake {
	return &storetest.Fake{
		ConstructFn: func(_ context.Context, _ string) (*store.ConstructResult, error) {
			return &store.ConstructResult{Triples: triples, Elapsed: time.Millisecond}, nil
		},
	}
}

func TestPerformInferenceRDFS(t *testing.T) {
	base := []rdf.Triple{
		rdf.NewTriple(ex+"Employee", vocabulary.RDFSSubClassOf, ex+"Person"),
		rdf.NewTriple(ex+"alice", vocabulary.RDFType, ex+"Employee"),
	}
	o := NewOrchestrator(modelFake(base))

	run, err := o.PerformInference(context.Background(), Request{Kind: KindRDFS})
	if err != nil {
		t.Fatalf("PerformInference: %v", err)
	}
	if run.InferredCount < 1 {
		t.Fatalf("inferred = %d", run.InferredCount)
	}
	if run.TriplesAfter != run.TriplesBefore+run.InferredCount {
		t.Errorf("counts: before=%d after=%d inferred=%d", run.TriplesBefore, run.TriplesAfter, run.InferredCount)
	}
	found := false
	for _, s := range run.Sample {
		if s.Subject == ex+"alice" && s.Predicate == vocabulary.RDFType && s.Object.URI == ex+"Person" {
			found = true
		}
	}
	if !found {
		t.Errorf("sample missing alice rdf:type Person: %+v", run.Sample)
	}
	if run.HasConflicts || !run.Consistent {
		t.Errorf("unexpected conflicts: %+v", run.Conflicts)
	}
}

func TestPerformInferenceNamedGraph(t *testing.T) {
	fake := modelFake(nil)
	o := NewOrchestrator(fake)

	if _, err := o.PerformInference(context.Background(), Request{Kind: KindRDFS, GraphURI: ex + "g"}); err != nil {
		t.Fatalf("PerformInference: %v", err)
	}
	if !strings.Contains(fake.Constructs[0], "GRAPH <"+ex+"g>") {
		t.Errorf("query = %s", fake.Constructs[0])
	}
}

func TestPerformInferenceCustomRules(t *testing.T) {
	base := []rdf.Triple{
		rdf.NewTriple(ex+"alice", ex+"knows", ex+"bob"),
		rdf.NewTriple(ex+"bob", ex+"knows", ex+"carol"),
	}
	o := NewOrchestrator(modelFake(base))

	run, err := o.PerformInference(context.Background(), Request{
		Kind:    KindCustom,
		Explain: true,
		Rules: []Rule{
			{
				Name:       "knows-transitive",
				Condition:  "?x <http://example.org/knows> ?y . ?y <http://example.org/knows> ?z . FILTER(?x != ?z)",
				Conclusion: "?x <http://example.org/knows> ?z",
				Enabled:    true,
			},
			{Name: "broken", Condition: "not a pattern", Conclusion: "?x ?p ?y", Enabled: true},
		},
	})
	if err != nil {
		t.Fatalf("PerformInference: %v", err)
	}
	if run.InferredCount != 1 {
		t.Errorf("inferred = %d, want 1", run.InferredCount)
	}
	if len(run.Warnings) != 1 || !strings.Contains(run.Warnings[0], "broken") {
		t.Errorf("warnings = %v", run.Warnings)
	}
	if len(run.Explanations) != 1 {
		t.Fatalf("explanations = %+v", run.Explanations)
	}
	expl := run.Explanations[0]
	if expl.Rule != "knows-transitive" || len(expl.Premises) != 2 {
		t.Errorf("explanation = %+v", expl)
	}
}

func TestPerformInferenceConflictsNonFatal(t *testing.T) {
	base := []rdf.Triple{
		rdf.NewTriple(ex+"Person", vocabulary.OWLDisjointWith, ex+"Company"),
		rdf.NewTriple(ex+"Person", vocabulary.RDFType, vocabulary.OWLClass),
		rdf.NewTriple(ex+"Company", vocabulary.RDFType, vocabulary.OWLClass),
		rdf.NewTriple(ex+"thing", vocabulary.RDFType, ex+"Person"),
		rdf.NewTriple(ex+"thing", vocabulary.RDFType, ex+"Company"),
	}
	o := NewOrchestrator(modelFake(base))

	run, err := o.PerformInference(context.Background(), Request{Kind: KindTransitive})
	if err != nil {
		t.Fatalf("PerformInference: %v", err)
	}
	if !run.HasConflicts || run.Consistent {
		t.Fatal("disjoint membership not reported as conflict")
	}
	if len(run.Conflicts) != 1 || run.Conflicts[0].Type != "disjoint" {
		t.Errorf("conflicts = %+v", run.Conflicts)
	}
}

func TestPerformInferenceMaterializes(t *testing.T) {
	base := []rdf.Triple{
		rdf.NewTriple(ex+"Employee", vocabulary.RDFSSubClassOf, ex+"Person"),
		rdf.NewTriple(ex+"alice", vocabulary.RDFType, ex+"Employee"),
	}
	var loaded []rdf.Triple
	mat := materializerFunc(func(_ context.Context, triples []rdf.Triple, graphURI string) (int, error) {
		loaded = append(loaded, triples...)
		if graphURI != ex+"g" {
			return 0, errors.New("wrong graph")
		}
		return len(triples), nil
	})
	o := NewOrchestrator(modelFake(base), WithMaterializer(mat))

	run, err := o.PerformInference(context.Background(), Request{
		Kind: KindRDFS, GraphURI: ex + "g", Materialize: true,
	})
	if err != nil {
		t.Fatalf("PerformInference: %v", err)
	}
	if !run.Materialized || run.MaterializeError != "" {
		t.Fatalf("run = %+v", run)
	}
	if len(loaded) != run.InferredCount {
		t.Errorf("materialized %d of %d inferred", len(loaded), run.InferredCount)
	}
	// Monotonic: after materialization the model can only have grown.
	if run.TriplesAfter < run.TriplesBefore {
		t.Errorf("counts shrank: %d -> %d", run.TriplesBefore, run.TriplesAfter)
	}
}

func TestPerformInferenceMaterializeFailureReported(t *testing.T) {
	base := []rdf.Triple{
		rdf.NewTriple(ex+"Employee", vocabulary.RDFSSubClassOf, ex+"Person"),
		rdf.NewTriple(ex+"alice", vocabulary.RDFType, ex+"Employee"),
	}
	mat := materializerFunc(func(_ context.Context, _ []rdf.Triple, _ string) (int, error) {
		return 0, errors.New("store down")
	})
	o := NewOrchestrator(modelFake(base), WithMaterializer(mat))

	run, err := o.PerformInference(context.Background(), Request{Kind: KindRDFS, Materialize: true})
	if err != nil {
		t.Fatalf("write failure must not fail the run: %v", err)
	}
	if run.Materialized || run.MaterializeError == "" {
		t.Errorf("run = %+v", run)
	}
	if run.InferredCount < 1 {
		t.Error("derived triples lost on materialization failure")
	}
}

func TestPerformInferenceModelResolveFailure(t *testing.T) {
	fake := &storetest.Fake{
		ConstructFn: func(_ context.Context, _ string) (*store.ConstructResult, error) {
			return nil, &store.StoreError{Kind: store.ErrorNetwork, Operation: "construct", Err: errors.New("refused")}
		},
	}
	o := NewOrchestrator(fake)

	if _, err := o.PerformInference(context.Background(), Request{Kind: KindOWL}); err == nil {
		t.Fatal("expected error when the model cannot be resolved")
	}
}

type materializerFunc func(ctx context.Context, triples []rdf.Triple, graphURI string) (int, error)

func (f materializerFunc) AddTriples(ctx context.Context, triples []rdf.Triple, graphURI string) (int, error) {
	return f(ctx, triples, graphURI)
}
