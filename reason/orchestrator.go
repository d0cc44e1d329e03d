package reason

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/c360studio/semgraph/notify"
	"github.com/c360studio/semgraph/ontology"
	"github.com/c360studio/semgraph/rdf"
	"github.com/c360studio/semgraph/store"
	"github.com/c360studio/semgraph/vocabulary"
)

// sampleLimit bounds how many derived triples one run reports back.
const sampleLimit = 100

// Materializer writes derived triples back into the store. The Query
// Coordinator satisfies this.
type Materializer interface {
	AddTriples(ctx context.Context, triples []rdf.Triple, graphURI string) (int, error)
}

// Request describes one inference invocation.
type Request struct {
	GraphURI    string
	Kind        Kind
	Rules       []Rule // custom rules; the whole program for KindCustom
	Explain     bool
	Materialize bool
}

// Explanation carries the provenance of one derived triple.
type Explanation struct {
	Triple   rdf.Triple   `json:"inferred_triple"`
	Rule     string       `json:"rule"`
	Premises []rdf.Triple `json:"premises,omitempty"`
}

// Conflict is one invalidity found in the post-inference model.
type Conflict struct {
	Type        string `json:"conflict_type"`
	Description string `json:"description"`
}

// InferenceRun is the outcome of PerformInference. Rule warnings, conflicts,
// and materialization failures are fields, not errors; only failing to
// resolve the target model aborts a run.
type InferenceRun struct {
	ReasonerUsed     string        `json:"reasoner_used"`
	TriplesBefore    int           `json:"total_triples_before"`
	TriplesAfter     int           `json:"total_triples_after"`
	InferredCount    int           `json:"inferred_triple_count"`
	Sample           []rdf.Triple  `json:"inferred_triples,omitempty"`
	Explanations     []Explanation `json:"explanations,omitempty"`
	Warnings         []string      `json:"warnings,omitempty"`
	HasConflicts     bool          `json:"has_conflicts"`
	Conflicts        []Conflict    `json:"conflicts,omitempty"`
	Consistent       bool          `json:"is_consistent"`
	Materialized     bool          `json:"materialized"`
	MaterializeError string        `json:"materialize_error,omitempty"`
	Elapsed          time.Duration `json:"inference_time"`
}

// Orchestrator resolves a target model through the store, runs the selected
// rule set to fixpoint, and optionally materializes the derivations.
type Orchestrator struct {
	store        store.Client
	materializer Materializer
	publisher    *notify.Publisher
	logger       *slog.Logger
}

// Option configures an Orchestrator.
type Option func(*Orchestrator)

// WithMaterializer enables writing derived triples back to the store.
func WithMaterializer(m Materializer) Option {
	return func(o *Orchestrator) { o.materializer = m }
}

// WithPublisher emits a mutation event after materialization.
func WithPublisher(p *notify.Publisher) Option {
	return func(o *Orchestrator) { o.publisher = p }
}

// WithLogger sets the orchestrator logger.
func WithLogger(logger *slog.Logger) Option {
	return func(o *Orchestrator) { o.logger = logger }
}

// NewOrchestrator builds an Orchestrator over a store client.
func NewOrchestrator(client store.Client, opts ...Option) *Orchestrator {
	o := &Orchestrator{store: client, logger: slog.Default()}
	for _, opt := range opts {
		opt(o)
	}
	return o
}

// PerformInference runs one inference pass.
func (o *Orchestrator) PerformInference(ctx context.Context, req Request) (*InferenceRun, error) {
	start := time.Now()

	base, err := o.resolveModel(ctx, req.GraphURI)
	if err != nil {
		return nil, err
	}

	run := &InferenceRun{
		ReasonerUsed:  string(req.Kind),
		TriplesBefore: len(base),
	}
	if req.Kind == "" {
		req.Kind = KindOWL
		run.ReasonerUsed = string(KindOWL)
	}

	program := rulesFor(req.Kind)
	custom, warnings := compile(req.Rules)
	run.Warnings = warnings
	builtin, builtinWarnings := compile(program)
	// Built-in rules are vetted; a parse failure here is a bug worth
	// surfacing loudly in the result too.
	run.Warnings = append(run.Warnings, builtinWarnings...)
	rules := append(builtin, custom...)

	eng := newEngine(base)
	derived := eng.run(rules)

	run.TriplesAfter = eng.size()
	run.InferredCount = run.TriplesAfter - run.TriplesBefore

	for _, d := range derived {
		if len(run.Sample) >= sampleLimit {
			break
		}
		run.Sample = append(run.Sample, d.triple)
		if req.Explain {
			run.Explanations = append(run.Explanations, Explanation{
				Triple:   d.triple,
				Rule:     d.rule,
				Premises: d.premises,
			})
		}
	}

	run.Conflicts = findConflicts(eng.triples)
	run.HasConflicts = len(run.Conflicts) > 0
	run.Consistent = !run.HasConflicts

	if req.Materialize && run.InferredCount > 0 {
		o.materialize(ctx, req.GraphURI, derived, run)
	}

	run.Elapsed = time.Since(start)
	o.logger.Info("inference completed",
		slog.String("reasoner", run.ReasonerUsed),
		slog.Int("inferred", run.InferredCount),
		slog.Bool("conflicts", run.HasConflicts),
		slog.Duration("elapsed", run.Elapsed))
	return run, nil
}

func (o *Orchestrator) resolveModel(ctx context.Context, graphURI string) ([]rdf.Triple, error) {
	var query string
	if graphURI != "" {
		query = fmt.Sprintf("CONSTRUCT { ?s ?p ?o } WHERE { GRAPH <%s> { ?s ?p ?o } }", graphURI)
	} else {
		query = "CONSTRUCT { ?s ?p ?o } WHERE { ?s ?p ?o }"
	}
	result, err := o.store.Construct(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("resolving inference model: %w", err)
	}
	return result.Triples, nil
}

func (o *Orchestrator) materialize(ctx context.Context, graphURI string, derived []derivation, run *InferenceRun) {
	if o.materializer == nil {
		run.MaterializeError = "no materializer configured"
		return
	}
	triples := make([]rdf.Triple, 0, len(derived))
	for _, d := range derived {
		triples = append(triples, d.triple)
	}
	if _, err := o.materializer.AddTriples(ctx, triples, graphURI); err != nil {
		run.MaterializeError = err.Error()
		o.logger.Error("materialization failed", slog.String("error", err.Error()))
		return
	}
	run.Materialized = true
	o.publisher.Publish(ctx, notify.KindMaterialize, graphURI, len(triples))
}

// findConflicts checks the post-inference model for the invalidities the
// rule sets can surface without a full OWL engine: disjoint class
// memberships and functional property fan-out.
func findConflicts(triples []rdf.Triple) []Conflict {
	model := ontology.NewModel("", triples)

	var conflicts []Conflict

	typesBySubject := map[string][]string{}
	functionalValues := map[string]map[string][]rdf.Value{}
	functional := map[string]bool{}
	for _, t := range triples {
		switch t.Predicate {
		case vocabulary.RDFType:
			if t.Object.URI == vocabulary.OWLFunctionalProperty {
				functional[t.Subject] = true
			}
			typesBySubject[t.Subject] = append(typesBySubject[t.Subject], t.Object.URI)
		}
	}
	for _, t := range triples {
		if !functional[t.Predicate] {
			continue
		}
		if functionalValues[t.Predicate] == nil {
			functionalValues[t.Predicate] = map[string][]rdf.Value{}
		}
		functionalValues[t.Predicate][t.Subject] = append(functionalValues[t.Predicate][t.Subject], t.Object)
	}

	for subject, types := range typesBySubject {
		for i := 0; i < len(types); i++ {
			for j := i + 1; j < len(types); j++ {
				if model.AreDisjoint(types[i], types[j]) {
					conflicts = append(conflicts, Conflict{
						Type: "disjoint",
						Description: fmt.Sprintf("%s is asserted as both %s and %s, which are disjoint",
							subject, types[i], types[j]),
					})
				}
			}
		}
	}

	for property, subjects := range functionalValues {
		for subject, values := range subjects {
			if countDistinct(values) > 1 {
				conflicts = append(conflicts, Conflict{
					Type: "functional",
					Description: fmt.Sprintf("functional property %s has %d distinct values on %s",
						property, countDistinct(values), subject),
				})
			}
		}
	}
	return conflicts
}

func countDistinct(values []rdf.Value) int {
	n := 0
	for i, v := range values {
		dup := false
		for j := 0; j < i; j++ {
			if valueEqual(v, values[j]) {
				dup = true
				break
			}
		}
		if !dup {
			n++
		}
	}
	return n
}
