// Package validate checks graph data against ontology schemas and runs
// store-wide consistency analysis.
package validate

import (
	"context"
	"fmt"
	"log/slog"
	"regexp"
	"time"

	"github.com/google/uuid"

	"github.com/c360studio/semgraph/ontology"
	"github.com/c360studio/semgraph/rdf"
	"github.com/c360studio/semgraph/store"
)

// Scope selects what data a validation run binds.
type Scope string

const (
	ScopeFull    Scope = "full"
	ScopeGraph   Scope = "graph"
	ScopeTriples Scope = "triples"
)

// Checks toggles the deterministic validation passes. DefaultChecks enables
// everything.
type Checks struct {
	DomainRange       bool
	Cardinality       bool
	Disjointness      bool
	FunctionalProps   bool
	InverseFunctional bool
	Datatypes         bool
	Patterns          []PatternRule
	SparqlConstraints []SparqlConstraint
	StopOnFirstError  bool
	MaxIssues         int
}

// DefaultChecks enables every structural pass with a 100 issue bound.
func DefaultChecks() *Checks {
	return &Checks{
		DomainRange:       true,
		Cardinality:       true,
		Disjointness:      true,
		FunctionalProps:   true,
		InverseFunctional: true,
		Datatypes:         true,
		MaxIssues:         100,
	}
}

// PatternRule constrains literal values of one property by regular
// expression.
type PatternRule struct {
	Property string
	Pattern  string
	Severity string // error or warning, default warning
	Message  string
}

// SparqlConstraint is a caller-supplied ASK query; a true answer is a
// violation described by the message template.
type SparqlConstraint struct {
	Name     string
	Query    string
	Severity string // error or warning, default error
	Message  string
}

// Request describes one validation run. OntologyURI is required; extra
// ontologies extend the schema.
type Request struct {
	Scope           Scope
	GraphURI        string
	Triples         []rdf.Triple
	OntologyURI     string
	ExtraOntologies []string
	Checks          *Checks
	SuggestFixes    bool
}

// Issue is one violation found by a validation pass.
type Issue struct {
	ID        string `json:"id"`
	Type      string `json:"type"`
	Severity  string `json:"severity"`
	Message   string `json:"message"`
	Subject   string `json:"subject,omitempty"`
	Predicate string `json:"predicate,omitempty"`
	Value     string `json:"value,omitempty"`
}

// SuggestedFix is a best-effort remediation for one issue.
type SuggestedFix struct {
	IssueID     string  `json:"issue_id"`
	Type        string  `json:"type"`
	Description string  `json:"description"`
	Confidence  float64 `json:"confidence"`
	Rationale   string  `json:"rationale"`
}

// Result is the outcome of ValidateData.
type Result struct {
	Valid            bool           `json:"is_valid"`
	Message          string         `json:"message"`
	ErrorCount       int            `json:"error_count"`
	WarningCount     int            `json:"warning_count"`
	Errors           []Issue        `json:"errors,omitempty"`
	Warnings         []Issue        `json:"warnings,omitempty"`
	TriplesValidated int            `json:"triples_validated"`
	Fixes            []SuggestedFix `json:"suggested_fixes,omitempty"`
	Elapsed          time.Duration  `json:"validation_time"`
}

// Validator binds data against ontology schemas.
type Validator struct {
	store    store.Client
	registry *ontology.Registry
	logger   *slog.Logger
}

// Option configures a Validator.
type Option func(*Validator)

// WithLogger sets the validator logger.
func WithLogger(logger *slog.Logger) Option {
	return func(v *Validator) { v.logger = logger }
}

// NewValidator builds a Validator over a store client and ontology
// registry.
func NewValidator(client store.Client, registry *ontology.Registry, opts ...Option) *Validator {
	v := &Validator{store: client, registry: registry, logger: slog.Default()}
	for _, opt := range opts {
		opt(v)
	}
	return v
}

// ValidateData runs every enabled check over the bound data. Violations are
// result fields; only failing to bind the data or the ontology is an error.
func (v *Validator) ValidateData(ctx context.Context, req Request) (*Result, error) {
	start := time.Now()

	if req.OntologyURI == "" {
		return nil, fmt.Errorf("ontology URI is required for validation")
	}

	data, err := v.bindData(ctx, req)
	if err != nil {
		return nil, err
	}

	sch, err := v.bindSchema(ctx, req)
	if err != nil {
		return nil, err
	}

	checks := req.Checks
	if checks == nil {
		checks = DefaultChecks()
	}

	run := newRun(data, sch, checks)
	run.execute()

	if len(checks.SparqlConstraints) > 0 {
		v.runConstraints(ctx, checks.SparqlConstraints, run)
	}

	result := &Result{
		TriplesValidated: len(data),
		Elapsed:          time.Since(start),
	}
	for _, issue := range run.issues {
		if issue.Severity == "error" {
			result.Errors = append(result.Errors, issue)
		} else {
			result.Warnings = append(result.Warnings, issue)
		}
	}
	result.ErrorCount = len(result.Errors)
	result.WarningCount = len(result.Warnings)
	result.Valid = result.ErrorCount == 0
	if result.Valid {
		result.Message = "Data is valid"
	} else {
		result.Message = fmt.Sprintf("Validation failed with %d errors", result.ErrorCount)
	}

	if req.SuggestFixes {
		result.Fixes = suggestFixes(result.Errors)
	}

	v.logger.Info("validation completed",
		slog.String("ontology", req.OntologyURI),
		slog.Int("errors", result.ErrorCount),
		slog.Int("warnings", result.WarningCount),
		slog.Duration("elapsed", result.Elapsed))
	return result, nil
}

func (v *Validator) bindData(ctx context.Context, req Request) ([]rdf.Triple, error) {
	switch req.Scope {
	case ScopeTriples:
		return req.Triples, nil
	case ScopeGraph:
		if req.GraphURI == "" {
			return nil, fmt.Errorf("graph scope requires a graph URI")
		}
		result, err := v.store.Construct(ctx,
			fmt.Sprintf("CONSTRUCT { ?s ?p ?o } WHERE { GRAPH <%s> { ?s ?p ?o } }", req.GraphURI))
		if err != nil {
			return nil, fmt.Errorf("binding graph %s: %w", req.GraphURI, err)
		}
		return result.Triples, nil
	default: // ScopeFull
		result, err := v.store.Construct(ctx, "CONSTRUCT { ?s ?p ?o } WHERE { ?s ?p ?o }")
		if err != nil {
			return nil, fmt.Errorf("binding store data: %w", err)
		}
		return result.Triples, nil
	}
}

func (v *Validator) bindSchema(ctx context.Context, req Request) (*schema, error) {
	uris := append([]string{req.OntologyURI}, req.ExtraOntologies...)
	var models []*ontology.Model
	for _, uri := range uris {
		model, ok := v.registry.Model(uri)
		if !ok {
			if _, err := v.registry.LoadOntology(ctx, ontology.LoadRequest{URI: uri, Source: ontology.SourceURL}); err != nil {
				return nil, fmt.Errorf("loading ontology %s: %w", uri, err)
			}
			model, _ = v.registry.Model(uri)
		}
		if model != nil {
			models = append(models, model)
		}
	}
	return &schema{models: models}, nil
}

func (v *Validator) runConstraints(ctx context.Context, constraints []SparqlConstraint, run *checkRun) {
	for _, c := range constraints {
		result, err := v.store.Ask(ctx, c.Query)
		if err != nil {
			run.add(Issue{
				ID:       uuid.NewString(),
				Type:     "custom-constraint",
				Severity: "warning",
				Message:  fmt.Sprintf("constraint %s could not be evaluated: %v", c.Name, err),
			})
			continue
		}
		if !result.Value {
			continue
		}
		severity := c.Severity
		if severity == "" {
			severity = "error"
		}
		message := c.Message
		if message == "" {
			message = fmt.Sprintf("constraint %s is violated", c.Name)
		}
		run.add(Issue{
			ID:       uuid.NewString(),
			Type:     "custom-constraint",
			Severity: severity,
			Message:  message,
		})
	}
}

// suggestFixes produces fixes for the issue types with a known remediation.
// Today that is domain violations, templated as an add-type fix.
func suggestFixes(errors []Issue) []SuggestedFix {
	var fixes []SuggestedFix
	for _, issue := range errors {
		if issue.Type != "domain-violation" {
			continue
		}
		fixes = append(fixes, SuggestedFix{
			IssueID:     issue.ID,
			Type:        "add-type",
			Description: "Add correct type assertion",
			Confidence:  0.8,
			Rationale:   "Adding the correct type will resolve the domain violation",
		})
	}
	return fixes
}

// schema is the combined view over one or more ontology models.
type schema struct {
	models []*ontology.Model
}

func (s *schema) property(uri string) (ontology.Property, bool) {
	for _, m := range s.models {
		if p, ok := m.Property(uri); ok {
			return p, true
		}
	}
	return ontology.Property{}, false
}

func (s *schema) typeSatisfies(types []string, wanted string) bool {
	for _, t := range types {
		if t == wanted {
			return true
		}
		for _, m := range s.models {
			for _, a := range m.Ancestors(t) {
				if a == wanted {
					return true
				}
			}
		}
	}
	return false
}

func (s *schema) areDisjoint(a, b string) bool {
	for _, m := range s.models {
		if m.AreDisjoint(a, b) {
			return true
		}
	}
	return false
}

func (s *schema) restrictions() []ontology.Restriction {
	var out []ontology.Restriction
	for _, m := range s.models {
		out = append(out, m.Restrictions()...)
	}
	return out
}

func (s *schema) properties() []ontology.Property {
	var out []ontology.Property
	for _, m := range s.models {
		out = append(out, m.Properties()...)
	}
	return out
}

// checkRun executes the deterministic passes over an indexed data view.
type checkRun struct {
	data   []rdf.Triple
	sch    *schema
	checks *Checks
	issues []Issue

	typesOf  map[string][]string
	valuesOf map[string]map[string][]rdf.Value // subject -> predicate -> objects
}

func newRun(data []rdf.Triple, sch *schema, checks *Checks) *checkRun {
	run := &checkRun{
		data:     data,
		sch:      sch,
		checks:   checks,
		typesOf:  map[string][]string{},
		valuesOf: map[string]map[string][]rdf.Value{},
	}
	for _, t := range data {
		if t.Predicate == rdfType {
			run.typesOf[t.Subject] = append(run.typesOf[t.Subject], t.Object.URI)
		}
		if run.valuesOf[t.Subject] == nil {
			run.valuesOf[t.Subject] = map[string][]rdf.Value{}
		}
		run.valuesOf[t.Subject][t.Predicate] = append(run.valuesOf[t.Subject][t.Predicate], t.Object)
	}
	return run
}

func (r *checkRun) add(issue Issue) bool {
	if r.checks.MaxIssues > 0 && len(r.issues) >= r.checks.MaxIssues {
		return false
	}
	r.issues = append(r.issues, issue)
	if r.checks.StopOnFirstError && issue.Severity == "error" {
		return false
	}
	return true
}

func (r *checkRun) execute() {
	if r.checks.DomainRange || r.checks.Datatypes {
		if !r.checkDomainRange() {
			return
		}
	}
	if r.checks.Disjointness && !r.checkDisjointness() {
		return
	}
	if r.checks.FunctionalProps && !r.checkFunctional() {
		return
	}
	if r.checks.InverseFunctional && !r.checkInverseFunctional() {
		return
	}
	if r.checks.Cardinality && !r.checkCardinality() {
		return
	}
	if len(r.checks.Patterns) > 0 {
		r.checkPatterns()
	}
}

func (r *checkRun) checkDomainRange() bool {
	for _, t := range r.data {
		prop, ok := r.sch.property(t.Predicate)
		if !ok {
			continue
		}

		if r.checks.DomainRange {
			for _, domain := range prop.Domain {
				if !r.sch.typeSatisfies(r.typesOf[t.Subject], domain) {
					ok := r.add(Issue{
						ID:        uuid.NewString(),
						Type:      "domain-violation",
						Severity:  "error",
						Message:   fmt.Sprintf("subject %s of %s is not typed as %s", t.Subject, t.Predicate, domain),
						Subject:   t.Subject,
						Predicate: t.Predicate,
					})
					if !ok {
						return false
					}
				}
			}
		}

		for _, rng := range prop.Range {
			if !r.checkRangeValue(t, prop, rng) {
				return false
			}
		}
	}
	return true
}

func (r *checkRun) checkRangeValue(t rdf.Triple, prop ontology.Property, rng string) bool {
	if prop.Kind == ontology.KindDatatype || isXSD(rng) {
		if t.Object.Literal == nil {
			if r.checks.DomainRange {
				return r.add(Issue{
					ID:        uuid.NewString(),
					Type:      "range-violation",
					Severity:  "error",
					Message:   fmt.Sprintf("value of %s must be a %s literal", t.Predicate, rng),
					Subject:   t.Subject,
					Predicate: t.Predicate,
					Value:     t.Object.URI,
				})
			}
			return true
		}
		lit := t.Object.Literal
		if lit.Datatype != "" && lit.Datatype != rng && r.checks.Datatypes {
			return r.add(Issue{
				ID:        uuid.NewString(),
				Type:      "datatype-violation",
				Severity:  "error",
				Message:   fmt.Sprintf("value of %s is typed %s, expected %s", t.Predicate, lit.Datatype, rng),
				Subject:   t.Subject,
				Predicate: t.Predicate,
				Value:     lit.Value,
			})
		}
		if r.checks.DomainRange && !literalFitsDatatype(lit.Value, rng) {
			return r.add(Issue{
				ID:        uuid.NewString(),
				Type:      "range-violation",
				Severity:  "error",
				Message:   fmt.Sprintf("value %q of %s is not a valid %s", lit.Value, t.Predicate, rng),
				Subject:   t.Subject,
				Predicate: t.Predicate,
				Value:     lit.Value,
			})
		}
		return true
	}

	// Object range: only typed objects are judged; untyped targets are
	// left to inference rather than flagged.
	if !r.checks.DomainRange || t.Object.URI == "" {
		return true
	}
	types := r.typesOf[t.Object.URI]
	if len(types) == 0 {
		return true
	}
	if !r.sch.typeSatisfies(types, rng) {
		return r.add(Issue{
			ID:        uuid.NewString(),
			Type:      "range-violation",
			Severity:  "error",
			Message:   fmt.Sprintf("object %s of %s is not typed as %s", t.Object.URI, t.Predicate, rng),
			Subject:   t.Subject,
			Predicate: t.Predicate,
			Value:     t.Object.URI,
		})
	}
	return true
}

func (r *checkRun) checkDisjointness() bool {
	for subject, types := range r.typesOf {
		for i := 0; i < len(types); i++ {
			for j := i + 1; j < len(types); j++ {
				if r.sch.areDisjoint(types[i], types[j]) {
					ok := r.add(Issue{
						ID:       uuid.NewString(),
						Type:     "disjoint-violation",
						Severity: "error",
						Message: fmt.Sprintf("%s is asserted as both %s and %s, which are disjoint",
							subject, types[i], types[j]),
						Subject: subject,
					})
					if !ok {
						return false
					}
				}
			}
		}
	}
	return true
}

func (r *checkRun) checkFunctional() bool {
	for _, prop := range r.sch.properties() {
		if !prop.Functional {
			continue
		}
		for subject, byPredicate := range r.valuesOf {
			values := byPredicate[prop.URI]
			if distinctValues(values) > 1 {
				ok := r.add(Issue{
					ID:        uuid.NewString(),
					Type:      "functional-property-violation",
					Severity:  "error",
					Message:   fmt.Sprintf("functional property %s has multiple values on %s", prop.URI, subject),
					Subject:   subject,
					Predicate: prop.URI,
				})
				if !ok {
					return false
				}
			}
		}
	}
	return true
}

func (r *checkRun) checkInverseFunctional() bool {
	for _, prop := range r.sch.properties() {
		if !prop.InverseFunctional {
			continue
		}
		bySubjectOf := map[string][]string{}
		for subject, byPredicate := range r.valuesOf {
			for _, value := range byPredicate[prop.URI] {
				if value.URI != "" {
					bySubjectOf[value.URI] = append(bySubjectOf[value.URI], subject)
				}
			}
		}
		for object, subjects := range bySubjectOf {
			if distinctStrings(subjects) > 1 {
				ok := r.add(Issue{
					ID:        uuid.NewString(),
					Type:      "functional-property-violation",
					Severity:  "error",
					Message:   fmt.Sprintf("inverse functional property %s links %s from multiple subjects", prop.URI, object),
					Predicate: prop.URI,
					Value:     object,
				})
				if !ok {
					return false
				}
			}
		}
	}
	return true
}

func (r *checkRun) checkCardinality() bool {
	for _, restriction := range r.sch.restrictions() {
		for subject, types := range r.typesOf {
			if !r.sch.typeSatisfies(types, restriction.OnClass) {
				continue
			}
			n := distinctValues(r.valuesOf[subject][restriction.OnProperty])
			if n < restriction.Min {
				ok := r.add(Issue{
					ID:        uuid.NewString(),
					Type:      "cardinality-violation",
					Severity:  "error",
					Message:   fmt.Sprintf("%s has %d values for %s, minimum is %d", subject, n, restriction.OnProperty, restriction.Min),
					Subject:   subject,
					Predicate: restriction.OnProperty,
				})
				if !ok {
					return false
				}
			}
			if restriction.Max >= 0 && n > restriction.Max {
				ok := r.add(Issue{
					ID:        uuid.NewString(),
					Type:      "cardinality-violation",
					Severity:  "error",
					Message:   fmt.Sprintf("%s has %d values for %s, maximum is %d", subject, n, restriction.OnProperty, restriction.Max),
					Subject:   subject,
					Predicate: restriction.OnProperty,
				})
				if !ok {
					return false
				}
			}
		}
	}
	return true
}

func (r *checkRun) checkPatterns() {
	for _, rule := range r.checks.Patterns {
		re, err := regexp.Compile(rule.Pattern)
		if err != nil {
			r.add(Issue{
				ID:       uuid.NewString(),
				Type:     "pattern-violation",
				Severity: "warning",
				Message:  fmt.Sprintf("pattern for %s does not compile: %v", rule.Property, err),
			})
			continue
		}
		severity := rule.Severity
		if severity == "" {
			severity = "warning"
		}
		for _, t := range r.data {
			if t.Predicate != rule.Property || t.Object.Literal == nil {
				continue
			}
			if re.MatchString(t.Object.Literal.Value) {
				continue
			}
			message := rule.Message
			if message == "" {
				message = fmt.Sprintf("value %q of %s does not match %s", t.Object.Literal.Value, rule.Property, rule.Pattern)
			}
			if !r.add(Issue{
				ID:        uuid.NewString(),
				Type:      "pattern-violation",
				Severity:  severity,
				Message:   message,
				Subject:   t.Subject,
				Predicate: t.Predicate,
				Value:     t.Object.Literal.Value,
			}) {
				return
			}
		}
	}
}

func distinctValues(values []rdf.Value) int {
	n := 0
	for i, v := range values {
		dup := false
		for j := 0; j < i; j++ {
			if v.URI == values[j].URI && literalEqual(v.Literal, values[j].Literal) {
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

func literalEqual(a, b *rdf.Literal) bool {
	if a == nil || b == nil {
		return a == b
	}
	return a.Value == b.Value && a.Datatype == b.Datatype && a.Lang == b.Lang
}

func distinctStrings(values []string) int {
	seen := map[string]bool{}
	for _, v := range values {
		seen[v] = true
	}
	return len(seen)
}
