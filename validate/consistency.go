package validate

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/c360studio/semgraph/ontology"
	"github.com/c360studio/semgraph/rdf"
	"github.com/c360studio/semgraph/vocabulary"
)

// Inconsistency subtypes, the fixed classification taxonomy.
const (
	SubtypeClassDisjointness      = "class-disjointness"
	SubtypeIndividualDisjointness = "individual-disjointness"
	SubtypePropertyDisjointness   = "property-disjointness"
	SubtypeContradictory          = "contradictory-assertions"
	SubtypeUnsatisfiableClass     = "unsatisfiable-class"
	SubtypeMinCardinality         = "min-cardinality-violation"
	SubtypeMaxCardinality         = "max-cardinality-violation"
	SubtypeExactCardinality       = "exact-cardinality-violation"
	SubtypeFunctionalProperty     = "functional-property-violation"
	SubtypeDomainViolation        = "domain-violation"
	SubtypeRangeViolation         = "range-violation"
	SubtypeDatatypeViolation      = "datatype-violation"
	SubtypeCyclicHierarchy        = "cyclic-hierarchy"
	SubtypeOrphanedEntity         = "orphaned-entity"
	SubtypeUndefinedReference     = "undefined-reference"
	SubtypeDuplicateDefinition    = "duplicate-definition"
	SubtypeIncompatibleProperties = "incompatible-properties"
	SubtypeConflictingValues      = "conflicting-values"
	SubtypeTemporalInconsistency  = "temporal-inconsistency"
)

// Inconsistency is one finding of CheckConsistency.
type Inconsistency struct {
	ID          string `json:"id"`
	Type        string `json:"type"` // logical or structural
	Subtype     string `json:"subtype"`
	Severity    string `json:"severity"`
	Description string `json:"description"`
	Explanation string `json:"explanation,omitempty"`
	Fixable     bool   `json:"is_fixable"`
}

// ConsistencyResult is the outcome of CheckConsistency.
type ConsistencyResult struct {
	Consistent      bool            `json:"is_consistent"`
	Message         string          `json:"message"`
	Count           int             `json:"inconsistency_count"`
	Inconsistencies []Inconsistency `json:"inconsistencies,omitempty"`
	TriplesAnalyzed int             `json:"triples_analyzed"`
	ReasonerUsed    string          `json:"reasoner_used"`
	Recommendations []string        `json:"recommendations"`
	CanAutoFix      bool            `json:"can_auto_fix"`
	Elapsed         time.Duration   `json:"check_time"`
}

// severityFor derives severity from the subtype name: disjointness and
// contradictions are critical, cardinality and functional fan-out are high,
// domain and range mismatches are medium, everything else is low.
func severityFor(subtype string) string {
	switch {
	case strings.Contains(subtype, "disjoint"), strings.Contains(subtype, "contradict"):
		return "critical"
	case strings.Contains(subtype, "cardinality"), strings.Contains(subtype, "functional"):
		return "high"
	case strings.Contains(subtype, "domain"), strings.Contains(subtype, "range"):
		return "medium"
	default:
		return "low"
	}
}

// fixableFor marks the subtypes an automatic fix strategy exists for.
func fixableFor(subtype string) bool {
	return strings.Contains(subtype, "cardinality") ||
		strings.Contains(subtype, "duplicate") ||
		strings.Contains(subtype, "orphan")
}

// CheckConsistency analyzes the whole store: the schema statements present
// in the graph drive the logical checks, then a structural pass flags
// orphaned entities straight from the store.
func (v *Validator) CheckConsistency(ctx context.Context) (*ConsistencyResult, error) {
	start := time.Now()

	data, err := v.store.Construct(ctx, "CONSTRUCT { ?s ?p ?o } WHERE { ?s ?p ?o }")
	if err != nil {
		return nil, fmt.Errorf("resolving store contents: %w", err)
	}
	triples := data.Triples
	model := ontology.NewModel("", triples)

	var findings []Inconsistency
	record := func(typ, subtype, description string) {
		findings = append(findings, Inconsistency{
			ID:          uuid.NewString(),
			Type:        typ,
			Subtype:     subtype,
			Severity:    severityFor(subtype),
			Description: description,
			Explanation: description,
			Fixable:     fixableFor(subtype),
		})
	}

	checkDisjointMemberships(triples, model, record)
	checkContradictions(triples, record)
	checkFunctionalFanout(triples, model, record)
	checkCardinalityBounds(triples, model, record)
	checkDatatypes(triples, record)
	for _, class := range model.SubClassCycles() {
		record("logical", SubtypeCyclicHierarchy, "Cyclic class hierarchy at "+class)
	}

	if err := v.orphanPass(ctx, record); err != nil {
		v.logger.Warn("orphan pass failed", slog.String("error", err.Error()))
	}

	result := &ConsistencyResult{
		Consistent:      len(findings) == 0,
		Count:           len(findings),
		Inconsistencies: findings,
		TriplesAnalyzed: len(triples),
		ReasonerUsed:    "structural analyzer",
		Recommendations: recommendations(findings),
		Elapsed:         time.Since(start),
	}
	for _, f := range findings {
		if f.Fixable {
			result.CanAutoFix = true
			break
		}
	}
	if result.Consistent {
		result.Message = "Knowledge graph is consistent"
	} else {
		result.Message = fmt.Sprintf("Found %d inconsistencies", result.Count)
	}

	v.logger.Info("consistency check completed",
		slog.Int("inconsistencies", result.Count),
		slog.Int("triples", result.TriplesAnalyzed),
		slog.Duration("elapsed", result.Elapsed))
	return result, nil
}

// orphanPass flags subjects whose every statement uses one single
// predicate. The query shape keeps the work in the store.
func (v *Validator) orphanPass(ctx context.Context, record func(typ, subtype, description string)) error {
	query := "SELECT DISTINCT ?s WHERE { ?s ?p ?o . FILTER NOT EXISTS { ?s ?p2 ?o2 . FILTER(?p != ?p2) } }"
	result, err := v.store.Select(ctx, query)
	if err != nil {
		return err
	}
	for _, row := range result.Rows {
		if uri := row["s"].URI; uri != "" {
			record("structural", SubtypeOrphanedEntity, "Orphaned entity: "+uri)
		}
	}
	return nil
}

func checkDisjointMemberships(triples []rdf.Triple, model *ontology.Model, record func(typ, subtype, description string)) {
	typesOf := map[string][]string{}
	for _, t := range triples {
		if t.Predicate == rdfType {
			typesOf[t.Subject] = append(typesOf[t.Subject], t.Object.URI)
		}
	}
	for subject, types := range typesOf {
		for i := 0; i < len(types); i++ {
			for j := i + 1; j < len(types); j++ {
				if model.AreDisjoint(types[i], types[j]) {
					record("logical", SubtypeClassDisjointness,
						fmt.Sprintf("%s is asserted as both %s and %s, which are declared disjoint",
							subject, types[i], types[j]))
				}
			}
		}
	}
}

// checkContradictions finds individuals asserted owl:sameAs and
// owl:differentFrom the same target.
func checkContradictions(triples []rdf.Triple, record func(typ, subtype, description string)) {
	same := map[string]bool{}
	for _, t := range triples {
		if t.Predicate == vocabulary.OWLSameAs && t.Object.URI != "" {
			same[t.Subject+"|"+t.Object.URI] = true
		}
	}
	for _, t := range triples {
		if t.Predicate != vocabulary.OWLDifferentFrom || t.Object.URI == "" {
			continue
		}
		if same[t.Subject+"|"+t.Object.URI] || same[t.Object.URI+"|"+t.Subject] {
			record("logical", SubtypeContradictory,
				fmt.Sprintf("%s is asserted both sameAs and differentFrom %s", t.Subject, t.Object.URI))
		}
	}
}

func checkFunctionalFanout(triples []rdf.Triple, model *ontology.Model, record func(typ, subtype, description string)) {
	values := map[string]map[string][]rdf.Value{}
	for _, t := range triples {
		prop, ok := model.Property(t.Predicate)
		if !ok || !prop.Functional {
			continue
		}
		if values[t.Predicate] == nil {
			values[t.Predicate] = map[string][]rdf.Value{}
		}
		values[t.Predicate][t.Subject] = append(values[t.Predicate][t.Subject], t.Object)
	}
	for property, bySubject := range values {
		for subject, objects := range bySubject {
			if distinctValues(objects) > 1 {
				record("logical", SubtypeFunctionalProperty,
					fmt.Sprintf("functional property %s has multiple values on %s", property, subject))
			}
		}
	}
}

func checkCardinalityBounds(triples []rdf.Triple, model *ontology.Model, record func(typ, subtype, description string)) {
	typesOf := map[string][]string{}
	counts := map[string]map[string]map[string]bool{} // subject -> property -> distinct object keys
	for _, t := range triples {
		if t.Predicate == rdfType {
			typesOf[t.Subject] = append(typesOf[t.Subject], t.Object.URI)
		}
		if counts[t.Subject] == nil {
			counts[t.Subject] = map[string]map[string]bool{}
		}
		if counts[t.Subject][t.Predicate] == nil {
			counts[t.Subject][t.Predicate] = map[string]bool{}
		}
		counts[t.Subject][t.Predicate][t.Object.String()] = true
	}

	memberOf := func(subject, class string) bool {
		for _, typ := range typesOf[subject] {
			if typ == class {
				return true
			}
			for _, a := range model.Ancestors(typ) {
				if a == class {
					return true
				}
			}
		}
		return false
	}

	for _, restriction := range model.Restrictions() {
		for subject := range typesOf {
			if !memberOf(subject, restriction.OnClass) {
				continue
			}
			n := len(counts[subject][restriction.OnProperty])
			if n < restriction.Min {
				subtype := SubtypeMinCardinality
				if restriction.Min == restriction.Max {
					subtype = SubtypeExactCardinality
				}
				record("logical", subtype,
					fmt.Sprintf("%s has %d values for %s, minimum is %d", subject, n, restriction.OnProperty, restriction.Min))
			}
			if restriction.Max >= 0 && n > restriction.Max {
				subtype := SubtypeMaxCardinality
				if restriction.Min == restriction.Max {
					subtype = SubtypeExactCardinality
				}
				record("logical", subtype,
					fmt.Sprintf("%s has %d values for %s, maximum is %d", subject, n, restriction.OnProperty, restriction.Max))
			}
		}
	}
}

func checkDatatypes(triples []rdf.Triple, record func(typ, subtype, description string)) {
	for _, t := range triples {
		lit := t.Object.Literal
		if lit == nil || lit.Datatype == "" {
			continue
		}
		if !literalFitsDatatype(lit.Value, lit.Datatype) {
			record("logical", SubtypeDatatypeViolation,
				fmt.Sprintf("value %q is not a valid %s", lit.Value, lit.Datatype))
		}
	}
}

// recommendations keys human-readable advice off the categories found.
func recommendations(findings []Inconsistency) []string {
	has := func(subtypes ...string) bool {
		for _, f := range findings {
			for _, s := range subtypes {
				if f.Subtype == s {
					return true
				}
			}
		}
		return false
	}

	var out []string
	if has(SubtypeClassDisjointness, SubtypeIndividualDisjointness, SubtypePropertyDisjointness) {
		out = append(out, "Review class hierarchy for conflicting disjointness declarations")
	}
	if has(SubtypeMinCardinality, SubtypeMaxCardinality, SubtypeExactCardinality) {
		out = append(out, "Check property cardinality constraints and adjust data accordingly")
	}
	if has(SubtypeFunctionalProperty) {
		out = append(out, "Remove duplicate values from functional properties or relax the declarations")
	}
	if has(SubtypeOrphanedEntity) {
		out = append(out, "Connect orphaned entities to the rest of the graph or remove them")
	}
	if has(SubtypeCyclicHierarchy) {
		out = append(out, "Break subclass cycles so the hierarchy forms a directed acyclic graph")
	}
	if len(findings) == 0 {
		out = append(out, "Knowledge graph is consistent. Consider adding more validation rules for deeper checks.")
	}
	return out
}
