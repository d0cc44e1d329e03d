package graph

import (
	"context"
	"sort"
	"strconv"
	"time"

	"github.com/c360studio/semgraph/rdf"
)

// GraphStatistics summarizes store contents. The three counts come from
// three independent aggregate queries; the derived fields are extensions.
type GraphStatistics struct {
	TotalTriples       int64            `json:"total_triples"`
	DistinctSubjects   int64            `json:"distinct_subjects"`
	DistinctPredicates int64            `json:"distinct_predicates"`
	DistinctObjects    int64            `json:"distinct_objects"`
	PredicateUsage     map[string]int64 `json:"predicate_usage,omitempty"`
	Namespaces         []string         `json:"namespaces,omitempty"`
	Elapsed            time.Duration    `json:"elapsed"`
}

// GetStatistics gathers counts with separate queries so a failure in one
// aggregate does not poison the cheap ones; the first error aborts.
func (c *Coordinator) GetStatistics(ctx context.Context) (*GraphStatistics, error) {
	start := time.Now()
	stats := &GraphStatistics{}

	counts := []struct {
		query string
		dest  *int64
	}{
		{"SELECT (COUNT(*) AS ?count) WHERE { ?s ?p ?o }", &stats.TotalTriples},
		{"SELECT (COUNT(DISTINCT ?s) AS ?count) WHERE { ?s ?p ?o }", &stats.DistinctSubjects},
		{"SELECT (COUNT(DISTINCT ?p) AS ?count) WHERE { ?s ?p ?o }", &stats.DistinctPredicates},
		{"SELECT (COUNT(DISTINCT ?o) AS ?count) WHERE { ?s ?p ?o }", &stats.DistinctObjects},
	}
	for _, count := range counts {
		value, err := c.selectCount(ctx, count.query)
		if err != nil {
			return nil, err
		}
		*count.dest = value
	}

	usage, namespaces, err := c.predicateBreakdown(ctx)
	if err != nil {
		return nil, err
	}
	stats.PredicateUsage = usage
	stats.Namespaces = namespaces

	stats.Elapsed = time.Since(start)
	return stats, nil
}

func (c *Coordinator) selectCount(ctx context.Context, query string) (int64, error) {
	result, err := c.store.Select(ctx, query)
	if err != nil {
		return 0, err
	}
	if len(result.Rows) == 0 {
		return 0, nil
	}
	return parseCount(result.Rows[0]["count"]), nil
}

func (c *Coordinator) predicateBreakdown(ctx context.Context) (map[string]int64, []string, error) {
	result, err := c.store.Select(ctx,
		"SELECT ?p (COUNT(*) AS ?count) WHERE { ?s ?p ?o } GROUP BY ?p")
	if err != nil {
		return nil, nil, err
	}

	usage := make(map[string]int64, len(result.Rows))
	seen := make(map[string]bool)
	var namespaces []string
	for _, row := range result.Rows {
		predicate := row["p"].URI
		if predicate == "" {
			continue
		}
		usage[predicate] = parseCount(row["count"])
		namespaces = appendNamespace(namespaces, seen, predicate)
	}
	sort.Strings(namespaces)
	return usage, namespaces, nil
}

func parseCount(v rdf.Value) int64 {
	if v.Literal == nil {
		return 0
	}
	n, err := strconv.ParseInt(v.Literal.Value, 10, 64)
	if err != nil {
		return 0
	}
	return n
}

func appendNamespace(namespaces []string, seen map[string]bool, iri string) []string {
	ns := namespaceOf(iri)
	if ns == "" || seen[ns] {
		return namespaces
	}
	seen[ns] = true
	return append(namespaces, ns)
}

func namespaceOf(iri string) string {
	for i := len(iri) - 1; i >= 0; i-- {
		if iri[i] == '#' || iri[i] == '/' {
			return iri[:i+1]
		}
	}
	return ""
}
