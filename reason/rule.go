// Package reason derives new statements from the graph using forward
// chaining rule sets. The target model is resolved through the store, the
// fixpoint runs locally, and derived triples can be materialized back.
package reason

import (
	"fmt"
	"sort"
	"strings"

	"github.com/c360studio/semgraph/rdf"
	"github.com/c360studio/semgraph/vocabulary"
)

// Rule is one condition/conclusion pair. Condition and Conclusion are
// whitespace-separated triple patterns joined by " . "; terms are variables
// (?x), IRIs (<...> or a well-known prefix like rdf:type), or quoted
// literals. A condition pattern may also be a FILTER(?a != ?b) or
// FILTER(isIRI(?x)) clause.
type Rule struct {
	Name       string `json:"name"`
	Condition  string `json:"condition"`
	Conclusion string `json:"conclusion"`
	Priority   int    `json:"priority"`
	Enabled    bool   `json:"enabled"`
}

type termKind int

const (
	termVar termKind = iota
	termIRI
	termLiteral
)

type term struct {
	kind  termKind
	name  string // variable name including "?"
	value rdf.Value
}

type pattern struct {
	s, p, o term
}

type filterKind int

const (
	filterNotEqual filterKind = iota
	filterIsIRI
)

type filter struct {
	kind filterKind
	a, b string
}

// compiledRule is a parsed rule ready for matching.
type compiledRule struct {
	name     string
	priority int
	when     []pattern
	filters  []filter
	then     []pattern
}

// compile parses the enabled rules, dropping malformed ones with a warning
// message instead of failing the run.
func compile(rules []Rule) (compiled []compiledRule, warnings []string) {
	for _, r := range rules {
		if !r.Enabled {
			continue
		}
		cr, err := parseRule(r)
		if err != nil {
			warnings = append(warnings, fmt.Sprintf("skipping rule %s: %v", r.Name, err))
			continue
		}
		compiled = append(compiled, cr)
	}
	// Higher priority fires first within a round.
	sort.SliceStable(compiled, func(i, j int) bool {
		return compiled[i].priority > compiled[j].priority
	})
	return compiled, warnings
}

func parseRule(r Rule) (compiledRule, error) {
	cr := compiledRule{name: r.Name, priority: r.Priority}
	if strings.TrimSpace(r.Condition) == "" {
		return cr, fmt.Errorf("empty condition")
	}
	if strings.TrimSpace(r.Conclusion) == "" {
		return cr, fmt.Errorf("empty conclusion")
	}

	for _, clause := range splitClauses(r.Condition) {
		if strings.HasPrefix(strings.ToUpper(clause), "FILTER") {
			f, err := parseFilter(clause)
			if err != nil {
				return cr, err
			}
			cr.filters = append(cr.filters, f)
			continue
		}
		p, err := parsePattern(clause)
		if err != nil {
			return cr, fmt.Errorf("condition %q: %w", clause, err)
		}
		cr.when = append(cr.when, p)
	}
	if len(cr.when) == 0 {
		return cr, fmt.Errorf("condition has no triple patterns")
	}

	bound := map[string]bool{}
	for _, p := range cr.when {
		for _, t := range []term{p.s, p.p, p.o} {
			if t.kind == termVar {
				bound[t.name] = true
			}
		}
	}

	for _, clause := range splitClauses(r.Conclusion) {
		p, err := parsePattern(clause)
		if err != nil {
			return cr, fmt.Errorf("conclusion %q: %w", clause, err)
		}
		for _, t := range []term{p.s, p.p, p.o} {
			if t.kind == termVar && !bound[t.name] {
				return cr, fmt.Errorf("conclusion variable %s is not bound by the condition", t.name)
			}
		}
		cr.then = append(cr.then, p)
	}
	if len(cr.then) == 0 {
		return cr, fmt.Errorf("conclusion has no triple patterns")
	}
	return cr, nil
}

func splitClauses(s string) []string {
	var out []string
	for _, clause := range strings.Split(s, " . ") {
		clause = strings.TrimSpace(strings.TrimSuffix(strings.TrimSpace(clause), "."))
		if clause != "" {
			out = append(out, clause)
		}
	}
	return out
}

func parsePattern(clause string) (pattern, error) {
	fields := splitTerms(clause)
	if len(fields) != 3 {
		return pattern{}, fmt.Errorf("want 3 terms, got %d", len(fields))
	}
	s, err := parseTerm(fields[0])
	if err != nil {
		return pattern{}, err
	}
	p, err := parseTerm(fields[1])
	if err != nil {
		return pattern{}, err
	}
	o, err := parseTerm(fields[2])
	if err != nil {
		return pattern{}, err
	}
	if s.kind == termLiteral || p.kind == termLiteral {
		return pattern{}, fmt.Errorf("literal in subject or predicate position")
	}
	return pattern{s: s, p: p, o: o}, nil
}

// splitTerms splits on whitespace but keeps quoted literals intact.
func splitTerms(clause string) []string {
	var out []string
	var cur strings.Builder
	inQuote := false
	for _, r := range clause {
		switch {
		case r == '"':
			inQuote = !inQuote
			cur.WriteRune(r)
		case (r == ' ' || r == '\t') && !inQuote:
			if cur.Len() > 0 {
				out = append(out, cur.String())
				cur.Reset()
			}
		default:
			cur.WriteRune(r)
		}
	}
	if cur.Len() > 0 {
		out = append(out, cur.String())
	}
	return out
}

func parseTerm(token string) (term, error) {
	switch {
	case strings.HasPrefix(token, "?"):
		if len(token) == 1 {
			return term{}, fmt.Errorf("bare ? is not a variable")
		}
		return term{kind: termVar, name: token}, nil
	case strings.HasPrefix(token, "<") && strings.HasSuffix(token, ">"):
		return term{kind: termIRI, value: rdf.URIValue(token[1 : len(token)-1])}, nil
	case strings.HasPrefix(token, "\"") && strings.HasSuffix(token, "\"") && len(token) >= 2:
		return term{kind: termLiteral, value: rdf.LiteralValue(token[1 : len(token)-1])}, nil
	default:
		if iri, ok := expandPrefixed(token); ok {
			return term{kind: termIRI, value: rdf.URIValue(iri)}, nil
		}
		return term{}, fmt.Errorf("unrecognized term %q", token)
	}
}

func expandPrefixed(token string) (string, bool) {
	i := strings.Index(token, ":")
	if i <= 0 {
		return "", false
	}
	ns, ok := vocabulary.StandardPrefixes()[token[:i]]
	if !ok {
		return "", false
	}
	return ns + token[i+1:], true
}

func parseFilter(clause string) (filter, error) {
	inner := strings.TrimSpace(clause)
	inner = strings.TrimPrefix(strings.TrimPrefix(inner, "FILTER"), "filter")
	inner = strings.TrimSpace(inner)
	if !strings.HasPrefix(inner, "(") || !strings.HasSuffix(inner, ")") {
		return filter{}, fmt.Errorf("malformed filter %q", clause)
	}
	inner = strings.TrimSpace(inner[1 : len(inner)-1])

	if strings.HasPrefix(inner, "isIRI") {
		arg := strings.TrimSpace(strings.TrimSuffix(strings.TrimPrefix(inner, "isIRI("), ")"))
		if !strings.HasPrefix(arg, "?") {
			return filter{}, fmt.Errorf("isIRI wants a variable, got %q", arg)
		}
		return filter{kind: filterIsIRI, a: arg}, nil
	}
	parts := strings.Split(inner, "!=")
	if len(parts) != 2 {
		return filter{}, fmt.Errorf("unsupported filter %q", clause)
	}
	a, b := strings.TrimSpace(parts[0]), strings.TrimSpace(parts[1])
	if !strings.HasPrefix(a, "?") || !strings.HasPrefix(b, "?") {
		return filter{}, fmt.Errorf("!= filter wants two variables")
	}
	return filter{kind: filterNotEqual, a: a, b: b}, nil
}
