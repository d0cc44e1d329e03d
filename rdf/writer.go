package rdf

import (
	"fmt"
	"sort"
	"strings"

	"github.com/c360studio/semgraph/vocabulary"
)

// writeTurtle serializes triples as Turtle, grouped by subject with the
// standard prefix block. Subjects and predicates keep insertion order;
// the prefix block is sorted for stable output.
func writeTurtle(triples []Triple) string {
	var sb strings.Builder

	prefixes := vocabulary.StandardPrefixes()
	names := make([]string, 0, len(prefixes))
	for name := range prefixes {
		names = append(names, name)
	}
	sort.Strings(names)
	for _, name := range names {
		sb.WriteString(fmt.Sprintf("@prefix %s: <%s> .\n", name, prefixes[name]))
	}
	if len(triples) > 0 {
		sb.WriteString("\n")
	}

	var subjects []string
	bySubject := make(map[string][]Triple)
	for _, t := range triples {
		if _, seen := bySubject[t.Subject]; !seen {
			subjects = append(subjects, t.Subject)
		}
		bySubject[t.Subject] = append(bySubject[t.Subject], t)
	}

	for _, subject := range subjects {
		group := bySubject[subject]
		sb.WriteString(fmt.Sprintf("%s\n", turtleRef(subject)))
		for i, t := range group {
			if t.Predicate == vocabulary.RDFType && t.Object.IsURI() {
				sb.WriteString(fmt.Sprintf("    a %s", turtleRef(t.Object.URI)))
			} else {
				sb.WriteString(fmt.Sprintf("    %s %s", turtleRef(t.Predicate), turtleObject(t.Object)))
			}
			if i < len(group)-1 {
				sb.WriteString(" ;\n")
			} else {
				sb.WriteString(" .\n")
			}
		}
		sb.WriteString("\n")
	}

	return sb.String()
}

// writeNTriples serializes one statement per line.
func writeNTriples(triples []Triple) string {
	var sb strings.Builder
	for _, t := range triples {
		sb.WriteString(fmt.Sprintf("%s .\n", t.TermString()))
	}
	return sb.String()
}

// turtleRef writes a URI reference, folding known namespaces to prefixed
// names and keeping blank node labels verbatim.
func turtleRef(uri string) string {
	if strings.HasPrefix(uri, "_:") {
		return uri
	}
	for name, ns := range vocabulary.StandardPrefixes() {
		if local, ok := strings.CutPrefix(uri, ns); ok && isPrefixLocal(local) {
			return name + ":" + local
		}
	}
	return "<" + uri + ">"
}

func turtleObject(v Value) string {
	if v.IsURI() {
		return turtleRef(v.URI)
	}
	lit := fmt.Sprintf("%q", v.Literal.Value)
	if v.Literal.Lang != "" {
		return lit + "@" + v.Literal.Lang
	}
	if v.Literal.Datatype != "" {
		return lit + "^^" + turtleRef(v.Literal.Datatype)
	}
	return lit
}

// isPrefixLocal reports whether a local name is safe to emit as a prefixed
// name rather than a full IRI reference.
func isPrefixLocal(local string) bool {
	if local == "" {
		return false
	}
	return !strings.ContainsAny(local, "/#:")
}
