package reason

import "strings"

// Kind selects a reasoning strategy. Each kind resolves to a built-in rule
// set through the strategy table; KindCustom runs caller rules only.
type Kind string

const (
	KindOWL        Kind = "owl"
	KindOWLMini    Kind = "owl-mini"
	KindOWLMicro   Kind = "owl-micro"
	KindRDFS       Kind = "rdfs"
	KindTransitive Kind = "transitive"
	KindCustom     Kind = "custom"
)

// ParseKind resolves a kind name case-insensitively, accepting underscore
// spellings. Unknown names resolve to KindOWL, the default strategy.
func ParseKind(name string) Kind {
	switch strings.ToLower(strings.ReplaceAll(strings.TrimSpace(name), "_", "-")) {
	case "owl", "":
		return KindOWL
	case "owl-mini":
		return KindOWLMini
	case "owl-micro":
		return KindOWLMicro
	case "rdfs":
		return KindRDFS
	case "transitive":
		return KindTransitive
	case "custom", "rule-based":
		return KindCustom
	default:
		return KindOWL
	}
}

// rulesFor returns the built-in rule set of a kind. KindCustom has no
// built-ins; the caller's rules are the whole program.
func rulesFor(kind Kind) []Rule {
	switch kind {
	case KindCustom:
		return nil
	case KindTransitive:
		return transitiveRules()
	case KindRDFS:
		return rdfsRules()
	case KindOWLMicro:
		return append(rdfsRules(), owlMicroRules()...)
	case KindOWLMini:
		return append(append(rdfsRules(), owlMicroRules()...), owlMiniRules()...)
	default: // KindOWL and anything unexpected
		return append(append(append(rdfsRules(), owlMicroRules()...), owlMiniRules()...), owlFullRules()...)
	}
}

// transitiveRules is subclass and subproperty transitivity only.
func transitiveRules() []Rule {
	return []Rule{
		enabled("subclass-transitivity",
			"?a rdfs:subClassOf ?b . ?b rdfs:subClassOf ?c . FILTER(?a != ?c)",
			"?a rdfs:subClassOf ?c"),
		enabled("subproperty-transitivity",
			"?a rdfs:subPropertyOf ?b . ?b rdfs:subPropertyOf ?c . FILTER(?a != ?c)",
			"?a rdfs:subPropertyOf ?c"),
	}
}

// rdfsRules covers the core RDFS entailments: domain, range, subclass and
// subproperty closure, and type inheritance.
func rdfsRules() []Rule {
	return append(transitiveRules(),
		enabled("domain-entailment",
			"?p rdfs:domain ?c . ?x ?p ?y",
			"?x rdf:type ?c"),
		enabled("range-entailment",
			"?p rdfs:range ?c . ?x ?p ?y . FILTER(isIRI(?y))",
			"?y rdf:type ?c"),
		enabled("subclass-instance",
			"?c rdfs:subClassOf ?d . ?x rdf:type ?c",
			"?x rdf:type ?d"),
		enabled("subproperty-inheritance",
			"?p rdfs:subPropertyOf ?q . ?x ?p ?y",
			"?x ?q ?y"),
	)
}

// owlMicroRules adds the cheap OWL property characteristics.
func owlMicroRules() []Rule {
	return []Rule{
		enabled("symmetric-property",
			"?p rdf:type owl:SymmetricProperty . ?x ?p ?y",
			"?y ?p ?x"),
		enabled("transitive-property",
			"?p rdf:type owl:TransitiveProperty . ?x ?p ?y . ?y ?p ?z . FILTER(?x != ?z)",
			"?x ?p ?z"),
		enabled("inverse-property",
			"?p owl:inverseOf ?q . ?x ?p ?y",
			"?y ?q ?x"),
	}
}

// owlMiniRules adds equivalence reasoning.
func owlMiniRules() []Rule {
	return []Rule{
		enabled("equivalent-class-sub",
			"?a owl:equivalentClass ?b",
			"?a rdfs:subClassOf ?b . ?b rdfs:subClassOf ?a"),
		enabled("same-as-symmetry",
			"?x owl:sameAs ?y . FILTER(?x != ?y)",
			"?y owl:sameAs ?x"),
		enabled("same-as-transitivity",
			"?x owl:sameAs ?y . ?y owl:sameAs ?z . FILTER(?x != ?z)",
			"?x owl:sameAs ?z"),
	}
}

// owlFullRules adds sameAs substitution over asserted statements.
func owlFullRules() []Rule {
	return []Rule{
		enabled("same-as-subject",
			"?x owl:sameAs ?y . ?x ?p ?o . FILTER(?x != ?y)",
			"?y ?p ?o"),
		enabled("same-as-object",
			"?x owl:sameAs ?y . ?s ?p ?x . FILTER(?x != ?y)",
			"?s ?p ?y"),
	}
}

func enabled(name, condition, conclusion string) Rule {
	return Rule{Name: name, Condition: condition, Conclusion: conclusion, Enabled: true}
}
