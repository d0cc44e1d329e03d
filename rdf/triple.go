// Package rdf provides the canonical in-process representation of triples,
// literals, and entity views, together with serialization format handling.
package rdf

import "fmt"

// Triple is a single RDF statement. The object is exactly one of a URI or a
// literal; Validate enforces the invariant.
type Triple struct {
	Subject   string  `json:"subject"`
	Predicate string  `json:"predicate"`
	Object    Value   `json:"object"`
	Graph     string  `json:"graph,omitempty"`
	Weight    float64 `json:"weight,omitempty"`
}

// Value is the tagged union for a triple object: either a URI reference or a
// literal, never both.
type Value struct {
	URI     string   `json:"uri,omitempty"`
	Literal *Literal `json:"literal,omitempty"`
}

// Literal is a typed, optionally language-tagged scalar object value.
type Literal struct {
	Value    string `json:"value"`
	Datatype string `json:"datatype,omitempty"`
	Lang     string `json:"lang,omitempty"`
}

// URIValue returns a Value holding a URI reference.
func URIValue(uri string) Value {
	return Value{URI: uri}
}

// LiteralValue returns a Value holding a plain string literal.
func LiteralValue(v string) Value {
	return Value{Literal: &Literal{Value: v}}
}

// TypedLiteral returns a Value holding a literal with a datatype IRI.
func TypedLiteral(v, datatype string) Value {
	return Value{Literal: &Literal{Value: v, Datatype: datatype}}
}

// LangLiteral returns a Value holding a language-tagged literal.
func LangLiteral(v, lang string) Value {
	return Value{Literal: &Literal{Value: v, Lang: lang}}
}

// IsURI reports whether the value carries a URI reference.
func (v Value) IsURI() bool { return v.URI != "" }

// IsLiteral reports whether the value carries a literal.
func (v Value) IsLiteral() bool { return v.Literal != nil }

// String returns the bare lexical form: the URI, or the literal value.
func (v Value) String() string {
	if v.Literal != nil {
		return v.Literal.Value
	}
	return v.URI
}

// Validate checks the exactly-one-of invariant on the object value.
func (v Value) Validate() error {
	switch {
	case v.URI != "" && v.Literal != nil:
		return fmt.Errorf("object has both URI %q and literal %q", v.URI, v.Literal.Value)
	case v.URI == "" && v.Literal == nil:
		return fmt.Errorf("object has neither URI nor literal")
	}
	return nil
}

// NewTriple builds a triple with a URI object.
func NewTriple(subject, predicate, objectURI string) Triple {
	return Triple{Subject: subject, Predicate: predicate, Object: URIValue(objectURI)}
}

// NewLiteralTriple builds a triple with a plain literal object.
func NewLiteralTriple(subject, predicate, literal string) Triple {
	return Triple{Subject: subject, Predicate: predicate, Object: LiteralValue(literal)}
}

// Validate checks that the triple is well formed: non-empty subject and
// predicate, and a valid object union.
func (t Triple) Validate() error {
	if t.Subject == "" {
		return fmt.Errorf("triple has empty subject")
	}
	if t.Predicate == "" {
		return fmt.Errorf("triple has empty predicate")
	}
	return t.Object.Validate()
}

// Equal reports whether two triples assert the same statement, ignoring
// graph and weight.
func (t Triple) Equal(other Triple) bool {
	if t.Subject != other.Subject || t.Predicate != other.Predicate {
		return false
	}
	a, b := t.Object, other.Object
	if a.URI != b.URI {
		return false
	}
	if (a.Literal == nil) != (b.Literal == nil) {
		return false
	}
	if a.Literal != nil {
		return *a.Literal == *b.Literal
	}
	return true
}

// Key returns a canonical string identity for set membership and diffing.
func (t Triple) Key() string {
	return t.Subject + "\x00" + t.Predicate + "\x00" + t.Object.Term()
}

// Term renders the value as a SPARQL term: <uri>, "literal",
// "literal"@lang, or "literal"^^<datatype>. %q escapes quotes,
// backslashes and control characters, matching the N-Triples rules.
func (v Value) Term() string {
	if v.Literal != nil {
		lit := fmt.Sprintf("%q", v.Literal.Value)
		if v.Literal.Lang != "" {
			return lit + "@" + v.Literal.Lang
		}
		if v.Literal.Datatype != "" {
			return lit + "^^<" + v.Literal.Datatype + ">"
		}
		return lit
	}
	return "<" + v.URI + ">"
}

// TermString renders the whole triple as three SPARQL terms.
func (t Triple) TermString() string {
	return fmt.Sprintf("<%s> <%s> %s", t.Subject, t.Predicate, t.Object.Term())
}

// TripleSet is a keyed set of triples used for diffing inference results.
type TripleSet map[string]Triple

// NewTripleSet builds a set from a slice.
func NewTripleSet(triples []Triple) TripleSet {
	set := make(TripleSet, len(triples))
	for _, t := range triples {
		set[t.Key()] = t
	}
	return set
}

// Contains reports membership.
func (s TripleSet) Contains(t Triple) bool {
	_, ok := s[t.Key()]
	return ok
}

// Add inserts a triple, reporting whether it was new.
func (s TripleSet) Add(t Triple) bool {
	key := t.Key()
	if _, ok := s[key]; ok {
		return false
	}
	s[key] = t
	return true
}

// Slice returns the members in unspecified order.
func (s TripleSet) Slice() []Triple {
	out := make([]Triple, 0, len(s))
	for _, t := range s {
		out = append(out, t)
	}
	return out
}
