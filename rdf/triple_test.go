package rdf

import (
	"encoding/json"
	"strings"
	"testing"

	"github.com/c360studio/semgraph/vocabulary"
)

func TestValueValidate(t *testing.T) {
	tests := []struct {
		name    string
		value   Value
		wantErr bool
	}{
		{"uri only", URIValue("http://example.org/Bob"), false},
		{"literal only", LiteralValue("thirty"), false},
		{"typed literal", TypedLiteral("30", vocabulary.XSDInteger), false},
		{"both set", Value{URI: "http://example.org/Bob", Literal: &Literal{Value: "x"}}, true},
		{"neither set", Value{}, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := tt.value.Validate()
			if (err != nil) != tt.wantErr {
				t.Errorf("Validate() error = %v, wantErr %v", err, tt.wantErr)
			}
		})
	}
}

func TestTripleValidate(t *testing.T) {
	good := NewTriple("http://example.org/Alice", "http://example.org/knows", "http://example.org/Bob")
	if err := good.Validate(); err != nil {
		t.Fatalf("valid triple rejected: %v", err)
	}

	if err := (Triple{Predicate: "p", Object: URIValue("o")}).Validate(); err == nil {
		t.Error("empty subject accepted")
	}
	if err := (Triple{Subject: "s", Object: URIValue("o")}).Validate(); err == nil {
		t.Error("empty predicate accepted")
	}
}

func TestValueTerm(t *testing.T) {
	tests := []struct {
		name  string
		value Value
		want  string
	}{
		{"uri", URIValue("http://example.org/Bob"), "<http://example.org/Bob>"},
		{"plain literal", LiteralValue("thirty"), `"thirty"`},
		{"lang literal", LangLiteral("hello", "en"), `"hello"@en`},
		{"typed literal", TypedLiteral("30", vocabulary.XSDInteger), `"30"^^<` + vocabulary.XSDInteger + `>`},
		{"escaped", LiteralValue("line\nbreak"), `"line\nbreak"`},
		{"backslash", LiteralValue(`a\b`), `"a\\b"`},
		{"quote", LiteralValue(`say "hi"`), `"say \"hi\""`},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := tt.value.Term(); got != tt.want {
				t.Errorf("Term() = %s, want %s", got, tt.want)
			}
		})
	}
}

func TestTripleEqualAndKey(t *testing.T) {
	a := NewLiteralTriple("s", "p", "v")
	b := NewLiteralTriple("s", "p", "v")
	c := NewTriple("s", "p", "v")

	if !a.Equal(b) {
		t.Error("identical literal triples not equal")
	}
	if a.Equal(c) {
		t.Error("literal and URI objects compared equal")
	}
	if a.Key() == c.Key() {
		t.Error("keys collide across object kinds")
	}

	b.Graph = "http://example.org/g"
	if !a.Equal(b) {
		t.Error("graph should not affect statement equality")
	}
}

func TestTripleSetDiff(t *testing.T) {
	base := NewTripleSet([]Triple{
		NewTriple("a", "p", "b"),
		NewTriple("b", "p", "c"),
	})

	derived := NewTriple("a", "p", "c")
	if base.Contains(derived) {
		t.Error("set contains triple that was never added")
	}
	if !base.Add(derived) {
		t.Error("Add of new triple reported existing")
	}
	if base.Add(derived) {
		t.Error("Add of existing triple reported new")
	}
	if len(base.Slice()) != 3 {
		t.Errorf("set size = %d, want 3", len(base.Slice()))
	}
}

func TestEntityView(t *testing.T) {
	e := NewEntity("http://example.org/Alice")
	e.Absorb(NewTriple("http://example.org/Alice", vocabulary.RDFType, "http://example.org/Person"))
	e.Absorb(NewTriple("http://example.org/Alice", "http://example.org/knows", "http://example.org/Bob"))
	e.Absorb(NewTriple("http://example.org/Alice", "http://example.org/knows", "http://example.org/Carol"))
	e.Absorb(NewLiteralTriple("http://example.org/Alice", "http://example.org/name", "Alice"))

	if len(e.Types) != 1 || e.Types[0] != "http://example.org/Person" {
		t.Errorf("types = %v", e.Types)
	}

	preds := e.Predicates()
	want := []string{vocabulary.RDFType, "http://example.org/knows", "http://example.org/name"}
	if len(preds) != len(want) {
		t.Fatalf("predicates = %v", preds)
	}
	for i := range want {
		if preds[i] != want[i] {
			t.Errorf("predicate[%d] = %s, want %s", i, preds[i], want[i])
		}
	}

	knows := e.Values("http://example.org/knows")
	if len(knows) != 2 || knows[0].URI != "http://example.org/Bob" {
		t.Errorf("knows = %v", knows)
	}
	if e.Values("http://example.org/missing") != nil {
		t.Error("missing predicate should yield nil")
	}
	if got := len(e.Triples()); got != 4 {
		t.Errorf("flattened triples = %d, want 4", got)
	}
}

func TestEntityMarshalJSON(t *testing.T) {
	e := NewEntity("http://example.org/Alice")
	e.Absorb(NewTriple("http://example.org/Alice", vocabulary.RDFType, "http://example.org/Person"))
	e.Absorb(NewLiteralTriple("http://example.org/Alice", "http://example.org/name", "Alice"))
	e.Absorb(NewTriple("http://example.org/Alice", "http://example.org/knows", "http://example.org/Bob"))

	data, err := json.Marshal(e)
	if err != nil {
		t.Fatalf("Marshal: %v", err)
	}

	var decoded struct {
		URI        string           `json:"uri"`
		Types      []string         `json:"types"`
		Properties []EntityProperty `json:"properties"`
	}
	if err := json.Unmarshal(data, &decoded); err != nil {
		t.Fatalf("Unmarshal: %v", err)
	}
	if decoded.URI != "http://example.org/Alice" {
		t.Errorf("uri = %s", decoded.URI)
	}
	if len(decoded.Properties) != 3 {
		t.Fatalf("properties = %d, want 3 (property bag must survive marshalling)", len(decoded.Properties))
	}
	if decoded.Properties[1].Predicate != "http://example.org/name" {
		t.Errorf("predicate order lost: %v", decoded.Properties)
	}
	if decoded.Properties[1].Values[0].Literal.Value != "Alice" {
		t.Errorf("values = %+v", decoded.Properties[1].Values)
	}
}

func TestWriteNTriples(t *testing.T) {
	out := writeNTriples([]Triple{
		NewTriple("http://example.org/Alice", "http://example.org/knows", "http://example.org/Bob"),
		NewLiteralTriple("http://example.org/Alice", "http://example.org/name", "Alice"),
	})

	lines := strings.Split(strings.TrimSpace(out), "\n")
	if len(lines) != 2 {
		t.Fatalf("lines = %d, want 2", len(lines))
	}
	if lines[0] != "<http://example.org/Alice> <http://example.org/knows> <http://example.org/Bob> ." {
		t.Errorf("line 0 = %s", lines[0])
	}
	if lines[1] != `<http://example.org/Alice> <http://example.org/name> "Alice" .` {
		t.Errorf("line 1 = %s", lines[1])
	}
}

func TestWriteTurtle(t *testing.T) {
	out := writeTurtle([]Triple{
		NewTriple("http://example.org/Alice", vocabulary.RDFType, "http://example.org/Person"),
		NewLiteralTriple("http://example.org/Alice", "http://example.org/name", "Alice"),
	})

	if !strings.Contains(out, "@prefix rdf:") {
		t.Error("missing prefix block")
	}
	if !strings.Contains(out, "    a <http://example.org/Person>") {
		t.Error("rdf:type not folded to 'a'")
	}
	if !strings.Contains(out, `"Alice" .`) {
		t.Error("literal object missing")
	}
}

func TestDetectNamespaces(t *testing.T) {
	ns := DetectNamespaces([]Triple{
		NewTriple("http://example.org/people/Alice", vocabulary.RDFType, "http://example.org/onto#Person"),
	})

	want := map[string]bool{
		"http://example.org/people/": true,
		vocabulary.RDFNamespace:      true,
		"http://example.org/onto#":   true,
	}
	if len(ns) != len(want) {
		t.Fatalf("namespaces = %v", ns)
	}
	for _, n := range ns {
		if !want[n] {
			t.Errorf("unexpected namespace %s", n)
		}
	}
}
