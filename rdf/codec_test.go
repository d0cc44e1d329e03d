package rdf

import (
	"strings"
	"testing"
)

func TestEncodeDecodeRoundTrip(t *testing.T) {
	triples := []Triple{
		NewTriple("http://example.org/Alice", "http://example.org/knows", "http://example.org/Bob"),
		NewLiteralTriple("http://example.org/Alice", "http://example.org/name", "Alice"),
		NewLiteralTriple("http://example.org/Alice", "http://example.org/bio", "line1\nline2\\end"),
		NewLiteralTriple("http://example.org/Alice", "http://example.org/note", "tab\there \"quoted\"\r"),
	}

	data, err := Encode(triples, FormatNTriples)
	if err != nil {
		t.Fatalf("Encode: %v", err)
	}
	got, err := Decode(data, FormatNTriples)
	if err != nil {
		t.Fatalf("Decode: %v", err)
	}
	if len(got) != len(triples) {
		t.Fatalf("round trip returned %d triples, want %d", len(got), len(triples))
	}
	for i, want := range triples {
		if !got[i].Equal(want) {
			t.Errorf("triple %d changed: got %v, want %v", i, got[i].Object, want.Object)
		}
	}
}

func TestEncodeLiteralEscapesOnce(t *testing.T) {
	data, err := Encode([]Triple{
		NewLiteralTriple("http://example.org/s", "http://example.org/p", "a\nb\\c"),
	}, FormatNTriples)
	if err != nil {
		t.Fatalf("Encode: %v", err)
	}
	if !strings.Contains(data, `"a\nb\\c"`) {
		t.Errorf("literal not escaped once: %q", data)
	}
	if strings.Contains(data, `\\n`) {
		t.Errorf("newline escaped twice: %q", data)
	}
}

func TestDecodeBlankNodeCoreference(t *testing.T) {
	data := "_:b0 <http://example.org/p> _:b0 .\n"
	got, err := Decode(data, FormatNTriples)
	if err != nil {
		t.Fatalf("Decode: %v", err)
	}
	if len(got) != 1 {
		t.Fatalf("triples = %d, want 1", len(got))
	}
	if got[0].Subject != got[0].Object.URI {
		t.Errorf("blank node labels diverged: %s vs %s", got[0].Subject, got[0].Object.URI)
	}
	if !strings.HasPrefix(got[0].Subject, "_:") {
		t.Errorf("blank node prefix lost: %s", got[0].Subject)
	}
}
