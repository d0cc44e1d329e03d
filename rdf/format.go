package rdf

import (
	"fmt"
	"strings"
)

// Format identifies an RDF serialization.
type Format string

const (
	// FormatTurtle is the default serialization for export.
	FormatTurtle Format = "turtle"

	// FormatRDFXML is RDF/XML.
	FormatRDFXML Format = "rdfxml"

	// FormatJSONLD is JSON-LD.
	FormatJSONLD Format = "jsonld"

	// FormatNTriples is line-oriented N-Triples.
	FormatNTriples Format = "ntriples"

	// FormatN3 is Notation3; treated as a Turtle superset on both paths.
	FormatN3 Format = "n3"
)

// FormatError reports an unparseable import payload or an unknown
// serialization name on the import path.
type FormatError struct {
	Format string
	Line   int
	Err    error
}

func (e *FormatError) Error() string {
	if e.Line > 0 {
		return fmt.Sprintf("format %s: line %d: %v", e.Format, e.Line, e.Err)
	}
	return fmt.Sprintf("format %s: %v", e.Format, e.Err)
}

func (e *FormatError) Unwrap() error { return e.Err }

// ParseFormat resolves a case-insensitive format name. Unknown names resolve
// to Turtle with ok=false so that export can fall back while import rejects.
func ParseFormat(name string) (Format, bool) {
	switch strings.ToLower(strings.TrimSpace(name)) {
	case "turtle", "ttl":
		return FormatTurtle, true
	case "rdf/xml", "rdfxml", "xml":
		return FormatRDFXML, true
	case "json-ld", "jsonld":
		return FormatJSONLD, true
	case "n-triples", "ntriples", "nt":
		return FormatNTriples, true
	case "n3", "notation3":
		return FormatN3, true
	default:
		return FormatTurtle, false
	}
}

// ContentType returns the MIME type for HTTP exchanges of the format.
func (f Format) ContentType() string {
	switch f {
	case FormatRDFXML:
		return "application/rdf+xml"
	case FormatJSONLD:
		return "application/ld+json"
	case FormatNTriples:
		return "application/n-triples"
	case FormatN3:
		return "text/n3"
	default:
		return "text/turtle"
	}
}
