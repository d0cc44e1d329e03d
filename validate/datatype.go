package validate

import (
	"strconv"
	"strings"
	"time"

	"github.com/c360studio/semgraph/vocabulary"
)

const rdfType = vocabulary.RDFType

func isXSD(uri string) bool {
	return strings.HasPrefix(uri, vocabulary.XSDNamespace)
}

// literalFitsDatatype reports whether a lexical value is valid for an XSD
// datatype. Unknown datatypes accept anything.
func literalFitsDatatype(value, datatype string) bool {
	switch datatype {
	case vocabulary.XSDInteger, vocabulary.XSDInt, vocabulary.XSDLong:
		_, err := strconv.ParseInt(value, 10, 64)
		return err == nil
	case vocabulary.XSDDecimal, vocabulary.XSDDouble, vocabulary.XSDFloat:
		_, err := strconv.ParseFloat(value, 64)
		return err == nil
	case vocabulary.XSDBoolean:
		return value == "true" || value == "false" || value == "1" || value == "0"
	case vocabulary.XSDDate:
		_, err := time.Parse("2006-01-02", value)
		return err == nil
	case vocabulary.XSDDateTime:
		_, err := time.Parse(time.RFC3339, value)
		if err != nil {
			_, err = time.Parse("2006-01-02T15:04:05", value)
		}
		return err == nil
	default:
		return true
	}
}
