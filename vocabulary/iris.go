// Package vocabulary provides the W3C IRI constants and namespace helpers
// used across the knowledge-graph engine.
package vocabulary

import "strings"

// Core namespace bases.
const (
	RDFNamespace  = "http://www.w3.org/1999/02/22-rdf-syntax-ns#"
	RDFSNamespace = "http://www.w3.org/2000/01/rdf-schema#"
	OWLNamespace  = "http://www.w3.org/2002/07/owl#"
	XSDNamespace  = "http://www.w3.org/2001/XMLSchema#"
)

// RDF vocabulary.
const (
	RDFType = RDFNamespace + "type"
)

// RDFS vocabulary.
const (
	RDFSLabel       = RDFSNamespace + "label"
	RDFSComment     = RDFSNamespace + "comment"
	RDFSSubClassOf  = RDFSNamespace + "subClassOf"
	RDFSSubProperty = RDFSNamespace + "subPropertyOf"
	RDFSDomain      = RDFSNamespace + "domain"
	RDFSRange       = RDFSNamespace + "range"
	RDFSClass       = RDFSNamespace + "Class"
	RDFSResource    = RDFSNamespace + "Resource"
	RDFSLiteral     = RDFSNamespace + "Literal"
)

// OWL vocabulary.
const (
	OWLClass                   = OWLNamespace + "Class"
	OWLOntology                = OWLNamespace + "Ontology"
	OWLImports                 = OWLNamespace + "imports"
	OWLObjectProperty          = OWLNamespace + "ObjectProperty"
	OWLDatatypeProperty        = OWLNamespace + "DatatypeProperty"
	OWLAnnotationProperty      = OWLNamespace + "AnnotationProperty"
	OWLNamedIndividual         = OWLNamespace + "NamedIndividual"
	OWLEquivalentClass         = OWLNamespace + "equivalentClass"
	OWLDisjointWith            = OWLNamespace + "disjointWith"
	OWLInverseOf               = OWLNamespace + "inverseOf"
	OWLSameAs                  = OWLNamespace + "sameAs"
	OWLDifferentFrom           = OWLNamespace + "differentFrom"
	OWLFunctionalProperty      = OWLNamespace + "FunctionalProperty"
	OWLInverseFunctional       = OWLNamespace + "InverseFunctionalProperty"
	OWLTransitiveProperty      = OWLNamespace + "TransitiveProperty"
	OWLSymmetricProperty       = OWLNamespace + "SymmetricProperty"
	OWLAsymmetricProperty      = OWLNamespace + "AsymmetricProperty"
	OWLReflexiveProperty       = OWLNamespace + "ReflexiveProperty"
	OWLIrreflexiveProperty     = OWLNamespace + "IrreflexiveProperty"
	OWLRestriction             = OWLNamespace + "Restriction"
	OWLOnProperty              = OWLNamespace + "onProperty"
	OWLCardinality             = OWLNamespace + "cardinality"
	OWLMinCardinality          = OWLNamespace + "minCardinality"
	OWLMaxCardinality          = OWLNamespace + "maxCardinality"
	OWLVersionInfo             = OWLNamespace + "versionInfo"
	OWLPropertyDisjointWith    = OWLNamespace + "propertyDisjointWith"
	OWLAllDisjointClasses      = OWLNamespace + "AllDisjointClasses"
	OWLNegativePropertyAssert  = OWLNamespace + "NegativePropertyAssertion"
	OWLComplementOf            = OWLNamespace + "complementOf"
	OWLNothing                 = OWLNamespace + "Nothing"
	OWLThing                   = OWLNamespace + "Thing"
)

// XSD datatypes used by literal handling and range validation.
const (
	XSDString   = XSDNamespace + "string"
	XSDBoolean  = XSDNamespace + "boolean"
	XSDInteger  = XSDNamespace + "integer"
	XSDInt      = XSDNamespace + "int"
	XSDLong     = XSDNamespace + "long"
	XSDDecimal  = XSDNamespace + "decimal"
	XSDDouble   = XSDNamespace + "double"
	XSDFloat    = XSDNamespace + "float"
	XSDDate     = XSDNamespace + "date"
	XSDDateTime = XSDNamespace + "dateTime"
	XSDAnyURI   = XSDNamespace + "anyURI"
)

// StandardPrefixes returns the conventional prefix table for serialization
// and namespace detection.
func StandardPrefixes() map[string]string {
	return map[string]string{
		"rdf":  RDFNamespace,
		"rdfs": RDFSNamespace,
		"owl":  OWLNamespace,
		"xsd":  XSDNamespace,
	}
}

// LocalName returns the fragment or final path segment of an IRI.
// Returns the input unchanged when no separator is present.
func LocalName(iri string) string {
	if i := strings.LastIndex(iri, "#"); i >= 0 && i < len(iri)-1 {
		return iri[i+1:]
	}
	if i := strings.LastIndex(iri, "/"); i >= 0 && i < len(iri)-1 {
		return iri[i+1:]
	}
	return iri
}

// NamespaceOf returns the namespace portion of an IRI, up to and including
// the fragment or final path separator.
func NamespaceOf(iri string) string {
	if i := strings.LastIndex(iri, "#"); i >= 0 {
		return iri[:i+1]
	}
	if i := strings.LastIndex(iri, "/"); i >= 0 {
		return iri[:i+1]
	}
	return ""
}

// IsXSDNumeric reports whether the datatype IRI is one of the XSD numeric
// types relevant to range checking.
func IsXSDNumeric(datatype string) bool {
	switch datatype {
	case XSDInteger, XSDInt, XSDLong, XSDDecimal, XSDDouble, XSDFloat:
		return true
	}
	return false
}
