// Package ontology loads, caches, and indexes ontologies so the validation
// and inference layers can consult schema knowledge without re-querying the
// store.
package ontology

import (
	"sort"
	"strconv"
	"strings"

	"github.com/c360studio/semgraph/rdf"
	"github.com/c360studio/semgraph/vocabulary"
)

// Class is the read-only projection of one named class.
type Class struct {
	URI               string   `json:"uri"`
	LocalName         string   `json:"local_name"`
	Namespace         string   `json:"namespace"`
	Label             string   `json:"label,omitempty"`
	Comment           string   `json:"comment,omitempty"`
	SuperClasses      []string `json:"super_classes,omitempty"`
	SubClasses        []string `json:"sub_classes,omitempty"`
	EquivalentClasses []string `json:"equivalent_classes,omitempty"`
	DisjointClasses   []string `json:"disjoint_classes,omitempty"`
	InstanceCount     int      `json:"instance_count"`
}

// PropertyKind distinguishes object, datatype, and annotation properties.
type PropertyKind string

const (
	KindObject     PropertyKind = "object"
	KindDatatype   PropertyKind = "datatype"
	KindAnnotation PropertyKind = "annotation"
)

// Property is the read-only projection of one named property.
type Property struct {
	URI               string       `json:"uri"`
	LocalName         string       `json:"local_name"`
	Namespace         string       `json:"namespace"`
	Label             string       `json:"label,omitempty"`
	Comment           string       `json:"comment,omitempty"`
	Kind              PropertyKind `json:"kind"`
	Domain            []string     `json:"domain,omitempty"`
	Range             []string     `json:"range,omitempty"`
	Functional        bool         `json:"functional"`
	InverseFunctional bool         `json:"inverse_functional,omitempty"`
	Transitive        bool         `json:"transitive,omitempty"`
	Symmetric         bool         `json:"symmetric,omitempty"`
	Asymmetric        bool         `json:"asymmetric,omitempty"`
	Reflexive         bool         `json:"reflexive,omitempty"`
	Irreflexive       bool         `json:"irreflexive,omitempty"`
}

// Restriction is a cardinality restriction attached to a class through an
// anonymous rdfs:subClassOf node.
type Restriction struct {
	OnClass    string `json:"on_class"`
	OnProperty string `json:"on_property"`
	Min        int    `json:"min"`
	Max        int    `json:"max"` // -1 means unbounded
}

// Model is the indexed form of one loaded ontology document (plus any
// followed imports). It is immutable after construction.
type Model struct {
	uri     string
	size    int
	imports []string

	types      map[string][]string // subject -> rdf:type objects
	labels     map[string]string
	comments   map[string]string
	subClassOf map[string][]string // class -> direct named superclasses
	superOf    map[string][]string // inverse of subClassOf
	equivalent map[string][]string
	disjoint   map[string][]string // symmetric closure of owl:disjointWith
	domains    map[string][]string // property -> rdfs:domain classes
	ranges     map[string][]string // property -> rdfs:range classes/datatypes
	instances  map[string]int      // class -> direct instance count

	classOrder    []string
	propertyOrder []string
	propertyKind  map[string]PropertyKind
	restrictions  []Restriction
	individuals   int
	namespaces    map[string]string // prefix -> namespace
}

// NewModel indexes a triple set as an ontology. The URI identifies the
// document; blank nodes appear as "_:" prefixed pseudo-URIs and are kept out
// of every named projection.
func NewModel(uri string, triples []rdf.Triple) *Model {
	m := &Model{
		uri:          uri,
		size:         len(triples),
		types:        map[string][]string{},
		labels:       map[string]string{},
		comments:     map[string]string{},
		subClassOf:   map[string][]string{},
		superOf:      map[string][]string{},
		equivalent:   map[string][]string{},
		disjoint:     map[string][]string{},
		domains:      map[string][]string{},
		ranges:       map[string][]string{},
		instances:    map[string]int{},
		propertyKind: map[string]PropertyKind{},
	}

	// First pass: raw edge indexes.
	onProperty := map[string]string{}
	minCard := map[string]int{}
	maxCard := map[string]int{}
	exactCard := map[string]int{}
	for _, t := range triples {
		obj := t.Object.URI
		switch t.Predicate {
		case vocabulary.RDFType:
			m.types[t.Subject] = append(m.types[t.Subject], obj)
		case vocabulary.RDFSLabel:
			if t.Object.Literal != nil && m.labels[t.Subject] == "" {
				m.labels[t.Subject] = t.Object.Literal.Value
			}
		case vocabulary.RDFSComment:
			if t.Object.Literal != nil && m.comments[t.Subject] == "" {
				m.comments[t.Subject] = t.Object.Literal.Value
			}
		case vocabulary.RDFSSubClassOf:
			m.subClassOf[t.Subject] = append(m.subClassOf[t.Subject], obj)
			m.superOf[obj] = append(m.superOf[obj], t.Subject)
		case vocabulary.OWLEquivalentClass:
			m.equivalent[t.Subject] = append(m.equivalent[t.Subject], obj)
			m.equivalent[obj] = append(m.equivalent[obj], t.Subject)
		case vocabulary.OWLDisjointWith:
			m.disjoint[t.Subject] = append(m.disjoint[t.Subject], obj)
			m.disjoint[obj] = append(m.disjoint[obj], t.Subject)
		case vocabulary.RDFSDomain:
			m.domains[t.Subject] = append(m.domains[t.Subject], obj)
		case vocabulary.RDFSRange:
			m.ranges[t.Subject] = append(m.ranges[t.Subject], obj)
		case vocabulary.OWLImports:
			m.imports = append(m.imports, obj)
		case vocabulary.OWLOnProperty:
			onProperty[t.Subject] = obj
		case vocabulary.OWLMinCardinality:
			minCard[t.Subject] = literalInt(t.Object)
		case vocabulary.OWLMaxCardinality:
			maxCard[t.Subject] = literalInt(t.Object)
		case vocabulary.OWLCardinality:
			exactCard[t.Subject] = literalInt(t.Object)
		}
	}

	// Second pass: classify named subjects.
	classSet := map[string]bool{}
	for subject, types := range m.types {
		if isBlank(subject) {
			continue
		}
		for _, typ := range types {
			switch typ {
			case vocabulary.OWLClass, vocabulary.RDFSClass:
				classSet[subject] = true
			case vocabulary.OWLObjectProperty:
				m.propertyKind[subject] = KindObject
			case vocabulary.OWLDatatypeProperty:
				m.propertyKind[subject] = KindDatatype
			case vocabulary.OWLAnnotationProperty:
				m.propertyKind[subject] = KindAnnotation
			}
		}
	}
	// Subclass participants are classes even without a declaration triple.
	for sub, supers := range m.subClassOf {
		if !isBlank(sub) {
			classSet[sub] = true
		}
		for _, super := range supers {
			if !isBlank(super) && super != vocabulary.OWLThing {
				classSet[super] = true
			}
		}
	}

	for class := range classSet {
		m.classOrder = append(m.classOrder, class)
	}
	sort.Strings(m.classOrder)
	for property := range m.propertyKind {
		m.propertyOrder = append(m.propertyOrder, property)
	}
	sort.Strings(m.propertyOrder)

	// Individuals: typed subjects whose type is a declared class.
	for subject, types := range m.types {
		if isBlank(subject) {
			continue
		}
		counted := false
		for _, typ := range types {
			if classSet[typ] {
				m.instances[typ]++
				counted = true
			}
		}
		if counted {
			m.individuals++
		}
	}

	// Restrictions hang off classes through anonymous subClassOf nodes.
	for class, supers := range m.subClassOf {
		if isBlank(class) || !classSet[class] {
			continue
		}
		for _, super := range supers {
			if !isBlank(super) || !m.hasType(super, vocabulary.OWLRestriction) {
				continue
			}
			property, ok := onProperty[super]
			if !ok {
				continue
			}
			r := Restriction{OnClass: class, OnProperty: property, Max: -1}
			if n, ok := exactCard[super]; ok {
				r.Min, r.Max = n, n
			} else {
				if n, ok := minCard[super]; ok {
					r.Min = n
				}
				if n, ok := maxCard[super]; ok {
					r.Max = n
				}
			}
			m.restrictions = append(m.restrictions, r)
		}
	}
	sort.Slice(m.restrictions, func(i, j int) bool {
		if m.restrictions[i].OnClass != m.restrictions[j].OnClass {
			return m.restrictions[i].OnClass < m.restrictions[j].OnClass
		}
		return m.restrictions[i].OnProperty < m.restrictions[j].OnProperty
	})

	m.namespaces = prefixTable(triples)
	return m
}

// URI returns the document URI the model was loaded under.
func (m *Model) URI() string { return m.uri }

// Size returns the raw statement count.
func (m *Model) Size() int { return m.size }

// Imports returns the owl:imports targets asserted by the document.
func (m *Model) Imports() []string { return m.imports }

// Namespaces returns the detected prefix table.
func (m *Model) Namespaces() map[string]string { return m.namespaces }

// IndividualCount returns the number of typed individuals.
func (m *Model) IndividualCount() int { return m.individuals }

// ClassCount returns the number of named classes.
func (m *Model) ClassCount() int { return len(m.classOrder) }

// PropertyCount returns the number of declared properties of both kinds.
func (m *Model) PropertyCount() int { return len(m.propertyOrder) }

// ObjectPropertyCount returns the number of owl:ObjectProperty declarations.
func (m *Model) ObjectPropertyCount() int { return m.countKind(KindObject) }

// DatatypePropertyCount returns the number of owl:DatatypeProperty
// declarations.
func (m *Model) DatatypePropertyCount() int { return m.countKind(KindDatatype) }

func (m *Model) countKind(kind PropertyKind) int {
	n := 0
	for _, k := range m.propertyKind {
		if k == kind {
			n++
		}
	}
	return n
}

// Classes projects every named class, sorted by URI.
func (m *Model) Classes() []Class {
	out := make([]Class, 0, len(m.classOrder))
	for _, uri := range m.classOrder {
		out = append(out, Class{
			URI:               uri,
			LocalName:         vocabulary.LocalName(uri),
			Namespace:         vocabulary.NamespaceOf(uri),
			Label:             m.labelOf(uri),
			Comment:           m.comments[uri],
			SuperClasses:      named(m.subClassOf[uri]),
			SubClasses:        named(m.superOf[uri]),
			EquivalentClasses: named(m.equivalent[uri]),
			DisjointClasses:   named(m.disjoint[uri]),
			InstanceCount:     m.instances[uri],
		})
	}
	return out
}

// Properties projects every declared property, object properties first.
func (m *Model) Properties() []Property {
	var objects, datatypes []Property
	for _, uri := range m.propertyOrder {
		p := Property{
			URI:               uri,
			LocalName:         vocabulary.LocalName(uri),
			Namespace:         vocabulary.NamespaceOf(uri),
			Label:             m.labelOf(uri),
			Comment:           m.comments[uri],
			Kind:              m.propertyKind[uri],
			Domain:            named(m.domains[uri]),
			Range:             named(m.ranges[uri]),
			Functional:        m.hasType(uri, vocabulary.OWLFunctionalProperty),
			InverseFunctional: m.hasType(uri, vocabulary.OWLInverseFunctional),
			Transitive:        m.hasType(uri, vocabulary.OWLTransitiveProperty),
			Symmetric:         m.hasType(uri, vocabulary.OWLSymmetricProperty),
			Asymmetric:        m.hasType(uri, vocabulary.OWLAsymmetricProperty),
			Reflexive:         m.hasType(uri, vocabulary.OWLReflexiveProperty),
			Irreflexive:       m.hasType(uri, vocabulary.OWLIrreflexiveProperty),
		}
		if p.Kind == KindObject {
			objects = append(objects, p)
		} else {
			datatypes = append(datatypes, p)
		}
	}
	return append(objects, datatypes...)
}

// Property looks up one declared property by URI.
func (m *Model) Property(uri string) (Property, bool) {
	if _, ok := m.propertyKind[uri]; !ok {
		return Property{}, false
	}
	for _, p := range m.Properties() {
		if p.URI == uri {
			return p, true
		}
	}
	return Property{}, false
}

// HasClass reports whether the URI names a class in this model.
func (m *Model) HasClass(uri string) bool {
	for _, c := range m.classOrder {
		if c == uri {
			return true
		}
	}
	return false
}

// Ancestors returns the transitive rdfs:subClassOf closure of a class,
// excluding the class itself. Cycles terminate through the visited set.
func (m *Model) Ancestors(uri string) []string {
	visited := map[string]bool{uri: true}
	var out []string
	queue := append([]string(nil), m.subClassOf[uri]...)
	for len(queue) > 0 {
		next := queue[0]
		queue = queue[1:]
		if visited[next] || isBlank(next) {
			continue
		}
		visited[next] = true
		out = append(out, next)
		queue = append(queue, m.subClassOf[next]...)
	}
	sort.Strings(out)
	return out
}

// AreDisjoint reports whether two classes are declared disjoint, directly
// or through an ancestor of either side.
func (m *Model) AreDisjoint(a, b string) bool {
	left := append(m.Ancestors(a), a)
	right := append(m.Ancestors(b), b)
	for _, la := range left {
		for _, d := range m.disjoint[la] {
			for _, rb := range right {
				if d == rb {
					return true
				}
			}
		}
	}
	return false
}

// Restrictions returns the indexed cardinality restrictions.
func (m *Model) Restrictions() []Restriction {
	return m.restrictions
}

// SubClassCycles finds classes that can reach themselves through one or
// more rdfs:subClassOf hops.
func (m *Model) SubClassCycles() []string {
	var cyclic []string
	for _, class := range m.classOrder {
		visited := map[string]bool{}
		queue := append([]string(nil), m.subClassOf[class]...)
		for len(queue) > 0 {
			next := queue[0]
			queue = queue[1:]
			if next == class {
				cyclic = append(cyclic, class)
				break
			}
			if visited[next] || isBlank(next) {
				continue
			}
			visited[next] = true
			queue = append(queue, m.subClassOf[next]...)
		}
	}
	sort.Strings(cyclic)
	return dedupe(cyclic)
}

func (m *Model) labelOf(uri string) string {
	if label, ok := m.labels[uri]; ok {
		return label
	}
	return vocabulary.LocalName(uri)
}

func (m *Model) hasType(subject, typ string) bool {
	for _, t := range m.types[subject] {
		if t == typ {
			return true
		}
	}
	return false
}

func isBlank(uri string) bool {
	return strings.HasPrefix(uri, "_:")
}

func named(uris []string) []string {
	var out []string
	for _, u := range uris {
		if !isBlank(u) {
			out = append(out, u)
		}
	}
	sort.Strings(out)
	return dedupe(out)
}

func dedupe(sorted []string) []string {
	var out []string
	for i, s := range sorted {
		if i == 0 || s != sorted[i-1] {
			out = append(out, s)
		}
	}
	return out
}

func literalInt(v rdf.Value) int {
	if v.Literal == nil {
		return 0
	}
	n, err := strconv.Atoi(v.Literal.Value)
	if err != nil {
		return 0
	}
	return n
}

// prefixTable assigns prefixes to the namespaces present in the triples.
// Well-known namespaces keep their conventional prefixes; the rest are
// numbered in sorted order.
func prefixTable(triples []rdf.Triple) map[string]string {
	standard := map[string]string{}
	for prefix, ns := range vocabulary.StandardPrefixes() {
		standard[ns] = prefix
	}

	seen := map[string]bool{}
	var namespaces []string
	note := func(iri string) {
		if iri == "" || isBlank(iri) {
			return
		}
		ns := vocabulary.NamespaceOf(iri)
		if ns != "" && !seen[ns] {
			seen[ns] = true
			namespaces = append(namespaces, ns)
		}
	}
	for _, t := range triples {
		note(t.Subject)
		note(t.Predicate)
		note(t.Object.URI)
	}
	sort.Strings(namespaces)

	table := make(map[string]string, len(namespaces))
	n := 1
	for _, ns := range namespaces {
		if prefix, ok := standard[ns]; ok {
			table[prefix] = ns
			continue
		}
		table["ns"+strconv.Itoa(n)] = ns
		n++
	}
	return table
}
