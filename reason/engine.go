package reason

import (
	"github.com/c360studio/semgraph/rdf"
)

// maxRounds caps the fixpoint loop; rule sets here monotonically add
// triples, so the cap only matters for pathological custom rules.
const maxRounds = 50

// derivation records one derived triple with its provenance.
type derivation struct {
	triple   rdf.Triple
	rule     string
	premises []rdf.Triple
}

// engine holds the working model during one inference run. Triples keep
// insertion order so rule firing is deterministic for a given input order.
type engine struct {
	triples     []rdf.Triple
	set         rdf.TripleSet
	byPredicate map[string][]int
}

func newEngine(base []rdf.Triple) *engine {
	e := &engine{
		set:         rdf.NewTripleSet(nil),
		byPredicate: map[string][]int{},
	}
	for _, t := range base {
		e.add(t)
	}
	return e
}

func (e *engine) add(t rdf.Triple) bool {
	if !e.set.Add(t) {
		return false
	}
	e.byPredicate[t.Predicate] = append(e.byPredicate[t.Predicate], len(e.triples))
	e.triples = append(e.triples, t)
	return true
}

func (e *engine) size() int { return len(e.triples) }

// run applies the rules to fixpoint and returns the derivations in the
// order they were produced.
func (e *engine) run(rules []compiledRule) []derivation {
	var derived []derivation
	for round := 0; round < maxRounds; round++ {
		added := 0
		for _, r := range rules {
			for _, sol := range e.solve(r) {
				for _, tmpl := range r.then {
					t, ok := instantiate(tmpl, sol.binding)
					if !ok {
						continue
					}
					if e.add(t) {
						derived = append(derived, derivation{triple: t, rule: r.name, premises: sol.premises})
						added++
					}
				}
			}
		}
		if added == 0 {
			break
		}
	}
	return derived
}

type binding map[string]rdf.Value

type solution struct {
	binding  binding
	premises []rdf.Triple
}

// solve enumerates every condition match against the current model. The
// model is snapshotted by length so triples added while firing this rule
// are only seen in the next round.
func (e *engine) solve(r compiledRule) []solution {
	limit := len(e.triples)
	var out []solution
	var walk func(i int, b binding, premises []rdf.Triple)
	walk = func(i int, b binding, premises []rdf.Triple) {
		if i == len(r.when) {
			if !passesFilters(r.filters, b) {
				return
			}
			out = append(out, solution{
				binding:  cloneBinding(b),
				premises: append([]rdf.Triple(nil), premises...),
			})
			return
		}
		p := r.when[i]
		for _, idx := range e.candidates(p, limit) {
			t := e.triples[idx]
			next, ok := unify(t, p, b)
			if !ok {
				continue
			}
			walk(i+1, next, append(premises, t))
		}
	}
	walk(0, binding{}, nil)
	return out
}

// candidates narrows the scan by predicate when the pattern's predicate is
// ground; variable predicates scan the whole model.
func (e *engine) candidates(p pattern, limit int) []int {
	if p.p.kind == termIRI {
		var out []int
		for _, idx := range e.byPredicate[p.p.value.URI] {
			if idx < limit {
				out = append(out, idx)
			}
		}
		return out
	}
	out := make([]int, limit)
	for i := range out {
		out[i] = i
	}
	return out
}

func unify(t rdf.Triple, p pattern, b binding) (binding, bool) {
	next := b
	bind := func(tm term, actual rdf.Value) bool {
		switch tm.kind {
		case termIRI, termLiteral:
			return valueEqual(tm.value, actual)
		case termVar:
			if bound, ok := next[tm.name]; ok {
				return valueEqual(bound, actual)
			}
			next = cloneBinding(next)
			next[tm.name] = actual
			return true
		}
		return false
	}
	if !bind(p.s, rdf.URIValue(t.Subject)) {
		return nil, false
	}
	if !bind(p.p, rdf.URIValue(t.Predicate)) {
		return nil, false
	}
	if !bind(p.o, t.Object) {
		return nil, false
	}
	return next, true
}

func passesFilters(filters []filter, b binding) bool {
	for _, f := range filters {
		switch f.kind {
		case filterNotEqual:
			if valueEqual(b[f.a], b[f.b]) {
				return false
			}
		case filterIsIRI:
			if b[f.a].URI == "" {
				return false
			}
		}
	}
	return true
}

func instantiate(tmpl pattern, b binding) (rdf.Triple, bool) {
	resolve := func(tm term) (rdf.Value, bool) {
		if tm.kind == termVar {
			v, ok := b[tm.name]
			return v, ok
		}
		return tm.value, true
	}
	s, ok := resolve(tmpl.s)
	if !ok || s.URI == "" {
		return rdf.Triple{}, false
	}
	p, ok := resolve(tmpl.p)
	if !ok || p.URI == "" {
		return rdf.Triple{}, false
	}
	o, ok := resolve(tmpl.o)
	if !ok {
		return rdf.Triple{}, false
	}
	return rdf.Triple{Subject: s.URI, Predicate: p.URI, Object: o}, true
}

func valueEqual(a, b rdf.Value) bool {
	if a.URI != "" || b.URI != "" {
		return a.URI == b.URI
	}
	if a.Literal == nil || b.Literal == nil {
		return a.Literal == b.Literal
	}
	return a.Literal.Value == b.Literal.Value &&
		a.Literal.Datatype == b.Literal.Datatype &&
		a.Literal.Lang == b.Literal.Lang
}

func cloneBinding(b binding) binding {
	out := make(binding, len(b)+1)
	for k, v := range b {
		out[k] = v
	}
	return out
}
