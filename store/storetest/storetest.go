// Package storetest provides a scriptable store.Client fake for engine
// package tests.
package storetest

import (
	"context"
	"strconv"
	"sync"
	"time"

	"github.com/c360studio/semgraph/rdf"
	"github.com/c360studio/semgraph/store"
)

// Fake implements store.Client with per-call function hooks. Unset hooks
// return empty results. All calls are recorded for assertions.
type Fake struct {
	mu sync.Mutex

	SelectFn    func(ctx context.Context, query string) (*store.SelectResult, error)
	AskFn       func(ctx context.Context, query string) (*store.AskResult, error)
	ConstructFn func(ctx context.Context, query string) (*store.ConstructResult, error)
	UpdateFn    func(ctx context.Context, update string) (time.Duration, error)
	LoadFn      func(ctx context.Context, triples []rdf.Triple, graphURI string) (time.Duration, error)

	Selects    []string
	Asks       []string
	Constructs []string
	Updates    []string
	Loaded     []LoadCall
}

// LoadCall records one Load invocation.
type LoadCall struct {
	Triples []rdf.Triple
	Graph   string
}

// Select implements store.Client.
func (f *Fake) Select(ctx context.Context, query string) (*store.SelectResult, error) {
	f.mu.Lock()
	f.Selects = append(f.Selects, query)
	f.mu.Unlock()
	if f.SelectFn != nil {
		return f.SelectFn(ctx, query)
	}
	return &store.SelectResult{Elapsed: time.Microsecond}, nil
}

// Ask implements store.Client.
func (f *Fake) Ask(ctx context.Context, query string) (*store.AskResult, error) {
	f.mu.Lock()
	f.Asks = append(f.Asks, query)
	f.mu.Unlock()
	if f.AskFn != nil {
		return f.AskFn(ctx, query)
	}
	return &store.AskResult{Elapsed: time.Microsecond}, nil
}

// Construct implements store.Client.
func (f *Fake) Construct(ctx context.Context, query string) (*store.ConstructResult, error) {
	f.mu.Lock()
	f.Constructs = append(f.Constructs, query)
	f.mu.Unlock()
	if f.ConstructFn != nil {
		return f.ConstructFn(ctx, query)
	}
	return &store.ConstructResult{Elapsed: time.Microsecond}, nil
}

// Update implements store.Client.
func (f *Fake) Update(ctx context.Context, update string) (time.Duration, error) {
	f.mu.Lock()
	f.Updates = append(f.Updates, update)
	f.mu.Unlock()
	if f.UpdateFn != nil {
		return f.UpdateFn(ctx, update)
	}
	return time.Microsecond, nil
}

// Load implements store.Client.
func (f *Fake) Load(ctx context.Context, triples []rdf.Triple, graphURI string) (time.Duration, error) {
	f.mu.Lock()
	f.Loaded = append(f.Loaded, LoadCall{Triples: triples, Graph: graphURI})
	f.mu.Unlock()
	if f.LoadFn != nil {
		return f.LoadFn(ctx, triples, graphURI)
	}
	return time.Microsecond, nil
}

// Close implements store.Client.
func (f *Fake) Close() error { return nil }

// AllLoaded flattens every loaded batch into one slice.
func (f *Fake) AllLoaded() []rdf.Triple {
	f.mu.Lock()
	defer f.mu.Unlock()
	var out []rdf.Triple
	for _, call := range f.Loaded {
		out = append(out, call.Triples...)
	}
	return out
}

// Rows builds a SelectResult from variable names and term values, a
// convenience for scripting SelectFn.
func Rows(vars []string, rows ...[]rdf.Value) *store.SelectResult {
	result := &store.SelectResult{Variables: vars, Elapsed: time.Microsecond}
	for _, row := range rows {
		binding := make(store.Binding, len(vars))
		for i, name := range vars {
			if i < len(row) {
				binding[name] = row[i]
			}
		}
		result.Rows = append(result.Rows, binding)
	}
	return result
}

// CountRow builds the single-row result of a COUNT aggregate.
func CountRow(n int64) *store.SelectResult {
	return Rows([]string{"count"}, []rdf.Value{rdf.TypedLiteral(
		strconv.FormatInt(n, 10), "http://www.w3.org/2001/XMLSchema#integer")})
}
