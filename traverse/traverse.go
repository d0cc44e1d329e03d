package traverse

import (
	"context"
	"fmt"
	"log/slog"
	"sort"
	"time"

	"golang.org/x/sync/errgroup"
)

const defaultFanout = 8

// Hop is one traversed edge in a path. Weight is 1 for every hop until
// weighted edges are supplied.
type Hop struct {
	Predicate string  `json:"predicate"`
	Weight    float64 `json:"weight"`
}

// PathResult is the outcome of FindPath. Path holds the node sequence from
// origin to target inclusive; Hops holds the edge per step, so
// len(Hops) == Length == len(Path)-1 when Found.
type PathResult struct {
	Found         bool          `json:"found"`
	Path          []string      `json:"path,omitempty"`
	Hops          []Hop         `json:"hops,omitempty"`
	Length        int           `json:"length"`
	NodesExplored int           `json:"nodes_explored"`
	Elapsed       time.Duration `json:"elapsed"`
}

// Neighborhood is the outcome of FindConnectedEntities.
type Neighborhood struct {
	Entities      []string      `json:"entities"`
	NodesExplored int           `json:"nodes_explored"`
	Elapsed       time.Duration `json:"elapsed"`
}

// Traverser runs BFS algorithms over an Expander, issuing the per-level
// expansions concurrently up to a fan-out bound.
type Traverser struct {
	expander Expander
	fanout   int
	logger   *slog.Logger
}

// Option configures a Traverser.
type Option func(*Traverser)

// WithFanout bounds how many nodes of one BFS level expand concurrently.
func WithFanout(n int) Option {
	return func(t *Traverser) {
		if n > 0 {
			t.fanout = n
		}
	}
}

// WithLogger sets the traverser logger.
func WithLogger(logger *slog.Logger) Option {
	return func(t *Traverser) { t.logger = logger }
}

// NewTraverser builds a Traverser over an expander.
func NewTraverser(expander Expander, opts ...Option) *Traverser {
	t := &Traverser{expander: expander, fanout: defaultFanout, logger: slog.Default()}
	for _, opt := range opts {
		opt(t)
	}
	return t
}

// expandLevel resolves the edges of every frontier node concurrently,
// preserving frontier order in the result so path tie-breaks stay in store
// row order.
func (t *Traverser) expandLevel(ctx context.Context, frontier []string) ([][]Edge, error) {
	edges := make([][]Edge, len(frontier))
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(t.fanout)
	for i, node := range frontier {
		g.Go(func() error {
			out, err := t.expander.Expand(gctx, node)
			if err != nil {
				return err
			}
			edges[i] = out
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}
	return edges, nil
}

// FindConnectedEntities returns every entity reachable from uri over
// outgoing edges within maxDistance hops, excluding the origin itself.
// Each node is visited at most once.
func (t *Traverser) FindConnectedEntities(ctx context.Context, uri string, maxDistance int) (*Neighborhood, error) {
	start := time.Now()
	if uri == "" {
		return nil, fmt.Errorf("entity URI is required")
	}
	if maxDistance < 1 {
		maxDistance = 1
	}

	visited := map[string]bool{uri: true}
	frontier := []string{uri}
	explored := 0

	for depth := 0; depth < maxDistance && len(frontier) > 0; depth++ {
		levels, err := t.expandLevel(ctx, frontier)
		if err != nil {
			return nil, err
		}
		explored += len(frontier)

		var next []string
		for _, edges := range levels {
			for _, edge := range edges {
				if visited[edge.Target] {
					continue
				}
				visited[edge.Target] = true
				next = append(next, edge.Target)
			}
		}
		frontier = next
	}

	entities := make([]string, 0, len(visited)-1)
	for node := range visited {
		if node != uri {
			entities = append(entities, node)
		}
	}
	sort.Strings(entities)

	result := &Neighborhood{
		Entities:      entities,
		NodesExplored: explored,
		Elapsed:       time.Since(start),
	}
	t.logger.Debug("neighborhood search completed",
		slog.String("entity", uri),
		slog.Int("max_distance", maxDistance),
		slog.Int("found", len(entities)),
		slog.Duration("elapsed", result.Elapsed))
	return result, nil
}

// pathState is one partial path during FindPath BFS.
type pathState struct {
	nodes []string
	hops  []Hop
}

// FindPath searches breadth-first for a path from one entity to another
// over outgoing edges. The first path found is minimum-hop; among
// equal-length paths the winner follows store row order. Search stops with
// Found false once paths would exceed maxLength hops.
func (t *Traverser) FindPath(ctx context.Context, from, to string, maxLength int) (*PathResult, error) {
	start := time.Now()
	if from == "" || to == "" {
		return nil, fmt.Errorf("both path endpoints are required")
	}
	if maxLength < 1 {
		maxLength = 1
	}

	if from == to {
		return &PathResult{
			Found:   true,
			Path:    []string{from},
			Elapsed: time.Since(start),
		}, nil
	}

	visited := map[string]bool{from: true}
	frontier := []pathState{{nodes: []string{from}}}
	explored := 0

	for depth := 0; depth < maxLength && len(frontier) > 0; depth++ {
		nodes := make([]string, len(frontier))
		for i, state := range frontier {
			nodes[i] = state.nodes[len(state.nodes)-1]
		}
		levels, err := t.expandLevel(ctx, nodes)
		if err != nil {
			return nil, err
		}
		explored += len(nodes)

		var next []pathState
		for i, edges := range levels {
			state := frontier[i]
			for _, edge := range edges {
				if visited[edge.Target] {
					continue
				}
				extended := pathState{
					nodes: append(append([]string{}, state.nodes...), edge.Target),
					hops:  append(append([]Hop{}, state.hops...), Hop{Predicate: edge.Predicate, Weight: 1}),
				}
				if edge.Target == to {
					result := &PathResult{
						Found:         true,
						Path:          extended.nodes,
						Hops:          extended.hops,
						Length:        len(extended.hops),
						NodesExplored: explored,
						Elapsed:       time.Since(start),
					}
					t.logger.Debug("path found",
						slog.String("from", from),
						slog.String("to", to),
						slog.Int("length", result.Length),
						slog.Duration("elapsed", result.Elapsed))
					return result, nil
				}
				visited[edge.Target] = true
				next = append(next, extended)
			}
		}
		frontier = next
	}

	return &PathResult{
		NodesExplored: explored,
		Elapsed:       time.Since(start),
	}, nil
}
