// Package notify publishes graph mutation events so downstream consumers
// can react to writes without polling the store.
package notify

import (
	"context"
	"encoding/json"
	"log/slog"
	"time"

	"github.com/nats-io/nats.go"
)

// Subject for graph mutation events.
const MutationSubject = "semgraph.mutation"

// Kind of mutation carried by an event.
type Kind string

const (
	KindAdd         Kind = "add"
	KindDelete      Kind = "delete"
	KindImport      Kind = "import"
	KindMaterialize Kind = "materialize"
)

// Event is the JSON payload published after a successful write.
type Event struct {
	Kind        Kind      `json:"kind"`
	Graph       string    `json:"graph,omitempty"`
	TripleCount int       `json:"triple_count"`
	OccurredAt  time.Time `json:"occurred_at"`
}

// Publisher emits mutation events over NATS. A nil Publisher or a Publisher
// without a connection is a no-op, so callers never gate writes on the
// event bus being up.
type Publisher struct {
	conn    *nats.Conn
	subject string
	logger  *slog.Logger
}

// Option configures a Publisher.
type Option func(*Publisher)

// WithSubjectPrefix replaces the default "semgraph" subject prefix.
func WithSubjectPrefix(prefix string) Option {
	return func(p *Publisher) {
		if prefix != "" {
			p.subject = prefix + ".mutation"
		}
	}
}

// NewPublisher wraps a NATS connection. conn may be nil.
func NewPublisher(conn *nats.Conn, logger *slog.Logger, opts ...Option) *Publisher {
	if logger == nil {
		logger = slog.Default()
	}
	p := &Publisher{conn: conn, subject: MutationSubject, logger: logger}
	for _, opt := range opts {
		opt(p)
	}
	return p
}

// Publish emits one event. Failures are logged, never returned: mutation
// events are advisory and must not fail the write they describe.
func (p *Publisher) Publish(ctx context.Context, kind Kind, graph string, count int) {
	if p == nil || p.conn == nil {
		return
	}
	if err := ctx.Err(); err != nil {
		return
	}

	event := Event{Kind: kind, Graph: graph, TripleCount: count, OccurredAt: time.Now().UTC()}
	payload, err := json.Marshal(event)
	if err != nil {
		p.logger.Warn("marshal mutation event", slog.String("error", err.Error()))
		return
	}
	if err := p.conn.Publish(p.subject, payload); err != nil {
		p.logger.Warn("publish mutation event",
			slog.String("kind", string(kind)),
			slog.String("error", err.Error()))
	}
}
