package main

import (
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"time"

	"github.com/nats-io/nats.go"
	"github.com/prometheus/client_golang/prometheus"

	"github.com/c360studio/semgraph/config"
	"github.com/c360studio/semgraph/graph"
	"github.com/c360studio/semgraph/metric"
	"github.com/c360studio/semgraph/notify"
	"github.com/c360studio/semgraph/ontology"
	"github.com/c360studio/semgraph/reason"
	"github.com/c360studio/semgraph/store"
	"github.com/c360studio/semgraph/traverse"
	"github.com/c360studio/semgraph/validate"
)

// App wires the engine components over one store connection.
type App struct {
	cfg    *config.Config
	logger *slog.Logger

	natsConn *nats.Conn

	Store       store.Client
	Coordinator *graph.Coordinator
	Registry    *ontology.Registry
	Reasoner    *reason.Orchestrator
	Validator   *validate.Validator
	Traverser   *traverse.Traverser
}

// NewApp builds every component from the configuration.
func NewApp(cfg *config.Config) (*App, error) {
	logger := slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{
		Level: cfg.LogLevel(),
	}))
	slog.SetDefault(logger)

	app := &App{cfg: cfg, logger: logger}

	var publisher *notify.Publisher
	if cfg.NATS.URL != "" {
		conn, err := nats.Connect(cfg.NATS.URL,
			nats.Name("semgraph"),
			nats.MaxReconnects(-1),
			nats.ReconnectWait(2*time.Second))
		if err != nil {
			// Mutation events are advisory; run without them.
			logger.Warn("NATS unavailable, mutation events disabled",
				slog.String("url", cfg.NATS.URL),
				slog.String("error", err.Error()))
		} else {
			app.natsConn = conn
			publisher = notify.NewPublisher(conn, logger,
				notify.WithSubjectPrefix(cfg.NATS.SubjectPrefix))
		}
	}

	client, err := store.NewHTTPClient(cfg.Store.Endpoint,
		store.WithPaths(cfg.Store.QueryPath, cfg.Store.UpdatePath, cfg.Store.DataPath),
		store.WithHTTPClient(&http.Client{Timeout: cfg.Store.Timeout}),
		store.WithLogger(logger),
		store.WithMetrics(metric.NewStoreMetrics(prometheus.NewRegistry())))
	if err != nil {
		return nil, fmt.Errorf("create store client: %w", err)
	}
	app.Store = client

	app.Coordinator = graph.NewCoordinator(client,
		graph.WithLogger(logger),
		graph.WithPublisher(publisher))

	app.Registry = ontology.NewRegistry(cfg.Ontology.CacheTTL, cfg.Ontology.CacheCapacity,
		ontology.WithLogger(logger),
		ontology.WithLoader(app.Coordinator))

	app.Reasoner = reason.NewOrchestrator(client,
		reason.WithLogger(logger),
		reason.WithMaterializer(app.Coordinator),
		reason.WithPublisher(publisher))

	app.Validator = validate.NewValidator(client, app.Registry,
		validate.WithLogger(logger))

	app.Traverser = traverse.NewTraverser(traverse.NewStoreExpander(client),
		traverse.WithFanout(cfg.Traversal.Fanout),
		traverse.WithLogger(logger))

	return app, nil
}

// Close releases the store and NATS connections.
func (a *App) Close() {
	if a.Store != nil {
		if err := a.Store.Close(); err != nil {
			a.logger.Warn("close store client", slog.String("error", err.Error()))
		}
	}
	if a.natsConn != nil {
		a.natsConn.Close()
	}
}
