// Package store implements the SPARQL 1.1 protocol client for the external
// triple store. It is a pure protocol adapter: no caching, no retries, and a
// single StoreError surface for every failure mode.
package store

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/c360studio/semgraph/metric"
	"github.com/c360studio/semgraph/rdf"
)

// maxResponseSize bounds response bodies to prevent memory exhaustion on a
// misbehaving store.
const maxResponseSize = 64 * 1024 * 1024 // 64MB

// Client is the query/update boundary to the external triple store.
type Client interface {
	// Select executes a SELECT query and decodes the bindings.
	Select(ctx context.Context, query string) (*SelectResult, error)

	// Ask executes an ASK query.
	Ask(ctx context.Context, query string) (*AskResult, error)

	// Construct executes a CONSTRUCT query and decodes the resulting graph.
	Construct(ctx context.Context, query string) (*ConstructResult, error)

	// Update executes a SPARQL update and returns the elapsed time.
	Update(ctx context.Context, update string) (time.Duration, error)

	// Load adds triples to the default graph or a named graph via the
	// graph store protocol.
	Load(ctx context.Context, triples []rdf.Triple, graphURI string) (time.Duration, error)

	// Close releases the client's idle connections.
	Close() error
}

// SelectResult carries decoded SELECT bindings.
type SelectResult struct {
	Variables []string
	Rows      []Binding
	Elapsed   time.Duration
}

// Binding maps one row's variable names to terms.
type Binding map[string]rdf.Value

// AskResult carries an ASK verdict.
type AskResult struct {
	Value   bool
	Elapsed time.Duration
}

// ConstructResult carries a decoded CONSTRUCT graph.
type ConstructResult struct {
	Triples []rdf.Triple
	Elapsed time.Duration
}

// HTTPClient talks SPARQL 1.1 protocol over HTTP: query and update
// endpoints plus the graph store protocol data endpoint.
type HTTPClient struct {
	endpoint   string
	queryPath  string
	updatePath string
	dataPath   string
	httpClient *http.Client
	logger     *slog.Logger
	metrics    *metric.StoreMetrics
}

// Option configures an HTTPClient.
type Option func(*HTTPClient)

// WithHTTPClient sets a custom HTTP client.
func WithHTTPClient(c *http.Client) Option {
	return func(hc *HTTPClient) { hc.httpClient = c }
}

// WithLogger sets the structured logger.
func WithLogger(logger *slog.Logger) Option {
	return func(hc *HTTPClient) { hc.logger = logger }
}

// WithMetrics attaches store instrumentation.
func WithMetrics(m *metric.StoreMetrics) Option {
	return func(hc *HTTPClient) { hc.metrics = m }
}

// WithPaths overrides the per-dataset service paths. Defaults match a Fuseki
// dataset layout: /query, /update, /data.
func WithPaths(query, update, data string) Option {
	return func(hc *HTTPClient) {
		hc.queryPath = query
		hc.updatePath = update
		hc.dataPath = data
	}
}

// NewHTTPClient creates a client against a dataset base URL, for example
// http://localhost:3030/kg.
func NewHTTPClient(endpoint string, opts ...Option) (*HTTPClient, error) {
	if endpoint == "" {
		return nil, fmt.Errorf("store endpoint is required")
	}
	hc := &HTTPClient{
		endpoint:   strings.TrimRight(endpoint, "/"),
		queryPath:  "/query",
		updatePath: "/update",
		dataPath:   "/data",
		httpClient: &http.Client{},
		logger:     slog.Default(),
	}
	for _, opt := range opts {
		opt(hc)
	}
	return hc, nil
}

// Select implements Client.
func (hc *HTTPClient) Select(ctx context.Context, query string) (*SelectResult, error) {
	start := time.Now()
	body, err := hc.query(ctx, query, "application/sparql-results+json")
	elapsed := time.Since(start)
	hc.metrics.Observe("select", elapsed, err)
	if err != nil {
		return nil, hc.storeErr("select", elapsed, err)
	}

	result, err := decodeSelectJSON(body)
	if err != nil {
		return nil, hc.storeErr("select", elapsed, err)
	}
	result.Elapsed = elapsed
	return result, nil
}

// Ask implements Client.
func (hc *HTTPClient) Ask(ctx context.Context, query string) (*AskResult, error) {
	start := time.Now()
	body, err := hc.query(ctx, query, "application/sparql-results+json")
	elapsed := time.Since(start)
	hc.metrics.Observe("ask", elapsed, err)
	if err != nil {
		return nil, hc.storeErr("ask", elapsed, err)
	}

	value, err := decodeAskJSON(body)
	if err != nil {
		return nil, hc.storeErr("ask", elapsed, err)
	}
	return &AskResult{Value: value, Elapsed: elapsed}, nil
}

// Construct implements Client. The graph is requested as N-Triples and
// decoded into the in-process model, so callers can re-serialize in any
// supported format.
func (hc *HTTPClient) Construct(ctx context.Context, query string) (*ConstructResult, error) {
	start := time.Now()
	body, err := hc.query(ctx, query, rdf.FormatNTriples.ContentType())
	elapsed := time.Since(start)
	hc.metrics.Observe("construct", elapsed, err)
	if err != nil {
		return nil, hc.storeErr("construct", elapsed, err)
	}

	triples, err := rdf.Decode(string(body), rdf.FormatNTriples)
	if err != nil {
		return nil, hc.storeErr("construct", elapsed, err)
	}
	return &ConstructResult{Triples: triples, Elapsed: elapsed}, nil
}

// Update implements Client.
func (hc *HTTPClient) Update(ctx context.Context, update string) (time.Duration, error) {
	start := time.Now()
	req, err := http.NewRequestWithContext(ctx, http.MethodPost,
		hc.endpoint+hc.updatePath, strings.NewReader(update))
	if err != nil {
		return 0, hc.storeErr("update", time.Since(start), err)
	}
	req.Header.Set("Content-Type", "application/sparql-update")

	err = hc.do(req, nil)
	elapsed := time.Since(start)
	hc.metrics.Observe("update", elapsed, err)
	if err != nil {
		return elapsed, hc.storeErr("update", elapsed, err)
	}
	return elapsed, nil
}

// Load implements Client.
func (hc *HTTPClient) Load(ctx context.Context, triples []rdf.Triple, graphURI string) (time.Duration, error) {
	start := time.Now()
	payload, err := rdf.Encode(triples, rdf.FormatNTriples)
	if err != nil {
		return 0, hc.storeErr("load", time.Since(start), err)
	}

	target := hc.endpoint + hc.dataPath
	if graphURI != "" {
		target += "?graph=" + url.QueryEscape(graphURI)
	} else {
		target += "?default"
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, target, strings.NewReader(payload))
	if err != nil {
		return 0, hc.storeErr("load", time.Since(start), err)
	}
	req.Header.Set("Content-Type", rdf.FormatNTriples.ContentType())

	err = hc.do(req, nil)
	elapsed := time.Since(start)
	hc.metrics.Observe("load", elapsed, err)
	if err != nil {
		return elapsed, hc.storeErr("load", elapsed, err)
	}
	hc.logger.Debug("loaded triples",
		slog.Int("count", len(triples)),
		slog.String("graph", graphURI),
		slog.Duration("elapsed", elapsed))
	return elapsed, nil
}

// Close implements Client.
func (hc *HTTPClient) Close() error {
	hc.httpClient.CloseIdleConnections()
	return nil
}

func (hc *HTTPClient) query(ctx context.Context, query, accept string) ([]byte, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodPost,
		hc.endpoint+hc.queryPath, strings.NewReader(query))
	if err != nil {
		return nil, err
	}
	req.Header.Set("Content-Type", "application/sparql-query")
	req.Header.Set("Accept", accept)

	var body []byte
	err = hc.do(req, &body)
	return body, err
}

// do executes the request, enforcing the response size bound and mapping
// non-2xx statuses to errors. When out is nil the body is discarded.
func (hc *HTTPClient) do(req *http.Request, out *[]byte) error {
	resp, err := hc.httpClient.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(io.LimitReader(resp.Body, maxResponseSize))
	if err != nil {
		return err
	}
	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return &httpStatusError{status: resp.StatusCode, body: truncate(string(body), 512)}
	}
	if out != nil {
		*out = body
	}
	return nil
}

// httpStatusError keeps the status code for kind classification.
type httpStatusError struct {
	status int
	body   string
}

func (e *httpStatusError) Error() string {
	return fmt.Sprintf("store returned %d: %s", e.status, e.body)
}

func (hc *HTTPClient) storeErr(operation string, elapsed time.Duration, err error) error {
	kind := classify(err)
	hc.logger.Warn("store call failed",
		slog.String("operation", operation),
		slog.String("kind", string(kind)),
		slog.Duration("elapsed", elapsed),
		slog.String("error", err.Error()))
	return &StoreError{Kind: kind, Operation: operation, Elapsed: elapsed, Err: err}
}

func classify(err error) ErrorKind {
	if errors.Is(err, context.DeadlineExceeded) || errors.Is(err, context.Canceled) {
		return ErrorTimeout
	}
	var statusErr *httpStatusError
	if errors.As(err, &statusErr) {
		if statusErr.status == http.StatusBadRequest {
			return ErrorMalformedQuery
		}
		return ErrorBackend
	}
	var formatErr *rdf.FormatError
	if errors.As(err, &formatErr) {
		return ErrorBackend
	}
	var urlErr *url.Error
	if errors.As(err, &urlErr) {
		if urlErr.Timeout() {
			return ErrorTimeout
		}
		return ErrorNetwork
	}
	return ErrorNetwork
}

func truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}
	return s[:n] + "..."
}
