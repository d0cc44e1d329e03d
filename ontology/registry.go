package ontology

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/c360studio/semgraph/rdf"
	"github.com/c360studio/semgraph/vocabulary"
)

const (
	maxFetchSize   = 32 * 1024 * 1024
	maxImportDepth = 5
)

// Source says where ontology content comes from.
type Source string

const (
	SourceURL    Source = "url"
	SourceInline Source = "inline"
)

// LoadRequest describes one ontology to load.
type LoadRequest struct {
	URI            string
	Name           string
	Version        string
	Source         Source
	Content        string // required for SourceInline
	Format         string // serialization hint, default turtle
	LoadImports    bool
	ValidateOnLoad bool
}

// LoadResult reports what a load produced. Validation findings are result
// fields, not errors; only fetch and parse failures abort a load.
type LoadResult struct {
	URI             string            `json:"ontology_uri"`
	Name            string            `json:"name,omitempty"`
	Version         string            `json:"version,omitempty"`
	ClassCount      int               `json:"class_count"`
	PropertyCount   int               `json:"property_count"`
	IndividualCount int               `json:"individual_count"`
	AxiomCount      int               `json:"axiom_count"`
	Imports         []string          `json:"imported_ontologies,omitempty"`
	Namespaces      map[string]string `json:"namespaces,omitempty"`
	Consistent      bool              `json:"is_consistent"`
	Errors          []string          `json:"validation_errors,omitempty"`
	Warnings        []string          `json:"warnings,omitempty"`
	LoadTime        time.Duration     `json:"load_time"`
}

// Info is the catalog projection of one cached ontology.
type Info struct {
	URI                 string            `json:"uri"`
	ID                  string            `json:"id"`
	Name                string            `json:"name,omitempty"`
	Version             string            `json:"version,omitempty"`
	ClassCount          int               `json:"class_count"`
	ObjectPropertyCount int               `json:"object_property_count"`
	DataPropertyCount   int               `json:"data_property_count"`
	IndividualCount     int               `json:"individual_count"`
	AxiomCount          int               `json:"axiom_count"`
	Imports             []string          `json:"imports,omitempty"`
	Namespaces          map[string]string `json:"namespaces,omitempty"`
	Consistent          bool              `json:"is_consistent"`
	LoadedAt            time.Time         `json:"loaded_at"`
}

// TripleLoader writes ontology statements into the store. The Query
// Coordinator satisfies this.
type TripleLoader interface {
	AddTriples(ctx context.Context, triples []rdf.Triple, graphURI string) (int, error)
}

// Registry loads ontologies from URLs or inline content, caches the indexed
// models, and serves read-only projections over the cache.
type Registry struct {
	httpClient *http.Client
	loader     TripleLoader
	logger     *slog.Logger
	cache      *cache
}

// Option configures a Registry.
type Option func(*Registry)

// WithHTTPClient overrides the client used to dereference ontology URLs.
func WithHTTPClient(client *http.Client) Option {
	return func(r *Registry) { r.httpClient = client }
}

// WithLoader makes loads also write the ontology statements into the store.
func WithLoader(loader TripleLoader) Option {
	return func(r *Registry) { r.loader = loader }
}

// WithLogger sets the registry logger.
func WithLogger(logger *slog.Logger) Option {
	return func(r *Registry) { r.logger = logger }
}

// NewRegistry builds a Registry with the given cache policy. A zero ttl
// disables expiry; a zero capacity disables the entry bound.
func NewRegistry(ttl time.Duration, capacity int, opts ...Option) *Registry {
	r := &Registry{
		httpClient: &http.Client{Timeout: 30 * time.Second},
		logger:     slog.Default(),
		cache:      newCache(ttl, capacity),
	}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// LoadOntology loads, indexes, and caches one ontology. Repeat loads of a
// cached URI are served from the cache; concurrent first loads coalesce.
func (r *Registry) LoadOntology(ctx context.Context, req LoadRequest) (*LoadResult, error) {
	if req.URI == "" {
		return nil, fmt.Errorf("ontology URI is required")
	}

	start := time.Now()
	e, err := r.cache.loadOnce(ctx, req.URI, func() (*entry, error) {
		return r.load(ctx, req)
	})
	if err != nil {
		return nil, err
	}

	result := &LoadResult{
		URI:             req.URI,
		Name:            req.Name,
		Version:         req.Version,
		ClassCount:      e.model.ClassCount(),
		PropertyCount:   e.model.PropertyCount(),
		IndividualCount: e.model.IndividualCount(),
		AxiomCount:      e.model.Size(),
		Imports:         e.model.Imports(),
		Namespaces:      e.model.Namespaces(),
		Consistent:      e.info.Consistent,
		Warnings:        append([]string(nil), e.warnings...),
		LoadTime:        time.Since(start),
	}
	if req.ValidateOnLoad {
		var structWarnings []string
		result.Errors, structWarnings = structuralFindings(e.model)
		result.Warnings = append(result.Warnings, structWarnings...)
		result.Consistent = len(result.Errors) == 0
	}
	return result, nil
}

func (r *Registry) load(ctx context.Context, req LoadRequest) (*entry, error) {
	triples, err := r.resolveContent(ctx, req.URI, req.Source, req.Content, req.Format)
	if err != nil {
		return nil, err
	}

	var warnings []string
	if req.LoadImports {
		triples, warnings, err = r.followImports(ctx, req.URI, triples, req.Format)
		if err != nil {
			return nil, err
		}
	}

	model := NewModel(req.URI, triples)

	consistent := true
	if req.ValidateOnLoad {
		errs, _ := structuralFindings(model)
		consistent = len(errs) == 0
	}

	if r.loader != nil {
		if _, err := r.loader.AddTriples(ctx, triples, ""); err != nil {
			return nil, fmt.Errorf("loading ontology into store: %w", err)
		}
	}

	info := Info{
		URI:                 req.URI,
		ID:                  tailSegment(req.URI),
		Name:                req.Name,
		Version:             req.Version,
		ClassCount:          model.ClassCount(),
		ObjectPropertyCount: model.ObjectPropertyCount(),
		DataPropertyCount:   model.DatatypePropertyCount(),
		IndividualCount:     model.IndividualCount(),
		AxiomCount:          model.Size(),
		Imports:             model.Imports(),
		Namespaces:          model.Namespaces(),
		Consistent:          consistent,
		LoadedAt:            time.Now(),
	}

	r.logger.Info("ontology loaded",
		slog.String("uri", req.URI),
		slog.Int("classes", info.ClassCount),
		slog.Int("axioms", info.AxiomCount))
	return &entry{model: model, info: info, warnings: warnings, loadedAt: info.LoadedAt}, nil
}

func (r *Registry) resolveContent(ctx context.Context, uri string, source Source, content, formatHint string) ([]rdf.Triple, error) {
	switch source {
	case SourceInline:
		if content == "" {
			return nil, fmt.Errorf("inline ontology %s has no content", uri)
		}
		format, ok := rdf.ParseFormat(formatHint)
		if !ok {
			format = rdf.FormatTurtle
		}
		return rdf.Decode(content, format)

	case SourceURL, "":
		data, contentType, err := r.fetch(ctx, uri)
		if err != nil {
			return nil, err
		}
		format := formatFromContentType(contentType)
		if format == "" {
			if f, ok := rdf.ParseFormat(formatHint); ok {
				format = f
			} else {
				format = rdf.FormatTurtle
			}
		}
		return rdf.Decode(data, format)

	default:
		return nil, fmt.Errorf("unknown ontology source %q", source)
	}
}

func (r *Registry) fetch(ctx context.Context, uri string) (string, string, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, uri, nil)
	if err != nil {
		return "", "", fmt.Errorf("building ontology request: %w", err)
	}
	req.Header.Set("Accept", "text/turtle, application/rdf+xml;q=0.9, application/ld+json;q=0.8, application/n-triples;q=0.7")

	resp, err := r.httpClient.Do(req)
	if err != nil {
		return "", "", fmt.Errorf("fetching ontology %s: %w", uri, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return "", "", fmt.Errorf("fetching ontology %s: status %d", uri, resp.StatusCode)
	}

	data, err := io.ReadAll(io.LimitReader(resp.Body, maxFetchSize))
	if err != nil {
		return "", "", fmt.Errorf("reading ontology %s: %w", uri, err)
	}
	return string(data), resp.Header.Get("Content-Type"), nil
}

// followImports dereferences owl:imports targets breadth-first, merging
// their statements. Already-visited URIs and depth overruns are skipped;
// skips are recorded as warnings on the load result.
func (r *Registry) followImports(ctx context.Context, rootURI string, triples []rdf.Triple, formatHint string) ([]rdf.Triple, []string, error) {
	visited := map[string]bool{rootURI: true}
	frontier := importTargets(triples)
	var warnings []string

	for depth := 0; depth < maxImportDepth && len(frontier) > 0; depth++ {
		var next []string
		for _, target := range frontier {
			if visited[target] {
				warnings = append(warnings, fmt.Sprintf("import %s already loaded, skipping revisit", target))
				continue
			}
			visited[target] = true

			imported, err := r.resolveContent(ctx, target, SourceURL, "", formatHint)
			if err != nil {
				r.logger.Warn("skipping unresolvable import",
					slog.String("uri", target), slog.String("error", err.Error()))
				warnings = append(warnings, fmt.Sprintf("unresolvable import %s: %v", target, err))
				continue
			}
			triples = append(triples, imported...)
			next = append(next, importTargets(imported)...)
		}
		frontier = next
	}
	if len(frontier) > 0 {
		warnings = append(warnings, fmt.Sprintf("import depth limit %d reached, %d imports unresolved", maxImportDepth, len(frontier)))
	}
	return triples, warnings, nil
}

func importTargets(triples []rdf.Triple) []string {
	var out []string
	for _, t := range triples {
		if t.Predicate == vocabulary.OWLImports && t.Object.URI != "" {
			out = append(out, t.Object.URI)
		}
	}
	return out
}

// ListOntologies catalogs every cached ontology.
func (r *Registry) ListOntologies() []Info {
	var out []Info
	for _, uri := range r.cache.uris() {
		if e, ok := r.cache.get(uri); ok {
			out = append(out, e.info)
		}
	}
	return out
}

// GetClasses projects the classes of a cached ontology. The id may be the
// full URI or its trailing segment. Unknown ids yield an empty slice.
func (r *Registry) GetClasses(id string) []Class {
	e, ok := r.cache.resolve(id)
	if !ok {
		r.logger.Warn("ontology not found", slog.String("id", id))
		return nil
	}
	return e.model.Classes()
}

// GetProperties projects the properties of a cached ontology. Unknown ids
// yield an empty slice.
func (r *Registry) GetProperties(id string) []Property {
	e, ok := r.cache.resolve(id)
	if !ok {
		r.logger.Warn("ontology not found", slog.String("id", id))
		return nil
	}
	return e.model.Properties()
}

// Model returns the indexed model for a cached ontology.
func (r *Registry) Model(id string) (*Model, bool) {
	e, ok := r.cache.resolve(id)
	if !ok {
		return nil, false
	}
	return e.model, true
}

// Reload drops the cached entry and loads the ontology again.
func (r *Registry) Reload(ctx context.Context, req LoadRequest) (*LoadResult, error) {
	r.cache.remove(req.URI)
	return r.LoadOntology(ctx, req)
}

// Remove evicts a cached ontology. Removing an unknown URI is a no-op.
func (r *Registry) Remove(uri string) {
	r.cache.remove(uri)
}

// structuralFindings runs the reasoner-free consistency checks a load can
// perform on its own: subclass cycles are errors, dangling domain and range
// references are warnings.
func structuralFindings(m *Model) (errs, warnings []string) {
	for _, class := range m.SubClassCycles() {
		errs = append(errs, fmt.Sprintf("class %s participates in a subclass cycle", class))
	}
	for _, p := range m.Properties() {
		for _, d := range p.Domain {
			if !m.HasClass(d) && !wellKnown(d) {
				warnings = append(warnings, fmt.Sprintf("property %s has undeclared domain class %s", p.URI, d))
			}
		}
		for _, rng := range p.Range {
			if p.Kind == KindObject && !m.HasClass(rng) && !wellKnown(rng) {
				warnings = append(warnings, fmt.Sprintf("property %s has undeclared range class %s", p.URI, rng))
			}
		}
	}
	return errs, warnings
}

func wellKnown(uri string) bool {
	return strings.HasPrefix(uri, vocabulary.OWLNamespace) ||
		strings.HasPrefix(uri, vocabulary.RDFSNamespace) ||
		strings.HasPrefix(uri, vocabulary.RDFNamespace) ||
		strings.HasPrefix(uri, vocabulary.XSDNamespace)
}

func formatFromContentType(contentType string) rdf.Format {
	if i := strings.Index(contentType, ";"); i >= 0 {
		contentType = contentType[:i]
	}
	switch strings.TrimSpace(strings.ToLower(contentType)) {
	case "text/turtle", "application/x-turtle":
		return rdf.FormatTurtle
	case "application/rdf+xml":
		return rdf.FormatRDFXML
	case "application/ld+json", "application/json":
		return rdf.FormatJSONLD
	case "application/n-triples", "text/plain":
		return rdf.FormatNTriples
	case "text/n3":
		return rdf.FormatN3
	}
	return ""
}
