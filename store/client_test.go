package store

import (
	"context"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/c360studio/semgraph/rdf"
)

const selectJSON = `{
  "head": {"vars": ["s", "o"]},
  "results": {"bindings": [
    {"s": {"type": "uri", "value": "http://example.org/Alice"},
     "o": {"type": "literal", "value": "Alice"}},
    {"s": {"type": "uri", "value": "http://example.org/Bob"},
     "o": {"type": "literal", "value": "30", "datatype": "http://www.w3.org/2001/XMLSchema#integer"}}
  ]}
}`

func newTestClient(t *testing.T, handler http.HandlerFunc) *HTTPClient {
	t.Helper()
	srv := httptest.NewServer(handler)
	t.Cleanup(srv.Close)
	client, err := NewHTTPClient(srv.URL)
	require.NoError(t, err)
	return client
}

func TestSelect(t *testing.T) {
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/query", r.URL.Path)
		assert.Equal(t, "application/sparql-query", r.Header.Get("Content-Type"))
		w.Write([]byte(selectJSON))
	})

	result, err := client.Select(context.Background(), "SELECT ?s ?o WHERE { ?s ?p ?o }")
	require.NoError(t, err)
	assert.Equal(t, []string{"s", "o"}, result.Variables)
	require.Len(t, result.Rows, 2)
	assert.Equal(t, "http://example.org/Alice", result.Rows[0]["s"].URI)
	lit := result.Rows[1]["o"].Literal
	require.NotNil(t, lit)
	assert.Equal(t, "30", lit.Value)
	assert.Equal(t, "http://www.w3.org/2001/XMLSchema#integer", lit.Datatype)
	assert.Positive(t, result.Elapsed)
}

func TestAsk(t *testing.T) {
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`{"head": {}, "boolean": true}`))
	})

	result, err := client.Ask(context.Background(), "ASK { ?s ?p ?o }")
	require.NoError(t, err)
	assert.True(t, result.Value)
}

func TestConstructDecodesNTriples(t *testing.T) {
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "application/n-triples", r.Header.Get("Accept"))
		w.Write([]byte("<http://example.org/a> <http://example.org/p> <http://example.org/b> .\n"))
	})

	result, err := client.Construct(context.Background(), "CONSTRUCT { ?s ?p ?o } WHERE { ?s ?p ?o }")
	require.NoError(t, err)
	require.Len(t, result.Triples, 1)
	assert.Equal(t, "http://example.org/a", result.Triples[0].Subject)
}

func TestUpdateAndLoad(t *testing.T) {
	var gotUpdate, gotLoad string
	var loadQuery string
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		body, _ := io.ReadAll(r.Body)
		switch r.URL.Path {
		case "/update":
			gotUpdate = string(body)
		case "/data":
			gotLoad = string(body)
			loadQuery = r.URL.RawQuery
		}
	})

	_, err := client.Update(context.Background(), "INSERT DATA { <a:s> <a:p> <a:o> }")
	require.NoError(t, err)
	assert.NotEmpty(t, gotUpdate)

	triples := []rdf.Triple{rdf.NewTriple("http://example.org/a", "http://example.org/p", "http://example.org/b")}
	_, err = client.Load(context.Background(), triples, "http://example.org/g")
	require.NoError(t, err)
	assert.NotEmpty(t, gotLoad)
	assert.Equal(t, "graph=http%3A%2F%2Fexample.org%2Fg", loadQuery)
}

func TestErrorClassification(t *testing.T) {
	t.Run("malformed query", func(t *testing.T) {
		client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
			http.Error(w, "parse error at line 1", http.StatusBadRequest)
		})
		_, err := client.Select(context.Background(), "SELEKT")
		var storeErr *StoreError
		require.ErrorAs(t, err, &storeErr)
		assert.Equal(t, ErrorMalformedQuery, storeErr.Kind)
		assert.Positive(t, storeErr.Elapsed)
	})

	t.Run("backend failure", func(t *testing.T) {
		client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
			http.Error(w, "boom", http.StatusInternalServerError)
		})
		_, err := client.Select(context.Background(), "SELECT * WHERE { ?s ?p ?o }")
		var storeErr *StoreError
		require.ErrorAs(t, err, &storeErr)
		assert.Equal(t, ErrorBackend, storeErr.Kind)
	})

	t.Run("timeout", func(t *testing.T) {
		client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
			time.Sleep(200 * time.Millisecond)
		})
		ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
		defer cancel()
		_, err := client.Select(ctx, "SELECT * WHERE { ?s ?p ?o }")
		var storeErr *StoreError
		require.ErrorAs(t, err, &storeErr)
		assert.Equal(t, ErrorTimeout, storeErr.Kind)
	})

	t.Run("network", func(t *testing.T) {
		client, err := NewHTTPClient("http://127.0.0.1:1")
		require.NoError(t, err)
		_, err = client.Select(context.Background(), "SELECT * WHERE { ?s ?p ?o }")
		var storeErr *StoreError
		require.ErrorAs(t, err, &storeErr)
		assert.Equal(t, ErrorNetwork, storeErr.Kind)
	})
}

func TestDecodeAskMissingBoolean(t *testing.T) {
	_, err := decodeAskJSON([]byte(`{"head": {}}`))
	assert.Error(t, err, "missing boolean field must fail decoding")
}
