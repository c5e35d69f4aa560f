package elasticsearch

import (
	"context"
	"encoding/json"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	apperrors "github.com/Armandase/seconde-main/pkg/errors"
	"github.com/Armandase/seconde-main/services/search/internal/domain"
	"github.com/Armandase/seconde-main/services/search/internal/query"
)

type recordedRequest struct {
	Method string
	Path   string
	Body   string
}

// fakeCluster is a minimal Elasticsearch stand-in routing on method and path.
type fakeCluster struct {
	t        *testing.T
	mu       sync.Mutex
	requests []recordedRequest
	routes   map[string]func(w http.ResponseWriter, body string)
	server   *httptest.Server
}

func newFakeCluster(t *testing.T) *fakeCluster {
	t.Helper()
	fc := &fakeCluster{t: t, routes: map[string]func(http.ResponseWriter, string){}}
	fc.server = httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		body, _ := io.ReadAll(r.Body)
		fc.mu.Lock()
		fc.requests = append(fc.requests, recordedRequest{Method: r.Method, Path: r.URL.Path, Body: string(body)})
		route, ok := fc.routes[r.Method+" "+r.URL.Path]
		fc.mu.Unlock()

		w.Header().Set("X-Elastic-Product", "Elasticsearch")
		w.Header().Set("Content-Type", "application/json")
		if !ok {
			w.WriteHeader(http.StatusOK)
			_, _ = w.Write([]byte(`{}`))
			return
		}
		route(w, string(body))
	}))
	t.Cleanup(fc.server.Close)
	return fc
}

func (fc *fakeCluster) handle(method, path string, status int, body string) {
	fc.mu.Lock()
	defer fc.mu.Unlock()
	fc.routes[method+" "+path] = func(w http.ResponseWriter, _ string) {
		w.WriteHeader(status)
		_, _ = w.Write([]byte(body))
	}
}

func (fc *fakeCluster) calls() []recordedRequest {
	fc.mu.Lock()
	defer fc.mu.Unlock()
	out := make([]recordedRequest, len(fc.requests))
	copy(out, fc.requests)
	return out
}

func (fc *fakeCluster) paths() []string {
	var out []string
	for _, r := range fc.calls() {
		out = append(out, r.Method+" "+r.Path)
	}
	return out
}

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func newTestEngine(t *testing.T, fc *fakeCluster) *Engine {
	t.Helper()
	eng, err := New(Config{Addresses: []string{fc.server.URL}, Index: "products"}, testLogger())
	require.NoError(t, err)
	return eng
}

func TestNew_DefaultsIndexName(t *testing.T) {
	eng, err := New(Config{Addresses: []string{"http://localhost:9200"}}, testLogger())
	require.NoError(t, err)
	assert.Equal(t, DefaultIndexName, eng.Index())
}

func TestEnsureIndex_ExistingIndexIsNoop(t *testing.T) {
	fc := newFakeCluster(t)
	fc.handle(http.MethodHead, "/products", http.StatusOK, "")

	require.NoError(t, newTestEngine(t, fc).EnsureIndex(context.Background()))
	assert.Equal(t, []string{"HEAD /products"}, fc.paths())
}

func TestEnsureIndex_CreatesMissingIndexWithMapping(t *testing.T) {
	fc := newFakeCluster(t)
	fc.handle(http.MethodHead, "/products", http.StatusNotFound, "")
	fc.handle(http.MethodPut, "/products", http.StatusOK, `{"acknowledged":true}`)

	require.NoError(t, newTestEngine(t, fc).EnsureIndex(context.Background()))

	calls := fc.calls()
	require.Len(t, calls, 2)
	assert.Equal(t, http.MethodPut, calls[1].Method)

	var body struct {
		Mappings struct {
			Properties map[string]struct {
				Type string `json:"type"`
			} `json:"properties"`
		} `json:"mappings"`
	}
	require.NoError(t, json.Unmarshal([]byte(calls[1].Body), &body))
	props := body.Mappings.Properties
	assert.Equal(t, "text", props["title"].Type)
	assert.Equal(t, "text", props["description"].Type)
	assert.Equal(t, "float", props["price"].Type)
	assert.Equal(t, "date", props["createdAt"].Type)
	for _, f := range []string{"id", "category", "condition", "location", "imageUrl", "source", "url"} {
		assert.Equal(t, "keyword", props[f].Type, f)
	}
}

func TestEnsureIndex_ConcurrentCreateIsSuccess(t *testing.T) {
	fc := newFakeCluster(t)
	fc.handle(http.MethodHead, "/products", http.StatusNotFound, "")
	fc.handle(http.MethodPut, "/products", http.StatusBadRequest,
		`{"error":{"type":"resource_already_exists_exception","reason":"index [products] already exists"},"status":400}`)

	assert.NoError(t, newTestEngine(t, fc).EnsureIndex(context.Background()))
}

func TestEnsureIndex_OtherCreateFailure(t *testing.T) {
	fc := newFakeCluster(t)
	fc.handle(http.MethodHead, "/products", http.StatusNotFound, "")
	fc.handle(http.MethodPut, "/products", http.StatusBadRequest,
		`{"error":{"type":"illegal_argument_exception","reason":"bad mapping"},"status":400}`)

	err := newTestEngine(t, fc).EnsureIndex(context.Background())
	require.Error(t, err)
	assert.ErrorIs(t, err, domain.ErrStoreUnavailable)
	assert.Contains(t, err.Error(), "illegal_argument_exception")
}

func TestPut_IndexesThenRefreshes(t *testing.T) {
	fc := newFakeCluster(t)
	fc.handle(http.MethodPut, "/products/_doc/p1", http.StatusCreated, `{"_id":"p1","result":"created"}`)
	fc.handle(http.MethodPost, "/products/_refresh", http.StatusOK, `{"_shards":{"total":1,"successful":1,"failed":0}}`)

	p := &domain.Product{ID: "p1", Title: "Vintage lamp", Price: 25, CreatedAt: time.Date(2026, 1, 2, 3, 4, 5, 0, time.UTC)}
	res, err := newTestEngine(t, fc).Put(context.Background(), p)
	require.NoError(t, err)

	assert.Equal(t, domain.WriteResult{ID: "p1", Result: "created", Refreshed: true}, res)
	assert.Equal(t, []string{"PUT /products/_doc/p1", "POST /products/_refresh"}, fc.paths())
	assert.JSONEq(t, `{"id":"p1","title":"Vintage lamp","description":"","price":25,"category":"","condition":"","location":"","imageUrl":"","source":"","url":"","createdAt":"2026-01-02T03:04:05Z"}`,
		fc.calls()[0].Body)
}

func TestPut_RefreshFailureIsStoreUnavailable(t *testing.T) {
	fc := newFakeCluster(t)
	fc.handle(http.MethodPut, "/products/_doc/p1", http.StatusOK, `{"_id":"p1","result":"updated"}`)
	fc.handle(http.MethodPost, "/products/_refresh", http.StatusInternalServerError, `{"error":{"type":"exception","reason":"boom"},"status":500}`)

	_, err := newTestEngine(t, fc).Put(context.Background(), &domain.Product{ID: "p1"})
	assert.ErrorIs(t, err, domain.ErrStoreUnavailable)
}

func TestBulkPut_ReportsPerItemOutcome(t *testing.T) {
	fc := newFakeCluster(t)
	fc.handle(http.MethodPost, "/products/_bulk", http.StatusOK, `{
		"errors": true,
		"items": [
			{"index": {"_id": "a", "status": 201, "result": "created"}},
			{"index": {"_id": "b", "status": 400, "error": {"type": "mapper_parsing_exception", "reason": "failed to parse field [price]"}}},
			{"index": {"_id": "c", "status": 200, "result": "updated"}}
		]
	}`)

	res, err := newTestEngine(t, fc).BulkPut(context.Background(), []domain.Product{{ID: "a"}, {ID: "b"}, {ID: "c"}})
	require.NoError(t, err)

	assert.True(t, res.Refreshed)
	assert.Equal(t, 2, res.Indexed())
	require.Len(t, res.Failed(), 1)
	assert.Equal(t, "b", res.Failed()[0].ID)
	assert.Equal(t, http.StatusBadRequest, res.Failed()[0].Status)
	assert.Contains(t, res.Failed()[0].Error, "mapper_parsing_exception")

	paths := fc.paths()
	assert.Equal(t, []string{"POST /products/_bulk", "POST /products/_refresh"}, paths)

	lines := strings.Split(strings.TrimSpace(fc.calls()[0].Body), "\n")
	require.Len(t, lines, 6)
	assert.JSONEq(t, `{"index":{"_index":"products","_id":"a"}}`, lines[0])
}

func TestBulkPut_EmptyIsNoop(t *testing.T) {
	fc := newFakeCluster(t)
	res, err := newTestEngine(t, fc).BulkPut(context.Background(), nil)
	require.NoError(t, err)
	assert.Empty(t, res.Items)
	assert.Empty(t, fc.calls())
}

func TestBulkPut_RequestFailure(t *testing.T) {
	fc := newFakeCluster(t)
	fc.handle(http.MethodPost, "/products/_bulk", http.StatusInternalServerError, `{"error":{"type":"exception","reason":"boom"},"status":500}`)

	_, err := newTestEngine(t, fc).BulkPut(context.Background(), []domain.Product{{ID: "a"}})
	assert.ErrorIs(t, err, domain.ErrStoreUnavailable)
}

func TestSearch_SendsCompiledQueryAndReturnsHits(t *testing.T) {
	fc := newFakeCluster(t)
	fc.handle(http.MethodPost, "/products/_search", http.StatusOK, `{
		"hits": {
			"total": {"value": 42, "relation": "eq"},
			"hits": [
				{"_id": "a", "_source": {"title": "Laptop", "price": 100}},
				{"_id": "b", "_source": {"title": "Phone", "price": 150}}
			]
		}
	}`)

	maxPrice := 200.0
	c := query.Build(domain.SearchRequest{Query: "laptop", Category: "electronics", MaxPrice: &maxPrice, Page: 2, Limit: 2})
	hits, err := newTestEngine(t, fc).Search(context.Background(), c)
	require.NoError(t, err)

	assert.Equal(t, int64(42), hits.Total)
	require.Len(t, hits.Hits, 2)
	assert.Equal(t, "a", hits.Hits[0].ID)
	assert.JSONEq(t, `{"title": "Laptop", "price": 100}`, string(hits.Hits[0].Source))

	want, err := json.Marshal(c.Source())
	require.NoError(t, err)
	assert.JSONEq(t, string(want), fc.calls()[0].Body)
}

func TestSearch_BackendErrorIsStoreUnavailable(t *testing.T) {
	fc := newFakeCluster(t)
	fc.handle(http.MethodPost, "/products/_search", http.StatusInternalServerError, `{"error":{"type":"search_phase_execution_exception","reason":"all shards failed"},"status":500}`)

	_, err := newTestEngine(t, fc).Search(context.Background(), query.Build(domain.SearchRequest{}))
	require.Error(t, err)
	assert.ErrorIs(t, err, domain.ErrStoreUnavailable)
	assert.NotErrorIs(t, err, domain.ErrProductNotFound)
}

func TestSearch_PagePastResultWindowFetchesNothing(t *testing.T) {
	fc := newFakeCluster(t)
	fc.handle(http.MethodPost, "/products/_search", http.StatusOK, `{"hits":{"total":{"value":3},"hits":[]}}`)

	hits, err := newTestEngine(t, fc).Search(context.Background(), query.Build(domain.SearchRequest{Page: 1000, Limit: 100}))
	require.NoError(t, err)
	assert.Equal(t, int64(3), hits.Total)
	assert.Empty(t, hits.Hits)

	var sent struct {
		From int `json:"from"`
		Size int `json:"size"`
	}
	require.NoError(t, json.Unmarshal([]byte(fc.calls()[0].Body), &sent))
	assert.Zero(t, sent.From)
	assert.Zero(t, sent.Size)
}

func TestSearch_RejectedRequestIsNotStoreUnavailable(t *testing.T) {
	fc := newFakeCluster(t)
	fc.handle(http.MethodPost, "/products/_search", http.StatusBadRequest, `{"error":{"type":"illegal_argument_exception","reason":"Result window is too large, from + size must be less than or equal to: [10000]"},"status":400}`)

	_, err := newTestEngine(t, fc).Search(context.Background(), query.Build(domain.SearchRequest{}))
	require.Error(t, err)
	assert.ErrorIs(t, err, domain.ErrQueryRejected)
	assert.NotErrorIs(t, err, domain.ErrStoreUnavailable)
	assert.Equal(t, http.StatusBadRequest, apperrors.HTTPStatus(err))
	assert.Contains(t, err.Error(), "illegal_argument_exception")
}

func TestMissingIndexAnswersEmpty(t *testing.T) {
	fc := newFakeCluster(t)
	fc.handle(http.MethodPost, "/products/_search", http.StatusNotFound, `{"error":{"type":"index_not_found_exception","reason":"no such index [products]"},"status":404}`)
	eng := newTestEngine(t, fc)

	hits, err := eng.Search(context.Background(), query.Build(domain.SearchRequest{Query: "lamp"}))
	require.NoError(t, err)
	assert.Zero(t, hits.Total)
	assert.NotNil(t, hits.Hits)
	assert.Empty(t, hits.Hits)

	buckets, err := eng.AggregateDistinct(context.Background(), domain.FieldCategory, 100)
	require.NoError(t, err)
	assert.NotNil(t, buckets)
	assert.Empty(t, buckets)
}

func TestSearch_EmptyResultIsSuccess(t *testing.T) {
	fc := newFakeCluster(t)
	fc.handle(http.MethodPost, "/products/_search", http.StatusOK, `{"hits":{"total":{"value":0},"hits":[]}}`)

	hits, err := newTestEngine(t, fc).Search(context.Background(), query.Build(domain.SearchRequest{}))
	require.NoError(t, err)
	assert.Zero(t, hits.Total)
	assert.NotNil(t, hits.Hits)
}

func TestAggregateDistinct(t *testing.T) {
	fc := newFakeCluster(t)
	fc.handle(http.MethodPost, "/products/_search", http.StatusOK, `{
		"hits": {"total": {"value": 3}, "hits": []},
		"aggregations": {"category": {"buckets": [
			{"key": "electronics", "doc_count": 2},
			{"key": "furniture", "doc_count": 1}
		]}}
	}`)

	buckets, err := newTestEngine(t, fc).AggregateDistinct(context.Background(), "category", 100)
	require.NoError(t, err)
	assert.Equal(t, []domain.Bucket{{Key: "electronics", Count: 2}, {Key: "furniture", Count: 1}}, buckets)
	assert.JSONEq(t, `{"size":0,"aggs":{"category":{"terms":{"field":"category","size":100}}}}`, fc.calls()[0].Body)
}

func TestGetByID(t *testing.T) {
	fc := newFakeCluster(t)
	fc.handle(http.MethodGet, "/products/_doc/a", http.StatusOK, `{"_id":"a","found":true,"_source":{"title":"Laptop"}}`)
	fc.handle(http.MethodGet, "/products/_doc/missing", http.StatusNotFound, `{"_id":"missing","found":false}`)
	fc.handle(http.MethodGet, "/products/_doc/broken", http.StatusInternalServerError, `{"error":{"type":"exception","reason":"boom"},"status":500}`)

	eng := newTestEngine(t, fc)

	hit, err := eng.GetByID(context.Background(), "a")
	require.NoError(t, err)
	assert.Equal(t, "a", hit.ID)
	assert.JSONEq(t, `{"title":"Laptop"}`, string(hit.Source))

	_, err = eng.GetByID(context.Background(), "missing")
	assert.ErrorIs(t, err, domain.ErrProductNotFound)
	assert.NotErrorIs(t, err, domain.ErrStoreUnavailable)

	_, err = eng.GetByID(context.Background(), "broken")
	assert.ErrorIs(t, err, domain.ErrStoreUnavailable)
	assert.NotErrorIs(t, err, domain.ErrProductNotFound)
}

func TestUnreachableClusterIsStoreUnavailable(t *testing.T) {
	fc := newFakeCluster(t)
	eng := newTestEngine(t, fc)
	fc.server.Close()

	ctx := context.Background()
	assert.ErrorIs(t, eng.Ping(ctx), domain.ErrStoreUnavailable)

	_, err := eng.Search(ctx, query.Build(domain.SearchRequest{}))
	assert.ErrorIs(t, err, domain.ErrStoreUnavailable)

	_, err = eng.GetByID(ctx, "a")
	assert.ErrorIs(t, err, domain.ErrStoreUnavailable)
}
