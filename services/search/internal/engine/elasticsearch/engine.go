package elasticsearch

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"strings"

	"github.com/elastic/go-elasticsearch/v8"
	"github.com/elastic/go-elasticsearch/v8/esapi"

	"github.com/Armandase/seconde-main/pkg/database"
	"github.com/Armandase/seconde-main/services/search/internal/domain"
	"github.com/Armandase/seconde-main/services/search/internal/engine"
	"github.com/Armandase/seconde-main/services/search/internal/query"
)

const engineName = database.SystemElasticsearch

// Config holds the Elasticsearch connection settings.
type Config struct {
	Addresses []string
	Index     string
	Username  string
	Password  string
}

// Engine is an Elasticsearch-backed implementation of engine.Store.
type Engine struct {
	client    *elasticsearch.Client
	indexName string
	logger    *slog.Logger
}

var _ engine.Store = (*Engine)(nil)

type esSearchResponse struct {
	Hits struct {
		Total struct {
			Value int64 `json:"value"`
		} `json:"total"`
		Hits []struct {
			ID     string          `json:"_id"`
			Source json.RawMessage `json:"_source"`
		} `json:"hits"`
	} `json:"hits"`
	Aggregations map[string]struct {
		Buckets []struct {
			Key      string `json:"key"`
			DocCount int64  `json:"doc_count"`
		} `json:"buckets"`
	} `json:"aggregations"`
}

type esGetResponse struct {
	ID     string          `json:"_id"`
	Found  bool            `json:"found"`
	Source json.RawMessage `json:"_source"`
}

type esIndexResponse struct {
	ID     string `json:"_id"`
	Result string `json:"result"`
}

type esBulkResponse struct {
	Errors bool `json:"errors"`
	Items  []map[string]struct {
		ID     string `json:"_id"`
		Status int    `json:"status"`
		Result string `json:"result"`
		Error  *struct {
			Type   string `json:"type"`
			Reason string `json:"reason"`
		} `json:"error"`
	} `json:"items"`
}

type esErrorResponse struct {
	Error struct {
		Type   string `json:"type"`
		Reason string `json:"reason"`
	} `json:"error"`
	Status int `json:"status"`
}

// New creates an engine for the given cluster. It does not contact the
// cluster; call EnsureIndex to create the index.
func New(cfg Config, logger *slog.Logger) (*Engine, error) {
	if cfg.Index == "" {
		cfg.Index = DefaultIndexName
	}

	client, err := elasticsearch.NewClient(elasticsearch.Config{
		Addresses: cfg.Addresses,
		Username:  cfg.Username,
		Password:  cfg.Password,
	})
	if err != nil {
		return nil, fmt.Errorf("elasticsearch: create client: %w", err)
	}

	return &Engine{
		client:    client,
		indexName: cfg.Index,
		logger:    logger,
	}, nil
}

// Index returns the name of the index the engine reads and writes.
func (e *Engine) Index() string {
	return e.indexName
}

// Ping checks whether the Elasticsearch cluster is reachable.
func (e *Engine) Ping(ctx context.Context) error {
	res, err := e.client.Ping(e.client.Ping.WithContext(ctx))
	if err != nil {
		return domain.StoreFailure("ping", err)
	}
	defer closeBody(res)

	if res.IsError() {
		return domain.StoreFailure("ping", fmt.Errorf("unexpected status %s", res.Status()))
	}
	return nil
}

// EnsureIndex creates the products index when it does not exist yet.
func (e *Engine) EnsureIndex(ctx context.Context) (err error) {
	ctx, end := engine.Instrument(ctx, engineName, "ensure_index", e.indexName)
	defer func() { end(err) }()

	res, err := e.client.Indices.Exists([]string{e.indexName}, e.client.Indices.Exists.WithContext(ctx))
	if err != nil {
		return domain.StoreFailure("check index exists", err)
	}
	closeBody(res)

	switch res.StatusCode {
	case http.StatusOK:
		e.logger.InfoContext(ctx, "elasticsearch index already exists", slog.String("index", e.indexName))
		return nil
	case http.StatusNotFound:
	default:
		return domain.StoreFailure("check index exists", fmt.Errorf("unexpected status %s", res.Status()))
	}

	res, err = e.client.Indices.Create(
		e.indexName,
		e.client.Indices.Create.WithBody(strings.NewReader(indexMapping)),
		e.client.Indices.Create.WithContext(ctx),
	)
	if err != nil {
		return domain.StoreFailure("create index", err)
	}
	defer closeBody(res)

	if res.IsError() {
		esErr := decodeError(res)
		if esErr.Error.Type == "resource_already_exists_exception" {
			e.logger.InfoContext(ctx, "elasticsearch index created concurrently", slog.String("index", e.indexName))
			return nil
		}
		return domain.StoreFailure("create index", esErr.asError(res))
	}

	e.logger.InfoContext(ctx, "elasticsearch index created", slog.String("index", e.indexName))
	return nil
}

// Put upserts a single product, then refreshes the index.
func (e *Engine) Put(ctx context.Context, product *domain.Product) (result domain.WriteResult, err error) {
	ctx, end := engine.Instrument(ctx, engineName, "put", e.indexName)
	defer func() { end(err) }()

	data, err := json.Marshal(product)
	if err != nil {
		return domain.WriteResult{}, fmt.Errorf("elasticsearch put: marshal product: %w", err)
	}

	res, err := e.client.Index(
		e.indexName,
		bytes.NewReader(data),
		e.client.Index.WithDocumentID(product.ID),
		e.client.Index.WithContext(ctx),
	)
	if err != nil {
		return domain.WriteResult{}, domain.StoreFailure("put", err)
	}
	defer closeBody(res)

	if res.IsError() {
		return domain.WriteResult{}, domain.StoreFailure("put", decodeError(res).asError(res))
	}

	var indexed esIndexResponse
	if err := json.NewDecoder(res.Body).Decode(&indexed); err != nil {
		return domain.WriteResult{}, domain.StoreFailure("put", fmt.Errorf("decode response: %w", err))
	}

	if err := e.refresh(ctx); err != nil {
		return domain.WriteResult{}, err
	}

	e.logger.DebugContext(ctx, "indexed product", slog.String("product_id", product.ID))
	return domain.WriteResult{ID: product.ID, Result: indexed.Result, Refreshed: true}, nil
}

// BulkPut upserts products with the bulk NDJSON API, then refreshes the
// index. Item failures are reported in the result, not as an error.
func (e *Engine) BulkPut(ctx context.Context, products []domain.Product) (result *domain.BulkResult, err error) {
	if len(products) == 0 {
		return &domain.BulkResult{Items: []domain.BulkItemResult{}, Refreshed: true}, nil
	}

	ctx, end := engine.Instrument(ctx, engineName, "bulk_put", e.indexName)
	defer func() { end(err) }()

	var buf bytes.Buffer
	enc := json.NewEncoder(&buf)
	for i := range products {
		action := map[string]any{"index": map[string]any{"_index": e.indexName, "_id": products[i].ID}}
		if err := enc.Encode(action); err != nil {
			return nil, fmt.Errorf("elasticsearch bulk put: encode action: %w", err)
		}
		if err := enc.Encode(products[i]); err != nil {
			return nil, fmt.Errorf("elasticsearch bulk put: encode document: %w", err)
		}
	}

	res, err := e.client.Bulk(
		bytes.NewReader(buf.Bytes()),
		e.client.Bulk.WithIndex(e.indexName),
		e.client.Bulk.WithContext(ctx),
	)
	if err != nil {
		return nil, domain.StoreFailure("bulk put", err)
	}
	defer closeBody(res)

	if res.IsError() {
		return nil, domain.StoreFailure("bulk put", decodeError(res).asError(res))
	}

	var bulkResp esBulkResponse
	if err := json.NewDecoder(res.Body).Decode(&bulkResp); err != nil {
		return nil, domain.StoreFailure("bulk put", fmt.Errorf("decode response: %w", err))
	}

	result = &domain.BulkResult{Items: make([]domain.BulkItemResult, 0, len(bulkResp.Items))}
	for _, item := range bulkResp.Items {
		for _, op := range item {
			r := domain.BulkItemResult{ID: op.ID, Status: op.Status, Result: op.Result}
			if op.Error != nil {
				r.Result = domain.ResultFailed
				r.Error = op.Error.Type + ": " + op.Error.Reason
			}
			result.Items = append(result.Items, r)
		}
	}

	if err := e.refresh(ctx); err != nil {
		return nil, err
	}
	result.Refreshed = true

	if bulkResp.Errors {
		e.logger.WarnContext(ctx, "bulk put completed with item failures",
			slog.Int("count", len(products)),
			slog.Int("failed", len(result.Failed())),
		)
	} else {
		e.logger.InfoContext(ctx, "bulk put completed", slog.Int("count", len(products)))
	}
	return result, nil
}

func (e *Engine) refresh(ctx context.Context) error {
	res, err := e.client.Indices.Refresh(
		e.client.Indices.Refresh.WithIndex(e.indexName),
		e.client.Indices.Refresh.WithContext(ctx),
	)
	if err != nil {
		return domain.StoreFailure("refresh", err)
	}
	defer closeBody(res)

	if res.IsError() {
		return domain.StoreFailure("refresh", decodeError(res).asError(res))
	}
	return nil
}

// Search executes a compiled query.
func (e *Engine) Search(ctx context.Context, q *query.Compiled) (hits *domain.Hits, err error) {
	ctx, end := engine.Instrument(ctx, engineName, "search", e.indexName)
	defer func() { end(err) }()

	resp, err := e.search(ctx, "search", q.Source())
	if err != nil {
		return nil, err
	}

	hits = &domain.Hits{
		Total: resp.Hits.Total.Value,
		Hits:  make([]domain.Hit, 0, len(resp.Hits.Hits)),
	}
	for _, h := range resp.Hits.Hits {
		hits.Hits = append(hits.Hits, domain.Hit{ID: h.ID, Source: h.Source})
	}
	return hits, nil
}

// AggregateDistinct runs a zero-hit terms aggregation over field.
func (e *Engine) AggregateDistinct(ctx context.Context, field string, maxBuckets int) (buckets []domain.Bucket, err error) {
	ctx, end := engine.Instrument(ctx, engineName, "aggregate", e.indexName)
	defer func() { end(err) }()

	body := map[string]any{
		"size": 0,
		"aggs": map[string]any{
			field: map[string]any{"terms": map[string]any{"field": field, "size": maxBuckets}},
		},
	}

	resp, err := e.search(ctx, "aggregate", body)
	if err != nil {
		return nil, err
	}

	agg := resp.Aggregations[field]
	buckets = make([]domain.Bucket, 0, len(agg.Buckets))
	for _, b := range agg.Buckets {
		buckets = append(buckets, domain.Bucket{Key: b.Key, Count: b.DocCount})
	}
	return buckets, nil
}

func (e *Engine) search(ctx context.Context, op string, body map[string]any) (*esSearchResponse, error) {
	data, err := json.Marshal(body)
	if err != nil {
		return nil, fmt.Errorf("elasticsearch %s: marshal query: %w", op, err)
	}

	res, err := e.client.Search(
		e.client.Search.WithIndex(e.indexName),
		e.client.Search.WithBody(bytes.NewReader(data)),
		e.client.Search.WithContext(ctx),
	)
	if err != nil {
		return nil, domain.StoreFailure(op, err)
	}
	defer closeBody(res)

	switch {
	case res.StatusCode == http.StatusNotFound:
		// The index has not been created yet: nothing to find.
		e.logger.WarnContext(ctx, "elasticsearch index missing, answering empty",
			slog.String("index", e.indexName),
			slog.String("operation", op),
		)
		return &esSearchResponse{}, nil
	case res.StatusCode >= 400 && res.StatusCode < 500:
		return nil, domain.QueryRejected(op, decodeError(res).asError(res))
	case res.IsError():
		return nil, domain.StoreFailure(op, decodeError(res).asError(res))
	}

	var resp esSearchResponse
	if err := json.NewDecoder(res.Body).Decode(&resp); err != nil {
		return nil, domain.StoreFailure(op, fmt.Errorf("decode response: %w", err))
	}
	return &resp, nil
}

// GetByID fetches a single document. A missing document or a missing index
// is reported as domain.ErrProductNotFound.
func (e *Engine) GetByID(ctx context.Context, id string) (hit *domain.Hit, err error) {
	ctx, end := engine.Instrument(ctx, engineName, "get", e.indexName)
	defer func() {
		if errors.Is(err, domain.ErrProductNotFound) {
			end(nil)
			return
		}
		end(err)
	}()

	res, err := e.client.Get(e.indexName, id, e.client.Get.WithContext(ctx))
	if err != nil {
		return nil, domain.StoreFailure("get", err)
	}
	defer closeBody(res)

	if res.StatusCode == http.StatusNotFound {
		return nil, fmt.Errorf("get %q: %w", id, domain.ErrProductNotFound)
	}
	if res.IsError() {
		return nil, domain.StoreFailure("get", decodeError(res).asError(res))
	}

	var doc esGetResponse
	if err := json.NewDecoder(res.Body).Decode(&doc); err != nil {
		return nil, domain.StoreFailure("get", fmt.Errorf("decode response: %w", err))
	}
	if !doc.Found {
		return nil, fmt.Errorf("get %q: %w", id, domain.ErrProductNotFound)
	}
	return &domain.Hit{ID: doc.ID, Source: doc.Source}, nil
}

// DeleteIndex removes the entire index. It is intended for tests and
// administrative cleanup; a missing index is not an error.
func (e *Engine) DeleteIndex(ctx context.Context) error {
	res, err := e.client.Indices.Delete([]string{e.indexName}, e.client.Indices.Delete.WithContext(ctx))
	if err != nil {
		return domain.StoreFailure("delete index", err)
	}
	defer closeBody(res)

	if res.IsError() && res.StatusCode != http.StatusNotFound {
		return domain.StoreFailure("delete index", decodeError(res).asError(res))
	}

	e.logger.InfoContext(ctx, "elasticsearch index deleted", slog.String("index", e.indexName))
	return nil
}

func decodeError(res *esapi.Response) esErrorResponse {
	var errResp esErrorResponse
	_ = json.NewDecoder(res.Body).Decode(&errResp)
	return errResp
}

func (r esErrorResponse) asError(res *esapi.Response) error {
	if r.Error.Type != "" {
		return fmt.Errorf("%s: %s: %s", res.Status(), r.Error.Type, r.Error.Reason)
	}
	return fmt.Errorf("unexpected status %s", res.Status())
}

func closeBody(res *esapi.Response) {
	_, _ = io.Copy(io.Discard, res.Body)
	_ = res.Body.Close()
}
