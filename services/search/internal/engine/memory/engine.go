package memory

import (
	"cmp"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"slices"
	"sync"
	"unicode/utf8"

	"github.com/blevesearch/bleve/v2"
	"github.com/blevesearch/bleve/v2/analysis/analyzer/custom"
	"github.com/blevesearch/bleve/v2/analysis/token/lowercase"
	"github.com/blevesearch/bleve/v2/analysis/tokenizer/unicode"
	"github.com/blevesearch/bleve/v2/mapping"
	"github.com/blevesearch/bleve/v2/search"
	bq "github.com/blevesearch/bleve/v2/search/query"

	"github.com/Armandase/seconde-main/pkg/database"
	"github.com/Armandase/seconde-main/services/search/internal/domain"
	"github.com/Armandase/seconde-main/services/search/internal/engine"
	"github.com/Armandase/seconde-main/services/search/internal/query"
)

const (
	engineName   = database.SystemBleve
	indexLabel   = "memory"
	textAnalyzer = "product_text"
)

var errClosed = errors.New("index is closed")

// Engine is an in-process engine.Store backed by a memory-only bleve index
// with the same field semantics as the Elasticsearch mapping. Sources are
// kept verbatim next to the index so hits return exactly what was stored.
type Engine struct {
	mu      sync.RWMutex
	index   bleve.Index
	mapping *mapping.IndexMappingImpl
	sources map[string]json.RawMessage
	closed  bool
}

var _ engine.Store = (*Engine)(nil)

// New creates an empty in-memory engine.
func New() (*Engine, error) {
	im, err := newIndexMapping()
	if err != nil {
		return nil, fmt.Errorf("memory engine: build mapping: %w", err)
	}

	idx, err := bleve.NewMemOnly(im)
	if err != nil {
		return nil, fmt.Errorf("memory engine: create index: %w", err)
	}

	return &Engine{
		index:   idx,
		mapping: im,
		sources: make(map[string]json.RawMessage),
	}, nil
}

func newIndexMapping() (*mapping.IndexMappingImpl, error) {
	im := bleve.NewIndexMapping()
	err := im.AddCustomAnalyzer(textAnalyzer, map[string]any{
		"type":          custom.Name,
		"tokenizer":     unicode.Name,
		"token_filters": []string{lowercase.Name},
	})
	if err != nil {
		return nil, err
	}

	text := bleve.NewTextFieldMapping()
	text.Analyzer = textAnalyzer

	doc := bleve.NewDocumentStaticMapping()
	doc.AddFieldMappingsAt(domain.FieldTitle, text)
	doc.AddFieldMappingsAt(domain.FieldDescription, text)
	doc.AddFieldMappingsAt(domain.FieldPrice, bleve.NewNumericFieldMapping())
	doc.AddFieldMappingsAt(domain.FieldCreatedAt, bleve.NewDateTimeFieldMapping())
	for _, f := range []string{
		domain.FieldID, domain.FieldCategory, domain.FieldCondition, domain.FieldLocation,
		domain.FieldImageURL, domain.FieldSource, domain.FieldURL,
	} {
		doc.AddFieldMappingsAt(f, bleve.NewKeywordFieldMapping())
	}

	im.DefaultMapping = doc
	im.DefaultAnalyzer = textAnalyzer
	return im, nil
}

// document is the indexed view of a product.
func document(p *domain.Product) map[string]any {
	return map[string]any{
		domain.FieldID:          p.ID,
		domain.FieldTitle:       p.Title,
		domain.FieldDescription: p.Description,
		domain.FieldPrice:       p.Price,
		domain.FieldCategory:    p.Category,
		domain.FieldCondition:   p.Condition,
		domain.FieldLocation:    p.Location,
		domain.FieldImageURL:    p.ImageURL,
		domain.FieldSource:      p.Source,
		domain.FieldURL:         p.URL,
		domain.FieldCreatedAt:   p.CreatedAt,
	}
}

// EnsureIndex is a no-op: the index exists from New on.
func (e *Engine) EnsureIndex(_ context.Context) error {
	e.mu.RLock()
	defer e.mu.RUnlock()
	if e.closed {
		return domain.StoreFailure("ensure index", errClosed)
	}
	return nil
}

// Ping reports an error once the engine is closed.
func (e *Engine) Ping(_ context.Context) error {
	e.mu.RLock()
	defer e.mu.RUnlock()
	if e.closed {
		return domain.StoreFailure("ping", errClosed)
	}
	return nil
}

// Put upserts one product. Bleve writes are visible as soon as they return.
func (e *Engine) Put(ctx context.Context, product *domain.Product) (result domain.WriteResult, err error) {
	ctx, end := engine.Instrument(ctx, engineName, "put", indexLabel)
	defer func() { end(err) }()

	if err := ctx.Err(); err != nil {
		return domain.WriteResult{}, domain.StoreFailure("put", err)
	}

	raw, err := json.Marshal(product)
	if err != nil {
		return domain.WriteResult{}, fmt.Errorf("memory put: marshal product: %w", err)
	}

	e.mu.Lock()
	defer e.mu.Unlock()

	if e.closed {
		return domain.WriteResult{}, domain.StoreFailure("put", errClosed)
	}
	if err := e.index.Index(product.ID, document(product)); err != nil {
		return domain.WriteResult{}, domain.StoreFailure("put", err)
	}

	outcome := domain.ResultCreated
	if _, ok := e.sources[product.ID]; ok {
		outcome = domain.ResultUpdated
	}
	e.sources[product.ID] = raw

	return domain.WriteResult{ID: product.ID, Result: outcome, Refreshed: true}, nil
}

// BulkPut upserts products in one bleve batch. Documents that cannot be
// encoded are reported as failed items and the rest are still written.
func (e *Engine) BulkPut(ctx context.Context, products []domain.Product) (result *domain.BulkResult, err error) {
	ctx, end := engine.Instrument(ctx, engineName, "bulk_put", indexLabel)
	defer func() { end(err) }()

	if err := ctx.Err(); err != nil {
		return nil, domain.StoreFailure("bulk put", err)
	}

	e.mu.Lock()
	defer e.mu.Unlock()

	if e.closed {
		return nil, domain.StoreFailure("bulk put", errClosed)
	}

	batch := e.index.NewBatch()
	result = &domain.BulkResult{Items: make([]domain.BulkItemResult, 0, len(products))}
	staged := make(map[string]json.RawMessage, len(products))

	for i := range products {
		p := &products[i]
		item := domain.BulkItemResult{ID: p.ID}

		raw, mErr := json.Marshal(p)
		if mErr == nil {
			mErr = batch.Index(p.ID, document(p))
		}
		if mErr != nil {
			item.Status = http.StatusBadRequest
			item.Result = domain.ResultFailed
			item.Error = mErr.Error()
			result.Items = append(result.Items, item)
			continue
		}

		_, existed := e.sources[p.ID]
		_, stagedBefore := staged[p.ID]
		if existed || stagedBefore {
			item.Status, item.Result = http.StatusOK, domain.ResultUpdated
		} else {
			item.Status, item.Result = http.StatusCreated, domain.ResultCreated
		}
		staged[p.ID] = raw
		result.Items = append(result.Items, item)
	}

	if err := e.index.Batch(batch); err != nil {
		return nil, domain.StoreFailure("bulk put", err)
	}
	for id, raw := range staged {
		e.sources[id] = raw
	}

	result.Refreshed = true
	return result, nil
}

// Search translates the compiled query into bleve queries.
func (e *Engine) Search(ctx context.Context, q *query.Compiled) (hits *domain.Hits, err error) {
	ctx, end := engine.Instrument(ctx, engineName, "search", indexLabel)
	defer func() { end(err) }()

	bleveQuery, err := e.translate(q.Query)
	if err != nil {
		return nil, fmt.Errorf("memory search: %w", err)
	}

	req := bleve.NewSearchRequestOptions(bleveQuery, q.Size, q.From, false)
	req.SortByCustom(sortOrder(q.Sort))

	e.mu.RLock()
	defer e.mu.RUnlock()

	if e.closed {
		return nil, domain.StoreFailure("search", errClosed)
	}
	res, err := e.index.SearchInContext(ctx, req)
	if err != nil {
		return nil, domain.StoreFailure("search", err)
	}

	hits = &domain.Hits{Total: int64(res.Total), Hits: make([]domain.Hit, 0, len(res.Hits))}
	for _, m := range res.Hits {
		hits.Hits = append(hits.Hits, domain.Hit{ID: m.ID, Source: e.sources[m.ID]})
	}
	return hits, nil
}

// AggregateDistinct computes a terms facet over field, most frequent first
// and ties by key.
func (e *Engine) AggregateDistinct(ctx context.Context, field string, maxBuckets int) (buckets []domain.Bucket, err error) {
	ctx, end := engine.Instrument(ctx, engineName, "aggregate", indexLabel)
	defer func() { end(err) }()

	req := bleve.NewSearchRequestOptions(bleve.NewMatchAllQuery(), 0, 0, false)
	req.AddFacet(field, bleve.NewFacetRequest(field, maxBuckets))

	e.mu.RLock()
	defer e.mu.RUnlock()

	if e.closed {
		return nil, domain.StoreFailure("aggregate", errClosed)
	}
	res, err := e.index.SearchInContext(ctx, req)
	if err != nil {
		return nil, domain.StoreFailure("aggregate", err)
	}

	buckets = make([]domain.Bucket, 0)
	if facet, ok := res.Facets[field]; ok && facet.Terms != nil {
		for _, t := range facet.Terms.Terms() {
			buckets = append(buckets, domain.Bucket{Key: t.Term, Count: int64(t.Count)})
		}
	}
	slices.SortStableFunc(buckets, func(a, b domain.Bucket) int {
		if c := cmp.Compare(b.Count, a.Count); c != 0 {
			return c
		}
		return cmp.Compare(a.Key, b.Key)
	})
	if maxBuckets > 0 && len(buckets) > maxBuckets {
		buckets = buckets[:maxBuckets]
	}
	return buckets, nil
}

// GetByID returns the stored source of id.
func (e *Engine) GetByID(ctx context.Context, id string) (hit *domain.Hit, err error) {
	ctx, end := engine.Instrument(ctx, engineName, "get", indexLabel)
	defer func() {
		if errors.Is(err, domain.ErrProductNotFound) {
			end(nil)
			return
		}
		end(err)
	}()

	if err := ctx.Err(); err != nil {
		return nil, domain.StoreFailure("get", err)
	}

	e.mu.RLock()
	defer e.mu.RUnlock()

	if e.closed {
		return nil, domain.StoreFailure("get", errClosed)
	}

	raw, ok := e.sources[id]
	if !ok {
		return nil, fmt.Errorf("get %q: %w", id, domain.ErrProductNotFound)
	}
	return &domain.Hit{ID: id, Source: raw}, nil
}

// Close releases the index. Every later call fails with ErrStoreUnavailable.
func (e *Engine) Close() error {
	e.mu.Lock()
	defer e.mu.Unlock()
	if e.closed {
		return nil
	}
	e.closed = true
	return e.index.Close()
}

func (e *Engine) translate(c query.Clause) (bq.Query, error) {
	switch q := c.(type) {
	case query.MatchAll:
		return bleve.NewMatchAllQuery(), nil
	case query.MultiMatch:
		return e.multiMatch(q)
	case query.Term:
		t := bleve.NewTermQuery(q.Value)
		t.SetField(q.Field)
		return t, nil
	case query.Range:
		if q.GTE == nil && q.LTE == nil {
			return bleve.NewMatchAllQuery(), nil
		}
		inclusive := true
		r := bleve.NewNumericRangeInclusiveQuery(q.GTE, q.LTE, &inclusive, &inclusive)
		r.SetField(q.Field)
		return r, nil
	case query.Bool:
		conj := bleve.NewConjunctionQuery()
		for _, m := range q.Must {
			sub, err := e.translate(m)
			if err != nil {
				return nil, err
			}
			conj.AddQuery(sub)
		}
		for _, f := range q.Filter {
			sub, err := e.translate(f)
			if err != nil {
				return nil, err
			}
			conj.AddQuery(sub)
		}
		return conj, nil
	default:
		return nil, fmt.Errorf("unsupported clause %T", c)
	}
}

// multiMatch matches any analyzed term of the text against any field. Each
// term tolerates the edit distance AUTO fuzziness grants its length.
func (e *Engine) multiMatch(q query.MultiMatch) (bq.Query, error) {
	tokens, err := e.mapping.AnalyzeText(textAnalyzer, []byte(q.Text))
	if err != nil {
		return nil, fmt.Errorf("analyze query text: %w", err)
	}

	seen := make(map[string]bool, len(tokens))
	disj := bleve.NewDisjunctionQuery()
	for _, tok := range tokens {
		term := string(tok.Term)
		if seen[term] {
			continue
		}
		seen[term] = true

		fuzziness := query.AutoFuzziness(utf8.RuneCountInString(term))
		for _, f := range q.Fields {
			boost := f.Boost
			if boost == 0 {
				boost = 1
			}
			if fuzziness == 0 {
				t := bleve.NewTermQuery(term)
				t.SetField(f.Name)
				t.SetBoost(boost)
				disj.AddQuery(t)
				continue
			}
			fq := bleve.NewFuzzyQuery(term)
			fq.SetField(f.Name)
			fq.SetFuzziness(fuzziness)
			fq.SetBoost(boost)
			disj.AddQuery(fq)
		}
	}

	if len(seen) == 0 {
		return bleve.NewMatchNoneQuery(), nil
	}
	return disj, nil
}

func sortOrder(fields []query.SortField) search.SortOrder {
	order := make(search.SortOrder, 0, len(fields))
	for _, f := range fields {
		switch f.Field {
		case domain.FieldID:
			order = append(order, &search.SortDocID{Desc: f.Desc})
		case domain.FieldCreatedAt:
			order = append(order, &search.SortField{Field: f.Field, Desc: f.Desc, Type: search.SortFieldAsDate, Missing: search.SortFieldMissingLast})
		case domain.FieldPrice:
			order = append(order, &search.SortField{Field: f.Field, Desc: f.Desc, Type: search.SortFieldAsNumber, Missing: search.SortFieldMissingLast})
		default:
			order = append(order, &search.SortField{Field: f.Field, Desc: f.Desc, Type: search.SortFieldAsString, Missing: search.SortFieldMissingLast})
		}
	}
	return order
}
