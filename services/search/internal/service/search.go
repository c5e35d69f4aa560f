// Package service orchestrates ingestion and retrieval of marketplace
// listings on top of a document store.
package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"math"
	"net/http"
	"time"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"

	apperrors "github.com/Armandase/seconde-main/pkg/errors"
	"github.com/Armandase/seconde-main/pkg/pagination"
	"github.com/Armandase/seconde-main/pkg/tracing"
	"github.com/Armandase/seconde-main/pkg/validator"
	"github.com/Armandase/seconde-main/services/search/internal/domain"
	"github.com/Armandase/seconde-main/services/search/internal/engine"
	"github.com/Armandase/seconde-main/services/search/internal/query"
)

const tracerName = "github.com/Armandase/seconde-main/services/search/internal/service"

// DefaultCategoryBuckets caps how many distinct categories are returned.
const DefaultCategoryBuckets = 100

// CategoryCache caches the distinct category list between writes. Set must
// discard the list when Invalidate ran after version was read.
type CategoryCache interface {
	Get(ctx context.Context) ([]string, bool, error)
	Version(ctx context.Context) (int64, error)
	Set(ctx context.Context, version int64, categories []string) error
	Invalidate(ctx context.Context) error
}

// SearchService implements the business logic of the search service.
type SearchService struct {
	store           engine.Store
	logger          *slog.Logger
	tracer          trace.Tracer
	categories      CategoryCache
	categoryBuckets int
	limits          pagination.Limits
	now             func() time.Time
}

// Option configures a SearchService.
type Option func(*SearchService)

// WithCategoryCache enables read-through caching of Categories.
func WithCategoryCache(c CategoryCache) Option {
	return func(s *SearchService) { s.categories = c }
}

// WithCategoryBuckets sets how many distinct categories Categories returns.
func WithCategoryBuckets(n int) Option {
	return func(s *SearchService) {
		if n > 0 {
			s.categoryBuckets = n
		}
	}
}

// WithLimits sets the default and maximum page size of Search.
func WithLimits(l pagination.Limits) Option {
	return func(s *SearchService) { s.limits = l }
}

// WithClock overrides the time source used to default createdAt.
func WithClock(now func() time.Time) Option {
	return func(s *SearchService) { s.now = now }
}

// NewSearchService creates a new search service.
func NewSearchService(store engine.Store, logger *slog.Logger, opts ...Option) *SearchService {
	s := &SearchService{
		store:           store,
		logger:          logger,
		tracer:          tracing.Tracer(tracerName),
		categoryBuckets: DefaultCategoryBuckets,
		limits:          pagination.DefaultLimits(),
		now:             time.Now,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Ingest validates and upserts one product. On success the product is
// visible to every later search.
func (s *SearchService) Ingest(ctx context.Context, product *domain.Product) (result domain.WriteResult, err error) {
	ctx, span := s.tracer.Start(ctx, "SearchService.Ingest",
		trace.WithAttributes(attribute.String("product.id", product.ID)))
	defer func() { tracing.EndSpan(span, err) }()

	if err := validator.Validate(product); err != nil {
		return domain.WriteResult{}, err
	}
	product.Normalize(s.now())

	result, err = s.store.Put(ctx, product)
	if err != nil {
		return domain.WriteResult{}, fmt.Errorf("ingest product %s: %w", product.ID, err)
	}
	s.invalidateCategories(ctx)

	s.logger.InfoContext(ctx, "product ingested",
		slog.String("product_id", product.ID),
		slog.String("result", result.Result),
	)

	return result, nil
}

// BulkIngest upserts products in one store call. Products failing
// validation are reported as failed items and never reach the store. The
// returned items follow the input order.
func (s *SearchService) BulkIngest(ctx context.Context, products []domain.Product) (result *domain.BulkResult, err error) {
	ctx, span := s.tracer.Start(ctx, "SearchService.BulkIngest",
		trace.WithAttributes(attribute.Int("products.count", len(products))))
	defer func() { tracing.EndSpan(span, err) }()

	items := make([]domain.BulkItemResult, len(products))
	valid := make([]domain.Product, 0, len(products))
	positions := make([]int, 0, len(products))
	now := s.now()

	for i := range products {
		p := products[i]
		if vErr := validator.Validate(&p); vErr != nil {
			items[i] = domain.BulkItemResult{
				ID:     p.ID,
				Status: http.StatusBadRequest,
				Result: domain.ResultFailed,
				Error:  vErr.Error(),
			}
			continue
		}
		p.Normalize(now)
		valid = append(valid, p)
		positions = append(positions, i)
	}

	result = &domain.BulkResult{Items: items}
	if len(valid) == 0 {
		return result, nil
	}

	stored, err := s.store.BulkPut(ctx, valid)
	if err != nil {
		return nil, fmt.Errorf("bulk ingest %d products: %w", len(valid), err)
	}
	if len(stored.Items) != len(valid) {
		return nil, apperrors.Internal(fmt.Errorf("bulk ingest: store reported %d items for %d documents", len(stored.Items), len(valid)))
	}

	for j, item := range stored.Items {
		items[positions[j]] = item
	}
	result.Refreshed = stored.Refreshed

	if result.Indexed() > 0 {
		s.invalidateCategories(ctx)
	}

	s.logger.InfoContext(ctx, "bulk ingest completed",
		slog.Int("count", len(products)),
		slog.Int("indexed", result.Indexed()),
		slog.Int("failed", len(result.Failed())),
	)

	return result, nil
}

// Search returns one page of products matching req, newest first.
func (s *SearchService) Search(ctx context.Context, req domain.SearchRequest) (result *domain.SearchResult, err error) {
	ctx, span := s.tracer.Start(ctx, "SearchService.Search",
		trace.WithAttributes(
			attribute.String("search.query", req.Query),
			attribute.String("search.category", req.Category),
		))
	defer func() { tracing.EndSpan(span, err) }()

	if err := validatePriceBounds(req.MinPrice, req.MaxPrice); err != nil {
		return nil, err
	}

	if req.Page < 1 {
		req.Page = 1
	}
	switch {
	case req.Limit < 1:
		req.Limit = s.limits.DefaultSize
	case req.Limit > s.limits.MaxSize:
		req.Limit = s.limits.MaxSize
	}

	hits, err := s.store.Search(ctx, query.Build(req))
	if err != nil {
		return nil, fmt.Errorf("search: %w", err)
	}

	result, err = project(hits, req.Page, req.Limit)
	if err != nil {
		return nil, apperrors.Internal(fmt.Errorf("search: %w", err))
	}

	span.SetAttributes(attribute.Int64("search.total", result.Total))
	s.logger.DebugContext(ctx, "search executed",
		slog.String("query", req.Query),
		slog.Int64("total", result.Total),
		slog.Int("page", req.Page),
	)

	return result, nil
}

// Get returns the product stored under id.
func (s *SearchService) Get(ctx context.Context, id string) (product *domain.Product, err error) {
	ctx, span := s.tracer.Start(ctx, "SearchService.Get",
		trace.WithAttributes(attribute.String("product.id", id)))
	defer func() {
		if errors.Is(err, domain.ErrProductNotFound) {
			span.End()
			return
		}
		tracing.EndSpan(span, err)
	}()

	if id == "" {
		return nil, apperrors.InvalidParameter("id", "is required")
	}

	hit, err := s.store.GetByID(ctx, id)
	if err != nil {
		if errors.Is(err, domain.ErrProductNotFound) {
			notFound := apperrors.NotFound("product", id)
			notFound.Err = err
			return nil, notFound
		}
		return nil, fmt.Errorf("get product %s: %w", id, err)
	}

	product, err = decodeHit(*hit)
	if err != nil {
		return nil, apperrors.Internal(fmt.Errorf("get product %s: %w", id, err))
	}
	return product, nil
}

func validatePriceBounds(minPrice, maxPrice *float64) error {
	for _, b := range []struct {
		name  string
		value *float64
	}{{"minPrice", minPrice}, {"maxPrice", maxPrice}} {
		if b.value == nil {
			continue
		}
		v := *b.value
		if math.IsNaN(v) || math.IsInf(v, 0) {
			return apperrors.InvalidParameter(b.name, "must be a finite number")
		}
		if v < 0 {
			return apperrors.InvalidParameter(b.name, "must not be negative")
		}
	}
	if minPrice != nil && maxPrice != nil && *minPrice > *maxPrice {
		return apperrors.InvalidParameter("minPrice", "must not exceed maxPrice")
	}
	return nil
}
