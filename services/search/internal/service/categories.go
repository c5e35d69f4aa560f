package service

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/Armandase/seconde-main/pkg/tracing"
	"github.com/Armandase/seconde-main/services/search/internal/domain"
)

// Categories lists the distinct category values present in the index, most
// frequent first. The list is served from the cache when one is configured;
// cache failures fall back to the store. A list aggregated while a write
// invalidated the cache is returned but not cached.
func (s *SearchService) Categories(ctx context.Context) (categories []string, err error) {
	ctx, span := s.tracer.Start(ctx, "SearchService.Categories")
	defer func() { tracing.EndSpan(span, err) }()

	var (
		version  int64
		storable bool
	)
	if s.categories != nil {
		cached, ok, cErr := s.categories.Get(ctx)
		switch {
		case cErr != nil:
			s.logger.WarnContext(ctx, "category cache read failed", slog.String("error", cErr.Error()))
		case ok:
			return cached, nil
		}

		// Taken before aggregating so a write landing meanwhile voids the result.
		if v, vErr := s.categories.Version(ctx); vErr != nil {
			s.logger.WarnContext(ctx, "category cache version read failed", slog.String("error", vErr.Error()))
		} else {
			version, storable = v, true
		}
	}

	buckets, err := s.store.AggregateDistinct(ctx, domain.FieldCategory, s.categoryBuckets)
	if err != nil {
		return nil, fmt.Errorf("list categories: %w", err)
	}

	categories = make([]string, 0, len(buckets))
	for _, b := range buckets {
		categories = append(categories, b.Key)
	}

	if storable {
		if cErr := s.categories.Set(ctx, version, categories); cErr != nil {
			s.logger.WarnContext(ctx, "category cache write failed", slog.String("error", cErr.Error()))
		}
	}

	return categories, nil
}

func (s *SearchService) invalidateCategories(ctx context.Context) {
	if s.categories == nil {
		return
	}
	if err := s.categories.Invalidate(ctx); err != nil {
		s.logger.WarnContext(ctx, "category cache invalidation failed", slog.String("error", err.Error()))
	}
}
