package engine

import (
	"context"

	"github.com/Armandase/seconde-main/services/search/internal/domain"
	"github.com/Armandase/seconde-main/services/search/internal/query"
)

// Store is the document store holding Product documents. Every backend
// failure is reported wrapped with domain.ErrStoreUnavailable; an empty
// result is a success.
type Store interface {
	// EnsureIndex creates the product index with its mapping when absent.
	// It is idempotent and treats a concurrent "already exists" as success.
	EnsureIndex(ctx context.Context) error

	// Put upserts one product keyed by its id, then refreshes so the write
	// is visible to subsequent searches.
	Put(ctx context.Context, product *domain.Product) (domain.WriteResult, error)

	// BulkPut upserts many products in one call and reports each item.
	// Successful items stay stored when others fail.
	BulkPut(ctx context.Context, products []domain.Product) (*domain.BulkResult, error)

	// Search executes a compiled query. Total counts all matches.
	Search(ctx context.Context, q *query.Compiled) (*domain.Hits, error)

	// AggregateDistinct returns up to maxBuckets distinct values of field
	// across the whole index, most frequent first.
	AggregateDistinct(ctx context.Context, field string, maxBuckets int) ([]domain.Bucket, error)

	// GetByID returns domain.ErrProductNotFound when id is absent.
	GetByID(ctx context.Context, id string) (*domain.Hit, error)

	// Ping reports whether the store is reachable.
	Ping(ctx context.Context) error
}
