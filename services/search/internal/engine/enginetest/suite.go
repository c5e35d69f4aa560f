// Package enginetest holds behaviour tests every engine.Store implementation
// must pass.
package enginetest

import (
	"context"
	"encoding/json"
	"fmt"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Armandase/seconde-main/services/search/internal/domain"
	"github.com/Armandase/seconde-main/services/search/internal/engine"
	"github.com/Armandase/seconde-main/services/search/internal/query"
)

// Factory returns an empty store with its index already ensured.
type Factory func(t *testing.T) engine.Store

var base = time.Date(2026, 5, 1, 12, 0, 0, 0, time.UTC)

// Product builds a fixture created minutesAgo minutes before a fixed instant.
func Product(id, title, category string, price float64, minutesAgo int) domain.Product {
	return domain.Product{
		ID:          id,
		Title:       title,
		Description: "second-hand " + title,
		Price:       price,
		Category:    category,
		Condition:   "used",
		Location:    "Paris",
		ImageURL:    "https://img.example.com/" + id + ".jpg",
		Source:      "mock",
		URL:         "https://example.com/listing/" + id,
		CreatedAt:   base.Add(-time.Duration(minutesAgo) * time.Minute),
	}
}

// Run executes the suite against stores built by newStore.
func Run(t *testing.T, newStore Factory) {
	t.Run("EnsureIndexIsIdempotent", func(t *testing.T) {
		s := newStore(t)
		require.NoError(t, s.EnsureIndex(context.Background()))
		require.NoError(t, s.EnsureIndex(context.Background()))
	})

	t.Run("PutIsVisibleImmediately", func(t *testing.T) {
		s := newStore(t)
		p := Product("p1", "Vintage lamp", "furniture", 25, 0)

		res, err := s.Put(context.Background(), &p)
		require.NoError(t, err)
		assert.True(t, res.Refreshed)
		assert.Equal(t, "p1", res.ID)

		hits := search(t, s, domain.SearchRequest{Limit: 100})
		assert.Equal(t, int64(1), hits.Total)
		assert.Equal(t, []string{"p1"}, ids(hits))
	})

	t.Run("PutOverwritesSameID", func(t *testing.T) {
		s := newStore(t)
		first := Product("p1", "Old title", "furniture", 10, 5)
		second := Product("p1", "New title", "electronics", 99, 1)

		_, err := s.Put(context.Background(), &first)
		require.NoError(t, err)
		_, err = s.Put(context.Background(), &second)
		require.NoError(t, err)

		hits := search(t, s, domain.SearchRequest{Limit: 100})
		require.Equal(t, int64(1), hits.Total)

		hit, err := s.GetByID(context.Background(), "p1")
		require.NoError(t, err)
		got := decode(t, hit)
		assert.Equal(t, "New title", got.Title)
		assert.Equal(t, "electronics", got.Category)
		assert.Equal(t, 99.0, got.Price)
	})

	t.Run("BulkPutIsVisibleAndReportsItems", func(t *testing.T) {
		s := newStore(t)
		products := []domain.Product{
			Product("a", "Desk", "furniture", 80, 3),
			Product("b", "Chair", "furniture", 20, 2),
			Product("c", "Phone", "electronics", 150, 1),
		}

		res, err := s.BulkPut(context.Background(), products)
		require.NoError(t, err)
		assert.True(t, res.Refreshed)
		assert.Equal(t, 3, res.Indexed())
		assert.Empty(t, res.Failed())

		hits := search(t, s, domain.SearchRequest{Limit: 100})
		assert.Equal(t, int64(3), hits.Total)
	})

	t.Run("FilterConjunction", func(t *testing.T) {
		s := newStore(t)
		bulk(t, s,
			Product("A", "Laptop", "electronics", 100, 3),
			Product("B", "Television", "electronics", 500, 2),
			Product("C", "Sofa", "furniture", 100, 1),
		)

		maxPrice := 200.0
		hits := search(t, s, domain.SearchRequest{Category: "electronics", MaxPrice: &maxPrice, Limit: 20})
		assert.Equal(t, int64(1), hits.Total)
		assert.Equal(t, []string{"A"}, ids(hits))

		minPrice := 100.0
		hits = search(t, s, domain.SearchRequest{Category: "electronics", MinPrice: &minPrice, Limit: 20})
		assert.ElementsMatch(t, []string{"A", "B"}, ids(hits))

		hits = search(t, s, domain.SearchRequest{Condition: "new", Limit: 20})
		assert.Zero(t, hits.Total)
		assert.Empty(t, hits.Hits)
	})

	t.Run("FuzzyTextMatch", func(t *testing.T) {
		s := newStore(t)
		bulk(t, s,
			Product("a", "Gaming laptop", "electronics", 900, 2),
			Product("b", "Oak table", "furniture", 120, 1),
		)

		assert.Equal(t, []string{"a"}, ids(search(t, s, domain.SearchRequest{Query: "laptop", Limit: 20})))
		assert.Equal(t, []string{"a"}, ids(search(t, s, domain.SearchRequest{Query: "lapto", Limit: 20})), "one edit is tolerated")
		assert.Equal(t, []string{"b"}, ids(search(t, s, domain.SearchRequest{Query: "OAK", Limit: 20})), "matching ignores case")
		assert.ElementsMatch(t, []string{"a", "b"}, ids(search(t, s, domain.SearchRequest{Query: "second-hand", Limit: 20})), "description is searched")
		assert.Empty(t, ids(search(t, s, domain.SearchRequest{Query: "bicycle", Limit: 20})))
	})

	t.Run("EmptyQueryReturnsAllNewestFirst", func(t *testing.T) {
		s := newStore(t)
		bulk(t, s,
			Product("old", "Old", "misc", 1, 30),
			Product("new", "New", "misc", 1, 1),
			Product("mid", "Mid", "misc", 1, 10),
		)

		hits := search(t, s, domain.SearchRequest{Limit: 20})
		assert.Equal(t, int64(3), hits.Total)
		assert.Equal(t, []string{"new", "mid", "old"}, ids(hits))
	})

	t.Run("PaginationCoversEveryMatchOnce", func(t *testing.T) {
		s := newStore(t)
		var products []domain.Product
		for i := 0; i < 23; i++ {
			// Pairs share a timestamp so the id tiebreaker is exercised.
			products = append(products, Product(fmt.Sprintf("p%02d", i), "Item", "misc", float64(i), i/2))
		}
		bulk(t, s, products...)

		const limit = 5
		seen := map[string]bool{}
		var order []string
		for page := 1; page <= 5; page++ {
			hits := search(t, s, domain.SearchRequest{Page: page, Limit: limit})
			require.Equal(t, int64(23), hits.Total)
			for _, id := range ids(hits) {
				assert.False(t, seen[id], "duplicate id %s", id)
				seen[id] = true
				order = append(order, id)
			}
		}
		assert.Len(t, seen, 23)

		var prev time.Time
		for i, id := range order {
			hit, err := s.GetByID(context.Background(), id)
			require.NoError(t, err)
			created := decode(t, hit).CreatedAt
			if i > 0 {
				assert.False(t, created.After(prev), "results must be ordered newest first")
			}
			prev = created
		}

		assert.Empty(t, search(t, s, domain.SearchRequest{Page: 6, Limit: limit}).Hits)
	})

	t.Run("AggregateDistinct", func(t *testing.T) {
		s := newStore(t)
		bulk(t, s,
			Product("a", "A", "electronics", 1, 3),
			Product("b", "B", "electronics", 1, 2),
			Product("c", "C", "furniture", 1, 1),
		)

		buckets, err := s.AggregateDistinct(context.Background(), domain.FieldCategory, 100)
		require.NoError(t, err)
		assert.Equal(t, []domain.Bucket{{Key: "electronics", Count: 2}, {Key: "furniture", Count: 1}}, buckets)

		capped, err := s.AggregateDistinct(context.Background(), domain.FieldCategory, 1)
		require.NoError(t, err)
		assert.Equal(t, []domain.Bucket{{Key: "electronics", Count: 2}}, capped)
	})

	t.Run("AggregateDistinctOnEmptyIndex", func(t *testing.T) {
		s := newStore(t)
		buckets, err := s.AggregateDistinct(context.Background(), domain.FieldCategory, 100)
		require.NoError(t, err)
		assert.Empty(t, buckets)
	})

	t.Run("GetByID", func(t *testing.T) {
		s := newStore(t)
		p := Product("p1", "Bike", "sport", 300, 0)
		_, err := s.Put(context.Background(), &p)
		require.NoError(t, err)

		hit, err := s.GetByID(context.Background(), "p1")
		require.NoError(t, err)
		assert.Equal(t, "p1", hit.ID)
		got := decode(t, hit)
		assert.Equal(t, p.Title, got.Title)
		assert.True(t, p.CreatedAt.Equal(got.CreatedAt))

		_, err = s.GetByID(context.Background(), "does-not-exist")
		assert.ErrorIs(t, err, domain.ErrProductNotFound)
		assert.NotErrorIs(t, err, domain.ErrStoreUnavailable)
	})

	t.Run("Ping", func(t *testing.T) {
		assert.NoError(t, newStore(t).Ping(context.Background()))
	})
}

func bulk(t *testing.T, s engine.Store, products ...domain.Product) {
	t.Helper()
	res, err := s.BulkPut(context.Background(), products)
	require.NoError(t, err)
	require.Empty(t, res.Failed())
}

func search(t *testing.T, s engine.Store, req domain.SearchRequest) *domain.Hits {
	t.Helper()
	hits, err := s.Search(context.Background(), query.Build(req))
	require.NoError(t, err)
	return hits
}

func ids(h *domain.Hits) []string {
	out := make([]string, 0, len(h.Hits))
	for _, hit := range h.Hits {
		out = append(out, hit.ID)
	}
	return out
}

func decode(t *testing.T, hit *domain.Hit) domain.Product {
	t.Helper()
	var p domain.Product
	require.NoError(t, json.Unmarshal(hit.Source, &p))
	return p
}
