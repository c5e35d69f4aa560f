package service

import (
	"encoding/json"
	"fmt"

	"github.com/Armandase/seconde-main/pkg/pagination"
	"github.com/Armandase/seconde-main/services/search/internal/domain"
	"github.com/Armandase/seconde-main/services/search/internal/query"
)

// project turns raw store hits into a result page. The store key wins over
// any id found in the source. No next page is announced past the result
// window, since it would come back empty.
func project(hits *domain.Hits, page, limit int) (*domain.SearchResult, error) {
	products := make([]domain.Product, 0, len(hits.Hits))
	for _, h := range hits.Hits {
		p, err := decodeHit(h)
		if err != nil {
			return nil, err
		}
		products = append(products, *p)
	}

	return &domain.SearchResult{
		Products:   products,
		Total:      hits.Total,
		Page:       page,
		Limit:      limit,
		TotalPages: pagination.TotalPages(hits.Total, limit),
		HasNext:    pagination.HasNext(hits.Total, page, limit) && page <= (query.MaxResultWindow-1)/limit,
	}, nil
}

func decodeHit(h domain.Hit) (*domain.Product, error) {
	var p domain.Product
	if err := json.Unmarshal(h.Source, &p); err != nil {
		return nil, fmt.Errorf("decode hit %q: %w", h.ID, err)
	}
	p.ID = h.ID
	return &p, nil
}
