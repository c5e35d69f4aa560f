package http

import (
	"log/slog"
	"net/http"
	"strconv"
	"strings"

	apperrors "github.com/Armandase/seconde-main/pkg/errors"
	"github.com/Armandase/seconde-main/pkg/httputil"
	"github.com/Armandase/seconde-main/pkg/pagination"
	"github.com/Armandase/seconde-main/services/search/internal/domain"
	"github.com/Armandase/seconde-main/services/search/internal/service"
)

// SearchHandler handles HTTP requests for search endpoints.
type SearchHandler struct {
	service *service.SearchService
	logger  *slog.Logger
	limits  pagination.Limits
}

// NewSearchHandler creates a new search HTTP handler.
func NewSearchHandler(svc *service.SearchService, logger *slog.Logger, limits pagination.Limits) *SearchHandler {
	if limits.DefaultSize <= 0 || limits.MaxSize <= 0 {
		limits = pagination.DefaultLimits()
	}
	return &SearchHandler{
		service: svc,
		logger:  logger,
		limits:  limits,
	}
}

// CategoriesResponse is the body of GET /api/products/categories.
type CategoriesResponse struct {
	Categories []string `json:"categories"`
}

// Search handles GET /api/search
func (h *SearchHandler) Search(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()

	params, err := pagination.Parse(q, h.limits)
	if err != nil {
		httputil.WriteError(w, r, err, h.logger)
		return
	}

	minPrice, err := parsePrice(q.Get("minPrice"), "minPrice")
	if err != nil {
		httputil.WriteError(w, r, err, h.logger)
		return
	}
	maxPrice, err := parsePrice(q.Get("maxPrice"), "maxPrice")
	if err != nil {
		httputil.WriteError(w, r, err, h.logger)
		return
	}

	result, err := h.service.Search(r.Context(), domain.SearchRequest{
		Query:     strings.TrimSpace(q.Get("query")),
		Category:  q.Get("category"),
		Condition: q.Get("condition"),
		Location:  q.Get("location"),
		MinPrice:  minPrice,
		MaxPrice:  maxPrice,
		Page:      params.Page,
		Limit:     params.Limit,
	})
	if err != nil {
		httputil.WriteError(w, r, err, h.logger)
		return
	}

	httputil.WriteJSON(w, http.StatusOK, result)
}

// Categories handles GET /api/products/categories
func (h *SearchHandler) Categories(w http.ResponseWriter, r *http.Request) {
	categories, err := h.service.Categories(r.Context())
	if err != nil {
		httputil.WriteError(w, r, err, h.logger)
		return
	}

	httputil.WriteJSON(w, http.StatusOK, CategoriesResponse{Categories: categories})
}

// parsePrice reads an optional price bound. Range checks belong to the
// service; only the number format is checked here.
func parsePrice(raw, name string) (*float64, error) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return nil, nil
	}
	v, err := strconv.ParseFloat(raw, 64)
	if err != nil {
		return nil, apperrors.InvalidParameter(name, "must be a valid number")
	}
	return &v, nil
}
