package http

import (
	"context"
	"errors"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/Armandase/seconde-main/pkg/httputil"
	"github.com/Armandase/seconde-main/pkg/validator"
	"github.com/Armandase/seconde-main/services/search/internal/domain"
)

const (
	maxProductBody = 1 << 20
	maxBulkBody    = 10 << 20
)

// BulkIngestRequest is the JSON request body for bulk ingestion.
type BulkIngestRequest struct {
	Products []domain.Product `json:"products" validate:"required,min=1,max=1000,dive"`
}

// IngestResponse is the body of a successful single ingest.
type IngestResponse struct {
	Message string          `json:"message"`
	Product *domain.Product `json:"product"`
}

// BulkIngestResponse is the body of a bulk ingest. Count is the number of
// products received; Failed lists those the store rejected.
type BulkIngestResponse struct {
	Message string                  `json:"message"`
	Count   int                     `json:"count"`
	Indexed int                     `json:"indexed"`
	Failed  []domain.BulkItemResult `json:"failed"`
}

// IngestProduct handles POST /api/products
func (h *SearchHandler) IngestProduct(w http.ResponseWriter, r *http.Request) {
	r.Body = http.MaxBytesReader(w, r.Body, maxProductBody)

	var product domain.Product
	if err := validator.DecodeStrict(r.Body, &product); err != nil {
		httputil.WriteValidationError(w, r, err)
		return
	}

	// The write and its refresh complete even if the client goes away.
	ctx := context.WithoutCancel(r.Context())
	if _, err := h.service.Ingest(ctx, &product); err != nil {
		h.writeWriteError(w, r, err)
		return
	}

	httputil.WriteJSON(w, http.StatusCreated, IngestResponse{
		Message: "Product indexed successfully",
		Product: &product,
	})
}

// BulkIngest handles POST /api/products/bulk
func (h *SearchHandler) BulkIngest(w http.ResponseWriter, r *http.Request) {
	r.Body = http.MaxBytesReader(w, r.Body, maxBulkBody)

	var req BulkIngestRequest
	if err := validator.DecodeStrict(r.Body, &req); err != nil {
		httputil.WriteValidationError(w, r, err)
		return
	}
	if err := validator.Validate(req); err != nil {
		httputil.WriteValidationError(w, r, err)
		return
	}

	ctx := context.WithoutCancel(r.Context())
	result, err := h.service.BulkIngest(ctx, req.Products)
	if err != nil {
		h.writeWriteError(w, r, err)
		return
	}

	httputil.WriteJSON(w, http.StatusCreated, BulkIngestResponse{
		Message: "Products indexed",
		Count:   len(req.Products),
		Indexed: result.Indexed(),
		Failed:  result.Failed(),
	})
}

// GetProduct handles GET /api/products/{id}
func (h *SearchHandler) GetProduct(w http.ResponseWriter, r *http.Request) {
	product, err := h.service.Get(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		httputil.WriteError(w, r, err, h.logger)
		return
	}

	httputil.WriteJSON(w, http.StatusOK, product)
}

func (h *SearchHandler) writeWriteError(w http.ResponseWriter, r *http.Request, err error) {
	var valErr *validator.ValidationError
	if errors.As(err, &valErr) {
		httputil.WriteValidationError(w, r, err)
		return
	}
	httputil.WriteError(w, r, err, h.logger)
}
