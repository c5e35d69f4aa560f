package domain

import (
	"time"
)

// Document field names shared by the store mapping, the query builder and
// the aggregation reader.
const (
	FieldID          = "id"
	FieldTitle       = "title"
	FieldDescription = "description"
	FieldPrice       = "price"
	FieldCategory    = "category"
	FieldCondition   = "condition"
	FieldLocation    = "location"
	FieldImageURL    = "imageUrl"
	FieldSource      = "source"
	FieldURL         = "url"
	FieldCreatedAt   = "createdAt"
)

// Product is a second-hand listing as stored in the search index. The id is
// also the document's storage key.
type Product struct {
	ID          string    `json:"id" validate:"required,max=512"`
	Title       string    `json:"title"`
	Description string    `json:"description"`
	Price       float64   `json:"price" validate:"gte=0"`
	Category    string    `json:"category"`
	Condition   string    `json:"condition"`
	Location    string    `json:"location"`
	ImageURL    string    `json:"imageUrl"`
	Source      string    `json:"source"`
	URL         string    `json:"url"`
	CreatedAt   time.Time `json:"createdAt"`
}

// Normalize fills in defaults applied at ingestion: a missing createdAt
// becomes now, and timestamps are stored in UTC.
func (p *Product) Normalize(now time.Time) {
	if p.CreatedAt.IsZero() {
		p.CreatedAt = now
	}
	p.CreatedAt = p.CreatedAt.UTC()
}
