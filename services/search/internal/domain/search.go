package domain

import "encoding/json"

// SearchRequest holds the free-text query, facet filters and pagination of
// a search. Empty strings and nil bounds mean "no constraint".
type SearchRequest struct {
	Query     string
	Category  string
	Condition string
	Location  string
	MinPrice  *float64
	MaxPrice  *float64
	Page      int
	Limit     int
}

// SearchResult is one page of matching products. Total counts every match
// of the query, not just the returned page.
type SearchResult struct {
	Products   []Product `json:"products"`
	Total      int64     `json:"total"`
	Page       int       `json:"page"`
	Limit      int       `json:"limit"`
	TotalPages int       `json:"totalPages"`
	HasNext    bool      `json:"hasNext"`
}

// Hit is a raw stored document: its store key and JSON source.
type Hit struct {
	ID     string
	Source json.RawMessage
}

// Hits is the raw answer of a store search.
type Hits struct {
	Total int64
	Hits  []Hit
}

// Bucket is one distinct value of an aggregated field with its document count.
type Bucket struct {
	Key   string `json:"key"`
	Count int64  `json:"count"`
}
