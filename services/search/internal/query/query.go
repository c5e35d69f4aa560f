// Package query compiles search requests into a backend-neutral boolean
// query. The Elasticsearch engine sends Source() as the request body and the
// bleve engine translates the same clause tree.
package query

import "strconv"

// Clause is a node of a compiled query.
type Clause interface {
	clause()
}

// MatchAll matches every document.
type MatchAll struct{}

// Field is a searchable text field with its score boost.
type Field struct {
	Name  string
	Boost float64
}

// MultiMatch performs fuzzy full-text matching of Text over Fields; a
// document matches when any analyzed term matches any field.
type MultiMatch struct {
	Text      string
	Fields    []Field
	Fuzziness string
}

// Term is an exact match on a keyword field.
type Term struct {
	Field string
	Value string
}

// Range bounds a numeric field inclusively. A nil bound leaves that side open.
type Range struct {
	Field string
	GTE   *float64
	LTE   *float64
}

// Bool requires every Must clause and every Filter clause. Filters restrict
// eligibility without scoring.
type Bool struct {
	Must   []Clause
	Filter []Clause
}

func (MatchAll) clause()   {}
func (MultiMatch) clause() {}
func (Term) clause()       {}
func (Range) clause()      {}
func (Bool) clause()       {}

// SortField orders hits by a single field.
type SortField struct {
	Field string
	Desc  bool
}

// Compiled is a query with its page window and sort order.
type Compiled struct {
	Query Bool
	From  int
	Size  int
	Sort  []SortField
}

// Source renders the compiled query as an Elasticsearch search body.
func (c *Compiled) Source() map[string]any {
	sort := make([]any, 0, len(c.Sort))
	for _, s := range c.Sort {
		order := "asc"
		if s.Desc {
			order = "desc"
		}
		sort = append(sort, map[string]any{s.Field: map[string]any{"order": order}})
	}

	return map[string]any{
		"query":            ClauseSource(c.Query),
		"from":             c.From,
		"size":             c.Size,
		"sort":             sort,
		"track_total_hits": true,
	}
}

// ClauseSource renders one clause in Elasticsearch query DSL.
func ClauseSource(c Clause) map[string]any {
	switch q := c.(type) {
	case MatchAll:
		return map[string]any{"match_all": map[string]any{}}
	case MultiMatch:
		fields := make([]string, 0, len(q.Fields))
		for _, f := range q.Fields {
			fields = append(fields, f.Name+boostSuffix(f.Boost))
		}
		return map[string]any{
			"multi_match": map[string]any{
				"query":     q.Text,
				"fields":    fields,
				"fuzziness": q.Fuzziness,
			},
		}
	case Term:
		return map[string]any{"term": map[string]any{q.Field: q.Value}}
	case Range:
		bounds := map[string]any{}
		if q.GTE != nil {
			bounds["gte"] = *q.GTE
		}
		if q.LTE != nil {
			bounds["lte"] = *q.LTE
		}
		return map[string]any{"range": map[string]any{q.Field: bounds}}
	case Bool:
		must := make([]any, 0, len(q.Must))
		for _, m := range q.Must {
			must = append(must, ClauseSource(m))
		}
		filter := make([]any, 0, len(q.Filter))
		for _, f := range q.Filter {
			filter = append(filter, ClauseSource(f))
		}
		return map[string]any{"bool": map[string]any{"must": must, "filter": filter}}
	default:
		return map[string]any{"match_none": map[string]any{}}
	}
}

func boostSuffix(b float64) string {
	if b == 0 || b == 1 {
		return ""
	}
	return "^" + strconv.FormatFloat(b, 'f', -1, 64)
}
