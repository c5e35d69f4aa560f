package query

import (
	"strings"

	"github.com/Armandase/seconde-main/services/search/internal/domain"
)

// DefaultLimit is the page size used when a request carries none.
const DefaultLimit = 20

// MaxResultWindow is the deepest hit a page may reach. It matches the
// index.max_result_window default of Elasticsearch; pages past it are empty.
const MaxResultWindow = 10000

// FuzzinessAuto scales the tolerated edit distance with term length.
const FuzzinessAuto = "AUTO"

// TextFields are the full-text fields searched by a free-text query; title
// weighs twice as much as description.
var TextFields = []Field{
	{Name: domain.FieldTitle, Boost: 2},
	{Name: domain.FieldDescription, Boost: 1},
}

// DefaultSort orders newest first, then by id so that equal timestamps page
// deterministically.
var DefaultSort = []SortField{
	{Field: domain.FieldCreatedAt, Desc: true},
	{Field: domain.FieldID},
}

// Build compiles req. It is a pure function of its input.
func Build(req domain.SearchRequest) *Compiled {
	page := req.Page
	if page < 1 {
		page = 1
	}
	limit := req.Limit
	if limit < 1 {
		limit = DefaultLimit
	}

	var q Bool
	if text := strings.TrimSpace(req.Query); text != "" {
		q.Must = append(q.Must, MultiMatch{Text: text, Fields: TextFields, Fuzziness: FuzzinessAuto})
	} else {
		q.Must = append(q.Must, MatchAll{})
	}

	for _, f := range []struct{ field, value string }{
		{domain.FieldCategory, req.Category},
		{domain.FieldCondition, req.Condition},
		{domain.FieldLocation, req.Location},
	} {
		if f.value != "" {
			q.Filter = append(q.Filter, Term{Field: f.field, Value: f.value})
		}
	}

	if req.MinPrice != nil || req.MaxPrice != nil {
		q.Filter = append(q.Filter, Range{Field: domain.FieldPrice, GTE: req.MinPrice, LTE: req.MaxPrice})
	}

	sort := make([]SortField, len(DefaultSort))
	copy(sort, DefaultSort)

	from, size := window(page, limit)
	return &Compiled{
		Query: q,
		From:  from,
		Size:  size,
		Sort:  sort,
	}
}

// window returns the hit offset and count of page, cut to MaxResultWindow.
// A page starting at or past the window fetches nothing, which still
// reports the total. The offset is never computed for such pages, so it
// cannot overflow.
func window(page, limit int) (from, size int) {
	if page-1 > (MaxResultWindow-1)/limit {
		return 0, 0
	}
	from = (page - 1) * limit
	return from, min(limit, MaxResultWindow-from)
}

// AutoFuzziness returns the edit distance AUTO allows for a term of n
// characters: exact below 3, one edit up to 5, two beyond.
func AutoFuzziness(n int) int {
	switch {
	case n <= 2:
		return 0
	case n <= 5:
		return 1
	default:
		return 2
	}
}
