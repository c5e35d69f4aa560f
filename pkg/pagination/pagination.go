package pagination

import (
	"math"
	"net/url"
	"strconv"
	"strings"

	apperrors "github.com/Armandase/seconde-main/pkg/errors"
)

// Limits bounds the page size a client may ask for.
type Limits struct {
	DefaultSize int
	MaxSize     int
}

// DefaultLimits returns the page-size defaults used when none are configured.
func DefaultLimits() Limits {
	return Limits{DefaultSize: 20, MaxSize: 100}
}

// Params holds pagination parameters extracted from query strings.
type Params struct {
	Page   int `json:"page"`
	Limit  int `json:"limit"`
	Offset int `json:"-"`
}

// Parse reads "page" and "limit" from q.
//
// A value that is not an integer is rejected with INVALID_PARAMETER. Page
// values below 1 are clamped to 1, a limit below 1 falls back to
// DefaultSize, and a limit above MaxSize is clamped to MaxSize.
func Parse(q url.Values, limits Limits) (Params, error) {
	if limits.DefaultSize <= 0 {
		limits.DefaultSize = DefaultLimits().DefaultSize
	}
	if limits.MaxSize < limits.DefaultSize {
		limits.MaxSize = limits.DefaultSize
	}

	p := Params{Page: 1, Limit: limits.DefaultSize}

	if raw := strings.TrimSpace(q.Get("page")); raw != "" {
		v, err := strconv.Atoi(raw)
		if err != nil {
			return Params{}, apperrors.InvalidParameter("page", "must be an integer")
		}
		if v > 1 {
			p.Page = v
		}
	}

	if raw := strings.TrimSpace(q.Get("limit")); raw != "" {
		v, err := strconv.Atoi(raw)
		if err != nil {
			return Params{}, apperrors.InvalidParameter("limit", "must be an integer")
		}
		switch {
		case v > limits.MaxSize:
			p.Limit = limits.MaxSize
		case v > 0:
			p.Limit = v
		}
	}

	if p.Page-1 > math.MaxInt/p.Limit {
		p.Offset = math.MaxInt
	} else {
		p.Offset = (p.Page - 1) * p.Limit
	}
	return p, nil
}

// TotalPages returns how many pages of size limit cover total items.
func TotalPages(total int64, limit int) int {
	if limit <= 0 || total <= 0 {
		return 0
	}
	pages := total / int64(limit)
	if total%int64(limit) > 0 {
		pages++
	}
	return int(pages)
}

// HasNext reports whether a page after page exists.
func HasNext(total int64, page, limit int) bool {
	return page < TotalPages(total, limit)
}
