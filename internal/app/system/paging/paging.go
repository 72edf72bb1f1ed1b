// internal/app/system/paging/paging.go
package paging

import (
	"net/http"
	"strconv"

	"github.com/dalemusser/waffle/pantry/query"
)

const (
	DefaultLimit = 50
	MaxLimit     = 500
)

// ParseLimit reads ?limit=, clamped to [1, MaxLimit]. Missing or invalid
// values give DefaultLimit.
func ParseLimit(r *http.Request) int {
	n, err := strconv.Atoi(query.Get(r, "limit"))
	if err != nil || n < 1 {
		return DefaultLimit
	}
	if n > MaxLimit {
		return MaxLimit
	}
	return n
}

// LimitPlusOne is the fetch size for look-ahead pagination: one extra row
// tells whether another page exists.
func LimitPlusOne(limit int) int64 { return int64(limit + 1) }

// Trim cuts rows fetched with LimitPlusOne back to limit and reports
// whether more rows follow.
func Trim[T any](rows *[]T, limit int) (hasNext bool) {
	if len(*rows) > limit {
		*rows = (*rows)[:limit]
		return true
	}
	return false
}
