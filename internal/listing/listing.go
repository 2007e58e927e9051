// Package listing implements the list-controller every admin and shop page
// uses: one fetch into a snapshot, a derived view under search, filters and
// sort, and fixed-size pages over that view.
package listing

import (
	"fmt"
	"slices"
	"strings"
	"sync"
	"time"

	"golang.org/x/text/collate"
	"golang.org/x/text/language"
)

// Page is one slice of the view plus the pager state.
type Page[T any] struct {
	Items      []T  `json:"items"`
	Number     int  `json:"page"`
	TotalPages int  `json:"totalPages"`
	PageSize   int  `json:"pageSize"`
	Total      int  `json:"total"`
	HasPrev    bool `json:"hasPrev"`
	HasNext    bool `json:"hasNext"`
}

func (p Page[T]) Label() string {
	return fmt.Sprintf("Page %d of %d", p.Number, p.TotalPages)
}

// TotalPages is ceil(n/size) with a floor of one page.
func TotalPages(n, size int) int {
	if size <= 0 || n <= 0 {
		return 1
	}
	return (n + size - 1) / size
}

// ClampPage keeps page within [1, TotalPages(n, size)].
func ClampPage(page, n, size int) int {
	last := TotalPages(n, size)
	if page < 1 {
		return 1
	}
	if page > last {
		return last
	}
	return page
}

// Paginate returns items[(p-1)*size : p*size] for the clamped page p.
func Paginate[T any](items []T, page, size int) Page[T] {
	if size <= 0 {
		size = len(items)
		if size == 0 {
			size = 1
		}
	}
	n := len(items)
	page = ClampPage(page, n, size)
	pages := TotalPages(n, size)
	start := min((page-1)*size, n)
	end := min(start+size, n)
	return Page[T]{
		Items:      slices.Clone(items[start:end]),
		Number:     page,
		TotalPages: pages,
		PageSize:   size,
		Total:      n,
		HasPrev:    page > 1,
		HasNext:    page < pages,
	}
}

// Search keeps items where any field contains query, case-insensitively.
// An empty query keeps everything.
func Search[T any](items []T, query string, fields func(T) []string) []T {
	q := strings.ToLower(strings.TrimSpace(query))
	if q == "" || fields == nil {
		return slices.Clone(items)
	}
	out := make([]T, 0, len(items))
	for _, it := range items {
		for _, f := range fields(it) {
			if strings.Contains(strings.ToLower(f), q) {
				out = append(out, it)
				break
			}
		}
	}
	return out
}

// Filter keeps items satisfying every predicate.
func Filter[T any](items []T, preds ...func(T) bool) []T {
	out := make([]T, 0, len(items))
next:
	for _, it := range items {
		for _, p := range preds {
			if !p(it) {
				continue next
			}
		}
		out = append(out, it)
	}
	return out
}

const (
	BucketToday = "today"
	BucketWeek  = "week"
	BucketMonth = "month"
)

// InDateBucket reports whether t falls in the named window ending at now.
// Today starts at local midnight; week and month are the last 7 and 30 days.
// Unknown or empty buckets match everything.
func InDateBucket(t time.Time, bucket string, now time.Time) bool {
	switch bucket {
	case BucketToday:
		y, m, d := now.Date()
		return !t.Before(time.Date(y, m, d, 0, 0, 0, 0, now.Location()))
	case BucketWeek:
		return !t.Before(now.AddDate(0, 0, -7))
	case BucketMonth:
		return !t.Before(now.AddDate(0, 0, -30))
	}
	return true
}

var (
	collatorMu sync.Mutex
	collator   = collate.New(language.English, collate.IgnoreCase, collate.Loose)
)

// CompareNames orders strings the way a reader of English expects.
func CompareNames(a, b string) int {
	collatorMu.Lock()
	defer collatorMu.Unlock()
	return collator.CompareString(a, b)
}

// Reverse flips a comparison.
func Reverse[T any](cmp func(a, b T) int) func(a, b T) int {
	return func(a, b T) int { return cmp(b, a) }
}

// ByTime compares on a timestamp, oldest first.
func ByTime[T any](key func(T) time.Time) func(a, b T) int {
	return func(a, b T) int { return key(a).Compare(key(b)) }
}

// ByName compares on a display string with CompareNames.
func ByName[T any](key func(T) string) func(a, b T) int {
	return func(a, b T) int { return CompareNames(key(a), key(b)) }
}
