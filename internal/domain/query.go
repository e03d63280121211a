package domain

import "strings"

// Category groups backends by the kind of content they return.
type Category string

const (
	CategoryGeneral Category = "general"
	CategoryImages  Category = "images"
	CategoryNews    Category = "news"
	CategoryScience Category = "science"
	CategoryFiles   Category = "files"
	CategoryVideos  Category = "videos"
)

// KnownCategories lists every valid category value.
var KnownCategories = []Category{
	CategoryGeneral, CategoryImages, CategoryNews,
	CategoryScience, CategoryFiles, CategoryVideos,
}

// ValidCategory reports whether c is a known category.
func ValidCategory(c Category) bool {
	for _, k := range KnownCategories {
		if c == k {
			return true
		}
	}
	return false
}

// SafeSearch is the per-request content filtering level.
type SafeSearch int

const (
	SafeSearchOff SafeSearch = iota
	SafeSearchModerate
	SafeSearchStrict
)

// TimeRange restricts results to a recency window. Empty means unrestricted.
type TimeRange string

const (
	TimeRangeAny   TimeRange = ""
	TimeRangeDay   TimeRange = "day"
	TimeRangeWeek  TimeRange = "week"
	TimeRangeMonth TimeRange = "month"
	TimeRangeYear  TimeRange = "year"
)

// Query is the immutable per-request search input. It is created once per
// incoming request and finalized by pre-dispatch hooks; nothing mutates it
// afterwards. Rewrites go through With* copies.
type Query struct {
	Text       string
	Categories []Category
	Locale     string // BCP 47 tag, e.g. "de-AT"
	PageNo     int    // 1-based
	SafeSearch SafeSearch
	TimeRange  TimeRange
	Backends   []string // explicit backend selection; empty selects all eligible
}

// WithText returns a copy of q with the text replaced.
func (q Query) WithText(text string) Query {
	q.Text = text
	return q
}

// WithBackends returns a copy of q restricted to the given backend ids.
func (q Query) WithBackends(ids ...string) Query {
	q.Backends = append([]string(nil), ids...)
	return q
}

// HasCategory reports whether the query requests the given category.
// A query with no categories requests general results.
func (q Query) HasCategory(c Category) bool {
	if len(q.Categories) == 0 {
		return c == CategoryGeneral
	}
	for _, qc := range q.Categories {
		if qc == c {
			return true
		}
	}
	return false
}

// SelectsBackend reports whether the query's explicit backend selection
// admits the given id. An empty selection admits everything.
func (q Query) SelectsBackend(id string) bool {
	if len(q.Backends) == 0 {
		return true
	}
	for _, b := range q.Backends {
		if b == id {
			return true
		}
	}
	return false
}

// Normalized returns the query text with collapsed whitespace.
func (q Query) Normalized() string {
	return strings.Join(strings.Fields(q.Text), " ")
}

// Page returns the effective 1-based page number.
func (q Query) Page() int {
	if q.PageNo < 1 {
		return 1
	}
	return q.PageNo
}
