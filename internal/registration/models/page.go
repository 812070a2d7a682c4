package models

import (
	"math"
	"strconv"
)

const (
	DefaultPage  = 1
	DefaultLimit = 10
	MaxLimit     = 100

	// MaxPage keeps (Page-1)*Limit within int for any normalized limit.
	MaxPage = math.MaxInt / MaxLimit
)

// PageQuery selects one page of the admin listing. Page is 1-based.
type PageQuery struct {
	Page  int
	Limit int
}

// Offset is the number of records skipped before this page. It saturates
// at math.MaxInt instead of overflowing, so stores see a page past the end.
func (q PageQuery) Offset() int {
	if q.Page < 1 || q.Limit < 1 {
		return 0
	}
	if q.Page-1 > math.MaxInt/q.Limit {
		return math.MaxInt
	}
	return (q.Page - 1) * q.Limit
}

// ParsePageQuery reads raw query parameters. Missing, non-numeric and
// non-positive values fall back to the defaults; limit is capped at MaxLimit
// and page at MaxPage.
func ParsePageQuery(pageRaw, limitRaw string) PageQuery {
	return PageQuery{
		Page:  positiveOr(pageRaw, DefaultPage),
		Limit: positiveOr(limitRaw, DefaultLimit),
	}.normalized()
}

func (q PageQuery) normalized() PageQuery {
	if q.Page < 1 {
		q.Page = DefaultPage
	}
	if q.Limit < 1 {
		q.Limit = DefaultLimit
	}
	if q.Limit > MaxLimit {
		q.Limit = MaxLimit
	}
	if q.Page > MaxPage {
		q.Page = MaxPage
	}
	return q
}

// Normalized applies defaults and the limit cap to a programmatic query.
func (q PageQuery) Normalized() PageQuery {
	return q.normalized()
}

func positiveOr(raw string, fallback int) int {
	n, err := strconv.Atoi(raw)
	if err != nil || n < 1 {
		return fallback
	}
	return n
}

// Page is one page of registrations, newest first.
type Page struct {
	Docs        []*Registration
	TotalDocs   int
	Limit       int
	Page        int
	TotalPages  int
	HasPrevPage bool
	HasNextPage bool
	PrevPage    *int
	NextPage    *int
}

// NewPage computes paging metadata for docs fetched with q out of total records.
func NewPage(docs []*Registration, total int, q PageQuery) *Page {
	if docs == nil {
		docs = []*Registration{}
	}
	totalPages := 0
	if q.Limit > 0 {
		totalPages = (total + q.Limit - 1) / q.Limit
	}
	p := &Page{
		Docs:       docs,
		TotalDocs:  total,
		Limit:      q.Limit,
		Page:       q.Page,
		TotalPages: totalPages,
	}
	if q.Page > 1 {
		prev := q.Page - 1
		p.HasPrevPage = true
		p.PrevPage = &prev
	}
	if q.Page < totalPages {
		next := q.Page + 1
		p.HasNextPage = true
		p.NextPage = &next
	}
	return p
}
