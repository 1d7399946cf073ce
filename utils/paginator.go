package utils

import (
	"strconv"
	"strings"

	"gorm.io/gorm"
)

// Page is one page of an ordered result set.
type Page[T any] struct {
	Items    []T
	Number   int
	PerPage  int
	Count    int64
	NumPages int
}

// HasPrevious reports whether a page precedes this one.
func (p *Page[T]) HasPrevious() bool { return p.Number > 1 }

// HasNext reports whether a page follows this one.
func (p *Page[T]) HasNext() bool { return p.Number < p.NumPages }

// HasOtherPages reports whether the result set spans more than one page.
func (p *Page[T]) HasOtherPages() bool { return p.NumPages > 1 }

func (p *Page[T]) PreviousNumber() int { return p.Number - 1 }

func (p *Page[T]) NextNumber() int { return p.Number + 1 }

// PageRange lists every page number, 1-based.
func (p *Page[T]) PageRange() []int {
	r := make([]int, p.NumPages)
	for i := range r {
		r[i] = i + 1
	}
	return r
}

// NumPages returns how many pages count rows fill. An empty set still has one page.
func NumPages(count int64, perPage int) int {
	if perPage <= 0 || count <= 0 {
		return 1
	}
	return int((count + int64(perPage) - 1) / int64(perPage))
}

// ResolvePage turns the raw "page" query value into a valid page number.
// Missing, non-numeric or non-positive input yields 1; numbers past the end yield the last page.
func ResolvePage(raw string, numPages int) int {
	n, err := strconv.Atoi(strings.TrimSpace(raw))
	if err != nil || n < 1 {
		return 1
	}
	if n > numPages {
		return numPages
	}
	return n
}

// Paginate counts q and loads the requested page of it. q must carry its model,
// filters and ordering; preloads are applied to the page query only.
func Paginate[T any](q *gorm.DB, raw string, perPage int, preloads ...string) (*Page[T], error) {
	if perPage <= 0 {
		perPage = 10
	}
	base := q.Session(&gorm.Session{})

	var count int64
	if err := base.Count(&count).Error; err != nil {
		return nil, err
	}

	page := &Page[T]{PerPage: perPage, Count: count, NumPages: NumPages(count, perPage)}
	page.Number = ResolvePage(raw, page.NumPages)
	if count == 0 {
		page.Items = []T{}
		return page, nil
	}

	find := base
	for _, p := range preloads {
		find = find.Preload(p)
	}
	if err := find.Offset((page.Number - 1) * perPage).Limit(perPage).Find(&page.Items).Error; err != nil {
		return nil, err
	}
	return page, nil
}
