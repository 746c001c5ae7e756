// Package pagination slices ordered result sets into fixed-size pages.
package pagination

import (
	"strconv"
	"strings"
)

// PostsPerPage is the page size of every post listing.
const PostsPerPage = 10

// Page is one window of an ordered result set plus navigation metadata.
type Page[T any] struct {
	Items    []T
	Number   int
	NumPages int
	Count    int64
	PerPage  int
}

// NumPagesFor is the page count for count items; an empty set still has one page.
func NumPagesFor(count int64, perPage int) int {
	if perPage <= 0 {
		perPage = PostsPerPage
	}
	if count <= 0 {
		return 1
	}
	return int((count + int64(perPage) - 1) / int64(perPage))
}

// ResolveNumber turns the raw ?page= value into a valid page number.
// Missing or non-integer values give page 1; integers outside [1, numPages]
// give the last page.
func ResolveNumber(raw string, numPages int) int {
	n, err := strconv.Atoi(strings.TrimSpace(raw))
	if err != nil {
		return 1
	}
	if n < 1 || n > numPages {
		return numPages
	}
	return n
}

// Fetch counts the result set, resolves raw to a page and loads just that
// page's items through slice(offset, limit).
func Fetch[T any](raw string, perPage int, count func() (int64, error), slice func(offset, limit int) ([]T, error)) (*Page[T], error) {
	if perPage <= 0 {
		perPage = PostsPerPage
	}
	total, err := count()
	if err != nil {
		return nil, err
	}
	numPages := NumPagesFor(total, perPage)
	number := ResolveNumber(raw, numPages)

	items := []T{}
	if total > 0 {
		items, err = slice((number-1)*perPage, perPage)
		if err != nil {
			return nil, err
		}
	}
	return &Page[T]{Items: items, Number: number, NumPages: numPages, Count: total, PerPage: perPage}, nil
}

// Slice paginates an in-memory ordered slice.
func Slice[T any](all []T, raw string, perPage int) *Page[T] {
	p, _ := Fetch(raw, perPage,
		func() (int64, error) { return int64(len(all)), nil },
		func(offset, limit int) ([]T, error) {
			end := offset + limit
			if end > len(all) {
				end = len(all)
			}
			return all[offset:end], nil
		})
	return p
}

func (p *Page[T]) HasNext() bool { return p.Number < p.NumPages }

func (p *Page[T]) HasPrevious() bool { return p.Number > 1 }

func (p *Page[T]) HasOtherPages() bool { return p.HasNext() || p.HasPrevious() }

func (p *Page[T]) NextNumber() int {
	if !p.HasNext() {
		return p.Number
	}
	return p.Number + 1
}

func (p *Page[T]) PreviousNumber() int {
	if !p.HasPrevious() {
		return p.Number
	}
	return p.Number - 1
}

// PageRange lists every page number, for rendering the paginator.
func (p *Page[T]) PageRange() []int {
	out := make([]int, p.NumPages)
	for i := range out {
		out[i] = i + 1
	}
	return out
}

// StartIndex is the 1-based position of the first item on the page, 0 when empty.
func (p *Page[T]) StartIndex() int64 {
	if p.Count == 0 {
		return 0
	}
	return int64((p.Number-1)*p.PerPage) + 1
}

// EndIndex is the 1-based position of the last item on the page, 0 when empty.
func (p *Page[T]) EndIndex() int64 {
	if len(p.Items) == 0 {
		return 0
	}
	return p.StartIndex() + int64(len(p.Items)) - 1
}
