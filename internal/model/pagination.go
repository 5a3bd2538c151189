package model

import "math"

// PageRequest selects one page of a listing. Page is zero-based and Offset
// is the page size.
type PageRequest struct {
	Page   int
	Offset int
}

// DefaultPageSize is used when a request does not specify one
const DefaultPageSize = 10

// MaxPageSize caps the page size a caller can request
const MaxPageSize = 100

// Normalize clamps the request into a usable range
func (p PageRequest) Normalize() PageRequest {
	if p.Page < 0 {
		p.Page = 0
	}
	if p.Offset <= 0 {
		p.Offset = DefaultPageSize
	}
	if p.Offset > MaxPageSize {
		p.Offset = MaxPageSize
	}
	// Start()+Offset must stay within int
	if maxPage := math.MaxInt/p.Offset - 1; p.Page > maxPage {
		p.Page = maxPage
	}
	return p
}

// Start is the index of the first item on the page
func (p PageRequest) Start() int {
	return p.Page * p.Offset
}

// Pagination is one page of results
type Pagination[T any] struct {
	Page   int
	Offset int
	Total  int // All matches before paging
	Data   []T
}

// Paginate slices an already filtered and ordered list
func Paginate[T any](items []T, req PageRequest) Pagination[T] {
	req = req.Normalize()
	result := Pagination[T]{
		Page:   req.Page,
		Offset: req.Offset,
		Total:  len(items),
		Data:   []T{},
	}
	start := req.Start()
	if start >= len(items) {
		return result
	}
	end := min(start+req.Offset, len(items))
	result.Data = append(result.Data, items[start:end]...)
	return result
}

// MapPagination converts the data of a page, keeping its bounds
func MapPagination[T, U any](p Pagination[T], fn func(T) U) Pagination[U] {
	out := Pagination[U]{
		Page:   p.Page,
		Offset: p.Offset,
		Total:  p.Total,
		Data:   make([]U, 0, len(p.Data)),
	}
	for _, item := range p.Data {
		out.Data = append(out.Data, fn(item))
	}
	return out
}
