// Package paging slices in-memory lists into fixed-size pages.
package paging

// Page is one page of items. Number is 1-based and Total is never below 1.
type Page[T any] struct {
	Items  []T
	Number int
	Size   int
	Total  int
}

// TotalPages returns max(1, ceil(n/size)).
func TotalPages(n, size int) int {
	if size < 1 || n <= 0 {
		return 1
	}
	return (n + size - 1) / size
}

// Paginate returns page number page (1-based) of items. A page below 1 is
// treated as 1, a size below 1 as one page holding everything, and a page
// past the end is empty.
func Paginate[T any](items []T, page, size int) Page[T] {
	if page < 1 {
		page = 1
	}
	if size < 1 {
		size = max(len(items), 1)
	}
	p := Page[T]{Number: page, Size: size, Total: TotalPages(len(items), size), Items: []T{}}
	start := (page - 1) * size
	if start >= len(items) {
		return p
	}
	end := min(start+size, len(items))
	p.Items = items[start:end:end]
	return p
}
