package utils

import "strings"

// Searchable entities expose the text fields the list endpoints search over.
type Searchable interface {
	SearchText() []string
}

// SearchFilter returns the items whose search text contains term
// (case-insensitive substring), preserving input order. An empty or
// whitespace-only term matches everything.
func SearchFilter[T Searchable](items []T, term string) []T {
	term = strings.TrimSpace(term)
	if term == "" {
		return items
	}
	lower := strings.ToLower(term)
	matched := make([]T, 0, len(items))
	for _, item := range items {
		for _, field := range item.SearchText() {
			if strings.Contains(strings.ToLower(field), lower) {
				matched = append(matched, item)
				break
			}
		}
	}
	return matched
}

const DefaultPageSize = 10

var allowedPageSizes = map[int]bool{5: true, 10: true, 20: true, 50: true}

// NormalizePageSize clamps page_size to the allowed set.
func NormalizePageSize(size int) int {
	if allowedPageSizes[size] {
		return size
	}
	return DefaultPageSize
}

// Paginate slices one 1-based page out of items. Pages past the end are empty.
func Paginate[T any](items []T, page int, pageSize int) []T {
	if page < 1 {
		page = 1
	}
	pageSize = NormalizePageSize(pageSize)
	start := (page - 1) * pageSize
	if start >= len(items) {
		return []T{}
	}
	end := start + pageSize
	if end > len(items) {
		end = len(items)
	}
	return items[start:end]
}
