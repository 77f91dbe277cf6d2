// Package domain provides types shared by the treasury business services.
package domain

// --- Filter & Pagination ---

// ListFilter contains common paging options for list operations.
type ListFilter struct {
	// OrderBy specifies sorting (e.g., "due_date", "-created_at")
	OrderBy string

	// Pagination
	Limit  int
	Offset int
}

// DefaultListFilter returns sensible defaults.
func DefaultListFilter() ListFilter {
	return ListFilter{
		Limit: 50,
	}
}

// ListResult contains paginated results.
type ListResult[T any] struct {
	Items      []T   `json:"items"`
	TotalCount int64 `json:"totalCount"`
	Limit      int   `json:"limit"`
	Offset     int   `json:"offset"`
}

// Page cuts items down to the window described by f.
// Used by stores that filter in memory.
func Page[T any](items []T, f ListFilter) ListResult[T] {
	result := ListResult[T]{
		TotalCount: int64(len(items)),
		Limit:      f.Limit,
		Offset:     f.Offset,
	}
	if f.Offset >= len(items) {
		result.Items = []T{}
		return result
	}
	items = items[f.Offset:]
	if f.Limit > 0 && f.Limit < len(items) {
		items = items[:f.Limit]
	}
	result.Items = items
	return result
}
