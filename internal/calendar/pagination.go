package calendar

// Page is one page of items.
type Page[T any] struct {
	Items    []T // items of the current page
	Page     int // 1-based page number
	PageSize int // items per page
	HasNext  bool
	HasPrev  bool
	Total    int // total number of items
}

// Paginate returns the items of the requested page with page metadata.
// page is 1-based; invalid values fall back to defaults.
func Paginate[T any](items []T, page, pageSize int) Page[T] {
	const defaultPageSize = 10

	total := len(items)

	if pageSize <= 0 {
		pageSize = defaultPageSize
	}
	if page <= 0 {
		page = 1
	}

	start := (page - 1) * pageSize
	if start > total {
		start = total
	}

	end := start + pageSize
	if end > total {
		end = total
	}

	pageItems := items[start:end]

	hasPrev := page > 1
	hasNext := end < total

	return Page[T]{
		Items:    pageItems,
		Page:     page,
		PageSize: pageSize,
		HasNext:  hasNext,
		HasPrev:  hasPrev,
		Total:    total,
	}
}
