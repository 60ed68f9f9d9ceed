package repository

// Story feeds stay short by default; page_size is capped so a single
// request cannot pull the whole archive.
const (
	DefaultPage     = 1
	DefaultPageSize = 10
	MaxPageSize     = 50
)

type PageRequest struct {
	Page     int
	PageSize int
}

func (p PageRequest) normalized() PageRequest {
	if p.Page < DefaultPage {
		p.Page = DefaultPage
	}
	switch {
	case p.PageSize < 1:
		p.PageSize = DefaultPageSize
	case p.PageSize > MaxPageSize:
		p.PageSize = MaxPageSize
	}
	return p
}

func (p PageRequest) offset() int {
	return (p.Page - 1) * p.PageSize
}

type PageResult[T any] struct {
	Items      []T
	Page       int
	PageSize   int
	Total      int64
	TotalPages int
}

// newPageResult assumes page has already been normalized, so PageSize is
// positive and the ceiling division is safe.
func newPageResult[T any](items []T, page PageRequest, total int64) PageResult[T] {
	result := PageResult[T]{
		Items:    items,
		Page:     page.Page,
		PageSize: page.PageSize,
		Total:    total,
	}
	if total > 0 {
		result.TotalPages = int((total + int64(page.PageSize) - 1) / int64(page.PageSize))
	}
	return result
}
