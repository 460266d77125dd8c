package service

import "github.com/vbonduro/sitegallery/internal/domain"

const (
	DefaultPage  = 1
	DefaultLimit = 20
	MaxLimit     = 100
)

type Pagination struct {
	CurrentPage int `json:"currentPage"`
	TotalPages  int `json:"totalPages"`
	TotalImages int `json:"totalImages"`
	Limit       int `json:"limit"`
}

type Page struct {
	Images     []*domain.ImageRecord `json:"images"`
	Pagination Pagination            `json:"pagination"`
}

// Paginate slices records into the requested page. page and limit below 1
// fall back to the defaults and limit is capped at MaxLimit. A page past
// the end yields an empty, non-nil slice with the same summary.
func Paginate(records []*domain.ImageRecord, page, limit int) *Page {
	if page < 1 {
		page = DefaultPage
	}
	if limit < 1 {
		limit = DefaultLimit
	}
	limit = min(limit, MaxLimit)

	total := len(records)
	start := total
	if page-1 <= total/limit {
		start = min((page-1)*limit, total)
	}
	end := min(start+limit, total)

	images := make([]*domain.ImageRecord, end-start)
	copy(images, records[start:end])

	return &Page{
		Images: images,
		Pagination: Pagination{
			CurrentPage: page,
			TotalPages:  (total + limit - 1) / limit,
			TotalImages: total,
			Limit:       limit,
		},
	}
}
