// Package pagination pages list endpoints with ?page=N&limit=M.
package pagination

import (
	"gorm.io/gorm"
)

const (
	// DefaultLimit is the page size when ?limit is absent.
	DefaultLimit = 10
	// MaxLimit caps ?limit.
	MaxLimit = 100
)

// PageRequest is the requested page, bound from the query string.
type PageRequest struct {
	Page  int `form:"page" binding:"omitempty,min=1"`
	Limit int `form:"limit" binding:"omitempty,min=1,max=100"`
}

// Normalize fills in page 1 and DefaultLimit, and clamps Limit to MaxLimit
// for callers that skip request binding.
func (p *PageRequest) Normalize() {
	if p.Page < 1 {
		p.Page = 1
	}
	switch {
	case p.Limit < 1:
		p.Limit = DefaultLimit
	case p.Limit > MaxLimit:
		p.Limit = MaxLimit
	}
}

// Offset is the number of rows before the requested page.
func (p PageRequest) Offset() int {
	return (p.Page - 1) * p.Limit
}

// PageResponse is one page of items plus the metadata to fetch the rest.
type PageResponse[T any] struct {
	Data        []T   `json:"data"`
	CurrentPage int   `json:"current_page"`
	Limit       int   `json:"limit"`
	TotalItems  int64 `json:"total_items"`
	TotalPages  int   `json:"total_pages"`
}

// NewPageResponse builds the response for req given the page's rows and the
// total row count. Data is never null.
func NewPageResponse[T any](data []T, req PageRequest, totalItems int64) PageResponse[T] {
	if data == nil {
		data = []T{}
	}
	var totalPages int
	if req.Limit > 0 {
		totalPages = int((totalItems + int64(req.Limit) - 1) / int64(req.Limit))
	}
	return PageResponse[T]{
		Data:        data,
		CurrentPage: req.Page,
		Limit:       req.Limit,
		TotalItems:  totalItems,
		TotalPages:  totalPages,
	}
}

// Paginate is a gorm scope selecting req's rows. req must be normalized.
func Paginate(req PageRequest) func(db *gorm.DB) *gorm.DB {
	return func(db *gorm.DB) *gorm.DB {
		return db.Offset(req.Offset()).Limit(req.Limit)
	}
}
