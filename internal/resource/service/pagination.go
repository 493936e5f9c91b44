package service

import (
	"math"
	"strconv"
	"strings"

	"github.com/threespace/site-backend/internal/schema"
)

// Paging holds the configured page size bounds.
type Paging struct {
	DefaultSize int
	MaxSize     int
}

// DefaultPaging is used when no configuration is supplied.
var DefaultPaging = Paging{DefaultSize: 20, MaxSize: 100}

// PageRequest is a validated listing request. Page is 1-based.
type PageRequest struct {
	Page     int
	PageSize int
	Search   string
}

// Pagination is the page metadata returned with every listing.
type Pagination struct {
	Page       int   `json:"page"`
	PageSize   int   `json:"pageSize"`
	TotalItems int64 `json:"totalItems"`
	TotalPages int64 `json:"totalPages"`
}

// Page is one page of typed results.
type Page[T any] struct {
	Items      []T
	Pagination Pagination
}

const maxPage = math.MaxInt32

// ParsePageRequest validates raw query values. Empty values take defaults;
// anything else must be an integer of at least 1. Sizes above the maximum
// are clamped.
func ParsePageRequest(page, size string, p Paging) (PageRequest, error) {
	if p.DefaultSize <= 0 {
		p = DefaultPaging
	}
	req := PageRequest{Page: 1, PageSize: p.DefaultSize}
	var violations []schema.Violation

	if s := strings.TrimSpace(page); s != "" {
		n, err := strconv.Atoi(s)
		switch {
		case err != nil || n < 1:
			violations = append(violations, schema.Violation{Field: "page", Reason: "page must be a positive integer"})
		case n > maxPage:
			violations = append(violations, schema.Violation{Field: "page", Reason: "page is out of range"})
		default:
			req.Page = n
		}
	}
	if s := strings.TrimSpace(size); s != "" {
		n, err := strconv.Atoi(s)
		if err != nil || n < 1 {
			violations = append(violations, schema.Violation{Field: "limit", Reason: "limit must be a positive integer"})
		} else {
			req.PageSize = n
		}
	}
	if p.MaxSize > 0 && req.PageSize > p.MaxSize {
		req.PageSize = p.MaxSize
	}
	if len(violations) > 0 {
		return PageRequest{}, &schema.ValidationError{Violations: violations}
	}
	return req, nil
}

// Skip is the number of documents before the requested page.
func (r PageRequest) Skip() int64 {
	return int64(r.Page-1) * int64(r.PageSize)
}

// NewPagination computes page metadata; TotalPages is ceil(total/size).
func NewPagination(req PageRequest, total int64) Pagination {
	pages := int64(0)
	if req.PageSize > 0 {
		pages = (total + int64(req.PageSize) - 1) / int64(req.PageSize)
	}
	return Pagination{Page: req.Page, PageSize: req.PageSize, TotalItems: total, TotalPages: pages}
}
