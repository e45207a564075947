package domain

import (
	"math"
	"strings"
)

const (
	DefaultPageSize = 10
	MaxPageSize     = 100
	DefaultSortBy   = "createdAt"
)

// sortColumns JSON 字段名 → 列名
var sortColumns = map[string]string{
	"id":          "user_id",
	"userId":      "user_id",
	"fullName":    "full_name",
	"phoneNumber": "phone_number",
	"email":       "email",
	"courseName":  "course_name",
	"status":      "status",
	"createdAt":   "created_at",
	"updatedAt":   "updated_at",
	"version":     "version",
}

// SortColumn 把排序字段映射成列名
func SortColumn(field string) (string, bool) {
	col, ok := sortColumns[field]
	return col, ok
}

// PageRequest 页码从 0 开始
type PageRequest struct {
	Page   int
	Size   int
	SortBy string
	Desc   bool
}

// NewPageRequest sortDir 忽略大小写等于 "desc" 时降序，其余升序；size 上限 MaxPageSize
func NewPageRequest(page, size int, sortBy, sortDir string) PageRequest {
	if size > MaxPageSize {
		size = MaxPageSize
	}
	if strings.TrimSpace(sortBy) == "" {
		sortBy = DefaultSortBy
	}
	return PageRequest{
		Page:   page,
		Size:   size,
		SortBy: strings.TrimSpace(sortBy),
		Desc:   strings.EqualFold(strings.TrimSpace(sortDir), "desc"),
	}
}

func (p PageRequest) Validate() error {
	if p.Page < 0 {
		return Validation("Page index must not be less than zero", nil)
	}
	if p.Size < 1 {
		return Validation("Page size must not be less than one", nil)
	}
	// Offset 不能溢出
	if p.Page > math.MaxInt/p.Size {
		return Validation("Page index is too large", nil)
	}
	if _, ok := SortColumn(p.SortBy); !ok {
		return Validation("Invalid sort field: "+p.SortBy, nil)
	}
	return nil
}

func (p PageRequest) Offset() int { return p.Page * p.Size }

type Page[T any] struct {
	Content       []T   `json:"content"`
	Page          int   `json:"page"`
	Size          int   `json:"size"`
	TotalElements int64 `json:"totalElements"`
	TotalPages    int   `json:"totalPages"`
	First         bool  `json:"first"`
	Last          bool  `json:"last"`
	Empty         bool  `json:"empty"`
}

func NewPage[T any](content []T, req PageRequest, total int64) Page[T] {
	if content == nil {
		content = []T{}
	}
	pages := 0
	if req.Size > 0 {
		pages = int((total + int64(req.Size) - 1) / int64(req.Size))
	}
	return Page[T]{
		Content:       content,
		Page:          req.Page,
		Size:          req.Size,
		TotalElements: total,
		TotalPages:    pages,
		First:         req.Page == 0,
		Last:          req.Page+1 >= pages,
		Empty:         len(content) == 0,
	}
}

// MapPage 保留分页元数据，只转换内容
func MapPage[T, R any](p Page[T], f func(T) R) Page[R] {
	out := make([]R, 0, len(p.Content))
	for _, v := range p.Content {
		out = append(out, f(v))
	}
	return Page[R]{
		Content:       out,
		Page:          p.Page,
		Size:          p.Size,
		TotalElements: p.TotalElements,
		TotalPages:    p.TotalPages,
		First:         p.First,
		Last:          p.Last,
		Empty:         p.Empty,
	}
}
