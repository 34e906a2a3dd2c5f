package domain

import (
	"strings"
	"time"
)

const (
	DefaultPageSize = 20
	MaxPageSize     = 100
)

// SearchParams describes a todo search: paging, sorting and filters. All
// filter categories combine with logical AND.
type SearchParams struct {
	Page     int
	PageSize int

	// Sort is a comma-separated field list; a "-" prefix sorts descending.
	// Empty means created_at descending.
	Sort string

	// IsDone filters on completion state when non-nil.
	IsDone *bool

	// Query is a case-insensitive substring match against title or
	// description.
	Query string

	// Tags must all be present on a matching todo (AND semantics).
	Tags []string

	// DueBefore and DueAfter are inclusive bounds on the due date.
	DueBefore *time.Time
	DueAfter  *time.Time
}

// SortField is one key of a multi-key sort, applied in listed order.
type SortField struct {
	Name       string
	Descending bool
}

// Normalize returns a copy with paging clamped and filter tags brought to
// their stored form: page >= 1, page size defaulted to 20 and clamped to
// [1,100], tags trimmed and lower-cased with empties dropped.
func (p SearchParams) Normalize() SearchParams {
	if p.Page < 1 {
		p.Page = 1
	}
	if p.PageSize == 0 {
		p.PageSize = DefaultPageSize
	}
	if p.PageSize < 1 {
		p.PageSize = 1
	}
	if p.PageSize > MaxPageSize {
		p.PageSize = MaxPageSize
	}

	if len(p.Tags) > 0 {
		tags := make([]string, 0, len(p.Tags))
		for _, tag := range p.Tags {
			tag = strings.ToLower(strings.TrimSpace(tag))
			if tag != "" {
				tags = append(tags, tag)
			}
		}
		p.Tags = tags
	}

	return p
}

// Offset is the number of rows to skip for the requested page.
func (p SearchParams) Offset() int {
	return (p.Page - 1) * p.PageSize
}

// SortFields parses the sort specification. Unknown field names are kept
// here and silently ignored by the executing layer, which keeps the API
// forgiving to client-supplied names.
func (p SearchParams) SortFields() []SortField {
	if strings.TrimSpace(p.Sort) == "" {
		return []SortField{{Name: "created_at", Descending: true}}
	}

	fields := make([]SortField, 0, 2)
	for _, field := range strings.Split(p.Sort, ",") {
		field = strings.TrimSpace(field)
		if field == "" {
			continue
		}
		if strings.HasPrefix(field, "-") {
			fields = append(fields, SortField{Name: field[1:], Descending: true})
		} else {
			fields = append(fields, SortField{Name: field})
		}
	}

	if len(fields) == 0 {
		return []SortField{{Name: "created_at", Descending: true}}
	}

	return fields
}

// SearchResult is one page of todos together with the pre-pagination total.
type SearchResult struct {
	Items      []Todo
	TotalItems int64
	Page       int
	PageSize   int
}

// TotalPages derives the page count from the total and the page size.
func (r SearchResult) TotalPages() int {
	if r.PageSize == 0 {
		return 0
	}
	return int((r.TotalItems + int64(r.PageSize) - 1) / int64(r.PageSize))
}
