package domain

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestSearchParams_Normalize(t *testing.T) {
	tests := []struct {
		name         string
		params       SearchParams
		wantPage     int
		wantPageSize int
	}{
		{name: "defaults", params: SearchParams{}, wantPage: 1, wantPageSize: 20},
		{name: "negative page", params: SearchParams{Page: -3, PageSize: 10}, wantPage: 1, wantPageSize: 10},
		{name: "page size below minimum", params: SearchParams{Page: 2, PageSize: -1}, wantPage: 2, wantPageSize: 1},
		{name: "page size above maximum", params: SearchParams{Page: 2, PageSize: 500}, wantPage: 2, wantPageSize: 100},
		{name: "valid values kept", params: SearchParams{Page: 3, PageSize: 50}, wantPage: 3, wantPageSize: 50},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := tt.params.Normalize()
			assert.Equal(t, tt.wantPage, got.Page)
			assert.Equal(t, tt.wantPageSize, got.PageSize)
		})
	}
}

func TestSearchParams_NormalizeTags(t *testing.T) {
	params := SearchParams{Tags: []string{" Work ", "URGENT", ""}}
	got := params.Normalize()
	assert.Equal(t, []string{"work", "urgent"}, got.Tags)
}

func TestSearchParams_Offset(t *testing.T) {
	params := SearchParams{Page: 3, PageSize: 20}.Normalize()
	assert.Equal(t, 40, params.Offset())

	params = SearchParams{}.Normalize()
	assert.Equal(t, 0, params.Offset())
}

func TestSearchParams_SortFields(t *testing.T) {
	tests := []struct {
		name string
		sort string
		want []SortField
	}{
		{
			name: "empty defaults to created_at descending",
			sort: "",
			want: []SortField{{Name: "created_at", Descending: true}},
		},
		{
			name: "single ascending",
			sort: "priority",
			want: []SortField{{Name: "priority"}},
		},
		{
			name: "single descending",
			sort: "-priority",
			want: []SortField{{Name: "priority", Descending: true}},
		},
		{
			name: "multiple fields keep listed order",
			sort: "-priority,title, -due_date",
			want: []SortField{
				{Name: "priority", Descending: true},
				{Name: "title"},
				{Name: "due_date", Descending: true},
			},
		},
		{
			name: "unknown fields are kept for the executor to skip",
			sort: "nonsense",
			want: []SortField{{Name: "nonsense"}},
		},
		{
			name: "only commas falls back to default",
			sort: " , ,",
			want: []SortField{{Name: "created_at", Descending: true}},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, SearchParams{Sort: tt.sort}.SortFields())
		})
	}
}

func TestSearchResult_TotalPages(t *testing.T) {
	tests := []struct {
		name       string
		totalItems int64
		pageSize   int
		want       int
	}{
		{name: "exact multiple", totalItems: 40, pageSize: 20, want: 2},
		{name: "rounds up", totalItems: 5, pageSize: 2, want: 3},
		{name: "empty", totalItems: 0, pageSize: 20, want: 0},
		{name: "single partial page", totalItems: 1, pageSize: 100, want: 1},
		{name: "zero page size", totalItems: 10, pageSize: 0, want: 0},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			result := SearchResult{TotalItems: tt.totalItems, PageSize: tt.pageSize}
			assert.Equal(t, tt.want, result.TotalPages())
		})
	}
}
