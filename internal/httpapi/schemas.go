package httpapi

import (
	"time"

	"github.com/todolevel/todo-service/internal/domain"
)

// todoOut is the wire representation of a todo.
type todoOut struct {
	ID          int64      `json:"id"`
	Title       string     `json:"title"`
	Description string     `json:"description"`
	IsDone      bool       `json:"is_done"`
	Priority    int        `json:"priority"`
	DueDate     *time.Time `json:"due_date"`
	Tags        []string   `json:"tags"`
	CreatedAt   time.Time  `json:"created_at"`
	UpdatedAt   time.Time  `json:"updated_at"`
}

// createTodoRequest creates a todo; is_done is not accepted, a new todo is
// always pending.
type createTodoRequest struct {
	Title       string     `json:"title"`
	Description string     `json:"description"`
	Priority    int        `json:"priority"`
	DueDate     *time.Time `json:"due_date"`
	Tags        []string   `json:"tags"`
}

// replaceTodoRequest is the PUT body: a full representation.
type replaceTodoRequest struct {
	Title       string     `json:"title"`
	Description string     `json:"description"`
	IsDone      bool       `json:"is_done"`
	Priority    int        `json:"priority"`
	DueDate     *time.Time `json:"due_date"`
	Tags        []string   `json:"tags"`
}

// updateTodoRequest is the PATCH body; absent fields stay unchanged.
type updateTodoRequest struct {
	Title       *string    `json:"title"`
	Description *string    `json:"description"`
	IsDone      *bool      `json:"is_done"`
	Priority    *int       `json:"priority"`
	DueDate     *time.Time `json:"due_date"`
	Tags        []string   `json:"tags"`
}

type pagedTodoResponse struct {
	Items      []todoOut `json:"items"`
	Page       int       `json:"page"`
	PageSize   int       `json:"page_size"`
	TotalItems int64     `json:"total_items"`
	TotalPages int       `json:"total_pages"`
}

type bulkTodoRequest struct {
	Op  string  `json:"op"`
	IDs []int64 `json:"ids"`
}

type bulkTodoResponse struct {
	Updated   int     `json:"updated"`
	FailedIDs []int64 `json:"failed_ids"`
}

type todoStatsResponse struct {
	Total          int64   `json:"total"`
	Done           int64   `json:"done"`
	Pending        int64   `json:"pending"`
	CompletionRate float64 `json:"completion_rate"`
}

func mapTodoOut(t domain.Todo) todoOut {
	tags := t.Tags
	if tags == nil {
		tags = []string{}
	}
	return todoOut{
		ID:          t.ID,
		Title:       t.Title,
		Description: t.Description,
		IsDone:      t.IsDone,
		Priority:    t.Priority,
		DueDate:     t.DueDate,
		Tags:        tags,
		CreatedAt:   t.CreatedAt,
		UpdatedAt:   t.UpdatedAt,
	}
}

func mapPagedResponse(result domain.SearchResult) pagedTodoResponse {
	items := make([]todoOut, len(result.Items))
	for i, todo := range result.Items {
		items[i] = mapTodoOut(todo)
	}
	return pagedTodoResponse{
		Items:      items,
		Page:       result.Page,
		PageSize:   result.PageSize,
		TotalItems: result.TotalItems,
		TotalPages: result.TotalPages(),
	}
}
