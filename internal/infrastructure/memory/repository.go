// Package memory provides a mutex-guarded in-process TodoRepository. It
// backs the memory storage driver and the unit tests that need a real
// repository without a database.
package memory

import (
	"context"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/todolevel/todo-service/internal/domain"
)

type Repository struct {
	mu     sync.RWMutex
	todos  map[int64]domain.Todo
	nextID int64
}

func NewRepository() *Repository {
	return &Repository{
		todos:  make(map[int64]domain.Todo),
		nextID: 1,
	}
}

func (r *Repository) Create(ctx context.Context, todo domain.Todo) (domain.Todo, error) {
	if todo.ID != 0 {
		return domain.Todo{}, domain.ErrIDAssigned
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	now := time.Now().UTC()
	todo.ID = r.nextID
	todo.CreatedAt = now
	todo.UpdatedAt = now
	r.nextID++

	r.todos[todo.ID] = cloneTodo(todo)
	return todo, nil
}

func (r *Repository) GetByID(ctx context.Context, id int64) (domain.Todo, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	todo, ok := r.todos[id]
	if !ok {
		return domain.Todo{}, domain.ErrTodoNotFound
	}

	return cloneTodo(todo), nil
}

func (r *Repository) Update(ctx context.Context, todo domain.Todo) (domain.Todo, error) {
	if todo.ID == 0 {
		return domain.Todo{}, domain.ErrIDRequired
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	if _, ok := r.todos[todo.ID]; !ok {
		return domain.Todo{}, domain.ErrTodoNotFound
	}

	todo.UpdatedAt = time.Now().UTC()
	r.todos[todo.ID] = cloneTodo(todo)
	return todo, nil
}

func (r *Repository) Delete(ctx context.Context, id int64) (bool, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, ok := r.todos[id]; !ok {
		return false, nil
	}

	delete(r.todos, id)
	return true, nil
}

func (r *Repository) Exists(ctx context.Context, id int64) (bool, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	_, ok := r.todos[id]
	return ok, nil
}

func (r *Repository) Search(ctx context.Context, params domain.SearchParams) (domain.SearchResult, error) {
	params = params.Normalize()

	r.mu.RLock()
	matched := make([]domain.Todo, 0, len(r.todos))
	for _, todo := range r.todos {
		if matches(todo, params) {
			matched = append(matched, cloneTodo(todo))
		}
	}
	r.mu.RUnlock()

	total := int64(len(matched))
	sortTodos(matched, params.SortFields())

	offset := params.Offset()
	if offset > len(matched) {
		offset = len(matched)
	}
	end := offset + params.PageSize
	if end > len(matched) {
		end = len(matched)
	}

	return domain.SearchResult{
		Items:      matched[offset:end],
		TotalItems: total,
		Page:       params.Page,
		PageSize:   params.PageSize,
	}, nil
}

// matches evaluates every filter category with AND semantics.
func matches(todo domain.Todo, params domain.SearchParams) bool {
	if params.IsDone != nil && todo.IsDone != *params.IsDone {
		return false
	}

	if params.Query != "" {
		q := strings.ToLower(params.Query)
		if !strings.Contains(strings.ToLower(todo.Title), q) &&
			!strings.Contains(strings.ToLower(todo.Description), q) {
			return false
		}
	}

	// Every requested tag must be present; stored tags are already
	// lower-cased.
	for _, tag := range params.Tags {
		if !todo.HasTag(tag) {
			return false
		}
	}

	if params.DueBefore != nil {
		if todo.DueDate == nil || todo.DueDate.After(*params.DueBefore) {
			return false
		}
	}

	if params.DueAfter != nil {
		if todo.DueDate == nil || todo.DueDate.Before(*params.DueAfter) {
			return false
		}
	}

	return true
}

// sortTodos applies a stable multi-key sort in listed order, falling through
// to ID for fully tied rows so pages are deterministic. Unknown field names
// are skipped, not rejected.
func sortTodos(todos []domain.Todo, fields []domain.SortField) {
	sort.SliceStable(todos, func(i, j int) bool {
		for _, field := range fields {
			c := compareField(todos[i], todos[j], field.Name)
			if c == 0 {
				continue
			}
			if field.Descending {
				return c > 0
			}
			return c < 0
		}
		return todos[i].ID < todos[j].ID
	})
}

func compareField(a, b domain.Todo, field string) int {
	switch field {
	case "title":
		return strings.Compare(a.Title, b.Title)
	case "priority":
		return compareInt(a.Priority, b.Priority)
	case "is_done":
		return compareBool(a.IsDone, b.IsDone)
	case "due_date":
		return compareTimePtr(a.DueDate, b.DueDate)
	case "created_at":
		return compareTime(a.CreatedAt, b.CreatedAt)
	case "updated_at":
		return compareTime(a.UpdatedAt, b.UpdatedAt)
	default:
		return 0
	}
}

func compareInt(a, b int) int {
	switch {
	case a < b:
		return -1
	case a > b:
		return 1
	default:
		return 0
	}
}

func compareBool(a, b bool) int {
	switch {
	case !a && b:
		return -1
	case a && !b:
		return 1
	default:
		return 0
	}
}

func compareTime(a, b time.Time) int {
	switch {
	case a.Before(b):
		return -1
	case a.After(b):
		return 1
	default:
		return 0
	}
}

// compareTimePtr sorts nil due dates after every concrete one.
func compareTimePtr(a, b *time.Time) int {
	switch {
	case a == nil && b == nil:
		return 0
	case a == nil:
		return 1
	case b == nil:
		return -1
	default:
		return compareTime(*a, *b)
	}
}

func cloneTodo(t domain.Todo) domain.Todo {
	t.Tags = append([]string(nil), t.Tags...)
	if t.DueDate != nil {
		due := *t.DueDate
		t.DueDate = &due
	}
	return t
}
