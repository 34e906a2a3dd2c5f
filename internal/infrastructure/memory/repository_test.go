package memory

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/todolevel/todo-service/internal/domain"
)

func mustCreate(t *testing.T, repo *Repository, title string, mutate func(*domain.Todo)) domain.Todo {
	t.Helper()

	todo, err := domain.NewTodo(title, "", 0, nil, nil)
	require.NoError(t, err)
	if mutate != nil {
		mutate(&todo)
	}

	created, err := repo.Create(context.Background(), todo)
	require.NoError(t, err)
	return created
}

func TestCreateAssignsSequentialIDs(t *testing.T) {
	repo := NewRepository()

	first := mustCreate(t, repo, "first", nil)
	second := mustCreate(t, repo, "second", nil)

	assert.Equal(t, int64(1), first.ID)
	assert.Equal(t, int64(2), second.ID)
}

func TestCreateRejectsAssignedID(t *testing.T) {
	repo := NewRepository()

	todo, err := domain.NewTodo("t", "", 0, nil, nil)
	require.NoError(t, err)
	todo.ID = 42

	_, err = repo.Create(context.Background(), todo)
	assert.ErrorIs(t, err, domain.ErrIDAssigned)
}

func TestRoundTrip(t *testing.T) {
	repo := NewRepository()
	ctx := context.Background()

	due := time.Now().UTC().Add(24 * time.Hour)
	todo, err := domain.NewTodo("Buy milk", "from the corner shop", 3, &due, []string{"errands"})
	require.NoError(t, err)

	created, err := repo.Create(ctx, todo)
	require.NoError(t, err)
	require.NotZero(t, created.ID)

	fetched, err := repo.GetByID(ctx, created.ID)
	require.NoError(t, err)

	assert.Equal(t, created.ID, fetched.ID)
	assert.Equal(t, "Buy milk", fetched.Title)
	assert.Equal(t, "from the corner shop", fetched.Description)
	assert.Equal(t, 3, fetched.Priority)
	assert.Equal(t, []string{"errands"}, fetched.Tags)
	require.NotNil(t, fetched.DueDate)
	assert.True(t, fetched.DueDate.Equal(due))
}

func TestGetByIDNotFound(t *testing.T) {
	repo := NewRepository()

	_, err := repo.GetByID(context.Background(), 999)
	assert.ErrorIs(t, err, domain.ErrTodoNotFound)
}

func TestUpdate(t *testing.T) {
	repo := NewRepository()
	ctx := context.Background()

	created := mustCreate(t, repo, "before", nil)

	title := "after"
	changed, err := created.Update(domain.UpdateParams{Title: &title})
	require.NoError(t, err)

	updated, err := repo.Update(ctx, changed)
	require.NoError(t, err)
	assert.Equal(t, "after", updated.Title)

	fetched, err := repo.GetByID(ctx, created.ID)
	require.NoError(t, err)
	assert.Equal(t, "after", fetched.Title)
}

func TestUpdatePreconditions(t *testing.T) {
	repo := NewRepository()
	ctx := context.Background()

	todo, err := domain.NewTodo("t", "", 0, nil, nil)
	require.NoError(t, err)

	_, err = repo.Update(ctx, todo)
	assert.ErrorIs(t, err, domain.ErrIDRequired)

	todo.ID = 12345
	_, err = repo.Update(ctx, todo)
	assert.ErrorIs(t, err, domain.ErrTodoNotFound)
}

func TestDelete(t *testing.T) {
	repo := NewRepository()
	ctx := context.Background()

	created := mustCreate(t, repo, "t", nil)

	deleted, err := repo.Delete(ctx, created.ID)
	require.NoError(t, err)
	assert.True(t, deleted)

	deleted, err = repo.Delete(ctx, created.ID)
	require.NoError(t, err)
	assert.False(t, deleted)

	_, err = repo.GetByID(ctx, created.ID)
	assert.ErrorIs(t, err, domain.ErrTodoNotFound)
}

func TestExists(t *testing.T) {
	repo := NewRepository()
	ctx := context.Background()

	created := mustCreate(t, repo, "t", nil)

	exists, err := repo.Exists(ctx, created.ID)
	require.NoError(t, err)
	assert.True(t, exists)

	exists, err = repo.Exists(ctx, 999)
	require.NoError(t, err)
	assert.False(t, exists)
}

func TestSearchSortByPriority(t *testing.T) {
	repo := NewRepository()
	ctx := context.Background()

	for _, priority := range []int{1, 5, 3} {
		p := priority
		mustCreate(t, repo, "t", func(todo *domain.Todo) { todo.Priority = p })
	}

	result, err := repo.Search(ctx, domain.SearchParams{Sort: "-priority"})
	require.NoError(t, err)
	assert.Equal(t, []int{5, 3, 1}, priorities(result.Items))

	result, err = repo.Search(ctx, domain.SearchParams{Sort: "priority"})
	require.NoError(t, err)
	assert.Equal(t, []int{1, 3, 5}, priorities(result.Items))
}

func TestSearchMultiKeySort(t *testing.T) {
	repo := NewRepository()
	ctx := context.Background()

	mustCreate(t, repo, "banana", func(todo *domain.Todo) { todo.Priority = 2 })
	mustCreate(t, repo, "apple", func(todo *domain.Todo) { todo.Priority = 2 })
	mustCreate(t, repo, "cherry", func(todo *domain.Todo) { todo.Priority = 5 })

	result, err := repo.Search(ctx, domain.SearchParams{Sort: "-priority,title"})
	require.NoError(t, err)

	assert.Equal(t, []string{"cherry", "apple", "banana"}, titles(result.Items))
}

func TestSearchUnknownSortFieldIgnored(t *testing.T) {
	repo := NewRepository()
	ctx := context.Background()

	mustCreate(t, repo, "a", nil)
	mustCreate(t, repo, "b", nil)

	result, err := repo.Search(ctx, domain.SearchParams{Sort: "bogus_field"})
	require.NoError(t, err)
	assert.Len(t, result.Items, 2)
}

func TestSearchPagination(t *testing.T) {
	repo := NewRepository()
	ctx := context.Background()

	for i := 0; i < 5; i++ {
		mustCreate(t, repo, "t", nil)
	}

	page1, err := repo.Search(ctx, domain.SearchParams{Page: 1, PageSize: 2, Sort: "created_at"})
	require.NoError(t, err)
	assert.Len(t, page1.Items, 2)
	assert.Equal(t, int64(5), page1.TotalItems)
	assert.Equal(t, 3, page1.TotalPages())

	page2, err := repo.Search(ctx, domain.SearchParams{Page: 2, PageSize: 2, Sort: "created_at"})
	require.NoError(t, err)
	assert.Len(t, page2.Items, 2)
	assert.NotEqual(t, page1.Items[0].ID, page2.Items[0].ID)

	page3, err := repo.Search(ctx, domain.SearchParams{Page: 3, PageSize: 2, Sort: "created_at"})
	require.NoError(t, err)
	assert.Len(t, page3.Items, 1)

	beyond, err := repo.Search(ctx, domain.SearchParams{Page: 9, PageSize: 2})
	require.NoError(t, err)
	assert.Empty(t, beyond.Items)
	assert.Equal(t, int64(5), beyond.TotalItems)
}

func TestSearchIsDoneFilter(t *testing.T) {
	repo := NewRepository()
	ctx := context.Background()

	done := mustCreate(t, repo, "done one", func(todo *domain.Todo) { todo.IsDone = true })
	mustCreate(t, repo, "pending one", nil)

	isDone := true
	result, err := repo.Search(ctx, domain.SearchParams{IsDone: &isDone})
	require.NoError(t, err)
	require.Len(t, result.Items, 1)
	assert.Equal(t, done.ID, result.Items[0].ID)

	isDone = false
	result, err = repo.Search(ctx, domain.SearchParams{IsDone: &isDone})
	require.NoError(t, err)
	require.Len(t, result.Items, 1)
	assert.Equal(t, "pending one", result.Items[0].Title)
}

func TestSearchFreeText(t *testing.T) {
	repo := NewRepository()
	ctx := context.Background()

	mustCreate(t, repo, "Buy milk", nil)
	mustCreate(t, repo, "Call doctor", func(todo *domain.Todo) { todo.Description = "about the MILK allergy" })
	mustCreate(t, repo, "Walk dog", nil)

	result, err := repo.Search(ctx, domain.SearchParams{Query: "milk"})
	require.NoError(t, err)
	assert.Equal(t, int64(2), result.TotalItems)

	result, err = repo.Search(ctx, domain.SearchParams{Query: "doctor"})
	require.NoError(t, err)
	require.Len(t, result.Items, 1)
	assert.Equal(t, "Call doctor", result.Items[0].Title)
}

func TestSearchTagsRequireAll(t *testing.T) {
	repo := NewRepository()
	ctx := context.Background()

	both := mustCreate(t, repo, "both", func(todo *domain.Todo) { todo.Tags = []string{"work", "urgent"} })
	mustCreate(t, repo, "only work", func(todo *domain.Todo) { todo.Tags = []string{"work"} })

	result, err := repo.Search(ctx, domain.SearchParams{Tags: []string{"work", "urgent"}})
	require.NoError(t, err)
	require.Len(t, result.Items, 1)
	assert.Equal(t, both.ID, result.Items[0].ID)

	result, err = repo.Search(ctx, domain.SearchParams{Tags: []string{"WORK"}})
	require.NoError(t, err)
	assert.Equal(t, int64(2), result.TotalItems)
}

func TestSearchDueDateBounds(t *testing.T) {
	repo := NewRepository()
	ctx := context.Background()

	base := time.Date(2026, 6, 1, 0, 0, 0, 0, time.UTC)
	for _, offset := range []int{0, 1, 2} {
		due := base.AddDate(0, 0, offset)
		mustCreate(t, repo, "t", func(todo *domain.Todo) { todo.DueDate = &due })
	}
	mustCreate(t, repo, "no due date", nil)

	middle := base.AddDate(0, 0, 1)

	result, err := repo.Search(ctx, domain.SearchParams{DueBefore: &middle})
	require.NoError(t, err)
	assert.Equal(t, int64(2), result.TotalItems) // inclusive upper bound

	result, err = repo.Search(ctx, domain.SearchParams{DueAfter: &middle})
	require.NoError(t, err)
	assert.Equal(t, int64(2), result.TotalItems) // inclusive lower bound

	result, err = repo.Search(ctx, domain.SearchParams{DueAfter: &middle, DueBefore: &middle})
	require.NoError(t, err)
	assert.Equal(t, int64(1), result.TotalItems)
}

func TestSearchFiltersCombineWithAnd(t *testing.T) {
	repo := NewRepository()
	ctx := context.Background()

	match := mustCreate(t, repo, "pay rent", func(todo *domain.Todo) {
		todo.IsDone = true
		todo.Tags = []string{"home"}
	})
	mustCreate(t, repo, "pay rent", func(todo *domain.Todo) { todo.Tags = []string{"home"} })
	mustCreate(t, repo, "other", func(todo *domain.Todo) { todo.IsDone = true })

	isDone := true
	result, err := repo.Search(ctx, domain.SearchParams{
		IsDone: &isDone,
		Query:  "rent",
		Tags:   []string{"home"},
	})
	require.NoError(t, err)
	require.Len(t, result.Items, 1)
	assert.Equal(t, match.ID, result.Items[0].ID)
}

func priorities(todos []domain.Todo) []int {
	out := make([]int, len(todos))
	for i, todo := range todos {
		out[i] = todo.Priority
	}
	return out
}

func titles(todos []domain.Todo) []string {
	out := make([]string, len(todos))
	for i, todo := range todos {
		out[i] = todo.Title
	}
	return out
}
