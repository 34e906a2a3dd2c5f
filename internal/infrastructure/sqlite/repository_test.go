package sqlite

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/todolevel/todo-service/internal/domain"
)

func openTestRepository(t *testing.T) *Repository {
	t.Helper()

	repo, err := Open(":memory:")
	require.NoError(t, err)
	t.Cleanup(func() { repo.Close() })
	return repo
}

func seedTodo(t *testing.T, repo *Repository, title string, mutate func(*domain.Todo)) domain.Todo {
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

func TestRoundTrip(t *testing.T) {
	repo := openTestRepository(t)
	ctx := context.Background()

	due := time.Date(2026, 9, 15, 12, 0, 0, 0, time.UTC)
	todo, err := domain.NewTodo("Buy milk", "two liters", 3, &due, []string{"Errands", "shopping"})
	require.NoError(t, err)

	created, err := repo.Create(ctx, todo)
	require.NoError(t, err)
	require.NotZero(t, created.ID)

	fetched, err := repo.GetByID(ctx, created.ID)
	require.NoError(t, err)

	assert.Equal(t, "Buy milk", fetched.Title)
	assert.Equal(t, "two liters", fetched.Description)
	assert.Equal(t, 3, fetched.Priority)
	assert.Equal(t, []string{"errands", "shopping"}, fetched.Tags)
	require.NotNil(t, fetched.DueDate)
	assert.True(t, fetched.DueDate.Equal(due))
	assert.False(t, fetched.CreatedAt.IsZero())
}

func TestRoundTripNilDueDateAndEmptyTags(t *testing.T) {
	repo := openTestRepository(t)

	created := seedTodo(t, repo, "bare", nil)

	fetched, err := repo.GetByID(context.Background(), created.ID)
	require.NoError(t, err)

	assert.Nil(t, fetched.DueDate)
	assert.NotNil(t, fetched.Tags)
	assert.Empty(t, fetched.Tags)
}

func TestCreateRejectsAssignedID(t *testing.T) {
	repo := openTestRepository(t)

	todo, err := domain.NewTodo("t", "", 0, nil, nil)
	require.NoError(t, err)
	todo.ID = 7

	_, err = repo.Create(context.Background(), todo)
	assert.ErrorIs(t, err, domain.ErrIDAssigned)
}

func TestGetByIDNotFound(t *testing.T) {
	repo := openTestRepository(t)

	_, err := repo.GetByID(context.Background(), 999)
	assert.ErrorIs(t, err, domain.ErrTodoNotFound)
}

func TestUpdate(t *testing.T) {
	repo := openTestRepository(t)
	ctx := context.Background()

	created := seedTodo(t, repo, "before", nil)

	created.Title = "after"
	created.IsDone = true
	created.Tags = []string{"done-pile"}

	updated, err := repo.Update(ctx, created)
	require.NoError(t, err)
	assert.True(t, !updated.UpdatedAt.Before(created.CreatedAt))

	fetched, err := repo.GetByID(ctx, created.ID)
	require.NoError(t, err)
	assert.Equal(t, "after", fetched.Title)
	assert.True(t, fetched.IsDone)
	assert.Equal(t, []string{"done-pile"}, fetched.Tags)
}

func TestUpdatePreconditions(t *testing.T) {
	repo := openTestRepository(t)
	ctx := context.Background()

	todo, err := domain.NewTodo("t", "", 0, nil, nil)
	require.NoError(t, err)

	_, err = repo.Update(ctx, todo)
	assert.ErrorIs(t, err, domain.ErrIDRequired)

	todo.ID = 999
	_, err = repo.Update(ctx, todo)
	assert.ErrorIs(t, err, domain.ErrTodoNotFound)
}

func TestDeleteAndExists(t *testing.T) {
	repo := openTestRepository(t)
	ctx := context.Background()

	created := seedTodo(t, repo, "t", nil)

	exists, err := repo.Exists(ctx, created.ID)
	require.NoError(t, err)
	assert.True(t, exists)

	deleted, err := repo.Delete(ctx, created.ID)
	require.NoError(t, err)
	assert.True(t, deleted)

	deleted, err = repo.Delete(ctx, created.ID)
	require.NoError(t, err)
	assert.False(t, deleted)

	exists, err = repo.Exists(ctx, created.ID)
	require.NoError(t, err)
	assert.False(t, exists)
}

func TestSearchFilters(t *testing.T) {
	repo := openTestRepository(t)
	ctx := context.Background()

	seedTodo(t, repo, "Buy milk", func(todo *domain.Todo) {
		todo.Tags = []string{"errands"}
	})
	seedTodo(t, repo, "Call doctor", func(todo *domain.Todo) {
		todo.Description = "ask about the milk allergy"
		todo.IsDone = true
	})
	seedTodo(t, repo, "Learn go", func(todo *domain.Todo) {
		todo.Tags = []string{"golang"}
	})

	result, err := repo.Search(ctx, domain.SearchParams{Query: "milk"})
	require.NoError(t, err)
	assert.Equal(t, int64(2), result.TotalItems)

	isDone := true
	result, err = repo.Search(ctx, domain.SearchParams{IsDone: &isDone})
	require.NoError(t, err)
	require.Len(t, result.Items, 1)
	assert.Equal(t, "Call doctor", result.Items[0].Title)

	// "go" must not match the stored tag "golang".
	result, err = repo.Search(ctx, domain.SearchParams{Tags: []string{"go"}})
	require.NoError(t, err)
	assert.Zero(t, result.TotalItems)

	result, err = repo.Search(ctx, domain.SearchParams{Tags: []string{"golang"}})
	require.NoError(t, err)
	require.Len(t, result.Items, 1)
	assert.Equal(t, "Learn go", result.Items[0].Title)
}

func TestSearchTagsRequireAll(t *testing.T) {
	repo := openTestRepository(t)
	ctx := context.Background()

	both := seedTodo(t, repo, "both", func(todo *domain.Todo) {
		todo.Tags = []string{"work", "urgent"}
	})
	seedTodo(t, repo, "only work", func(todo *domain.Todo) {
		todo.Tags = []string{"work"}
	})

	result, err := repo.Search(ctx, domain.SearchParams{Tags: []string{"work", "urgent"}})
	require.NoError(t, err)
	require.Len(t, result.Items, 1)
	assert.Equal(t, both.ID, result.Items[0].ID)
}

func TestSearchDueDateBounds(t *testing.T) {
	repo := openTestRepository(t)
	ctx := context.Background()

	base := time.Date(2026, 6, 1, 0, 0, 0, 0, time.UTC)
	for _, offset := range []int{0, 1, 2} {
		due := base.AddDate(0, 0, offset)
		seedTodo(t, repo, "t", func(todo *domain.Todo) { todo.DueDate = &due })
	}
	seedTodo(t, repo, "no due date", nil)

	middle := base.AddDate(0, 0, 1)

	result, err := repo.Search(ctx, domain.SearchParams{DueBefore: &middle})
	require.NoError(t, err)
	assert.Equal(t, int64(2), result.TotalItems)

	result, err = repo.Search(ctx, domain.SearchParams{DueAfter: &middle})
	require.NoError(t, err)
	assert.Equal(t, int64(2), result.TotalItems)
}

func TestSearchSortAndPagination(t *testing.T) {
	repo := openTestRepository(t)
	ctx := context.Background()

	for _, priority := range []int{1, 5, 3, 2, 4} {
		p := priority
		seedTodo(t, repo, "t", func(todo *domain.Todo) { todo.Priority = p })
	}

	page1, err := repo.Search(ctx, domain.SearchParams{Sort: "-priority", Page: 1, PageSize: 2})
	require.NoError(t, err)
	require.Len(t, page1.Items, 2)
	assert.Equal(t, 5, page1.Items[0].Priority)
	assert.Equal(t, 4, page1.Items[1].Priority)
	assert.Equal(t, int64(5), page1.TotalItems)
	assert.Equal(t, 3, page1.TotalPages())

	page3, err := repo.Search(ctx, domain.SearchParams{Sort: "-priority", Page: 3, PageSize: 2})
	require.NoError(t, err)
	require.Len(t, page3.Items, 1)
	assert.Equal(t, 1, page3.Items[0].Priority)
}
