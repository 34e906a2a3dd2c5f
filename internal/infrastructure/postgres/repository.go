package postgres

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/lib/pq"
	"github.com/todolevel/todo-service/internal/domain"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"
)

const queryTimeout = 5 * time.Second

const todoColumns = "id, title, description, is_done, priority, due_date, tags, created_at, updated_at"

type Repository struct {
	db     *sql.DB
	tracer trace.Tracer
}

func NewRepository(db *sql.DB) *Repository {
	return &Repository{
		db:     db,
		tracer: otel.Tracer("postgres-repository"),
	}
}

func (r *Repository) Create(ctx context.Context, todo domain.Todo) (domain.Todo, error) {
	ctx, cancel := context.WithTimeout(ctx, queryTimeout)
	defer cancel()

	ctx, span := r.tracer.Start(ctx, "repository.Create")
	defer span.End()

	if todo.ID != 0 {
		return domain.Todo{}, domain.ErrIDAssigned
	}

	now := time.Now().UTC()
	todo.CreatedAt = now
	todo.UpdatedAt = now

	query := `
		INSERT INTO todos (title, description, is_done, priority, due_date, tags, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
		RETURNING id
	`

	err := r.db.QueryRowContext(ctx, query,
		todo.Title,
		todo.Description,
		todo.IsDone,
		todo.Priority,
		todo.DueDate,
		pq.Array(todo.Tags),
		todo.CreatedAt,
		todo.UpdatedAt,
	).Scan(&todo.ID)

	if err != nil {
		span.RecordError(err)
		return domain.Todo{}, fmt.Errorf("failed to create todo: %w", err)
	}

	span.SetAttributes(attribute.Int64("todo.id", todo.ID))
	return todo, nil
}

func (r *Repository) GetByID(ctx context.Context, id int64) (domain.Todo, error) {
	ctx, cancel := context.WithTimeout(ctx, queryTimeout)
	defer cancel()

	ctx, span := r.tracer.Start(ctx, "repository.GetByID")
	defer span.End()

	span.SetAttributes(attribute.Int64("todo.id", id))

	query := fmt.Sprintf("SELECT %s FROM todos WHERE id = $1", todoColumns)

	todo, err := scanTodo(r.db.QueryRowContext(ctx, query, id))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			span.SetAttributes(attribute.Bool("not_found", true))
			return domain.Todo{}, domain.ErrTodoNotFound
		}
		span.RecordError(err)
		return domain.Todo{}, fmt.Errorf("failed to get todo: %w", err)
	}

	return todo, nil
}

func (r *Repository) Update(ctx context.Context, todo domain.Todo) (domain.Todo, error) {
	ctx, cancel := context.WithTimeout(ctx, queryTimeout)
	defer cancel()

	ctx, span := r.tracer.Start(ctx, "repository.Update")
	defer span.End()

	if todo.ID == 0 {
		return domain.Todo{}, domain.ErrIDRequired
	}

	span.SetAttributes(attribute.Int64("todo.id", todo.ID))

	todo.UpdatedAt = time.Now().UTC()

	query := `
		UPDATE todos
		SET title = $1, description = $2, is_done = $3, priority = $4, due_date = $5, tags = $6, updated_at = $7
		WHERE id = $8
	`

	result, err := r.db.ExecContext(ctx, query,
		todo.Title,
		todo.Description,
		todo.IsDone,
		todo.Priority,
		todo.DueDate,
		pq.Array(todo.Tags),
		todo.UpdatedAt,
		todo.ID,
	)
	if err != nil {
		span.RecordError(err)
		return domain.Todo{}, fmt.Errorf("failed to update todo: %w", err)
	}

	rowsAffected, err := result.RowsAffected()
	if err != nil {
		span.RecordError(err)
		return domain.Todo{}, fmt.Errorf("failed to get rows affected: %w", err)
	}

	if rowsAffected == 0 {
		span.SetAttributes(attribute.Bool("not_found", true))
		return domain.Todo{}, domain.ErrTodoNotFound
	}

	return todo, nil
}

func (r *Repository) Delete(ctx context.Context, id int64) (bool, error) {
	ctx, cancel := context.WithTimeout(ctx, queryTimeout)
	defer cancel()

	ctx, span := r.tracer.Start(ctx, "repository.Delete")
	defer span.End()

	span.SetAttributes(attribute.Int64("todo.id", id))

	result, err := r.db.ExecContext(ctx, "DELETE FROM todos WHERE id = $1", id)
	if err != nil {
		span.RecordError(err)
		return false, fmt.Errorf("failed to delete todo: %w", err)
	}

	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("failed to get rows affected: %w", err)
	}

	return rowsAffected > 0, nil
}

func (r *Repository) Exists(ctx context.Context, id int64) (bool, error) {
	ctx, cancel := context.WithTimeout(ctx, queryTimeout)
	defer cancel()

	ctx, span := r.tracer.Start(ctx, "repository.Exists")
	defer span.End()

	var exists bool
	err := r.db.QueryRowContext(ctx, "SELECT EXISTS(SELECT 1 FROM todos WHERE id = $1)", id).Scan(&exists)
	if err != nil {
		span.RecordError(err)
		return false, fmt.Errorf("failed to check todo existence: %w", err)
	}

	return exists, nil
}

func (r *Repository) Search(ctx context.Context, params domain.SearchParams) (domain.SearchResult, error) {
	ctx, cancel := context.WithTimeout(ctx, queryTimeout)
	defer cancel()

	ctx, span := r.tracer.Start(ctx, "repository.Search")
	defer span.End()

	params = params.Normalize()
	where, args := buildWhereClause(params)

	countQuery := "SELECT COUNT(*) FROM todos" + where

	var totalItems int64
	if err := r.db.QueryRowContext(ctx, countQuery, args...).Scan(&totalItems); err != nil {
		span.RecordError(err)
		return domain.SearchResult{}, fmt.Errorf("failed to count todos: %w", err)
	}

	query := fmt.Sprintf("SELECT %s FROM todos%s %s LIMIT $%d OFFSET $%d",
		todoColumns, where, buildOrderByClause(params), len(args)+1, len(args)+2)
	args = append(args, params.PageSize, params.Offset())

	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		span.RecordError(err)
		return domain.SearchResult{}, fmt.Errorf("failed to search todos: %w", err)
	}
	defer rows.Close()

	todos := make([]domain.Todo, 0, params.PageSize)
	for rows.Next() {
		todo, err := scanTodo(rows)
		if err != nil {
			span.RecordError(err)
			return domain.SearchResult{}, fmt.Errorf("failed to scan todo: %w", err)
		}
		todos = append(todos, todo)
	}

	if err := rows.Err(); err != nil {
		span.RecordError(err)
		return domain.SearchResult{}, fmt.Errorf("error iterating todos: %w", err)
	}

	span.SetAttributes(
		attribute.Int64("total_items", totalItems),
		attribute.Int("returned_count", len(todos)),
	)

	return domain.SearchResult{
		Items:      todos,
		TotalItems: totalItems,
		Page:       params.Page,
		PageSize:   params.PageSize,
	}, nil
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanTodo(row rowScanner) (domain.Todo, error) {
	var todo domain.Todo
	var tags pq.StringArray

	err := row.Scan(
		&todo.ID,
		&todo.Title,
		&todo.Description,
		&todo.IsDone,
		&todo.Priority,
		&todo.DueDate,
		&tags,
		&todo.CreatedAt,
		&todo.UpdatedAt,
	)
	if err != nil {
		return domain.Todo{}, err
	}

	todo.Tags = tags
	return todo, nil
}

// buildWhereClause renders the filter categories into a WHERE clause with
// positional args. Categories combine with AND; the tag filter demands every
// requested tag via array containment.
func buildWhereClause(params domain.SearchParams) (string, []any) {
	conditions := make([]string, 0, 4)
	args := make([]any, 0, 4)

	if params.IsDone != nil {
		args = append(args, *params.IsDone)
		conditions = append(conditions, fmt.Sprintf("is_done = $%d", len(args)))
	}

	if params.Query != "" {
		args = append(args, "%"+params.Query+"%")
		conditions = append(conditions, fmt.Sprintf("(title ILIKE $%d OR description ILIKE $%d)", len(args), len(args)))
	}

	if len(params.Tags) > 0 {
		args = append(args, pq.Array(params.Tags))
		conditions = append(conditions, fmt.Sprintf("tags @> $%d", len(args)))
	}

	if params.DueBefore != nil {
		args = append(args, *params.DueBefore)
		conditions = append(conditions, fmt.Sprintf("due_date <= $%d", len(args)))
	}

	if params.DueAfter != nil {
		args = append(args, *params.DueAfter)
		conditions = append(conditions, fmt.Sprintf("due_date >= $%d", len(args)))
	}

	if len(conditions) == 0 {
		return "", args
	}

	return " WHERE " + strings.Join(conditions, " AND "), args
}

// buildOrderByClause renders the multi-key sort. Field names outside the
// whitelist are dropped silently; column names are never interpolated from
// raw input. ID breaks remaining ties so pages stay deterministic.
func buildOrderByClause(params domain.SearchParams) string {
	validSortFields := map[string]bool{
		"created_at": true,
		"updated_at": true,
		"due_date":   true,
		"priority":   true,
		"is_done":    true,
		"title":      true,
	}

	keys := make([]string, 0, 2)
	for _, field := range params.SortFields() {
		if !validSortFields[field.Name] {
			continue
		}
		direction := "ASC"
		if field.Descending {
			direction = "DESC"
		}
		keys = append(keys, field.Name+" "+direction)
	}

	if len(keys) == 0 {
		keys = append(keys, "created_at DESC")
	}

	keys = append(keys, "id ASC")
	return "ORDER BY " + strings.Join(keys, ", ")
}
