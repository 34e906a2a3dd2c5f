// Package sqlite implements the todo repository on an embedded SQLite
// database. Tags are stored as a JSON array of the normalized (lower-cased)
// strings; all timestamps are stored in UTC so string comparison orders them
// correctly.
package sqlite

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/todolevel/todo-service/internal/domain"
	_ "modernc.org/sqlite"
)

const schema = `
CREATE TABLE IF NOT EXISTS todos (
    id          INTEGER PRIMARY KEY AUTOINCREMENT,
    title       TEXT NOT NULL,
    description TEXT NOT NULL DEFAULT '',
    is_done     INTEGER NOT NULL DEFAULT 0,
    priority    INTEGER NOT NULL DEFAULT 0,
    due_date    TIMESTAMP,
    tags        TEXT NOT NULL DEFAULT '[]',
    created_at  TIMESTAMP NOT NULL,
    updated_at  TIMESTAMP NOT NULL
);
CREATE INDEX IF NOT EXISTS idx_todos_is_done ON todos (is_done);
CREATE INDEX IF NOT EXISTS idx_todos_due_date ON todos (due_date);
`

const todoColumns = "id, title, description, is_done, priority, due_date, tags, created_at, updated_at"

type Repository struct {
	db *sql.DB
}

// Open opens (or creates) the database at path and prepares the schema.
// Pass ":memory:" for an ephemeral database.
func Open(path string) (*Repository, error) {
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("failed to open sqlite database: %w", err)
	}

	// A single connection sidesteps SQLITE_BUSY on concurrent writes and
	// keeps :memory: databases from fragmenting across the pool.
	db.SetMaxOpenConns(1)

	if _, err := db.Exec(schema); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to prepare sqlite schema: %w", err)
	}

	return &Repository{db: db}, nil
}

func (r *Repository) Close() error {
	return r.db.Close()
}

func (r *Repository) Create(ctx context.Context, todo domain.Todo) (domain.Todo, error) {
	if todo.ID != 0 {
		return domain.Todo{}, domain.ErrIDAssigned
	}

	now := time.Now().UTC()
	todo.CreatedAt = now
	todo.UpdatedAt = now

	tags, err := json.Marshal(todo.Tags)
	if err != nil {
		return domain.Todo{}, fmt.Errorf("failed to encode tags: %w", err)
	}

	result, err := r.db.ExecContext(ctx, `
		INSERT INTO todos (title, description, is_done, priority, due_date, tags, created_at, updated_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?)`,
		todo.Title,
		todo.Description,
		todo.IsDone,
		todo.Priority,
		nullableTime(todo.DueDate),
		string(tags),
		todo.CreatedAt,
		todo.UpdatedAt,
	)
	if err != nil {
		return domain.Todo{}, fmt.Errorf("failed to create todo: %w", err)
	}

	todo.ID, err = result.LastInsertId()
	if err != nil {
		return domain.Todo{}, fmt.Errorf("failed to read inserted id: %w", err)
	}

	return todo, nil
}

func (r *Repository) GetByID(ctx context.Context, id int64) (domain.Todo, error) {
	query := fmt.Sprintf("SELECT %s FROM todos WHERE id = ?", todoColumns)

	todo, err := scanTodo(r.db.QueryRowContext(ctx, query, id))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return domain.Todo{}, domain.ErrTodoNotFound
		}
		return domain.Todo{}, fmt.Errorf("failed to get todo: %w", err)
	}

	return todo, nil
}

func (r *Repository) Update(ctx context.Context, todo domain.Todo) (domain.Todo, error) {
	if todo.ID == 0 {
		return domain.Todo{}, domain.ErrIDRequired
	}

	todo.UpdatedAt = time.Now().UTC()

	tags, err := json.Marshal(todo.Tags)
	if err != nil {
		return domain.Todo{}, fmt.Errorf("failed to encode tags: %w", err)
	}

	result, err := r.db.ExecContext(ctx, `
		UPDATE todos
		SET title = ?, description = ?, is_done = ?, priority = ?, due_date = ?, tags = ?, updated_at = ?
		WHERE id = ?`,
		todo.Title,
		todo.Description,
		todo.IsDone,
		todo.Priority,
		nullableTime(todo.DueDate),
		string(tags),
		todo.UpdatedAt,
		todo.ID,
	)
	if err != nil {
		return domain.Todo{}, fmt.Errorf("failed to update todo: %w", err)
	}

	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return domain.Todo{}, fmt.Errorf("failed to get rows affected: %w", err)
	}
	if rowsAffected == 0 {
		return domain.Todo{}, domain.ErrTodoNotFound
	}

	return todo, nil
}

func (r *Repository) Delete(ctx context.Context, id int64) (bool, error) {
	result, err := r.db.ExecContext(ctx, "DELETE FROM todos WHERE id = ?", id)
	if err != nil {
		return false, fmt.Errorf("failed to delete todo: %w", err)
	}

	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("failed to get rows affected: %w", err)
	}

	return rowsAffected > 0, nil
}

func (r *Repository) Exists(ctx context.Context, id int64) (bool, error) {
	var exists bool
	err := r.db.QueryRowContext(ctx, "SELECT EXISTS(SELECT 1 FROM todos WHERE id = ?)", id).Scan(&exists)
	if err != nil {
		return false, fmt.Errorf("failed to check todo existence: %w", err)
	}

	return exists, nil
}

func (r *Repository) Search(ctx context.Context, params domain.SearchParams) (domain.SearchResult, error) {
	params = params.Normalize()
	where, args := buildWhereClause(params)

	var totalItems int64
	if err := r.db.QueryRowContext(ctx, "SELECT COUNT(*) FROM todos"+where, args...).Scan(&totalItems); err != nil {
		return domain.SearchResult{}, fmt.Errorf("failed to count todos: %w", err)
	}

	query := fmt.Sprintf("SELECT %s FROM todos%s %s LIMIT ? OFFSET ?",
		todoColumns, where, buildOrderByClause(params))
	args = append(args, params.PageSize, params.Offset())

	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return domain.SearchResult{}, fmt.Errorf("failed to search todos: %w", err)
	}
	defer rows.Close()

	todos := make([]domain.Todo, 0, params.PageSize)
	for rows.Next() {
		todo, err := scanTodo(rows)
		if err != nil {
			return domain.SearchResult{}, fmt.Errorf("failed to scan todo: %w", err)
		}
		todos = append(todos, todo)
	}

	if err := rows.Err(); err != nil {
		return domain.SearchResult{}, fmt.Errorf("error iterating todos: %w", err)
	}

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
	var due sql.NullTime
	var tags string

	err := row.Scan(
		&todo.ID,
		&todo.Title,
		&todo.Description,
		&todo.IsDone,
		&todo.Priority,
		&due,
		&tags,
		&todo.CreatedAt,
		&todo.UpdatedAt,
	)
	if err != nil {
		return domain.Todo{}, err
	}

	if due.Valid {
		t := due.Time.UTC()
		todo.DueDate = &t
	}
	todo.CreatedAt = todo.CreatedAt.UTC()
	todo.UpdatedAt = todo.UpdatedAt.UTC()

	if err := json.Unmarshal([]byte(tags), &todo.Tags); err != nil {
		return domain.Todo{}, fmt.Errorf("failed to decode tags: %w", err)
	}
	if todo.Tags == nil {
		todo.Tags = []string{}
	}

	return todo, nil
}

func buildWhereClause(params domain.SearchParams) (string, []any) {
	conditions := make([]string, 0, 4)
	args := make([]any, 0, 4)

	if params.IsDone != nil {
		conditions = append(conditions, "is_done = ?")
		args = append(args, *params.IsDone)
	}

	if params.Query != "" {
		q := "%" + strings.ToLower(params.Query) + "%"
		conditions = append(conditions, "(LOWER(title) LIKE ? OR LOWER(description) LIKE ?)")
		args = append(args, q, q)
	}

	// Every requested tag must appear in the stored JSON array. Matching on
	// the quoted form keeps "go" from matching "golang".
	for _, tag := range params.Tags {
		conditions = append(conditions, "tags LIKE ?")
		args = append(args, `%"`+tag+`"%`)
	}

	if params.DueBefore != nil {
		conditions = append(conditions, "due_date <= ?")
		args = append(args, *params.DueBefore)
	}

	if params.DueAfter != nil {
		conditions = append(conditions, "due_date >= ?")
		args = append(args, *params.DueAfter)
	}

	if len(conditions) == 0 {
		return "", args
	}

	return " WHERE " + strings.Join(conditions, " AND "), args
}

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

func nullableTime(t *time.Time) any {
	if t == nil {
		return nil
	}
	return t.UTC()
}
