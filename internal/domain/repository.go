package domain

import "context"

// TodoRepository defines the contract for todo persistence. Implementations
// return ErrTodoNotFound when the target id does not exist; any other
// failure is a storage error to be propagated unchanged.
type TodoRepository interface {
	// Create persists a new todo and returns it with the assigned ID.
	// The input must not carry an ID yet.
	Create(ctx context.Context, todo Todo) (Todo, error)

	// GetByID retrieves a todo by ID.
	GetByID(ctx context.Context, id int64) (Todo, error)

	// Update overwrites an existing todo, refreshing its updated_at.
	// The input must carry an assigned ID.
	Update(ctx context.Context, todo Todo) (Todo, error)

	// Delete removes a todo. It reports false when the id did not exist.
	Delete(ctx context.Context, id int64) (bool, error)

	// Exists reports whether a todo with the given id is stored.
	Exists(ctx context.Context, id int64) (bool, error)

	// Search evaluates the filter over the full set, counts it, then
	// applies sort and pagination.
	Search(ctx context.Context, params SearchParams) (SearchResult, error)
}
