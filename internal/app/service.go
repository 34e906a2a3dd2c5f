package app

import (
	"context"
	"errors"
	"time"

	"github.com/todolevel/todo-service/internal/domain"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"
	"go.uber.org/zap"
)

// TodoService is the use-case layer: it composes entity rules with the
// repository. It holds no state beyond its collaborators, so operations on
// different ids are safe to run concurrently. The fetch-then-persist pattern
// in the update-style operations is not atomic across the two repository
// calls; concurrent writes to the same id race and the last write wins.
type TodoService struct {
	repo   domain.TodoRepository
	logger *zap.Logger
	tracer trace.Tracer
}

func NewTodoService(repo domain.TodoRepository, logger *zap.Logger) *TodoService {
	return &TodoService{
		repo:   repo,
		logger: logger,
		tracer: otel.Tracer("todo-service"),
	}
}

// CreateTodoParams are the raw field values for a new todo; validation and
// normalization happen in the entity.
type CreateTodoParams struct {
	Title       string
	Description string
	Priority    int
	DueDate     *time.Time
	Tags        []string
}

// BulkResult reports a bulk operation: how many todos were updated and which
// ids failed, in input order.
type BulkResult struct {
	Updated   int
	FailedIDs []int64
}

func (s *TodoService) CreateTodo(ctx context.Context, p CreateTodoParams) (domain.Todo, error) {
	ctx, span := s.tracer.Start(ctx, "CreateTodo")
	defer span.End()

	todo, err := domain.NewTodo(p.Title, p.Description, p.Priority, p.DueDate, p.Tags)
	if err != nil {
		return domain.Todo{}, err
	}

	created, err := s.repo.Create(ctx, todo)
	if err != nil {
		s.logger.Error("failed to persist todo",
			zap.Error(err),
			zap.String("title", todo.Title),
		)
		return domain.Todo{}, err
	}

	span.SetAttributes(attribute.Int64("todo.id", created.ID))
	s.logger.Info("todo created",
		zap.Int64("todo_id", created.ID),
		zap.Int("priority", created.Priority),
	)

	return created, nil
}

func (s *TodoService) GetTodoByID(ctx context.Context, id int64) (domain.Todo, error) {
	ctx, span := s.tracer.Start(ctx, "GetTodoByID")
	defer span.End()

	span.SetAttributes(attribute.Int64("todo.id", id))
	return s.repo.GetByID(ctx, id)
}

// UpdateTodo applies a partial update: nil fields in p are left unchanged.
// It returns ErrTodoNotFound when the id does not exist, a validation error
// when the merged values violate an invariant.
func (s *TodoService) UpdateTodo(ctx context.Context, id int64, p domain.UpdateParams) (domain.Todo, error) {
	ctx, span := s.tracer.Start(ctx, "UpdateTodo")
	defer span.End()

	span.SetAttributes(attribute.Int64("todo.id", id))

	existing, err := s.repo.GetByID(ctx, id)
	if err != nil {
		return domain.Todo{}, err
	}

	updated, err := existing.Update(p)
	if err != nil {
		return domain.Todo{}, err
	}

	persisted, err := s.repo.Update(ctx, updated)
	if err != nil {
		s.logger.Error("failed to update todo",
			zap.Error(err),
			zap.Int64("todo_id", id),
		)
		return domain.Todo{}, err
	}

	s.logger.Info("todo updated", zap.Int64("todo_id", id))
	return persisted, nil
}

func (s *TodoService) DeleteTodo(ctx context.Context, id int64) (bool, error) {
	ctx, span := s.tracer.Start(ctx, "DeleteTodo")
	defer span.End()

	span.SetAttributes(attribute.Int64("todo.id", id))

	deleted, err := s.repo.Delete(ctx, id)
	if err != nil {
		s.logger.Error("failed to delete todo",
			zap.Error(err),
			zap.Int64("todo_id", id),
		)
		return false, err
	}

	if deleted {
		s.logger.Info("todo deleted", zap.Int64("todo_id", id))
	}

	return deleted, nil
}

func (s *TodoService) MarkTodoAsDone(ctx context.Context, id int64) (domain.Todo, error) {
	ctx, span := s.tracer.Start(ctx, "MarkTodoAsDone")
	defer span.End()

	return s.toggle(ctx, id, domain.Todo.MarkAsDone)
}

func (s *TodoService) MarkTodoAsUndone(ctx context.Context, id int64) (domain.Todo, error) {
	ctx, span := s.tracer.Start(ctx, "MarkTodoAsUndone")
	defer span.End()

	return s.toggle(ctx, id, domain.Todo.MarkAsUndone)
}

func (s *TodoService) AddTagToTodo(ctx context.Context, id int64, tag string) (domain.Todo, error) {
	ctx, span := s.tracer.Start(ctx, "AddTagToTodo")
	defer span.End()

	return s.toggle(ctx, id, func(t domain.Todo) (domain.Todo, error) {
		return t.AddTag(tag)
	})
}

func (s *TodoService) RemoveTagFromTodo(ctx context.Context, id int64, tag string) (domain.Todo, error) {
	ctx, span := s.tracer.Start(ctx, "RemoveTagFromTodo")
	defer span.End()

	return s.toggle(ctx, id, func(t domain.Todo) (domain.Todo, error) {
		return t.RemoveTag(tag)
	})
}

// toggle is the shared fetch-apply-persist flow behind the convenience
// mutations.
func (s *TodoService) toggle(ctx context.Context, id int64, apply func(domain.Todo) (domain.Todo, error)) (domain.Todo, error) {
	existing, err := s.repo.GetByID(ctx, id)
	if err != nil {
		return domain.Todo{}, err
	}

	changed, err := apply(existing)
	if err != nil {
		return domain.Todo{}, err
	}

	persisted, err := s.repo.Update(ctx, changed)
	if err != nil {
		s.logger.Error("failed to update todo",
			zap.Error(err),
			zap.Int64("todo_id", id),
		)
		return domain.Todo{}, err
	}

	return persisted, nil
}

func (s *TodoService) SearchTodos(ctx context.Context, params domain.SearchParams) (domain.SearchResult, error) {
	ctx, span := s.tracer.Start(ctx, "SearchTodos")
	defer span.End()

	normalized := params.Normalize()
	span.SetAttributes(
		attribute.Int("page", normalized.Page),
		attribute.Int("page_size", normalized.PageSize),
	)

	result, err := s.repo.Search(ctx, normalized)
	if err != nil {
		s.logger.Error("failed to search todos", zap.Error(err))
		return domain.SearchResult{}, err
	}

	span.SetAttributes(attribute.Int64("total_items", result.TotalItems))
	return result, nil
}

// BulkMarkAsDone marks each id as done independently. A failing id, whether
// absent or hitting a storage error, lands in FailedIDs and processing moves
// on; one failure never aborts the batch.
func (s *TodoService) BulkMarkAsDone(ctx context.Context, ids []int64) BulkResult {
	ctx, span := s.tracer.Start(ctx, "BulkMarkAsDone")
	defer span.End()

	span.SetAttributes(attribute.Int("batch_size", len(ids)))

	result := BulkResult{FailedIDs: make([]int64, 0)}
	for _, id := range ids {
		if _, err := s.MarkTodoAsDone(ctx, id); err != nil {
			if !errors.Is(err, domain.ErrTodoNotFound) {
				s.logger.Warn("bulk mark-done item failed",
					zap.Error(err),
					zap.Int64("todo_id", id),
				)
			}
			result.FailedIDs = append(result.FailedIDs, id)
			continue
		}
		result.Updated++
	}

	s.logger.Info("bulk mark-done finished",
		zap.Int("updated", result.Updated),
		zap.Int("failed", len(result.FailedIDs)),
	)

	return result
}

func (s *TodoService) GetTodosCount(ctx context.Context) (int64, error) {
	return s.countWhere(ctx, nil)
}

func (s *TodoService) GetDoneTodosCount(ctx context.Context) (int64, error) {
	done := true
	return s.countWhere(ctx, &done)
}

func (s *TodoService) GetPendingTodosCount(ctx context.Context) (int64, error) {
	done := false
	return s.countWhere(ctx, &done)
}

// countWhere runs a one-row search and reads only the total, keeping data
// transfer minimal.
func (s *TodoService) countWhere(ctx context.Context, isDone *bool) (int64, error) {
	params := domain.SearchParams{Page: 1, PageSize: 1, IsDone: isDone}

	result, err := s.repo.Search(ctx, params.Normalize())
	if err != nil {
		return 0, err
	}

	return result.TotalItems, nil
}
