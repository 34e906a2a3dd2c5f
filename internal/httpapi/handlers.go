package httpapi

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strconv"
	"time"

	"github.com/todolevel/todo-service/internal/app"
	"github.com/todolevel/todo-service/internal/domain"
	"go.uber.org/zap"
)

// Server exposes the todo service over REST. Status mapping, JSON encoding
// and parameter parsing all live here; the service below never sees a
// request object.
type Server struct {
	service *app.TodoService
	logger  *zap.Logger
	version string
}

func NewServer(service *app.TodoService, logger *zap.Logger, version string) *Server {
	return &Server{
		service: service,
		logger:  logger,
		version: version,
	}
}

// GET /api/v1/todos
func (s *Server) listTodos(w http.ResponseWriter, r *http.Request) {
	params, ok := s.parseSearchParams(w, r)
	if !ok {
		return
	}

	result, err := s.service.SearchTodos(r.Context(), params)
	if err != nil {
		internalError(w, s.logger, err)
		return
	}

	writeJSON(w, http.StatusOK, mapPagedResponse(result))
}

// POST /api/v1/todos
func (s *Server) createTodo(w http.ResponseWriter, r *http.Request) {
	var req createTodoRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		badRequest(w, "body", "invalid JSON")
		return
	}

	created, err := s.service.CreateTodo(r.Context(), app.CreateTodoParams{
		Title:       req.Title,
		Description: req.Description,
		Priority:    req.Priority,
		DueDate:     req.DueDate,
		Tags:        req.Tags,
	})
	if err != nil {
		fromDomainError(w, s.logger, err)
		return
	}

	w.Header().Set("Location", fmt.Sprintf("/api/v1/todos/%d", created.ID))
	writeJSON(w, http.StatusCreated, mapTodoOut(created))
}

// GET /api/v1/todos/{id}
func (s *Server) getTodo(w http.ResponseWriter, r *http.Request) {
	id, ok := parseID(w, r)
	if !ok {
		return
	}

	todo, err := s.service.GetTodoByID(r.Context(), id)
	if err != nil {
		fromDomainError(w, s.logger, err)
		return
	}

	writeJSON(w, http.StatusOK, mapTodoOut(todo))
}

// PATCH /api/v1/todos/{id}
func (s *Server) updateTodo(w http.ResponseWriter, r *http.Request) {
	id, ok := parseID(w, r)
	if !ok {
		return
	}

	var req updateTodoRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		badRequest(w, "body", "invalid JSON")
		return
	}

	updated, err := s.service.UpdateTodo(r.Context(), id, domain.UpdateParams{
		Title:       req.Title,
		Description: req.Description,
		IsDone:      req.IsDone,
		Priority:    req.Priority,
		DueDate:     req.DueDate,
		Tags:        req.Tags,
	})
	if err != nil {
		fromDomainError(w, s.logger, err)
		return
	}

	writeJSON(w, http.StatusOK, mapTodoOut(updated))
}

// PUT /api/v1/todos/{id} replaces the full representation, creating the todo
// when the id does not exist (storage assigns a fresh id on that path).
func (s *Server) replaceTodo(w http.ResponseWriter, r *http.Request) {
	id, ok := parseID(w, r)
	if !ok {
		return
	}

	var req replaceTodoRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		badRequest(w, "body", "invalid JSON")
		return
	}

	existing, err := s.service.GetTodoByID(r.Context(), id)
	if errors.Is(err, domain.ErrTodoNotFound) {
		created, err := s.service.CreateTodo(r.Context(), app.CreateTodoParams{
			Title:       req.Title,
			Description: req.Description,
			Priority:    req.Priority,
			DueDate:     req.DueDate,
			Tags:        req.Tags,
		})
		if err != nil {
			fromDomainError(w, s.logger, err)
			return
		}

		writeJSON(w, http.StatusOK, mapTodoOut(created))
		return
	}
	if err != nil {
		internalError(w, s.logger, err)
		return
	}

	tags := req.Tags
	if tags == nil {
		tags = []string{}
	}

	updated, err := s.service.UpdateTodo(r.Context(), existing.ID, domain.UpdateParams{
		Title:       &req.Title,
		Description: &req.Description,
		IsDone:      &req.IsDone,
		Priority:    &req.Priority,
		DueDate:     req.DueDate,
		Tags:        tags,
	})
	if err != nil {
		fromDomainError(w, s.logger, err)
		return
	}

	writeJSON(w, http.StatusOK, mapTodoOut(updated))
}

// DELETE /api/v1/todos/{id}
func (s *Server) deleteTodo(w http.ResponseWriter, r *http.Request) {
	id, ok := parseID(w, r)
	if !ok {
		return
	}

	deleted, err := s.service.DeleteTodo(r.Context(), id)
	if err != nil {
		internalError(w, s.logger, err)
		return
	}

	if !deleted {
		notFound(w)
		return
	}

	w.WriteHeader(http.StatusNoContent)
}

// PATCH /api/v1/todos:bulk
func (s *Server) bulkUpdateTodos(w http.ResponseWriter, r *http.Request) {
	var req bulkTodoRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		badRequest(w, "body", "invalid JSON")
		return
	}

	if len(req.IDs) == 0 {
		badRequest(w, "ids", "at least one id is required")
		return
	}

	switch req.Op {
	case "mark_done":
		result := s.service.BulkMarkAsDone(r.Context(), req.IDs)
		writeJSON(w, http.StatusOK, bulkTodoResponse{
			Updated:   result.Updated,
			FailedIDs: result.FailedIDs,
		})
	case "mark_undone":
		// Not implemented yet: every id is reported as failed.
		writeJSON(w, http.StatusOK, bulkTodoResponse{
			Updated:   0,
			FailedIDs: req.IDs,
		})
	default:
		badRequest(w, "op", "op must be one of [mark_done mark_undone]")
	}
}

// GET /api/v1/todos/stats/summary
func (s *Server) getStats(w http.ResponseWriter, r *http.Request) {
	total, err := s.service.GetTodosCount(r.Context())
	if err != nil {
		internalError(w, s.logger, err)
		return
	}

	done, err := s.service.GetDoneTodosCount(r.Context())
	if err != nil {
		internalError(w, s.logger, err)
		return
	}

	pending, err := s.service.GetPendingTodosCount(r.Context())
	if err != nil {
		internalError(w, s.logger, err)
		return
	}

	stats := todoStatsResponse{
		Total:   total,
		Done:    done,
		Pending: pending,
	}
	if total > 0 {
		stats.CompletionRate = float64(done) / float64(total)
	}

	writeJSON(w, http.StatusOK, stats)
}

// GET /health
func (s *Server) health(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{
		"status":  "healthy",
		"service": "todo-service",
		"version": s.version,
	})
}

// GET /
func (s *Server) root(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{
		"message": "Welcome to todo-service",
		"version": s.version,
		"api":     "/api/v1/todos",
	})
}

func parseID(w http.ResponseWriter, r *http.Request) (int64, bool) {
	id, err := strconv.ParseInt(r.PathValue("id"), 10, 64)
	if err != nil || id < 1 {
		badRequest(w, "id", "id must be a positive integer")
		return 0, false
	}
	return id, true
}

// parseSearchParams reads the list query parameters, rejecting malformed
// values with a field-level validation error. Range clamping happens later
// in SearchParams.Normalize.
func (s *Server) parseSearchParams(w http.ResponseWriter, r *http.Request) (domain.SearchParams, bool) {
	q := r.URL.Query()
	params := domain.SearchParams{
		Sort:  q.Get("sort"),
		Query: q.Get("q"),
		Tags:  q["tag"],
	}

	if raw := q.Get("page"); raw != "" {
		page, err := strconv.Atoi(raw)
		if err != nil {
			badRequest(w, "page", "page must be an integer")
			return domain.SearchParams{}, false
		}
		params.Page = page
	}

	if raw := q.Get("page_size"); raw != "" {
		pageSize, err := strconv.Atoi(raw)
		if err != nil {
			badRequest(w, "page_size", "page_size must be an integer")
			return domain.SearchParams{}, false
		}
		params.PageSize = pageSize
	}

	if raw := q.Get("is_done"); raw != "" {
		isDone, err := strconv.ParseBool(raw)
		if err != nil {
			badRequest(w, "is_done", "is_done must be a boolean")
			return domain.SearchParams{}, false
		}
		params.IsDone = &isDone
	}

	if raw := q.Get("due_before"); raw != "" {
		t, err := time.Parse(time.RFC3339, raw)
		if err != nil {
			badRequest(w, "due_before", "due_before must be an RFC3339 timestamp")
			return domain.SearchParams{}, false
		}
		params.DueBefore = &t
	}

	if raw := q.Get("due_after"); raw != "" {
		t, err := time.Parse(time.RFC3339, raw)
		if err != nil {
			badRequest(w, "due_after", "due_after must be an RFC3339 timestamp")
			return domain.SearchParams{}, false
		}
		params.DueAfter = &t
	}

	return params, true
}
