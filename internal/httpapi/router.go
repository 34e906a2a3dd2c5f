package httpapi

import (
	"net/http"

	"go.opentelemetry.io/contrib/instrumentation/net/http/otelhttp"
	"go.uber.org/zap"
)

// Handler assembles the route table and the middleware chain: recovery
// outermost, then request logging, then metrics, with otel instrumentation
// wrapping the whole mux.
func (s *Server) Handler(logger *zap.Logger) http.Handler {
	mux := http.NewServeMux()

	mux.HandleFunc("GET /{$}", s.root)
	mux.HandleFunc("GET /health", s.health)

	mux.HandleFunc("GET /api/v1/todos", s.listTodos)
	mux.HandleFunc("POST /api/v1/todos", s.createTodo)
	mux.HandleFunc("PATCH /api/v1/todos:bulk", s.bulkUpdateTodos)
	mux.HandleFunc("GET /api/v1/todos/stats/summary", s.getStats)
	mux.HandleFunc("GET /api/v1/todos/{id}", s.getTodo)
	mux.HandleFunc("PATCH /api/v1/todos/{id}", s.updateTodo)
	mux.HandleFunc("PUT /api/v1/todos/{id}", s.replaceTodo)
	mux.HandleFunc("DELETE /api/v1/todos/{id}", s.deleteTodo)

	var handler http.Handler = mux
	handler = MetricsMiddleware()(handler)
	handler = LoggingMiddleware(logger)(handler)
	handler = RecoveryMiddleware(logger)(handler)

	return otelhttp.NewHandler(handler, "todo-service")
}
