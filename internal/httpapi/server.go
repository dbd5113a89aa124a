// Package httpapi exposes the query pipeline over HTTP.
package httpapi

import (
	"context"
	"log/slog"
	"net/http"
	"os"
	"time"

	"github.com/rendis/textaction/internal/actions"
	"github.com/rendis/textaction/internal/pipeline"
	"github.com/rendis/textaction/internal/validation"
	"github.com/rendis/textaction/pkg/schema"
)

// Runner executes one query.
type Runner interface {
	RunWith(ctx context.Context, req pipeline.Request) (*schema.QueryResult, error)
}

// Lister lists the registered actions.
type Lister interface {
	List() []actions.ActionInfo
}

// Deps holds the dependencies for the HTTP server.
type Deps struct {
	Runner    Runner
	Actions   Lister
	Validator validation.Validator
	Logger    *slog.Logger
	Version   string
}

// Server serves the query API.
type Server struct {
	deps Deps
}

// NewServer creates a Server.
func NewServer(deps Deps) *Server {
	if deps.Logger == nil {
		deps.Logger = slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: slog.LevelInfo}))
	}
	return &Server{deps: deps}
}

// Handler returns the HTTP handler for the API routes.
func (s *Server) Handler() http.Handler {
	mux := http.NewServeMux()

	mux.HandleFunc("POST /run", s.handleRun)
	mux.HandleFunc("GET /actions", s.handleActions)
	mux.HandleFunc("GET /healthz", s.handleHealth)

	return s.logRequests(mux)
}

// logRequests logs every request at debug level once it completes.
func (s *Server) logRequests(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		rec := &statusRecorder{ResponseWriter: w, status: http.StatusOK}
		next.ServeHTTP(rec, r)
		s.deps.Logger.DebugContext(r.Context(), "http request",
			slog.String("method", r.Method),
			slog.String("path", r.URL.Path),
			slog.Int("status", rec.status),
			slog.Duration("duration", time.Since(start)))
	})
}

type statusRecorder struct {
	http.ResponseWriter
	status int
}

func (r *statusRecorder) WriteHeader(code int) {
	r.status = code
	r.ResponseWriter.WriteHeader(code)
}
