// Package api exposes the collection pipeline and the task lifecycle over
// HTTP.
package api

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"go.uber.org/zap"

	"github.com/sells-group/prospect-cli/internal/cache"
	"github.com/sells-group/prospect-cli/internal/collector"
	"github.com/sells-group/prospect-cli/internal/enrich"
	"github.com/sells-group/prospect-cli/internal/insight"
	"github.com/sells-group/prospect-cli/internal/store"
	"github.com/sells-group/prospect-cli/internal/task"
)

const maxBodyBytes = 1 << 20

// Deps are the collaborators behind the routes. Store is optional.
type Deps struct {
	Registry *task.Registry
	Manager  task.Manager
	Store    store.Store
	Cache    cache.Cache
	// AllowedOrigins defaults to "*".
	AllowedOrigins []string
}

// Server holds the HTTP handlers.
type Server struct {
	registry *task.Registry
	manager  task.Manager
	store    store.Store
	cache    cache.Cache
	origins  []string
}

// NewServer builds a Server over d.
func NewServer(d Deps) *Server {
	origins := d.AllowedOrigins
	if len(origins) == 0 {
		origins = []string{"*"}
	}
	return &Server{
		registry: d.Registry,
		manager:  d.Manager,
		store:    d.Store,
		cache:    d.Cache,
		origins:  origins,
	}
}

// Handler returns the routed handler with middleware applied.
func (s *Server) Handler() http.Handler {
	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(requestLogger)
	r.Use(middleware.Recoverer)
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins: s.origins,
		AllowedMethods: []string{http.MethodGet, http.MethodPost, http.MethodDelete, http.MethodOptions},
		AllowedHeaders: []string{"Accept", "Content-Type", "X-Request-ID"},
		MaxAge:         300,
	}))

	r.Get("/health", s.health)

	r.Route("/api/v1", func(r chi.Router) {
		r.Post("/profiles", s.submit(task.KindBuildProfile, decodeProfileInput))
		r.Post("/profiles/sync", s.run(task.KindBuildProfile, decodeProfileInput))
		r.Get("/profiles/{id}", s.getProfile)

		r.Post("/scores", s.submit(task.KindScoreProfile, decodeProfileInput))
		r.Post("/scores/sync", s.run(task.KindScoreProfile, decodeProfileInput))

		r.Post("/intelligence", s.submit(task.KindAnalyzeCompany, decodeProfileInput))
		r.Post("/intelligence/sync", s.run(task.KindAnalyzeCompany, decodeProfileInput))

		r.Post("/discovery", s.submit(task.KindDiscoverCompanies, decodeDiscoverInput))
		r.Post("/discovery/sync", s.run(task.KindDiscoverCompanies, decodeDiscoverInput))

		r.Get("/tasks/{id}", s.getTask)
		r.Delete("/tasks/{id}", s.cancelTask)

		r.Delete("/cache/{namespace}", s.clearCache)
	})
	return r
}

func requestLogger(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)
		start := time.Now()
		next.ServeHTTP(ww, r)
		zap.L().Debug("api: request",
			zap.String("method", r.Method),
			zap.String("path", r.URL.Path),
			zap.Int("status", ww.Status()),
			zap.Duration("elapsed", time.Since(start)),
			zap.String("request_id", middleware.GetReqID(r.Context())),
		)
	})
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		zap.L().Warn("api: encode response", zap.Error(err))
	}
}

type errorResponse struct {
	Error string `json:"error"`
}

func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, errorResponse{Error: msg})
}

// statusFor maps pipeline errors onto HTTP status codes.
func statusFor(err error) int {
	switch {
	case errors.Is(err, errBadRequest),
		errors.Is(err, collector.ErrInvalidIdentity),
		errors.Is(err, cache.ErrInvalidNamespace):
		return http.StatusBadRequest
	case errors.Is(err, task.ErrNotFound),
		errors.Is(err, store.ErrNotFound):
		return http.StatusNotFound
	case errors.Is(err, insight.ErrNotConfigured),
		errors.Is(err, task.ErrQueueFull),
		errors.Is(err, task.ErrClosed),
		enrich.IsUnavailable(err):
		return http.StatusServiceUnavailable
	case errors.Is(err, task.ErrUnknownKind):
		return http.StatusNotImplemented
	case errors.Is(err, context.Canceled), errors.Is(err, context.DeadlineExceeded):
		return http.StatusGatewayTimeout
	default:
		return http.StatusInternalServerError
	}
}
