// Package api serves the lead insertion workflow and the stored leads over
// HTTP.
package api

import (
	"context"
	"encoding/json"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"github.com/go-playground/validator/v10"
	"go.uber.org/zap"

	"github.com/sells-group/prospect-cli/internal/leads"
	"github.com/sells-group/prospect-cli/internal/model"
	"github.com/sells-group/prospect-cli/internal/source"
	"github.com/sells-group/prospect-cli/internal/store"
)

const maxRequestBodySize = 1 << 20

// Runner starts and reports lead insertion runs.
type Runner interface {
	Submit(ctx context.Context, taskID string) (model.Task, error)
	Run(ctx context.Context, taskID string, adapter source.Adapter, location string, titles []string) (leads.Result, error)
	GetTaskStatus(ctx context.Context, taskID string) (model.Task, error)
}

// Config holds HTTP server settings.
type Config struct {
	AllowedOrigins []string
	// MetricsHandler is mounted at MetricsPath, "/metrics" by default, when set.
	MetricsHandler http.Handler
	MetricsPath    string
}

// Server is the HTTP API.
type Server struct {
	router   chi.Router
	runner   Runner
	store    store.Store
	sources  *source.Registry
	validate *validator.Validate
	newID    func() string
	metrics  http.Handler
	mpath    string
	origins  []string
}

// NewServer creates a Server and builds its routes.
func NewServer(cfg Config, runner Runner, st store.Store, sources *source.Registry) *Server {
	s := &Server{
		runner:   runner,
		store:    st,
		sources:  sources,
		validate: validator.New(),
		newID:    leads.NewTaskID,
		metrics:  cfg.MetricsHandler,
		mpath:    cfg.MetricsPath,
		origins:  cfg.AllowedOrigins,
	}
	if s.mpath == "" {
		s.mpath = "/metrics"
	}
	s.router = s.buildRouter()
	return s
}

// ServeHTTP implements http.Handler.
func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	s.router.ServeHTTP(w, r)
}

func (s *Server) buildRouter() chi.Router {
	r := chi.NewRouter()

	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(middleware.Recoverer)
	r.Use(requestLogger)

	origins := s.origins
	if len(origins) == 0 {
		origins = []string{"*"}
	}
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins: origins,
		AllowedMethods: []string{http.MethodGet, http.MethodPost, http.MethodOptions},
		AllowedHeaders: []string{"Accept", "Content-Type"},
		MaxAge:         300,
	}))

	r.Get("/health", func(w http.ResponseWriter, _ *http.Request) {
		writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
	})
	if s.metrics != nil {
		r.Method(http.MethodGet, s.mpath, s.metrics)
	}

	r.Post("/insert/leads", s.insertLeads)
	r.Get("/task/{taskID}", s.taskStatus)
	r.Get("/leads/{type}/{offset}", s.listLeads)
	r.Get("/profile", s.getProfile)
	r.Post("/profile/upsert", s.upsertProfile)

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

func writeError(w http.ResponseWriter, status int, message string) {
	writeJSON(w, status, map[string]string{"error": message})
}
