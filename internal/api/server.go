package api

import (
	"context"
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"

	"github.com/gyssa-prince/student-progress-system/internal/config"
	"github.com/gyssa-prince/student-progress-system/internal/models"
	"github.com/gyssa-prince/student-progress-system/internal/storage"
)

// SyncRunner triggers a full sync run. *syncer.Orchestrator implements it.
type SyncRunner interface {
	RunAll(ctx context.Context) (*models.SyncRunSummary, error)
}

// InactivityNotifier runs the post-sync inactivity check. *notify.Notifier
// implements it.
type InactivityNotifier interface {
	Notify(ctx context.Context, windowDays int) (*models.NotifyRunSummary, error)
}

// Server represents the HTTP API server
type Server struct {
	config     config.ServerConfig
	router     *chi.Mux
	repo       storage.Repository
	runner     SyncRunner
	notifier   InactivityNotifier
	windowDays int
}

// NewServer creates a new API server
func NewServer(
	cfg config.ServerConfig,
	repo storage.Repository,
	runner SyncRunner,
	notifier InactivityNotifier,
	windowDays int,
) *Server {
	s := &Server{
		config:     cfg,
		repo:       repo,
		runner:     runner,
		notifier:   notifier,
		windowDays: windowDays,
	}
	s.setupRouter()
	return s
}

// Router returns the configured router
func (s *Server) Router() http.Handler {
	return s.router
}

// setupRouter configures all routes and middleware
func (s *Server) setupRouter() {
	r := chi.NewRouter()

	// Middleware stack
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(s.loggingMiddleware)
	r.Use(middleware.Recoverer)

	// CORS configuration
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins:   []string{"*"},
		AllowedMethods:   []string{"GET", "POST", "PUT", "DELETE", "OPTIONS"},
		AllowedHeaders:   []string{"Accept", "Authorization", "Content-Type", "X-Request-ID"},
		ExposedHeaders:   []string{"X-Request-ID"},
		AllowCredentials: true,
		MaxAge:           300,
	}))

	// Health check (public)
	r.Get("/health", s.handleHealth)
	r.Get("/ready", s.handleReady)

	// API v1 routes
	r.Route("/api/v1", func(r chi.Router) {
		// The sync run talks to the remote service for every student; it
		// runs under the orchestrator's own timeouts, not the request
		// timeout used for CRUD.
		r.Post("/sync-all", s.handleSyncAll)

		r.Route("/students", func(r chi.Router) {
			r.Use(middleware.Timeout(30 * time.Second))

			r.Get("/", s.handleListStudents)
			r.Post("/", s.handleCreateStudent)

			r.Route("/{id}", func(r chi.Router) {
				r.Get("/", s.handleGetStudent)
				r.Put("/", s.handleUpdateStudent)
				r.Delete("/", s.handleDeleteStudent)
				r.Get("/profile", s.handleGetStudent)
				r.Get("/contests", s.handleGetContests)
				r.Get("/problems", s.handleGetProblems)
				r.Post("/reminder-toggle", s.handleReminderToggle)
			})
		})
	})

	s.router = r
}

// loggingMiddleware logs HTTP requests using slog
func (s *Server) loggingMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)

		defer func() {
			slog.Info("http request",
				"method", r.Method,
				"path", r.URL.Path,
				"status", ww.Status(),
				"bytes", ww.BytesWritten(),
				"duration_ms", time.Since(start).Milliseconds(),
				"request_id", middleware.GetReqID(r.Context()),
				"remote_addr", r.RemoteAddr,
			)
		}()

		next.ServeHTTP(ww, r)
	})
}
