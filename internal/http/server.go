// Package http serves the JSON API: transactions, envelopes, goals, the
// dashboard, the onboarding quiz, achievements and module settings.
package http

import (
	"context"
	"log/slog"
	"net/http"
	"sync"
	"time"

	"coincraft/internal/cache"
	"coincraft/internal/core"
	applog "coincraft/internal/log"
	"coincraft/internal/services"
)

// Store is the persistence surface the handlers use directly. Writes that
// trigger engagement side effects go through the services instead.
type Store interface {
	ListTransactions(ctx context.Context, userID string, year, month int) ([]core.Transaction, error)

	CreateEnvelope(ctx context.Context, e core.Envelope) (core.Envelope, error)
	GetEnvelope(ctx context.Context, userID string, id int64) (core.Envelope, error)
	ListEnvelopes(ctx context.Context, userID string) ([]core.Envelope, error)
	UpdateEnvelopeSettings(ctx context.Context, e core.Envelope) error
	DeleteEnvelope(ctx context.Context, userID string, id int64) error

	CreateGoal(ctx context.Context, g core.Goal) (core.Goal, error)
	ListGoals(ctx context.Context, userID string) ([]core.Goal, error)
	DeleteGoal(ctx context.Context, userID string, id int64) error

	GetModules(ctx context.Context, userID string) (core.ModuleSet, error)
	SetModules(ctx context.Context, userID string, set core.ModuleSet) error
	UnlockedAchievements(ctx context.Context, userID string) (map[string]bool, error)
}

type Server struct {
	http.Server

	store       Store
	activity    *services.ActivityService
	dashboards  *services.DashboardService
	rollovers   *services.RolloverProcessor
	defaultUser string

	rateLimiter *rateLimiter
	dashCache   *cache.LRUCache[services.Dashboard]
	caches      *cache.Manager
	requests    *applog.StructuredLogger

	ready        func(ctx context.Context) error
	shutdownOnce sync.Once
}

// NewServer configures routes and returns a ready-to-run server. ready is the
// readiness probe; nil means always ready.
func NewServer(addr, defaultUser string, store Store, activity *services.ActivityService,
	dashboards *services.DashboardService, rollovers *services.RolloverProcessor,
	ready func(ctx context.Context) error) *Server {

	mux := http.NewServeMux()

	s := &Server{
		Server: http.Server{
			Addr:    addr,
			Handler: mux,
		},
		store:       store,
		activity:    activity,
		dashboards:  dashboards,
		rollovers:   rollovers,
		defaultUser: defaultUser,
		rateLimiter: newRateLimiter(),
		dashCache:   cache.NewLRUCache[services.Dashboard](100, time.Minute),
		caches:      cache.NewManager(),
		requests:    applog.NewStructuredLogger(applog.New(applog.DefaultConfig()).WithComponent(applog.ComponentHTTP)),
		ready:       ready,
	}

	s.caches.Register(s.dashCache)
	s.caches.StartCleanup(10 * time.Minute)

	mux.HandleFunc("GET /healthz", handleHealth)
	mux.HandleFunc("GET /readyz", s.handleReady)

	mux.HandleFunc("POST /api/transactions", s.wrap(s.handleCreateTransaction))
	mux.HandleFunc("GET /api/transactions", s.wrap(s.handleListTransactions))

	mux.HandleFunc("POST /api/envelopes", s.wrap(s.handleCreateEnvelope))
	mux.HandleFunc("GET /api/envelopes", s.wrap(s.handleListEnvelopes))
	mux.HandleFunc("GET /api/envelopes/{id}", s.wrap(s.handleGetEnvelope))
	mux.HandleFunc("PUT /api/envelopes/{id}", s.wrap(s.handleUpdateEnvelope))
	mux.HandleFunc("DELETE /api/envelopes/{id}", s.wrap(s.handleDeleteEnvelope))
	mux.HandleFunc("POST /api/envelopes/{id}/reset", s.wrap(s.handleResetEnvelope))

	mux.HandleFunc("POST /api/goals", s.wrap(s.handleCreateGoal))
	mux.HandleFunc("GET /api/goals", s.wrap(s.handleListGoals))
	mux.HandleFunc("DELETE /api/goals/{id}", s.wrap(s.handleDeleteGoal))
	mux.HandleFunc("POST /api/goals/{id}/contribute", s.wrap(s.handleContributeToGoal))

	mux.HandleFunc("GET /api/dashboard", s.wrap(s.handleDashboard))

	mux.HandleFunc("GET /api/quiz/questions", s.wrap(s.handleQuizQuestions))
	mux.HandleFunc("POST /api/quiz/answers", s.wrap(s.handleQuizAnswers))

	mux.HandleFunc("GET /api/achievements", s.wrap(s.handleListAchievements))
	mux.HandleFunc("GET /api/modules", s.wrap(s.handleGetModules))
	mux.HandleFunc("PUT /api/modules", s.wrap(s.handleSetModules))

	return s
}

// Shutdown stops the background routines and then the HTTP server.
func (s *Server) Shutdown(ctx context.Context) error {
	var shutdownErr error
	s.shutdownOnce.Do(func() {
		s.caches.Stop()
		s.rateLimiter.stop()
		shutdownErr = s.Server.Shutdown(ctx)
	})
	return shutdownErr
}

// userID resolves the caller identity from the X-User-ID header, falling back
// to the configured default user for single-user deployments.
func (s *Server) userID(r *http.Request) string {
	if id := sanitizeInput(r.Header.Get("X-User-ID")); id != "" {
		return id
	}
	return s.defaultUser
}

func (s *Server) dashCacheKey(userID string, day time.Time) string {
	return userID + "|" + day.UTC().Format("2006-01-02")
}

// invalidateDashboard drops the user's cached dashboard after any write.
func (s *Server) invalidateDashboard(userID string) {
	s.dashCache.Delete(s.dashCacheKey(userID, time.Now()))
}

// wrap adds security headers, rate limiting and request logging.
func (s *Server) wrap(next http.HandlerFunc) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()

		clientIP := r.Header.Get("X-Forwarded-For")
		if clientIP == "" {
			clientIP = r.Header.Get("X-Real-IP")
		}
		if clientIP == "" {
			clientIP = r.RemoteAddr
		}

		requestID := generateRequestID()
		ctx := context.WithValue(r.Context(), requestIDKey{}, requestID)
		r = r.WithContext(ctx)

		s.requests.LogHTTPStart(ctx, r, requestID, clientIP)

		if isMutating(r.Method) && !s.rateLimiter.allow(clientIP) {
			slog.WarnContext(ctx, "Rate limit exceeded",
				"client_ip", clientIP, "method", r.Method, "url", r.URL.Path)
			w.Header().Set("Retry-After", "60")
			writeError(w, http.StatusTooManyRequests, "rate limit exceeded")
			return
		}

		w.Header().Set("X-Content-Type-Options", "nosniff")
		w.Header().Set("X-Frame-Options", "DENY")
		w.Header().Set("Referrer-Policy", "strict-origin-when-cross-origin")
		w.Header().Set("Content-Security-Policy", "default-src 'none'")

		rw := &responseWriter{ResponseWriter: w, statusCode: http.StatusOK}
		next(rw, r)

		s.requests.LogHTTPEnd(ctx, r, requestID, rw.statusCode, time.Since(start).Milliseconds(), clientIP)
	}
}

type requestIDKey struct{}

func isMutating(method string) bool {
	switch method {
	case http.MethodPost, http.MethodPut, http.MethodPatch, http.MethodDelete:
		return true
	}
	return false
}

// responseWriter wraps http.ResponseWriter to capture the status code.
type responseWriter struct {
	http.ResponseWriter
	statusCode int
}

func (rw *responseWriter) WriteHeader(code int) {
	rw.statusCode = code
	rw.ResponseWriter.WriteHeader(code)
}

func handleHealth(w http.ResponseWriter, _ *http.Request) {
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write([]byte("ok"))
}

func (s *Server) handleReady(w http.ResponseWriter, r *http.Request) {
	if s.ready != nil {
		if err := s.ready(r.Context()); err != nil {
			slog.ErrorContext(r.Context(), "Readiness check failed", "error", err)
			writeError(w, http.StatusServiceUnavailable, "not ready")
			return
		}
	}
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write([]byte("ready"))
}
