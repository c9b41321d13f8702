// Package server provides the HTTP REST API for the change-request scorer.
package server

import (
	"context"
	"crypto/rand"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net"
	"net/http"
	"os"
	"os/signal"
	"strconv"
	"syscall"
	"time"

	"github.com/jonathan/change-scorer/internal/config"
	"github.com/jonathan/change-scorer/internal/db"
	"github.com/jonathan/change-scorer/internal/server/middleware"
	"github.com/jonathan/change-scorer/internal/server/ratelimit"
)

// maxBodyBytes caps request bodies.
const maxBodyBytes = 1 << 20

// Server represents the HTTP server
type Server struct {
	httpServer   *http.Server
	store        Store
	engine       *Engine
	logger       *slog.Logger
	rateLimiter  *ratelimit.Limiter
	jwtService   *JWTService
	authHandler  *AuthHandler
	recalculator *Recalculator
}

// Options carries the dependencies of a Server built around an existing Store.
type Options struct {
	Port         int
	BatchWorkers int
	Engine       *Engine
	Logger       *slog.Logger
	RateLimiter  *ratelimit.Limiter // nil disables rate limiting
	JWT          *config.JWTConfig
	Password     *config.PasswordConfig
}

// New connects to the database and builds a server from the resolved config.
func New(ctx context.Context, cfg *config.Config, logger *slog.Logger) (*Server, error) {
	var jwtConfig *config.JWTConfig
	if cfg.JWTSecret != "" {
		var err error
		jwtConfig, err = cfg.JWT()
		if err != nil {
			return nil, fmt.Errorf("failed to create JWT config: %w", err)
		}
	}
	passwordConfig, err := cfg.Password()
	if err != nil {
		return nil, fmt.Errorf("failed to create password config: %w", err)
	}
	engine, err := EngineFromConfig(cfg)
	if err != nil {
		return nil, err
	}

	database, err := db.Connect(ctx, cfg.DatabaseURL)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to database: %w", err)
	}

	return NewWithStore(database, Options{
		Port:         cfg.Port,
		BatchWorkers: cfg.BatchWorkers,
		Engine:       engine,
		Logger:       logger,
		RateLimiter:  ratelimit.NewLimiter(ratelimit.LoadConfig(cfg.RateLimit, cfg.RateBurst)),
		JWT:          jwtConfig,
		Password:     passwordConfig,
	}), nil
}

// NewWithStore builds a server around store. Zero-valued options fall back to
// defaults.
func NewWithStore(store Store, opts Options) *Server {
	if opts.Logger == nil {
		opts.Logger = slog.New(slog.DiscardHandler)
	}
	if opts.Engine == nil {
		opts.Engine = NewEngine(nil)
	}
	if opts.Port == 0 {
		opts.Port = config.DefaultPort
	}
	if opts.Password == nil {
		opts.Password = &config.PasswordConfig{BcryptCost: config.DefaultBcryptCost}
	}
	if opts.JWT == nil {
		// Tokens will not survive a restart
		opts.JWT = &config.JWTConfig{Secret: rand.Text(), ExpirationHours: config.DefaultJWTExpirationHours}
		opts.Logger.Warn("no jwt-secret configured, using an ephemeral signing key")
	}

	s := &Server{
		store:       store,
		engine:      opts.Engine,
		logger:      opts.Logger,
		rateLimiter: opts.RateLimiter,
		jwtService:  NewJWTService(opts.JWT),
	}
	s.authHandler = NewAuthHandler(NewUserService(store, opts.Password), s.jwtService)
	s.recalculator = NewRecalculator(store, s.currentEngine, opts.BatchWorkers, opts.Logger)

	requireAuth := middleware.AuthMiddleware(s.jwtService.AsTokenValidator())
	protected := func(h http.HandlerFunc) http.Handler { return requireAuth(h) }

	mux := http.NewServeMux()
	mux.HandleFunc("GET /health", s.handleHealth)

	mux.HandleFunc("POST /auth/register", s.authHandler.Register)
	mux.HandleFunc("POST /auth/login", s.authHandler.Login)

	// Stateless scoring
	mux.HandleFunc("POST /score/{kind}", s.handleScore)
	mux.HandleFunc("POST /score/{kind}/factors", s.handleScoreFactors)
	mux.HandleFunc("POST /rank", s.handleRank)

	// Stored change requests
	mux.HandleFunc("GET /requests", s.handleListRequests)
	mux.HandleFunc("GET /requests/ranking", s.handleRequestRanking)
	mux.HandleFunc("GET /requests/{id}", s.handleGetRequest)
	mux.Handle("POST /requests", protected(s.handleCreateRequest))
	mux.Handle("PUT /requests/{id}", protected(s.handleUpdateRequest))
	mux.Handle("DELETE /requests/{id}", protected(s.handleDeleteRequest))
	mux.Handle("POST /requests/{id}/recalculate", protected(s.handleRecalculateRequest))
	mux.Handle("POST /requests/recalculate", protected(s.handleRecalculateAll))

	// Scoring configuration
	mux.HandleFunc("GET /scoring-configs", s.handleListConfigs)
	mux.HandleFunc("GET /scoring-configs/{type}/{name}", s.handleGetConfig)
	mux.Handle("PUT /scoring-configs/{type}/{name}", protected(s.handlePutConfig))
	mux.Handle("DELETE /scoring-configs/{type}/{name}", protected(s.handleDeleteConfig))
	mux.HandleFunc("POST /scoring-configs/{type}/{name}/evaluate", s.handleEvaluateConfig)

	s.httpServer = &http.Server{
		Addr:         fmt.Sprintf(":%d", opts.Port),
		Handler:      s.withRateLimit(s.withLogging(s.withCORS(mux))),
		ReadTimeout:  30 * time.Second,
		WriteTimeout: 120 * time.Second, // batch recalculation can be slow
		IdleTimeout:  60 * time.Second,
	}
	return s
}

// Handler returns the fully wrapped HTTP handler.
func (s *Server) Handler() http.Handler {
	return s.httpServer.Handler
}

// Start serves until SIGINT or SIGTERM, then shuts down gracefully.
func (s *Server) Start() error {
	stop := make(chan os.Signal, 1)
	signal.Notify(stop, os.Interrupt, syscall.SIGTERM)

	errCh := make(chan error, 1)
	go func() {
		s.logger.Info("server starting", "addr", s.httpServer.Addr)
		if err := s.httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
	}()

	select {
	case err := <-errCh:
		s.close()
		return fmt.Errorf("server error: %w", err)
	case <-stop:
	}
	s.logger.Info("shutting down server")

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := s.httpServer.Shutdown(ctx); err != nil {
		return fmt.Errorf("server shutdown failed: %w", err)
	}
	s.close()
	s.logger.Info("server stopped")
	return nil
}

func (s *Server) close() {
	if s.rateLimiter != nil {
		s.rateLimiter.Stop()
	}
	s.store.Close()
}

// currentEngine layers the active stored scoring configs over the base
// engine. Unparseable rows are logged and skipped.
func (s *Server) currentEngine(ctx context.Context) (*Engine, error) {
	configs, err := s.store.ListScoringConfigs(ctx, "", true)
	if err != nil {
		return nil, fmt.Errorf("failed to load scoring configs: %w", err)
	}
	engine, bad := s.engine.WithConfigs(configs)
	for name, err := range bad {
		s.logger.Warn("ignoring scoring config", "name", name, "error", err)
	}
	return engine, nil
}

// withCORS adds CORS headers
func (s *Server) withCORS(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Access-Control-Allow-Origin", "*")
		w.Header().Set("Access-Control-Allow-Methods", "GET, POST, PUT, DELETE, OPTIONS")
		w.Header().Set("Access-Control-Allow-Headers", "Content-Type, Authorization")

		if r.Method == http.MethodOptions {
			w.WriteHeader(http.StatusOK)
			return
		}
		next.ServeHTTP(w, r)
	})
}

// statusRecorder remembers the status code written by a handler.
type statusRecorder struct {
	http.ResponseWriter
	status int
}

func (r *statusRecorder) WriteHeader(status int) {
	r.status = status
	r.ResponseWriter.WriteHeader(status)
}

// withLogging logs every request once it completes
func (s *Server) withLogging(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		rec := &statusRecorder{ResponseWriter: w, status: http.StatusOK}
		next.ServeHTTP(rec, r)

		level := slog.LevelInfo
		if rec.status >= http.StatusInternalServerError {
			level = slog.LevelError
		}
		s.logger.Log(r.Context(), level, "request",
			"method", r.Method,
			"path", r.URL.Path,
			"status", rec.status,
			"remote", r.RemoteAddr,
			"duration", time.Since(start),
		)
	})
}

// withRateLimit rejects clients that exceed their per-endpoint budget
func (s *Server) withRateLimit(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if s.rateLimiter == nil {
			next.ServeHTTP(w, r)
			return
		}

		allowed, info := s.rateLimiter.Allow(extractClientID(r), r.URL.Path, r.Method)
		setRateLimitHeaders(w, info)
		if !allowed {
			s.rateLimitResponse(w, r, info)
			return
		}
		next.ServeHTTP(w, r)
	})
}

// handleHealth reports whether the database is reachable
func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), 2*time.Second)
	defer cancel()

	if err := s.store.Ping(ctx); err != nil {
		s.logger.Warn("health check failed", "error", err)
		s.jsonResponse(w, http.StatusServiceUnavailable, map[string]string{"status": "unavailable"})
		return
	}
	s.jsonResponse(w, http.StatusOK, map[string]string{"status": "ok"})
}

// jsonResponse writes a JSON response
func (s *Server) jsonResponse(w http.ResponseWriter, status int, data any) {
	if err := writeJSON(w, status, data); err != nil {
		s.logger.Error("failed to encode JSON response", "error", err)
	}
}

// errorResponse writes an error JSON response
func (s *Server) errorResponse(w http.ResponseWriter, status int, message string) {
	s.jsonResponse(w, status, map[string]string{"error": message})
}

// fail maps err to a status and writes it; internal errors are logged and
// replaced by a generic message.
func (s *Server) fail(w http.ResponseWriter, r *http.Request, err error) {
	status := HTTPStatus(err)
	if status == http.StatusInternalServerError {
		s.logger.Error("request failed", "method", r.Method, "path", r.URL.Path, "error", err)
		s.errorResponse(w, status, "internal server error")
		return
	}
	s.errorResponse(w, status, err.Error())
}

func writeJSON(w http.ResponseWriter, status int, data any) error {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	return json.NewEncoder(w).Encode(data)
}

func writeError(w http.ResponseWriter, status int, message string) {
	_ = writeJSON(w, status, map[string]string{"error": message})
}

// extractClientID identifies the client by the IP in RemoteAddr.
func extractClientID(r *http.Request) string {
	ip, _, err := net.SplitHostPort(r.RemoteAddr)
	if err != nil {
		return r.RemoteAddr
	}
	return ip
}

// setRateLimitHeaders sets standard rate limit headers on the response.
func setRateLimitHeaders(w http.ResponseWriter, info ratelimit.Info) {
	if info.Limit > 0 {
		w.Header().Set("X-RateLimit-Limit", strconv.Itoa(info.Limit))
		w.Header().Set("X-RateLimit-Remaining", strconv.Itoa(info.Remaining))
		w.Header().Set("X-RateLimit-Reset", strconv.FormatInt(info.ResetTime.Unix(), 10))
	}
}

// rateLimitResponse writes a 429 Too Many Requests response with rate limit information.
func (s *Server) rateLimitResponse(w http.ResponseWriter, r *http.Request, info ratelimit.Info) {
	response := map[string]any{
		"error":     "rate_limit_exceeded",
		"message":   "Rate limit exceeded. Please try again later.",
		"limit":     info.Limit,
		"remaining": info.Remaining,
	}
	if !info.ResetTime.IsZero() {
		response["reset_at"] = info.ResetTime.Format(time.RFC3339)
	}
	if info.RetryAfter > 0 {
		seconds := int(info.RetryAfter.Round(time.Second).Seconds())
		seconds = max(seconds, 1)
		response["retry_after"] = seconds
		w.Header().Set("Retry-After", strconv.Itoa(seconds))
	}

	s.logger.Warn("rate limit exceeded", "client", extractClientID(r), "path", r.URL.Path, "limit", info.Limit)
	s.jsonResponse(w, http.StatusTooManyRequests, response)
}
