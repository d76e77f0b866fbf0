package server

import (
	"context"
	"encoding/json"
	"fmt"
	"log"
	"net"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/jonathan/markitup/internal/config"
	"github.com/jonathan/markitup/internal/db"
	"github.com/jonathan/markitup/internal/progress"
	"github.com/jonathan/markitup/internal/rendering"
	"github.com/jonathan/markitup/internal/server/middleware"
	"github.com/jonathan/markitup/internal/server/ratelimit"
	"github.com/jonathan/markitup/internal/types"
)

// Generator produces a strategy document for a request. It never fails;
// remote errors surface as fallback documents.
type Generator interface {
	Generate(ctx context.Context, req types.StrategyRequest) *types.StrategyDocument
}

// Server represents the HTTP server
type Server struct {
	httpServer  *http.Server
	handler     http.Handler
	generator   Generator
	store       db.Store
	exporter    *rendering.Exporter
	progress    *progress.Simulator
	rateLimiter *ratelimit.Limiter
	jwtService  *JWTService
	credentials *config.Credentials
	validate    *validator.Validate
	now         func() time.Time
}

// Config holds server configuration
type Config struct {
	Port        int
	JWT         *config.JWTConfig   // nil leaves mutating routes unauthenticated
	Credentials *config.Credentials // dashboard login for POST /auth/token
	RateLimit   *ratelimit.Config   // nil loads RATE_LIMIT_* from the environment
	ChromePath  string
	Progress    *progress.Simulator
}

// New creates a new server instance
func New(cfg Config, generator Generator, store db.Store) (*Server, error) {
	if generator == nil {
		return nil, fmt.Errorf("generator is required")
	}
	if store == nil {
		return nil, fmt.Errorf("store is required")
	}

	s := &Server{
		generator:   generator,
		store:       store,
		exporter:    rendering.NewExporter(cfg.ChromePath),
		progress:    cfg.Progress,
		credentials: cfg.Credentials,
		validate:    newValidator(),
		now:         time.Now,
	}
	if s.progress == nil {
		s.progress = progress.New()
	}

	// Initialize rate limiter
	rateCfg := cfg.RateLimit
	if rateCfg == nil {
		rateCfg = ratelimit.LoadConfig()
	}
	s.rateLimiter = ratelimit.NewLimiter(rateCfg)

	// Initialize authentication
	if cfg.JWT != nil {
		s.jwtService = NewJWTService(cfg.JWT)
	} else {
		log.Printf("[auth] JWT_SECRET not set; mutating routes are unauthenticated")
	}

	// Setup router
	mux := http.NewServeMux()
	mux.HandleFunc("GET /health", s.handleHealth)
	mux.HandleFunc("POST /auth/token", s.handleToken)

	mux.Handle("POST /strategies/generate", s.protect(s.handleGenerate))
	mux.Handle("POST /strategies/generate/stream", s.protect(s.handleGenerateStream))

	mux.HandleFunc("GET /strategies", s.handleListStrategies)
	mux.HandleFunc("GET /strategies/{id}", s.handleGetStrategy)
	mux.Handle("PUT /strategies/{id}", s.protect(s.handleUpdateStrategy))
	mux.Handle("DELETE /strategies/{id}", s.protect(s.handleDeleteStrategy))
	mux.Handle("POST /strategies/{id}/regenerate", s.protect(s.handleRegenerateStrategy))
	mux.HandleFunc("GET /strategies/{id}/export", s.handleExportStrategy)

	s.handler = s.withRateLimit(s.withLogging(s.withCORS(mux)))

	// Create HTTP server
	s.httpServer = &http.Server{
		Addr:         fmt.Sprintf(":%d", cfg.Port),
		Handler:      s.handler,
		ReadTimeout:  30 * time.Second,
		WriteTimeout: 180 * time.Second, // Generation plus PDF export
		IdleTimeout:  60 * time.Second,
	}

	return s, nil
}

// Handler returns the fully wrapped HTTP handler.
func (s *Server) Handler() http.Handler {
	return s.handler
}

// Start begins listening for requests
func (s *Server) Start() error {
	// Graceful shutdown
	stop := make(chan os.Signal, 1)
	signal.Notify(stop, os.Interrupt, syscall.SIGTERM)

	go func() {
		log.Printf("Server starting on %s", s.httpServer.Addr)
		if err := s.httpServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatalf("Server error: %v", err)
		}
	}()

	<-stop
	log.Println("Shutting down server...")

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := s.httpServer.Shutdown(ctx); err != nil {
		return fmt.Errorf("server shutdown failed: %w", err)
	}

	s.Close()
	log.Println("Server stopped")
	return nil
}

// Close releases the rate limiter and the store.
func (s *Server) Close() {
	// Stop rate limiter cleanup goroutine
	if s.rateLimiter != nil {
		s.rateLimiter.Stop()
	}
	if closer, ok := s.store.(interface{ Close() }); ok {
		closer.Close()
	}
}

// protect requires a bearer token when authentication is configured
func (s *Server) protect(h http.HandlerFunc) http.Handler {
	if s.jwtService == nil {
		return h
	}
	return middleware.AuthMiddleware(s.jwtService.AsTokenValidator())(h)
}

// withCORS adds CORS headers
func (s *Server) withCORS(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Access-Control-Allow-Origin", "*")
		w.Header().Set("Access-Control-Allow-Methods", "GET, POST, PUT, DELETE, OPTIONS")
		w.Header().Set("Access-Control-Allow-Headers", "Content-Type, Authorization")

		if r.Method == "OPTIONS" {
			w.WriteHeader(http.StatusOK)
			return
		}

		next.ServeHTTP(w, r)
	})
}

// withRateLimit adds rate limiting middleware
func (s *Server) withRateLimit(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		clientID := s.extractClientID(r)

		allowed, info := s.rateLimiter.Allow(clientID, r.URL.Path, r.Method)
		s.setRateLimitHeaders(w, info)
		if !allowed {
			s.rateLimitResponse(w, info)
			return
		}

		next.ServeHTTP(w, r)
	})
}

// withLogging adds request logging
func (s *Server) withLogging(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		log.Printf("[%s] %s %s", r.Method, r.URL.Path, r.RemoteAddr)
		next.ServeHTTP(w, r)
		log.Printf("[%s] %s completed in %v", r.Method, r.URL.Path, time.Since(start))
	})
}

// handleHealth returns server health status
func (s *Server) handleHealth(w http.ResponseWriter, _ *http.Request) {
	s.jsonResponse(w, http.StatusOK, map[string]any{
		"status":        "ok",
		"auth_required": s.jwtService != nil,
	})
}

// jsonResponse writes a JSON response
func (s *Server) jsonResponse(w http.ResponseWriter, status int, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(data); err != nil {
		log.Printf("Error encoding JSON response: %v", err)
	}
}

// errorResponse writes an error JSON response
func (s *Server) errorResponse(w http.ResponseWriter, status int, message string) {
	s.jsonResponse(w, status, map[string]string{"error": message})
}

// extractClientID extracts the client identifier from the request.
// This uses the IP address from RemoteAddr; X-Forwarded-For is not trusted.
func (s *Server) extractClientID(r *http.Request) string {
	// Get IP from RemoteAddr (format: "IP:port")
	ip, _, err := net.SplitHostPort(r.RemoteAddr)
	if err != nil {
		// If parsing fails, use the whole RemoteAddr
		return r.RemoteAddr
	}
	return ip
}

// setRateLimitHeaders sets standard rate limit headers on the response.
func (s *Server) setRateLimitHeaders(w http.ResponseWriter, info ratelimit.Info) {
	if info.Limit > 0 {
		w.Header().Set("X-RateLimit-Limit", fmt.Sprintf("%d", info.Limit))
		w.Header().Set("X-RateLimit-Remaining", fmt.Sprintf("%d", info.Remaining))
		w.Header().Set("X-RateLimit-Reset", fmt.Sprintf("%d", info.ResetTime.Unix()))
	}
}

// rateLimitResponse writes a 429 Too Many Requests response with rate limit information.
func (s *Server) rateLimitResponse(w http.ResponseWriter, info ratelimit.Info) {
	response := map[string]interface{}{
		"error":     "rate_limit_exceeded",
		"message":   "Rate limit exceeded. Please try again later.",
		"limit":     info.Limit,
		"remaining": info.Remaining,
		"reset_at":  info.ResetTime.Format(time.RFC3339),
	}

	if info.RetryAfter > 0 {
		response["retry_after"] = int(info.RetryAfter.Seconds())
		w.Header().Set("Retry-After", fmt.Sprintf("%d", int(info.RetryAfter.Seconds())))
	}

	// Log rate limit hit
	tier := info.Tier
	if tier == "" {
		tier = "default"
	}
	log.Printf("[rate-limit] Rate limit exceeded: Tier=%s Limit=%d Remaining=%d Reset=%s",
		tier, info.Limit, info.Remaining, info.ResetTime.Format(time.RFC3339))

	s.jsonResponse(w, http.StatusTooManyRequests, response)
}
