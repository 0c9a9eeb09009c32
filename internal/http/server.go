// Package http serves the advisory JSON API: wealth projections, goal
// alignment and the plan record endpoints.
package http

import (
	"context"
	"crypto/rand"
	"encoding/hex"
	"fmt"
	"log/slog"
	"net/http"
	"sync"
	"sync/atomic"
	"time"

	"advisory/internal/core"
	applog "advisory/internal/log"

	"github.com/shopspring/decimal"
)

// ProjectionAPI is the read side exposed over HTTP.
type ProjectionAPI interface {
	Project(ctx context.Context, clientID string, annualRate decimal.Decimal) ([]core.ProjectionPoint, error)
	Alignment(ctx context.Context, clientID string) (core.AlignmentResult, error)
}

// RecordAPI is the record side exposed over HTTP.
type RecordAPI interface {
	UpsertWallet(ctx context.Context, clientID string, totalValue decimal.Decimal) error
	ListEvents(ctx context.Context, clientID string) ([]core.CashflowEvent, error)
	CreateEvent(ctx context.Context, clientID string, e core.CashflowEvent) (core.CashflowEvent, error)
	DeleteEvent(ctx context.Context, clientID string, id int64) error
	ListGoals(ctx context.Context, clientID string) ([]core.Goal, error)
	CreateGoal(ctx context.Context, clientID string, g core.Goal) (core.Goal, error)
	DeleteGoal(ctx context.Context, clientID string, id int64) error
}

// ReadyCheck verifies a backing dependency for the readiness probe.
type ReadyCheck func(ctx context.Context) error

type appMetrics struct {
	startedAt         time.Time
	totalRequests     int64
	projectionsServed int64
	recordsWritten    int64
}

type Server struct {
	http.Server
	projections ProjectionAPI
	records     RecordAPI
	readyCheck  ReadyCheck
	rateLimiter *rateLimiter
	metrics     appMetrics

	shutdownOnce sync.Once
}

// NewServer configures routes and middleware, returning a ready-to-run
// http.Server. readyCheck may be nil.
func NewServer(addr string, projections ProjectionAPI, records RecordAPI, readyCheck ReadyCheck) *Server {
	mux := http.NewServeMux()

	s := &Server{
		Server: http.Server{
			Addr:    addr,
			Handler: mux,
		},
		projections: projections,
		records:     records,
		readyCheck:  readyCheck,
		rateLimiter: newRateLimiter(),
		metrics:     appMetrics{startedAt: time.Now()},
	}

	mux.HandleFunc("GET /healthz", s.handleHealth)
	mux.HandleFunc("GET /readyz", s.handleReady)
	mux.HandleFunc("GET /metrics", s.handleMetrics)

	mux.HandleFunc("GET /clients/{clientID}/projection", s.withMiddleware(s.handleProjection))
	mux.HandleFunc("GET /clients/{clientID}/alignment", s.withMiddleware(s.handleAlignment))
	mux.HandleFunc("PUT /clients/{clientID}/wallet", s.withMiddleware(s.handleUpsertWallet))
	mux.HandleFunc("GET /clients/{clientID}/events", s.withMiddleware(s.handleListEvents))
	mux.HandleFunc("POST /clients/{clientID}/events", s.withMiddleware(s.handleCreateEvent))
	mux.HandleFunc("DELETE /clients/{clientID}/events/{eventID}", s.withMiddleware(s.handleDeleteEvent))
	mux.HandleFunc("GET /clients/{clientID}/goals", s.withMiddleware(s.handleListGoals))
	mux.HandleFunc("POST /clients/{clientID}/goals", s.withMiddleware(s.handleCreateGoal))
	mux.HandleFunc("DELETE /clients/{clientID}/goals/{goalID}", s.withMiddleware(s.handleDeleteGoal))

	return s
}

// Shutdown gracefully shuts down the server and its cleanup routines.
func (s *Server) Shutdown(ctx context.Context) error {
	var shutdownErr error

	s.shutdownOnce.Do(func() {
		if s.rateLimiter != nil {
			s.rateLimiter.stop()
		}
		shutdownErr = s.Server.Shutdown(ctx)
	})

	return shutdownErr
}

// withMiddleware adds request IDs, security headers, rate limiting on
// mutations, and request logging.
func (s *Server) withMiddleware(next http.HandlerFunc) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		atomic.AddInt64(&s.metrics.totalRequests, 1)

		clientIP := r.Header.Get("X-Forwarded-For")
		if clientIP == "" {
			clientIP = r.Header.Get("X-Real-IP")
		}
		if clientIP == "" {
			clientIP = r.RemoteAddr
		}

		requestID := generateRequestID()
		ctx := context.WithValue(r.Context(), requestIDKey, requestID)
		r = r.WithContext(ctx)

		slog.InfoContext(ctx, "Request started",
			applog.FieldRequestID, requestID,
			applog.FieldMethod, r.Method,
			applog.FieldPath, r.URL.Path,
			applog.FieldClientIP, clientIP)

		if isMutation(r.Method) && !s.rateLimiter.allow(clientIP) {
			slog.WarnContext(ctx, "Rate limit exceeded",
				applog.FieldClientIP, clientIP, applog.FieldMethod, r.Method, applog.FieldPath, r.URL.Path)
			w.Header().Set("Retry-After", "60")
			writeError(w, http.StatusTooManyRequests, "rate limit exceeded, try again later")
			return
		}

		w.Header().Set("X-Content-Type-Options", "nosniff")
		w.Header().Set("X-Frame-Options", "DENY")
		w.Header().Set("Referrer-Policy", "strict-origin-when-cross-origin")

		rw := &responseWriter{ResponseWriter: w, statusCode: http.StatusOK}
		next(rw, r)

		duration := time.Since(start)
		slog.InfoContext(ctx, "Request completed",
			applog.FieldRequestID, requestID,
			applog.FieldMethod, r.Method,
			applog.FieldPath, r.URL.Path,
			applog.FieldStatusCode, rw.statusCode,
			applog.FieldDuration, duration.Milliseconds(),
			applog.FieldClientIP, clientIP)
	}
}

func isMutation(method string) bool {
	switch method {
	case http.MethodPost, http.MethodPut, http.MethodDelete:
		return true
	}
	return false
}

type contextKey string

const requestIDKey contextKey = "request_id"

// responseWriter wraps http.ResponseWriter to capture the status code.
type responseWriter struct {
	http.ResponseWriter
	statusCode int
}

func (rw *responseWriter) WriteHeader(code int) {
	rw.statusCode = code
	rw.ResponseWriter.WriteHeader(code)
}

func generateRequestID() string {
	bytes := make([]byte, 8)
	if _, err := rand.Read(bytes); err != nil {
		return fmt.Sprintf("req_%d", time.Now().UnixNano())
	}
	return "req_" + hex.EncodeToString(bytes)
}

// rateLimiter is a simple in-memory per-IP limiter for mutation endpoints.
type rateLimiter struct {
	mu           sync.Mutex
	clients      map[string]*clientInfo
	stopCleanup  chan struct{}
	shutdownOnce sync.Once
}

type clientInfo struct {
	lastRequest time.Time
	requests    int
}

func newRateLimiter() *rateLimiter {
	rl := &rateLimiter{
		clients:     make(map[string]*clientInfo),
		stopCleanup: make(chan struct{}),
	}
	go rl.startCleanup()
	return rl
}

func (rl *rateLimiter) startCleanup() {
	ticker := time.NewTicker(5 * time.Minute)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			rl.cleanupStaleEntries()
		case <-rl.stopCleanup:
			return
		}
	}
}

// cleanupStaleEntries removes client entries older than 10 minutes.
func (rl *rateLimiter) cleanupStaleEntries() {
	rl.mu.Lock()
	defer rl.mu.Unlock()

	cutoff := time.Now().Add(-10 * time.Minute)
	for ip, client := range rl.clients {
		if client.lastRequest.Before(cutoff) {
			delete(rl.clients, ip)
		}
	}
}

func (rl *rateLimiter) stop() {
	rl.shutdownOnce.Do(func() {
		if rl.stopCleanup != nil {
			close(rl.stopCleanup)
		}
	})
}

func (rl *rateLimiter) allow(clientIP string) bool {
	rl.mu.Lock()
	defer rl.mu.Unlock()

	now := time.Now()
	client, exists := rl.clients[clientIP]

	if !exists {
		rl.clients[clientIP] = &clientInfo{
			lastRequest: now,
			requests:    1,
		}
		return true
	}

	if now.Sub(client.lastRequest) > time.Minute {
		client.requests = 1
		client.lastRequest = now
		return true
	}

	// Allow up to 60 mutations per minute per client.
	client.requests++
	client.lastRequest = now

	return client.requests <= 60
}
