// Package http exposes the JSON API: accounts, the transaction journal,
// scheduled obligations, projections and budgets. The acting user comes from
// the X-User header on every request.
package http

import (
	"context"
	"net/http"
	"sync"
	"time"

	"github.com/google/uuid"

	"moneta/internal/core"
	"moneta/internal/log"
	"moneta/internal/ports"
	"moneta/internal/services"
)

// TransactionRecorder writes to the journal with ledger side effects.
type TransactionRecorder interface {
	Record(ctx context.Context, t core.Transaction) (int64, error)
	Edit(ctx context.Context, t core.Transaction) error
	Delete(ctx context.Context, id int64) error
}

// ObligationScheduler manages the scheduled-obligation lifecycle.
type ObligationScheduler interface {
	Schedule(ctx context.Context, s core.ScheduledTransaction) (int64, error)
	ProcessDue(ctx context.Context, owner string, now time.Time) (int, error)
	ResolveFailed(ctx context.Context, id int64, now time.Time) (core.ObligationStatus, error)
}

// OccurrenceProjector expands the combined occurrence feed over a window.
type OccurrenceProjector interface {
	Project(ctx context.Context, owner string, from, to time.Time) ([]services.Occurrence, error)
}

// BudgetManager manages rolling budget windows.
type BudgetManager interface {
	Create(ctx context.Context, b core.Budget) (int64, error)
	ListActive(ctx context.Context, owner string, now time.Time) ([]services.BudgetStatus, error)
	RenewAndCleanup(ctx context.Context, now time.Time) (renewed int, removed int64, err error)
}

// Summarizer aggregates the journal for the dashboard readout. Invalidate
// drops an owner's cached summaries and is called after every journal write.
type Summarizer interface {
	Summarize(ctx context.Context, owner string, from, to time.Time) (services.Summary, error)
	Invalidate(owner string)
}

type Server struct {
	http.Server
	store        ports.Store
	transactions TransactionRecorder
	obligations  ObligationScheduler
	projector    OccurrenceProjector
	budgets      BudgetManager
	reports      Summarizer
	rateLimiter  *rateLimiter
	logger       *log.Logger

	shutdownOnce sync.Once
}

// Simple in-memory rate limiter
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

// startCleanup runs periodic cleanup to remove stale client entries
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

// cleanupStaleEntries removes client entries older than 10 minutes
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

// stop gracefully shuts down the rate limiter cleanup goroutine
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

	// Reset counter if more than 1 minute has passed
	if now.Sub(client.lastRequest) > time.Minute {
		client.requests = 1
		client.lastRequest = now
		return true
	}

	// Allow up to 120 requests per minute
	client.requests++
	client.lastRequest = now

	return client.requests <= 120
}

// NewServer configures the API routes and returns a ready-to-run server.
func NewServer(addr string, store ports.Store, tr TransactionRecorder, os ObligationScheduler, pr OccurrenceProjector, bm BudgetManager, sm Summarizer) *Server {
	mux := http.NewServeMux()

	logger := log.New(log.DefaultConfig()).WithComponent(log.ComponentHTTP)

	s := &Server{
		Server: http.Server{
			Addr:              addr,
			Handler:           mux,
			ReadHeaderTimeout: 5 * time.Second,
			ReadTimeout:       15 * time.Second,
			WriteTimeout:      30 * time.Second,
			IdleTimeout:       60 * time.Second,
		},
		store:        store,
		transactions: tr,
		obligations:  os,
		projector:    pr,
		budgets:      bm,
		reports:      sm,
		rateLimiter:  newRateLimiter(),
		logger:       logger,
	}

	mux.HandleFunc("/healthz", handleHealth)
	mux.HandleFunc("/readyz", handleReady)

	mux.HandleFunc("POST /api/accounts", s.with(s.handleCreateAccount))
	mux.HandleFunc("GET /api/accounts", s.with(s.handleListAccounts))
	mux.HandleFunc("GET /api/accounts/{id}", s.with(s.handleGetAccount))
	mux.HandleFunc("DELETE /api/accounts/{id}", s.with(s.handleDeleteAccount))

	mux.HandleFunc("POST /api/transactions", s.with(s.handleRecordTransaction))
	mux.HandleFunc("GET /api/transactions", s.with(s.handleListTransactions))
	mux.HandleFunc("PUT /api/transactions/{id}", s.with(s.handleEditTransaction))
	mux.HandleFunc("DELETE /api/transactions/{id}", s.with(s.handleDeleteTransaction))
	mux.HandleFunc("GET /api/summary", s.with(s.handleSummary))

	mux.HandleFunc("POST /api/obligations", s.with(s.handleScheduleObligation))
	mux.HandleFunc("GET /api/obligations", s.with(s.handleListObligations))
	mux.HandleFunc("DELETE /api/obligations/{id}", s.with(s.handleDeleteObligation))
	mux.HandleFunc("POST /api/obligations/process", s.with(s.handleProcessDue))
	mux.HandleFunc("POST /api/obligations/{id}/resolve", s.with(s.handleResolveFailed))
	mux.HandleFunc("GET /api/occurrences", s.with(s.handleOccurrences))

	mux.HandleFunc("POST /api/budgets", s.with(s.handleCreateBudget))
	mux.HandleFunc("GET /api/budgets", s.with(s.handleListBudgets))
	mux.HandleFunc("DELETE /api/budgets/{id}", s.with(s.handleDeleteBudget))
	mux.HandleFunc("POST /api/budgets/maintain", s.with(s.handleMaintainBudgets))

	return s
}

// with adds security headers, rate limiting and request logging to a handler.
func (s *Server) with(next http.HandlerFunc) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()

		// Extract client IP (considering proxies)
		clientIP := r.Header.Get("X-Forwarded-For")
		if clientIP == "" {
			clientIP = r.Header.Get("X-Real-IP")
		}
		if clientIP == "" {
			clientIP = r.RemoteAddr
		}

		requestID := uuid.NewString()

		reqLogger := s.logger.With(log.FieldRequestID, requestID)
		requestLog := log.NewStructuredLogger(reqLogger)
		ctx := context.WithValue(r.Context(), requestIDKey, requestID)
		ctx = context.WithValue(ctx, log.LoggerContextKey, reqLogger)
		r = r.WithContext(ctx)

		requestLog.LogHTTPStart(ctx, r, clientIP)

		// Apply rate limiting to mutating requests
		if r.Method != http.MethodGet && !s.rateLimiter.allow(clientIP) {
			reqLogger.WarnContext(ctx, "Rate limit exceeded", log.FieldClientIP, clientIP, log.FieldMethod, r.Method, log.FieldPath, r.URL.Path)
			w.Header().Set("Retry-After", "60")
			http.Error(w, "Rate limit exceeded. Please try again later.", http.StatusTooManyRequests)
			return
		}

		w.Header().Set("X-Content-Type-Options", "nosniff")
		w.Header().Set("X-Frame-Options", "DENY")
		w.Header().Set("Referrer-Policy", "strict-origin-when-cross-origin")
		w.Header().Set("X-Request-ID", requestID)

		rw := &responseWriter{ResponseWriter: w, statusCode: http.StatusOK}
		next(rw, r)

		requestLog.LogHTTPEnd(ctx, r, rw.statusCode, time.Since(start).Milliseconds(), clientIP)
	}
}

type contextKey string

const requestIDKey contextKey = "request_id"

// responseWriter wraps http.ResponseWriter to capture the status code
type responseWriter struct {
	http.ResponseWriter
	statusCode int
}

func (rw *responseWriter) WriteHeader(code int) {
	rw.statusCode = code
	rw.ResponseWriter.WriteHeader(code)
}

// Shutdown gracefully shuts down the server and cleanup routines.
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

func handleHealth(w http.ResponseWriter, r *http.Request) {
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write([]byte("ok"))
}

func handleReady(w http.ResponseWriter, r *http.Request) {
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write([]byte("ready"))
}
