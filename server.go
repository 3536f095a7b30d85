package main

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"net"
	"net/http"
	"runtime/debug"
	"sync"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"github.com/modelcontextprotocol/go-sdk/mcp"
	"github.com/olgasafonova/mast-mcp-server/internal/config"
	"github.com/olgasafonova/mast-mcp-server/metrics"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// DefaultMaxBodySize limits request bodies in HTTP mode
const DefaultMaxBodySize = 1 << 20

// RateLimiter is a per-client token bucket limiter
type RateLimiter struct {
	mu       sync.Mutex
	rate     int
	interval time.Duration
	buckets  map[string]*bucket
	stopCh   chan struct{}
	stopOnce sync.Once
}

type bucket struct {
	tokens   int
	lastSeen time.Time
	refill   time.Time
}

// NewRateLimiter allows rate requests per interval for each client
func NewRateLimiter(rate int, interval time.Duration) *RateLimiter {
	rl := &RateLimiter{
		rate:     rate,
		interval: interval,
		buckets:  make(map[string]*bucket),
		stopCh:   make(chan struct{}),
	}
	go rl.cleanup()
	return rl
}

// Allow reports whether the client may make a request now
func (rl *RateLimiter) Allow(client string) bool {
	rl.mu.Lock()
	defer rl.mu.Unlock()

	now := time.Now()
	b, ok := rl.buckets[client]
	if !ok {
		b = &bucket{tokens: rl.rate, refill: now}
		rl.buckets[client] = b
	}
	if elapsed := now.Sub(b.refill); elapsed >= rl.interval {
		b.tokens = rl.rate
		b.refill = now
	}
	b.lastSeen = now

	if b.tokens <= 0 {
		return false
	}
	b.tokens--
	return true
}

// Close stops the cleanup goroutine. It is safe to call more than once.
func (rl *RateLimiter) Close() {
	rl.stopOnce.Do(func() { close(rl.stopCh) })
}

// cleanup drops buckets of clients idle for several intervals
func (rl *RateLimiter) cleanup() {
	ticker := time.NewTicker(time.Minute)
	defer ticker.Stop()
	for {
		select {
		case <-rl.stopCh:
			return
		case now := <-ticker.C:
			rl.mu.Lock()
			for client, b := range rl.buckets {
				if now.Sub(b.lastSeen) > 3*rl.interval {
					delete(rl.buckets, client)
				}
			}
			rl.mu.Unlock()
		}
	}
}

// SecurityConfig configures the HTTP middleware
type SecurityConfig struct {
	// RateLimit is requests per minute per client IP, 0 disables limiting
	RateLimit int

	// MaxBodySize caps request bodies in bytes
	MaxBodySize int64
}

// SecurityMiddleware assigns request ids, limits request rate and body size,
// recovers panics and records HTTP metrics.
type SecurityMiddleware struct {
	next    http.Handler
	logger  *slog.Logger
	config  SecurityConfig
	limiter *RateLimiter
}

// NewSecurityMiddleware wraps next with the configured protections
func NewSecurityMiddleware(next http.Handler, logger *slog.Logger, config SecurityConfig) *SecurityMiddleware {
	sm := &SecurityMiddleware{
		next:   next,
		logger: logger,
		config: config,
	}
	if config.RateLimit > 0 {
		sm.limiter = NewRateLimiter(config.RateLimit, time.Minute)
	}
	return sm
}

// Close releases the rate limiter
func (sm *SecurityMiddleware) Close() {
	if sm.limiter != nil {
		sm.limiter.Close()
	}
}

func (sm *SecurityMiddleware) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	start := time.Now()

	requestID := r.Header.Get("X-Request-ID")
	if requestID == "" {
		requestID = uuid.NewString()
	}
	w.Header().Set("X-Request-ID", requestID)
	w.Header().Set("X-Content-Type-Options", "nosniff")

	rec := &statusRecorder{ResponseWriter: w, status: http.StatusOK}
	defer func() {
		metrics.RecordHTTPRequest(r.Method, routePath(r), rec.status, time.Since(start).Seconds())
		sm.logger.Debug("HTTP request",
			"request_id", requestID,
			"method", r.Method,
			"path", r.URL.Path,
			"status", rec.status,
			"duration", time.Since(start),
		)
	}()

	// Runs before the deferred metrics so they see the 500
	defer func() {
		if p := recover(); p != nil {
			metrics.PanicsRecovered.WithLabelValues("http").Inc()
			sm.logger.Error("Panic recovered",
				"operation", "http "+r.URL.Path,
				"request_id", requestID,
				"panic", p,
				"stack", string(debug.Stack()),
			)
			if rec.wroteHeader {
				rec.status = http.StatusInternalServerError
				return
			}
			http.Error(rec, "internal server error", http.StatusInternalServerError)
		}
	}()

	if sm.limiter != nil && !sm.limiter.Allow(clientIP(r)) {
		metrics.RateLimitRejections.Inc()
		http.Error(rec, "rate limit exceeded", http.StatusTooManyRequests)
		return
	}

	if sm.config.MaxBodySize > 0 && r.Body != nil {
		r.Body = http.MaxBytesReader(rec, r.Body, sm.config.MaxBodySize)
	}

	sm.next.ServeHTTP(rec, r)
}

// statusRecorder captures the response status for logs and metrics
type statusRecorder struct {
	http.ResponseWriter
	status      int
	wroteHeader bool
}

func (s *statusRecorder) WriteHeader(code int) {
	s.status = code
	s.wroteHeader = true
	s.ResponseWriter.WriteHeader(code)
}

func (s *statusRecorder) Write(b []byte) (int, error) {
	s.wroteHeader = true
	return s.ResponseWriter.Write(b)
}

// Flush supports streamed MCP responses
func (s *statusRecorder) Flush() {
	if f, ok := s.ResponseWriter.(http.Flusher); ok {
		f.Flush()
	}
}

func (s *statusRecorder) Unwrap() http.ResponseWriter {
	return s.ResponseWriter
}

// routePath keeps metric cardinality bounded
func routePath(r *http.Request) string {
	switch r.URL.Path {
	case "/mcp", "/api/status", "/metrics":
		return r.URL.Path
	default:
		return "other"
	}
}

func clientIP(r *http.Request) string {
	host, _, err := net.SplitHostPort(r.RemoteAddr)
	if err != nil {
		return r.RemoteAddr
	}
	return host
}

// newRouter mounts the MCP endpoint, the status endpoint and metrics
func newRouter(server *mcp.Server, logger *slog.Logger) chi.Router {
	r := chi.NewRouter()

	mcpHandler := mcp.NewStreamableHTTPHandler(func(*http.Request) *mcp.Server {
		return server
	}, &mcp.StreamableHTTPOptions{Logger: logger})
	r.Handle("/mcp", mcpHandler)
	r.Handle("/mcp/*", mcpHandler)

	r.Get("/api/status", statusHandler)
	r.Get("/metrics", promhttp.Handler().ServeHTTP)

	return r
}

func statusHandler(w http.ResponseWriter, _ *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	_ = json.NewEncoder(w).Encode(map[string]string{"status": "ok"})
}

// serveHTTP serves the MCP server over streamable HTTP until ctx is done
func serveHTTP(ctx context.Context, server *mcp.Server, cfg *config.Config, logger *slog.Logger) error {
	security := NewSecurityMiddleware(newRouter(server, logger), logger, SecurityConfig{
		RateLimit:   cfg.RateLimit,
		MaxBodySize: DefaultMaxBodySize,
	})
	defer security.Close()

	srv := &http.Server{
		Addr:              cfg.HTTPAddr,
		Handler:           security,
		ReadHeaderTimeout: 5 * time.Second,
		ReadTimeout:       30 * time.Second,
		IdleTimeout:       120 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		logger.Info("HTTP listen", "addr", cfg.HTTPAddr)
		if err := srv.ListenAndServe(); !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
	}()

	select {
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		return srv.Shutdown(shutdownCtx)
	case err := <-errCh:
		return err
	}
}
