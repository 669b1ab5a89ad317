package server

import (
	"context"
	"encoding/json"
	"log/slog"
	"math"
	"net/http"
	"runtime/debug"
	"strconv"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/storyfeed/storyfeed/internal/metrics"
	"github.com/storyfeed/storyfeed/internal/server/ratelimit"
)

// HeaderRequestID carries the per-request correlation id in both directions.
const HeaderRequestID = "X-Request-ID"

// statusClientClosed is logged for requests the client abandoned.
const statusClientClosed = 499

type contextKey struct{}

var requestIDKey contextKey

var securityHeaders = [][2]string{
	{"X-Content-Type-Options", "nosniff"},
	{"X-Frame-Options", "DENY"},
	{"Referrer-Policy", "strict-origin-when-cross-origin"},
	{"Content-Security-Policy", "default-src 'none'"},
}

// APIError is the JSON body of every error the middleware chain writes.
type APIError struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}

func writeError(w http.ResponseWriter, status int, code string, message string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(APIError{Code: code, Message: message}); err != nil {
		slog.Warn("Failed to encode error response", "error", err)
	}
}

// GetRequestID returns the id assigned by the request id middleware, or "".
func GetRequestID(ctx context.Context) string {
	id, _ := ctx.Value(requestIDKey).(string)
	return id
}

// Middleware wraps an http.Handler.
type Middleware func(http.Handler) http.Handler

// Chain applies mws so that mws[0] sees the request first.
func Chain(h http.Handler, mws ...Middleware) http.Handler {
	for i := len(mws) - 1; i >= 0; i-- {
		h = mws[i](h)
	}
	return h
}

func (s *serverImpl) wrapMiddleware(h http.Handler) http.Handler {
	chain := []Middleware{
		s.recoveryMiddleware,
		s.requestIDMiddleware,
		s.loggingMiddleware,
		metrics.Middleware,
		s.securityHeadersMiddleware,
	}
	if s.cfg.EnableCORS {
		chain = append(chain, s.corsMiddleware)
	}
	if s.rateLimiter != nil {
		chain = append(chain, s.rateLimitMiddleware)
	}
	return Chain(h, chain...)
}

func (s *serverImpl) recoveryMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		defer func() {
			rec := recover()
			if rec == nil {
				return
			}
			s.logger.Error("Recovered from handler panic",
				"panic", rec,
				slog.Group("request",
					"id", GetRequestID(r.Context()),
					"method", r.Method,
					"path", r.URL.Path,
				),
				"stack", string(debug.Stack()),
			)
			writeError(w, http.StatusInternalServerError, "INTERNAL_ERROR", "Internal server error")
		}()
		next.ServeHTTP(w, r)
	})
}

func (s *serverImpl) requestIDMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		id := r.Header.Get(HeaderRequestID)
		if id == "" {
			id = uuid.NewString()
		}
		w.Header().Set(HeaderRequestID, id)
		next.ServeHTTP(w, r.WithContext(context.WithValue(r.Context(), requestIDKey, id)))
	})
}

func (s *serverImpl) loggingMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		rec := &statusRecorder{ResponseWriter: w, status: http.StatusOK}

		next.ServeHTTP(rec, r)

		s.logger.Log(r.Context(), accessLogLevel(r.Context(), rec.status), "HTTP request",
			"method", r.Method,
			"path", r.URL.Path,
			"status", rec.status,
			"duration_ms", time.Since(start).Milliseconds(),
			"request_id", GetRequestID(r.Context()),
			"client_ip", ratelimit.ClientIP(r),
		)
	})
}

// accessLogLevel reports server faults at error level. Failures caused by
// the client going away are only warnings.
func accessLogLevel(ctx context.Context, status int) slog.Level {
	switch {
	case status < http.StatusInternalServerError && status != statusClientClosed:
		return slog.LevelInfo
	case status == statusClientClosed || ctx.Err() != nil:
		return slog.LevelWarn
	default:
		return slog.LevelError
	}
}

// TimeoutMiddleware bounds the request context by timeout.
func TimeoutMiddleware(timeout time.Duration) Middleware {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			ctx, cancel := context.WithTimeout(r.Context(), timeout)
			defer cancel()
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

// allowedOrigin returns the value for Access-Control-Allow-Origin, or "" if
// origin may not make cross-origin calls. An empty allow list admits any
// origin.
func (s *serverImpl) allowedOrigin(origin string) string {
	if origin == "" {
		return ""
	}
	if len(s.cfg.AllowedOrigins) == 0 {
		return origin
	}
	for _, o := range s.cfg.AllowedOrigins {
		if o == "*" || o == origin {
			return origin
		}
	}
	return ""
}

func (s *serverImpl) corsMiddleware(next http.Handler) http.Handler {
	methods := strings.Join(s.cfg.AllowedMethods, ", ")
	headers := strings.Join(s.cfg.AllowedHeaders, ", ")
	maxAge := strconv.Itoa(s.cfg.CORSMaxAge)

	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if origin := s.allowedOrigin(r.Header.Get("Origin")); origin != "" {
			h := w.Header()
			h.Set("Access-Control-Allow-Origin", origin)
			h.Set("Access-Control-Allow-Methods", methods)
			h.Set("Access-Control-Allow-Headers", headers)
			h.Set("Access-Control-Max-Age", maxAge)
			if s.cfg.AllowCredentials {
				h.Set("Access-Control-Allow-Credentials", "true")
			}
			h.Add("Vary", "Origin")
		}

		if r.Method == http.MethodOptions {
			w.WriteHeader(http.StatusNoContent)
			return
		}
		next.ServeHTTP(w, r)
	})
}

func (s *serverImpl) securityHeadersMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		for _, kv := range securityHeaders {
			w.Header().Set(kv[0], kv[1])
		}
		next.ServeHTTP(w, r)
	})
}

// rateLimitMiddleware throttles by client IP. Paths under /auth/ draw from
// the smaller login budget.
func (s *serverImpl) rateLimitMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		limiter, window := s.rateLimiter, s.cfg.RateLimit.Window
		if s.loginLimiter != nil && strings.HasPrefix(r.URL.Path, "/auth/") {
			limiter = s.loginLimiter
			if s.cfg.RateLimit.LoginWindow > 0 {
				window = s.cfg.RateLimit.LoginWindow
			}
		}

		if limiter.Allow(ratelimit.ClientIP(r)) {
			next.ServeHTTP(w, r)
			return
		}

		w.Header().Set("Retry-After", strconv.Itoa(int(math.Ceil(window.Seconds()))))
		writeError(w, http.StatusTooManyRequests, "RATE_LIMITED", "Too many requests")
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
