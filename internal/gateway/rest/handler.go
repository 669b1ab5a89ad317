package rest

import (
	"context"
	"encoding/json"
	"log/slog"
	"net/http"
	"time"

	"github.com/storyfeed/storyfeed/internal/identity"
	"github.com/storyfeed/storyfeed/internal/query"
	"github.com/storyfeed/storyfeed/internal/server"
	"github.com/storyfeed/storyfeed/pkg/model"
)

// ArticleService is the read/delete surface the article routes depend on.
type ArticleService interface {
	Search(ctx context.Context, spec query.FilterSpec) (*query.SearchResult, error)
	Get(ctx context.Context, objectID string) (*model.Item, error)
	Delete(ctx context.Context, objectID string) (*model.Item, error)
	DeleteAll(ctx context.Context) (int64, error)
}

// Authenticator issues tokens and guards protected routes.
type Authenticator interface {
	Login(ctx context.Context, username, password string) (*identity.Token, error)
	Middleware(next http.Handler) http.Handler
}

var _ ArticleService = (*query.Engine)(nil)
var _ Authenticator = (*identity.Service)(nil)

type Handler struct {
	articles ArticleService
	auth     Authenticator
	now      func() time.Time
}

func NewHandler(articles ArticleService, auth Authenticator) *Handler {
	if articles == nil {
		panic("article service cannot be nil")
	}
	if auth == nil {
		panic("authenticator cannot be nil")
	}
	return &Handler{
		articles: articles,
		auth:     auth,
		now:      time.Now,
	}
}

// Default body size limits
const (
	DefaultMaxBodySize = 1 << 20 // 1MB
)

// Default request timeouts
const (
	DefaultRequestTimeout = 30 * time.Second
	HealthRequestTimeout  = 5 * time.Second
)

// APIError represents a structured error response
type APIError struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}

// Error codes
const (
	ErrCodeBadRequest    = "BAD_REQUEST"
	ErrCodeUnauthorized  = "UNAUTHORIZED"
	ErrCodeNotFound      = "NOT_FOUND"
	ErrCodeInternalError = "INTERNAL_ERROR"
)

// writeError writes a structured JSON error response
func writeError(w http.ResponseWriter, status int, code string, message string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(APIError{Code: code, Message: message}); err != nil {
		slog.Warn("Failed to encode error response", "error", err)
	}
}

// writeInternalError writes an internal error response, but first checks if the error
// is due to client cancellation (returns 499 instead of 500).
func writeInternalError(w http.ResponseWriter, r *http.Request, err error, message string) {
	if model.IsCanceled(err) {
		w.WriteHeader(499) // Client Closed Request
		return
	}
	slog.Error(message, "error", err, "path", r.URL.Path, "request_id", server.GetRequestID(r.Context()))
	writeError(w, http.StatusInternalServerError, ErrCodeInternalError, message)
}

// writeJSON writes a JSON response with proper error handling
func writeJSON(w http.ResponseWriter, status int, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(data); err != nil {
		slog.Warn("Failed to encode JSON response", "error", err)
	}
}

// maxBodySize wraps a handler with request body size limiting
func maxBodySize(next http.HandlerFunc, maxBytes int64) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if r.Body != nil {
			r.Body = http.MaxBytesReader(w, r.Body, maxBytes)
		}
		next(w, r)
	}
}

// withTimeout wraps a handler with a context timeout
func withTimeout(next http.HandlerFunc, timeout time.Duration) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx, cancel := context.WithTimeout(r.Context(), timeout)
		defer cancel()
		next(w, r.WithContext(ctx))
	}
}

func (h *Handler) RegisterRoutes(mux *http.ServeMux) {
	// Articles
	mux.HandleFunc("GET /articles", withTimeout(h.protected(h.handleSearchArticles), DefaultRequestTimeout))
	mux.HandleFunc("GET /articles/{id}", withTimeout(h.protected(h.handleGetArticle), DefaultRequestTimeout))
	mux.HandleFunc("DELETE /articles/{id}", withTimeout(h.protected(h.handleDeleteArticle), DefaultRequestTimeout))
	mux.HandleFunc("DELETE /articles", withTimeout(h.protected(h.handleDeleteAllArticles), DefaultRequestTimeout))

	// Auth
	mux.HandleFunc("POST /auth/login", withTimeout(maxBodySize(h.handleLogin, DefaultMaxBodySize), DefaultRequestTimeout))
	mux.HandleFunc("GET /profile", withTimeout(h.protected(h.handleProfile), DefaultRequestTimeout))

	// Health (no auth, minimal timeout)
	mux.HandleFunc("GET /{$}", withTimeout(h.handleRoot, HealthRequestTimeout))
	mux.HandleFunc("GET /health", withTimeout(h.handleHealth, HealthRequestTimeout))
}

func (h *Handler) protected(handler http.HandlerFunc) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		h.auth.Middleware(handler).ServeHTTP(w, r)
	}
}
