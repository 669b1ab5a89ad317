// Package identity authenticates API callers: password login issues a JWT
// and a bearer middleware verifies it on protected routes.
package identity

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strings"

	"golang.org/x/crypto/bcrypt"
)

var (
	ErrInvalidCredentials = errors.New("invalid credentials")
	ErrInvalidToken       = errors.New("invalid token")
)

type contextKey string

const contextKeyClaims contextKey = "claims"

// User is a configured account.
type User struct {
	ID           int64
	Username     string
	passwordHash []byte
}

// Service authenticates users against the configured directory.
type Service struct {
	users  map[string]*User
	tokens *TokenService

	// unknownUserHash is compared against for usernames not in the
	// directory, so a failed login costs one bcrypt check either way.
	unknownUserHash []byte
}

// NewService hashes plain-text passwords from cfg and builds the directory.
func NewService(cfg Config) (*Service, error) {
	users := make(map[string]*User, len(cfg.Users))
	for _, u := range cfg.Users {
		hash := []byte(u.PasswordHash)
		if len(hash) == 0 {
			var err error
			hash, err = bcrypt.GenerateFromPassword([]byte(u.Password), bcrypt.DefaultCost)
			if err != nil {
				return nil, fmt.Errorf("failed to hash password for %s: %w", u.Username, err)
			}
		}
		users[u.Username] = &User{ID: u.ID, Username: u.Username, passwordHash: hash}
	}

	unknownUserHash, err := bcrypt.GenerateFromPassword([]byte("unknown-user"), bcrypt.DefaultCost)
	if err != nil {
		return nil, fmt.Errorf("failed to hash placeholder password: %w", err)
	}

	return &Service{
		users:           users,
		tokens:          NewTokenService(cfg.JWTSecret, cfg.Issuer, cfg.AccessTokenTTL),
		unknownUserHash: unknownUserHash,
	}, nil
}

// Login verifies the credentials and issues an access token.
func (s *Service) Login(ctx context.Context, username, password string) (*Token, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	user, ok := s.users[username]
	if !ok {
		_ = bcrypt.CompareHashAndPassword(s.unknownUserHash, []byte(password))
		return nil, ErrInvalidCredentials
	}
	if err := bcrypt.CompareHashAndPassword(user.passwordHash, []byte(password)); err != nil {
		if errors.Is(err, bcrypt.ErrMismatchedHashAndPassword) {
			return nil, ErrInvalidCredentials
		}
		return nil, err
	}
	return s.tokens.Issue(user)
}

// ValidateToken verifies an access token.
func (s *Service) ValidateToken(tokenString string) (*Claims, error) {
	return s.tokens.Validate(tokenString)
}

// Middleware rejects requests without a valid bearer token and stores the
// claims in the request context.
func (s *Service) Middleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		authHeader := r.Header.Get("Authorization")
		if authHeader == "" {
			writeUnauthorized(w, "Authorization header required")
			return
		}

		parts := strings.Split(authHeader, " ")
		if len(parts) != 2 || !strings.EqualFold(parts[0], "Bearer") {
			writeUnauthorized(w, "Invalid authorization header format")
			return
		}

		claims, err := s.tokens.Validate(parts[1])
		if err != nil {
			writeUnauthorized(w, "Invalid or expired token")
			return
		}

		next.ServeHTTP(w, r.WithContext(WithClaims(r.Context(), claims)))
	})
}

// WithClaims returns a context carrying the authenticated claims.
func WithClaims(ctx context.Context, claims *Claims) context.Context {
	return context.WithValue(ctx, contextKeyClaims, claims)
}

// ClaimsFromContext returns the claims stored by Middleware.
func ClaimsFromContext(ctx context.Context) (*Claims, bool) {
	claims, ok := ctx.Value(contextKeyClaims).(*Claims)
	return claims, ok && claims != nil
}

func writeUnauthorized(w http.ResponseWriter, message string) {
	w.Header().Set("Content-Type", "application/json")
	w.Header().Set("WWW-Authenticate", `Bearer realm="storyfeed"`)
	w.WriteHeader(http.StatusUnauthorized)
	fmt.Fprintf(w, `{"code":"UNAUTHORIZED","message":%q}`, message)
}
