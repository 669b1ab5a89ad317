package rest

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/storyfeed/storyfeed/internal/identity"
	"github.com/storyfeed/storyfeed/pkg/model"
)

type LoginRequest struct {
	Username string `json:"username" validate:"required,max=128"`
	Password string `json:"password" validate:"required,max=128"`
}

type loginResponse struct {
	AccessToken string `json:"access_token"`
}

type profileResponse struct {
	UserID   int64  `json:"userId"`
	Username string `json:"username"`
}

func (h *Handler) handleLogin(w http.ResponseWriter, r *http.Request) {
	var req LoginRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, ErrCodeBadRequest, "Invalid request body")
		return
	}

	if err := validateRequest(req); err != nil {
		writeError(w, http.StatusBadRequest, ErrCodeBadRequest, err.Error())
		return
	}

	token, err := h.auth.Login(r.Context(), req.Username, req.Password)
	if err != nil {
		if errors.Is(err, identity.ErrInvalidCredentials) {
			writeError(w, http.StatusUnauthorized, ErrCodeUnauthorized, "Invalid credentials")
			return
		}
		if model.IsCanceled(err) {
			w.WriteHeader(499)
			return
		}
		writeInternalError(w, r, err, "Login failed")
		return
	}

	writeJSON(w, http.StatusOK, loginResponse{AccessToken: token.AccessToken})
}

func (h *Handler) handleProfile(w http.ResponseWriter, r *http.Request) {
	claims, ok := identity.ClaimsFromContext(r.Context())
	if !ok {
		writeError(w, http.StatusUnauthorized, ErrCodeUnauthorized, "Authentication required")
		return
	}
	writeJSON(w, http.StatusOK, profileResponse{UserID: claims.UserID, Username: claims.Username})
}
