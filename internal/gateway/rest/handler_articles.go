package rest

import (
	"errors"
	"log/slog"
	"net/http"
	"strconv"
	"strings"

	"github.com/gorilla/schema"
	"github.com/storyfeed/storyfeed/internal/query"
	"github.com/storyfeed/storyfeed/pkg/model"
)

// ArticleSearchRequest is the query string of GET /articles.
type ArticleSearchRequest struct {
	Page   string   `schema:"page"`
	Author string   `schema:"author" validate:"max=100"`
	Tags   []string `schema:"_tags"`
	Title  string   `schema:"title" validate:"max=200"`
	Month  string   `schema:"month" validate:"max=16"`
}

// tagList holds the tag filter after comma-splitting; the limits apply to
// individual tags, not to the raw query values.
type tagList struct {
	Tags []string `schema:"_tags" validate:"max=20,dive,max=64"`
}

type deleteResponse struct {
	ID string `json:"id"`
}

type deleteAllResponse struct {
	Message      string `json:"message"`
	DeletedCount int64  `json:"deletedCount"`
}

var searchDecoder = newSearchDecoder()

func newSearchDecoder() *schema.Decoder {
	d := schema.NewDecoder()
	d.IgnoreUnknownKeys(true)
	return d
}

// toFilterSpec validates the raw request. Tags may arrive comma-separated,
// repeated, or both; blank entries are dropped.
func (req ArticleSearchRequest) toFilterSpec() (query.FilterSpec, error) {
	spec := query.FilterSpec{
		Author: req.Author,
		Title:  req.Title,
		Month:  req.Month,
	}

	if req.Page != "" {
		page, err := strconv.Atoi(req.Page)
		if err != nil || page < 1 {
			return spec, errors.New("page must be a positive integer")
		}
		spec.Page = page
	}

	for _, raw := range req.Tags {
		for _, tag := range strings.Split(raw, ",") {
			if tag = strings.TrimSpace(tag); tag != "" {
				spec.Tags = append(spec.Tags, tag)
			}
		}
	}
	if err := validateRequest(tagList{Tags: spec.Tags}); err != nil {
		return spec, err
	}
	return spec, nil
}

func (h *Handler) handleSearchArticles(w http.ResponseWriter, r *http.Request) {
	var req ArticleSearchRequest
	if err := searchDecoder.Decode(&req, r.URL.Query()); err != nil {
		slog.Warn("Search: invalid query parameters", "error", err)
		writeError(w, http.StatusBadRequest, ErrCodeBadRequest, "Invalid query parameters")
		return
	}

	if err := validateRequest(req); err != nil {
		writeError(w, http.StatusBadRequest, ErrCodeBadRequest, err.Error())
		return
	}

	spec, err := req.toFilterSpec()
	if err != nil {
		writeError(w, http.StatusBadRequest, ErrCodeBadRequest, err.Error())
		return
	}

	result, err := h.articles.Search(r.Context(), spec)
	if err != nil {
		if errors.Is(err, model.ErrInvalidArgument) {
			writeError(w, http.StatusBadRequest, ErrCodeBadRequest, err.Error())
			return
		}
		writeInternalError(w, r, err, "Failed to search articles")
		return
	}

	writeJSON(w, http.StatusOK, result)
}

func (h *Handler) handleGetArticle(w http.ResponseWriter, r *http.Request) {
	id := r.PathValue("id")

	item, err := h.articles.Get(r.Context(), id)
	if err != nil {
		if errors.Is(err, model.ErrNotFound) {
			writeError(w, http.StatusNotFound, ErrCodeNotFound, "Article not found")
			return
		}
		writeInternalError(w, r, err, "Failed to get article")
		return
	}

	writeJSON(w, http.StatusOK, item)
}

func (h *Handler) handleDeleteArticle(w http.ResponseWriter, r *http.Request) {
	id := r.PathValue("id")

	if _, err := h.articles.Delete(r.Context(), id); err != nil {
		if errors.Is(err, model.ErrNotFound) {
			writeError(w, http.StatusNotFound, ErrCodeNotFound, "Article not found")
			return
		}
		writeInternalError(w, r, err, "Failed to delete article")
		return
	}

	writeJSON(w, http.StatusOK, deleteResponse{ID: id})
}

func (h *Handler) handleDeleteAllArticles(w http.ResponseWriter, r *http.Request) {
	n, err := h.articles.DeleteAll(r.Context())
	if err != nil {
		writeInternalError(w, r, err, "Failed to delete articles")
		return
	}

	slog.Info("Removed all articles", "count", n)
	writeJSON(w, http.StatusOK, deleteAllResponse{
		Message:      "All articles have been removed",
		DeletedCount: n,
	})
}
