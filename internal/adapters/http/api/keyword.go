// Package api declares HTTP contracts and route registration helpers.
package api

import (
	"context"
	"errors"
	"net/http"

	"github.com/go-chi/chi/v5"
	json "github.com/goccy/go-json"

	"github.com/mlunde/adventpace/internal/adapters/repository"
	"github.com/mlunde/adventpace/internal/domain/model"
)

// KeywordDependencies defines the interface for keyword reads and writes.
type KeywordDependencies interface {
	User(ctx context.Context, id string) (model.User, error)
	SetKeyword(ctx context.Context, id, keyword string) error
}

// KeywordHandler handles activity keyword requests.
type KeywordHandler struct {
	deps KeywordDependencies
}

// NewKeywordHandler creates a new keyword handler.
func NewKeywordHandler(deps KeywordDependencies) *KeywordHandler {
	return &KeywordHandler{deps: deps}
}

type keywordPayload struct {
	Keyword string `json:"keyword"`
}

// HandleGetKeyword handles GET /api/v1/users/{id}/keyword requests.
func (h *KeywordHandler) HandleGetKeyword(w http.ResponseWriter, r *http.Request) {
	const op = "api.get_keyword"

	user, err := h.deps.User(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			writeError(w, http.StatusNotFound, "not_found", err)
			return
		}
		writeError(w, http.StatusInternalServerError, "internal_error", Wrap(op, err))
		return
	}
	writeJSON(w, http.StatusOK, keywordPayload{Keyword: user.Keyword})
}

// HandlePutKeyword handles PUT /api/v1/users/{id}/keyword requests. An
// empty keyword is allowed and matches every activity.
func (h *KeywordHandler) HandlePutKeyword(w http.ResponseWriter, r *http.Request) {
	const op = "api.put_keyword"

	var req keywordPayload
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "bad_request", WrapKind(op, ErrBadRequest, err))
		return
	}

	err := h.deps.SetKeyword(r.Context(), chi.URLParam(r, "id"), req.Keyword)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			writeError(w, http.StatusNotFound, "not_found", err)
			return
		}
		writeError(w, http.StatusInternalServerError, "internal_error", Wrap(op, err))
		return
	}
	writeJSON(w, http.StatusOK, keywordPayload{Keyword: req.Keyword})
}
