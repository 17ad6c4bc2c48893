// Package api declares HTTP contracts and route registration helpers.
package api

import (
	"context"
	"net/http"
	"strings"

	json "github.com/goccy/go-json"

	"github.com/mlunde/adventpace/internal/domain/model"
)

// UserDependencies defines the interface for user registration.
type UserDependencies interface {
	CreateUser(ctx context.Context, displayName, keyword string) (model.User, error)
}

// UsersHandler handles user registration requests.
type UsersHandler struct {
	deps UserDependencies
}

// NewUsersHandler creates a new users handler.
func NewUsersHandler(deps UserDependencies) *UsersHandler {
	return &UsersHandler{deps: deps}
}

// createUserRequest mirrors the OpenAPI schema for POST /users.
type createUserRequest struct {
	DisplayName string `json:"display_name"`
	Keyword     string `json:"keyword"`
}

type createUserResponse struct {
	ID          string `json:"id"`
	DisplayName string `json:"display_name"`
	Keyword     string `json:"keyword"`
}

// HandleCreateUser handles POST /api/v1/users requests.
func (h *UsersHandler) HandleCreateUser(w http.ResponseWriter, r *http.Request) {
	const op = "api.create_user"

	var req createUserRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "bad_request", WrapKind(op, ErrBadRequest, err))
		return
	}
	if strings.TrimSpace(req.DisplayName) == "" {
		writeError(w, http.StatusBadRequest, "bad_request", NewKind(op, ErrBadRequest))
		return
	}

	user, err := h.deps.CreateUser(r.Context(), req.DisplayName, req.Keyword)
	if err != nil {
		writeError(w, http.StatusInternalServerError, "internal_error", Wrap(op, err))
		return
	}
	writeJSON(w, http.StatusCreated, createUserResponse{
		ID:          user.ID,
		DisplayName: user.DisplayName,
		Keyword:     user.Keyword,
	})
}
