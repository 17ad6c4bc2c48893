// Package api declares HTTP contracts and route registration helpers.
package api

import (
	"context"
	"errors"
	"math"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	json "github.com/goccy/go-json"

	"github.com/mlunde/adventpace/internal/adapters/repository"
	"github.com/mlunde/adventpace/internal/domain/model"
	"github.com/mlunde/adventpace/internal/pipeline"
)

// LogDependencies defines the interface for log reads and manual
// submissions.
type LogDependencies interface {
	User(ctx context.Context, id string) (model.User, error)
	LogManual(ctx context.Context, userID, day string, km float64, at time.Time) (bool, error)
}

// LogHandler handles activity log requests.
type LogHandler struct {
	deps LogDependencies
}

// NewLogHandler creates a new log handler.
func NewLogHandler(deps LogDependencies) *LogHandler {
	return &LogHandler{deps: deps}
}

// logResponse mirrors the OpenAPI schema for GET /users/{id}/log.
type logResponse struct {
	UserID      string                   `json:"user_id"`
	DisplayName string                   `json:"display_name"`
	Log         map[string]model.LogEntry `json:"log"`
	TotalKm     float64                  `json:"total_km"`
}

// logRequest mirrors the OpenAPI schema for POST /users/{id}/log.
type logRequest struct {
	Day string  `json:"day"`
	Km  float64 `json:"km"`
}

type logAckResponse struct {
	Status  string `json:"status"`
	Applied bool   `json:"applied"`
}

// HandleGetLog handles GET /api/v1/users/{id}/log requests.
func (h *LogHandler) HandleGetLog(w http.ResponseWriter, r *http.Request) {
	const op = "api.get_log"

	id := chi.URLParam(r, "id")
	user, err := h.deps.User(r.Context(), id)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			writeError(w, http.StatusNotFound, "not_found", err)
			return
		}
		writeError(w, http.StatusInternalServerError, "internal_error", Wrap(op, err))
		return
	}

	var total float64
	for _, entry := range user.Log {
		total += entry.Km
	}
	if user.Log == nil {
		user.Log = map[string]model.LogEntry{}
	}

	writeJSON(w, http.StatusOK, logResponse{
		UserID:      user.ID,
		DisplayName: user.DisplayName,
		Log:         user.Log,
		TotalKm:     math.Round(total*100) / 100,
	})
}

// HandlePostLog handles POST /api/v1/users/{id}/log requests. The
// submission competes with webhook entries under the same recency rule,
// so a stale submission is acked but not applied.
func (h *LogHandler) HandlePostLog(w http.ResponseWriter, r *http.Request) {
	const op = "api.post_log"

	id := chi.URLParam(r, "id")
	var req logRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "bad_request", WrapKind(op, ErrBadRequest, err))
		return
	}

	applied, err := h.deps.LogManual(r.Context(), id, req.Day, req.Km, time.Now())
	switch {
	case errors.Is(err, repository.ErrNotFound):
		writeError(w, http.StatusNotFound, "not_found", err)
		return
	case errors.Is(err, pipeline.ErrBadDay):
		writeError(w, http.StatusBadRequest, "bad_request", err)
		return
	case errors.Is(err, pipeline.ErrDayRejected):
		writeError(w, http.StatusUnprocessableEntity, "day_rejected", err)
		return
	case err != nil:
		writeError(w, http.StatusInternalServerError, "internal_error", Wrap(op, err))
		return
	}

	status := "applied"
	if !applied {
		status = "superseded"
	}
	writeJSON(w, http.StatusOK, logAckResponse{Status: status, Applied: applied})
}
