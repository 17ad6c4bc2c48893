// Package api declares HTTP contracts and route registration helpers.
package api

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/mlunde/adventpace/internal/adapters/repository"
	"github.com/mlunde/adventpace/internal/adapters/strava"
	"github.com/mlunde/adventpace/internal/domain/model"
)

// StravaDependencies defines the interface for provider-facing
// operations: the OAuth connect flow and the live daily summary.
type StravaDependencies interface {
	Connect(ctx context.Context, userID, code string) error
	DayTotal(ctx context.Context, userID, day string) (float64, error)
}

// StravaHandler handles OAuth callbacks and live provider reads.
type StravaHandler struct {
	deps StravaDependencies
}

// NewStravaHandler creates a new Strava handler.
func NewStravaHandler(deps StravaDependencies) *StravaHandler {
	return &StravaHandler{deps: deps}
}

type connectResponse struct {
	Status string `json:"status"`
	UserID string `json:"user_id"`
}

type todayResponse struct {
	Day string  `json:"day"`
	Km  float64 `json:"km"`
}

// HandleCallback handles GET /api/v1/strava/callback requests. The
// state parameter carries the user id that initiated the authorize
// redirect.
func (h *StravaHandler) HandleCallback(w http.ResponseWriter, r *http.Request) {
	const op = "api.strava_callback"

	q := r.URL.Query()
	code := q.Get("code")
	userID := q.Get("state")
	if code == "" || userID == "" {
		writeError(w, http.StatusBadRequest, "bad_request", NewKind(op, ErrBadRequest))
		return
	}

	if err := h.deps.Connect(r.Context(), userID, code); err != nil {
		switch {
		case errors.Is(err, repository.ErrNotFound):
			writeError(w, http.StatusNotFound, "not_found", err)
		case errors.Is(err, strava.ErrUpstream):
			writeError(w, http.StatusBadGateway, "upstream_error", err)
		default:
			writeError(w, http.StatusInternalServerError, "internal_error", Wrap(op, err))
		}
		return
	}
	writeJSON(w, http.StatusOK, connectResponse{Status: "connected", UserID: userID})
}

// HandleToday handles GET /api/v1/users/{id}/strava/today requests. It
// reads from the provider, not the stored log, so it reflects
// activities the webhook has not delivered yet.
func (h *StravaHandler) HandleToday(w http.ResponseWriter, r *http.Request) {
	const op = "api.strava_today"

	day := model.Day(time.Now())
	km, err := h.deps.DayTotal(r.Context(), chi.URLParam(r, "id"), day)
	if err != nil {
		switch {
		case errors.Is(err, repository.ErrNotFound), errors.Is(err, strava.ErrNoToken):
			writeError(w, http.StatusNotFound, "not_found", err)
		case errors.Is(err, strava.ErrUpstream):
			writeError(w, http.StatusBadGateway, "upstream_error", err)
		default:
			writeError(w, http.StatusInternalServerError, "internal_error", Wrap(op, err))
		}
		return
	}
	writeJSON(w, http.StatusOK, todayResponse{Day: day, Km: km})
}
