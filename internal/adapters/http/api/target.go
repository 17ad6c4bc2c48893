// Package api declares HTTP contracts and route registration helpers.
package api

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/mlunde/adventpace/internal/domain/model"
	"github.com/mlunde/adventpace/internal/domain/types"
	"github.com/mlunde/adventpace/internal/ledger"
)

// TargetDependencies defines the interface for daily target draws.
type TargetDependencies interface {
	DrawForDate(ctx context.Context, date time.Time) (int, error)
}

// TargetHandler handles daily target requests.
type TargetHandler struct {
	deps TargetDependencies
}

// NewTargetHandler creates a new target handler.
func NewTargetHandler(deps TargetDependencies) *TargetHandler {
	return &TargetHandler{deps: deps}
}

// HandleGetToday handles GET /api/v1/target requests for the current day.
func (h *TargetHandler) HandleGetToday(w http.ResponseWriter, r *http.Request) {
	h.serveTarget(w, r, time.Now())
}

// HandleGetTarget handles GET /api/v1/target/{date} requests. The date
// is either "today" or a YYYY-MM-DD day. The first request for a day
// draws and commits the target; later requests return the same value.
func (h *TargetHandler) HandleGetTarget(w http.ResponseWriter, r *http.Request) {
	const op = "api.get_target"

	raw := chi.URLParam(r, "date")
	if raw == "today" {
		h.serveTarget(w, r, time.Now())
		return
	}
	date, err := time.Parse(model.DateKey, raw)
	if err != nil {
		writeError(w, http.StatusBadRequest, "bad_request", WrapKind(op, ErrBadRequest, err))
		return
	}
	h.serveTarget(w, r, date)
}

func (h *TargetHandler) serveTarget(w http.ResponseWriter, r *http.Request, date time.Time) {
	const op = "api.get_target"

	km, err := h.deps.DrawForDate(r.Context(), date)
	if err != nil {
		if errors.Is(err, ledger.ErrOutOfSeason) {
			writeError(w, http.StatusNotFound, "out_of_season", err)
			return
		}
		writeError(w, http.StatusInternalServerError, "internal_error", Wrap(op, err))
		return
	}

	writeJSON(w, http.StatusOK, types.Target{Date: model.Day(date), Km: km})
}
