// Package api declares HTTP contracts and route registration helpers.
package api

import (
	"context"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	json "github.com/goccy/go-json"

	"github.com/mlunde/adventpace/internal/domain/dedupe"
	"github.com/mlunde/adventpace/internal/domain/model"
	"github.com/mlunde/adventpace/internal/domain/types"
)

// Dependencies required by HTTP handlers. Using an interface bundle keeps
// the handler layer loosely coupled to implementations in other packages.
type Dependencies interface {
	dedupe.Deduper

	// Enqueue pushes a webhook event for async processing. Returns false
	// on backpressure.
	Enqueue(ctx context.Context, e model.WebhookEvent) bool

	// DrawForDate returns the committed km target for a calendar day.
	DrawForDate(ctx context.Context, date time.Time) (int, error)

	// User reads and writes.
	User(ctx context.Context, id string) (model.User, error)
	SetKeyword(ctx context.Context, id, keyword string) error

	// LogManual merges a manual distance submission.
	LogManual(ctx context.Context, userID, day string, km float64, at time.Time) (bool, error)

	// DayTotal sums today's matching provider activities for a user.
	DayTotal(ctx context.Context, userID, day string) (float64, error)

	// Connect exchanges an OAuth code and stores the credential.
	Connect(ctx context.Context, userID, code string) error

	// Standings ranks users by total logged distance.
	Standings(ctx context.Context, n int) ([]Standing, error)

	// CreateUser registers a new group member.
	CreateUser(ctx context.Context, displayName, keyword string) (model.User, error)
}

// Standing mirrors the read shape returned by standings queries.
type Standing = types.Standing

// Server wires HTTP routes for the business API.
type Server struct {
	healthHandler    *HealthHandler
	statsHandler     *StatsHandler
	webhookHandler   *WebhookHandler
	targetHandler    *TargetHandler
	logHandler       *LogHandler
	keywordHandler   *KeywordHandler
	stravaHandler    *StravaHandler
	standingsHandler *StandingsHandler
	usersHandler     *UsersHandler
}

// ServerConfig carries the handler-level settings.
type ServerConfig struct {
	// WebhookSecret signs webhook payloads; requests that fail
	// verification are rejected before parsing.
	WebhookSecret string

	// VerifyToken is matched against hub.verify_token during the
	// subscription handshake. Empty disables the check.
	VerifyToken string

	// MaxStandingsLimit caps the standings page size.
	MaxStandingsLimit int
}

// NewServer creates a new API server with all handlers.
func NewServer(deps Dependencies, statsProvider StatsProvider, cfg ServerConfig) *Server {
	return &Server{
		healthHandler:    NewHealthHandler(),
		statsHandler:     NewStatsHandler(statsProvider),
		webhookHandler:   NewWebhookHandler(deps, cfg.WebhookSecret, cfg.VerifyToken),
		targetHandler:    NewTargetHandler(deps),
		logHandler:       NewLogHandler(deps),
		keywordHandler:   NewKeywordHandler(deps),
		stravaHandler:    NewStravaHandler(deps),
		standingsHandler: NewStandingsHandler(deps, cfg.MaxStandingsLimit),
		usersHandler:     NewUsersHandler(deps),
	}
}

// Register attaches all HTTP routes to r.
func (s *Server) Register(ctx context.Context, r chi.Router) {
	r.Get("/healthz", MetricsMiddleware(s.healthHandler.HandleHealth, "healthz"))
	r.Get("/stats", MetricsMiddleware(s.statsHandler.HandleStats, "stats"))

	r.Get("/webhooks/strava", MetricsMiddleware(s.webhookHandler.HandleVerify, "webhook_verify"))
	r.Post("/webhooks/strava", MetricsMiddleware(s.webhookHandler.HandleEvent, "webhook_event"))

	r.Route("/api/v1", func(r chi.Router) {
		r.Get("/target", MetricsMiddleware(s.targetHandler.HandleGetToday, "target"))
		r.Get("/target/{date}", MetricsMiddleware(s.targetHandler.HandleGetTarget, "target"))
		r.Post("/users", MetricsMiddleware(s.usersHandler.HandleCreateUser, "users_create"))
		r.Get("/standings", MetricsMiddleware(s.standingsHandler.HandleGetStandings, "standings"))
		r.Get("/strava/callback", MetricsMiddleware(s.stravaHandler.HandleCallback, "strava_callback"))

		r.Route("/users/{id}", func(r chi.Router) {
			r.Get("/log", MetricsMiddleware(s.logHandler.HandleGetLog, "log_get"))
			r.Post("/log", MetricsMiddleware(s.logHandler.HandlePostLog, "log_post"))
			r.Get("/keyword", MetricsMiddleware(s.keywordHandler.HandleGetKeyword, "keyword_get"))
			r.Put("/keyword", MetricsMiddleware(s.keywordHandler.HandlePutKeyword, "keyword_put"))
			r.Get("/strava/today", MetricsMiddleware(s.stravaHandler.HandleToday, "strava_today"))
		})
	})
}

type errorResponse struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, code string, err error) {
	msg := http.StatusText(status)
	if err != nil {
		msg = err.Error()
	}
	writeJSON(w, status, errorResponse{Code: code, Message: msg})
}
