// Package pipeline reconciles Strava webhook events and manual
// submissions into users' daily distance logs.
//
// A webhook event carries no distance, only identifiers. Each run
// resolves the owner to a local user, obtains a valid access token,
// fetches the activity, applies the keyword and date rules, and merges
// the result into the user's log. Every step that cannot proceed for a
// business reason drops the event silently; only infrastructure
// failures surface as errors.
package pipeline

import (
	"context"
	"errors"
	"fmt"
	"math"
	"time"

	"github.com/mlunde/adventpace/internal/adapters/repository"
	"github.com/mlunde/adventpace/internal/adapters/strava"
	"github.com/mlunde/adventpace/internal/domain/filter"
	"github.com/mlunde/adventpace/internal/domain/merge"
	"github.com/mlunde/adventpace/internal/domain/model"
	"github.com/mlunde/adventpace/pkg/logger"
	"github.com/mlunde/adventpace/pkg/metrics"
)

// Store is the slice of the document store the pipeline needs.
type Store interface {
	GetUser(ctx context.Context, id string) (model.User, error)
	UserByAthlete(ctx context.Context, athleteID int64) (model.User, error)
	UpdateUser(ctx context.Context, id string, fn func(*model.User) error) error
}

// Tokens hands out valid access tokens for a user.
type Tokens interface {
	ValidAccessToken(ctx context.Context, userID string, now time.Time) (string, error)
}

// ActivitySource fetches activities from the provider.
type ActivitySource interface {
	Activity(ctx context.Context, token string, id int64) (model.Activity, error)
	Activities(ctx context.Context, token string) ([]model.Activity, error)
}

// Pipeline wires the reconciliation steps together.
type Pipeline struct {
	store  Store
	tokens Tokens
	source ActivitySource
	filter filter.Filter
	merger merge.Engine
	now    func() time.Time
	log    logger.Logger
}

// Option applies a configuration option to the Pipeline.
type Option func(*Pipeline)

// WithClock overrides the time source. Used by tests.
func WithClock(now func() time.Time) Option {
	return func(p *Pipeline) {
		if now != nil {
			p.now = now
		}
	}
}

// WithLogger sets a custom logger for the pipeline.
func WithLogger(log logger.Logger) Option {
	return func(p *Pipeline) {
		if log != nil {
			p.log = log
		}
	}
}

// New creates a Pipeline.
func New(store Store, tokens Tokens, source ActivitySource, f filter.Filter, m merge.Engine, opts ...Option) *Pipeline {
	p := &Pipeline{
		store:  store,
		tokens: tokens,
		source: source,
		filter: f,
		merger: m,
		now:    time.Now,
	}
	for _, opt := range opts {
		opt(p)
	}
	if p.log == nil {
		p.log = logger.Get().Named("pipeline")
	}
	return p
}

// Process reconciles one webhook event. Events that fail a business
// rule (unknown owner, no token, keyword or date mismatch, stale
// timestamp) are dropped without error; the webhook was already acked.
func (p *Pipeline) Process(ctx context.Context, e model.WebhookEvent) error {
	if !filter.Relevant(e) {
		metrics.RecordEventSkipped("irrelevant")
		return nil
	}

	user, err := p.store.UserByAthlete(ctx, e.OwnerID)
	if errors.Is(err, repository.ErrNotFound) {
		metrics.RecordEventSkipped("unknown_owner")
		p.log.Debug(ctx, "event owner has no connected user", logger.Int64("ownerID", e.OwnerID))
		return nil
	}
	if err != nil {
		return fmt.Errorf("resolve owner %d: %w", e.OwnerID, err)
	}

	token, err := p.tokens.ValidAccessToken(ctx, user.ID, p.now())
	if errors.Is(err, strava.ErrNoToken) {
		metrics.RecordEventSkipped("no_token")
		p.log.Warn(ctx, "no usable token for user", logger.String("userID", user.ID))
		return nil
	}
	if err != nil {
		return fmt.Errorf("access token for %s: %w", user.ID, err)
	}

	act, err := p.source.Activity(ctx, token, e.ObjectID)
	if err != nil {
		return fmt.Errorf("fetch activity %d: %w", e.ObjectID, err)
	}

	if !filter.MatchKeyword(user.Keyword, act) {
		metrics.RecordEventSkipped("keyword_mismatch")
		return nil
	}
	day, ok := p.filter.LogDay(act, p.now())
	if !ok {
		metrics.RecordEventSkipped("date_rejected")
		return nil
	}

	applied, err := p.mergeEntry(ctx, user.ID, day, model.LogEntry{
		Km:   act.Km(),
		Time: act.StartDateLocal,
	})
	if err != nil {
		return fmt.Errorf("merge activity %d for %s: %w", e.ObjectID, user.ID, err)
	}
	if applied {
		metrics.RecordLogMerge()
		p.log.Info(ctx, "activity merged into log",
			logger.String("userID", user.ID),
			logger.String("day", day),
			logger.Float64("km", act.Km()),
		)
	} else {
		metrics.RecordEventSkipped("stale_entry")
	}
	return nil
}

// LogManual merges a manually submitted distance for a day. The
// submission timestamp competes under the same recency rule as webhook
// entries, so a later Strava sync can still correct a manual entry.
// Days outside the season or in the future are rejected.
func (p *Pipeline) LogManual(ctx context.Context, userID, day string, km float64, at time.Time) (bool, error) {
	if _, err := time.Parse(model.DateKey, day); err != nil {
		return false, fmt.Errorf("%w: %q", ErrBadDay, day)
	}
	probe := model.Activity{StartDateLocal: mustDay(day)}
	if _, ok := p.filter.LogDay(probe, p.now()); !ok {
		return false, fmt.Errorf("%w: %s", ErrDayRejected, day)
	}
	if km < 0 {
		return false, fmt.Errorf("%w: negative distance", ErrBadDay)
	}

	applied, err := p.mergeEntry(ctx, userID, day, model.LogEntry{Km: km, Time: at})
	if err != nil {
		return false, err
	}
	if applied {
		metrics.RecordLogMerge()
	}
	return applied, nil
}

// DayTotal sums the user's provider activities that match the keyword
// and fall on the given day. It reads from the provider, not the log,
// so it reflects activities the webhook may not have delivered yet.
func (p *Pipeline) DayTotal(ctx context.Context, userID, day string) (float64, error) {
	user, err := p.store.GetUser(ctx, userID)
	if err != nil {
		return 0, fmt.Errorf("load user %s: %w", userID, err)
	}
	token, err := p.tokens.ValidAccessToken(ctx, userID, p.now())
	if err != nil {
		return 0, fmt.Errorf("access token for %s: %w", userID, err)
	}
	acts, err := p.source.Activities(ctx, token)
	if err != nil {
		return 0, fmt.Errorf("list activities for %s: %w", userID, err)
	}

	var total float64
	for _, act := range acts {
		if !filter.MatchKeyword(user.Keyword, act) {
			continue
		}
		if model.Day(act.StartDateLocal) != day {
			continue
		}
		total += act.Km()
	}
	return math.Round(total*100) / 100, nil
}

func (p *Pipeline) mergeEntry(ctx context.Context, userID, day string, candidate model.LogEntry) (bool, error) {
	var applied bool
	err := p.store.UpdateUser(ctx, userID, func(u *model.User) error {
		if u.Log == nil {
			u.Log = make(map[string]model.LogEntry)
		}
		var existing *model.LogEntry
		if cur, ok := u.Log[day]; ok {
			existing = &cur
		}
		merged, ok := p.merger.Merge(existing, candidate)
		applied = ok
		u.Log[day] = merged
		return nil
	})
	if err != nil {
		return false, err
	}
	return applied, nil
}

func mustDay(day string) time.Time {
	t, _ := time.Parse(model.DateKey, day)
	return t
}
