// Package service wires the domain components together and implements
// the dependencies required by the HTTP API.
package service

import (
	"context"
	"time"

	"github.com/google/uuid"

	eventqueue "github.com/mlunde/adventpace/internal/adapters/mq/queue"
	workerpool "github.com/mlunde/adventpace/internal/adapters/mq/worker"
	"github.com/mlunde/adventpace/internal/adapters/repository"
	"github.com/mlunde/adventpace/internal/adapters/strava"
	"github.com/mlunde/adventpace/internal/config"
	"github.com/mlunde/adventpace/internal/domain/dedupe"
	"github.com/mlunde/adventpace/internal/domain/filter"
	"github.com/mlunde/adventpace/internal/domain/merge"
	"github.com/mlunde/adventpace/internal/domain/model"
	"github.com/mlunde/adventpace/internal/domain/season"
	"github.com/mlunde/adventpace/internal/domain/types"
	"github.com/mlunde/adventpace/internal/ledger"
	"github.com/mlunde/adventpace/internal/pipeline"
	"github.com/mlunde/adventpace/pkg/logger"
	"github.com/mlunde/adventpace/pkg/metrics"
)

// Service owns the component graph: store, ledger, Strava client,
// reconciliation pipeline, event queue and worker pool. It implements
// the API dependency bundle.
type Service struct {
	cfg config.Config

	store    repository.Store
	deduper  dedupe.Deduper
	queue    *eventqueue.InMemoryQueue
	ledger   *ledger.Ledger
	client   *strava.Client
	tokens   *strava.TokenManager
	pipeline *pipeline.Pipeline
	pool     *workerpool.Pool

	now     func() time.Time
	started bool
	logger  logger.Logger
}

// Option applies a configuration option to the Service.
type Option func(*Service)

// WithLogger sets a custom logger for the service.
func WithLogger(log logger.Logger) Option {
	return func(s *Service) {
		if log != nil {
			s.logger = log
		}
	}
}

// WithStore injects a pre-built store instead of the one Start would
// open from configuration. Used by tests.
func WithStore(store repository.Store) Option {
	return func(s *Service) {
		if store != nil {
			s.store = store
		}
	}
}

// WithClock overrides the time source. Used by tests.
func WithClock(now func() time.Time) Option {
	return func(s *Service) {
		if now != nil {
			s.now = now
		}
	}
}

// New constructs a Service from configuration. Components are built
// in Start so construction never touches the filesystem.
func New(cfg config.Config, opts ...Option) *Service {
	s := &Service{
		cfg: cfg,
		now: time.Now,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Start builds and starts the service components. It is not
// re-entrant; the caller starts the service exactly once.
func (s *Service) Start(ctx context.Context) error {
	if s.started {
		return nil
	}
	if s.logger == nil {
		s.logger = logger.Get().Named("service")
	}

	if s.store == nil {
		if s.cfg.DataDir != "" {
			store, err := repository.NewBadgerStore(s.cfg.DataDir)
			if err != nil {
				return err
			}
			s.store = store
			s.logger.Info(ctx, "using badger store", logger.String("dir", s.cfg.DataDir))
		} else {
			s.store = repository.NewMemoryStore()
			s.logger.Info(ctx, "using in-memory store")
		}
	}

	window, err := season.New(s.cfg.Season.Start, s.cfg.Season.End)
	if err != nil {
		return err
	}
	overrides, err := s.cfg.WeekdayOverrides()
	if err != nil {
		return err
	}
	s.ledger = ledger.New(s.store, window, s.cfg.Pool.Values,
		ledger.WithReserved(s.cfg.Pool.Reserved),
		ledger.WithOverrides(overrides),
	)

	clientOpts := []strava.Option{
		strava.WithPerPage(s.cfg.Strava.PerPage),
		strava.WithRateLimit(s.cfg.Strava.RateLimitRPS, s.cfg.Strava.RateBurst),
	}
	if s.cfg.Strava.APIBase != "" {
		clientOpts = append(clientOpts, strava.WithAPIBase(s.cfg.Strava.APIBase))
	}
	if s.cfg.Strava.TokenURL != "" {
		clientOpts = append(clientOpts, strava.WithTokenURL(s.cfg.Strava.TokenURL))
	}
	s.client = strava.NewClient(s.cfg.Strava.ClientID, s.cfg.Strava.ClientSecret, clientOpts...)
	s.tokens = strava.NewTokenManager(s.store, s.client)

	s.pipeline = pipeline.New(
		s.store,
		s.tokens,
		s.client,
		filter.New(window),
		merge.NewLatestWins(),
		pipeline.WithClock(s.now),
	)

	s.deduper = dedupe.NewRingDeduper(dedupe.WithMaxSize(s.cfg.DedupeSize))
	s.queue = eventqueue.NewInMemoryQueue(
		eventqueue.WithCapacity(s.cfg.EventQueueSize),
		eventqueue.WithBufferSize(s.cfg.EventQueueSize),
	)
	s.pool = workerpool.NewPool(s.cfg.WorkerCount, s.queue, s.pipeline)
	s.pool.Start(ctx)

	s.started = true
	s.logger.Info(ctx, "service started",
		logger.Int("workers", s.cfg.WorkerCount),
		logger.Int("queueSize", s.cfg.EventQueueSize),
		logger.Int("seasonDays", window.Days()),
		logger.Int("totalGoal", s.ledger.TotalGoal()),
	)
	return nil
}

// Stop drains the worker pool and releases store resources.
func (s *Service) Stop() {
	if !s.started {
		return
	}
	ctx := context.Background()
	s.logger.Info(ctx, "stopping service...")

	if s.pool != nil {
		// Shutdown closes the queue first so workers drain the backlog.
		_ = s.pool.Shutdown(ctx)
	}
	if s.store != nil {
		_ = s.store.Close()
	}

	s.started = false
	s.logger.Info(ctx, "service stopped")
}

// SeenAndRecord atomically checks and records a webhook fingerprint.
// Returns true if the fingerprint was already seen.
func (s *Service) SeenAndRecord(ctx context.Context, id string) bool {
	seen := s.deduper.SeenAndRecord(ctx, id)
	if seen {
		metrics.RecordEventSkipped("duplicate")
	}
	return seen
}

// Unrecord forgets a fingerprint so a retried delivery can pass the
// duplicate check.
func (s *Service) Unrecord(ctx context.Context, id string) {
	s.deduper.Unrecord(ctx, id)
}

// Size returns the current number of remembered fingerprints.
func (s *Service) Size() int64 {
	if s.deduper == nil {
		return 0
	}
	return s.deduper.Size()
}

// Enqueue submits a webhook event for asynchronous reconciliation.
func (s *Service) Enqueue(ctx context.Context, e model.WebhookEvent) bool {
	s.logger.Debug(ctx, "enqueueing webhook event",
		logger.String("aspect", e.AspectType),
		logger.Int64("objectID", e.ObjectID),
		logger.Int64("ownerID", e.OwnerID),
	)
	return s.queue.Enqueue(ctx, e)
}

// DrawForDate returns the shared target for a date, drawing from the
// pool on the first request of a day.
func (s *Service) DrawForDate(ctx context.Context, date time.Time) (int, error) {
	return s.ledger.DrawForDate(ctx, date)
}

// User returns one user document.
func (s *Service) User(ctx context.Context, id string) (model.User, error) {
	return s.store.GetUser(ctx, id)
}

// CreateUser registers a group member and returns the stored document.
func (s *Service) CreateUser(ctx context.Context, displayName, keyword string) (model.User, error) {
	u := model.User{
		ID:          uuid.NewString(),
		DisplayName: displayName,
		Keyword:     keyword,
		Log:         map[string]model.LogEntry{},
	}
	if err := s.store.PutUser(ctx, u); err != nil {
		return model.User{}, err
	}
	s.logger.Info(ctx, "user created",
		logger.String("userID", u.ID),
		logger.String("displayName", u.DisplayName),
	)
	return u, nil
}

// SetKeyword updates the activity keyword for a user.
func (s *Service) SetKeyword(ctx context.Context, id, keyword string) error {
	return s.store.UpdateUser(ctx, id, func(u *model.User) error {
		u.Keyword = keyword
		return nil
	})
}

// LogManual records a manually submitted distance for a day.
func (s *Service) LogManual(ctx context.Context, userID, day string, km float64, at time.Time) (bool, error) {
	return s.pipeline.LogManual(ctx, userID, day, km, at)
}

// DayTotal sums the user's matching Strava distance for one day.
func (s *Service) DayTotal(ctx context.Context, userID, day string) (float64, error) {
	return s.pipeline.DayTotal(ctx, userID, day)
}

// Connect exchanges an OAuth authorization code and attaches the
// resulting credential to the user.
func (s *Service) Connect(ctx context.Context, userID, code string) error {
	grant, err := s.client.Exchange(ctx, code)
	if err != nil {
		return err
	}
	cred := model.Credential{
		AccessToken:  grant.AccessToken,
		RefreshToken: grant.RefreshToken,
		ExpiresAt:    grant.ExpiresAt,
	}
	if grant.Athlete != nil {
		cred.AthleteID = grant.Athlete.ID
	}
	err = s.store.UpdateUser(ctx, userID, func(u *model.User) error {
		u.Credential = &cred
		return nil
	})
	if err != nil {
		return err
	}
	metrics.RecordTokenRefresh()
	s.logger.Info(ctx, "strava connected",
		logger.String("userID", userID),
		logger.Int64("athleteID", cred.AthleteID),
	)
	return nil
}

// Standings returns up to n users ordered by total logged distance.
func (s *Service) Standings(ctx context.Context, n int) ([]types.Standing, error) {
	rows, err := s.store.Standings(ctx, n)
	if err != nil {
		return nil, err
	}
	out := make([]types.Standing, len(rows))
	for i, row := range rows {
		out[i] = types.Standing{
			Rank:        row.Rank,
			UserID:      row.UserID,
			DisplayName: row.DisplayName,
			TotalKm:     row.TotalKm,
		}
	}
	return out, nil
}

// GetStats returns service statistics for monitoring.
func (s *Service) GetStats() map[string]interface{} {
	ctx := context.Background()
	stats := map[string]interface{}{
		"started":     s.started,
		"workerCount": s.cfg.WorkerCount,
		"queueSize":   s.cfg.EventQueueSize,
		"dedupeSize":  s.cfg.DedupeSize,
	}
	if s.started {
		queueLen := s.queue.Len(ctx)
		stats["queueLength"] = queueLen
		stats["dedupeEntries"] = s.deduper.Size()
		stats["totalGoal"] = s.ledger.TotalGoal()
		if users, err := s.store.Users(ctx); err == nil {
			stats["totalUsers"] = len(users)
		}
		metrics.UpdateQueueSize(queueLen)
	}
	return stats
}
