// Package ledger draws and caches the single shared distance target
// for each calendar day.
//
// Targets come from a finite, depleting pool: every non-override draw
// removes exactly one occurrence of the drawn value from the remaining
// list, and the pool refills from the original list only when fully
// empty. Fixed weekday overrides (Sunday rest, Monday 7 km by default)
// bypass the pool entirely. Once a day has a value it never changes,
// and every reader sees the same value.
package ledger

import (
	"context"
	"fmt"
	"math/rand"
	"time"

	repository "github.com/mlunde/adventpace/internal/adapters/repository"
	"github.com/mlunde/adventpace/internal/domain/model"
	"github.com/mlunde/adventpace/internal/domain/season"
	"github.com/mlunde/adventpace/pkg/logger"
	"github.com/mlunde/adventpace/pkg/metrics"
)

// Store is the slice of the document store the ledger draws against.
type Store interface {
	InitPool(ctx context.Context, original []int) error
	GetPool(ctx context.Context) (repository.Pool, error)
	Selection(ctx context.Context, day string) (int, bool, error)
	CommitDraw(ctx context.Context, day string, km int, remaining []int) (int, error)
}

// Ledger hands out daily targets. All cross-reader consistency comes
// from the store's CommitDraw; the ledger itself holds no mutable
// state and is safe for concurrent use.
type Ledger struct {
	store     Store
	window    season.Window
	seed      []int
	reserved  []int
	overrides map[time.Weekday]int
	pick      func(n int) int
	log       logger.Logger
}

// Option applies a configuration option to the Ledger.
type Option func(*Ledger)

// WithOverrides replaces the fixed weekday targets.
func WithOverrides(o map[time.Weekday]int) Option {
	return func(l *Ledger) {
		if len(o) > 0 {
			l.overrides = o
		}
	}
}

// WithReserved sets the multiset subtracted from the seed before the
// pool is initialized. The reserved instances cover the override days,
// which never draw from the pool.
func WithReserved(r []int) Option {
	return func(l *Ledger) {
		l.reserved = r
	}
}

// WithPick replaces the uniform random index picker. Used by tests for
// deterministic draws.
func WithPick(pick func(n int) int) Option {
	return func(l *Ledger) {
		if pick != nil {
			l.pick = pick
		}
	}
}

// WithLogger sets a custom logger for the ledger.
func WithLogger(log logger.Logger) Option {
	return func(l *Ledger) {
		if log != nil {
			l.log = log
		}
	}
}

// New creates a Ledger drawing from seed within the season window.
func New(store Store, window season.Window, seed []int, opts ...Option) *Ledger {
	l := &Ledger{
		store:  store,
		window: window,
		seed:   append([]int(nil), seed...),
		overrides: map[time.Weekday]int{
			time.Sunday: 0,
			time.Monday: 7,
		},
		pick: rand.Intn,
	}
	for _, opt := range opts {
		opt(l)
	}
	if l.log == nil {
		l.log = logger.Get().Named("ledger")
	}
	return l
}

// DrawForDate returns the target for the day of date, drawing it if no
// value exists yet. The call is idempotent: repeat calls for the same
// day return the cached value without touching the pool.
func (l *Ledger) DrawForDate(ctx context.Context, date time.Time) (int, error) {
	if !l.window.Contains(date) {
		return 0, fmt.Errorf("%w: %s", ErrOutOfSeason, model.Day(date))
	}
	day := model.Day(date)

	if km, found, err := l.store.Selection(ctx, day); err != nil {
		return 0, fmt.Errorf("read selection: %w", err)
	} else if found {
		return km, nil
	}

	// Override weekdays never touch the pool: persist the fixed value
	// so repeat reads skip the weekday computation.
	if km, ok := l.overrides[date.Weekday()]; ok {
		won, err := l.store.CommitDraw(ctx, day, km, nil)
		if err != nil {
			return 0, fmt.Errorf("commit override: %w", err)
		}
		return won, nil
	}

	if err := l.ensurePool(ctx); err != nil {
		return 0, err
	}
	pool, err := l.store.GetPool(ctx)
	if err != nil {
		return 0, fmt.Errorf("read pool: %w", err)
	}

	remaining := pool.Remaining
	if len(remaining) == 0 {
		// Pool exhausted: refill from the original list before drawing.
		remaining = append([]int(nil), pool.Original...)
		l.log.Info(ctx, "pool exhausted, refilling", logger.Int("size", len(remaining)))
	}
	if len(remaining) == 0 {
		return 0, ErrPoolEmpty
	}

	idx := l.pick(len(remaining))
	km := remaining[idx]
	depleted := make([]int, 0, len(remaining)-1)
	depleted = append(depleted, remaining[:idx]...)
	depleted = append(depleted, remaining[idx+1:]...)

	won, err := l.store.CommitDraw(ctx, day, km, depleted)
	if err != nil {
		return 0, fmt.Errorf("commit draw: %w", err)
	}
	if won == km {
		metrics.RecordTargetDrawn()
		metrics.UpdatePoolRemaining(len(depleted))
		l.log.Info(ctx, "daily target drawn",
			logger.String("day", day),
			logger.Int("km", won),
			logger.Int("remaining", len(depleted)),
		)
	}
	return won, nil
}

// ensurePool lazily seeds the pool documents. Initialization subtracts
// the reserved multiset once, so neither the original list nor any
// refill ever contains the override-day instances.
func (l *Ledger) ensurePool(ctx context.Context) error {
	original := subtract(l.seed, l.reserved)
	if err := l.store.InitPool(ctx, original); err != nil {
		return fmt.Errorf("init pool: %w", err)
	}
	return nil
}

// TotalGoal returns the sum of the full seed list, the season-wide
// distance the group is chasing.
func (l *Ledger) TotalGoal() int {
	var sum int
	for _, km := range l.seed {
		sum += km
	}
	return sum
}

// subtract removes one occurrence per element of b from a, preserving
// duplicate counts and order of the survivors.
func subtract(a, b []int) []int {
	counts := make(map[int]int, len(b))
	for _, v := range b {
		counts[v]++
	}
	out := make([]int, 0, len(a))
	for _, v := range a {
		if counts[v] > 0 {
			counts[v]--
			continue
		}
		out = append(out, v)
	}
	return out
}
