// Package repository defines the document store contract and errors.
//
// The store holds three kinds of documents: per-user records (profile,
// credential, log), the shared allocation pool, and the append-only map
// of already-drawn daily targets. Only CommitDraw couples documents:
// it publishes a day's selection and the depleted remaining list in one
// atomic step so concurrent first draws converge on a single value.
package repository

import (
	"context"

	"github.com/mlunde/adventpace/internal/domain/model"
)

// Pool is the persisted allocation state. Original is immutable after
// initialization; Remaining is a sub-multiset of Original mutated only
// through CommitDraw.
type Pool struct {
	Original  []int `json:"original"`
	Remaining []int `json:"remaining"`
}

// Standing is one row of the group progress view.
type Standing struct {
	Rank        int
	UserID      string
	DisplayName string
	TotalKm     float64
}

// Store provides read/write access to users, the pool and the daily
// selection map.
type Store interface {
	// GetUser returns the user document. Returns ErrNotFound if the
	// user is unknown.
	GetUser(ctx context.Context, id string) (model.User, error)

	// PutUser creates or replaces a user document.
	PutUser(ctx context.Context, u model.User) error

	// UpdateUser applies fn to the current user document and persists
	// the result atomically with respect to other UpdateUser calls for
	// the same user. Returns ErrNotFound if the user is unknown.
	UpdateUser(ctx context.Context, id string, fn func(*model.User) error) error

	// UserByAthlete resolves the user owning a Strava athlete id.
	// Returns ErrNotFound when no connected user matches.
	UserByAthlete(ctx context.Context, athleteID int64) (model.User, error)

	// Users returns all user documents.
	Users(ctx context.Context) ([]model.User, error)

	// InitPool seeds the pool documents when absent or empty; a
	// populated pool is left untouched.
	InitPool(ctx context.Context, original []int) error

	// GetPool returns the pool documents. Returns ErrNotFound if the
	// pool was never initialized.
	GetPool(ctx context.Context) (Pool, error)

	// Selection returns the already-drawn value for a day, if any.
	Selection(ctx context.Context, day string) (int, bool, error)

	// CommitDraw publishes km as the selection for day together with
	// the depleted remaining list. First writer wins; every caller
	// receives the winning value. A nil remaining leaves the pool
	// untouched (fixed-override days never deplete it).
	CommitDraw(ctx context.Context, day string, km int, remaining []int) (int, error)

	// Standings returns up to n users ordered by total logged km
	// descending, ties broken by user id.
	Standings(ctx context.Context, n int) ([]Standing, error)

	// Close releases store resources.
	Close() error
}

// rankStandings sorts rows in place and assigns ranks. Shared by the
// store implementations.
func rankStandings(rows []Standing, n int) []Standing {
	for i := 1; i < len(rows); i++ {
		for j := i; j > 0; j-- {
			a, b := rows[j], rows[j-1]
			if a.TotalKm > b.TotalKm || (a.TotalKm == b.TotalKm && a.UserID < b.UserID) {
				rows[j], rows[j-1] = rows[j-1], rows[j]
				continue
			}
			break
		}
	}
	if n > 0 && n < len(rows) {
		rows = rows[:n]
	}
	for i := range rows {
		rows[i].Rank = i + 1
	}
	return rows
}

func totalKm(u model.User) float64 {
	var sum float64
	for _, e := range u.Log {
		sum += e.Km
	}
	return sum
}
