// Package merge defines the policy deciding whether a new distance
// record replaces an existing log entry for the same day.
//
// The same policy is applied to webhook-sourced and manual entries so
// that delivery order never decides the outcome: only the entry with
// the latest activity time survives.
package merge

import (
	"github.com/mlunde/adventpace/internal/domain/model"
)

// Engine resolves conflicts between log entries for the same day.
type Engine interface {
	// Merge returns the entry that should be stored for a day and
	// whether the candidate was applied. A candidate wins when no
	// entry exists or when its Time is strictly after the existing
	// entry's Time.
	Merge(existing *model.LogEntry, candidate model.LogEntry) (model.LogEntry, bool)
}

// LatestWins implements Engine with strict timestamp recency. Equal
// timestamps keep the existing entry, which makes redelivered events
// no-ops.
type LatestWins struct{}

// NewLatestWins creates the recency-based merge engine.
func NewLatestWins() LatestWins {
	return LatestWins{}
}

// Merge applies the latest-time-wins rule.
func (LatestWins) Merge(existing *model.LogEntry, candidate model.LogEntry) (model.LogEntry, bool) {
	if existing == nil {
		return candidate, true
	}
	if candidate.Time.After(existing.Time) {
		return candidate, true
	}
	return *existing, false
}
