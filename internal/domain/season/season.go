// Package season defines the inclusive date window a tracking round
// runs over, e.g. December 1st through December 24th.
package season

import (
	"fmt"
	"time"

	"github.com/mlunde/adventpace/internal/domain/model"
)

// Window is an inclusive range of calendar days. Both bounds are
// truncated to midnight in their own location.
type Window struct {
	start time.Time
	end   time.Time
}

// New builds a Window from DateKey-formatted bounds.
func New(start, end string) (Window, error) {
	s, err := time.Parse(model.DateKey, start)
	if err != nil {
		return Window{}, fmt.Errorf("invalid season start %q: %w", start, err)
	}
	e, err := time.Parse(model.DateKey, end)
	if err != nil {
		return Window{}, fmt.Errorf("invalid season end %q: %w", end, err)
	}
	if e.Before(s) {
		return Window{}, fmt.Errorf("season end %q precedes start %q", end, start)
	}
	return Window{start: s, end: e}, nil
}

// Contains reports whether the day of t falls inside the window.
func (w Window) Contains(t time.Time) bool {
	day := t.Format(model.DateKey)
	return day >= w.start.Format(model.DateKey) && day <= w.end.Format(model.DateKey)
}

// ContainsDay reports whether a DateKey-formatted day falls inside the
// window.
func (w Window) ContainsDay(day string) bool {
	return day >= w.start.Format(model.DateKey) && day <= w.end.Format(model.DateKey)
}

// Days returns the number of calendar days in the window.
func (w Window) Days() int {
	return int(w.end.Sub(w.start).Hours()/24) + 1
}

// Start returns the first day of the window.
func (w Window) Start() time.Time { return w.start }

// End returns the last day of the window.
func (w Window) End() time.Time { return w.end }
