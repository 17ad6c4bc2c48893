// Package filter defines the business rules deciding which webhook
// events and fetched activities may reach a user's log.
package filter

import (
	"strings"
	"time"

	"github.com/mlunde/adventpace/internal/domain/model"
	"github.com/mlunde/adventpace/internal/domain/season"
)

// Filter bundles the event, keyword and date rules used by the
// ingestion pipeline and the daily summary.
type Filter struct {
	window season.Window
}

// New creates a Filter bound to the active season window.
func New(window season.Window) Filter {
	return Filter{window: window}
}

// Relevant reports whether an event should be processed at all. Only
// activity create/update events carry distance we care about; deletes
// and non-activity objects are no-ops.
func Relevant(e model.WebhookEvent) bool {
	if e.ObjectType != model.ObjectActivity {
		return false
	}
	return e.AspectType == model.AspectCreate || e.AspectType == model.AspectUpdate
}

// MatchKeyword reports whether the activity's name or description
// contains keyword, case-insensitively. An empty keyword matches every
// activity.
func MatchKeyword(keyword string, act model.Activity) bool {
	if keyword == "" {
		return true
	}
	kw := strings.ToLower(keyword)
	return strings.Contains(strings.ToLower(act.Name), kw) ||
		strings.Contains(strings.ToLower(act.Description), kw)
}

// LogDay returns the calendar day the activity belongs to and whether
// it is accepted. The day is taken from the activity's own local start
// time, so an event delivered after midnight still lands on the day
// the run happened. Activities outside the season, or dated after the
// ingestion day, are rejected.
func (f Filter) LogDay(act model.Activity, asOf time.Time) (string, bool) {
	day := model.Day(act.StartDateLocal)
	if !f.window.ContainsDay(day) {
		return "", false
	}
	if day > model.Day(asOf) {
		return "", false
	}
	return day, true
}
