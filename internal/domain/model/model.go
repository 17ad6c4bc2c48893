// Package model contains domain models passed between layers.
package model

import (
	"math"
	"time"
)

// DateKey is the canonical format for calendar-day keys in logs and
// the daily selection map.
const DateKey = "2006-01-02"

// Day returns the calendar-day key for t in t's own location.
func Day(t time.Time) string {
	return t.Format(DateKey)
}

// Credential holds the Strava OAuth tokens for one user. ExpiresAt is
// epoch seconds as returned by the token endpoint.
type Credential struct {
	AccessToken  string `json:"access_token"`
	RefreshToken string `json:"refresh_token"`
	ExpiresAt    int64  `json:"expires_at"`
	AthleteID    int64  `json:"athlete_id"`
}

// LogEntry is one day's logged distance for a user. A user's log holds
// exactly one entry per day; Time decides which candidate wins on merge.
type LogEntry struct {
	Km   float64   `json:"km"`
	Time time.Time `json:"time"`
}

// User is a group member. Log is keyed by DateKey-formatted days and
// grows only through the merge policy. Credential is nil until the user
// connects Strava.
type User struct {
	ID          string              `json:"id"`
	DisplayName string              `json:"display_name"`
	Keyword     string              `json:"keyword"`
	Log         map[string]LogEntry `json:"log"`
	Credential  *Credential         `json:"credential,omitempty"`
}

// Webhook aspect types sent by Strava.
const (
	AspectCreate = "create"
	AspectUpdate = "update"
	AspectDelete = "delete"
)

// ObjectActivity is the only object type the pipeline acts on.
const ObjectActivity = "activity"

// WebhookEvent mirrors the Strava push event payload. Events are
// transient; each one drives a single pipeline run.
type WebhookEvent struct {
	ObjectType     string `json:"object_type"`
	AspectType     string `json:"aspect_type"`
	ObjectID       int64  `json:"object_id"`
	OwnerID        int64  `json:"owner_id"`
	SubscriptionID int64  `json:"subscription_id"`
	EventTime      int64  `json:"event_time"`
}

// Activity is the subset of a Strava activity the pipeline consumes.
// Distance is meters; StartDateLocal is the athlete's wall-clock start.
type Activity struct {
	ID             int64     `json:"id"`
	Name           string    `json:"name"`
	Description    string    `json:"description"`
	Distance       float64   `json:"distance"`
	StartDateLocal time.Time `json:"start_date_local"`
}

// Km converts the activity distance to kilometers rounded to two
// decimals, matching what users see in their log.
func (a Activity) Km() float64 {
	return math.Round(a.Distance/1000*100) / 100
}
