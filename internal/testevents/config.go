package testevents

import "time"

// Config holds configuration for the webhook load test.
type Config struct {
	BaseURL        string        // Base URL of the service
	Secret         string        // Webhook signing secret
	NumEvents      int           // Number of webhook events to generate
	NumAthletes    int           // Number of distinct athlete ids to spread events over
	StandingsLimit int           // Number of standings rows to fetch
	Workers        int           // Number of concurrent submitters
	Timeout        time.Duration // HTTP request timeout
	OutputFile     string        // Output file for generated events
	LogFile        string        // Log file for test output
	Verbose        bool          // Enable verbose logging
}

// Event is the Strava-style push payload the tool submits.
type Event struct {
	ObjectType     string `json:"object_type"`
	AspectType     string `json:"aspect_type"`
	ObjectID       int64  `json:"object_id"`
	OwnerID        int64  `json:"owner_id"`
	SubscriptionID int64  `json:"subscription_id"`
	EventTime      int64  `json:"event_time"`
}

// StandingRow is one row of the standings response.
type StandingRow struct {
	Rank        int     `json:"rank"`
	UserID      string  `json:"user_id"`
	DisplayName string  `json:"display_name"`
	TotalKm     float64 `json:"total_km"`
}

// Stats holds test statistics.
type Stats struct {
	EventsGenerated int
	EventsSubmitted int
	EventsAccepted  int
	EventsThrottled int
	EventsRejected  int
	EventsFailed    int
	StandingsRows   int
	TargetKm        int
	StartTime       time.Time
	EndTime         time.Time
	Duration        time.Duration
}
