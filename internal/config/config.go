// Package config defines service configuration structures and loading hooks.
//
// Conventions:
// - Provide New() to build a Config with defaults; Load layers file and env.
// - External errors must be wrapped via this package's error helpers.
package config

import (
	"fmt"
	"runtime"
	"time"
)

// SeasonConfig bounds the active season, inclusive on both ends.
type SeasonConfig struct {
	Start string `koanf:"start"`
	End   string `koanf:"end"`
}

// PoolConfig seeds the daily allocation pool. Overrides map lowercase
// weekday names to fixed km values that bypass the pool.
type PoolConfig struct {
	Values    []int          `koanf:"values"`
	Reserved  []int          `koanf:"reserved"`
	Overrides map[string]int `koanf:"overrides"`
}

// StravaConfig carries the provider application credentials and tuning.
type StravaConfig struct {
	ClientID      string  `koanf:"client_id"`
	ClientSecret  string  `koanf:"client_secret"`
	WebhookSecret string  `koanf:"webhook_secret"`
	VerifyToken   string  `koanf:"verify_token"`
	APIBase       string  `koanf:"api_base"`
	TokenURL      string  `koanf:"token_url"`
	PerPage       int     `koanf:"per_page"`
	RateLimitRPS  float64 `koanf:"rate_limit_rps"`
	RateBurst     int     `koanf:"rate_burst"`
}

// Config contains process configuration. Extend as needed.
type Config struct {
	// LogLevel controls verbosity: debug, info, warn, error.
	LogLevel string `koanf:"log_level"`

	// Addr configures the HTTP listen address, e.g. ":8080".
	Addr string `koanf:"addr"`

	// DataDir is the badger database path. Empty keeps everything in
	// memory, which loses state on restart.
	DataDir string `koanf:"data_dir"`

	// EventQueueSize bounds the in-memory webhook event queue.
	EventQueueSize int `koanf:"queue_size"`

	// WorkerCount sets the number of reconcile workers.
	WorkerCount int `koanf:"worker_count"`

	// DedupeSize sets the size of the webhook deduplication cache.
	DedupeSize int `koanf:"dedupe_size"`

	// MaxStandingsLimit caps GET /standings?limit.
	MaxStandingsLimit int `koanf:"max_standings_limit"`

	Season SeasonConfig `koanf:"season"`
	Pool   PoolConfig   `koanf:"pool"`
	Strava StravaConfig `koanf:"strava"`
}

// New creates a Config with defaults. The season defaults to the
// current year's advent run-up, Dec 1 through Dec 24.
func New() *Config {
	year := time.Now().Year()
	return &Config{
		LogLevel:          "info",
		Addr:              ":9080",
		EventQueueSize:    10_000,
		WorkerCount:       runtime.NumCPU() * 4,
		DedupeSize:        50_000,
		MaxStandingsLimit: 100,
		Season: SeasonConfig{
			Start: fmt.Sprintf("%d-12-01", year),
			End:   fmt.Sprintf("%d-12-24", year),
		},
		Pool: PoolConfig{
			Values:   []int{3, 3, 4, 4, 5, 5, 5, 6, 6, 6, 7, 7, 7, 7, 8, 8, 8, 9, 9, 10, 0, 0, 0, 0},
			Reserved: []int{7, 7, 7, 7, 0, 0, 0, 0},
			Overrides: map[string]int{
				"sunday": 0,
				"monday": 7,
			},
		},
		Strava: StravaConfig{
			APIBase:      "https://www.strava.com/api/v3",
			PerPage:      50,
			RateLimitRPS: 2,
			RateBurst:    10,
		},
	}
}

// WeekdayOverrides converts the named override map into weekday keys.
// Unknown day names are reported as ErrInvalidConfig.
func (c *Config) WeekdayOverrides() (map[time.Weekday]int, error) {
	names := map[string]time.Weekday{
		"sunday":    time.Sunday,
		"monday":    time.Monday,
		"tuesday":   time.Tuesday,
		"wednesday": time.Wednesday,
		"thursday":  time.Thursday,
		"friday":    time.Friday,
		"saturday":  time.Saturday,
	}
	out := make(map[time.Weekday]int, len(c.Pool.Overrides))
	for name, km := range c.Pool.Overrides {
		day, ok := names[name]
		if !ok {
			return nil, fmt.Errorf("%w: unknown weekday %q", ErrInvalidConfig, name)
		}
		out[day] = km
	}
	return out, nil
}
