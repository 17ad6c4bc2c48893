package config

import (
	"context"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/knadh/koanf/parsers/yaml"
	"github.com/knadh/koanf/providers/env"
	"github.com/knadh/koanf/providers/file"
	"github.com/knadh/koanf/v2"
)

// Load builds a Config by layering defaults, optional file, and env vars.
// Order of precedence (low -> high):.
//  1. defaults (New())
//  2. file (YAML) if ADVENTPACE_CONFIG is set
//  3. env (prefix ADVENTPACE_)
func Load(_ context.Context) (*Config, error) {
	base := New()

	k := koanf.New(".")

	if path := os.Getenv("ADVENTPACE_CONFIG"); path != "" {
		if err := k.Load(file.Provider(path), yaml.Parser()); err != nil {
			return nil, fmt.Errorf("%w: %w", ErrLoadConfig, err)
		}
	}

	// Environment variables: ADVENTPACE_ADDR, ADVENTPACE_QUEUE_SIZE, ...
	// Nested sections use double underscores:
	// ADVENTPACE_STRAVA__CLIENT_ID -> strava.client_id
	envProvider := env.Provider("ADVENTPACE_", ".", func(s string) string {
		s = strings.ToLower(s)
		s = strings.TrimPrefix(s, "adventpace_")
		return strings.ReplaceAll(s, "__", ".")
	})
	if err := k.Load(envProvider, nil); err != nil {
		return nil, fmt.Errorf("%w: %w", ErrLoadConfig, err)
	}

	cfg := *base
	if err := k.UnmarshalWithConf("", &cfg, koanf.UnmarshalConf{Tag: "koanf"}); err != nil {
		return nil, fmt.Errorf("%w: %w", ErrLoadConfig, err)
	}

	if err := validate(&cfg); err != nil {
		return nil, err
	}
	return &cfg, nil
}

func validate(cfg *Config) error {
	if cfg.Addr == "" {
		return fmt.Errorf("%w: addr must not be empty", ErrInvalidConfig)
	}
	start, err := time.Parse("2006-01-02", cfg.Season.Start)
	if err != nil {
		return fmt.Errorf("%w: season start: %w", ErrInvalidConfig, err)
	}
	end, err := time.Parse("2006-01-02", cfg.Season.End)
	if err != nil {
		return fmt.Errorf("%w: season end: %w", ErrInvalidConfig, err)
	}
	if end.Before(start) {
		return fmt.Errorf("%w: season ends before it starts", ErrInvalidConfig)
	}
	if len(cfg.Pool.Values) == 0 {
		return fmt.Errorf("%w: pool values must not be empty", ErrInvalidConfig)
	}
	for _, v := range cfg.Pool.Values {
		if v < 0 {
			return fmt.Errorf("%w: negative pool value %d", ErrInvalidConfig, v)
		}
	}
	if _, err := cfg.WeekdayOverrides(); err != nil {
		return err
	}
	return nil
}
