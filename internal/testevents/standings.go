package testevents

import (
	"context"
	"encoding/json"
	"fmt"
	"strconv"

	"github.com/mlunde/adventpace/pkg/logger"
)

// getTarget fetches today's shared distance target.
func getTarget(ctx context.Context, config *Config, stats *Stats) error {
	client := newHTTPClient(config.Timeout, config.Secret)
	url := config.BaseURL + "/api/v1/target"

	resp, err := client.Get(ctx, url)
	if err != nil {
		return fmt.Errorf("failed to fetch target: %w", err)
	}
	body, err := readResponseBody(resp)
	if err != nil {
		return fmt.Errorf("failed to read target response: %w", err)
	}
	if resp.StatusCode != StatusOK {
		// Outside the season the endpoint has nothing to draw.
		logger.Get().Warn(ctx, "target unavailable", logger.Int("status", resp.StatusCode))
		return nil
	}

	var target struct {
		Date string `json:"date"`
		Km   int    `json:"km"`
	}
	if err := json.Unmarshal(body, &target); err != nil {
		return fmt.Errorf("failed to decode target response: %w", err)
	}

	stats.TargetKm = target.Km
	logger.Get().Info(ctx, "today's target",
		logger.String("date", target.Date),
		logger.Int("km", target.Km))
	return nil
}

// getStandings fetches the standings after the run. Athlete ids the
// generator invents are unknown to the service, so the interesting
// signal is that the endpoint stays responsive under load.
func getStandings(ctx context.Context, config *Config, stats *Stats) ([]StandingRow, error) {
	client := newHTTPClient(config.Timeout, config.Secret)
	url := config.BaseURL + "/api/v1/standings?limit=" + strconv.Itoa(config.StandingsLimit)

	resp, err := client.Get(ctx, url)
	if err != nil {
		return nil, fmt.Errorf("failed to fetch standings: %w", err)
	}
	body, err := readResponseBody(resp)
	if err != nil {
		return nil, fmt.Errorf("failed to read standings response: %w", err)
	}
	if resp.StatusCode != StatusOK {
		return nil, fmt.Errorf("standings request failed with status: %d", resp.StatusCode)
	}

	var rows []StandingRow
	if err := json.Unmarshal(body, &rows); err != nil {
		return nil, fmt.Errorf("failed to decode standings response: %w", err)
	}

	stats.StandingsRows = len(rows)
	logger.Get().Info(ctx, "standings retrieved", logger.Int("rows", len(rows)))
	return rows, nil
}

// verifyStandings checks the ordering contract of the rows.
func verifyStandings(ctx context.Context, rows []StandingRow) error {
	for i := 1; i < len(rows); i++ {
		if rows[i].TotalKm > rows[i-1].TotalKm {
			return fmt.Errorf("standings out of order at rank %d: %.2f km after %.2f km",
				rows[i].Rank, rows[i].TotalKm, rows[i-1].TotalKm)
		}
		if rows[i].Rank != rows[i-1].Rank+1 {
			return fmt.Errorf("non-contiguous ranks: %d after %d", rows[i].Rank, rows[i-1].Rank)
		}
	}
	logger.Get().Info(ctx, "standings ordering verified", logger.Int("rows", len(rows)))
	return nil
}
