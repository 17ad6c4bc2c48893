// Package types contains common read shapes used across the application
package types

// Target is the shared distance goal for one calendar day.
type Target struct {
	Date string `json:"date"`
	Km   int    `json:"km"`
}

// Standing represents one row of the group progress view.
type Standing struct {
	Rank        int     `json:"rank"`
	UserID      string  `json:"user_id"`
	DisplayName string  `json:"display_name"`
	TotalKm     float64 `json:"total_km"`
}
