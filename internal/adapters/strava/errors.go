package strava

import "errors"

// Sentinel kinds for Strava adapter errors.
var (
	ErrUpstream = errors.New("strava call failed")
	ErrNoToken  = errors.New("no valid access token")
)
