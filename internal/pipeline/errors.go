package pipeline

import "errors"

// Sentinel errors for manual log submissions.
var (
	// ErrBadDay marks a malformed day key or distance value.
	ErrBadDay = errors.New("invalid log submission")

	// ErrDayRejected marks a well-formed day outside the season or in
	// the future.
	ErrDayRejected = errors.New("day not loggable")
)
