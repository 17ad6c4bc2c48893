package ledger

import "errors"

// Sentinel kinds for ledger errors.
var (
	ErrOutOfSeason = errors.New("date outside season window")
	ErrPoolEmpty   = errors.New("allocation pool is empty")
)
