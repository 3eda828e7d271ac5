package domain

import "errors"

var (
	// ErrNoListings is returned when a run starts with an empty listing set.
	ErrNoListings = errors.New("no listings to process")

	// ErrOracleUnavailable signals that the embedding service could not be
	// reached; the embedding tier is skipped, not the run.
	ErrOracleUnavailable = errors.New("embedding oracle unavailable")
)
