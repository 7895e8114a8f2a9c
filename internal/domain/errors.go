package domain

import "errors"

var (
	// ErrNoTargets is returned when a scrape request names no source at all.
	ErrNoTargets = errors.New("no scrape targets provided")
	// ErrIntervalNotPositive is returned when polling is requested with a
	// zero or negative interval.
	ErrIntervalNotPositive = errors.New("refresh interval must be positive")
	// ErrUnknownSource is returned when a request names a source no scraper
	// is registered for.
	ErrUnknownSource = errors.New("unknown source")
)
