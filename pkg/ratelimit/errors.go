package ratelimit

import "errors"

var (
	// ErrInvalidRate is returned when a rate ceiling is zero or negative.
	ErrInvalidRate = errors.New("rate must be greater than zero")

	// ErrInvalidBurstMultiplier is returned when the burst multiplier is less than 1.
	ErrInvalidBurstMultiplier = errors.New("burst multiplier must be at least 1")

	// ErrCountExceedsCapacity is returned when a requested token count is
	// larger than a window's capacity and therefore can never be admitted.
	ErrCountExceedsCapacity = errors.New("requested count exceeds bucket capacity")
)
