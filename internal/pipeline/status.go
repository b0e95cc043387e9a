package pipeline

import (
	"errors"
	"fmt"
)

// ErrInvalidTransition is wrapped by stores when a status write is rejected.
var ErrInvalidTransition = errors.New("invalid status transition")

// Allowed reports whether the state machine permits moving from one status
// to the next. A failed job is terminal; a new attempt requires a new Job.
// A completed job may re-enter the generating phase.
func Allowed(from, to JobStatus) bool {
	switch from {
	case StatusPending:
		return to == StatusScraping
	case StatusScraping:
		return to == StatusCompleted || to == StatusFailed
	case StatusCompleted:
		return to == StatusGenerating
	case StatusGenerating:
		return to == StatusCompleted || to == StatusFailed
	default:
		return false
	}
}

// CheckTransition returns a wrapped ErrInvalidTransition when the move is not
// permitted, so stores can enforce monotonic writes uniformly.
func CheckTransition(from, to JobStatus) error {
	if !Allowed(from, to) {
		return fmt.Errorf("%w: %s -> %s", ErrInvalidTransition, from, to)
	}
	return nil
}

// Terminal reports whether a status accepts no further scrape-phase writes.
func Terminal(status JobStatus) bool {
	return status == StatusFailed
}
