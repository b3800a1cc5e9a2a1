package scoring

import "errors"

// Scoring errors.
var (
	// ErrInvalidInput is returned when the caller passes malformed data,
	// e.g. a negative guess or a guess for a match that does not exist.
	ErrInvalidInput = errors.New("invalid input")

	// ErrSubmissionClosed is returned when a guess or bet is written after its deadline.
	ErrSubmissionClosed = errors.New("submission closed")
)
