// Package service implements the prediction pool on top of the scoring core.
package service

import "errors"

// Errors returned by PoolService. Scoring failures surface as
// scoring.ErrInvalidInput and scoring.ErrSubmissionClosed.
var (
	ErrDataUnavailable  = errors.New("data unavailable")
	ErrInvalidTeam      = errors.New("invalid team")
	ErrUnauthenticated  = errors.New("unauthenticated")
	ErrForbidden        = errors.New("operator only")
	ErrMatchNotFound    = errors.New("match not found")
	ErrTeamNotFound     = errors.New("team not found")
	ErrTeamExists       = errors.New("team already exists")
	ErrResultAlreadySet = errors.New("result already recorded")
)
