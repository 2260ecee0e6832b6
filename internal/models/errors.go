package models

import "errors"

var (
	// ErrInvalidQuery marks malformed or underspecified input. Not retryable.
	ErrInvalidQuery = errors.New("invalid query")

	// ErrRepositoryUnavailable marks a timeout or data-source failure.
	// Callers may retry the whole query.
	ErrRepositoryUnavailable = errors.New("repository unavailable")

	// ErrCriterionEvaluation marks a per-candidate scoring failure. The engine
	// recovers from it by excluding the candidate.
	ErrCriterionEvaluation = errors.New("criterion evaluation failed")
)
