package service

import "errors"

// Validation errors: rejected synchronously, never retried.
var (
	ErrInvalidParameters = errors.New("invalid parameters")
)

// State-conflict errors: the caller's view of room state was stale. Surfaced
// as-is; the caller may re-fetch and decide, the engine never retries them.
var (
	ErrRoomNotFound                = errors.New("room not found")
	ErrInvalidTransition           = errors.New("invalid room transition")
	ErrAlreadyStarted              = errors.New("room already started")
	ErrRoomNotAcceptingPredictions = errors.New("room not accepting predictions")
	ErrStakeTooLow                 = errors.New("stake below room minimum")
	ErrDuplicatePrediction         = errors.New("prediction already placed")
	ErrNotCompleted                = errors.New("room not yet completed")
	ErrNotSettled                  = errors.New("room not settled")
	ErrNotAWinner                  = errors.New("prediction did not win")
)

// Collaborator-failure errors: recoverable, the operation is retried on a
// later pass.
var (
	ErrPriceUnavailable = errors.New("price source unavailable")
)

// ErrInvariantViolation marks numbers that must never occur (payouts exceeding
// the pool). A settlement hitting it is aborted, never persisted.
var ErrInvariantViolation = errors.New("settlement invariant violation")
