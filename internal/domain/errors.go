package domain

import "errors"

var (
	ErrClaimNotFound          = errors.New("claim not found")
	ErrInvalidClaimInput      = errors.New("invalid claim input")
	ErrIdempotencyKeyRequired = errors.New("idempotency key required")
	ErrIdempotencyConflict    = errors.New("idempotency conflict")
	ErrInvalidTransition      = errors.New("invalid claim transition")
	ErrDeadlineNotReached     = errors.New("response deadline not reached")
	ErrDeadlinePassed         = errors.New("response deadline passed")
	ErrRoundsExhausted        = errors.New("negotiation rounds exhausted")
	ErrNotNegotiable          = errors.New("claim is not a commission negotiation")
	ErrClaimClosed            = errors.New("claim already resolved")
	ErrVersionConflict        = errors.New("stale claim version")
	ErrHoldNotFound           = errors.New("account hold not found")
	ErrInvalidAmount          = errors.New("invalid amount")
	ErrInvalidID              = errors.New("invalid id")
)
