package domain

import "errors"

var (
	// Common domain errors
	ErrNotFound            = errors.New("entity not found")
	ErrAlreadyExists       = errors.New("entity already exists")
	ErrInvalidArgument     = errors.New("invalid argument")
	ErrInvalidPlan         = errors.New("unknown credit plan")
	ErrInsufficientCredits = errors.New("insufficient credits")
	ErrNoFreeSessions      = errors.New("no free sessions remaining")
	ErrExpiredCredits      = errors.New("credits have expired")
	ErrLockNotAcquired     = errors.New("could not acquire per-user lock")

	// Storage-layer failures surfaced by the postgres repositories.
	ErrOperationFailed    = errors.New("storage operation failed")
	ErrInvalidExecContext = errors.New("invalid executor context")
	ErrReadDatabaseRow    = errors.New("failed to read database row")
)
