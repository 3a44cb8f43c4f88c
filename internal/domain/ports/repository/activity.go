package repository

import (
	"context"

	"interview-ai-credits/internal/domain/model"
)

// CreditActivityRepository is the port for the append-only activity log.
type CreditActivityRepository interface {
	// Append persists a new entry and returns its assigned id.
	Append(ctx context.Context, tx Tx, a *model.CreditActivity) (string, error)

	// ListRecent returns the newest entries for a user, newest first.
	ListRecent(ctx context.Context, tx Tx, userID string, limit int) ([]*model.CreditActivity, error)

	CountByUser(ctx context.Context, tx Tx, userID string) (int, error)
}
