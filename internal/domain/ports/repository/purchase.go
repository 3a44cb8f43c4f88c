package repository

import (
	"context"
	"time"

	"interview-ai-credits/internal/domain/model"
)

// PurchaseRepository is the port for payment-provider checkout records.
type PurchaseRepository interface {
	Save(ctx context.Context, tx Tx, p *model.Purchase) error
	FindByID(ctx context.Context, tx Tx, id string) (*model.Purchase, error)
	FindByReference(ctx context.Context, tx Tx, reference string) (*model.Purchase, error)
	UpdateStatus(ctx context.Context, tx Tx, id string, status model.PurchaseStatus, confirmedAt *time.Time) error

	// ConfirmPending flips a pending purchase to confirmed in one conditional
	// write. domain.ErrNotFound means there was no pending row to flip: the
	// purchase is unknown, already confirmed, or failed.
	ConfirmPending(ctx context.Context, tx Tx, id string, confirmedAt time.Time) error
	CountByStatus(ctx context.Context, tx Tx) (map[model.PurchaseStatus]int, error)
}
