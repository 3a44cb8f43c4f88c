package repository

import (
	"context"
	"time"

	"interview-ai-credits/internal/domain/model"
)

// UserCreditRepository is the port for the per-user credit ledger.
//
// ConsumeCredits and ConsumeFreeSession are conditional updates: the balance
// check happens inside the same storage write that debits it, so two
// concurrent consumers of the last credits cannot both succeed.
type UserCreditRepository interface {
	Save(ctx context.Context, tx Tx, c *model.UserCredit) error
	FindByUser(ctx context.Context, tx Tx, userID string) (*model.UserCredit, error)

	// ConsumeCredits debits credits and adds interview minutes, only if the
	// grant is unexpired, the remaining balance covers the debit, and the
	// added minutes stay within the plan's total. Returns the updated
	// ledger, or domain.ErrInsufficientCredits when the guard fails
	// (including when no ledger exists).
	ConsumeCredits(ctx context.Context, tx Tx, userID string, credits int, minutes float64) (*model.UserCredit, error)

	// ConsumeFreeSession decrements the free-session counter, only if it is
	// positive. Returns the updated ledger or domain.ErrNoFreeSessions.
	ConsumeFreeSession(ctx context.Context, tx Tx, userID string) (*model.UserCredit, error)

	// FindExpiredUnnotified lists ledgers whose grant aged out before asOf and
	// that the expiry sweep has not logged yet.
	FindExpiredUnnotified(ctx context.Context, tx Tx, asOf time.Time) ([]*model.UserCredit, error)

	// MarkExpiryNotified stamps a ledger so the sweep logs each expiry once.
	MarkExpiryNotified(ctx context.Context, tx Tx, id string, at time.Time) error

	// TotalRemainingCredits sums remaining credits across unexpired ledgers.
	TotalRemainingCredits(ctx context.Context, tx Tx) (int64, error)
}
