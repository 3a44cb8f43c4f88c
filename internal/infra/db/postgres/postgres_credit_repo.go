package postgres

import (
	"context"
	"errors"
	"time"

	"github.com/jackc/pgx/v4"
	"github.com/jackc/pgx/v4/pgxpool"

	"interview-ai-credits/internal/domain"
	"interview-ai-credits/internal/domain/model"
	"interview-ai-credits/internal/domain/ports/repository"
)

var _ repository.UserCreditRepository = (*creditRepo)(nil)

type creditRepo struct {
	pool *pgxpool.Pool
}

func NewCreditRepo(pool *pgxpool.Pool) *creditRepo {
	return &creditRepo{pool: pool}
}

const creditColumns = `id, user_id, plan_type, total_credits, remaining_credits, total_minutes, minutes_used, purchase_date, expiration_date, free_sessions_remaining, expiry_notified_at`

func (r *creditRepo) Save(ctx context.Context, tx repository.Tx, c *model.UserCredit) error {
	const q = `
INSERT INTO user_credits (
  id, user_id, plan_type, total_credits, remaining_credits, total_minutes, minutes_used,
  purchase_date, expiration_date, free_sessions_remaining, expiry_notified_at
) VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10,$11)
ON CONFLICT (user_id) DO UPDATE SET
  plan_type=$3, total_credits=$4, remaining_credits=$5, total_minutes=$6, minutes_used=$7,
  purchase_date=$8, expiration_date=$9, free_sessions_remaining=$10, expiry_notified_at=$11;`

	_, err := execSQL(ctx, r.pool, tx, q,
		c.ID, c.UserID, c.PlanType, c.TotalCredits, c.RemainingCredits, c.TotalMinutes, c.MinutesUsed,
		c.PurchaseDate, c.ExpirationDate, c.FreeSessionsRemaining, c.ExpiryNotifiedAt)
	if err != nil {
		if err == domain.ErrInvalidArgument || err == domain.ErrInvalidExecContext {
			return err
		}
		return domain.ErrOperationFailed
	}
	return nil
}

func (r *creditRepo) FindByUser(ctx context.Context, tx repository.Tx, userID string) (*model.UserCredit, error) {
	q := `SELECT ` + creditColumns + ` FROM user_credits WHERE user_id=$1`
	if _, ok := tx.(pgx.Tx); ok {
		q += " FOR UPDATE"
	}
	q += ";"
	row, err := pickRow(ctx, r.pool, tx, q, userID)
	if err != nil {
		return nil, err
	}
	return scanCredit(row)
}

// ConsumeCredits pushes the balance check into the debit itself: the WHERE
// guard means a stale read can never drive the balance negative or the
// minutes used past the plan's budget, and of two racing consumers of the
// last credits exactly one sees a row updated.
func (r *creditRepo) ConsumeCredits(ctx context.Context, tx repository.Tx, userID string, credits int, minutes float64) (*model.UserCredit, error) {
	const q = `
UPDATE user_credits
   SET remaining_credits = remaining_credits - $2,
       minutes_used      = minutes_used + $3
 WHERE user_id=$1
   AND remaining_credits >= $2
   AND minutes_used + $3 <= total_minutes
   AND expiration_date > NOW()
RETURNING ` + creditColumns + `;`

	row, err := pickRow(ctx, r.pool, tx, q, userID, credits, minutes)
	if err != nil {
		return nil, err
	}
	c, err := scanCredit(row)
	if errors.Is(err, domain.ErrNotFound) {
		// Missing ledger, an aged-out grant, a minutes overrun, and a
		// guarded-out debit all look the same here; each is an insufficient
		// balance to the caller.
		return nil, domain.ErrInsufficientCredits
	}
	return c, err
}

func (r *creditRepo) ConsumeFreeSession(ctx context.Context, tx repository.Tx, userID string) (*model.UserCredit, error) {
	const q = `
UPDATE user_credits
   SET free_sessions_remaining = free_sessions_remaining - 1
 WHERE user_id=$1 AND free_sessions_remaining > 0 AND expiration_date > NOW()
RETURNING ` + creditColumns + `;`

	row, err := pickRow(ctx, r.pool, tx, q, userID)
	if err != nil {
		return nil, err
	}
	c, err := scanCredit(row)
	if errors.Is(err, domain.ErrNotFound) {
		return nil, domain.ErrNoFreeSessions
	}
	return c, err
}

func (r *creditRepo) FindExpiredUnnotified(ctx context.Context, tx repository.Tx, asOf time.Time) ([]*model.UserCredit, error) {
	const q = `
SELECT ` + creditColumns + `
  FROM user_credits
 WHERE expiration_date <= $1
   AND expiry_notified_at IS NULL
   AND (remaining_credits > 0 OR free_sessions_remaining > 0)
 ORDER BY expiration_date ASC;`
	rows, err := queryRows(ctx, r.pool, tx, q, asOf)
	if err != nil {
		if err == domain.ErrInvalidArgument || err == domain.ErrInvalidExecContext {
			return nil, err
		}
		return nil, domain.ErrOperationFailed
	}
	defer rows.Close()

	var out []*model.UserCredit
	for rows.Next() {
		c := &model.UserCredit{}
		if err := rows.Scan(&c.ID, &c.UserID, &c.PlanType, &c.TotalCredits, &c.RemainingCredits, &c.TotalMinutes, &c.MinutesUsed, &c.PurchaseDate, &c.ExpirationDate, &c.FreeSessionsRemaining, &c.ExpiryNotifiedAt); err != nil {
			return nil, domain.ErrReadDatabaseRow
		}
		out = append(out, c)
	}
	if err := rows.Err(); err != nil {
		return nil, domain.ErrReadDatabaseRow
	}
	return out, nil
}

func (r *creditRepo) MarkExpiryNotified(ctx context.Context, tx repository.Tx, id string, at time.Time) error {
	const q = `UPDATE user_credits SET expiry_notified_at=$2 WHERE id=$1 AND expiry_notified_at IS NULL;`
	cmd, err := execSQL(ctx, r.pool, tx, q, id, at)
	if err != nil {
		if err == domain.ErrInvalidArgument || err == domain.ErrInvalidExecContext {
			return err
		}
		return domain.ErrOperationFailed
	}
	if cmd.RowsAffected() == 0 {
		return domain.ErrNotFound
	}
	return nil
}

func (r *creditRepo) TotalRemainingCredits(ctx context.Context, tx repository.Tx) (int64, error) {
	const q = `SELECT COALESCE(SUM(remaining_credits),0) FROM user_credits WHERE expiration_date > NOW();`
	row, err := pickRow(ctx, r.pool, tx, q)
	if err != nil {
		return 0, err
	}
	var n int64
	if err := row.Scan(&n); err != nil {
		return 0, domain.ErrReadDatabaseRow
	}
	return n, nil
}

func scanCredit(row pgx.Row) (*model.UserCredit, error) {
	c := &model.UserCredit{}
	if err := row.Scan(&c.ID, &c.UserID, &c.PlanType, &c.TotalCredits, &c.RemainingCredits, &c.TotalMinutes, &c.MinutesUsed, &c.PurchaseDate, &c.ExpirationDate, &c.FreeSessionsRemaining, &c.ExpiryNotifiedAt); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, domain.ErrNotFound
		}
		return nil, domain.ErrReadDatabaseRow
	}
	return c, nil
}
