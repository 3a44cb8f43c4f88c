package postgres

import (
	"context"
	"errors"
	"time"

	"github.com/jackc/pgconn"
	"github.com/jackc/pgx/v4"
	"github.com/jackc/pgx/v4/pgxpool"

	"interview-ai-credits/internal/domain"
	"interview-ai-credits/internal/domain/model"
	"interview-ai-credits/internal/domain/ports/repository"
)

var _ repository.PurchaseRepository = (*purchaseRepo)(nil)

type purchaseRepo struct {
	pool *pgxpool.Pool
}

func NewPurchaseRepo(pool *pgxpool.Pool) *purchaseRepo {
	return &purchaseRepo{pool: pool}
}

const purchaseColumns = `id, user_id, plan_id, provider, amount_cents, reference, status, created_at, updated_at, confirmed_at`

func (r *purchaseRepo) Save(ctx context.Context, tx repository.Tx, p *model.Purchase) error {
	const q = `
INSERT INTO purchases (id, user_id, plan_id, provider, amount_cents, reference, status, created_at, updated_at, confirmed_at)
VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10)
ON CONFLICT (id) DO UPDATE SET
  status=$7, updated_at=$9, confirmed_at=$10;`

	_, err := execSQL(ctx, r.pool, tx, q,
		p.ID, p.UserID, p.PlanID, p.Provider, p.AmountCents, p.Reference, p.Status, p.CreatedAt, p.UpdatedAt, p.ConfirmedAt)
	if err != nil {
		if err == domain.ErrInvalidArgument || err == domain.ErrInvalidExecContext {
			return err
		}
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == "23505" {
			return domain.ErrAlreadyExists
		}
		return domain.ErrOperationFailed
	}
	return nil
}

func (r *purchaseRepo) FindByID(ctx context.Context, tx repository.Tx, id string) (*model.Purchase, error) {
	q := `SELECT ` + purchaseColumns + ` FROM purchases WHERE id=$1`
	if _, ok := tx.(pgx.Tx); ok {
		q += " FOR UPDATE"
	}
	q += ";"
	row, err := pickRow(ctx, r.pool, tx, q, id)
	if err != nil {
		return nil, err
	}
	return scanPurchase(row)
}

func (r *purchaseRepo) FindByReference(ctx context.Context, tx repository.Tx, reference string) (*model.Purchase, error) {
	q := `SELECT ` + purchaseColumns + ` FROM purchases WHERE reference=$1 LIMIT 1`
	if _, ok := tx.(pgx.Tx); ok {
		q += " FOR UPDATE"
	}
	q += ";"
	row, err := pickRow(ctx, r.pool, tx, q, reference)
	if err != nil {
		return nil, err
	}
	return scanPurchase(row)
}

func (r *purchaseRepo) UpdateStatus(ctx context.Context, tx repository.Tx, id string, status model.PurchaseStatus, confirmedAt *time.Time) error {
	const q = `UPDATE purchases SET status=$2, confirmed_at=COALESCE($3, confirmed_at), updated_at=NOW() WHERE id=$1;`
	cmd, err := execSQL(ctx, r.pool, tx, q, id, status, confirmedAt)
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

// ConfirmPending is a conditional transition: the status check rides inside
// the write, so of two concurrent callbacks for one purchase only one sees a
// row updated.
func (r *purchaseRepo) ConfirmPending(ctx context.Context, tx repository.Tx, id string, confirmedAt time.Time) error {
	const q = `UPDATE purchases SET status=$2, confirmed_at=$3, updated_at=NOW() WHERE id=$1 AND status=$4;`
	cmd, err := execSQL(ctx, r.pool, tx, q, id, model.PurchaseStatusConfirmed, confirmedAt, model.PurchaseStatusPending)
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

func (r *purchaseRepo) CountByStatus(ctx context.Context, tx repository.Tx) (map[model.PurchaseStatus]int, error) {
	const q = `SELECT status, COUNT(*) FROM purchases GROUP BY status;`
	rows, err := queryRows(ctx, r.pool, tx, q)
	if err != nil {
		return nil, domain.ErrOperationFailed
	}
	defer rows.Close()

	counts := make(map[model.PurchaseStatus]int)
	for rows.Next() {
		var status string
		var count int
		if err := rows.Scan(&status, &count); err != nil {
			return nil, domain.ErrReadDatabaseRow
		}
		counts[model.PurchaseStatus(status)] = count
	}
	if err := rows.Err(); err != nil {
		return nil, domain.ErrReadDatabaseRow
	}
	return counts, nil
}

func scanPurchase(row pgx.Row) (*model.Purchase, error) {
	p := &model.Purchase{}
	var status string
	if err := row.Scan(&p.ID, &p.UserID, &p.PlanID, &p.Provider, &p.AmountCents, &p.Reference, &status, &p.CreatedAt, &p.UpdatedAt, &p.ConfirmedAt); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, domain.ErrNotFound
		}
		return nil, domain.ErrReadDatabaseRow
	}
	p.Status = model.PurchaseStatus(status)
	return p, nil
}
