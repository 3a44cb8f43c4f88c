package postgres

import (
	"context"
	"errors"

	"github.com/jackc/pgx/v4"
	"github.com/jackc/pgx/v4/pgxpool"

	"interview-ai-credits/internal/domain"
	"interview-ai-credits/internal/domain/model"
	"interview-ai-credits/internal/domain/ports/repository"
)

// Ensure interface compliance
var _ repository.CreditPlanRepository = (*planRepo)(nil)

type planRepo struct {
	pool *pgxpool.Pool
}

func NewPlanRepo(pool *pgxpool.Pool) *planRepo {
	return &planRepo{pool: pool}
}

func (r *planRepo) Save(ctx context.Context, tx repository.Tx, p *model.CreditPlan) error {
	const q = `
INSERT INTO credit_plans (id, name, price_cents, credits, minutes_per_credit, features, highlighted, created_at)
VALUES ($1,$2,$3,$4,$5,$6,$7,$8)
ON CONFLICT (id) DO UPDATE SET
  name=$2, price_cents=$3, credits=$4, minutes_per_credit=$5, features=$6, highlighted=$7;`

	_, err := execSQL(ctx, r.pool, tx, q, p.ID, p.Name, p.PriceCents, p.Credits, p.MinutesPerCredit, p.Features, p.Highlighted, p.CreatedAt)
	if err != nil {
		if err == domain.ErrInvalidArgument || err == domain.ErrInvalidExecContext {
			return err
		}
		return domain.ErrOperationFailed
	}
	return nil
}

func (r *planRepo) FindByID(ctx context.Context, tx repository.Tx, id string) (*model.CreditPlan, error) {
	const q = `
SELECT id, name, price_cents, credits, minutes_per_credit, features, highlighted, created_at
  FROM credit_plans
 WHERE id=$1;`
	row, err := pickRow(ctx, r.pool, tx, q, id)
	if err != nil {
		return nil, err
	}
	return scanPlan(row)
}

func (r *planRepo) ListAll(ctx context.Context, tx repository.Tx) ([]*model.CreditPlan, error) {
	const q = `
SELECT id, name, price_cents, credits, minutes_per_credit, features, highlighted, created_at
  FROM credit_plans
 ORDER BY price_cents ASC;`
	rows, err := queryRows(ctx, r.pool, tx, q)
	if err != nil {
		if err == domain.ErrInvalidArgument || err == domain.ErrInvalidExecContext {
			return nil, err
		}
		return nil, domain.ErrOperationFailed
	}
	defer rows.Close()

	var out []*model.CreditPlan
	for rows.Next() {
		p := &model.CreditPlan{}
		if err := rows.Scan(&p.ID, &p.Name, &p.PriceCents, &p.Credits, &p.MinutesPerCredit, &p.Features, &p.Highlighted, &p.CreatedAt); err != nil {
			return nil, domain.ErrReadDatabaseRow
		}
		out = append(out, p)
	}
	if err := rows.Err(); err != nil {
		return nil, domain.ErrReadDatabaseRow
	}
	return out, nil
}

func (r *planRepo) Delete(ctx context.Context, tx repository.Tx, id string) error {
	const q = `DELETE FROM credit_plans WHERE id=$1;`
	cmd, err := execSQL(ctx, r.pool, tx, q, id)
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

func scanPlan(row pgx.Row) (*model.CreditPlan, error) {
	p := &model.CreditPlan{}
	if err := row.Scan(&p.ID, &p.Name, &p.PriceCents, &p.Credits, &p.MinutesPerCredit, &p.Features, &p.Highlighted, &p.CreatedAt); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, domain.ErrNotFound
		}
		return nil, domain.ErrReadDatabaseRow
	}
	return p, nil
}
