package postgres

import (
	"context"

	"github.com/jackc/pgx/v4/pgxpool"
	"github.com/oklog/ulid/v2"

	"interview-ai-credits/internal/domain"
	"interview-ai-credits/internal/domain/model"
	"interview-ai-credits/internal/domain/ports/repository"
)

var _ repository.CreditActivityRepository = (*activityRepo)(nil)

type activityRepo struct {
	pool *pgxpool.Pool
}

func NewActivityRepo(pool *pgxpool.Pool) *activityRepo {
	return &activityRepo{pool: pool}
}

func (r *activityRepo) Append(ctx context.Context, tx repository.Tx, a *model.CreditActivity) (string, error) {
	if a.ID == "" {
		a.ID = ulid.Make().String()
	}
	const q = `
INSERT INTO credit_activities (id, user_id, kind, title, description, credits_change, minutes_used, interview_id, created_at)
VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9);`

	_, err := execSQL(ctx, r.pool, tx, q,
		a.ID, a.UserID, a.Kind, a.Title, a.Description, a.CreditsChange, a.MinutesUsed, a.InterviewID, a.Timestamp)
	if err != nil {
		if err == domain.ErrInvalidArgument || err == domain.ErrInvalidExecContext {
			return "", err
		}
		return "", domain.ErrOperationFailed
	}
	return a.ID, nil
}

func (r *activityRepo) ListRecent(ctx context.Context, tx repository.Tx, userID string, limit int) ([]*model.CreditActivity, error) {
	const q = `
SELECT id, user_id, kind, title, description, credits_change, minutes_used, interview_id, created_at
  FROM credit_activities
 WHERE user_id=$1
 ORDER BY created_at DESC
 LIMIT $2;`
	rows, err := queryRows(ctx, r.pool, tx, q, userID, limit)
	if err != nil {
		if err == domain.ErrInvalidArgument || err == domain.ErrInvalidExecContext {
			return nil, err
		}
		return nil, domain.ErrOperationFailed
	}
	defer rows.Close()

	var out []*model.CreditActivity
	for rows.Next() {
		a := &model.CreditActivity{}
		var kind string
		if err := rows.Scan(&a.ID, &a.UserID, &kind, &a.Title, &a.Description, &a.CreditsChange, &a.MinutesUsed, &a.InterviewID, &a.Timestamp); err != nil {
			return nil, domain.ErrReadDatabaseRow
		}
		a.Kind = model.ActivityKind(kind)
		out = append(out, a)
	}
	if err := rows.Err(); err != nil {
		return nil, domain.ErrReadDatabaseRow
	}
	return out, nil
}

func (r *activityRepo) CountByUser(ctx context.Context, tx repository.Tx, userID string) (int, error) {
	const q = `SELECT COUNT(*) FROM credit_activities WHERE user_id=$1;`
	row, err := pickRow(ctx, r.pool, tx, q, userID)
	if err != nil {
		return 0, err
	}
	var n int
	if err := row.Scan(&n); err != nil {
		return 0, domain.ErrReadDatabaseRow
	}
	return n, nil
}
