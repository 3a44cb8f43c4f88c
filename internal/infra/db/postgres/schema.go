package postgres

import (
	"context"

	"github.com/jackc/pgx/v4/pgxpool"
)

const schemaSQL = `
CREATE TABLE IF NOT EXISTS credit_plans (
  id                 TEXT PRIMARY KEY,
  name               TEXT NOT NULL,
  price_cents        BIGINT NOT NULL,
  credits            INT NOT NULL,
  minutes_per_credit DOUBLE PRECISION NOT NULL,
  features           TEXT[] NOT NULL DEFAULT '{}',
  highlighted        BOOLEAN NOT NULL DEFAULT FALSE,
  created_at         TIMESTAMPTZ NOT NULL DEFAULT NOW()
);

CREATE TABLE IF NOT EXISTS user_credits (
  id                      TEXT PRIMARY KEY,
  user_id                 TEXT NOT NULL UNIQUE,
  plan_type               TEXT NOT NULL,
  total_credits           INT NOT NULL,
  remaining_credits       INT NOT NULL CHECK (remaining_credits >= 0),
  total_minutes           DOUBLE PRECISION NOT NULL,
  minutes_used            DOUBLE PRECISION NOT NULL DEFAULT 0,
  purchase_date           TIMESTAMPTZ NOT NULL,
  expiration_date         TIMESTAMPTZ NOT NULL,
  free_sessions_remaining INT NOT NULL CHECK (free_sessions_remaining >= 0),
  expiry_notified_at      TIMESTAMPTZ
);

CREATE TABLE IF NOT EXISTS credit_activities (
  id             TEXT PRIMARY KEY,
  user_id        TEXT NOT NULL,
  kind           TEXT NOT NULL,
  title          TEXT NOT NULL,
  description    TEXT NOT NULL,
  credits_change INT NOT NULL,
  minutes_used   DOUBLE PRECISION,
  interview_id   TEXT,
  created_at     TIMESTAMPTZ NOT NULL
);
CREATE INDEX IF NOT EXISTS idx_credit_activities_user_time
  ON credit_activities (user_id, created_at DESC);

CREATE TABLE IF NOT EXISTS purchases (
  id           TEXT PRIMARY KEY,
  user_id      TEXT NOT NULL,
  plan_id      TEXT NOT NULL,
  provider     TEXT NOT NULL,
  amount_cents BIGINT NOT NULL,
  reference    TEXT NOT NULL UNIQUE,
  status       TEXT NOT NULL,
  created_at   TIMESTAMPTZ NOT NULL,
  updated_at   TIMESTAMPTZ NOT NULL,
  confirmed_at TIMESTAMPTZ
);
`

// EnsureSchema creates the credit tables when they do not exist yet.
func EnsureSchema(ctx context.Context, pool *pgxpool.Pool) error {
	_, err := pool.Exec(ctx, schemaSQL)
	return err
}
