package database

import (
	"context"
	"fmt"
)

const schema = `
CREATE TABLE IF NOT EXISTS owners (
	id                        SERIAL PRIMARY KEY,
	email                     TEXT NOT NULL UNIQUE,
	token                     TEXT NOT NULL UNIQUE,
	verification_code         TEXT,
	verification_code_expiry  TIMESTAMPTZ,
	created_at                TIMESTAMPTZ NOT NULL DEFAULT now()
);

CREATE TABLE IF NOT EXISTS pageviews (
	id             SERIAL PRIMARY KEY,
	owner_id       INTEGER NOT NULL REFERENCES owners(id),
	timestamp      TIMESTAMPTZ NOT NULL DEFAULT now(),
	domain         TEXT NOT NULL,
	path           TEXT NOT NULL,
	referrer       TEXT NOT NULL DEFAULT '',
	dwell_seconds  INTEGER NOT NULL DEFAULT 0,
	token          TEXT NOT NULL UNIQUE
);

CREATE INDEX IF NOT EXISTS idx_pageviews_owner_ts ON pageviews (owner_id, timestamp);
`

// EnsureSchema creates the tables on startup if they do not exist yet.
func (c *DBClient) EnsureSchema(ctx context.Context) error {
	if _, err := c.DB.ExecContext(ctx, schema); err != nil {
		return fmt.Errorf("failed to ensure schema: %w", err)
	}
	return nil
}
