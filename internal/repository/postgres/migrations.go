package postgres

import (
	"context"
	"fmt"
)

var schema = []string{
	`CREATE TABLE IF NOT EXISTS booking_receipts (
		id           UUID PRIMARY KEY,
		user_email   TEXT NOT NULL,
		theater_id   TEXT NOT NULL,
		screen_id    TEXT NOT NULL,
		seats        TEXT[] NOT NULL,
		total_amount BIGINT NOT NULL,
		payment_id   TEXT NOT NULL UNIQUE,
		booking_id   TEXT NOT NULL,
		created_at   TIMESTAMPTZ NOT NULL DEFAULT now()
	)`,
	`CREATE INDEX IF NOT EXISTS idx_booking_receipts_user
		ON booking_receipts (user_email, created_at DESC)`,
	`CREATE TABLE IF NOT EXISTS reconciliation_incidents (
		id              UUID PRIMARY KEY,
		user_email      TEXT NOT NULL,
		screen_id       TEXT NOT NULL,
		seats           TEXT[] NOT NULL,
		amount          BIGINT NOT NULL,
		payment_id      TEXT NOT NULL,
		order_id        TEXT NOT NULL,
		detail          TEXT NOT NULL,
		created_at      TIMESTAMPTZ NOT NULL DEFAULT now(),
		acknowledged_at TIMESTAMPTZ
	)`,
	`CREATE INDEX IF NOT EXISTS idx_reconciliation_incidents_open
		ON reconciliation_incidents (created_at) WHERE acknowledged_at IS NULL`,
}

// EnsureSchema creates the storefront's own tables if they do not exist.
// The catalog lives upstream; only receipts and reconciliation incidents
// are stored locally.
func (s *Store) EnsureSchema(ctx context.Context) error {
	const op = "postgres.Store.EnsureSchema"

	for _, stmt := range schema {
		if _, err := s.pool.Exec(ctx, stmt); err != nil {
			return fmt.Errorf("%s:%w", op, err)
		}
	}

	return nil
}
