package postgres

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/kirinyoku/cine-go/internal/domain"
	"github.com/kirinyoku/cine-go/internal/repository"
)

type IncidentRepo struct {
	pool *pgxpool.Pool
	db   DB
}

func (r *IncidentRepo) With(db DB) *IncidentRepo {
	cp := *r
	cp.db = db
	return &cp
}

func (r *IncidentRepo) handle() DB {
	if r.db != nil {
		return r.db
	}
	return r.pool
}

// Insert records a payment-captured-but-booking-failed incident. The row
// stays open (acknowledged_at IS NULL) until an operator acknowledges it.
func (r *IncidentRepo) Insert(ctx context.Context, inc *domain.ReconciliationIncident) error {
	const op = "postgres.IncidentRepo.Insert"

	db := r.handle()

	_, err := db.Exec(ctx,
		`INSERT INTO reconciliation_incidents
		   (id, user_email, screen_id, seats, amount, payment_id, order_id, detail, created_at)
		 VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)`,
		inc.ID,
		inc.UserEmail,
		inc.ScreenID,
		inc.Seats,
		inc.Amount,
		inc.PaymentID,
		inc.OrderID,
		inc.Detail,
		inc.CreatedAt,
	)
	if err != nil {
		return wrapDBErr(op, err)
	}

	return nil
}

// ListOpen returns unacknowledged incidents, oldest first, so the
// reconciliation queue is worked in arrival order.
func (r *IncidentRepo) ListOpen(ctx context.Context) ([]domain.ReconciliationIncident, error) {
	const op = "postgres.IncidentRepo.ListOpen"

	db := r.handle()

	rows, err := db.Query(ctx,
		`SELECT id, user_email, screen_id, seats, amount, payment_id, order_id, detail, created_at, acknowledged_at
		 FROM reconciliation_incidents
		 WHERE acknowledged_at IS NULL
		 ORDER BY created_at ASC`,
	)
	if err != nil {
		return nil, wrapDBErr(op, err)
	}
	defer rows.Close()

	var incidents []domain.ReconciliationIncident
	for rows.Next() {
		var inc domain.ReconciliationIncident
		if err := rows.Scan(
			&inc.ID,
			&inc.UserEmail,
			&inc.ScreenID,
			&inc.Seats,
			&inc.Amount,
			&inc.PaymentID,
			&inc.OrderID,
			&inc.Detail,
			&inc.CreatedAt,
			&inc.AcknowledgedAt,
		); err != nil {
			return nil, wrapDBErr(op, err)
		}
		incidents = append(incidents, inc)
	}

	if err := rows.Err(); err != nil {
		return nil, wrapDBErr(op, err)
	}

	return incidents, nil
}

// Acknowledge closes an open incident.
//
// Returns:
//   - error: repository.ErrNotFound if the incident does not exist or is
//     already acknowledged.
func (r *IncidentRepo) Acknowledge(ctx context.Context, id string) error {
	const op = "postgres.IncidentRepo.Acknowledge"

	db := r.handle()

	tag, err := db.Exec(ctx,
		`UPDATE reconciliation_incidents
		 SET acknowledged_at = now()
		 WHERE id = $1 AND acknowledged_at IS NULL`,
		id,
	)
	if err != nil {
		return wrapDBErr(op, err)
	}

	if tag.RowsAffected() == 0 {
		return fmt.Errorf("%s:%w", op, repository.ErrNotFound)
	}

	return nil
}
