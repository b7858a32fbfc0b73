package postgres

import (
	"context"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/kirinyoku/cine-go/internal/domain"
)

type ReceiptRepo struct {
	pool *pgxpool.Pool
	db   DB
}

func (r *ReceiptRepo) With(db DB) *ReceiptRepo {
	cp := *r
	cp.db = db
	return &cp
}

func (r *ReceiptRepo) handle() DB {
	if r.db != nil {
		return r.db
	}
	return r.pool
}

// Insert persists a booking receipt. Receipts are written exactly once,
// after the backend confirmed the booking for a verified payment.
//
// Parameters:
//   - ctx: request-scoped context for cancellation and timeouts.
//   - receipt: the receipt to persist; ID must be set by the caller.
//
// Returns:
//   - error: repository.ErrConflict if a receipt with the same ID or
//     payment reference already exists.
func (r *ReceiptRepo) Insert(ctx context.Context, receipt *domain.BookingReceipt) error {
	const op = "postgres.ReceiptRepo.Insert"

	db := r.handle()

	_, err := db.Exec(ctx,
		`INSERT INTO booking_receipts
		   (id, user_email, theater_id, screen_id, seats, total_amount, payment_id, booking_id, created_at)
		 VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)`,
		receipt.ID,
		receipt.UserEmail,
		receipt.TheaterID,
		receipt.ScreenID,
		receipt.Seats,
		receipt.TotalAmount,
		receipt.PaymentID,
		receipt.BookingID,
		receipt.CreatedAt,
	)
	if err != nil {
		return wrapDBErr(op, err)
	}

	return nil
}

// ListByUser returns the receipts recorded for a user, newest first.
func (r *ReceiptRepo) ListByUser(ctx context.Context, userEmail string) ([]domain.BookingReceipt, error) {
	const op = "postgres.ReceiptRepo.ListByUser"

	db := r.handle()

	rows, err := db.Query(ctx,
		`SELECT id, user_email, theater_id, screen_id, seats, total_amount, payment_id, booking_id, created_at
		 FROM booking_receipts
		 WHERE user_email = $1
		 ORDER BY created_at DESC`,
		userEmail,
	)
	if err != nil {
		return nil, wrapDBErr(op, err)
	}
	defer rows.Close()

	var receipts []domain.BookingReceipt
	for rows.Next() {
		var rec domain.BookingReceipt
		if err := rows.Scan(
			&rec.ID,
			&rec.UserEmail,
			&rec.TheaterID,
			&rec.ScreenID,
			&rec.Seats,
			&rec.TotalAmount,
			&rec.PaymentID,
			&rec.BookingID,
			&rec.CreatedAt,
		); err != nil {
			return nil, wrapDBErr(op, err)
		}
		receipts = append(receipts, rec)
	}

	if err := rows.Err(); err != nil {
		return nil, wrapDBErr(op, err)
	}

	return receipts, nil
}
