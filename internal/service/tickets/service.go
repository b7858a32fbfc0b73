package tickets

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/kirinyoku/cine-go/internal/domain"
	redisx "github.com/kirinyoku/cine-go/internal/redis"
	"github.com/kirinyoku/cine-go/internal/repository"
	postgresrepo "github.com/kirinyoku/cine-go/internal/repository/postgres"
	"github.com/kirinyoku/cine-go/internal/uow"
)

// Service owns the storefront's durable records: booking receipts and
// reconciliation incidents. It is the checkout orchestrator's recorder;
// writes go through a transaction whose after-commit hooks publish the
// outcome on the checkout events channel.
type Service struct {
	store  *postgresrepo.Store
	uow    *uow.UoW
	pubsub *redisx.CheckoutEventsPubSub
	logger *slog.Logger
}

func New(store *postgresrepo.Store, pubsub *redisx.CheckoutEventsPubSub, logger *slog.Logger) *Service {
	return &Service{
		store:  store,
		uow:    uow.NewUoW(store),
		pubsub: pubsub,
		logger: logger,
	}
}

// RecordReceipt persists a committed booking's receipt and, once the row
// is committed, announces the booking on the events channel.
func (s *Service) RecordReceipt(ctx context.Context, receipt *domain.BookingReceipt) error {
	const op = "service.tickets.RecordReceipt"

	err := s.uow.Do(ctx, func(ctx context.Context, tx postgresrepo.DB, after func(uow.AfterCommit)) error {
		if err := s.store.Receipts().With(tx).Insert(ctx, receipt); err != nil {
			return err
		}

		after(func(ctx context.Context) {
			ev := redisx.CheckoutEvent{
				Type:      redisx.EventBookingCommitted,
				ScreenID:  receipt.ScreenID,
				PaymentID: receipt.PaymentID,
				Amount:    receipt.TotalAmount,
			}
			if err := s.pubsub.Publish(ctx, ev); err != nil {
				s.logger.Error("checkout event publish failed", "type", ev.Type, "error", err)
			}
		})

		return nil
	})
	if err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}

	return nil
}

// RecordIncident persists a payment-captured-but-booking-failed incident
// and announces it for operational tooling.
func (s *Service) RecordIncident(ctx context.Context, inc *domain.ReconciliationIncident) error {
	const op = "service.tickets.RecordIncident"

	err := s.uow.Do(ctx, func(ctx context.Context, tx postgresrepo.DB, after func(uow.AfterCommit)) error {
		if err := s.store.Incidents().With(tx).Insert(ctx, inc); err != nil {
			return err
		}

		after(func(ctx context.Context) {
			ev := redisx.CheckoutEvent{
				Type:      redisx.EventReconcilePending,
				ScreenID:  inc.ScreenID,
				PaymentID: inc.PaymentID,
				Amount:    inc.Amount,
			}
			if err := s.pubsub.Publish(ctx, ev); err != nil {
				s.logger.Error("checkout event publish failed", "type", ev.Type, "error", err)
			}
		})

		return nil
	})
	if err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}

	return nil
}

// Receipts returns the signed-in user's booking history, newest first.
func (s *Service) Receipts(ctx context.Context, userEmail string) ([]domain.BookingReceipt, error) {
	const op = "service.tickets.Receipts"

	receipts, err := s.store.Receipts().ListByUser(ctx, userEmail)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}

	return receipts, nil
}

// OpenIncidents lists unacknowledged reconciliation incidents.
func (s *Service) OpenIncidents(ctx context.Context) ([]domain.ReconciliationIncident, error) {
	const op = "service.tickets.OpenIncidents"

	incidents, err := s.store.Incidents().ListOpen(ctx)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}

	return incidents, nil
}

// AcknowledgeIncident closes an open incident.
//
// Returns:
//   - error: tickets.ErrIncidentNotFound if the incident does not exist
//     or is already acknowledged.
func (s *Service) AcknowledgeIncident(ctx context.Context, id string) error {
	const op = "service.tickets.AcknowledgeIncident"

	if err := s.store.Incidents().Acknowledge(ctx, id); err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return fmt.Errorf("%s: %w", op, ErrIncidentNotFound)
		}

		return fmt.Errorf("%s: %w", op, err)
	}

	return nil
}
