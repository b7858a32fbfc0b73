// Package checkout drives a session's payment attempt through its states:
// order creation, the hosted gateway widget, server-side verification and
// the final booking commit. A booking exists upstream if and only if the
// attempt reached the committed state; captured payments whose booking
// commit failed are recorded as reconciliation incidents, never retried
// silently.
package checkout

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/kirinyoku/cine-go/internal/backend"
	"github.com/kirinyoku/cine-go/internal/domain"
	"github.com/kirinyoku/cine-go/internal/gateway"
	"github.com/kirinyoku/cine-go/internal/handoff"
	"github.com/kirinyoku/cine-go/internal/metrics"
	"github.com/kirinyoku/cine-go/internal/notify"
	"github.com/kirinyoku/cine-go/internal/selection"
)

// Backend is the slice of the upstream client the orchestrator needs.
type Backend interface {
	CreateOrder(ctx context.Context, token string, amount int64) (string, error)
	VerifyPayment(ctx context.Context, token string, req backend.VerifyRequest) error
	CreateBooking(ctx context.Context, token string, req backend.BookingRequest) (string, error)
}

// Locker serializes payment attempts per session across instances.
type Locker interface {
	Acquire(ctx context.Context, sessionID string) (bool, error)
	Release(ctx context.Context, sessionID string) error
}

// Recorder persists the durable outcome of an attempt: a receipt for a
// committed booking, an incident for a captured payment whose booking
// commit failed.
type Recorder interface {
	RecordReceipt(ctx context.Context, receipt *domain.BookingReceipt) error
	RecordIncident(ctx context.Context, inc *domain.ReconciliationIncident) error
}

// Authenticator exposes the auth state the orchestrator gates on.
type Authenticator interface {
	Require(ctx context.Context) (domain.UserProfile, error)
	Token() string
}

// Deps are the collaborators shared by every session's orchestrator.
type Deps struct {
	Backend  Backend
	Gateway  *gateway.Builder
	Locker   Locker
	Recorder Recorder
	Handoff  *handoff.Cache
	Logger   *slog.Logger
}

// attempt pins the context of one payment attempt between order creation
// and resolution. Amount and seats are captured when the order is created
// and never recomputed mid-attempt.
type attempt struct {
	orderID   string
	theaterID string
	screenID  string
	seats     []string
	amount    int64
	profile   domain.UserProfile
}

// Orchestrator is the per-session checkout state machine. All methods
// serialize on the session's mutex; the cross-instance pay lock guards
// the order-created-to-resolved window in addition.
type Orchestrator struct {
	sessionID string
	store     *selection.Store
	auth      Authenticator
	queue     *notify.Queue
	deps      Deps

	mu      sync.Mutex
	state   domain.TxState
	attempt attempt
}

func NewOrchestrator(sessionID string, store *selection.Store, auth Authenticator, queue *notify.Queue, deps Deps) *Orchestrator {
	return &Orchestrator{
		sessionID: sessionID,
		store:     store,
		auth:      auth,
		queue:     queue,
		deps:      deps,
		state:     domain.StateIdle,
	}
}

// State returns the current transaction state.
func (o *Orchestrator) State() domain.TxState {
	o.mu.Lock()
	defer o.mu.Unlock()
	return o.state
}

// Pay starts a payment attempt for the current selection.
//
// An unauthenticated session gets its selection snapshotted for the login
// hand-off before any network call is made. The selection is frozen for
// the whole attempt; the captured total is authoritative from here on.
//
// Returns:
//   - options: the gateway widget configuration to open.
//   - error: checkout.ErrAuthRequired, checkout.ErrNoSeatsSelected,
//     checkout.ErrPaymentInFlight, checkout.ErrReconcileRequired or
//     checkout.ErrOrderNotCreated.
func (o *Orchestrator) Pay(ctx context.Context) (gateway.CheckoutOptions, error) {
	const op = "checkout.Orchestrator.Pay"

	o.mu.Lock()
	defer o.mu.Unlock()

	switch o.state {
	case domain.StateOrderCreated, domain.StateGatewayPending, domain.StateVerified:
		return gateway.CheckoutOptions{}, fmt.Errorf("%s:%w", op, ErrPaymentInFlight)
	case domain.StateBookingFailed:
		return gateway.CheckoutOptions{}, fmt.Errorf("%s:%w", op, ErrReconcileRequired)
	}

	profile, err := o.auth.Require(ctx)
	if err != nil {
		if herr := o.deps.Handoff.Save(ctx, o.sessionID, o.store.Snapshot()); herr != nil {
			o.deps.Logger.Error("handoff save failed", "session_id", o.sessionID, "error", herr)
		}
		return gateway.CheckoutOptions{}, fmt.Errorf("%s:%w", op, ErrAuthRequired)
	}

	seats := o.store.Labels()
	if len(seats) == 0 {
		return gateway.CheckoutOptions{}, fmt.Errorf("%s:%w", op, ErrNoSeatsSelected)
	}

	layout := o.store.Layout()
	totals := o.store.Totals()

	ok, err := o.deps.Locker.Acquire(ctx, o.sessionID)
	if err != nil {
		return gateway.CheckoutOptions{}, fmt.Errorf("%s:%w", op, err)
	}
	if !ok {
		return gateway.CheckoutOptions{}, fmt.Errorf("%s:%w", op, ErrPaymentInFlight)
	}

	o.store.Freeze()

	orderID, err := o.deps.Backend.CreateOrder(ctx, o.auth.Token(), totals.GrandTotal)
	if err != nil {
		o.resolveLocked(ctx, domain.StateOrderFailed, "order_failed")
		o.queue.Publish(notify.LevelError, "Could not start the payment, please try again.", false)
		o.deps.Logger.Error("order creation failed", "session_id", o.sessionID, "error", err)
		return gateway.CheckoutOptions{}, fmt.Errorf("%s:%w", op, ErrOrderNotCreated)
	}

	o.attempt = attempt{
		orderID:   orderID,
		theaterID: layout.TheaterID,
		screenID:  layout.ScreenID,
		seats:     seats,
		amount:    totals.GrandTotal,
		profile:   profile,
	}
	o.state = domain.StateGatewayPending

	o.deps.Logger.Info("payment order created",
		"session_id", o.sessionID,
		"order_id", orderID,
		"amount", totals.GrandTotal,
		"seats", len(seats),
	)

	return o.deps.Gateway.Options(orderID, totals.GrandTotal, profile), nil
}

// HandleCallback processes the gateway widget's success callback: the
// confirmation is verified server-side, and only a verified payment leads
// to the booking commit. A failed verification never reaches the booking
// call; a failed booking after a verified payment raises a reconciliation
// incident and blocks further attempts until it is acknowledged.
//
// Returns:
//   - receipt: the committed booking's receipt.
//   - error: checkout.ErrNoPendingAttempt, checkout.ErrVerificationFailed
//     or checkout.ErrBookingFailed.
func (o *Orchestrator) HandleCallback(ctx context.Context, conf gateway.Confirmation) (*domain.BookingReceipt, error) {
	const op = "checkout.Orchestrator.HandleCallback"

	o.mu.Lock()
	defer o.mu.Unlock()

	if o.state != domain.StateGatewayPending || conf.RazorpayOrderID != o.attempt.orderID {
		return nil, fmt.Errorf("%s:%w", op, ErrNoPendingAttempt)
	}

	token := o.auth.Token()
	att := o.attempt

	err := o.deps.Backend.VerifyPayment(ctx, token, backend.VerifyRequest{
		RazorpayOrderID:   conf.RazorpayOrderID,
		RazorpayPaymentID: conf.RazorpayPaymentID,
		RazorpaySignature: conf.RazorpaySignature,
		Seats:             att.seats,
		ScreenID:          att.screenID,
		Amount:            att.amount,
	})
	if err != nil {
		o.resolveLocked(ctx, domain.StateVerificationFailed, "verification_failed")
		o.queue.Publish(notify.LevelError, "Payment could not be verified. If you were charged, the amount will be refunded.", false)
		o.deps.Logger.Error("payment verification failed",
			"session_id", o.sessionID,
			"order_id", att.orderID,
			"error", err,
		)
		return nil, fmt.Errorf("%s:%w", op, ErrVerificationFailed)
	}

	o.state = domain.StateVerified

	bookingID, err := o.deps.Backend.CreateBooking(ctx, token, backend.BookingRequest{
		ScreenID:    att.screenID,
		Seats:       att.seats,
		TotalAmount: att.amount,
		PaymentID:   conf.RazorpayPaymentID,
		IsConfirmed: true,
	})
	if err != nil {
		// The payment is captured. Keep the pay lock, record the incident
		// and block new attempts until an operator acknowledges it.
		o.state = domain.StateBookingFailed
		metrics.CheckoutTotal.WithLabelValues("booking_failed").Inc()

		inc := &domain.ReconciliationIncident{
			ID:        uuid.NewString(),
			UserEmail: att.profile.Email,
			ScreenID:  att.screenID,
			Seats:     att.seats,
			Amount:    att.amount,
			PaymentID: conf.RazorpayPaymentID,
			OrderID:   att.orderID,
			Detail:    err.Error(),
			CreatedAt: time.Now().UTC(),
		}
		if rerr := o.deps.Recorder.RecordIncident(ctx, inc); rerr != nil {
			o.deps.Logger.Error("incident record failed",
				"session_id", o.sessionID,
				"payment_id", conf.RazorpayPaymentID,
				"error", rerr,
			)
		}

		o.queue.Publish(notify.LevelError,
			"Your payment was received but the booking could not be completed. Support will reconcile it; do not pay again.",
			true,
		)
		o.deps.Logger.Error("booking commit failed after captured payment",
			"session_id", o.sessionID,
			"order_id", att.orderID,
			"payment_id", conf.RazorpayPaymentID,
			"error", err,
		)
		return nil, fmt.Errorf("%s:%w", op, ErrBookingFailed)
	}

	receipt := &domain.BookingReceipt{
		ID:          uuid.NewString(),
		UserEmail:   att.profile.Email,
		TheaterID:   att.theaterID,
		ScreenID:    att.screenID,
		Seats:       att.seats,
		TotalAmount: att.amount,
		PaymentID:   conf.RazorpayPaymentID,
		BookingID:   bookingID,
		CreatedAt:   time.Now().UTC(),
	}
	if rerr := o.deps.Recorder.RecordReceipt(ctx, receipt); rerr != nil {
		// The booking exists upstream; a lost local receipt is logged,
		// not surfaced as a failed checkout.
		o.deps.Logger.Error("receipt record failed",
			"session_id", o.sessionID,
			"booking_id", bookingID,
			"error", rerr,
		)
	}

	o.state = domain.StateBookingCommitted
	o.store.Reset()
	o.releaseLocked(ctx)
	metrics.CheckoutTotal.WithLabelValues("committed").Inc()

	o.queue.Publish(notify.LevelSuccess, "Booking confirmed. Enjoy the show!", false)
	o.deps.Logger.Info("booking committed",
		"session_id", o.sessionID,
		"booking_id", bookingID,
		"payment_id", conf.RazorpayPaymentID,
	)

	return receipt, nil
}

// Dismiss records that the user closed the gateway widget without paying.
// Outside the gateway-pending state it is a no-op.
func (o *Orchestrator) Dismiss(ctx context.Context) domain.TxState {
	o.mu.Lock()
	defer o.mu.Unlock()

	if o.state != domain.StateGatewayPending {
		return o.state
	}

	o.resolveLocked(ctx, domain.StateGatewayAbandoned, "gateway_abandoned")
	o.queue.Publish(notify.LevelInfo, "Payment cancelled. Your seats are still selected.", false)
	o.deps.Logger.Info("gateway dismissed", "session_id", o.sessionID, "order_id", o.attempt.orderID)

	return o.state
}

// AcknowledgeFailure clears a booking-failed block after the incident has
// been acknowledged, allowing the session to pay again.
func (o *Orchestrator) AcknowledgeFailure(ctx context.Context) {
	o.mu.Lock()
	defer o.mu.Unlock()

	if o.state != domain.StateBookingFailed {
		return
	}

	o.state = domain.StateIdle
	o.store.Unfreeze()
	o.releaseLocked(ctx)
}

// resolveLocked moves the attempt to a terminal failure state that keeps
// the selection usable: the freeze is lifted and the pay lock released.
func (o *Orchestrator) resolveLocked(ctx context.Context, state domain.TxState, outcome string) {
	o.state = state
	o.store.Unfreeze()
	o.releaseLocked(ctx)
	metrics.CheckoutTotal.WithLabelValues(outcome).Inc()
}

func (o *Orchestrator) releaseLocked(ctx context.Context) {
	if err := o.deps.Locker.Release(ctx, o.sessionID); err != nil {
		o.deps.Logger.Error("pay lock release failed", "session_id", o.sessionID, "error", err)
	}
}
