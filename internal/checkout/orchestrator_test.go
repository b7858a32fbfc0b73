package checkout

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/kirinyoku/cine-go/internal/backend"
	"github.com/kirinyoku/cine-go/internal/domain"
	"github.com/kirinyoku/cine-go/internal/gateway"
	"github.com/kirinyoku/cine-go/internal/handoff"
	"github.com/kirinyoku/cine-go/internal/notify"
	"github.com/kirinyoku/cine-go/internal/selection"
)

type fakeBackend struct {
	orderErr   error
	verifyErr  error
	bookingErr error

	orders   int
	verifies int
	bookings int

	lastVerify  backend.VerifyRequest
	lastBooking backend.BookingRequest
}

func (f *fakeBackend) CreateOrder(_ context.Context, _ string, _ int64) (string, error) {
	f.orders++
	if f.orderErr != nil {
		return "", f.orderErr
	}
	return "order-1", nil
}

func (f *fakeBackend) VerifyPayment(_ context.Context, _ string, req backend.VerifyRequest) error {
	f.verifies++
	f.lastVerify = req
	return f.verifyErr
}

func (f *fakeBackend) CreateBooking(_ context.Context, _ string, req backend.BookingRequest) (string, error) {
	f.bookings++
	f.lastBooking = req
	if f.bookingErr != nil {
		return "", f.bookingErr
	}
	return "booking-1", nil
}

type fakeLocker struct {
	held     bool
	releases int
}

func (f *fakeLocker) Acquire(_ context.Context, _ string) (bool, error) {
	if f.held {
		return false, nil
	}
	f.held = true
	return true, nil
}

func (f *fakeLocker) Release(_ context.Context, _ string) error {
	f.held = false
	f.releases++
	return nil
}

type fakeRecorder struct {
	receipts  []*domain.BookingReceipt
	incidents []*domain.ReconciliationIncident
}

func (f *fakeRecorder) RecordReceipt(_ context.Context, r *domain.BookingReceipt) error {
	f.receipts = append(f.receipts, r)
	return nil
}

func (f *fakeRecorder) RecordIncident(_ context.Context, inc *domain.ReconciliationIncident) error {
	f.incidents = append(f.incidents, inc)
	return nil
}

type fakeAuth struct {
	profile domain.UserProfile
	err     error
}

func (f *fakeAuth) Require(_ context.Context) (domain.UserProfile, error) {
	if f.err != nil {
		return domain.UserProfile{}, f.err
	}
	return f.profile, nil
}

func (f *fakeAuth) Token() string { return "backend-token" }

type memSlotStore struct {
	slots map[string]string
}

func (m *memSlotStore) Set(_ context.Context, id, payload string) error {
	m.slots[id] = payload
	return nil
}

func (m *memSlotStore) Get(_ context.Context, id string) (string, bool, error) {
	v, ok := m.slots[id]
	return v, ok, nil
}

func (m *memSlotStore) Del(_ context.Context, id string) error {
	delete(m.slots, id)
	return nil
}

type fixture struct {
	orch     *Orchestrator
	store    *selection.Store
	backend  *fakeBackend
	locker   *fakeLocker
	recorder *fakeRecorder
	auth     *fakeAuth
	slots    *memSlotStore
	queue    *notify.Queue
}

func newFixture(t *testing.T) *fixture {
	t.Helper()

	rows := make([][]domain.Seat, 2)
	for i := range rows {
		rows[i] = make([]domain.Seat, 5)
		for j := range rows[i] {
			rows[i][j] = domain.Seat{Row: i, Col: j, Type: domain.SeatNormal, Available: true}
		}
	}
	layout := &domain.ScreenLayout{
		ScreenID:    "scr-1",
		TheaterID:   "th-1",
		SeatPricing: map[domain.SeatType]int64{domain.SeatNormal: 250},
		Rows:        rows,
	}

	store := selection.NewStore()
	store.Bind(layout)

	f := &fixture{
		store:    store,
		backend:  &fakeBackend{},
		locker:   &fakeLocker{},
		recorder: &fakeRecorder{},
		auth:     &fakeAuth{profile: domain.UserProfile{Name: "Asha", Email: "asha@example.com", Phone: "9999"}},
		slots:    &memSlotStore{slots: make(map[string]string)},
		queue:    notify.NewQueue(),
	}

	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	f.orch = NewOrchestrator("sess-1", store, f.auth, f.queue, Deps{
		Backend:  f.backend,
		Gateway:  gateway.NewBuilder(gateway.Config{KeyID: "rzp_test_key", Currency: "INR", CallbackURL: "/checkout/callback"}),
		Locker:   f.locker,
		Recorder: f.recorder,
		Handoff:  handoff.NewCache(f.slots),
		Logger:   logger,
	})

	return f
}

func (f *fixture) selectSeats(t *testing.T, labels ...string) {
	t.Helper()
	for _, l := range labels {
		_, err := f.store.Toggle(l)
		require.NoError(t, err)
	}
}

func confirmation() gateway.Confirmation {
	return gateway.Confirmation{
		RazorpayOrderID:   "order-1",
		RazorpayPaymentID: "pay-1",
		RazorpaySignature: "sig-1",
	}
}

func TestPayHappyPath(t *testing.T) {
	f := newFixture(t)
	f.selectSeats(t, "A1", "A2")

	opts, err := f.orch.Pay(context.Background())
	require.NoError(t, err)

	assert.Equal(t, "order-1", opts.OrderID)
	assert.Equal(t, int64(500*100), opts.Amount)
	assert.Equal(t, "INR", opts.Currency)
	assert.Equal(t, "asha@example.com", opts.Prefill.Email)
	assert.Equal(t, domain.StateGatewayPending, f.orch.State())

	// Selection is frozen for the whole attempt.
	_, err = f.store.Toggle("A3")
	assert.ErrorIs(t, err, selection.ErrFrozen)
}

func TestCallbackCommitsBooking(t *testing.T) {
	f := newFixture(t)
	f.selectSeats(t, "A1", "A2")

	_, err := f.orch.Pay(context.Background())
	require.NoError(t, err)

	receipt, err := f.orch.HandleCallback(context.Background(), confirmation())
	require.NoError(t, err)

	assert.Equal(t, domain.StateBookingCommitted, f.orch.State())
	assert.Equal(t, "booking-1", receipt.BookingID)
	assert.Equal(t, "pay-1", receipt.PaymentID)
	assert.Equal(t, []string{"A1", "A2"}, receipt.Seats)
	assert.Equal(t, int64(500), receipt.TotalAmount)

	assert.Equal(t, 1, f.backend.orders)
	assert.Equal(t, 1, f.backend.verifies)
	assert.Equal(t, 1, f.backend.bookings)
	assert.True(t, f.backend.lastBooking.IsConfirmed)
	assert.Equal(t, "pay-1", f.backend.lastBooking.PaymentID)
	assert.Equal(t, int64(500), f.backend.lastVerify.Amount)

	// Selection cleared, lock released, receipt recorded.
	assert.Equal(t, 0, f.store.Count())
	assert.False(t, f.locker.held)
	require.Len(t, f.recorder.receipts, 1)
	assert.Empty(t, f.recorder.incidents)
}

func TestPayUnauthenticatedSavesHandoff(t *testing.T) {
	f := newFixture(t)
	f.selectSeats(t, "A1")
	f.auth.err = errors.New("not signed in")

	_, err := f.orch.Pay(context.Background())
	assert.ErrorIs(t, err, ErrAuthRequired)

	assert.Equal(t, 0, f.backend.orders)
	assert.NotEmpty(t, f.slots.slots)
	assert.Equal(t, domain.StateIdle, f.orch.State())
}

func TestPayWithEmptySelection(t *testing.T) {
	f := newFixture(t)

	_, err := f.orch.Pay(context.Background())
	assert.ErrorIs(t, err, ErrNoSeatsSelected)
	assert.Equal(t, 0, f.backend.orders)
}

func TestPayWhileLockHeldElsewhere(t *testing.T) {
	f := newFixture(t)
	f.selectSeats(t, "A1")
	f.locker.held = true

	_, err := f.orch.Pay(context.Background())
	assert.ErrorIs(t, err, ErrPaymentInFlight)
	assert.Equal(t, 0, f.backend.orders)
}

func TestDoublePayCreatesOneOrder(t *testing.T) {
	f := newFixture(t)
	f.selectSeats(t, "A1")

	_, err := f.orch.Pay(context.Background())
	require.NoError(t, err)

	_, err = f.orch.Pay(context.Background())
	assert.ErrorIs(t, err, ErrPaymentInFlight)
	assert.Equal(t, 1, f.backend.orders)
}

func TestOrderFailureKeepsSelectionUsable(t *testing.T) {
	f := newFixture(t)
	f.selectSeats(t, "A1")
	f.backend.orderErr = backend.ErrUnavailable

	_, err := f.orch.Pay(context.Background())
	assert.ErrorIs(t, err, ErrOrderNotCreated)
	assert.Equal(t, domain.StateOrderFailed, f.orch.State())
	assert.False(t, f.locker.held)

	// Seats survive and a retry works.
	assert.Equal(t, 1, f.store.Count())
	f.backend.orderErr = nil

	_, err = f.orch.Pay(context.Background())
	require.NoError(t, err)
}

func TestCallbackWithoutAttempt(t *testing.T) {
	f := newFixture(t)

	_, err := f.orch.HandleCallback(context.Background(), confirmation())
	assert.ErrorIs(t, err, ErrNoPendingAttempt)
	assert.Equal(t, 0, f.backend.verifies)
}

func TestCallbackWithWrongOrder(t *testing.T) {
	f := newFixture(t)
	f.selectSeats(t, "A1")

	_, err := f.orch.Pay(context.Background())
	require.NoError(t, err)

	conf := confirmation()
	conf.RazorpayOrderID = "order-other"

	_, err = f.orch.HandleCallback(context.Background(), conf)
	assert.ErrorIs(t, err, ErrNoPendingAttempt)
	assert.Equal(t, 0, f.backend.verifies)
}

func TestVerificationFailureNeverBooks(t *testing.T) {
	f := newFixture(t)
	f.selectSeats(t, "A1")
	f.backend.verifyErr = backend.ErrVerificationRejected

	_, err := f.orch.Pay(context.Background())
	require.NoError(t, err)

	_, err = f.orch.HandleCallback(context.Background(), confirmation())
	assert.ErrorIs(t, err, ErrVerificationFailed)

	assert.Equal(t, domain.StateVerificationFailed, f.orch.State())
	assert.Equal(t, 0, f.backend.bookings)
	assert.False(t, f.locker.held)

	// Selection unfrozen, seats kept.
	_, err = f.store.Toggle("A2")
	require.NoError(t, err)
}

func TestBookingFailureRaisesIncidentAndBlocks(t *testing.T) {
	f := newFixture(t)
	f.selectSeats(t, "A1", "A2")
	f.backend.bookingErr = backend.ErrBookingRejected

	_, err := f.orch.Pay(context.Background())
	require.NoError(t, err)

	_, err = f.orch.HandleCallback(context.Background(), confirmation())
	assert.ErrorIs(t, err, ErrBookingFailed)
	assert.Equal(t, domain.StateBookingFailed, f.orch.State())

	require.Len(t, f.recorder.incidents, 1)
	inc := f.recorder.incidents[0]
	assert.Equal(t, "pay-1", inc.PaymentID)
	assert.Equal(t, "order-1", inc.OrderID)
	assert.Equal(t, []string{"A1", "A2"}, inc.Seats)
	assert.Equal(t, int64(500), inc.Amount)

	// The lock stays held and further attempts are blocked.
	assert.True(t, f.locker.held)
	_, err = f.orch.Pay(context.Background())
	assert.ErrorIs(t, err, ErrReconcileRequired)

	// The sticky warning survives a drain.
	f.queue.Drain()
	assert.NotEmpty(t, f.queue.Drain())

	// Acknowledging the failure unblocks checkout.
	f.orch.AcknowledgeFailure(context.Background())
	assert.Equal(t, domain.StateIdle, f.orch.State())
	assert.False(t, f.locker.held)

	f.backend.bookingErr = nil
	_, err = f.orch.Pay(context.Background())
	require.NoError(t, err)
}

func TestDismissAbandonsAttempt(t *testing.T) {
	f := newFixture(t)
	f.selectSeats(t, "A1")

	_, err := f.orch.Pay(context.Background())
	require.NoError(t, err)

	state := f.orch.Dismiss(context.Background())
	assert.Equal(t, domain.StateGatewayAbandoned, state)
	assert.False(t, f.locker.held)

	// Seats survive the abandoned attempt and can be paid for again.
	assert.Equal(t, 1, f.store.Count())
	_, err = f.orch.Pay(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 2, f.backend.orders)
}

func TestDismissOutsideGatewayPendingIsNoop(t *testing.T) {
	f := newFixture(t)

	state := f.orch.Dismiss(context.Background())
	assert.Equal(t, domain.StateIdle, state)
	assert.Equal(t, 0, f.locker.releases)
}

func TestCallbackAfterDismissIsRejected(t *testing.T) {
	f := newFixture(t)
	f.selectSeats(t, "A1")

	_, err := f.orch.Pay(context.Background())
	require.NoError(t, err)

	f.orch.Dismiss(context.Background())

	_, err = f.orch.HandleCallback(context.Background(), confirmation())
	assert.ErrorIs(t, err, ErrNoPendingAttempt)
}
