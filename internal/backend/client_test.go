package backend

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/kirinyoku/cine-go/internal/domain"
)

func newTestClient(t *testing.T, handler http.HandlerFunc) *Client {
	t.Helper()
	srv := httptest.NewServer(handler)
	t.Cleanup(srv.Close)
	return NewClient(Config{BaseURL: srv.URL})
}

func TestScreenLayoutDerivesPositions(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/theaters/th-1/screens/scr-1", r.URL.Path)
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{
			"screen": {
				"_id": "scr-1",
				"name": "Screen 1",
				"totalSeats": 4,
				"seatPricing": {"normal": 200, "recliner": 500},
				"layout": [
					[{"type": "normal", "available": true}, {"type": "normal", "available": false}],
					[{"type": "recliner", "available": true}, {"type": "recliner", "available": true}]
				]
			}
		}`))
	})

	layout, err := c.ScreenLayout(context.Background(), "th-1", "scr-1")
	require.NoError(t, err)

	assert.Equal(t, "scr-1", layout.ScreenID)
	assert.Equal(t, "th-1", layout.TheaterID)
	assert.Equal(t, int64(200), layout.SeatPricing[domain.SeatNormal])

	seat, ok := layout.SeatAt(1, 0)
	require.True(t, ok)
	assert.Equal(t, "B1", seat.Label())
	assert.Equal(t, domain.SeatRecliner, seat.Type)

	seat, ok = layout.SeatByLabel("A2")
	require.True(t, ok)
	assert.False(t, seat.Available)
}

func TestScreenLayoutNotFound(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusNotFound)
	})

	_, err := c.ScreenLayout(context.Background(), "th-1", "missing")
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestMeSendsBearerToken(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "Bearer tok-123", r.Header.Get("Authorization"))
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"userDetails": {"name": "Asha", "email": "asha@example.com", "phone": "9999"}}`))
	})

	profile, err := c.Me(context.Background(), "tok-123")
	require.NoError(t, err)
	assert.Equal(t, "asha@example.com", profile.Email)
}

func TestMeWithoutUserDetails(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{}`))
	})

	_, err := c.Me(context.Background(), "tok-123")
	assert.ErrorIs(t, err, ErrSessionInvalid)
}

func TestMeUnauthorized(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusUnauthorized)
	})

	_, err := c.Me(context.Background(), "expired")
	assert.ErrorIs(t, err, ErrSessionInvalid)
}

func TestCreateOrder(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodPost, r.Method)
		assert.Equal(t, "/payment/create-order", r.URL.Path)
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"success": true, "order": {"id": "order-1"}}`))
	})

	orderID, err := c.CreateOrder(context.Background(), "tok", 500)
	require.NoError(t, err)
	assert.Equal(t, "order-1", orderID)
}

func TestCreateOrderRejected(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"success": false}`))
	})

	_, err := c.CreateOrder(context.Background(), "tok", 500)
	assert.ErrorIs(t, err, ErrOrderRejected)
}

func TestVerifyPaymentRejected(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/payment/verify", r.URL.Path)
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"success": false}`))
	})

	err := c.VerifyPayment(context.Background(), "tok", VerifyRequest{
		RazorpayOrderID:   "order-1",
		RazorpayPaymentID: "pay-1",
		RazorpaySignature: "bad",
	})
	assert.ErrorIs(t, err, ErrVerificationRejected)
}

func TestCreateBooking(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/bookings/create", r.URL.Path)
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"success": true, "id": "booking-1"}`))
	})

	bookingID, err := c.CreateBooking(context.Background(), "tok", BookingRequest{
		ScreenID:    "scr-1",
		Seats:       []string{"A1"},
		TotalAmount: 200,
		PaymentID:   "pay-1",
		IsConfirmed: true,
	})
	require.NoError(t, err)
	assert.Equal(t, "booking-1", bookingID)
}

func TestBackendDown(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {}))
	srv.Close()
	c := NewClient(Config{BaseURL: srv.URL})

	_, err := c.Movies(context.Background())
	assert.ErrorIs(t, err, ErrUnavailable)
}
