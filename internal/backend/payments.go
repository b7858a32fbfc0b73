package backend

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"github.com/kirinyoku/cine-go/internal/metrics"
)

// VerifyRequest carries the payment provider's callback fields back to the
// backend for signature verification, along with the booking context the
// backend needs to cross-check the charge.
type VerifyRequest struct {
	RazorpayOrderID   string   `json:"razorpay_order_id"`
	RazorpayPaymentID string   `json:"razorpay_payment_id"`
	RazorpaySignature string   `json:"razorpay_signature"`
	Seats             []string `json:"seats"`
	ScreenID          string   `json:"screenId"`
	Amount            int64    `json:"amount"`
}

// BookingRequest asks the backend to commit the seats for a verified payment.
type BookingRequest struct {
	ScreenID    string   `json:"screenId"`
	Seats       []string `json:"seats"`
	TotalAmount int64    `json:"totalAmount"`
	PaymentID   string   `json:"paymentId"`
	IsConfirmed bool     `json:"isConfirmed"`
}

// CreateOrder registers a payment order for the given amount and returns
// the provider order ID the checkout widget must be opened with.
//
// Returns:
//   - error: backend.ErrOrderRejected if the backend answered but refused
//     the order.
//   - error: backend.ErrUnavailable on transport failure.
func (c *Client) CreateOrder(ctx context.Context, token string, amount int64) (string, error) {
	const op = "backend.Client.CreateOrder"

	var out struct {
		Success bool `json:"success"`
		Order   struct {
			ID string `json:"id"`
		} `json:"order"`
	}

	body := map[string]int64{"amount": amount}
	if err := c.postJSON(ctx, "create_order", "/payment/create-order", token, body, &out); err != nil {
		return "", fmt.Errorf("%s:%w", op, err)
	}

	if !out.Success || out.Order.ID == "" {
		return "", fmt.Errorf("%s:%w", op, ErrOrderRejected)
	}

	return out.Order.ID, nil
}

// VerifyPayment submits the provider confirmation for server-side signature
// verification. Only an explicit success answer counts as verified; any
// transport failure or refusal is reported as an error.
//
// Returns:
//   - error: backend.ErrVerificationRejected if the backend refused the
//     signature.
//   - error: backend.ErrUnavailable on transport failure.
func (c *Client) VerifyPayment(ctx context.Context, token string, req VerifyRequest) error {
	const op = "backend.Client.VerifyPayment"

	var out struct {
		Success bool `json:"success"`
	}

	if err := c.postJSON(ctx, "verify_payment", "/payment/verify", token, req, &out); err != nil {
		return fmt.Errorf("%s:%w", op, err)
	}

	if !out.Success {
		return fmt.Errorf("%s:%w", op, ErrVerificationRejected)
	}

	return nil
}

// CreateBooking commits the seats on the backend after the payment was
// verified. On success the backend owns the booking; the storefront keeps
// only a local receipt.
//
// Returns:
//   - error: backend.ErrBookingRejected if the backend answered but did not
//     confirm the booking.
//   - error: backend.ErrUnavailable on transport failure.
func (c *Client) CreateBooking(ctx context.Context, token string, req BookingRequest) (string, error) {
	const op = "backend.Client.CreateBooking"

	var out struct {
		Success bool   `json:"success"`
		ID      string `json:"id"`
	}

	if err := c.postJSON(ctx, "create_booking", "/bookings/create", token, req, &out); err != nil {
		return "", fmt.Errorf("%s:%w", op, err)
	}

	if !out.Success {
		return "", fmt.Errorf("%s:%w", op, ErrBookingRejected)
	}

	return out.ID, nil
}

func (c *Client) postJSON(ctx context.Context, call, path, token string, in, out any) error {
	payload, err := json.Marshal(in)
	if err != nil {
		return fmt.Errorf("%w: %v", ErrMalformedPayload, err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+path, bytes.NewReader(payload))
	if err != nil {
		return fmt.Errorf("%w: %v", ErrUnavailable, err)
	}
	req.Header.Set("Content-Type", "application/json")

	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}

	start := time.Now()
	resp, err := c.httpClient.Do(req)
	metrics.BackendRequestDuration.WithLabelValues(call).Observe(time.Since(start).Seconds())
	if err != nil {
		return fmt.Errorf("%w: %v", ErrUnavailable, err)
	}
	defer resp.Body.Close()

	switch {
	case resp.StatusCode == http.StatusUnauthorized:
		return ErrSessionInvalid
	case resp.StatusCode >= 500:
		return fmt.Errorf("%w: status %d", ErrUnavailable, resp.StatusCode)
	}

	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("%w: %v", ErrMalformedPayload, err)
	}

	return nil
}
