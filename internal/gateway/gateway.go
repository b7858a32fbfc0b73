// Package gateway shapes the configuration handed to the hosted payment
// widget and the confirmation it posts back. The widget runs on the
// provider's side; the storefront only prepares its options and receives
// the callback.
package gateway

import "github.com/kirinyoku/cine-go/internal/domain"

// Prefill seeds the widget's contact fields from the signed-in profile.
type Prefill struct {
	Name    string `json:"name"`
	Email   string `json:"email"`
	Contact string `json:"contact"`
}

// CheckoutOptions is the widget configuration for one payment attempt.
// Amount is in the currency's minor unit (paise for INR).
type CheckoutOptions struct {
	Key         string  `json:"key"`
	Amount      int64   `json:"amount"`
	Currency    string  `json:"currency"`
	OrderID     string  `json:"order_id"`
	CallbackURL string  `json:"callback_url"`
	Prefill     Prefill `json:"prefill"`
}

// Confirmation is what the widget reports after the user completes payment.
type Confirmation struct {
	RazorpayOrderID   string `json:"razorpay_order_id" binding:"required"`
	RazorpayPaymentID string `json:"razorpay_payment_id" binding:"required"`
	RazorpaySignature string `json:"razorpay_signature" binding:"required"`
}

type Config struct {
	KeyID       string
	Currency    string
	CallbackURL string
}

// Builder produces widget options for payment attempts. It carries the
// publishable key only; the secret key never leaves the backend.
type Builder struct {
	cfg Config
}

func NewBuilder(cfg Config) *Builder {
	if cfg.Currency == "" {
		cfg.Currency = "INR"
	}
	return &Builder{cfg: cfg}
}

// Options assembles the widget configuration for an order. amount is in
// the major unit and is converted to the minor unit here, at the single
// point where the two meet.
func (b *Builder) Options(orderID string, amount int64, profile domain.UserProfile) CheckoutOptions {
	return CheckoutOptions{
		Key:         b.cfg.KeyID,
		Amount:      amount * 100,
		Currency:    b.cfg.Currency,
		OrderID:     orderID,
		CallbackURL: b.cfg.CallbackURL,
		Prefill: Prefill{
			Name:    profile.Name,
			Email:   profile.Email,
			Contact: profile.Phone,
		},
	}
}
