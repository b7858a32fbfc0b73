package backend

import "errors"

var (
	ErrUnavailable          = errors.New("backend unavailable")
	ErrNotFound             = errors.New("resource not found")
	ErrMalformedPayload     = errors.New("malformed backend payload")
	ErrSessionInvalid       = errors.New("session invalid")
	ErrOrderRejected        = errors.New("payment order rejected")
	ErrVerificationRejected = errors.New("payment verification rejected")
	ErrBookingRejected      = errors.New("booking creation rejected")
)
