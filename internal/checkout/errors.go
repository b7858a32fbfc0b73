package checkout

import "errors"

var (
	ErrAuthRequired       = errors.New("sign in required")
	ErrNoSeatsSelected    = errors.New("no seats selected")
	ErrPaymentInFlight    = errors.New("payment already in flight")
	ErrNoPendingAttempt   = errors.New("no pending payment attempt")
	ErrReconcileRequired  = errors.New("previous booking failure pending reconciliation")
	ErrOrderNotCreated    = errors.New("payment order not created")
	ErrVerificationFailed = errors.New("payment verification failed")
	ErrBookingFailed      = errors.New("booking failed after captured payment")
)
