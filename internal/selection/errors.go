package selection

import "errors"

var (
	ErrNoLayout        = errors.New("no screen layout bound")
	ErrNoSuchSeat      = errors.New("seat not in layout")
	ErrSeatUnavailable = errors.New("seat unavailable")
	ErrSelectionLimit  = errors.New("selection limit reached")
	ErrFrozen          = errors.New("selection frozen during checkout")
)
