package domain

import (
	"fmt"
	"time"
)

// SeatType classifies a seat and determines its unit price via the
// screen's pricing table. The set is open: screens may introduce
// additional types as long as the pricing table covers them.
type SeatType string

const (
	SeatNormal   SeatType = "normal"
	SeatPremium  SeatType = "premium"
	SeatRecliner SeatType = "recliner"
)

type Seat struct {
	Row       int      `json:"row"`
	Col       int      `json:"col"`
	Type      SeatType `json:"type"`
	Available bool     `json:"available"`
}

// Label returns the display identifier of the seat: row letter plus
// 1-based column number ("A1", "B10").
func (s Seat) Label() string {
	return SeatLabel(s.Row, s.Col)
}

// SeatLabel derives the display identifier for a (row, col) pair. Both
// indexes are 0-based; row 0 maps to "A", column 0 maps to "1".
func SeatLabel(row, col int) string {
	return fmt.Sprintf("%c%d", 'A'+rune(row), col+1)
}

// ScreenLayout describes a theater screen's seat grid and per-type
// pricing. It is fetched read-only; only the Available flags reflect
// backend state and are never overridden locally.
type ScreenLayout struct {
	ScreenID    string             `json:"screen_id"`
	TheaterID   string             `json:"theater_id"`
	Name        string             `json:"name"`
	TotalSeats  int                `json:"total_seats"`
	SeatPricing map[SeatType]int64 `json:"seat_pricing"`
	Rows        [][]Seat           `json:"rows"`
}

// SeatAt returns the seat at the given grid position. Rows may have
// differing lengths, so both indexes are bounds-checked.
func (l *ScreenLayout) SeatAt(row, col int) (Seat, bool) {
	if row < 0 || row >= len(l.Rows) {
		return Seat{}, false
	}
	if col < 0 || col >= len(l.Rows[row]) {
		return Seat{}, false
	}
	return l.Rows[row][col], true
}

// SeatByLabel resolves a display identifier back to the seat it was
// derived from. Label and (row, col) addressing must agree.
func (l *ScreenLayout) SeatByLabel(label string) (Seat, bool) {
	for _, row := range l.Rows {
		for _, s := range row {
			if s.Label() == label {
				return s, true
			}
		}
	}
	return Seat{}, false
}

// Price returns the unit price for a seat type from the pricing table.
func (l *ScreenLayout) Price(t SeatType) (int64, bool) {
	p, ok := l.SeatPricing[t]
	return p, ok
}

// SelectedSeat is an element of the selection store. The unit price is
// captured at selection time and never recomputed from a possibly
// changed pricing table.
type SelectedSeat struct {
	Label     string   `json:"label"`
	Row       int      `json:"row"`
	Col       int      `json:"col"`
	Type      SeatType `json:"type"`
	UnitPrice int64    `json:"unit_price"`
}

// TypeAggregate is the per-seat-type slice of the selection totals.
type TypeAggregate struct {
	Count    int   `json:"count"`
	Subtotal int64 `json:"subtotal"`
}

// SelectionTotals is derived from the selected set alone; it is never
// mutated independently.
type SelectionTotals struct {
	PerType    map[SeatType]TypeAggregate `json:"per_type"`
	GrandTotal int64                      `json:"grand_total"`
}

// HandoffSnapshot is a short-lived copy of an in-progress selection,
// persisted right before an unauthenticated user is redirected to the
// login flow and consumed exactly once on return.
type HandoffSnapshot struct {
	ScreenID   string         `json:"screen_id"`
	Seats      []SelectedSeat `json:"seats"`
	TotalPrice int64          `json:"total_price"`
	SavedAt    time.Time      `json:"saved_at"`
}

// TxState is the checkout transaction state. A booking record exists if
// and only if the transaction reached StateBookingCommitted.
type TxState string

const (
	StateIdle               TxState = "idle"
	StateOrderCreated       TxState = "order_created"
	StateGatewayPending     TxState = "gateway_pending"
	StateVerified           TxState = "verified"
	StateBookingCommitted   TxState = "booking_committed"
	StateOrderFailed        TxState = "order_failed"
	StateGatewayAbandoned   TxState = "gateway_abandoned"
	StateVerificationFailed TxState = "verification_failed"
	StateBookingFailed      TxState = "booking_failed"
)

// UserProfile is the identity snapshot held by the auth status provider
// and used to prefill the gateway widget.
type UserProfile struct {
	Name  string `json:"name"`
	Email string `json:"email"`
	Phone string `json:"phone"`
}

type Movie struct {
	ID          string   `json:"id"`
	Title       string   `json:"title"`
	Language    []string `json:"language"`
	Genre       []string `json:"genre"`
	Duration    int      `json:"duration"`
	Rating      string   `json:"rating"`
	ReleaseDate string   `json:"release_date"`
	PosterURL   string   `json:"poster_url"`
	Description string   `json:"description"`
}

type Theater struct {
	ID      string `json:"id"`
	Name    string `json:"name"`
	City    string `json:"city"`
	Address string `json:"address"`
}

type Show struct {
	ID       string  `json:"id"`
	Theater  Theater `json:"theater"`
	ScreenID string  `json:"screen_id"`
	Time     string  `json:"time"`
	Format   string  `json:"format"`
}

// BookingReceipt is the durable record of a committed booking, written
// only after the payment was verified and the backend confirmed the
// booking.
type BookingReceipt struct {
	ID          string    `json:"id"`
	UserEmail   string    `json:"user_email"`
	TheaterID   string    `json:"theater_id"`
	ScreenID    string    `json:"screen_id"`
	Seats       []string  `json:"seats"`
	TotalAmount int64     `json:"total_amount"`
	PaymentID   string    `json:"payment_id"`
	BookingID   string    `json:"booking_id"`
	CreatedAt   time.Time `json:"created_at"`
}

// ReconciliationIncident records the payment-captured-but-booking-failed
// case. Incidents stay open until an operator acknowledges them.
type ReconciliationIncident struct {
	ID             string     `json:"id"`
	UserEmail      string     `json:"user_email"`
	ScreenID       string     `json:"screen_id"`
	Seats          []string   `json:"seats"`
	Amount         int64      `json:"amount"`
	PaymentID      string     `json:"payment_id"`
	OrderID        string     `json:"order_id"`
	Detail         string     `json:"detail"`
	CreatedAt      time.Time  `json:"created_at"`
	AcknowledgedAt *time.Time `json:"acknowledged_at,omitempty"`
}
