// Package selection holds the per-session set of picked seats for one
// screen. The set is keyed by seat label, capped, and carries the unit
// price captured at selection time; totals are always derived from the
// set, never stored.
package selection

import (
	"fmt"
	"sync"

	"github.com/kirinyoku/cine-go/internal/domain"
)

// MaxSeats caps how many seats a single order may hold.
const MaxSeats = 10

// Store is the selection state for one browser session. All methods are
// safe for concurrent use; handlers for the same session may race on
// focus-driven refreshes.
type Store struct {
	mu     sync.Mutex
	layout *domain.ScreenLayout
	seats  map[string]domain.SelectedSeat
	order  []string
	frozen bool
}

func NewStore() *Store {
	return &Store{
		seats: make(map[string]domain.SelectedSeat),
	}
}

// Bind attaches a screen layout to the store. Binding a different screen
// discards the previous selection; rebinding the same screen keeps it,
// so a page reload does not wipe the user's picks.
func (s *Store) Bind(layout *domain.ScreenLayout) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.layout != nil && s.layout.ScreenID != layout.ScreenID {
		s.clearLocked()
	}
	s.layout = layout
}

// Layout returns the currently bound layout, or nil.
func (s *Store) Layout() *domain.ScreenLayout {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.layout
}

// ScreenID returns the bound screen's ID, or "" when nothing is bound.
func (s *Store) ScreenID() string {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.layout == nil {
		return ""
	}
	return s.layout.ScreenID
}

// Toggle flips the selection state of one seat. Selecting captures the
// seat's unit price from the pricing table; deselecting always succeeds
// regardless of the cap or the seat's current availability.
//
// Returns:
//   - selected: the seat's state after the call.
//   - error: selection.ErrFrozen while a payment attempt is in flight.
//   - error: selection.ErrNoSuchSeat if the label is not in the layout.
//   - error: selection.ErrSeatUnavailable when selecting a taken seat.
//   - error: selection.ErrSelectionLimit when the cap is reached.
func (s *Store) Toggle(label string) (bool, error) {
	const op = "selection.Store.Toggle"

	s.mu.Lock()
	defer s.mu.Unlock()

	if s.frozen {
		return false, fmt.Errorf("%s:%w", op, ErrFrozen)
	}
	if s.layout == nil {
		return false, fmt.Errorf("%s:%w", op, ErrNoLayout)
	}

	if _, ok := s.seats[label]; ok {
		s.removeLocked(label)
		return false, nil
	}

	seat, ok := s.layout.SeatByLabel(label)
	if !ok {
		return false, fmt.Errorf("%s:%w", op, ErrNoSuchSeat)
	}
	if !seat.Available {
		return false, fmt.Errorf("%s:%w", op, ErrSeatUnavailable)
	}
	if len(s.seats) >= MaxSeats {
		return false, fmt.Errorf("%s:%w", op, ErrSelectionLimit)
	}

	price, _ := s.layout.Price(seat.Type)
	s.seats[label] = domain.SelectedSeat{
		Label:     label,
		Row:       seat.Row,
		Col:       seat.Col,
		Type:      seat.Type,
		UnitPrice: price,
	}
	s.order = append(s.order, label)

	return true, nil
}

// Selected returns the picked seats in selection order.
func (s *Store) Selected() []domain.SelectedSeat {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.selectedLocked()
}

// Labels returns just the seat labels in selection order.
func (s *Store) Labels() []string {
	s.mu.Lock()
	defer s.mu.Unlock()

	labels := make([]string, len(s.order))
	copy(labels, s.order)
	return labels
}

// Count returns how many seats are selected.
func (s *Store) Count() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.seats)
}

// Totals computes per-type aggregates and the grand total from the
// captured unit prices.
func (s *Store) Totals() domain.SelectionTotals {
	s.mu.Lock()
	defer s.mu.Unlock()

	totals := domain.SelectionTotals{
		PerType: make(map[domain.SeatType]domain.TypeAggregate),
	}
	for _, seat := range s.seats {
		agg := totals.PerType[seat.Type]
		agg.Count++
		agg.Subtotal += seat.UnitPrice
		totals.PerType[seat.Type] = agg
		totals.GrandTotal += seat.UnitPrice
	}

	return totals
}

// Snapshot copies the current selection for the login hand-off. SavedAt
// is stamped by the hand-off cache when the snapshot is stored.
func (s *Store) Snapshot() domain.HandoffSnapshot {
	s.mu.Lock()
	defer s.mu.Unlock()

	snap := domain.HandoffSnapshot{
		Seats: s.selectedLocked(),
	}
	if s.layout != nil {
		snap.ScreenID = s.layout.ScreenID
	}
	for _, seat := range snap.Seats {
		snap.TotalPrice += seat.UnitPrice
	}

	return snap
}

// Restore replays a hand-off snapshot against the bound layout. Seats
// that have become unavailable, no longer exist, or would exceed the cap
// are skipped; prices are re-captured from the current pricing table.
// It reports how many seats were restored.
func (s *Store) Restore(snap domain.HandoffSnapshot) int {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.frozen || s.layout == nil || s.layout.ScreenID != snap.ScreenID {
		return 0
	}

	restored := 0
	for _, saved := range snap.Seats {
		if _, ok := s.seats[saved.Label]; ok {
			continue
		}
		if len(s.seats) >= MaxSeats {
			break
		}

		seat, ok := s.layout.SeatByLabel(saved.Label)
		if !ok || !seat.Available {
			continue
		}

		price, _ := s.layout.Price(seat.Type)
		s.seats[saved.Label] = domain.SelectedSeat{
			Label:     saved.Label,
			Row:       seat.Row,
			Col:       seat.Col,
			Type:      seat.Type,
			UnitPrice: price,
		}
		s.order = append(s.order, saved.Label)
		restored++
	}

	return restored
}

// Freeze blocks toggles for the duration of a payment attempt.
func (s *Store) Freeze() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.frozen = true
}

// Unfreeze lifts the checkout freeze after a failed or abandoned attempt.
func (s *Store) Unfreeze() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.frozen = false
}

// Clear empties the selection at the user's request. Refused while a
// payment attempt has the selection frozen.
func (s *Store) Clear() error {
	const op = "selection.Store.Clear"

	s.mu.Lock()
	defer s.mu.Unlock()

	if s.frozen {
		return fmt.Errorf("%s:%w", op, ErrFrozen)
	}
	s.clearLocked()

	return nil
}

// Reset empties the selection and lifts the freeze. Called after a
// committed booking.
func (s *Store) Reset() {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.clearLocked()
	s.frozen = false
}

func (s *Store) selectedLocked() []domain.SelectedSeat {
	out := make([]domain.SelectedSeat, 0, len(s.order))
	for _, label := range s.order {
		out = append(out, s.seats[label])
	}
	return out
}

func (s *Store) removeLocked(label string) {
	delete(s.seats, label)
	for i, l := range s.order {
		if l == label {
			s.order = append(s.order[:i], s.order[i+1:]...)
			break
		}
	}
}

func (s *Store) clearLocked() {
	s.seats = make(map[string]domain.SelectedSeat)
	s.order = nil
}
