package selection

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/kirinyoku/cine-go/internal/domain"
)

func testLayout() *domain.ScreenLayout {
	rows := make([][]domain.Seat, 3)
	for i := range rows {
		rows[i] = make([]domain.Seat, 10)
		for j := range rows[i] {
			typ := domain.SeatNormal
			if i == 2 {
				typ = domain.SeatRecliner
			}
			rows[i][j] = domain.Seat{Row: i, Col: j, Type: typ, Available: true}
		}
	}
	// B3 is taken
	rows[1][2].Available = false

	return &domain.ScreenLayout{
		ScreenID:   "scr-1",
		TheaterID:  "th-1",
		Name:       "Screen 1",
		TotalSeats: 30,
		SeatPricing: map[domain.SeatType]int64{
			domain.SeatNormal:   200,
			domain.SeatRecliner: 500,
		},
		Rows: rows,
	}
}

func TestToggleIsItsOwnInverse(t *testing.T) {
	s := NewStore()
	s.Bind(testLayout())

	selected, err := s.Toggle("A1")
	require.NoError(t, err)
	assert.True(t, selected)
	assert.Equal(t, 1, s.Count())

	selected, err = s.Toggle("A1")
	require.NoError(t, err)
	assert.False(t, selected)
	assert.Equal(t, 0, s.Count())
}

func TestToggleSeatLabels(t *testing.T) {
	s := NewStore()
	s.Bind(testLayout())

	_, err := s.Toggle("A1")
	require.NoError(t, err)
	_, err = s.Toggle("B10")
	require.NoError(t, err)

	assert.Equal(t, []string{"A1", "B10"}, s.Labels())

	_, err = s.Toggle("Z9")
	assert.ErrorIs(t, err, ErrNoSuchSeat)
}

func TestToggleUnavailableSeat(t *testing.T) {
	s := NewStore()
	s.Bind(testLayout())

	_, err := s.Toggle("B3")
	assert.ErrorIs(t, err, ErrSeatUnavailable)
	assert.Equal(t, 0, s.Count())
}

func TestToggleWithoutLayout(t *testing.T) {
	s := NewStore()

	_, err := s.Toggle("A1")
	assert.ErrorIs(t, err, ErrNoLayout)
}

func TestSelectionCap(t *testing.T) {
	s := NewStore()
	s.Bind(testLayout())

	for i := 1; i <= MaxSeats; i++ {
		_, err := s.Toggle(domain.SeatLabel(0, i-1))
		require.NoError(t, err)
	}

	_, err := s.Toggle("B1")
	assert.ErrorIs(t, err, ErrSelectionLimit)
	assert.Equal(t, MaxSeats, s.Count())

	// Deselecting still works at the cap.
	selected, err := s.Toggle("A1")
	require.NoError(t, err)
	assert.False(t, selected)

	_, err = s.Toggle("B1")
	require.NoError(t, err)
}

func TestTotalsUseCapturedPrices(t *testing.T) {
	s := NewStore()
	layout := testLayout()
	s.Bind(layout)

	_, err := s.Toggle("A1")
	require.NoError(t, err)
	_, err = s.Toggle("C1")
	require.NoError(t, err)

	// Repricing after selection must not change what was captured.
	layout.SeatPricing[domain.SeatNormal] = 999

	totals := s.Totals()
	assert.Equal(t, int64(700), totals.GrandTotal)
	assert.Equal(t, 1, totals.PerType[domain.SeatNormal].Count)
	assert.Equal(t, int64(200), totals.PerType[domain.SeatNormal].Subtotal)
	assert.Equal(t, int64(500), totals.PerType[domain.SeatRecliner].Subtotal)
}

func TestBindKeepsSelectionForSameScreen(t *testing.T) {
	s := NewStore()
	s.Bind(testLayout())

	_, err := s.Toggle("A1")
	require.NoError(t, err)

	s.Bind(testLayout())
	assert.Equal(t, 1, s.Count())
}

func TestBindDiscardsSelectionForOtherScreen(t *testing.T) {
	s := NewStore()
	s.Bind(testLayout())

	_, err := s.Toggle("A1")
	require.NoError(t, err)

	other := testLayout()
	other.ScreenID = "scr-2"
	s.Bind(other)

	assert.Equal(t, 0, s.Count())
}

func TestFreezeBlocksToggles(t *testing.T) {
	s := NewStore()
	s.Bind(testLayout())

	_, err := s.Toggle("A1")
	require.NoError(t, err)

	s.Freeze()
	_, err = s.Toggle("A2")
	assert.ErrorIs(t, err, ErrFrozen)
	_, err = s.Toggle("A1")
	assert.ErrorIs(t, err, ErrFrozen)

	s.Unfreeze()
	_, err = s.Toggle("A2")
	require.NoError(t, err)
}

func TestRestoreSkipsUnavailableAndOverCap(t *testing.T) {
	s := NewStore()
	s.Bind(testLayout())

	snap := domain.HandoffSnapshot{
		ScreenID: "scr-1",
		Seats: []domain.SelectedSeat{
			{Label: "A1", Type: domain.SeatNormal, UnitPrice: 200},
			{Label: "B3", Type: domain.SeatNormal, UnitPrice: 200}, // taken meanwhile
			{Label: "C2", Type: domain.SeatRecliner, UnitPrice: 500},
		},
	}

	restored := s.Restore(snap)
	assert.Equal(t, 2, restored)
	assert.Equal(t, []string{"A1", "C2"}, s.Labels())
}

func TestRestoreIgnoresOtherScreen(t *testing.T) {
	s := NewStore()
	s.Bind(testLayout())

	snap := domain.HandoffSnapshot{
		ScreenID: "scr-other",
		Seats:    []domain.SelectedSeat{{Label: "A1"}},
	}

	assert.Equal(t, 0, s.Restore(snap))
	assert.Equal(t, 0, s.Count())
}

func TestClearRefusedWhileFrozen(t *testing.T) {
	s := NewStore()
	s.Bind(testLayout())

	_, err := s.Toggle("A1")
	require.NoError(t, err)

	s.Freeze()
	assert.ErrorIs(t, s.Clear(), ErrFrozen)
	assert.Equal(t, 1, s.Count())

	s.Unfreeze()
	require.NoError(t, s.Clear())
	assert.Equal(t, 0, s.Count())
}

func TestResetClearsAndUnfreezes(t *testing.T) {
	s := NewStore()
	s.Bind(testLayout())

	_, err := s.Toggle("A1")
	require.NoError(t, err)
	s.Freeze()

	s.Reset()
	assert.Equal(t, 0, s.Count())

	_, err = s.Toggle("A1")
	require.NoError(t, err)
}

func TestSnapshotCopiesSelection(t *testing.T) {
	s := NewStore()
	s.Bind(testLayout())

	_, err := s.Toggle("A1")
	require.NoError(t, err)
	_, err = s.Toggle("C1")
	require.NoError(t, err)

	snap := s.Snapshot()
	assert.Equal(t, "scr-1", snap.ScreenID)
	assert.Len(t, snap.Seats, 2)
	assert.Equal(t, int64(700), snap.TotalPrice)
}
