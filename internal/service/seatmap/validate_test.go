package seatmap

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/kirinyoku/cine-go/internal/domain"
)

func gridLayout(rows, cols int) *domain.ScreenLayout {
	grid := make([][]domain.Seat, rows)
	for i := range grid {
		grid[i] = make([]domain.Seat, cols)
		for j := range grid[i] {
			grid[i][j] = domain.Seat{Row: i, Col: j, Type: domain.SeatNormal, Available: true}
		}
	}
	return &domain.ScreenLayout{
		ScreenID:    "scr-1",
		SeatPricing: map[domain.SeatType]int64{domain.SeatNormal: 200},
		Rows:        grid,
	}
}

func TestValidateAcceptsWellFormedLayout(t *testing.T) {
	assert.NoError(t, validate(gridLayout(5, 10)))
}

func TestValidateRejectsEmptyGrid(t *testing.T) {
	l := gridLayout(5, 10)
	l.Rows = nil
	assert.Error(t, validate(l))
}

func TestValidateRejectsEmptyRow(t *testing.T) {
	l := gridLayout(5, 10)
	l.Rows[2] = nil
	assert.Error(t, validate(l))
}

func TestValidateRejectsTooManyRows(t *testing.T) {
	assert.Error(t, validate(gridLayout(27, 2)))
}

func TestValidateRejectsUnpricedSeatType(t *testing.T) {
	l := gridLayout(2, 2)
	l.Rows[1][1].Type = domain.SeatRecliner
	assert.Error(t, validate(l))
}
