package notify

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDrainRemovesNonSticky(t *testing.T) {
	q := NewQueue()
	q.Publish(LevelInfo, "hello", false)
	sticky := q.Publish(LevelError, "pay failed", true)

	first := q.Drain()
	require.Len(t, first, 2)

	second := q.Drain()
	require.Len(t, second, 1)
	assert.Equal(t, sticky.ID, second[0].ID)
}

func TestAckRemovesSticky(t *testing.T) {
	q := NewQueue()
	sticky := q.Publish(LevelError, "pay failed", true)

	require.NoError(t, q.Ack(sticky.ID))
	assert.Empty(t, q.Drain())
}

func TestAckUnknownID(t *testing.T) {
	q := NewQueue()
	assert.ErrorIs(t, q.Ack("nope"), ErrNotFound)
}
