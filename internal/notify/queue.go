// Package notify queues user-facing messages for a browser session.
// Ordinary notifications are delivered once; sticky ones survive reads
// until they are explicitly acknowledged, which is how the
// payment-captured-but-booking-failed warning stays on screen.
package notify

import (
	"errors"
	"sync"
	"time"

	"github.com/google/uuid"
)

var ErrNotFound = errors.New("notification not found")

type Level string

const (
	LevelInfo    Level = "info"
	LevelSuccess Level = "success"
	LevelError   Level = "error"
)

type Notification struct {
	ID        string    `json:"id"`
	Level     Level     `json:"level"`
	Message   string    `json:"message"`
	Sticky    bool      `json:"sticky"`
	CreatedAt time.Time `json:"created_at"`
}

// Queue is the per-session notification buffer.
type Queue struct {
	mu      sync.Mutex
	pending []Notification
}

func NewQueue() *Queue {
	return &Queue{}
}

// Publish appends a notification and returns it with its assigned ID.
func (q *Queue) Publish(level Level, message string, sticky bool) Notification {
	n := Notification{
		ID:        uuid.NewString(),
		Level:     level,
		Message:   message,
		Sticky:    sticky,
		CreatedAt: time.Now().UTC(),
	}

	q.mu.Lock()
	q.pending = append(q.pending, n)
	q.mu.Unlock()

	return n
}

// Drain returns everything pending. Non-sticky notifications are removed
// by the read; sticky ones keep reappearing until acknowledged.
func (q *Queue) Drain() []Notification {
	q.mu.Lock()
	defer q.mu.Unlock()

	out := make([]Notification, len(q.pending))
	copy(out, q.pending)

	kept := q.pending[:0]
	for _, n := range q.pending {
		if n.Sticky {
			kept = append(kept, n)
		}
	}
	q.pending = kept

	return out
}

// Ack removes a sticky notification by ID.
//
// Returns:
//   - error: notify.ErrNotFound if no pending notification has that ID.
func (q *Queue) Ack(id string) error {
	q.mu.Lock()
	defer q.mu.Unlock()

	for i, n := range q.pending {
		if n.ID == id {
			q.pending = append(q.pending[:i], q.pending[i+1:]...)
			return nil
		}
	}

	return ErrNotFound
}
