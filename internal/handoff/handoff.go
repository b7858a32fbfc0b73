// Package handoff preserves an in-progress seat selection across the
// login round-trip. Each session owns a single slot: saving overwrites
// any earlier snapshot, and a snapshot is consumed at most once.
package handoff

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/kirinyoku/cine-go/internal/domain"
)

// SlotStore is the single-slot persistence behind the cache. The redis
// repository implements it; tests use an in-memory map.
type SlotStore interface {
	Set(ctx context.Context, sessionID, payload string) error
	Get(ctx context.Context, sessionID string) (string, bool, error)
	Del(ctx context.Context, sessionID string) error
}

type Cache struct {
	store SlotStore
}

func NewCache(store SlotStore) *Cache {
	return &Cache{store: store}
}

// Save stores the snapshot in the session's slot, stamping SavedAt. An
// empty selection clears the slot instead; there is nothing to restore.
func (c *Cache) Save(ctx context.Context, sessionID string, snap domain.HandoffSnapshot) error {
	const op = "handoff.Cache.Save"

	if len(snap.Seats) == 0 {
		if err := c.store.Del(ctx, sessionID); err != nil {
			return fmt.Errorf("%s:%w", op, err)
		}
		return nil
	}

	snap.SavedAt = time.Now().UTC()

	payload, err := json.Marshal(snap)
	if err != nil {
		return fmt.Errorf("%s:%w", op, err)
	}

	if err := c.store.Set(ctx, sessionID, string(payload)); err != nil {
		return fmt.Errorf("%s:%w", op, err)
	}

	return nil
}

// Consume returns the saved snapshot if it belongs to the given screen
// and removes it from the slot. A snapshot for a different screen is left
// in place untouched; visiting another screen first does not destroy it.
//
// Returns:
//   - ok: false when no snapshot exists or the screen does not match.
func (c *Cache) Consume(ctx context.Context, sessionID, screenID string) (domain.HandoffSnapshot, bool, error) {
	const op = "handoff.Cache.Consume"

	payload, found, err := c.store.Get(ctx, sessionID)
	if err != nil {
		return domain.HandoffSnapshot{}, false, fmt.Errorf("%s:%w", op, err)
	}
	if !found {
		return domain.HandoffSnapshot{}, false, nil
	}

	var snap domain.HandoffSnapshot
	if err := json.Unmarshal([]byte(payload), &snap); err != nil {
		// Unreadable slot, drop it rather than poison every visit.
		_ = c.store.Del(ctx, sessionID)
		return domain.HandoffSnapshot{}, false, nil
	}

	if snap.ScreenID != screenID {
		return domain.HandoffSnapshot{}, false, nil
	}

	if err := c.store.Del(ctx, sessionID); err != nil {
		return domain.HandoffSnapshot{}, false, fmt.Errorf("%s:%w", op, err)
	}

	return snap, true, nil
}

// Clear drops the session's slot unconditionally.
func (c *Cache) Clear(ctx context.Context, sessionID string) error {
	const op = "handoff.Cache.Clear"

	if err := c.store.Del(ctx, sessionID); err != nil {
		return fmt.Errorf("%s:%w", op, err)
	}

	return nil
}
