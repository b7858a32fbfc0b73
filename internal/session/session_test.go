package session

import (
	"context"
	"io"
	"log/slog"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/kirinyoku/cine-go/internal/checkout"
	"github.com/kirinyoku/cine-go/internal/domain"
	"github.com/kirinyoku/cine-go/internal/handoff"
)

type stubVerifier struct{}

func (stubVerifier) Me(_ context.Context, _ string) (domain.UserProfile, error) {
	return domain.UserProfile{Email: "asha@example.com"}, nil
}

type stubSlotStore struct{}

func (stubSlotStore) Set(_ context.Context, _, _ string) error { return nil }

func (stubSlotStore) Get(_ context.Context, _ string) (string, bool, error) {
	return "", false, nil
}

func (stubSlotStore) Del(_ context.Context, _ string) error { return nil }

func newTestManager(secret string) *Manager {
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	return NewManager(
		Config{Secret: []byte(secret), TTL: time.Hour, StaleAfter: 5 * time.Minute},
		stubVerifier{},
		checkout.Deps{
			Handoff: handoff.NewCache(stubSlotStore{}),
			Logger:  logger,
		},
		logger,
	)
}

func TestCreateAndResolve(t *testing.T) {
	m := newTestManager("secret-1")

	s, token, err := m.Create()
	require.NoError(t, err)
	require.NotNil(t, s.Selection)
	require.NotNil(t, s.Auth)
	require.NotNil(t, s.Checkout)
	require.NotNil(t, s.Notifications)

	got, err := m.Resolve(token)
	require.NoError(t, err)
	assert.Same(t, s, got)
}

func TestResolveRejectsGarbage(t *testing.T) {
	m := newTestManager("secret-1")

	_, err := m.Resolve("not-a-jwt")
	assert.ErrorIs(t, err, ErrInvalidToken)
}

func TestResolveRejectsForeignSignature(t *testing.T) {
	m1 := newTestManager("secret-1")
	m2 := newTestManager("secret-2")

	_, token, err := m1.Create()
	require.NoError(t, err)

	_, err = m2.Resolve(token)
	assert.ErrorIs(t, err, ErrInvalidToken)
}

func TestResolveUnknownSession(t *testing.T) {
	m := newTestManager("secret-1")

	_, token, err := m.Create()
	require.NoError(t, err)

	// Same signing key, but the session is gone.
	other := newTestManager("secret-1")
	_, err = other.Resolve(token)
	assert.ErrorIs(t, err, ErrInvalidToken)
}

func TestJanitorExpiresIdleSessions(t *testing.T) {
	m := newTestManager("secret-1")
	m.cfg.TTL = 10 * time.Millisecond

	s, _, err := m.Create()
	require.NoError(t, err)

	s.mu.Lock()
	s.lastSeen = time.Now().Add(-time.Minute)
	s.mu.Unlock()

	m.expireIdle()

	m.mu.Lock()
	_, ok := m.sessions[s.ID]
	m.mu.Unlock()
	assert.False(t, ok)
}
