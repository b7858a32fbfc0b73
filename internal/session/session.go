// Package session ties a browser to its server-side storefront state: the
// seat selection, the auth status provider, the notification queue and the
// checkout orchestrator. Sessions are addressed by a signed cookie and
// expire after a period of inactivity.
package session

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"

	"github.com/kirinyoku/cine-go/internal/auth"
	"github.com/kirinyoku/cine-go/internal/checkout"
	"github.com/kirinyoku/cine-go/internal/metrics"
	"github.com/kirinyoku/cine-go/internal/notify"
	"github.com/kirinyoku/cine-go/internal/selection"
)

var ErrInvalidToken = errors.New("invalid session token")

// Session is one browser's server-side state.
type Session struct {
	ID            string
	Selection     *selection.Store
	Auth          *auth.Provider
	Notifications *notify.Queue
	Checkout      *checkout.Orchestrator

	mu       sync.Mutex
	lastSeen time.Time
}

func (s *Session) touch() {
	s.mu.Lock()
	s.lastSeen = time.Now()
	s.mu.Unlock()
}

func (s *Session) idleSince() time.Time {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.lastSeen
}

type Config struct {
	Secret     []byte
	TTL        time.Duration
	StaleAfter time.Duration
}

// Manager creates, resolves and expires sessions. The cookie token is an
// HS256 JWT carrying only the session ID; all state stays server-side.
type Manager struct {
	cfg      Config
	verifier auth.Verifier
	deps     checkout.Deps
	logger   *slog.Logger

	mu       sync.Mutex
	sessions map[string]*Session
}

func NewManager(cfg Config, verifier auth.Verifier, deps checkout.Deps, logger *slog.Logger) *Manager {
	if cfg.TTL <= 0 {
		cfg.TTL = 12 * time.Hour
	}

	return &Manager{
		cfg:      cfg,
		verifier: verifier,
		deps:     deps,
		logger:   logger,
		sessions: make(map[string]*Session),
	}
}

// Create mints a new session and its cookie token.
func (m *Manager) Create() (*Session, string, error) {
	const op = "session.Manager.Create"

	id := uuid.NewString()

	store := selection.NewStore()
	provider := auth.NewProvider(m.verifier, m.cfg.StaleAfter)
	queue := notify.NewQueue()

	s := &Session{
		ID:            id,
		Selection:     store,
		Auth:          provider,
		Notifications: queue,
		Checkout:      checkout.NewOrchestrator(id, store, provider, queue, m.deps),
		lastSeen:      time.Now(),
	}

	token, err := m.signToken(id)
	if err != nil {
		return nil, "", fmt.Errorf("%s:%w", op, err)
	}

	m.mu.Lock()
	m.sessions[id] = s
	m.mu.Unlock()
	metrics.ActiveSessions.Inc()

	return s, token, nil
}

// Resolve returns the session a cookie token points to.
//
// Returns:
//   - error: session.ErrInvalidToken if the token does not parse, is
//     expired, or the session it names no longer exists.
func (m *Manager) Resolve(token string) (*Session, error) {
	const op = "session.Manager.Resolve"

	id, err := m.parseToken(token)
	if err != nil {
		return nil, fmt.Errorf("%s:%w", op, ErrInvalidToken)
	}

	m.mu.Lock()
	s, ok := m.sessions[id]
	m.mu.Unlock()
	if !ok {
		return nil, fmt.Errorf("%s:%w", op, ErrInvalidToken)
	}

	s.touch()
	return s, nil
}

// RunJanitor drops sessions idle longer than the TTL until ctx is done.
func (m *Manager) RunJanitor(ctx context.Context, interval time.Duration) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			m.expireIdle()
		}
	}
}

// RunAuthSweep periodically re-verifies sessions whose confirmed auth
// status has gone stale, so a revoked backend session is noticed without
// waiting for the next user action.
func (m *Manager) RunAuthSweep(ctx context.Context, interval time.Duration) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			m.sweepStale(ctx)
		}
	}
}

func (m *Manager) expireIdle() {
	cutoff := time.Now().Add(-m.cfg.TTL)

	m.mu.Lock()
	var expired []string
	for id, s := range m.sessions {
		if s.idleSince().Before(cutoff) {
			expired = append(expired, id)
		}
	}
	for _, id := range expired {
		delete(m.sessions, id)
	}
	m.mu.Unlock()

	for range expired {
		metrics.ActiveSessions.Dec()
	}
	if len(expired) > 0 {
		m.logger.Info("expired idle sessions", "count", len(expired))
	}
}

func (m *Manager) sweepStale(ctx context.Context) {
	m.mu.Lock()
	stale := make([]*Session, 0)
	for _, s := range m.sessions {
		if s.Auth.Stale() {
			stale = append(stale, s)
		}
	}
	m.mu.Unlock()

	for _, s := range stale {
		if _, err := s.Auth.Refresh(ctx); err != nil {
			m.logger.Info("auth sweep signed session out", "session_id", s.ID)
		}
	}
}

type claims struct {
	jwt.RegisteredClaims
}

func (m *Manager) signToken(id string) (string, error) {
	now := time.Now()
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims{
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   id,
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(m.cfg.TTL)),
		},
	})
	return token.SignedString(m.cfg.Secret)
}

func (m *Manager) parseToken(tokenString string) (string, error) {
	token, err := jwt.ParseWithClaims(tokenString, &claims{}, func(t *jwt.Token) (any, error) {
		if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method: %v", t.Header["alg"])
		}
		return m.cfg.Secret, nil
	})
	if err != nil || !token.Valid {
		return "", ErrInvalidToken
	}

	c, ok := token.Claims.(*claims)
	if !ok || c.Subject == "" {
		return "", ErrInvalidToken
	}

	return c.Subject, nil
}
