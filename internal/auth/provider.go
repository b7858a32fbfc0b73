// Package auth tracks, per browser session, whether the user is signed in
// to the upstream backend. Status is fail-closed: the session counts as
// signed in only after the backend has confirmed the token, and any failed
// or inconclusive check drops it back to signed out.
package auth

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/kirinyoku/cine-go/internal/backend"
	"github.com/kirinyoku/cine-go/internal/domain"
)

var ErrNotAuthenticated = errors.New("not authenticated")

// Verifier confirms a bearer token against the backend and returns the
// profile it belongs to. *backend.Client satisfies it.
type Verifier interface {
	Me(ctx context.Context, token string) (domain.UserProfile, error)
}

// Status is a point-in-time snapshot of the session's auth state.
type Status struct {
	Authenticated bool
	Profile       domain.UserProfile
	CheckedAt     time.Time
}

// Provider holds the auth state for one browser session. Reads are cheap;
// a confirmed status older than staleAfter is re-verified before the next
// auth-gated action trusts it.
type Provider struct {
	verifier   Verifier
	staleAfter time.Duration

	mu            sync.Mutex
	token         string
	authenticated bool
	profile       domain.UserProfile
	checkedAt     time.Time
}

const defaultStaleAfter = 5 * time.Minute

func NewProvider(verifier Verifier, staleAfter time.Duration) *Provider {
	if staleAfter <= 0 {
		staleAfter = defaultStaleAfter
	}

	return &Provider{
		verifier:   verifier,
		staleAfter: staleAfter,
	}
}

// SetToken installs a backend token for the session and verifies it
// immediately. The session stays signed out until the check succeeds.
func (p *Provider) SetToken(ctx context.Context, token string) (Status, error) {
	const op = "auth.Provider.SetToken"

	p.mu.Lock()
	p.token = token
	p.authenticated = false
	p.profile = domain.UserProfile{}
	p.mu.Unlock()

	st, err := p.Refresh(ctx)
	if err != nil {
		return st, fmt.Errorf("%s:%w", op, err)
	}

	return st, nil
}

// Refresh re-confirms the stored token against the backend. Any error,
// including transport failures, clears the confirmed state so the session
// reads as signed out until a later check succeeds.
func (p *Provider) Refresh(ctx context.Context) (Status, error) {
	const op = "auth.Provider.Refresh"

	p.mu.Lock()
	token := p.token
	p.mu.Unlock()

	if token == "" {
		return p.markFailed(), fmt.Errorf("%s:%w", op, ErrNotAuthenticated)
	}

	profile, err := p.verifier.Me(ctx, token)
	if err != nil {
		st := p.markFailed()
		if errors.Is(err, backend.ErrSessionInvalid) {
			return st, fmt.Errorf("%s:%w", op, ErrNotAuthenticated)
		}
		return st, fmt.Errorf("%s:%w", op, err)
	}

	p.mu.Lock()
	p.authenticated = true
	p.profile = profile
	p.checkedAt = time.Now()
	st := p.snapshotLocked()
	p.mu.Unlock()

	return st, nil
}

// Status returns the current snapshot without touching the network.
func (p *Provider) Status() Status {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.snapshotLocked()
}

// Require returns the confirmed profile, re-verifying first when the last
// check is older than staleAfter. Gated actions call this instead of
// trusting a stale snapshot.
func (p *Provider) Require(ctx context.Context) (domain.UserProfile, error) {
	const op = "auth.Provider.Require"

	p.mu.Lock()
	ok := p.authenticated
	fresh := time.Since(p.checkedAt) < p.staleAfter
	profile := p.profile
	p.mu.Unlock()

	if ok && fresh {
		return profile, nil
	}

	st, err := p.Refresh(ctx)
	if err != nil {
		return domain.UserProfile{}, fmt.Errorf("%s:%w", op, ErrNotAuthenticated)
	}

	return st.Profile, nil
}

// Token returns the stored backend token for upstream calls.
func (p *Provider) Token() string {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.token
}

// Logout drops the token and the confirmed state.
func (p *Provider) Logout() {
	p.mu.Lock()
	defer p.mu.Unlock()

	p.token = ""
	p.authenticated = false
	p.profile = domain.UserProfile{}
	p.checkedAt = time.Time{}
}

// Stale reports whether the confirmed state is older than staleAfter.
// The periodic sweep uses it to decide which sessions to re-check.
func (p *Provider) Stale() bool {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.authenticated && time.Since(p.checkedAt) >= p.staleAfter
}

func (p *Provider) markFailed() Status {
	p.mu.Lock()
	defer p.mu.Unlock()

	p.authenticated = false
	p.profile = domain.UserProfile{}
	p.checkedAt = time.Now()

	return p.snapshotLocked()
}

func (p *Provider) snapshotLocked() Status {
	return Status{
		Authenticated: p.authenticated,
		Profile:       p.profile,
		CheckedAt:     p.checkedAt,
	}
}
