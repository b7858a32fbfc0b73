package httpgin

import (
	"context"
	"encoding/json"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/kirinyoku/cine-go/internal/auth"
	"github.com/kirinyoku/cine-go/internal/checkout"
	"github.com/kirinyoku/cine-go/internal/domain"
	"github.com/kirinyoku/cine-go/internal/gateway"
	"github.com/kirinyoku/cine-go/internal/handoff"
	"github.com/kirinyoku/cine-go/internal/notify"
	"github.com/kirinyoku/cine-go/internal/selection"
	"github.com/kirinyoku/cine-go/internal/session"
)

type stubVerifier struct {
	profile domain.UserProfile
	err     error
}

func (s stubVerifier) Me(_ context.Context, _ string) (domain.UserProfile, error) {
	if s.err != nil {
		return domain.UserProfile{}, s.err
	}
	return s.profile, nil
}

type memSlotStore struct {
	slots map[string]string
}

func (m *memSlotStore) Set(_ context.Context, id, payload string) error {
	m.slots[id] = payload
	return nil
}

func (m *memSlotStore) Get(_ context.Context, id string) (string, bool, error) {
	v, ok := m.slots[id]
	return v, ok, nil
}

func (m *memSlotStore) Del(_ context.Context, id string) error {
	delete(m.slots, id)
	return nil
}

func testSession(verifier auth.Verifier, hoff *handoff.Cache) *session.Session {
	store := selection.NewStore()
	provider := auth.NewProvider(verifier, time.Minute)
	queue := notify.NewQueue()
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))

	return &session.Session{
		ID:            "sess-1",
		Selection:     store,
		Auth:          provider,
		Notifications: queue,
		Checkout: checkout.NewOrchestrator("sess-1", store, provider, queue, checkout.Deps{
			Gateway: gateway.NewBuilder(gateway.Config{KeyID: "rzp_test_key"}),
			Handoff: hoff,
			Logger:  logger,
		}),
	}
}

func bindLayout(s *session.Session) {
	s.Selection.Bind(&domain.ScreenLayout{
		ScreenID:    "scr-1",
		TheaterID:   "th-1",
		SeatPricing: map[domain.SeatType]int64{domain.SeatNormal: 200},
		Rows: [][]domain.Seat{
			{
				{Row: 0, Col: 0, Type: domain.SeatNormal, Available: true},
				{Row: 0, Col: 1, Type: domain.SeatNormal, Available: true},
			},
		},
	})
}

func toggleRouter(s *session.Session, hoff *handoff.Cache) *gin.Engine {
	gin.SetMode(gin.TestMode)
	r := gin.New()
	r.POST("/selection/toggle", func(c *gin.Context) {
		c.Set(ctxSessionKey, s)
	}, handleToggleSeat(hoff))
	return r
}

func TestToggleSeatAuthenticated(t *testing.T) {
	slots := &memSlotStore{slots: make(map[string]string)}
	hoff := handoff.NewCache(slots)
	s := testSession(stubVerifier{profile: domain.UserProfile{Email: "asha@example.com"}}, hoff)
	bindLayout(s)

	_, err := s.Auth.SetToken(context.Background(), "tok")
	require.NoError(t, err)

	r := toggleRouter(s, hoff)

	w := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodPost, "/selection/toggle", strings.NewReader(`{"label": "A1"}`))
	req.Header.Set("Content-Type", "application/json")
	r.ServeHTTP(w, req)

	require.Equal(t, http.StatusOK, w.Code)

	var resp ToggleSeatResponse
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	assert.True(t, resp.Selected)
	assert.Equal(t, int64(200), resp.Totals.GrandTotal)
}

func TestToggleSeatUnauthenticatedSavesHandoff(t *testing.T) {
	slots := &memSlotStore{slots: make(map[string]string)}
	hoff := handoff.NewCache(slots)
	s := testSession(stubVerifier{err: auth.ErrNotAuthenticated}, hoff)
	bindLayout(s)

	r := toggleRouter(s, hoff)

	w := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodPost, "/selection/toggle", strings.NewReader(`{"label": "A1"}`))
	req.Header.Set("Content-Type", "application/json")
	r.ServeHTTP(w, req)

	require.Equal(t, http.StatusUnauthorized, w.Code)
	assert.Equal(t, 0, s.Selection.Count())

	// The clicked seat rides along in the saved snapshot.
	snap, ok, err := hoff.Consume(context.Background(), "sess-1", "scr-1")
	require.NoError(t, err)
	require.True(t, ok)
	require.Len(t, snap.Seats, 1)
	assert.Equal(t, "A1", snap.Seats[0].Label)
	assert.Equal(t, int64(200), snap.TotalPrice)
}

func TestToggleSeatConflict(t *testing.T) {
	slots := &memSlotStore{slots: make(map[string]string)}
	hoff := handoff.NewCache(slots)
	s := testSession(stubVerifier{profile: domain.UserProfile{Email: "asha@example.com"}}, hoff)
	bindLayout(s)

	_, err := s.Auth.SetToken(context.Background(), "tok")
	require.NoError(t, err)

	s.Selection.Freeze()

	r := toggleRouter(s, hoff)

	w := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodPost, "/selection/toggle", strings.NewReader(`{"label": "A1"}`))
	req.Header.Set("Content-Type", "application/json")
	r.ServeHTTP(w, req)

	assert.Equal(t, http.StatusConflict, w.Code)
}
