package httpgin

import (
	"errors"
	"log/slog"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	swaggerFiles "github.com/swaggo/files"
	ginSwagger "github.com/swaggo/gin-swagger"

	"github.com/kirinyoku/cine-go/internal/auth"
	"github.com/kirinyoku/cine-go/internal/checkout"
	"github.com/kirinyoku/cine-go/internal/domain"
	"github.com/kirinyoku/cine-go/internal/gateway"
	"github.com/kirinyoku/cine-go/internal/handoff"
	"github.com/kirinyoku/cine-go/internal/notify"
	redisrepo "github.com/kirinyoku/cine-go/internal/repository/redis"
	"github.com/kirinyoku/cine-go/internal/selection"
	"github.com/kirinyoku/cine-go/internal/service"
	"github.com/kirinyoku/cine-go/internal/service/catalog"
	"github.com/kirinyoku/cine-go/internal/service/seatmap"
	"github.com/kirinyoku/cine-go/internal/service/tickets"
	"github.com/kirinyoku/cine-go/internal/session"
)

type RouterConfig struct {
	SessionTTL  time.Duration
	CORSOrigins []string
}

func NewRouter(
	svcs *service.Services,
	sessions *session.Manager,
	hoff *handoff.Cache,
	payLimiter *redisrepo.FixedWindowLimiter,
	cfg RouterConfig,
	logger *slog.Logger,
	middlewares ...gin.HandlerFunc,
) *gin.Engine {
	r := gin.New()

	r.Use(gin.Recovery(), LoggingMiddleware(logger), RequestIDMiddleware(), CORS(cfg.CORSOrigins))
	for _, m := range middlewares {
		if m != nil {
			r.Use(m)
		}
	}

	// Swagger UI
	r.GET("/swagger/*any", ginSwagger.WrapHandler(swaggerFiles.Handler))

	// health + metrics
	r.GET("/healthz", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "ok"})
	})
	r.GET("/metrics", gin.WrapH(promhttp.Handler()))

	// Catalog (session-free; responses are shared and cacheable)
	r.GET("/movies", handleListMovies(svcs))
	r.GET("/movies/:id", handleGetMovie(svcs))
	r.GET("/movies/:id/theaters", handleMovieTheaters(svcs))

	// Everything below is per-browser-session state.
	sess := r.Group("/", SessionMiddleware(sessions, cfg.SessionTTL))
	{
		sess.GET("/screens/:theaterID/:screenID", handleGetScreen(svcs, hoff))
		sess.POST("/screens/:theaterID/:screenID/refresh", handleRefreshScreen(svcs))

		sess.GET("/selection", handleGetSelection())
		sess.POST("/selection/toggle", handleToggleSeat(hoff))
		sess.POST("/selection/clear", handleClearSelection())

		sess.POST("/auth/token", handleSetToken())
		sess.GET("/auth/status", handleAuthStatus())
		sess.POST("/auth/refresh", handleAuthRefresh())
		sess.POST("/auth/logout", handleLogout(hoff))

		co := sess.Group("/checkout")
		{
			co.POST("/pay", RateLimitMiddleware(payLimiter), handlePay())
			co.POST("/callback", handleCallback())
			co.POST("/dismiss", handleDismiss())
			co.GET("/state", handleCheckoutState())
		}

		sess.GET("/tickets", handleListTickets(svcs))

		sess.GET("/notifications", handleNotifications())
		sess.POST("/notifications/:id/ack", handleAckNotification())
	}

	// Operational API for reconciliation.
	// TODO: put the admin group behind real operator auth before exposing it.
	admin := r.Group("/admin")
	{
		admin.GET("/incidents", handleListIncidents(svcs))
		admin.POST("/incidents/:id/ack", handleAckIncident(svcs))
	}

	return r
}

// --- Handlers with Swagger annotations ---

// @Summary  List movies
// @Success  200  {array}  domain.Movie
// @Router   /movies [get]
func handleListMovies(svcs *service.Services) gin.HandlerFunc {
	return func(c *gin.Context) {
		movies, err := svcs.Catalog.Movies(c.Request.Context())
		if err != nil {
			respondErr(c, err)
			return
		}
		writeJSONWithCache(c, http.StatusOK, movies, "public, max-age=60", true)
	}
}

// @Summary  Get movie
// @Param    id  path  string  true  "Movie ID"
// @Success  200  {object}  domain.Movie
// @Failure  404  {object}  ErrorResponse
// @Router   /movies/{id} [get]
func handleGetMovie(svcs *service.Services) gin.HandlerFunc {
	return func(c *gin.Context) {
		m, err := svcs.Catalog.Movie(c.Request.Context(), c.Param("id"))
		if err != nil {
			respondErr(c, err)
			return
		}
		writeJSONWithCache(c, http.StatusOK, m, "public, max-age=60", true)
	}
}

// @Summary  List shows for a movie grouped by theater
// @Param    id  path  string  true  "Movie ID"
// @Success  200  {array}  domain.Show
// @Router   /movies/{id}/theaters [get]
func handleMovieTheaters(svcs *service.Services) gin.HandlerFunc {
	return func(c *gin.Context) {
		shows, err := svcs.Catalog.Theaters(c.Request.Context(), c.Param("id"))
		if err != nil {
			respondErr(c, err)
			return
		}
		writeJSONWithCache(c, http.StatusOK, shows, "public, max-age=30", true)
	}
}

// @Summary  Get screen layout and bind it to the session
// @Param    theaterID  path  string  true  "Theater ID"
// @Param    screenID   path  string  true  "Screen ID"
// @Success  200  {object}  ScreenResponse
// @Failure  404  {object}  ErrorResponse
// @Failure  503  {object}  ErrorResponse "layout unavailable"
// @Router   /screens/{theaterID}/{screenID} [get]
func handleGetScreen(svcs *service.Services, hoff *handoff.Cache) gin.HandlerFunc {
	return func(c *gin.Context) {
		s := sessionFrom(c)

		layout, err := svcs.Seatmap.Layout(c.Request.Context(), c.Param("theaterID"), c.Param("screenID"))
		if err != nil {
			respondErr(c, err)
			return
		}

		s.Selection.Bind(layout)

		// A signed-in visit to the matching screen consumes the login
		// hand-off; any other screen leaves it in place.
		restored := 0
		if s.Auth.Status().Authenticated {
			if snap, ok, err := hoff.Consume(c.Request.Context(), s.ID, layout.ScreenID); err == nil && ok {
				restored = s.Selection.Restore(snap)
			}
		}

		c.JSON(http.StatusOK, ScreenResponse{
			Layout:    layout,
			Selection: selectionResponse(s),
			Restored:  restored,
		})
	}
}

// @Summary  Refetch a screen layout, bypassing the cache
// @Param    theaterID  path  string  true  "Theater ID"
// @Param    screenID   path  string  true  "Screen ID"
// @Success  200  {object}  ScreenResponse
// @Router   /screens/{theaterID}/{screenID}/refresh [post]
func handleRefreshScreen(svcs *service.Services) gin.HandlerFunc {
	return func(c *gin.Context) {
		s := sessionFrom(c)

		layout, err := svcs.Seatmap.Refresh(c.Request.Context(), c.Param("theaterID"), c.Param("screenID"))
		if err != nil {
			respondErr(c, err)
			return
		}

		s.Selection.Bind(layout)

		c.JSON(http.StatusOK, ScreenResponse{
			Layout:    layout,
			Selection: selectionResponse(s),
		})
	}
}

// @Summary  Current selection and checkout state
// @Success  200  {object}  SelectionResponse
// @Router   /selection [get]
func handleGetSelection() gin.HandlerFunc {
	return func(c *gin.Context) {
		c.JSON(http.StatusOK, selectionResponse(sessionFrom(c)))
	}
}

// @Summary  Toggle a seat
// @Param    req  body  ToggleSeatRequest  true  "payload"
// @Success  200  {object}  ToggleSeatResponse
// @Failure  401  {object}  ErrorResponse "sign in required, selection saved"
// @Failure  409  {object}  ErrorResponse "seat unavailable / limit / frozen"
// @Router   /selection/toggle [post]
func handleToggleSeat(hoff *handoff.Cache) gin.HandlerFunc {
	return func(c *gin.Context) {
		s := sessionFrom(c)

		var req ToggleSeatRequest
		if err := c.ShouldBindJSON(&req); err != nil {
			badRequest(c, err.Error())
			return
		}

		if _, err := s.Auth.Require(c.Request.Context()); err != nil {
			// Save what the user was doing, including the seat they just
			// clicked, so it survives the login round-trip.
			snap := attemptSnapshot(s.Selection, req.Label)
			if herr := hoff.Save(c.Request.Context(), s.ID, snap); herr != nil {
				_ = c.Error(herr)
			}
			c.JSON(http.StatusUnauthorized, ErrorResponse{Error: "sign in required"})
			return
		}

		selected, err := s.Selection.Toggle(req.Label)
		if err != nil {
			respondErr(c, err)
			return
		}

		c.JSON(http.StatusOK, ToggleSeatResponse{
			Selected: selected,
			Seats:    s.Selection.Selected(),
			Totals:   s.Selection.Totals(),
		})
	}
}

// @Summary  Clear the selection
// @Success  200  {object}  SelectionResponse
// @Failure  409  {object}  ErrorResponse "frozen during checkout"
// @Router   /selection/clear [post]
func handleClearSelection() gin.HandlerFunc {
	return func(c *gin.Context) {
		s := sessionFrom(c)

		if err := s.Selection.Clear(); err != nil {
			respondErr(c, err)
			return
		}

		c.JSON(http.StatusOK, selectionResponse(s))
	}
}

// @Summary  Install a backend token for this session
// @Param    req  body  SetTokenRequest  true  "payload"
// @Success  200  {object}  AuthStatusResponse
// @Failure  401  {object}  ErrorResponse
// @Router   /auth/token [post]
func handleSetToken() gin.HandlerFunc {
	return func(c *gin.Context) {
		s := sessionFrom(c)

		var req SetTokenRequest
		if err := c.ShouldBindJSON(&req); err != nil {
			badRequest(c, err.Error())
			return
		}

		st, err := s.Auth.SetToken(c.Request.Context(), req.Token)
		if err != nil {
			respondErr(c, err)
			return
		}

		c.JSON(http.StatusOK, authStatusResponse(st))
	}
}

// @Summary  Auth status snapshot
// @Success  200  {object}  AuthStatusResponse
// @Router   /auth/status [get]
func handleAuthStatus() gin.HandlerFunc {
	return func(c *gin.Context) {
		c.JSON(http.StatusOK, authStatusResponse(sessionFrom(c).Auth.Status()))
	}
}

// @Summary  Re-verify the session against the backend
// @Success  200  {object}  AuthStatusResponse
// @Router   /auth/refresh [post]
func handleAuthRefresh() gin.HandlerFunc {
	return func(c *gin.Context) {
		s := sessionFrom(c)

		// A failed refresh is a signed-out snapshot, not an HTTP error;
		// the page polls this on focus and on an interval.
		st, _ := s.Auth.Refresh(c.Request.Context())
		c.JSON(http.StatusOK, authStatusResponse(st))
	}
}

// @Summary  Sign the session out
// @Success  204
// @Router   /auth/logout [post]
func handleLogout(hoff *handoff.Cache) gin.HandlerFunc {
	return func(c *gin.Context) {
		s := sessionFrom(c)

		s.Auth.Logout()
		if err := hoff.Clear(c.Request.Context(), s.ID); err != nil {
			_ = c.Error(err)
		}

		c.Status(http.StatusNoContent)
	}
}

// @Summary  Start a payment attempt for the current selection
// @Success  200  {object}  PayResponse
// @Failure  400  {object}  ErrorResponse "no seats selected"
// @Failure  401  {object}  ErrorResponse "sign in required, selection saved"
// @Failure  409  {object}  ErrorResponse "attempt already in flight"
// @Failure  429  {object}  ErrorResponse "rate limited"
// @Failure  502  {object}  ErrorResponse "order not created"
// @Router   /checkout/pay [post]
func handlePay() gin.HandlerFunc {
	return func(c *gin.Context) {
		opts, err := sessionFrom(c).Checkout.Pay(c.Request.Context())
		if err != nil {
			respondErr(c, err)
			return
		}

		c.JSON(http.StatusOK, PayResponse{Options: opts})
	}
}

// @Summary  Gateway success callback
// @Param    req  body  gateway.Confirmation  true  "payload"
// @Success  200  {object}  CallbackResponse
// @Failure  409  {object}  ErrorResponse "no pending attempt / not verified"
// @Failure  502  {object}  ErrorResponse "booking failed after captured payment"
// @Router   /checkout/callback [post]
func handleCallback() gin.HandlerFunc {
	return func(c *gin.Context) {
		var conf gateway.Confirmation
		if err := c.ShouldBindJSON(&conf); err != nil {
			badRequest(c, err.Error())
			return
		}

		receipt, err := sessionFrom(c).Checkout.HandleCallback(c.Request.Context(), conf)
		if err != nil {
			respondErr(c, err)
			return
		}

		c.JSON(http.StatusOK, CallbackResponse{Receipt: receipt})
	}
}

// @Summary  Gateway widget dismissed without paying
// @Success  200  {object}  CheckoutStateResponse
// @Router   /checkout/dismiss [post]
func handleDismiss() gin.HandlerFunc {
	return func(c *gin.Context) {
		state := sessionFrom(c).Checkout.Dismiss(c.Request.Context())
		c.JSON(http.StatusOK, CheckoutStateResponse{State: state})
	}
}

// @Summary  Current checkout state
// @Success  200  {object}  CheckoutStateResponse
// @Router   /checkout/state [get]
func handleCheckoutState() gin.HandlerFunc {
	return func(c *gin.Context) {
		c.JSON(http.StatusOK, CheckoutStateResponse{State: sessionFrom(c).Checkout.State()})
	}
}

// @Summary  Booking history for the signed-in user
// @Success  200  {array}  domain.BookingReceipt
// @Failure  401  {object}  ErrorResponse
// @Router   /tickets [get]
func handleListTickets(svcs *service.Services) gin.HandlerFunc {
	return func(c *gin.Context) {
		s := sessionFrom(c)

		profile, err := s.Auth.Require(c.Request.Context())
		if err != nil {
			respondErr(c, err)
			return
		}

		receipts, err := svcs.Tickets.Receipts(c.Request.Context(), profile.Email)
		if err != nil {
			respondErr(c, err)
			return
		}

		c.JSON(http.StatusOK, receipts)
	}
}

// @Summary  Pending notifications
// @Success  200  {object}  NotificationsResponse
// @Router   /notifications [get]
func handleNotifications() gin.HandlerFunc {
	return func(c *gin.Context) {
		c.JSON(http.StatusOK, NotificationsResponse{
			Notifications: sessionFrom(c).Notifications.Drain(),
		})
	}
}

// @Summary  Acknowledge a sticky notification
// @Param    id  path  string  true  "Notification ID"
// @Success  204
// @Failure  404  {object}  ErrorResponse
// @Router   /notifications/{id}/ack [post]
func handleAckNotification() gin.HandlerFunc {
	return func(c *gin.Context) {
		s := sessionFrom(c)

		if err := s.Notifications.Ack(c.Param("id")); err != nil {
			respondErr(c, err)
			return
		}

		// Acknowledging the sticky booking-failure warning lifts the
		// checkout block for this session.
		s.Checkout.AcknowledgeFailure(c.Request.Context())

		c.Status(http.StatusNoContent)
	}
}

// @Summary  Open reconciliation incidents
// @Success  200  {array}  domain.ReconciliationIncident
// @Router   /admin/incidents [get]
func handleListIncidents(svcs *service.Services) gin.HandlerFunc {
	return func(c *gin.Context) {
		incidents, err := svcs.Tickets.OpenIncidents(c.Request.Context())
		if err != nil {
			respondErr(c, err)
			return
		}
		c.JSON(http.StatusOK, incidents)
	}
}

// @Summary  Acknowledge an incident
// @Param    id  path  string  true  "Incident ID"
// @Success  204
// @Failure  404  {object}  ErrorResponse
// @Router   /admin/incidents/{id}/ack [post]
func handleAckIncident(svcs *service.Services) gin.HandlerFunc {
	return func(c *gin.Context) {
		if err := svcs.Tickets.AcknowledgeIncident(c.Request.Context(), c.Param("id")); err != nil {
			respondErr(c, err)
			return
		}
		c.Status(http.StatusNoContent)
	}
}

// --- Helpers ---

func selectionResponse(s *session.Session) SelectionResponse {
	return SelectionResponse{
		ScreenID: s.Selection.ScreenID(),
		Seats:    s.Selection.Selected(),
		Totals:   s.Selection.Totals(),
		State:    s.Checkout.State(),
	}
}

func authStatusResponse(st auth.Status) AuthStatusResponse {
	resp := AuthStatusResponse{
		Authenticated: st.Authenticated,
		CheckedAt:     st.CheckedAt,
	}
	if st.Authenticated {
		p := st.Profile
		resp.Profile = &p
	}
	return resp
}

// attemptSnapshot copies the current selection plus the seat the signed-out
// user just tried to pick, so the click is not lost across the login.
func attemptSnapshot(store *selection.Store, label string) domain.HandoffSnapshot {
	snap := store.Snapshot()

	layout := store.Layout()
	if layout == nil {
		return snap
	}

	for _, picked := range snap.Seats {
		if picked.Label == label {
			return snap
		}
	}
	if len(snap.Seats) >= selection.MaxSeats {
		return snap
	}

	seat, ok := layout.SeatByLabel(label)
	if !ok || !seat.Available {
		return snap
	}

	price, _ := layout.Price(seat.Type)
	snap.Seats = append(snap.Seats, domain.SelectedSeat{
		Label:     label,
		Row:       seat.Row,
		Col:       seat.Col,
		Type:      seat.Type,
		UnitPrice: price,
	})
	snap.TotalPrice += price

	return snap
}

func badRequest(c *gin.Context, msg string) {
	c.JSON(http.StatusBadRequest, ErrorResponse{Error: msg})
}

func respondErr(c *gin.Context, err error) {
	if err == nil {
		c.Status(http.StatusNoContent)
		return
	}

	switch {
	// catalog service
	case errors.Is(err, catalog.ErrMovieNotFound):
		c.JSON(http.StatusNotFound, ErrorResponse{Error: "movie not found"})
	// seatmap service
	case errors.Is(err, seatmap.ErrScreenNotFound):
		c.JSON(http.StatusNotFound, ErrorResponse{Error: "screen not found"})
	case errors.Is(err, seatmap.ErrLayoutUnavailable):
		c.JSON(http.StatusServiceUnavailable, ErrorResponse{Error: "screen layout unavailable"})
	// selection store
	case errors.Is(err, selection.ErrNoLayout):
		c.JSON(http.StatusConflict, ErrorResponse{Error: "no screen bound to session"})
	case errors.Is(err, selection.ErrNoSuchSeat):
		c.JSON(http.StatusNotFound, ErrorResponse{Error: "seat not in layout"})
	case errors.Is(err, selection.ErrSeatUnavailable):
		c.JSON(http.StatusConflict, ErrorResponse{Error: "seat unavailable"})
	case errors.Is(err, selection.ErrSelectionLimit):
		c.JSON(http.StatusConflict, ErrorResponse{Error: "selection limit reached"})
	case errors.Is(err, selection.ErrFrozen):
		c.JSON(http.StatusConflict, ErrorResponse{Error: "selection frozen during checkout"})
	// checkout orchestrator
	case errors.Is(err, checkout.ErrAuthRequired):
		c.JSON(http.StatusUnauthorized, ErrorResponse{Error: "sign in required"})
	case errors.Is(err, checkout.ErrNoSeatsSelected):
		c.JSON(http.StatusBadRequest, ErrorResponse{Error: "no seats selected"})
	case errors.Is(err, checkout.ErrPaymentInFlight):
		c.JSON(http.StatusConflict, ErrorResponse{Error: "payment already in flight"})
	case errors.Is(err, checkout.ErrReconcileRequired):
		c.JSON(http.StatusConflict, ErrorResponse{Error: "previous booking failure pending reconciliation"})
	case errors.Is(err, checkout.ErrNoPendingAttempt):
		c.JSON(http.StatusConflict, ErrorResponse{Error: "no pending payment attempt"})
	case errors.Is(err, checkout.ErrVerificationFailed):
		c.JSON(http.StatusConflict, ErrorResponse{Error: "payment not verified"})
	case errors.Is(err, checkout.ErrOrderNotCreated):
		c.JSON(http.StatusBadGateway, ErrorResponse{Error: "payment order not created"})
	case errors.Is(err, checkout.ErrBookingFailed):
		c.JSON(http.StatusBadGateway, ErrorResponse{Error: "booking failed, payment captured; support will reconcile"})
	// auth provider
	case errors.Is(err, auth.ErrNotAuthenticated):
		c.JSON(http.StatusUnauthorized, ErrorResponse{Error: "not authenticated"})
	// tickets service
	case errors.Is(err, tickets.ErrIncidentNotFound):
		c.JSON(http.StatusNotFound, ErrorResponse{Error: "incident not found"})
	// notifications
	case errors.Is(err, notify.ErrNotFound):
		c.JSON(http.StatusNotFound, ErrorResponse{Error: "notification not found"})
	default:
		c.JSON(http.StatusInternalServerError, ErrorResponse{Error: "internal error"})
	}
}
