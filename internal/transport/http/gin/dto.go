package httpgin

import (
	"time"

	"github.com/kirinyoku/cine-go/internal/domain"
	"github.com/kirinyoku/cine-go/internal/gateway"
	"github.com/kirinyoku/cine-go/internal/notify"
)

type SetTokenRequest struct {
	Token string `json:"token" binding:"required"`
}

type ToggleSeatRequest struct {
	Label string `json:"label" binding:"required"`
}

type AuthStatusResponse struct {
	Authenticated bool                `json:"authenticated"`
	Profile       *domain.UserProfile `json:"profile,omitempty"`
	CheckedAt     time.Time           `json:"checked_at"`
}

type SelectionResponse struct {
	ScreenID string                 `json:"screen_id"`
	Seats    []domain.SelectedSeat  `json:"seats"`
	Totals   domain.SelectionTotals `json:"totals"`
	State    domain.TxState         `json:"checkout_state"`
}

type ToggleSeatResponse struct {
	Selected bool                   `json:"selected"`
	Seats    []domain.SelectedSeat  `json:"seats"`
	Totals   domain.SelectionTotals `json:"totals"`
}

type ScreenResponse struct {
	Layout    *domain.ScreenLayout `json:"layout"`
	Selection SelectionResponse    `json:"selection"`
	Restored  int                  `json:"restored_seats,omitempty"`
}

type PayResponse struct {
	Options gateway.CheckoutOptions `json:"options"`
}

type CallbackResponse struct {
	Receipt *domain.BookingReceipt `json:"receipt"`
}

type CheckoutStateResponse struct {
	State domain.TxState `json:"state"`
}

type NotificationsResponse struct {
	Notifications []notify.Notification `json:"notifications"`
}

type ErrorResponse struct {
	Error string `json:"error"`
}
