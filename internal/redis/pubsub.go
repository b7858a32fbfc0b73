package redisx

import (
	"context"
	"encoding/json"
	"time"

	"github.com/redis/go-redis/v9"
)

// CheckoutEventsPubSub fans out checkout outcomes over redis so that
// operational tooling (and other storefront instances) can observe
// committed bookings and reconciliation incidents without polling.
type CheckoutEventsPubSub struct {
	rdb     *redis.Client
	channel string
}

func NewCheckoutEventsPubSub(rdb *redis.Client) *CheckoutEventsPubSub {
	return &CheckoutEventsPubSub{
		rdb:     rdb,
		channel: ChannelCheckoutEvents(),
	}
}

type CheckoutEvent struct {
	Type      string `json:"type"`
	ScreenID  string `json:"screen_id"`
	PaymentID string `json:"payment_id"`
	Amount    int64  `json:"amount"`
	TsUnix    int64  `json:"ts_unix"`
}

const (
	EventBookingCommitted = "booking_committed"
	EventReconcilePending = "reconcile_pending"
)

func (p *CheckoutEventsPubSub) Publish(ctx context.Context, ev CheckoutEvent) error {
	ev.TsUnix = time.Now().Unix()

	b, _ := json.Marshal(ev)

	return p.rdb.Publish(ctx, p.channel, b).Err()
}

func (p *CheckoutEventsPubSub) Subscribe(ctx context.Context, handler func(ctx context.Context, ev CheckoutEvent)) error {
	sub := p.rdb.Subscribe(ctx, p.channel)
	defer sub.Close()

	ch := sub.Channel(redis.WithChannelSize(256))
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case m, ok := <-ch:
			if !ok {
				return nil
			}
			var ev CheckoutEvent
			if err := json.Unmarshal([]byte(m.Payload), &ev); err == nil &&
				ev.Type != "" {
				handler(ctx, ev)
			}
		}
	}
}
