package gateway

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/kirinyoku/cine-go/internal/domain"
)

func TestOptionsConvertsToMinorUnit(t *testing.T) {
	b := NewBuilder(Config{KeyID: "rzp_test_key", Currency: "INR", CallbackURL: "/cb"})

	opts := b.Options("order-1", 750, domain.UserProfile{
		Name:  "Asha",
		Email: "asha@example.com",
		Phone: "9999",
	})

	assert.Equal(t, "rzp_test_key", opts.Key)
	assert.Equal(t, int64(75000), opts.Amount)
	assert.Equal(t, "INR", opts.Currency)
	assert.Equal(t, "order-1", opts.OrderID)
	assert.Equal(t, "/cb", opts.CallbackURL)
	assert.Equal(t, "Asha", opts.Prefill.Name)
	assert.Equal(t, "9999", opts.Prefill.Contact)
}

func TestBuilderDefaultsCurrency(t *testing.T) {
	b := NewBuilder(Config{KeyID: "rzp_test_key"})

	opts := b.Options("order-1", 1, domain.UserProfile{})
	assert.Equal(t, "INR", opts.Currency)
}
