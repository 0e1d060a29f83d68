package payments

import (
	"context"
	"errors"
	"sync"

	"github.com/google/uuid"
)

// FakeGateway approves every charge and remembers what it processed.
// Swap in a real processor integration behind the Gateway interface.
type FakeGateway struct {
	mu      sync.Mutex
	charges []FakeCharge

	// FailWith, when set, makes every charge fail with this error.
	FailWith error
}

// FakeCharge is one charge the fake gateway processed.
type FakeCharge struct {
	Amount    int64
	Currency  string
	Reference string
}

// NewFakeGateway creates an approving fake gateway.
func NewFakeGateway() *FakeGateway {
	return &FakeGateway{}
}

// Charge approves the charge unless FailWith is set.
func (g *FakeGateway) Charge(ctx context.Context, amount int64, currency, reference string) (string, error) {
	if amount <= 0 {
		return "", errors.New("payments: amount must be positive")
	}
	g.mu.Lock()
	defer g.mu.Unlock()
	if g.FailWith != nil {
		return "", g.FailWith
	}
	g.charges = append(g.charges, FakeCharge{Amount: amount, Currency: currency, Reference: reference})
	return "tx-" + uuid.NewString(), nil
}

// Charges returns everything the gateway processed.
func (g *FakeGateway) Charges() []FakeCharge {
	g.mu.Lock()
	defer g.mu.Unlock()
	return append([]FakeCharge(nil), g.charges...)
}

var _ Gateway = (*FakeGateway)(nil)
