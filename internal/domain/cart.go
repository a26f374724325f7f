package domain

import (
	"context"

	"github.com/shopspring/decimal"
)

// CartLine is a product plus the quantity of it in the cart. Quantity is
// always >= 1 for a line held by a store.
type CartLine struct {
	Product
	Quantity int `json:"quantity"`
}

func (l CartLine) LineTotal() decimal.Decimal {
	return l.Price.Mul(decimal.NewFromInt(int64(l.Quantity)))
}

// CartState is an immutable snapshot of a cart. Lines are in first-add order.
type CartState struct {
	Lines   []CartLine `json:"items"`
	IsOpen  bool       `json:"isOpen"`
	Version uint64     `json:"version"`
}

// CartRepository persists serialized cart state under a session key.
// Load returns ErrCartNotFound when nothing has been stored for key.
type CartRepository interface {
	Load(ctx context.Context, key string) (*CartState, error)
	Save(ctx context.Context, key string, state CartState) error
	Delete(ctx context.Context, key string) error
}
