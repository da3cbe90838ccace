package checkout

import (
	"context"
	"errors"
	"time"

	"Checkout/internal/basket"
)

var ErrReceiptExists = errors.New("receipt already exists")

type Receipt struct {
	ID         string        `json:"id"`
	ShopperID  string        `json:"shopper_id"`
	Items      []string      `json:"items"`
	Lines      []basket.Line `json:"lines"`
	TotalCents int64         `json:"total_cents"`
	CreatedAt  time.Time     `json:"created_at"`
}

type Store interface {
	Ping(ctx context.Context) error
	Create(ctx context.Context, rc Receipt) error
	Get(ctx context.Context, id string) (Receipt, bool, error)
}

func NewStore() Store {
	return NewMemStore()
}
