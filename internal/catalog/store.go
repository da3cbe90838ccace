package catalog

import (
	"context"

	"Checkout/internal/pricing"
)

type Product struct {
	Name       string       `json:"name" validate:"required"`
	PriceCents int64        `json:"price_cents" validate:"gte=0"`
	Policy     pricing.Kind `json:"policy,omitempty"`
}

type Store interface {
	Ping(ctx context.Context) error
	ListSortedByName(ctx context.Context) ([]Product, error)
	Get(ctx context.Context, name string) (Product, bool, error)
}

func NewStore() Store {
	return NewMemStore()
}
