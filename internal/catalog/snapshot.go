package catalog

import (
	"context"
	"errors"
	"fmt"

	"github.com/go-playground/validator/v10"

	"Checkout/internal/pricing"
)

var (
	ErrInvalidProduct   = errors.New("invalid product")
	ErrDuplicateProduct = errors.New("duplicate product")
)

var validate = validator.New(validator.WithRequiredStructEnabled())

// Snapshot is the read-only catalog used for pricing. It is built once at
// startup and never mutated, so it can be shared freely.
type Snapshot struct {
	byName map[string]Product
	sorted []Product
}

func LoadSnapshot(ctx context.Context, store Store) (*Snapshot, error) {
	products, err := store.ListSortedByName(ctx)
	if err != nil {
		return nil, err
	}
	return NewSnapshot(products)
}

func NewSnapshot(products []Product) (*Snapshot, error) {
	s := &Snapshot{
		byName: make(map[string]Product, len(products)),
		sorted: make([]Product, 0, len(products)),
	}

	for _, p := range products {
		if err := validate.Struct(p); err != nil {
			return nil, fmt.Errorf("%w %q: %v", ErrInvalidProduct, p.Name, err)
		}
		if p.Policy != "" {
			kind, err := pricing.ParseKind(string(p.Policy))
			if err != nil {
				return nil, fmt.Errorf("%w %q: %v", ErrInvalidProduct, p.Name, err)
			}
			p.Policy = kind
		}
		if _, dup := s.byName[p.Name]; dup {
			return nil, fmt.Errorf("%w: %q", ErrDuplicateProduct, p.Name)
		}

		s.byName[p.Name] = p
		s.sorted = append(s.sorted, p)
	}

	sortProducts(s.sorted)
	return s, nil
}

func (s *Snapshot) UnitPriceOf(name string) (int64, bool) {
	p, ok := s.byName[name]
	return p.PriceCents, ok
}

func (s *Snapshot) PolicyOf(name string) (pricing.Kind, bool) {
	p, ok := s.byName[name]
	if !ok || p.Policy == "" {
		return "", false
	}
	return p.Policy, true
}

func (s *Snapshot) Get(name string) (Product, bool) {
	p, ok := s.byName[name]
	return p, ok
}

func (s *Snapshot) List() []Product {
	out := make([]Product, len(s.sorted))
	copy(out, s.sorted)
	return out
}

func (s *Snapshot) Len() int { return len(s.sorted) }
