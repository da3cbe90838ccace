package catalog

import (
	"context"
	"sort"
	"sync"

	"Checkout/internal/pricing"
)

// ReferenceProducts is the catalog the memory store is seeded with.
func ReferenceProducts() []Product {
	return []Product{
		{Name: "Apple", PriceCents: 35, Policy: pricing.Flat},
		{Name: "Banana", PriceCents: 20, Policy: pricing.Flat},
		{Name: "Melon", PriceCents: 50, Policy: pricing.BuyOneGetOneFree},
		{Name: "Lime", PriceCents: 15, Policy: pricing.ThreeForTwo},
	}
}

type MemStore struct {
	mu sync.RWMutex
	m  map[string]Product
}

func NewMemStore(products ...Product) *MemStore {
	if len(products) == 0 {
		products = ReferenceProducts()
	}
	s := &MemStore{m: make(map[string]Product, len(products))}
	for _, p := range products {
		s.m[p.Name] = p
	}
	return s
}

func (s *MemStore) Ping(ctx context.Context) error { return nil }

func (s *MemStore) ListSortedByName(ctx context.Context) ([]Product, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	out := make([]Product, 0, len(s.m))
	for _, p := range s.m {
		out = append(out, p)
	}

	sortProducts(out)
	return out, nil
}

func (s *MemStore) Get(ctx context.Context, name string) (Product, bool, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	p, ok := s.m[name]
	return p, ok, nil
}

func sortProducts(ps []Product) {
	sort.Slice(ps, func(i, j int) bool { return ps[i].Name < ps[j].Name })
}
