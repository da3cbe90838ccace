// Package basket prices a basket of item names against a catalog and a
// policy mapping. Calculator holds no mutable state and may be shared between
// goroutines.
package basket

import (
	"sort"

	"Checkout/internal/pricing"
)

// Catalog resolves an item name to its unit price in minor currency units.
type Catalog interface {
	UnitPriceOf(name string) (int64, bool)
}

// Policies resolves an item name to its pricing policy. Absent means flat.
type Policies interface {
	PolicyOf(name string) (pricing.Kind, bool)
}

type Calculator struct {
	catalog  Catalog
	policies Policies
	set      pricing.Set
}

func NewCalculator(catalog Catalog, policies Policies, set pricing.Set) *Calculator {
	if set == nil {
		set = pricing.DefaultSet()
	}
	return &Calculator{catalog: catalog, policies: policies, set: set}
}

type Line struct {
	Item      string       `json:"item"`
	Quantity  int64        `json:"quantity"`
	UnitPrice int64        `json:"unit_price_cents"`
	Policy    pricing.Kind `json:"policy"`
	Subtotal  int64        `json:"subtotal_cents"`
}

type Quote struct {
	Lines []Line `json:"lines"`
	Total int64  `json:"total_cents"`
}

// CalculateTotal returns the basket total in minor currency units.
func (c *Calculator) CalculateTotal(items []string) (int64, error) {
	q, err := c.Quote(items)
	if err != nil {
		return 0, err
	}
	return q.Total, nil
}

// Quote prices the basket and returns one line per distinct item, sorted by
// item name. Nothing is priced if any item is unknown.
func (c *Calculator) Quote(items []string) (Quote, error) {
	if items == nil {
		return Quote{}, ErrInvalidInput
	}
	if len(items) == 0 {
		return Quote{Lines: []Line{}}, nil
	}

	if unknown := c.unknownItems(items); len(unknown) > 0 {
		return Quote{}, &UnknownItemsError{Items: unknown}
	}

	tally := Tally(items)
	q := Quote{Lines: make([]Line, 0, len(tally))}

	for item, qty := range tally {
		price, _ := c.catalog.UnitPriceOf(item)

		kind := pricing.Flat
		if c.policies != nil {
			if k, ok := c.policies.PolicyOf(item); ok {
				kind = k
			}
		}

		sub := c.set.Lookup(kind)(qty, price)
		q.Lines = append(q.Lines, Line{
			Item:      item,
			Quantity:  qty,
			UnitPrice: price,
			Policy:    kind,
			Subtotal:  sub,
		})
		q.Total += sub
	}

	sort.Slice(q.Lines, func(i, j int) bool { return q.Lines[i].Item < q.Lines[j].Item })
	return q, nil
}

func (c *Calculator) unknownItems(items []string) []string {
	var unknown []string
	seen := make(map[string]struct{})

	for _, it := range items {
		if _, dup := seen[it]; dup {
			continue
		}
		seen[it] = struct{}{}

		if _, ok := c.catalog.UnitPriceOf(it); !ok {
			unknown = append(unknown, it)
		}
	}
	return unknown
}

// Tally counts occurrences of each distinct item name.
func Tally(items []string) map[string]int64 {
	out := make(map[string]int64, len(items))
	for _, it := range items {
		out[it]++
	}
	return out
}
