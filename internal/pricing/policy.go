// Package pricing holds the per-item pricing policies. A policy turns a
// quantity and a unit price (minor currency units) into a subtotal and knows
// nothing about the rest of the basket.
package pricing

import (
	"errors"
	"fmt"
	"strings"
)

type Kind string

const (
	Flat             Kind = "flat"
	BuyOneGetOneFree Kind = "bogo"
	ThreeForTwo      Kind = "three_for_two"
)

var ErrUnknownKind = errors.New("unknown pricing policy")

// Kinds lists every policy kind bound by DefaultSet.
func Kinds() []Kind {
	return []Kind{Flat, BuyOneGetOneFree, ThreeForTwo}
}

// ParseKind maps a configured policy name to a Kind. An empty name means Flat.
func ParseKind(s string) (Kind, error) {
	k := Kind(strings.TrimSpace(s))
	if k == "" {
		return Flat, nil
	}
	for _, known := range Kinds() {
		if k == known {
			return k, nil
		}
	}
	return "", fmt.Errorf("%w: %q", ErrUnknownKind, s)
}

// Func computes the subtotal for quantity units priced at unitPrice.
type Func func(quantity, unitPrice int64) int64

func FlatPrice(quantity, unitPrice int64) int64 {
	return quantity * unitPrice
}

// Pairs charges one unit out of every started pair.
func Pairs(quantity, unitPrice int64) int64 {
	paid := (quantity + 1) / 2
	return paid * unitPrice
}

// NForM charges every complete group of n units as m units. The remainder is
// charged at full price.
func NForM(n, m int64) Func {
	return func(quantity, unitPrice int64) int64 {
		groups := quantity / n
		rest := quantity % n
		return (groups*m + rest) * unitPrice
	}
}

type Set map[Kind]Func

func DefaultSet() Set {
	return Set{
		Flat:             FlatPrice,
		BuyOneGetOneFree: Pairs,
		ThreeForTwo:      NForM(3, 2),
	}
}

// Lookup returns the policy bound to kind, falling back to flat pricing.
func (s Set) Lookup(kind Kind) Func {
	if fn, ok := s[kind]; ok && fn != nil {
		return fn
	}
	return FlatPrice
}
