package basket

import (
	"errors"
	"strings"
)

// ErrInvalidInput is returned when no basket was supplied at all. An empty
// basket is valid.
var ErrInvalidInput = errors.New("basket must be a list of item names")

// UnknownItemsError lists every distinct item name missing from the catalog,
// in order of first appearance.
type UnknownItemsError struct {
	Items []string
}

func (e *UnknownItemsError) Error() string {
	return "Unknown items found: " + strings.Join(e.Items, ", ")
}
