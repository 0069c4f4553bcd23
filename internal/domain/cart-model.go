package domain

import (
	"strconv"
	"strings"
)

// CartProduct is what a screen hands to the cart when adding a product
type CartProduct struct {
	ID    string `json:"id"`
	Name  string `json:"name"`
	Price string `json:"price"`
	Image string `json:"image"`
}

// CartItem is one line of the cart. Price keeps the display format, e.g. "Ksh 15,000".
type CartItem struct {
	ID       string `json:"id"`
	Name     string `json:"name"`
	Price    string `json:"price"`
	Image    string `json:"image"`
	Quantity int    `json:"quantity"`
}

// CartState is the observable state of the cart store. Version grows with
// every change, so a newer state always has the larger version.
type CartState struct {
	Items       []CartItem `json:"items"`
	TotalAmount float64    `json:"total_amount"`
	TotalItems  int        `json:"total_items"`
	Loaded      bool       `json:"loaded"`
	Version     uint64     `json:"version"`
}

// ParsePrice extracts the numeric value from a formatted price string.
// "Ksh 15,000" -> 15000. Unparseable input yields 0.
func ParsePrice(price string) float64 {
	var b strings.Builder
	started := false
	for _, r := range price {
		switch {
		case r >= '0' && r <= '9', r == '.':
			started = true
			b.WriteRune(r)
		case r == '-' && !started:
			b.WriteRune(r)
		case r == ',' && started:
			// thousands separator
		case started:
			return parseNumber(b.String())
		default:
			// currency prefix or whitespace; a stray minus is dropped
			if b.Len() > 0 && !started {
				b.Reset()
			}
		}
	}
	return parseNumber(b.String())
}

func parseNumber(s string) float64 {
	v, err := strconv.ParseFloat(s, 64)
	if err != nil {
		return 0
	}
	return v
}

// TotalAmount sums parsed price times quantity over items
func TotalAmount(items []CartItem) float64 {
	var total float64
	for _, item := range items {
		total += ParsePrice(item.Price) * float64(item.Quantity)
	}
	return total
}

// TotalItems sums quantities over items
func TotalItems(items []CartItem) int {
	total := 0
	for _, item := range items {
		total += item.Quantity
	}
	return total
}
