package model

import "github.com/shopspring/decimal"

// CartLine is a session-local (product, quantity) pair.
type CartLine struct {
	ProductID string          `json:"productId"`
	Name      string          `json:"name"`
	UnitPrice decimal.Decimal `json:"unitPrice"`
	Quantity  int             `json:"quantity"`
	LineTotal decimal.Decimal `json:"lineTotal"`
}

// Recompute refreshes LineTotal from UnitPrice and Quantity.
func (l *CartLine) Recompute() {
	l.LineTotal = l.UnitPrice.Mul(decimal.NewFromInt(int64(l.Quantity))).Round(2)
}
