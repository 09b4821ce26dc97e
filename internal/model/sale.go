package model

import (
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/shopspring/decimal"
)

// PaymentMethod is the tender used to settle a sale.
type PaymentMethod string

const (
	PaymentCash PaymentMethod = "cash"
	PaymentCard PaymentMethod = "card"
	PaymentUPI  PaymentMethod = "upi"
)

// IsValid returns true if the payment method is accepted at the till.
func (p PaymentMethod) IsValid() bool {
	switch p {
	case PaymentCash, PaymentCard, PaymentUPI:
		return true
	}
	return false
}

// SaleItem is the snapshot of a cart line stored on a sale.
type SaleItem struct {
	ProductID string          `json:"productId"`
	Name      string          `json:"name"`
	Price     decimal.Decimal `json:"price"`
	Quantity  int             `json:"quantity"`
	Total     decimal.Decimal `json:"total"`
}

// Sale is an immutable checkout record.
type Sale struct {
	ID            string          `json:"id"`
	OrderNo       string          `json:"orderNo"`
	Items         []SaleItem      `json:"items"`
	PaymentMethod PaymentMethod   `json:"paymentMethod"`
	TotalAmount   decimal.Decimal `json:"totalAmount"`
	Date          string          `json:"date"`
	Time          string          `json:"time"`
	Timestamp     time.Time       `json:"timestamp"`
}

// SaleItemFromLine snapshots a cart line.
func SaleItemFromLine(l CartLine) SaleItem {
	return SaleItem{
		ProductID: l.ProductID,
		Name:      l.Name,
		Price:     l.UnitPrice,
		Quantity:  l.Quantity,
		Total:     l.LineTotal,
	}
}

// FormatOrderNo renders n as "#" plus at least three digits.
func FormatOrderNo(n int) string {
	return fmt.Sprintf("#%03d", n)
}

// ParseOrderNo reads the counter back out of an order number like "#007".
func ParseOrderNo(orderNo string) (int, error) {
	n, err := strconv.Atoi(strings.TrimPrefix(strings.TrimSpace(orderNo), "#"))
	if err != nil {
		return 0, fmt.Errorf("invalid order number %q: %w", orderNo, err)
	}
	return n, nil
}
