package model

import (
	"strings"
	"time"

	"github.com/shopspring/decimal"
)

// TemporaryIDPrefix marks products synthesized at the till for an unknown
// barcode. They are never persisted unless saved through the catalog.
const TemporaryIDPrefix = "temp_"

// Product is a catalog entry. Barcode is a secondary, non-unique lookup key.
type Product struct {
	ID        string          `json:"id"`
	Name      string          `json:"name"`
	Price     decimal.Decimal `json:"price"`
	Barcode   string          `json:"barcode"`
	Image     string          `json:"image,omitempty"`
	CreatedAt time.Time       `json:"createdAt"`
}

// NewProduct validates the fields a product must carry before it is stored.
func NewProduct(name string, price decimal.Decimal, barcode, image string) (Product, error) {
	name = strings.TrimSpace(name)
	if name == "" {
		return Product{}, Validation("INVALID_NAME", "product name is required")
	}
	if !price.IsPositive() {
		return Product{}, Validation("INVALID_PRICE", "price must be greater than zero")
	}
	return Product{
		Name:    name,
		Price:   price,
		Barcode: strings.TrimSpace(barcode),
		Image:   image,
	}, nil
}

// IsTemporary reports whether the product was synthesized for an unknown barcode.
func (p Product) IsTemporary() bool {
	return IsTemporaryID(p.ID)
}

// IsTemporaryID reports whether id carries the temporary product prefix.
func IsTemporaryID(id string) bool {
	return strings.HasPrefix(id, TemporaryIDPrefix)
}
