package model

import (
	"fmt"
	"time"
)

// Operation tags a quantity-changing ledger operation.
type Operation string

const (
	OperationCreate Operation = "create"
	OperationAdd    Operation = "add"
	OperationRemove Operation = "remove"
	OperationDelete Operation = "delete"
)

// String returns the string representation of Operation.
func (o Operation) String() string {
	return string(o)
}

// IsValid returns true for the four logged operations.
func (o Operation) IsValid() bool {
	switch o {
	case OperationCreate, OperationAdd, OperationRemove, OperationDelete:
		return true
	}
	return false
}

// IsDelta returns true for operations accepted by ApplyDelta.
func (o Operation) IsDelta() bool {
	return o == OperationAdd || o == OperationRemove
}

// InventoryRecord is the current stock quantity of one product.
type InventoryRecord struct {
	Quantity    int       `json:"quantity"`
	LastUpdated time.Time `json:"lastUpdated"`
}

// NewInventoryRecord rejects negative quantities.
func NewInventoryRecord(quantity int, at time.Time) (InventoryRecord, error) {
	if quantity < 0 {
		return InventoryRecord{}, Validation("INVALID_QUANTITY", fmt.Sprintf("inventory quantity cannot be negative: %d", quantity))
	}
	return InventoryRecord{Quantity: quantity, LastUpdated: at}, nil
}

// HistoryEntry is an immutable log line for a ledger operation. Quantity is the
// requested amount, not the clamped change.
type HistoryEntry struct {
	Key       string    `json:"key,omitempty"`
	ProductID string    `json:"productId"`
	Operation Operation `json:"operation"`
	Quantity  int       `json:"quantity"`
	Notes     string    `json:"notes"`
	Timestamp time.Time `json:"timestamp"`
}

// StockLevel joins a product with its current inventory record.
type StockLevel struct {
	Product  Product         `json:"product"`
	Record   InventoryRecord `json:"inventory"`
	LowStock bool            `json:"lowStock"`
}
