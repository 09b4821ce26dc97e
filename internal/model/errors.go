package model

import (
	"errors"
	"fmt"
	"strings"
)

// Kind classifies an error by how the caller is expected to react.
type Kind string

const (
	// KindValidation is bad user input; the action is blocked locally.
	KindValidation Kind = "VALIDATION"
	// KindNotFound triggers a fallback flow rather than a hard failure.
	KindNotFound Kind = "NOT_FOUND"
	// KindStore is a backend failure; the operation is abandoned.
	KindStore Kind = "STORE"
	// KindPartial means the primary write stood but follow-up writes failed.
	KindPartial Kind = "PARTIAL_FAILURE"
)

// Error is a classified domain error.
type Error struct {
	Kind    Kind   `json:"kind"`
	Code    string `json:"code"`
	Message string `json:"message"`
	Err     error  `json:"-"`
}

// Error implements the error interface.
func (e *Error) Error() string {
	if e.Err != nil {
		return e.Message + ": " + e.Err.Error()
	}
	return e.Message
}

// Unwrap returns the underlying cause.
func (e *Error) Unwrap() error {
	return e.Err
}

// Is matches another *Error by code, so wrapped sentinels compare equal.
func (e *Error) Is(target error) bool {
	t, ok := target.(*Error)
	if !ok {
		return false
	}
	return e.Code == t.Code
}

// Validation creates a validation error.
func Validation(code, message string) *Error {
	return &Error{Kind: KindValidation, Code: code, Message: message}
}

// NotFound creates a not-found error.
func NotFound(code, message string) *Error {
	return &Error{Kind: KindNotFound, Code: code, Message: message}
}

// StoreFailure wraps a backend error.
func StoreFailure(code, message string, err error) *Error {
	return &Error{Kind: KindStore, Code: code, Message: message, Err: err}
}

// Common domain errors
var (
	ErrEmptyCode         = Validation("EMPTY_CODE", "scanned code is empty")
	ErrInvalidQuantity   = Validation("INVALID_QUANTITY", "quantity must be at least 1")
	ErrInvalidAmount     = Validation("INVALID_AMOUNT", "amount must be greater than zero")
	ErrInvalidOperation  = Validation("INVALID_OPERATION", "operation must be add or remove")
	ErrInvalidPayment    = Validation("INVALID_PAYMENT_METHOD", "unsupported payment method")
	ErrEmptyCart         = Validation("EMPTY_CART", "cart is empty")
	ErrOutOfStock        = Validation("OUT_OF_STOCK", "product is out of stock")
	ErrInsufficientStock = Validation("INSUFFICIENT_STOCK", "not enough stock available")
	ErrBarcodeNotFound   = NotFound("BARCODE_NOT_FOUND", "no product matches the scanned code")
	ErrProductNotFound   = NotFound("PRODUCT_NOT_FOUND", "product not found")
	ErrSaleNotFound      = NotFound("SALE_NOT_FOUND", "sale not found")
	ErrLineNotFound      = NotFound("LINE_NOT_FOUND", "product is not in the cart")
	ErrSessionNotFound   = NotFound("SESSION_NOT_FOUND", "session not found or expired")
	ErrCameraUnavailable = StoreFailure("CAMERA_UNAVAILABLE", "camera could not be started", nil)
)

// InsufficientStockError reports a rejected add that would exceed availability.
type InsufficientStockError struct {
	Available     int
	AlreadyInCart int
	// MaxAddable is available-alreadyInCart, floored at 1.
	MaxAddable int
}

// NewInsufficientStock computes the suggested maximum addable quantity.
func NewInsufficientStock(available, inCart int) *InsufficientStockError {
	maxAddable := available - inCart
	if maxAddable < 1 {
		maxAddable = 1
	}
	return &InsufficientStockError{Available: available, AlreadyInCart: inCart, MaxAddable: maxAddable}
}

// Error implements the error interface.
func (e *InsufficientStockError) Error() string {
	return fmt.Sprintf("only %d available, %d already in cart (max addable %d)", e.Available, e.AlreadyInCart, e.MaxAddable)
}

// Is lets errors.Is(err, ErrInsufficientStock) match.
func (e *InsufficientStockError) Is(target error) bool {
	return target == ErrInsufficientStock
}

// DebitFailure is one cart line whose inventory debit did not land.
type DebitFailure struct {
	ProductID string `json:"productId"`
	Name      string `json:"name"`
	Quantity  int    `json:"quantity"`
	Reason    string `json:"reason"`
}

// PartialFailureError is returned alongside a recorded sale when one or more
// debits failed. The sale is not rolled back.
type PartialFailureError struct {
	SaleID   string
	Failures []DebitFailure
}

// Error implements the error interface.
func (e *PartialFailureError) Error() string {
	ids := make([]string, len(e.Failures))
	for i, f := range e.Failures {
		ids[i] = f.ProductID
	}
	return fmt.Sprintf("sale %s recorded but inventory debit failed for: %s", e.SaleID, strings.Join(ids, ", "))
}

// KindOf returns the Kind of err, or KindStore for unclassified errors.
func KindOf(err error) Kind {
	var de *Error
	if errors.As(err, &de) {
		return de.Kind
	}
	var ise *InsufficientStockError
	if errors.As(err, &ise) {
		return KindValidation
	}
	var pf *PartialFailureError
	if errors.As(err, &pf) {
		return KindPartial
	}
	return KindStore
}
