package apierror

import (
	"encoding/json"
	"errors"
	"net/http"

	"beerzone-pos/internal/model"
)

// Error represents a structured API error response.
type Error struct {
	StatusCode int          `json:"-"`
	Code       string       `json:"code"`
	Message    string       `json:"message"`
	Details    []FieldError `json:"details,omitempty"`
	// Data carries structured context, e.g. the suggested max for an
	// insufficient-stock rejection.
	Data interface{} `json:"data,omitempty"`
}

// FieldError represents a validation error for a specific field.
type FieldError struct {
	Field   string `json:"field"`
	Message string `json:"message"`
}

// Error implements the error interface.
func (e *Error) Error() string {
	return e.Message
}

// ToJSON converts the error to JSON bytes.
func (e *Error) ToJSON() []byte {
	response := map[string]interface{}{
		"success": false,
		"error": map[string]interface{}{
			"code":    e.Code,
			"message": e.Message,
		},
	}

	if len(e.Details) > 0 {
		response["error"].(map[string]interface{})["details"] = e.Details
	}
	if e.Data != nil {
		response["error"].(map[string]interface{})["data"] = e.Data
	}

	data, _ := json.Marshal(response)
	return data
}

// BadRequest creates a 400 Bad Request error.
func BadRequest(message string) *Error {
	return &Error{
		StatusCode: http.StatusBadRequest,
		Code:       "BAD_REQUEST",
		Message:    message,
	}
}

// ValidationError creates a 400 error with validation details.
func ValidationError(message string, details ...FieldError) *Error {
	return &Error{
		StatusCode: http.StatusBadRequest,
		Code:       "VALIDATION_ERROR",
		Message:    message,
		Details:    details,
	}
}

// Unauthorized creates a 401 Unauthorized error.
func Unauthorized(message string) *Error {
	if message == "" {
		message = "Authentication required"
	}
	return &Error{
		StatusCode: http.StatusUnauthorized,
		Code:       "UNAUTHORIZED",
		Message:    message,
	}
}

// NotFound creates a 404 Not Found error.
func NotFound(message string) *Error {
	if message == "" {
		message = "Resource not found"
	}
	return &Error{
		StatusCode: http.StatusNotFound,
		Code:       "NOT_FOUND",
		Message:    message,
	}
}

// InternalError creates a 500 Internal Server Error.
func InternalError(message string) *Error {
	if message == "" {
		message = "An unexpected error occurred"
	}
	return &Error{
		StatusCode: http.StatusInternalServerError,
		Code:       "INTERNAL_ERROR",
		Message:    message,
	}
}

// conflictCodes are validation failures caused by current state rather than
// malformed input.
var conflictCodes = map[string]bool{
	"OUT_OF_STOCK":       true,
	"INSUFFICIENT_STOCK": true,
	"SCANNER_BUSY":       true,
}

// InsufficientStockData is attached to INSUFFICIENT_STOCK errors.
type InsufficientStockData struct {
	Available     int `json:"available"`
	AlreadyInCart int `json:"alreadyInCart"`
	MaxAddable    int `json:"maxAddable"`
}

// FromError maps any error onto an API error. Domain errors keep their code.
func FromError(err error) *Error {
	var apiErr *Error
	if errors.As(err, &apiErr) {
		return apiErr
	}

	var ise *model.InsufficientStockError
	if errors.As(err, &ise) {
		return &Error{
			StatusCode: http.StatusConflict,
			Code:       model.ErrInsufficientStock.Code,
			Message:    ise.Error(),
			Data: InsufficientStockData{
				Available:     ise.Available,
				AlreadyInCart: ise.AlreadyInCart,
				MaxAddable:    ise.MaxAddable,
			},
		}
	}

	var pf *model.PartialFailureError
	if errors.As(err, &pf) {
		return &Error{
			StatusCode: http.StatusInternalServerError,
			Code:       string(model.KindPartial),
			Message:    pf.Error(),
			Data:       pf.Failures,
		}
	}

	var de *model.Error
	if errors.As(err, &de) {
		e := &Error{Code: de.Code, Message: de.Message}
		switch de.Kind {
		case model.KindValidation:
			e.StatusCode = http.StatusBadRequest
			if conflictCodes[de.Code] {
				e.StatusCode = http.StatusConflict
			}
		case model.KindNotFound:
			e.StatusCode = http.StatusNotFound
		case model.KindStore:
			e.StatusCode = http.StatusServiceUnavailable
		default:
			e.StatusCode = http.StatusInternalServerError
		}
		return e
	}

	return InternalError("")
}
