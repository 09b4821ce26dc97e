package apierror

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"beerzone-pos/internal/model"
)

func TestFromError_StatusMapping(t *testing.T) {
	tests := []struct {
		name   string
		err    error
		status int
		code   string
	}{
		{"validation", model.ErrEmptyCart, http.StatusBadRequest, "EMPTY_CART"},
		{"wrapped validation", fmt.Errorf("add: %w", model.ErrInvalidQuantity), http.StatusBadRequest, "INVALID_QUANTITY"},
		{"out of stock", model.ErrOutOfStock, http.StatusConflict, "OUT_OF_STOCK"},
		{"not found", model.ErrBarcodeNotFound, http.StatusNotFound, "BARCODE_NOT_FOUND"},
		{"store", model.StoreFailure("SALE_RECORD_FAILURE", "failed", errors.New("disk")), http.StatusServiceUnavailable, "SALE_RECORD_FAILURE"},
		{"api error", Unauthorized(""), http.StatusUnauthorized, "UNAUTHORIZED"},
		{"unclassified", errors.New("boom"), http.StatusInternalServerError, "INTERNAL_ERROR"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			e := FromError(tt.err)
			assert.Equal(t, tt.status, e.StatusCode)
			assert.Equal(t, tt.code, e.Code)
		})
	}
}

func TestFromError_InsufficientStockCarriesData(t *testing.T) {
	e := FromError(model.NewInsufficientStock(5, 4))
	assert.Equal(t, http.StatusConflict, e.StatusCode)
	assert.Equal(t, "INSUFFICIENT_STOCK", e.Code)

	var body struct {
		Success bool `json:"success"`
		Error   struct {
			Code string                `json:"code"`
			Data InsufficientStockData `json:"data"`
		} `json:"error"`
	}
	require.NoError(t, json.Unmarshal(e.ToJSON(), &body))
	assert.False(t, body.Success)
	assert.Equal(t, InsufficientStockData{Available: 5, AlreadyInCart: 4, MaxAddable: 1}, body.Error.Data)
}

func TestFromError_PartialFailure(t *testing.T) {
	e := FromError(&model.PartialFailureError{SaleID: "s1", Failures: []model.DebitFailure{{ProductID: "p1"}}})
	assert.Equal(t, http.StatusInternalServerError, e.StatusCode)
	assert.Equal(t, "PARTIAL_FAILURE", e.Code)
	assert.NotNil(t, e.Data)
}

func TestToJSON_OmitsEmptyDetails(t *testing.T) {
	var body struct {
		Error map[string]interface{} `json:"error"`
	}
	require.NoError(t, json.Unmarshal(NotFound("").ToJSON(), &body))
	_, hasDetails := body.Error["details"]
	assert.False(t, hasDetails)

	withDetails := ValidationError("bad", FieldError{Field: "price", Message: "required"})
	require.NoError(t, json.Unmarshal(withDetails.ToJSON(), &body))
	assert.Len(t, body.Error["details"], 1)
}
