package handler

import (
	"net/http"

	"github.com/go-chi/chi/v5"

	"beerzone-pos/internal/model"
	"beerzone-pos/internal/service"
	"beerzone-pos/pkg/response"
)

// SalesHandler handles sale record requests.
type SalesHandler struct {
	sales *service.SalesService
}

// NewSalesHandler creates a new sales handler.
func NewSalesHandler(sales *service.SalesService) *SalesHandler {
	return &SalesHandler{sales: sales}
}

// List handles GET /api/v1/sales?from&to
func (h *SalesHandler) List(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	sales, err := h.sales.List(r.Context(), q.Get("from"), q.Get("to"))
	if err != nil {
		response.Error(w, err)
		return
	}
	if sales == nil {
		sales = []model.Sale{}
	}
	response.OK(w, sales)
}

// Get handles GET /api/v1/sales/{id}
func (h *SalesHandler) Get(w http.ResponseWriter, r *http.Request) {
	sale, err := h.sales.Get(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		response.Error(w, err)
		return
	}
	response.OK(w, sale)
}

// Delete handles DELETE /api/v1/sales/{id}
func (h *SalesHandler) Delete(w http.ResponseWriter, r *http.Request) {
	if err := h.sales.Delete(r.Context(), chi.URLParam(r, "id")); err != nil {
		response.Error(w, err)
		return
	}
	response.NoContent(w)
}
