package handler

import (
	"net/http"

	"github.com/go-chi/chi/v5"

	"beerzone-pos/internal/middleware"
	"beerzone-pos/internal/model"
	"beerzone-pos/internal/service"
	"beerzone-pos/pkg/response"
)

// InventoryHandler handles inventory-related HTTP requests.
type InventoryHandler struct {
	inventoryService *service.InventoryService
}

// NewInventoryHandler creates a new inventory handler.
func NewInventoryHandler(inventoryService *service.InventoryService) *InventoryHandler {
	return &InventoryHandler{
		inventoryService: inventoryService,
	}
}

// AdjustRequest is the body of POST /inventory/{id}/adjust.
type AdjustRequest struct {
	Operation string `json:"operation" validate:"required,oneof=add remove"`
	Amount    int    `json:"amount" validate:"gt=0"`
	Notes     string `json:"notes" validate:"max=500"`
}

// Overview handles GET /api/v1/inventory
func (h *InventoryHandler) Overview(w http.ResponseWriter, r *http.Request) {
	levels, err := h.inventoryService.Overview(r.Context())
	if err != nil {
		response.Error(w, err)
		return
	}
	response.OK(w, levels)
}

// Get handles GET /api/v1/inventory/{id}
func (h *InventoryHandler) Get(w http.ResponseWriter, r *http.Request) {
	level, err := h.inventoryService.Level(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		response.Error(w, err)
		return
	}
	response.OK(w, level)
}

// Adjust handles POST /api/v1/inventory/{id}/adjust
func (h *InventoryHandler) Adjust(w http.ResponseWriter, r *http.Request) {
	var req AdjustRequest
	if err := middleware.Bind(r, &req); err != nil {
		response.Error(w, err)
		return
	}

	level, err := h.inventoryService.Adjust(r.Context(), chi.URLParam(r, "id"), model.Operation(req.Operation), req.Amount, req.Notes)
	if err != nil {
		response.Error(w, err)
		return
	}
	response.OK(w, level)
}

// History handles GET /api/v1/inventory/{id}/history
func (h *InventoryHandler) History(w http.ResponseWriter, r *http.Request) {
	h.history(w, r, chi.URLParam(r, "id"))
}

// AllHistory handles GET /api/v1/inventory/history
func (h *InventoryHandler) AllHistory(w http.ResponseWriter, r *http.Request) {
	h.history(w, r, "")
}

func (h *InventoryHandler) history(w http.ResponseWriter, r *http.Request, productID string) {
	entries, err := h.inventoryService.History(r.Context(), productID)
	if err != nil {
		response.Error(w, err)
		return
	}
	if entries == nil {
		entries = []model.HistoryEntry{}
	}
	response.OK(w, entries)
}
