package handler

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/shopspring/decimal"

	"beerzone-pos/internal/middleware"
	"beerzone-pos/internal/service"
	"beerzone-pos/pkg/response"
)

// ProductHandler handles catalog HTTP requests.
type ProductHandler struct {
	catalog *service.CatalogService
}

// NewProductHandler creates a new product handler.
func NewProductHandler(catalog *service.CatalogService) *ProductHandler {
	return &ProductHandler{catalog: catalog}
}

// CreateProductRequest is the body of POST /products.
type CreateProductRequest struct {
	Name         string          `json:"name" validate:"required,max=120"`
	Price        decimal.Decimal `json:"price"`
	Barcode      string          `json:"barcode" validate:"max=64"`
	Image        string          `json:"image"`
	InitialStock int             `json:"initialStock" validate:"gte=0"`
}

// ResolveRequest is the body of POST /products/resolve.
type ResolveRequest struct {
	Code string `json:"code"`
}

// List handles GET /api/v1/products
func (h *ProductHandler) List(w http.ResponseWriter, r *http.Request) {
	products, err := h.catalog.ListProducts(r.Context())
	if err != nil {
		response.Error(w, err)
		return
	}
	response.OK(w, products)
}

// Create handles POST /api/v1/products
func (h *ProductHandler) Create(w http.ResponseWriter, r *http.Request) {
	var req CreateProductRequest
	if err := middleware.Bind(r, &req); err != nil {
		response.Error(w, err)
		return
	}

	p, err := h.catalog.Create(r.Context(), service.NewProductInput{
		Name:         req.Name,
		Price:        req.Price,
		Barcode:      req.Barcode,
		Image:        req.Image,
		InitialStock: req.InitialStock,
	})
	if err != nil {
		response.Error(w, err)
		return
	}
	response.Created(w, p)
}

// Get handles GET /api/v1/products/{id}
func (h *ProductHandler) Get(w http.ResponseWriter, r *http.Request) {
	p, err := h.catalog.Get(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		response.Error(w, err)
		return
	}
	response.OK(w, p)
}

// Delete handles DELETE /api/v1/products/{id}
func (h *ProductHandler) Delete(w http.ResponseWriter, r *http.Request) {
	if err := h.catalog.Delete(r.Context(), chi.URLParam(r, "id")); err != nil {
		response.Error(w, err)
		return
	}
	response.NoContent(w)
}

// Resolve handles POST /api/v1/products/resolve
func (h *ProductHandler) Resolve(w http.ResponseWriter, r *http.Request) {
	var req ResolveRequest
	if err := middleware.Bind(r, &req); err != nil {
		response.Error(w, err)
		return
	}

	p, err := h.catalog.Resolve(r.Context(), req.Code)
	if err != nil {
		response.Error(w, err)
		return
	}
	response.OK(w, p)
}
