package repository

import (
	"context"

	"beerzone-pos/internal/model"
)

// ProductRepository defines catalog data access methods.
type ProductRepository interface {
	// ListProducts returns every product, newest first.
	ListProducts(ctx context.Context) ([]model.Product, error)

	// GetProduct returns a product by id or model.ErrProductNotFound.
	GetProduct(ctx context.Context, id string) (model.Product, error)

	// CreateProduct stores p under a store-assigned id and returns it.
	CreateProduct(ctx context.Context, p model.Product) (model.Product, error)

	// DeleteProduct removes a product. Returns model.ErrProductNotFound if absent.
	DeleteProduct(ctx context.Context, id string) error
}

// SaleRepository defines sale record data access methods.
type SaleRepository interface {
	// InsertSale stores s under a store-assigned id and returns it.
	InsertSale(ctx context.Context, s model.Sale) (model.Sale, error)

	// LatestSale returns the most recent sale by timestamp, or nil if none exist.
	LatestSale(ctx context.Context) (*model.Sale, error)

	// ListSales returns sales with from <= date <= to ordered by date then
	// timestamp. Empty bounds are open.
	ListSales(ctx context.Context, from, to string) ([]model.Sale, error)

	// GetSale returns a sale by id or model.ErrSaleNotFound.
	GetSale(ctx context.Context, id string) (model.Sale, error)

	// DeleteSale removes a sale. Returns model.ErrSaleNotFound if absent.
	DeleteSale(ctx context.Context, id string) error
}
