package service

import (
	"context"
	"errors"

	"github.com/shopspring/decimal"
	"go.uber.org/zap"

	"beerzone-pos/internal/barcode"
	"beerzone-pos/internal/ledger"
	"beerzone-pos/internal/model"
	"beerzone-pos/internal/repository"
	"beerzone-pos/internal/scanner"
)

// InitialStockNote is the history note of the add that seeds a new product.
const InitialStockNote = "initial stock"

// NewProductInput is the data for creating a catalog product.
type NewProductInput struct {
	Name         string
	Price        decimal.Decimal
	Barcode      string
	Image        string
	InitialStock int
}

// CatalogService handles product CRUD and barcode lookup.
type CatalogService struct {
	products repository.ProductRepository
	ledger   *ledger.Ledger
	logger   *zap.Logger
}

// Ensure CatalogService can back a scanner session
var _ scanner.CatalogSource = (*CatalogService)(nil)

// NewCatalogService creates a new catalog service.
func NewCatalogService(products repository.ProductRepository, l *ledger.Ledger, logger *zap.Logger) *CatalogService {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &CatalogService{
		products: products,
		ledger:   l,
		logger:   logger.Named("catalog"),
	}
}

// ListProducts returns a fresh snapshot of the catalog.
func (s *CatalogService) ListProducts(ctx context.Context) ([]model.Product, error) {
	products, err := s.products.ListProducts(ctx)
	if err != nil {
		return nil, model.StoreFailure("CATALOG_READ_FAILURE", "failed to list products", err)
	}
	return products, nil
}

// Get returns one product.
func (s *CatalogService) Get(ctx context.Context, id string) (model.Product, error) {
	p, err := s.products.GetProduct(ctx, id)
	if err != nil {
		return model.Product{}, classify(err, "CATALOG_READ_FAILURE", "failed to read product")
	}
	return p, nil
}

// Create stores a product, initializes its inventory and seeds the initial
// stock when one is given.
func (s *CatalogService) Create(ctx context.Context, in NewProductInput) (model.Product, error) {
	if in.InitialStock < 0 {
		return model.Product{}, model.Validation("INVALID_QUANTITY", "initial stock cannot be negative")
	}
	p, err := model.NewProduct(in.Name, in.Price, in.Barcode, in.Image)
	if err != nil {
		return model.Product{}, err
	}

	p, err = s.products.CreateProduct(ctx, p)
	if err != nil {
		return model.Product{}, model.StoreFailure("CATALOG_WRITE_FAILURE", "failed to create product", err)
	}

	if _, err := s.ledger.Initialize(ctx, p.ID); err != nil {
		return p, err
	}
	if in.InitialStock > 0 {
		if _, err := s.ledger.ApplyDelta(ctx, p.ID, model.OperationAdd, in.InitialStock, InitialStockNote); err != nil {
			return p, err
		}
	}

	s.logger.Info("product created",
		zap.String("product_id", p.ID),
		zap.String("barcode", p.Barcode),
		zap.Int("initial_stock", in.InitialStock),
	)
	return p, nil
}

// Delete logs the inventory delete and removes the product.
func (s *CatalogService) Delete(ctx context.Context, id string) error {
	if _, err := s.Get(ctx, id); err != nil {
		return err
	}
	if err := s.ledger.Delete(ctx, id, ""); err != nil {
		return err
	}
	if err := s.products.DeleteProduct(ctx, id); err != nil {
		return classify(err, "CATALOG_WRITE_FAILURE", "failed to delete product")
	}
	s.logger.Info("product deleted", zap.String("product_id", id))
	return nil
}

// Resolve finds the product for a scanned code against the current catalog.
func (s *CatalogService) Resolve(ctx context.Context, code string) (model.Product, error) {
	if barcode.Normalize(code) == "" {
		return model.Product{}, model.ErrEmptyCode
	}
	products, err := s.ListProducts(ctx)
	if err != nil {
		return model.Product{}, err
	}
	return barcode.Resolve(code, products)
}

// classify passes domain errors through and wraps anything else as a store
// failure.
func classify(err error, code, message string) error {
	var de *model.Error
	if errors.As(err, &de) {
		return err
	}
	return model.StoreFailure(code, message, err)
}
