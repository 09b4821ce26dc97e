package service

import (
	"context"

	"go.uber.org/zap"

	"beerzone-pos/internal/ledger"
	"beerzone-pos/internal/model"
	"beerzone-pos/internal/repository"
)

// InventoryService joins the catalog with the ledger.
type InventoryService struct {
	products  repository.ProductRepository
	ledger    *ledger.Ledger
	view      *ledger.View
	threshold int
	logger    *zap.Logger
}

// NewInventoryService creates a new inventory service. view may be nil, in
// which case every read goes to the ledger.
func NewInventoryService(
	products repository.ProductRepository,
	l *ledger.Ledger,
	view *ledger.View,
	lowStockThreshold int,
	logger *zap.Logger,
) *InventoryService {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &InventoryService{
		products:  products,
		ledger:    l,
		view:      view,
		threshold: lowStockThreshold,
		logger:    logger.Named("inventory"),
	}
}

// Bootstrap initializes an inventory record for every product that lacks one
// and returns how many were created.
func (s *InventoryService) Bootstrap(ctx context.Context) (int, error) {
	products, err := s.products.ListProducts(ctx)
	if err != nil {
		return 0, model.StoreFailure("CATALOG_READ_FAILURE", "failed to list products", err)
	}

	created := 0
	for _, p := range products {
		ok, err := s.ledger.Initialize(ctx, p.ID)
		if err != nil {
			return created, err
		}
		if ok {
			created++
		}
	}
	if created > 0 {
		s.logger.Info("initialized missing inventory records", zap.Int("count", created))
	}
	return created, nil
}

// Overview returns every product with its stock level. Quantities come from
// the advisory view when it has the product.
func (s *InventoryService) Overview(ctx context.Context) ([]model.StockLevel, error) {
	products, err := s.products.ListProducts(ctx)
	if err != nil {
		return nil, model.StoreFailure("CATALOG_READ_FAILURE", "failed to list products", err)
	}

	out := make([]model.StockLevel, 0, len(products))
	for _, p := range products {
		rec, err := s.record(ctx, p.ID)
		if err != nil {
			return nil, err
		}
		out = append(out, s.level(p, rec))
	}
	return out, nil
}

func (s *InventoryService) record(ctx context.Context, productID string) (model.InventoryRecord, error) {
	if s.view != nil {
		if rec, ok := s.view.Get(productID); ok {
			return rec, nil
		}
	}
	return s.ledger.GetCurrent(ctx, productID)
}

func (s *InventoryService) level(p model.Product, rec model.InventoryRecord) model.StockLevel {
	return model.StockLevel{
		Product:  p,
		Record:   rec,
		LowStock: rec.Quantity < s.threshold,
	}
}

// Level returns the authoritative stock level of one product.
func (s *InventoryService) Level(ctx context.Context, productID string) (model.StockLevel, error) {
	p, err := s.product(ctx, productID)
	if err != nil {
		return model.StockLevel{}, err
	}
	rec, err := s.ledger.GetCurrent(ctx, productID)
	if err != nil {
		return model.StockLevel{}, err
	}
	return s.level(p, rec), nil
}

// Adjust applies a manual add or remove and returns the new level.
func (s *InventoryService) Adjust(ctx context.Context, productID string, op model.Operation, amount int, notes string) (model.StockLevel, error) {
	p, err := s.product(ctx, productID)
	if err != nil {
		return model.StockLevel{}, err
	}
	if _, err := s.ledger.ApplyDelta(ctx, productID, op, amount, notes); err != nil {
		return model.StockLevel{}, err
	}
	rec, err := s.ledger.GetCurrent(ctx, productID)
	if err != nil {
		return model.StockLevel{}, err
	}
	return s.level(p, rec), nil
}

// History returns a product's log, or the whole log when productID is empty.
func (s *InventoryService) History(ctx context.Context, productID string) ([]model.HistoryEntry, error) {
	return s.ledger.History(ctx, productID)
}

func (s *InventoryService) product(ctx context.Context, productID string) (model.Product, error) {
	p, err := s.products.GetProduct(ctx, productID)
	if err != nil {
		return model.Product{}, classify(err, "CATALOG_READ_FAILURE", "failed to read product")
	}
	return p, nil
}
