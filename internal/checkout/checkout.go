// Package checkout turns a finished cart into a sale and debits stock.
package checkout

import (
	"context"
	"sync"
	"time"

	"go.uber.org/zap"

	"beerzone-pos/internal/cart"
	"beerzone-pos/internal/clock"
	"beerzone-pos/internal/metrics"
	"beerzone-pos/internal/model"
)

// DebitNote is recorded on every history entry written by a checkout.
const DebitNote = "sale debit"

// SaleStore persists sale records.
type SaleStore interface {
	LatestSale(ctx context.Context) (*model.Sale, error)
	InsertSale(ctx context.Context, s model.Sale) (model.Sale, error)
}

// Debiter applies stock changes. Implemented by *ledger.Ledger.
type Debiter interface {
	ApplyDelta(ctx context.Context, productID string, op model.Operation, amount int, notes string) (int, error)
}

// Receipt is the outcome of a checkout. Warnings lists lines whose debit
// failed; the sale stands regardless.
type Receipt struct {
	Sale     model.Sale           `json:"sale"`
	Warnings []model.DebitFailure `json:"warnings,omitempty"`
}

// PartialFailure returns the warnings as an error, or nil if every debit landed.
func (r Receipt) PartialFailure() error {
	if len(r.Warnings) == 0 {
		return nil
	}
	return &model.PartialFailureError{SaleID: r.Sale.ID, Failures: r.Warnings}
}

// Recorder is the only writer of sales and the only trigger of sale debits.
type Recorder struct {
	sales   SaleStore
	stock   Debiter
	clock   *clock.Reporting
	metrics *metrics.Registry
	logger  *zap.Logger

	// mu keeps order-number assignment sequential.
	mu sync.Mutex
}

// NewRecorder creates a recorder. reg may be nil.
func NewRecorder(sales SaleStore, stock Debiter, clk *clock.Reporting, reg *metrics.Registry, logger *zap.Logger) *Recorder {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Recorder{sales: sales, stock: stock, clock: clk, metrics: reg, logger: logger}
}

// Checkout records the cart's lines as a sale, debits each line and takes
// the sold quantities off the cart. Lines added while the sale is being
// written stay in the cart. Debit failures are returned as receipt warnings,
// not errors.
func (r *Recorder) Checkout(ctx context.Context, c *cart.Cart, method model.PaymentMethod) (Receipt, error) {
	lines := c.Lines()
	receipt, err := r.Record(ctx, lines, method)
	if err != nil {
		return Receipt{}, err
	}
	c.Settle(lines)
	return receipt, nil
}

// Record writes a sale for lines and debits stock.
func (r *Recorder) Record(ctx context.Context, lines []model.CartLine, method model.PaymentMethod) (Receipt, error) {
	if len(lines) == 0 {
		return Receipt{}, model.ErrEmptyCart
	}
	if !method.IsValid() {
		return Receipt{}, model.ErrInvalidPayment
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	started := time.Now()
	now := r.clock.Now()
	date := r.clock.DateOf(now)

	seq, err := r.nextOrderNumber(ctx, date)
	if err != nil {
		r.failed()
		return Receipt{}, err
	}

	items := make([]model.SaleItem, len(lines))
	for i, l := range lines {
		items[i] = model.SaleItemFromLine(l)
	}

	sale, err := r.sales.InsertSale(ctx, model.Sale{
		OrderNo:       model.FormatOrderNo(seq),
		Items:         items,
		PaymentMethod: method,
		TotalAmount:   cart.Total(lines),
		Date:          date,
		Time:          r.clock.TimeOf(now),
		Timestamp:     now,
	})
	if err != nil {
		r.failed()
		return Receipt{}, model.StoreFailure("SALE_RECORD_FAILURE", "failed to record sale", err)
	}

	receipt := Receipt{Sale: sale}
	for _, l := range lines {
		if model.IsTemporaryID(l.ProductID) {
			continue
		}
		if _, err := r.stock.ApplyDelta(ctx, l.ProductID, model.OperationRemove, l.Quantity, DebitNote); err != nil {
			err = model.StoreFailure("INVENTORY_DEBIT_FAILURE", "failed to debit inventory", err)
			r.logger.Warn("inventory debit failed",
				zap.String("sale_id", sale.ID),
				zap.String("order_no", sale.OrderNo),
				zap.String("product_id", l.ProductID),
				zap.Int("quantity", l.Quantity),
				zap.Error(err),
			)
			receipt.Warnings = append(receipt.Warnings, model.DebitFailure{
				ProductID: l.ProductID,
				Name:      l.Name,
				Quantity:  l.Quantity,
				Reason:    err.Error(),
			})
		}
	}

	if r.metrics != nil {
		r.metrics.Checkouts.Inc()
		r.metrics.DebitFailures.Add(float64(len(receipt.Warnings)))
		r.metrics.CheckoutLatencySec.Observe(time.Since(started).Seconds())
	}
	r.logger.Info("sale recorded",
		zap.String("sale_id", sale.ID),
		zap.String("order_no", sale.OrderNo),
		zap.String("total", sale.TotalAmount.StringFixed(2)),
		zap.Int("lines", len(lines)),
		zap.Int("debit_failures", len(receipt.Warnings)),
	)
	return receipt, nil
}

// nextOrderNumber continues the latest sale's counter on the same date and
// restarts at 1 on a new date.
func (r *Recorder) nextOrderNumber(ctx context.Context, date string) (int, error) {
	last, err := r.sales.LatestSale(ctx)
	if err != nil {
		return 0, model.StoreFailure("SALE_RECORD_FAILURE", "failed to read latest sale", err)
	}
	if last == nil || last.Date != date {
		return 1, nil
	}

	n, err := model.ParseOrderNo(last.OrderNo)
	if err != nil {
		r.logger.Warn("unreadable order number, restarting sequence",
			zap.String("sale_id", last.ID),
			zap.String("order_no", last.OrderNo),
		)
		return 1, nil
	}
	return n + 1, nil
}

func (r *Recorder) failed() {
	if r.metrics != nil {
		r.metrics.SaleRecordFailures.Inc()
	}
}
