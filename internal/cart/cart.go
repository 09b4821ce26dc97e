// Package cart holds a session's pending sale lines.
package cart

import (
	"context"
	"sync"

	"github.com/shopspring/decimal"

	"beerzone-pos/internal/model"
)

// StockReader reports current availability. Implemented by *ledger.Ledger.
type StockReader interface {
	GetCurrent(ctx context.Context, productID string) (model.InventoryRecord, error)
}

// Cart is a per-session list of lines in insertion order.
//
// AddLine checks availability before taking the lock, so two concurrent adds
// may both pass against the same reading. Checkout re-clamps on debit.
type Cart struct {
	stock StockReader

	mu    sync.Mutex
	lines []model.CartLine
}

// New creates an empty cart backed by stock.
func New(stock StockReader) *Cart {
	return &Cart{stock: stock}
}

// AddLine adds qty of p, merging with an existing line. Temporary products
// skip the availability check.
func (c *Cart) AddLine(ctx context.Context, p model.Product, qty int) (model.CartLine, error) {
	if qty < 1 {
		return model.CartLine{}, model.ErrInvalidQuantity
	}
	if p.ID == "" {
		return model.CartLine{}, model.ErrProductNotFound
	}

	available := -1
	if !p.IsTemporary() {
		rec, err := c.stock.GetCurrent(ctx, p.ID)
		if err != nil {
			return model.CartLine{}, err
		}
		if rec.Quantity <= 0 {
			return model.CartLine{}, model.ErrOutOfStock
		}
		available = rec.Quantity
	}

	c.mu.Lock()
	defer c.mu.Unlock()

	idx := c.indexOf(p.ID)
	inCart := 0
	if idx >= 0 {
		inCart = c.lines[idx].Quantity
	}

	projected := inCart + qty
	if available >= 0 && projected > available {
		return model.CartLine{}, model.NewInsufficientStock(available, inCart)
	}

	if idx < 0 {
		c.lines = append(c.lines, model.CartLine{
			ProductID: p.ID,
			Name:      p.Name,
			UnitPrice: p.Price,
		})
		idx = len(c.lines) - 1
	}
	c.lines[idx].Quantity = projected
	c.lines[idx].Recompute()
	return c.lines[idx], nil
}

// DecrementLine lowers a line by one, removing it at quantity 1.
// Returns the remaining quantity.
func (c *Cart) DecrementLine(productID string) (int, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	idx := c.indexOf(productID)
	if idx < 0 {
		return 0, model.ErrLineNotFound
	}
	if c.lines[idx].Quantity > 1 {
		c.lines[idx].Quantity--
		c.lines[idx].Recompute()
		return c.lines[idx].Quantity, nil
	}
	c.lines = append(c.lines[:idx], c.lines[idx+1:]...)
	return 0, nil
}

// RemoveLine drops a line regardless of quantity.
func (c *Cart) RemoveLine(productID string) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	idx := c.indexOf(productID)
	if idx < 0 {
		return model.ErrLineNotFound
	}
	c.lines = append(c.lines[:idx], c.lines[idx+1:]...)
	return nil
}

// Clear drops all lines.
func (c *Cart) Clear() {
	c.mu.Lock()
	c.lines = nil
	c.mu.Unlock()
}

// Settle takes sold quantities off the cart. A line that grew after the
// snapshot keeps the difference; lines settled to zero are dropped.
func (c *Cart) Settle(sold []model.CartLine) {
	c.mu.Lock()
	defer c.mu.Unlock()

	for _, s := range sold {
		idx := c.indexOf(s.ProductID)
		if idx < 0 {
			continue
		}
		if c.lines[idx].Quantity > s.Quantity {
			c.lines[idx].Quantity -= s.Quantity
			c.lines[idx].Recompute()
			continue
		}
		c.lines = append(c.lines[:idx], c.lines[idx+1:]...)
	}
}

// Lines returns a copy of the lines.
func (c *Cart) Lines() []model.CartLine {
	c.mu.Lock()
	defer c.mu.Unlock()

	out := make([]model.CartLine, len(c.lines))
	copy(out, c.lines)
	return out
}

// Quantity returns the quantity of productID in the cart.
func (c *Cart) Quantity(productID string) int {
	c.mu.Lock()
	defer c.mu.Unlock()

	if idx := c.indexOf(productID); idx >= 0 {
		return c.lines[idx].Quantity
	}
	return 0
}

// Total sums line totals to 2 decimal places.
func (c *Cart) Total() decimal.Decimal {
	c.mu.Lock()
	defer c.mu.Unlock()
	return Total(c.lines)
}

// Len returns the number of lines.
func (c *Cart) Len() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.lines)
}

func (c *Cart) indexOf(productID string) int {
	for i, l := range c.lines {
		if l.ProductID == productID {
			return i
		}
	}
	return -1
}

// Total sums line totals to 2 decimal places.
func Total(lines []model.CartLine) decimal.Decimal {
	sum := decimal.Zero
	for _, l := range lines {
		sum = sum.Add(l.LineTotal)
	}
	return sum.Round(2)
}
