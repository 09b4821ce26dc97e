package cart

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"beerzone-pos/internal/model"
)

type fakeStock map[string]int

func (f fakeStock) GetCurrent(_ context.Context, id string) (model.InventoryRecord, error) {
	return model.InventoryRecord{Quantity: f[id], LastUpdated: time.Now()}, nil
}

type brokenStock struct{}

func (brokenStock) GetCurrent(context.Context, string) (model.InventoryRecord, error) {
	return model.InventoryRecord{}, model.StoreFailure("INVENTORY_READ_FAILURE", "failed to read inventory", errors.New("offline"))
}

func product(id, price string) model.Product {
	return model.Product{ID: id, Name: "Product " + id, Price: decimal.RequireFromString(price)}
}

func TestCart_AddLine(t *testing.T) {
	c := New(fakeStock{"p1": 5})
	ctx := context.Background()

	line, err := c.AddLine(ctx, product("p1", "120.50"), 2)
	require.NoError(t, err)
	assert.Equal(t, 2, line.Quantity)
	assert.Equal(t, "241", line.LineTotal.String())

	line, err = c.AddLine(ctx, product("p1", "120.50"), 3)
	require.NoError(t, err)
	assert.Equal(t, 5, line.Quantity)
	assert.Equal(t, 1, c.Len())
}

func TestCart_AddLineRejections(t *testing.T) {
	ctx := context.Background()

	tests := []struct {
		name      string
		stock     fakeStock
		inCart    int
		add       int
		wantErr   error
		wantMax   int
		wantAvail int
	}{
		{name: "out of stock", stock: fakeStock{"p1": 0}, add: 1, wantErr: model.ErrOutOfStock},
		{name: "exceeds availability", stock: fakeStock{"p1": 3}, add: 4, wantErr: model.ErrInsufficientStock, wantMax: 3, wantAvail: 3},
		{name: "exceeds with existing line", stock: fakeStock{"p1": 5}, inCart: 4, add: 2, wantErr: model.ErrInsufficientStock, wantMax: 1, wantAvail: 5},
		{name: "max addable floored at one", stock: fakeStock{"p1": 5}, inCart: 5, add: 1, wantErr: model.ErrInsufficientStock, wantMax: 1, wantAvail: 5},
		{name: "zero quantity", stock: fakeStock{"p1": 5}, add: 0, wantErr: model.ErrInvalidQuantity},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			c := New(tt.stock)
			if tt.inCart > 0 {
				_, err := c.AddLine(ctx, product("p1", "10"), tt.inCart)
				require.NoError(t, err)
			}

			_, err := c.AddLine(ctx, product("p1", "10"), tt.add)
			require.ErrorIs(t, err, tt.wantErr)
			assert.Equal(t, tt.inCart, c.Quantity("p1"), "rejected add must not change the cart")

			var ise *model.InsufficientStockError
			if errors.As(err, &ise) {
				assert.Equal(t, tt.wantMax, ise.MaxAddable)
				assert.Equal(t, tt.wantAvail, ise.Available)
				assert.Equal(t, tt.inCart, ise.AlreadyInCart)
			}
		})
	}
}

func TestCart_NeverExceedsAvailability(t *testing.T) {
	stock := fakeStock{"p1": 7}
	c := New(stock)
	ctx := context.Background()

	for i := 0; i < 20; i++ {
		_, _ = c.AddLine(ctx, product("p1", "1"), (i%3)+1)
		assert.LessOrEqual(t, c.Quantity("p1"), stock["p1"])
	}
}

func TestCart_TemporaryProductSkipsStock(t *testing.T) {
	c := New(brokenStock{})
	p := model.Product{ID: model.TemporaryIDPrefix + "abc", Name: "Unknown IPA", Price: decimal.NewFromInt(200)}

	line, err := c.AddLine(context.Background(), p, 3)
	require.NoError(t, err)
	assert.Equal(t, 3, line.Quantity)
}

func TestCart_StoreErrorLeavesCartUnchanged(t *testing.T) {
	c := New(brokenStock{})

	_, err := c.AddLine(context.Background(), product("p1", "10"), 1)
	require.Error(t, err)
	assert.Equal(t, model.KindStore, model.KindOf(err))
	assert.Equal(t, 0, c.Len())
}

func TestCart_DecrementAndRemove(t *testing.T) {
	c := New(fakeStock{"p1": 10, "p2": 10})
	ctx := context.Background()

	_, err := c.AddLine(ctx, product("p1", "10"), 2)
	require.NoError(t, err)
	_, err = c.AddLine(ctx, product("p2", "5"), 1)
	require.NoError(t, err)

	left, err := c.DecrementLine("p1")
	require.NoError(t, err)
	assert.Equal(t, 1, left)
	assert.Equal(t, "10", c.Lines()[0].LineTotal.String())

	left, err = c.DecrementLine("p1")
	require.NoError(t, err)
	assert.Equal(t, 0, left)
	assert.Equal(t, 1, c.Len())

	_, err = c.DecrementLine("p1")
	assert.ErrorIs(t, err, model.ErrLineNotFound)

	require.NoError(t, c.RemoveLine("p2"))
	assert.ErrorIs(t, c.RemoveLine("p2"), model.ErrLineNotFound)
	assert.Equal(t, 0, c.Len())
}

func TestCart_TotalAndClear(t *testing.T) {
	c := New(fakeStock{"p1": 10, "p2": 10})
	ctx := context.Background()

	_, err := c.AddLine(ctx, product("p1", "0.10"), 3)
	require.NoError(t, err)
	_, err = c.AddLine(ctx, product("p2", "99.99"), 1)
	require.NoError(t, err)

	assert.Equal(t, "100.29", c.Total().StringFixed(2))

	c.Clear()
	assert.Equal(t, 0, c.Len())
	assert.True(t, c.Total().IsZero())
}

func TestCart_SettleKeepsUnsoldQuantity(t *testing.T) {
	c := New(fakeStock{"p1": 10, "p2": 10, "p3": 10})
	ctx := context.Background()

	_, err := c.AddLine(ctx, product("p1", "50"), 2)
	require.NoError(t, err)
	_, err = c.AddLine(ctx, product("p2", "80"), 1)
	require.NoError(t, err)
	sold := c.Lines()

	_, err = c.AddLine(ctx, product("p1", "50"), 1)
	require.NoError(t, err)
	_, err = c.AddLine(ctx, product("p3", "20"), 4)
	require.NoError(t, err)

	c.Settle(sold)

	lines := c.Lines()
	require.Len(t, lines, 2)
	assert.Equal(t, "p1", lines[0].ProductID)
	assert.Equal(t, 1, lines[0].Quantity)
	assert.Equal(t, "50", lines[0].LineTotal.String())
	assert.Equal(t, "p3", lines[1].ProductID)
	assert.Equal(t, 4, lines[1].Quantity)
}
