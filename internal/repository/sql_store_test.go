package repository

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/jmoiron/sqlx"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"beerzone-pos/internal/model"
)

func newTestStore(t *testing.T) *SQLStore {
	t.Helper()
	s, err := Open(context.Background(), "sqlite", ":memory:", zap.NewNop())
	require.NoError(t, err)
	t.Cleanup(func() { s.Close() })
	return s
}

func TestSQLStore_ProductLifecycle(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	p, err := model.NewProduct("Kingfisher Ultra", decimal.RequireFromString("180"), "8901234567890", "")
	require.NoError(t, err)

	created, err := s.CreateProduct(ctx, p)
	require.NoError(t, err)
	assert.NotEmpty(t, created.ID)
	assert.False(t, created.CreatedAt.IsZero())

	got, err := s.GetProduct(ctx, created.ID)
	require.NoError(t, err)
	assert.Equal(t, "Kingfisher Ultra", got.Name)
	assert.True(t, got.Price.Equal(decimal.NewFromInt(180)))
	assert.Equal(t, "8901234567890", got.Barcode)

	list, err := s.ListProducts(ctx)
	require.NoError(t, err)
	assert.Len(t, list, 1)

	require.NoError(t, s.DeleteProduct(ctx, created.ID))
	_, err = s.GetProduct(ctx, created.ID)
	assert.ErrorIs(t, err, model.ErrProductNotFound)
	assert.ErrorIs(t, s.DeleteProduct(ctx, created.ID), model.ErrProductNotFound)
}

func sampleSale(date string, orderNo string, ts time.Time, amount string) model.Sale {
	total := decimal.RequireFromString(amount)
	return model.Sale{
		OrderNo: orderNo,
		Items: []model.SaleItem{
			{ProductID: "p1", Name: "Bira White", Price: total, Quantity: 1, Total: total},
		},
		PaymentMethod: model.PaymentCash,
		TotalAmount:   total,
		Date:          date,
		Time:          ts.Format("15:04:05"),
		Timestamp:     ts,
	}
}

func TestSQLStore_LatestSale(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	latest, err := s.LatestSale(ctx)
	require.NoError(t, err)
	assert.Nil(t, latest)

	base := time.Date(2024, 5, 1, 10, 0, 0, 0, time.UTC)
	_, err = s.InsertSale(ctx, sampleSale("2024-05-01", "#010", base.Add(time.Hour), "100"))
	require.NoError(t, err)
	_, err = s.InsertSale(ctx, sampleSale("2024-05-01", "#009", base, "50"))
	require.NoError(t, err)

	latest, err = s.LatestSale(ctx)
	require.NoError(t, err)
	require.NotNil(t, latest)
	assert.Equal(t, "#010", latest.OrderNo)
	assert.Equal(t, "2024-05-01", latest.Date)
	require.Len(t, latest.Items, 1)
	assert.Equal(t, "Bira White", latest.Items[0].Name)
}

func TestSQLStore_ListSalesInclusiveRange(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	base := time.Date(2024, 1, 1, 9, 0, 0, 0, time.UTC)
	for i, date := range []string{"2024-01-03", "2024-01-01", "2024-01-02", "2024-01-01"} {
		_, err := s.InsertSale(ctx, sampleSale(date, "#001", base.Add(time.Duration(i)*time.Minute), "10"))
		require.NoError(t, err)
	}

	sales, err := s.ListSales(ctx, "2024-01-01", "2024-01-02")
	require.NoError(t, err)
	require.Len(t, sales, 3)
	assert.Equal(t, "2024-01-01", sales[0].Date)
	assert.Equal(t, "2024-01-01", sales[1].Date)
	assert.True(t, sales[0].Timestamp.Before(sales[1].Timestamp))
	assert.Equal(t, "2024-01-02", sales[2].Date)

	all, err := s.ListSales(ctx, "", "")
	require.NoError(t, err)
	assert.Len(t, all, 4)
}

func TestSQLStore_DeleteSale(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	sale, err := s.InsertSale(ctx, sampleSale("2024-01-01", "#001", time.Now(), "25.50"))
	require.NoError(t, err)

	got, err := s.GetSale(ctx, sale.ID)
	require.NoError(t, err)
	assert.True(t, got.TotalAmount.Equal(decimal.RequireFromString("25.5")))

	require.NoError(t, s.DeleteSale(ctx, sale.ID))
	_, err = s.GetSale(ctx, sale.ID)
	assert.ErrorIs(t, err, model.ErrSaleNotFound)
}

func TestSQLStore_Stats(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	_, err := s.InsertSale(ctx, sampleSale("2024-01-01", "#001", time.Now(), "10"))
	require.NoError(t, err)

	stats, err := s.Stats(ctx)
	require.NoError(t, err)
	assert.Equal(t, int64(0), stats["products"])
	assert.Equal(t, int64(1), stats["sales"])
}

func newMockStore(t *testing.T) (*SQLStore, sqlmock.Sqlmock) {
	t.Helper()
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })
	return NewSQLStore(sqlx.NewDb(db, "sqlmock"), "sqlmock", nil), mock
}

func TestSQLStore_InsertSaleFailure(t *testing.T) {
	s, mock := newMockStore(t)
	mock.ExpectExec("INSERT INTO sales").WillReturnError(errors.New("connection reset"))

	_, err := s.InsertSale(context.Background(), sampleSale("2024-01-01", "#001", time.Now(), "10"))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "connection reset")
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestSQLStore_LatestSaleQueryFailure(t *testing.T) {
	s, mock := newMockStore(t)
	mock.ExpectQuery("SELECT (.+) FROM sales ORDER BY timestamp_ms DESC LIMIT 1").
		WillReturnError(errors.New("timeout"))

	latest, err := s.LatestSale(context.Background())
	assert.Nil(t, latest)
	require.Error(t, err)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestSQLStore_ListSalesSkipsCorruptItems(t *testing.T) {
	s, mock := newMockStore(t)
	rows := sqlmock.NewRows([]string{"id", "order_no", "items_json", "payment_method", "total_amount", "sale_date", "sale_time", "timestamp_ms"}).
		AddRow("s1", "#001", "not json", "cash", "10.00", "2024-01-01", "10:00:00", int64(1704103200000)).
		AddRow("s2", "#002", "[]", "upi", "20.00", "2024-01-01", "11:00:00", int64(1704106800000))
	mock.ExpectQuery("SELECT (.+) FROM sales WHERE sale_date >= \\? AND sale_date <= \\?").
		WithArgs("2024-01-01", "2024-01-01").
		WillReturnRows(rows)

	sales, err := s.ListSales(context.Background(), "2024-01-01", "2024-01-01")
	require.NoError(t, err)
	require.Len(t, sales, 1)
	assert.Equal(t, "s2", sales[0].ID)
	assert.True(t, sales[0].TotalAmount.Equal(decimal.NewFromInt(20)))
}
