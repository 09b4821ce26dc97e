package report

import (
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"beerzone-pos/internal/clock"
	"beerzone-pos/internal/model"
)

func d(s string) decimal.Decimal { return decimal.RequireFromString(s) }

func sale(date, amount string, items ...model.SaleItem) model.Sale {
	return model.Sale{Date: date, TotalAmount: d(amount), Items: items}
}

func item(name string, qty int, total string) model.SaleItem {
	return model.SaleItem{Name: name, Quantity: qty, Total: d(total)}
}

func TestFold_ByDay(t *testing.T) {
	sales := []model.Sale{
		sale("2024-01-01", "100"),
		sale("2024-01-01", "50"),
		sale("2024-01-02", "30"),
	}

	buckets := Fold(sales, ByDay)
	require.Len(t, buckets, 2)

	assert.Equal(t, "2024-01-01", buckets[0].Key)
	assert.True(t, buckets[0].TotalAmount.Equal(d("150")))
	assert.Equal(t, 2, buckets[0].OrderCount)
	assert.True(t, buckets[0].AverageOrder.Equal(d("75")))

	assert.Equal(t, "2024-01-02", buckets[1].Key)
	assert.True(t, buckets[1].TotalAmount.Equal(d("30")))
	assert.Equal(t, 1, buckets[1].OrderCount)
	assert.True(t, buckets[1].AverageOrder.Equal(d("30")))
}

func TestFold_MonthAndYearKeys(t *testing.T) {
	sales := []model.Sale{
		sale("2024-02-10", "10"),
		sale("2023-12-31", "20"),
		sale("2024-02-01", "30"),
	}

	months := Fold(sales, ByMonth)
	require.Len(t, months, 2)
	assert.Equal(t, "2023-12", months[0].Key)
	assert.Equal(t, "2024-02", months[1].Key)
	assert.Equal(t, 2, months[1].OrderCount)

	years := Fold(sales, ByYear)
	require.Len(t, years, 2)
	assert.Equal(t, "2023", years[0].Key)
	assert.True(t, years[1].TotalAmount.Equal(d("40")))
}

func TestBucket_TopItemsStableTies(t *testing.T) {
	sales := []model.Sale{
		sale("2024-01-01", "0", item("Bira", 2, "200"), item("Kingfisher", 5, "500")),
		sale("2024-01-01", "0", item("Hoegaarden", 2, "600"), item("Bira", 1, "100"), item("Tuborg", 1, "90")),
	}

	b := Fold(sales, ByDay)[0]
	require.Len(t, b.Items, 4)
	assert.Equal(t, "Bira", b.Items[0].Name, "items keep first-seen order")
	assert.Equal(t, 3, b.Items[0].Quantity)
	assert.True(t, b.Items[0].Total.Equal(d("300")))

	top := b.TopItems(3)
	require.Len(t, top, 3)
	assert.Equal(t, "Kingfisher", top[0].Name)
	assert.Equal(t, "Bira", top[1].Name)
	assert.Equal(t, "Hoegaarden", top[2].Name, "tie with Tuborg broken by first-seen order")

	assert.Len(t, b.TopItems(10), 4)
}

func TestPercentOfTotal(t *testing.T) {
	assert.Equal(t, "33.33", PercentOfTotal(d("50"), d("150")).StringFixed(2))
	assert.Equal(t, "100.00", PercentOfTotal(d("30"), d("30")).StringFixed(2))
	assert.True(t, PercentOfTotal(d("10"), decimal.Zero).IsZero())
}

func TestSummarize(t *testing.T) {
	sales := []model.Sale{
		sale("2024-01-01", "100", item("Bira", 1, "100")),
		sale("2024-01-01", "50", item("Tuborg", 1, "50")),
		sale("2024-01-02", "30", item("Bira", 1, "30")),
	}
	r := clock.Range{From: "2024-01-01", To: "2024-01-02"}

	s, err := Summarize(sales, r, Daily)
	require.NoError(t, err)
	assert.True(t, s.TotalAmount.Equal(d("180")))
	assert.Equal(t, 3, s.OrderCount)
	assert.True(t, s.AverageOrder.Equal(d("60")))
	assert.Len(t, s.Buckets, 2)
	require.NotEmpty(t, s.TopItems)
	assert.Equal(t, "Bira", s.TopItems[0].Name)

	empty, err := Summarize(nil, r, Monthly)
	require.NoError(t, err)
	assert.True(t, empty.TotalAmount.IsZero())
	assert.Empty(t, empty.Buckets)

	_, err = Summarize(sales, r, "week")
	assert.Error(t, err)
}

func TestCurrency(t *testing.T) {
	assert.Equal(t, "₹1234.50", Currency("₹", d("1234.5")))
	assert.Equal(t, "₹0.00", Currency("₹", decimal.Zero))
}
