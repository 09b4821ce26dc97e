package service

import (
	"context"
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"beerzone-pos/internal/clock"
	"beerzone-pos/internal/model"
	"beerzone-pos/internal/report"
)

type memorySink struct {
	saved map[string][]byte
	err   error
}

func (s *memorySink) Save(_ context.Context, name string, data []byte) (string, error) {
	if s.err != nil {
		return "", s.err
	}
	if s.saved == nil {
		s.saved = map[string][]byte{}
	}
	s.saved[name] = data
	return "mem://" + name, nil
}

func seedSale(t *testing.T, f fixture, date, orderNo string, hour int, amount string) model.Sale {
	t.Helper()
	ts, err := time.ParseInLocation("2006-01-02", date, time.UTC)
	require.NoError(t, err)
	ts = ts.Add(time.Duration(hour) * time.Hour)
	total := decimal.RequireFromString(amount)
	s, err := f.store.InsertSale(context.Background(), model.Sale{
		OrderNo:       orderNo,
		Items:         []model.SaleItem{{ProductID: "p1", Name: "Bira White", Price: total, Quantity: 1, Total: total}},
		PaymentMethod: model.PaymentCash,
		TotalAmount:   total,
		Date:          date,
		Time:          ts.Format(clock.TimeLayout),
		Timestamp:     ts,
	})
	require.NoError(t, err)
	return s
}

func newSalesFixture(t *testing.T, sink *memorySink) (*SalesService, fixture) {
	t.Helper()
	f := newFixture(t)
	now := time.Date(2024, 3, 15, 10, 0, 0, 0, time.UTC)
	clk := clock.MustIST().Fixed(now)
	cfg := SalesConfig{StoreName: "Beer Zone", Currency: "₹"}
	if sink != nil {
		cfg.Sink = sink
	}
	return NewSalesService(f.store, clk, cfg, nil), f
}

func TestSalesService_ListAndGet(t *testing.T) {
	svc, f := newSalesFixture(t, nil)
	ctx := context.Background()
	a := seedSale(t, f, "2024-03-01", "#001", 10, "100")
	seedSale(t, f, "2024-03-10", "#001", 11, "200")

	sales, err := svc.List(ctx, "2024-03-01", "2024-03-05")
	require.NoError(t, err)
	require.Len(t, sales, 1)
	assert.Equal(t, a.ID, sales[0].ID)

	all, err := svc.List(ctx, "", "")
	require.NoError(t, err)
	assert.Len(t, all, 2)

	got, err := svc.Get(ctx, a.ID)
	require.NoError(t, err)
	assert.Equal(t, "#001", got.OrderNo)

	_, err = svc.List(ctx, "03/01/2024", "")
	assert.Equal(t, model.KindValidation, model.KindOf(err))
	_, err = svc.List(ctx, "2024-03-10", "2024-03-01")
	assert.Equal(t, model.KindValidation, model.KindOf(err))
}

func TestSalesService_DeleteLeavesOthers(t *testing.T) {
	svc, f := newSalesFixture(t, nil)
	ctx := context.Background()
	a := seedSale(t, f, "2024-03-01", "#001", 10, "100")
	seedSale(t, f, "2024-03-01", "#002", 11, "50")

	require.NoError(t, svc.Delete(ctx, a.ID))
	_, err := svc.Get(ctx, a.ID)
	assert.ErrorIs(t, err, model.ErrSaleNotFound)
	assert.ErrorIs(t, svc.Delete(ctx, a.ID), model.ErrSaleNotFound)

	rest, err := svc.List(ctx, "", "")
	require.NoError(t, err)
	assert.Len(t, rest, 1)
}

func TestSalesService_Summary(t *testing.T) {
	svc, f := newSalesFixture(t, nil)
	ctx := context.Background()
	seedSale(t, f, "2024-02-28", "#001", 9, "999")
	seedSale(t, f, "2024-03-01", "#001", 10, "100")
	seedSale(t, f, "2024-03-15", "#001", 11, "300")

	summary, sales, err := svc.Summary(ctx, ReportFilter{Period: clock.PeriodMonth})
	require.NoError(t, err)
	assert.Len(t, sales, 2)
	assert.Equal(t, clock.Range{From: "2024-03-01", To: "2024-03-15"}, summary.Range)
	assert.Equal(t, report.Daily, summary.Granularity)
	assert.True(t, summary.TotalAmount.Equal(decimal.NewFromInt(400)))
	assert.Equal(t, 2, summary.OrderCount)
	assert.Len(t, summary.Buckets, 2)

	summary, _, err = svc.Summary(ctx, ReportFilter{Period: clock.PeriodYear, Granularity: report.Monthly})
	require.NoError(t, err)
	require.Len(t, summary.Buckets, 2)
	assert.Equal(t, "2024-02", summary.Buckets[0].Key)
}

func TestSalesService_SummaryRejectsBadFilters(t *testing.T) {
	svc, _ := newSalesFixture(t, nil)
	ctx := context.Background()

	tests := []struct {
		name   string
		filter ReportFilter
		code   string
	}{
		{"inverted custom", ReportFilter{Period: clock.PeriodCustom, From: "2024-03-10", To: "2024-03-01"}, "INVALID_RANGE"},
		{"bad date", ReportFilter{Period: clock.PeriodCustom, From: "yesterday", To: "2024-03-01"}, "INVALID_RANGE"},
		{"unknown period", ReportFilter{Period: "fortnight"}, "INVALID_RANGE"},
		{"unknown granularity", ReportFilter{Period: clock.PeriodToday, Granularity: "hourly"}, "INVALID_GRANULARITY"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, _, err := svc.Summary(ctx, tt.filter)
			var de *model.Error
			require.True(t, errors.As(err, &de))
			assert.Equal(t, model.KindValidation, de.Kind)
			assert.Equal(t, tt.code, de.Code)
		})
	}
}

func TestSalesService_Export(t *testing.T) {
	sink := &memorySink{}
	svc, f := newSalesFixture(t, sink)
	seedSale(t, f, "2024-03-15", "#001", 11, "300")

	file, err := svc.Export(context.Background(), ReportFilter{Period: clock.PeriodToday})
	require.NoError(t, err)
	assert.True(t, strings.HasPrefix(file.Name, "Beer_Zone_daily_sales_2024-03-15_to_2024-03-15_"))
	assert.True(t, strings.HasSuffix(file.Name, ".xlsx"))
	assert.NotEmpty(t, file.Data)
	assert.Equal(t, "mem://"+file.Name, file.Location)
	assert.Equal(t, file.Data, sink.saved[file.Name])
}

func TestSalesService_ExportSinkFailureIsNotFatal(t *testing.T) {
	svc, _ := newSalesFixture(t, &memorySink{err: errors.New("bucket gone")})

	file, err := svc.Export(context.Background(), ReportFilter{Period: clock.PeriodToday})
	require.NoError(t, err)
	assert.NotEmpty(t, file.Data)
	assert.Empty(t, file.Location)
}
