package export

import (
	"bytes"
	"context"
	"errors"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/xuri/excelize/v2"

	"beerzone-pos/internal/clock"
	"beerzone-pos/internal/model"
	"beerzone-pos/internal/report"
)

func TestFilename(t *testing.T) {
	r := clock.Range{From: "2024-01-01", To: "2024-01-31"}
	at := time.Date(2024, 2, 1, 14, 5, 0, 0, time.UTC)

	assert.Equal(t, "Beer_Zone_monthly_sales_2024-01-01_to_2024-01-31_1405.xlsx", Filename("Beer Zone", report.Monthly, r, at))
	assert.Equal(t, "report_daily_sales_2024-01-01_to_2024-01-31_1405.xlsx", Filename("", report.Daily, r, at))
}

func TestBuild_RowsWidthsAndMerges(t *testing.T) {
	data, err := Build(
		Sheet{
			Name:         "Summary",
			Rows:         [][]interface{}{{"Title"}, {"Date", "Total"}, {"01/01/2024", 150.5}},
			ColumnWidths: []float64{16, 20},
			Merges:       []Merge{{From: "A1", To: "B1"}},
		},
		Sheet{Name: "Detail", Rows: [][]interface{}{{"x"}}},
	)
	require.NoError(t, err)

	f, err := excelize.OpenReader(bytes.NewReader(data))
	require.NoError(t, err)
	defer f.Close()

	assert.Equal(t, []string{"Summary", "Detail"}, f.GetSheetList())

	rows, err := f.GetRows("Summary")
	require.NoError(t, err)
	require.Len(t, rows, 3)
	assert.Equal(t, []string{"01/01/2024", "150.5"}, rows[2])

	width, err := f.GetColWidth("Summary", "B")
	require.NoError(t, err)
	assert.Equal(t, 20.0, width)

	merges, err := f.GetMergeCells("Summary")
	require.NoError(t, err)
	require.Len(t, merges, 1)
	assert.Equal(t, "A1", merges[0].GetStartAxis())
	assert.Equal(t, "B1", merges[0].GetEndAxis())
}

func TestBuild_NoSheets(t *testing.T) {
	_, err := Build()
	assert.Error(t, err)
}

func TestSummarySheets(t *testing.T) {
	price := decimal.NewFromInt(100)
	sales := []model.Sale{
		{Date: "2024-01-01", Time: "10:00:00", OrderNo: "#001", PaymentMethod: model.PaymentCash, TotalAmount: decimal.NewFromInt(200),
			Items: []model.SaleItem{{Name: "Bira", Price: price, Quantity: 2, Total: decimal.NewFromInt(200)}}},
		{Date: "2024-01-02", Time: "11:00:00", OrderNo: "#001", PaymentMethod: model.PaymentUPI, TotalAmount: price,
			Items: []model.SaleItem{{Name: "Tuborg", Price: price, Quantity: 1, Total: price}}},
	}
	r := clock.Range{From: "2024-01-01", To: "2024-01-02"}
	summary, err := report.Summarize(sales, r, report.Daily)
	require.NoError(t, err)

	sheets := SummarySheets("BeerZone", "₹", summary, sales)
	require.Len(t, sheets, 2)

	s := sheets[0]
	assert.Equal(t, "BeerZone Daily Sales Report", s.Rows[0][0])
	assert.Equal(t, "Period: 01/01/2024 - 02/01/2024", s.Rows[1][0])
	// title, period, blank, header, two buckets, blank, grand total
	require.Len(t, s.Rows, 8)
	assert.Equal(t, "01/01/2024", s.Rows[4][0])
	assert.Equal(t, 66.67, s.Rows[4][4])
	assert.Equal(t, "Bira (2)", s.Rows[4][5])
	assert.Equal(t, "Grand Total", s.Rows[7][0])
	assert.Equal(t, 300.0, s.Rows[7][1])

	detail := sheets[1]
	require.Len(t, detail.Rows, 3)
	assert.Equal(t, "UPI", detail.Rows[2][3])

	_, err = Build(sheets...)
	require.NoError(t, err)
}

func TestLocalSink(t *testing.T) {
	dir := filepath.Join(t.TempDir(), "exports")
	p, err := LocalSink{Dir: dir}.Save(context.Background(), "../escape.xlsx", []byte("data"))
	require.NoError(t, err)
	assert.Equal(t, filepath.Join(dir, "escape.xlsx"), p)

	got, err := os.ReadFile(p)
	require.NoError(t, err)
	assert.Equal(t, "data", string(got))
}

type fakeS3 struct {
	input *s3.PutObjectInput
	err   error
}

func (f *fakeS3) PutObject(_ context.Context, in *s3.PutObjectInput, _ ...func(*s3.Options)) (*s3.PutObjectOutput, error) {
	f.input = in
	if f.err != nil {
		return nil, f.err
	}
	return &s3.PutObjectOutput{}, nil
}

func TestS3Sink(t *testing.T) {
	fake := &fakeS3{}
	sink := &S3Sink{client: fake, bucket: "bz-reports", prefix: "exports/"}

	loc, err := sink.Save(context.Background(), "daily.xlsx", []byte("xlsx"))
	require.NoError(t, err)
	assert.Equal(t, "s3://bz-reports/exports/daily.xlsx", loc)
	assert.Equal(t, "exports/daily.xlsx", *fake.input.Key)
	assert.Equal(t, ContentType, *fake.input.ContentType)

	fake.err = errors.New("access denied")
	_, err = sink.Save(context.Background(), "daily.xlsx", []byte("xlsx"))
	assert.Error(t, err)
}
