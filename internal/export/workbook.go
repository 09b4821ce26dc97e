// Package export builds spreadsheet workbooks from report data.
package export

import (
	"bytes"
	"fmt"
	"strings"
	"time"

	"github.com/xuri/excelize/v2"

	"beerzone-pos/internal/clock"
	"beerzone-pos/internal/model"
	"beerzone-pos/internal/report"
)

// ContentType is the MIME type of generated workbooks.
const ContentType = "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet"

// Merge is an inclusive cell region such as A1:F1.
type Merge struct {
	From string
	To   string
}

// Sheet is an ordered list of rows plus layout hints.
type Sheet struct {
	Name         string
	Rows         [][]interface{}
	ColumnWidths []float64
	Merges       []Merge
}

// Build renders sheets into an xlsx document.
func Build(sheets ...Sheet) ([]byte, error) {
	if len(sheets) == 0 {
		return nil, fmt.Errorf("workbook needs at least one sheet")
	}

	f := excelize.NewFile()
	defer f.Close()

	for i, sh := range sheets {
		if i == 0 {
			if err := f.SetSheetName("Sheet1", sh.Name); err != nil {
				return nil, fmt.Errorf("rename sheet: %w", err)
			}
		} else if _, err := f.NewSheet(sh.Name); err != nil {
			return nil, fmt.Errorf("add sheet %s: %w", sh.Name, err)
		}

		for r, row := range sh.Rows {
			cell, err := excelize.CoordinatesToCellName(1, r+1)
			if err != nil {
				return nil, err
			}
			row := row
			if err := f.SetSheetRow(sh.Name, cell, &row); err != nil {
				return nil, fmt.Errorf("write %s row %d: %w", sh.Name, r+1, err)
			}
		}

		for c, w := range sh.ColumnWidths {
			col, err := excelize.ColumnNumberToName(c + 1)
			if err != nil {
				return nil, err
			}
			if err := f.SetColWidth(sh.Name, col, col, w); err != nil {
				return nil, fmt.Errorf("set width %s: %w", col, err)
			}
		}

		for _, m := range sh.Merges {
			if err := f.MergeCell(sh.Name, m.From, m.To); err != nil {
				return nil, fmt.Errorf("merge %s:%s: %w", m.From, m.To, err)
			}
		}
	}

	buf, err := f.WriteToBuffer()
	if err != nil {
		return nil, fmt.Errorf("write workbook: %w", err)
	}
	return bytes.Clone(buf.Bytes()), nil
}

// Filename derives a stable name from report type, range and the HHMM of at.
func Filename(storeName string, g report.Granularity, r clock.Range, at time.Time) string {
	store := strings.Join(strings.Fields(storeName), "_")
	if store == "" {
		store = "report"
	}
	return fmt.Sprintf("%s_%s_sales_%s_to_%s_%s.xlsx", store, kindLabel(g), r.From, r.To, at.Format("1504"))
}

func kindLabel(g report.Granularity) string {
	switch g {
	case report.Monthly:
		return "monthly"
	case report.Yearly:
		return "yearly"
	default:
		return "daily"
	}
}

// SummarySheets lays out a summary sheet and a line-item detail sheet.
func SummarySheets(storeName, currency string, s report.Summary, sales []model.Sale) []Sheet {
	kind := kindLabel(s.Granularity)
	title := fmt.Sprintf("%s %s Sales Report", storeName, strings.ToUpper(kind[:1])+kind[1:])
	period := fmt.Sprintf("Period: %s - %s", clock.DisplayDate(s.Range.From), clock.DisplayDate(s.Range.To))

	summary := Sheet{
		Name: "Summary",
		Rows: [][]interface{}{
			{title},
			{period},
			{},
			{bucketHeader(s.Granularity), "Total Sales (" + currency + ")", "Orders", "Average Order (" + currency + ")", "% of Total", "Top Items"},
		},
		ColumnWidths: []float64{16, 18, 10, 22, 12, 48},
		Merges:       []Merge{{From: "A1", To: "F1"}, {From: "A2", To: "F2"}},
	}

	for _, b := range s.Buckets {
		summary.Rows = append(summary.Rows, []interface{}{
			bucketLabel(s.Granularity, b.Key),
			b.TotalAmount.Round(2).InexactFloat64(),
			b.OrderCount,
			b.AverageOrder.Round(2).InexactFloat64(),
			report.PercentOfTotal(b.TotalAmount, s.TotalAmount).InexactFloat64(),
			topItemsLabel(b.TopItems(3)),
		})
	}
	summary.Rows = append(summary.Rows, []interface{}{}, []interface{}{
		"Grand Total",
		s.TotalAmount.Round(2).InexactFloat64(),
		s.OrderCount,
		s.AverageOrder.Round(2).InexactFloat64(),
		100.0,
		topItemsLabel(s.TopItems),
	})

	detail := Sheet{
		Name: "Sales Detail",
		Rows: [][]interface{}{
			{"Date", "Time", "Order No", "Payment", "Product", "Quantity", "Unit Price", "Line Total"},
		},
		ColumnWidths: []float64{12, 10, 10, 10, 32, 10, 12, 12},
	}
	for _, sale := range sales {
		for _, it := range sale.Items {
			detail.Rows = append(detail.Rows, []interface{}{
				clock.DisplayDate(sale.Date),
				sale.Time,
				sale.OrderNo,
				strings.ToUpper(string(sale.PaymentMethod)),
				it.Name,
				it.Quantity,
				it.Price.Round(2).InexactFloat64(),
				it.Total.Round(2).InexactFloat64(),
			})
		}
	}

	return []Sheet{summary, detail}
}

func bucketHeader(g report.Granularity) string {
	switch g {
	case report.Monthly:
		return "Month"
	case report.Yearly:
		return "Year"
	default:
		return "Date"
	}
}

func bucketLabel(g report.Granularity, key string) string {
	switch g {
	case report.Monthly:
		t, err := time.Parse(clock.MonthLayout, key)
		if err != nil {
			return key
		}
		return t.Format("Jan 2006")
	case report.Yearly:
		return key
	default:
		return clock.DisplayDate(key)
	}
}

func topItemsLabel(items []report.ItemTotal) string {
	parts := make([]string, len(items))
	for i, it := range items {
		parts[i] = fmt.Sprintf("%s (%d)", it.Name, it.Quantity)
	}
	return strings.Join(parts, ", ")
}
