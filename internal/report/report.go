// Package report folds sale records into day, month and year buckets.
// Everything here is pure; callers fetch the sales.
package report

import (
	"fmt"
	"sort"

	"github.com/shopspring/decimal"

	"beerzone-pos/internal/clock"
	"beerzone-pos/internal/model"
)

// Granularity selects the bucketing key.
type Granularity string

const (
	Daily   Granularity = "day"
	Monthly Granularity = "month"
	Yearly  Granularity = "year"
)

// KeyFunc maps a sale to its bucket key.
type KeyFunc func(model.Sale) string

// ByDay buckets by storage date (YYYY-MM-DD).
func ByDay(s model.Sale) string { return s.Date }

// ByMonth buckets by YYYY-MM.
func ByMonth(s model.Sale) string { return clock.MonthKey(s.Date) }

// ByYear buckets by YYYY.
func ByYear(s model.Sale) string { return clock.YearKey(s.Date) }

// KeyFunc returns the bucketing function for g.
func (g Granularity) KeyFunc() (KeyFunc, error) {
	switch g {
	case Daily, "":
		return ByDay, nil
	case Monthly:
		return ByMonth, nil
	case Yearly:
		return ByYear, nil
	}
	return nil, fmt.Errorf("unknown granularity %q", g)
}

// ItemTotal is the quantity and revenue of one product name in a bucket.
type ItemTotal struct {
	Name     string          `json:"name"`
	Quantity int             `json:"quantity"`
	Total    decimal.Decimal `json:"total"`
}

// Bucket aggregates the sales sharing one key.
type Bucket struct {
	Key          string          `json:"key"`
	TotalAmount  decimal.Decimal `json:"totalAmount"`
	OrderCount   int             `json:"orderCount"`
	AverageOrder decimal.Decimal `json:"averageOrder"`
	// Items is in first-seen order.
	Items []ItemTotal `json:"items"`
}

// TopItems returns up to n items by quantity descending. Ties keep
// first-seen order.
func (b Bucket) TopItems(n int) []ItemTotal {
	return topItems(b.Items, n)
}

func topItems(items []ItemTotal, n int) []ItemTotal {
	out := make([]ItemTotal, len(items))
	copy(out, items)
	sort.SliceStable(out, func(i, j int) bool { return out[i].Quantity > out[j].Quantity })
	if n >= 0 && len(out) > n {
		out = out[:n]
	}
	return out
}

type accumulator struct {
	bucket Bucket
	index  map[string]int
}

func (a *accumulator) add(s model.Sale) {
	a.bucket.TotalAmount = a.bucket.TotalAmount.Add(s.TotalAmount)
	a.bucket.OrderCount++
	for _, it := range s.Items {
		i, ok := a.index[it.Name]
		if !ok {
			i = len(a.bucket.Items)
			a.index[it.Name] = i
			a.bucket.Items = append(a.bucket.Items, ItemTotal{Name: it.Name, Total: decimal.Zero})
		}
		a.bucket.Items[i].Quantity += it.Quantity
		a.bucket.Items[i].Total = a.bucket.Items[i].Total.Add(it.Total)
	}
}

// Fold groups sales by key and returns buckets in ascending key order.
// Storage dates and their prefixes sort chronologically as strings.
func Fold(sales []model.Sale, key KeyFunc) []Bucket {
	accs := make(map[string]*accumulator)
	var keys []string
	for _, s := range sales {
		k := key(s)
		a, ok := accs[k]
		if !ok {
			a = &accumulator{
				bucket: Bucket{Key: k, TotalAmount: decimal.Zero},
				index:  make(map[string]int),
			}
			accs[k] = a
			keys = append(keys, k)
		}
		a.add(s)
	}
	sort.Strings(keys)

	out := make([]Bucket, len(keys))
	for i, k := range keys {
		b := accs[k].bucket
		b.AverageOrder = average(b.TotalAmount, b.OrderCount)
		out[i] = b
	}
	return out
}

func average(total decimal.Decimal, count int) decimal.Decimal {
	if count == 0 {
		return decimal.Zero
	}
	return total.Div(decimal.NewFromInt(int64(count))).Round(2)
}

// PercentOfTotal returns part/total*100 rounded to 2 places, or 0 when total is 0.
func PercentOfTotal(part, total decimal.Decimal) decimal.Decimal {
	if total.IsZero() {
		return decimal.Zero
	}
	return part.Div(total).Mul(decimal.NewFromInt(100)).Round(2)
}

// Summary is a folded report over a date range.
type Summary struct {
	Range        clock.Range     `json:"range"`
	Granularity  Granularity     `json:"granularity"`
	TotalAmount  decimal.Decimal `json:"totalAmount"`
	OrderCount   int             `json:"orderCount"`
	AverageOrder decimal.Decimal `json:"averageOrder"`
	Buckets      []Bucket        `json:"buckets"`
	// TopItems is the top-5 series across the whole range.
	TopItems []ItemTotal `json:"topItems"`
}

// Summarize folds sales at granularity g.
func Summarize(sales []model.Sale, r clock.Range, g Granularity) (Summary, error) {
	key, err := g.KeyFunc()
	if err != nil {
		return Summary{}, err
	}
	if g == "" {
		g = Daily
	}

	overall := Fold(sales, func(model.Sale) string { return "all" })
	s := Summary{
		Range:        r,
		Granularity:  g,
		TotalAmount:  decimal.Zero,
		AverageOrder: decimal.Zero,
		Buckets:      Fold(sales, key),
		TopItems:     []ItemTotal{},
	}
	if len(overall) == 1 {
		s.TotalAmount = overall[0].TotalAmount
		s.OrderCount = overall[0].OrderCount
		s.AverageOrder = overall[0].AverageOrder
		s.TopItems = overall[0].TopItems(5)
	}
	return s, nil
}

// Currency renders an amount with symbol and two decimals.
func Currency(symbol string, amount decimal.Decimal) string {
	return symbol + amount.StringFixed(2)
}
