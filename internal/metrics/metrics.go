package metrics

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Registry holds the service's Prometheus collectors.
type Registry struct {
	reg *prometheus.Registry

	Checkouts          prometheus.Counter
	SaleRecordFailures prometheus.Counter
	DebitFailures      prometheus.Counter
	CheckoutLatencySec prometheus.Histogram

	InventoryDeltas *prometheus.CounterVec // by operation
	CartRejections  *prometheus.CounterVec // by reason
	Scans           *prometheus.CounterVec // by outcome
	ChangelogErrors prometheus.Counter
	StockViewDrops  prometheus.Counter
	ActiveSessions  prometheus.Gauge
}

// NewRegistry creates a registry with Go runtime and process collectors.
func NewRegistry() *Registry {
	r := prometheus.NewRegistry()

	checkouts := prometheus.NewCounter(prometheus.CounterOpts{Name: "beerzone_checkouts_total"})
	saleFailures := prometheus.NewCounter(prometheus.CounterOpts{Name: "beerzone_sale_record_failures_total"})
	debitFailures := prometheus.NewCounter(prometheus.CounterOpts{Name: "beerzone_inventory_debit_failures_total"})
	latency := prometheus.NewHistogram(prometheus.HistogramOpts{
		Name:    "beerzone_checkout_latency_seconds",
		Buckets: prometheus.DefBuckets,
	})
	deltas := prometheus.NewCounterVec(prometheus.CounterOpts{Name: "beerzone_inventory_deltas_total"}, []string{"operation"})
	rejections := prometheus.NewCounterVec(prometheus.CounterOpts{Name: "beerzone_cart_rejections_total"}, []string{"reason"})
	scans := prometheus.NewCounterVec(prometheus.CounterOpts{Name: "beerzone_scans_total"}, []string{"outcome"})
	changelogErrors := prometheus.NewCounter(prometheus.CounterOpts{Name: "beerzone_changelog_publish_errors_total"})
	viewDrops := prometheus.NewCounter(prometheus.CounterOpts{Name: "beerzone_stock_view_dropped_events_total"})
	sessions := prometheus.NewGauge(prometheus.GaugeOpts{Name: "beerzone_active_sessions"})

	r.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
		checkouts, saleFailures, debitFailures, latency,
		deltas, rejections, scans, changelogErrors, viewDrops, sessions,
	)

	return &Registry{
		reg:                r,
		Checkouts:          checkouts,
		SaleRecordFailures: saleFailures,
		DebitFailures:      debitFailures,
		CheckoutLatencySec: latency,
		InventoryDeltas:    deltas,
		CartRejections:     rejections,
		Scans:              scans,
		ChangelogErrors:    changelogErrors,
		StockViewDrops:     viewDrops,
		ActiveSessions:     sessions,
	}
}

// Handler serves the registry in the Prometheus exposition format.
func (r *Registry) Handler() http.Handler { return promhttp.HandlerFor(r.reg, promhttp.HandlerOpts{}) }
