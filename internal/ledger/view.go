package ledger

import (
	"context"
	"sync"
	"time"

	"go.uber.org/zap"

	"beerzone-pos/internal/metrics"
	"beerzone-pos/internal/model"
)

// DefaultResyncInterval is how often a running View reloads its snapshot.
const DefaultResyncInterval = time.Minute

// View is an in-memory copy of inventory records kept current by the
// realtime subscription. It is advisory: availability checks read the
// ledger, never the view.
type View struct {
	mu      sync.RWMutex
	records map[string]model.InventoryRecord
	logger  *zap.Logger
	metrics *metrics.Registry
	resync  time.Duration
}

// ViewOption configures a View.
type ViewOption func(*View)

// WithResyncInterval sets the periodic reload interval. Zero disables it.
func WithResyncInterval(d time.Duration) ViewOption {
	return func(v *View) { v.resync = d }
}

// WithViewMetrics counts dropped subscription events in reg.
func WithViewMetrics(reg *metrics.Registry) ViewOption {
	return func(v *View) { v.metrics = reg }
}

// NewView creates an empty view.
func NewView(logger *zap.Logger, opts ...ViewOption) *View {
	if logger == nil {
		logger = zap.NewNop()
	}
	v := &View{
		records: make(map[string]model.InventoryRecord),
		logger:  logger,
		resync:  DefaultResyncInterval,
	}
	for _, opt := range opts {
		opt(v)
	}
	return v
}

// Load replaces the view with a full snapshot from the ledger.
func (v *View) Load(ctx context.Context, l *Ledger) error {
	snap, err := l.Snapshot(ctx)
	if err != nil {
		return err
	}
	v.mu.Lock()
	v.records = snap
	v.mu.Unlock()
	return nil
}

// Apply folds one update into the view.
func (v *View) Apply(u Update) {
	v.mu.Lock()
	defer v.mu.Unlock()
	if u.Deleted {
		delete(v.records, u.ProductID)
		return
	}
	v.records[u.ProductID] = u.Record
}

// Run loads a snapshot and then applies updates until ctx ends. The snapshot
// is reloaded after any gap in the update stream and on every resync tick.
func (v *View) Run(ctx context.Context, l *Ledger) error {
	updates, err := l.Subscribe(ctx)
	if err != nil {
		return err
	}
	if err := v.Load(ctx, l); err != nil {
		v.logger.Warn("initial inventory snapshot failed", zap.Error(err))
	}

	var tick <-chan time.Time
	if v.resync > 0 {
		ticker := time.NewTicker(v.resync)
		defer ticker.Stop()
		tick = ticker.C
	}

	for {
		select {
		case u, ok := <-updates:
			if !ok {
				return ctx.Err()
			}
			v.handle(ctx, l, u)
		case <-tick:
			v.reload(ctx, l, "periodic")
		}
	}
}

func (v *View) handle(ctx context.Context, l *Ledger, u Update) {
	if u.Dropped == 0 {
		v.Apply(u)
		return
	}
	if v.metrics != nil {
		v.metrics.StockViewDrops.Add(float64(u.Dropped))
	}
	v.logger.Warn("inventory updates dropped, reloading view", zap.Int("dropped", u.Dropped))
	v.Apply(u)
	v.reload(ctx, l, "gap")
}

func (v *View) reload(ctx context.Context, l *Ledger, reason string) {
	if err := v.Load(ctx, l); err != nil {
		v.logger.Warn("inventory view reload failed", zap.String("reason", reason), zap.Error(err))
	}
}

// Get returns the last observed record for productID.
func (v *View) Get(productID string) (model.InventoryRecord, bool) {
	v.mu.RLock()
	defer v.mu.RUnlock()
	rec, ok := v.records[productID]
	return rec, ok
}

// Len returns the number of records in the view.
func (v *View) Len() int {
	v.mu.RLock()
	defer v.mu.RUnlock()
	return len(v.records)
}
