// Package ledger owns inventory records and the append-only history log.
//
// A record write and its history append are two independent single-key
// writes. A failure between them leaves one without the other; callers
// re-read the record before retrying.
//
// Entries are mirrored to the changelog sink after the ledger lock is
// released; consumers order them by Key.
package ledger

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sort"
	"strings"
	"sync"
	"time"

	"go.uber.org/zap"

	"beerzone-pos/internal/changelog"
	"beerzone-pos/internal/metrics"
	"beerzone-pos/internal/model"
	"beerzone-pos/internal/realtime"
)

const (
	// InventoryPath holds one record per product id.
	InventoryPath = "inventory"
	// HistoryPath is the append-only operation log.
	HistoryPath = "inventory_history"
)

// Ledger is the authoritative stock store.
type Ledger struct {
	store   realtime.Store
	sink    changelog.Sink
	metrics *metrics.Registry
	logger  *zap.Logger
	now     func() time.Time

	// mu serializes read-modify-write sequences issued by this process.
	mu sync.Mutex
}

// Option configures a Ledger.
type Option func(*Ledger)

// WithSink mirrors every history entry to sink.
func WithSink(sink changelog.Sink) Option {
	return func(l *Ledger) { l.sink = sink }
}

// WithMetrics records delta counters in reg.
func WithMetrics(reg *metrics.Registry) Option {
	return func(l *Ledger) { l.metrics = reg }
}

// WithNow overrides the timestamp source.
func WithNow(now func() time.Time) Option {
	return func(l *Ledger) { l.now = now }
}

// New creates a ledger over store.
func New(store realtime.Store, logger *zap.Logger, opts ...Option) *Ledger {
	if logger == nil {
		logger = zap.NewNop()
	}
	l := &Ledger{
		store:  store,
		sink:   changelog.NopSink{},
		logger: logger,
		now:    time.Now,
	}
	for _, opt := range opts {
		opt(l)
	}
	return l
}

func recordPath(productID string) string {
	return realtime.Join(InventoryPath, productID)
}

// GetCurrent returns the stored record, or a zero record stamped now if none
// exists. The zero record is not written.
func (l *Ledger) GetCurrent(ctx context.Context, productID string) (model.InventoryRecord, error) {
	rec, ok, err := l.load(ctx, productID)
	if err != nil {
		return model.InventoryRecord{}, err
	}
	if !ok {
		return model.InventoryRecord{Quantity: 0, LastUpdated: l.now()}, nil
	}
	return rec, nil
}

func (l *Ledger) load(ctx context.Context, productID string) (model.InventoryRecord, bool, error) {
	raw, err := l.store.Get(ctx, recordPath(productID))
	if errors.Is(err, realtime.ErrNotFound) {
		return model.InventoryRecord{}, false, nil
	}
	if err != nil {
		return model.InventoryRecord{}, false, model.StoreFailure("INVENTORY_READ_FAILURE", "failed to read inventory", err)
	}

	var rec model.InventoryRecord
	if err := json.Unmarshal(raw, &rec); err != nil {
		return model.InventoryRecord{}, false, model.StoreFailure("INVENTORY_READ_FAILURE", "corrupt inventory record", err)
	}
	return rec, true, nil
}

// ApplyDelta adds to or removes from a product's stock and returns the new
// quantity. Removal clamps at zero. The history entry carries the requested
// amount, not the clamped change.
func (l *Ledger) ApplyDelta(ctx context.Context, productID string, op model.Operation, amount int, notes string) (int, error) {
	if productID == "" {
		return 0, model.ErrProductNotFound
	}
	if !op.IsDelta() {
		return 0, model.ErrInvalidOperation
	}
	if amount <= 0 {
		return 0, model.ErrInvalidAmount
	}

	before, next, entry, err := l.applyDelta(ctx, productID, op, amount, notes)
	if err != nil {
		return 0, err
	}
	l.publish(ctx, entry)

	if l.metrics != nil {
		l.metrics.InventoryDeltas.WithLabelValues(op.String()).Inc()
	}
	l.logger.Debug("inventory delta applied",
		zap.String("product_id", productID),
		zap.String("operation", op.String()),
		zap.Int("amount", amount),
		zap.Int("before", before),
		zap.Int("after", next),
	)
	return next, nil
}

func (l *Ledger) applyDelta(ctx context.Context, productID string, op model.Operation, amount int, notes string) (int, int, model.HistoryEntry, error) {
	l.mu.Lock()
	defer l.mu.Unlock()

	current, _, err := l.load(ctx, productID)
	if err != nil {
		return 0, 0, model.HistoryEntry{}, err
	}

	next := current.Quantity
	switch op {
	case model.OperationAdd:
		next += amount
	case model.OperationRemove:
		next -= amount
		if next < 0 {
			next = 0
		}
	}

	now := l.now()
	rec, err := model.NewInventoryRecord(next, now)
	if err != nil {
		return 0, 0, model.HistoryEntry{}, err
	}
	if err := l.write(ctx, productID, rec); err != nil {
		return 0, 0, model.HistoryEntry{}, err
	}
	entry, err := l.appendHistory(ctx, model.HistoryEntry{
		ProductID: productID,
		Operation: op,
		Quantity:  amount,
		Notes:     notes,
		Timestamp: now,
	})
	if err != nil {
		return 0, 0, model.HistoryEntry{}, err
	}
	return current.Quantity, next, entry, nil
}

// Initialize creates a zero record and one create entry if the product has
// no record yet. Reports whether a record was created.
func (l *Ledger) Initialize(ctx context.Context, productID string) (bool, error) {
	if productID == "" {
		return false, model.ErrProductNotFound
	}

	entry, created, err := l.initialize(ctx, productID)
	if err != nil || !created {
		return false, err
	}
	l.publish(ctx, entry)
	return true, nil
}

func (l *Ledger) initialize(ctx context.Context, productID string) (model.HistoryEntry, bool, error) {
	l.mu.Lock()
	defer l.mu.Unlock()

	_, exists, err := l.load(ctx, productID)
	if err != nil {
		return model.HistoryEntry{}, false, err
	}
	if exists {
		return model.HistoryEntry{}, false, nil
	}

	now := l.now()
	if err := l.write(ctx, productID, model.InventoryRecord{Quantity: 0, LastUpdated: now}); err != nil {
		return model.HistoryEntry{}, false, err
	}
	entry, err := l.appendHistory(ctx, model.HistoryEntry{
		ProductID: productID,
		Operation: model.OperationCreate,
		Quantity:  0,
		Notes:     "inventory initialized",
		Timestamp: now,
	})
	if err != nil {
		return model.HistoryEntry{}, false, err
	}
	return entry, true, nil
}

// Delete logs a delete entry carrying the current quantity, then removes the
// record. The product itself is untouched.
func (l *Ledger) Delete(ctx context.Context, productID string, notes string) error {
	entry, err := l.remove(ctx, productID, notes)
	if err != nil {
		return err
	}
	l.publish(ctx, entry)
	return nil
}

func (l *Ledger) remove(ctx context.Context, productID string, notes string) (model.HistoryEntry, error) {
	l.mu.Lock()
	defer l.mu.Unlock()

	current, err := l.GetCurrent(ctx, productID)
	if err != nil {
		return model.HistoryEntry{}, err
	}
	if notes == "" {
		notes = "product deleted"
	}
	entry, err := l.appendHistory(ctx, model.HistoryEntry{
		ProductID: productID,
		Operation: model.OperationDelete,
		Quantity:  current.Quantity,
		Notes:     notes,
		Timestamp: l.now(),
	})
	if err != nil {
		return model.HistoryEntry{}, err
	}
	if err := l.store.Delete(ctx, recordPath(productID)); err != nil {
		return model.HistoryEntry{}, model.StoreFailure("INVENTORY_WRITE_FAILURE", "failed to remove inventory record", err)
	}
	return entry, nil
}

func (l *Ledger) write(ctx context.Context, productID string, rec model.InventoryRecord) error {
	raw, err := json.Marshal(rec)
	if err != nil {
		return fmt.Errorf("encode inventory record: %w", err)
	}
	if err := l.store.Set(ctx, recordPath(productID), raw); err != nil {
		return model.StoreFailure("INVENTORY_WRITE_FAILURE", "failed to write inventory", err)
	}
	return nil
}

func (l *Ledger) appendHistory(ctx context.Context, e model.HistoryEntry) (model.HistoryEntry, error) {
	raw, err := json.Marshal(e)
	if err != nil {
		return e, fmt.Errorf("encode history entry: %w", err)
	}
	key, err := l.store.Push(ctx, HistoryPath, raw)
	if err != nil {
		return e, model.StoreFailure("HISTORY_WRITE_FAILURE", "failed to append inventory history", err)
	}
	e.Key = key
	return e, nil
}

// publish mirrors e to the sink. Failures are counted and logged only.
func (l *Ledger) publish(ctx context.Context, e model.HistoryEntry) {
	if err := l.sink.Publish(ctx, e); err != nil {
		if l.metrics != nil {
			l.metrics.ChangelogErrors.Inc()
		}
		l.logger.Warn("changelog publish failed",
			zap.String("product_id", e.ProductID),
			zap.String("operation", e.Operation.String()),
			zap.Error(err),
		)
	}
}

// History returns history entries ordered by timestamp, ties kept in store
// order. An empty productID returns the whole log.
func (l *Ledger) History(ctx context.Context, productID string) ([]model.HistoryEntry, error) {
	entries, err := l.store.Range(ctx, HistoryPath)
	if err != nil {
		return nil, model.StoreFailure("HISTORY_READ_FAILURE", "failed to read inventory history", err)
	}

	out := make([]model.HistoryEntry, 0, len(entries))
	for _, e := range entries {
		var h model.HistoryEntry
		if err := json.Unmarshal(e.Value, &h); err != nil {
			l.logger.Warn("skipping unreadable history entry", zap.String("key", e.Key), zap.Error(err))
			continue
		}
		if productID != "" && h.ProductID != productID {
			continue
		}
		h.Key = e.Key
		out = append(out, h)
	}
	sort.SliceStable(out, func(i, j int) bool { return out[i].Timestamp.Before(out[j].Timestamp) })
	return out, nil
}

// Snapshot returns every stored record keyed by product id.
func (l *Ledger) Snapshot(ctx context.Context) (map[string]model.InventoryRecord, error) {
	entries, err := l.store.List(ctx, InventoryPath)
	if err != nil {
		return nil, model.StoreFailure("INVENTORY_READ_FAILURE", "failed to list inventory", err)
	}

	out := make(map[string]model.InventoryRecord, len(entries))
	for _, e := range entries {
		var rec model.InventoryRecord
		if err := json.Unmarshal(e.Value, &rec); err != nil {
			l.logger.Warn("skipping unreadable inventory record", zap.String("product_id", e.Key), zap.Error(err))
			continue
		}
		out[e.Key] = rec
	}
	return out, nil
}

// Update is a pushed change to one inventory record. Dropped is non-zero
// when earlier changes were lost in transit.
type Update struct {
	ProductID string
	Record    model.InventoryRecord
	Deleted   bool
	Dropped   int
}

// Subscribe streams record changes until ctx ends.
func (l *Ledger) Subscribe(ctx context.Context) (<-chan Update, error) {
	events, err := l.store.Subscribe(ctx, InventoryPath)
	if err != nil {
		return nil, model.StoreFailure("INVENTORY_SUBSCRIBE_FAILURE", "failed to subscribe to inventory", err)
	}

	out := make(chan Update)
	go func() {
		defer close(out)
		gap := 0
		for ev := range events {
			gap += ev.Dropped
			id := strings.TrimPrefix(ev.Path, InventoryPath+"/")
			if id == ev.Path || id == "" {
				continue
			}
			u := Update{ProductID: id, Deleted: ev.Deleted, Dropped: gap}
			if !ev.Deleted {
				if err := json.Unmarshal(ev.Value, &u.Record); err != nil {
					l.logger.Warn("ignoring stale inventory payload", zap.String("path", ev.Path), zap.Error(err))
					continue
				}
			}
			select {
			case out <- u:
				gap = 0
			case <-ctx.Done():
				return
			}
		}
	}()
	return out, nil
}
