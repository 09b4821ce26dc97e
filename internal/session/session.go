// Package session keeps per-terminal state: cart, scanner and report filter.
package session

import (
	"sync"
	"time"

	"go.uber.org/zap"

	"beerzone-pos/internal/cart"
	"beerzone-pos/internal/clock"
	"beerzone-pos/internal/metrics"
	"beerzone-pos/internal/model"
	"beerzone-pos/internal/report"
	"beerzone-pos/internal/scanner"
	"beerzone-pos/pkg/uid"
)

// Filter is the report filter last chosen in a session.
type Filter struct {
	Period      clock.Period       `json:"period"`
	From        string             `json:"from,omitempty"`
	To          string             `json:"to,omitempty"`
	Granularity report.Granularity `json:"granularity"`
}

// Context is the state owned by one page controller.
type Context struct {
	ID        string
	CreatedAt time.Time
	Cart      *cart.Cart
	Scanner   *scanner.Session
	// Pinned sessions never expire.
	Pinned bool

	mu       sync.Mutex
	filter   Filter
	lastSeen time.Time
}

// Filter returns the session's report filter.
func (c *Context) Filter() Filter {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.filter
}

// SetFilter replaces the session's report filter.
func (c *Context) SetFilter(f Filter) {
	c.mu.Lock()
	c.filter = f
	c.mu.Unlock()
}

func (c *Context) touch(now time.Time) {
	c.mu.Lock()
	c.lastSeen = now
	c.mu.Unlock()
}

func (c *Context) idleSince() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.lastSeen
}

// Registry creates, finds and expires session contexts.
type Registry struct {
	stock   cart.StockReader
	scan    scanner.Options
	ttl     time.Duration
	now     func() time.Time
	metrics *metrics.Registry
	logger  *zap.Logger

	mu       sync.RWMutex
	sessions map[string]*Context
}

// Config configures a Registry.
type Config struct {
	TTL     time.Duration
	Stock   cart.StockReader
	Scanner scanner.Options
	Metrics *metrics.Registry
	Logger  *zap.Logger
	Now     func() time.Time
}

// NewRegistry creates an empty registry.
func NewRegistry(cfg Config) *Registry {
	if cfg.Logger == nil {
		cfg.Logger = zap.NewNop()
	}
	if cfg.Now == nil {
		cfg.Now = time.Now
	}
	if cfg.TTL == 0 {
		cfg.TTL = 2 * time.Hour
	}
	return &Registry{
		stock:    cfg.Stock,
		scan:     cfg.Scanner,
		ttl:      cfg.TTL,
		now:      cfg.Now,
		metrics:  cfg.Metrics,
		logger:   cfg.Logger,
		sessions: make(map[string]*Context),
	}
}

// Create starts a new session with a fresh cart and scanner.
func (r *Registry) Create() *Context {
	return r.add(uid.New(), r.scan, false)
}

// CreatePinned creates a non-expiring session under a fixed id with its own
// scanner options. An existing session with that id is returned unchanged.
func (r *Registry) CreatePinned(id string, opts scanner.Options) *Context {
	r.mu.RLock()
	existing, ok := r.sessions[id]
	r.mu.RUnlock()
	if ok {
		return existing
	}
	return r.add(id, opts, true)
}

func (r *Registry) add(id string, opts scanner.Options, pinned bool) *Context {
	if opts.Logger == nil {
		opts.Logger = r.logger.With(zap.String("session_id", id))
	}
	now := r.now()
	c := &Context{
		ID:        id,
		CreatedAt: now,
		Cart:      cart.New(r.stock),
		Scanner:   scanner.New(opts),
		Pinned:    pinned,
		filter:    Filter{Period: clock.PeriodToday, Granularity: report.Daily},
		lastSeen:  now,
	}

	r.mu.Lock()
	r.sessions[id] = c
	n := len(r.sessions)
	r.mu.Unlock()

	r.gauge(n)
	r.logger.Debug("session created", zap.String("session_id", id), zap.Bool("pinned", pinned))
	return c
}

// Get returns a live session and refreshes its idle timer.
func (r *Registry) Get(id string) (*Context, error) {
	r.mu.RLock()
	c, ok := r.sessions[id]
	r.mu.RUnlock()
	if !ok {
		return nil, model.ErrSessionNotFound
	}
	c.touch(r.now())
	return c, nil
}

// Delete stops the session's scanner and forgets it.
func (r *Registry) Delete(id string) error {
	r.mu.Lock()
	c, ok := r.sessions[id]
	delete(r.sessions, id)
	n := len(r.sessions)
	r.mu.Unlock()

	if !ok {
		return model.ErrSessionNotFound
	}
	c.Scanner.Stop()
	r.gauge(n)
	return nil
}

// Sweep removes sessions idle longer than the TTL and returns how many.
func (r *Registry) Sweep() int {
	cutoff := r.now().Add(-r.ttl)

	r.mu.Lock()
	var expired []*Context
	for id, c := range r.sessions {
		if c.Pinned || !c.idleSince().Before(cutoff) {
			continue
		}
		expired = append(expired, c)
		delete(r.sessions, id)
	}
	n := len(r.sessions)
	r.mu.Unlock()

	for _, c := range expired {
		c.Scanner.Stop()
		r.logger.Info("session expired", zap.String("session_id", c.ID), zap.Int("cart_lines", c.Cart.Len()))
	}
	if len(expired) > 0 {
		r.gauge(n)
	}
	return len(expired)
}

// Len returns the number of live sessions.
func (r *Registry) Len() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.sessions)
}

// Close stops every scanner.
func (r *Registry) Close() {
	r.mu.Lock()
	sessions := r.sessions
	r.sessions = make(map[string]*Context)
	r.mu.Unlock()

	for _, c := range sessions {
		c.Scanner.Stop()
	}
	r.gauge(0)
}

func (r *Registry) gauge(n int) {
	if r.metrics != nil {
		r.metrics.ActiveSessions.Set(float64(n))
	}
}
