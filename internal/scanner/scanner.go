// Package scanner runs barcode scan sessions: start/stop lifecycle,
// duplicate-frame suppression and the unknown-barcode fallback.
package scanner

import (
	"context"
	"errors"
	"sync"
	"time"

	"go.uber.org/zap"

	"beerzone-pos/internal/barcode"
	"beerzone-pos/internal/metrics"
	"beerzone-pos/internal/model"
	"beerzone-pos/pkg/uid"
)

// DefaultCooldown absorbs repeated frames of one physical barcode.
const DefaultCooldown = 1500 * time.Millisecond

// Mode selects what a scan is for.
type Mode string

const (
	// ModeCheckout resolves codes against the catalog.
	ModeCheckout Mode = "checkout"
	// ModeCapture returns the raw code, e.g. when registering a product.
	ModeCapture Mode = "capture"
)

// IsValid reports whether m is a known mode.
func (m Mode) IsValid() bool {
	return m == ModeCheckout || m == ModeCapture
}

// State is the session lifecycle state.
type State string

const (
	StateIdle     State = "idle"
	StateStarting State = "starting"
	StateScanning State = "scanning"
)

// Outcome classifies a processed scan.
type Outcome string

const (
	OutcomeFound     Outcome = "found"
	OutcomeTemporary Outcome = "temporary"
	OutcomeNotFound  Outcome = "not_found"
	OutcomeCaptured  Outcome = "captured"
	OutcomeError     Outcome = "error"
)

// Result is delivered once per processed scan.
type Result struct {
	Outcome Outcome        `json:"outcome"`
	Code    string         `json:"code"`
	Product *model.Product `json:"product,omitempty"`
	Stage   string         `json:"stage,omitempty"`
	Err     error          `json:"-"`
}

// Status is a point-in-time view of a session.
type Status struct {
	State       State   `json:"state"`
	Mode        Mode    `json:"mode,omitempty"`
	LastCode    string  `json:"lastCode,omitempty"`
	LastOutcome Outcome `json:"lastOutcome,omitempty"`
}

// Decoder produces decoded codes. Start fails if the device cannot be acquired.
type Decoder interface {
	Start(ctx context.Context) (<-chan string, error)
	Stop() error
}

// CatalogSource returns the current product list.
type CatalogSource interface {
	ListProducts(ctx context.Context) ([]model.Product, error)
}

// ErrScannerBusy is returned by Start on a session that is already running.
var ErrScannerBusy = model.Validation("SCANNER_BUSY", "scanner is already running")

// Options configures a Session.
type Options struct {
	// Decoder is optional. Without one, codes arrive through Process.
	Decoder  Decoder
	Catalog  CatalogSource
	Prompter Prompter
	Cooldown time.Duration
	// Continuous keeps scanning after a handled checkout scan.
	Continuous bool
	Metrics    *metrics.Registry
	Logger     *zap.Logger
	Now        func() time.Time
}

// Session is one scanner lifecycle. Results are delivered either as the
// return value of Process or, for decoder-driven scans, on Results.
type Session struct {
	opts Options

	// procMu serializes Process so a blocking prompt holds off other scans.
	procMu sync.Mutex

	mu           sync.Mutex
	state        State
	mode         Mode
	lastCode     string
	lastAt       time.Time
	blockedUntil time.Time
	lastOutcome  Outcome
	cancel       context.CancelFunc

	results chan Result
}

// New creates an idle session.
func New(opts Options) *Session {
	if opts.Prompter == nil {
		opts.Prompter = DeclinePrompter{}
	}
	if opts.Cooldown == 0 {
		opts.Cooldown = DefaultCooldown
	}
	if opts.Logger == nil {
		opts.Logger = zap.NewNop()
	}
	if opts.Now == nil {
		opts.Now = time.Now
	}
	return &Session{opts: opts, state: StateIdle, results: make(chan Result, 16)}
}

// Results is the single stream of decoder-driven scan results.
func (s *Session) Results() <-chan Result {
	return s.results
}

// Start acquires the decoder and begins scanning in mode.
func (s *Session) Start(ctx context.Context, mode Mode) error {
	if !mode.IsValid() {
		return model.Validation("INVALID_SCAN_MODE", "mode must be checkout or capture")
	}

	s.mu.Lock()
	if s.state != StateIdle {
		s.mu.Unlock()
		return ErrScannerBusy
	}
	s.state = StateStarting
	s.mode = mode
	loopCtx, cancel := context.WithCancel(context.WithoutCancel(ctx))
	s.cancel = cancel
	s.mu.Unlock()

	var codes <-chan string
	if s.opts.Decoder != nil {
		var err error
		codes, err = s.opts.Decoder.Start(loopCtx)
		if err != nil {
			cancel()
			s.mu.Lock()
			s.state = StateIdle
			s.cancel = nil
			s.mu.Unlock()
			s.opts.Logger.Warn("scanner start failed", zap.Error(err))
			return model.StoreFailure(model.ErrCameraUnavailable.Code, model.ErrCameraUnavailable.Message, err)
		}
	}

	s.mu.Lock()
	s.state = StateScanning
	s.mu.Unlock()

	if codes != nil {
		go s.loop(loopCtx, codes)
	}
	return nil
}

func (s *Session) loop(ctx context.Context, codes <-chan string) {
	for {
		select {
		case <-ctx.Done():
			return
		case code, ok := <-codes:
			if !ok {
				s.Stop()
				return
			}
			res, handled := s.Process(ctx, code)
			if !handled {
				continue
			}
			// A handled scan may have stopped the session already; deliver it
			// before honoring cancellation.
			select {
			case s.results <- res:
			default:
				select {
				case s.results <- res:
				case <-ctx.Done():
					s.opts.Logger.Warn("scan result dropped", zap.String("code", res.Code))
					return
				}
			}
		}
	}
}

// Process handles one decoded code. It reports false when the code was
// suppressed: session not scanning, empty code, duplicate frame or cooldown.
func (s *Session) Process(ctx context.Context, raw string) (Result, bool) {
	s.procMu.Lock()
	defer s.procMu.Unlock()

	code := barcode.Normalize(raw)

	s.mu.Lock()
	now := s.opts.Now()
	switch {
	case s.state != StateScanning, code == "":
		s.mu.Unlock()
		return Result{}, false
	case now.Before(s.blockedUntil):
		s.mu.Unlock()
		return Result{}, false
	case code == s.lastCode && now.Before(s.lastAt.Add(s.opts.Cooldown)):
		s.mu.Unlock()
		return Result{}, false
	}
	s.lastCode, s.lastAt = code, now
	mode := s.mode
	s.mu.Unlock()

	var res Result
	if mode == ModeCapture {
		res = Result{Outcome: OutcomeCaptured, Code: code}
	} else {
		res = s.resolve(ctx, code)
	}

	s.finish(res)
	return res, true
}

func (s *Session) resolve(ctx context.Context, code string) Result {
	catalog, err := s.opts.Catalog.ListProducts(ctx)
	if err != nil {
		s.opts.Logger.Warn("catalog fetch failed during scan", zap.String("code", code), zap.Error(err))
		return Result{Outcome: OutcomeError, Code: code, Err: model.StoreFailure("CATALOG_READ_FAILURE", "failed to load products", err)}
	}

	p, stage, err := barcode.ResolveStage(code, catalog)
	if err == nil {
		return Result{Outcome: OutcomeFound, Code: code, Product: &p, Stage: stage.String()}
	}
	if !errors.Is(err, model.ErrBarcodeNotFound) {
		return Result{Outcome: OutcomeError, Code: code, Err: err}
	}

	answer, err := s.opts.Prompter.PromptUnknown(ctx, code)
	if err != nil {
		return Result{Outcome: OutcomeError, Code: code, Err: err}
	}
	if !answer.Add {
		return Result{Outcome: OutcomeNotFound, Code: code, Err: model.ErrBarcodeNotFound}
	}

	temp, err := model.NewProduct(answer.Name, answer.Price, code, "")
	if err != nil {
		return Result{Outcome: OutcomeError, Code: code, Err: err}
	}
	temp.ID = uid.NewWithPrefix(model.TemporaryIDPrefix)
	temp.CreatedAt = s.opts.Now()
	return Result{Outcome: OutcomeTemporary, Code: code, Product: &temp}
}

// finish applies the post-scan transition. Store errors keep the session
// scanning; every other outcome ends a one-shot session.
func (s *Session) finish(res Result) {
	if s.opts.Metrics != nil {
		s.opts.Metrics.Scans.WithLabelValues(string(res.Outcome)).Inc()
	}

	s.mu.Lock()
	s.lastOutcome = res.Outcome
	handled := res.Outcome == OutcomeFound || res.Outcome == OutcomeTemporary || res.Outcome == OutcomeCaptured
	if handled {
		s.blockedUntil = s.opts.Now().Add(s.opts.Cooldown)
	}
	stop := res.Outcome != OutcomeError && (res.Outcome == OutcomeCaptured || !s.opts.Continuous)
	s.mu.Unlock()

	if stop {
		s.Stop()
	}
}

// Stop releases the decoder and clears cooldown state. Safe to call at any
// time and more than once.
func (s *Session) Stop() {
	s.mu.Lock()
	cancel := s.cancel
	wasRunning := s.state != StateIdle
	s.cancel = nil
	s.state = StateIdle
	s.lastCode = ""
	s.lastAt = time.Time{}
	s.blockedUntil = time.Time{}
	s.mu.Unlock()

	if cancel != nil {
		cancel()
	}
	if wasRunning && s.opts.Decoder != nil {
		if err := s.opts.Decoder.Stop(); err != nil {
			s.opts.Logger.Warn("scanner stop failed", zap.Error(err))
		}
	}
}

// Status returns the current state.
func (s *Session) Status() Status {
	s.mu.Lock()
	defer s.mu.Unlock()
	return Status{State: s.state, Mode: s.mode, LastCode: s.lastCode, LastOutcome: s.lastOutcome}
}
