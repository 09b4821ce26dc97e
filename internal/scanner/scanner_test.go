package scanner

import (
	"context"
	"errors"
	"io"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"beerzone-pos/internal/model"
)

type staticCatalog struct {
	products []model.Product
	err      error
	calls    int
}

func (c *staticCatalog) ListProducts(context.Context) ([]model.Product, error) {
	c.calls++
	return c.products, c.err
}

type fakeClock struct {
	mu sync.Mutex
	t  time.Time
}

func (c *fakeClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.t
}

func (c *fakeClock) Advance(d time.Duration) {
	c.mu.Lock()
	c.t = c.t.Add(d)
	c.mu.Unlock()
}

func newClock() *fakeClock {
	return &fakeClock{t: time.Date(2024, 5, 1, 12, 0, 0, 0, time.UTC)}
}

var catalog = []model.Product{
	{ID: "p1", Name: "Bira White", Price: decimal.NewFromInt(150), Barcode: "abc123"},
	{ID: "p2", Name: "Kingfisher", Price: decimal.NewFromInt(120), Barcode: "8901234567890"},
}

func TestSession_CaptureReturnsRawCodeAndStops(t *testing.T) {
	cat := &staticCatalog{products: catalog}
	s := New(Options{Catalog: cat})
	ctx := context.Background()

	require.NoError(t, s.Start(ctx, ModeCapture))
	res, ok := s.Process(ctx, "  NEW-CODE-1 ")
	require.True(t, ok)
	assert.Equal(t, OutcomeCaptured, res.Outcome)
	assert.Equal(t, "NEW-CODE-1", res.Code)
	assert.Zero(t, cat.calls, "capture mode skips resolution")
	assert.Equal(t, StateIdle, s.Status().State)
}

func TestSession_CheckoutFoundStops(t *testing.T) {
	cat := &staticCatalog{products: catalog}
	s := New(Options{Catalog: cat})
	ctx := context.Background()

	require.NoError(t, s.Start(ctx, ModeCheckout))
	res, ok := s.Process(ctx, "ABC-123")
	require.True(t, ok)
	assert.Equal(t, OutcomeFound, res.Outcome)
	require.NotNil(t, res.Product)
	assert.Equal(t, "p1", res.Product.ID)
	assert.Equal(t, "denoised", res.Stage)
	assert.Equal(t, 1, cat.calls, "catalog is fetched fresh per scan")

	status := s.Status()
	assert.Equal(t, StateIdle, status.State)
	assert.Equal(t, OutcomeFound, status.LastOutcome)
}

func TestSession_IgnoresCodesWhenIdle(t *testing.T) {
	s := New(Options{Catalog: &staticCatalog{products: catalog}})

	_, ok := s.Process(context.Background(), "abc123")
	assert.False(t, ok)
}

func TestSession_DuplicateAndCooldownSuppression(t *testing.T) {
	clk := newClock()
	cat := &staticCatalog{products: catalog}
	s := New(Options{Catalog: cat, Continuous: true, Now: clk.Now})
	ctx := context.Background()
	require.NoError(t, s.Start(ctx, ModeCheckout))

	_, ok := s.Process(ctx, "abc123")
	require.True(t, ok)

	clk.Advance(500 * time.Millisecond)
	_, ok = s.Process(ctx, "abc123")
	assert.False(t, ok, "duplicate frame is suppressed")
	_, ok = s.Process(ctx, "8901234567890")
	assert.False(t, ok, "any code is suppressed during cooldown")

	clk.Advance(time.Second + 10*time.Millisecond)
	res, ok := s.Process(ctx, "8901234567890")
	require.True(t, ok)
	assert.Equal(t, "p2", res.Product.ID)

	clk.Advance(2 * time.Second)
	res, ok = s.Process(ctx, "abc123")
	require.True(t, ok, "same code is accepted again after cooldown")
	assert.Equal(t, "p1", res.Product.ID)
	assert.Equal(t, 3, cat.calls)
}

func TestSession_StopClearsCooldown(t *testing.T) {
	clk := newClock()
	s := New(Options{Catalog: &staticCatalog{products: catalog}, Continuous: true, Now: clk.Now})
	ctx := context.Background()

	require.NoError(t, s.Start(ctx, ModeCheckout))
	_, ok := s.Process(ctx, "abc123")
	require.True(t, ok)

	s.Stop()
	s.Stop()
	assert.Equal(t, StateIdle, s.Status().State)

	require.NoError(t, s.Start(ctx, ModeCheckout))
	_, ok = s.Process(ctx, "abc123")
	assert.True(t, ok)
}

func TestSession_NotFoundDeclined(t *testing.T) {
	s := New(Options{Catalog: &staticCatalog{products: catalog}})
	ctx := context.Background()

	require.NoError(t, s.Start(ctx, ModeCheckout))
	res, ok := s.Process(ctx, "zz")
	require.True(t, ok)
	assert.Equal(t, OutcomeNotFound, res.Outcome)
	assert.ErrorIs(t, res.Err, model.ErrBarcodeNotFound)
	assert.Nil(t, res.Product)
	assert.Equal(t, StateIdle, s.Status().State)
}

func TestSession_NotFoundCreatesTemporaryProduct(t *testing.T) {
	var prompted string
	prompter := PrompterFunc(func(_ context.Context, code string) (Answer, error) {
		prompted = code
		return Answer{Add: true, Name: "Craft IPA", Price: decimal.RequireFromString("275.50")}, nil
	})
	s := New(Options{Catalog: &staticCatalog{products: catalog}, Prompter: prompter})
	ctx := context.Background()

	require.NoError(t, s.Start(ctx, ModeCheckout))
	res, ok := s.Process(ctx, "UNKNOWN-77")
	require.True(t, ok)
	assert.Equal(t, "UNKNOWN-77", prompted)
	assert.Equal(t, OutcomeTemporary, res.Outcome)
	require.NotNil(t, res.Product)
	assert.True(t, res.Product.IsTemporary())
	assert.Equal(t, "UNKNOWN-77", res.Product.Barcode)
	assert.Equal(t, "275.5", res.Product.Price.String())
}

func TestSession_ContextPrompter(t *testing.T) {
	s := New(Options{Catalog: &staticCatalog{products: catalog}, Prompter: ContextPrompter{}})
	require.NoError(t, s.Start(context.Background(), ModeCheckout))

	ctx := WithAnswer(context.Background(), Answer{Add: true, Name: "Mystery", Price: decimal.NewFromInt(0)})
	res, ok := s.Process(ctx, "nothing-matches")
	require.True(t, ok)
	assert.Equal(t, OutcomeError, res.Outcome, "invalid price from the prompt is a validation error")
	assert.Equal(t, model.KindValidation, model.KindOf(res.Err))
}

func TestSession_StoreErrorKeepsScanning(t *testing.T) {
	cat := &staticCatalog{err: errors.New("unavailable")}
	s := New(Options{Catalog: cat})
	ctx := context.Background()

	require.NoError(t, s.Start(ctx, ModeCheckout))
	res, ok := s.Process(ctx, "abc123")
	require.True(t, ok)
	assert.Equal(t, OutcomeError, res.Outcome)
	assert.Equal(t, model.KindStore, model.KindOf(res.Err))
	assert.Equal(t, StateScanning, s.Status().State)

	cat.err, cat.products = nil, catalog
	res, ok = s.Process(ctx, "8901234567890")
	require.True(t, ok)
	assert.Equal(t, OutcomeFound, res.Outcome)
}

func TestSession_StartValidation(t *testing.T) {
	s := New(Options{Catalog: &staticCatalog{}})
	ctx := context.Background()

	assert.Error(t, s.Start(ctx, "video"))
	require.NoError(t, s.Start(ctx, ModeCheckout))
	assert.ErrorIs(t, s.Start(ctx, ModeCheckout), ErrScannerBusy)
}

type brokenDecoder struct{}

func (brokenDecoder) Start(context.Context) (<-chan string, error) {
	return nil, errors.New("permission denied")
}
func (brokenDecoder) Stop() error { return nil }

func TestSession_CameraUnavailable(t *testing.T) {
	s := New(Options{Decoder: brokenDecoder{}, Catalog: &staticCatalog{}})

	err := s.Start(context.Background(), ModeCheckout)
	assert.ErrorIs(t, err, model.ErrCameraUnavailable)
	assert.Equal(t, StateIdle, s.Status().State)
}

func TestSession_DecoderDrivenResults(t *testing.T) {
	clk := newClock()
	dec := NewLineDecoder(func() (io.ReadCloser, error) {
		return io.NopCloser(strings.NewReader("abc123\nabc123\n\n8901234567890\n")), nil
	})
	s := New(Options{Decoder: dec, Catalog: &staticCatalog{products: catalog}, Continuous: true, Cooldown: time.Millisecond, Now: func() time.Time {
		clk.Advance(time.Second)
		return clk.Now()
	}})

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	require.NoError(t, s.Start(ctx, ModeCheckout))

	var got []string
	timeout := time.After(2 * time.Second)
	for len(got) < 3 {
		select {
		case res := <-s.Results():
			require.Equal(t, OutcomeFound, res.Outcome)
			got = append(got, res.Product.ID)
		case <-timeout:
			t.Fatalf("timed out after %v", got)
		}
	}
	assert.Equal(t, []string{"p1", "p1", "p2"}, got)

	assert.Eventually(t, func() bool { return s.Status().State == StateIdle }, time.Second, 5*time.Millisecond,
		"end of input stops the session")
}

func TestLineDecoder_OpenFailure(t *testing.T) {
	dec := NewDeviceDecoder("/nonexistent/scanner0")
	_, err := dec.Start(context.Background())
	assert.Error(t, err)
	assert.NoError(t, dec.Stop())
}
