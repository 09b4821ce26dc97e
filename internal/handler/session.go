package handler

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"

	"beerzone-pos/internal/checkout"
	"beerzone-pos/internal/metrics"
	"beerzone-pos/internal/middleware"
	"beerzone-pos/internal/model"
	"beerzone-pos/internal/scanner"
	"beerzone-pos/internal/service"
	"beerzone-pos/internal/session"
	"beerzone-pos/pkg/apierror"
	"beerzone-pos/pkg/response"
	"beerzone-pos/pkg/uid"
)

// SessionHandler handles session, cart, checkout and scanner requests.
type SessionHandler struct {
	sessions *session.Registry
	catalog  *service.CatalogService
	recorder *checkout.Recorder
	metrics  *metrics.Registry
	logger   *zap.Logger
}

// NewSessionHandler creates a new session handler. reg may be nil.
func NewSessionHandler(
	sessions *session.Registry,
	catalog *service.CatalogService,
	recorder *checkout.Recorder,
	reg *metrics.Registry,
	logger *zap.Logger,
) *SessionHandler {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &SessionHandler{
		sessions: sessions,
		catalog:  catalog,
		recorder: recorder,
		metrics:  reg,
		logger:   logger.Named("sessions"),
	}
}

// SessionResponse describes a session.
type SessionResponse struct {
	ID      string         `json:"id"`
	Scanner scanner.Status `json:"scanner"`
	Filter  session.Filter `json:"filter"`
}

// CartResponse is the current cart of a session.
type CartResponse struct {
	Lines     []model.CartLine `json:"lines"`
	Total     decimal.Decimal  `json:"total"`
	ItemCount int              `json:"itemCount"`
}

// CustomItem describes a product synthesized for an unknown barcode.
type CustomItem struct {
	Barcode string          `json:"barcode"`
	Name    string          `json:"name" validate:"required"`
	Price   decimal.Decimal `json:"price"`
}

// AddItemRequest is the body of POST /sessions/{id}/cart/items.
type AddItemRequest struct {
	ProductID string      `json:"productId" validate:"required_without=Custom"`
	Custom    *CustomItem `json:"custom"`
	Quantity  int         `json:"quantity" validate:"gte=0"`
}

// CheckoutRequest is the body of POST /sessions/{id}/checkout.
type CheckoutRequest struct {
	PaymentMethod string `json:"paymentMethod" validate:"required,oneof=cash card upi"`
}

// StartScannerRequest is the body of POST /sessions/{id}/scanner/start.
type StartScannerRequest struct {
	Mode string `json:"mode" validate:"omitempty,oneof=checkout capture"`
}

// FrameRequest carries one decoded code. Answer pre-supplies the reply to the
// unknown-barcode prompt.
type FrameRequest struct {
	Code   string          `json:"code"`
	Answer *scanner.Answer `json:"answer"`
}

// FrameResponse is the outcome of one frame.
type FrameResponse struct {
	Handled bool            `json:"handled"`
	Result  *scanner.Result `json:"result,omitempty"`
	Message string          `json:"message,omitempty"`
	// Line is the cart line after a checkout-mode scan was added.
	Line *model.CartLine `json:"line,omitempty"`
	// CartError explains why a resolved product was not added.
	CartError *apierror.Error `json:"cartError,omitempty"`
	Cart      *CartResponse   `json:"cart,omitempty"`
}

func (h *SessionHandler) session(w http.ResponseWriter, r *http.Request) (*session.Context, bool) {
	sc, err := h.sessions.Get(chi.URLParam(r, "id"))
	if err != nil {
		response.Error(w, err)
		return nil, false
	}
	return sc, true
}

func cartOf(sc *session.Context) CartResponse {
	lines := sc.Cart.Lines()
	count := 0
	for _, l := range lines {
		count += l.Quantity
	}
	return CartResponse{Lines: lines, Total: sc.Cart.Total(), ItemCount: count}
}

func describe(sc *session.Context) SessionResponse {
	return SessionResponse{ID: sc.ID, Scanner: sc.Scanner.Status(), Filter: sc.Filter()}
}

// Create handles POST /api/v1/sessions
func (h *SessionHandler) Create(w http.ResponseWriter, r *http.Request) {
	sc := h.sessions.Create()
	response.Created(w, describe(sc))
}

// Get handles GET /api/v1/sessions/{id}
func (h *SessionHandler) Get(w http.ResponseWriter, r *http.Request) {
	sc, ok := h.session(w, r)
	if !ok {
		return
	}
	response.OK(w, describe(sc))
}

// Delete handles DELETE /api/v1/sessions/{id}
func (h *SessionHandler) Delete(w http.ResponseWriter, r *http.Request) {
	if err := h.sessions.Delete(chi.URLParam(r, "id")); err != nil {
		response.Error(w, err)
		return
	}
	response.NoContent(w)
}

// GetCart handles GET /api/v1/sessions/{id}/cart
func (h *SessionHandler) GetCart(w http.ResponseWriter, r *http.Request) {
	sc, ok := h.session(w, r)
	if !ok {
		return
	}
	response.OK(w, cartOf(sc))
}

// AddItem handles POST /api/v1/sessions/{id}/cart/items
func (h *SessionHandler) AddItem(w http.ResponseWriter, r *http.Request) {
	sc, ok := h.session(w, r)
	if !ok {
		return
	}

	var req AddItemRequest
	if err := middleware.Bind(r, &req); err != nil {
		response.Error(w, err)
		return
	}
	qty := req.Quantity
	if qty == 0 {
		qty = 1
	}

	var p model.Product
	if req.Custom != nil {
		custom, err := model.NewProduct(req.Custom.Name, req.Custom.Price, req.Custom.Barcode, "")
		if err != nil {
			response.Error(w, err)
			return
		}
		custom.ID = uid.NewWithPrefix(model.TemporaryIDPrefix)
		p = custom
	} else {
		found, err := h.catalog.Get(r.Context(), req.ProductID)
		if err != nil {
			response.Error(w, err)
			return
		}
		p = found
	}

	line, err := sc.Cart.AddLine(r.Context(), p, qty)
	if err != nil {
		h.rejected(err)
		response.Error(w, err)
		return
	}
	response.OK(w, map[string]interface{}{
		"line": line,
		"cart": cartOf(sc),
	})
}

// rejected counts a failed cart add by its error code.
func (h *SessionHandler) rejected(err error) {
	if h.metrics == nil {
		return
	}
	h.metrics.CartRejections.WithLabelValues(apierror.FromError(err).Code).Inc()
}

// DecrementItem handles POST /api/v1/sessions/{id}/cart/items/{productId}/decrement
func (h *SessionHandler) DecrementItem(w http.ResponseWriter, r *http.Request) {
	sc, ok := h.session(w, r)
	if !ok {
		return
	}
	if _, err := sc.Cart.DecrementLine(chi.URLParam(r, "productId")); err != nil {
		response.Error(w, err)
		return
	}
	response.OK(w, cartOf(sc))
}

// RemoveItem handles DELETE /api/v1/sessions/{id}/cart/items/{productId}
func (h *SessionHandler) RemoveItem(w http.ResponseWriter, r *http.Request) {
	sc, ok := h.session(w, r)
	if !ok {
		return
	}
	if err := sc.Cart.RemoveLine(chi.URLParam(r, "productId")); err != nil {
		response.Error(w, err)
		return
	}
	response.OK(w, cartOf(sc))
}

// ClearCart handles DELETE /api/v1/sessions/{id}/cart
func (h *SessionHandler) ClearCart(w http.ResponseWriter, r *http.Request) {
	sc, ok := h.session(w, r)
	if !ok {
		return
	}
	sc.Cart.Clear()
	response.OK(w, cartOf(sc))
}

// Checkout handles POST /api/v1/sessions/{id}/checkout
func (h *SessionHandler) Checkout(w http.ResponseWriter, r *http.Request) {
	sc, ok := h.session(w, r)
	if !ok {
		return
	}

	var req CheckoutRequest
	if err := middleware.Bind(r, &req); err != nil {
		response.Error(w, err)
		return
	}

	receipt, err := h.recorder.Checkout(r.Context(), sc.Cart, model.PaymentMethod(req.PaymentMethod))
	if err != nil {
		response.Error(w, err)
		return
	}
	if pf := receipt.PartialFailure(); pf != nil {
		middleware.RequestLogger(r.Context(), h.logger).Warn("sale recorded with debit failures",
			zap.String("session_id", sc.ID),
			zap.String("order_no", receipt.Sale.OrderNo),
			zap.Error(pf),
		)
	}
	response.Created(w, receipt)
}

// StartScanner handles POST /api/v1/sessions/{id}/scanner/start
func (h *SessionHandler) StartScanner(w http.ResponseWriter, r *http.Request) {
	sc, ok := h.session(w, r)
	if !ok {
		return
	}

	var req StartScannerRequest
	if err := middleware.Bind(r, &req); err != nil {
		response.Error(w, err)
		return
	}
	mode := scanner.Mode(req.Mode)
	if mode == "" {
		mode = scanner.ModeCheckout
	}

	if err := sc.Scanner.Start(r.Context(), mode); err != nil {
		response.Error(w, err)
		return
	}
	response.OK(w, sc.Scanner.Status())
}

// Frame handles POST /api/v1/sessions/{id}/scanner/frames
func (h *SessionHandler) Frame(w http.ResponseWriter, r *http.Request) {
	sc, ok := h.session(w, r)
	if !ok {
		return
	}

	var req FrameRequest
	if err := middleware.Bind(r, &req); err != nil {
		response.Error(w, err)
		return
	}

	ctx := r.Context()
	if req.Answer != nil {
		ctx = scanner.WithAnswer(ctx, *req.Answer)
	}

	mode := sc.Scanner.Status().Mode
	res, handled := sc.Scanner.Process(ctx, req.Code)
	if !handled {
		response.OK(w, FrameResponse{Handled: false})
		return
	}

	out := FrameResponse{Handled: true, Result: &res}
	if res.Err != nil {
		out.Message = res.Err.Error()
	}

	if mode == scanner.ModeCheckout && res.Product != nil &&
		(res.Outcome == scanner.OutcomeFound || res.Outcome == scanner.OutcomeTemporary) {
		line, err := sc.Cart.AddLine(ctx, *res.Product, 1)
		if err != nil {
			h.rejected(err)
			out.CartError = apierror.FromError(err)
		} else {
			out.Line = &line
		}
		cart := cartOf(sc)
		out.Cart = &cart
	}
	response.OK(w, out)
}

// StopScanner handles POST /api/v1/sessions/{id}/scanner/stop
func (h *SessionHandler) StopScanner(w http.ResponseWriter, r *http.Request) {
	sc, ok := h.session(w, r)
	if !ok {
		return
	}
	sc.Scanner.Stop()
	response.OK(w, sc.Scanner.Status())
}

// ScannerStatus handles GET /api/v1/sessions/{id}/scanner
func (h *SessionHandler) ScannerStatus(w http.ResponseWriter, r *http.Request) {
	sc, ok := h.session(w, r)
	if !ok {
		return
	}
	response.OK(w, sc.Scanner.Status())
}
