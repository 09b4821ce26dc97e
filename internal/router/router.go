package router

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/cors"
	"go.uber.org/zap"

	"beerzone-pos/internal/handler"
	"beerzone-pos/internal/middleware"
	"beerzone-pos/pkg/apierror"
	"beerzone-pos/pkg/response"
)

// Config holds the configuration for creating a router.
type Config struct {
	Handler          *handler.Handler
	ProductHandler   *handler.ProductHandler
	InventoryHandler *handler.InventoryHandler
	SessionHandler   *handler.SessionHandler
	SalesHandler     *handler.SalesHandler
	ReportHandler    *handler.ReportHandler
	AdminHandler     *handler.AdminHandler
	Metrics          http.Handler
	AuthMiddleware   func(http.Handler) http.Handler
	Logger           *zap.Logger
}

// New creates and configures the HTTP router.
func New(cfg Config) *chi.Mux {
	if cfg.Logger == nil {
		cfg.Logger = zap.NewNop()
	}

	r := chi.NewRouter()

	// Global middleware stack (applies to ALL routes)
	r.Use(middleware.NewRecovery(cfg.Logger))
	r.Use(middleware.RequestID)
	r.Use(middleware.NewLogging(cfg.Logger))
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins:   []string{"*"},
		AllowedMethods:   []string{"GET", "POST", "PUT", "DELETE", "OPTIONS"},
		AllowedHeaders:   []string{"Accept", "Authorization", "Content-Type", "X-Request-ID"},
		ExposedHeaders:   []string{"X-Request-ID", "Content-Disposition", "X-Export-Location"},
		AllowCredentials: true,
		MaxAge:           300,
	}))

	r.NotFound(func(w http.ResponseWriter, r *http.Request) {
		response.Error(w, apierror.NotFound("Route not found"))
	})
	r.MethodNotAllowed(func(w http.ResponseWriter, r *http.Request) {
		response.Error(w, &apierror.Error{
			StatusCode: http.StatusMethodNotAllowed,
			Code:       "METHOD_NOT_ALLOWED",
			Message:    r.Method + " is not allowed on " + r.URL.Path,
		})
	})

	// PUBLIC routes (no auth required)
	if cfg.Handler != nil {
		r.Get("/api/status", cfg.Handler.Status)
	}
	if cfg.Metrics != nil {
		r.Method(http.MethodGet, "/metrics", cfg.Metrics)
	}

	// AUTHENTICATED routes (use Group to apply auth middleware only to these)
	r.Group(func(r chi.Router) {
		if cfg.AuthMiddleware != nil {
			r.Use(cfg.AuthMiddleware)
		}

		r.Route("/api/v1", func(r chi.Router) {
			// Health check endpoints
			if cfg.Handler != nil {
				r.Get("/health", cfg.Handler.Health)
				r.Get("/ready", cfg.Handler.Ready)
			}

			if h := cfg.ProductHandler; h != nil {
				r.Route("/products", func(r chi.Router) {
					r.Get("/", h.List)
					r.Post("/", h.Create)
					r.Post("/resolve", h.Resolve)
					r.Get("/{id}", h.Get)
					r.Delete("/{id}", h.Delete)
				})
			}

			if h := cfg.InventoryHandler; h != nil {
				r.Route("/inventory", func(r chi.Router) {
					r.Get("/", h.Overview)
					r.Get("/history", h.AllHistory)
					r.Get("/{id}", h.Get)
					r.Post("/{id}/adjust", h.Adjust)
					r.Get("/{id}/history", h.History)
				})
			}

			if h := cfg.SessionHandler; h != nil {
				r.Post("/sessions", h.Create)
				r.Route("/sessions/{id}", func(r chi.Router) {
					r.Get("/", h.Get)
					r.Delete("/", h.Delete)

					r.Get("/cart", h.GetCart)
					r.Delete("/cart", h.ClearCart)
					r.Post("/cart/items", h.AddItem)
					r.Post("/cart/items/{productId}/decrement", h.DecrementItem)
					r.Delete("/cart/items/{productId}", h.RemoveItem)
					r.Post("/checkout", h.Checkout)

					r.Get("/scanner", h.ScannerStatus)
					r.Post("/scanner/start", h.StartScanner)
					r.Post("/scanner/frames", h.Frame)
					r.Post("/scanner/stop", h.StopScanner)
				})
			}

			if h := cfg.SalesHandler; h != nil {
				r.Route("/sales", func(r chi.Router) {
					r.Get("/", h.List)
					r.Get("/{id}", h.Get)
					r.Delete("/{id}", h.Delete)
				})
			}

			if h := cfg.ReportHandler; h != nil {
				r.Route("/reports", func(r chi.Router) {
					r.Get("/summary", h.Summary)
					r.Get("/export", h.Export)
				})
			}

			// Admin endpoints
			if cfg.AdminHandler != nil {
				r.Route("/admin", func(r chi.Router) {
					r.Get("/stats", cfg.AdminHandler.GetStats)
				})
			}
		})
	})

	return r
}
