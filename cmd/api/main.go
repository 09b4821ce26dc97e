package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"
	"time"

	_ "github.com/go-sql-driver/mysql"
	_ "github.com/lib/pq"
	"go.uber.org/zap"
	_ "modernc.org/sqlite"

	"beerzone-pos/internal/changelog"
	"beerzone-pos/internal/checkout"
	"beerzone-pos/internal/clock"
	"beerzone-pos/internal/config"
	"beerzone-pos/internal/export"
	"beerzone-pos/internal/handler"
	"beerzone-pos/internal/ledger"
	"beerzone-pos/internal/logger"
	"beerzone-pos/internal/metrics"
	"beerzone-pos/internal/middleware"
	"beerzone-pos/internal/realtime"
	"beerzone-pos/internal/repository"
	"beerzone-pos/internal/router"
	"beerzone-pos/internal/scanner"
	"beerzone-pos/internal/service"
	"beerzone-pos/internal/session"
)

// counterSessionID is the pinned session fed by the keyboard-wedge scanner.
const counterSessionID = "counter"

func main() {
	// Load configuration
	cfg := config.MustLoad()

	log := logger.New(logger.Config{Level: cfg.Log.Level, Format: cfg.Log.Format, Output: cfg.Log.Output})
	defer log.Sync()

	if err := run(cfg, log); err != nil {
		log.Fatal("server failed", zap.Error(err))
	}
	fmt.Println("Goodbye!")
}

func run(cfg *config.Config, log *zap.Logger) error {
	log.Info("starting",
		zap.String("app", cfg.App.Name),
		zap.String("version", cfg.App.Version),
		zap.String("env", cfg.App.Environment),
	)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// Document store (products, sales)
	driver, dsn, err := cfg.DocStore.DSN()
	if err != nil {
		return err
	}
	if driver == "sqlite" {
		if err := os.MkdirAll(filepath.Dir(dsn), 0o755); err != nil {
			return fmt.Errorf("failed to create data dir: %w", err)
		}
	}
	openCtx, openCancel := context.WithTimeout(ctx, 10*time.Second)
	docStore, err := repository.Open(openCtx, driver, dsn, log.Named("docstore"))
	openCancel()
	if err != nil {
		return err
	}
	defer docStore.Close()

	// Realtime store (inventory, history)
	kv, err := openRealtime(cfg.Realtime, log)
	if err != nil {
		return err
	}
	defer kv.Close()

	clk, err := clock.New(cfg.Report.Timezone)
	if err != nil {
		return err
	}

	reg := metrics.NewRegistry()

	var sink changelog.Sink = changelog.NopSink{}
	if cfg.Changelog.Enabled() {
		sink = changelog.NewKafkaSink(cfg.Changelog.Brokers, cfg.Changelog.Topic, reg, log)
		log.Info("history changelog enabled", zap.Strings("brokers", cfg.Changelog.Brokers), zap.String("topic", cfg.Changelog.Topic))
	}
	defer sink.Close()

	inv := ledger.New(kv, log, ledger.WithSink(sink), ledger.WithMetrics(reg))

	// Initialize services
	catalogService := service.NewCatalogService(docStore, inv, log)
	view := ledger.NewView(log, ledger.WithViewMetrics(reg))
	inventoryService := service.NewInventoryService(docStore, inv, view, cfg.App.LowStockThreshold, log)

	bootCtx, bootCancel := context.WithTimeout(ctx, 30*time.Second)
	created, err := inventoryService.Bootstrap(bootCtx)
	bootCancel()
	if err != nil {
		return fmt.Errorf("inventory bootstrap failed: %w", err)
	}
	log.Info("inventory bootstrap complete", zap.Int("initialized", created))

	go func() {
		if err := view.Run(ctx, inv); err != nil && !errors.Is(err, context.Canceled) {
			log.Warn("stock view stopped", zap.Error(err))
		}
	}()

	exportSink, err := openExportSink(ctx, cfg.Export)
	if err != nil {
		return err
	}
	salesService := service.NewSalesService(docStore, clk, service.SalesConfig{
		StoreName: cfg.App.StoreName,
		Currency:  cfg.App.CurrencySymbol,
		Sink:      exportSink,
	}, log)
	recorder := checkout.NewRecorder(docStore, inv, clk, reg, log.Named("checkout"))

	sessions := session.NewRegistry(session.Config{
		TTL:   cfg.Session.TTL,
		Stock: inv,
		Scanner: scanner.Options{
			Catalog:  catalogService,
			Prompter: scanner.ContextPrompter{},
			Cooldown: cfg.Scanner.Cooldown,
			Metrics:  reg,
		},
		Metrics: reg,
		Logger:  log,
	})
	defer sessions.Close()

	janitor := service.NewSessionJanitor(sessions, service.CleanupConfig{Interval: cfg.Session.SweepInterval}, log)
	janitor.Start()
	defer janitor.Stop()

	if cfg.Scanner.Device != "" {
		if err := startCounter(ctx, sessions, catalogService, cfg.Scanner, reg, log); err != nil {
			log.Warn("scanner device unavailable", zap.String("device", cfg.Scanner.Device), zap.Error(err))
		}
	}

	// Initialize handlers
	checks := []handler.ReadinessCheck{{Name: "docstore", Check: docStore.Ping}}
	if p, ok := kv.(interface{ Ping(context.Context) error }); ok {
		checks = append(checks, handler.ReadinessCheck{Name: "realtime", Check: p.Ping})
	}

	var verifier *service.IdentityVerifier
	if cfg.Auth.Enabled() {
		verifier = service.NewIdentityVerifier(cfg.Auth.JWTSecret, cfg.Auth.Issuer)
	} else if cfg.App.IsProduction() {
		return fmt.Errorf("AUTH_JWT_SECRET is required in production")
	} else {
		log.Warn("AUTH_JWT_SECRET not set, authentication disabled")
	}

	r := router.New(router.Config{
		Handler:          handler.New(cfg.App.Name, cfg.App.Version, checks...),
		ProductHandler:   handler.NewProductHandler(catalogService),
		InventoryHandler: handler.NewInventoryHandler(inventoryService),
		SessionHandler:   handler.NewSessionHandler(sessions, catalogService, recorder, reg, log),
		SalesHandler:     handler.NewSalesHandler(salesService),
		ReportHandler:    handler.NewReportHandler(salesService, sessions),
		AdminHandler:     handler.NewAdminHandler(docStore, sessions, driver, cfg.Realtime.Type),
		Metrics:          reg.Handler(),
		AuthMiddleware:   middleware.NewAuthMiddleware(middleware.AuthConfig{Verifier: verifier}),
		Logger:           log,
	})

	// Create HTTP server
	srv := &http.Server{
		Addr:         cfg.Server.Address(),
		Handler:      r,
		ReadTimeout:  cfg.Server.ReadTimeout,
		WriteTimeout: cfg.Server.WriteTimeout,
	}

	serveErr := make(chan error, 1)
	go func() {
		log.Info("server listening", zap.String("addr", cfg.Server.Address()))
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			serveErr <- err
		}
	}()

	// Graceful shutdown
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	select {
	case <-quit:
	case err := <-serveErr:
		return err
	}
	log.Info("shutting down server")

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), cfg.Server.ShutdownTimeout)
	defer shutdownCancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Error("server shutdown error", zap.Error(err))
	}

	log.Info("server stopped")
	return nil
}

func openRealtime(cfg config.RealtimeConfig, log *zap.Logger) (realtime.Store, error) {
	switch cfg.Type {
	case "redis":
		return realtime.NewRedisStore(realtime.RedisStoreConfig{
			Addr:      cfg.RedisAddress(),
			Password:  cfg.RedisPassword,
			DB:        cfg.RedisDB,
			KeyPrefix: cfg.KeyPrefix,
		}, log.Named("realtime"))
	case "pebble":
		s, err := realtime.NewPebbleStore(cfg.PebbleDir)
		if err != nil {
			return nil, err
		}
		log.Info("pebble realtime store opened", zap.String("dir", cfg.PebbleDir))
		return s, nil
	case "", "memory":
		log.Warn("using in-memory realtime store, inventory is lost on restart")
		return realtime.NewMemoryStore(), nil
	default:
		return nil, fmt.Errorf("unknown realtime store type %q", cfg.Type)
	}
}

func openExportSink(ctx context.Context, cfg config.ExportConfig) (export.Sink, error) {
	switch {
	case cfg.S3Bucket != "":
		return export.NewS3Sink(ctx, cfg.S3Region, cfg.S3Bucket, cfg.S3Prefix)
	case cfg.Dir != "":
		return export.LocalSink{Dir: cfg.Dir}, nil
	default:
		return nil, nil
	}
}

// startCounter runs a continuous scanner on the configured device and adds
// every resolved product to the pinned counter session's cart.
func startCounter(
	ctx context.Context,
	sessions *session.Registry,
	catalog scanner.CatalogSource,
	cfg config.ScannerConfig,
	reg *metrics.Registry,
	log *zap.Logger,
) error {
	log = log.Named("counter")
	counter := sessions.CreatePinned(counterSessionID, scanner.Options{
		Decoder:    scanner.NewDeviceDecoder(cfg.Device),
		Catalog:    catalog,
		Prompter:   scanner.DeclinePrompter{},
		Cooldown:   cfg.Cooldown,
		Continuous: true,
		Metrics:    reg,
		Logger:     log,
	})
	if err := counter.Scanner.Start(ctx, scanner.ModeCheckout); err != nil {
		return err
	}

	go func() {
		for {
			select {
			case <-ctx.Done():
				return
			case res := <-counter.Scanner.Results():
				if res.Product == nil {
					log.Info("scan not added", zap.String("code", res.Code), zap.String("outcome", string(res.Outcome)))
					continue
				}
				if _, err := counter.Cart.AddLine(ctx, *res.Product, 1); err != nil {
					log.Warn("counter cart rejected scan", zap.String("product_id", res.Product.ID), zap.Error(err))
				}
			}
		}
	}()

	log.Info("scanner device attached", zap.String("device", cfg.Device), zap.String("session_id", counterSessionID))
	return nil
}
