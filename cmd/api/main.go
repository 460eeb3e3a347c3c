package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/delacruzdev/designvault-backend/api/routes"
	"github.com/delacruzdev/designvault-backend/internal/catalog"
	"github.com/delacruzdev/designvault-backend/internal/downloads"
	"github.com/delacruzdev/designvault-backend/internal/payments"
	"github.com/delacruzdev/designvault-backend/internal/pricingplans"
	"github.com/delacruzdev/designvault-backend/internal/purchases"
	"github.com/delacruzdev/designvault-backend/internal/reviews"
	"github.com/delacruzdev/designvault-backend/internal/users"
	stripewebhook "github.com/delacruzdev/designvault-backend/internal/webhooks/stripe"
	"github.com/delacruzdev/designvault-backend/pkg/config"
	"github.com/delacruzdev/designvault-backend/pkg/db"
	"github.com/delacruzdev/designvault-backend/pkg/logger"
	"github.com/delacruzdev/designvault-backend/pkg/metrics"
	"github.com/delacruzdev/designvault-backend/pkg/migrate"
	"github.com/delacruzdev/designvault-backend/pkg/redis"
	"github.com/delacruzdev/designvault-backend/pkg/storage/gcs"
	"github.com/delacruzdev/designvault-backend/pkg/stripe"
)

const shutdownGrace = 15 * time.Second

func main() {
	logg := logger.New(logger.Options{ServiceName: "api"})
	ctx := context.Background()

	if err := godotenv.Load(); err != nil {
		logg.Warn(ctx, ".env file not found, relying on environment")
	}

	cfg, err := config.Load()
	if err != nil {
		logg.Error(ctx, "failed to load config", err)
		os.Exit(1)
	}

	logg = logger.New(logger.Options{
		ServiceName: "api",
		Level:       logger.ParseLevel(cfg.App.LogLevel),
		WarnStack:   cfg.App.LogWarnStack,
	})

	dbClient, err := db.New(ctx, cfg.DB, cfg.FeatureFlags, logg)
	if err != nil {
		logg.Error(ctx, "failed to bootstrap database", err)
		os.Exit(1)
	}
	defer func() {
		if err := dbClient.Close(); err != nil {
			logg.Error(ctx, "error closing database", err)
		}
	}()

	if err := migrate.MaybeRunDev(ctx, cfg, logg, dbClient); err != nil {
		logg.Error(ctx, "failed to run dev migrations", err)
		os.Exit(1)
	}

	redisClient, err := redis.New(ctx, cfg.Redis, logg)
	if err != nil {
		logg.Error(ctx, "failed to bootstrap redis", err)
		os.Exit(1)
	}
	defer func() {
		if err := redisClient.Close(); err != nil {
			logg.Error(ctx, "error closing redis", err)
		}
	}()

	gcsClient, err := gcs.NewClient(ctx, cfg.Storage, logg)
	if err != nil {
		logg.Error(ctx, "failed to bootstrap storage", err)
		os.Exit(1)
	}
	defer func() {
		if err := gcsClient.Close(); err != nil {
			logg.Error(ctx, "error closing storage client", err)
		}
	}()

	stripeClient, err := stripe.NewClient(ctx, cfg.Stripe, logg)
	if err != nil {
		logg.Error(ctx, "failed to bootstrap stripe", err)
		os.Exit(1)
	}

	registry := prometheus.NewRegistry()
	registry.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	httpMetrics := metrics.NewHTTPMetrics(registry)
	paymentMetrics := metrics.NewPaymentMetrics(registry)
	metricsHandler := promhttp.HandlerFor(registry, promhttp.HandlerOpts{})

	gdb := dbClient.DB()
	userRepo := users.NewRepository(gdb)
	designRepo := catalog.NewDesignRepository(gdb)
	courseRepo := catalog.NewCourseRepository(gdb)
	planRepo := pricingplans.NewRepository(gdb)
	purchaseRepo := purchases.NewRepository(gdb)
	paymentRepo := payments.NewRepository(gdb)
	downloadRepo := downloads.NewRepository(gdb)
	reviewRepo := reviews.NewRepository(gdb)

	userService, err := users.NewService(userRepo, cfg.JWT, cfg.Password)
	if err != nil {
		logg.Error(ctx, "failed to build user service", err)
		os.Exit(1)
	}

	catalogService, err := catalog.NewService(designRepo, courseRepo)
	if err != nil {
		logg.Error(ctx, "failed to build catalog service", err)
		os.Exit(1)
	}

	planService, err := pricingplans.NewService(planRepo)
	if err != nil {
		logg.Error(ctx, "failed to build pricing plan service", err)
		os.Exit(1)
	}

	purchaseService, err := purchases.NewService(purchases.ServiceParams{
		Repo:              purchaseRepo,
		Designs:           designRepo,
		Courses:           courseRepo,
		Plans:             planRepo,
		TransactionRunner: dbClient,
		WithTx:            purchases.RepoFactory(purchaseRepo),
	})
	if err != nil {
		logg.Error(ctx, "failed to build purchase service", err)
		os.Exit(1)
	}

	paymentService, err := payments.NewService(payments.ServiceParams{
		Repo:              paymentRepo,
		Purchases:         purchaseRepo,
		Designs:           designRepo,
		Courses:           courseRepo,
		Plans:             planRepo,
		Stripe:            payments.NewStripeClient(stripeClient),
		TransactionRunner: dbClient,
		PaymentWithTx:     payments.PaymentRepoFactory(paymentRepo),
		PurchaseWithTx:    payments.PurchaseRepoFactory(purchaseRepo),
		Metrics:           paymentMetrics,
		Logger:            logg,
	})
	if err != nil {
		logg.Error(ctx, "failed to build payment service", err)
		os.Exit(1)
	}

	downloadService, err := downloads.NewService(downloads.ServiceParams{
		Repo:              downloadRepo,
		Designs:           designRepo,
		Purchases:         purchaseRepo,
		Storage:           gcsClient,
		TransactionRunner: dbClient,
		DownloadWithTx:    downloads.RepoFactory(downloadRepo),
		DesignWithTx:      downloads.DesignRepoFactory(designRepo),
		PurchaseWithTx:    downloads.PurchaseRepoFactory(purchaseRepo),
	})
	if err != nil {
		logg.Error(ctx, "failed to build download service", err)
		os.Exit(1)
	}

	reviewService, err := reviews.NewService(reviewRepo, purchaseRepo, dbClient, reviews.RepoFactory(reviewRepo))
	if err != nil {
		logg.Error(ctx, "failed to build review service", err)
		os.Exit(1)
	}

	webhookService, err := stripewebhook.NewService(paymentService, logg)
	if err != nil {
		logg.Error(ctx, "failed to build webhook service", err)
		os.Exit(1)
	}

	webhookGuard, err := stripewebhook.NewIdempotencyGuard(redisClient, cfg.Stripe.EventTTL, "stripe-webhook")
	if err != nil {
		logg.Error(ctx, "failed to build webhook idempotency guard", err)
		os.Exit(1)
	}

	router := routes.NewRouter(
		cfg,
		logg,
		dbClient,
		redisClient,
		gcsClient,
		httpMetrics,
		metricsHandler,
		userService,
		catalogService,
		planService,
		purchaseService,
		paymentService,
		downloadService,
		reviewService,
		stripeClient,
		webhookService,
		webhookGuard,
	)

	server := &http.Server{
		Addr:              ":" + cfg.App.Port,
		Handler:           router,
		ReadHeaderTimeout: 10 * time.Second,
	}

	stopCtx, stop := signal.NotifyContext(ctx, syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	errCh := make(chan error, 1)
	go func() {
		logg.Info(ctx, "api listening on :"+cfg.App.Port)
		errCh <- server.ListenAndServe()
	}()

	select {
	case <-stopCtx.Done():
		logg.Info(ctx, "shutdown signal received")
	case err := <-errCh:
		if err != nil && !errors.Is(err, http.ErrServerClosed) {
			logg.Error(ctx, "server error", err)
			os.Exit(1)
		}
		return
	}

	shutdownCtx, cancel := context.WithTimeout(ctx, shutdownGrace)
	defer cancel()
	if err := server.Shutdown(shutdownCtx); err != nil {
		logg.Error(ctx, "graceful shutdown failed", err)
		os.Exit(1)
	}
	logg.Info(ctx, "api stopped")
}
