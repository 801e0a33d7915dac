package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/harvestly/farmstand-service/config"
	"github.com/harvestly/farmstand-service/internal/httpx"
	"github.com/harvestly/farmstand-service/internal/inventory"
	invhandler "github.com/harvestly/farmstand-service/internal/inventory/handler"
	invrepo "github.com/harvestly/farmstand-service/internal/inventory/repository"
	invusecase "github.com/harvestly/farmstand-service/internal/inventory/usecase"
	"github.com/harvestly/farmstand-service/internal/marketplace"
	mphandler "github.com/harvestly/farmstand-service/internal/marketplace/handler"
	mprepo "github.com/harvestly/farmstand-service/internal/marketplace/repository"
	mpusecase "github.com/harvestly/farmstand-service/internal/marketplace/usecase"
	"github.com/harvestly/farmstand-service/internal/notification"
	"github.com/harvestly/farmstand-service/internal/order"
	orderhandler "github.com/harvestly/farmstand-service/internal/order/handler"
	orderrepo "github.com/harvestly/farmstand-service/internal/order/repository"
	orderusecase "github.com/harvestly/farmstand-service/internal/order/usecase"
	"github.com/harvestly/farmstand-service/internal/payments"
	"github.com/harvestly/farmstand-service/internal/payout"
	payouthandler "github.com/harvestly/farmstand-service/internal/payout/handler"
	payoutrepo "github.com/harvestly/farmstand-service/internal/payout/repository"
	payoutusecase "github.com/harvestly/farmstand-service/internal/payout/usecase"
	"github.com/harvestly/farmstand-service/internal/pkg/broker"
	"github.com/harvestly/farmstand-service/internal/pkg/cache"
	"github.com/harvestly/farmstand-service/internal/pkg/logger"
	"github.com/harvestly/farmstand-service/internal/pkg/postgres"
	"github.com/harvestly/farmstand-service/internal/pkg/search"
	"github.com/joho/godotenv"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"
)

const (
	shutdownTimeout = 10 * time.Second
	farmStatsPeriod = 15 * time.Minute
	payoutRunPeriod = 1 * time.Hour
)

func main() {
	_ = godotenv.Load()
	cfg := config.LoadEnv()

	log := logger.New(&logger.Config{
		IsDevelopment:     cfg.Server.AppEnv == "development",
		Encoding:          cfg.Logger.Encoding,
		Level:             cfg.Logger.Level,
		DisableCaller:     cfg.Logger.DisableCaller,
		DisableStacktrace: cfg.Logger.DisableStacktrace,
	})
	defer log.Sync()

	db, err := postgres.New(&postgres.Config{
		Host:            cfg.Postgres.Host,
		Port:            cfg.Postgres.Port,
		User:            cfg.Postgres.User,
		Password:        cfg.Postgres.Password,
		DBName:          cfg.Postgres.DBName,
		SSLMode:         cfg.Postgres.SSLMode,
		MaxOpenConns:    cfg.Postgres.MaxOpenConns,
		MaxIdleConns:    cfg.Postgres.MaxIdleConns,
		ConnMaxLifetime: cfg.Postgres.ConnMaxLifetime,
		ConnMaxIdleTime: cfg.Postgres.ConnMaxIdleTime,
	})
	if err != nil {
		log.Fatal("failed to connect to postgres", zap.Error(err))
	}
	defer db.Close()
	log.Info("connected to postgres", zap.String("host", cfg.Postgres.Host))

	cacheClient := cache.New(&cache.Config{
		Addr:     cfg.Redis.Addr,
		Password: cfg.Redis.Password,
		DB:       cfg.Redis.DB,
	})
	if err := cacheClient.Ping(context.Background()); err != nil {
		log.Fatal("failed to connect to redis", zap.Error(err))
	}
	log.Info("connected to redis", zap.String("addr", cfg.Redis.Addr))

	searchClient, err := search.New(&search.Config{
		Addresses: cfg.Elastic.Addresses,
		Username:  cfg.Elastic.Username,
		Password:  cfg.Elastic.Password,
	})
	if err != nil {
		log.Warn("search unavailable, queries fall back to postgres", zap.Error(err))
		searchClient = nil
	}

	producer := broker.NewProducer(cfg.Kafka.Brokers, cfg.Kafka.Topic)
	defer producer.Close()

	var processor payments.Processor
	if cfg.Stripe.UseMock || cfg.Stripe.SecretKey == "" {
		log.Info("using mock payment processor")
		processor = payments.NewMockProcessor()
	} else {
		processor = payments.NewStripeProcessor(cfg.Stripe.SecretKey, log)
	}

	minimumPayout, err := decimal.NewFromString(cfg.Payout.MinimumAmount)
	if err != nil {
		log.Fatal("invalid payout minimum", zap.String("value", cfg.Payout.MinimumAmount), zap.Error(err))
	}

	notifier := notification.NewService(db, producer, log)

	inventoryUC := invusecase.NewInventoryUseCase(invrepo.NewPGRepository(db), cacheClient, log)
	marketplaceRepo := mprepo.NewPGRepository(db)
	marketplaceUC := mpusecase.NewMarketplaceUseCase(marketplaceRepo, searchClient, cacheClient, processor, log)
	orderUC := orderusecase.NewOrderUseCase(
		orderrepo.NewPGRepository(db), inventoryUC, marketplaceRepo, processor, notifier, log)
	payoutUC := payoutusecase.NewPayoutUseCase(
		payoutrepo.NewPGRepository(db), processor, notifier, minimumPayout, log)

	router := newRouter(cfg, log, inventoryUC, orderUC, payoutUC, marketplaceUC, processor)

	srv := &http.Server{
		Addr:         cfg.Server.HTTPAddr,
		Handler:      router,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 30 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	go refreshFarmStats(ctx, marketplaceRepo, log)
	go runScheduledPayouts(ctx, payoutUC, log)

	go func() {
		log.Info("http server listening", zap.String("addr", cfg.Server.HTTPAddr))
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Error("http server failed", zap.Error(err))
			stop()
		}
	}()

	<-ctx.Done()
	log.Info("shutting down")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Error("graceful shutdown failed", zap.Error(err))
		os.Exit(1)
	}
}

func newRouter(
	cfg *config.Config,
	log *zap.Logger,
	inventoryUC inventory.UseCase,
	orderUC order.UseCase,
	payoutUC payout.UseCase,
	marketplaceUC marketplace.UseCase,
	processor payments.Processor,
) http.Handler {
	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(middleware.Recoverer)
	r.Use(middleware.Timeout(30 * time.Second))
	r.Use(httpx.RequestLogger(log))

	r.Get("/healthz", func(w http.ResponseWriter, _ *http.Request) {
		httpx.JSON(w, http.StatusOK, map[string]string{"status": "ok"})
	})

	// Webhooks authenticate by signature, not identity headers.
	webhook := payments.NewWebhookHandler(cfg.Stripe.WebhookSecret, orderUC, log)
	r.Post("/webhooks/stripe", webhook.Handle)

	r.Route("/api/v1", func(r chi.Router) {
		r.Use(httpx.ActorContext)
		invhandler.NewInventoryHandler(inventoryUC, log).Routes(r)
		orderhandler.NewOrderHandler(orderUC, log).Routes(r)
		payouthandler.NewPayoutHandler(payoutUC, log).Routes(r)
		mphandler.NewMarketplaceHandler(marketplaceUC, log).Routes(r)
	})

	return r
}

func refreshFarmStats(ctx context.Context, repo marketplace.Repository, log *zap.Logger) {
	ticker := time.NewTicker(farmStatsPeriod)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			if err := repo.RefreshFarmStats(ctx); err != nil {
				log.Error("farm stats refresh failed", zap.Error(err))
			}
		}
	}
}

func runScheduledPayouts(ctx context.Context, uc payout.UseCase, log *zap.Logger) {
	ticker := time.NewTicker(payoutRunPeriod)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			if err := uc.RunScheduledPayouts(ctx); err != nil {
				log.Error("scheduled payout run failed", zap.Error(err))
			}
		}
	}
}
