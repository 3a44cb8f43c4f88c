package main

import (
	"context"
	"flag"
	"fmt"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"interview-ai-credits/internal/config"
	"interview-ai-credits/internal/domain/ports/adapter"
	"interview-ai-credits/internal/infra/api"
	apiv1 "interview-ai-credits/internal/infra/api/apiv1"
	pg "interview-ai-credits/internal/infra/db/postgres"
	"interview-ai-credits/internal/infra/logging"
	"interview-ai-credits/internal/infra/metrics"
	payAdapters "interview-ai-credits/internal/infra/payment"
	red "interview-ai-credits/internal/infra/redis"
	"interview-ai-credits/internal/infra/sched"
	"interview-ai-credits/internal/usecase"
)

func main() {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// ---- CLI flags ----
	cfgPath := flag.String("config", "config.yaml", "path to YAML config file")
	devMode := flag.Bool("dev", false, "enable developer mode (console logs, noop payments)")
	flag.Parse()

	cfg, err := config.LoadConfig(*cfgPath, *devMode)
	if err != nil {
		log.Fatalf("config: %v", err)
	}

	logger := logging.New(cfg.Log, cfg.Runtime.Dev)
	if cfg.Runtime.Dev {
		logger.Info().Msg("[DEV MODE] Enabled")
	}

	// ---- Postgres ----
	pool, err := pg.NewPgxPool(ctx, cfg.Database.URL, cfg.Database.MaxConns)
	if err != nil {
		log.Fatalf("postgres: %v", err)
	}
	defer pool.Close()

	if err := pg.EnsureSchema(ctx, pool); err != nil {
		log.Fatalf("schema: %v", err)
	}

	// ---- Redis ----
	redisClient, err := red.NewClient(ctx, &cfg.Redis)
	if err != nil {
		log.Fatalf("redis: %v", err)
	}
	defer redisClient.Close()
	locker := red.NewLocker(redisClient)

	// ---- Repositories ----
	planRepo := pg.NewPlanRepoCacheDecorator(pg.NewPlanRepo(pool), redisClient)
	creditRepo := pg.NewCreditRepo(pool)
	activityRepo := pg.NewActivityRepo(pool)
	purchaseRepo := pg.NewPurchaseRepo(pool)
	txManager := pg.NewTxManager(pool)

	// ---- Payment gateway ----
	var gateway adapter.PaymentGateway
	if cfg.Runtime.Dev || cfg.Payment.Provider == "noop" {
		gateway = payAdapters.NewNoopGateway(cfg.Payment.CallbackURL)
	} else {
		gateway = payAdapters.NewPayLinkGateway(cfg.Payment.APIKey, cfg.Payment.BaseURL)
	}

	// ---- Use cases ----
	planUC := usecase.NewPlanUseCase(planRepo, logger)
	creditUC := usecase.NewCreditUseCase(
		creditRepo, activityRepo, planUC, txManager, locker,
		cfg.Credits.AccumulateOnPurchase, logger,
	)
	purchaseUC := usecase.NewPurchaseUseCase(
		purchaseRepo, planUC, creditUC, gateway, cfg.Payment.CallbackURL, logger,
	)
	statsUC := usecase.NewStatsUseCase(creditRepo, activityRepo, purchaseRepo)

	// ---- HTTP ----
	metrics.MustRegister()
	auth := apiv1.NewAuthManager(cfg.API.AuthKey, cfg.API.SessionTTL)
	srv := apiv1.NewServer(planUC, creditUC, purchaseUC, statsUC, logger)

	r := chi.NewRouter()
	r.Use(api.TraceID(logger), api.RequestLog(logger), api.Recover(logger), api.Timeout(15*time.Second))
	apiv1.RegisterAPIV1(r, srv, auth)
	r.Handle("/metrics", promhttp.Handler())
	r.Get("/health", func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte("OK"))
	})

	server := &http.Server{Addr: fmt.Sprintf(":%d", cfg.API.Port), Handler: r}
	go func() {
		logger.Info().Str("addr", server.Addr).Msg("http listening")
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Error().Err(err).Msg("http server error")
		}
	}()

	// ---- Expiry worker ----
	worker := sched.NewExpiryWorker(cfg.Credits.ExpirySweepInterval, creditUC, statsUC, logger)
	go func() { _ = worker.Run(ctx) }()

	// ---- Graceful shutdown ----
	sigc := make(chan os.Signal, 1)
	signal.Notify(sigc, syscall.SIGINT, syscall.SIGTERM)
	<-sigc
	logger.Info().Msg("shutdown requested")
	cancel()

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer shutdownCancel()
	_ = server.Shutdown(shutdownCtx)
}
