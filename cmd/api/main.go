package main

import (
	"context"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/aolagbe/vtuwallet/internal/api"
	"github.com/aolagbe/vtuwallet/internal/auth"
	"github.com/aolagbe/vtuwallet/internal/config"
	"github.com/aolagbe/vtuwallet/internal/db"
	"github.com/aolagbe/vtuwallet/internal/gateway"
	"github.com/aolagbe/vtuwallet/internal/identity"
	"github.com/aolagbe/vtuwallet/internal/logger"
	"github.com/aolagbe/vtuwallet/internal/metrics"
	"github.com/aolagbe/vtuwallet/internal/middleware"
	"github.com/aolagbe/vtuwallet/internal/repository/postgres"
	"github.com/aolagbe/vtuwallet/internal/services"
	"github.com/aolagbe/vtuwallet/internal/worker"
)

func main() {
	cfg := config.Load()
	log := logger.New(cfg.Env)
	slog.SetDefault(log)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	pool, err := db.NewPool(ctx, cfg.DatabaseURL)
	if err != nil {
		log.Error("db connect", "err", err)
		os.Exit(1)
	}
	defer pool.Close()

	if os.Getenv("APP_MIGRATE") == "true" {
		if err := db.RunMigrations(ctx, pool); err != nil {
			log.Error("migrations", "err", err)
			os.Exit(1)
		}
	}

	metrics.Init()

	repos := postgres.NewRepositories(pool)
	wp := worker.NewPool(cfg.Workers)
	defer wp.Stop()

	tm := auth.NewTokenManager(cfg.JWTAccessSecret, cfg.JWTRefreshSecret, 15*time.Minute, 7*24*time.Hour)
	gw := gateway.New(cfg.GatewayBaseURL, cfg.GatewaySecretKey, cfg.GatewayTimeout, log)
	resolver := identity.NewResolver(repos.Users, log)

	authSvc := services.NewAuthService(repos.Users, tm, log)
	walletSvc := services.NewWalletService(repos.Wallets, repos.Ledger, repos.AuditLogs, log)
	settleSvc := services.NewSettlementService(repos.Payments, walletSvc, gw, repos.AuditLogs, log)
	reconcileSvc := services.NewReconcileService(repos.Payments, repos.Ledger, repos.GhostWallets, walletSvc, gw, resolver, repos.AuditLogs, log)
	purchaseSvc := services.NewPurchaseService(walletSvc, cfg.Catalog, repos.AuditLogs, log)

	sweeper := services.NewSweeper(repos.Payments, settleSvc, wp, cfg.SweepInterval, cfg.SweepMinAge, log)
	go sweeper.Run(ctx)

	r := api.NewRouter(api.Deps{
		Cfg:        cfg,
		Repos:      repos,
		Gateway:    gw,
		Auth:       authSvc,
		Wallet:     walletSvc,
		Settlement: settleSvc,
		Reconcile:  reconcileSvc,
		Purchase:   purchaseSvc,
		AuthMW:     middleware.NewAuthMiddleware(tm),
		Log:        log,
	})

	srv := &http.Server{
		Addr:              ":" + cfg.HTTPPort,
		Handler:           r,
		ReadHeaderTimeout: 5 * time.Second,
	}

	go func() {
		log.Info("server starting", "port", cfg.HTTPPort, "env", cfg.Env)
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Error("server", "err", err)
		}
	}()

	<-ctx.Done()
	log.Info("shutting down...")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	_ = srv.Shutdown(shutdownCtx)
}
