package api

import (
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/cors"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/aolagbe/vtuwallet/internal/api/handlers"
	"github.com/aolagbe/vtuwallet/internal/config"
	"github.com/aolagbe/vtuwallet/internal/gateway"
	"github.com/aolagbe/vtuwallet/internal/middleware"
	"github.com/aolagbe/vtuwallet/internal/repository/postgres"
	"github.com/aolagbe/vtuwallet/internal/services"
)

type Deps struct {
	Cfg        config.Config
	Repos      postgres.Repositories
	Gateway    *gateway.Client
	Auth       *services.AuthService
	Wallet     *services.WalletService
	Settlement *services.SettlementService
	Reconcile  *services.ReconcileService
	Purchase   *services.PurchaseService
	AuthMW     *middleware.AuthMiddleware
	Log        *slog.Logger
}

func NewRouter(d Deps) http.Handler {
	r := chi.NewRouter()
	r.Use(middleware.RequestID, middleware.Recover, middleware.HTTPMetrics, middleware.RateLimit(d.Cfg.RateRPS))
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins: []string{"*"},
		AllowedMethods: []string{"GET", "POST", "PUT", "DELETE", "OPTIONS"},
		AllowedHeaders: []string{"*"},
	}))

	r.Get("/health", func(w http.ResponseWriter, r *http.Request) { _, _ = w.Write([]byte("ok")) })
	r.Handle("/metrics", promhttp.Handler())

	authH := handlers.NewAuthHandler(d.Auth)
	walletH := handlers.NewWalletHandler(d.Wallet)
	fundingH := &handlers.FundingHandler{
		Gateway:     d.Gateway,
		Payments:    d.Repos.Payments,
		Users:       d.Repos.Users,
		Settlement:  d.Settlement,
		Currency:    d.Cfg.Currency,
		RedirectURL: d.Cfg.RedirectURL,
	}
	webhookH := &handlers.WebhookHandler{
		Payments:   d.Repos.Payments,
		Settlement: d.Settlement,
		Secret:     d.Cfg.WebhookSecret,
		Log:        d.Log,
	}
	purchaseH := &handlers.PurchaseHandler{Svc: d.Purchase}
	adminH := &handlers.AdminHandler{
		Wallet:    d.Wallet,
		Reconcile: d.Reconcile,
		Payments:  d.Repos.Payments,
	}

	r.Route("/api/v1", func(r chi.Router) {
		r.Post("/auth/register", authH.Register)
		r.Post("/auth/login", authH.Login)
		r.Post("/auth/refresh", authH.Refresh)

		// gateway callback: authenticated by signature header, not JWT
		r.Post("/payments/webhook", webhookH.Receive)

		r.Group(func(r chi.Router) {
			r.Use(d.AuthMW.Auth)

			r.Get("/wallets/me", walletH.Me)
			r.Get("/wallets/me/ledger", walletH.Ledger)

			r.Post("/funding/initiate", fundingH.Initiate)
			r.Post("/funding/verify", fundingH.Verify)

			r.Post("/purchases", purchaseH.Purchase)

			r.Group(func(r chi.Router) {
				r.Use(middleware.RequireRole("admin"))

				r.Post("/admin/reconcile", adminH.ReconcilePayment)
				r.Post("/admin/ghost-migrations", adminH.MigrateGhostWallets)
				r.Post("/admin/adjustments", adminH.Adjust)
				r.Get("/admin/payments/{ref}", adminH.GetPayment)
			})
		})
	})

	return r
}
