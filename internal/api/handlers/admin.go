package handlers

import (
	"encoding/json"
	"net/http"

	"github.com/aolagbe/vtuwallet/internal/api/httpx"
	"github.com/aolagbe/vtuwallet/internal/models"
	repo "github.com/aolagbe/vtuwallet/internal/repository"
	"github.com/aolagbe/vtuwallet/internal/services"
	"github.com/go-chi/chi/v5"
)

type AdminHandler struct {
	Wallet    *services.WalletService
	Reconcile *services.ReconcileService
	Payments  repo.Payments
}

// ReconcilePayment is the admin repair path for payments the automated
// flow never settled.
func (h *AdminHandler) ReconcilePayment(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Reference string `json:"reference"`
		Force     bool   `json:"force"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil || req.Reference == "" {
		httpx.WriteError(w, http.StatusBadRequest, "bad_request", "reference required", nil)
		return
	}
	res, err := h.Reconcile.Reconcile(r.Context(), req.Reference, req.Force)
	if err != nil {
		writeServiceError(w, err)
		return
	}
	httpx.WriteJSON(w, http.StatusOK, res)
}

func (h *AdminHandler) MigrateGhostWallets(w http.ResponseWriter, r *http.Request) {
	var req struct {
		DryRun bool `json:"dry_run"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		httpx.WriteError(w, http.StatusBadRequest, "bad_request", "bad request", nil)
		return
	}
	report, err := h.Reconcile.MigrateGhostWallets(r.Context(), req.DryRun)
	if err != nil {
		writeServiceError(w, err)
		return
	}
	httpx.WriteJSON(w, http.StatusOK, report)
}

// Adjust applies a manual credit or debit, e.g. a ticket refund.
func (h *AdminHandler) Adjust(w http.ResponseWriter, r *http.Request) {
	var req struct {
		UserID      string `json:"user_id"`
		WalletType  string `json:"wallet_type"`
		Direction   string `json:"direction"`
		Amount      int64  `json:"amount"`
		Description string `json:"description"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		httpx.WriteError(w, http.StatusBadRequest, "bad_request", "bad request", nil)
		return
	}

	wt, err := models.ParseWalletType(req.WalletType)
	if err != nil {
		httpx.WriteError(w, http.StatusBadRequest, "validation_error", err.Error(), nil)
		return
	}
	if req.Description == "" {
		req.Description = "manual adjustment"
	}

	var wallet models.Wallet
	switch req.Direction {
	case "credit":
		wallet, err = h.Wallet.Credit(r.Context(), req.UserID, wt, req.Amount, req.Description, "")
	case "debit":
		wallet, err = h.Wallet.Debit(r.Context(), req.UserID, wt, req.Amount, req.Description)
	default:
		httpx.WriteError(w, http.StatusBadRequest, "validation_error", "direction must be credit or debit", nil)
		return
	}
	if err != nil {
		writeServiceError(w, err)
		return
	}
	httpx.WriteJSON(w, http.StatusOK, wallet)
}

func (h *AdminHandler) GetPayment(w http.ResponseWriter, r *http.Request) {
	ref := chi.URLParam(r, "ref")
	p, err := h.Payments.Get(r.Context(), ref)
	if err != nil {
		writeServiceError(w, err)
		return
	}
	httpx.WriteJSON(w, http.StatusOK, p)
}
