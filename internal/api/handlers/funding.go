package handlers

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/aolagbe/vtuwallet/internal/api/httpx"
	"github.com/aolagbe/vtuwallet/internal/api/validate"
	"github.com/aolagbe/vtuwallet/internal/gateway"
	"github.com/aolagbe/vtuwallet/internal/middleware"
	"github.com/aolagbe/vtuwallet/internal/models"
	repo "github.com/aolagbe/vtuwallet/internal/repository"
	"github.com/aolagbe/vtuwallet/internal/services"
	"github.com/google/uuid"
)

// GatewayInitiator is the slice of the gateway client the funding flow
// needs to start a checkout.
type GatewayInitiator interface {
	Initiate(ctx context.Context, in gateway.InitiateInput) (gateway.InitiateResult, error)
}

type FundingHandler struct {
	Gateway     GatewayInitiator
	Payments    repo.Payments
	Users       repo.Users
	Settlement  *services.SettlementService
	Currency    string
	RedirectURL string
}

// Initiate starts a wallet funding checkout: one payment record in
// pending, one gateway checkout link back to the client.
func (h *FundingHandler) Initiate(w http.ResponseWriter, r *http.Request) {
	uid, ok := middleware.UserID(r.Context())
	if !ok {
		httpx.WriteError(w, http.StatusUnauthorized, "unauthorized", "missing identity", nil)
		return
	}

	var req struct {
		Amount int64 `json:"amount"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		httpx.WriteError(w, http.StatusBadRequest, "bad_request", "bad request", nil)
		return
	}
	if ef := validate.MinInt("amount", req.Amount, 1); ef != nil {
		httpx.WriteError(w, http.StatusBadRequest, "validation_error", "invalid amount", validate.Errs{*ef})
		return
	}

	u, err := h.Users.GetByID(r.Context(), uid)
	if err != nil {
		writeServiceError(w, err)
		return
	}

	txRef := fmt.Sprintf("FUND-%d-%s", time.Now().Unix(), uuid.NewString()[:8])
	res, err := h.Gateway.Initiate(r.Context(), gateway.InitiateInput{
		TxRef:         txRef,
		UserID:        uid,
		Amount:        req.Amount,
		Currency:      h.Currency,
		CustomerEmail: u.Email,
		CustomerName:  u.Username,
		RedirectURL:   h.RedirectURL,
	})
	if err != nil {
		writeServiceError(w, err)
		return
	}

	if err := h.Payments.Create(r.Context(), models.Payment{
		TxRef:  txRef,
		UserID: uid,
		Amount: req.Amount,
		Status: models.PaymentPending,
		Notes:  "funding initiated",
	}); err != nil {
		writeServiceError(w, err)
		return
	}

	httpx.WriteJSON(w, http.StatusCreated, map[string]string{
		"tx_ref":        res.TxRef,
		"checkout_link": res.CheckoutLink,
	})
}

// Verify is the user-triggered "I have paid" path. The expected amount
// comes from the stored payment record, never from the client.
func (h *FundingHandler) Verify(w http.ResponseWriter, r *http.Request) {
	uid, ok := middleware.UserID(r.Context())
	if !ok {
		httpx.WriteError(w, http.StatusUnauthorized, "unauthorized", "missing identity", nil)
		return
	}

	var req struct {
		Reference string `json:"reference"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil || req.Reference == "" {
		httpx.WriteError(w, http.StatusBadRequest, "bad_request", "reference required", nil)
		return
	}

	p, err := h.Payments.Get(r.Context(), req.Reference)
	if errors.Is(err, repo.ErrNotFound) {
		httpx.WriteError(w, http.StatusNotFound, "not_found", "unknown payment reference", nil)
		return
	}
	if err != nil {
		writeServiceError(w, err)
		return
	}
	if p.UserID != uid {
		httpx.WriteError(w, http.StatusForbidden, "forbidden", "payment belongs to another account", nil)
		return
	}

	res, err := h.Settlement.Settle(r.Context(), services.SettleInput{
		Reference:      p.TxRef,
		ExpectedAmount: p.Amount,
		UserID:         p.UserID,
	})
	if err != nil {
		writeServiceError(w, err)
		return
	}
	httpx.WriteJSON(w, http.StatusOK, res)
}
