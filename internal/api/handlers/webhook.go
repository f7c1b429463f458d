package handlers

import (
	"crypto/subtle"
	"encoding/json"
	"errors"
	"log/slog"
	"math"
	"net/http"

	"github.com/aolagbe/vtuwallet/internal/api/httpx"
	repo "github.com/aolagbe/vtuwallet/internal/repository"
	"github.com/aolagbe/vtuwallet/internal/services"
)

// WebhookHandler receives the gateway's payment callbacks. The callback
// is only a hint: settlement re-verifies with the gateway before any
// money moves, so a forged or duplicated body cannot mint a credit.
type WebhookHandler struct {
	Payments   repo.Payments
	Settlement *services.SettlementService
	Secret     string
	Log        *slog.Logger
}

type webhookPayload struct {
	Event string `json:"event"`
	Data  struct {
		ID     int64   `json:"id"`
		TxRef  string  `json:"tx_ref"`
		Amount float64 `json:"amount"`
		Status string  `json:"status"`
		Meta   struct {
			UserID string `json:"user_id"`
		} `json:"meta"`
	} `json:"data"`
}

func (h *WebhookHandler) Receive(w http.ResponseWriter, r *http.Request) {
	sig := r.Header.Get("verif-hash")
	if h.Secret == "" || subtle.ConstantTimeCompare([]byte(sig), []byte(h.Secret)) != 1 {
		httpx.WriteError(w, http.StatusUnauthorized, "unauthorized", "bad signature", nil)
		return
	}

	var p webhookPayload
	if err := json.NewDecoder(r.Body).Decode(&p); err != nil || p.Data.TxRef == "" {
		httpx.WriteError(w, http.StatusBadRequest, "bad_request", "unparsable payload", nil)
		return
	}

	// Prefer the stored record for owner and expected amount; fall back
	// to the callback body for payments initiated outside this service.
	userID := p.Data.Meta.UserID
	expected := int64(math.Round(p.Data.Amount * 100))
	if rec, err := h.Payments.Get(r.Context(), p.Data.TxRef); err == nil {
		if rec.UserID != "" {
			userID = rec.UserID
		}
		if rec.Amount > 0 {
			expected = rec.Amount
		}
	} else if !errors.Is(err, repo.ErrNotFound) {
		httpx.WriteError(w, http.StatusInternalServerError, "internal_error", "internal error", nil)
		return
	}

	res, err := h.Settlement.Settle(r.Context(), services.SettleInput{
		Reference:      p.Data.TxRef,
		GatewayID:      p.Data.ID,
		ExpectedAmount: expected,
		UserID:         userID,
	})
	if err != nil {
		// Retryable: answer 5xx so the gateway redelivers; the sweep
		// covers us if it gives up.
		h.Log.Warn("webhook settlement failed", "tx_ref", p.Data.TxRef, "err", err)
		httpx.WriteError(w, http.StatusServiceUnavailable, "retry_later", "settlement deferred", nil)
		return
	}

	h.Log.Info("webhook processed",
		"tx_ref", p.Data.TxRef, "success", res.Success, "already_processed", res.AlreadyProcessed)
	httpx.WriteJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}
