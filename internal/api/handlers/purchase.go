package handlers

import (
	"encoding/json"
	"net/http"

	"github.com/aolagbe/vtuwallet/internal/api/httpx"
	"github.com/aolagbe/vtuwallet/internal/middleware"
	"github.com/aolagbe/vtuwallet/internal/services"
)

type PurchaseHandler struct {
	Svc *services.PurchaseService
}

func (h *PurchaseHandler) Purchase(w http.ResponseWriter, r *http.Request) {
	uid, ok := middleware.UserID(r.Context())
	if !ok {
		httpx.WriteError(w, http.StatusUnauthorized, "unauthorized", "missing identity", nil)
		return
	}

	var req struct {
		ItemCode  string `json:"item_code"`
		Recipient string `json:"recipient"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		httpx.WriteError(w, http.StatusBadRequest, "bad_request", "bad request", nil)
		return
	}

	res, err := h.Svc.Purchase(r.Context(), uid, req.ItemCode, req.Recipient)
	if err != nil {
		writeServiceError(w, err)
		return
	}
	httpx.WriteJSON(w, http.StatusOK, res)
}
