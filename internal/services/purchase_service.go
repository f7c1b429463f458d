package services

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/aolagbe/vtuwallet/internal/config"
	"github.com/aolagbe/vtuwallet/internal/models"
	repo "github.com/aolagbe/vtuwallet/internal/repository"
)

// PurchaseService handles the accounting side of a top-up: it debits the
// main wallet against a catalog price. The provider call that actually
// delivers airtime/data happens elsewhere; only its cost lands here.
// The catalog is a snapshot taken at construction, so a purchase in
// flight never observes a config change.
type PurchaseService struct {
	wallet  *WalletService
	catalog config.Catalog
	audit   repo.AuditLogs
	log     *slog.Logger
}

func NewPurchaseService(w *WalletService, catalog config.Catalog, a repo.AuditLogs, log *slog.Logger) *PurchaseService {
	return &PurchaseService{wallet: w, catalog: catalog, audit: a, log: log}
}

type PurchaseResult struct {
	Item       config.CatalogItem `json:"item"`
	NewBalance int64              `json:"new_balance"`
}

// Purchase debits the catalog price from the main balance. Insufficient
// funds fail before anything is written.
func (s *PurchaseService) Purchase(ctx context.Context, userID, itemCode, recipient string) (PurchaseResult, error) {
	if recipient == "" {
		return PurchaseResult{}, validationErr("recipient required")
	}
	item, ok := s.catalog[itemCode]
	if !ok {
		return PurchaseResult{}, validationErr(fmt.Sprintf("unknown catalog item %q", itemCode))
	}

	desc := fmt.Sprintf("%s for %s", item.Name, recipient)
	w, err := s.wallet.Debit(ctx, userID, models.WalletMain, item.Price, desc)
	if err != nil {
		return PurchaseResult{}, err
	}

	uid := userID
	if aErr := s.audit.Create(ctx, models.AuditLog{
		EntityType: "purchase",
		EntityID:   &uid,
		Action:     "debited",
		Details:    map[string]any{"item": item.Code, "recipient": recipient, "price": item.Price},
	}); aErr != nil {
		s.log.Warn("audit write", "user_id", userID, "err", aErr)
	}

	return PurchaseResult{Item: item, NewBalance: w.MainBalance}, nil
}
