package services

import (
	"context"
	"log/slog"

	"github.com/aolagbe/vtuwallet/internal/metrics"
	"github.com/aolagbe/vtuwallet/internal/models"
	repo "github.com/aolagbe/vtuwallet/internal/repository"
)

// WalletService owns the three per-user balances. Every mutation goes
// through the repository's single-transaction credit/debit, so callers
// never coordinate locking themselves.
type WalletService struct {
	wallets repo.Wallets
	ledger  repo.Ledger
	audit   repo.AuditLogs
	log     *slog.Logger
}

func NewWalletService(w repo.Wallets, l repo.Ledger, a repo.AuditLogs, log *slog.Logger) *WalletService {
	return &WalletService{wallets: w, ledger: l, audit: a, log: log}
}

// EnsureAccount creates a zero-balance wallet if none exists. Safe to
// call any number of times.
func (s *WalletService) EnsureAccount(ctx context.Context, userID string) error {
	if userID == "" {
		return validationErr("user id required")
	}
	return s.wallets.Ensure(ctx, userID)
}

// Credit increments the named balance and records the ledger entry. A
// non-empty externalRef that has already been credited makes this a
// no-op returning the current wallet, not an error.
func (s *WalletService) Credit(ctx context.Context, userID string, wt models.WalletType, amount int64, description, externalRef string) (models.Wallet, error) {
	if userID == "" {
		return models.Wallet{}, validationErr("user id required")
	}
	if amount <= 0 {
		return models.Wallet{}, validationErr("amount must be > 0")
	}

	w, applied, err := s.wallets.Credit(ctx, repo.CreditParams{
		UserID:      userID,
		WalletType:  wt,
		Amount:      amount,
		Description: description,
		ExternalRef: externalRef,
	})
	if err != nil {
		return models.Wallet{}, err
	}
	if !applied {
		s.log.Warn("duplicate credit suppressed", "user_id", userID, "external_ref", externalRef)
		metrics.DuplicateCredits.Inc()
		return w, nil
	}
	metrics.LedgerEntries.WithLabelValues("credit").Inc()
	return w, nil
}

// Debit decrements the named balance, failing with ErrInsufficientBalance
// when it does not cover the amount. Nothing is written on failure.
func (s *WalletService) Debit(ctx context.Context, userID string, wt models.WalletType, amount int64, description string) (models.Wallet, error) {
	if userID == "" {
		return models.Wallet{}, validationErr("user id required")
	}
	if amount <= 0 {
		return models.Wallet{}, validationErr("amount must be > 0")
	}

	w, err := s.wallets.Debit(ctx, repo.DebitParams{
		UserID:      userID,
		WalletType:  wt,
		Amount:      amount,
		Description: description,
	})
	if err != nil {
		return models.Wallet{}, err
	}
	metrics.LedgerEntries.WithLabelValues("debit").Inc()
	return w, nil
}

// Balances returns the wallet, creating it lazily for first-time users.
func (s *WalletService) Balances(ctx context.Context, userID string) (models.Wallet, error) {
	if err := s.EnsureAccount(ctx, userID); err != nil {
		return models.Wallet{}, err
	}
	return s.wallets.Get(ctx, userID)
}

func (s *WalletService) Ledger(ctx context.Context, userID string, limit, offset int) ([]models.LedgerEntry, error) {
	if userID == "" {
		return nil, validationErr("user id required")
	}
	return s.ledger.ListByUser(ctx, userID, limit, offset)
}
