package repository

import (
	"context"
	"errors"
	"time"

	"github.com/aolagbe/vtuwallet/internal/models"
)

var (
	ErrNotFound            = errors.New("not found")
	ErrInsufficientBalance = errors.New("insufficient balance")
)

// CreditParams describes one wallet credit. When ExternalRef is set the
// repository must refuse to apply a second credit carrying the same
// reference and report applied=false instead.
type CreditParams struct {
	UserID      string
	WalletType  models.WalletType
	Amount      int64
	Description string
	ExternalRef string
}

type DebitParams struct {
	UserID      string
	WalletType  models.WalletType
	Amount      int64
	Description string
}

// Wallets mutates balances and the ledger together. Credit and Debit run
// the balance update and the entry insert inside a single DB transaction;
// callers never see a balance change without its ledger entry.
type Wallets interface {
	Ensure(ctx context.Context, userID string) error
	Get(ctx context.Context, userID string) (models.Wallet, error)
	Credit(ctx context.Context, p CreditParams) (w models.Wallet, applied bool, err error)
	Debit(ctx context.Context, p DebitParams) (models.Wallet, error)
}

type Ledger interface {
	HasCreditWithRef(ctx context.Context, externalRef string) (bool, error)
	ListByUser(ctx context.Context, userID string, limit, offset int) ([]models.LedgerEntry, error)
}

// ClaimOutcome is the result of an attempt to take the status lock on a
// payment record.
type ClaimOutcome int

const (
	// ClaimAcquired: the record is now processing_credit and the caller
	// owns the credit path.
	ClaimAcquired ClaimOutcome = iota
	// ClaimAlreadyProcessed: the record is success or processing_credit;
	// a previous or concurrent caller handled it.
	ClaimAlreadyProcessed
	// ClaimRefusedFailed: the record was marked failed; only the
	// reconciliation path may revive it.
	ClaimRefusedFailed
)

type Payments interface {
	Get(ctx context.Context, txRef string) (models.Payment, error)
	Create(ctx context.Context, p models.Payment) error

	// Claim atomically inspects the payment status and, when permitted,
	// flips it to processing_credit. Missing records are created
	// defensively in the same transaction.
	Claim(ctx context.Context, txRef, userID string, amount int64) (ClaimOutcome, models.Payment, error)

	// Finalize moves a claimed payment to success.
	Finalize(ctx context.Context, txRef string, amountPaid int64, providerResponse []byte) error
	// Release moves a claimed payment back to pending so a later retry
	// is not locked out.
	Release(ctx context.Context, txRef, note string) error

	MarkFailed(ctx context.Context, txRef, userID string, amount int64, providerResponse []byte, note string) error
	MarkReconciled(ctx context.Context, txRef, userID string, amountPaid int64, providerResponse []byte, note string) error

	ListStalePending(ctx context.Context, olderThan time.Duration, limit int) ([]models.Payment, error)
}

type GhostWallets interface {
	ListUnmigrated(ctx context.Context, limit, offset int) ([]models.GhostWallet, error)
	// MarkMigrated zeroes the ghost balance and flags the row in one
	// statement; re-running the migration never sees the row again.
	MarkMigrated(ctx context.Context, email, migratedTo string) error
}

type Users interface {
	Create(ctx context.Context, username, email, passwordHash, role string) (models.User, error)
	GetByID(ctx context.Context, id string) (models.User, error)
	GetByEmail(ctx context.Context, email string) (models.User, error)
	// GetByEmailFold matches case-insensitively; the ghost-wallet
	// migration falls back to it for legacy records with uneven casing.
	GetByEmailFold(ctx context.Context, email string) (models.User, error)
	Exists(ctx context.Context, id string) (bool, error)
}

type AuditLogs interface {
	Create(ctx context.Context, l models.AuditLog) error
}
