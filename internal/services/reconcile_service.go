package services

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/aolagbe/vtuwallet/internal/gateway"
	"github.com/aolagbe/vtuwallet/internal/metrics"
	"github.com/aolagbe/vtuwallet/internal/models"
	repo "github.com/aolagbe/vtuwallet/internal/repository"
)

// IdentityResolver maps emails back to canonical user ids during the
// ghost-wallet migration, and answers opportunistic existence checks.
type IdentityResolver interface {
	FindUserIDByEmail(ctx context.Context, email string) (string, error)
	Exists(ctx context.Context, userID string) (bool, error)
}

// ReconcileService is the admin repair path: re-verify payments the
// automated flow never settled, and migrate legacy email-keyed wallets.
type ReconcileService struct {
	payments repo.Payments
	ledger   repo.Ledger
	ghosts   repo.GhostWallets
	wallet   *WalletService
	gw       GatewayVerifier
	resolver IdentityResolver
	audit    repo.AuditLogs
	log      *slog.Logger
}

func NewReconcileService(p repo.Payments, l repo.Ledger, g repo.GhostWallets, w *WalletService, gw GatewayVerifier, r IdentityResolver, a repo.AuditLogs, log *slog.Logger) *ReconcileService {
	return &ReconcileService{payments: p, ledger: l, ghosts: g, wallet: w, gw: gw, resolver: r, audit: a, log: log}
}

type ReconcileResult struct {
	Success bool   `json:"success"`
	Message string `json:"message"`
}

// Reconcile re-verifies a reference with the gateway and credits the
// wallet if the automated path missed it. force overrides the local
// payment-status check only; the ledger-existence check can never be
// bypassed.
func (s *ReconcileService) Reconcile(ctx context.Context, txRef string, force bool) (ReconcileResult, error) {
	if txRef == "" {
		return ReconcileResult{}, validationErr("reference required")
	}

	vr, err := s.gw.VerifyByReference(ctx, txRef)
	if errors.Is(err, gateway.ErrInvalidReference) {
		return ReconcileResult{Message: "gateway has no record of this reference"}, nil
	}
	if err != nil {
		return ReconcileResult{}, err
	}
	if !vr.Successful {
		return ReconcileResult{Message: fmt.Sprintf("gateway status is %q, not successful; nothing to reconcile", vr.GatewayStatus)}, nil
	}

	credited, err := s.ledger.HasCreditWithRef(ctx, txRef)
	if err != nil {
		return ReconcileResult{}, err
	}
	if credited {
		return ReconcileResult{Message: "already credited"}, nil
	}

	rec, err := s.payments.Get(ctx, txRef)
	found := err == nil
	if err != nil && !errors.Is(err, repo.ErrNotFound) {
		return ReconcileResult{}, err
	}
	if found && (rec.Status == models.PaymentSuccess || string(rec.Status) == "completed") && !force {
		return ReconcileResult{Message: "payment already marked success, use force to override"}, nil
	}

	userID := rec.UserID
	if userID == "" {
		userID = vr.Metadata["user_id"]
	}
	if userID == "" {
		return ReconcileResult{Message: "no user id found for payment"}, nil
	}
	if ok, err := s.resolver.Exists(ctx, userID); err == nil && !ok {
		s.log.Warn("reconciling for unknown user id", "tx_ref", txRef, "user_id", userID)
	}

	if _, err := s.wallet.Credit(ctx, userID, models.WalletMain, vr.AmountPaid, "reconciled gateway funding", txRef); err != nil {
		return ReconcileResult{}, err
	}

	note := fmt.Sprintf("reconciled manually (force=%v)", force)
	if err := s.payments.MarkReconciled(ctx, txRef, userID, vr.AmountPaid, vr.RawPayload, note); err != nil {
		// The credit is in the ledger; the record just lost its audit
		// trail update. Surface it rather than hide it.
		return ReconcileResult{}, err
	}

	ref := txRef
	if aErr := s.audit.Create(ctx, models.AuditLog{
		EntityType: "payment",
		EntityID:   &ref,
		Action:     "reconciled",
		Details:    map[string]any{"user_id": userID, "amount": vr.AmountPaid, "force": force},
	}); aErr != nil {
		s.log.Warn("audit write", "tx_ref", txRef, "err", aErr)
	}

	metrics.Reconciliations.Inc()
	return ReconcileResult{Success: true, Message: fmt.Sprintf("wallet credited with %d", vr.AmountPaid)}, nil
}

type MigrationRecord struct {
	Email   string `json:"email"`
	UserID  string `json:"user_id,omitempty"`
	Amount  int64  `json:"amount"`
	Outcome string `json:"outcome"`
}

type MigrationReport struct {
	Scanned  int               `json:"scanned"`
	Migrated int               `json:"migrated"`
	Skipped  int               `json:"skipped"`
	DryRun   bool              `json:"dry_run"`
	Records  []MigrationRecord `json:"records"`
}

// MigrateGhostWallets moves balances off legacy email-keyed wallet rows
// onto canonical accounts. Idempotent: migrated rows drop out of the
// scan, so re-running never credits twice. Per-record failures are
// reported, not fatal.
func (s *ReconcileService) MigrateGhostWallets(ctx context.Context, dryRun bool) (MigrationReport, error) {
	const pageSize = 100

	var ghosts []models.GhostWallet
	for offset := 0; ; offset += pageSize {
		page, err := s.ghosts.ListUnmigrated(ctx, pageSize, offset)
		if err != nil {
			return MigrationReport{}, err
		}
		ghosts = append(ghosts, page...)
		if len(page) < pageSize {
			break
		}
	}

	report := MigrationReport{Scanned: len(ghosts), DryRun: dryRun}
	for _, g := range ghosts {
		rec := MigrationRecord{Email: g.Email, Amount: g.MainBalance}

		uid, err := s.resolver.FindUserIDByEmail(ctx, g.Email)
		if errors.Is(err, repo.ErrNotFound) {
			rec.Outcome = "unresolved"
			report.Skipped++
			report.Records = append(report.Records, rec)
			continue
		}
		if err != nil {
			rec.Outcome = "error: " + err.Error()
			report.Skipped++
			report.Records = append(report.Records, rec)
			continue
		}
		rec.UserID = uid

		if dryRun {
			rec.Outcome = "would migrate"
			report.Records = append(report.Records, rec)
			continue
		}

		if err := s.wallet.EnsureAccount(ctx, uid); err != nil {
			rec.Outcome = "error: " + err.Error()
			report.Skipped++
			report.Records = append(report.Records, rec)
			continue
		}
		// Internal transfer, not a gateway event: no external reference.
		if _, err := s.wallet.Credit(ctx, uid, models.WalletMain, g.MainBalance, "Migrated from "+g.Email, ""); err != nil {
			rec.Outcome = "error: " + err.Error()
			report.Skipped++
			report.Records = append(report.Records, rec)
			continue
		}
		if err := s.ghosts.MarkMigrated(ctx, g.Email, uid); err != nil {
			// Credited but not flagged: the next run would double
			// credit, so this must be loud.
			s.log.Error("ghost wallet credited but not flagged migrated", "email", g.Email, "err", err)
			rec.Outcome = "error: credited but not flagged migrated: " + err.Error()
			report.Records = append(report.Records, rec)
			continue
		}

		metrics.GhostMigrations.Inc()
		rec.Outcome = "migrated"
		report.Migrated++
		report.Records = append(report.Records, rec)
	}

	s.log.Info("ghost wallet migration finished",
		"dry_run", dryRun, "scanned", report.Scanned, "migrated", report.Migrated, "skipped", report.Skipped)
	return report, nil
}
