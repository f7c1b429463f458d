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

// GatewayVerifier is what settlement needs from the payment provider.
type GatewayVerifier interface {
	VerifyByID(ctx context.Context, id int64) (gateway.VerificationResult, error)
	VerifyByReference(ctx context.Context, ref string) (gateway.VerificationResult, error)
}

// SettlementService turns a verified gateway payment into exactly one
// wallet credit. The payment status acts as the lock; the ledger's
// unique reference index is the last line of defense behind it.
type SettlementService struct {
	payments repo.Payments
	wallet   *WalletService
	gw       GatewayVerifier
	audit    repo.AuditLogs
	log      *slog.Logger
}

func NewSettlementService(p repo.Payments, w *WalletService, gw GatewayVerifier, a repo.AuditLogs, log *slog.Logger) *SettlementService {
	return &SettlementService{payments: p, wallet: w, gw: gw, audit: a, log: log}
}

type SettleInput struct {
	Reference string
	// GatewayID, when set, verifies by the provider's numeric id instead
	// of the reference string.
	GatewayID      int64
	ExpectedAmount int64
	UserID         string
}

type SettleResult struct {
	Success          bool   `json:"success"`
	AlreadyProcessed bool   `json:"already_processed,omitempty"`
	Message          string `json:"message"`
	NewBalance       int64  `json:"new_balance,omitempty"`
}

// Settle verifies the reference upstream, takes the status lock and
// credits the main wallet. Retryable failures (gateway unreachable,
// wallet store down) propagate as errors; everything else resolves to a
// SettleResult. Safe to call any number of times for the same reference.
func (s *SettlementService) Settle(ctx context.Context, in SettleInput) (SettleResult, error) {
	if in.Reference == "" {
		return SettleResult{}, validationErr("reference required")
	}
	if in.UserID == "" {
		return SettleResult{}, validationErr("user id required")
	}
	if in.ExpectedAmount <= 0 {
		return SettleResult{}, validationErr("expected amount must be > 0")
	}

	var (
		vr  gateway.VerificationResult
		err error
	)
	if in.GatewayID > 0 {
		vr, err = s.gw.VerifyByID(ctx, in.GatewayID)
	} else {
		vr, err = s.gw.VerifyByReference(ctx, in.Reference)
	}
	if errors.Is(err, gateway.ErrInvalidReference) {
		if mErr := s.payments.MarkFailed(ctx, in.Reference, in.UserID, in.ExpectedAmount, nil, "gateway reports unknown reference"); mErr != nil {
			s.log.Error("mark failed", "tx_ref", in.Reference, "err", mErr)
		}
		metrics.Settlements.WithLabelValues("invalid_reference").Inc()
		return SettleResult{Message: "payment reference not recognized by gateway"}, nil
	}
	if err != nil {
		// Network, timeout or 5xx: leave everything as is so a retry or
		// the sweep can settle later.
		metrics.Settlements.WithLabelValues("gateway_error").Inc()
		return SettleResult{}, err
	}

	if !vr.Successful || vr.AmountPaid < in.ExpectedAmount {
		note := fmt.Sprintf("verification rejected: status=%q amount_paid=%d expected=%d",
			vr.GatewayStatus, vr.AmountPaid, in.ExpectedAmount)
		if mErr := s.payments.MarkFailed(ctx, in.Reference, in.UserID, in.ExpectedAmount, vr.RawPayload, note); mErr != nil {
			s.log.Error("mark failed", "tx_ref", in.Reference, "err", mErr)
		}
		metrics.Settlements.WithLabelValues("rejected").Inc()
		return SettleResult{Message: "payment not confirmed by gateway"}, nil
	}

	outcome, rec, err := s.payments.Claim(ctx, in.Reference, in.UserID, in.ExpectedAmount)
	if err != nil {
		return SettleResult{}, err
	}
	switch outcome {
	case repo.ClaimAlreadyProcessed:
		metrics.Settlements.WithLabelValues("duplicate").Inc()
		return SettleResult{Success: true, AlreadyProcessed: true, Message: "payment already processed"}, nil
	case repo.ClaimRefusedFailed:
		metrics.Settlements.WithLabelValues("refused_failed").Inc()
		return SettleResult{Message: "payment previously marked failed; use reconciliation to override"}, nil
	}

	userID := in.UserID
	if rec.UserID != "" {
		userID = rec.UserID
	}

	w, err := s.wallet.Credit(ctx, userID, models.WalletMain, vr.AmountPaid, "card funding via gateway", in.Reference)
	if err != nil {
		// Release the status lock so the payment is retryable instead of
		// stranded in processing_credit.
		note := "credit failed: " + err.Error()
		if rErr := s.payments.Release(ctx, in.Reference, note); rErr != nil {
			s.log.Error("release after credit failure", "tx_ref", in.Reference, "err", rErr)
		}
		metrics.Settlements.WithLabelValues("credit_failed").Inc()
		return SettleResult{}, &CreditApplicationError{TxRef: in.Reference, Err: err}
	}

	if err := s.payments.Finalize(ctx, in.Reference, vr.AmountPaid, vr.RawPayload); err != nil {
		// The credit is in the ledger, so a retry is a no-op thanks to
		// the reference guard; hand the payment back to pending and let
		// the sweep finish the bookkeeping.
		s.log.Error("finalize after credit", "tx_ref", in.Reference, "err", err)
		if rErr := s.payments.Release(ctx, in.Reference, "credited but finalize failed: "+err.Error()); rErr != nil {
			s.log.Error("release after finalize failure", "tx_ref", in.Reference, "err", rErr)
		}
		return SettleResult{}, &CreditApplicationError{TxRef: in.Reference, Err: err}
	}

	s.auditSettled(ctx, in.Reference, userID, vr.AmountPaid)
	metrics.Settlements.WithLabelValues("success").Inc()
	return SettleResult{
		Success:    true,
		Message:    "wallet credited",
		NewBalance: w.MainBalance,
	}, nil
}

func (s *SettlementService) auditSettled(ctx context.Context, txRef, userID string, amount int64) {
	ref := txRef
	err := s.audit.Create(ctx, models.AuditLog{
		EntityType: "payment",
		EntityID:   &ref,
		Action:     "settled",
		Details:    map[string]any{"user_id": userID, "amount": amount},
	})
	if err != nil {
		s.log.Warn("audit write", "tx_ref", txRef, "err", err)
	}
}
