package services

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"github.com/aolagbe/vtuwallet/internal/metrics"
	"github.com/aolagbe/vtuwallet/internal/models"
	"github.com/aolagbe/vtuwallet/internal/worker"
)

// Sweeper is the scheduled re-check job: pending payments older than
// minAge (lost callbacks, crashed settlements) are fed back through
// Settle. Settlement's own idempotency makes the re-invocation harmless.
type Sweeper struct {
	payments stalePaymentLister
	settle   *SettlementService
	pool     *worker.Pool
	interval time.Duration
	minAge   time.Duration
	batch    int
	log      *slog.Logger
}

type stalePaymentLister interface {
	ListStalePending(ctx context.Context, olderThan time.Duration, limit int) ([]models.Payment, error)
}

func NewSweeper(payments stalePaymentLister, settle *SettlementService, pool *worker.Pool, interval, minAge time.Duration, log *slog.Logger) *Sweeper {
	return &Sweeper{
		payments: payments,
		settle:   settle,
		pool:     pool,
		interval: interval,
		minAge:   minAge,
		batch:    100,
		log:      log,
	}
}

// Run blocks until ctx is cancelled.
func (s *Sweeper) Run(ctx context.Context) {
	t := time.NewTicker(s.interval)
	defer t.Stop()

	for {
		select {
		case <-ctx.Done():
			s.log.Info("payment sweep stopped")
			return
		case <-t.C:
			s.sweep(ctx)
		}
	}
}

func (s *Sweeper) sweep(ctx context.Context) {
	stale, err := s.payments.ListStalePending(ctx, s.minAge, s.batch)
	if err != nil {
		s.log.Error("list stale pending payments", "err", err)
		return
	}
	metrics.SweepBatchSize.Set(float64(len(stale)))
	if len(stale) == 0 {
		return
	}
	s.log.Info("re-checking stale pending payments", "count", len(stale))

	for _, p := range stale {
		if p.UserID == "" || p.Amount <= 0 {
			// Defensively created record with no owner; only an admin
			// reconciliation can resolve it.
			continue
		}
		p := p
		s.pool.Submit(func() {
			jobCtx, cancel := context.WithTimeout(context.Background(), time.Minute)
			defer cancel()

			res, err := s.settle.Settle(jobCtx, SettleInput{
				Reference:      p.TxRef,
				ExpectedAmount: p.Amount,
				UserID:         p.UserID,
			})
			switch {
			case err != nil:
				var credErr *CreditApplicationError
				if errors.As(err, &credErr) {
					s.log.Warn("sweep: credit still failing", "tx_ref", p.TxRef, "err", err)
				} else {
					s.log.Warn("sweep: settle retry failed", "tx_ref", p.TxRef, "err", err)
				}
			case res.Success:
				s.log.Info("sweep: payment settled", "tx_ref", p.TxRef, "already_processed", res.AlreadyProcessed)
			default:
				s.log.Info("sweep: payment not settleable", "tx_ref", p.TxRef, "message", res.Message)
			}
		})
	}
}
