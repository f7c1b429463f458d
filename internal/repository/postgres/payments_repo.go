package postgres

import (
	"context"
	"errors"
	"time"

	"github.com/aolagbe/vtuwallet/internal/models"
	repo "github.com/aolagbe/vtuwallet/internal/repository"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

type paymentsRepo struct{ pool *pgxpool.Pool }

const paymentCols = `tx_ref, user_id, amount, amount_paid, status, provider_response, notes, created_at, verified_at, reconciled_at`

func scanPayment(row pgx.Row) (models.Payment, error) {
	var p models.Payment
	err := row.Scan(&p.TxRef, &p.UserID, &p.Amount, &p.AmountPaid, &p.Status, &p.ProviderResponse, &p.Notes, &p.CreatedAt, &p.VerifiedAt, &p.ReconciledAt)
	return p, err
}

func (r *paymentsRepo) Get(ctx context.Context, txRef string) (models.Payment, error) {
	p, err := scanPayment(r.pool.QueryRow(ctx,
		`SELECT `+paymentCols+` FROM payments WHERE tx_ref=$1`, txRef))
	if errors.Is(err, pgx.ErrNoRows) {
		return models.Payment{}, repo.ErrNotFound
	}
	return p, err
}

func (r *paymentsRepo) Create(ctx context.Context, p models.Payment) error {
	_, err := r.pool.Exec(ctx,
		`INSERT INTO payments(tx_ref, user_id, amount, status, notes)
		 VALUES($1,$2,$3,$4,$5)
		 ON CONFLICT (tx_ref) DO NOTHING`,
		p.TxRef, p.UserID, p.Amount, p.Status, p.Notes,
	)
	return err
}

// Claim is the status lock. The row is selected FOR UPDATE so two
// concurrent settlements of the same reference serialize here: the first
// flips pending to processing_credit, the second observes it and backs
// off as already processed.
func (r *paymentsRepo) Claim(ctx context.Context, txRef, userID string, amount int64) (repo.ClaimOutcome, models.Payment, error) {
	tx, err := r.pool.BeginTx(ctx, pgx.TxOptions{IsoLevel: pgx.ReadCommitted})
	if err != nil {
		return 0, models.Payment{}, err
	}
	defer tx.Rollback(ctx)

	// Defensive create: a reference can reach settlement before any
	// funding flow persisted a record for it.
	if _, err := tx.Exec(ctx,
		`INSERT INTO payments(tx_ref, user_id, amount, status, notes)
		 VALUES($1,$2,$3,'pending','record created at settlement')
		 ON CONFLICT (tx_ref) DO NOTHING`,
		txRef, userID, amount); err != nil {
		return 0, models.Payment{}, err
	}

	p, err := scanPayment(tx.QueryRow(ctx,
		`SELECT `+paymentCols+` FROM payments WHERE tx_ref=$1 FOR UPDATE`, txRef))
	if err != nil {
		return 0, models.Payment{}, err
	}

	switch string(p.Status) {
	case string(models.PaymentSuccess), "completed", string(models.PaymentProcessingCredit):
		return repo.ClaimAlreadyProcessed, p, tx.Commit(ctx)
	case string(models.PaymentFailed):
		return repo.ClaimRefusedFailed, p, tx.Commit(ctx)
	}

	if _, err := tx.Exec(ctx,
		`UPDATE payments SET status='processing_credit' WHERE tx_ref=$1`, txRef); err != nil {
		return 0, models.Payment{}, err
	}
	p.Status = models.PaymentProcessingCredit
	return repo.ClaimAcquired, p, tx.Commit(ctx)
}

func (r *paymentsRepo) Finalize(ctx context.Context, txRef string, amountPaid int64, providerResponse []byte) error {
	_, err := r.pool.Exec(ctx,
		`UPDATE payments
		    SET status='success', amount_paid=$2, provider_response=$3, verified_at=now(), notes=''
		  WHERE tx_ref=$1`,
		txRef, amountPaid, providerResponse,
	)
	return err
}

func (r *paymentsRepo) Release(ctx context.Context, txRef, note string) error {
	_, err := r.pool.Exec(ctx,
		`UPDATE payments SET status='pending', notes=$2
		  WHERE tx_ref=$1 AND status='processing_credit'`,
		txRef, note,
	)
	return err
}

func (r *paymentsRepo) MarkFailed(ctx context.Context, txRef, userID string, amount int64, providerResponse []byte, note string) error {
	// Never demote a settled payment to failed, whatever a late
	// verification says about it.
	_, err := r.pool.Exec(ctx,
		`INSERT INTO payments(tx_ref, user_id, amount, status, provider_response, notes)
		 VALUES($1,$2,$3,'failed',$4,$5)
		 ON CONFLICT (tx_ref) DO UPDATE
		 SET status='failed', provider_response=EXCLUDED.provider_response, notes=EXCLUDED.notes
		 WHERE payments.status NOT IN ('success','completed','processing_credit')`,
		txRef, userID, amount, providerResponse, note,
	)
	return err
}

func (r *paymentsRepo) MarkReconciled(ctx context.Context, txRef, userID string, amountPaid int64, providerResponse []byte, note string) error {
	_, err := r.pool.Exec(ctx,
		`INSERT INTO payments(tx_ref, user_id, amount, amount_paid, status, provider_response, notes, verified_at, reconciled_at)
		 VALUES($1,$2,$3,$3,'success',$4,$5,now(),now())
		 ON CONFLICT (tx_ref) DO UPDATE
		 SET status='success', amount_paid=EXCLUDED.amount_paid,
		     provider_response=EXCLUDED.provider_response, notes=EXCLUDED.notes,
		     verified_at=COALESCE(payments.verified_at, now()), reconciled_at=now()`,
		txRef, userID, amountPaid, providerResponse, note,
	)
	return err
}

func (r *paymentsRepo) ListStalePending(ctx context.Context, olderThan time.Duration, limit int) ([]models.Payment, error) {
	cutoff := time.Now().Add(-olderThan)
	rows, err := r.pool.Query(ctx,
		`SELECT `+paymentCols+` FROM payments
		  WHERE status='pending' AND created_at < $1
		  ORDER BY created_at ASC
		  LIMIT $2`,
		cutoff, limit,
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []models.Payment
	for rows.Next() {
		p, err := scanPayment(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, p)
	}
	return out, rows.Err()
}
