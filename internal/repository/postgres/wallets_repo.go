package postgres

import (
	"context"
	"errors"
	"fmt"

	"github.com/aolagbe/vtuwallet/internal/models"
	repo "github.com/aolagbe/vtuwallet/internal/repository"
	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
)

type walletsRepo struct{ pool *pgxpool.Pool }

const walletCols = `user_id, main_balance, cashback_balance, referral_balance, created_at, updated_at`

// balanceColumn maps a validated wallet type to its column. The type has
// already been through models.ParseWalletType; anything else is a bug.
func balanceColumn(t models.WalletType) (string, error) {
	switch t {
	case models.WalletMain:
		return "main_balance", nil
	case models.WalletCashback:
		return "cashback_balance", nil
	case models.WalletReferral:
		return "referral_balance", nil
	}
	return "", fmt.Errorf("unknown wallet type %q", t)
}

func scanWallet(row pgx.Row) (models.Wallet, error) {
	var w models.Wallet
	err := row.Scan(&w.UserID, &w.MainBalance, &w.CashbackBalance, &w.ReferralBalance, &w.CreatedAt, &w.UpdatedAt)
	return w, err
}

func (r *walletsRepo) Ensure(ctx context.Context, userID string) error {
	_, err := r.pool.Exec(ctx,
		`INSERT INTO wallets(user_id) VALUES($1) ON CONFLICT (user_id) DO NOTHING`,
		userID,
	)
	return err
}

func (r *walletsRepo) Get(ctx context.Context, userID string) (models.Wallet, error) {
	w, err := scanWallet(r.pool.QueryRow(ctx,
		`SELECT `+walletCols+` FROM wallets WHERE user_id=$1`, userID))
	if errors.Is(err, pgx.ErrNoRows) {
		return models.Wallet{}, repo.ErrNotFound
	}
	return w, err
}

// Credit increments one balance and appends the matching ledger entry in
// a single transaction. A non-empty ExternalRef that already has a credit
// entry makes the whole call a no-op (applied=false); the partial unique
// index on ledger_entries backs this up against concurrent callers.
func (r *walletsRepo) Credit(ctx context.Context, p repo.CreditParams) (models.Wallet, bool, error) {
	col, err := balanceColumn(p.WalletType)
	if err != nil {
		return models.Wallet{}, false, err
	}

	tx, err := r.pool.BeginTx(ctx, pgx.TxOptions{IsoLevel: pgx.ReadCommitted})
	if err != nil {
		return models.Wallet{}, false, err
	}
	defer tx.Rollback(ctx)

	if _, err := tx.Exec(ctx,
		`INSERT INTO wallets(user_id) VALUES($1) ON CONFLICT (user_id) DO NOTHING`, p.UserID); err != nil {
		return models.Wallet{}, false, err
	}

	if p.ExternalRef != "" {
		var exists bool
		err := tx.QueryRow(ctx,
			`SELECT EXISTS(SELECT 1 FROM ledger_entries WHERE external_ref=$1 AND direction='credit')`,
			p.ExternalRef,
		).Scan(&exists)
		if err != nil {
			return models.Wallet{}, false, err
		}
		if exists {
			w, err := scanWallet(tx.QueryRow(ctx,
				`SELECT `+walletCols+` FROM wallets WHERE user_id=$1`, p.UserID))
			if err != nil {
				return models.Wallet{}, false, err
			}
			return w, false, tx.Commit(ctx)
		}
	}

	w, err := scanWallet(tx.QueryRow(ctx,
		`UPDATE wallets SET `+col+` = `+col+` + $2, updated_at = now()
		  WHERE user_id = $1
		  RETURNING `+walletCols,
		p.UserID, p.Amount,
	))
	if err != nil {
		return models.Wallet{}, false, err
	}

	var ref *string
	if p.ExternalRef != "" {
		ref = &p.ExternalRef
	}
	_, err = tx.Exec(ctx,
		`INSERT INTO ledger_entries(id, user_id, wallet_type, direction, amount, description, external_ref)
		 VALUES($1,$2,$3,'credit',$4,$5,$6)`,
		uuid.NewString(), p.UserID, p.WalletType, p.Amount, p.Description, ref,
	)
	if err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == "23505" {
			// Lost the race against a concurrent credit with the same
			// reference. Roll back and report the current balance.
			_ = tx.Rollback(ctx)
			w, gerr := r.Get(ctx, p.UserID)
			return w, false, gerr
		}
		return models.Wallet{}, false, err
	}

	return w, true, tx.Commit(ctx)
}

// Debit decrements one balance only when it covers the amount; the
// conditional UPDATE matching zero rows means insufficient funds and
// nothing is written.
func (r *walletsRepo) Debit(ctx context.Context, p repo.DebitParams) (models.Wallet, error) {
	col, err := balanceColumn(p.WalletType)
	if err != nil {
		return models.Wallet{}, err
	}

	tx, err := r.pool.BeginTx(ctx, pgx.TxOptions{IsoLevel: pgx.ReadCommitted})
	if err != nil {
		return models.Wallet{}, err
	}
	defer tx.Rollback(ctx)

	if _, err := tx.Exec(ctx,
		`INSERT INTO wallets(user_id) VALUES($1) ON CONFLICT (user_id) DO NOTHING`, p.UserID); err != nil {
		return models.Wallet{}, err
	}

	w, err := scanWallet(tx.QueryRow(ctx,
		`UPDATE wallets SET `+col+` = `+col+` - $2, updated_at = now()
		  WHERE user_id = $1 AND `+col+` >= $2
		  RETURNING `+walletCols,
		p.UserID, p.Amount,
	))
	if errors.Is(err, pgx.ErrNoRows) {
		return models.Wallet{}, repo.ErrInsufficientBalance
	}
	if err != nil {
		return models.Wallet{}, err
	}

	_, err = tx.Exec(ctx,
		`INSERT INTO ledger_entries(id, user_id, wallet_type, direction, amount, description)
		 VALUES($1,$2,$3,'debit',$4,$5)`,
		uuid.NewString(), p.UserID, p.WalletType, p.Amount, p.Description,
	)
	if err != nil {
		return models.Wallet{}, err
	}

	return w, tx.Commit(ctx)
}
