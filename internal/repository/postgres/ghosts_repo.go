package postgres

import (
	"context"

	"github.com/aolagbe/vtuwallet/internal/models"
	"github.com/jackc/pgx/v5/pgxpool"
)

type ghostsRepo struct{ pool *pgxpool.Pool }

func (r *ghostsRepo) ListUnmigrated(ctx context.Context, limit, offset int) ([]models.GhostWallet, error) {
	rows, err := r.pool.Query(ctx,
		`SELECT email, main_balance, migrated, migrated_to, migrated_at
		   FROM ghost_wallets
		  WHERE migrated = false AND main_balance > 0
		  ORDER BY email
		  LIMIT $1 OFFSET $2`,
		limit, offset,
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []models.GhostWallet
	for rows.Next() {
		var g models.GhostWallet
		if err := rows.Scan(&g.Email, &g.MainBalance, &g.Migrated, &g.MigratedTo, &g.MigratedAt); err != nil {
			return nil, err
		}
		out = append(out, g)
	}
	return out, rows.Err()
}

func (r *ghostsRepo) MarkMigrated(ctx context.Context, email, migratedTo string) error {
	_, err := r.pool.Exec(ctx,
		`UPDATE ghost_wallets
		    SET main_balance = 0, migrated = true, migrated_to = $2, migrated_at = now()
		  WHERE email = $1`,
		email, migratedTo,
	)
	return err
}
