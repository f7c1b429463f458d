package postgres

import (
	repo "github.com/aolagbe/vtuwallet/internal/repository"
	"github.com/jackc/pgx/v5/pgxpool"
)

type Repositories struct {
	Users        repo.Users
	Wallets      repo.Wallets
	Ledger       repo.Ledger
	Payments     repo.Payments
	GhostWallets repo.GhostWallets
	AuditLogs    repo.AuditLogs
}

func NewRepositories(pool *pgxpool.Pool) Repositories {
	return Repositories{
		Users:        &usersRepo{pool},
		Wallets:      &walletsRepo{pool},
		Ledger:       &ledgerRepo{pool},
		Payments:     &paymentsRepo{pool},
		GhostWallets: &ghostsRepo{pool},
		AuditLogs:    &auditLogsRepo{pool},
	}
}
