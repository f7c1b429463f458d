// Package identity resolves emails to canonical user ids. Monetary state
// is keyed by user id only; email shows up solely in legacy ghost-wallet
// records and login.
package identity

import (
	"context"
	"errors"
	"log/slog"

	repo "github.com/aolagbe/vtuwallet/internal/repository"
)

var ErrNotFound = repo.ErrNotFound

type Resolver struct {
	users repo.Users
	log   *slog.Logger
}

func NewResolver(users repo.Users, log *slog.Logger) *Resolver {
	return &Resolver{users: users, log: log}
}

// FindUserIDByEmail tries an exact match first, then falls back to a
// case-insensitive lookup for legacy records with uneven casing.
func (r *Resolver) FindUserIDByEmail(ctx context.Context, email string) (string, error) {
	u, err := r.users.GetByEmail(ctx, email)
	if err == nil {
		return u.ID, nil
	}
	if !errors.Is(err, repo.ErrNotFound) {
		return "", err
	}
	u, err = r.users.GetByEmailFold(ctx, email)
	if err != nil {
		return "", err
	}
	return u.ID, nil
}

// Exists is opportunistic: callers use it for logging, never to gate a
// credit.
func (r *Resolver) Exists(ctx context.Context, userID string) (bool, error) {
	return r.users.Exists(ctx, userID)
}
