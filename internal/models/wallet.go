package models

import (
	"fmt"
	"time"
)

// WalletType names one of the three sub-balances every account carries.
type WalletType string

const (
	WalletMain     WalletType = "main"
	WalletCashback WalletType = "cashback"
	WalletReferral WalletType = "referral"
)

// ParseWalletType rejects anything that is not one of the three known
// sub-balances. Wallet type is interpolated into SQL column names, so
// it must never pass through unvalidated.
func ParseWalletType(s string) (WalletType, error) {
	switch WalletType(s) {
	case WalletMain, WalletCashback, WalletReferral:
		return WalletType(s), nil
	}
	return "", fmt.Errorf("unknown wallet type %q", s)
}

// Wallet holds the three balances for one user, in minor currency units.
// Balances are never negative; the DB enforces it with CHECK constraints
// and the service layer refuses debits beyond the current balance.
type Wallet struct {
	UserID          string    `json:"user_id"`
	MainBalance     int64     `json:"main_balance"`
	CashbackBalance int64     `json:"cashback_balance"`
	ReferralBalance int64     `json:"referral_balance"`
	CreatedAt       time.Time `json:"created_at"`
	UpdatedAt       time.Time `json:"updated_at"`
}

// Balance returns the named sub-balance.
func (w Wallet) Balance(t WalletType) int64 {
	switch t {
	case WalletCashback:
		return w.CashbackBalance
	case WalletReferral:
		return w.ReferralBalance
	default:
		return w.MainBalance
	}
}
