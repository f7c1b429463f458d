package models

import "time"

type EntryDirection string

const (
	DirCredit EntryDirection = "credit"
	DirDebit  EntryDirection = "debit"
)

// LedgerEntry is an append-only record of one balance mutation. Entries
// are never updated or deleted. ExternalRef is set when the entry
// originates from a gateway payment; a partial unique index guarantees
// at most one credit entry per reference for the lifetime of the system.
type LedgerEntry struct {
	ID          string         `json:"id"`
	UserID      string         `json:"user_id"`
	WalletType  WalletType     `json:"wallet_type"`
	Direction   EntryDirection `json:"direction"`
	Amount      int64          `json:"amount"`
	Description string         `json:"description"`
	ExternalRef *string        `json:"external_ref,omitempty"`
	CreatedAt   time.Time      `json:"created_at"`
}
