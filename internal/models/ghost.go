package models

import "time"

// GhostWallet is a legacy wallet row keyed by email instead of user id,
// left behind by the pre-migration schema. The migration job zeroes the
// balance and flips Migrated; it never touches these rows otherwise.
type GhostWallet struct {
	Email       string     `json:"email"`
	MainBalance int64      `json:"main_balance"`
	Migrated    bool       `json:"migrated"`
	MigratedTo  *string    `json:"migrated_to,omitempty"`
	MigratedAt  *time.Time `json:"migrated_at,omitempty"`
}
