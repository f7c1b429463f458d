package models

import "time"

type PaymentStatus string

const (
	PaymentPending PaymentStatus = "pending"
	// PaymentProcessingCredit marks a payment whose wallet credit is in
	// flight. It acts as the lock that keeps duplicate callbacks out of
	// the credit path.
	PaymentProcessingCredit PaymentStatus = "processing_credit"
	PaymentSuccess          PaymentStatus = "success"
	PaymentFailed           PaymentStatus = "failed"
)

// Payment is one funding attempt, keyed by the gateway transaction
// reference. ProviderResponse keeps the raw verification payload for audit.
type Payment struct {
	TxRef            string        `json:"tx_ref"`
	UserID           string        `json:"user_id"`
	Amount           int64         `json:"amount"`
	AmountPaid       int64         `json:"amount_paid"`
	Status           PaymentStatus `json:"status"`
	ProviderResponse []byte        `json:"provider_response,omitempty"`
	Notes            string        `json:"notes,omitempty"`
	CreatedAt        time.Time     `json:"created_at"`
	VerifiedAt       *time.Time    `json:"verified_at,omitempty"`
	ReconciledAt     *time.Time    `json:"reconciled_at,omitempty"`
}
