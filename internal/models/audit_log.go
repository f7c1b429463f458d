package models

import "time"

// AuditLog records settlement, reconciliation and admin actions against
// a payment or wallet. Write-only from the application's point of view.
type AuditLog struct {
	ID         string         `json:"id"`
	EntityType string         `json:"entity_type"`
	EntityID   *string        `json:"entity_id"`
	Action     string         `json:"action"`
	Details    map[string]any `json:"details"`
	CreatedAt  time.Time      `json:"created_at"`
}
