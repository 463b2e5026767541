package models

import "time"

// PendingOrderRecord wraps an order that was accepted locally but not yet
// confirmed by the remote service.
type PendingOrderRecord struct {
	Order         Order      `json:"order"`
	AttemptCount  int        `json:"attempt_count"`
	LastAttemptAt *time.Time `json:"last_attempt_at,omitempty"`
}
