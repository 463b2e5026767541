package pending

import (
	"context"
	"errors"

	"coffee-kiosk/internal/models"
)

// ErrDuplicateOrder is returned by Enqueue when a record with the same order
// ID is already queued. Callers treat it as "already queued"; the store never
// holds two records for one ID.
var ErrDuplicateOrder = errors.New("order already queued")

// Store is a durable FIFO queue of orders awaiting remote acceptance. Every
// mutating call is durable before it returns: a caller observing success may
// assume the mutation survives a crash immediately after.
type Store interface {
	Enqueue(ctx context.Context, order models.Order) error

	// ListOrdered returns the queued records in enqueue order. Retry passes
	// rely on this ordering so older orders are never starved.
	ListOrdered(ctx context.Context) ([]models.PendingOrderRecord, error)

	// Remove is a no-op when the ID is absent; a completed retry may have
	// removed it concurrently.
	Remove(ctx context.Context, orderID string) error

	// RecordAttemptFailure increments the attempt count and stamps the
	// attempt time. Absent IDs are a no-op.
	RecordAttemptFailure(ctx context.Context, orderID string) error
}
