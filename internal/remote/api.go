package remote

import (
	"context"
	"errors"

	"coffee-kiosk/internal/models"
)

// ErrUnreachable means the transport never delivered the request. The order
// was not seen by the remote service and may be queued and retried verbatim.
var ErrUnreachable = errors.New("remote unreachable")

// TransientError is a remote-side failure expected to clear without any
// client-side change. Eligible for retry.
type TransientError struct {
	Reason string
}

func (e *TransientError) Error() string { return "transient remote failure: " + e.Reason }

// RejectedError is a business-rule rejection. Terminal: retrying could charge
// a customer for an invalid cart, so callers must never resubmit.
type RejectedError struct {
	Reason string
}

func (e *RejectedError) Error() string { return "order rejected: " + e.Reason }

// API is the remote ordering service boundary. CreateOrder returns nil on
// acceptance; any non-nil error is classified as ErrUnreachable,
// *TransientError or *RejectedError before it leaves this package.
type API interface {
	CreateOrder(ctx context.Context, order models.Order) error
	GetMenu(ctx context.Context) ([]models.MenuItem, error)
}

// Retryable reports whether err is a classification that permits resubmitting
// the same order later.
func Retryable(err error) bool {
	var transient *TransientError
	return errors.Is(err, ErrUnreachable) || errors.As(err, &transient)
}
