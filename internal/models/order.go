package models

import (
	"time"

	"github.com/google/uuid"
)

type OrderItem struct {
	MenuItemID string `json:"menu_item_id"`
	Name       string `json:"name"`
	PriceCents int64  `json:"price_cents"`
	Quantity   int    `json:"quantity"`
}

// Order is immutable once built. The ID is generated client-side so the
// remote service and the pending store can both deduplicate resubmissions
// of the same order.
type Order struct {
	ID         string      `json:"id"`
	Items      []OrderItem `json:"items"`
	TotalCents int64       `json:"total_cents"`
	CreatedAt  time.Time   `json:"created_at"`
}

func NewOrder(items []OrderItem) Order {
	var total int64
	for _, it := range items {
		total += it.PriceCents * int64(it.Quantity)
	}
	return Order{
		ID:         uuid.NewString(),
		Items:      items,
		TotalCents: total,
		CreatedAt:  time.Now(),
	}
}
