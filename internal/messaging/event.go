// Package messaging defines the outbound event envelope for order
// state changes and the publisher port the reconciler emits through.
package messaging

import (
	"context"
	"time"

	"arcpay-merchant/internal/model"
)

const EventOrderStatusChanged = "order.status_changed"

// OrderEvent is the message envelope published for every accepted
// transition. Revision lets downstream consumers de-duplicate and
// order deliveries the same way the reconciler does.
type OrderEvent struct {
	EventType  string    `json:"event_type"`
	UUID       string    `json:"uuid"`
	OrderID    string    `json:"order_id"`
	OldStatus  string    `json:"old_status,omitempty"`
	NewStatus  string    `json:"new_status"`
	TxnHash    string    `json:"txn_hash,omitempty"`
	Amount     float64   `json:"amount"`
	Currency   string    `json:"currency"`
	Revision   uint64    `json:"revision"`
	OccurredAt time.Time `json:"occurred_at"`
}

// EventPublisher pushes order events to the configured bus. Publishing
// is best-effort from the reconciler's perspective: failures are
// logged, never propagated into the reconciliation outcome.
type EventPublisher interface {
	PublishOrderStatusChanged(ctx context.Context, order *model.Order, oldStatus model.Status) error
}

// NewStatusChangedEvent builds the envelope for an accepted transition.
func NewStatusChangedEvent(order *model.Order, oldStatus model.Status) *OrderEvent {
	ev := &OrderEvent{
		EventType:  EventOrderStatusChanged,
		UUID:       order.UUID,
		OrderID:    order.OrderID,
		OldStatus:  string(oldStatus),
		NewStatus:  string(order.Status),
		Amount:     order.Amount,
		Currency:   order.Currency,
		Revision:   order.Revision,
		OccurredAt: time.Now(),
	}
	if order.Txn != nil {
		ev.TxnHash = order.Txn.Hash
	}
	return ev
}
