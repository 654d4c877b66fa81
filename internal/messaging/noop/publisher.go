package noop

import (
	"context"

	"arcpay-merchant/internal/model"
)

// Publisher is a no-op EventPublisher used when Kafka is not configured.
type Publisher struct{}

func (Publisher) PublishOrderStatusChanged(_ context.Context, _ *model.Order, _ model.Status) error {
	return nil
}
