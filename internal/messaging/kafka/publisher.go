package kafka

import (
	"context"
	"encoding/json"
	"fmt"

	"arcpay-merchant/internal/messaging"
	"arcpay-merchant/internal/model"

	kafkago "github.com/segmentio/kafka-go"
)

// Publisher writes order events to a Kafka topic, keyed by order uuid
// so all events for one order land on the same partition in order.
type Publisher struct {
	writer *kafkago.Writer
}

func NewPublisher(brokers []string, topic string) *Publisher {
	return &Publisher{
		writer: &kafkago.Writer{
			Addr:                   kafkago.TCP(brokers...),
			Topic:                  topic,
			Balancer:               &kafkago.Hash{},
			AllowAutoTopicCreation: true,
		},
	}
}

func (p *Publisher) PublishOrderStatusChanged(ctx context.Context, order *model.Order, oldStatus model.Status) error {
	event := messaging.NewStatusChangedEvent(order, oldStatus)

	value, err := json.Marshal(event)
	if err != nil {
		return fmt.Errorf("marshal order event: %w", err)
	}

	err = p.writer.WriteMessages(ctx, kafkago.Message{
		Key:   []byte(order.UUID),
		Value: value,
	})
	if err != nil {
		return fmt.Errorf("write order event: %w", err)
	}
	return nil
}

func (p *Publisher) Close() error {
	return p.writer.Close()
}
