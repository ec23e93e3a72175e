// Package kafka publishes ledger events to a Kafka topic with
// github.com/segmentio/kafka-go.
package kafka

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/segmentio/kafka-go"

	"github.com/mohiuddinsizan/MoneyManagementSystem/internal/events"
)

var _ events.Publisher = (*Publisher)(nil)

// envelope is the JSON value written for every event.
type envelope struct {
	Type       string       `json:"type"`
	OccurredAt time.Time    `json:"occurredAt"`
	Payload    events.Event `json:"payload"`
}

// Publisher writes events to one topic. Messages are keyed by Event.Key so a
// user's events land on one partition and stay ordered.
type Publisher struct {
	writer *kafka.Writer
}

// NewPublisher creates a Publisher for brokers and topic.
func NewPublisher(brokers []string, topic string) *Publisher {
	return &Publisher{
		writer: &kafka.Writer{
			Addr:         kafka.TCP(brokers...),
			Topic:        topic,
			Balancer:     &kafka.Hash{},
			RequiredAcks: kafka.RequireOne,
			BatchTimeout: 10 * time.Millisecond,
		},
	}
}

// Publish writes e synchronously.
func (p *Publisher) Publish(ctx context.Context, e events.Event) error {
	msg, err := buildMessage(e, time.Now().UTC())
	if err != nil {
		return err
	}
	if err := p.writer.WriteMessages(ctx, msg); err != nil {
		return fmt.Errorf("kafka: writing %s: %w", e.Type(), err)
	}
	return nil
}

// Close flushes pending writes and releases connections.
func (p *Publisher) Close() error {
	return p.writer.Close()
}

func buildMessage(e events.Event, now time.Time) (kafka.Message, error) {
	value, err := json.Marshal(envelope{Type: e.Type(), OccurredAt: now, Payload: e})
	if err != nil {
		return kafka.Message{}, fmt.Errorf("kafka: encoding %s: %w", e.Type(), err)
	}
	return kafka.Message{
		Key:   []byte(e.Key()),
		Value: value,
		Headers: []kafka.Header{
			{Key: "type", Value: []byte(e.Type())},
		},
	}, nil
}
