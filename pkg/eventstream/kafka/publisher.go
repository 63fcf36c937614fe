// Package kafka provides the Kafka-backed eventstream publisher.
package kafka

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	kafkago "github.com/segmentio/kafka-go"

	"github.com/testwiseco/testwise/pkg/eventstream"
)

// Publisher publishes test lifecycle events to a Kafka topic. Events are
// keyed by test id so all events of one test land in the same partition.
type Publisher struct {
	writer *kafkago.Writer
}

// NewPublisher creates a publisher for the given brokers and topic.
func NewPublisher(brokers []string, topic string) (*Publisher, error) {
	if len(brokers) == 0 {
		return nil, errors.New("at least one kafka broker is required")
	}
	if topic == "" {
		return nil, errors.New("kafka topic is required")
	}

	writer := &kafkago.Writer{
		Addr:     kafkago.TCP(brokers...),
		Topic:    topic,
		Balancer: &kafkago.Hash{},
	}

	return &Publisher{writer: writer}, nil
}

// PublishTestEvent serializes the event as JSON and writes it to the topic.
func (p *Publisher) PublishTestEvent(ctx context.Context, event *eventstream.TestLifecycleEvent) error {
	if event == nil {
		return eventstream.ErrNilEvent
	}

	payload, err := json.Marshal(event)
	if err != nil {
		return fmt.Errorf("encoding test lifecycle event: %w", err)
	}

	msg := kafkago.Message{
		Key:   []byte(event.TestID),
		Value: payload,
	}

	if err := p.writer.WriteMessages(ctx, msg); err != nil {
		return fmt.Errorf("writing test lifecycle event: %w", err)
	}
	return nil
}

// Close flushes and closes the underlying writer.
func (p *Publisher) Close() error {
	return p.writer.Close()
}
