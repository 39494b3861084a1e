package events

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"

	"github.com/ThreeDotsLabs/watermill"
	"github.com/ThreeDotsLabs/watermill-kafka/v2/pkg/kafka"
	"github.com/ThreeDotsLabs/watermill/message"
	"github.com/ThreeDotsLabs/watermill/pubsub/gochannel"
)

// WatermillPublisher serialises events as JSON watermill messages
type WatermillPublisher struct {
	publisher   message.Publisher
	topicPrefix string
	logger      *slog.Logger
}

func NewWatermillPublisher(publisher message.Publisher, topicPrefix string, logger *slog.Logger) *WatermillPublisher {
	return &WatermillPublisher{
		publisher:   publisher,
		topicPrefix: topicPrefix,
		logger:      logger,
	}
}

// NewKafkaPublisher publishes to the given brokers
func NewKafkaPublisher(brokers []string, topicPrefix string, logger *slog.Logger) (*WatermillPublisher, error) {
	publisher, err := kafka.NewPublisher(
		kafka.PublisherConfig{
			Brokers:   brokers,
			Marshaler: kafka.DefaultMarshaler{},
		},
		watermill.NewSlogLogger(logger),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to create kafka publisher: %w", err)
	}

	return NewWatermillPublisher(publisher, topicPrefix, logger), nil
}

// NewGoChannelPublisher keeps events in process; the returned channel can be subscribed to
func NewGoChannelPublisher(logger *slog.Logger) (*WatermillPublisher, *gochannel.GoChannel) {
	pubSub := gochannel.NewGoChannel(
		gochannel.Config{OutputChannelBuffer: 256},
		watermill.NewSlogLogger(logger),
	)
	return NewWatermillPublisher(pubSub, "", logger), pubSub
}

func (p *WatermillPublisher) Topic(eventType EventType) string {
	return p.topicPrefix + eventType.Topic()
}

func (p *WatermillPublisher) Publish(ctx context.Context, event *Event) error {
	payload, err := json.Marshal(event)
	if err != nil {
		return fmt.Errorf("failed to marshal event: %w", err)
	}

	msg := message.NewMessage(event.ID, payload)
	msg.SetContext(ctx)
	msg.Metadata.Set("event_type", string(event.Type))
	msg.Metadata.Set("source", event.Source)

	topic := p.Topic(event.Type)
	if err := p.publisher.Publish(topic, msg); err != nil {
		return fmt.Errorf("failed to publish %s to %s: %w", event.Type, topic, err)
	}

	p.logger.DebugContext(ctx, "Event published", "event_id", event.ID, "event_type", event.Type, "topic", topic)
	return nil
}

func (p *WatermillPublisher) Close() error {
	return p.publisher.Close()
}
