package jobs

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"

	"cloud.google.com/go/pubsub"

	"github.com/NomanAhmed1999/vatika/internal/services"
)

// PubSubOrderPublisherDeps wires dependencies for the Pub/Sub order publisher.
type PubSubOrderPublisherDeps struct {
	Client *pubsub.Client
	Topic  string
}

// PubSubOrderPublisher announces accepted orders on a Pub/Sub topic.
type PubSubOrderPublisher struct {
	topic *pubsub.Topic
}

// NewPubSubOrderPublisher constructs a publisher for the configured topic.
func NewPubSubOrderPublisher(deps PubSubOrderPublisherDeps) (*PubSubOrderPublisher, error) {
	if deps.Client == nil {
		return nil, errors.New("order publisher: pubsub client is required")
	}
	topicID := strings.TrimSpace(deps.Topic)
	if topicID == "" {
		return nil, errors.New("order publisher: topic is required")
	}
	return &PubSubOrderPublisher{topic: deps.Client.Topic(topicID)}, nil
}

// PublishOrderCreated publishes the order payload and returns the server
// message ID once the publish is acknowledged.
func (p *PubSubOrderPublisher) PublishOrderCreated(ctx context.Context, message services.OrderCreatedMessage) (string, error) {
	if p == nil || p.topic == nil {
		return "", errors.New("order publisher not initialised")
	}
	payload, err := json.Marshal(message)
	if err != nil {
		return "", fmt.Errorf("order publisher: encode message: %w", err)
	}

	result := p.topic.Publish(ctx, &pubsub.Message{
		Data: payload,
		Attributes: map[string]string{
			"event":       "order.created",
			"customer_id": message.CustomerID,
		},
	})
	messageID, err := result.Get(ctx)
	if err != nil {
		return "", fmt.Errorf("order publisher: publish: %w", err)
	}
	return messageID, nil
}

// Stop flushes outstanding publishes. Call during shutdown.
func (p *PubSubOrderPublisher) Stop() {
	if p != nil && p.topic != nil {
		p.topic.Stop()
	}
}
