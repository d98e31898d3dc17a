package events

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/ThreeDotsLabs/watermill/message"
	"github.com/google/uuid"

	"github.com/pipfun/walletlink/core"
	"github.com/pipfun/walletlink/ports"
)

const (
	NoticeTopic  = "walletlink.notice"
	SessionTopic = "walletlink.session"
)

// WatermillPublisher implements the EventPublisher interface using Watermill
type WatermillPublisher struct {
	publisher message.Publisher
	clientID  string
}

// NewWatermillPublisher creates a publisher tagging every message with clientID
func NewWatermillPublisher(publisher message.Publisher, clientID string) ports.EventPublisher {
	return &WatermillPublisher{
		publisher: publisher,
		clientID:  clientID,
	}
}

// PublishNotice publishes a user-facing notice
func (p *WatermillPublisher) PublishNotice(ctx context.Context, notice core.Notice) error {
	return p.publish(ctx, NoticeTopic, notice)
}

// PublishSession publishes a session change
func (p *WatermillPublisher) PublishSession(ctx context.Context, event core.SessionEvent) error {
	return p.publish(ctx, SessionTopic, event)
}

func (p *WatermillPublisher) publish(ctx context.Context, topic string, v any) error {
	payload, err := json.Marshal(v)
	if err != nil {
		return fmt.Errorf("failed to marshal event: %w", err)
	}

	msg := message.NewMessage(uuid.New().String(), payload)
	msg.SetContext(ctx)
	if p.clientID != "" {
		msg.Metadata.Set("client_id", p.clientID)
	}

	if err := p.publisher.Publish(topic, msg); err != nil {
		return fmt.Errorf("failed to publish event: %w", err)
	}

	return nil
}
