package ports

import (
	"context"

	"github.com/pipfun/walletlink/core"
)

// EventPublisher publishes user-facing notices and session changes
type EventPublisher interface {
	PublishNotice(ctx context.Context, notice core.Notice) error
	PublishSession(ctx context.Context, event core.SessionEvent) error
}
