package events

import (
	"context"
	"log/slog"
)

// LoggingPublisher is the default downstream when no broker is configured:
// published events land in the service log and nowhere else.
type LoggingPublisher struct {
	logger *slog.Logger
}

func NewLoggingPublisher(logger *slog.Logger) *LoggingPublisher {
	return &LoggingPublisher{
		logger: logger.With("module", "events.publisher", "layer", "adapter"),
	}
}

func (p *LoggingPublisher) Publish(ctx context.Context, eventType string, payload []byte) error {
	p.logger.InfoContext(ctx, "security event published",
		"operation", "publish_event",
		"outcome", "success",
		"event_type", eventType,
		"payload_bytes", len(payload),
		"payload", string(payload),
	)
	return nil
}
