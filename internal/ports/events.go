package ports

import (
	"context"

	"github.com/whiskerauth/whisker-auth/internal/domain"
)

// SecurityEventSink accepts audit records best-effort: recording must never
// block or fail the primary operation it accompanies. At-least-once delivery;
// duplicates are harmless since events carry no uniqueness constraint.
type SecurityEventSink interface {
	Record(ctx context.Context, event domain.SecurityEvent)
}

// EventPublisher is the outbound port toward external monitoring/reporting.
type EventPublisher interface {
	Publish(ctx context.Context, eventType string, payload []byte) error
}
