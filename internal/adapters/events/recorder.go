package events

import (
	"context"
	"encoding/json"
	"log/slog"
	"time"

	"github.com/whiskerauth/whisker-auth/internal/domain"
	"github.com/whiskerauth/whisker-auth/internal/ports"
)

// Recorder buffers security events and persists them off the request path.
// Record never blocks; when the buffer is full the event is dropped and the
// drop is logged, keeping audit write pressure away from login latency.
type Recorder struct {
	logger    *slog.Logger
	store     ports.SecurityEventRepository
	publisher ports.EventPublisher
	buffer    chan domain.SecurityEvent
}

// NewRecorder constructs the buffered event recorder.
func NewRecorder(logger *slog.Logger, store ports.SecurityEventRepository, publisher ports.EventPublisher, bufferSize int) *Recorder {
	if bufferSize <= 0 {
		bufferSize = 256
	}
	return &Recorder{
		logger:    logger,
		store:     store,
		publisher: publisher,
		buffer:    make(chan domain.SecurityEvent, bufferSize),
	}
}

// Record enqueues the event for persistence. Drops under backpressure.
func (r *Recorder) Record(ctx context.Context, event domain.SecurityEvent) {
	select {
	case r.buffer <- event:
	default:
		r.logger.WarnContext(ctx, "security event dropped",
			"module", "events.recorder",
			"layer", "adapter",
			"operation", "record_event",
			"outcome", "failure",
			"event_type", event.EventType,
		)
	}
}

// Run drains the buffer until context cancellation, then flushes what remains.
func (r *Recorder) Run(ctx context.Context) error {
	for {
		select {
		case <-ctx.Done():
			r.flush()
			return ctx.Err()
		case event := <-r.buffer:
			r.persist(event)
		}
	}
}

func (r *Recorder) flush() {
	for {
		select {
		case event := <-r.buffer:
			r.persist(event)
		default:
			return
		}
	}
}

func (r *Recorder) persist(event domain.SecurityEvent) {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := r.store.Insert(ctx, event); err != nil {
		r.logger.ErrorContext(ctx, "security event insert failed",
			"module", "events.recorder",
			"layer", "adapter",
			"operation", "persist_event",
			"outcome", "failure",
			"event_type", event.EventType,
			"error", err,
		)
		return
	}

	if r.publisher == nil {
		return
	}
	payload, err := json.Marshal(map[string]any{
		"event_id":   event.EventID.String(),
		"event_type": event.EventType,
		"severity":   event.Severity,
		"created_at": event.CreatedAt.UTC().Format(time.RFC3339),
	})
	if err != nil {
		return
	}
	if err := r.publisher.Publish(ctx, event.EventType, payload); err != nil {
		r.logger.WarnContext(ctx, "security event publish failed",
			"module", "events.recorder",
			"layer", "adapter",
			"operation", "publish_event",
			"outcome", "failure",
			"event_type", event.EventType,
			"error", err,
		)
	}
}
