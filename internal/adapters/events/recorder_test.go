package events

import (
	"context"
	"io"
	"log/slog"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"

	"github.com/whiskerauth/whisker-auth/internal/domain"
)

func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

type fakeEventStore struct {
	mu     sync.Mutex
	events []domain.SecurityEvent
}

func (s *fakeEventStore) Insert(_ context.Context, event domain.SecurityEvent) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.events = append(s.events, event)
	return nil
}

func (s *fakeEventStore) ListRecent(_ context.Context, _, _ int) ([]domain.SecurityEvent, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]domain.SecurityEvent, len(s.events))
	copy(out, s.events)
	return out, nil
}

func (s *fakeEventStore) count() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.events)
}

func testEvent(eventType string) domain.SecurityEvent {
	return domain.SecurityEvent{
		EventID:   uuid.New(),
		EventType: eventType,
		Severity:  "warning",
		DeviceID:  "device-1",
		CreatedAt: time.Now().UTC(),
	}
}

func TestRecorderPersistsEvents(t *testing.T) {
	t.Parallel()

	store := &fakeEventStore{}
	recorder := NewRecorder(discardLogger(), store, nil, 8)

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	go func() {
		_ = recorder.Run(ctx)
		close(done)
	}()

	recorder.Record(context.Background(), testEvent("login_failed"))
	recorder.Record(context.Background(), testEvent("account_lockout"))

	deadline := time.After(2 * time.Second)
	for store.count() < 2 {
		select {
		case <-deadline:
			t.Fatalf("events not persisted, got %d", store.count())
		case <-time.After(5 * time.Millisecond):
		}
	}

	cancel()
	<-done
}

func TestRecorderFlushesOnShutdown(t *testing.T) {
	t.Parallel()

	store := &fakeEventStore{}
	recorder := NewRecorder(discardLogger(), store, nil, 8)

	// Enqueue before the drain loop starts so the flush path has to pick
	// them up after cancellation.
	recorder.Record(context.Background(), testEvent("session_created"))
	recorder.Record(context.Background(), testEvent("session_ended"))

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_ = recorder.Run(ctx)

	if got := store.count(); got != 2 {
		t.Fatalf("expected 2 flushed events, got %d", got)
	}
}

func TestRecorderDropsWhenBufferFull(t *testing.T) {
	t.Parallel()

	store := &fakeEventStore{}
	recorder := NewRecorder(discardLogger(), store, nil, 2)

	// No drain loop running; the third event must be dropped, not block.
	recorder.Record(context.Background(), testEvent("login_failed"))
	recorder.Record(context.Background(), testEvent("login_failed"))

	finished := make(chan struct{})
	go func() {
		recorder.Record(context.Background(), testEvent("login_failed"))
		close(finished)
	}()

	select {
	case <-finished:
	case <-time.After(time.Second):
		t.Fatalf("record blocked on a full buffer")
	}

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_ = recorder.Run(ctx)

	if got := store.count(); got != 2 {
		t.Fatalf("expected 2 persisted events after drop, got %d", got)
	}
}
