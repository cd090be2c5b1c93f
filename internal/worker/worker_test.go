package worker_test

import (
	"context"
	"errors"
	"os"
	"sync"
	"testing"
	"time"

	"github.com/redis/go-redis/v9"

	"medremind/internal/model"
	"medremind/internal/queue"
	"medremind/internal/worker"
)

// =============================================================================
// Mock Implementations
// =============================================================================

// MockDeliverer records DeliverToOwner calls.
type MockDeliverer struct {
	mu        sync.Mutex
	deliverFn func(ctx context.Context, ownerID int64, msgs []model.OutboundMessage) error
	delivered map[int64][]model.OutboundMessage
}

func NewMockDeliverer() *MockDeliverer {
	return &MockDeliverer{delivered: make(map[int64][]model.OutboundMessage)}
}

func (m *MockDeliverer) DeliverToOwner(ctx context.Context, ownerID int64, msgs []model.OutboundMessage) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.deliverFn != nil {
		if err := m.deliverFn(ctx, ownerID, msgs); err != nil {
			return err
		}
	}
	m.delivered[ownerID] = append(m.delivered[ownerID], msgs...)
	return nil
}

func (m *MockDeliverer) Delivered(ownerID int64) []model.OutboundMessage {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.delivered[ownerID]
}

// =============================================================================
// Handler unit tests
// =============================================================================

func TestHandler_AppointmentCreated(t *testing.T) {
	deliverer := NewMockDeliverer()
	h := worker.NewHandler(deliverer, time.UTC)

	event := queue.NewAppointmentCreatedEvent(10, 5, "City Clinic", time.Date(2026, 3, 11, 10, 0, 0, 0, time.UTC))
	if err := h.HandleEvent(context.Background(), event); err != nil {
		t.Fatalf("handle: %v", err)
	}

	msgs := deliverer.Delivered(10)
	if len(msgs) != 1 {
		t.Fatalf("expected 1 delivered message, got %d", len(msgs))
	}
	if msgs[0].Title != "Appointment booked" {
		t.Errorf("wrong title: %q", msgs[0].Title)
	}
	if msgs[0].SourceRef != "appointment:5" {
		t.Errorf("wrong source ref: %q", msgs[0].SourceRef)
	}
	if msgs[0].Data["type"] != "appointment_confirmation" {
		t.Errorf("wrong data type: %v", msgs[0].Data)
	}
}

func TestHandler_AppointmentCanceled(t *testing.T) {
	deliverer := NewMockDeliverer()
	h := worker.NewHandler(deliverer, time.UTC)

	event := queue.NewAppointmentCanceledEvent(10, 5, "City Clinic", time.Date(2026, 3, 11, 10, 0, 0, 0, time.UTC))
	if err := h.HandleEvent(context.Background(), event); err != nil {
		t.Fatalf("handle: %v", err)
	}

	msgs := deliverer.Delivered(10)
	if len(msgs) != 1 || msgs[0].Title != "Appointment canceled" {
		t.Fatalf("expected a cancellation message, got %v", msgs)
	}
}

func TestHandler_UnknownEventType(t *testing.T) {
	deliverer := NewMockDeliverer()
	h := worker.NewHandler(deliverer, time.UTC)

	err := h.HandleEvent(context.Background(), queue.ReminderEvent{Type: "mystery"})
	if err == nil {
		t.Fatal("expected an error for an unknown event type")
	}
}

func TestHandler_DelivererErrorPropagates(t *testing.T) {
	deliverer := NewMockDeliverer()
	deliverer.deliverFn = func(ctx context.Context, ownerID int64, msgs []model.OutboundMessage) error {
		return errors.New("push provider down")
	}
	h := worker.NewHandler(deliverer, time.UTC)

	event := queue.NewAppointmentCreatedEvent(10, 5, "City Clinic", time.Now())
	if err := h.HandleEvent(context.Background(), event); err == nil {
		t.Fatal("expected the delivery error to propagate for logging")
	}
}

// =============================================================================
// Stream integration test (requires Redis)
// =============================================================================

func TestManager_ConsumesPublishedEvents(t *testing.T) {
	redisURL := os.Getenv("TEST_REDIS_URL")
	if redisURL == "" {
		redisURL = "redis://localhost:6379/1"
	}

	opts, err := redis.ParseURL(redisURL)
	if err != nil {
		t.Fatalf("parse redis url: %v", err)
	}
	client := redis.NewClient(opts)
	ctx := context.Background()
	if err := client.Ping(ctx).Err(); err != nil {
		t.Skipf("Redis not available, skipping test: %v", err)
	}
	defer client.Close()

	// Isolate this run from leftovers of previous ones.
	client.Del(ctx, queue.StreamReminders)

	deliverer := NewMockDeliverer()
	handler := worker.NewHandler(deliverer, time.UTC)
	manager := worker.NewManager(queue.NewConsumer(client), handler, worker.ManagerConfig{
		WorkerCount:  1,
		BatchSize:    10,
		BlockTimeout: 200 * time.Millisecond,
	})

	if err := manager.Start(ctx); err != nil {
		t.Fatalf("start manager: %v", err)
	}
	defer manager.Stop()

	publisher := queue.NewPublisher(client)
	event := queue.NewAppointmentCreatedEvent(99, 7, "Test Clinic", time.Now().Add(24*time.Hour))
	if _, err := publisher.Publish(ctx, queue.StreamReminders, event); err != nil {
		t.Fatalf("publish: %v", err)
	}

	deadline := time.Now().Add(3 * time.Second)
	for time.Now().Before(deadline) {
		if len(deliverer.Delivered(99)) > 0 {
			return
		}
		time.Sleep(50 * time.Millisecond)
	}
	t.Fatal("event was not consumed within the deadline")
}
