package postgres

import (
	"errors"
	"testing"

	"github.com/vladislavdragonenkov/checkout/internal/domain"
)

func TestOutboxRepositoryIntegration_EnqueueAndPull(t *testing.T) {
	store := openPostgresStoreForIntegrationTest(t)
	repo := NewOutboxRepository(store)

	first, err := repo.Enqueue(domain.OutboxMessage{
		AggregateType: "checkout",
		AggregateID:   "sess-1",
		EventType:     domain.EventTypeOrderConfirmed,
		Payload:       []byte(`{"order_number":"483920"}`),
	})
	if err != nil {
		t.Fatalf("enqueue failed: %v", err)
	}
	if first.ID == "" {
		t.Fatal("enqueue must assign an id")
	}

	second, err := repo.Enqueue(domain.OutboxMessage{
		AggregateType: "checkout",
		AggregateID:   "sess-2",
		EventType:     domain.EventTypeOrderAbandoned,
	})
	if err != nil {
		t.Fatalf("enqueue failed: %v", err)
	}

	pending, err := repo.PullPending(10)
	if err != nil {
		t.Fatalf("pull pending failed: %v", err)
	}
	if len(pending) != 2 {
		t.Fatalf("expected 2 pending messages, got %d", len(pending))
	}
	// Сообщения отдаются в порядке постановки.
	if pending[0].ID != first.ID || pending[1].ID != second.ID {
		t.Fatalf("unexpected pull order: %s, %s", pending[0].ID, pending[1].ID)
	}
	if pending[0].EventType != domain.EventTypeOrderConfirmed {
		t.Fatalf("unexpected event type %s", pending[0].EventType)
	}
	if string(pending[0].Payload) != `{"order_number":"483920"}` {
		t.Fatalf("unexpected payload %s", pending[0].Payload)
	}
}

func TestOutboxRepositoryIntegration_MarkSentAndFailed(t *testing.T) {
	store := openPostgresStoreForIntegrationTest(t)
	repo := NewOutboxRepository(store)

	sent, err := repo.Enqueue(domain.OutboxMessage{
		AggregateType: "checkout",
		AggregateID:   "sess-1",
		EventType:     domain.EventTypeOrderConfirmed,
	})
	if err != nil {
		t.Fatalf("enqueue failed: %v", err)
	}
	failed, err := repo.Enqueue(domain.OutboxMessage{
		AggregateType: "checkout",
		AggregateID:   "sess-2",
		EventType:     domain.EventTypeOrderAbandoned,
	})
	if err != nil {
		t.Fatalf("enqueue failed: %v", err)
	}

	if err := repo.MarkSent(sent.ID); err != nil {
		t.Fatalf("mark sent failed: %v", err)
	}
	if err := repo.MarkFailed(failed.ID); err != nil {
		t.Fatalf("mark failed failed: %v", err)
	}

	pending, err := repo.PullPending(10)
	if err != nil {
		t.Fatalf("pull pending failed: %v", err)
	}
	if len(pending) != 0 {
		t.Fatalf("expected no pending messages, got %d", len(pending))
	}

	if err := repo.MarkSent("missing-id"); !errors.Is(err, domain.ErrOutboxPublish) {
		t.Fatalf("expected ErrOutboxPublish for unknown id, got %v", err)
	}
}

func TestOutboxRepositoryIntegration_Stats(t *testing.T) {
	store := openPostgresStoreForIntegrationTest(t)
	repo := NewOutboxRepository(store)

	stats, err := repo.Stats()
	if err != nil {
		t.Fatalf("stats failed: %v", err)
	}
	if stats.PendingCount != 0 {
		t.Fatalf("expected empty outbox, got %d pending", stats.PendingCount)
	}

	if _, err := repo.Enqueue(domain.OutboxMessage{
		AggregateType: "checkout",
		AggregateID:   "sess-1",
		EventType:     domain.EventTypeOrderConfirmed,
	}); err != nil {
		t.Fatalf("enqueue failed: %v", err)
	}

	stats, err = repo.Stats()
	if err != nil {
		t.Fatalf("stats failed: %v", err)
	}
	if stats.PendingCount != 1 {
		t.Fatalf("expected 1 pending, got %d", stats.PendingCount)
	}
	if stats.OldestPendingAt.IsZero() {
		t.Fatal("expected the oldest pending timestamp to be set")
	}
}
