package postgres

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/vladislavdragonenkov/checkout/internal/domain"
)

func TestSnapshotStoreIntegration_SetGetDelete(t *testing.T) {
	store := openPostgresStoreForIntegrationTest(t)
	snapshots := NewSnapshotStore(store)

	if _, err := snapshots.Get("sess:s1:cart"); !errors.Is(err, domain.ErrSnapshotNotFound) {
		t.Fatalf("expected ErrSnapshotNotFound, got %v", err)
	}

	if err := snapshots.Set("sess:s1:cart", []byte("first")); err != nil {
		t.Fatalf("set failed: %v", err)
	}
	// Повторная запись по ключу перезаписывает блоб целиком.
	if err := snapshots.Set("sess:s1:cart", []byte("second")); err != nil {
		t.Fatalf("overwrite failed: %v", err)
	}

	blob, err := snapshots.Get("sess:s1:cart")
	if err != nil {
		t.Fatalf("get failed: %v", err)
	}
	if string(blob) != "second" {
		t.Fatalf("expected second, got %s", blob)
	}

	if err := snapshots.Delete("sess:s1:cart"); err != nil {
		t.Fatalf("delete failed: %v", err)
	}
	if _, err := snapshots.Get("sess:s1:cart"); !errors.Is(err, domain.ErrSnapshotNotFound) {
		t.Fatalf("expected ErrSnapshotNotFound after delete, got %v", err)
	}

	// Удаление отсутствующего ключа не ошибка.
	if err := snapshots.Delete("sess:s1:cart"); err != nil {
		t.Fatalf("repeated delete must be a no-op: %v", err)
	}
}

func TestSnapshotStoreIntegration_DeleteStale(t *testing.T) {
	store := openPostgresStoreForIntegrationTest(t)
	snapshots := NewSnapshotStore(store)

	keys := []string{"sess:a:cart", "sess:b:cart", "sess:c:cart"}
	for _, key := range keys {
		if err := snapshots.Set(key, []byte("blob")); err != nil {
			t.Fatalf("set failed: %v", err)
		}
	}

	// Будущая граница покрывает все записи; limit режет выборку.
	cutoff := time.Now().UTC().Add(time.Hour)
	deleted, err := snapshots.DeleteStale(cutoff, 2)
	if err != nil {
		t.Fatalf("delete stale failed: %v", err)
	}
	if deleted != 2 {
		t.Fatalf("expected 2 deleted, got %d", deleted)
	}

	deleted, err = snapshots.DeleteStale(cutoff, 0)
	if err != nil {
		t.Fatalf("delete stale failed: %v", err)
	}
	if deleted != 1 {
		t.Fatalf("expected 1 deleted on the second pass, got %d", deleted)
	}

	// Граница в прошлом не трогает свежие записи.
	if err := snapshots.Set("sess:d:cart", []byte("blob")); err != nil {
		t.Fatalf("set failed: %v", err)
	}
	deleted, err = snapshots.DeleteStale(time.Now().UTC().Add(-time.Hour), 0)
	if err != nil {
		t.Fatalf("delete stale failed: %v", err)
	}
	if deleted != 0 {
		t.Fatalf("fresh snapshots must survive, deleted %d", deleted)
	}
}

func TestStoreIntegration_PingAndSchemaIdempotent(t *testing.T) {
	store := openPostgresStoreForIntegrationTest(t)

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := store.Ping(ctx); err != nil {
		t.Fatalf("ping failed: %v", err)
	}
	// DDL можно применять повторно без ошибок.
	if err := store.EnsureSchema(ctx); err != nil {
		t.Fatalf("repeated ensure schema failed: %v", err)
	}
}
