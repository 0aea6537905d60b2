package postgres

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/vladislavdragonenkov/checkout/internal/domain"
)

type snapshotStore struct {
	db *sql.DB
}

// NewSnapshotStore создаёт PostgreSQL-реализацию порта персистентности снимков.
func NewSnapshotStore(store *Store) *snapshotStore {
	return &snapshotStore{db: store.DB()}
}

// Get возвращает сохранённый блоб или ErrSnapshotNotFound.
func (s *snapshotStore) Get(key string) ([]byte, error) {
	ctx, cancel := context.WithTimeout(context.Background(), opTimeout)
	defer cancel()

	var blob []byte
	err := s.db.QueryRowContext(ctx, `
		SELECT blob FROM checkout_snapshots WHERE key = $1
	`, key).Scan(&blob)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, domain.ErrSnapshotNotFound
		}
		return nil, fmt.Errorf("get snapshot: %w", err)
	}
	return blob, nil
}

// Set атомарно перезаписывает блоб по ключу (last-write-wins).
func (s *snapshotStore) Set(key string, blob []byte) error {
	ctx, cancel := context.WithTimeout(context.Background(), opTimeout)
	defer cancel()

	_, err := s.db.ExecContext(ctx, `
		INSERT INTO checkout_snapshots (key, blob, updated_at)
		VALUES ($1, $2, $3)
		ON CONFLICT (key) DO UPDATE
		SET blob = EXCLUDED.blob, updated_at = EXCLUDED.updated_at
	`, key, blob, time.Now().UTC())
	if err != nil {
		return fmt.Errorf("set snapshot: %w", err)
	}
	return nil
}

// Delete удаляет ключ; отсутствие ключа не считается ошибкой.
func (s *snapshotStore) Delete(key string) error {
	ctx, cancel := context.WithTimeout(context.Background(), opTimeout)
	defer cancel()

	if _, err := s.db.ExecContext(ctx, `
		DELETE FROM checkout_snapshots WHERE key = $1
	`, key); err != nil {
		return fmt.Errorf("delete snapshot: %w", err)
	}
	return nil
}

// DeleteStale удаляет до limit ключей, не обновлявшихся с момента before.
func (s *snapshotStore) DeleteStale(before time.Time, limit int) (int, error) {
	if before.IsZero() {
		before = time.Now().UTC()
	}

	ctx, cancel := context.WithTimeout(context.Background(), opTimeout)
	defer cancel()

	var (
		res sql.Result
		err error
	)

	if limit > 0 {
		res, err = s.db.ExecContext(ctx, `
			DELETE FROM checkout_snapshots
			WHERE key IN (
				SELECT key
				FROM checkout_snapshots
				WHERE updated_at <= $1
				ORDER BY updated_at ASC
				LIMIT $2
			)
		`, before, limit)
	} else {
		res, err = s.db.ExecContext(ctx, `
			DELETE FROM checkout_snapshots
			WHERE updated_at <= $1
		`, before)
	}
	if err != nil {
		return 0, fmt.Errorf("delete stale snapshots: %w", err)
	}

	affected, err := res.RowsAffected()
	if err != nil {
		return 0, fmt.Errorf("stale snapshots rows affected: %w", err)
	}

	return int(affected), nil
}

var (
	_ domain.SnapshotStore = (*snapshotStore)(nil)
	_ domain.StaleSweeper  = (*snapshotStore)(nil)
)
