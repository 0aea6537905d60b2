package memory

import (
	"sync"
	"time"

	"github.com/vladislavdragonenkov/checkout/internal/domain"
)

// snapshotRecord хранит блоб и момент последней записи для вычистки устаревших ключей.
type snapshotRecord struct {
	blob      []byte
	updatedAt time.Time
}

// snapshotStoreInMemory — in-memory реализация порта персистентности снимков шагов.
type snapshotStoreInMemory struct {
	mu    sync.RWMutex
	now   func() time.Time
	items map[string]snapshotRecord
}

// NewSnapshotStore создаёт in-memory хранилище снимков.
func NewSnapshotStore() *snapshotStoreInMemory {
	return NewSnapshotStoreWithNow(time.Now)
}

// NewSnapshotStoreWithNow создаёт хранилище с инжектированными часами для тестов вычистки.
func NewSnapshotStoreWithNow(now func() time.Time) *snapshotStoreInMemory {
	if now == nil {
		now = time.Now
	}
	return &snapshotStoreInMemory{now: now, items: make(map[string]snapshotRecord)}
}

// Get возвращает копию блоба или ErrSnapshotNotFound.
func (s *snapshotStoreInMemory) Get(key string) ([]byte, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	record, ok := s.items[key]
	if !ok {
		return nil, domain.ErrSnapshotNotFound
	}
	return append([]byte(nil), record.blob...), nil
}

// Set атомарно перезаписывает блоб по ключу.
func (s *snapshotStoreInMemory) Set(key string, blob []byte) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.items[key] = snapshotRecord{
		blob:      append([]byte(nil), blob...),
		updatedAt: s.now().UTC(),
	}
	return nil
}

// Delete удаляет ключ; отсутствие ключа не считается ошибкой.
func (s *snapshotStoreInMemory) Delete(key string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	delete(s.items, key)
	return nil
}

// DeleteStale удаляет до limit ключей, не обновлявшихся с момента before.
func (s *snapshotStoreInMemory) DeleteStale(before time.Time, limit int) (int, error) {
	if before.IsZero() {
		before = s.now().UTC()
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	removed := 0
	for key, record := range s.items {
		if record.updatedAt.After(before) {
			continue
		}

		delete(s.items, key)
		removed++
		if limit > 0 && removed >= limit {
			break
		}
	}

	return removed, nil
}

// Len возвращает количество сохранённых ключей (используется в тестах).
func (s *snapshotStoreInMemory) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.items)
}

var (
	_ domain.SnapshotStore = (*snapshotStoreInMemory)(nil)
	_ domain.StaleSweeper  = (*snapshotStoreInMemory)(nil)
)
