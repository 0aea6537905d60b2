package domain

import (
	"context"
	"time"

	"github.com/shopspring/decimal"
)

// Ключи снимков порта персистентности; каждый шаг пишет свой ключ целиком и атомарно.
const (
	SnapshotKeyCart             = "cart"
	SnapshotKeyCustomerProfile  = "customerProfile"
	SnapshotKeyShippingAddress  = "shippingAddress"
	SnapshotKeyPaymentSelection = "paymentSelection"
)

// SnapshotStore — порт персистентности: чтение/запись непрозрачных блобов по логическому ключу.
// Несовместимый или повреждённый блоб трактуется читателем как отсутствующий.
type SnapshotStore interface {
	// Get возвращает сохранённый блоб или ErrSnapshotNotFound.
	Get(key string) ([]byte, error)
	// Set атомарно перезаписывает блоб по ключу (last-write-wins).
	Set(key string, blob []byte) error
	// Delete удаляет ключ; отсутствие ключа не считается ошибкой.
	Delete(key string) error
}

// StaleSweeper — опциональная способность хранилища вычищать давно не обновлявшиеся ключи.
type StaleSweeper interface {
	// DeleteStale удаляет до limit ключей, не записывавшихся с момента before; возвращает число удалённых.
	DeleteStale(before time.Time, limit int) (int, error)
}

// AddressLookup — внешний сервис резолва адреса по восьмизначному индексу.
// "Не найдено" (ErrCEPNotFound) и транспортный сбой (ErrCEPLookupUnavailable) — разные исходы,
// оба нефатальны: поля адреса остаются редактируемыми.
type AddressLookup interface {
	Lookup(ctx context.Context, cep string) (LookupResult, error)
}

// Clipboard — запись кода/штрихкода артефакта как плоского текста.
type Clipboard interface {
	Write(text string) error
}

// CardAuthorizer — синхронная симулированная авторизация кредитной карты.
type CardAuthorizer interface {
	Authorize(card CardDetails, amount decimal.Decimal) (AuthorizationStatus, error)
}

// OrderNumberGenerator выдаёт номер заказа; инжектируется, чтобы подтверждение было
// детерминированным под тестом.
type OrderNumberGenerator interface {
	Next() string
}

// Типы событий жизненного цикла, публикуемых через transactional outbox.
const (
	EventTypeOrderConfirmed = "checkout.order.confirmed"
	EventTypeOrderAbandoned = "checkout.order.abandoned"
)

// OutboxMessage хранит данные публикуемого события жизненного цикла оформления.
type OutboxMessage struct {
	ID            string
	AggregateType string
	AggregateID   string
	EventType     string
	Payload       []byte
}

// OutboxStats описывает текущее состояние backlog transactional outbox.
type OutboxStats struct {
	PendingCount    int
	OldestPendingAt time.Time
}

// OutboxRepository позволяет сохранять события для последующей публикации.
type OutboxRepository interface {
	Enqueue(msg OutboxMessage) (OutboxMessage, error)
	PullPending(limit int) ([]OutboxMessage, error)
	Stats() (OutboxStats, error)
	MarkSent(id string) error
	MarkFailed(id string) error
}

// OutboxPublisher публикует события из transactional outbox; должен быть идемпотентным.
type OutboxPublisher interface {
	Publish(event OutboxMessage) error
}

// TimelineEvent описывает событие в жизненном цикле сессии оформления.
type TimelineEvent struct {
	SessionID string
	Type      string
	Reason    string
	Occurred  time.Time
}

// TimelineRepository хранит события жизненного цикла оформления.
type TimelineRepository interface {
	Append(event TimelineEvent) error
	List(sessionID string) ([]TimelineEvent, error)
}
