// Пакет httpapi отдаёт мастер оформления наружу по HTTP. Каждая сессия
// получает собственную корзину и мастер; снимки шагов пишутся в общее
// хранилище под префиксом сессии.
package httpapi

import (
	"sync"
	"time"

	"github.com/google/uuid"
	log "github.com/sirupsen/logrus"

	"github.com/vladislavdragonenkov/checkout/internal/artifact"
	"github.com/vladislavdragonenkov/checkout/internal/checkout"
	"github.com/vladislavdragonenkov/checkout/internal/clock"
	"github.com/vladislavdragonenkov/checkout/internal/domain"
	"github.com/vladislavdragonenkov/checkout/internal/metrics"
	"github.com/vladislavdragonenkov/checkout/internal/pricing"
)

// prefixedStore пишет ключи сессии в общее хранилище под "sess:<id>:".
type prefixedStore struct {
	inner  domain.SnapshotStore
	prefix string
}

func newPrefixedStore(inner domain.SnapshotStore, sessionID string) *prefixedStore {
	return &prefixedStore{inner: inner, prefix: "sess:" + sessionID + ":"}
}

func (s *prefixedStore) Get(key string) ([]byte, error) {
	return s.inner.Get(s.prefix + key)
}

func (s *prefixedStore) Set(key string, blob []byte) error {
	return s.inner.Set(s.prefix+key, blob)
}

func (s *prefixedStore) Delete(key string) error {
	return s.inner.Delete(s.prefix + key)
}

var _ domain.SnapshotStore = (*prefixedStore)(nil)

// Session объединяет корзину и мастер одного покупателя.
type Session struct {
	ID     string
	Cart   *checkout.CartAggregator
	Wizard *checkout.Wizard
}

// SessionDeps — зависимости, общие для всех сессий.
type SessionDeps struct {
	Catalog    *domain.Catalog
	Pricing    *pricing.Engine
	Store      domain.SnapshotStore
	Artifacts  *artifact.Generator
	Authorizer domain.CardAuthorizer
	OrderNums  domain.OrderNumberGenerator
	Clock      clock.Clock
	Outbox     domain.OutboxRepository
	Timeline   domain.TimelineRepository
	Lookup     domain.AddressLookup
	Metrics    *metrics.CheckoutMetrics
	Logger     *log.Entry
}

// SessionManager создаёт и отслеживает живые сессии оформления.
// Сессии, к которым давно не обращались, вычищаются через DeleteStale.
type SessionManager struct {
	deps   SessionDeps
	logger *log.Entry

	mu       sync.RWMutex
	sessions map[string]*Session
	lastSeen map[string]time.Time
}

// NewSessionManager создаёт менеджер сессий.
func NewSessionManager(deps SessionDeps) *SessionManager {
	logger := deps.Logger
	if logger == nil {
		logger = log.WithField("component", "session-manager")
	}
	return &SessionManager{
		deps:     deps,
		logger:   logger,
		sessions: make(map[string]*Session),
		lastSeen: make(map[string]time.Time),
	}
}

// now берёт время у инжектированных часов сервиса.
func (m *SessionManager) now() time.Time {
	if m.deps.Clock != nil {
		return m.deps.Clock.Now()
	}
	return time.Now()
}

// Create регистрирует новую сессию с собственной корзиной и мастером.
func (m *SessionManager) Create() *Session {
	id := uuid.NewString()
	store := newPrefixedStore(m.deps.Store, id)
	logger := m.logger.WithField("session_id", id)

	cart := checkout.NewCartAggregator(m.deps.Catalog, store, logger.WithField("component", "cart"))
	wizard := checkout.NewWizard(checkout.Config{
		SessionID:  id,
		Cart:       cart,
		Catalog:    m.deps.Catalog,
		Pricing:    m.deps.Pricing,
		Store:      store,
		Artifacts:  m.deps.Artifacts,
		Authorizer: m.deps.Authorizer,
		OrderNums:  m.deps.OrderNums,
		Clock:      m.deps.Clock,
		Outbox:     m.deps.Outbox,
		Timeline:   m.deps.Timeline,
		Metrics:    m.deps.Metrics,
		Logger:     logger.WithField("component", "wizard"),
	})

	session := &Session{ID: id, Cart: cart, Wizard: wizard}

	m.mu.Lock()
	m.sessions[id] = session
	m.lastSeen[id] = m.now()
	m.mu.Unlock()

	if m.deps.Metrics != nil {
		m.deps.Metrics.RecordSessionStarted()
	}
	logger.Info("checkout session created")
	return session
}

// Get возвращает сессию по идентификатору или ErrSessionNotFound.
// Каждое обращение продлевает жизнь сессии для очистки по простою.
func (m *SessionManager) Get(id string) (*Session, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	session, ok := m.sessions[id]
	if !ok {
		return nil, domain.ErrSessionNotFound
	}
	m.lastSeen[id] = m.now()
	return session, nil
}

// Close завершает сессию: гасит отсчёты мастера и снимает её с учёта.
func (m *SessionManager) Close(id string) error {
	m.mu.Lock()
	session, ok := m.sessions[id]
	if ok {
		delete(m.sessions, id)
		delete(m.lastSeen, id)
	}
	m.mu.Unlock()

	if !ok {
		return domain.ErrSessionNotFound
	}

	session.Wizard.Close()
	if m.deps.Metrics != nil {
		m.deps.Metrics.RecordSessionFinished()
	}
	m.logger.WithField("session_id", id).Info("checkout session closed")
	return nil
}

// CloseAll завершает все живые сессии (используется при остановке сервиса).
func (m *SessionManager) CloseAll() {
	m.mu.Lock()
	sessions := make([]*Session, 0, len(m.sessions))
	for _, s := range m.sessions {
		sessions = append(sessions, s)
	}
	m.sessions = make(map[string]*Session)
	m.lastSeen = make(map[string]time.Time)
	m.mu.Unlock()

	for _, s := range sessions {
		s.Wizard.Close()
		if m.deps.Metrics != nil {
			m.deps.Metrics.RecordSessionFinished()
		}
	}
}

// DeleteStale завершает до limit сессий, к которым не обращались с момента before,
// вместе с их отсчётами; возвращает число закрытых сессий.
func (m *SessionManager) DeleteStale(before time.Time, limit int) (int, error) {
	m.mu.Lock()
	var stale []*Session
	for id, seen := range m.lastSeen {
		if limit > 0 && len(stale) >= limit {
			break
		}
		if seen.After(before) {
			continue
		}
		if s, ok := m.sessions[id]; ok {
			stale = append(stale, s)
		}
		delete(m.sessions, id)
		delete(m.lastSeen, id)
	}
	m.mu.Unlock()

	for _, s := range stale {
		s.Wizard.Close()
		if m.deps.Metrics != nil {
			m.deps.Metrics.RecordSessionFinished()
		}
		m.logger.WithField("session_id", s.ID).Info("idle checkout session evicted")
	}
	return len(stale), nil
}

// Len возвращает число живых сессий.
func (m *SessionManager) Len() int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return len(m.sessions)
}

var _ domain.StaleSweeper = (*SessionManager)(nil)
