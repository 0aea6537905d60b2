// Пакет payment содержит симулированный авторизатор кредитных карт.
package payment

import (
	"sync"

	"github.com/shopspring/decimal"

	"github.com/vladislavdragonenkov/checkout/internal/domain"
)

// SimulatedAuthorizer — конфигурируемая заглушка CardAuthorizer.
// Реального платёжного шлюза у витрины нет, авторизация всегда локальна.
type SimulatedAuthorizer struct {
	mu     sync.Mutex
	Status domain.AuthorizationStatus
	Err    error

	Calls      int
	LastAmount decimal.Decimal
}

// NewSimulatedAuthorizer возвращает авторизатор с успешным сценарием по умолчанию.
func NewSimulatedAuthorizer() *SimulatedAuthorizer {
	return &SimulatedAuthorizer{Status: domain.AuthorizationApproved}
}

// Authorize возвращает заранее настроенный результат и считает вызовы.
func (a *SimulatedAuthorizer) Authorize(card domain.CardDetails, amount decimal.Decimal) (domain.AuthorizationStatus, error) {
	a.mu.Lock()
	defer a.mu.Unlock()

	a.Calls++
	a.LastAmount = amount
	return a.Status, a.Err
}

var _ domain.CardAuthorizer = (*SimulatedAuthorizer)(nil)
