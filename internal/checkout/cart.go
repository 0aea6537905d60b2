package checkout

import (
	"encoding/json"
	"errors"
	"sync"

	"github.com/shopspring/decimal"
	log "github.com/sirupsen/logrus"

	"github.com/vladislavdragonenkov/checkout/internal/domain"
)

// CartAggregator владеет живыми мутациями количества до входа в мастер.
// После BeginCheckout корзина блокируется, владение снимком переходит мастеру.
type CartAggregator struct {
	mu      sync.Mutex
	catalog *domain.Catalog
	store   domain.SnapshotStore
	logger  *log.Entry
	cart    domain.Cart
	locked  bool
}

// NewCartAggregator создаёт агрегатор и регидрирует корзину из снимка.
// Повреждённый снимок трактуется как отсутствующий.
func NewCartAggregator(catalog *domain.Catalog, store domain.SnapshotStore, logger *log.Entry) *CartAggregator {
	if logger == nil {
		logger = log.WithField("component", "cart")
	}
	a := &CartAggregator{catalog: catalog, store: store, logger: logger}

	blob, err := store.Get(domain.SnapshotKeyCart)
	if err != nil {
		if !errors.Is(err, domain.ErrSnapshotNotFound) {
			logger.WithError(err).Warn("failed to read cart snapshot")
		}
		return a
	}
	var cart domain.Cart
	if err := json.Unmarshal(blob, &cart); err != nil {
		logger.WithError(err).Warn("cart snapshot is unreadable, starting empty")
		return a
	}
	a.cart = cart
	return a
}

// AddOrUpdateQuantity меняет количество на delta, зажимая результат на нуле;
// нулевая строка вычищается. Каждая мутация заново персистит снимок корзины.
func (a *CartAggregator) AddOrUpdateQuantity(offeringID string, delta int) error {
	a.mu.Lock()
	defer a.mu.Unlock()

	if a.locked {
		return domain.ErrCartLocked
	}
	if _, err := a.catalog.Get(offeringID); err != nil {
		return err
	}

	qty := a.cart.Quantity(offeringID) + delta
	if qty < 0 {
		qty = 0
	}
	a.cart.SetQuantity(offeringID, qty)
	a.persist()
	return nil
}

// Subtotal возвращает сумму корзины; для пустой — ноль.
func (a *CartAggregator) Subtotal() (decimal.Decimal, error) {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.cart.Subtotal(a.catalog)
}

// Cart возвращает копию текущего состояния корзины.
func (a *CartAggregator) Cart() domain.Cart {
	a.mu.Lock()
	defer a.mu.Unlock()

	lines := make([]domain.CartLine, len(a.cart.Lines))
	copy(lines, a.cart.Lines)
	return domain.Cart{Lines: lines}
}

// ApplyCoupon принимает любой код. Реальной логики скидок у витрины нет:
// это заглушка-подтверждение, а не контракт. TODO: подключить сервис купонов,
// когда у бэк-офиса появится их справочник.
func (a *CartAggregator) ApplyCoupon(code string) bool {
	a.logger.WithField("coupon", code).Info("coupon accepted")
	return true
}

// Lock блокирует мутации корзины на время работы мастера.
func (a *CartAggregator) Lock() {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.locked = true
}

// Unlock возвращает корзину во владение агрегатора (возврат к выбору товаров).
func (a *CartAggregator) Unlock() {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.locked = false
}

// persist пишет снимок корзины целиком; вызывается под мьютексом.
func (a *CartAggregator) persist() {
	blob, err := json.Marshal(a.cart)
	if err != nil {
		a.logger.WithError(err).Error("failed to marshal cart snapshot")
		return
	}
	if err := a.store.Set(domain.SnapshotKeyCart, blob); err != nil {
		a.logger.WithError(err).Error("failed to persist cart snapshot")
	}
}
