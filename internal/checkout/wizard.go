// Пакет checkout реализует мастер оформления: линейную последовательность
// шагов с валидацией перед переходом вперёд, свободным возвратом назад и
// фиксацией данных каждого шага через порт персистентности.
package checkout

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/go-playground/validator/v10"
	log "github.com/sirupsen/logrus"

	"github.com/vladislavdragonenkov/checkout/internal/artifact"
	"github.com/vladislavdragonenkov/checkout/internal/clock"
	"github.com/vladislavdragonenkov/checkout/internal/domain"
	"github.com/vladislavdragonenkov/checkout/internal/metrics"
	"github.com/vladislavdragonenkov/checkout/internal/pricing"
)

// State — состояние мастера оформления.
type State string

const (
	StateSelectingProducts    State = "selecting_products"
	StateEnteringCustomerData State = "entering_customer_data"
	StateEnteringAddress      State = "entering_address"
	StateSelectingPayment     State = "selecting_payment"
	StateCreditImmediate      State = "credit_immediate"
	StateBoletoPending        State = "boleto_pending"
	StatePixPending           State = "pix_pending"
	// StateConfirmed терминально: здесь синтезируется Order.
	StateConfirmed State = "confirmed"
	// StateAbandoned терминально: достигается только просрочкой boleto.
	StateAbandoned State = "abandoned"
)

// stepRank задаёт порядок шагов; возврат разрешён только к более раннему шагу.
var stepRank = map[State]int{
	StateSelectingProducts:    0,
	StateEnteringCustomerData: 1,
	StateEnteringAddress:      2,
	StateSelectingPayment:     3,
	StateCreditImmediate:      4,
	StateBoletoPending:        4,
	StatePixPending:           4,
}

// Типы событий timeline оформления.
const (
	timelineEventStateChanged    = "StateChanged"
	timelineEventArtifactIssued  = "ArtifactIssued"
	timelineEventArtifactExpired = "ArtifactExpired"
	timelineEventPixRegenerated  = "PixRegenerated"
	timelineEventOrderConfirmed  = "OrderConfirmed"
	timelineEventOrderAbandoned  = "OrderAbandoned"
)

// Config собирает зависимости мастера; Metrics, Outbox и Timeline опциональны.
type Config struct {
	SessionID  string
	Cart       *CartAggregator
	Catalog    *domain.Catalog
	Pricing    *pricing.Engine
	Store      domain.SnapshotStore
	Artifacts  *artifact.Generator
	Authorizer domain.CardAuthorizer
	OrderNums  domain.OrderNumberGenerator
	Clock      clock.Clock
	Outbox     domain.OutboxRepository
	Timeline   domain.TimelineRepository
	Metrics    *metrics.CheckoutMetrics
	Logger     *log.Entry
}

// Wizard — машина состояний одного оформления. Все операции сериализуются
// внутренним мьютексом: два шага никогда не находятся "в полёте" одновременно.
type Wizard struct {
	cfg      Config
	logger   *log.Entry
	validate *validator.Validate

	mu        sync.Mutex
	state     State
	startedAt time.Time

	boleto         *artifact.Boleto
	pix            *artifact.Pix
	cancelArtifact context.CancelFunc

	order *domain.Order
}

// NewWizard создаёт мастер в состоянии выбора товаров.
func NewWizard(cfg Config) *Wizard {
	logger := cfg.Logger
	if logger == nil {
		logger = log.WithField("component", "wizard")
	}
	logger = logger.WithField("session_id", cfg.SessionID)
	return &Wizard{
		cfg:      cfg,
		logger:   logger,
		validate: newValidator(),
		state:    StateSelectingProducts,
	}
}

// State возвращает текущее состояние мастера.
func (w *Wizard) State() State {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.state
}

// BeginCheckout блокирует корзину и входит в шаг данных покупателя.
// Пустая корзина переход не проходит.
func (w *Wizard) BeginCheckout() error {
	w.mu.Lock()
	defer w.mu.Unlock()

	if w.state != StateSelectingProducts {
		return domain.ErrInvalidTransition
	}
	if w.cfg.Cart.Cart().Empty() {
		return domain.ErrCartEmpty
	}
	w.cfg.Cart.Lock()
	w.startedAt = w.cfg.Clock.Now()
	if w.cfg.Metrics != nil {
		w.cfg.Metrics.RecordCheckoutStarted()
	}
	w.setState(StateEnteringCustomerData, "")
	return nil
}

// SubmitCustomer валидирует и фиксирует шаг "Seus dados".
// При отказе состояние не меняется, возвращаются ошибки полей.
func (w *Wizard) SubmitCustomer(profile domain.CustomerProfile) error {
	w.mu.Lock()
	defer w.mu.Unlock()

	if w.state != StateEnteringCustomerData {
		return domain.ErrInvalidTransition
	}
	if ve := validateCustomer(w.validate, &profile); ve != nil {
		w.rejectStep("customer", ve)
		return ve
	}
	if err := w.persist(domain.SnapshotKeyCustomerProfile, &profile); err != nil {
		return err
	}
	w.setState(StateEnteringAddress, "")
	return nil
}

// SubmitAddress валидирует и фиксирует шаг "Endereço de entrega".
func (w *Wizard) SubmitAddress(address domain.ShippingAddress) error {
	w.mu.Lock()
	defer w.mu.Unlock()

	if w.state != StateEnteringAddress {
		return domain.ErrInvalidTransition
	}
	if _, ok := w.loadCustomer(); !ok {
		return domain.ErrStepNotCompleted
	}
	if ve := validateAddress(w.validate, &address); ve != nil {
		w.rejectStep("address", ve)
		return ve
	}
	if err := w.persist(domain.SnapshotKeyShippingAddress, &address); err != nil {
		return err
	}
	w.setState(StateSelectingPayment, "")
	return nil
}

// SelectPayment фиксирует выбор метода и ведёт мастер дальше: кредитная карта
// авторизуется синхронно и сразу подтверждает заказ, boleto и pix выпускают
// артефакт и переходят в состояние ожидания оплаты.
func (w *Wizard) SelectPayment(sel domain.PaymentSelection) (State, error) {
	w.mu.Lock()
	defer w.mu.Unlock()

	if w.state != StateSelectingPayment {
		return w.state, domain.ErrInvalidTransition
	}
	if _, ok := w.loadAddress(); !ok {
		return w.state, domain.ErrStepNotCompleted
	}
	if sel.Method != domain.MethodCredit {
		// Для boleto и pix payload карты отсутствует.
		sel.Card = nil
	}
	if ve := validateSelection(w.validate, &sel); ve != nil {
		w.rejectStep("payment", ve)
		return w.state, ve
	}
	if err := w.persist(domain.SnapshotKeyPaymentSelection, &sel); err != nil {
		return w.state, err
	}

	switch sel.Method {
	case domain.MethodCredit:
		quote, err := w.quote(sel.Method)
		if err != nil {
			return w.state, err
		}
		status, err := w.cfg.Authorizer.Authorize(*sel.Card, quote.Total)
		if err != nil {
			w.logger.WithError(err).Warn("card authorization failed")
			return w.state, err
		}
		if status != domain.AuthorizationApproved {
			return w.state, domain.ErrCardDeclined
		}
		w.setState(StateCreditImmediate, "")
		return w.confirm(sel)
	case domain.MethodBoleto:
		w.boleto = w.cfg.Artifacts.IssueBoleto(w.onBoletoExpired)
		w.startArtifact(w.boleto)
		w.recordArtifactIssued(domain.MethodBoleto)
		w.setState(StateBoletoPending, "")
		return w.state, nil
	default:
		w.pix = w.cfg.Artifacts.IssuePix(w.onPixExpired)
		w.startArtifact(w.pix)
		w.recordArtifactIssued(domain.MethodPix)
		w.setState(StatePixPending, "")
		return w.state, nil
	}
}

// MarkPaid — явное действие "оплату подтвердил". Доступно, пока артефакт жив;
// после просрочки возвращает метод-специфичную ошибку.
func (w *Wizard) MarkPaid() (State, error) {
	w.mu.Lock()
	defer w.mu.Unlock()

	switch w.state {
	case StateBoletoPending:
		if err := w.boleto.MarkPaid(); err != nil {
			return w.state, err
		}
	case StatePixPending:
		if err := w.pix.MarkPaid(); err != nil {
			return w.state, err
		}
	default:
		return w.state, domain.ErrInvalidTransition
	}

	sel, ok := w.loadSelection()
	if !ok {
		return w.state, domain.ErrStepNotCompleted
	}
	w.closeArtifacts()
	return w.confirm(sel)
}

// RegeneratePix выпускает свежий код и перезапускает отсчёт; допустимо только из PixPending.
func (w *Wizard) RegeneratePix() error {
	w.mu.Lock()
	defer w.mu.Unlock()

	if w.state != StatePixPending {
		return domain.ErrInvalidTransition
	}
	if err := w.pix.Regenerate(); err != nil {
		return err
	}
	if w.cfg.Metrics != nil {
		w.cfg.Metrics.RecordPixRegenerated()
	}
	w.appendTimeline(timelineEventPixRegenerated, "")
	w.logger.Info("pix code regenerated")
	return nil
}

// Back возвращает мастер к более раннему шагу ввода. Зафиксированные снимки
// не стираются; отсчёт незавершённого артефакта отменяется при выходе.
func (w *Wizard) Back(to State) error {
	w.mu.Lock()
	defer w.mu.Unlock()

	if w.state == StateConfirmed || w.state == StateAbandoned {
		return domain.ErrInvalidTransition
	}
	targetRank, ok := stepRank[to]
	if !ok || targetRank > 3 || targetRank >= stepRank[w.state] {
		return domain.ErrInvalidTransition
	}

	w.closeArtifacts()
	if to == StateSelectingProducts {
		w.cfg.Cart.Unlock()
	}
	w.setState(to, "back")
	return nil
}

// Order возвращает синтезированный заказ после подтверждения.
func (w *Wizard) Order() (domain.Order, error) {
	w.mu.Lock()
	defer w.mu.Unlock()

	if w.state != StateConfirmed || w.order == nil {
		return domain.Order{}, domain.ErrOrderNotReady
	}
	return *w.order, nil
}

// Boleto возвращает текущий артефакт слипа (nil вне BoletoPending).
func (w *Wizard) Boleto() *artifact.Boleto {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.boleto
}

// Pix возвращает текущий артефакт перевода (nil вне PixPending).
func (w *Wizard) Pix() *artifact.Pix {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.pix
}

// CustomerProfile регидрирует снимок шага данных покупателя.
func (w *Wizard) CustomerProfile() (domain.CustomerProfile, bool) {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.loadCustomer()
}

// ShippingAddress регидрирует снимок шага адреса.
func (w *Wizard) ShippingAddress() (domain.ShippingAddress, bool) {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.loadAddress()
}

// PaymentSelection регидрирует снимок шага оплаты.
func (w *Wizard) PaymentSelection() (domain.PaymentSelection, bool) {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.loadSelection()
}

// Close останавливает отсчёты и завершает сессию мастера.
func (w *Wizard) Close() {
	w.mu.Lock()
	defer w.mu.Unlock()
	w.closeArtifacts()
}

// confirm синтезирует заказ, переводит мастер в Confirmed и публикует событие.
// Вызывается под мьютексом.
func (w *Wizard) confirm(sel domain.PaymentSelection) (State, error) {
	quote, err := w.quote(sel.Method)
	if err != nil {
		return w.state, err
	}
	customer, ok := w.loadCustomer()
	if !ok {
		return w.state, domain.ErrStepNotCompleted
	}
	address, ok := w.loadAddress()
	if !ok {
		return w.state, domain.ErrStepNotCompleted
	}

	now := w.cfg.Clock.Now()
	order := domain.Order{
		Number:      w.cfg.OrderNums.Next(),
		Cart:        w.cfg.Cart.Cart(),
		Customer:    customer,
		Address:     address,
		Payment:     sel,
		Total:       quote.Total,
		Delivery:    domain.EstimateDelivery(now),
		ConfirmedAt: now,
	}
	w.order = &order
	w.setState(StateConfirmed, "")
	w.appendTimeline(timelineEventOrderConfirmed, "")
	w.emitEvent(domain.EventTypeOrderConfirmed, map[string]any{
		"order_number": order.Number,
		"method":       string(sel.Method),
		"total":        order.Total.StringFixed(2),
		"ts":           now.UTC().Format(time.RFC3339Nano),
	})
	if w.cfg.Metrics != nil {
		w.cfg.Metrics.RecordCheckoutConfirmed(string(sel.Method))
		if !w.startedAt.IsZero() {
			w.cfg.Metrics.RecordCheckoutDuration(now.Sub(w.startedAt))
		}
	}
	w.logger.WithField("order_number", order.Number).Info("checkout confirmed")
	return w.state, nil
}

// onBoletoExpired вызывается артефактом ровно один раз при просрочке слипа.
// Просрочка boleto фатальна: заказ бросается без пути восстановления.
func (w *Wizard) onBoletoExpired() {
	w.mu.Lock()
	defer w.mu.Unlock()

	w.recordArtifactExpired(domain.MethodBoleto)
	if w.state != StateBoletoPending {
		return
	}
	w.closeArtifacts()
	w.setState(StateAbandoned, "boleto expired")
	w.appendTimeline(timelineEventOrderAbandoned, "boleto expired")
	w.emitEvent(domain.EventTypeOrderAbandoned, map[string]any{
		"reason": "boleto expired",
		"ts":     w.cfg.Clock.Now().UTC().Format(time.RFC3339Nano),
	})
	if w.cfg.Metrics != nil {
		w.cfg.Metrics.RecordCheckoutAbandoned()
		if !w.startedAt.IsZero() {
			w.cfg.Metrics.RecordCheckoutDuration(w.cfg.Clock.Now().Sub(w.startedAt))
		}
	}
	w.logger.Warn("checkout abandoned: boleto expired")
}

// onPixExpired помечает просрочку кода; заказ не бросается, доступна перегенерация.
func (w *Wizard) onPixExpired() {
	w.recordArtifactExpired(domain.MethodPix)
	w.appendTimeline(timelineEventArtifactExpired, "pix expired")
	w.logger.Info("pix code expired, regeneration available")
}

// quote фиксирует суммы корзины под метод; вызывается под мьютексом.
func (w *Wizard) quote(method domain.PaymentMethod) (pricing.Quote, error) {
	cart := w.cfg.Cart.Cart()
	return w.cfg.Pricing.QuoteFor(&cart, method)
}

// countdown — артефакт, ведущий посекундный отсчёт до отмены ctx.
type countdown interface {
	Run(ctx context.Context)
}

// startArtifact запускает отсчёт артефакта с гарантированной отменой на выходе.
// Артефакт передаётся значением: поле мастера к моменту старта горутины может
// быть уже сброшено другим переходом.
func (w *Wizard) startArtifact(c countdown) {
	ctx, cancel := context.WithCancel(context.Background())
	w.cancelArtifact = cancel
	go c.Run(ctx)
}

// closeArtifacts отменяет отсчёты и закрывает артефакты на любом пути выхода
// из состояния ожидания оплаты. Вызывается под мьютексом.
func (w *Wizard) closeArtifacts() {
	if w.cancelArtifact != nil {
		w.cancelArtifact()
		w.cancelArtifact = nil
	}
	if w.boleto != nil {
		w.boleto.Close()
		w.boleto = nil
	}
	if w.pix != nil {
		w.pix.Close()
		w.pix = nil
	}
}

// setState меняет состояние и пишет событие в timeline; вызывается под мьютексом.
func (w *Wizard) setState(next State, reason string) {
	prev := w.state
	w.state = next
	w.appendTimeline(timelineEventStateChanged, reason)
	w.logger.WithFields(log.Fields{
		"from": prev,
		"to":   next,
	}).Debug("wizard state changed")
}

// rejectStep фиксирует отказ перехода в метриках и логе; состояние не меняется.
func (w *Wizard) rejectStep(step string, ve *domain.ValidationErrors) {
	if w.cfg.Metrics != nil {
		w.cfg.Metrics.RecordStepRejected(step)
	}
	w.logger.WithFields(log.Fields{
		"step":   step,
		"fields": len(ve.Fields),
	}).Info("step transition refused")
}

// persist атомарно пишет снимок шага целиком.
func (w *Wizard) persist(key string, v any) error {
	blob, err := json.Marshal(v)
	if err != nil {
		return fmt.Errorf("marshal %s snapshot: %w", key, err)
	}
	if err := w.cfg.Store.Set(key, blob); err != nil {
		return fmt.Errorf("persist %s snapshot: %w", key, err)
	}
	return nil
}

// load читает снимок шага; повреждённый или несовместимый блоб трактуется как отсутствующий.
func (w *Wizard) load(key string, v any) bool {
	blob, err := w.cfg.Store.Get(key)
	if err != nil {
		if !errors.Is(err, domain.ErrSnapshotNotFound) {
			w.logger.WithError(err).WithField("key", key).Warn("failed to read step snapshot")
		}
		return false
	}
	if err := json.Unmarshal(blob, v); err != nil {
		w.logger.WithError(err).WithField("key", key).Warn("step snapshot is unreadable, treating as absent")
		return false
	}
	return true
}

func (w *Wizard) loadCustomer() (domain.CustomerProfile, bool) {
	var p domain.CustomerProfile
	ok := w.load(domain.SnapshotKeyCustomerProfile, &p)
	return p, ok
}

func (w *Wizard) loadAddress() (domain.ShippingAddress, bool) {
	var a domain.ShippingAddress
	ok := w.load(domain.SnapshotKeyShippingAddress, &a)
	return a, ok
}

func (w *Wizard) loadSelection() (domain.PaymentSelection, bool) {
	var s domain.PaymentSelection
	ok := w.load(domain.SnapshotKeyPaymentSelection, &s)
	return s, ok
}

// appendTimeline добавляет событие жизненного цикла сессии.
func (w *Wizard) appendTimeline(eventType, reason string) {
	if w.cfg.Timeline == nil {
		return
	}
	event := domain.TimelineEvent{
		SessionID: w.cfg.SessionID,
		Type:      eventType,
		Reason:    reason,
		Occurred:  w.cfg.Clock.Now().UTC(),
	}
	if err := w.cfg.Timeline.Append(event); err != nil {
		w.logger.WithError(err).WithField("event", eventType).Warn("append timeline event failed")
	}
}

// emitEvent кладёт событие в outbox для последующей публикации воркером.
func (w *Wizard) emitEvent(eventType string, payload map[string]any) {
	if w.cfg.Outbox == nil {
		return
	}
	payload["session_id"] = w.cfg.SessionID
	data, err := json.Marshal(payload)
	if err != nil {
		w.logger.WithError(err).WithField("event", eventType).Error("marshal event failed")
		return
	}
	msg := domain.OutboxMessage{
		AggregateType: "checkout",
		AggregateID:   w.cfg.SessionID,
		EventType:     eventType,
		Payload:       data,
	}
	if _, err := w.cfg.Outbox.Enqueue(msg); err != nil {
		w.logger.WithError(err).WithField("event", eventType).Error("enqueue event failed")
	}
}

// recordArtifactIssued пишет метрику и timeline-событие выпуска артефакта.
func (w *Wizard) recordArtifactIssued(method domain.PaymentMethod) {
	if w.cfg.Metrics != nil {
		w.cfg.Metrics.RecordArtifactIssued(string(method))
	}
	w.appendTimeline(timelineEventArtifactIssued, string(method))
}

// recordArtifactExpired пишет метрику просрочки артефакта.
func (w *Wizard) recordArtifactExpired(method domain.PaymentMethod) {
	if w.cfg.Metrics != nil {
		w.cfg.Metrics.RecordArtifactExpired(string(method))
	}
}
