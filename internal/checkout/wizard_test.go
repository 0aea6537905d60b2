package checkout

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/shopspring/decimal"

	"github.com/vladislavdragonenkov/checkout/internal/artifact"
	"github.com/vladislavdragonenkov/checkout/internal/clock"
	"github.com/vladislavdragonenkov/checkout/internal/domain"
	"github.com/vladislavdragonenkov/checkout/internal/pricing"
	"github.com/vladislavdragonenkov/checkout/internal/storage/memory"
)

type nopClipboard struct{}

func (nopClipboard) Write(string) error { return nil }

type stubAuthorizer struct {
	status domain.AuthorizationStatus
	err    error
	calls  int
}

func (s *stubAuthorizer) Authorize(_ domain.CardDetails, _ decimal.Decimal) (domain.AuthorizationStatus, error) {
	s.calls++
	if s.err != nil {
		return "", s.err
	}
	return s.status, nil
}

var _ domain.CardAuthorizer = (*stubAuthorizer)(nil)

type outboxLog interface {
	domain.OutboxRepository
	AllPending() []domain.OutboxMessage
}

type wizardEnv struct {
	clk      *clock.Manual
	store    domain.SnapshotStore
	cart     *CartAggregator
	auth     *stubAuthorizer
	outbox   outboxLog
	timeline domain.TimelineRepository
	wiz      *Wizard
}

func newWizardEnv(t *testing.T) *wizardEnv {
	t.Helper()

	clk := clock.NewManual(time.Date(2024, 5, 1, 10, 0, 0, 0, time.UTC))
	catalog := domain.DefaultCatalog()
	store := memory.NewSnapshotStore()
	cart := NewCartAggregator(catalog, store, nil)
	auth := &stubAuthorizer{status: domain.AuthorizationApproved}
	outbox := memory.NewOutboxRepository()
	timeline := memory.NewTimelineRepository()

	wiz := NewWizard(Config{
		SessionID:  "sess-test",
		Cart:       cart,
		Catalog:    catalog,
		Pricing:    pricing.NewEngine(catalog),
		Store:      store,
		Artifacts:  artifact.NewGenerator(clk, nopClipboard{}, nil),
		Authorizer: auth,
		OrderNums:  NewRandomOrderNumbers(1),
		Clock:      clk,
		Outbox:     outbox,
		Timeline:   timeline,
	})
	t.Cleanup(wiz.Close)

	return &wizardEnv{
		clk:      clk,
		store:    store,
		cart:     cart,
		auth:     auth,
		outbox:   outbox,
		timeline: timeline,
		wiz:      wiz,
	}
}

// advanceToPayment проводит мастер до шага выбора оплаты.
func (e *wizardEnv) advanceToPayment(t *testing.T) {
	t.Helper()
	if err := e.cart.AddOrUpdateQuantity("smart-plus", 1); err != nil {
		t.Fatalf("add to cart failed: %v", err)
	}
	if err := e.wiz.BeginCheckout(); err != nil {
		t.Fatalf("begin failed: %v", err)
	}
	if err := e.wiz.SubmitCustomer(validCustomer()); err != nil {
		t.Fatalf("submit customer failed: %v", err)
	}
	if err := e.wiz.SubmitAddress(validAddress()); err != nil {
		t.Fatalf("submit address failed: %v", err)
	}
	if got := e.wiz.State(); got != StateSelectingPayment {
		t.Fatalf("expected selecting_payment, got %s", got)
	}
}

func (e *wizardEnv) pendingEventTypes() []string {
	var out []string
	for _, msg := range e.outbox.AllPending() {
		out = append(out, msg.EventType)
	}
	return out
}

func hasEvent(types []string, want string) bool {
	for _, t := range types {
		if t == want {
			return true
		}
	}
	return false
}

func TestWizard_BeginRequiresItems(t *testing.T) {
	t.Parallel()

	env := newWizardEnv(t)

	if err := env.wiz.BeginCheckout(); !errors.Is(err, domain.ErrCartEmpty) {
		t.Fatalf("expected ErrCartEmpty, got %v", err)
	}
	if got := env.wiz.State(); got != StateSelectingProducts {
		t.Fatalf("refused begin must not advance, got %s", got)
	}

	if err := env.cart.AddOrUpdateQuantity("smart-plus", 1); err != nil {
		t.Fatalf("add failed: %v", err)
	}
	if err := env.wiz.BeginCheckout(); err != nil {
		t.Fatalf("begin failed: %v", err)
	}

	// Корзина заблокирована на всё время работы мастера.
	if err := env.cart.AddOrUpdateQuantity("smart-plus", 1); !errors.Is(err, domain.ErrCartLocked) {
		t.Fatalf("expected ErrCartLocked, got %v", err)
	}
	if err := env.wiz.BeginCheckout(); !errors.Is(err, domain.ErrInvalidTransition) {
		t.Fatalf("expected ErrInvalidTransition on repeated begin, got %v", err)
	}
}

func TestWizard_StepOrderEnforced(t *testing.T) {
	t.Parallel()

	env := newWizardEnv(t)
	if err := env.cart.AddOrUpdateQuantity("smart-base", 1); err != nil {
		t.Fatalf("add failed: %v", err)
	}
	if err := env.wiz.BeginCheckout(); err != nil {
		t.Fatalf("begin failed: %v", err)
	}

	if err := env.wiz.SubmitAddress(validAddress()); !errors.Is(err, domain.ErrInvalidTransition) {
		t.Fatalf("address before customer must be refused, got %v", err)
	}
	if _, err := env.wiz.SelectPayment(domain.PaymentSelection{Method: domain.MethodPix}); !errors.Is(err, domain.ErrInvalidTransition) {
		t.Fatalf("payment before address must be refused, got %v", err)
	}

	if err := env.wiz.SubmitCustomer(validCustomer()); err != nil {
		t.Fatalf("submit customer failed: %v", err)
	}

	// Пропавший снимок предыдущего шага блокирует фиксацию текущего.
	if err := env.store.Delete(domain.SnapshotKeyCustomerProfile); err != nil {
		t.Fatalf("delete snapshot failed: %v", err)
	}
	if err := env.wiz.SubmitAddress(validAddress()); !errors.Is(err, domain.ErrStepNotCompleted) {
		t.Fatalf("expected ErrStepNotCompleted, got %v", err)
	}
}

func TestWizard_ValidationKeepsState(t *testing.T) {
	t.Parallel()

	env := newWizardEnv(t)
	if err := env.cart.AddOrUpdateQuantity("smart-plus", 1); err != nil {
		t.Fatalf("add failed: %v", err)
	}
	if err := env.wiz.BeginCheckout(); err != nil {
		t.Fatalf("begin failed: %v", err)
	}

	bad := validCustomer()
	bad.Email = "not-an-email"
	err := env.wiz.SubmitCustomer(bad)
	if !domain.IsValidation(err) {
		t.Fatalf("expected validation errors, got %v", err)
	}
	if got := env.wiz.State(); got != StateEnteringCustomerData {
		t.Fatalf("refused submit must not advance, got %s", got)
	}
	if _, ok := env.wiz.CustomerProfile(); ok {
		t.Fatal("refused submit must not persist a snapshot")
	}
}

func TestWizard_CreditFlowConfirms(t *testing.T) {
	t.Parallel()

	env := newWizardEnv(t)
	env.advanceToPayment(t)

	state, err := env.wiz.SelectPayment(validCreditSelection())
	if err != nil {
		t.Fatalf("select payment failed: %v", err)
	}
	if state != StateConfirmed {
		t.Fatalf("expected confirmed, got %s", state)
	}
	if env.auth.calls != 1 {
		t.Fatalf("expected one authorization call, got %d", env.auth.calls)
	}

	order, err := env.wiz.Order()
	if err != nil {
		t.Fatalf("order failed: %v", err)
	}
	if !orderNumberPattern.MatchString(order.Number) {
		t.Fatalf("unexpected order number %q", order.Number)
	}
	if got := order.Total.StringFixed(2); got != "697.00" {
		t.Fatalf("credit pays full price, expected 697.00, got %s", got)
	}
	if want := env.clk.Now().AddDate(0, 0, 7); !order.Delivery.From.Equal(want) {
		t.Fatalf("expected delivery from %s, got %s", want, order.Delivery.From)
	}
	if want := env.clk.Now().AddDate(0, 0, 15); !order.Delivery.To.Equal(want) {
		t.Fatalf("expected delivery to %s, got %s", want, order.Delivery.To)
	}
	if order.Cart.Quantity("smart-plus") != 1 {
		t.Fatal("order must carry the cart snapshot")
	}

	if !hasEvent(env.pendingEventTypes(), "checkout.order.confirmed") {
		t.Fatalf("expected confirmed event in outbox, got %v", env.pendingEventTypes())
	}
}

func TestWizard_CardDeclinedKeepsState(t *testing.T) {
	t.Parallel()

	env := newWizardEnv(t)
	env.advanceToPayment(t)

	env.auth.status = domain.AuthorizationDeclined
	if _, err := env.wiz.SelectPayment(validCreditSelection()); !errors.Is(err, domain.ErrCardDeclined) {
		t.Fatalf("expected ErrCardDeclined, got %v", err)
	}
	if got := env.wiz.State(); got != StateSelectingPayment {
		t.Fatalf("declined card must keep selecting_payment, got %s", got)
	}

	// Повторная попытка после смены исхода авторизации проходит.
	env.auth.status = domain.AuthorizationApproved
	state, err := env.wiz.SelectPayment(validCreditSelection())
	if err != nil {
		t.Fatalf("retry failed: %v", err)
	}
	if state != StateConfirmed {
		t.Fatalf("expected confirmed, got %s", state)
	}
}

func TestWizard_AuthorizerErrorKeepsState(t *testing.T) {
	t.Parallel()

	env := newWizardEnv(t)
	env.advanceToPayment(t)

	env.auth.err = errors.New("gateway down")
	if _, err := env.wiz.SelectPayment(validCreditSelection()); err == nil {
		t.Fatal("expected authorizer error")
	}
	if got := env.wiz.State(); got != StateSelectingPayment {
		t.Fatalf("authorizer failure must keep selecting_payment, got %s", got)
	}
}

func TestWizard_BoletoPaidConfirms(t *testing.T) {
	t.Parallel()

	env := newWizardEnv(t)
	env.advanceToPayment(t)

	state, err := env.wiz.SelectPayment(domain.PaymentSelection{Method: domain.MethodBoleto})
	if err != nil {
		t.Fatalf("select boleto failed: %v", err)
	}
	if state != StateBoletoPending {
		t.Fatalf("expected boleto_pending, got %s", state)
	}
	b := env.wiz.Boleto()
	if b == nil {
		t.Fatal("expected a live boleto artifact")
	}

	drainTicks(b, 120)
	if _, err := env.wiz.MarkPaid(); err != nil {
		t.Fatalf("mark paid failed: %v", err)
	}
	if got := env.wiz.State(); got != StateConfirmed {
		t.Fatalf("expected confirmed, got %s", got)
	}
	if env.wiz.Boleto() != nil {
		t.Fatal("artifact must be released after confirmation")
	}

	order, err := env.wiz.Order()
	if err != nil {
		t.Fatalf("order failed: %v", err)
	}
	if got := order.Total.StringFixed(2); got != "697.00" {
		t.Fatalf("boleto pays full price, expected 697.00, got %s", got)
	}
}

func TestWizard_BoletoExpiryAbandons(t *testing.T) {
	t.Parallel()

	env := newWizardEnv(t)
	env.advanceToPayment(t)

	if _, err := env.wiz.SelectPayment(domain.PaymentSelection{Method: domain.MethodBoleto}); err != nil {
		t.Fatalf("select boleto failed: %v", err)
	}
	b := env.wiz.Boleto()

	drainTicks(b, artifact.BoletoTTLSeconds)
	if got := env.wiz.State(); got != StateAbandoned {
		t.Fatalf("expected abandoned after boleto expiry, got %s", got)
	}
	if !hasEvent(env.pendingEventTypes(), "checkout.order.abandoned") {
		t.Fatalf("expected abandoned event in outbox, got %v", env.pendingEventTypes())
	}

	// Брошенное оформление терминально.
	if _, err := env.wiz.MarkPaid(); !errors.Is(err, domain.ErrInvalidTransition) {
		t.Fatalf("expected ErrInvalidTransition, got %v", err)
	}
	if err := env.wiz.Back(StateSelectingProducts); !errors.Is(err, domain.ErrInvalidTransition) {
		t.Fatalf("expected ErrInvalidTransition, got %v", err)
	}
	if _, err := env.wiz.Order(); !errors.Is(err, domain.ErrOrderNotReady) {
		t.Fatalf("expected ErrOrderNotReady, got %v", err)
	}
}

func TestWizard_PixExpiryAllowsRegenerate(t *testing.T) {
	t.Parallel()

	env := newWizardEnv(t)
	env.advanceToPayment(t)

	state, err := env.wiz.SelectPayment(domain.PaymentSelection{Method: domain.MethodPix})
	if err != nil {
		t.Fatalf("select pix failed: %v", err)
	}
	if state != StatePixPending {
		t.Fatalf("expected pix_pending, got %s", state)
	}
	p := env.wiz.Pix()
	if p == nil {
		t.Fatal("expected a live pix artifact")
	}

	drainTicks(p, artifact.PixTTLSeconds)
	if got := env.wiz.State(); got != StatePixPending {
		t.Fatalf("pix expiry must not abandon, got %s", got)
	}
	if _, err := env.wiz.MarkPaid(); !errors.Is(err, domain.ErrPixExpired) {
		t.Fatalf("expected ErrPixExpired, got %v", err)
	}

	if err := env.wiz.RegeneratePix(); err != nil {
		t.Fatalf("regenerate failed: %v", err)
	}
	if _, err := env.wiz.MarkPaid(); err != nil {
		t.Fatalf("mark paid after regenerate failed: %v", err)
	}

	order, err := env.wiz.Order()
	if err != nil {
		t.Fatalf("order failed: %v", err)
	}
	if got := order.Total.StringFixed(2); got != "662.15" {
		t.Fatalf("pix total must carry the 5%% discount, got %s", got)
	}
}

func TestWizard_BackPreservesSnapshots(t *testing.T) {
	t.Parallel()

	env := newWizardEnv(t)
	env.advanceToPayment(t)

	if err := env.wiz.Back(StateEnteringCustomerData); err != nil {
		t.Fatalf("back failed: %v", err)
	}
	if got := env.wiz.State(); got != StateEnteringCustomerData {
		t.Fatalf("expected entering_customer_data, got %s", got)
	}
	if _, ok := env.wiz.CustomerProfile(); !ok {
		t.Fatal("back must keep the customer snapshot")
	}
	if _, ok := env.wiz.ShippingAddress(); !ok {
		t.Fatal("back must keep the address snapshot")
	}

	// Вперёд можно только через повторную фиксацию шагов.
	if err := env.wiz.Back(StateSelectingPayment); !errors.Is(err, domain.ErrInvalidTransition) {
		t.Fatalf("back must not move forward, got %v", err)
	}
	if err := env.wiz.SubmitCustomer(validCustomer()); err != nil {
		t.Fatalf("resubmit customer failed: %v", err)
	}
	if err := env.wiz.SubmitAddress(validAddress()); err != nil {
		t.Fatalf("resubmit address failed: %v", err)
	}
	if got := env.wiz.State(); got != StateSelectingPayment {
		t.Fatalf("expected selecting_payment, got %s", got)
	}
}

func TestWizard_BackToProductsUnlocksCart(t *testing.T) {
	t.Parallel()

	env := newWizardEnv(t)
	env.advanceToPayment(t)

	if err := env.wiz.Back(StateSelectingProducts); err != nil {
		t.Fatalf("back failed: %v", err)
	}
	if err := env.cart.AddOrUpdateQuantity("smart-plus", 1); err != nil {
		t.Fatalf("cart must be unlocked after back to products: %v", err)
	}
}

func TestWizard_BackFromPixClosesArtifact(t *testing.T) {
	t.Parallel()

	env := newWizardEnv(t)
	env.advanceToPayment(t)

	if _, err := env.wiz.SelectPayment(domain.PaymentSelection{Method: domain.MethodPix}); err != nil {
		t.Fatalf("select pix failed: %v", err)
	}
	p := env.wiz.Pix()

	if err := env.wiz.Back(StateSelectingPayment); err != nil {
		t.Fatalf("back failed: %v", err)
	}
	if env.wiz.Pix() != nil {
		t.Fatal("wizard must drop the artifact on back")
	}
	if err := p.MarkPaid(); !errors.Is(err, domain.ErrArtifactClosed) {
		t.Fatalf("expected ErrArtifactClosed on the old handle, got %v", err)
	}
}

func TestWizard_CountdownSurvivesImmediateConfirm(t *testing.T) {
	t.Parallel()

	env := newWizardEnv(t)
	env.advanceToPayment(t)

	if _, err := env.wiz.SelectPayment(domain.PaymentSelection{Method: domain.MethodPix}); err != nil {
		t.Fatalf("select pix failed: %v", err)
	}
	p := env.wiz.Pix()
	if p == nil {
		t.Fatal("expected a live pix artifact")
	}

	// Подтверждение освобождает артефакт у мастера раньше, чем отсчёт
	// успевает стартовать.
	if _, err := env.wiz.MarkPaid(); err != nil {
		t.Fatalf("mark paid failed: %v", err)
	}
	if env.wiz.Pix() != nil {
		t.Fatal("artifact must be released after confirmation")
	}

	// Поздний отсчёт по удержанной ссылке обязан тихо завершиться.
	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	go func() {
		p.Run(ctx)
		close(done)
	}()
	cancel()

	select {
	case <-done:
	case <-time.After(2 * time.Second):
		t.Fatal("countdown must stop after cancellation")
	}
}

func TestWizard_TimelineRecordsLifecycle(t *testing.T) {
	t.Parallel()

	env := newWizardEnv(t)
	env.advanceToPayment(t)
	if _, err := env.wiz.SelectPayment(validCreditSelection()); err != nil {
		t.Fatalf("select payment failed: %v", err)
	}

	events, err := env.timeline.List("sess-test")
	if err != nil {
		t.Fatalf("list failed: %v", err)
	}
	var confirmed bool
	for _, ev := range events {
		if ev.Type == timelineEventOrderConfirmed {
			confirmed = true
		}
	}
	if !confirmed {
		t.Fatalf("expected an order confirmation entry, got %d events", len(events))
	}
}

func drainTicks(a interface{ Tick() bool }, n int) {
	for i := 0; i < n; i++ {
		a.Tick()
	}
}
