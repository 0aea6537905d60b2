package httpapi

import (
	"encoding/json"
	"errors"
	"net/http"
	"strconv"

	log "github.com/sirupsen/logrus"

	"github.com/vladislavdragonenkov/checkout/internal/artifact"
	"github.com/vladislavdragonenkov/checkout/internal/checkout"
	"github.com/vladislavdragonenkov/checkout/internal/domain"
	"github.com/vladislavdragonenkov/checkout/internal/pricing"
)

// sessionHeader несёт идентификатор сессии оформления.
const sessionHeader = "X-Session-ID"

// Server обрабатывает HTTP-запросы витрины оформления.
type Server struct {
	sessions *SessionManager
	deps     SessionDeps
	logger   *log.Entry
}

// NewServer создаёт HTTP-обработчики поверх менеджера сессий.
func NewServer(sessions *SessionManager, deps SessionDeps) *Server {
	logger := deps.Logger
	if logger == nil {
		logger = log.WithField("component", "httpapi")
	}
	return &Server{sessions: sessions, deps: deps, logger: logger}
}

type errorResponse struct {
	Error  string              `json:"error"`
	Fields []domain.FieldError `json:"fields,omitempty"`
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

// writeError переводит доменные ошибки в HTTP-статусы.
func (s *Server) writeError(w http.ResponseWriter, err error) {
	var ve *domain.ValidationErrors
	if errors.As(err, &ve) {
		writeJSON(w, http.StatusUnprocessableEntity, errorResponse{
			Error:  "validation failed",
			Fields: ve.Sorted(),
		})
		return
	}

	status := http.StatusInternalServerError
	switch {
	case errors.Is(err, domain.ErrSessionNotFound),
		errors.Is(err, domain.ErrOfferingUnknown),
		errors.Is(err, domain.ErrSnapshotNotFound),
		errors.Is(err, domain.ErrCEPNotFound),
		errors.Is(err, domain.ErrOrderNotReady):
		status = http.StatusNotFound
	case errors.Is(err, domain.ErrCartEmpty):
		status = http.StatusUnprocessableEntity
	case errors.Is(err, domain.ErrInvalidTransition),
		errors.Is(err, domain.ErrStepNotCompleted),
		errors.Is(err, domain.ErrCartLocked),
		errors.Is(err, domain.ErrArtifactClosed):
		status = http.StatusConflict
	case errors.Is(err, domain.ErrCardDeclined):
		status = http.StatusPaymentRequired
	case domain.IsArtifactExpired(err):
		status = http.StatusGone
	case errors.Is(err, domain.ErrCEPLookupUnavailable):
		status = http.StatusBadGateway
	}

	if status == http.StatusInternalServerError {
		s.logger.WithError(err).Error("request failed")
	}
	writeJSON(w, status, errorResponse{Error: err.Error()})
}

// session достаёт сессию из заголовка запроса.
func (s *Server) session(w http.ResponseWriter, r *http.Request) (*Session, bool) {
	id := r.Header.Get(sessionHeader)
	if id == "" {
		writeJSON(w, http.StatusBadRequest, errorResponse{Error: "missing " + sessionHeader + " header"})
		return nil, false
	}
	session, err := s.sessions.Get(id)
	if err != nil {
		s.writeError(w, err)
		return nil, false
	}
	return session, true
}

func decodeBody(w http.ResponseWriter, r *http.Request, v any) bool {
	if err := json.NewDecoder(r.Body).Decode(v); err != nil {
		writeJSON(w, http.StatusBadRequest, errorResponse{Error: "malformed request body"})
		return false
	}
	return true
}

// handleCreateSession открывает новую сессию оформления.
func (s *Server) handleCreateSession(w http.ResponseWriter, _ *http.Request) {
	session := s.sessions.Create()
	writeJSON(w, http.StatusCreated, map[string]string{"session_id": session.ID})
}

// handleCloseSession завершает сессию и останавливает её отсчёты.
func (s *Server) handleCloseSession(w http.ResponseWriter, r *http.Request) {
	id := r.Header.Get(sessionHeader)
	if id == "" {
		writeJSON(w, http.StatusBadRequest, errorResponse{Error: "missing " + sessionHeader + " header"})
		return
	}
	if err := s.sessions.Close(id); err != nil {
		s.writeError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// handleCatalog отдаёт позиции каталога в витринном порядке.
func (s *Server) handleCatalog(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, map[string]any{"offerings": s.deps.Catalog.Offerings()})
}

type cartLineView struct {
	OfferingID string `json:"offering_id"`
	Quantity   int    `json:"quantity"`
}

// handleGetCart возвращает строки корзины и промежуточную сумму.
func (s *Server) handleGetCart(w http.ResponseWriter, r *http.Request) {
	session, ok := s.session(w, r)
	if !ok {
		return
	}

	subtotal, err := session.Cart.Subtotal()
	if err != nil {
		s.writeError(w, err)
		return
	}

	cart := session.Cart.Cart()
	lines := make([]cartLineView, 0, len(cart.Lines))
	for _, l := range cart.Lines {
		lines = append(lines, cartLineView{OfferingID: l.OfferingID, Quantity: l.Quantity})
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"lines":    lines,
		"subtotal": subtotal.Round(2),
	})
}

// handleUpdateCart меняет количество позиции на delta.
func (s *Server) handleUpdateCart(w http.ResponseWriter, r *http.Request) {
	session, ok := s.session(w, r)
	if !ok {
		return
	}

	var req struct {
		OfferingID string `json:"offering_id"`
		Delta      int    `json:"delta"`
	}
	if !decodeBody(w, r, &req) {
		return
	}
	if err := session.Cart.AddOrUpdateQuantity(req.OfferingID, req.Delta); err != nil {
		s.writeError(w, err)
		return
	}
	s.handleGetCart(w, r)
}

// handleCoupon применяет код купона.
func (s *Server) handleCoupon(w http.ResponseWriter, r *http.Request) {
	session, ok := s.session(w, r)
	if !ok {
		return
	}

	var req struct {
		Code string `json:"code"`
	}
	if !decodeBody(w, r, &req) {
		return
	}
	accepted := session.Cart.ApplyCoupon(req.Code)
	writeJSON(w, http.StatusOK, map[string]bool{"accepted": accepted})
}

// handleQuote фиксирует суммы корзины под метод оплаты; для кредитной карты
// прикладывается график рассрочки.
func (s *Server) handleQuote(w http.ResponseWriter, r *http.Request) {
	session, ok := s.session(w, r)
	if !ok {
		return
	}

	method := domain.PaymentMethod(r.URL.Query().Get("method"))
	if method == "" {
		method = domain.MethodCredit
	}
	if !method.Valid() {
		writeJSON(w, http.StatusBadRequest, errorResponse{Error: "unsupported payment method"})
		return
	}

	cart := session.Cart.Cart()
	quote, err := s.deps.Pricing.QuoteFor(&cart, method)
	if err != nil {
		s.writeError(w, err)
		return
	}

	resp := map[string]any{"quote": quote}
	if method == domain.MethodCredit {
		count := pricing.MaxInstallments
		if raw := r.URL.Query().Get("installments"); raw != "" {
			parsed, err := strconv.Atoi(raw)
			if err != nil {
				writeJSON(w, http.StatusBadRequest, errorResponse{Error: "installments must be an integer"})
				return
			}
			count = parsed
		}
		schedule, err := s.deps.Pricing.InstallmentSchedule(quote.Total, count)
		if err != nil {
			writeJSON(w, http.StatusBadRequest, errorResponse{Error: err.Error()})
			return
		}
		resp["installments"] = schedule
	}
	writeJSON(w, http.StatusOK, resp)
}

// handleLookupCEP резолвит почтовый индекс; контекст запроса отменяет
// устаревший поиск, когда клиент ушёл со страницы или сменил индекс.
func (s *Server) handleLookupCEP(w http.ResponseWriter, r *http.Request) {
	if _, ok := s.session(w, r); !ok {
		return
	}

	cep := r.URL.Query().Get("cep")
	result, err := s.deps.Lookup.Lookup(r.Context(), cep)
	if err != nil {
		s.writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, result)
}

// handleBegin входит в мастер оформления.
func (s *Server) handleBegin(w http.ResponseWriter, r *http.Request) {
	session, ok := s.session(w, r)
	if !ok {
		return
	}
	if err := session.Wizard.BeginCheckout(); err != nil {
		s.writeError(w, err)
		return
	}
	s.writeState(w, session)
}

// handleCustomer фиксирует шаг данных покупателя.
func (s *Server) handleCustomer(w http.ResponseWriter, r *http.Request) {
	session, ok := s.session(w, r)
	if !ok {
		return
	}
	var profile domain.CustomerProfile
	if !decodeBody(w, r, &profile) {
		return
	}
	if err := session.Wizard.SubmitCustomer(profile); err != nil {
		s.writeError(w, err)
		return
	}
	s.writeState(w, session)
}

// handleAddress фиксирует шаг адреса доставки.
func (s *Server) handleAddress(w http.ResponseWriter, r *http.Request) {
	session, ok := s.session(w, r)
	if !ok {
		return
	}
	var address domain.ShippingAddress
	if !decodeBody(w, r, &address) {
		return
	}
	if err := session.Wizard.SubmitAddress(address); err != nil {
		s.writeError(w, err)
		return
	}
	s.writeState(w, session)
}

// handleGetCustomer регидрирует зафиксированный снимок шага данных покупателя.
func (s *Server) handleGetCustomer(w http.ResponseWriter, r *http.Request) {
	session, ok := s.session(w, r)
	if !ok {
		return
	}
	profile, ok := session.Wizard.CustomerProfile()
	if !ok {
		s.writeError(w, domain.ErrSnapshotNotFound)
		return
	}
	writeJSON(w, http.StatusOK, profile)
}

// handleGetAddress регидрирует зафиксированный снимок шага адреса доставки.
func (s *Server) handleGetAddress(w http.ResponseWriter, r *http.Request) {
	session, ok := s.session(w, r)
	if !ok {
		return
	}
	address, ok := session.Wizard.ShippingAddress()
	if !ok {
		s.writeError(w, domain.ErrSnapshotNotFound)
		return
	}
	writeJSON(w, http.StatusOK, address)
}

type paymentSelectionView struct {
	Method       string `json:"method"`
	CardBrand    string `json:"card_brand,omitempty"`
	CardLast4    string `json:"card_last4,omitempty"`
	Installments int    `json:"installments,omitempty"`
}

// handleGetPayment регидрирует выбор оплаты. Payload карты наружу не отдаётся:
// возвращаются только бренд и последние четыре цифры номера.
func (s *Server) handleGetPayment(w http.ResponseWriter, r *http.Request) {
	session, ok := s.session(w, r)
	if !ok {
		return
	}
	sel, ok := session.Wizard.PaymentSelection()
	if !ok {
		s.writeError(w, domain.ErrSnapshotNotFound)
		return
	}

	view := paymentSelectionView{Method: string(sel.Method)}
	if sel.Card != nil {
		view.CardBrand = domain.CardBrand(sel.Card.Number)
		if digits := domain.Digits(sel.Card.Number); len(digits) >= 4 {
			view.CardLast4 = digits[len(digits)-4:]
		}
		view.Installments = sel.Card.Installments
	}
	writeJSON(w, http.StatusOK, view)
}

// handlePayment фиксирует выбор метода оплаты и ведёт мастер дальше.
func (s *Server) handlePayment(w http.ResponseWriter, r *http.Request) {
	session, ok := s.session(w, r)
	if !ok {
		return
	}
	var sel domain.PaymentSelection
	if !decodeBody(w, r, &sel) {
		return
	}
	if _, err := session.Wizard.SelectPayment(sel); err != nil {
		s.writeError(w, err)
		return
	}
	s.writeState(w, session)
}

// handleMarkPaid подтверждает оплату по живому артефакту.
func (s *Server) handleMarkPaid(w http.ResponseWriter, r *http.Request) {
	session, ok := s.session(w, r)
	if !ok {
		return
	}
	if _, err := session.Wizard.MarkPaid(); err != nil {
		s.writeError(w, err)
		return
	}
	s.writeState(w, session)
}

// handleRegeneratePix выпускает свежий код Pix.
func (s *Server) handleRegeneratePix(w http.ResponseWriter, r *http.Request) {
	session, ok := s.session(w, r)
	if !ok {
		return
	}
	if err := session.Wizard.RegeneratePix(); err != nil {
		s.writeError(w, err)
		return
	}
	s.writeState(w, session)
}

// handleCopy копирует код или штрихкод текущего артефакта в буфер обмена.
func (s *Server) handleCopy(w http.ResponseWriter, r *http.Request) {
	session, ok := s.session(w, r)
	if !ok {
		return
	}

	var err error
	switch {
	case session.Wizard.Boleto() != nil:
		err = session.Wizard.Boleto().Copy()
	case session.Wizard.Pix() != nil:
		err = session.Wizard.Pix().Copy()
	default:
		err = domain.ErrInvalidTransition
	}
	if err != nil {
		s.writeError(w, err)
		return
	}
	s.writeState(w, session)
}

// backTargets — допустимые цели возврата из тела запроса.
var backTargets = map[string]checkout.State{
	string(checkout.StateSelectingProducts):    checkout.StateSelectingProducts,
	string(checkout.StateEnteringCustomerData): checkout.StateEnteringCustomerData,
	string(checkout.StateEnteringAddress):      checkout.StateEnteringAddress,
	string(checkout.StateSelectingPayment):     checkout.StateSelectingPayment,
}

// handleBack возвращает мастер к более раннему шагу.
func (s *Server) handleBack(w http.ResponseWriter, r *http.Request) {
	session, ok := s.session(w, r)
	if !ok {
		return
	}

	var req struct {
		To string `json:"to"`
	}
	if !decodeBody(w, r, &req) {
		return
	}
	target, ok := backTargets[req.To]
	if !ok {
		writeJSON(w, http.StatusBadRequest, errorResponse{Error: "unknown back target"})
		return
	}
	if err := session.Wizard.Back(target); err != nil {
		s.writeError(w, err)
		return
	}
	s.writeState(w, session)
}

// handleState возвращает текущее состояние мастера и живые артефакты.
func (s *Server) handleState(w http.ResponseWriter, r *http.Request) {
	session, ok := s.session(w, r)
	if !ok {
		return
	}
	s.writeState(w, session)
}

// handleOrder возвращает подтверждённый заказ.
func (s *Server) handleOrder(w http.ResponseWriter, r *http.Request) {
	session, ok := s.session(w, r)
	if !ok {
		return
	}
	order, err := session.Wizard.Order()
	if err != nil {
		s.writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, orderView(order))
}

// handleTimeline возвращает события жизненного цикла сессии.
func (s *Server) handleTimeline(w http.ResponseWriter, r *http.Request) {
	session, ok := s.session(w, r)
	if !ok {
		return
	}
	if s.deps.Timeline == nil {
		writeJSON(w, http.StatusOK, map[string]any{"events": []domain.TimelineEvent{}})
		return
	}
	events, err := s.deps.Timeline.List(session.ID)
	if err != nil {
		s.writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"events": events})
}

type boletoView struct {
	Barcode          string `json:"barcode"`
	DueDate          string `json:"due_date"`
	RemainingSeconds int    `json:"remaining_seconds"`
	Expired          bool   `json:"expired"`
	Copied           bool   `json:"copied"`
}

type pixView struct {
	Code             string `json:"code"`
	ExpiresAt        string `json:"expires_at"`
	RemainingSeconds int    `json:"remaining_seconds"`
	Expired          bool   `json:"expired"`
	Copied           bool   `json:"copied"`
}

func newBoletoView(b *artifact.Boleto) *boletoView {
	return &boletoView{
		Barcode:          b.Barcode(),
		DueDate:          b.DueDate().Format("2006-01-02"),
		RemainingSeconds: b.Remaining(),
		Expired:          b.Expired(),
		Copied:           b.Copied(),
	}
}

func newPixView(p *artifact.Pix) *pixView {
	return &pixView{
		Code:             p.Code(),
		ExpiresAt:        p.ExpiresAt().UTC().Format("2006-01-02T15:04:05Z07:00"),
		RemainingSeconds: p.Remaining(),
		Expired:          p.Expired(),
		Copied:           p.Copied(),
	}
}

// writeState сериализует состояние мастера с артефактами ожидания оплаты.
func (s *Server) writeState(w http.ResponseWriter, session *Session) {
	resp := map[string]any{"state": session.Wizard.State()}
	if b := session.Wizard.Boleto(); b != nil {
		resp["boleto"] = newBoletoView(b)
	}
	if p := session.Wizard.Pix(); p != nil {
		resp["pix"] = newPixView(p)
	}
	writeJSON(w, http.StatusOK, resp)
}

type orderViewModel struct {
	Number      string         `json:"number"`
	Lines       []cartLineView `json:"lines"`
	Customer    any            `json:"customer"`
	Address     any            `json:"address"`
	Method      string         `json:"method"`
	Total       string         `json:"total"`
	DeliveryMin string         `json:"delivery_window_start"`
	DeliveryMax string         `json:"delivery_window_end"`
	ConfirmedAt string         `json:"confirmed_at"`
}

func orderView(order domain.Order) orderViewModel {
	lines := make([]cartLineView, 0, len(order.Cart.Lines))
	for _, l := range order.Cart.Lines {
		lines = append(lines, cartLineView{OfferingID: l.OfferingID, Quantity: l.Quantity})
	}
	return orderViewModel{
		Number:      order.Number,
		Lines:       lines,
		Customer:    order.Customer,
		Address:     order.Address,
		Method:      string(order.Payment.Method),
		Total:       order.Total.StringFixed(2),
		DeliveryMin: order.Delivery.From.Format("2006-01-02"),
		DeliveryMax: order.Delivery.To.Format("2006-01-02"),
		ConfirmedAt: order.ConfirmedAt.UTC().Format("2006-01-02T15:04:05Z07:00"),
	}
}
