// Пакет pricing — единственное место, где считаются суммы оформления.
// Все шаги потребляют один движок, чтобы пересчёты на страницах не расходились.
package pricing

import (
	"fmt"

	"github.com/shopspring/decimal"

	"github.com/vladislavdragonenkov/checkout/internal/domain"
)

const (
	// MinInstallments и MaxInstallments ограничивают рассрочку кредитной карты.
	MinInstallments = 1
	MaxInstallments = 12
)

// pixDiscountRate — 5% за оплату мгновенным переводом.
var pixDiscountRate = decimal.New(5, -2)

// Engine считает промежуточную сумму, скидку, итог и график рассрочки.
// Вычисления идут в полной точности; округление до сентаво — только при фиксации.
type Engine struct {
	catalog *domain.Catalog
}

// NewEngine создаёт движок поверх каталога.
func NewEngine(catalog *domain.Catalog) *Engine {
	return &Engine{catalog: catalog}
}

// Subtotal — сумма unitPrice * quantity по строкам корзины.
func (e *Engine) Subtotal(cart *domain.Cart) (decimal.Decimal, error) {
	return cart.Subtotal(e.catalog)
}

// Discount возвращает скидку метода в полной точности: 5% для Pix, иначе ноль.
func (e *Engine) Discount(method domain.PaymentMethod, subtotal decimal.Decimal) decimal.Decimal {
	if method == domain.MethodPix {
		return subtotal.Mul(pixDiscountRate)
	}
	return decimal.Zero
}

// Total — subtotal минус скидка; доставка всегда бесплатна и в итог не входит.
func (e *Engine) Total(method domain.PaymentMethod, subtotal decimal.Decimal) decimal.Decimal {
	return subtotal.Sub(e.Discount(method, subtotal))
}

// Quote — зафиксированные суммы для отображения и снимка заказа (2 знака).
type Quote struct {
	Subtotal decimal.Decimal `json:"subtotal"`
	Discount decimal.Decimal `json:"discount"`
	Shipping decimal.Decimal `json:"shipping"`
	Total    decimal.Decimal `json:"total"`
}

// QuoteFor фиксирует суммы корзины под выбранный метод оплаты.
func (e *Engine) QuoteFor(cart *domain.Cart, method domain.PaymentMethod) (Quote, error) {
	subtotal, err := e.Subtotal(cart)
	if err != nil {
		return Quote{}, err
	}
	return Quote{
		Subtotal: subtotal.Round(2),
		Discount: e.Discount(method, subtotal).Round(2),
		Shipping: decimal.Zero,
		Total:    e.Total(method, subtotal).Round(2),
	}, nil
}

// InstallmentSchedule делит итог на n равных частей, округляя каждую независимо.
// Сумма частей может расходиться с итогом до n*0.005 — расхождение принято витриной
// и не корректируется; см. InstallmentScheduleExact для варианта без дрейфа.
func (e *Engine) InstallmentSchedule(total decimal.Decimal, n int) ([]decimal.Decimal, error) {
	if n < MinInstallments || n > MaxInstallments {
		return nil, fmt.Errorf("installment count %d is out of range [%d,%d]", n, MinInstallments, MaxInstallments)
	}
	per := total.Div(decimal.NewFromInt(int64(n))).Round(2)
	schedule := make([]decimal.Decimal, n)
	for i := range schedule {
		schedule[i] = per
	}
	return schedule, nil
}

// InstallmentScheduleExact поглощает остаток округления последней частью,
// так что сумма графика всегда равна зафиксированному итогу.
func (e *Engine) InstallmentScheduleExact(total decimal.Decimal, n int) ([]decimal.Decimal, error) {
	schedule, err := e.InstallmentSchedule(total, n)
	if err != nil {
		return nil, err
	}
	fixed := total.Round(2)
	sum := decimal.Zero
	for _, v := range schedule[:n-1] {
		sum = sum.Add(v)
	}
	schedule[n-1] = fixed.Sub(sum)
	return schedule, nil
}
