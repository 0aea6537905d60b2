package domain

import (
	"time"

	"github.com/shopspring/decimal"
)

// DeliveryWindow — фиксированное окно доставки, вычисляемое от даты подтверждения.
type DeliveryWindow struct {
	From time.Time `json:"from"`
	To   time.Time `json:"to"`
}

// EstimateDelivery возвращает окно "сегодня+7 .. сегодня+15" — доставка по всей стране бесплатна.
func EstimateDelivery(today time.Time) DeliveryWindow {
	return DeliveryWindow{
		From: today.AddDate(0, 0, 7),
		To:   today.AddDate(0, 0, 15),
	}
}

// Order — снимок завершённого оформления; создаётся только в состоянии Confirmed.
type Order struct {
	// Number — шестизначный, дополненный нулями номер, выдаваемый генератором при подтверждении.
	Number   string           `json:"number"`
	Cart     Cart             `json:"cart"`
	Customer CustomerProfile  `json:"customer"`
	Address  ShippingAddress  `json:"address"`
	Payment  PaymentSelection `json:"payment"`
	// Total — итог с учётом скидки метода, зафиксированный с точностью до сентаво.
	Total    decimal.Decimal `json:"total"`
	Delivery DeliveryWindow  `json:"delivery"`
	// ConfirmedAt фиксирует момент перехода мастера в Confirmed.
	ConfirmedAt time.Time `json:"confirmed_at"`
}
