package domain

import "strings"

// PaymentMethod — выбранный способ оплаты.
type PaymentMethod string

const (
	// MethodCredit — кредитная карта, синхронная симулированная авторизация.
	MethodCredit PaymentMethod = "credit"
	// MethodBoleto — банковский слип со сроком оплаты 3 дня.
	MethodBoleto PaymentMethod = "boleto"
	// MethodPix — мгновенный перевод по коду, живёт 30 минут.
	MethodPix PaymentMethod = "pix"
)

// Valid проверяет, что метод относится к поддерживаемым значениям.
func (m PaymentMethod) Valid() bool {
	switch m {
	case MethodCredit, MethodBoleto, MethodPix:
		return true
	default:
		return false
	}
}

// CardDetails — payload карты; заполняется только для MethodCredit.
type CardDetails struct {
	Number string `json:"number" validate:"required"`
	Holder string `json:"holder" validate:"required"`
	// Expiry в формате MM/YY, как вводит маска.
	Expiry string `json:"expiry" validate:"required"`
	CVV    string `json:"cvv" validate:"required,min=3,max=4"`
	// Installments ограничены диапазоном [1,12] только для кредитной карты.
	Installments int `json:"installments" validate:"min=1,max=12"`
}

// PaymentSelection — данные шага "Pagamento".
type PaymentSelection struct {
	Method PaymentMethod `json:"method" validate:"required"`
	Card   *CardDetails  `json:"card,omitempty"`
}

// CardBrand определяет бренд по первым цифрам номера; пустая строка — бренд неизвестен.
func CardBrand(number string) string {
	digits := Digits(number)
	switch {
	case strings.HasPrefix(digits, "4"):
		return "Visa"
	case len(digits) >= 2 && digits[0] == '5' && digits[1] >= '1' && digits[1] <= '5':
		return "Mastercard"
	case strings.HasPrefix(digits, "34"), strings.HasPrefix(digits, "37"):
		return "American Express"
	case strings.HasPrefix(digits, "6011"), strings.HasPrefix(digits, "65"):
		return "Discover"
	case len(digits) >= 3 && strings.HasPrefix(digits, "64") && digits[2] >= '4' && digits[2] <= '9':
		return "Discover"
	default:
		return ""
	}
}

// AuthorizationStatus — результат обращения к авторизатору карт.
type AuthorizationStatus string

const (
	// AuthorizationApproved — списание одобрено.
	AuthorizationApproved AuthorizationStatus = "approved"
	// AuthorizationDeclined — списание отклонено.
	AuthorizationDeclined AuthorizationStatus = "declined"
)
