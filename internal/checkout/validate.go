package checkout

import (
	"errors"
	"reflect"
	"regexp"
	"strings"

	"github.com/go-playground/validator/v10"

	"github.com/vladislavdragonenkov/checkout/internal/domain"
)

// expiryPattern — срок действия карты в виде MM/YY.
var expiryPattern = regexp.MustCompile(`^(0[1-9]|1[0-2])/\d{2}$`)

// newValidator настраивает validator так, чтобы имена полей в ошибках
// совпадали с json-тегами, которые видит клиент.
func newValidator() *validator.Validate {
	v := validator.New(validator.WithRequiredStructEnabled())
	v.RegisterTagNameFunc(func(fld reflect.StructField) string {
		name := strings.SplitN(fld.Tag.Get("json"), ",", 2)[0]
		if name == "-" || name == "" {
			return fld.Name
		}
		return name
	})
	return v
}

// reasonFor переводит тег нарушения в короткую причину для инлайн-вывода.
func reasonFor(fe validator.FieldError) string {
	switch fe.Tag() {
	case "required":
		return "is required"
	case "email":
		return "must be a valid e-mail"
	case "oneof":
		return "has an unsupported value"
	case "eq":
		return "must be accepted"
	case "min", "max":
		return "is out of range"
	default:
		return "is invalid"
	}
}

// collectTagErrors конвертирует нарушения validator в доменные ошибки полей.
func collectTagErrors(err error, into *domain.ValidationErrors) {
	var ves validator.ValidationErrors
	if !errors.As(err, &ves) {
		into.Add("", err.Error())
		return
	}
	for _, fe := range ves {
		into.Add(fe.Field(), reasonFor(fe))
	}
}

// validateCustomer проверяет шаг "Seus dados": обязательность, формат e-mail,
// соответствие номера документа выбранному типу и длину телефона.
func validateCustomer(v *validator.Validate, p *domain.CustomerProfile) *domain.ValidationErrors {
	ve := &domain.ValidationErrors{}
	if err := v.Struct(p); err != nil {
		collectTagErrors(err, ve)
	}
	if p.Document != "" && p.DocumentType != "" && !p.DocumentMatchesType() {
		ve.Add("document", "does not match the selected document type")
	}
	if digits := p.PhoneDigits(); p.Phone != "" && (len(digits) < 10 || len(digits) > 11) {
		ve.Add("phone", "must contain 10 or 11 digits")
	}
	if ve.Empty() {
		return nil
	}
	return ve
}

// validateAddress проверяет шаг "Endereço": обязательность и ровно 8 цифр индекса.
func validateAddress(v *validator.Validate, a *domain.ShippingAddress) *domain.ValidationErrors {
	ve := &domain.ValidationErrors{}
	if err := v.Struct(a); err != nil {
		collectTagErrors(err, ve)
	}
	if a.CEP != "" && !a.CEPValid() {
		ve.Add("cep", "must contain exactly 8 digits")
	}
	if ve.Empty() {
		return nil
	}
	return ve
}

// validateSelection проверяет шаг "Pagamento". Card обязателен только для кредитной
// карты; для boleto и pix payload отсутствует.
func validateSelection(v *validator.Validate, sel *domain.PaymentSelection) *domain.ValidationErrors {
	ve := &domain.ValidationErrors{}
	if !sel.Method.Valid() {
		ve.Add("method", "has an unsupported value")
		return ve
	}
	if sel.Method != domain.MethodCredit {
		return nil
	}
	if sel.Card == nil {
		ve.Add("card", "is required")
		return ve
	}
	if err := v.Struct(sel.Card); err != nil {
		collectTagErrors(err, ve)
	}
	card := sel.Card
	if digits := domain.Digits(card.Number); card.Number != "" && (len(digits) < 13 || len(digits) > 19) {
		ve.Add("number", "must contain 13 to 19 digits")
	}
	if card.Expiry != "" && !expiryPattern.MatchString(card.Expiry) {
		ve.Add("expiry", "must use the MM/YY format")
	}
	if ve.Empty() {
		return nil
	}
	return ve
}
