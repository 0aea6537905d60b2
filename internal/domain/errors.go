package domain

import (
	"errors"
	"fmt"
	"sort"
	"strings"
)

var (
	// ErrOfferingUnknown возвращается при попытке изменить количество несуществующей позиции каталога.
	ErrOfferingUnknown = errors.New("offering is not part of the catalog")
	// ErrCartEmpty — переход к оформлению невозможен без единой позиции в корзине.
	ErrCartEmpty = errors.New("cart must contain at least one line")
	// ErrCartLocked — корзина заблокирована после входа в мастер оформления.
	ErrCartLocked = errors.New("cart is locked by the checkout wizard")
	// ErrInvalidTransition — запрошенный переход не разрешён из текущего состояния мастера.
	ErrInvalidTransition = errors.New("transition is not allowed from the current state")
	// ErrStepNotCompleted — следующий шаг недоступен, пока предыдущий не зафиксирован.
	ErrStepNotCompleted = errors.New("previous step snapshot does not exist")
	// ErrBoletoExpired — попытка подтвердить оплату по просроченному boleto; заказ считается брошенным.
	ErrBoletoExpired = errors.New("boleto is expired, order is abandoned")
	// ErrPixExpired — код Pix просрочен; допускается перегенерация.
	ErrPixExpired = errors.New("pix code is expired, regenerate to continue")
	// ErrArtifactClosed — артефакт уже закрыт (выход из состояния ожидания оплаты).
	ErrArtifactClosed = errors.New("payment artifact is closed")
	// ErrCardDeclined — симулированный авторизатор отклонил карту.
	ErrCardDeclined = errors.New("card declined by authorizer")
	// ErrCEPNotFound — сервис адресов не знает такой почтовый индекс.
	ErrCEPNotFound = errors.New("cep not found")
	// ErrCEPLookupUnavailable — транспортная ошибка при обращении к сервису адресов.
	ErrCEPLookupUnavailable = errors.New("cep lookup service unavailable")
	// ErrSnapshotNotFound возвращается портом персистентности, если по ключу ничего не сохранено.
	ErrSnapshotNotFound = errors.New("snapshot not found")
	// ErrOrderNotReady — заказ запрошен до достижения состояния Confirmed.
	ErrOrderNotReady = errors.New("order is not confirmed yet")
	// ErrSessionNotFound — сессия оформления неизвестна или уже вычищена.
	ErrSessionNotFound = errors.New("checkout session not found")
	// ErrOutboxPublish — ошибка при публикации сообщения из outbox.
	ErrOutboxPublish = errors.New("outbox publish failed")
)

// FieldError описывает одну ошибку валидации, привязанную к полю формы.
type FieldError struct {
	Field  string `json:"field"`
	Reason string `json:"reason"`
}

// ValidationErrors агрегирует ошибки полей шага; блокирует переход, но не фатальна.
type ValidationErrors struct {
	Fields []FieldError
}

// Error собирает человекочитаемое описание всех нарушений.
func (v *ValidationErrors) Error() string {
	if len(v.Fields) == 0 {
		return "validation failed"
	}
	parts := make([]string, 0, len(v.Fields))
	for _, f := range v.Fields {
		parts = append(parts, fmt.Sprintf("%s: %s", f.Field, f.Reason))
	}
	return "validation failed: " + strings.Join(parts, "; ")
}

// Add добавляет нарушение по полю.
func (v *ValidationErrors) Add(field, reason string) {
	v.Fields = append(v.Fields, FieldError{Field: field, Reason: reason})
}

// Empty сообщает, есть ли накопленные нарушения.
func (v *ValidationErrors) Empty() bool {
	return len(v.Fields) == 0
}

// Sorted возвращает нарушения в стабильном порядке по имени поля.
func (v *ValidationErrors) Sorted() []FieldError {
	out := make([]FieldError, len(v.Fields))
	copy(out, v.Fields)
	sort.Slice(out, func(i, j int) bool { return out[i].Field < out[j].Field })
	return out
}

// IsValidation проверяет, является ли ошибка ошибкой валидации шага.
func IsValidation(err error) bool {
	var ve *ValidationErrors
	return errors.As(err, &ve)
}

// IsArtifactExpired объединяет обе разновидности просрочки платёжного артефакта.
func IsArtifactExpired(err error) bool {
	return errors.Is(err, ErrBoletoExpired) || errors.Is(err, ErrPixExpired)
}
