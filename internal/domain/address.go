package domain

// ShippingAddress — данные шага "Endereço de entrega".
// Обязательны все поля, кроме Complement; CEP хранится как введён, цифры извлекаются по месту.
type ShippingAddress struct {
	CEP          string `json:"cep" validate:"required"`
	Street       string `json:"street" validate:"required"`
	Number       string `json:"number" validate:"required"`
	Complement   string `json:"complement"`
	Neighborhood string `json:"neighborhood" validate:"required"`
	City         string `json:"city" validate:"required"`
	State        string `json:"state" validate:"required"`
}

// CEPDigits возвращает почтовый индекс без маски.
func (a *ShippingAddress) CEPDigits() string {
	return Digits(a.CEP)
}

// CEPValid — индекс корректен, когда в нём ровно восемь цифр.
func (a *ShippingAddress) CEPValid() bool {
	return len(a.CEPDigits()) == 8
}

// LookupResult — ответ внешнего сервиса адресов по индексу.
type LookupResult struct {
	Street       string `json:"street"`
	Neighborhood string `json:"neighborhood"`
	City         string `json:"city"`
	State        string `json:"state"`
}

// ApplyLookup заполняет адрес данными сервиса, не трогая номер и дополнение.
func (a *ShippingAddress) ApplyLookup(res LookupResult) {
	a.Street = res.Street
	a.Neighborhood = res.Neighborhood
	a.City = res.City
	a.State = res.State
}
