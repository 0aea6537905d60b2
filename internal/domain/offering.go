package domain

import "github.com/shopspring/decimal"

// Plan обозначает тарифный план, к которому привязана машинка.
type Plan string

const (
	// PlanBase — базовый тариф.
	PlanBase Plan = "Base"
	// PlanPlus — расширенный тариф с повышенной ценой устройства.
	PlanPlus Plan = "Plus"
)

// Offering описывает одну позицию каталога терминалов.
type Offering struct {
	ID string `json:"id"`
	// Name — витринное название модели.
	Name string `json:"name"`
	// Model — код аппаратной платформы (например "A930/P2*").
	Model string `json:"model"`
	// Price — цена за единицу при оплате целиком.
	Price decimal.Decimal `json:"price"`
	// InstallmentPrice — цена одной из двенадцати равных частей.
	InstallmentPrice decimal.Decimal `json:"installment_price"`
	Plan             Plan            `json:"plan"`
}

// Catalog — упорядоченный read-only список доступных терминалов.
type Catalog struct {
	offerings []Offering
	byID      map[string]Offering
}

// NewCatalog строит каталог, индексируя позиции по идентификатору.
func NewCatalog(offerings []Offering) *Catalog {
	byID := make(map[string]Offering, len(offerings))
	for _, o := range offerings {
		byID[o.ID] = o
	}
	return &Catalog{offerings: offerings, byID: byID}
}

// Offerings возвращает копию списка позиций в исходном порядке.
func (c *Catalog) Offerings() []Offering {
	out := make([]Offering, len(c.offerings))
	copy(out, c.offerings)
	return out
}

// Get возвращает позицию каталога или ErrOfferingUnknown.
func (c *Catalog) Get(id string) (Offering, error) {
	o, ok := c.byID[id]
	if !ok {
		return Offering{}, ErrOfferingUnknown
	}
	return o, nil
}

// price формирует decimal из целых реалов и сентаво без потери точности.
func price(units int64, cents int64) decimal.Decimal {
	return decimal.New(units*100+cents, -2)
}

// DefaultCatalog возвращает шесть терминалов витрины в планах Base и Plus.
func DefaultCatalog() *Catalog {
	return NewCatalog([]Offering{
		{ID: "smart-base", Name: "Paymilles Smart", Model: "A930/P2*", Price: price(597, 0), InstallmentPrice: price(49, 75), Plan: PlanBase},
		{ID: "pro-base", Name: "Paymilles Pro", Model: "S920/Q92*", Price: price(497, 0), InstallmentPrice: price(41, 42), Plan: PlanBase},
		{ID: "mini-base", Name: "Paymilles Mini", Model: "D195*", Price: price(337, 0), InstallmentPrice: price(28, 8), Plan: PlanBase},
		{ID: "smart-plus", Name: "Paymilles Smart Plus", Model: "A930/P2*", Price: price(697, 0), InstallmentPrice: price(58, 8), Plan: PlanPlus},
		{ID: "pro-plus", Name: "Paymilles Pro Plus", Model: "S920/Q92*", Price: price(597, 0), InstallmentPrice: price(49, 75), Plan: PlanPlus},
		{ID: "mini-plus", Name: "Paymilles Mini Plus", Model: "D195*", Price: price(397, 0), InstallmentPrice: price(33, 8), Plan: PlanPlus},
	})
}
