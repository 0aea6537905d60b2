package domain

import "github.com/shopspring/decimal"

// CartLine — одна позиция корзины: ссылка на каталог и количество.
type CartLine struct {
	OfferingID string `json:"offering_id"`
	// Quantity всегда >= 1: строки с нулём вычищаются при мутации.
	Quantity int `json:"quantity"`
}

// Cart хранит упорядоченный набор строк, уникальных по offering id.
type Cart struct {
	Lines []CartLine `json:"lines"`
}

// Quantity возвращает текущее количество по позиции (0, если строки нет).
func (c Cart) Quantity(offeringID string) int {
	for _, line := range c.Lines {
		if line.OfferingID == offeringID {
			return line.Quantity
		}
	}
	return 0
}

// SetQuantity выставляет количество, сохраняя порядок строк.
// Количество <= 0 удаляет строку; отрицательные значения не сохраняются никогда.
func (c *Cart) SetQuantity(offeringID string, qty int) {
	if qty <= 0 {
		for i, line := range c.Lines {
			if line.OfferingID == offeringID {
				c.Lines = append(c.Lines[:i], c.Lines[i+1:]...)
				return
			}
		}
		return
	}
	for i, line := range c.Lines {
		if line.OfferingID == offeringID {
			c.Lines[i].Quantity = qty
			return
		}
	}
	c.Lines = append(c.Lines, CartLine{OfferingID: offeringID, Quantity: qty})
}

// Empty сообщает, пуста ли корзина.
func (c Cart) Empty() bool {
	return len(c.Lines) == 0
}

// Subtotal считает сумму unitPrice * quantity по всем строкам; для пустой корзины ноль.
func (c *Cart) Subtotal(catalog *Catalog) (decimal.Decimal, error) {
	sum := decimal.Zero
	for _, line := range c.Lines {
		offering, err := catalog.Get(line.OfferingID)
		if err != nil {
			return decimal.Zero, err
		}
		sum = sum.Add(offering.Price.Mul(decimal.NewFromInt(int64(line.Quantity))))
	}
	return sum, nil
}
