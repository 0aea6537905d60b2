package domain

import "strings"

// DocumentType различает физическое и юридическое лицо покупателя.
type DocumentType string

const (
	// DocumentCPF — документ физического лица, 11 цифр.
	DocumentCPF DocumentType = "CPF"
	// DocumentCNPJ — документ юридического лица, 14 цифр.
	DocumentCNPJ DocumentType = "CNPJ"
)

// Digits убирает из строки всё, кроме цифр (маски вводятся с точками и дефисами).
func Digits(s string) string {
	var b strings.Builder
	for _, r := range s {
		if r >= '0' && r <= '9' {
			b.WriteRune(r)
		}
	}
	return b.String()
}

// CustomerProfile — данные шага "Seus dados".
// Теги validate дополняются проверкой формата документа на уровне структуры.
type CustomerProfile struct {
	DocumentType    DocumentType `json:"document_type" validate:"required,oneof=CPF CNPJ"`
	Document        string       `json:"document" validate:"required"`
	FirstName       string       `json:"first_name" validate:"required"`
	LastName        string       `json:"last_name" validate:"required"`
	Email           string       `json:"email" validate:"required,email"`
	Phone           string       `json:"phone" validate:"required"`
	TermsAccepted   bool         `json:"terms_accepted" validate:"eq=true"`
	PrivacyAccepted bool         `json:"privacy_accepted" validate:"eq=true"`
}

// DocumentDigits возвращает номер документа без маски.
func (p *CustomerProfile) DocumentDigits() string {
	return Digits(p.Document)
}

// DocumentMatchesType проверяет длину номера против типа: CPF = 11 цифр, CNPJ = 14.
func (p *CustomerProfile) DocumentMatchesType() bool {
	digits := p.DocumentDigits()
	switch p.DocumentType {
	case DocumentCPF:
		return len(digits) == 11
	case DocumentCNPJ:
		return len(digits) == 14
	default:
		return false
	}
}

// PhoneDigits возвращает телефон без маски "(00) 00000-0000".
func (p *CustomerProfile) PhoneDigits() string {
	return Digits(p.Phone)
}
