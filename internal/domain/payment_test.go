package domain

import "testing"

func TestCardBrand(t *testing.T) {
	t.Parallel()

	cases := []struct {
		number string
		want   string
	}{
		{"4111 1111 1111 1111", "Visa"},
		{"5105 1051 0510 5100", "Mastercard"},
		{"5611 1111 1111 1111", ""},
		{"3411 111111 11111", "American Express"},
		{"3711 111111 11111", "American Express"},
		{"6011 1111 1111 1117", "Discover"},
		{"6511 1111 1111 1111", "Discover"},
		{"6441 1111 1111 1111", "Discover"},
		{"6431 1111 1111 1111", ""},
		{"", ""},
	}
	for _, tc := range cases {
		if got := CardBrand(tc.number); got != tc.want {
			t.Fatalf("CardBrand(%q) = %q, want %q", tc.number, got, tc.want)
		}
	}
}

func TestPaymentMethod_Valid(t *testing.T) {
	t.Parallel()

	for _, m := range []PaymentMethod{MethodCredit, MethodBoleto, MethodPix} {
		if !m.Valid() {
			t.Fatalf("expected %s to be valid", m)
		}
	}
	if PaymentMethod("cash").Valid() {
		t.Fatal("expected cash to be invalid")
	}
}
