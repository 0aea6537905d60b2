package checkout

import (
	"regexp"
	"testing"
)

var orderNumberPattern = regexp.MustCompile(`^\d{6}$`)

func TestRandomOrderNumbers_Format(t *testing.T) {
	t.Parallel()

	gen := NewRandomOrderNumbers(42)
	for i := 0; i < 100; i++ {
		n := gen.Next()
		if !orderNumberPattern.MatchString(n) {
			t.Fatalf("order number %q is not six zero-padded digits", n)
		}
	}
}

func TestRandomOrderNumbers_DeterministicForSeed(t *testing.T) {
	t.Parallel()

	a := NewRandomOrderNumbers(7)
	b := NewRandomOrderNumbers(7)
	for i := 0; i < 10; i++ {
		if na, nb := a.Next(), b.Next(); na != nb {
			t.Fatalf("same seed must yield same sequence: %s vs %s", na, nb)
		}
	}
}
