package domain

import "testing"

func TestCart_SetQuantity_PreservesOrder(t *testing.T) {
	t.Parallel()

	var cart Cart
	cart.SetQuantity("smart-base", 1)
	cart.SetQuantity("pro-base", 2)
	cart.SetQuantity("smart-base", 3)

	if len(cart.Lines) != 2 {
		t.Fatalf("expected 2 lines, got %d", len(cart.Lines))
	}
	if cart.Lines[0].OfferingID != "smart-base" || cart.Lines[0].Quantity != 3 {
		t.Fatalf("unexpected first line: %+v", cart.Lines[0])
	}
	if cart.Lines[1].OfferingID != "pro-base" || cart.Lines[1].Quantity != 2 {
		t.Fatalf("unexpected second line: %+v", cart.Lines[1])
	}
}

func TestCart_SetQuantity_ZeroRemovesLine(t *testing.T) {
	t.Parallel()

	var cart Cart
	cart.SetQuantity("smart-base", 2)
	cart.SetQuantity("pro-base", 1)
	cart.SetQuantity("smart-base", 0)

	if cart.Quantity("smart-base") != 0 {
		t.Fatal("expected smart-base to be removed")
	}
	if len(cart.Lines) != 1 || cart.Lines[0].OfferingID != "pro-base" {
		t.Fatalf("unexpected lines after removal: %+v", cart.Lines)
	}

	cart.SetQuantity("mini-base", -1)
	if cart.Quantity("mini-base") != 0 {
		t.Fatal("negative quantity must not create a line")
	}
}

func TestCart_ReadsWorkOnValueCopies(t *testing.T) {
	t.Parallel()

	build := func() Cart {
		var c Cart
		c.SetQuantity("smart-base", 2)
		return c
	}

	// Чтения доступны прямо на возвращённой копии, без привязки к переменной.
	if build().Empty() {
		t.Fatal("cart with a line must not be empty")
	}
	if got := build().Quantity("smart-base"); got != 2 {
		t.Fatalf("expected quantity 2, got %d", got)
	}
	if !(Cart{}).Empty() {
		t.Fatal("zero cart must be empty")
	}
}

func TestCart_Subtotal(t *testing.T) {
	t.Parallel()

	catalog := DefaultCatalog()

	var empty Cart
	sum, err := empty.Subtotal(catalog)
	if err != nil {
		t.Fatalf("subtotal failed: %v", err)
	}
	if !sum.IsZero() {
		t.Fatalf("expected zero subtotal for empty cart, got %s", sum)
	}

	var cart Cart
	cart.SetQuantity("smart-base", 2) // 597.00 each
	cart.SetQuantity("mini-base", 1)  // 337.00

	sum, err = cart.Subtotal(catalog)
	if err != nil {
		t.Fatalf("subtotal failed: %v", err)
	}
	if got := sum.StringFixed(2); got != "1531.00" {
		t.Fatalf("expected subtotal 1531.00, got %s", got)
	}
}

func TestCart_Subtotal_UnknownOffering(t *testing.T) {
	t.Parallel()

	catalog := DefaultCatalog()
	cart := Cart{Lines: []CartLine{{OfferingID: "ghost", Quantity: 1}}}

	if _, err := cart.Subtotal(catalog); err != ErrOfferingUnknown {
		t.Fatalf("expected ErrOfferingUnknown, got %v", err)
	}
}
