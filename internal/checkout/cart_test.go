package checkout

import (
	"errors"
	"testing"

	"github.com/vladislavdragonenkov/checkout/internal/domain"
	"github.com/vladislavdragonenkov/checkout/internal/storage/memory"
)

func TestCartAggregator_QuantityLifecycle(t *testing.T) {
	t.Parallel()

	agg := NewCartAggregator(domain.DefaultCatalog(), memory.NewSnapshotStore(), nil)

	if err := agg.AddOrUpdateQuantity("smart-plus", 2); err != nil {
		t.Fatalf("add failed: %v", err)
	}
	if err := agg.AddOrUpdateQuantity("smart-plus", -1); err != nil {
		t.Fatalf("decrement failed: %v", err)
	}
	cart := agg.Cart()
	if got := cart.Quantity("smart-plus"); got != 1 {
		t.Fatalf("expected quantity 1, got %d", got)
	}

	// Уход ниже нуля зажимается: строка вычищается из корзины.
	if err := agg.AddOrUpdateQuantity("smart-plus", -5); err != nil {
		t.Fatalf("clamp failed: %v", err)
	}
	if !agg.Cart().Empty() {
		t.Fatal("expected empty cart after clamping to zero")
	}
}

func TestCartAggregator_UnknownOfferingRefused(t *testing.T) {
	t.Parallel()

	agg := NewCartAggregator(domain.DefaultCatalog(), memory.NewSnapshotStore(), nil)

	err := agg.AddOrUpdateQuantity("toaster-9000", 1)
	if !errors.Is(err, domain.ErrOfferingUnknown) {
		t.Fatalf("expected ErrOfferingUnknown, got %v", err)
	}
	if !agg.Cart().Empty() {
		t.Fatal("refused mutation must not touch the cart")
	}
}

func TestCartAggregator_LockBlocksMutations(t *testing.T) {
	t.Parallel()

	agg := NewCartAggregator(domain.DefaultCatalog(), memory.NewSnapshotStore(), nil)
	if err := agg.AddOrUpdateQuantity("smart-base", 1); err != nil {
		t.Fatalf("add failed: %v", err)
	}

	agg.Lock()
	if err := agg.AddOrUpdateQuantity("smart-base", 1); !errors.Is(err, domain.ErrCartLocked) {
		t.Fatalf("expected ErrCartLocked, got %v", err)
	}

	agg.Unlock()
	if err := agg.AddOrUpdateQuantity("smart-base", 1); err != nil {
		t.Fatalf("add after unlock failed: %v", err)
	}
	if got := agg.Cart().Quantity("smart-base"); got != 2 {
		t.Fatalf("expected quantity 2, got %d", got)
	}
}

func TestCartAggregator_RehydratesFromSnapshot(t *testing.T) {
	t.Parallel()

	store := memory.NewSnapshotStore()
	first := NewCartAggregator(domain.DefaultCatalog(), store, nil)
	if err := first.AddOrUpdateQuantity("smart-plus", 3); err != nil {
		t.Fatalf("add failed: %v", err)
	}

	second := NewCartAggregator(domain.DefaultCatalog(), store, nil)
	if got := second.Cart().Quantity("smart-plus"); got != 3 {
		t.Fatalf("expected rehydrated quantity 3, got %d", got)
	}
}

func TestCartAggregator_CorruptSnapshotStartsEmpty(t *testing.T) {
	t.Parallel()

	store := memory.NewSnapshotStore()
	if err := store.Set(domain.SnapshotKeyCart, []byte("{not json")); err != nil {
		t.Fatalf("seed failed: %v", err)
	}

	agg := NewCartAggregator(domain.DefaultCatalog(), store, nil)
	if !agg.Cart().Empty() {
		t.Fatal("unreadable snapshot must be treated as absent")
	}
}

func TestCartAggregator_Subtotal(t *testing.T) {
	t.Parallel()

	agg := NewCartAggregator(domain.DefaultCatalog(), memory.NewSnapshotStore(), nil)
	if err := agg.AddOrUpdateQuantity("smart-plus", 1); err != nil {
		t.Fatalf("add failed: %v", err)
	}

	sum, err := agg.Subtotal()
	if err != nil {
		t.Fatalf("subtotal failed: %v", err)
	}
	if got := sum.StringFixed(2); got != "697.00" {
		t.Fatalf("expected subtotal 697.00, got %s", got)
	}
}

func TestCartAggregator_CouponAlwaysAccepted(t *testing.T) {
	t.Parallel()

	agg := NewCartAggregator(domain.DefaultCatalog(), memory.NewSnapshotStore(), nil)
	for _, code := range []string{"PROMO10", "", "qualquer-coisa"} {
		if !agg.ApplyCoupon(code) {
			t.Fatalf("coupon %q must be accepted", code)
		}
	}
}
