package bundle

import (
	"errors"
	"testing"
	"time"

	"github.com/google/uuid"
)

func validBundle() Bundle {
	return Bundle{
		ID:           uuid.New(),
		Name:         "Breakfast Set",
		Enabled:      true,
		ProductRules: []Rule{{Kind: RuleProduct, TargetIDs: []uuid.UUID{uuid.New()}, Quantity: 2}},
		PricingMode:  PricingFixed,
		Price:        1500,
	}
}

func TestValidateAcceptsWellFormedBundle(t *testing.T) {
	if err := validBundle().Validate(); err != nil {
		t.Fatalf("unexpected validation error: %v", err)
	}
}

func TestValidateRejectsZeroQuantityRule(t *testing.T) {
	b := validBundle()
	b.ProductRules[0].Quantity = 0
	if err := b.Validate(); !errors.Is(err, ErrInvalidBundle) {
		t.Fatalf("expected ErrInvalidBundle, got %v", err)
	}
}

func TestValidateRejectsEmptyTargetIDs(t *testing.T) {
	b := validBundle()
	b.ProductRules[0].TargetIDs = nil
	if err := b.Validate(); !errors.Is(err, ErrInvalidBundle) {
		t.Fatalf("expected ErrInvalidBundle, got %v", err)
	}
}

func TestValidateRejectsRulelessBundle(t *testing.T) {
	b := validBundle()
	b.ProductRules = nil
	if err := b.Validate(); !errors.Is(err, ErrInvalidBundle) {
		t.Fatalf("expected ErrInvalidBundle, got %v", err)
	}
}

func TestValidateRejectsPercentWithoutBps(t *testing.T) {
	b := validBundle()
	b.PricingMode = PricingPercent
	b.PercentBps = 0
	if err := b.Validate(); !errors.Is(err, ErrInvalidBundle) {
		t.Fatalf("expected ErrInvalidBundle, got %v", err)
	}
}

func TestValidateRejectsInvertedWindow(t *testing.T) {
	from := time.Date(2024, 6, 1, 0, 0, 0, 0, time.UTC)
	to := from.AddDate(0, -1, 0)
	b := validBundle()
	b.ActiveFrom = &from
	b.ActiveTo = &to
	if err := b.Validate(); !errors.Is(err, ErrInvalidBundle) {
		t.Fatalf("expected ErrInvalidBundle, got %v", err)
	}
}

func TestActiveAtBoundsAreInclusive(t *testing.T) {
	from := time.Date(2024, 6, 1, 0, 0, 0, 0, time.UTC)
	to := time.Date(2024, 6, 30, 0, 0, 0, 0, time.UTC)
	b := validBundle()
	b.ActiveFrom = &from
	b.ActiveTo = &to

	if !b.ActiveAt(from) || !b.ActiveAt(to) {
		t.Fatal("expected both bounds to be inclusive")
	}
	if b.ActiveAt(from.Add(-time.Second)) || b.ActiveAt(to.Add(time.Second)) {
		t.Fatal("expected timestamps outside the window to be inactive")
	}
}

func TestActiveAtNilBoundsAreUnbounded(t *testing.T) {
	b := validBundle()
	if !b.ActiveAt(time.Date(1990, 1, 1, 0, 0, 0, 0, time.UTC)) {
		t.Fatal("expected nil bounds to be unbounded")
	}
}
