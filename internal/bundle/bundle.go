package bundle

import (
	"errors"
	"fmt"
	"time"

	validator "github.com/go-playground/validator/v10"
	"github.com/google/uuid"
)

// Money represents a monetary value stored in minor units.
type Money = int64

// RuleKind discriminates how a rule matches line items.
type RuleKind string

const (
	// RuleProduct matches line items by canonical product identity.
	RuleProduct RuleKind = "product"
	// RuleCategory matches line items by category membership.
	RuleCategory RuleKind = "category"
)

// PricingMode selects how a matched bundle's discount is computed.
type PricingMode string

const (
	// PricingFixed discounts the consumed items down to the bundle price.
	PricingFixed PricingMode = "fixed"
	// PricingPercent discounts the consumed items by a basis-point percentage.
	PricingPercent PricingMode = "percent"
)

// Rule requires a quantity of items matching any of its target identities.
// Rules matching any id in TargetIDs count toward the same quantity.
type Rule struct {
	Kind      RuleKind    `json:"kind" validate:"required,oneof=product category"`
	TargetIDs []uuid.UUID `json:"target_ids" validate:"required,min=1"`
	Quantity  int         `json:"quantity" validate:"gt=0"`
}

// Bundle is a promotion definition combining a price with a set of rules.
// Rule order is significant: rules are matched in declaration order, product
// rules before category rules, and earlier rules consume items first.
type Bundle struct {
	ID            uuid.UUID   `json:"id"`
	Name          string      `json:"name" validate:"required"`
	Description   string      `json:"description"`
	Enabled       bool        `json:"enabled"`
	ActiveFrom    *time.Time  `json:"active_from"`
	ActiveTo      *time.Time  `json:"active_to"`
	ProductRules  []Rule      `json:"product_rules" validate:"dive"`
	CategoryRules []Rule      `json:"category_rules" validate:"dive"`
	PricingMode   PricingMode `json:"pricing_mode" validate:"required,oneof=fixed percent"`
	Price         Money       `json:"price" validate:"gte=0"`
	PercentBps    int32       `json:"percent_bps" validate:"gte=0,lte=10000"`
	SortOrder     int         `json:"sort_order"`
	TotalUses     int         `json:"total_uses"`
}

var validate = validator.New(validator.WithRequiredStructEnabled())

// ErrInvalidBundle wraps bundle definition validation failures.
var ErrInvalidBundle = errors.New("invalid bundle definition")

// Validate rejects malformed bundle definitions. Repositories call this at
// load time so the matcher can assume validated input.
func (b Bundle) Validate() error {
	if err := validate.Struct(b); err != nil {
		return fmt.Errorf("%w: %w", ErrInvalidBundle, err)
	}
	if len(b.ProductRules)+len(b.CategoryRules) == 0 {
		return fmt.Errorf("%w: at least one rule is required", ErrInvalidBundle)
	}
	if b.PricingMode == PricingPercent && b.PercentBps <= 0 {
		return fmt.Errorf("%w: percent pricing requires percent_bps > 0", ErrInvalidBundle)
	}
	if b.ActiveFrom != nil && b.ActiveTo != nil && b.ActiveTo.Before(*b.ActiveFrom) {
		return fmt.Errorf("%w: active_to precedes active_from", ErrInvalidBundle)
	}
	return nil
}

// ActiveAt reports whether the bundle's date window covers t. A nil bound is
// unbounded on that side; both bounds are inclusive.
func (b Bundle) ActiveAt(t time.Time) bool {
	if b.ActiveFrom != nil && t.Before(*b.ActiveFrom) {
		return false
	}
	if b.ActiveTo != nil && t.After(*b.ActiveTo) {
		return false
	}
	return true
}

// RequiredQuantity sums the required quantity across all rules.
func (b Bundle) RequiredQuantity() int {
	total := 0
	for _, r := range b.ProductRules {
		total += r.Quantity
	}
	for _, r := range b.CategoryRules {
		total += r.Quantity
	}
	return total
}
