package bundle

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
)

// MatchResult classifies the outcome of a rule or bundle match.
type MatchResult string

const (
	// MatchSucceeded means every required unit was drawn.
	MatchSucceeded MatchResult = "succeeded"
	// MatchPartial means some, but not all, required units were drawn.
	MatchPartial MatchResult = "partial"
	// MatchFailed means no required unit could be drawn.
	MatchFailed MatchResult = "failed"
)

// MatchMode controls how rule failures affect bundle evaluation.
type MatchMode string

const (
	// RequireAll aborts on the first rule that does not fully succeed.
	RequireAll MatchMode = "require_all"
	// AllowPartial evaluates every rule and reports partial progress.
	AllowPartial MatchMode = "allow_partial"
)

// CategoryResolver answers category-membership lookups for a line item. A
// variant line belongs to a category when the variant or its parent product
// does. Implementations must return errors for lookup failures rather than a
// false membership, since the caller treats errors as fatal for the attempt.
type CategoryResolver interface {
	IsInCategory(ctx context.Context, productID uuid.UUID, variantID *uuid.UUID, categoryID uuid.UUID) (bool, error)
}

// ErrNoResolver is returned when a category rule is evaluated without a
// configured CategoryResolver.
var ErrNoResolver = errors.New("bundle: category resolver not configured")

// RuleOutcome reports how far a single rule got.
type RuleOutcome struct {
	Rule     Rule
	Result   MatchResult
	Matched  int
	Required int
}

// Outcome reports the result of matching one bundle against a set of line
// items. Remaining holds the post-match working set on succeeded or partial
// results; on a failed result it is the caller's original, unmodified items
// so the caller can retry safely. RawConsumedPrice is the pre-discount sum of
// unit prices drawn across all rules.
type Outcome struct {
	Bundle           Bundle
	Result           MatchResult
	Remaining        []LineItem
	RawConsumedPrice Money
	ProductRules     []RuleOutcome
	CategoryRules    []RuleOutcome
}

// ConsumedQuantity sums the units drawn across all rule outcomes.
func (o Outcome) ConsumedQuantity() int {
	total := 0
	for _, ro := range o.ProductRules {
		total += ro.Matched
	}
	for _, ro := range o.CategoryRules {
		total += ro.Matched
	}
	return total
}

// Matcher evaluates bundles against order line items. It holds no per-order
// state, so a single Matcher is safe for concurrent use across orders.
type Matcher struct {
	Categories CategoryResolver
	Now        func() time.Time
}

func (m *Matcher) now() time.Time {
	if m != nil && m.Now != nil {
		return m.Now()
	}
	return time.Now()
}

// Match evaluates one bundle against the given line items. Items are cloned
// into allocation units once; product rules run first, then category rules,
// each in declared order over the same shrinking working sequence, so a unit
// consumed by an earlier rule is unavailable to later rules. asOf anchors the
// active-window check (use the order's placement date for placed orders); a
// zero asOf means the matcher's clock.
func (m *Matcher) Match(ctx context.Context, b Bundle, items []LineItem, mode MatchMode, asOf time.Time) (Outcome, error) {
	failed := Outcome{Bundle: b, Result: MatchFailed, Remaining: items}
	if !b.Enabled {
		return failed, nil
	}
	if asOf.IsZero() {
		asOf = m.now()
	}
	if !b.ActiveAt(asOf) {
		return failed, nil
	}

	units := newAllocation(items)
	out := Outcome{Bundle: b}
	anyMatched := false
	allSucceeded := true

	run := func(rules []Rule, sink *[]RuleOutcome) (bool, error) {
		for _, r := range rules {
			var (
				ro       RuleOutcome
				consumed Money
				err      error
			)
			units, ro, consumed, err = m.matchRule(ctx, r, units)
			if err != nil {
				return false, err
			}
			*sink = append(*sink, ro)
			out.RawConsumedPrice += consumed
			if ro.Matched > 0 {
				anyMatched = true
			}
			if ro.Result != MatchSucceeded {
				allSucceeded = false
				if mode == RequireAll {
					return false, nil
				}
			}
		}
		return true, nil
	}

	cont, err := run(b.ProductRules, &out.ProductRules)
	if err != nil {
		return Outcome{}, err
	}
	if cont {
		if _, err := run(b.CategoryRules, &out.CategoryRules); err != nil {
			return Outcome{}, err
		}
	}

	switch {
	case allSucceeded:
		out.Result = MatchSucceeded
	case mode == AllowPartial && anyMatched:
		out.Result = MatchPartial
	default:
		failed.ProductRules = out.ProductRules
		failed.CategoryRules = out.CategoryRules
		return failed, nil
	}
	out.Remaining = residualItems(units)
	return out, nil
}

// matchRule draws up to r.Quantity units from the working sequence, first-fit
// in current order. No attempt is made to prefer cheaper or costlier
// qualifying units; keeping first-fit makes repeated price adjustments
// reproducible. Exhausted units are dropped from the returned sequence.
func (m *Matcher) matchRule(ctx context.Context, r Rule, units []*AllocationUnit) ([]*AllocationUnit, RuleOutcome, Money, error) {
	ro := RuleOutcome{Rule: r, Required: r.Quantity}
	var consumed Money

	out := units[:0]
	for _, u := range units {
		if ro.Matched < r.Quantity {
			ok, err := m.ruleMatches(ctx, r, u)
			if err != nil {
				return nil, RuleOutcome{}, 0, fmt.Errorf("bundle: match rule %s: %w", r.Kind, err)
			}
			if ok {
				take := r.Quantity - ro.Matched
				if take > u.Remaining {
					take = u.Remaining
				}
				u.Remaining -= take
				ro.Matched += take
				consumed += Money(take) * u.UnitPrice
			}
		}
		if u.Remaining > 0 {
			out = append(out, u)
		}
	}

	switch {
	case ro.Matched == r.Quantity:
		ro.Result = MatchSucceeded
	case ro.Matched > 0:
		ro.Result = MatchPartial
	default:
		ro.Result = MatchFailed
	}
	return out, ro, consumed, nil
}

func (m *Matcher) ruleMatches(ctx context.Context, r Rule, u *AllocationUnit) (bool, error) {
	switch r.Kind {
	case RuleProduct:
		// Variant lines resolve to the parent product identity.
		for _, id := range r.TargetIDs {
			if id == u.ProductID {
				return true, nil
			}
		}
		return false, nil
	case RuleCategory:
		if m == nil || m.Categories == nil {
			return false, ErrNoResolver
		}
		for _, id := range r.TargetIDs {
			in, err := m.Categories.IsInCategory(ctx, u.ProductID, u.VariantID, id)
			if err != nil {
				return false, err
			}
			if in {
				return true, nil
			}
		}
		return false, nil
	default:
		return false, fmt.Errorf("bundle: unknown rule kind %q", r.Kind)
	}
}
