package adjuster

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"go.opentelemetry.io/otel/attribute"

	"github.com/noah-isme/bundle-engine/internal/bundle"
	"github.com/noah-isme/bundle-engine/internal/events"
	"github.com/noah-isme/bundle-engine/internal/obs"
)

// AdjustmentType tags every adjustment produced by this engine.
const AdjustmentType = "bundle"

// Adjustment is one price adjustment for the host order-pricing pipeline.
// Amount is always negative; the engine never writes order totals itself.
type Adjustment struct {
	Type           string          `json:"type"`
	Name           string          `json:"name"`
	Description    string          `json:"description"`
	SourceSnapshot json.RawMessage `json:"source_snapshot"`
	Amount         bundle.Money    `json:"amount"`
}

// Order is the engine's read-only view of the order under adjustment. A nil
// PlacedAt means the order is still open and active windows are checked
// against the clock.
type Order struct {
	ID       uuid.UUID
	PlacedAt *time.Time
	Items    []bundle.LineItem
}

// BundleSource lists the bundles eligible for matching, in sort order.
type BundleSource interface {
	ListActiveBundles(ctx context.Context, asOf time.Time) ([]bundle.Bundle, error)
}

// Service applies bundles to orders greedily: per bundle, it matches in
// require-all mode against a live residual pool until no further match is
// found, recording one adjustment per successful match.
type Service struct {
	Bundles BundleSource
	Matcher *bundle.Matcher
	Hooks   *events.Bus
	Logger  zerolog.Logger
	Now     func() time.Time

	// CrossBundlePooling threads the residual pool forward across bundles, so
	// a unit consumed by an earlier bundle is unavailable to later ones. When
	// false (the default) each bundle independently re-scans the order's
	// original line items.
	CrossBundlePooling bool
}

func (s *Service) now() time.Time {
	if s != nil && s.Now != nil {
		return s.Now()
	}
	return time.Now()
}

// Adjust produces the ordered sequence of bundle adjustments for the order.
// A resolver or bundle-source failure aborts the whole pass; it is never
// folded into a silent "no match".
func (s *Service) Adjust(ctx context.Context, order Order) ([]Adjustment, error) {
	if s == nil || s.Bundles == nil || s.Matcher == nil {
		return nil, errors.New("adjuster: service not configured")
	}
	start := time.Now()
	ctx, span := obs.Tracer().Start(ctx, "bundle.adjust")
	defer span.End()
	span.SetAttributes(attribute.String("order.id", order.ID.String()))

	asOf := s.now()
	if order.PlacedAt != nil {
		asOf = *order.PlacedAt
	}

	bundles, err := s.Bundles.ListActiveBundles(ctx, asOf)
	if err != nil {
		return nil, fmt.Errorf("adjuster: list active bundles: %w", err)
	}

	var adjustments []Adjustment
	pool := order.Items
	for _, b := range bundles {
		available := order.Items
		if s.CrossBundlePooling {
			available = pool
		}
		available, applied, err := s.applyBundle(ctx, order, b, available)
		if err != nil {
			return nil, err
		}
		adjustments = append(adjustments, applied...)
		pool = available
	}

	observeDuration(time.Since(start))
	span.SetAttributes(attribute.Int("bundle.adjustments", len(adjustments)))
	s.Logger.Debug().
		Str("order_id", order.ID.String()).
		Int("bundles", len(bundles)).
		Int("adjustments", len(adjustments)).
		Msg("bundle_adjust_pass")
	return adjustments, nil
}

// applyBundle repeatedly matches one bundle against the available pool. The
// same bundle may apply multiple times to one order when the order carries
// several complete sets of its contents.
func (s *Service) applyBundle(ctx context.Context, order Order, b bundle.Bundle, available []bundle.LineItem) ([]bundle.LineItem, []Adjustment, error) {
	var applied []Adjustment
	for {
		out, err := s.Matcher.Match(ctx, b, available, bundle.RequireAll, matchAsOf(order))
		if err != nil {
			return nil, nil, fmt.Errorf("adjuster: match bundle %s: %w", b.ID, err)
		}
		countAttempt(out.Result)
		if out.Result != bundle.MatchSucceeded {
			break
		}
		if out.ConsumedQuantity() == 0 {
			// A bundle that consumes nothing would match forever.
			break
		}
		available = out.Remaining

		discount := discountFor(b, out.RawConsumedPrice)
		if discount <= 0 {
			countAdjustment("suppressed")
			continue
		}
		adj, ok, err := s.finalize(ctx, order, b, discount)
		if err != nil {
			return nil, nil, err
		}
		if !ok {
			continue
		}
		applied = append(applied, adj)
		s.Logger.Info().
			Str("order_id", order.ID.String()).
			Str("bundle_id", b.ID.String()).
			Int64("raw_consumed", out.RawConsumedPrice).
			Int64("amount", adj.Amount).
			Msg("bundle_adjustment")
	}
	return available, applied, nil
}

// finalize runs the cancellable hook and builds the adjustment record.
// Observers may veto the adjustment or rewrite its name, description and
// amount; a rewrite to a non-negative amount suppresses it.
func (s *Service) finalize(ctx context.Context, order Order, b bundle.Bundle, discount bundle.Money) (Adjustment, bool, error) {
	snapshot, err := json.Marshal(b)
	if err != nil {
		return Adjustment{}, false, fmt.Errorf("adjuster: snapshot bundle %s: %w", b.ID, err)
	}
	ev := &events.AdjustmentEvent{
		OrderID:     order.ID,
		BundleID:    b.ID,
		BundleName:  b.Name,
		Name:        b.Name,
		Description: b.Description,
		Amount:      -discount,
		Snapshot:    snapshot,
	}
	if err := s.Hooks.EmitAdjustmentCreated(ctx, ev); err != nil {
		return Adjustment{}, false, fmt.Errorf("adjuster: adjustment hook: %w", err)
	}
	if !ev.Valid() {
		countAdjustment("vetoed")
		s.Logger.Debug().
			Str("order_id", order.ID.String()).
			Str("bundle_id", b.ID.String()).
			Msg("bundle_adjustment_vetoed")
		return Adjustment{}, false, nil
	}
	if ev.Amount >= 0 {
		countAdjustment("suppressed")
		return Adjustment{}, false, nil
	}
	countAdjustment("emitted")
	observeDiscount(-ev.Amount)
	return Adjustment{
		Type:           AdjustmentType,
		Name:           ev.Name,
		Description:    ev.Description,
		SourceSnapshot: ev.Snapshot,
		Amount:         ev.Amount,
	}, true, nil
}

// discountFor computes the discount for one successful match. Fixed-price
// bundles discount the consumed items down to the bundle price; percent
// bundles take a basis-point share of the raw consumed price. Anything
// non-positive is suppressed so an adjustment never makes the order worse.
func discountFor(b bundle.Bundle, raw bundle.Money) bundle.Money {
	switch b.PricingMode {
	case bundle.PricingPercent:
		if b.PercentBps <= 0 {
			return 0
		}
		return raw * bundle.Money(b.PercentBps) / 10000
	default:
		d := raw - b.Price
		if d < 0 {
			return 0
		}
		return d
	}
}

func matchAsOf(order Order) time.Time {
	if order.PlacedAt != nil {
		return *order.PlacedAt
	}
	return time.Time{}
}

func countAttempt(result bundle.MatchResult) {
	if obs.MatchAttemptsTotal != nil {
		obs.MatchAttemptsTotal.WithLabelValues(string(result)).Inc()
	}
}

func countAdjustment(disposition string) {
	if obs.AdjustmentsTotal != nil {
		obs.AdjustmentsTotal.WithLabelValues(disposition).Inc()
	}
}

func observeDiscount(amount bundle.Money) {
	if obs.DiscountMinorUnitsTotal != nil {
		obs.DiscountMinorUnitsTotal.Add(float64(amount))
	}
}

func observeDuration(d time.Duration) {
	if obs.MatchDuration != nil {
		obs.MatchDuration.Observe(obs.DurationMillis(d))
	}
}
