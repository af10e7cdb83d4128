package events

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/google/uuid"
)

// TopicAdjustmentCreated identifies the hook fired once per bundle adjustment.
const TopicAdjustmentCreated = "bundle.adjustment_created"

// AdjustmentEvent describes a pending bundle adjustment before it is
// finalised. Observers may rewrite Name, Description or Amount, or call
// Invalidate to drop the adjustment entirely. Dropping an adjustment does not
// affect how the allocator consumes line items.
type AdjustmentEvent struct {
	OrderID     uuid.UUID
	BundleID    uuid.UUID
	BundleName  string
	Name        string
	Description string
	Amount      int64
	Snapshot    json.RawMessage

	invalid bool
}

// Invalidate marks the adjustment as rejected.
func (e *AdjustmentEvent) Invalidate() { e.invalid = true }

// Valid reports whether the adjustment should still be emitted.
func (e *AdjustmentEvent) Valid() bool { return e != nil && !e.invalid }

// Observer reacts to pending adjustments. Returned errors are fatal for the
// adjustment pass; use Invalidate for an ordinary veto.
type Observer interface {
	AdjustmentCreated(ctx context.Context, ev *AdjustmentEvent) error
}

// ObserverFunc adapts a function to the Observer interface.
type ObserverFunc func(ctx context.Context, ev *AdjustmentEvent) error

// AdjustmentCreated implements Observer.
func (f ObserverFunc) AdjustmentCreated(ctx context.Context, ev *AdjustmentEvent) error {
	return f(ctx, ev)
}

// Bus fans a pending adjustment out to all configured observers, in order,
// synchronously. A nil Bus is a no-op.
type Bus struct {
	Observers []Observer
}

// EmitAdjustmentCreated dispatches the event to every observer. Observers
// still run after an earlier one invalidated the event, so each sees the
// complete picture; their errors are joined.
func (b *Bus) EmitAdjustmentCreated(ctx context.Context, ev *AdjustmentEvent) error {
	if b == nil || ev == nil {
		return nil
	}
	var joined error
	for _, observer := range b.Observers {
		if observer == nil {
			continue
		}
		if err := observer.AdjustmentCreated(ctx, ev); err != nil {
			joined = errors.Join(joined, fmt.Errorf("events: observer: %w", err))
		}
	}
	return joined
}
