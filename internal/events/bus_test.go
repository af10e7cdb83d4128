package events_test

import (
	"context"
	"errors"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/require"

	"github.com/noah-isme/bundle-engine/internal/events"
)

func pendingEvent() *events.AdjustmentEvent {
	return &events.AdjustmentEvent{
		OrderID:    uuid.New(),
		BundleID:   uuid.New(),
		BundleName: "Duo Deal",
		Name:       "Duo Deal",
		Amount:     -500,
	}
}

func TestEmitRunsObserversInOrder(t *testing.T) {
	var order []string
	bus := &events.Bus{Observers: []events.Observer{
		events.ObserverFunc(func(_ context.Context, ev *events.AdjustmentEvent) error {
			order = append(order, "first")
			ev.Name = "Renamed"
			return nil
		}),
		events.ObserverFunc(func(_ context.Context, ev *events.AdjustmentEvent) error {
			order = append(order, "second")
			// Later observers see earlier rewrites.
			require.Equal(t, "Renamed", ev.Name)
			return nil
		}),
	}}

	ev := pendingEvent()
	require.NoError(t, bus.EmitAdjustmentCreated(context.Background(), ev))
	require.Equal(t, []string{"first", "second"}, order)
	require.True(t, ev.Valid())
}

func TestEmitInvalidateVetoesEvent(t *testing.T) {
	bus := &events.Bus{Observers: []events.Observer{
		events.ObserverFunc(func(_ context.Context, ev *events.AdjustmentEvent) error {
			ev.Invalidate()
			return nil
		}),
	}}

	ev := pendingEvent()
	require.NoError(t, bus.EmitAdjustmentCreated(context.Background(), ev))
	require.False(t, ev.Valid())
}

func TestEmitJoinsObserverErrors(t *testing.T) {
	errFirst := errors.New("first failed")
	errSecond := errors.New("second failed")
	ran := 0
	bus := &events.Bus{Observers: []events.Observer{
		events.ObserverFunc(func(context.Context, *events.AdjustmentEvent) error {
			ran++
			return errFirst
		}),
		events.ObserverFunc(func(context.Context, *events.AdjustmentEvent) error {
			ran++
			return errSecond
		}),
	}}

	err := bus.EmitAdjustmentCreated(context.Background(), pendingEvent())
	require.ErrorIs(t, err, errFirst)
	require.ErrorIs(t, err, errSecond)
	require.Equal(t, 2, ran)
}

func TestEmitNilBusIsNoop(t *testing.T) {
	var bus *events.Bus
	require.NoError(t, bus.EmitAdjustmentCreated(context.Background(), pendingEvent()))
}
