package persistence

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestEventBus_Subscriptions(t *testing.T) {
	bus, err := NewEventBus()
	require.NoError(t, err)

	label := "audit"
	id := bus.RegisterSubscription(RegisterSubscriptionOptions{
		Event:    ReportSuccess,
		Label:    &label,
		Callback: func(ctx context.Context, event PersistenceEvent) error { return nil },
	})
	assert.NotEmpty(t, id)

	subs := bus.Subscriptions()
	require.Len(t, subs, 1)
	assert.Equal(t, id, *subs[0].Id)
	assert.Equal(t, ReportSuccess, subs[0].Event)
	assert.Equal(t, "audit", *subs[0].Label)

	bus.UnregisterSubscription(id)
	assert.Empty(t, bus.Subscriptions())

	bus.UnregisterSubscription("missing")
}

func TestEventBus_NilIsSafe(t *testing.T) {
	var bus *EventBus
	bus.Emit(PersistenceEvent{Type: QueryStart})
	assert.Empty(t, bus.RegisterSubscription(RegisterSubscriptionOptions{Event: QueryStart}))
	assert.Nil(t, bus.Subscriptions())
	bus.UnregisterSubscription("x")
}

func TestWithEventEmission(t *testing.T) {
	bus, err := NewEventBus()
	require.NoError(t, err)

	var mu sync.Mutex
	events := map[PersistenceEventType]PersistenceEvent{}
	for _, eventType := range []PersistenceEventType{ReportStart, ReportSuccess, ReportFailed} {
		bus.RegisterSubscription(RegisterSubscriptionOptions{
			Event: eventType,
			Callback: func(ctx context.Context, event PersistenceEvent) error {
				mu.Lock()
				defer mu.Unlock()
				events[event.Type] = event
				return nil
			},
		})
	}

	result, err := WithEventEmission(bus, ReportEvents, "study", "snapshots", nil, nil, func() (int, error) {
		return 42, nil
	})
	require.NoError(t, err)
	assert.Equal(t, 42, result)

	_, err = WithEventEmission(bus, ReportEvents, "study", "snapshots", nil, nil, func() (int, error) {
		return 0, errors.New("boom")
	})
	require.Error(t, err)

	assert.Eventually(t, func() bool {
		mu.Lock()
		defer mu.Unlock()
		return len(events) == 3
	}, time.Second, 10*time.Millisecond)

	mu.Lock()
	defer mu.Unlock()
	assert.Equal(t, 42, events[ReportSuccess].Output)
	require.NotNil(t, events[ReportFailed].Error)
	assert.Equal(t, "boom", *events[ReportFailed].Error)
	assert.Equal(t, "snapshots", *events[ReportStart].Collection)
	assert.NotEmpty(t, events[ReportStart].ID)
}
