package persistence

import (
	"fmt"
	"sync"
	"time"

	"github.com/asaidimu/go-events"
	"github.com/google/uuid"
)

// EventBus fans store and report lifecycle events out to registered
// subscriptions. A nil *EventBus is valid and drops every event.
type EventBus struct {
	bus           *events.TypedEventBus[PersistenceEvent]
	subscriptions map[string]*SubscriptionInfo
	subMu         sync.RWMutex
}

// NewEventBus creates an event bus with the default delivery configuration.
func NewEventBus() (*EventBus, error) {
	bus, err := events.NewTypedEventBus[PersistenceEvent](events.DefaultConfig())
	if err != nil {
		return nil, fmt.Errorf("could not initialize event bus: %w", err)
	}
	return &EventBus{
		bus:           bus,
		subscriptions: make(map[string]*SubscriptionInfo),
	}, nil
}

// Emit publishes an event under its type.
func (b *EventBus) Emit(event PersistenceEvent) {
	if b == nil || b.bus == nil {
		return
	}
	b.bus.Emit(string(event.Type), event)
}

// RegisterSubscription registers a callback for a specific event. It returns
// a unique ID that can be used to unregister the subscription later.
func (b *EventBus) RegisterSubscription(options RegisterSubscriptionOptions) string {
	if b == nil || b.bus == nil {
		return ""
	}
	b.subMu.Lock()
	unsubscribe := b.bus.Subscribe(string(options.Event), options.Callback)
	id := uuid.New().String()

	b.subscriptions[id] = &SubscriptionInfo{
		Id:          &id,
		Event:       options.Event,
		Unsubscribe: unsubscribe,
		Label:       options.Label,
		Description: options.Description,
	}
	b.subMu.Unlock()

	b.Emit(createEvent(SubscriptionRegister, id, "register_subscription", "",
		map[string]any{"event": options.Event, "label": options.Label}, nil, nil, nil, time.Time{}))
	return id
}

// UnregisterSubscription removes a subscription by its ID.
func (b *EventBus) UnregisterSubscription(id string) {
	if b == nil {
		return
	}
	b.subMu.Lock()
	info, ok := b.subscriptions[id]
	if ok {
		info.Unsubscribe()
		delete(b.subscriptions, id)
	}
	b.subMu.Unlock()

	if ok {
		b.Emit(createEvent(SubscriptionUnregister, id, "unregister_subscription", "", nil, nil, nil, nil, time.Time{}))
	}
}

// Subscriptions returns a list of all currently active subscriptions.
func (b *EventBus) Subscriptions() []SubscriptionInfo {
	if b == nil {
		return nil
	}
	b.subMu.RLock()
	defer b.subMu.RUnlock()

	subs := make([]SubscriptionInfo, 0, len(b.subscriptions))
	for _, sub := range b.subscriptions {
		subs = append(subs, *sub)
	}
	return subs
}

// EventSet names the three events bracketing one operation.
type EventSet struct {
	Start, Success, Failed PersistenceEventType
}

var (
	QueryEvents  = EventSet{QueryStart, QuerySuccess, QueryFailed}
	UpdateEvents = EventSet{UpdateStart, UpdateSuccess, UpdateFailed}
	ReportEvents = EventSet{ReportStart, ReportSuccess, ReportFailed}
)

// WithEventEmission wraps an operation with start, success and failure
// events sharing one run id.
func WithEventEmission[T any](
	b *EventBus,
	set EventSet,
	operation string,
	collection string,
	input any,
	queryParam any,
	fn func() (T, error),
) (T, error) {
	startTime := time.Now()
	id := uuid.New().String()

	b.Emit(createEvent(set.Start, id, operation, collection, input, nil, queryParam, nil, startTime))

	result, err := fn()
	if err != nil {
		errStr := err.Error()
		b.Emit(createEvent(set.Failed, id, operation, collection, input, nil, queryParam, &errStr, startTime))
		return result, err
	}

	b.Emit(createEvent(set.Success, id, operation, collection, input, result, queryParam, nil, startTime))
	return result, nil
}
