package persistence

import (
	"context"
)

// PersistenceEventType defines the possible event types for store operations.
type PersistenceEventType string

const (
	QueryStart             PersistenceEventType = "query:start"
	QuerySuccess           PersistenceEventType = "query:success"
	QueryFailed            PersistenceEventType = "query:failed"
	UpdateStart            PersistenceEventType = "update:start"
	UpdateSuccess          PersistenceEventType = "update:success"
	UpdateFailed           PersistenceEventType = "update:failed"
	ReportStart            PersistenceEventType = "report:start"
	ReportSuccess          PersistenceEventType = "report:success"
	ReportFailed           PersistenceEventType = "report:failed"
	SubscriptionRegister   PersistenceEventType = "subscription:register"
	SubscriptionUnregister PersistenceEventType = "subscription:unregister"
)

// PersistenceEvent represents events emitted during store and report
// operations.
type PersistenceEvent struct {
	Type       PersistenceEventType `json:"type"`                 // The type of event (e.g., 'query:start').
	ID         string               `json:"id,omitempty"`         // Shared by the start and end events of one run.
	Timestamp  int64                `json:"timestamp"`            // Timestamp when the event occurred (Unix milliseconds).
	Operation  string               `json:"operation"`            // The operation being performed (e.g., 'select', 'soft_delete').
	Collection *string              `json:"collection,omitempty"` // Name of the collection affected (if applicable).
	Input      any                  `json:"input,omitempty"`      // Data passed to the operation (if applicable).
	Output     any                  `json:"output,omitempty"`     // Data returned by the operation (if applicable).
	Error      *string              `json:"error,omitempty"`      // Error message if the operation failed.
	Query      any                  `json:"query,omitempty"`      // Compiled statement used in the operation (if applicable).
	Duration   *int64               `json:"duration,omitempty"`   // Duration of the operation in milliseconds.
}

// EventCallbackFunction is invoked for every event a subscription matches.
type EventCallbackFunction func(ctx context.Context, event PersistenceEvent) error

// SubscriptionInfo describes a subscription configuration.
type SubscriptionInfo struct {
	Id          *string              `json:"id,omitempty"`
	Event       PersistenceEventType `json:"event"`
	Label       *string              `json:"label,omitempty"`
	Description *string              `json:"description,omitempty"`
	Unsubscribe func()               `json:"-"`
}

// RegisterSubscriptionOptions defines options for registering a subscription.
type RegisterSubscriptionOptions struct {
	Event       PersistenceEventType
	Label       *string
	Description *string
	Callback    EventCallbackFunction
}
