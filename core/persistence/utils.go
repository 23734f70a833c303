package persistence

import (
	"time"
)

func createEvent(
	eventType PersistenceEventType,
	id string,
	operation string,
	collectionName string,
	input any,
	output any,
	query any,
	err *string,
	startTime time.Time,
) PersistenceEvent {
	var duration *int64
	if !startTime.IsZero() {
		d := time.Since(startTime).Milliseconds()
		duration = &d
	}

	var collectionNamePtr *string
	if collectionName != "" {
		collectionNamePtr = &collectionName
	}

	return PersistenceEvent{
		Type:       eventType,
		ID:         id,
		Timestamp:  time.Now().UnixMilli(),
		Operation:  operation,
		Collection: collectionNamePtr,
		Input:      input,
		Output:     output,
		Error:      err,
		Query:      query,
		Duration:   duration,
	}
}
