package models

// Pollable is a record whose status changes on the server until it reaches a terminal value.
type Pollable interface {
	Terminal() bool
}

// NonTerminal reports whether r is still in progress.
func NonTerminal[T Pollable](r T) bool {
	return !r.Terminal()
}

// JobStatus is the lifecycle of a conversion [Job].
type JobStatus string

const (
	JobCreated    JobStatus = "CREATED"
	JobStarted    JobStatus = "STARTED"
	JobProcessing JobStatus = "PROCESSING"
	JobSuccess    JobStatus = "SUCCESS"
	JobError      JobStatus = "ERROR"
)

// Terminal reports whether no further transition is expected.
// Unknown values are treated as in progress.
func (s JobStatus) Terminal() bool {
	return s == JobSuccess || s == JobError
}

// ItemStatus is the lifecycle of a podcast [Item].
type ItemStatus string

const (
	ItemCreated ItemStatus = "CREATED"
	ItemSuccess ItemStatus = "SUCCESS"
	ItemError   ItemStatus = "ERROR"
)

func (s ItemStatus) Terminal() bool {
	return s == ItemSuccess || s == ItemError
}

// WebhookEventStatus is the delivery state of a [WebhookEvent].
type WebhookEventStatus string

const (
	WebhookEventActive  WebhookEventStatus = "ACTIVE"
	WebhookEventSuccess WebhookEventStatus = "SUCCESS"
	WebhookEventFailed  WebhookEventStatus = "FAILED"
)

func (s WebhookEventStatus) Terminal() bool {
	return s == WebhookEventSuccess || s == WebhookEventFailed
}

// EventType is a job lifecycle event a [Webhook] can subscribe to.
type EventType string

const (
	EventCreated EventType = "CREATED"
	EventStarted EventType = "STARTED"
	EventSuccess EventType = "SUCCESS"
	EventError   EventType = "ERROR"
)

// EventTypes lists every subscribable event in display order.
var EventTypes = []EventType{EventCreated, EventStarted, EventSuccess, EventError}

// Valid reports whether e is a known event.
func (e EventType) Valid() bool {
	for _, known := range EventTypes {
		if e == known {
			return true
		}
	}
	return false
}
