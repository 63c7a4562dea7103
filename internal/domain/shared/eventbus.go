package shared

import "context"

// EventHandler reacts to published levy events. Errors it returns are logged
// by the bus; the publishing operation has already succeeded by then.
type EventHandler interface {
	Handle(ctx context.Context, event DomainEvent) error
	// EventTypes lists the event types to deliver. Empty means every type.
	EventTypes() []string
}

// EventPublisher is what the application services depend on.
type EventPublisher interface {
	Publish(ctx context.Context, events ...DomainEvent) error
}

// Subscriber manages handler registration. Handlers are compared by
// identity, so pass pointers.
type Subscriber interface {
	Subscribe(handler EventHandler, eventTypes ...string)
	Unsubscribe(handler EventHandler)
}

// EventBus is the process-wide publisher with a start/stop lifecycle.
type EventBus interface {
	EventPublisher
	Subscriber
	Start(ctx context.Context) error
	Stop(ctx context.Context) error
}
