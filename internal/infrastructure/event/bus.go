package event

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/marketlevy/backend/internal/domain/shared"
	"github.com/marketlevy/backend/internal/infrastructure/logger"
	"go.uber.org/zap"
)

// BusOption configures an InMemoryEventBus
type BusOption func(*InMemoryEventBus)

// WithAsyncDispatch makes Publish hand events to handlers on background
// goroutines. Stop waits for in-flight handlers.
func WithAsyncDispatch(async bool) BusOption {
	return func(b *InMemoryEventBus) { b.async = async }
}

// WithHandlerTimeout bounds each handler invocation. Zero disables the bound.
func WithHandlerTimeout(timeout time.Duration) BusOption {
	return func(b *InMemoryEventBus) { b.handlerTimeout = timeout }
}

// InMemoryEventBus fans levy events out to the audit trail and metrics
// handlers inside this process. Publishing never fails because of a handler:
// the payment or setup change is already committed when events go out.
type InMemoryEventBus struct {
	registry       *HandlerRegistry
	logger         *zap.Logger
	async          bool
	handlerTimeout time.Duration

	mu       sync.RWMutex // guards stopping against wg.Add
	stopping bool
	inflight sync.WaitGroup
}

func NewInMemoryEventBus(log *zap.Logger, opts ...BusOption) *InMemoryEventBus {
	if log == nil {
		log = zap.NewNop()
	}
	b := &InMemoryEventBus{registry: NewHandlerRegistry(), logger: log}
	for _, opt := range opts {
		opt(b)
	}
	return b
}

// Publish delivers each event to its handlers. Once Stop has begun, async
// buses deliver inline so nothing is dropped during shutdown.
func (b *InMemoryEventBus) Publish(ctx context.Context, events ...shared.DomainEvent) error {
	for _, e := range events {
		for _, h := range b.registry.Handlers(e.EventType()) {
			if !b.spawn(ctx, h, e) {
				b.deliver(ctx, h, e)
			}
		}
	}
	return nil
}

// spawn starts an async delivery, reporting false when the caller should
// deliver inline instead.
func (b *InMemoryEventBus) spawn(ctx context.Context, h shared.EventHandler, e shared.DomainEvent) bool {
	if !b.async {
		return false
	}
	b.mu.RLock()
	defer b.mu.RUnlock()
	if b.stopping {
		return false
	}
	// The request context is cancelled once the response is written
	detached := context.WithoutCancel(ctx)
	b.inflight.Add(1)
	go func() {
		defer b.inflight.Done()
		b.deliver(detached, h, e)
	}()
	return true
}

func (b *InMemoryEventBus) deliver(ctx context.Context, h shared.EventHandler, e shared.DomainEvent) {
	if b.handlerTimeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, b.handlerTimeout)
		defer cancel()
	}
	if err := invoke(ctx, h, e); err != nil {
		logger.L(ctx).Error("Event handler failed",
			zap.String("event_type", e.EventType()),
			zap.String("event_id", e.EventID().String()),
			zap.String("market_id", e.MarketID().String()),
			zap.Error(err),
		)
	}
}

// invoke turns a handler panic into an error.
func invoke(ctx context.Context, h shared.EventHandler, e shared.DomainEvent) (err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("handler panicked: %v", r)
		}
	}()
	return h.Handle(ctx, e)
}

// Subscribe registers a handler. Without explicit types the handler's own
// EventTypes are used.
func (b *InMemoryEventBus) Subscribe(handler shared.EventHandler, eventTypes ...string) {
	if len(eventTypes) == 0 {
		eventTypes = handler.EventTypes()
	}
	b.registry.Register(handler, eventTypes...)
	b.logger.Debug("Event handler subscribed", zap.Strings("event_types", eventTypes))
}

func (b *InMemoryEventBus) Unsubscribe(handler shared.EventHandler) {
	b.registry.Unregister(handler)
}

// EventTypes lists the event types that have an explicit subscriber
func (b *InMemoryEventBus) EventTypes() []string {
	return b.registry.EventTypes()
}

func (b *InMemoryEventBus) Start(context.Context) error {
	b.mu.Lock()
	b.stopping = false
	b.mu.Unlock()
	b.logger.Info("Event bus started", zap.Bool("async", b.async), zap.Strings("event_types", b.EventTypes()))
	return nil
}

// Stop waits for in-flight async handlers or until ctx is done
func (b *InMemoryEventBus) Stop(ctx context.Context) error {
	b.mu.Lock()
	b.stopping = true
	b.mu.Unlock()

	drained := make(chan struct{})
	go func() {
		b.inflight.Wait()
		close(drained)
	}()

	select {
	case <-drained:
		b.logger.Info("Event bus stopped")
		return nil
	case <-ctx.Done():
		b.logger.Warn("Event bus stopped before handlers drained")
		return ctx.Err()
	}
}

var _ shared.EventBus = (*InMemoryEventBus)(nil)
