package events

import (
	"context"
	"errors"
	"log/slog"
	"sync"
)

// ErrRegistryFrozen is returned when a handler is registered after startup
// registration has completed.
var ErrRegistryFrozen = errors.New("handler registry is frozen")

// Handler reacts to a dispatched event log entry. Handlers are logging-only
// side-effect consumers; automation rules are evaluated separately.
type Handler interface {
	// Name identifies the handler in logs and error messages.
	Name() string

	// Handle processes the entry. A returned error is recorded on the
	// entry but never stops sibling handlers.
	Handle(ctx context.Context, entry *Entry) error
}

// HandlerFunc adapts a named function to the Handler interface.
type HandlerFunc struct {
	HandlerName string
	Fn          func(ctx context.Context, entry *Entry) error
}

func (h HandlerFunc) Name() string { return h.HandlerName }

func (h HandlerFunc) Handle(ctx context.Context, entry *Entry) error {
	return h.Fn(ctx, entry)
}

// Registry maps event types to handlers. It is constructed at process
// start, populated once, then frozen: there is no runtime unregistration.
type Registry struct {
	handlers map[Type][]Handler
	frozen   bool
	mu       sync.RWMutex
	logger   *slog.Logger
}

// NewRegistry creates an empty handler registry.
func NewRegistry(logger *slog.Logger) *Registry {
	if logger == nil {
		logger = slog.Default()
	}
	return &Registry{
		handlers: make(map[Type][]Handler),
		logger:   logger,
	}
}

// Register adds a handler for an event type. Handlers run in registration
// order. Registration fails once the registry is frozen.
func (r *Registry) Register(eventType Type, handler Handler) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if r.frozen {
		return ErrRegistryFrozen
	}

	r.handlers[eventType] = append(r.handlers[eventType], handler)
	r.logger.Debug("registered event handler",
		"event_type", eventType,
		"handler", handler.Name(),
	)
	return nil
}

// Freeze marks startup registration as complete. The registry is immutable
// afterwards for the lifetime of the process.
func (r *Registry) Freeze() {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.frozen = true
}

// HandlersFor returns the handlers registered for an event type, in
// registration order.
func (r *Registry) HandlersFor(eventType Type) []Handler {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.handlers[eventType]
}

// HandlerCount returns the total number of registered handlers.
func (r *Registry) HandlerCount() int {
	r.mu.RLock()
	defer r.mu.RUnlock()

	count := 0
	for _, hs := range r.handlers {
		count += len(hs)
	}
	return count
}
