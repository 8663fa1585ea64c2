package worker

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"

	"eventfeed/internal/domain/event"
)

var (
	ErrEventTypeRequired        = errors.New("event type is required")
	ErrHandlerRequired          = errors.New("event handler is required")
	ErrHandlerAlreadyRegistered = errors.New("event handler already registered")
	ErrHandlerNotRegistered     = errors.New("no handler registered for event type")
)

// Handler processes one event. It must be idempotent: cursor-mode delivery is
// at-least-once, and claim-mode can redeliver after a crash between commit
// and downstream effect.
type Handler func(ctx context.Context, e *event.Event) error

// Registry resolves handlers by event type, with an optional fallback for
// consumers that treat every event uniformly (audit, mirroring).
type Registry struct {
	mu       sync.RWMutex
	handlers map[string]Handler
	fallback Handler
}

func NewRegistry() *Registry {
	return &Registry{handlers: map[string]Handler{}}
}

// Register binds a handler to one event type. Duplicate registration is a
// wiring bug and fails loudly.
func (r *Registry) Register(eventType string, h Handler) error {
	eventType = strings.TrimSpace(eventType)
	if eventType == "" {
		return ErrEventTypeRequired
	}
	if h == nil {
		return ErrHandlerRequired
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	if _, exists := r.handlers[eventType]; exists {
		return fmt.Errorf("%w: %s", ErrHandlerAlreadyRegistered, eventType)
	}

	r.handlers[eventType] = h

	return nil
}

// RegisterDefault sets the fallback used when no per-type handler matches.
func (r *Registry) RegisterDefault(h Handler) error {
	if h == nil {
		return ErrHandlerRequired
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	if r.fallback != nil {
		return fmt.Errorf("%w: default", ErrHandlerAlreadyRegistered)
	}

	r.fallback = h

	return nil
}

// Handle dispatches e to its handler, resolved once per event.
func (r *Registry) Handle(ctx context.Context, e *event.Event) error {
	r.mu.RLock()
	h, ok := r.handlers[e.EventType]
	if !ok {
		h = r.fallback
	}
	r.mu.RUnlock()

	if h == nil {
		return fmt.Errorf("%w: %s", ErrHandlerNotRegistered, e.EventType)
	}

	return h(ctx, e)
}
