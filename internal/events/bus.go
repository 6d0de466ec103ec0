// Package events carries domain events out of the hub. Emission is
// fire-and-forget: a broken subscriber never fails the originating operation.
package events

import (
	"log/slog"
	"sync"
)

// Domain event names emitted by the hub
const (
	VehicleConnected        = "vehicle.connected"
	VehicleDisconnected     = "vehicle.disconnected"
	VehicleStatusUpdated    = "vehicle.status_updated"
	VehicleCommandSent      = "vehicle.command_sent"
	VehicleCommandCompleted = "vehicle.command_completed"
	ChargingStarted         = "charging.started"
	ChargingStopped         = "charging.stopped"
)

// Sink receives domain events
type Sink interface {
	Emit(event string, payload any)
}

// Handler processes one delivered event
type Handler func(event string, payload any)

// Bus is an in-process Sink that fans events out to subscribers
type Bus struct {
	mu       sync.RWMutex
	handlers map[string][]Handler
	any      []Handler // subscribers to every event
	logger   *slog.Logger
}

// NewBus creates an event bus
func NewBus(logger *slog.Logger) *Bus {
	if logger == nil {
		logger = slog.Default()
	}
	return &Bus{
		handlers: make(map[string][]Handler),
		logger:   logger,
	}
}

// Subscribe registers a handler for one event name
func (b *Bus) Subscribe(event string, handler Handler) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.handlers[event] = append(b.handlers[event], handler)
}

// SubscribeAll registers a handler for every event
func (b *Bus) SubscribeAll(handler Handler) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.any = append(b.any, handler)
}

// Emit delivers the event to all matching subscribers. Panicking handlers
// are logged and skipped so the emitting operation is never affected.
func (b *Bus) Emit(event string, payload any) {
	b.mu.RLock()
	handlers := make([]Handler, 0, len(b.handlers[event])+len(b.any))
	handlers = append(handlers, b.handlers[event]...)
	handlers = append(handlers, b.any...)
	b.mu.RUnlock()

	for _, handler := range handlers {
		b.deliver(event, payload, handler)
	}
}

func (b *Bus) deliver(event string, payload any, handler Handler) {
	defer func() {
		if r := recover(); r != nil {
			b.logger.Error("Event handler panicked",
				"component", "events",
				"event", event,
				"panic", r,
			)
		}
	}()
	handler(event, payload)
}

// NopSink discards every event. Used where no sink is configured.
type NopSink struct{}

// Emit discards the event
func (NopSink) Emit(event string, payload any) {}

var (
	_ Sink = (*Bus)(nil)
	_ Sink = NopSink{}
)
