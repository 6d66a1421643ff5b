package notify

import "sync"

// Logger defines the logging interface used by the bus and sinks.
type Logger interface {
	Debug(msg string, args ...any)
	Info(msg string, args ...any)
	Warn(msg string, args ...any)
	Error(msg string, args ...any)
}

type noopLogger struct{}

func (noopLogger) Debug(string, ...any) {}
func (noopLogger) Info(string, ...any)  {}
func (noopLogger) Warn(string, ...any)  {}
func (noopLogger) Error(string, ...any) {}

// Sink consumes notifications. Implementations must return quickly;
// anything slow belongs behind a buffered channel inside the sink.
type Sink interface {
	HandleNotification(kind string, detail map[string]any)
}

// Bus delivers each notification to every attached sink, in attach
// order. Implements the engine's Notifier interface.
//
// A panicking sink is logged and skipped; it cannot take down the
// execution loop or starve the other sinks. Safe for concurrent use.
type Bus struct {
	mu     sync.RWMutex
	sinks  []Sink
	logger Logger
}

// NewBus creates an empty notification bus.
func NewBus() *Bus {
	return &Bus{logger: noopLogger{}}
}

// SetLogger sets the logger for the bus.
func (b *Bus) SetLogger(logger Logger) {
	b.logger = logger
}

// Attach adds a sink. Attaching during delivery is safe; the new sink
// sees subsequent notifications.
func (b *Bus) Attach(sink Sink) {
	b.mu.Lock()
	b.sinks = append(b.sinks, sink)
	b.mu.Unlock()
}

// Detach removes a previously attached sink.
func (b *Bus) Detach(sink Sink) {
	b.mu.Lock()
	defer b.mu.Unlock()
	for i, s := range b.sinks {
		if s == sink {
			b.sinks = append(b.sinks[:i], b.sinks[i+1:]...)
			return
		}
	}
}

// Notify delivers one notification to every sink.
func (b *Bus) Notify(kind string, detail map[string]any) {
	b.mu.RLock()
	sinks := make([]Sink, len(b.sinks))
	copy(sinks, b.sinks)
	b.mu.RUnlock()

	for _, sink := range sinks {
		b.deliver(sink, kind, detail)
	}
}

func (b *Bus) deliver(sink Sink, kind string, detail map[string]any) {
	defer func() {
		if r := recover(); r != nil {
			b.logger.Error("notification sink panicked", "kind", kind, "panic", r)
		}
	}()
	sink.HandleNotification(kind, detail)
}
