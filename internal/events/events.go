package events

import (
	"context"
	"sync"
	"time"

	"github.com/google/uuid"
)

// Type identifies what happened.
type Type string

const (
	TypeSocketCreated Type = "socket.created"
	TypeSocketDeleted Type = "socket.deleted"
	TypeSocketCommand Type = "socket.command"
	TypeAllOff        Type = "socket.all_off"
)

// Action is the radio command carried by a command event.
type Action string

const (
	ActionOn     Action = "on"
	ActionOff    Action = "off"
	ActionAllOff Action = "all_off"
)

// Command describes a single transmission attempt.
type Command struct {
	Action     Action `json:"action"`
	Code       int    `json:"code"`
	Bits       int    `json:"bits"`
	Repeat     int    `json:"repeat"`
	Success    bool   `json:"success"`
	Error      string `json:"error,omitempty"`
	DurationMS int64  `json:"duration_ms"`
}

// Event is a single registry or dispatch occurrence.
type Event struct {
	ID         string    `json:"id"`
	Type       Type      `json:"type"`
	SocketID   *int      `json:"socket_id,omitempty"`
	SocketName string    `json:"socket_name,omitempty"`
	Command    *Command  `json:"command,omitempty"`
	Actor      string    `json:"actor,omitempty"`
	Timestamp  time.Time `json:"timestamp"`
}

// ForSocket returns an event of type t about the given socket.
func ForSocket(t Type, id int, name string) Event {
	return Event{Type: t, SocketID: &id, SocketName: name}
}

// Publisher accepts events. The registry and dispatcher depend on this
// interface rather than on Bus.
type Publisher interface {
	Publish(ctx context.Context, e Event)
}

// Nop is a Publisher that discards events.
type Nop struct{}

// Publish implements Publisher.
func (Nop) Publish(context.Context, Event) {}

// Sink receives published events.
type Sink interface {
	Handle(ctx context.Context, e Event) error
}

// SinkFunc adapts a function to Sink.
type SinkFunc func(ctx context.Context, e Event) error

// Handle implements Sink.
func (f SinkFunc) Handle(ctx context.Context, e Event) error {
	return f(ctx, e)
}

// Logger defines the logging interface used by the Bus.
type Logger interface {
	Warn(msg string, args ...any)
}

type noopLogger struct{}

func (noopLogger) Warn(string, ...any) {}

type namedSink struct {
	name string
	sink Sink
}

// Bus delivers events to every registered sink, in registration order.
//
// Delivery is synchronous; sinks are expected to hand off slow work
// (InfluxDB batches, WebSocket fan-out) rather than block.
//
// All public methods are thread-safe.
type Bus struct {
	mu     sync.RWMutex
	sinks  []namedSink
	logger Logger
	now    func() time.Time
}

// NewBus creates an empty bus.
func NewBus() *Bus {
	return &Bus{
		logger: noopLogger{},
		now:    func() time.Time { return time.Now().UTC() },
	}
}

// SetLogger sets the logger used to report sink failures.
func (b *Bus) SetLogger(logger Logger) {
	b.logger = logger
}

// AddSink registers a sink under a name used in log output.
func (b *Bus) AddSink(name string, sink Sink) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.sinks = append(b.sinks, namedSink{name: name, sink: sink})
}

// Publish stamps e with an ID, timestamp and the context's actor (when
// missing) and hands it to every sink. Sinks get a context that keeps
// ctx's values but not its cancellation, so an event for an operation
// that already happened is recorded even if the caller has gone away.
func (b *Bus) Publish(ctx context.Context, e Event) {
	ctx = context.WithoutCancel(ctx)
	if e.ID == "" {
		e.ID = uuid.NewString()
	}
	if e.Timestamp.IsZero() {
		e.Timestamp = b.now()
	}
	if e.Actor == "" {
		e.Actor = ActorFrom(ctx)
	}

	b.mu.RLock()
	sinks := make([]namedSink, len(b.sinks))
	copy(sinks, b.sinks)
	b.mu.RUnlock()

	for _, s := range sinks {
		if err := s.sink.Handle(ctx, e); err != nil {
			b.logger.Warn("event sink failed",
				"sink", s.name,
				"event_type", e.Type,
				"event_id", e.ID,
				"error", err,
			)
		}
	}
}

type actorKey struct{}

// WithActor records who is acting in ctx; events published under ctx carry it.
func WithActor(ctx context.Context, actor string) context.Context {
	return context.WithValue(ctx, actorKey{}, actor)
}

// ActorFrom returns the actor stored by WithActor, or "".
func ActorFrom(ctx context.Context) string {
	if v, ok := ctx.Value(actorKey{}).(string); ok {
		return v
	}
	return ""
}
