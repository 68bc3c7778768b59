package events

import (
	"context"
	"encoding/json"
	"errors"
	"sync"
	"testing"
)

type recordingSink struct {
	mu     sync.Mutex
	events []Event
	err    error
}

func (s *recordingSink) Handle(_ context.Context, e Event) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.events = append(s.events, e)
	return s.err
}

type ctxSink struct {
	err   error
	actor string
}

func (s *ctxSink) Handle(ctx context.Context, _ Event) error {
	s.err, s.actor = ctx.Err(), ActorFrom(ctx)
	return nil
}

type captureLogger struct {
	mu    sync.Mutex
	warns int
}

func (l *captureLogger) Warn(string, ...any) {
	l.mu.Lock()
	l.warns++
	l.mu.Unlock()
}

func TestBus_PublishStampsEvent(t *testing.T) {
	bus := NewBus()
	sink := &recordingSink{}
	bus.AddSink("rec", sink)

	ctx := WithActor(context.Background(), "user-1")
	bus.Publish(ctx, ForSocket(TypeSocketCreated, 4, "lamp"))

	if len(sink.events) != 1 {
		t.Fatalf("sink received %d events, want 1", len(sink.events))
	}
	e := sink.events[0]
	if e.ID == "" {
		t.Error("event ID not set")
	}
	if e.Timestamp.IsZero() {
		t.Error("event Timestamp not set")
	}
	if e.Actor != "user-1" {
		t.Errorf("Actor = %q, want %q", e.Actor, "user-1")
	}
	if e.SocketID == nil || *e.SocketID != 4 {
		t.Errorf("SocketID = %v, want 4", e.SocketID)
	}
}

func TestBus_SinkErrorsAreLoggedNotPropagated(t *testing.T) {
	bus := NewBus()
	logger := &captureLogger{}
	bus.SetLogger(logger)

	failing := &recordingSink{err: errors.New("broker down")}
	healthy := &recordingSink{}
	bus.AddSink("failing", failing)
	bus.AddSink("healthy", healthy)

	bus.Publish(context.Background(), Event{Type: TypeAllOff})

	if len(healthy.events) != 1 {
		t.Error("later sink not called after earlier sink failed")
	}
	if logger.warns != 1 {
		t.Errorf("warns = %d, want 1", logger.warns)
	}
}

func TestBus_SinksOutliveCancelledContext(t *testing.T) {
	bus := NewBus()
	sink := &ctxSink{}
	bus.AddSink("ctx", sink)

	ctx, cancel := context.WithCancel(WithActor(context.Background(), "alice"))
	cancel()
	bus.Publish(ctx, ForSocket(TypeSocketCommand, 1, "lamp"))

	if sink.err != nil {
		t.Errorf("sink context error = %v, want nil", sink.err)
	}
	if sink.actor != "alice" {
		t.Errorf("sink context actor = %q, want %q", sink.actor, "alice")
	}
}

type fakeMQTT struct {
	topic    string
	payload  []byte
	qos      byte
	retained bool
}

func (f *fakeMQTT) Publish(topic string, payload []byte, qos byte, retained bool) error {
	f.topic, f.payload, f.qos, f.retained = topic, payload, qos, retained
	return nil
}

func TestMQTTSink(t *testing.T) {
	client := &fakeMQTT{}
	sink := NewMQTTSink(client, func(e Event) string { return "events/" + string(e.Type) }, 1)

	e := ForSocket(TypeSocketCommand, 2, "fan")
	e.Command = &Command{Action: ActionOn, Code: 111, Bits: 24, Repeat: 5, Success: true}
	if err := sink.Handle(context.Background(), e); err != nil {
		t.Fatalf("Handle() error = %v", err)
	}

	if client.topic != "events/socket.command" {
		t.Errorf("topic = %q", client.topic)
	}
	if client.retained {
		t.Error("event published as retained")
	}

	var decoded Event
	if err := json.Unmarshal(client.payload, &decoded); err != nil {
		t.Fatalf("payload not JSON: %v", err)
	}
	if decoded.Command == nil || decoded.Command.Code != 111 {
		t.Errorf("decoded command = %+v", decoded.Command)
	}
}

type fakeMetricWriter struct {
	calls    int
	socketID string
	action   string
	success  bool
}

func (f *fakeMetricWriter) WriteCommandMetric(socketID, action string, success bool, _, _, _ int, _ int64) {
	f.calls++
	f.socketID, f.action, f.success = socketID, action, success
}

func TestInfluxSink(t *testing.T) {
	w := &fakeMetricWriter{}
	sink := NewInfluxSink(w)

	// Registry events carry no command and are skipped.
	sink.Handle(context.Background(), ForSocket(TypeSocketDeleted, 1, "lamp"))
	if w.calls != 0 {
		t.Fatalf("calls = %d for registry event, want 0", w.calls)
	}

	sink.Handle(context.Background(), Event{
		Type:    TypeAllOff,
		Command: &Command{Action: ActionAllOff, Code: 1234, Success: false},
	})
	if w.calls != 1 || w.socketID != "all" || w.action != "all_off" || w.success {
		t.Errorf("unexpected write: %+v", w)
	}
}
