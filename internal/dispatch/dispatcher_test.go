package dispatch

import (
	"context"
	"errors"
	"sync"
	"testing"

	"github.com/nerrad567/rfsocket-core/internal/apperr"
	"github.com/nerrad567/rfsocket-core/internal/events"
	"github.com/nerrad567/rfsocket-core/internal/socket"
	"github.com/nerrad567/rfsocket-core/internal/transmitter"
)

type fakeTransmitter struct {
	mu       sync.Mutex
	requests []transmitter.Request
	err      error
}

func (f *fakeTransmitter) Transmit(_ context.Context, req transmitter.Request) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.requests = append(f.requests, req)
	return f.err
}

type recordingPublisher struct {
	events []events.Event
}

func (p *recordingPublisher) Publish(_ context.Context, e events.Event) {
	p.events = append(p.events, e)
}

func intPtr(v int) *int { return &v }

// newFixture returns a dispatcher over a real registry holding the worked
// example's lamp (111/222, default bits and repeat) and a fan with its own
// radio parameters.
func newFixture(t *testing.T) (*Dispatcher, *fakeTransmitter, *recordingPublisher) {
	t.Helper()
	ctx := context.Background()

	reg := socket.NewRegistry(socket.NewDataset(t.TempDir(), socket.Defaults{Bits: 24, Repeat: 5, AllOffCode: 1234}))
	if err := reg.Load(ctx); err != nil {
		t.Fatalf("Load() error = %v", err)
	}
	for _, c := range []socket.Candidate{
		{Name: "lamp", OnCode: intPtr(111), OffCode: intPtr(222)},
		{Name: "fan", OnCode: intPtr(333), OffCode: intPtr(444), Bits: intPtr(32), Repeat: intPtr(9)},
	} {
		if _, err := reg.AddSocket(ctx, c); err != nil {
			t.Fatalf("AddSocket(%s) error = %v", c.Name, err)
		}
	}

	tx := &fakeTransmitter{}
	pub := &recordingPublisher{}
	d := New(reg, tx, 17)
	d.SetPublisher(pub)
	return d, tx, pub
}

func TestSetSocketState_CodeSelection(t *testing.T) {
	tests := []struct {
		name string
		ref  socket.Ref
		on   bool
		want transmitter.Request
	}{
		{"worked example on", socket.ByID(0), true, transmitter.Request{Pin: 17, Code: 111, Bits: 24, Repeat: 5}},
		{"off by name", socket.ByName("lamp"), false, transmitter.Request{Pin: 17, Code: 222, Bits: 24, Repeat: 5}},
		{"socket overrides defaults", socket.ByName("fan"), true, transmitter.Request{Pin: 17, Code: 333, Bits: 32, Repeat: 9}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			d, tx, _ := newFixture(t)

			out, err := d.SetSocketState(context.Background(), tt.ref, tt.on)
			if err != nil {
				t.Fatalf("SetSocketState() error = %v", err)
			}
			if len(tx.requests) != 1 {
				t.Fatalf("transmissions = %d, want 1", len(tx.requests))
			}
			if tx.requests[0] != tt.want {
				t.Errorf("request = %+v, want %+v", tx.requests[0], tt.want)
			}
			if out.Code != tt.want.Code {
				t.Errorf("Outcome.Code = %d, want %d", out.Code, tt.want.Code)
			}
		})
	}
}

func TestSetSocketState_MissingSocketNeverTransmits(t *testing.T) {
	d, tx, pub := newFixture(t)

	_, err := d.SetSocketState(context.Background(), socket.ByID(99), true)
	if !errors.Is(err, apperr.ErrNotFound) {
		t.Fatalf("error = %v, want NOT_FOUND", err)
	}
	_, err = d.SetSocketState(context.Background(), socket.Ref{}, true)
	if !errors.Is(err, apperr.ErrInvalidRequest) {
		t.Fatalf("error = %v, want INVALID_REQUEST", err)
	}

	if len(tx.requests) != 0 {
		t.Errorf("transmitter invoked %d times", len(tx.requests))
	}
	if len(pub.events) != 0 {
		t.Errorf("published %d events for unresolved sockets", len(pub.events))
	}
}

func TestSetSocketState_TransmitFailure(t *testing.T) {
	for _, txErr := range []error{transmitter.ErrTransmitFailed, transmitter.ErrTimeout} {
		t.Run(txErr.Error(), func(t *testing.T) {
			d, tx, pub := newFixture(t)
			tx.err = txErr

			_, err := d.SetSocketState(context.Background(), socket.ByID(0), true)
			if !errors.Is(err, apperr.ErrSocketError) {
				t.Fatalf("error = %v, want SOCKET_ERROR", err)
			}
			if !errors.Is(err, txErr) {
				t.Errorf("cause %v not preserved in %v", txErr, err)
			}
			if len(tx.requests) != 1 {
				t.Errorf("transmissions = %d, want exactly 1 (no retries)", len(tx.requests))
			}

			if len(pub.events) != 1 {
				t.Fatalf("published %d events, want 1", len(pub.events))
			}
			cmd := pub.events[0].Command
			if cmd == nil || cmd.Success || cmd.Error == "" {
				t.Errorf("failure event command = %+v", cmd)
			}
		})
	}
}

func TestSetSocketState_PublishesCommandEvent(t *testing.T) {
	d, _, pub := newFixture(t)

	if _, err := d.SetSocketState(context.Background(), socket.ByName("lamp"), false); err != nil {
		t.Fatal(err)
	}

	if len(pub.events) != 1 {
		t.Fatalf("published %d events, want 1", len(pub.events))
	}
	e := pub.events[0]
	if e.Type != events.TypeSocketCommand || e.SocketName != "lamp" || e.SocketID == nil || *e.SocketID != 0 {
		t.Errorf("event = %+v", e)
	}
	if e.Command.Action != events.ActionOff || e.Command.Code != 222 || !e.Command.Success {
		t.Errorf("command = %+v", e.Command)
	}
}

func TestAllOff(t *testing.T) {
	d, tx, pub := newFixture(t)

	out, err := d.AllOff(context.Background())
	if err != nil {
		t.Fatalf("AllOff() error = %v", err)
	}

	want := transmitter.Request{Pin: 17, Code: 1234, Bits: 24, Repeat: 5}
	if len(tx.requests) != 1 || tx.requests[0] != want {
		t.Errorf("requests = %+v, want [%+v]", tx.requests, want)
	}
	if out.SocketID != nil {
		t.Error("all-off outcome names a socket")
	}
	if len(pub.events) != 1 || pub.events[0].Type != events.TypeAllOff {
		t.Errorf("events = %+v", pub.events)
	}
}

func TestParseState(t *testing.T) {
	tests := []struct {
		in         string
		want       bool
		wantReason *apperr.Reason
	}{
		{"on", true, nil},
		{"off", false, nil},
		{"ON", false, reason(apperr.ReasonInvalidValue)},
		{"toggle", false, reason(apperr.ReasonInvalidValue)},
		{"", false, reason(apperr.ReasonNotProvided)},
	}

	for _, tt := range tests {
		got, err := ParseState(tt.in)
		if tt.wantReason == nil {
			if err != nil || got != tt.want {
				t.Errorf("ParseState(%q) = %v, %v", tt.in, got, err)
			}
			continue
		}
		e, ok := apperr.As(err)
		if !ok || e.Kind != apperr.KindInvalidRequest || !e.Has(FieldOnOff, *tt.wantReason) {
			t.Errorf("ParseState(%q) error = %v", tt.in, err)
		}
	}
}

func reason(r apperr.Reason) *apperr.Reason { return &r }
