package dispatch

import (
	"context"
	"time"

	"github.com/nerrad567/rfsocket-core/internal/apperr"
	"github.com/nerrad567/rfsocket-core/internal/events"
	"github.com/nerrad567/rfsocket-core/internal/socket"
	"github.com/nerrad567/rfsocket-core/internal/transmitter"
)

// FieldOnOff is the request field carrying the desired state.
const FieldOnOff = "on_off"

// Registry is the subset of socket.Registry the dispatcher reads.
type Registry interface {
	Resolve(ctx context.Context, ref socket.Ref) (*socket.Socket, error)
	Defaults(ctx context.Context) (socket.Defaults, error)
}

// Logger defines the logging interface used by the Dispatcher.
type Logger interface {
	Debug(msg string, args ...any)
	Info(msg string, args ...any)
	Warn(msg string, args ...any)
	Error(msg string, args ...any)
}

// noopLogger is a logger that does nothing.
type noopLogger struct{}

func (noopLogger) Debug(string, ...any) {}
func (noopLogger) Info(string, ...any)  {}
func (noopLogger) Warn(string, ...any)  {}
func (noopLogger) Error(string, ...any) {}

// Outcome describes a successful transmission.
type Outcome struct {
	SocketID   *int          `json:"socket_id,omitempty"`
	SocketName string        `json:"socket_name,omitempty"`
	Action     events.Action `json:"action"`
	Code       int           `json:"code"`
	Bits       int           `json:"bits"`
	Repeat     int           `json:"repeat"`
	Duration   time.Duration `json:"duration"`
}

// Dispatcher sends on/off commands to registered sockets.
// It is safe for concurrent use.
type Dispatcher struct {
	registry  Registry
	tx        transmitter.Transmitter
	pin       int
	logger    Logger
	publisher events.Publisher
}

// New creates a dispatcher transmitting on the given GPIO pin.
func New(registry Registry, tx transmitter.Transmitter, pin int) *Dispatcher {
	return &Dispatcher{
		registry:  registry,
		tx:        tx,
		pin:       pin,
		logger:    noopLogger{},
		publisher: events.Nop{},
	}
}

// SetLogger sets the logger for the dispatcher.
func (d *Dispatcher) SetLogger(logger Logger) {
	d.logger = logger
}

// SetPublisher sets where command events are sent.
func (d *Dispatcher) SetPublisher(p events.Publisher) {
	d.publisher = p
}

// SetSocketState switches the socket ref points at on or off.
//
// Errors:
//   - NOT_FOUND / INVALID_REQUEST from resolving ref; the transmitter is not
//     invoked
//   - SOCKET_ERROR when the transmission failed or timed out
func (d *Dispatcher) SetSocketState(ctx context.Context, ref socket.Ref, on bool) (Outcome, error) {
	s, err := d.registry.Resolve(ctx, ref)
	if err != nil {
		return Outcome{}, err
	}
	defaults, err := d.registry.Defaults(ctx)
	if err != nil {
		return Outcome{}, err
	}

	action, code := events.ActionOff, s.OffCode
	if on {
		action, code = events.ActionOn, s.OnCode
	}

	id := s.ID
	out := Outcome{
		SocketID:   &id,
		SocketName: s.Name,
		Action:     action,
		Code:       code,
		Bits:       s.EffectiveBits(defaults),
		Repeat:     s.EffectiveRepeat(defaults),
	}
	return d.send(ctx, events.TypeSocketCommand, out)
}

// AllOff transmits the registry's all-off code with the default bits and
// repeat.
func (d *Dispatcher) AllOff(ctx context.Context) (Outcome, error) {
	defaults, err := d.registry.Defaults(ctx)
	if err != nil {
		return Outcome{}, err
	}

	out := Outcome{
		Action: events.ActionAllOff,
		Code:   defaults.AllOffCode,
		Bits:   defaults.Bits,
		Repeat: defaults.Repeat,
	}
	return d.send(ctx, events.TypeAllOff, out)
}

func (d *Dispatcher) send(ctx context.Context, typ events.Type, out Outcome) (Outcome, error) {
	req := transmitter.Request{Pin: d.pin, Code: out.Code, Bits: out.Bits, Repeat: out.Repeat}

	start := time.Now()
	txErr := d.tx.Transmit(ctx, req)
	out.Duration = time.Since(start)

	cmd := &events.Command{
		Action:     out.Action,
		Code:       out.Code,
		Bits:       out.Bits,
		Repeat:     out.Repeat,
		Success:    txErr == nil,
		DurationMS: out.Duration.Milliseconds(),
	}
	if txErr != nil {
		cmd.Error = txErr.Error()
	}
	d.publisher.Publish(ctx, events.Event{
		Type:       typ,
		SocketID:   out.SocketID,
		SocketName: out.SocketName,
		Command:    cmd,
	})

	if txErr != nil {
		d.logger.Warn("socket command failed",
			"action", out.Action,
			"socket_name", out.SocketName,
			"code", out.Code,
			"error", txErr,
		)
		return Outcome{}, apperr.Wrap(apperr.KindSocketError, "error in transmit", txErr)
	}

	d.logger.Info("socket command sent",
		"action", out.Action,
		"socket_name", out.SocketName,
		"code", out.Code,
		"duration", out.Duration,
	)
	return out, nil
}

// ParseState converts a request's on_off value to a switch state.
// Anything other than "on" or "off" is an INVALID_REQUEST.
func ParseState(onOff string) (bool, error) {
	switch onOff {
	case "on":
		return true, nil
	case "off":
		return false, nil
	case "":
		return false, apperr.Invalid("on_off required").AddField(FieldOnOff, apperr.ReasonNotProvided)
	default:
		return false, apperr.Invalid("on_off must be on or off").AddField(FieldOnOff, apperr.ReasonInvalidValue)
	}
}
