package transmitter

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"time"

	"github.com/nerrad567/rfsocket-core/internal/process"
)

// Radio parameter limits accepted by the transmitter executable.
const (
	MinBits = 4
	MaxBits = 256
)

// DefaultTimeout bounds one transmission when the configuration sets none.
const DefaultTimeout = 10 * time.Second

var (
	// ErrTransmitFailed is returned when the transmitter ran but reported failure.
	ErrTransmitFailed = errors.New("transmitter: transmission failed")

	// ErrTimeout is returned when a transmission did not finish in time.
	ErrTimeout = errors.New("transmitter: timed out")

	// ErrInvalidRequest is returned for a request the radio cannot send.
	ErrInvalidRequest = errors.New("transmitter: invalid request")
)

// Request is one code transmission.
type Request struct {
	Pin    int
	Code   int
	Bits   int
	Repeat int
}

// Validate checks that the request is within the radio's limits.
func (r Request) Validate() error {
	switch {
	case r.Code < 0:
		return fmt.Errorf("%w: code %d is negative", ErrInvalidRequest, r.Code)
	case r.Bits < MinBits || r.Bits > MaxBits:
		return fmt.Errorf("%w: bits %d outside [%d,%d]", ErrInvalidRequest, r.Bits, MinBits, MaxBits)
	case r.Repeat <= 0:
		return fmt.Errorf("%w: repeat %d must be positive", ErrInvalidRequest, r.Repeat)
	case r.Pin < 0:
		return fmt.Errorf("%w: pin %d is negative", ErrInvalidRequest, r.Pin)
	}
	return nil
}

// Args returns the positional arguments passed to the executable.
func (r Request) Args() []string {
	return []string{
		strconv.Itoa(r.Pin),
		strconv.Itoa(r.Code),
		"-b", strconv.Itoa(r.Bits),
		"-r", strconv.Itoa(r.Repeat),
	}
}

// Transmitter sends a code over the radio.
//
// Transmit returns nil only when the code was sent. Failures are
// ErrTransmitFailed, ErrTimeout, ErrInvalidRequest or a context error.
type Transmitter interface {
	Transmit(ctx context.Context, req Request) error
}

// Runner is the subset of process.Runner used by Command.
type Runner interface {
	Run(ctx context.Context, spec process.Spec) (process.Result, error)
}

// Logger defines the logging interface used by Command.
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

// Config holds settings for a Command transmitter.
type Config struct {
	// Binary is the executable to run, e.g. "python3".
	Binary string

	// Args are prepended to the request arguments, e.g. ["trans-xy.py"].
	Args []string

	// WorkDir is the working directory for the executable.
	WorkDir string

	// Timeout bounds one transmission. Zero means DefaultTimeout.
	Timeout time.Duration
}

// Command is a Transmitter that runs an external executable per request.
// It is safe for concurrent use; transmissions run one at a time.
type Command struct {
	cfg    Config
	runner Runner
	logger Logger

	// radio is a one-slot semaphore guarding the transmitter hardware.
	radio chan struct{}
}

// NewCommand creates a transmitter that executes cfg.Binary through runner.
func NewCommand(cfg Config, runner Runner) *Command {
	if cfg.Timeout <= 0 {
		cfg.Timeout = DefaultTimeout
	}
	return &Command{
		cfg:    cfg,
		runner: runner,
		logger: noopLogger{},
		radio:  make(chan struct{}, 1),
	}
}

// SetLogger sets the logger for the transmitter.
func (c *Command) SetLogger(logger Logger) {
	c.logger = logger
}

// Transmit implements Transmitter.
func (c *Command) Transmit(ctx context.Context, req Request) error {
	if err := req.Validate(); err != nil {
		return err
	}

	select {
	case c.radio <- struct{}{}:
	case <-ctx.Done():
		return ctx.Err()
	}
	defer func() { <-c.radio }()

	args := make([]string, 0, len(c.cfg.Args)+6)
	args = append(args, c.cfg.Args...)
	args = append(args, req.Args()...)

	res, err := c.runner.Run(ctx, process.Spec{
		Name:    "transmitter",
		Binary:  c.cfg.Binary,
		Args:    args,
		WorkDir: c.cfg.WorkDir,
		Timeout: c.cfg.Timeout,
	})

	switch {
	case err == nil:
		c.logger.Debug("code transmitted",
			"pin", req.Pin,
			"code", req.Code,
			"bits", req.Bits,
			"repeat", req.Repeat,
			"duration", res.Duration,
		)
		return nil
	case errors.Is(err, process.ErrTimeout):
		c.logger.Warn("transmission timed out", "code", req.Code, "timeout", c.cfg.Timeout)
		return fmt.Errorf("%w after %s", ErrTimeout, c.cfg.Timeout)
	case ctx.Err() != nil:
		return ctx.Err()
	case errors.Is(err, process.ErrNonZeroExit):
		c.logger.Warn("transmission failed",
			"code", req.Code,
			"exit_code", res.ExitCode,
			"stderr", res.Stderr,
		)
		return fmt.Errorf("%w: exit code %d", ErrTransmitFailed, res.ExitCode)
	default:
		c.logger.Error("transmitter could not run", "binary", c.cfg.Binary, "error", err)
		return fmt.Errorf("%w: %w", ErrTransmitFailed, err)
	}
}
