package process

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"os"
	"os/exec"
	"sync"
	"syscall"
	"time"
)

// outputBufferSize caps how much of each output stream is kept per run.
const outputBufferSize = 4096

// Default durations applied to zero-valued Spec fields.
const (
	DefaultTimeout         = 10 * time.Second
	DefaultGracefulTimeout = 2 * time.Second
)

var (
	// ErrTimeout is returned when a run exceeds its timeout.
	ErrTimeout = errors.New("process: timed out")

	// ErrNonZeroExit is returned when the process exits with a non-zero status.
	ErrNonZeroExit = errors.New("process: non-zero exit status")
)

// Spec describes one invocation.
type Spec struct {
	// Name is a human-readable identifier for logging.
	Name string

	// Binary is the path to the executable (looked up in PATH if bare).
	Binary string

	// Args are command-line arguments to pass to the binary.
	Args []string

	// Env are additional environment variables (key=value format).
	// If nil, inherits from parent process.
	Env []string

	// WorkDir is the working directory for the process.
	// If empty, inherits from parent process.
	WorkDir string

	// Timeout bounds the whole run. Zero means DefaultTimeout.
	Timeout time.Duration

	// GracefulTimeout is how long to wait after SIGTERM before SIGKILL.
	// Zero means DefaultGracefulTimeout.
	GracefulTimeout time.Duration
}

// Result reports how a run ended.
type Result struct {
	ExitCode  int           `json:"exit_code"`
	Duration  time.Duration `json:"duration"`
	Stdout    string        `json:"stdout,omitempty"`
	Stderr    string        `json:"stderr,omitempty"`
	Truncated bool          `json:"truncated,omitempty"`
}

// Logger defines the logging interface for the runner.
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

// Runner executes one-shot child processes. It holds no per-run state and
// is safe for concurrent use.
type Runner struct {
	logger Logger
}

// NewRunner creates a runner with a no-op logger.
func NewRunner() *Runner {
	return &Runner{logger: noopLogger{}}
}

// SetLogger sets the logger for the runner.
func (r *Runner) SetLogger(logger Logger) {
	r.logger = logger
}

// Run starts the process described by spec and waits for it to exit.
//
// Errors:
//   - ErrNonZeroExit (wrapped) when the process ran but exited non-zero;
//     Result.ExitCode holds the status
//   - ErrTimeout when spec.Timeout elapsed; the process group was killed
//   - ctx.Err() when the caller cancelled; the process group was killed
//   - a wrapped start error when the binary could not be executed
func (r *Runner) Run(ctx context.Context, spec Spec) (Result, error) {
	if spec.Timeout <= 0 {
		spec.Timeout = DefaultTimeout
	}
	if spec.GracefulTimeout <= 0 {
		spec.GracefulTimeout = DefaultGracefulTimeout
	}
	if err := ctx.Err(); err != nil {
		return Result{ExitCode: -1}, err
	}

	runCtx, cancel := context.WithTimeout(ctx, spec.Timeout)
	defer cancel()

	cmd := exec.Command(spec.Binary, spec.Args...) //nolint:gosec // Binary comes from operator configuration

	// Own process group so the whole tree can be signalled.
	cmd.SysProcAttr = &syscall.SysProcAttr{Setpgid: true}
	if spec.Env != nil {
		cmd.Env = append(os.Environ(), spec.Env...)
	}
	if spec.WorkDir != "" {
		cmd.Dir = spec.WorkDir
	}

	stdout := &boundedBuffer{limit: outputBufferSize}
	stderr := &boundedBuffer{limit: outputBufferSize}
	cmd.Stdout = stdout
	cmd.Stderr = stderr
	// Stop waiting on output pipes held open by stray descendants.
	cmd.WaitDelay = spec.GracefulTimeout

	start := time.Now()
	if err := cmd.Start(); err != nil {
		return Result{ExitCode: -1}, fmt.Errorf("starting %s: %w", spec.Name, err)
	}
	pid := cmd.Process.Pid
	r.logger.Debug("process started", "name", spec.Name, "pid", pid, "args", spec.Args)

	exitCh := make(chan error, 1)
	go func() {
		exitCh <- cmd.Wait()
	}()

	var (
		waitErr     error
		interrupted bool
	)
	select {
	case waitErr = <-exitCh:
	case <-runCtx.Done():
		interrupted = true
		waitErr = r.terminate(spec, pid, exitCh)
	}

	res := Result{
		ExitCode:  exitCode(cmd, waitErr),
		Duration:  time.Since(start),
		Stdout:    stdout.String(),
		Stderr:    stderr.String(),
		Truncated: stdout.truncated || stderr.truncated,
	}

	if interrupted {
		if ctx.Err() != nil {
			r.logger.Warn("process cancelled", "name", spec.Name, "pid", pid, "duration", res.Duration)
			return res, ctx.Err()
		}
		r.logger.Warn("process timed out", "name", spec.Name, "pid", pid, "timeout", spec.Timeout)
		return res, fmt.Errorf("%w: %s after %s", ErrTimeout, spec.Name, spec.Timeout)
	}

	var exitErr *exec.ExitError
	if waitErr != nil && !errors.As(waitErr, &exitErr) {
		return res, fmt.Errorf("waiting for %s: %w", spec.Name, waitErr)
	}
	if res.ExitCode != 0 {
		r.logger.Debug("process exited non-zero",
			"name", spec.Name,
			"exit_code", res.ExitCode,
			"stderr", res.Stderr,
		)
		return res, fmt.Errorf("%w: %s exited with code %d", ErrNonZeroExit, spec.Name, res.ExitCode)
	}

	r.logger.Debug("process finished", "name", spec.Name, "duration", res.Duration)
	return res, nil
}

// terminate sends SIGTERM to the process group, waits for the graceful
// timeout, then sends SIGKILL. It returns the Wait result.
func (r *Runner) terminate(spec Spec, pid int, exitCh <-chan error) error {
	// Negative PID signals the process group created via Setpgid.
	if err := syscall.Kill(-pid, syscall.SIGTERM); err != nil && !errors.Is(err, syscall.ESRCH) {
		r.logger.Warn("failed to send SIGTERM to process group", "name", spec.Name, "error", err)
	}

	select {
	case err := <-exitCh:
		return err
	case <-time.After(spec.GracefulTimeout):
		r.logger.Warn("graceful shutdown timeout, sending SIGKILL",
			"name", spec.Name,
			"timeout", spec.GracefulTimeout,
		)
	}

	if err := syscall.Kill(-pid, syscall.SIGKILL); err != nil && !errors.Is(err, syscall.ESRCH) {
		r.logger.Error("failed to kill process group", "name", spec.Name, "error", err)
	}
	return <-exitCh
}

func exitCode(cmd *exec.Cmd, waitErr error) int {
	if cmd.ProcessState != nil {
		return cmd.ProcessState.ExitCode()
	}
	if waitErr != nil {
		return -1
	}
	return 0
}

// boundedBuffer keeps the first limit bytes written and discards the rest
// without failing the writer.
type boundedBuffer struct {
	mu        sync.Mutex
	buf       bytes.Buffer
	limit     int
	truncated bool
}

func (b *boundedBuffer) Write(p []byte) (int, error) {
	b.mu.Lock()
	defer b.mu.Unlock()

	room := b.limit - b.buf.Len()
	switch {
	case room <= 0:
		b.truncated = b.truncated || len(p) > 0
	case len(p) > room:
		b.buf.Write(p[:room])
		b.truncated = true
	default:
		b.buf.Write(p)
	}
	return len(p), nil
}

func (b *boundedBuffer) String() string {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.buf.String()
}
