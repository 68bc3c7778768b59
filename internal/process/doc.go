// Package process runs short-lived child processes with a hard deadline.
//
// It is used for helpers that do one job and exit, such as the RF
// transmitter script. Each run gets its own process group so that anything
// the helper spawns is terminated with it.
//
// Features:
//   - Per-run timeout on top of the caller's context
//   - SIGTERM to the whole process group, then SIGKILL after a grace period
//   - Bounded capture of stdout/stderr for diagnostics
//   - Exit status reported as a Result, never as a raw *exec.ExitError
//
// Example usage:
//
//	runner := process.NewRunner()
//	res, err := runner.Run(ctx, process.Spec{
//	    Name:    "transmitter",
//	    Binary:  "python3",
//	    Args:    []string{"trans-xy.py", "17", "111", "-b", "24", "-r", "5"},
//	    Timeout: 10 * time.Second,
//	})
//	if errors.Is(err, process.ErrTimeout) {
//	    // radio wedged; the process group has been killed
//	}
package process
