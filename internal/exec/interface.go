// Package exec provides an interface for command execution.
package exec

import (
	"context"
	"time"
)

// Result describes a finished (or abandoned) command.
type Result struct {
	// ExitCode is the process exit status, -1 if the process never exited normally.
	ExitCode int
	// Output is the combined stdout/stderr.
	Output string
	// TimedOut is set when the timeout elapsed before the process exited.
	TimedOut bool
	// Duration is the wall time spent running the command.
	Duration time.Duration
}

// CommandRunner defines the interface for running external commands.
// This abstraction allows mocking command execution in tests.
type CommandRunner interface {
	// Run executes name with args in workDir, killing it after timeout
	// (no limit when timeout <= 0). A non-zero exit is reported through
	// Result.ExitCode, not as an error; the error is reserved for commands
	// that could not be started.
	Run(ctx context.Context, workDir string, timeout time.Duration, name string, args ...string) (Result, error)
}
