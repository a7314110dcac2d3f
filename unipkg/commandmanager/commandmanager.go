package commandmanager

import (
	"context"
	"errors"
	"time"
)

// ErrCancelled reports that a command was interrupted by the operator
// before it finished. Callers treat it as a clean failure, not a fault.
var ErrCancelled = errors.New("command cancelled")

// CommandConfig describes a single external command invocation.
type CommandConfig struct {
	Command string
	Args    []string

	// Sudo runs the command through sudo -S, piping the configured
	// sudo password on stdin.
	Sudo bool

	// Env entries ("KEY=value") are appended to the inherited environment.
	Env []string

	// Dir is the working directory for the command. Empty means inherit.
	Dir string

	// Interactive connects the command to the operator's terminal instead
	// of capturing output. STDOUT/STDERR in the result are empty in this
	// mode; the child process streams its own progress.
	Interactive bool
}

// CommandResult encapsulates the results from a command execution.
type CommandResult struct {
	Command   string
	STDOUT    string
	STDERR    string
	ExitCode  int
	Duration  time.Duration
	Timestamp time.Time
}

// Credentials holds authentication material for remote and privileged runs.
type Credentials struct {
	User          string
	Password      string
	KeyPassphrase string
	SudoPassword  string
}

// CommandManager provides methods to execute commands, both locally and
// on a remote host over SSH.
type CommandManager interface {
	// Run dispatches to RunLocal or RunRemote based on the configured host.
	Run(ctx context.Context, config CommandConfig) (CommandResult, error)

	// RunLocal executes a command on the local system.
	RunLocal(ctx context.Context, config CommandConfig) (CommandResult, error)

	// RunRemote executes a command on a remote system via SSH.
	RunRemote(ctx context.Context, config CommandConfig) (CommandResult, error)

	// HasCommand reports whether an executable is present on the target.
	HasCommand(ctx context.Context, name string) bool
}
