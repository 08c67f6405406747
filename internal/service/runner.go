package service

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"os/exec"
	"strings"
	"time"
)

// processWaitDelay bounds how long a cancelled process may keep its output
// pipes open after being killed.
const processWaitDelay = 2 * time.Second

// ExecContext is the explicit execution context of an external command.
type ExecContext struct {
	// Dir is the working directory; empty means the workspace root chosen by
	// the caller that built the context.
	Dir string
	// Env is the complete environment handed to the process.
	Env []string
}

// WithDir returns a copy of the context running in dir.
func (ec ExecContext) WithDir(dir string) ExecContext {
	ec.Dir = dir
	return ec
}

// WithEnv returns a copy of the context with extra KEY=VALUE entries.
func (ec ExecContext) WithEnv(kv ...string) ExecContext {
	env := make([]string, 0, len(ec.Env)+len(kv))
	env = append(env, ec.Env...)
	ec.Env = append(env, kv...)
	return ec
}

// Lookup returns the value of key in the context environment.
func (ec ExecContext) Lookup(key string) string {
	prefix := key + "="
	for i := len(ec.Env) - 1; i >= 0; i-- {
		if v, ok := strings.CutPrefix(ec.Env[i], prefix); ok {
			return v
		}
	}
	return ""
}

// CommandResult holds the captured output of a successful command.
type CommandResult struct {
	Stdout string
	Stderr string
}

// CommandError is returned when a command exits unsuccessfully.
type CommandError struct {
	Command  string
	Stdout   string
	Stderr   string
	ExitCode int
	Err      error
}

func (e *CommandError) Error() string {
	msg := strings.TrimSpace(e.Stderr)
	if msg == "" {
		return fmt.Sprintf("command %q failed: %v", e.Command, e.Err)
	}
	return fmt.Sprintf("command %q failed: %v (stderr: %s)", e.Command, e.Err, msg)
}

func (e *CommandError) Unwrap() error {
	return e.Err
}

// CommandRunner executes external processes. Every git and CLI interaction
// goes through it.
type CommandRunner interface {
	Run(ctx context.Context, ec ExecContext, name string, args ...string) (*CommandResult, error)
}

type execRunner struct{}

// NewCommandRunner creates an os/exec backed CommandRunner. Cancelling ctx
// kills the running process.
func NewCommandRunner() CommandRunner {
	return &execRunner{}
}

func (r *execRunner) Run(ctx context.Context, ec ExecContext, name string, args ...string) (*CommandResult, error) {
	cmd := exec.CommandContext(ctx, name, args...)
	cmd.Dir = ec.Dir
	cmd.Env = ec.Env
	cmd.WaitDelay = processWaitDelay
	var stdout, stderr bytes.Buffer
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr
	err := cmd.Run()
	if err == nil {
		return &CommandResult{Stdout: stdout.String(), Stderr: stderr.String()}, nil
	}
	cmdErr := &CommandError{
		Command:  strings.Join(append([]string{name}, args...), " "),
		Stdout:   stdout.String(),
		Stderr:   stderr.String(),
		ExitCode: -1,
		Err:      err,
	}
	if ctxErr := ctx.Err(); ctxErr != nil {
		cmdErr.Err = ctxErr
	}
	var exitErr *exec.ExitError
	if errors.As(err, &exitErr) {
		cmdErr.ExitCode = exitErr.ExitCode()
	}
	return nil, cmdErr
}
