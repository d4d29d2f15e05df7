package ssh

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"strings"

	"golang.org/x/crypto/ssh"
)

// ExecResult holds the result of a remote command execution.
type ExecResult struct {
	Command  string
	Stdout   string
	Stderr   string
	ExitCode int
}

// Err returns a *CommandError when the command exited nonzero.
func (r *ExecResult) Err() error {
	if r.ExitCode == 0 {
		return nil
	}
	return &CommandError{Command: r.Command, ExitCode: r.ExitCode, Stderr: strings.TrimSpace(r.Stderr)}
}

// CommandError reports a remote command that exited nonzero. The exit
// code propagates to the process exit status via the step pipeline.
type CommandError struct {
	Command  string
	ExitCode int
	Stderr   string
}

func (e *CommandError) Error() string {
	msg := fmt.Sprintf("remote command failed (exit %d): %s", e.ExitCode, e.Command)
	if e.Stderr != "" {
		msg += ": " + e.Stderr
	}
	return msg
}

// Exec executes a command on the remote host. A nonzero exit status is
// reported in the result, not as an error; transport failures are errors.
func (c *Client) Exec(ctx context.Context, command string) (*ExecResult, error) {
	session, err := c.NewSession()
	if err != nil {
		return nil, fmt.Errorf("failed to create session: %w", err)
	}
	defer session.Close()

	var stdout, stderr bytes.Buffer
	session.Stdout = &stdout
	session.Stderr = &stderr

	errC := make(chan error, 1)
	go func() {
		errC <- session.Run(command)
	}()

	var runErr error
	select {
	case <-ctx.Done():
		// Closing the session tears down the remote process.
		session.Close()
		<-errC
		return nil, ctx.Err()
	case runErr = <-errC:
	}

	result := &ExecResult{
		Command: command,
		Stdout:  stdout.String(),
		Stderr:  stderr.String(),
	}

	if runErr != nil {
		var exitErr *ssh.ExitError
		if errors.As(runErr, &exitErr) {
			result.ExitCode = exitErr.ExitStatus()
		} else {
			return result, fmt.Errorf("failed to execute command: %w", runErr)
		}
	}

	return result, nil
}

// Run executes a command over the executor and treats any nonzero exit
// as a hard failure.
func Run(ctx context.Context, x Executor, command string) error {
	result, err := x.Exec(ctx, command)
	if err != nil {
		return err
	}
	return result.Err()
}

// Output executes a command and returns its trimmed stdout, failing on
// nonzero exit.
func Output(ctx context.Context, x Executor, command string) (string, error) {
	result, err := x.Exec(ctx, command)
	if err != nil {
		return "", err
	}
	if err := result.Err(); err != nil {
		return strings.TrimSpace(result.Stdout), err
	}
	return strings.TrimSpace(result.Stdout), nil
}

// Succeeds reports whether a probe command exits zero. Transport errors
// still fail hard: only the probed command's status is a signal.
func Succeeds(ctx context.Context, x Executor, command string) (bool, error) {
	result, err := x.Exec(ctx, command)
	if err != nil {
		return false, err
	}
	return result.ExitCode == 0, nil
}
