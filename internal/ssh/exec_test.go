package ssh

import (
	"context"
	"errors"
	"fmt"
	"regexp"
	"strings"
	"testing"
)

func TestExecResultErr(t *testing.T) {
	ok := &ExecResult{Command: "true", ExitCode: 0}
	if err := ok.Err(); err != nil {
		t.Errorf("Err() on zero exit = %v, want nil", err)
	}

	failed := &ExecResult{Command: "docker compose build", ExitCode: 17, Stderr: "build failed\n"}
	err := failed.Err()
	if err == nil {
		t.Fatal("Err() on nonzero exit = nil, want error")
	}

	var cmdErr *CommandError
	if !errors.As(err, &cmdErr) {
		t.Fatalf("Err() = %T, want *CommandError", err)
	}
	if cmdErr.ExitCode != 17 {
		t.Errorf("ExitCode = %d, want 17", cmdErr.ExitCode)
	}
	if cmdErr.Stderr != "build failed" {
		t.Errorf("Stderr = %q, want trimmed %q", cmdErr.Stderr, "build failed")
	}
	if !strings.Contains(err.Error(), "exit 17") {
		t.Errorf("Error() = %q, want exit code mentioned", err.Error())
	}
}

func TestRunHelpers(t *testing.T) {
	x := &MockExecutor{ExecFunc: func(_ context.Context, cmd string) (*ExecResult, error) {
		switch {
		case strings.Contains(cmd, "fail"):
			return &ExecResult{ExitCode: 3, Stderr: "nope"}, nil
		case strings.Contains(cmd, "transport"):
			return nil, fmt.Errorf("connection lost")
		default:
			return &ExecResult{Stdout: "  value\n"}, nil
		}
	}}
	ctx := context.Background()

	if err := Run(ctx, x, "echo ok"); err != nil {
		t.Errorf("Run(ok) = %v, want nil", err)
	}
	if err := Run(ctx, x, "fail"); err == nil {
		t.Error("Run(fail) = nil, want error")
	}

	out, err := Output(ctx, x, "echo value")
	if err != nil {
		t.Errorf("Output() error = %v", err)
	}
	if out != "value" {
		t.Errorf("Output() = %q, want trimmed %q", out, "value")
	}

	ok, err := Succeeds(ctx, x, "probe")
	if err != nil || !ok {
		t.Errorf("Succeeds(probe) = %v, %v, want true, nil", ok, err)
	}
	ok, err = Succeeds(ctx, x, "fail probe")
	if err != nil || ok {
		t.Errorf("Succeeds(fail) = %v, %v, want false, nil", ok, err)
	}
	if _, err = Succeeds(ctx, x, "transport"); err == nil {
		t.Error("Succeeds(transport error) = nil, want error")
	}
}

func TestRemoteTempPath(t *testing.T) {
	pattern := regexp.MustCompile(`^/tmp/xilma-env\.\d+\.\d+$`)

	first, err := RemoteTempPath()
	if err != nil {
		t.Fatalf("RemoteTempPath() error = %v", err)
	}
	if !pattern.MatchString(first) {
		t.Errorf("RemoteTempPath() = %q, want match for %s", first, pattern)
	}

	second, err := RemoteTempPath()
	if err != nil {
		t.Fatalf("RemoteTempPath() error = %v", err)
	}
	if first == second {
		t.Errorf("two paths collided: %q", first)
	}
}

func TestRemoveFileEscapesPath(t *testing.T) {
	x := &MockExecutor{}
	if err := RemoveFile(context.Background(), x, "/tmp/xilma-env.1.2"); err != nil {
		t.Fatalf("RemoveFile() error = %v", err)
	}
	if len(x.Commands) != 1 || x.Commands[0] != "rm -f '/tmp/xilma-env.1.2'" {
		t.Errorf("commands = %v, want single escaped rm -f", x.Commands)
	}
}

func TestReadFile(t *testing.T) {
	t.Run("missing file is empty, not read", func(t *testing.T) {
		x := &MockExecutor{ExecFunc: func(_ context.Context, command string) (*ExecResult, error) {
			if strings.HasPrefix(command, "test -e ") {
				return &ExecResult{ExitCode: 1}, nil
			}
			return &ExecResult{}, nil
		}}

		out, err := ReadFile(context.Background(), x, "/opt/xilma/.env")
		if err != nil {
			t.Fatalf("ReadFile() error = %v", err)
		}
		if out != "" {
			t.Errorf("ReadFile() = %q, want empty", out)
		}
		for _, c := range x.Commands {
			if strings.HasPrefix(c, "cat ") {
				t.Errorf("ReadFile() read a file that does not exist: %q", c)
			}
		}
	})

	t.Run("existing file content returned", func(t *testing.T) {
		x := &MockExecutor{ExecFunc: func(_ context.Context, command string) (*ExecResult, error) {
			if strings.HasPrefix(command, "cat ") {
				return &ExecResult{Stdout: "KEY=\"v\"\n"}, nil
			}
			return &ExecResult{}, nil
		}}

		out, err := ReadFile(context.Background(), x, "/opt/xilma/.env")
		if err != nil {
			t.Fatalf("ReadFile() error = %v", err)
		}
		if out != "KEY=\"v\"\n" {
			t.Errorf("ReadFile() = %q, want file content", out)
		}
	})

	t.Run("unreadable existing file is an error", func(t *testing.T) {
		x := &MockExecutor{ExecFunc: func(_ context.Context, command string) (*ExecResult, error) {
			if strings.HasPrefix(command, "cat ") {
				return &ExecResult{ExitCode: 1, Stderr: "cat: /opt/xilma/.env: Permission denied"}, nil
			}
			return &ExecResult{}, nil
		}}

		out, err := ReadFile(context.Background(), x, "/opt/xilma/.env")
		if err == nil {
			t.Fatal("ReadFile() error = nil, want permission failure")
		}
		if out != "" {
			t.Errorf("ReadFile() = %q, want empty on error", out)
		}
	})
}
