package remote

import (
	"context"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/xilma-bot/xilmadeploy/internal/ssh"
)

// rule matches a command by substring and scripts its result. First
// match wins; unmatched commands succeed with empty output.
type rule struct {
	pattern string
	exit    int
	stdout  string
}

func scripted(rules ...rule) *ssh.MockExecutor {
	return &ssh.MockExecutor{ExecFunc: func(_ context.Context, cmd string) (*ssh.ExecResult, error) {
		for _, r := range rules {
			if strings.Contains(cmd, r.pattern) {
				return &ssh.ExecResult{Stdout: r.stdout, ExitCode: r.exit}, nil
			}
		}
		return &ssh.ExecResult{}, nil
	}}
}

func TestDetectElevationRoot(t *testing.T) {
	x := scripted(rule{pattern: "id -u", stdout: "0\n"})

	e, err := DetectElevation(context.Background(), x)
	require.NoError(t, err)
	assert.Equal(t, ElevationRoot, e)
}

func TestDetectElevationSudo(t *testing.T) {
	x := scripted(
		rule{pattern: "id -u", stdout: "1000\n"},
		rule{pattern: "sudo -n true", exit: 0},
	)

	e, err := DetectElevation(context.Background(), x)
	require.NoError(t, err)
	assert.Equal(t, ElevationSudo, e)
}

func TestDetectElevationUnavailable(t *testing.T) {
	x := scripted(
		rule{pattern: "id -u", stdout: "1000\n"},
		rule{pattern: "sudo -n true", exit: 1},
	)

	_, err := DetectElevation(context.Background(), x)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "passwordless sudo")
}

func TestElevationWrap(t *testing.T) {
	assert.Equal(t, "apt-get install -y git", ElevationRoot.Wrap("apt-get install -y git"))
	assert.Equal(t, "sudo apt-get install -y git", ElevationSudo.Wrap("apt-get install -y git"))
}
