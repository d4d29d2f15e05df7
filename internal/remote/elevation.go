package remote

import (
	"context"
	"fmt"

	"github.com/xilma-bot/xilmadeploy/internal/ssh"
)

// Elevation is the privilege-escalation mechanism resolved on the remote
// host: direct root, or delegated elevation through sudo.
type Elevation int

const (
	ElevationRoot Elevation = iota
	ElevationSudo
)

func (e Elevation) String() string {
	if e == ElevationSudo {
		return "sudo"
	}
	return "root"
}

// Wrap prefixes a command with the elevation mechanism when one is
// needed. Root runs commands as-is.
func (e Elevation) Wrap(command string) string {
	if e == ElevationSudo {
		return "sudo " + command
	}
	return command
}

// DetectElevation resolves the elevation mechanism: direct root, then
// passwordless sudo, then hard failure. Computed fresh on every run.
func DetectElevation(ctx context.Context, x ssh.Executor) (Elevation, error) {
	uid, err := ssh.Output(ctx, x, "id -u")
	if err != nil {
		return 0, fmt.Errorf("failed to resolve remote identity: %w", err)
	}
	if uid == "0" {
		return ElevationRoot, nil
	}

	ok, err := ssh.Succeeds(ctx, x, "sudo -n true")
	if err != nil {
		return 0, err
	}
	if ok {
		return ElevationSudo, nil
	}

	return 0, fmt.Errorf("no privilege escalation available: remote user is not root and passwordless sudo is not configured")
}
