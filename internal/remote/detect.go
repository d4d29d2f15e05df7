package remote

import (
	"context"
	"fmt"
	"strings"

	"github.com/sirupsen/logrus"
	"github.com/xilma-bot/xilmadeploy/internal/logging"
	"github.com/xilma-bot/xilmadeploy/internal/ssh"
)

// HostState is the derived picture of the remote host. It is computed
// fresh on every run and never cached across invocations.
type HostState struct {
	Elevation Elevation
	Manager   PackageManager
	Compose   ComposeForm

	// DockerAccess is true when the invoking identity can drive the
	// container runtime without elevation (root, or member of the
	// docker group).
	DockerAccess bool
}

// ComposeCommand renders a compose invocation, wrapped with the
// elevation mechanism only when the identity lacks direct runtime
// access.
func (h *HostState) ComposeCommand(args string) string {
	cmd := h.Compose.command(args)
	if !h.DockerAccess {
		cmd = h.Elevation.Wrap(cmd)
	}
	return cmd
}

// Detector inspects the remote host and repairs missing prerequisites.
type Detector struct {
	X ssh.Executor

	// InstallDocker authorizes installing the container runtime when it
	// is absent; without it, absence is a hard failure.
	InstallDocker bool

	log *logrus.Entry
}

// NewDetector returns a detector over the given executor.
func NewDetector(x ssh.Executor, installDocker bool) *Detector {
	return &Detector{X: x, InstallDocker: installDocker, log: logging.NewLogger("remote")}
}

// Detect resolves, in order: elevation mechanism, package manager,
// source-control client and container runtime (installing on request),
// runtime access, and the compose invocation form.
func (d *Detector) Detect(ctx context.Context) (*HostState, error) {
	elevation, err := DetectElevation(ctx, d.X)
	if err != nil {
		return nil, err
	}
	d.log.Debugf("elevation mechanism: %s", elevation)

	manager, err := DetectPackageManager(ctx, d.X)
	if err != nil {
		return nil, err
	}
	d.log.Debugf("package manager: %s", manager)

	installer := NewInstaller(d.X, manager, elevation)

	if err := d.ensureGit(ctx, installer); err != nil {
		return nil, err
	}
	if err := d.ensureDocker(ctx, installer, elevation); err != nil {
		return nil, err
	}

	access, err := d.dockerAccess(ctx, elevation)
	if err != nil {
		return nil, err
	}

	state := &HostState{
		Elevation:    elevation,
		Manager:      manager,
		DockerAccess: access,
	}

	form, err := d.detectComposeForm(ctx, state)
	if err != nil {
		return nil, err
	}
	state.Compose = form
	d.log.Debugf("compose form: %s", form)

	return state, nil
}

func (d *Detector) ensureGit(ctx context.Context, installer *Installer) error {
	ok, err := ssh.Succeeds(ctx, d.X, "command -v git >/dev/null 2>&1")
	if err != nil {
		return err
	}
	if ok {
		return nil
	}
	d.log.Debug("git not found, installing")
	return installer.Install(ctx, "git")
}

func (d *Detector) ensureDocker(ctx context.Context, installer *Installer, elevation Elevation) error {
	ok, err := ssh.Succeeds(ctx, d.X, "command -v docker >/dev/null 2>&1")
	if err != nil {
		return err
	}
	if ok {
		return nil
	}
	if !d.InstallDocker {
		return fmt.Errorf("docker is not installed on the remote host (set install_docker=yes to install it)")
	}

	d.log.Debug("docker not found, installing")
	if err := installer.Install(ctx, dockerPackage(installer.Manager)); err != nil {
		return err
	}

	// Best effort: not every supported distribution runs systemd.
	if err := ssh.Run(ctx, d.X, elevation.Wrap("systemctl enable --now docker 2>/dev/null || true")); err != nil {
		return err
	}
	return nil
}

// dockerPackage maps the manager family to its docker package name.
func dockerPackage(m PackageManager) string {
	if m == PkgApt {
		return "docker.io"
	}
	return "docker"
}

// dockerAccess tests group membership, not the daemon: root always has
// access, everyone else needs the docker group.
func (d *Detector) dockerAccess(ctx context.Context, elevation Elevation) (bool, error) {
	if elevation == ElevationRoot {
		return true, nil
	}
	groups, err := ssh.Output(ctx, d.X, "id -nG")
	if err != nil {
		return false, fmt.Errorf("failed to read remote group membership: %w", err)
	}
	for _, g := range strings.Fields(groups) {
		if g == "docker" {
			return true, nil
		}
	}
	return false, nil
}

// detectComposeForm tries the runtime-plugin form first, then the
// standalone legacy binary, each wrapped with elevation exactly the way
// later compose invocations will be.
func (d *Detector) detectComposeForm(ctx context.Context, state *HostState) (ComposeForm, error) {
	for _, form := range []ComposeForm{ComposePlugin, ComposeStandalone} {
		state.Compose = form
		probe := state.ComposeCommand("version >/dev/null 2>&1")
		ok, err := ssh.Succeeds(ctx, d.X, probe)
		if err != nil {
			return ComposeUnknown, err
		}
		if ok {
			return form, nil
		}
	}
	return ComposeUnknown, fmt.Errorf("no compose tooling found on the remote host: neither 'docker compose' nor 'docker-compose' is available")
}
