package remote

import (
	"context"
	"fmt"

	"github.com/sirupsen/logrus"
	"github.com/xilma-bot/xilmadeploy/internal/logging"
	"github.com/xilma-bot/xilmadeploy/internal/ssh"
)

// PackageManager is the closed set of package-manager families the
// detector understands.
type PackageManager int

const (
	PkgUnsupported PackageManager = iota
	PkgApt
	PkgDnf
	PkgYum
	PkgApk
	PkgPacman
)

// managerOrder is the fixed detection priority. First match wins.
var managerOrder = []PackageManager{PkgApt, PkgDnf, PkgYum, PkgApk, PkgPacman}

func (m PackageManager) String() string {
	switch m {
	case PkgApt:
		return "apt"
	case PkgDnf:
		return "dnf"
	case PkgYum:
		return "yum"
	case PkgApk:
		return "apk"
	case PkgPacman:
		return "pacman"
	default:
		return "unsupported"
	}
}

// binary is the executable probed for and invoked by the installer.
func (m PackageManager) binary() string {
	switch m {
	case PkgApt:
		return "apt-get"
	case PkgDnf:
		return "dnf"
	case PkgYum:
		return "yum"
	case PkgApk:
		return "apk"
	case PkgPacman:
		return "pacman"
	default:
		return ""
	}
}

// DetectPackageManager probes the closed set in priority order and
// returns the first manager found, or PkgUnsupported when none is.
// Unsupported is not an error by itself: it only fails a run that needs
// to install something.
func DetectPackageManager(ctx context.Context, x ssh.Executor) (PackageManager, error) {
	for _, m := range managerOrder {
		ok, err := ssh.Succeeds(ctx, x, fmt.Sprintf("command -v %s >/dev/null 2>&1", m.binary()))
		if err != nil {
			return PkgUnsupported, err
		}
		if ok {
			return m, nil
		}
	}
	return PkgUnsupported, nil
}

// Installer installs packages through the detected manager. The index
// refresh runs at most once per run even when several packages are
// installed in sequence.
type Installer struct {
	X         ssh.Executor
	Manager   PackageManager
	Elevation Elevation

	refreshed bool
	log       *logrus.Entry
}

// NewInstaller returns an installer bound to the detected manager.
func NewInstaller(x ssh.Executor, manager PackageManager, elevation Elevation) *Installer {
	return &Installer{X: x, Manager: manager, Elevation: elevation, log: logging.NewLogger("remote")}
}

// Install installs one package, refreshing the package index first when
// the manager needs it and it has not been refreshed this run.
func (i *Installer) Install(ctx context.Context, pkg string) error {
	if i.Manager == PkgUnsupported {
		return fmt.Errorf("cannot install %s: no supported package manager found (tried apt, dnf, yum, apk, pacman)", pkg)
	}

	if refresh := i.refreshCommand(); refresh != "" && !i.refreshed {
		i.log.Debugf("refreshing %s package index", i.Manager)
		if err := ssh.Run(ctx, i.X, i.Elevation.Wrap(refresh)); err != nil {
			return fmt.Errorf("package index refresh failed: %w", err)
		}
		i.refreshed = true
	}

	i.log.Debugf("installing %s via %s", pkg, i.Manager)
	if err := ssh.Run(ctx, i.X, i.Elevation.Wrap(i.installCommand(pkg))); err != nil {
		return fmt.Errorf("failed to install %s: %w", pkg, err)
	}
	return nil
}

func (i *Installer) refreshCommand() string {
	switch i.Manager {
	case PkgApt:
		return "apt-get update -qq"
	case PkgApk:
		return "apk update -q"
	case PkgPacman:
		return "pacman -Sy --noconfirm"
	default:
		// dnf and yum refresh their metadata as part of install.
		return ""
	}
}

func (i *Installer) installCommand(pkg string) string {
	switch i.Manager {
	case PkgApt:
		return fmt.Sprintf("DEBIAN_FRONTEND=noninteractive apt-get install -y -qq %s", pkg)
	case PkgDnf:
		return fmt.Sprintf("dnf install -y -q %s", pkg)
	case PkgYum:
		return fmt.Sprintf("yum install -y -q %s", pkg)
	case PkgApk:
		return fmt.Sprintf("apk add -q %s", pkg)
	case PkgPacman:
		return fmt.Sprintf("pacman -S --noconfirm --needed %s", pkg)
	default:
		return ""
	}
}
