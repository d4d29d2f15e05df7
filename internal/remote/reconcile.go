package remote

import (
	"context"
	"fmt"

	"github.com/sirupsen/logrus"
	"github.com/xilma-bot/xilmadeploy/internal/config"
	"github.com/xilma-bot/xilmadeploy/internal/logging"
	"github.com/xilma-bot/xilmadeploy/internal/security"
	"github.com/xilma-bot/xilmadeploy/internal/ssh"
)

// RepoState classifies the application directory on the remote host.
type RepoState int

const (
	RepoAbsent RepoState = iota
	RepoPresentNotGit
	RepoPresentGit
)

func (s RepoState) String() string {
	switch s {
	case RepoAbsent:
		return "absent"
	case RepoPresentNotGit:
		return "present, not a repository"
	case RepoPresentGit:
		return "repository"
	default:
		return "unknown"
	}
}

// DetectRepoState probes the application directory without mutating it.
func DetectRepoState(ctx context.Context, x ssh.Executor, dir string) (RepoState, error) {
	escaped := security.ShellEscape(dir)

	exists, err := ssh.Succeeds(ctx, x, fmt.Sprintf("test -e %s", escaped))
	if err != nil {
		return RepoAbsent, err
	}
	if !exists {
		return RepoAbsent, nil
	}

	isGit, err := ssh.Succeeds(ctx, x, fmt.Sprintf("test -d %s/.git", escaped))
	if err != nil {
		return RepoAbsent, err
	}
	if isGit {
		return RepoPresentGit, nil
	}
	return RepoPresentNotGit, nil
}

// Reconciler converges the remote application directory onto the
// requested repository and ref.
type Reconciler struct {
	X         ssh.Executor
	Elevation Elevation

	// User owns the application directory after an elevated creation.
	User string

	log *logrus.Entry
}

// NewReconciler returns a reconciler over the given executor.
func NewReconciler(x ssh.Executor, elevation Elevation, user string) *Reconciler {
	return &Reconciler{X: x, Elevation: elevation, User: user, log: logging.NewLogger("remote")}
}

// Reconcile brings the directory to the requested state. A directory
// that exists but is not a repository is never touched: the operator
// has to resolve that by hand.
func (r *Reconciler) Reconcile(ctx context.Context, mode config.Mode, repo config.Repository) error {
	state, err := DetectRepoState(ctx, r.X, repo.Dir)
	if err != nil {
		return err
	}
	r.log.Debugf("repository state: %s", state)

	switch state {
	case RepoAbsent:
		if mode == config.ModeUpdate {
			return fmt.Errorf("%s does not exist on the remote host: run deploy first", repo.Dir)
		}
		return r.clone(ctx, repo)
	case RepoPresentNotGit:
		return fmt.Errorf("%s exists on the remote host but is not a git repository: remove it or choose another directory", repo.Dir)
	case RepoPresentGit:
		return r.update(ctx, mode, repo)
	default:
		return fmt.Errorf("unexpected repository state %d", state)
	}
}

func (r *Reconciler) clone(ctx context.Context, repo config.Repository) error {
	dir := security.ShellEscape(repo.Dir)

	mkdir := fmt.Sprintf("mkdir -p %s", dir)
	if err := ssh.Run(ctx, r.X, r.Elevation.Wrap(mkdir)); err != nil {
		return err
	}
	if r.Elevation == ElevationSudo {
		chown := fmt.Sprintf("chown %s:%s %s", security.ShellEscape(r.User), security.ShellEscape(r.User), dir)
		if err := ssh.Run(ctx, r.X, r.Elevation.Wrap(chown)); err != nil {
			return err
		}
	}

	clone := fmt.Sprintf("git clone --depth 1 --branch %s %s %s",
		security.ShellEscape(repo.Ref), security.ShellEscape(repo.URL), dir)
	r.log.Debugf("cloning %s (ref %s)", repo.URL, repo.Ref)
	return ssh.Run(ctx, r.X, clone)
}

func (r *Reconciler) update(ctx context.Context, mode config.Mode, repo config.Repository) error {
	dir := security.ShellEscape(repo.Dir)

	if err := ssh.Run(ctx, r.X, fmt.Sprintf("git -C %s fetch --all --prune", dir)); err != nil {
		return err
	}

	if mode == config.ModeDeploy || repo.Ref != "" {
		checkout := fmt.Sprintf("git -C %s checkout %s", dir, security.ShellEscape(repo.Ref))
		if err := ssh.Run(ctx, r.X, checkout); err != nil {
			return err
		}
	}

	pull := mode == config.ModeDeploy
	if !pull {
		// Pulling only makes sense on a branch. A detached checkout
		// (tag or commit pin) stays exactly where the operator put it.
		onBranch, err := ssh.Succeeds(ctx, r.X, fmt.Sprintf("git -C %s symbolic-ref -q HEAD >/dev/null 2>&1", dir))
		if err != nil {
			return err
		}
		pull = onBranch
	}
	if pull {
		if err := ssh.Run(ctx, r.X, fmt.Sprintf("git -C %s pull --ff-only", dir)); err != nil {
			return err
		}
	}
	return nil
}
