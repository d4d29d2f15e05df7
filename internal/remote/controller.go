package remote

import (
	"context"
	"fmt"

	"github.com/sirupsen/logrus"
	"github.com/xilma-bot/xilmadeploy/internal/logging"
	"github.com/xilma-bot/xilmadeploy/internal/security"
	"github.com/xilma-bot/xilmadeploy/internal/ssh"
)

// Controller drives the compose lifecycle inside the application
// directory.
type Controller struct {
	X    ssh.Executor
	Host *HostState
	Dir  string

	log *logrus.Entry
}

// NewController returns a controller for the given host state and
// application directory.
func NewController(x ssh.Executor, host *HostState, dir string) *Controller {
	return &Controller{X: x, Host: host, Dir: dir, log: logging.NewLogger("remote")}
}

// InstallEnv moves the uploaded secrets file into place as the
// application's .env, keeping the restrictive mode. An empty bundlePath
// means this run carries no secrets and the step is a no-op.
func (c *Controller) InstallEnv(ctx context.Context, bundlePath string) error {
	if bundlePath == "" {
		return nil
	}
	cmd := fmt.Sprintf("install -m 600 %s %s/.env && rm -f %s",
		security.ShellEscape(bundlePath),
		security.ShellEscape(c.Dir),
		security.ShellEscape(bundlePath))
	c.log.Debug("installing environment file")
	return ssh.Run(ctx, c.X, cmd)
}

// Build builds the compose services from the repository.
func (c *Controller) Build(ctx context.Context) error {
	return ssh.Run(ctx, c.X, c.compose("build"))
}

// Up starts (or restarts) the services detached.
func (c *Controller) Up(ctx context.Context) error {
	return ssh.Run(ctx, c.X, c.compose("up -d"))
}

// Status returns the compose service table.
func (c *Controller) Status(ctx context.Context) (string, error) {
	return ssh.Output(ctx, c.X, c.compose("ps"))
}

func (c *Controller) compose(args string) string {
	return fmt.Sprintf("cd %s && %s", security.ShellEscape(c.Dir), c.Host.ComposeCommand(args))
}
