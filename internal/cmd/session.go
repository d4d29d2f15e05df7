package cmd

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/xilma-bot/xilmadeploy/internal/config"
	"github.com/xilma-bot/xilmadeploy/internal/remote"
	"github.com/xilma-bot/xilmadeploy/internal/secrets"
	"github.com/xilma-bot/xilmadeploy/internal/ssh"
)

// cleanupTimeout bounds the teardown of remote secret artifacts. The
// run context may already be cancelled when cleanup fires, so teardown
// gets its own deadline.
const cleanupTimeout = 15 * time.Second

// verboseExecutor echoes each remote command, with secret values masked,
// before delegating.
type verboseExecutor struct {
	x ssh.Executor
}

func (v *verboseExecutor) Exec(ctx context.Context, command string) (*ssh.ExecResult, error) {
	PrintVerboseCommand(command)
	return v.x.Exec(ctx, command)
}

// runSession is the shared driver behind deploy and update: collect,
// confirm, connect, run the pipeline, clean up. Flag values passed in
// overrides take precedence over the process environment.
func runSession(mode config.Mode, overrides map[string]string) error {
	settingsPath := GetSettingsFile()
	if settingsPath == "" {
		settingsPath = config.SettingsFile
	}
	settings, err := config.LoadSettings(settingsPath)
	if err != nil {
		return err
	}
	if settings != nil {
		PrintVerbose("Loaded settings from %s", settingsPath)
	}

	collector := &config.Collector{
		Settings:    settings,
		Prompter:    newTerminalPrompter(),
		Interactive: IsInteractive(),
		Warn:        PrintWarning,
		LookupEnv: func(name string) (string, bool) {
			if v, ok := overrides[name]; ok && v != "" {
				return v, true
			}
			return os.LookupEnv(name)
		},
	}
	session, err := collector.Collect(mode)
	if err != nil {
		return err
	}

	fmt.Println(session.Summary())
	if !Confirm(fmt.Sprintf("Proceed with %s on %s?", mode, session.Connection.Host)) {
		PrintInfo("Aborted, nothing was changed")
		return nil
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	// Cleanups run last-in-first-out, whatever the pipeline outcome.
	var cleanups []func()
	defer func() {
		for i := len(cleanups) - 1; i >= 0; i-- {
			cleanups[i]()
		}
	}()

	carrySecrets := session.SyncWanted()

	var bundle *secrets.Bundle
	var local *secrets.LocalFile
	if carrySecrets {
		bundle = secrets.ForSession(session)
		local, err = secrets.WriteLocal(bundle.Render())
		if err != nil {
			return err
		}
		cleanups = append(cleanups, func() {
			if err := local.Remove(); err != nil {
				PrintWarning("Failed to remove local secrets file: %v", err)
			}
		})
		PrintVerbose("Prepared secrets bundle (%d entries)", bundle.Len())
	}

	conn := session.Connection
	var client *ssh.Client
	if conn.Auth == config.AuthPassword {
		client = ssh.NewPasswordClient(conn.Host, conn.User, conn.Port, conn.Password)
	} else {
		client = ssh.NewKeyClient(conn.Host, conn.User, conn.Port, conn.KeyPath)
	}

	PrintInfo("Connecting to %s@%s:%d...", conn.User, conn.Host, conn.Port)
	if err := client.Connect(); err != nil {
		return err
	}
	cleanups = append(cleanups, func() { _ = client.Close() })
	PrintSuccess("Connected")

	var executor ssh.Executor = client
	if IsVerbose() {
		executor = &verboseExecutor{x: client}
	}

	remoteBundle := ""
	if carrySecrets {
		if mode == config.ModeUpdate {
			existing, err := ssh.ReadFile(ctx, executor, session.Repository.Dir+"/.env")
			if err != nil {
				return err
			}
			merged := secrets.MergeEnv(existing, bundle)
			if err := os.WriteFile(local.Path, []byte(merged), 0600); err != nil {
				return fmt.Errorf("failed to rewrite secrets file: %w", err)
			}
		}

		remoteBundle, err = ssh.RemoteTempPath()
		if err != nil {
			return err
		}
		if err := client.Upload(ctx, local.Path, remoteBundle, 0600); err != nil {
			return err
		}
		cleanups = append(cleanups, func() {
			cctx, cancel := context.WithTimeout(context.Background(), cleanupTimeout)
			defer cancel()
			if err := ssh.RemoveFile(cctx, executor, remoteBundle); err != nil {
				PrintWarning("Failed to remove remote secrets file %s: %v", remoteBundle, err)
			}
		})
		PrintVerbose("Uploaded secrets bundle to %s", remoteBundle)
	}

	detector := remote.NewDetector(executor, session.InstallDocker)
	var host *remote.HostState

	steps := []remote.Step{
		{Name: "detect remote environment", Run: func(ctx context.Context) error {
			h, err := detector.Detect(ctx)
			if err != nil {
				return err
			}
			host = h
			PrintVerbose("Remote host: %s, %s, compose %s", host.Elevation, host.Manager, host.Compose)
			return nil
		}},
		{Name: "reconcile repository", Run: func(ctx context.Context) error {
			rec := remote.NewReconciler(executor, host.Elevation, conn.User)
			return rec.Reconcile(ctx, mode, session.Repository)
		}},
		{Name: "install environment file", Run: func(ctx context.Context) error {
			ctrl := remote.NewController(executor, host, session.Repository.Dir)
			return ctrl.InstallEnv(ctx, remoteBundle)
		}},
		{Name: "build services", Run: func(ctx context.Context) error {
			PrintInfo("Building services...")
			ctrl := remote.NewController(executor, host, session.Repository.Dir)
			return ctrl.Build(ctx)
		}},
		{Name: "start services", Run: func(ctx context.Context) error {
			PrintInfo("Starting services...")
			ctrl := remote.NewController(executor, host, session.Repository.Dir)
			return ctrl.Up(ctx)
		}},
		{Name: "report status", Run: func(ctx context.Context) error {
			ctrl := remote.NewController(executor, host, session.Repository.Dir)
			status, err := ctrl.Status(ctx)
			if err != nil {
				return err
			}
			fmt.Println(status)
			return nil
		}},
	}

	if err := remote.RunPipeline(ctx, steps); err != nil {
		return err
	}

	if mode == config.ModeDeploy {
		PrintSuccess("Deployment complete")
	} else {
		PrintSuccess("Update complete")
	}
	return nil
}
