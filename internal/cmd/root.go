package cmd

import (
	"errors"
	"fmt"
	"os"

	"github.com/spf13/cobra"
	"github.com/xilma-bot/xilmadeploy/internal/logging"
	"github.com/xilma-bot/xilmadeploy/internal/remote"
	"github.com/xilma-bot/xilmadeploy/internal/security"
)

var (
	// Version is set at build time
	Version = "dev"

	// Global flags
	verbose      bool
	settingsFile string
	yesFlag      bool // CI/CD: skip confirmations
)

var rootCmd = &cobra.Command{
	Use:   "xilmadeploy",
	Short: "Deploy and update the Xilma bot on a remote host",
	Long: `XilmaDeploy is a CLI to deploy the Xilma Telegram bot on a VPS
over SSH. It collects configuration and secrets, prepares the remote
host, and orchestrates the compose stack.

Quick start:
  xilmadeploy deploy         # First deployment of a host
  xilmadeploy update         # Update an existing deployment

CI/CD Environment Variables:
  XILMA_DEPLOY_HOST                 Remote host address
  XILMA_DEPLOY_USER                 SSH user
  XILMA_DEPLOY_SSH_KEY              SSH private key content
  XILMA_DEPLOY_KNOWN_HOSTS          SSH known_hosts content
  XILMA_DEPLOY_SKIP_HOST_KEY_CHECK  Skip host key verification (true/false)`,
	Version:       Version,
	SilenceUsage:  true,
	SilenceErrors: true,
}

// Execute runs the root command
func Execute() error {
	return rootCmd.Execute()
}

// GetRootCmd returns the root command for documentation generation
func GetRootCmd() *cobra.Command {
	return rootCmd
}

func init() {
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "Show detailed logs")
	rootCmd.PersistentFlags().StringVar(&settingsFile, "settings", "", "Settings file (default: xilmadeploy.yaml)")
	rootCmd.PersistentFlags().BoolVarP(&yesFlag, "yes", "y", false, "Skip confirmations (CI/CD mode)")

	cobra.OnInitialize(func() {
		if verbose {
			logging.SetDebug()
		}
	})

	rootCmd.SetVersionTemplate(`XilmaDeploy {{.Version}}
`)
}

// IsVerbose returns true if verbose mode is enabled
func IsVerbose() bool {
	return verbose
}

// GetSettingsFile returns the settings file path
func GetSettingsFile() string {
	return settingsFile
}

// IsYesMode returns true if --yes flag is set (CI/CD mode)
func IsYesMode() bool {
	return yesFlag
}

// ExitCode extracts the process exit code for an error returned by
// Execute: failed remote commands propagate their own exit code,
// everything else is 1.
func ExitCode(err error) int {
	if err == nil {
		return 0
	}
	var stepErr *remote.StepError
	if errors.As(err, &stepErr) && stepErr.ExitCode > 0 {
		return stepErr.ExitCode
	}
	return 1
}

// PrintError prints a formatted error message
func PrintError(msg string, args ...interface{}) {
	fmt.Fprintf(os.Stderr, "❌ "+msg+"\n", args...)
}

// PrintSuccess prints a success message
func PrintSuccess(msg string, args ...interface{}) {
	fmt.Printf("✅ "+msg+"\n", args...)
}

// PrintInfo prints an info message
func PrintInfo(msg string, args ...interface{}) {
	fmt.Printf("ℹ️  "+msg+"\n", args...)
}

// PrintWarning prints a warning message
func PrintWarning(msg string, args ...interface{}) {
	fmt.Printf("⚠️  "+msg+"\n", args...)
}

// PrintVerbose prints a message only in verbose mode
func PrintVerbose(msg string, args ...interface{}) {
	if verbose {
		fmt.Printf("   "+msg+"\n", args...)
	}
}

// PrintVerboseCommand prints a command in verbose mode with sensitive values masked
func PrintVerboseCommand(command string) {
	if verbose {
		fmt.Printf("   Running: %s\n", security.SanitizeCommandForLog(command))
	}
}
