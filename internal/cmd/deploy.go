package cmd

import (
	"github.com/spf13/cobra"
	"github.com/xilma-bot/xilmadeploy/internal/config"
)

var deployCmd = &cobra.Command{
	Use:   "deploy",
	Short: "Provision a remote host and deploy the bot",
	Long: `Deploy performs the full provisioning path: it collects the
connection parameters and application secrets, prepares the remote host
(privilege escalation, package manager, git, docker), clones the
repository, installs the environment file, then builds and starts the
compose stack.

The repository URL and all application secrets are required. Values can
come from XILMA_DEPLOY_* environment variables, a local settings file,
or interactive prompts.`,
	Args: cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		return runSession(config.ModeDeploy, nil)
	},
}

func init() {
	rootCmd.AddCommand(deployCmd)
}
