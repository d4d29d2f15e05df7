package cmd

import (
	"github.com/spf13/cobra"
	"github.com/xilma-bot/xilmadeploy/internal/config"
)

var updateCmd = &cobra.Command{
	Use:   "update",
	Short: "Update an existing deployment",
	Long: `Update refreshes a host that was already deployed: it fetches the
repository, checks out the requested ref (or stays on the current one),
fast-forwards when on a branch, then rebuilds and restarts the compose
stack.

Secrets are re-synced according to the sync_env preference: yes always,
no never, auto only when a local settings file is present. The existing
remote environment file is merged, not replaced: keys missing from this
run keep their current values.`,
	Args: cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		return runSession(config.ModeUpdate, map[string]string{
			"XILMA_DEPLOY_SYNC_ENV": syncEnvFlag,
		})
	},
}

var syncEnvFlag string

func init() {
	updateCmd.Flags().StringVar(&syncEnvFlag, "sync-env", "", "Re-sync the environment file (auto/yes/no)")
	rootCmd.AddCommand(updateCmd)
}
