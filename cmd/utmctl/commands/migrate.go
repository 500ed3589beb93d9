package commands

import (
	"github.com/spf13/cobra"
)

var migrateCmd = &cobra.Command{
	Use:   "migrate",
	Short: "Create or update tables and install the default rules and mappings",
	RunE: func(cmd *cobra.Command, args []string) error {
		logger.Info("Running database migrations...")
		if err := app.DBManager.MigrateDatabase(); err != nil {
			return err
		}
		return app.DBManager.Bootstrap(cfg)
	},
}
