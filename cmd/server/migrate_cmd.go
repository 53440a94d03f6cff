package main

import (
	"intranet_admin/pkg/database"
	"intranet_admin/pkg/log"

	"github.com/spf13/cobra"
)

func newMigrateCmd(root *rootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "migrate",
		Short: "Create or update the database schema",
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg, err := root.loadConfig()
			if err != nil {
				return err
			}
			defer log.Sync()

			db, err := database.OpenMySQL(cfg.Database.MySQL.DSN)
			if err != nil {
				return err
			}
			return database.RunMigrate(db)
		},
	}
}
