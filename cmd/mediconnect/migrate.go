package main

import (
	"github.com/spf13/cobra"

	"mediconnect/internal/database"
)

var migrateCmd = &cobra.Command{
	Use:   "migrate",
	Short: "Apply database migrations",
	RunE: func(cmd *cobra.Command, args []string) error {
		pool, err := database.Connect(cmd.Context(), cfg.DatabaseDSN())
		if err != nil {
			return err
		}
		defer pool.Close()

		if err := database.Migrate(cmd.Context(), pool); err != nil {
			return err
		}
		log.Info("Migrations applied")
		return nil
	},
}
