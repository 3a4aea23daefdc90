package main

import (
	"github.com/deployra/docsync/internal/config"
	"github.com/deployra/docsync/internal/database"
	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"
)

func newMigrateCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "migrate",
		Short: "Create or update the database schema",
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := connectDatabase(config.Get()); err != nil {
				return err
			}
			return runMigrations()
		},
	}
}

func runMigrations() error {
	if err := database.Migrate(database.GetDatabase()); err != nil {
		return err
	}
	log.Info().Msg("Database migrated")
	return nil
}
