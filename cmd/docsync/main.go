package main

import (
	"context"
	"os"

	"github.com/deployra/docsync/internal/config"
	"github.com/deployra/docsync/internal/crypto"
	"github.com/deployra/docsync/internal/database"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"
)

func main() {
	rootCmd := newRootCmd()
	rootCmd.SetContext(context.Background())

	if err := rootCmd.Execute(); err != nil {
		log.Fatal().Err(err).Msg("Failed to execute command")
	}
}

func newRootCmd() *cobra.Command {
	rootCmd := &cobra.Command{
		Use:          "docsync",
		Short:        "docsync",
		Long:         "Remote repository synchronization and webhook management",
		SilenceUsage: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			cfg := config.Load()
			setupLogging(cfg.LogLevel)
			return crypto.Configure(cfg.EncryptionKey)
		},
	}

	rootCmd.AddCommand(newServeCmd())
	rootCmd.AddCommand(newSyncCmd())
	rootCmd.AddCommand(newMigrateCmd())
	rootCmd.AddCommand(newTokenCmd())

	return rootCmd
}

func setupLogging(logLevel string) {
	level, err := zerolog.ParseLevel(logLevel)
	if err != nil {
		level = zerolog.InfoLevel
	}
	zerolog.SetGlobalLevel(level)

	if os.Getenv("LOG_FORMAT") != "json" {
		log.Logger = log.Output(zerolog.ConsoleWriter{Out: os.Stderr})
	}
	// log.Ctx falls back to the global logger
	zerolog.DefaultContextLogger = &log.Logger
}

func connectDatabase(cfg *config.Config) error {
	if err := database.Connect(cfg.DatabaseURL); err != nil {
		return err
	}
	return nil
}
