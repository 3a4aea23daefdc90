package main

import (
	"errors"
	"fmt"
	"time"

	"github.com/deployra/docsync/internal/config"
	"github.com/deployra/docsync/internal/database"
	"github.com/deployra/docsync/internal/models"
	"github.com/deployra/docsync/internal/oauth"
	"github.com/deployra/docsync/internal/redis"
	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"
)

func newSyncCmd() *cobra.Command {
	var accountID string

	cmd := &cobra.Command{
		Use:   "sync",
		Short: "Synchronize the repositories and organizations of one connected account",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg := config.Get()
			ctx := log.Logger.WithContext(cmd.Context())

			if accountID == "" {
				return errors.New("--account is required")
			}
			if err := connectDatabase(cfg); err != nil {
				return err
			}
			if err := redis.Initialize(cfg); err != nil {
				return err
			}

			db := database.GetDatabase()
			var account models.SocialAccount
			if err := db.Where("id = ?", accountID).First(&account).Error; err != nil {
				return fmt.Errorf("failed to find account %s: %w", accountID, err)
			}

			svc, err := oauth.ForAccount(ctx, db, oauth.SettingsFromConfig(cfg), oauth.OAuthAppsFromConfig(cfg), &account)
			if err != nil {
				return err
			}

			ttl := time.Duration(cfg.SyncLockTTLSeconds) * time.Second
			result, err := oauth.SyncAccount(ctx, svc, redis.NewLocker(redis.GetClient()), ttl)
			if err != nil {
				return err
			}

			fmt.Fprintf(cmd.OutOrStdout(), "synced %d repositories and %d organizations (sync %s)\n",
				len(result.Repositories), len(result.Organizations), result.SyncID)
			return nil
		},
	}

	cmd.Flags().StringVar(&accountID, "account", "", "Connected account ID")
	return cmd
}
