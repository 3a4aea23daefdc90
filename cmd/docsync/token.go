package main

import (
	"errors"
	"fmt"
	"time"

	"github.com/deployra/docsync/internal/config"
	"github.com/deployra/docsync/internal/database"
	"github.com/deployra/docsync/internal/models"
	"github.com/deployra/docsync/pkg/utils"
	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"
	"gorm.io/gorm"
)

func newTokenCmd() *cobra.Command {
	var (
		username string
		email    string
		ttl      time.Duration
	)

	cmd := &cobra.Command{
		Use:   "token",
		Short: "Issue a management API bearer token for a user",
		Long:  "Issue a management API bearer token for a user. With --email a missing user is created first.",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg := config.Get()

			if username == "" {
				return errors.New("--user is required")
			}
			if cfg.JWTSecret == "" {
				return errors.New("JWT_SECRET is not configured")
			}
			if err := connectDatabase(cfg); err != nil {
				return err
			}

			db := database.GetDatabase()
			var user models.User
			err := db.Where("username = ? AND deletedAt IS NULL", username).First(&user).Error
			switch {
			case errors.Is(err, gorm.ErrRecordNotFound) && email != "":
				user = models.User{Username: username, Email: email}
				if err := db.Create(&user).Error; err != nil {
					return fmt.Errorf("failed to create user %s: %w", username, err)
				}
				log.Info().Str("user_id", user.ID).Msg("Created user")
			case err != nil:
				return fmt.Errorf("failed to find user %s: %w", username, err)
			}

			token, err := utils.GenerateJWT(user.ID, user.Email, ttl)
			if err != nil {
				return fmt.Errorf("failed to sign token: %w", err)
			}

			fmt.Fprintln(cmd.OutOrStdout(), token)
			return nil
		},
	}

	cmd.Flags().StringVar(&username, "user", "", "Username")
	cmd.Flags().StringVar(&email, "email", "", "Email of the user to create when missing")
	cmd.Flags().DurationVar(&ttl, "ttl", 24*time.Hour, "Token lifetime")
	return cmd
}
