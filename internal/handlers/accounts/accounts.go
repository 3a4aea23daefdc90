package accounts

import (
	"context"
	"time"

	"github.com/deployra/docsync/internal/config"
	"github.com/deployra/docsync/internal/models"
	"github.com/deployra/docsync/internal/oauth"
	"github.com/deployra/docsync/internal/redis"
	"gorm.io/gorm"
)

var (
	// NewLocker returns the lock guarding account syncs
	NewLocker = func() oauth.Locker {
		return redis.NewLocker(redis.GetClient())
	}

	// ServiceFor builds the provider service of a connected account
	ServiceFor = func(ctx context.Context, db *gorm.DB, account *models.SocialAccount) (oauth.Service, error) {
		cfg := config.Get()
		return oauth.ForAccount(ctx, db, oauth.SettingsFromConfig(cfg), oauth.OAuthAppsFromConfig(cfg), account)
	}
)

func lockTTL() time.Duration {
	cfg := config.Get()
	if cfg == nil || cfg.SyncLockTTLSeconds <= 0 {
		return 15 * time.Minute
	}
	return time.Duration(cfg.SyncLockTTLSeconds) * time.Second
}
