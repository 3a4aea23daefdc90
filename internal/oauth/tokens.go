package oauth

import (
	"context"
	"fmt"
	"time"

	"github.com/deployra/docsync/internal/config"
	"github.com/deployra/docsync/internal/crypto"
	"github.com/deployra/docsync/internal/models"
	"github.com/deployra/docsync/internal/utils"
	"github.com/deployra/docsync/internal/vcs"
	"golang.org/x/oauth2"
	"gorm.io/gorm"
)

// OAuthApps maps each provider to its OAuth application. Bitbucket scopes are
// part of the consumer settings.
type OAuthApps map[models.VCSProvider]vcs.OAuthApp

func OAuthAppsFromConfig(cfg *config.Config) OAuthApps {
	return OAuthApps{
		models.VCSProviderBitbucket: {
			ClientID:     cfg.BitbucketClientID,
			ClientSecret: cfg.BitbucketClientSecret,
			Endpoint:     vcs.BitbucketEndpoint(),
		},
		models.VCSProviderGitLab: {
			ClientID:     cfg.GitLabClientID,
			ClientSecret: cfg.GitLabClientSecret,
			Endpoint:     vcs.GitLabEndpoint(cfg.GitLabURL),
			Scopes:       []string{"api", "read_user"},
		},
		models.VCSProviderGitHub: {
			ClientID:     cfg.GitHubClientID,
			ClientSecret: cfg.GitHubClientSecret,
			Endpoint:     vcs.GitHubEndpoint(),
			Scopes:       []string{"repo", "admin:repo_hook", "read:org", "user:email"},
		},
	}
}

// ForAccount builds the service for account with a session that refreshes
// and persists its OAuth token
func ForAccount(ctx context.Context, db *gorm.DB, settings Settings, apps OAuthApps, account *models.SocialAccount) (Service, error) {
	app, ok := apps[account.Provider]
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrUnsupportedService, account.Provider)
	}

	token := accountToken(account)
	httpClient := vcs.NewTokenClient(ctx, app, token, func(ctx context.Context, refreshed *oauth2.Token) error {
		return saveAccountToken(ctx, db, account, refreshed)
	})

	return NewService(db, settings, account, vcs.NewSession(httpClient, settings.HTTPRetryMax))
}

func accountToken(account *models.SocialAccount) *oauth2.Token {
	token := &oauth2.Token{
		AccessToken: crypto.DecryptOrPlain(account.AccessToken),
		TokenType:   utils.PtrValue(account.TokenType, "Bearer"),
	}
	if account.RefreshToken != nil && *account.RefreshToken != "" {
		token.RefreshToken = crypto.DecryptOrPlain(*account.RefreshToken)
	}
	if account.ExpiresAt != nil {
		token.Expiry = *account.ExpiresAt
	}
	return token
}

func saveAccountToken(ctx context.Context, db *gorm.DB, account *models.SocialAccount, token *oauth2.Token) error {
	accessToken, err := crypto.Encrypt(token.AccessToken)
	if err != nil {
		return fmt.Errorf("failed to encrypt access token: %w", err)
	}

	updates := map[string]interface{}{
		"accessToken": accessToken,
		"updatedAt":   time.Now(),
	}
	if !token.Expiry.IsZero() {
		updates["expiresAt"] = token.Expiry
	}
	if token.RefreshToken != "" {
		refreshToken, err := crypto.Encrypt(token.RefreshToken)
		if err != nil {
			return fmt.Errorf("failed to encrypt refresh token: %w", err)
		}
		updates["refreshToken"] = refreshToken
	}

	if err := db.WithContext(ctx).Model(account).Updates(updates).Error; err != nil {
		return fmt.Errorf("failed to update account with new token: %w", err)
	}
	return nil
}
