package oauth

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"strings"

	"github.com/deployra/docsync/internal/crypto"
	"github.com/deployra/docsync/internal/models"
	"github.com/deployra/docsync/internal/utils"
	"github.com/deployra/docsync/internal/vcs"
	"github.com/deployra/docsync/pkg/github"
	"github.com/rs/zerolog/log"
	"golang.org/x/oauth2"
	"gorm.io/gorm"
)

// ErrAccountConnectedElsewhere is returned when the provider identity is
// already connected to another user
var ErrAccountConnectedElsewhere = errors.New("account is connected to another user")

// Profile is the provider identity behind an authorized token
type Profile struct {
	UID       string
	Username  string
	AvatarURL string
}

// FetchProfile reads the identity of the token session authenticates with
func FetchProfile(ctx context.Context, settings Settings, provider models.VCSProvider, session *vcs.Session) (*Profile, error) {
	switch provider {
	case models.VCSProviderBitbucket:
		var user struct {
			UUID     string `json:"uuid"`
			Username string `json:"username"`
			Links    struct {
				Avatar struct {
					Href string `json:"href"`
				} `json:"avatar"`
			} `json:"links"`
		}
		if err := getProfile(ctx, session, strings.TrimRight(settings.BitbucketAPIURL, "/")+"/2.0/user", &user); err != nil {
			return nil, err
		}
		return &Profile{UID: user.UUID, Username: user.Username, AvatarURL: user.Links.Avatar.Href}, profileCheck(user.UUID)

	case models.VCSProviderGitLab:
		var user struct {
			ID        int64  `json:"id"`
			Username  string `json:"username"`
			AvatarURL string `json:"avatar_url"`
		}
		if err := getProfile(ctx, session, strings.TrimRight(settings.GitLabURL, "/")+"/api/v4/user", &user); err != nil {
			return nil, err
		}
		uid := ""
		if user.ID != 0 {
			uid = strconv.FormatInt(user.ID, 10)
		}
		return &Profile{UID: uid, Username: user.Username, AvatarURL: user.AvatarURL}, profileCheck(uid)

	case models.VCSProviderGitHub:
		client, err := github.NewClient(session.StandardClient(), settings.GitHubAPIURL)
		if err != nil {
			return nil, fmt.Errorf("failed to create GitHub client: %w", err)
		}
		user, _, err := client.AuthenticatedUser(ctx)
		if err != nil {
			return nil, fmt.Errorf("failed to fetch GitHub user: %w", err)
		}
		uid := ""
		if user.GetID() != 0 {
			uid = strconv.FormatInt(user.GetID(), 10)
		}
		return &Profile{UID: uid, Username: user.GetLogin(), AvatarURL: user.GetAvatarURL()}, profileCheck(uid)
	}
	return nil, fmt.Errorf("%w: %s", ErrUnsupportedService, provider)
}

func getProfile(ctx context.Context, session *vcs.Session, url string, v any) error {
	resp, err := session.Get(ctx, url)
	if err != nil {
		return fmt.Errorf("failed to fetch user profile: %w", err)
	}
	if !resp.OK() {
		return fmt.Errorf("failed to fetch user profile: status %d", resp.StatusCode)
	}
	if err := resp.DecodeJSON(v); err != nil {
		return fmt.Errorf("failed to decode user profile: %w", err)
	}
	return nil
}

func profileCheck(uid string) error {
	if uid == "" {
		return fmt.Errorf("%w: user id", ErrMissingField)
	}
	return nil
}

// ConnectAccount stores token as the user's account for profile. Reconnecting
// the same identity refreshes its tokens and profile fields.
func ConnectAccount(ctx context.Context, db *gorm.DB, user *models.User, provider models.VCSProvider, profile *Profile, token *oauth2.Token) (*models.SocialAccount, error) {
	accessToken, err := crypto.Encrypt(token.AccessToken)
	if err != nil {
		return nil, fmt.Errorf("failed to encrypt access token: %w", err)
	}

	account := models.SocialAccount{
		UserID:      user.ID,
		Provider:    provider,
		UID:         profile.UID,
		Username:    utils.NilIfEmpty(profile.Username),
		AvatarUrl:   utils.NilIfEmpty(profile.AvatarURL),
		AccessToken: accessToken,
		TokenType:   utils.NilIfEmpty(token.TokenType),
	}
	if token.RefreshToken != "" {
		refreshToken, err := crypto.Encrypt(token.RefreshToken)
		if err != nil {
			return nil, fmt.Errorf("failed to encrypt refresh token: %w", err)
		}
		account.RefreshToken = &refreshToken
	}
	if !token.Expiry.IsZero() {
		account.ExpiresAt = utils.Ptr(token.Expiry)
	}

	logger := log.Ctx(ctx).With().Str("provider", string(provider)).Str("uid", profile.UID).Logger()

	var existing models.SocialAccount
	err = db.WithContext(ctx).Where("provider = ? AND uid = ?", provider, profile.UID).First(&existing).Error
	switch {
	case errors.Is(err, gorm.ErrRecordNotFound):
		if err := db.WithContext(ctx).Create(&account).Error; err != nil {
			return nil, fmt.Errorf("failed to create account: %w", err)
		}
		logger.Info().Str("account_id", account.ID).Msg("Connected account")
		return &account, nil
	case err != nil:
		return nil, fmt.Errorf("failed to find account: %w", err)
	}

	if existing.UserID != user.ID {
		logger.Info().Str("account_id", existing.ID).Msg("Account already connected to another user")
		return nil, ErrAccountConnectedElsewhere
	}

	account.ID = existing.ID
	account.CreatedAt = existing.CreatedAt
	if err := db.WithContext(ctx).Omit("User").Save(&account).Error; err != nil {
		return nil, fmt.Errorf("failed to update account: %w", err)
	}
	logger.Info().Str("account_id", account.ID).Msg("Reconnected account")
	return &account, nil
}
