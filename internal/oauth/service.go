package oauth

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/deployra/docsync/internal/config"
	"github.com/deployra/docsync/internal/models"
	"github.com/deployra/docsync/internal/vcs"
	"github.com/deployra/docsync/pkg/github"
	"gorm.io/datatypes"
	"gorm.io/gorm"
)

// Service synchronizes one connected account with its VCS provider
type Service interface {
	Provider() models.VCSProvider
	Account() *models.SocialAccount

	SyncRepositories(ctx context.Context) ([]*models.RemoteRepository, error)
	SyncOrganizations(ctx context.Context) ([]*models.RemoteOrganization, []*models.RemoteRepository, error)

	// CreateRepository returns nil without error when the repository is skipped by policy
	CreateRepository(ctx context.Context, fields json.RawMessage, privacy models.PrivacyLevel, org *models.RemoteOrganization) (*models.RemoteRepository, error)
	CreateOrganization(ctx context.Context, fields json.RawMessage) (*models.RemoteOrganization, error)

	GetWebhookData(project *models.Project, integration *models.Integration) (map[string]any, error)
	GetProviderData(ctx context.Context, project *models.Project, integration *models.Integration) datatypes.JSONMap
	SetupWebhook(ctx context.Context, project *models.Project, integration *models.Integration) bool
	UpdateWebhook(ctx context.Context, project *models.Project, integration *models.Integration) bool
}

// BuildStatusSender is implemented by providers that accept commit statuses
type BuildStatusSender interface {
	SendBuildStatus(ctx context.Context, build Build, commit string, status models.BuildStatus) bool
}

// Build is the part of a documentation build reported as a commit status
type Build struct {
	Project *models.Project
	// URL of the build detail page
	BuildURL string
	// URL of the built version, linked on success
	DocsURL string
}

// Settings are the provider endpoints and import policy shared by all services
type Settings struct {
	APIURL               string
	ProductionDomain     string
	AppName              string
	DefaultPrivacyLevel  models.PrivacyLevel
	DefaultUserAvatarURL string
	DefaultOrgAvatarURL  string
	BuildStatusName      string
	BitbucketAPIURL      string
	GitLabURL            string
	GitHubAPIURL         string
	HTTPRetryMax         int
}

func SettingsFromConfig(cfg *config.Config) Settings {
	return Settings{
		APIURL:               cfg.ApiURL,
		ProductionDomain:     cfg.ProductionDomain,
		AppName:              cfg.AppName,
		DefaultPrivacyLevel:  models.PrivacyLevel(cfg.DefaultPrivacyLevel),
		DefaultUserAvatarURL: cfg.DefaultUserAvatarURL,
		DefaultOrgAvatarURL:  cfg.DefaultOrgAvatarURL,
		BuildStatusName:      cfg.BuildStatusName,
		BitbucketAPIURL:      cfg.BitbucketAPIURL,
		GitLabURL:            cfg.GitLabURL,
		GitHubAPIURL:         cfg.GitHubAPIURL,
		HTTPRetryMax:         cfg.HTTPRetryMax,
	}
}

// NewService returns the provider service for account using an already
// authenticated session
func NewService(db *gorm.DB, settings Settings, account *models.SocialAccount, session *vcs.Session) (Service, error) {
	b := base{
		db:       db,
		settings: settings,
		account:  account,
		session:  session,
		provider: account.Provider,
	}

	switch account.Provider {
	case models.VCSProviderBitbucket:
		return &BitbucketService{base: b}, nil
	case models.VCSProviderGitLab:
		return &GitLabService{base: b}, nil
	case models.VCSProviderGitHub:
		client, err := github.NewClient(session.StandardClient(), settings.GitHubAPIURL)
		if err != nil {
			return nil, fmt.Errorf("failed to create GitHub client: %w", err)
		}
		return &GitHubService{base: b, client: client}, nil
	}
	return nil, fmt.Errorf("%w: %s", ErrUnsupportedService, account.Provider)
}

// ServiceForProject picks the first connected account of the project owner
// whose provider matches the project repository
func ServiceForProject(ctx context.Context, db *gorm.DB, settings Settings, apps OAuthApps, project *models.Project) (Service, error) {
	provider, ok := ProviderForRepo(project.Repo, settings)
	if project.RemoteRepository != nil {
		provider, ok = project.RemoteRepository.VCSProvider, true
	}
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrUnsupportedService, project.Repo)
	}

	var account models.SocialAccount
	err := db.WithContext(ctx).
		Where("userId = ? AND provider = ?", project.UserID, provider).
		Order("createdAt ASC").
		First(&account).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrNoAccount
		}
		return nil, fmt.Errorf("failed to find account: %w", err)
	}

	return ForAccount(ctx, db, settings, apps, &account)
}
