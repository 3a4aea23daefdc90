package oauth

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/deployra/docsync/internal/models"
	"github.com/deployra/docsync/internal/vcs"
	"github.com/rs/zerolog/log"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// base carries what every provider service shares: the store, the account
// being synced and its authenticated session
type base struct {
	db       *gorm.DB
	settings Settings
	account  *models.SocialAccount
	session  *vcs.Session
	provider models.VCSProvider
}

func (b *base) Provider() models.VCSProvider {
	return b.provider
}

func (b *base) Account() *models.SocialAccount {
	return b.account
}

// webhookURL is the callback registered on the provider for integration
func (b *base) webhookURL(project *models.Project, integration *models.Integration) string {
	return fmt.Sprintf("%s/api/v2/webhook/%s/%s/", strings.TrimRight(b.settings.APIURL, "/"), project.Slug, integration.ID)
}

func (b *base) privacyLevel(privacy models.PrivacyLevel) models.PrivacyLevel {
	if privacy != "" {
		return privacy
	}
	if b.settings.DefaultPrivacyLevel != "" {
		return b.settings.DefaultPrivacyLevel
	}
	return models.PrivacyLevelPublic
}

// firstOrCreate reads the row matching conds or inserts build(). Losing an
// insert race to a concurrent sync re-reads the winning row.
func firstOrCreate[T any](ctx context.Context, db *gorm.DB, conds map[string]interface{}, build func() *T) (*T, error) {
	record := build()
	err := db.WithContext(ctx).Where(conds).FirstOrCreate(record).Error
	if errors.Is(err, gorm.ErrDuplicatedKey) {
		record = build()
		err = db.WithContext(ctx).Where(conds).First(record).Error
	}
	if err != nil {
		return nil, err
	}
	return record, nil
}

func (b *base) getOrCreateRepository(ctx context.Context, remoteID string) (*models.RemoteRepository, error) {
	repo, err := firstOrCreate(ctx, b.db,
		map[string]interface{}{"remoteId": remoteID, "vcsProvider": b.provider},
		func() *models.RemoteRepository {
			return &models.RemoteRepository{RemoteID: remoteID, VCSProvider: b.provider}
		})
	if err != nil {
		return nil, fmt.Errorf("failed to get or create remote repository: %w", err)
	}
	return repo, nil
}

func (b *base) repositoryRelation(ctx context.Context, repo *models.RemoteRepository) (*models.RemoteRepositoryRelation, error) {
	relation, err := firstOrCreate(ctx, b.db,
		map[string]interface{}{"remoteRepositoryId": repo.ID, "accountId": b.account.ID},
		func() *models.RemoteRepositoryRelation {
			return &models.RemoteRepositoryRelation{
				RemoteRepositoryID: repo.ID,
				AccountID:          b.account.ID,
				UserID:             b.account.UserID,
			}
		})
	if err != nil {
		return nil, fmt.Errorf("failed to get or create repository relation: %w", err)
	}
	return relation, nil
}

func (b *base) getOrCreateOrganization(ctx context.Context, remoteID string) (*models.RemoteOrganization, error) {
	org, err := firstOrCreate(ctx, b.db,
		map[string]interface{}{"remoteId": remoteID, "vcsProvider": b.provider},
		func() *models.RemoteOrganization {
			return &models.RemoteOrganization{RemoteID: remoteID, VCSProvider: b.provider}
		})
	if err != nil {
		return nil, fmt.Errorf("failed to get or create remote organization: %w", err)
	}
	return org, nil
}

func (b *base) organizationRelation(ctx context.Context, org *models.RemoteOrganization) error {
	_, err := firstOrCreate(ctx, b.db,
		map[string]interface{}{"remoteOrganizationId": org.ID, "accountId": b.account.ID},
		func() *models.RemoteOrganizationRelation {
			return &models.RemoteOrganizationRelation{
				RemoteOrganizationID: org.ID,
				AccountID:            b.account.ID,
				UserID:               b.account.UserID,
			}
		})
	if err != nil {
		return fmt.Errorf("failed to get or create organization relation: %w", err)
	}
	return nil
}

// getOrCreateIntegration returns the project's integration of the given type
func (b *base) getOrCreateIntegration(ctx context.Context, project *models.Project, integrationType models.IntegrationType) (*models.Integration, error) {
	integration, err := firstOrCreate(ctx, b.db,
		map[string]interface{}{"projectId": project.ID, "integrationType": integrationType},
		func() *models.Integration {
			return &models.Integration{ProjectID: project.ID, IntegrationType: integrationType}
		})
	if err != nil {
		return nil, fmt.Errorf("failed to get or create integration: %w", err)
	}
	return integration, nil
}

func (b *base) saveIntegration(ctx context.Context, integration *models.Integration) error {
	if err := b.db.WithContext(ctx).Omit(clause.Associations).Save(integration).Error; err != nil {
		return fmt.Errorf("failed to save integration: %w", err)
	}
	return nil
}

// repositoryFields is the canonical shape every provider maps its payload to
type repositoryFields struct {
	RemoteID      string
	Name          string
	FullName      string
	Description   *string
	CloneURL      string
	SSHURL        string
	HTMLURL       string
	DefaultBranch *string
	AvatarURL     string
	Private       bool
	VCS           string
	// nil leaves the relation admin flag as it is
	Admin *bool
}

// reconcileRepository upserts a repository when it passes the privacy policy
// and is not owned by another organization. A nil result means skipped.
func (b *base) reconcileRepository(ctx context.Context, fields repositoryFields, privacy models.PrivacyLevel, org *models.RemoteOrganization) (*models.RemoteRepository, error) {
	logger := log.Ctx(ctx).With().
		Str("provider", string(b.provider)).
		Str("repository", fields.FullName).
		Logger()

	privacy = b.privacyLevel(privacy)
	if privacy != models.PrivacyLevelPrivate && !(privacy == models.PrivacyLevelPublic && !fields.Private) {
		logger.Debug().Bool("private", fields.Private).Msg("Not importing repository because mismatched type")
		return nil, nil
	}

	repo, err := b.getOrCreateRepository(ctx, fields.RemoteID)
	if err != nil {
		return nil, err
	}
	relation, err := b.repositoryRelation(ctx, repo)
	if err != nil {
		return nil, err
	}

	if repo.OrganizationID != nil && !repo.BelongsTo(org) {
		logger.Debug().Str("organization_id", *repo.OrganizationID).Msg("Not importing repository because mismatched orgs")
		return nil, nil
	}

	repo.OrganizationID = nil
	repo.Organization = nil
	if org != nil {
		repo.OrganizationID = &org.ID
	}
	repo.Name = fields.Name
	repo.FullName = fields.FullName
	repo.Description = fields.Description
	repo.SSHURL = fields.SSHURL
	repo.HTMLURL = fields.HTMLURL
	repo.Private = fields.Private
	repo.VCS = fields.VCS
	repo.DefaultBranch = fields.DefaultBranch
	repo.CloneURL = fields.CloneURL
	if repo.Private {
		repo.CloneURL = fields.SSHURL
	}
	repo.AvatarURL = fields.AvatarURL
	if repo.AvatarURL == "" {
		repo.AvatarURL = b.settings.DefaultUserAvatarURL
	}

	if err := b.db.WithContext(ctx).Omit(clause.Associations).Save(repo).Error; err != nil {
		return nil, fmt.Errorf("failed to save remote repository: %w", err)
	}

	if fields.Admin != nil && relation.Admin != *fields.Admin {
		relation.Admin = *fields.Admin
		if err := b.db.WithContext(ctx).Omit(clause.Associations).Save(relation).Error; err != nil {
			return nil, fmt.Errorf("failed to save repository relation: %w", err)
		}
	}

	return repo, nil
}

// organizationFields is the canonical shape of a provider organization
type organizationFields struct {
	RemoteID  string
	Slug      string
	Name      *string
	Email     *string
	URL       *string
	AvatarURL string
}

func (b *base) reconcileOrganization(ctx context.Context, fields organizationFields) (*models.RemoteOrganization, error) {
	org, err := b.getOrCreateOrganization(ctx, fields.RemoteID)
	if err != nil {
		return nil, err
	}
	if err := b.organizationRelation(ctx, org); err != nil {
		return nil, err
	}

	org.Slug = fields.Slug
	org.Name = fields.Name
	org.Email = fields.Email
	org.URL = fields.URL
	avatarURL := fields.AvatarURL
	if avatarURL == "" {
		avatarURL = b.settings.DefaultOrgAvatarURL
	}
	org.AvatarURL = &avatarURL

	if err := b.db.WithContext(ctx).Omit(clause.Associations).Save(org).Error; err != nil {
		return nil, fmt.Errorf("failed to save remote organization: %w", err)
	}
	return org, nil
}
