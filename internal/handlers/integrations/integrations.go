package integrations

import (
	"context"

	"github.com/deployra/docsync/internal/config"
	"github.com/deployra/docsync/internal/database"
	"github.com/deployra/docsync/internal/models"
	"github.com/deployra/docsync/internal/oauth"
	"gorm.io/gorm"
)

// ServiceFor builds the provider service of the project owner, replaced in tests
var ServiceFor = func(ctx context.Context, db *gorm.DB, project *models.Project) (oauth.Service, error) {
	cfg := config.Get()
	return oauth.ServiceForProject(ctx, db, oauth.SettingsFromConfig(cfg), oauth.OAuthAppsFromConfig(cfg), project)
}

// findProject loads a project owned by user with its remote repository
func findProject(user *models.User, projectID string) (*models.Project, error) {
	db := database.GetDatabase()

	var project models.Project
	if err := db.Preload("RemoteRepository").
		Where("id = ? AND userId = ? AND deletedAt IS NULL", projectID, user.ID).
		First(&project).Error; err != nil {
		return nil, err
	}
	return &project, nil
}

func formatIntegration(project *models.Project, integration *models.Integration) map[string]interface{} {
	result := map[string]interface{}{
		"id":              integration.ID,
		"projectId":       integration.ProjectID,
		"integrationType": integration.IntegrationType,
		"webhookState":    integration.WebhookState,
		"providerData":    integration.ProviderData,
		"isActive":        integration.IsActive(project),
		"canSync":         integration.CanSync(),
		"hasSync":         integration.IntegrationType.HasSync(),
		"createdAt":       integration.CreatedAt,
		"updatedAt":       integration.UpdatedAt,
	}
	if integration.IntegrationType == models.IntegrationTypeAPIWebhook {
		result["token"] = integration.Token()
	}
	return result
}
