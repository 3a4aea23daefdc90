package models

import (
	"time"

	"github.com/deployra/docsync/pkg/utils"
	"gorm.io/datatypes"
	"gorm.io/gorm"
)

const integrationSecretLength = 32

// Integration is a webhook registration for one project. The concrete
// behaviour is selected by IntegrationType.
type Integration struct {
	ID              string            `gorm:"primaryKey;size:191;column:id" json:"id"`
	ProjectID       string            `gorm:"size:191;uniqueIndex:idx_integration_project_type;column:projectId" json:"projectId"`
	IntegrationType IntegrationType   `gorm:"size:32;uniqueIndex:idx_integration_project_type;column:integrationType" json:"integrationType"`
	ProviderData    datatypes.JSONMap `gorm:"column:providerData" json:"providerData,omitempty"`
	Secret          *string           `gorm:"size:255;column:secret" json:"-"`
	WebhookState    WebhookState      `gorm:"size:16;default:NONE;column:webhookState" json:"webhookState"`
	CreatedAt       time.Time         `gorm:"autoCreateTime;column:createdAt" json:"createdAt"`
	UpdatedAt       time.Time         `gorm:"autoUpdateTime;column:updatedAt" json:"updatedAt"`
	Project         *Project          `gorm:"foreignKey:ProjectID" json:"-"`
}

func (Integration) TableName() string {
	return "Integration"
}

// BeforeSave runs the per-type construction: secret once, then the API token
func (i *Integration) BeforeSave(tx *gorm.DB) error {
	if i.ID == "" {
		i.ID = utils.GenerateShortID()
	}
	if i.Secret == nil || *i.Secret == "" {
		secret, err := utils.GenerateSecret(integrationSecretLength)
		if err != nil {
			return err
		}
		i.Secret = &secret
	}
	if i.WebhookState == "" {
		i.WebhookState = WebhookStateNone
	}
	if i.IntegrationType == IntegrationTypeAPIWebhook && i.Token() == "" {
		token, err := utils.GenerateToken()
		if err != nil {
			return err
		}
		i.ProviderData = datatypes.JSONMap{"token": token}
	}
	return nil
}

// HasSync reports whether the integration keeps a remote webhook in sync
func (t IntegrationType) HasSync() bool {
	switch t {
	case IntegrationTypeGitHubWebhook, IntegrationTypeBitbucketWebhook, IntegrationTypeGitLabWebhook:
		return true
	}
	return false
}

// IsRemoteOnly reports whether the integration has no local webhook
func (t IntegrationType) IsRemoteOnly() bool {
	return t == IntegrationTypeGitHubApp
}

// IntegrationTypeForProvider returns the webhook integration used for a provider
func IntegrationTypeForProvider(provider VCSProvider) (IntegrationType, bool) {
	switch provider {
	case VCSProviderGitHub:
		return IntegrationTypeGitHubWebhook, true
	case VCSProviderBitbucket:
		return IntegrationTypeBitbucketWebhook, true
	case VCSProviderGitLab:
		return IntegrationTypeGitLabWebhook, true
	}
	return "", false
}

// CanSync reports whether the cached provider data identifies a remote hook
func (i *Integration) CanSync() bool {
	switch i.IntegrationType {
	case IntegrationTypeGitHubWebhook, IntegrationTypeGitLabWebhook:
		return i.hasProviderKeys("id", "url")
	case IntegrationTypeBitbucketWebhook:
		return i.hasProviderKeys("uuid", "url")
	}
	return false
}

// IsActive reports whether the integration can currently receive events
func (i *Integration) IsActive(project *Project) bool {
	if i.IntegrationType == IntegrationTypeGitHubApp {
		return project != nil && project.HasRemoteRepository()
	}
	return true
}

// Token is the generic API webhook token, empty for other types
func (i *Integration) Token() string {
	if i.ProviderData == nil {
		return ""
	}
	token, _ := i.ProviderData["token"].(string)
	return token
}

// SecretValue returns the webhook secret or an empty string
func (i *Integration) SecretValue() string {
	if i.Secret == nil {
		return ""
	}
	return *i.Secret
}

func (i *Integration) hasProviderKeys(keys ...string) bool {
	if i.ProviderData == nil {
		return false
	}
	for _, key := range keys {
		if _, ok := i.ProviderData[key]; !ok {
			return false
		}
	}
	return true
}
