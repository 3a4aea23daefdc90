package oauth

import (
	"context"
	"errors"
	"net/http"

	"github.com/deployra/docsync/internal/models"
	"github.com/deployra/docsync/internal/vcs"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
	"gorm.io/datatypes"
)

// hookResponse is a provider answer to a webhook call
type hookResponse struct {
	StatusCode int
	Data       map[string]any
}

// hookDriver is the provider half of the webhook manager
type hookDriver interface {
	createHook(ctx context.Context, project *models.Project, integration *models.Integration) (*hookResponse, error)
	listHooks(ctx context.Context, project *models.Project) (int, []map[string]any, error)
	updateHook(ctx context.Context, project *models.Project, integration *models.Integration, providerData datatypes.JSONMap) (*hookResponse, error)
	// hookCallbackURL returns the delivery URL configured on a listed hook
	hookCallbackURL(hook map[string]any) string
}

func (b *base) hookLogger(ctx context.Context, project *models.Project, integration *models.Integration) zerolog.Logger {
	logCtx := log.Ctx(ctx).With().
		Str("provider", string(b.provider)).
		Str("project_slug", project.Slug)
	if integration != nil {
		logCtx = logCtx.Str("integration_id", integration.ID)
	}
	return logCtx.Logger()
}

// setupWebhook creates the remote hook for project and caches what the
// provider returns. Every failure is logged and reported as false.
func (b *base) setupWebhook(ctx context.Context, driver hookDriver, project *models.Project, integration *models.Integration) bool {
	if integration == nil {
		integrationType, ok := models.IntegrationTypeForProvider(b.provider)
		if !ok {
			return false
		}
		var err error
		integration, err = b.getOrCreateIntegration(ctx, project, integrationType)
		if err != nil {
			logger := b.hookLogger(ctx, project, nil)
			logger.Error().Err(err).Msg("Webhook creation failed, no integration")
			return false
		}
	}
	logger := b.hookLogger(ctx, project, integration)

	resp, err := driver.createHook(ctx, project, integration)
	if err != nil {
		logger.Error().Err(err).Msg("Webhook creation failed for project")
		return false
	}
	logger = logger.With().Int("http_status_code", resp.StatusCode).Logger()

	switch resp.StatusCode {
	case http.StatusCreated:
		integration.ProviderData = resp.Data
		integration.WebhookState = models.WebhookStateActive
		if err := b.saveIntegration(ctx, integration); err != nil {
			logger.Error().Err(err).Msg("Webhook created but provider data was not saved")
			return false
		}
		logger.Debug().Msg("Webhook creation successful for project")
		return true
	case http.StatusUnauthorized, http.StatusForbidden, http.StatusNotFound:
		logger.Info().Msg("Project does not exist or user does not have permissions")
	default:
		logger.Warn().Interface("debug_data", resp.Data).Msg("Webhook creation failed, unknown response")
	}
	return false
}

// getProviderData returns cached provider data as is. Without a cache it
// lists the remote hooks and keeps the first one pointing at our callback.
func (b *base) getProviderData(ctx context.Context, driver hookDriver, project *models.Project, integration *models.Integration) datatypes.JSONMap {
	if len(integration.ProviderData) > 0 {
		return integration.ProviderData
	}
	logger := b.hookLogger(ctx, project, integration)

	status, hooks, err := driver.listHooks(ctx, project)
	if err != nil {
		logger.Error().Err(err).Msg("Webhook listing failed for project")
		return integration.ProviderData
	}
	if status != http.StatusOK {
		logger.Info().Int("http_status_code", status).Msg("Project does not exist or user does not have permissions")
		return integration.ProviderData
	}

	callbackURL := b.webhookURL(project, integration)
	for _, hook := range hooks {
		if driver.hookCallbackURL(hook) != callbackURL {
			continue
		}
		integration.ProviderData = hook
		integration.WebhookState = models.WebhookStateProbed
		if err := b.saveIntegration(ctx, integration); err != nil {
			logger.Error().Err(err).Msg("Failed to save probed provider data")
			break
		}
		logger.Info().Msg("Integration updated with provider data for project")
		break
	}
	return integration.ProviderData
}

// updateWebhook refreshes the remote hook, recreating it when the provider
// no longer knows it
func (b *base) updateWebhook(ctx context.Context, driver hookDriver, project *models.Project, integration *models.Integration) bool {
	providerData := b.getProviderData(ctx, driver, project, integration)
	if len(providerData) == 0 {
		return b.setupWebhook(ctx, driver, project, integration)
	}
	logger := b.hookLogger(ctx, project, integration)

	resp, err := driver.updateHook(ctx, project, integration, providerData)
	if err != nil {
		if errors.Is(err, ErrMalformedHookData) {
			logger.Warn().Err(err).Msg("Webhook update failed, cached provider data is invalid")
		} else {
			logger.Error().Err(err).Msg("Webhook update failed for project")
		}
		return false
	}
	logger = logger.With().Int("http_status_code", resp.StatusCode).Logger()

	switch resp.StatusCode {
	case http.StatusOK:
		integration.ProviderData = resp.Data
		integration.WebhookState = models.WebhookStateActive
		if err := b.saveIntegration(ctx, integration); err != nil {
			logger.Error().Err(err).Msg("Webhook updated but provider data was not saved")
			return false
		}
		logger.Info().Msg("Webhook update successful for project")
		return true
	case http.StatusNotFound:
		// deleted on the provider side, configure it from scratch
		integration.WebhookState = models.WebhookStateStale
		if err := b.saveIntegration(ctx, integration); err != nil {
			logger.Warn().Err(err).Msg("Failed to mark webhook as stale")
		}
		return b.setupWebhook(ctx, driver, project, integration)
	}

	logger.Error().Interface("debug_data", resp.Data).Msg("Webhook update failed")
	return false
}

// sendHook posts or puts a JSON hook payload through the session
func (b *base) sendHook(ctx context.Context, send func(context.Context, string, any) (*vcs.Response, error), target string, data map[string]any) (*hookResponse, error) {
	resp, err := send(ctx, target, data)
	if err != nil {
		return nil, err
	}
	result := &hookResponse{StatusCode: resp.StatusCode}
	if len(resp.Body) > 0 {
		// error bodies are kept for logging only when they decode
		if err := resp.DecodeJSON(&result.Data); err != nil && resp.OK() {
			return nil, err
		}
	}
	return result, nil
}
