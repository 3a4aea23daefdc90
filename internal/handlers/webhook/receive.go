package webhook

import (
	"context"
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"strings"
	"time"

	"github.com/deployra/docsync/internal/database"
	"github.com/deployra/docsync/internal/models"
	"github.com/deployra/docsync/internal/redis"
	"github.com/deployra/docsync/pkg/response"
	"github.com/gofiber/fiber/v2"
	"github.com/rs/zerolog/log"
)

// Publish forwards accepted deliveries, replaced in tests
var Publish = func(ctx context.Context, event redis.WebhookEvent) error {
	return redis.PublishWebhookReceived(ctx, event)
}

// delivery is what a provider request tells about itself
type delivery struct {
	event      string
	deliveryID string
}

// POST /api/v2/webhook/:projectSlug/:integrationId/
func Receive(c *fiber.Ctx) error {
	db := database.GetDatabase()
	ctx := c.UserContext()
	projectSlug := c.Params("projectSlug")
	integrationID := c.Params("integrationId")

	logger := log.Ctx(ctx).With().
		Str("project_slug", projectSlug).
		Str("integration_id", integrationID).
		Logger()

	var project models.Project
	if err := db.Where("slug = ? AND deletedAt IS NULL", projectSlug).First(&project).Error; err != nil {
		return response.NotFound(c, "Project not found")
	}

	var integration models.Integration
	if err := db.Where("id = ? AND projectId = ?", integrationID, project.ID).First(&integration).Error; err != nil {
		return response.NotFound(c, "Integration not found")
	}

	body := c.Body()
	var d delivery
	switch integration.IntegrationType {
	case models.IntegrationTypeGitHubWebhook:
		if !validSignature(integration.SecretValue(), body, c.Get("X-Hub-Signature-256")) {
			logger.Info().Msg("Invalid GitHub webhook signature")
			return response.Unauthorized(c, "Invalid signature")
		}
		d = delivery{event: c.Get("X-GitHub-Event"), deliveryID: c.Get("X-GitHub-Delivery")}
		if d.event == "ping" {
			return response.Success(c, fiber.Map{"detail": "Webhook configured correctly"})
		}
	case models.IntegrationTypeBitbucketWebhook:
		if !validSignature(integration.SecretValue(), body, c.Get("X-Hub-Signature")) {
			logger.Info().Msg("Invalid Bitbucket webhook signature")
			return response.Unauthorized(c, "Invalid signature")
		}
		d = delivery{event: c.Get("X-Event-Key"), deliveryID: c.Get("X-Request-UUID")}
	case models.IntegrationTypeGitLabWebhook:
		if !equalSecret(integration.SecretValue(), c.Get("X-Gitlab-Token")) {
			logger.Info().Msg("Invalid GitLab webhook token")
			return response.Unauthorized(c, "Invalid token")
		}
		d = delivery{event: c.Get("X-Gitlab-Event"), deliveryID: c.Get("X-Gitlab-Event-UUID")}
	case models.IntegrationTypeAPIWebhook:
		if !equalSecret(integration.Token(), requestToken(c)) {
			logger.Info().Msg("Invalid API webhook token")
			return response.Unauthorized(c, "Invalid token")
		}
		d = delivery{event: "api"}
	default:
		return response.BadRequest(c, "Integration does not accept webhooks")
	}

	event := redis.WebhookEvent{
		ProjectID:       project.ID,
		ProjectSlug:     project.Slug,
		IntegrationID:   integration.ID,
		IntegrationType: string(integration.IntegrationType),
		Event:           d.event,
		DeliveryID:      d.deliveryID,
		ReceivedAt:      time.Now().UTC(),
	}
	if json.Valid(body) {
		event.Payload = append(json.RawMessage(nil), body...)
	}

	if err := Publish(ctx, event); err != nil {
		logger.Error().Err(err).Msg("Failed to publish webhook event")
		return response.InternalServerError(c, "Failed to process webhook")
	}

	logger.Debug().Str("event", d.event).Msg("Webhook accepted")
	return response.Accepted(c, "Webhook received")
}

// validSignature checks a "sha256=<hex>" HMAC of body keyed with secret
func validSignature(secret string, body []byte, signature string) bool {
	if secret == "" || signature == "" {
		return false
	}
	mac := hmac.New(sha256.New, []byte(secret))
	mac.Write(body)
	expected := "sha256=" + hex.EncodeToString(mac.Sum(nil))
	return hmac.Equal([]byte(strings.ToLower(signature)), []byte(expected))
}

func equalSecret(expected, got string) bool {
	if expected == "" || got == "" {
		return false
	}
	return hmac.Equal([]byte(expected), []byte(got))
}

// requestToken reads the API webhook token from a form or a JSON body
func requestToken(c *fiber.Ctx) string {
	if token := c.FormValue("token"); token != "" {
		return token
	}
	var payload struct {
		Token string `json:"token"`
	}
	if err := json.Unmarshal(c.Body(), &payload); err != nil {
		return ""
	}
	return payload.Token
}
