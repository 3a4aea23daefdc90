package integrations

import (
	"errors"

	"github.com/deployra/docsync/internal/database"
	"github.com/deployra/docsync/internal/models"
	"github.com/deployra/docsync/internal/oauth"
	"github.com/deployra/docsync/pkg/response"
	"github.com/gofiber/fiber/v2"
	"github.com/rs/zerolog/log"
	"gorm.io/gorm"
)

type CreateRequest struct {
	IntegrationType models.IntegrationType `json:"integrationType"`
}

// POST /api/projects/:projectId/integrations
func Create(c *fiber.Ctx) error {
	db := database.GetDatabase()
	ctx := c.UserContext()
	projectID := c.Params("projectId")

	user, ok := c.Locals("user").(*models.User)
	if !ok {
		return response.Unauthorized(c, "Invalid authentication")
	}

	var req CreateRequest
	if err := c.BodyParser(&req); err != nil {
		return response.BadRequest(c, "Invalid request body")
	}

	project, err := findProject(user, projectID)
	if err != nil {
		return response.NotFound(c, "Project not found")
	}

	switch {
	case req.IntegrationType == models.IntegrationTypeAPIWebhook:
		integration := models.Integration{ProjectID: project.ID, IntegrationType: req.IntegrationType}
		if err := db.Where("projectId = ? AND integrationType = ?", project.ID, req.IntegrationType).
			FirstOrCreate(&integration).Error; err != nil {
			return response.InternalServerError(c, "Failed to create integration")
		}
		return response.Created(c, formatIntegration(project, &integration))
	case req.IntegrationType == "" || req.IntegrationType.HasSync():
	default:
		return response.BadRequest(c, "Integration type cannot be configured from here")
	}

	svc, err := ServiceFor(ctx, db, project)
	if err != nil {
		if errors.Is(err, oauth.ErrNoAccount) {
			return response.BadRequest(c, "No connected account for the project repository")
		}
		return response.BadRequest(c, "Project repository provider is not supported")
	}

	expected, _ := models.IntegrationTypeForProvider(svc.Provider())
	if req.IntegrationType != "" && req.IntegrationType != expected {
		return response.BadRequest(c, "Integration type does not match the project repository")
	}

	var existing *models.Integration
	var found models.Integration
	err = db.Where("projectId = ? AND integrationType = ?", project.ID, expected).First(&found).Error
	switch {
	case err == nil:
		existing = &found
	case !errors.Is(err, gorm.ErrRecordNotFound):
		return response.InternalServerError(c, "Failed to fetch integration")
	}

	if !svc.SetupWebhook(ctx, project, existing) {
		log.Ctx(ctx).Info().Str("project_slug", project.Slug).Msg("Webhook setup did not succeed")
		return response.BadGateway(c, "Webhook could not be configured on the provider")
	}

	var integration models.Integration
	if err := db.Where("projectId = ? AND integrationType = ?", project.ID, expected).First(&integration).Error; err != nil {
		return response.InternalServerError(c, "Failed to fetch integration")
	}

	return response.Created(c, formatIntegration(project, &integration))
}
