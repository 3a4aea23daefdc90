package integrations

import (
	"github.com/deployra/docsync/internal/database"
	"github.com/deployra/docsync/internal/models"
	"github.com/deployra/docsync/pkg/response"
	"github.com/gofiber/fiber/v2"
)

// POST /api/projects/:projectId/integrations/:integrationId/sync
func Sync(c *fiber.Ctx) error {
	db := database.GetDatabase()
	ctx := c.UserContext()
	projectID := c.Params("projectId")
	integrationID := c.Params("integrationId")

	user, ok := c.Locals("user").(*models.User)
	if !ok {
		return response.Unauthorized(c, "Invalid authentication")
	}

	project, err := findProject(user, projectID)
	if err != nil {
		return response.NotFound(c, "Project not found")
	}

	var integration models.Integration
	if err := db.Where("id = ? AND projectId = ?", integrationID, project.ID).First(&integration).Error; err != nil {
		return response.NotFound(c, "Integration not found")
	}

	if !integration.IntegrationType.HasSync() {
		return response.BadRequest(c, "Integration does not support sync")
	}

	svc, err := ServiceFor(ctx, db, project)
	if err != nil {
		return response.BadRequest(c, "No connected account for the project repository")
	}

	if !svc.UpdateWebhook(ctx, project, &integration) {
		return response.BadGateway(c, "Webhook could not be updated on the provider")
	}

	return response.Success(c, formatIntegration(project, &integration))
}
