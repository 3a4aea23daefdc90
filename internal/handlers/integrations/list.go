package integrations

import (
	"github.com/deployra/docsync/internal/database"
	"github.com/deployra/docsync/internal/models"
	"github.com/deployra/docsync/pkg/response"
	"github.com/gofiber/fiber/v2"
)

// GET /api/projects/:projectId/integrations
func List(c *fiber.Ctx) error {
	db := database.GetDatabase()
	projectID := c.Params("projectId")

	user, ok := c.Locals("user").(*models.User)
	if !ok {
		return response.Unauthorized(c, "Invalid authentication")
	}

	project, err := findProject(user, projectID)
	if err != nil {
		return response.NotFound(c, "Project not found")
	}

	var integrations []models.Integration
	if err := db.Where("projectId = ?", project.ID).
		Order("createdAt ASC").
		Find(&integrations).Error; err != nil {
		return response.InternalServerError(c, "Failed to fetch integrations")
	}

	result := make([]map[string]interface{}, 0, len(integrations))
	for i := range integrations {
		result = append(result, formatIntegration(project, &integrations[i]))
	}

	return response.Success(c, result)
}
