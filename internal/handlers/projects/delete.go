package projects

import (
	"time"

	"github.com/deployra/docsync/internal/database"
	"github.com/deployra/docsync/internal/models"
	"github.com/deployra/docsync/pkg/response"
	"github.com/gofiber/fiber/v2"
)

// DELETE /api/projects/:projectId
//
// Soft deletes the project. Its integrations stay so a restored project keeps
// its hooks, but deliveries for a deleted project are rejected.
func Delete(c *fiber.Ctx) error {
	db := database.GetDatabase()

	user, ok := c.Locals("user").(*models.User)
	if !ok {
		return response.Unauthorized(c, "Invalid authentication")
	}

	project, err := findOwnedProject(user, c.Params("projectId"))
	if err != nil {
		return response.NotFound(c, "Project not found")
	}

	now := time.Now()
	if err := db.Model(&models.Project{}).Where("id = ?", project.ID).Update("deletedAt", &now).Error; err != nil {
		return response.InternalServerError(c, "Failed to delete project")
	}

	return response.Success(c, fiber.Map{
		"message": "Project deleted successfully",
	})
}
