package projects

import (
	"github.com/deployra/docsync/internal/models"
	"github.com/deployra/docsync/pkg/response"
	"github.com/gofiber/fiber/v2"
)

// GET /api/projects/:projectId
func Get(c *fiber.Ctx) error {
	user, ok := c.Locals("user").(*models.User)
	if !ok {
		return response.Unauthorized(c, "Invalid authentication")
	}

	project, err := findOwnedProject(user, c.Params("projectId"))
	if err != nil {
		return response.NotFound(c, "Project not found")
	}

	return response.Success(c, project)
}
