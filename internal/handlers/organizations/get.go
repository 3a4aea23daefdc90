package organizations

import (
	"github.com/deployra/docsync/internal/database"
	"github.com/deployra/docsync/internal/models"
	"github.com/deployra/docsync/pkg/response"
	"github.com/gofiber/fiber/v2"
)

// GET /api/organizations/:organizationId
func Get(c *fiber.Ctx) error {
	db := database.GetDatabase()
	organizationID := c.Params("organizationId")

	user, ok := c.Locals("user").(*models.User)
	if !ok {
		return response.Unauthorized(c, "Invalid authentication")
	}

	var organization models.RemoteOrganization
	if err := db.Where("id = ? AND id IN (?)", organizationID, memberOrganizationIDs(user)).
		First(&organization).Error; err != nil {
		return response.NotFound(c, "Organization not found")
	}

	var repositories []models.RemoteRepository
	if err := db.Where("organizationId = ?", organization.ID).
		Order("fullName ASC").
		Find(&repositories).Error; err != nil {
		return response.InternalServerError(c, "Failed to fetch organization repositories")
	}

	return response.Success(c, fiber.Map{
		"organization": organization,
		"repositories": repositories,
	})
}
