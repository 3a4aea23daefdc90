package organizations

import (
	"github.com/deployra/docsync/internal/database"
	"github.com/deployra/docsync/internal/models"
	"github.com/deployra/docsync/pkg/response"
	"github.com/gofiber/fiber/v2"
)

// GET /api/organizations
//
// Lists the remote organizations any connected account of the user belongs to.
func List(c *fiber.Ctx) error {
	db := database.GetDatabase()

	user, ok := c.Locals("user").(*models.User)
	if !ok {
		return response.Unauthorized(c, "Invalid authentication")
	}

	query := db.Where("id IN (?)", memberOrganizationIDs(user))
	if provider := c.Query("provider"); provider != "" {
		query = query.Where("vcsProvider = ?", provider)
	}

	var organizations []models.RemoteOrganization
	if err := query.Order("slug ASC").Find(&organizations).Error; err != nil {
		return response.InternalServerError(c, "Failed to fetch organizations")
	}

	return response.Success(c, organizations)
}
