package auth

import (
	"github.com/deployra/docsync/internal/database"
	"github.com/deployra/docsync/internal/models"
	"github.com/deployra/docsync/pkg/response"
	"github.com/gofiber/fiber/v2"
)

// GET /api/auth/user (protected)
func GetUser(c *fiber.Ctx) error {
	db := database.GetDatabase()

	user, ok := c.Locals("user").(*models.User)
	if !ok {
		return response.Unauthorized(c, "Invalid token")
	}

	var providers []models.VCSProvider
	if err := db.Model(&models.SocialAccount{}).
		Where("userId = ?", user.ID).
		Distinct().
		Pluck("provider", &providers).Error; err != nil {
		return response.InternalServerError(c, "Failed to fetch connected accounts")
	}

	return response.Success(c, fiber.Map{
		"id":                 user.ID,
		"username":           user.Username,
		"email":              user.Email,
		"connectedProviders": providers,
		"createdAt":          user.CreatedAt,
	})
}
