package accounts

import (
	"github.com/deployra/docsync/internal/database"
	"github.com/deployra/docsync/internal/models"
	"github.com/deployra/docsync/pkg/response"
	"github.com/gofiber/fiber/v2"
)

// GET /api/accounts
func List(c *fiber.Ctx) error {
	db := database.GetDatabase()

	user, ok := c.Locals("user").(*models.User)
	if !ok {
		return response.Unauthorized(c, "Invalid authentication")
	}

	var accounts []models.SocialAccount
	if err := db.Where("userId = ?", user.ID).
		Order("createdAt ASC").
		Find(&accounts).Error; err != nil {
		return response.InternalServerError(c, "Failed to fetch connected accounts")
	}

	result := make([]fiber.Map, 0, len(accounts))
	for _, acc := range accounts {
		result = append(result, fiber.Map{
			"id":        acc.ID,
			"provider":  acc.Provider,
			"uid":       acc.UID,
			"username":  acc.Username,
			"avatarUrl": acc.AvatarUrl,
			"createdAt": acc.CreatedAt,
			"updatedAt": acc.UpdatedAt,
		})
	}

	return response.Success(c, result)
}
