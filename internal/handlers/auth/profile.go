package auth

import (
	"net/mail"

	"github.com/deployra/docsync/internal/database"
	"github.com/deployra/docsync/internal/models"
	"github.com/deployra/docsync/pkg/response"
	"github.com/gofiber/fiber/v2"
)

type UpdateProfileRequest struct {
	Email string `json:"email"`
}

// PATCH /api/auth/user (protected)
func UpdateProfile(c *fiber.Ctx) error {
	db := database.GetDatabase()

	user, ok := c.Locals("user").(*models.User)
	if !ok {
		return response.Unauthorized(c, "Invalid authentication")
	}

	var req UpdateProfileRequest
	if err := c.BodyParser(&req); err != nil {
		return response.BadRequest(c, "Invalid request body")
	}

	if _, err := mail.ParseAddress(req.Email); err != nil {
		return response.BadRequest(c, "Invalid email format")
	}

	var existingUser models.User
	if err := db.Where("email = ? AND id <> ?", req.Email, user.ID).First(&existingUser).Error; err == nil {
		return response.BadRequest(c, "Email already taken")
	}

	if err := db.Model(&models.User{}).Where("id = ?", user.ID).Update("email", req.Email).Error; err != nil {
		return response.InternalServerError(c, "Failed to update profile")
	}

	return response.Success(c, fiber.Map{
		"id":       user.ID,
		"username": user.Username,
		"email":    req.Email,
	})
}
