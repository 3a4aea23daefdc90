package accounts

import (
	"errors"

	"github.com/deployra/docsync/internal/database"
	"github.com/deployra/docsync/internal/models"
	"github.com/deployra/docsync/internal/oauth"
	"github.com/deployra/docsync/pkg/response"
	"github.com/gofiber/fiber/v2"
	"github.com/rs/zerolog/log"
)

// POST /api/accounts/:accountId/sync
func Sync(c *fiber.Ctx) error {
	db := database.GetDatabase()
	ctx := c.UserContext()
	accountID := c.Params("accountId")

	user, ok := c.Locals("user").(*models.User)
	if !ok {
		return response.Unauthorized(c, "Invalid authentication")
	}

	if accountID == "" {
		return response.BadRequest(c, "Account ID is required")
	}

	var account models.SocialAccount
	if err := db.Where("id = ? AND userId = ?", accountID, user.ID).First(&account).Error; err != nil {
		return response.NotFound(c, "Account not found")
	}

	svc, err := ServiceFor(ctx, db, &account)
	if err != nil {
		log.Ctx(ctx).Error().Err(err).Str("account_id", account.ID).Msg("Failed to create sync service")
		return response.BadRequest(c, "Provider is not supported")
	}

	result, err := oauth.SyncAccount(ctx, svc, NewLocker(), lockTTL())
	if err != nil {
		var serviceErr *oauth.SyncServiceError
		switch {
		case errors.Is(err, oauth.ErrSyncInProgress):
			return response.Conflict(c, "A sync for this account is already running")
		case errors.As(err, &serviceErr):
			return response.BadRequest(c, serviceErr.Error())
		}
		log.Ctx(ctx).Error().Err(err).Str("account_id", account.ID).Msg("Account sync failed")
		return response.InternalServerError(c, "Failed to sync account")
	}

	return response.Success(c, fiber.Map{
		"syncId":        result.SyncID,
		"provider":      result.Provider,
		"repositories":  len(result.Repositories),
		"organizations": len(result.Organizations),
	})
}
