package repositories

import (
	"github.com/deployra/docsync/internal/database"
	"github.com/deployra/docsync/internal/models"
	"github.com/deployra/docsync/pkg/response"
	"github.com/gofiber/fiber/v2"
)

// GET /api/repositories
//
// Lists the synced repositories reachable by the user's accounts. Filters:
// provider, organizationId, accountId and admin=true.
func List(c *fiber.Ctx) error {
	db := database.GetDatabase()

	user, ok := c.Locals("user").(*models.User)
	if !ok {
		return response.Unauthorized(c, "Invalid authentication")
	}

	query := db.Model(&models.RemoteRepositoryRelation{}).
		Preload("RemoteRepository").
		Where("userId = ?", user.ID)
	if accountID := c.Query("accountId"); accountID != "" {
		query = query.Where("accountId = ?", accountID)
	}
	if c.QueryBool("admin") {
		query = query.Where("admin = ?", true)
	}

	repoFilter := db.Model(&models.RemoteRepository{}).Select("id")
	filtered := false
	if provider := c.Query("provider"); provider != "" {
		repoFilter = repoFilter.Where("vcsProvider = ?", provider)
		filtered = true
	}
	if organizationID := c.Query("organizationId"); organizationID != "" {
		repoFilter = repoFilter.Where("organizationId = ?", organizationID)
		filtered = true
	}
	if filtered {
		query = query.Where("remoteRepositoryId IN (?)", repoFilter)
	}

	var relations []models.RemoteRepositoryRelation
	if err := query.Order("createdAt ASC").Find(&relations).Error; err != nil {
		return response.InternalServerError(c, "Failed to fetch repositories")
	}

	// one entry per repository, admin if any account administers it
	result := make([]fiber.Map, 0, len(relations))
	index := make(map[string]int, len(relations))
	for _, relation := range relations {
		if i, seen := index[relation.RemoteRepositoryID]; seen {
			if relation.Admin {
				result[i]["admin"] = true
			}
			continue
		}
		index[relation.RemoteRepositoryID] = len(result)
		result = append(result, fiber.Map{
			"repository": relation.RemoteRepository,
			"accountId":  relation.AccountID,
			"admin":      relation.Admin,
		})
	}

	return response.Success(c, result)
}
