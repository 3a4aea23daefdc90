package organizations

import (
	"github.com/deployra/docsync/internal/database"
	"github.com/deployra/docsync/internal/models"
	"gorm.io/gorm"
)

func memberOrganizationIDs(user *models.User) *gorm.DB {
	return database.GetDatabase().
		Model(&models.RemoteOrganizationRelation{}).
		Select("remoteOrganizationId").
		Where("userId = ?", user.ID)
}
