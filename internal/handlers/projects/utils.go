package projects

import (
	"regexp"
	"strings"

	"github.com/deployra/docsync/internal/database"
	"github.com/deployra/docsync/internal/models"
	"gorm.io/gorm"
)

var slugInvalidChars = regexp.MustCompile(`[^a-z0-9]+`)

// slugify lowercases name and joins its alphanumeric runs with dashes
func slugify(name string) string {
	return strings.Trim(slugInvalidChars.ReplaceAllString(strings.ToLower(name), "-"), "-")
}

// findOwnedProject loads a live project owned by user
func findOwnedProject(user *models.User, projectID string) (*models.Project, error) {
	db := database.GetDatabase()

	var project models.Project
	if err := db.Preload("RemoteRepository").
		Where("id = ? AND userId = ? AND deletedAt IS NULL", projectID, user.ID).
		First(&project).Error; err != nil {
		return nil, err
	}
	return &project, nil
}

// findLinkableRepository returns a synced repository one of the user's
// accounts can access
func findLinkableRepository(db *gorm.DB, user *models.User, repositoryID string) (*models.RemoteRepository, error) {
	var repo models.RemoteRepository
	err := db.Where("id = ? AND id IN (?)", repositoryID,
		db.Model(&models.RemoteRepositoryRelation{}).Select("remoteRepositoryId").Where("userId = ?", user.ID)).
		First(&repo).Error
	if err != nil {
		return nil, err
	}
	return &repo, nil
}

func slugTaken(db *gorm.DB, slug, exceptID string) bool {
	var count int64
	query := db.Model(&models.Project{}).Where("slug = ?", slug)
	if exceptID != "" {
		query = query.Where("id <> ?", exceptID)
	}
	if err := query.Count(&count).Error; err != nil {
		return true
	}
	return count > 0
}
