package testutils

import (
	"testing"
	"time"

	"github.com/deployra/docsync/internal/database"
	"github.com/deployra/docsync/internal/models"
	"github.com/deployra/docsync/internal/utils"
	"github.com/golang-jwt/jwt/v5"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

// NewDB opens a migrated in-memory sqlite database private to t
func NewDB(t *testing.T) *gorm.DB {
	t.Helper()

	db, err := gorm.Open(sqlite.Open("file::memory:"), database.Config(logger.Default.LogMode(logger.Silent)))
	require.NoError(t, err)

	sqlDB, err := db.DB()
	require.NoError(t, err)
	// every connection of :memory: is a new database
	sqlDB.SetMaxOpenConns(1)
	t.Cleanup(func() { _ = sqlDB.Close() })

	require.NoError(t, database.Migrate(db))
	return db
}

// CreateUser inserts a user with a unique username
func CreateUser(t *testing.T, db *gorm.DB, username string) *models.User {
	t.Helper()

	user := &models.User{Username: username, Email: username + "@example.com"}
	require.NoError(t, db.Create(user).Error)
	return user
}

// CreateAccount connects user to provider with a plain access token
func CreateAccount(t *testing.T, db *gorm.DB, user *models.User, provider models.VCSProvider, uid string) *models.SocialAccount {
	t.Helper()

	account := &models.SocialAccount{
		UserID:      user.ID,
		Provider:    provider,
		UID:         uid,
		Username:    utils.Ptr(user.Username),
		AccessToken: "access-token",
	}
	require.NoError(t, db.Create(account).Error)
	return account
}

// CreateProject inserts a manually imported project for repo
func CreateProject(t *testing.T, db *gorm.DB, user *models.User, slug, repo string) *models.Project {
	t.Helper()

	project := &models.Project{Slug: slug, Name: slug, Repo: repo, UserID: user.ID}
	require.NoError(t, db.Create(project).Error)
	return project
}

// BearerToken signs a management API token for user
func BearerToken(t *testing.T, secret string, user *models.User) string {
	t.Helper()

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, jwt.MapClaims{
		"userId": user.ID,
		"email":  user.Email,
		"exp":    time.Now().Add(time.Hour).Unix(),
	})
	signed, err := token.SignedString([]byte(secret))
	require.NoError(t, err)
	return "Bearer " + signed
}
