package oauth

import (
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/deployra/docsync/internal/models"
	"github.com/deployra/docsync/internal/testutils"
	"github.com/deployra/docsync/internal/vcs"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"
)

const (
	testUserAvatar = "https://docs.example.com/static/user.png"
	testOrgAvatar  = "https://docs.example.com/static/org.png"
)

func testSettings(baseURL string) Settings {
	return Settings{
		APIURL:               "https://docs.example.com",
		ProductionDomain:     "docs.example.com",
		AppName:              "docsync",
		DefaultPrivacyLevel:  models.PrivacyLevelPublic,
		DefaultUserAvatarURL: testUserAvatar,
		DefaultOrgAvatarURL:  testOrgAvatar,
		BuildStatusName:      "docs/build",
		BitbucketAPIURL:      baseURL,
		GitLabURL:            baseURL,
		GitHubAPIURL:         baseURL,
	}
}

// fixture is a database with one user connected to a provider
type fixture struct {
	db      *gorm.DB
	user    *models.User
	account *models.SocialAccount
}

func newFixture(t *testing.T, provider models.VCSProvider) *fixture {
	t.Helper()
	db := testutils.NewDB(t)
	user := testutils.CreateUser(t, db, "alice")
	account := testutils.CreateAccount(t, db, user, provider, "42")
	return &fixture{db: db, user: user, account: account}
}

func (f *fixture) service(t *testing.T, settings Settings, srv *httptest.Server) Service {
	t.Helper()
	svc, err := NewService(f.db, settings, f.account, vcs.NewSession(srv.Client(), 0))
	require.NoError(t, err)
	return svc
}

func (f *fixture) relation(t *testing.T, repo *models.RemoteRepository) models.RemoteRepositoryRelation {
	t.Helper()
	var relation models.RemoteRepositoryRelation
	require.NoError(t, f.db.Where("remoteRepositoryId = ? AND accountId = ?", repo.ID, f.account.ID).First(&relation).Error)
	return relation
}

func (f *fixture) reloadIntegration(t *testing.T, id string) models.Integration {
	t.Helper()
	var integration models.Integration
	require.NoError(t, f.db.Where("id = ?", id).First(&integration).Error)
	return integration
}

func (f *fixture) countRepositories(t *testing.T) int64 {
	t.Helper()
	var count int64
	require.NoError(t, f.db.Model(&models.RemoteRepository{}).Count(&count).Error)
	return count
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

// readJSON decodes a request body inside a handler, where require must not be used
func readJSON(t *testing.T, r *http.Request) map[string]any {
	t.Helper()
	body, err := io.ReadAll(r.Body)
	assert.NoError(t, err)
	var data map[string]any
	assert.NoError(t, json.Unmarshal(body, &data))
	return data
}

func mustJSON(t *testing.T, v any) json.RawMessage {
	t.Helper()
	raw, err := json.Marshal(v)
	require.NoError(t, err)
	return raw
}
