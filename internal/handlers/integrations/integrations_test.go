package integrations

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/deployra/docsync/internal/config"
	"github.com/deployra/docsync/internal/database"
	"github.com/deployra/docsync/internal/middleware"
	"github.com/deployra/docsync/internal/models"
	"github.com/deployra/docsync/internal/oauth"
	"github.com/deployra/docsync/internal/testutils"
	"github.com/deployra/docsync/internal/vcs"
	"github.com/gofiber/fiber/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"
)

const testSecret = "test-secret"

type fixture struct {
	db      *gorm.DB
	app     *fiber.App
	user    *models.User
	account *models.SocialAccount
	project *models.Project
	token   string
}

// newFixture wires a GitHub owned project to a fake GitHub API served by handler
func newFixture(t *testing.T, handler http.HandlerFunc) *fixture {
	t.Helper()

	db := testutils.NewDB(t)
	database.SetDatabase(db)

	f := &fixture{db: db}
	f.user = testutils.CreateUser(t, db, "alice")
	f.account = testutils.CreateAccount(t, db, f.user, models.VCSProviderGitHub, "1")
	f.project = testutils.CreateProject(t, db, f.user, "docs", "https://github.com/octo/docs")
	f.token = testutils.BearerToken(t, testSecret, f.user)

	srv := httptest.NewServer(handler)
	t.Cleanup(srv.Close)

	serviceFor := ServiceFor
	ServiceFor = func(ctx context.Context, db *gorm.DB, project *models.Project) (oauth.Service, error) {
		settings := oauth.Settings{
			APIURL:              "https://docs.example.com",
			DefaultPrivacyLevel: models.PrivacyLevelPublic,
			GitHubAPIURL:        srv.URL,
		}
		return oauth.NewService(db, settings, f.account, vcs.NewSession(srv.Client(), 0))
	}
	t.Cleanup(func() { ServiceFor = serviceFor })

	cfg := &config.Config{JWTSecret: testSecret}
	f.app = fiber.New()
	projects := f.app.Group("/api/projects", middleware.AuthMiddleware(cfg))
	projects.Get("/:projectId/integrations", List)
	projects.Post("/:projectId/integrations", Create)
	projects.Post("/:projectId/integrations/:integrationId/sync", Sync)
	return f
}

func (f *fixture) do(t *testing.T, method, path, body string) (int, map[string]any) {
	t.Helper()

	req := httptest.NewRequest(method, path, strings.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", f.token)
	resp, err := f.app.Test(req, -1)
	require.NoError(t, err)
	defer resp.Body.Close()

	var payload map[string]any
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&payload))
	return resp.StatusCode, payload
}

func unexpected(t *testing.T) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		t.Errorf("unexpected request %s %s", r.Method, r.URL.Path)
		w.WriteHeader(http.StatusInternalServerError)
	}
}

func githubHook(w http.ResponseWriter, status int, id int) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(map[string]any{
		"id":     id,
		"name":   "web",
		"active": true,
		"url":    "https://api.github.com/repos/octo/docs/hooks/1",
		"config": map[string]any{"url": "https://docs.example.com/api/v2/webhook/docs/x/", "content_type": "json"},
	})
}

func TestCreateAPIWebhook(t *testing.T) {
	f := newFixture(t, unexpected(t))
	path := "/api/projects/" + f.project.ID + "/integrations"

	code, payload := f.do(t, http.MethodPost, path, `{"integrationType":"api_webhook"}`)
	require.Equal(t, http.StatusCreated, code)
	data := payload["data"].(map[string]any)
	assert.Equal(t, "api_webhook", data["integrationType"])
	assert.Len(t, data["token"], 40)
	assert.Equal(t, false, data["hasSync"])

	// a second request returns the same integration
	code, payload = f.do(t, http.MethodPost, path, `{"integrationType":"api_webhook"}`)
	require.Equal(t, http.StatusCreated, code)
	assert.Equal(t, data["id"], payload["data"].(map[string]any)["id"])

	code, payload = f.do(t, http.MethodGet, path, "")
	require.Equal(t, http.StatusOK, code)
	assert.Len(t, payload["data"], 1)
}

func TestCreateProviderWebhook(t *testing.T) {
	f := newFixture(t, func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodPost || r.URL.Path != "/repos/octo/docs/hooks" {
			http.NotFound(w, r)
			return
		}
		githubHook(w, http.StatusCreated, 1)
	})

	code, payload := f.do(t, http.MethodPost, "/api/projects/"+f.project.ID+"/integrations", `{}`)
	require.Equal(t, http.StatusCreated, code)

	data := payload["data"].(map[string]any)
	assert.Equal(t, "github_webhook", data["integrationType"])
	assert.Equal(t, "ACTIVE", data["webhookState"])
	assert.Equal(t, true, data["canSync"])
	assert.NotContains(t, data, "token")
}

func TestCreateProviderWebhookDenied(t *testing.T) {
	f := newFixture(t, func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusNotFound)
		_, _ = w.Write([]byte(`{"message":"Not Found"}`))
	})

	code, _ := f.do(t, http.MethodPost, "/api/projects/"+f.project.ID+"/integrations", `{"integrationType":"github_webhook"}`)
	assert.Equal(t, http.StatusBadGateway, code)
}

func TestCreateRejectsMismatchedType(t *testing.T) {
	f := newFixture(t, unexpected(t))

	code, _ := f.do(t, http.MethodPost, "/api/projects/"+f.project.ID+"/integrations", `{"integrationType":"gitlab_webhook"}`)
	assert.Equal(t, http.StatusBadRequest, code)

	code, _ = f.do(t, http.MethodPost, "/api/projects/"+f.project.ID+"/integrations", `{"integrationType":"githubapp"}`)
	assert.Equal(t, http.StatusBadRequest, code)
}

func TestCreateUnknownProject(t *testing.T) {
	f := newFixture(t, unexpected(t))

	code, _ := f.do(t, http.MethodPost, "/api/projects/missing/integrations", `{"integrationType":"api_webhook"}`)
	assert.Equal(t, http.StatusNotFound, code)
}

func TestSyncIntegration(t *testing.T) {
	var edits int
	f := newFixture(t, func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodPatch || r.URL.Path != "/repos/octo/docs/hooks/1" {
			http.NotFound(w, r)
			return
		}
		edits++
		githubHook(w, http.StatusOK, 1)
	})

	integration := &models.Integration{
		ProjectID:       f.project.ID,
		IntegrationType: models.IntegrationTypeGitHubWebhook,
		ProviderData:    map[string]any{"id": float64(1), "url": "https://api.github.com/repos/octo/docs/hooks/1"},
	}
	require.NoError(t, f.db.Create(integration).Error)

	code, payload := f.do(t, http.MethodPost, "/api/projects/"+f.project.ID+"/integrations/"+integration.ID+"/sync", "")
	require.Equal(t, http.StatusOK, code)
	assert.Equal(t, 1, edits)
	assert.Equal(t, "ACTIVE", payload["data"].(map[string]any)["webhookState"])
}

func TestSyncAPIWebhookUnsupported(t *testing.T) {
	f := newFixture(t, unexpected(t))
	integration := &models.Integration{ProjectID: f.project.ID, IntegrationType: models.IntegrationTypeAPIWebhook}
	require.NoError(t, f.db.Create(integration).Error)

	code, _ := f.do(t, http.MethodPost, "/api/projects/"+f.project.ID+"/integrations/"+integration.ID+"/sync", "")
	assert.Equal(t, http.StatusBadRequest, code)
}
