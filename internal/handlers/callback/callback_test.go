package callback

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"net/url"
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
	"golang.org/x/oauth2"
	"gorm.io/gorm"
)

var testConfig = &config.Config{
	JWTSecret: "test-secret",
	AppURL:    "https://app.example.com",
	ApiURL:    "https://api.example.com",
}

type fixture struct {
	db   *gorm.DB
	app  *fiber.App
	user *models.User
	// githubID is the identity returned by the fake /user endpoint
	githubID int
}

func newFixture(t *testing.T) *fixture {
	t.Helper()

	f := &fixture{db: testutils.NewDB(t), githubID: 99}
	database.SetDatabase(f.db)
	f.user = testutils.CreateUser(t, f.db, "alice")

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		switch r.URL.Path {
		case "/token":
			assert.NoError(t, r.ParseForm())
			if r.PostForm.Get("code") != "good-code" {
				w.WriteHeader(http.StatusBadRequest)
				_, _ = w.Write([]byte(`{"error":"bad_verification_code"}`))
				return
			}
			_, _ = w.Write([]byte(`{"access_token":"gho_new","token_type":"bearer","refresh_token":"ghr_new","expires_in":3600}`))
		case "/user":
			assert.Equal(t, "Bearer gho_new", r.Header.Get("Authorization"))
			_ = json.NewEncoder(w).Encode(map[string]any{
				"id":         f.githubID,
				"login":      "alice-gh",
				"avatar_url": "https://avatars.githubusercontent.com/u/99",
			})
		default:
			http.NotFound(w, r)
		}
	}))
	t.Cleanup(srv.Close)

	apps, settings := Apps, Settings
	Apps = func() oauth.OAuthApps {
		return oauth.OAuthApps{models.VCSProviderGitHub: vcs.OAuthApp{
			ClientID:     "client",
			ClientSecret: "secret",
			Endpoint:     oauth2.Endpoint{AuthURL: srv.URL + "/authorize", TokenURL: srv.URL + "/token"},
			Scopes:       []string{"repo"},
		}}
	}
	Settings = func() oauth.Settings { return oauth.Settings{GitHubAPIURL: srv.URL} }
	t.Cleanup(func() { Apps, Settings = apps, settings })

	f.app = fiber.New()
	f.app.Get("/api/connect/:provider", middleware.AuthMiddleware(testConfig), Connect(testConfig))
	f.app.Get("/api/callback/:provider", Callback(testConfig))
	return f
}

// callback runs the provider redirect and returns the app redirect query
func (f *fixture) callback(t *testing.T, query url.Values) url.Values {
	t.Helper()

	resp, err := f.app.Test(httptest.NewRequest(http.MethodGet, "/api/callback/github?"+query.Encode(), nil), -1)
	require.NoError(t, err)
	defer resp.Body.Close()
	require.Equal(t, http.StatusFound, resp.StatusCode)

	location, err := url.Parse(resp.Header.Get("Location"))
	require.NoError(t, err)
	assert.Equal(t, "app.example.com", location.Host)
	assert.Equal(t, "/accounts", location.Path)
	return location.Query()
}

func TestConnect(t *testing.T) {
	f := newFixture(t)

	req := httptest.NewRequest(http.MethodGet, "/api/connect/github", nil)
	req.Header.Set("Authorization", testutils.BearerToken(t, testConfig.JWTSecret, f.user))
	resp, err := f.app.Test(req, -1)
	require.NoError(t, err)
	defer resp.Body.Close()
	require.Equal(t, http.StatusOK, resp.StatusCode)

	var payload struct {
		Data struct {
			URL string `json:"url"`
		} `json:"data"`
	}
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&payload))

	authURL, err := url.Parse(payload.Data.URL)
	require.NoError(t, err)
	assert.Equal(t, "/authorize", authURL.Path)
	assert.Equal(t, "client", authURL.Query().Get("client_id"))
	assert.Equal(t, "https://api.example.com/api/callback/github", authURL.Query().Get("redirect_uri"))

	claims, err := parseState(testConfig.JWTSecret, authURL.Query().Get("state"), models.VCSProviderGitHub)
	require.NoError(t, err)
	assert.Equal(t, f.user.ID, claims.UserID)

	req = httptest.NewRequest(http.MethodGet, "/api/connect/bitbucket", nil)
	req.Header.Set("Authorization", testutils.BearerToken(t, testConfig.JWTSecret, f.user))
	resp, err = f.app.Test(req, -1)
	require.NoError(t, err)
	resp.Body.Close()
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
}

func TestCallbackConnectsAccount(t *testing.T) {
	f := newFixture(t)
	state, err := signState(testConfig.JWTSecret, f.user.ID, models.VCSProviderGitHub)
	require.NoError(t, err)

	query := f.callback(t, url.Values{"code": {"good-code"}, "state": {state}})
	assert.Equal(t, "github", query.Get("connected"))

	var account models.SocialAccount
	require.NoError(t, f.db.Where("id = ?", query.Get("accountId")).First(&account).Error)
	assert.Equal(t, f.user.ID, account.UserID)
	assert.Equal(t, "99", account.UID)
	assert.Equal(t, "alice-gh", *account.Username)
	assert.Equal(t, "gho_new", account.AccessToken)
	require.NotNil(t, account.RefreshToken)
	assert.Equal(t, "ghr_new", *account.RefreshToken)
	assert.NotNil(t, account.ExpiresAt)

	// reconnecting keeps a single account
	query = f.callback(t, url.Values{"code": {"good-code"}, "state": {state}})
	assert.Equal(t, account.ID, query.Get("accountId"))
	var count int64
	require.NoError(t, f.db.Model(&models.SocialAccount{}).Count(&count).Error)
	assert.Equal(t, int64(1), count)
}

func TestCallbackAccountInUse(t *testing.T) {
	f := newFixture(t)
	bob := testutils.CreateUser(t, f.db, "bob")
	testutils.CreateAccount(t, f.db, bob, models.VCSProviderGitHub, "99")

	state, err := signState(testConfig.JWTSecret, f.user.ID, models.VCSProviderGitHub)
	require.NoError(t, err)

	query := f.callback(t, url.Values{"code": {"good-code"}, "state": {state}})
	assert.Equal(t, "account_in_use", query.Get("error"))
}

func TestCallbackFailures(t *testing.T) {
	f := newFixture(t)
	valid, err := signState(testConfig.JWTSecret, f.user.ID, models.VCSProviderGitHub)
	require.NoError(t, err)
	forged, err := signState("other-secret", f.user.ID, models.VCSProviderGitHub)
	require.NoError(t, err)
	wrongProvider, err := signState(testConfig.JWTSecret, f.user.ID, models.VCSProviderGitLab)
	require.NoError(t, err)

	tests := []struct {
		name   string
		query  url.Values
		reason string
	}{
		{"denied", url.Values{"error": {"access_denied"}}, "access_denied"},
		{"missing code", url.Values{"state": {valid}}, "missing_params"},
		{"forged state", url.Values{"code": {"good-code"}, "state": {forged}}, "invalid_state"},
		{"state for another provider", url.Values{"code": {"good-code"}, "state": {wrongProvider}}, "invalid_state"},
		{"bad code", url.Values{"code": {"bad-code"}, "state": {valid}}, "auth_failed"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.reason, f.callback(t, tt.query).Get("error"))
		})
	}

	var count int64
	require.NoError(t, f.db.Model(&models.SocialAccount{}).Count(&count).Error)
	assert.Zero(t, count)
}
