package projects

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/deployra/docsync/internal/config"
	"github.com/deployra/docsync/internal/database"
	"github.com/deployra/docsync/internal/middleware"
	"github.com/deployra/docsync/internal/models"
	"github.com/deployra/docsync/internal/testutils"
	"github.com/deployra/docsync/internal/utils"
	"github.com/gofiber/fiber/v2"
	"github.com/stretchr/testify/suite"
	"gorm.io/gorm"
)

type ProjectsSuite struct {
	suite.Suite

	db    *gorm.DB
	app   *fiber.App
	user  *models.User
	token string
}

func TestProjectsSuite(t *testing.T) {
	suite.Run(t, new(ProjectsSuite))
}

func (s *ProjectsSuite) SetupTest() {
	s.db = testutils.NewDB(s.T())
	database.SetDatabase(s.db)
	s.user = testutils.CreateUser(s.T(), s.db, "alice")
	s.token = testutils.BearerToken(s.T(), "test-secret", s.user)

	s.app = fiber.New()
	projects := s.app.Group("/api/projects", middleware.AuthMiddleware(&config.Config{JWTSecret: "test-secret"}))
	projects.Get("/", List)
	projects.Post("/", Create)
	projects.Get("/:projectId", Get)
	projects.Patch("/:projectId", Update)
	projects.Delete("/:projectId", Delete)
}

func (s *ProjectsSuite) do(method, path, body string) (int, map[string]any) {
	req := httptest.NewRequest(method, path, strings.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", s.token)
	resp, err := s.app.Test(req, -1)
	s.Require().NoError(err)
	defer resp.Body.Close()

	var payload map[string]any
	s.Require().NoError(json.NewDecoder(resp.Body).Decode(&payload))
	return resp.StatusCode, payload
}

// linkedRepository syncs a repository visible to the user
func (s *ProjectsSuite) linkedRepository() *models.RemoteRepository {
	account := testutils.CreateAccount(s.T(), s.db, s.user, models.VCSProviderGitHub, "1")
	repo := &models.RemoteRepository{
		RemoteID:      "42",
		VCSProvider:   models.VCSProviderGitHub,
		Name:          "docs",
		FullName:      "octo/docs",
		CloneURL:      "https://github.com/octo/docs.git",
		DefaultBranch: utils.Ptr("main"),
	}
	s.Require().NoError(s.db.Create(repo).Error)
	s.Require().NoError(s.db.Create(&models.RemoteRepositoryRelation{
		RemoteRepositoryID: repo.ID,
		AccountID:          account.ID,
		UserID:             s.user.ID,
	}).Error)
	return repo
}

func (s *ProjectsSuite) TestCreateManualImport() {
	code, payload := s.do(http.MethodPost, "/api/projects", `{"name":"My Docs","repo":"https://gitlab.com/group/docs.git"}`)
	s.Require().Equal(http.StatusCreated, code)

	data := payload["data"].(map[string]any)
	s.Equal("my-docs", data["slug"])
	s.Equal("https://gitlab.com/group/docs.git", data["repo"])
	s.NotContains(data, "remoteRepositoryId")

	code, _ = s.do(http.MethodPost, "/api/projects", `{"name":"my docs!","repo":"https://gitlab.com/group/docs.git"}`)
	s.Equal(http.StatusConflict, code)
}

func (s *ProjectsSuite) TestCreateLinked() {
	repo := s.linkedRepository()

	code, payload := s.do(http.MethodPost, "/api/projects", `{"name":"docs","remoteRepositoryId":"`+repo.ID+`"}`)
	s.Require().Equal(http.StatusCreated, code)

	data := payload["data"].(map[string]any)
	s.Equal(repo.ID, data["remoteRepositoryId"])
	s.Equal("https://github.com/octo/docs.git", data["repo"])
	s.Equal("main", data["defaultBranch"])
}

func (s *ProjectsSuite) TestCreateValidation() {
	tests := []struct {
		name string
		body string
		code int
	}{
		{"short name", `{"name":"ab","repo":"https://github.com/a/b"}`, http.StatusBadRequest},
		{"no repo", `{"name":"docs"}`, http.StatusBadRequest},
		{"unknown repository", `{"name":"docs","remoteRepositoryId":"missing"}`, http.StatusNotFound},
		{"invalid body", `{`, http.StatusBadRequest},
	}
	for _, tt := range tests {
		s.Run(tt.name, func() {
			code, _ := s.do(http.MethodPost, "/api/projects", tt.body)
			s.Equal(tt.code, code)
		})
	}
}

func (s *ProjectsSuite) TestUpdate() {
	project := testutils.CreateProject(s.T(), s.db, s.user, "docs", "https://github.com/octo/old")
	repo := s.linkedRepository()

	code, payload := s.do(http.MethodPatch, "/api/projects/"+project.ID, `{"name":"Renamed","remoteRepositoryId":"`+repo.ID+`"}`)
	s.Require().Equal(http.StatusOK, code)
	data := payload["data"].(map[string]any)
	s.Equal("Renamed", data["name"])
	s.Equal(repo.CloneURL, data["repo"])

	code, _ = s.do(http.MethodPatch, "/api/projects/"+project.ID, `{"repo":"https://github.com/octo/other"}`)
	s.Equal(http.StatusBadRequest, code)

	code, payload = s.do(http.MethodPatch, "/api/projects/"+project.ID, `{"remoteRepositoryId":""}`)
	s.Require().Equal(http.StatusOK, code)
	s.NotContains(payload["data"], "remoteRepositoryId")
}

func (s *ProjectsSuite) TestListGetDelete() {
	project := testutils.CreateProject(s.T(), s.db, s.user, "docs", "https://github.com/octo/docs")
	bob := testutils.CreateUser(s.T(), s.db, "bob")
	other := testutils.CreateProject(s.T(), s.db, bob, "bob-docs", "https://github.com/bob/docs")

	code, payload := s.do(http.MethodGet, "/api/projects", "")
	s.Require().Equal(http.StatusOK, code)
	s.Len(payload["data"], 1)

	code, _ = s.do(http.MethodGet, "/api/projects/"+other.ID, "")
	s.Equal(http.StatusNotFound, code)

	code, _ = s.do(http.MethodDelete, "/api/projects/"+project.ID, "")
	s.Equal(http.StatusOK, code)

	code, _ = s.do(http.MethodGet, "/api/projects/"+project.ID, "")
	s.Equal(http.StatusNotFound, code)
}

func (s *ProjectsSuite) TestSlugify() {
	s.Equal("my-docs", slugify("  My Docs! "))
	s.Equal("a-b-c", slugify("a__b--c"))
	s.Equal("", slugify("!!!"))
}
