package projects

import (
	"strings"

	"github.com/deployra/docsync/internal/database"
	"github.com/deployra/docsync/internal/models"
	"github.com/deployra/docsync/pkg/response"
	"github.com/gofiber/fiber/v2"
	"github.com/rs/zerolog/log"
)

type CreateProjectRequest struct {
	Name               string  `json:"name"`
	Slug               string  `json:"slug"`
	Repo               string  `json:"repo"`
	DefaultBranch      *string `json:"defaultBranch"`
	RemoteRepositoryID *string `json:"remoteRepositoryId"`
}

// POST /api/projects
//
// A project either links a synced remote repository, taking its clone URL, or
// is a manual import of the given repo URL.
func Create(c *fiber.Ctx) error {
	db := database.GetDatabase()

	user, ok := c.Locals("user").(*models.User)
	if !ok {
		return response.Unauthorized(c, "Invalid authentication")
	}

	var req CreateProjectRequest
	if err := c.BodyParser(&req); err != nil {
		return response.BadRequest(c, "Invalid request body")
	}

	req.Name = strings.TrimSpace(req.Name)
	if len(req.Name) < 3 {
		return response.BadRequest(c, "Project name must be at least 3 characters")
	}
	if len(req.Name) > 63 {
		return response.BadRequest(c, "Project name must be at most 63 characters")
	}

	slug := slugify(req.Slug)
	if slug == "" {
		slug = slugify(req.Name)
	}
	if slug == "" {
		return response.BadRequest(c, "Project slug is invalid")
	}
	if slugTaken(db, slug, "") {
		return response.Conflict(c, "A project with this slug already exists")
	}

	project := models.Project{
		Name:          req.Name,
		Slug:          slug,
		Repo:          strings.TrimSpace(req.Repo),
		DefaultBranch: req.DefaultBranch,
		UserID:        user.ID,
	}

	if req.RemoteRepositoryID != nil && *req.RemoteRepositoryID != "" {
		repo, err := findLinkableRepository(db, user, *req.RemoteRepositoryID)
		if err != nil {
			return response.NotFound(c, "Remote repository not found")
		}
		project.RemoteRepositoryID = &repo.ID
		project.Repo = repo.CloneURL
		if project.DefaultBranch == nil {
			project.DefaultBranch = repo.DefaultBranch
		}
	}

	if project.Repo == "" {
		return response.BadRequest(c, "Repository URL is required")
	}

	if err := db.Create(&project).Error; err != nil {
		log.Ctx(c.UserContext()).Error().Err(err).Str("project_slug", slug).Msg("Failed to create project")
		return response.InternalServerError(c, "Failed to create project")
	}

	created, err := findOwnedProject(user, project.ID)
	if err != nil {
		return response.InternalServerError(c, "Failed to fetch project")
	}

	return response.Created(c, created)
}
