package projects

import (
	"strings"

	"github.com/deployra/docsync/internal/database"
	"github.com/deployra/docsync/internal/models"
	"github.com/deployra/docsync/pkg/response"
	"github.com/gofiber/fiber/v2"
)

type UpdateProjectRequest struct {
	Name               *string `json:"name"`
	Repo               *string `json:"repo"`
	DefaultBranch      *string `json:"defaultBranch"`
	RemoteRepositoryID *string `json:"remoteRepositoryId"`
}

// PATCH /api/projects/:projectId
func Update(c *fiber.Ctx) error {
	db := database.GetDatabase()

	user, ok := c.Locals("user").(*models.User)
	if !ok {
		return response.Unauthorized(c, "Invalid authentication")
	}

	var req UpdateProjectRequest
	if err := c.BodyParser(&req); err != nil {
		return response.BadRequest(c, "Invalid request body")
	}

	project, err := findOwnedProject(user, c.Params("projectId"))
	if err != nil {
		return response.NotFound(c, "Project not found")
	}

	updates := make(map[string]interface{})
	if req.Name != nil {
		name := strings.TrimSpace(*req.Name)
		if len(name) < 3 || len(name) > 63 {
			return response.BadRequest(c, "Project name must be between 3 and 63 characters")
		}
		updates["name"] = name
	}
	if req.DefaultBranch != nil {
		updates["defaultBranch"] = req.DefaultBranch
	}
	if req.Repo != nil {
		if project.HasRemoteRepository() {
			return response.BadRequest(c, "Repository URL of a linked project cannot be changed")
		}
		if strings.TrimSpace(*req.Repo) == "" {
			return response.BadRequest(c, "Repository URL is required")
		}
		updates["repo"] = strings.TrimSpace(*req.Repo)
	}
	if req.RemoteRepositoryID != nil {
		if *req.RemoteRepositoryID == "" {
			// unlinking keeps the clone URL as a manual import
			updates["remoteRepositoryId"] = nil
		} else {
			repo, err := findLinkableRepository(db, user, *req.RemoteRepositoryID)
			if err != nil {
				return response.NotFound(c, "Remote repository not found")
			}
			updates["remoteRepositoryId"] = repo.ID
			updates["repo"] = repo.CloneURL
		}
	}

	if len(updates) > 0 {
		if err := db.Model(&models.Project{}).Where("id = ?", project.ID).Updates(updates).Error; err != nil {
			return response.InternalServerError(c, "Failed to update project")
		}
	}

	updated, err := findOwnedProject(user, project.ID)
	if err != nil {
		return response.InternalServerError(c, "Failed to fetch project")
	}

	return response.Success(c, updated)
}
