package oauth

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"strconv"
	"strings"

	"github.com/deployra/docsync/internal/models"
	"github.com/deployra/docsync/internal/utils"
	"github.com/deployra/docsync/internal/vcs"
	"github.com/rs/zerolog/log"
	"gorm.io/datatypes"
)

// GitLab access levels granting admin on a project
const (
	gitlabPermissionNoAccess   = 0
	gitlabPermissionMaintainer = 40
	gitlabPermissionOwner      = 50
)

// GitLabService syncs gitlab.com or a self-hosted GitLab instance
type GitLabService struct {
	base
}

type gitlabAccess struct {
	AccessLevel *int `json:"access_level"`
}

type gitlabProject struct {
	ID                *int64  `json:"id"`
	Name              *string `json:"name"`
	NameWithNamespace string  `json:"name_with_namespace"`
	PathWithNamespace *string `json:"path_with_namespace"`
	Description       *string `json:"description"`
	Visibility        *string `json:"visibility"`
	SSHURLToRepo      *string `json:"ssh_url_to_repo"`
	HTTPURLToRepo     *string `json:"http_url_to_repo"`
	WebURL            *string `json:"web_url"`
	DefaultBranch     *string `json:"default_branch"`
	AvatarURL         *string `json:"avatar_url"`
	Owner             *struct {
		AvatarURL *string `json:"avatar_url"`
	} `json:"owner"`
	Permissions *struct {
		ProjectAccess *gitlabAccess `json:"project_access"`
		GroupAccess   *gitlabAccess `json:"group_access"`
	} `json:"permissions"`
}

type gitlabGroup struct {
	ID        *int64  `json:"id"`
	Name      *string `json:"name"`
	FullPath  *string `json:"full_path"`
	WebURL    *string `json:"web_url"`
	AvatarURL *string `json:"avatar_url"`
}

func (s *GitLabService) apiURL(path string) string {
	return strings.TrimRight(s.settings.GitLabURL, "/") + "/api/v4" + path
}

func gitlabListQuery() url.Values {
	return url.Values{
		"per_page": {"100"},
		"archived": {"false"},
		"order_by": {"path"},
		"sort":     {"asc"},
	}
}

// repoID is the project id, or the URL-encoded "namespace/project" path
// for projects imported by URL
func (s *GitLabService) repoID(project *models.Project) (string, bool) {
	if project.RemoteRepository != nil && project.RemoteRepository.RemoteID != "" {
		return project.RemoteRepository.RemoteID, true
	}
	owner, repo, ok := ParseGitLabRepo(project.Repo)
	if !ok {
		return "", false
	}
	return url.QueryEscape(owner + "/" + repo), true
}

// SyncRepositories imports the projects of the connected user
func (s *GitLabService) SyncRepositories(ctx context.Context) ([]*models.RemoteRepository, error) {
	var remoteRepositories []*models.RemoteRepository

	pages := s.session.Paginate(ctx, s.apiURL(fmt.Sprintf("/users/%s/projects", s.account.UID)), gitlabListQuery(), vcs.LinkHeaderPagination{})
	for fields, err := range pages {
		if err != nil {
			log.Ctx(ctx).Warn().Err(err).Msg("Error syncing GitLab repositories")
			return remoteRepositories, syncServiceError(s.provider, err)
		}
		repo, err := s.CreateRepository(ctx, fields, "", nil)
		if err != nil {
			log.Ctx(ctx).Warn().Err(err).Msg("Error syncing GitLab repositories")
			return remoteRepositories, syncServiceError(s.provider, err)
		}
		if repo != nil {
			remoteRepositories = append(remoteRepositories, repo)
		}
	}

	return remoteRepositories, nil
}

// SyncOrganizations imports groups and their projects. Group listings carry
// no permissions, so each project is fetched again on its own.
func (s *GitLabService) SyncOrganizations(ctx context.Context) ([]*models.RemoteOrganization, []*models.RemoteRepository, error) {
	var remoteOrganizations []*models.RemoteOrganization
	var remoteRepositories []*models.RemoteRepository

	fail := func(err error) ([]*models.RemoteOrganization, []*models.RemoteRepository, error) {
		log.Ctx(ctx).Warn().Err(err).Msg("Error syncing GitLab organizations")
		return remoteOrganizations, remoteRepositories, syncServiceError(s.provider, err)
	}

	groupQuery := url.Values{
		"per_page":      {"100"},
		"all_available": {"false"},
		"order_by":      {"path"},
		"sort":          {"asc"},
	}
	for fields, err := range s.session.Paginate(ctx, s.apiURL("/groups"), groupQuery, vcs.LinkHeaderPagination{}) {
		if err != nil {
			return fail(err)
		}
		org, err := s.CreateOrganization(ctx, fields)
		if err != nil {
			return fail(err)
		}
		remoteOrganizations = append(remoteOrganizations, org)

		groupProjects := s.session.Paginate(ctx, s.apiURL("/groups/"+org.RemoteID+"/projects"), gitlabListQuery(), vcs.LinkHeaderPagination{})
		for projectFields, err := range groupProjects {
			if err != nil {
				return fail(err)
			}
			repo := s.syncGroupProject(ctx, projectFields, org)
			if repo != nil {
				remoteRepositories = append(remoteRepositories, repo)
			}
		}
	}

	return remoteOrganizations, remoteRepositories, nil
}

// syncGroupProject fetches one project with its permissions and reconciles
// it. Failures are logged and the project is skipped.
func (s *GitLabService) syncGroupProject(ctx context.Context, fields json.RawMessage, org *models.RemoteOrganization) *models.RemoteRepository {
	var listed gitlabProject
	if err := json.Unmarshal(fields, &listed); err != nil || listed.ID == nil {
		log.Ctx(ctx).Error().Err(err).Msg("Error creating GitLab repository, malformed project")
		return nil
	}
	logger := log.Ctx(ctx).With().Str("repository", listed.NameWithNamespace).Logger()

	resp, err := s.session.Get(ctx, s.apiURL(fmt.Sprintf("/projects/%d", *listed.ID)))
	if err != nil {
		logger.Error().Err(err).Msg("Error creating GitLab repository")
		return nil
	}
	if resp.StatusCode != http.StatusOK {
		logger.Warn().Int("http_status_code", resp.StatusCode).Msg("GitLab project does not exist or user does not have permissions")
		return nil
	}

	repo, err := s.CreateRepository(ctx, resp.Body, "", org)
	if err != nil {
		logger.Error().Err(err).Msg("Error creating GitLab repository")
		return nil
	}
	return repo
}

// CreateRepository maps a GitLab project payload; admin comes from the
// maintainer or owner access level of the project or its group
func (s *GitLabService) CreateRepository(ctx context.Context, raw json.RawMessage, privacy models.PrivacyLevel, org *models.RemoteOrganization) (*models.RemoteRepository, error) {
	var project gitlabProject
	if err := json.Unmarshal(raw, &project); err != nil {
		return nil, &vcs.SyncError{Err: fmt.Errorf("failed to decode GitLab project: %w", err)}
	}

	switch {
	case project.ID == nil:
		return nil, missingField("id")
	case project.Name == nil:
		return nil, missingField("name")
	case project.PathWithNamespace == nil:
		return nil, missingField("path_with_namespace")
	case project.Visibility == nil:
		return nil, missingField("visibility")
	case project.SSHURLToRepo == nil:
		return nil, missingField("ssh_url_to_repo")
	case project.WebURL == nil:
		return nil, missingField("web_url")
	}

	public := *project.Visibility == "public"
	if public && project.HTTPURLToRepo == nil {
		return nil, missingField("http_url_to_repo")
	}

	fields := repositoryFields{
		RemoteID:      strconv.FormatInt(*project.ID, 10),
		Name:          *project.Name,
		FullName:      *project.PathWithNamespace,
		Description:   utils.NilIfEmpty(utils.PtrValue(project.Description, "")),
		SSHURL:        *project.SSHURLToRepo,
		HTMLURL:       *project.WebURL,
		DefaultBranch: project.DefaultBranch,
		Private:       !public,
		VCS:           "git",
	}
	if project.HTTPURLToRepo != nil {
		fields.CloneURL = *project.HTTPURLToRepo
	}
	switch {
	case project.AvatarURL != nil && *project.AvatarURL != "":
		fields.AvatarURL = *project.AvatarURL
	case project.Owner != nil && project.Owner.AvatarURL != nil:
		fields.AvatarURL = *project.Owner.AvatarURL
	}

	projectLevel, groupLevel := gitlabPermissionNoAccess, gitlabPermissionNoAccess
	if project.Permissions != nil {
		if a := project.Permissions.ProjectAccess; a != nil && a.AccessLevel != nil {
			projectLevel = *a.AccessLevel
		}
		if a := project.Permissions.GroupAccess; a != nil && a.AccessLevel != nil {
			groupLevel = *a.AccessLevel
		}
	}
	admin := isGitLabAdmin(projectLevel) || isGitLabAdmin(groupLevel)
	fields.Admin = &admin

	return s.reconcileRepository(ctx, fields, privacy, org)
}

func isGitLabAdmin(level int) bool {
	return level == gitlabPermissionMaintainer || level == gitlabPermissionOwner
}

// CreateOrganization maps a GitLab group payload
func (s *GitLabService) CreateOrganization(ctx context.Context, raw json.RawMessage) (*models.RemoteOrganization, error) {
	var group gitlabGroup
	if err := json.Unmarshal(raw, &group); err != nil {
		return nil, &vcs.SyncError{Err: fmt.Errorf("failed to decode GitLab group: %w", err)}
	}
	if group.ID == nil {
		return nil, missingField("id")
	}

	fields := organizationFields{
		RemoteID: strconv.FormatInt(*group.ID, 10),
		Name:     group.Name,
		URL:      group.WebURL,
	}
	if group.FullPath != nil {
		fields.Slug = *group.FullPath
	}
	if group.AvatarURL != nil {
		fields.AvatarURL = *group.AvatarURL
	}

	return s.reconcileOrganization(ctx, fields)
}

// GetWebhookData builds the project hook payload registered on GitLab
func (s *GitLabService) GetWebhookData(project *models.Project, integration *models.Integration) (map[string]any, error) {
	repoID, ok := s.repoID(project)
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrNoRepositoryID, project.Repo)
	}
	return map[string]any{
		"id":                    repoID,
		"push_events":           true,
		"tag_push_events":       true,
		"url":                   s.webhookURL(project, integration),
		"token":                 integration.SecretValue(),
		"issues_events":         false,
		"merge_requests_events": true,
		"note_events":           false,
		"job_events":            false,
		"pipeline_events":       false,
		"wiki_events":           false,
	}, nil
}

func (s *GitLabService) createHook(ctx context.Context, project *models.Project, integration *models.Integration) (*hookResponse, error) {
	repoID, ok := s.repoID(project)
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrNoRepositoryID, project.Repo)
	}
	data, err := s.GetWebhookData(project, integration)
	if err != nil {
		return nil, err
	}
	return s.sendHook(ctx, s.session.Post, s.apiURL("/projects/"+repoID+"/hooks"), data)
}

func (s *GitLabService) listHooks(ctx context.Context, project *models.Project) (int, []map[string]any, error) {
	repoID, ok := s.repoID(project)
	if !ok {
		return 0, nil, fmt.Errorf("%w: %s", ErrNoRepositoryID, project.Repo)
	}
	resp, err := s.session.Get(ctx, s.apiURL("/projects/"+repoID+"/hooks"))
	if err != nil {
		return 0, nil, err
	}
	if resp.StatusCode != http.StatusOK {
		return resp.StatusCode, nil, nil
	}
	var hooks []map[string]any
	if err := resp.DecodeJSON(&hooks); err != nil {
		return resp.StatusCode, nil, err
	}
	return resp.StatusCode, hooks, nil
}

func (s *GitLabService) updateHook(ctx context.Context, project *models.Project, integration *models.Integration, providerData datatypes.JSONMap) (*hookResponse, error) {
	hookID, ok := jsonID(providerData["id"])
	if !ok {
		return nil, fmt.Errorf("%w: id", ErrMalformedHookData)
	}
	repoID, ok := s.repoID(project)
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrNoRepositoryID, project.Repo)
	}
	data, err := s.GetWebhookData(project, integration)
	if err != nil {
		return nil, err
	}
	return s.sendHook(ctx, s.session.Put, s.apiURL("/projects/"+repoID+"/hooks/"+hookID), data)
}

func (s *GitLabService) hookCallbackURL(hook map[string]any) string {
	callback, _ := hook["url"].(string)
	return callback
}

func (s *GitLabService) SetupWebhook(ctx context.Context, project *models.Project, integration *models.Integration) bool {
	return s.setupWebhook(ctx, s, project, integration)
}

func (s *GitLabService) GetProviderData(ctx context.Context, project *models.Project, integration *models.Integration) datatypes.JSONMap {
	return s.getProviderData(ctx, s, project, integration)
}

func (s *GitLabService) UpdateWebhook(ctx context.Context, project *models.Project, integration *models.Integration) bool {
	return s.updateWebhook(ctx, s, project, integration)
}

// SendBuildStatus reports a build as a GitLab commit status
func (s *GitLabService) SendBuildStatus(ctx context.Context, build Build, commit string, status models.BuildStatus) bool {
	project := build.Project
	repoID, ok := s.repoID(project)
	if !ok {
		return false
	}
	state, ok := status.CommitState()
	if !ok {
		return false
	}

	target := s.apiURL(fmt.Sprintf("/projects/%s/statuses/%s", repoID, commit))
	logger := log.Ctx(ctx).With().
		Str("project_slug", project.Slug).
		Str("commit_status", state.GitLab).
		Str("url", target).
		Logger()

	resp, err := s.session.Post(ctx, target, map[string]any{
		"state":       state.GitLab,
		"target_url":  buildTargetURL(build, status),
		"description": state.Description,
		"context":     buildStatusContext(s.settings, project),
	})
	if err != nil {
		logger.Error().Err(err).Msg("GitLab commit status creation failed")
		return false
	}

	logger = logger.With().Int("http_status_code", resp.StatusCode).Logger()
	switch resp.StatusCode {
	case http.StatusCreated:
		logger.Debug().Msg("GitLab commit status created for project")
		return true
	case http.StatusUnauthorized, http.StatusForbidden, http.StatusNotFound:
		logger.Info().Msg("GitLab project does not exist or user does not have permissions")
	default:
		logger.Warn().Str("debug_data", string(resp.Body)).Msg("GitLab commit status creation failed")
	}
	return false
}

func buildTargetURL(build Build, status models.BuildStatus) string {
	if status == models.BuildStatusSuccess {
		return build.DocsURL
	}
	return build.BuildURL
}

func buildStatusContext(settings Settings, project *models.Project) string {
	return fmt.Sprintf("%s:%s", settings.BuildStatusName, project.Slug)
}

// jsonID formats a numeric or string id decoded from JSON
func jsonID(value any) (string, bool) {
	switch v := value.(type) {
	case float64:
		return strconv.FormatInt(int64(v), 10), true
	case json.Number:
		return v.String(), true
	case string:
		return v, v != ""
	}
	return "", false
}
