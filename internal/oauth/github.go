package oauth

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"strconv"
	"strings"

	"github.com/deployra/docsync/internal/models"
	"github.com/deployra/docsync/internal/vcs"
	"github.com/deployra/docsync/pkg/github"
	gh "github.com/google/go-github/v57/github"
	"github.com/rs/zerolog/log"
	"gorm.io/datatypes"
)

var githubWebhookEvents = []string{"create", "delete", "pull_request", "push"}

// GitHubService syncs GitHub repositories and organizations through go-github
type GitHubService struct {
	base
	client *github.Client
}

// SyncRepositories imports every repository the user can access
func (s *GitHubService) SyncRepositories(ctx context.Context) ([]*models.RemoteRepository, error) {
	var remoteRepositories []*models.RemoteRepository

	for repo, err := range s.client.Repositories(ctx) {
		if err != nil {
			log.Ctx(ctx).Warn().Err(err).Msg("Error syncing GitHub repositories")
			return remoteRepositories, syncServiceError(s.provider, &vcs.SyncError{Err: err})
		}
		remote, err := s.createFromAPI(ctx, repo, nil)
		if err != nil {
			log.Ctx(ctx).Warn().Err(err).Msg("Error syncing GitHub repositories")
			return remoteRepositories, syncServiceError(s.provider, err)
		}
		if remote != nil {
			remoteRepositories = append(remoteRepositories, remote)
		}
	}

	return remoteRepositories, nil
}

// SyncOrganizations imports the user's organizations and their repositories
func (s *GitHubService) SyncOrganizations(ctx context.Context) ([]*models.RemoteOrganization, []*models.RemoteRepository, error) {
	var remoteOrganizations []*models.RemoteOrganization
	var remoteRepositories []*models.RemoteRepository

	fail := func(err error) ([]*models.RemoteOrganization, []*models.RemoteRepository, error) {
		log.Ctx(ctx).Warn().Err(err).Msg("Error syncing GitHub organizations")
		return remoteOrganizations, remoteRepositories, syncServiceError(s.provider, err)
	}

	for listed, err := range s.client.Organizations(ctx) {
		if err != nil {
			return fail(&vcs.SyncError{Err: err})
		}
		full, err := s.client.Organization(ctx, listed.GetLogin())
		if err != nil {
			return fail(&vcs.SyncError{Err: err})
		}
		raw, err := json.Marshal(full)
		if err != nil {
			return fail(&vcs.SyncError{Err: err})
		}
		org, err := s.CreateOrganization(ctx, raw)
		if err != nil {
			return fail(err)
		}
		remoteOrganizations = append(remoteOrganizations, org)

		for repo, err := range s.client.OrganizationRepositories(ctx, listed.GetLogin()) {
			if err != nil {
				return fail(&vcs.SyncError{Err: err})
			}
			remote, err := s.createFromAPI(ctx, repo, org)
			if err != nil {
				return fail(err)
			}
			if remote != nil {
				remoteRepositories = append(remoteRepositories, remote)
			}
		}
	}

	return remoteOrganizations, remoteRepositories, nil
}

func (s *GitHubService) createFromAPI(ctx context.Context, repo *gh.Repository, org *models.RemoteOrganization) (*models.RemoteRepository, error) {
	raw, err := json.Marshal(repo)
	if err != nil {
		return nil, &vcs.SyncError{Err: err}
	}
	return s.CreateRepository(ctx, raw, "", org)
}

// CreateRepository maps a GitHub repository payload; admin comes from permissions.admin
func (s *GitHubService) CreateRepository(ctx context.Context, raw json.RawMessage, privacy models.PrivacyLevel, org *models.RemoteOrganization) (*models.RemoteRepository, error) {
	var repo gh.Repository
	if err := json.Unmarshal(raw, &repo); err != nil {
		return nil, &vcs.SyncError{Err: fmt.Errorf("failed to decode GitHub repository: %w", err)}
	}

	switch {
	case repo.ID == nil:
		return nil, missingField("id")
	case repo.Name == nil:
		return nil, missingField("name")
	case repo.FullName == nil:
		return nil, missingField("full_name")
	case repo.Private == nil:
		return nil, missingField("private")
	case repo.CloneURL == nil:
		return nil, missingField("clone_url")
	case repo.SSHURL == nil:
		return nil, missingField("ssh_url")
	case repo.HTMLURL == nil:
		return nil, missingField("html_url")
	}

	admin := repo.GetPermissions()["admin"]
	fields := repositoryFields{
		RemoteID:      strconv.FormatInt(repo.GetID(), 10),
		Name:          repo.GetName(),
		FullName:      repo.GetFullName(),
		Description:   repo.Description,
		CloneURL:      repo.GetCloneURL(),
		SSHURL:        repo.GetSSHURL(),
		HTMLURL:       repo.GetHTMLURL(),
		DefaultBranch: repo.DefaultBranch,
		AvatarURL:     repo.GetOwner().GetAvatarURL(),
		Private:       repo.GetPrivate(),
		VCS:           "git",
		Admin:         &admin,
	}

	return s.reconcileRepository(ctx, fields, privacy, org)
}

// CreateOrganization maps a GitHub organization payload
func (s *GitHubService) CreateOrganization(ctx context.Context, raw json.RawMessage) (*models.RemoteOrganization, error) {
	var org gh.Organization
	if err := json.Unmarshal(raw, &org); err != nil {
		return nil, &vcs.SyncError{Err: fmt.Errorf("failed to decode GitHub organization: %w", err)}
	}
	switch {
	case org.ID == nil:
		return nil, missingField("id")
	case org.Login == nil:
		return nil, missingField("login")
	}

	return s.reconcileOrganization(ctx, organizationFields{
		RemoteID:  strconv.FormatInt(org.GetID(), 10),
		Slug:      org.GetLogin(),
		Name:      org.Name,
		Email:     org.Email,
		URL:       org.HTMLURL,
		AvatarURL: org.GetAvatarURL(),
	})
}

// GetWebhookData builds the repository hook registered on GitHub
func (s *GitHubService) GetWebhookData(project *models.Project, integration *models.Integration) (map[string]any, error) {
	return map[string]any{
		"name":   "web",
		"active": true,
		"config": map[string]any{
			"url":          s.webhookURL(project, integration),
			"secret":       integration.SecretValue(),
			"content_type": "json",
		},
		"events": githubWebhookEvents,
	}, nil
}

func (s *GitHubService) ownerRepo(project *models.Project) (string, string, error) {
	if project.RemoteRepository != nil {
		if owner, repo, ok := strings.Cut(project.RemoteRepository.FullName, "/"); ok {
			return owner, repo, nil
		}
	}
	owner, repo, ok := ParseGitHubRepo(project.Repo)
	if !ok {
		return "", "", fmt.Errorf("%w: %s", ErrNoRepositoryID, project.Repo)
	}
	return owner, repo, nil
}

func (s *GitHubService) hook(project *models.Project, integration *models.Integration) *gh.Hook {
	return &gh.Hook{
		Name:   gh.String("web"),
		Active: gh.Bool(true),
		Events: githubWebhookEvents,
		Config: map[string]interface{}{
			"url":          s.webhookURL(project, integration),
			"secret":       integration.SecretValue(),
			"content_type": "json",
		},
	}
}

func (s *GitHubService) createHook(ctx context.Context, project *models.Project, integration *models.Integration) (*hookResponse, error) {
	owner, repo, err := s.ownerRepo(project)
	if err != nil {
		return nil, err
	}
	created, status, err := s.client.CreateHook(ctx, owner, repo, s.hook(project, integration))
	return githubHookResponse(created, status, err)
}

func (s *GitHubService) listHooks(ctx context.Context, project *models.Project) (int, []map[string]any, error) {
	owner, repo, err := s.ownerRepo(project)
	if err != nil {
		return 0, nil, err
	}
	hooks, status, err := s.client.ListHooks(ctx, owner, repo)
	if err != nil {
		if status != 0 {
			return status, nil, nil
		}
		return 0, nil, err
	}

	result := make([]map[string]any, 0, len(hooks))
	for _, hook := range hooks {
		data, err := toJSONMap(hook)
		if err != nil {
			return status, nil, err
		}
		result = append(result, data)
	}
	return status, result, nil
}

func (s *GitHubService) updateHook(ctx context.Context, project *models.Project, integration *models.Integration, providerData datatypes.JSONMap) (*hookResponse, error) {
	rawID, ok := jsonID(providerData["id"])
	if !ok {
		return nil, fmt.Errorf("%w: id", ErrMalformedHookData)
	}
	hookID, err := strconv.ParseInt(rawID, 10, 64)
	if err != nil {
		return nil, fmt.Errorf("%w: id %q", ErrMalformedHookData, rawID)
	}
	owner, repo, err := s.ownerRepo(project)
	if err != nil {
		return nil, err
	}
	edited, status, err := s.client.EditHook(ctx, owner, repo, hookID, s.hook(project, integration))
	return githubHookResponse(edited, status, err)
}

func (s *GitHubService) hookCallbackURL(hook map[string]any) string {
	callback, _ := nestedString(hook, "config", "url")
	return callback
}

func (s *GitHubService) SetupWebhook(ctx context.Context, project *models.Project, integration *models.Integration) bool {
	return s.setupWebhook(ctx, s, project, integration)
}

func (s *GitHubService) GetProviderData(ctx context.Context, project *models.Project, integration *models.Integration) datatypes.JSONMap {
	return s.getProviderData(ctx, s, project, integration)
}

func (s *GitHubService) UpdateWebhook(ctx context.Context, project *models.Project, integration *models.Integration) bool {
	return s.updateWebhook(ctx, s, project, integration)
}

// SendBuildStatus reports a build as a GitHub commit status
func (s *GitHubService) SendBuildStatus(ctx context.Context, build Build, commit string, status models.BuildStatus) bool {
	project := build.Project
	state, ok := status.CommitState()
	if !ok {
		return false
	}
	owner, repo, err := s.ownerRepo(project)
	if err != nil {
		return false
	}

	logger := log.Ctx(ctx).With().
		Str("project_slug", project.Slug).
		Str("commit_status", state.GitHub).
		Logger()

	code, err := s.client.CreateStatus(ctx, owner, repo, commit, &gh.RepoStatus{
		State:       gh.String(state.GitHub),
		TargetURL:   gh.String(buildTargetURL(build, status)),
		Description: gh.String(state.Description),
		Context:     gh.String(buildStatusContext(s.settings, project)),
	})
	logger = logger.With().Int("http_status_code", code).Logger()

	switch {
	case err == nil && code == http.StatusCreated:
		logger.Debug().Msg("GitHub commit status created for project")
		return true
	case code == http.StatusUnauthorized || code == http.StatusForbidden || code == http.StatusNotFound:
		logger.Info().Msg("GitHub project does not exist or user does not have permissions")
	default:
		logger.Error().Err(err).Msg("GitHub commit status creation failed")
	}
	return false
}

// githubHookResponse turns go-github's error-on-non-2xx into a status code
func githubHookResponse(hook *gh.Hook, status int, err error) (*hookResponse, error) {
	if err != nil {
		if status != 0 {
			return &hookResponse{StatusCode: status}, nil
		}
		return nil, err
	}
	data, err := toJSONMap(hook)
	if err != nil {
		return nil, err
	}
	return &hookResponse{StatusCode: status, Data: data}, nil
}

func toJSONMap(v any) (map[string]any, error) {
	raw, err := json.Marshal(v)
	if err != nil {
		return nil, fmt.Errorf("failed to encode provider data: %w", err)
	}
	var data map[string]any
	if err := json.Unmarshal(raw, &data); err != nil {
		return nil, fmt.Errorf("failed to decode provider data: %w", err)
	}
	return data, nil
}
