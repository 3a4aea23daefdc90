package oauth

import (
	"context"
	"encoding/json"
	"fmt"
	"net/url"
	"strings"

	"github.com/deployra/docsync/internal/models"
	"github.com/deployra/docsync/internal/vcs"
	"github.com/rs/zerolog/log"
	"gorm.io/datatypes"
)

// BitbucketService syncs Bitbucket Cloud repositories and workspaces
type BitbucketService struct {
	base
}

type bitbucketLink struct {
	Href *string `json:"href"`
	Name string  `json:"name"`
}

type bitbucketRepository struct {
	UUID        *string `json:"uuid"`
	Name        *string `json:"name"`
	FullName    *string `json:"full_name"`
	Description *string `json:"description"`
	IsPrivate   *bool   `json:"is_private"`
	SCM         *string `json:"scm"`
	MainBranch  *struct {
		Name *string `json:"name"`
	} `json:"mainbranch"`
	Links *struct {
		Clone  *[]bitbucketLink `json:"clone"`
		HTML   *bitbucketLink   `json:"html"`
		Avatar *bitbucketLink   `json:"avatar"`
	} `json:"links"`
}

type bitbucketWorkspace struct {
	UUID  *string `json:"uuid"`
	Slug  *string `json:"slug"`
	Name  *string `json:"name"`
	Links *struct {
		HTML         *bitbucketLink `json:"html"`
		Avatar       *bitbucketLink `json:"avatar"`
		Repositories *bitbucketLink `json:"repositories"`
	} `json:"links"`
}

func (s *BitbucketService) apiURL(path string) string {
	return strings.TrimRight(s.settings.BitbucketAPIURL, "/") + path
}

// SyncRepositories imports the member repositories, then flags the ones the
// account administers. The admin flag is only ever raised here.
func (s *BitbucketService) SyncRepositories(ctx context.Context) ([]*models.RemoteRepository, error) {
	var remoteRepositories []*models.RemoteRepository

	pages := s.session.Paginate(ctx, s.apiURL("/2.0/repositories/"), url.Values{"role": {"member"}}, vcs.BodyCursorPagination{})
	for fields, err := range pages {
		if err != nil {
			log.Ctx(ctx).Warn().Err(err).Msg("Error syncing Bitbucket repositories")
			return remoteRepositories, syncServiceError(s.provider, err)
		}
		repo, err := s.CreateRepository(ctx, fields, "", nil)
		if err != nil {
			log.Ctx(ctx).Warn().Err(err).Msg("Error syncing Bitbucket repositories")
			return remoteRepositories, syncServiceError(s.provider, err)
		}
		if repo != nil {
			remoteRepositories = append(remoteRepositories, repo)
		}
	}

	// permissions are not part of the repository payload
	s.markAdminRepositories(ctx)

	return remoteRepositories, nil
}

func (s *BitbucketService) markAdminRepositories(ctx context.Context) {
	var uuids []string
	pages := s.session.Paginate(ctx, s.apiURL("/2.0/repositories/"), url.Values{"role": {"admin"}}, vcs.BodyCursorPagination{})
	for fields, err := range pages {
		if err != nil {
			log.Ctx(ctx).Debug().Err(err).Msg("Skipping Bitbucket admin repositories")
			return
		}
		var repo struct {
			UUID string `json:"uuid"`
		}
		if err := json.Unmarshal(fields, &repo); err != nil || repo.UUID == "" {
			log.Ctx(ctx).Debug().Msg("Skipping Bitbucket admin repositories, malformed item")
			return
		}
		uuids = append(uuids, repo.UUID)
	}
	if len(uuids) == 0 {
		return
	}

	repoIDs := s.db.WithContext(ctx).
		Model(&models.RemoteRepository{}).
		Select("id").
		Where("vcsProvider = ? AND remoteId IN ?", s.provider, uuids)
	err := s.db.WithContext(ctx).
		Model(&models.RemoteRepositoryRelation{}).
		Where("userId = ? AND accountId = ? AND remoteRepositoryId IN (?)", s.account.UserID, s.account.ID, repoIDs).
		Update("admin", true).Error
	if err != nil {
		log.Ctx(ctx).Warn().Err(err).Msg("Failed to update Bitbucket admin relations")
	}
}

// SyncOrganizations imports workspaces and the repositories of each
func (s *BitbucketService) SyncOrganizations(ctx context.Context) ([]*models.RemoteOrganization, []*models.RemoteRepository, error) {
	var remoteOrganizations []*models.RemoteOrganization
	var remoteRepositories []*models.RemoteRepository

	fail := func(err error) ([]*models.RemoteOrganization, []*models.RemoteRepository, error) {
		log.Ctx(ctx).Warn().Err(err).Msg("Error syncing Bitbucket organizations")
		return remoteOrganizations, remoteRepositories, syncServiceError(s.provider, err)
	}

	workspaces := s.session.Paginate(ctx, s.apiURL("/2.0/workspaces/"), url.Values{"role": {"member"}}, vcs.BodyCursorPagination{})
	for fields, err := range workspaces {
		if err != nil {
			return fail(err)
		}
		var workspace bitbucketWorkspace
		if err := json.Unmarshal(fields, &workspace); err != nil {
			return fail(&vcs.SyncError{Err: err})
		}
		if workspace.Links == nil || workspace.Links.Repositories == nil || workspace.Links.Repositories.Href == nil {
			return fail(missingField("links.repositories.href"))
		}

		org, err := s.CreateOrganization(ctx, fields)
		if err != nil {
			return fail(err)
		}
		remoteOrganizations = append(remoteOrganizations, org)

		for repoFields, err := range s.session.Paginate(ctx, *workspace.Links.Repositories.Href, nil, vcs.BodyCursorPagination{}) {
			if err != nil {
				return fail(err)
			}
			repo, err := s.CreateRepository(ctx, repoFields, "", org)
			if err != nil {
				return fail(err)
			}
			if repo != nil {
				remoteRepositories = append(remoteRepositories, repo)
			}
		}
	}

	return remoteOrganizations, remoteRepositories, nil
}

// CreateRepository maps a Bitbucket repository payload. Admin is left as is.
func (s *BitbucketService) CreateRepository(ctx context.Context, raw json.RawMessage, privacy models.PrivacyLevel, org *models.RemoteOrganization) (*models.RemoteRepository, error) {
	var repo bitbucketRepository
	if err := json.Unmarshal(raw, &repo); err != nil {
		return nil, &vcs.SyncError{Err: fmt.Errorf("failed to decode Bitbucket repository: %w", err)}
	}

	switch {
	case repo.UUID == nil:
		return nil, missingField("uuid")
	case repo.Name == nil:
		return nil, missingField("name")
	case repo.FullName == nil:
		return nil, missingField("full_name")
	case repo.IsPrivate == nil:
		return nil, missingField("is_private")
	case repo.SCM == nil:
		return nil, missingField("scm")
	case repo.Links == nil || repo.Links.Clone == nil:
		return nil, missingField("links.clone")
	case repo.Links.HTML == nil || repo.Links.HTML.Href == nil:
		return nil, missingField("links.html.href")
	case repo.Links.Avatar == nil:
		return nil, missingField("links.avatar")
	}

	cloneURLs := map[string]string{}
	for _, link := range *repo.Links.Clone {
		if link.Href != nil {
			cloneURLs[link.Name] = *link.Href
		}
	}
	httpsURL, ok := cloneURLs["https"]
	if !ok && !*repo.IsPrivate {
		return nil, missingField("links.clone[https]")
	}

	fields := repositoryFields{
		RemoteID:    *repo.UUID,
		Name:        *repo.Name,
		FullName:    *repo.FullName,
		Description: repo.Description,
		CloneURL:    bitbucketHTTPSUserPattern.ReplaceAllString(httpsURL, "https://bitbucket.org/"),
		SSHURL:      cloneURLs["ssh"],
		HTMLURL:     *repo.Links.HTML.Href,
		Private:     *repo.IsPrivate,
		VCS:         *repo.SCM,
	}
	if repo.MainBranch != nil {
		fields.DefaultBranch = repo.MainBranch.Name
	}
	if repo.Links.Avatar.Href != nil {
		fields.AvatarURL = bitbucketAvatarSizePattern.ReplaceAllString(*repo.Links.Avatar.Href, "/32/")
	}

	return s.reconcileRepository(ctx, fields, privacy, org)
}

// CreateOrganization maps a Bitbucket workspace payload
func (s *BitbucketService) CreateOrganization(ctx context.Context, raw json.RawMessage) (*models.RemoteOrganization, error) {
	var workspace bitbucketWorkspace
	if err := json.Unmarshal(raw, &workspace); err != nil {
		return nil, &vcs.SyncError{Err: fmt.Errorf("failed to decode Bitbucket workspace: %w", err)}
	}

	switch {
	case workspace.UUID == nil:
		return nil, missingField("uuid")
	case workspace.Links == nil || workspace.Links.HTML == nil || workspace.Links.HTML.Href == nil:
		return nil, missingField("links.html.href")
	case workspace.Links.Avatar == nil:
		return nil, missingField("links.avatar")
	}

	fields := organizationFields{
		RemoteID: *workspace.UUID,
		Name:     workspace.Name,
		URL:      workspace.Links.HTML.Href,
	}
	if workspace.Slug != nil {
		fields.Slug = *workspace.Slug
	}
	if workspace.Links.Avatar.Href != nil {
		fields.AvatarURL = *workspace.Links.Avatar.Href
	}

	return s.reconcileOrganization(ctx, fields)
}

// GetWebhookData builds the hook payload registered on Bitbucket
func (s *BitbucketService) GetWebhookData(project *models.Project, integration *models.Integration) (map[string]any, error) {
	return map[string]any{
		"description": fmt.Sprintf("%s (%s)", s.settings.AppName, s.settings.ProductionDomain),
		"url":         s.webhookURL(project, integration),
		"active":      true,
		"secret":      integration.SecretValue(),
		"events":      []string{"repo:push"},
	}, nil
}

func (s *BitbucketService) hooksURL(project *models.Project) (string, error) {
	owner, repo, ok := ParseBitbucketRepo(project.Repo)
	if !ok {
		return "", fmt.Errorf("%w: %s", ErrNoRepositoryID, project.Repo)
	}
	return s.apiURL(fmt.Sprintf("/2.0/repositories/%s/%s/hooks", owner, repo)), nil
}

func (s *BitbucketService) createHook(ctx context.Context, project *models.Project, integration *models.Integration) (*hookResponse, error) {
	hooksURL, err := s.hooksURL(project)
	if err != nil {
		return nil, err
	}
	data, err := s.GetWebhookData(project, integration)
	if err != nil {
		return nil, err
	}
	return s.sendHook(ctx, s.session.Post, hooksURL, data)
}

func (s *BitbucketService) listHooks(ctx context.Context, project *models.Project) (int, []map[string]any, error) {
	hooksURL, err := s.hooksURL(project)
	if err != nil {
		return 0, nil, err
	}
	resp, err := s.session.Get(ctx, hooksURL)
	if err != nil {
		return 0, nil, err
	}
	if resp.StatusCode != 200 {
		return resp.StatusCode, nil, nil
	}
	var page struct {
		Values []map[string]any `json:"values"`
	}
	if err := resp.DecodeJSON(&page); err != nil {
		return resp.StatusCode, nil, err
	}
	return resp.StatusCode, page.Values, nil
}

func (s *BitbucketService) updateHook(ctx context.Context, project *models.Project, integration *models.Integration, providerData datatypes.JSONMap) (*hookResponse, error) {
	selfURL, ok := nestedString(providerData, "links", "self", "href")
	if !ok {
		return nil, fmt.Errorf("%w: links.self.href", ErrMalformedHookData)
	}
	data, err := s.GetWebhookData(project, integration)
	if err != nil {
		return nil, err
	}
	return s.sendHook(ctx, s.session.Put, selfURL, data)
}

func (s *BitbucketService) hookCallbackURL(hook map[string]any) string {
	callback, _ := hook["url"].(string)
	return callback
}

func (s *BitbucketService) SetupWebhook(ctx context.Context, project *models.Project, integration *models.Integration) bool {
	return s.setupWebhook(ctx, s, project, integration)
}

func (s *BitbucketService) GetProviderData(ctx context.Context, project *models.Project, integration *models.Integration) datatypes.JSONMap {
	return s.getProviderData(ctx, s, project, integration)
}

func (s *BitbucketService) UpdateWebhook(ctx context.Context, project *models.Project, integration *models.Integration) bool {
	return s.updateWebhook(ctx, s, project, integration)
}

// nestedString walks a decoded JSON object
func nestedString(data map[string]any, path ...string) (string, bool) {
	var current any = data
	for _, key := range path {
		obj, ok := current.(map[string]any)
		if !ok {
			if m, isMap := current.(datatypes.JSONMap); isMap {
				obj = m
			} else {
				return "", false
			}
		}
		current, ok = obj[key]
		if !ok {
			return "", false
		}
	}
	value, ok := current.(string)
	return value, ok && value != ""
}
