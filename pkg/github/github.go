package github

import (
	"context"
	"fmt"
	"iter"
	"net/http"
	"net/url"
	"strings"

	gh "github.com/google/go-github/v57/github"
)

// Client wraps the GitHub client
type Client struct {
	client *gh.Client
}

// NewClient creates a GitHub client on top of an authenticated HTTP client.
// baseURL overrides the API root for GitHub Enterprise and tests.
func NewClient(httpClient *http.Client, baseURL string) (*Client, error) {
	client := gh.NewClient(httpClient)
	if baseURL != "" && strings.TrimRight(baseURL, "/") != "https://api.github.com" {
		u, err := url.Parse(strings.TrimRight(baseURL, "/") + "/")
		if err != nil {
			return nil, fmt.Errorf("invalid GitHub API URL: %w", err)
		}
		client.BaseURL = u
	}
	return &Client{client: client}, nil
}

// paginate walks every page of a go-github list call
func paginate[T any](ctx context.Context, list func(opts gh.ListOptions) ([]T, *gh.Response, error)) iter.Seq2[T, error] {
	return func(yield func(T, error) bool) {
		opts := gh.ListOptions{PerPage: 100}
		for {
			items, resp, err := list(opts)
			if err != nil {
				var zero T
				yield(zero, err)
				return
			}
			for _, item := range items {
				if !yield(item, nil) {
					return
				}
			}
			if resp == nil || resp.NextPage == 0 {
				return
			}
			opts.Page = resp.NextPage
		}
	}
}

// Repositories lists every repository the authenticated user can access
func (c *Client) Repositories(ctx context.Context) iter.Seq2[*gh.Repository, error] {
	return paginate(ctx, func(opts gh.ListOptions) ([]*gh.Repository, *gh.Response, error) {
		return c.client.Repositories.List(ctx, "", &gh.RepositoryListOptions{ListOptions: opts})
	})
}

// Organizations lists the organizations of the authenticated user
func (c *Client) Organizations(ctx context.Context) iter.Seq2[*gh.Organization, error] {
	return paginate(ctx, func(opts gh.ListOptions) ([]*gh.Organization, *gh.Response, error) {
		return c.client.Organizations.List(ctx, "", &opts)
	})
}

// Organization fetches the full organization, the list endpoint omits names and emails
func (c *Client) Organization(ctx context.Context, login string) (*gh.Organization, error) {
	org, _, err := c.client.Organizations.Get(ctx, login)
	if err != nil {
		return nil, fmt.Errorf("failed to get organization: %w", err)
	}
	return org, nil
}

// OrganizationRepositories lists every repository of an organization
func (c *Client) OrganizationRepositories(ctx context.Context, login string) iter.Seq2[*gh.Repository, error] {
	return paginate(ctx, func(opts gh.ListOptions) ([]*gh.Repository, *gh.Response, error) {
		return c.client.Repositories.ListByOrg(ctx, login, &gh.RepositoryListByOrgOptions{ListOptions: opts})
	})
}

// AuthenticatedUser returns the user the client token belongs to
func (c *Client) AuthenticatedUser(ctx context.Context) (*gh.User, int, error) {
	user, resp, err := c.client.Users.Get(ctx, "")
	return user, statusCode(resp), err
}

// ListHooks returns every webhook of a repository and the HTTP status of
// the last page fetched
func (c *Client) ListHooks(ctx context.Context, owner, repo string) ([]*gh.Hook, int, error) {
	var hooks []*gh.Hook
	status := 0
	pages := paginate(ctx, func(opts gh.ListOptions) ([]*gh.Hook, *gh.Response, error) {
		page, resp, err := c.client.Repositories.ListHooks(ctx, owner, repo, &opts)
		status = statusCode(resp)
		return page, resp, err
	})
	for hook, err := range pages {
		if err != nil {
			return nil, status, err
		}
		hooks = append(hooks, hook)
	}
	return hooks, status, nil
}

// CreateHook registers a webhook on a repository
func (c *Client) CreateHook(ctx context.Context, owner, repo string, hook *gh.Hook) (*gh.Hook, int, error) {
	created, resp, err := c.client.Repositories.CreateHook(ctx, owner, repo, hook)
	return created, statusCode(resp), err
}

// EditHook replaces the configuration of an existing webhook
func (c *Client) EditHook(ctx context.Context, owner, repo string, id int64, hook *gh.Hook) (*gh.Hook, int, error) {
	edited, resp, err := c.client.Repositories.EditHook(ctx, owner, repo, id, hook)
	return edited, statusCode(resp), err
}

// CreateStatus sets a commit status
func (c *Client) CreateStatus(ctx context.Context, owner, repo, ref string, status *gh.RepoStatus) (int, error) {
	_, resp, err := c.client.Repositories.CreateStatus(ctx, owner, repo, ref, status)
	return statusCode(resp), err
}

func statusCode(resp *gh.Response) int {
	if resp == nil || resp.Response == nil {
		return 0
	}
	return resp.StatusCode
}
