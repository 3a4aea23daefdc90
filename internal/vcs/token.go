package vcs

import (
	"context"
	"fmt"
	"net/http"
	"strings"
	"sync"

	"github.com/rs/zerolog/log"
	"golang.org/x/oauth2"
	"golang.org/x/oauth2/endpoints"
)

// OAuthApp holds the OAuth application credentials for one provider
type OAuthApp struct {
	ClientID     string
	ClientSecret string
	Endpoint     oauth2.Endpoint
	Scopes       []string
}

// Config returns the oauth2 config used to authorize and refresh tokens
func (a OAuthApp) Config() *oauth2.Config {
	return &oauth2.Config{
		ClientID:     a.ClientID,
		ClientSecret: a.ClientSecret,
		Endpoint:     a.Endpoint,
		Scopes:       a.Scopes,
	}
}

// Configured reports whether the application credentials are set
func (a OAuthApp) Configured() bool {
	return a.ClientID != "" && a.ClientSecret != ""
}

func BitbucketEndpoint() oauth2.Endpoint {
	return endpoints.Bitbucket
}

func GitHubEndpoint() oauth2.Endpoint {
	return endpoints.GitHub
}

// GitLabEndpoint supports self-hosted instances
func GitLabEndpoint(baseURL string) oauth2.Endpoint {
	base := strings.TrimRight(baseURL, "/")
	return oauth2.Endpoint{
		AuthURL:  base + "/oauth/authorize",
		TokenURL: base + "/oauth/token",
	}
}

// RefreshFunc is called with every new token the source obtains
type RefreshFunc func(ctx context.Context, token *oauth2.Token) error

type persistingTokenSource struct {
	ctx       context.Context
	source    oauth2.TokenSource
	onRefresh RefreshFunc

	mu   sync.Mutex
	last string
}

func (s *persistingTokenSource) Token() (*oauth2.Token, error) {
	token, err := s.source.Token()
	if err != nil {
		return nil, fmt.Errorf("failed to obtain token: %w", err)
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	if token.AccessToken != s.last {
		s.last = token.AccessToken
		if s.onRefresh != nil {
			if err := s.onRefresh(s.ctx, token); err != nil {
				// the new token is still usable for this session
				log.Error().Err(err).Msg("failed to persist refreshed token")
			}
		}
	}
	return token, nil
}

// NewTokenClient returns an HTTP client that authenticates with token and
// refreshes it through app when it expires. onRefresh receives the new token.
func NewTokenClient(ctx context.Context, app OAuthApp, token *oauth2.Token, onRefresh RefreshFunc) *http.Client {
	source := &persistingTokenSource{
		ctx:       ctx,
		source:    oauth2.ReuseTokenSource(token, app.Config().TokenSource(ctx, token)),
		onRefresh: onRefresh,
		last:      token.AccessToken,
	}
	return oauth2.NewClient(ctx, source)
}
