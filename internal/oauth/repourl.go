package oauth

import (
	"net/url"
	"regexp"
	"strings"

	"github.com/deployra/docsync/internal/models"
)

var (
	githubRepoPatterns = []*regexp.Regexp{
		regexp.MustCompile(`github\.com/(.+)/(.+)(?:\.git){1}$`),
		regexp.MustCompile(`github\.com/(.+)/(.+)`),
		regexp.MustCompile(`github\.com:(.+)/(.+)\.git$`),
	}
	bitbucketRepoPatterns = []*regexp.Regexp{
		regexp.MustCompile(`bitbucket\.org/(.+)/(.+)\.git$`),
		regexp.MustCompile(`@bitbucket\.org/(.+)/(.+)\.git$`),
		regexp.MustCompile(`bitbucket\.org/(.+)/(.+)/`),
		regexp.MustCompile(`bitbucket\.org/(.+)/(.+)`),
		regexp.MustCompile(`bitbucket\.org:(.+)/(.+)\.git$`),
	}
	gitlabRepoPatterns = []*regexp.Regexp{
		regexp.MustCompile(`gitlab\.com/(.+)/(.+)(?:\.git){1}$`),
		regexp.MustCompile(`gitlab\.com/(.+)/(.+)`),
		regexp.MustCompile(`gitlab\.com:(.+)/(.+)\.git$`),
	}

	// strips the "user@" Bitbucket embeds in HTTPS clone links
	bitbucketHTTPSUserPattern  = regexp.MustCompile(`^https://[^@]+@bitbucket\.org/`)
	bitbucketAvatarSizePattern = regexp.MustCompile(`/16/$`)
)

func matchOwnerRepo(patterns []*regexp.Regexp, repoURL string) (string, string, bool) {
	for _, pattern := range patterns {
		if match := pattern.FindStringSubmatch(repoURL); match != nil {
			return match[1], match[2], true
		}
	}
	return "", "", false
}

// ParseGitHubRepo extracts owner and repository name from a GitHub URL
func ParseGitHubRepo(repoURL string) (string, string, bool) {
	if !strings.Contains(repoURL, "github") {
		return "", "", false
	}
	return matchOwnerRepo(githubRepoPatterns, repoURL)
}

// ParseBitbucketRepo extracts workspace and repository slug from a Bitbucket URL
func ParseBitbucketRepo(repoURL string) (string, string, bool) {
	if !strings.Contains(repoURL, "bitbucket") {
		return "", "", false
	}
	return matchOwnerRepo(bitbucketRepoPatterns, repoURL)
}

// ParseGitLabRepo extracts namespace and project path from a gitlab.com URL
func ParseGitLabRepo(repoURL string) (string, string, bool) {
	if !strings.Contains(repoURL, "gitlab") {
		return "", "", false
	}
	owner, repo, ok := matchOwnerRepo(gitlabRepoPatterns, repoURL)
	if !ok {
		return "", "", false
	}
	return owner, strings.TrimSuffix(repo, ".git"), true
}

// ProviderForRepo guesses the provider hosting repoURL. Self-hosted GitLab
// is matched on the configured host.
func ProviderForRepo(repoURL string, settings Settings) (models.VCSProvider, bool) {
	switch {
	case strings.Contains(repoURL, "github.com"):
		return models.VCSProviderGitHub, true
	case strings.Contains(repoURL, "bitbucket.org"):
		return models.VCSProviderBitbucket, true
	}
	if u, err := url.Parse(settings.GitLabURL); err == nil && u.Host != "" && strings.Contains(repoURL, u.Host) {
		return models.VCSProviderGitLab, true
	}
	return "", false
}
