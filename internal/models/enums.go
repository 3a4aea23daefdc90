package models

// VCSProvider enum
type VCSProvider string

const (
	VCSProviderBitbucket VCSProvider = "bitbucket"
	VCSProviderGitLab    VCSProvider = "gitlab"
	VCSProviderGitHub    VCSProvider = "github"
)

// DisplayName is the provider name shown to users
func (p VCSProvider) DisplayName() string {
	switch p {
	case VCSProviderBitbucket:
		return "Bitbucket"
	case VCSProviderGitLab:
		return "GitLab"
	case VCSProviderGitHub:
		return "GitHub"
	}
	return string(p)
}

// PrivacyLevel enum
type PrivacyLevel string

const (
	PrivacyLevelPublic  PrivacyLevel = "public"
	PrivacyLevelPrivate PrivacyLevel = "private"
)

// IntegrationType enum
type IntegrationType string

const (
	IntegrationTypeGitHubApp        IntegrationType = "githubapp"
	IntegrationTypeGitHubWebhook    IntegrationType = "github_webhook"
	IntegrationTypeBitbucketWebhook IntegrationType = "bitbucket_webhook"
	IntegrationTypeGitLabWebhook    IntegrationType = "gitlab_webhook"
	IntegrationTypeAPIWebhook       IntegrationType = "api_webhook"
)

// WebhookState enum
type WebhookState string

const (
	WebhookStateNone   WebhookState = "NONE"
	WebhookStateProbed WebhookState = "PROBED"
	WebhookStateActive WebhookState = "ACTIVE"
	WebhookStateStale  WebhookState = "STALE"
)

// BuildStatus enum
type BuildStatus string

const (
	BuildStatusPending BuildStatus = "pending"
	BuildStatusSuccess BuildStatus = "success"
	BuildStatusFailure BuildStatus = "failed"
)

// CommitState is how one build status is reported to the providers
type CommitState struct {
	GitHub      string
	GitLab      string
	Description string
}

var commitStates = map[BuildStatus]CommitState{
	BuildStatusPending: {GitHub: "pending", GitLab: "pending", Description: "Documentation build is in progress!"},
	BuildStatusSuccess: {GitHub: "success", GitLab: "success", Description: "Documentation build succeeded!"},
	BuildStatusFailure: {GitHub: "failure", GitLab: "failed", Description: "Documentation build failed!"},
}

// CommitState returns the provider vocabulary for a build status
func (s BuildStatus) CommitState() (CommitState, bool) {
	state, ok := commitStates[s]
	return state, ok
}
