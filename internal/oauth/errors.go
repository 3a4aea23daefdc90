package oauth

import (
	"errors"
	"fmt"

	"github.com/deployra/docsync/internal/models"
	"github.com/deployra/docsync/internal/vcs"
)

const invalidOrRevokedAccessToken = "Our access to your %s account was revoked. Please, reconnect it from your social account connections."

var (
	ErrSyncInProgress     = errors.New("a sync for this account is already running")
	ErrNoAccount          = errors.New("no connected account for provider")
	ErrUnsupportedService = errors.New("unsupported VCS provider")
	ErrMissingField       = errors.New("missing required field")
	ErrNoRepositoryID     = errors.New("cannot determine remote repository for project")
	ErrMalformedHookData  = errors.New("malformed webhook provider data")
)

// SyncServiceError aborts a sync call with a message the user can act on
type SyncServiceError struct {
	Provider models.VCSProvider
	Err      error
}

func (e *SyncServiceError) Error() string {
	return fmt.Sprintf(invalidOrRevokedAccessToken, e.Provider.DisplayName())
}

func (e *SyncServiceError) Unwrap() error {
	return e.Err
}

// syncServiceError turns malformed or refused provider responses into a
// SyncServiceError. Anything else, such as a database failure, is returned
// unchanged.
func syncServiceError(provider models.VCSProvider, err error) error {
	var syncErr *vcs.SyncError
	if !errors.As(err, &syncErr) {
		return err
	}
	return &SyncServiceError{Provider: provider, Err: err}
}

// missingField reports malformed provider input as a sync error
func missingField(name string) error {
	return &vcs.SyncError{Err: fmt.Errorf("%w: %s", ErrMissingField, name)}
}
