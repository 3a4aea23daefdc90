package oauth

import (
	"context"
	"fmt"
	"time"

	"github.com/deployra/docsync/internal/models"
	"github.com/google/uuid"
	"github.com/rs/zerolog/log"
)

// Locker guards an account against concurrent syncs
type Locker interface {
	// Acquire takes key for ttl on behalf of token
	Acquire(ctx context.Context, key, token string, ttl time.Duration) (bool, error)
	// Release frees key only while token still holds it
	Release(ctx context.Context, key, token string) error
}

// SyncResult summarizes one account sync
type SyncResult struct {
	SyncID        string                       `json:"syncId"`
	AccountID     string                       `json:"accountId"`
	Provider      models.VCSProvider           `json:"provider"`
	Repositories  []*models.RemoteRepository   `json:"repositories"`
	Organizations []*models.RemoteOrganization `json:"organizations"`
}

func syncLockKey(accountID string) string {
	return "sync:account:" + accountID
}

// SyncAccount runs the repository pass and then the organization pass for
// the account behind svc. Rows reconciled before a failure stay persisted.
func SyncAccount(ctx context.Context, svc Service, locker Locker, ttl time.Duration) (*SyncResult, error) {
	account := svc.Account()
	result := &SyncResult{
		SyncID:    uuid.New().String(),
		AccountID: account.ID,
		Provider:  svc.Provider(),
	}

	logger := log.Ctx(ctx).With().
		Str("sync_id", result.SyncID).
		Str("account_id", account.ID).
		Str("provider", string(result.Provider)).
		Logger()
	ctx = logger.WithContext(ctx)

	key := syncLockKey(account.ID)
	acquired, err := locker.Acquire(ctx, key, result.SyncID, ttl)
	if err != nil {
		return nil, fmt.Errorf("failed to acquire sync lock: %w", err)
	}
	if !acquired {
		return nil, ErrSyncInProgress
	}
	defer func() {
		// the lock expires on its own if this fails
		if err := locker.Release(context.WithoutCancel(ctx), key, result.SyncID); err != nil {
			logger.Warn().Err(err).Msg("Failed to release sync lock")
		}
	}()

	started := time.Now()
	logger.Info().Msg("Sync started")

	repositories, err := svc.SyncRepositories(ctx)
	result.Repositories = append(result.Repositories, repositories...)
	if err != nil {
		return result, err
	}

	organizations, orgRepositories, err := svc.SyncOrganizations(ctx)
	result.Organizations = organizations
	result.Repositories = append(result.Repositories, orgRepositories...)
	if err != nil {
		return result, err
	}

	logger.Info().
		Int("repositories", len(result.Repositories)).
		Int("organizations", len(result.Organizations)).
		Dur("duration", time.Since(started)).
		Msg("Sync finished")
	return result, nil
}
