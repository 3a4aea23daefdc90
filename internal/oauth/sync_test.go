package oauth

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/deployra/docsync/internal/models"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

type mockLocker struct {
	mock.Mock
}

func (m *mockLocker) Acquire(ctx context.Context, key, token string, ttl time.Duration) (bool, error) {
	args := m.Called(ctx, key, token, ttl)
	return args.Bool(0), args.Error(1)
}

func (m *mockLocker) Release(ctx context.Context, key, token string) error {
	return m.Called(ctx, key, token).Error(0)
}

func TestSyncAccount(t *testing.T) {
	fake := &fakeBitbucket{
		member:     []map[string]any{bitbucketRepo("{repo-1}", "docs", false)},
		workspaces: []map[string]any{},
	}
	srv := httptest.NewServer(fake.handler(t))
	defer srv.Close()

	f := newFixture(t, models.VCSProviderBitbucket)
	svc := f.service(t, testSettings(srv.URL), srv)
	key := "sync:account:" + f.account.ID

	var token string
	locker := &mockLocker{}
	locker.On("Acquire", mock.Anything, key, mock.AnythingOfType("string"), time.Minute).
		Run(func(args mock.Arguments) { token = args.String(2) }).
		Return(true, nil).Once()
	locker.On("Release", mock.Anything, key, mock.AnythingOfType("string")).Return(nil).Once()

	result, err := SyncAccount(context.Background(), svc, locker, time.Minute)
	require.NoError(t, err)
	assert.NotEmpty(t, result.SyncID)
	// the lock is held and released with the sync id
	assert.Equal(t, result.SyncID, token)
	locker.AssertCalled(t, "Release", mock.Anything, key, result.SyncID)
	assert.Equal(t, f.account.ID, result.AccountID)
	assert.Equal(t, models.VCSProviderBitbucket, result.Provider)
	assert.Len(t, result.Repositories, 1)
	assert.Empty(t, result.Organizations)
	locker.AssertExpectations(t)
}

func TestSyncAccountInProgress(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		t.Errorf("unexpected request %s", r.URL.Path)
	}))
	defer srv.Close()

	f := newFixture(t, models.VCSProviderBitbucket)
	svc := f.service(t, testSettings(srv.URL), srv)

	locker := &mockLocker{}
	locker.On("Acquire", mock.Anything, mock.Anything, mock.Anything, mock.Anything).Return(false, nil).Once()

	_, err := SyncAccount(context.Background(), svc, locker, time.Minute)
	assert.ErrorIs(t, err, ErrSyncInProgress)
	locker.AssertNotCalled(t, "Release", mock.Anything, mock.Anything, mock.Anything)
}

func TestSyncAccountLockError(t *testing.T) {
	srv := httptest.NewServer(http.NotFoundHandler())
	defer srv.Close()

	f := newFixture(t, models.VCSProviderBitbucket)
	svc := f.service(t, testSettings(srv.URL), srv)

	lockErr := errors.New("connection refused")
	locker := &mockLocker{}
	locker.On("Acquire", mock.Anything, mock.Anything, mock.Anything, mock.Anything).Return(false, lockErr).Once()

	_, err := SyncAccount(context.Background(), svc, locker, time.Minute)
	assert.ErrorIs(t, err, lockErr)
}

func TestSyncAccountReleasesLockOnFailure(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusUnauthorized, map[string]any{"error": "token expired"})
	}))
	defer srv.Close()

	f := newFixture(t, models.VCSProviderBitbucket)
	svc := f.service(t, testSettings(srv.URL), srv)

	locker := &mockLocker{}
	locker.On("Acquire", mock.Anything, mock.Anything, mock.Anything, mock.Anything).Return(true, nil).Once()
	locker.On("Release", mock.Anything, mock.Anything, mock.Anything).Return(errors.New("gone")).Once()

	result, err := SyncAccount(context.Background(), svc, locker, time.Minute)
	var serviceErr *SyncServiceError
	require.ErrorAs(t, err, &serviceErr)
	assert.Empty(t, result.Repositories)
	locker.AssertExpectations(t)
}
