package strava

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	repository "github.com/mlunde/adventpace/internal/adapters/repository"
	"github.com/mlunde/adventpace/internal/domain/model"
	"github.com/mlunde/adventpace/pkg/logger"
	"github.com/mlunde/adventpace/pkg/metrics"
)

// RefreshMargin is how long before expiry a token is refreshed. The
// margin absorbs clock skew and tokens consumed mid-flight.
const RefreshMargin = 300 * time.Second

// CredentialStore is the slice of the document store the token manager
// reads and updates credentials through.
type CredentialStore interface {
	GetUser(ctx context.Context, id string) (model.User, error)
	UpdateUser(ctx context.Context, id string, fn func(*model.User) error) error
}

// Refresher performs the provider-side refresh grant.
type Refresher interface {
	Refresh(ctx context.Context, refreshToken string) (TokenGrant, error)
}

// TokenManager hands out currently-valid access tokens, refreshing
// proactively. Refreshes for one user are serialized through a per-user
// mutex: two concurrent callers produce a single provider call, so the
// provider never invalidates a refresh token we still hold.
type TokenManager struct {
	store  CredentialStore
	client Refresher
	margin time.Duration
	log    logger.Logger

	mu    sync.Mutex
	locks map[string]*sync.Mutex
}

// TokenOption applies a configuration option to the TokenManager.
type TokenOption func(*TokenManager)

// WithRefreshMargin overrides the early-refresh margin.
func WithRefreshMargin(d time.Duration) TokenOption {
	return func(m *TokenManager) {
		if d > 0 {
			m.margin = d
		}
	}
}

// WithTokenLogger sets a custom logger for the token manager.
func WithTokenLogger(log logger.Logger) TokenOption {
	return func(m *TokenManager) {
		if log != nil {
			m.log = log
		}
	}
}

// NewTokenManager creates a TokenManager over the given store and
// refresh client.
func NewTokenManager(store CredentialStore, client Refresher, opts ...TokenOption) *TokenManager {
	m := &TokenManager{
		store:  store,
		client: client,
		margin: RefreshMargin,
		locks:  make(map[string]*sync.Mutex),
	}
	for _, opt := range opts {
		opt(m)
	}
	if m.log == nil {
		m.log = logger.Get().Named("tokens")
	}
	return m
}

// ValidAccessToken returns an access token usable at now, refreshing
// it first when it expires within the margin. ErrNoToken means the
// feature is unavailable for this user: no credential, or the provider
// rejected the refresh. The stored credential is never modified on a
// failed refresh.
func (m *TokenManager) ValidAccessToken(ctx context.Context, userID string, now time.Time) (string, error) {
	u, err := m.store.GetUser(ctx, userID)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return "", ErrNoToken
		}
		return "", fmt.Errorf("load credential: %w", err)
	}
	if u.Credential == nil {
		return "", ErrNoToken
	}
	if m.fresh(u.Credential, now) {
		return u.Credential.AccessToken, nil
	}

	lock := m.userLock(userID)
	lock.Lock()
	defer lock.Unlock()

	// Re-read under the lock: a concurrent caller may have refreshed
	// while we waited.
	u, err = m.store.GetUser(ctx, userID)
	if err != nil || u.Credential == nil {
		return "", ErrNoToken
	}
	if m.fresh(u.Credential, now) {
		return u.Credential.AccessToken, nil
	}

	grant, err := m.client.Refresh(ctx, u.Credential.RefreshToken)
	if err != nil {
		metrics.RecordTokenRefreshError()
		m.log.Warn(ctx, "token refresh failed",
			logger.String("user", userID),
			logger.Error(err),
		)
		return "", ErrNoToken
	}

	// Confirm the credential still exists before overwriting it; the
	// user may have disconnected while the refresh was in flight.
	err = m.store.UpdateUser(ctx, userID, func(u *model.User) error {
		if u.Credential == nil {
			return ErrNoToken
		}
		u.Credential.AccessToken = grant.AccessToken
		u.Credential.RefreshToken = grant.RefreshToken
		u.Credential.ExpiresAt = grant.ExpiresAt
		return nil
	})
	if err != nil {
		return "", ErrNoToken
	}

	metrics.RecordTokenRefresh()
	m.log.Info(ctx, "access token refreshed", logger.String("user", userID))
	return grant.AccessToken, nil
}

func (m *TokenManager) fresh(cred *model.Credential, now time.Time) bool {
	return now.Unix() < cred.ExpiresAt-int64(m.margin/time.Second)
}

func (m *TokenManager) userLock(userID string) *sync.Mutex {
	m.mu.Lock()
	defer m.mu.Unlock()
	lock, ok := m.locks[userID]
	if !ok {
		lock = &sync.Mutex{}
		m.locks[userID] = lock
	}
	return lock
}
