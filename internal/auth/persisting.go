package auth

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"
)

// Static errors for err113 compliance.
var (
	ErrNoTokenPersister = errors.New("no token persister configured")
)

// TokenPersister stores refreshed access tokens so later processes can reuse them.
type TokenPersister interface {
	SaveAccessToken(token string, expiresAt time.Time) error
}

// PersistingTokenManager wraps OAuth2TokenManager and hands every refreshed
// token to a persister. Persistence failures never fail the request.
type PersistingTokenManager struct {
	oauth2Manager *OAuth2TokenManager
	persister     TokenPersister
	onError       func(error)
	mutex         sync.Mutex
	seen          int
}

// NewPersistingTokenManager creates a persisting manager. onError, when
// non-nil, receives persistence failures.
func NewPersistingTokenManager(config *OAuth2Config, persister TokenPersister, initialExpiry time.Time, onError func(error)) *PersistingTokenManager {
	oauth2Manager := NewOAuth2TokenManager(config)
	if config.AccessToken != "" && !initialExpiry.IsZero() {
		oauth2Manager.SetToken(config.AccessToken, initialExpiry)
	}

	return &PersistingTokenManager{
		oauth2Manager: oauth2Manager,
		persister:     persister,
		onError:       onError,
	}
}

// GetToken returns a valid access token, refreshing and persisting if necessary.
func (m *PersistingTokenManager) GetToken(ctx context.Context) (string, error) {
	token, err := m.oauth2Manager.GetToken(ctx)
	if err != nil {
		return "", err
	}

	m.persistIfRefreshed()

	return token, nil
}

// RefreshToken forces a token refresh and persists the result.
func (m *PersistingTokenManager) RefreshToken(ctx context.Context) error {
	err := m.oauth2Manager.RefreshToken(ctx)
	if err != nil {
		return err
	}

	m.persistIfRefreshed()

	return nil
}

// SetToken manually sets the access token.
func (m *PersistingTokenManager) SetToken(token string, expiresAt time.Time) {
	m.oauth2Manager.SetToken(token, expiresAt)
}

// TokenExpiry returns the current token's expiration time.
func (m *PersistingTokenManager) TokenExpiry() time.Time {
	token := m.oauth2Manager.store.Get()
	if token == nil {
		return time.Time{}
	}

	return token.ExpiresAt
}

func (m *PersistingTokenManager) persistIfRefreshed() {
	m.mutex.Lock()
	defer m.mutex.Unlock()

	refreshes := m.oauth2Manager.Refreshes()
	if refreshes == m.seen {
		return
	}

	m.seen = refreshes

	token := m.oauth2Manager.store.Get()
	if token == nil {
		return
	}

	err := m.persist(token)
	if err != nil && m.onError != nil {
		m.onError(err)
	}
}

func (m *PersistingTokenManager) persist(token *Token) error {
	if m.persister == nil {
		return ErrNoTokenPersister
	}

	err := m.persister.SaveAccessToken(token.AccessToken, token.ExpiresAt)
	if err != nil {
		return fmt.Errorf("failed to save access token: %w", err)
	}

	return nil
}
