package auth

import (
	"context"
	"fmt"
	"net/http"
	"sync"
	"time"

	"golang.org/x/oauth2"

	"github.com/fivetwenty-io/crm-client/internal/constants"
)

// OAuth2Config configures an OAuth2TokenManager.
type OAuth2Config struct {
	TokenURL     string
	ClientID     string
	ClientSecret string
	RefreshToken string
	AccessToken  string
	// HTTPClient is used for token requests when set.
	HTTPClient *http.Client
}

// OAuth2TokenManager renews access tokens through the refresh-token grant.
// The authorization handshake that yields the refresh token happens elsewhere.
type OAuth2TokenManager struct {
	config      *OAuth2Config
	oauthConfig *oauth2.Config
	store       *TokenStore
	mu          sync.Mutex
	refreshes   int
}

// NewOAuth2TokenManager creates a manager. An AccessToken in config is used
// until it is rejected or refreshed.
func NewOAuth2TokenManager(config *OAuth2Config) *OAuth2TokenManager {
	tokenURL := config.TokenURL
	if tokenURL == "" {
		tokenURL = constants.DefaultTokenURL
	}

	manager := &OAuth2TokenManager{
		config: config,
		oauthConfig: &oauth2.Config{
			ClientID:     config.ClientID,
			ClientSecret: config.ClientSecret,
			Endpoint: oauth2.Endpoint{
				TokenURL:  tokenURL,
				AuthStyle: oauth2.AuthStyleInParams,
			},
		},
		store: NewTokenStore(),
	}

	if config.AccessToken != "" {
		manager.store.Set(&Token{
			AccessToken:  config.AccessToken,
			RefreshToken: config.RefreshToken,
			TokenType:    "Zoho-oauthtoken",
		})
	}

	return manager
}

// GetToken returns a valid access token, refreshing if necessary.
func (m *OAuth2TokenManager) GetToken(ctx context.Context) (string, error) {
	if token := m.store.Get(); token.Valid() {
		return token.AccessToken, nil
	}

	err := m.RefreshToken(ctx)
	if err != nil {
		return "", err
	}

	token := m.store.Get()
	if !token.Valid() {
		return "", ErrNoToken
	}

	return token.AccessToken, nil
}

// RefreshToken forces a refresh-token grant.
func (m *OAuth2TokenManager) RefreshToken(ctx context.Context) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	refreshToken := m.config.RefreshToken
	if current := m.store.Get(); current != nil && current.RefreshToken != "" {
		refreshToken = current.RefreshToken
	}

	if refreshToken == "" {
		return fmt.Errorf("%w: %w", ErrNoToken, ErrNoRefreshToken)
	}

	if m.config.ClientID == "" || m.config.ClientSecret == "" {
		return ErrMissingClientConfig
	}

	if m.config.HTTPClient != nil {
		ctx = context.WithValue(ctx, oauth2.HTTPClient, m.config.HTTPClient)
	}

	source := m.oauthConfig.TokenSource(ctx, &oauth2.Token{RefreshToken: refreshToken})

	fresh, err := source.Token()
	if err != nil {
		return fmt.Errorf("refreshing access token: %w", err)
	}

	// The accounts server does not rotate refresh tokens.
	if fresh.RefreshToken == "" {
		fresh.RefreshToken = refreshToken
	}

	apiDomain, _ := fresh.Extra("api_domain").(string)

	m.store.Set(&Token{
		AccessToken:  fresh.AccessToken,
		TokenType:    fresh.TokenType,
		RefreshToken: fresh.RefreshToken,
		APIDomain:    apiDomain,
		ExpiresAt:    fresh.Expiry,
	})
	m.refreshes++

	return nil
}

// SetToken manually sets the access token.
func (m *OAuth2TokenManager) SetToken(token string, expiresAt time.Time) {
	refreshToken := m.config.RefreshToken
	apiDomain := ""

	if current := m.store.Get(); current != nil {
		if current.RefreshToken != "" {
			refreshToken = current.RefreshToken
		}

		apiDomain = current.APIDomain
	}

	m.store.Set(&Token{
		AccessToken:  token,
		TokenType:    "Zoho-oauthtoken",
		RefreshToken: refreshToken,
		APIDomain:    apiDomain,
		ExpiresAt:    expiresAt,
	})
}

// Refreshes returns how many refresh grants succeeded.
func (m *OAuth2TokenManager) Refreshes() int {
	m.mu.Lock()
	defer m.mu.Unlock()

	return m.refreshes
}
