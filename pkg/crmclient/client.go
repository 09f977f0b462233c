// Package crmclient provides the main entry point for creating CRM API clients.
package crmclient

import (
	"context"
	"fmt"
	"strings"

	"github.com/fivetwenty-io/crm-client/internal/client"
	"github.com/fivetwenty-io/crm-client/internal/constants"
	"github.com/fivetwenty-io/crm-client/pkg/crm"
)

// New creates a new CRM API client. The config is copied; empty endpoints
// fall back to the public data center defaults.
func New(ctx context.Context, config *crm.Config) (crm.Client, error) {
	if config == nil {
		return nil, crm.ErrConfigRequired
	}

	normalized := *config
	normalized.APIEndpoint = normalizeEndpoint(config.APIEndpoint, constants.DefaultAPIEndpoint)
	normalized.LegacyAPIEndpoint = normalizeEndpoint(config.LegacyAPIEndpoint, constants.DefaultLegacyAPIEndpoint)

	if normalized.TokenURL == "" {
		normalized.TokenURL = constants.DefaultTokenURL
	}

	crmClient, err := client.New(ctx, &normalized)
	if err != nil {
		return nil, fmt.Errorf("failed to create new client: %w", err)
	}

	return crmClient, nil
}

// normalizeEndpoint trims trailing slashes and adds a missing scheme.
func normalizeEndpoint(endpoint, fallback string) string {
	endpoint = strings.TrimSuffix(strings.TrimSpace(endpoint), "/")
	if endpoint == "" {
		return fallback
	}

	if !strings.HasPrefix(endpoint, "http://") && !strings.HasPrefix(endpoint, "https://") {
		endpoint = "https://" + endpoint
	}

	return endpoint
}

// NewWithToken creates a new client with an API endpoint and OAuth access token.
func NewWithToken(ctx context.Context, endpoint, token string) (crm.Client, error) {
	return New(ctx, &crm.Config{
		APIEndpoint: endpoint,
		AccessToken: token,
	})
}

// NewWithAuthToken creates a new client for the legacy API using an authtoken.
func NewWithAuthToken(ctx context.Context, legacyEndpoint, authToken string) (crm.Client, error) {
	return New(ctx, &crm.Config{
		LegacyAPIEndpoint: legacyEndpoint,
		AuthToken:         authToken,
	})
}

// NewWithRefreshToken creates a new client that obtains access tokens through
// the OAuth2 refresh grant.
func NewWithRefreshToken(ctx context.Context, endpoint, clientID, clientSecret, refreshToken string) (crm.Client, error) {
	return New(ctx, &crm.Config{
		APIEndpoint:  endpoint,
		ClientID:     clientID,
		ClientSecret: clientSecret,
		RefreshToken: refreshToken,
	})
}
