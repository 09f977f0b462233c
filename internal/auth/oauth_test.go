package auth

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func tokenServer(t *testing.T, accessToken string) *httptest.Server {
	t.Helper()

	return httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/oauth/v2/token", r.URL.Path)
		assert.Equal(t, "POST", r.Method)

		err := r.ParseForm()
		assert.NoError(t, err)
		assert.Equal(t, "refresh_token", r.Form.Get("grant_type"))
		assert.Equal(t, "old-refresh-token", r.Form.Get("refresh_token"))
		assert.Equal(t, "client-id", r.Form.Get("client_id"))
		assert.Equal(t, "client-secret", r.Form.Get("client_secret"))

		w.Header().Set("Content-Type", "application/json")
		_ = json.NewEncoder(w).Encode(Token{
			AccessToken: accessToken,
			ExpiresIn:   3600,
			TokenType:   "Bearer",
			APIDomain:   "https://www.zohoapis.com",
		})
	}))
}

//nolint:funlen // Test functions can be longer for comprehensive testing
func TestOAuth2TokenManager_GetToken(t *testing.T) {
	t.Parallel()

	t.Run("returns existing valid token", func(t *testing.T) {
		t.Parallel()

		manager := NewOAuth2TokenManager(&OAuth2Config{
			AccessToken: "existing-token",
		})

		token, err := manager.GetToken(context.Background())
		require.NoError(t, err)
		assert.Equal(t, "existing-token", token)
		assert.Zero(t, manager.Refreshes())
	})

	t.Run("refreshes expired token using refresh token", func(t *testing.T) {
		t.Parallel()

		server := tokenServer(t, "new-access-token")
		defer server.Close()

		manager := NewOAuth2TokenManager(&OAuth2Config{
			TokenURL:     server.URL + "/oauth/v2/token",
			ClientID:     "client-id",
			ClientSecret: "client-secret",
			RefreshToken: "old-refresh-token",
		})

		manager.store.Set(&Token{
			AccessToken:  "expired-token",
			RefreshToken: "old-refresh-token",
			ExpiresAt:    time.Now().Add(-1 * time.Hour),
		})

		token, err := manager.GetToken(context.Background())
		require.NoError(t, err)
		assert.Equal(t, "new-access-token", token)
		assert.Equal(t, 1, manager.Refreshes())

		stored := manager.store.Get()
		assert.Equal(t, "old-refresh-token", stored.RefreshToken)
		assert.True(t, stored.ExpiresAt.After(time.Now()))
	})

	t.Run("fetches first token when only refresh token is configured", func(t *testing.T) {
		t.Parallel()

		server := tokenServer(t, "first-access-token")
		defer server.Close()

		manager := NewOAuth2TokenManager(&OAuth2Config{
			TokenURL:     server.URL + "/oauth/v2/token",
			ClientID:     "client-id",
			ClientSecret: "client-secret",
			RefreshToken: "old-refresh-token",
			HTTPClient:   server.Client(),
		})

		token, err := manager.GetToken(context.Background())
		require.NoError(t, err)
		assert.Equal(t, "first-access-token", token)
	})

	t.Run("fails without credentials", func(t *testing.T) {
		t.Parallel()

		manager := NewOAuth2TokenManager(&OAuth2Config{})

		token, err := manager.GetToken(context.Background())
		require.ErrorIs(t, err, ErrNoToken)
		assert.Contains(t, err.Error(), "no valid credentials available")
		assert.Empty(t, token)
	})

	t.Run("fails without client configuration", func(t *testing.T) {
		t.Parallel()

		manager := NewOAuth2TokenManager(&OAuth2Config{RefreshToken: "old-refresh-token"})

		_, err := manager.GetToken(context.Background())
		require.ErrorIs(t, err, ErrMissingClientConfig)
	})

	t.Run("surfaces token endpoint errors", func(t *testing.T) {
		t.Parallel()

		server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			w.Header().Set("Content-Type", "application/json")
			w.WriteHeader(http.StatusBadRequest)
			_, _ = w.Write([]byte(`{"error":"invalid_code"}`))
		}))
		defer server.Close()

		manager := NewOAuth2TokenManager(&OAuth2Config{
			TokenURL:     server.URL,
			ClientID:     "client-id",
			ClientSecret: "client-secret",
			RefreshToken: "revoked",
		})

		_, err := manager.GetToken(context.Background())
		require.Error(t, err)
		assert.Contains(t, err.Error(), "refreshing access token")
	})
}

func TestOAuth2TokenManager_SetToken(t *testing.T) {
	t.Parallel()

	manager := NewOAuth2TokenManager(&OAuth2Config{RefreshToken: "keep-me"})

	expiresAt := time.Now().Add(1 * time.Hour)
	manager.SetToken("manual-token", expiresAt)

	token, err := manager.GetToken(context.Background())
	require.NoError(t, err)
	assert.Equal(t, "manual-token", token)

	storedToken := manager.store.Get()
	assert.Equal(t, "manual-token", storedToken.AccessToken)
	assert.Equal(t, "keep-me", storedToken.RefreshToken)
	assert.Equal(t, expiresAt.Unix(), storedToken.ExpiresAt.Unix())
}

func TestOAuth2TokenManager_RefreshToken(t *testing.T) {
	t.Parallel()

	server := tokenServer(t, "refreshed-token")
	defer server.Close()

	manager := NewOAuth2TokenManager(&OAuth2Config{
		TokenURL:     server.URL + "/oauth/v2/token",
		ClientID:     "client-id",
		ClientSecret: "client-secret",
		RefreshToken: "old-refresh-token",
	})

	manager.SetToken("current-token", time.Now().Add(1*time.Hour))

	require.NoError(t, manager.RefreshToken(context.Background()))

	token, err := manager.GetToken(context.Background())
	require.NoError(t, err)
	assert.Equal(t, "refreshed-token", token)

	stored := manager.store.Get()
	assert.Equal(t, "https://www.zohoapis.com", stored.APIDomain)
	assert.Equal(t, "old-refresh-token", stored.RefreshToken, "refresh token is kept when not rotated")

	manager.SetToken("persisted-token", time.Now().Add(time.Hour))

	stored = manager.store.Get()
	assert.Equal(t, "Zoho-oauthtoken", stored.TokenType)
	assert.Equal(t, "https://www.zohoapis.com", stored.APIDomain)
	assert.Equal(t, "old-refresh-token", stored.RefreshToken)
}
