package crm

import (
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestAPIError_Error(t *testing.T) {
	t.Parallel()

	err := NewAPIError("4820", "API call cannot be completed as you have exceeded the rate limit")

	assert.Equal(t, CategoryRateLimit, err.Category)
	assert.Equal(t,
		"API rate limit exceeded: API call cannot be completed as you have exceeded the rate limit (code: 4820)",
		err.Error())
}

func TestCategoryOf(t *testing.T) {
	t.Parallel()

	tests := []struct {
		code     string
		expected APICategory
	}{
		{"4820", CategoryRateLimit},
		{"4421", CategoryRateLimit},
		{"TOO_MANY_REQUESTS", CategoryRateLimit},
		{"4834", CategoryAuthentication},
		{"INVALID_TOKEN", CategoryAuthentication},
		{"4487", CategoryPermission},
		{"OAUTH_SCOPE_MISMATCH", CategoryPermission},
		{"4600", CategoryInvalidRequest},
		{"INVALID_MODULE", CategoryInvalidRequest},
		{"4103", CategoryNotFound},
		{"4500", CategoryServer},
		{"INTERNAL_ERROR", CategoryServer},
		{"9999", CategoryGeneric},
		{"SOMETHING_NEW", CategoryGeneric},
	}

	for _, tt := range tests {
		t.Run(tt.code, func(t *testing.T) {
			t.Parallel()
			assert.Equal(t, tt.expected, CategoryOf(tt.code))
		})
	}
}

func TestAPIError_Is(t *testing.T) {
	t.Parallel()

	wrapped := fmt.Errorf("listing leads: %w", NewAPIError("4103", "Record not found"))

	assert.ErrorIs(t, wrapped, ErrNotFound)
	assert.ErrorIs(t, wrapped, ErrAPI)
	assert.NotErrorIs(t, wrapped, ErrRateLimited)
	assert.True(t, IsNotFound(wrapped))
	assert.False(t, IsRateLimited(wrapped))

	generic := NewAPIError("7777", "unexpected")
	assert.ErrorIs(t, generic, ErrAPI)
	assert.Equal(t, "7777", generic.Code)
	assert.Equal(t, "unexpected", generic.Message)
}

func TestKindOf(t *testing.T) {
	t.Parallel()

	transportErr := &TransportError{Method: "GET", URL: "https://example.com", Err: errors.New("connection refused")}

	tests := []struct {
		name     string
		err      error
		expected ErrorKind
	}{
		{"nil", nil, ""},
		{"validation", &ValidationError{Field: "module", Message: "required"}, KindValidation},
		{"transport", transportErr, KindTransport},
		{"api", NewAPIError("4820", "limit"), KindAPI},
		{"unreadable", NewUnreadableResponseError([]byte("<html>"), errors.New("bad json")), KindUnreadable},
		{"batch", &BatchError{Index: 2, Err: transportErr}, KindBatch},
		{"page wraps transport", &PageError{Page: 3, Err: transportErr}, KindTransport},
		{"page wraps api", &PageError{Page: 1, Err: NewAPIError("4834", "bad token")}, KindAPI},
		{"unknown", errors.New("boom"), KindUnknown},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			assert.Equal(t, tt.expected, KindOf(tt.err))
		})
	}
}

func TestBatchError_Unwrap(t *testing.T) {
	t.Parallel()

	inner := NewAPIError("4421", "limit")
	err := error(&BatchError{Index: 4, Err: inner})

	var batchErr *BatchError
	require.ErrorAs(t, err, &batchErr)
	assert.Equal(t, 4, batchErr.Index)
	assert.True(t, IsRateLimited(err))
	assert.Contains(t, err.Error(), "batch request 4 failed")
}

func TestValidationError_IsValidation(t *testing.T) {
	t.Parallel()

	err := &ValidationError{Field: "credential", Message: "token provider failed", Err: fmt.Errorf("%w: %w", ErrAuthentication, errors.New("expired"))}

	assert.True(t, IsValidation(err))
	assert.True(t, IsAuthentication(err))
	assert.Equal(t, "validation failed: credential: token provider failed", err.Error())
}

func TestUnreadableResponseError_Snippet(t *testing.T) {
	t.Parallel()

	body := make([]byte, 1024)
	for i := range body {
		body[i] = 'x'
	}

	err := NewUnreadableResponseError(body, errors.New("invalid character"))
	assert.Len(t, err.Snippet, snippetLimit)

	err = NewUnreadableResponseError([]byte(`authtoken=secret123&x=1`), errors.New("invalid character"))
	assert.NotContains(t, err.Error(), "secret123")
}

func TestRedactSecrets(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name  string
		input string
		leak  string
	}{
		{"query authtoken", "https://crm.zoho.com/crm/private/json/Leads/getRecords?authtoken=abc123&scope=crmapi", "abc123"},
		{"oauth header", "Authorization: Zoho-oauthtoken 1000.deadbeef", "1000.deadbeef"},
		{"json refresh token", `{"refresh_token":"r-token","client_secret":"s3cret"}`, "r-token"},
		{"form client secret", "client_id=id&client_secret=s3cret", "s3cret"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			out := RedactSecrets(tt.input)
			assert.NotContains(t, out, tt.leak)
			assert.Contains(t, out, redacted)
		})
	}
}
