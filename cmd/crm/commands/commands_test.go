package commands

import (
	"bytes"
	"testing"
	"time"

	"github.com/spf13/cobra"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/fivetwenty-io/crm-client/internal/constants"
	"github.com/fivetwenty-io/crm-client/pkg/crm"
)

func subcommandNames(cmd *cobra.Command) []string {
	var names []string
	for _, sub := range cmd.Commands() {
		names = append(names, sub.Name())
	}

	return names
}

func TestNewRecordsCommand(t *testing.T) {
	t.Parallel()

	cmd := NewRecordsCommand()
	assert.Equal(t, "records", cmd.Use)
	assert.Equal(t, []string{"record", "rec"}, cmd.Aliases)
	assert.ElementsMatch(t, []string{"list", "get", "search", "deleted", "upsert"}, subcommandNames(cmd))

	list := newRecordsListCommand()
	for _, flag := range []string{"all", "page", "per-page", "max-items", "concurrency", "fields", "sort-by"} {
		assert.NotNil(t, list.Flags().Lookup(flag), "Flag %s should exist", flag)
	}

	assert.Equal(t, "200", list.Flags().Lookup("per-page").DefValue)
}

func TestNewLegacyCommand(t *testing.T) {
	t.Parallel()

	cmd := NewLegacyCommand()
	assert.Equal(t, "legacy", cmd.Use)
	assert.ElementsMatch(t,
		[]string{"get", "get-by-id", "search", "related", "deleted-ids", "insert", "update", "delete"},
		subcommandNames(cmd))

	deleteCmd := newLegacyDeleteCommand()
	forceFlag := deleteCmd.Flags().Lookup("force")
	require.NotNil(t, forceFlag)
	assert.Equal(t, "f", forceFlag.Shorthand)
	assert.Equal(t, "false", forceFlag.DefValue)
}

func TestPaginationFlags_Apply(t *testing.T) {
	t.Parallel()

	t.Run("single page", func(t *testing.T) {
		t.Parallel()

		req, err := crm.NewRequestFor(crm.ListRecords, "Leads")
		require.NoError(t, err)

		flags := paginationFlags{page: 3, perPage: 50}
		flags.apply(req)

		assert.Equal(t, crm.PaginationOff, req.Pagination().Mode)
		page, ok := req.ParamValue("page")
		require.True(t, ok)
		assert.Equal(t, 3, page)
	})

	t.Run("all pages", func(t *testing.T) {
		t.Parallel()

		req, err := crm.NewRequestFor(crm.ListRecords, "Leads")
		require.NoError(t, err)

		flags := paginationFlags{all: true, perPage: 100, maxItems: 250, concurrency: 4}
		flags.apply(req)

		assert.Equal(t, crm.PaginationAuto, req.Pagination().Mode)
		assert.Equal(t, 4, req.Pagination().Concurrency)
		assert.Equal(t, 100, req.PageSize())
		assert.Equal(t, 250, req.Limits().MaxItems)

		_, ok := req.ParamValue("page")
		assert.False(t, ok)
	})
}

func TestParseRecordsInput(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name    string
		input   string
		want    int
		wantErr error
	}{
		{"array", `[{"Last_Name":"Smith"},{"Last_Name":"Jones"}]`, 2, nil},
		{"wrapped", ` {"data":[{"Last_Name":"Smith"}]}`, 1, nil},
		{"empty array", `[]`, 0, constants.ErrEmptyRecordsInput},
		{"empty wrapper", `{"data":[]}`, 0, constants.ErrEmptyRecordsInput},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			records, err := parseRecordsInput([]byte(tt.input))
			if tt.wantErr != nil {
				require.ErrorIs(t, err, tt.wantErr)

				return
			}

			require.NoError(t, err)
			assert.Len(t, records, tt.want)
		})
	}

	_, err := parseRecordsInput([]byte(`not json`))
	require.Error(t, err)
}

func TestRenderRecordTable(t *testing.T) {
	t.Parallel()

	records := []crm.Record{
		{
			ID:           "100",
			ModifiedTime: time.Date(2024, 3, 1, 10, 0, 0, 0, time.UTC),
			Fields:       map[string]any{"Last_Name": "Smith", "Email": "smith@example.com", "Owner": map[string]any{"id": "1"}},
		},
		{ID: "101", Fields: map[string]any{"Last_Name": "Jones"}},
	}

	var buf bytes.Buffer
	require.NoError(t, renderRecordTable(&buf, records, nil))

	output := buf.String()
	assert.Contains(t, output, "Smith")
	assert.Contains(t, output, "smith@example.com")
	assert.Contains(t, output, "2024-03-01T10:00:00Z")
	assert.NotContains(t, output, "OWNER")
	assert.Contains(t, output, "Total: 2 records")

	buf.Reset()
	require.NoError(t, renderRecordTable(&buf, nil, nil))
	assert.Equal(t, "No records found\n", buf.String())
}

func TestOutputRenderer(t *testing.T) {
	t.Parallel()

	renderer := &OutputRenderer[[]string]{RenderTable: renderIDTable}

	var buf bytes.Buffer
	require.NoError(t, renderer.Render(&buf, []string{"1", "2"}, constants.FormatJSON))
	assert.JSONEq(t, `["1","2"]`, buf.String())

	buf.Reset()
	require.NoError(t, renderer.Render(&buf, []string{"1", "2"}, constants.FormatYAML))
	assert.Equal(t, "- \"1\"\n- \"2\"\n", buf.String())

	buf.Reset()
	require.NoError(t, renderer.Render(&buf, []string{"7"}, constants.FormatTable))
	assert.Contains(t, buf.String(), "7")
}

func TestSetConfigValue(t *testing.T) {
	t.Parallel()

	expiry := time.Now()
	config := &Config{TokenExpiresAt: &expiry}

	require.NoError(t, setConfigValue(config, "api_endpoint", "https://www.zohoapis.eu"))
	assert.Equal(t, "https://www.zohoapis.eu", config.APIEndpoint)

	require.NoError(t, setConfigValue(config, "access_token", "new-token"))
	assert.Equal(t, "new-token", config.AccessToken)
	assert.Nil(t, config.TokenExpiresAt)

	require.ErrorIs(t, setConfigValue(config, "output", "xml"), constants.ErrInvalidOutputFormat)
	require.ErrorIs(t, setConfigValue(config, "organization", "x"), constants.ErrUnknownConfigKey)
}

func TestConfig_HasCredentials(t *testing.T) {
	t.Parallel()

	assert.False(t, (&Config{}).hasCredentials())
	assert.False(t, (&Config{RefreshToken: "r"}).hasCredentials())
	assert.True(t, (&Config{RefreshToken: "r", ClientID: "c"}).hasCredentials())
	assert.True(t, (&Config{AccessToken: "a"}).hasCredentials())
	assert.True(t, (&Config{AuthToken: "legacy"}).hasCredentials())
}

func TestApplyLoginOptions(t *testing.T) {
	t.Parallel()

	expiry := time.Now()
	config := &Config{AccessToken: "stale", TokenExpiresAt: &expiry, AuthToken: "legacy"}

	applyLoginOptions(config, &loginOptions{
		apiEndpoint:  "https://www.zohoapis.eu",
		clientID:     "client",
		clientSecret: "secret",
		refreshToken: "refresh",
	})

	assert.Equal(t, "https://www.zohoapis.eu", config.APIEndpoint)
	assert.Equal(t, "refresh", config.RefreshToken)
	assert.Empty(t, config.AccessToken)
	assert.Nil(t, config.TokenExpiresAt)
	assert.Equal(t, "legacy", config.AuthToken)
}

func TestFormatConfigValue(t *testing.T) {
	t.Parallel()

	assert.Equal(t, "-", formatConfigValue("output", ""))
	assert.Equal(t, "json", formatConfigValue("output", "json"))
	assert.Equal(t, "********", formatConfigValue("client_secret", "s3cr3t"))
}
