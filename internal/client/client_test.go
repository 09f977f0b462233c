package client_test

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strconv"
	"strings"
	"sync/atomic"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	. "github.com/fivetwenty-io/crm-client/internal/client"
	"github.com/fivetwenty-io/crm-client/pkg/crm"
)

func writeJSON(t *testing.T, w http.ResponseWriter, payload any) {
	t.Helper()

	w.Header().Set("Content-Type", "application/json")
	assert.NoError(t, json.NewEncoder(w).Encode(payload))
}

//nolint:funlen // Test functions can be longer for comprehensive testing
func TestNew(t *testing.T) {
	t.Parallel()

	t.Run("requires API endpoint", func(t *testing.T) {
		t.Parallel()

		_, err := New(context.Background(), &crm.Config{})
		require.Error(t, err)
		assert.Contains(t, err.Error(), "API endpoint is required")
	})

	t.Run("creates client with access token", func(t *testing.T) {
		t.Parallel()

		client, err := New(context.Background(), &crm.Config{
			APIEndpoint: "https://www.zohoapis.com",
			AccessToken: "test-token",
		})
		require.NoError(t, err)
		assert.NotNil(t, client)

		token, err := client.GetToken(context.Background())
		require.NoError(t, err)
		assert.Equal(t, "test-token", token)
	})

	t.Run("creates client with refresh token", func(t *testing.T) {
		t.Parallel()

		client, err := New(context.Background(), &crm.Config{
			APIEndpoint:  "https://www.zohoapis.com",
			RefreshToken: "refresh",
			ClientID:     "client-id",
			ClientSecret: "client-secret",
		})
		require.NoError(t, err)
		assert.NotNil(t, client.GetTokenManager())
	})

	t.Run("creates client without authentication", func(t *testing.T) {
		t.Parallel()

		client, err := New(context.Background(), &crm.Config{APIEndpoint: "https://www.zohoapis.com"})
		require.NoError(t, err)

		_, err = client.GetToken(context.Background())
		require.ErrorIs(t, err, ErrNoTokenManagerConfigured)

		_, err = client.Records("Leads").Get(context.Background(), "1")
		require.Error(t, err)
		assert.Equal(t, crm.KindValidation, crm.KindOf(err))
		assert.True(t, crm.IsAuthentication(err))
		assert.Zero(t, client.RequestCount())
	})

	t.Run("fails on unreachable NATS server", func(t *testing.T) {
		t.Parallel()

		ctx, cancel := context.WithCancel(context.Background())
		cancel()

		_, err := New(ctx, &crm.Config{
			APIEndpoint: "https://www.zohoapis.com",
			NATSURL:     "nats://127.0.0.1:1",
		})
		require.Error(t, err)
		assert.Contains(t, err.Error(), "creating execution event publisher")
	})
}

//nolint:funlen // Test functions can be longer for comprehensive testing
func TestClient_Records(t *testing.T) {
	t.Parallel()

	t.Run("list all follows pages", func(t *testing.T) {
		t.Parallel()

		server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			assert.Equal(t, "/crm/v2/Leads", r.URL.Path)
			assert.Equal(t, "Zoho-oauthtoken test-token", r.Header.Get("Authorization"))
			assert.Equal(t, "Last_Name,Email", r.URL.Query().Get("fields"))

			page, _ := strconv.Atoi(r.URL.Query().Get("page"))
			if page > 2 {
				w.WriteHeader(http.StatusNoContent)

				return
			}

			size := 200
			if page == 2 {
				size = 3
			}

			data := make([]map[string]any, size)
			for i := range data {
				data[i] = map[string]any{"id": strconv.Itoa((page-1)*200 + i + 1)}
			}

			writeJSON(t, w, map[string]any{"data": data, "info": map[string]any{"page": page}})
		}))
		defer server.Close()

		client, err := New(context.Background(), &crm.Config{
			APIEndpoint: server.URL,
			AccessToken: "test-token",
		})
		require.NoError(t, err)

		records, err := client.Records("Leads").ListAll(context.Background(), &crm.ListOptions{
			Fields: []string{"Last_Name", "Email"},
		})
		require.NoError(t, err)

		assert.Len(t, records, 203)
		assert.Equal(t, "203", records[202].ID)
		assert.Equal(t, int64(2), client.ExecutionCount())
		assert.Equal(t, int64(2), client.RequestCount())
	})

	t.Run("get maps not found", func(t *testing.T) {
		t.Parallel()

		server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			assert.Equal(t, "/crm/v2/Leads/404", r.URL.Path)
			w.WriteHeader(http.StatusNotFound)
			writeJSON(t, w, map[string]any{"code": "RECORD_NOT_FOUND", "message": "record not found", "status": "error"})
		}))
		defer server.Close()

		client, err := New(context.Background(), &crm.Config{APIEndpoint: server.URL, AccessToken: "test-token"})
		require.NoError(t, err)

		_, err = client.Records("Leads").Get(context.Background(), "404")
		require.Error(t, err)
		assert.True(t, crm.IsNotFound(err))
	})

	t.Run("upsert sends json body", func(t *testing.T) {
		t.Parallel()

		server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			assert.Equal(t, http.MethodPost, r.Method)
			assert.Equal(t, "/crm/v2/Leads/upsert", r.URL.Path)
			assert.Equal(t, "application/json", r.Header.Get("Content-Type"))

			var body struct {
				Data []map[string]any `json:"data"`
			}
			assert.NoError(t, json.NewDecoder(r.Body).Decode(&body))
			assert.Len(t, body.Data, 1)

			writeJSON(t, w, map[string]any{"data": []map[string]any{{
				"code": "SUCCESS", "action": "update", "status": "success",
				"details": map[string]any{"id": "77"},
			}}})
		}))
		defer server.Close()

		client, err := New(context.Background(), &crm.Config{APIEndpoint: server.URL, AccessToken: "test-token"})
		require.NoError(t, err)

		records, err := client.Records("Leads").Upsert(context.Background(), []map[string]any{{"Last_Name": "Smith"}})
		require.NoError(t, err)
		require.Len(t, records, 1)
		assert.Equal(t, "77", records[0].ID)
		assert.Equal(t, "update", records[0].FieldString("action"))
	})
}

//nolint:funlen // Test functions can be longer for comprehensive testing
func TestClient_LegacyRecords(t *testing.T) {
	t.Parallel()

	t.Run("authtoken goes into the query", func(t *testing.T) {
		t.Parallel()

		server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			assert.Equal(t, "/crm/private/json/Leads/getRecordById", r.URL.Path)
			assert.Equal(t, "legacy-token", r.URL.Query().Get("authtoken"))
			assert.Equal(t, "crmapi", r.URL.Query().Get("scope"))
			assert.Equal(t, "100", r.URL.Query().Get("id"))
			assert.Empty(t, r.Header.Get("Authorization"))

			_, _ = w.Write([]byte(`{"response":{"result":{"Leads":{"row":{"no":"1","FL":[{"val":"LEADID","content":"100"}]}}}}}`))
		}))
		defer server.Close()

		client, err := New(context.Background(), &crm.Config{
			APIEndpoint:       "https://unused.example.com",
			LegacyAPIEndpoint: server.URL,
			AuthToken:         "legacy-token",
		})
		require.NoError(t, err)

		record, err := client.LegacyRecords("Leads").GetRecordByID(context.Background(), "100")
		require.NoError(t, err)
		require.NotNil(t, record)
		assert.Equal(t, "100", record.ID)
	})

	t.Run("insert relocates large payloads into the body", func(t *testing.T) {
		t.Parallel()

		server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			assert.Equal(t, http.MethodPost, r.Method)
			assert.Empty(t, r.URL.Query().Get("xmlData"))
			assert.NoError(t, r.ParseForm())
			assert.Contains(t, r.PostForm.Get("xmlData"), "<Leads>")

			_, _ = w.Write([]byte(`{"response":{"result":{"message":"Record(s) added successfully",` +
				`"recorddetail":{"FL":[{"val":"Id","content":"500"}]}}}}`))
		}))
		defer server.Close()

		client, err := New(context.Background(), &crm.Config{
			APIEndpoint:         server.URL,
			LegacyAPIEndpoint:   server.URL,
			AuthToken:           "legacy-token",
			RelocationThreshold: 32,
		})
		require.NoError(t, err)

		xmlData := `<Leads><row no="1"><FL val="Last Name">Smith</FL></row></Leads>`

		records, err := client.LegacyRecords("Leads").InsertRecords(context.Background(), xmlData)
		require.NoError(t, err)
		require.Len(t, records, 1)
		assert.Equal(t, "500", records[0].ID)
	})

	t.Run("deleted ids across pages", func(t *testing.T) {
		t.Parallel()

		var calls atomic.Int64

		server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			calls.Add(1)

			if r.URL.Query().Get("fromIndex") == "1" {
				_, _ = w.Write([]byte(`{"response":{"result":{"DeletedIDs":"1,2,3"}}}`))

				return
			}

			_, _ = w.Write([]byte(`{"response":{"nodata":{"code":"4422","message":"There is no data to show"}}}`))
		}))
		defer server.Close()

		client, err := New(context.Background(), &crm.Config{
			APIEndpoint:       server.URL,
			LegacyAPIEndpoint: server.URL,
			AuthToken:         "legacy-token",
		})
		require.NoError(t, err)

		ids, err := client.LegacyRecords("Leads").GetDeletedRecordIDs(context.Background())
		require.NoError(t, err)
		assert.Equal(t, []string{"1", "2", "3"}, ids)
		assert.Equal(t, int64(1), calls.Load())
	})
}

func TestClient_Metrics(t *testing.T) {
	t.Parallel()

	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		writeJSON(t, w, map[string]any{"data": []map[string]any{{"id": "1"}}})
	}))
	defer server.Close()

	registry := prometheus.NewRegistry()

	var hookCalls atomic.Int64

	client, err := New(context.Background(), &crm.Config{
		APIEndpoint:       server.URL,
		AccessToken:       "test-token",
		MetricsRegisterer: registry,
		HTTPTimeout:       5 * time.Second,
		PostExecuteHooks: []crm.PostExecuteHook{
			func(ctx context.Context, req *crm.Request, resp *crm.RawResponse, err error) {
				hookCalls.Add(1)
			},
		},
	})
	require.NoError(t, err)

	defer func() { assert.NoError(t, client.Close()) }()

	reqs := make([]*crm.Request, 3)
	for i := range reqs {
		req, err := client.NewQuery(crm.GetRecord, "Leads")
		require.NoError(t, err)

		reqs[i] = req.WithRecordID(strconv.Itoa(i + 1))
	}

	responses, err := client.ExecuteBatch(context.Background(), reqs)
	require.NoError(t, err)
	assert.Len(t, responses, 3)

	assert.Equal(t, int64(3), hookCalls.Load())

	count, err := testutil.GatherAndCount(registry, "crm_executions_total")
	require.NoError(t, err)
	assert.Equal(t, 1, count)

	second, err := New(context.Background(), &crm.Config{
		APIEndpoint:       server.URL,
		AccessToken:       "test-token",
		MetricsRegisterer: registry,
	})
	require.NoError(t, err, "clients may share a registerer")

	defer func() { assert.NoError(t, second.Close()) }()

	_, err = second.Records("Leads").Get(context.Background(), "1")
	require.NoError(t, err)

	expected := `
# HELP crm_executions_total Dispatched CRM calls by endpoint and outcome
# TYPE crm_executions_total counter
crm_executions_total{endpoint="v2.getRecord",outcome="success"} 4
`
	require.NoError(t, testutil.GatherAndCompare(registry, strings.NewReader(expected), "crm_executions_total"))
}
