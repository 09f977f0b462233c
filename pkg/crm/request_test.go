package crm_test

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/fivetwenty-io/crm-client/pkg/crm"
)

type stubStringer struct{}

func (stubStringer) String() string { return "stringer" }

func TestFormatParam(t *testing.T) {
	t.Parallel()

	at := time.Date(2024, 3, 9, 14, 5, 7, 0, time.UTC)

	tests := []struct {
		name       string
		value      any
		generation crm.Generation
		expected   string
		omitted    bool
	}{
		{name: "string", value: "abc", expected: "abc"},
		{name: "bool true", value: true, expected: "true"},
		{name: "bool false", value: false, expected: "false"},
		{name: "int", value: 42, expected: "42"},
		{name: "int64", value: int64(-7), expected: "-7"},
		{name: "float", value: 2.5, expected: "2.5"},
		{name: "legacy time", value: at, generation: crm.GenerationLegacy, expected: "2024-03-09 14:05:07"},
		{name: "modern time", value: at, generation: crm.GenerationModern, expected: "2024-03-09T14:05:07Z"},
		{name: "time pointer", value: &at, generation: crm.GenerationLegacy, expected: "2024-03-09 14:05:07"},
		{name: "string list", value: []string{"a", "b"}, expected: "a,b"},
		{name: "int list", value: []int{1, 2, 3}, expected: "1,2,3"},
		{name: "mixed list", value: []any{"a", 1, true}, expected: "a,1,true"},
		{name: "stringer", value: stubStringer{}, expected: "stringer"},
		{name: "nil", value: nil, omitted: true},
		{name: "nil time pointer", value: (*time.Time)(nil), omitted: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			got, ok := crm.FormatParam(tt.value, tt.generation)
			if tt.omitted {
				assert.False(t, ok)

				return
			}

			assert.True(t, ok)
			assert.Equal(t, tt.expected, got)
		})
	}
}

func TestRequest_CloneIsIndependent(t *testing.T) {
	t.Parallel()

	original := newRequest(t, crm.ListRecords, "Leads").
		WithParam("fields", []string{"Email"}).
		WithHeader("X-Trace", "1").
		AutoPaginated(true)

	cloned := original.Clone()
	cloned.WithParam("page", 2).WithHeader("X-Trace", "2")
	cloned.Params()["fields"].([]string)[0] = "Phone"

	assert.NotContains(t, original.Params(), "page")
	assert.Equal(t, "1", original.Header().Get("X-Trace"))
	assert.Equal(t, []string{"Email"}, original.Params()["fields"])
	assert.True(t, cloned.Pagination().IsAuto())
}

func TestRequest_Path(t *testing.T) {
	t.Parallel()

	req := newRequest(t, crm.GetRecord, "Contacts").WithRecordID("4150868000000224005")
	assert.Equal(t, "/crm/v2/Contacts/4150868000000224005", req.Path())
	assert.Equal(t, "GET /crm/v2/Contacts/4150868000000224005", req.String())

	legacy := newRequest(t, crm.LegacyGetRecordByID, "Leads").WithRecordID("42")
	assert.Equal(t, "/crm/private/json/Leads/getRecordById", legacy.Path())
	assert.Equal(t, "42", legacy.QueryValues().Get("id"))
}

func TestRequest_UnknownEndpoint(t *testing.T) {
	t.Parallel()

	_, err := crm.NewRequestFor("nope", "Leads")
	require.ErrorIs(t, err, crm.ErrUnknownEndpoint)
}

func TestRequest_ExecuteWithoutExecutor(t *testing.T) {
	t.Parallel()

	req := newRequest(t, crm.ListRecords, "Leads")

	_, err := req.Execute(context.Background())
	require.ErrorIs(t, err, crm.ErrNoExecutor)

	_, err = req.Paginator()
	require.ErrorIs(t, err, crm.ErrNoExecutor)
}

func TestListOptions_Params(t *testing.T) {
	t.Parallel()

	opts := &crm.ListOptions{
		Fields:    []string{"Last_Name", "Email"},
		SortBy:    "Modified_Time",
		SortOrder: "asc",
	}

	params, err := opts.Params()
	require.NoError(t, err)

	assert.Equal(t, crm.Params{
		"fields":     "Last_Name,Email",
		"sort_by":    "Modified_Time",
		"sort_order": "asc",
	}, params)

	var nilOpts *crm.ListOptions

	empty, err := nilOpts.Params()
	require.NoError(t, err)
	assert.Empty(t, empty)
}

func TestResponse_Accessors(t *testing.T) {
	t.Parallel()

	records := []crm.Record{{ID: "1"}, {ID: "2"}}
	resp := crm.NewResponse(nil, nil, records, false)

	assert.Equal(t, 2, resp.Len())
	assert.Equal(t, []string{"1", "2"}, resp.IDs())
	assert.Equal(t, "1", resp.Record().ID)
	assert.False(t, resp.IsEmpty())

	empty := crm.NewResponse(nil, nil, nil, true)
	assert.True(t, empty.IsEmpty())
	assert.Zero(t, empty.Len())
	assert.Nil(t, empty.Records())
}
