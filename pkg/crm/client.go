package crm

import "context"

// Client is the full CRM client. A Client is safe for concurrent use; each
// paginator it hands out is not.
type Client interface {
	Executor

	// ExecuteBatch runs non-paginated requests concurrently. Response i
	// belongs to request i.
	ExecuteBatch(ctx context.Context, reqs []*Request) ([]*Response, error)
	// NewQuery creates a request for a built-in endpoint, bound to the client.
	NewQuery(id EndpointID, module string) (*Request, error)

	Records(module string) RecordsClient
	LegacyRecords(module string) LegacyRecordsClient

	// ExecutionCount is the number of executions started by the client.
	ExecutionCount() int64
	// RequestCount is the number of HTTP attempts made by the transport.
	RequestCount() int64

	Close() error
}

// RecordsClient works with the records of one module through the modern API.
type RecordsClient interface {
	// List fetches a single page.
	List(ctx context.Context, opts *ListOptions) (*Response, error)
	// ListAll fetches every page.
	ListAll(ctx context.Context, opts *ListOptions) ([]Record, error)
	Get(ctx context.Context, id string) (*Record, error)
	Search(ctx context.Context, opts *ListOptions) ([]Record, error)
	// Deleted lists deleted records. deletedType is "all", "recycle" or "permanent".
	Deleted(ctx context.Context, deletedType string) ([]Record, error)
	Upsert(ctx context.Context, records []map[string]any) ([]Record, error)
}

// LegacyRecordsClient works with the records of one module through the legacy API.
type LegacyRecordsClient interface {
	GetRecords(ctx context.Context, params Params) ([]Record, error)
	GetMyRecords(ctx context.Context, params Params) ([]Record, error)
	GetRecordByID(ctx context.Context, id string) (*Record, error)
	SearchRecords(ctx context.Context, criteria string) ([]Record, error)
	GetRelatedRecords(ctx context.Context, parentModule, id string) ([]Record, error)
	GetDeletedRecordIDs(ctx context.Context) ([]string, error)
	InsertRecords(ctx context.Context, xmlData string) ([]Record, error)
	UpdateRecords(ctx context.Context, id, xmlData string) ([]Record, error)
	DeleteRecords(ctx context.Context, id string) (string, error)
}
