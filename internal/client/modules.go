package client

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/fivetwenty-io/crm-client/pkg/crm"
)

// query creates a request for a built-in endpoint bound to executor.
func query(executor crm.Executor, id crm.EndpointID, module string) (*crm.Request, error) {
	req, err := crm.NewRequestFor(id, module)
	if err != nil {
		return nil, err
	}

	return req.Bind(executor), nil
}

func executeRecords(ctx context.Context, req *crm.Request, action string) ([]crm.Record, error) {
	resp, err := req.Execute(ctx)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", action, err)
	}

	return resp.Records(), nil
}

// RecordsClient implements crm.RecordsClient.
type RecordsClient struct {
	executor crm.Executor
	module   string
}

// NewRecordsClient creates a modern records client for one module.
func NewRecordsClient(executor crm.Executor, module string) *RecordsClient {
	return &RecordsClient{executor: executor, module: module}
}

func (c *RecordsClient) listRequest(id crm.EndpointID, opts *crm.ListOptions) (*crm.Request, error) {
	req, err := query(c.executor, id, c.module)
	if err != nil {
		return nil, err
	}

	params, err := opts.Params()
	if err != nil {
		return nil, err
	}

	return req.WithParams(params), nil
}

// List implements crm.RecordsClient.List.
func (c *RecordsClient) List(ctx context.Context, opts *crm.ListOptions) (*crm.Response, error) {
	req, err := c.listRequest(crm.ListRecords, opts)
	if err != nil {
		return nil, err
	}

	resp, err := req.Execute(ctx)
	if err != nil {
		return nil, fmt.Errorf("listing %s: %w", c.module, err)
	}

	return resp, nil
}

// ListAll implements crm.RecordsClient.ListAll.
func (c *RecordsClient) ListAll(ctx context.Context, opts *crm.ListOptions) ([]crm.Record, error) {
	req, err := c.listRequest(crm.ListRecords, opts)
	if err != nil {
		return nil, err
	}

	return executeRecords(ctx, req.AutoPaginated(true), "listing all "+c.module)
}

// Get implements crm.RecordsClient.Get.
func (c *RecordsClient) Get(ctx context.Context, id string) (*crm.Record, error) {
	req, err := query(c.executor, crm.GetRecord, c.module)
	if err != nil {
		return nil, err
	}

	resp, err := req.WithRecordID(id).Execute(ctx)
	if err != nil {
		return nil, fmt.Errorf("getting %s %s: %w", c.module, id, err)
	}

	return resp.Record(), nil
}

// Search implements crm.RecordsClient.Search.
func (c *RecordsClient) Search(ctx context.Context, opts *crm.ListOptions) ([]crm.Record, error) {
	req, err := c.listRequest(crm.SearchRecords, opts)
	if err != nil {
		return nil, err
	}

	return executeRecords(ctx, req.AutoPaginated(true), "searching "+c.module)
}

// Deleted implements crm.RecordsClient.Deleted.
func (c *RecordsClient) Deleted(ctx context.Context, deletedType string) ([]crm.Record, error) {
	req, err := query(c.executor, crm.DeletedRecords, c.module)
	if err != nil {
		return nil, err
	}

	if deletedType != "" {
		req.WithParam("type", deletedType)
	}

	return executeRecords(ctx, req.AutoPaginated(true), "listing deleted "+c.module)
}

// Upsert implements crm.RecordsClient.Upsert.
func (c *RecordsClient) Upsert(ctx context.Context, records []map[string]any) ([]crm.Record, error) {
	req, err := query(c.executor, crm.UpsertRecords, c.module)
	if err != nil {
		return nil, err
	}

	body, err := json.Marshal(map[string]any{"data": records})
	if err != nil {
		return nil, fmt.Errorf("marshaling upsert body: %w", err)
	}

	return executeRecords(ctx, req.WithBody(body), "upserting "+c.module)
}

// LegacyRecordsClient implements crm.LegacyRecordsClient.
type LegacyRecordsClient struct {
	executor crm.Executor
	module   string
}

// NewLegacyRecordsClient creates a legacy records client for one module.
func NewLegacyRecordsClient(executor crm.Executor, module string) *LegacyRecordsClient {
	return &LegacyRecordsClient{executor: executor, module: module}
}

func (c *LegacyRecordsClient) paginated(ctx context.Context, id crm.EndpointID, params crm.Params, action string) ([]crm.Record, error) {
	req, err := query(c.executor, id, c.module)
	if err != nil {
		return nil, err
	}

	return executeRecords(ctx, req.WithParams(params).AutoPaginated(true), action)
}

// GetRecords implements crm.LegacyRecordsClient.GetRecords.
func (c *LegacyRecordsClient) GetRecords(ctx context.Context, params crm.Params) ([]crm.Record, error) {
	return c.paginated(ctx, crm.LegacyGetRecords, params, "getting "+c.module)
}

// GetMyRecords implements crm.LegacyRecordsClient.GetMyRecords.
func (c *LegacyRecordsClient) GetMyRecords(ctx context.Context, params crm.Params) ([]crm.Record, error) {
	return c.paginated(ctx, crm.LegacyGetMyRecords, params, "getting my "+c.module)
}

// GetRecordByID implements crm.LegacyRecordsClient.GetRecordByID.
func (c *LegacyRecordsClient) GetRecordByID(ctx context.Context, id string) (*crm.Record, error) {
	req, err := query(c.executor, crm.LegacyGetRecordByID, c.module)
	if err != nil {
		return nil, err
	}

	resp, err := req.WithRecordID(id).Execute(ctx)
	if err != nil {
		return nil, fmt.Errorf("getting %s %s: %w", c.module, id, err)
	}

	return resp.Record(), nil
}

// SearchRecords implements crm.LegacyRecordsClient.SearchRecords.
func (c *LegacyRecordsClient) SearchRecords(ctx context.Context, criteria string) ([]crm.Record, error) {
	return c.paginated(ctx, crm.LegacySearchRecords, crm.Params{"criteria": criteria}, "searching "+c.module)
}

// GetRelatedRecords implements crm.LegacyRecordsClient.GetRelatedRecords.
func (c *LegacyRecordsClient) GetRelatedRecords(ctx context.Context, parentModule, id string) ([]crm.Record, error) {
	req, err := query(c.executor, crm.LegacyGetRelatedRecords, c.module)
	if err != nil {
		return nil, err
	}

	req.WithRecordID(id).WithParam("parentModule", parentModule).AutoPaginated(true)

	return executeRecords(ctx, req, "getting "+c.module+" related to "+parentModule)
}

// GetDeletedRecordIDs implements crm.LegacyRecordsClient.GetDeletedRecordIDs.
func (c *LegacyRecordsClient) GetDeletedRecordIDs(ctx context.Context) ([]string, error) {
	req, err := query(c.executor, crm.LegacyGetDeletedRecordIDs, c.module)
	if err != nil {
		return nil, err
	}

	resp, err := req.AutoPaginated(true).Execute(ctx)
	if err != nil {
		return nil, fmt.Errorf("getting deleted %s ids: %w", c.module, err)
	}

	return resp.IDs(), nil
}

// InsertRecords implements crm.LegacyRecordsClient.InsertRecords.
func (c *LegacyRecordsClient) InsertRecords(ctx context.Context, xmlData string) ([]crm.Record, error) {
	req, err := query(c.executor, crm.LegacyInsertRecords, c.module)
	if err != nil {
		return nil, err
	}

	return executeRecords(ctx, req.WithParam("xmlData", xmlData), "inserting "+c.module)
}

// UpdateRecords implements crm.LegacyRecordsClient.UpdateRecords.
func (c *LegacyRecordsClient) UpdateRecords(ctx context.Context, id, xmlData string) ([]crm.Record, error) {
	req, err := query(c.executor, crm.LegacyUpdateRecords, c.module)
	if err != nil {
		return nil, err
	}

	req.WithParam("id", id).WithParam("xmlData", xmlData)

	return executeRecords(ctx, req, "updating "+c.module+" "+id)
}

// DeleteRecords implements crm.LegacyRecordsClient.DeleteRecords.
func (c *LegacyRecordsClient) DeleteRecords(ctx context.Context, id string) (string, error) {
	req, err := query(c.executor, crm.LegacyDeleteRecords, c.module)
	if err != nil {
		return "", err
	}

	resp, err := req.WithRecordID(id).Execute(ctx)
	if err != nil {
		return "", fmt.Errorf("deleting %s %s: %w", c.module, id, err)
	}

	message, _ := resp.Content.(string)

	return message, nil
}
