package client

import (
	"time"

	"github.com/fivetwenty-io/crm-client/internal/constants"
	"github.com/fivetwenty-io/crm-client/pkg/crm"
)

// Modern envelope:
//
//	{"data": [...], "info": {"per_page": 200, "page": 1, "more_records": true}}
//	{"code": "INVALID_TOKEN", "message": "...", "status": "error"}
//
// An out-of-range page answers 204 with no body.

func modernDetectError(payload any) error {
	root, ok := asMap(payload)
	if !ok {
		return nil
	}

	if stringOf(root["status"]) != "error" {
		return nil
	}

	return crm.NewAPIError(stringOf(root["code"]), stringOf(root["message"]))
}

func modernData(payload any) ([]any, bool) {
	root, ok := asMap(payload)
	if !ok {
		return nil, false
	}

	data, ok := root["data"].([]any)

	return data, ok
}

func modernIsEmpty(payload any, _ *crm.Request) bool {
	data, ok := modernData(payload)

	return !ok || len(data) == 0
}

func cleanModernData(payload any, _ *crm.Request) (any, error) {
	data, _ := modernData(payload)
	items := make([]map[string]any, 0, len(data))

	for _, item := range data {
		if entry, ok := asMap(item); ok {
			items = append(items, entry)
		}
	}

	return items, nil
}

func convertModernRecords(cleaned any, _ *crm.Request) (any, error) {
	items, _ := cleaned.([]map[string]any)
	records := make([]crm.Record, 0, len(items))

	for _, item := range items {
		records = append(records, modernRecord(item))
	}

	return records, nil
}

func modernRecord(item map[string]any) crm.Record {
	record := crm.Record{
		ID:     stringOf(item["id"]),
		Fields: item,
	}

	modified := stringOf(item[constants.ModifiedTimeField])
	if modified == "" {
		modified = stringOf(item["deleted_time"])
	}

	if modified != "" {
		parsed, err := time.Parse(time.RFC3339, modified)
		if err == nil {
			record.ModifiedTime = parsed
		}
	}

	return record
}

func modernRecordsTransformer(empty func(*crm.Request) any) crm.Transformer {
	return TransformerFuncs{
		DetectErrorFunc: modernDetectError,
		IsEmptyFunc:     modernIsEmpty,
		EmptyValueFunc:  empty,
		CleanFunc:       cleanModernData,
		ConvertFunc:     convertModernRecords,
	}
}

func modernSingleRecordTransformer() crm.Transformer {
	return TransformerFuncs{
		DetectErrorFunc: modernDetectError,
		IsEmptyFunc:     modernIsEmpty,
		EmptyValueFunc:  nilValue,
		CleanFunc:       cleanModernData,
		ConvertFunc: func(cleaned any, req *crm.Request) (any, error) {
			items, _ := cleaned.([]map[string]any)
			if len(items) == 0 {
				return nil, nil
			}

			record := modernRecord(items[0])

			return &record, nil
		},
	}
}

// modernUpsertTransformer maps the per-record outcome of an upsert. The record
// id and modification time come from the details object.
func modernUpsertTransformer() crm.Transformer {
	return TransformerFuncs{
		DetectErrorFunc: modernDetectError,
		IsEmptyFunc:     modernIsEmpty,
		EmptyValueFunc:  emptyRecords,
		CleanFunc:       cleanModernData,
		ConvertFunc: func(cleaned any, _ *crm.Request) (any, error) {
			items, _ := cleaned.([]map[string]any)
			records := make([]crm.Record, 0, len(items))

			for _, item := range items {
				details, _ := asMap(item["details"])
				if details == nil {
					details = map[string]any{}
				}

				record := modernRecord(details)
				record.Fields = map[string]any{
					"action":  item["action"],
					"code":    item["code"],
					"status":  item["status"],
					"message": item["message"],
					"details": details,
				}

				records = append(records, record)
			}

			return records, nil
		},
	}
}
