package client

import (
	"errors"
	"fmt"
	"strings"
	"time"
	"unicode"

	"github.com/fivetwenty-io/crm-client/internal/constants"
	"github.com/fivetwenty-io/crm-client/pkg/crm"
)

// Legacy envelope:
//
//	{"response": {"result": {...}, "uri": "..."}}
//	{"response": {"nodata": {"code": "4422", "message": "..."}}}
//	{"response": {"error": {"code": "4834", "message": "..."}}}
const legacyNoDataCode = "4422"

var errLegacyEnvelope = errors.New("response envelope is missing")

// legacyField is one FL entry of a legacy row.
type legacyField struct {
	Name  string
	Value any
}

type legacyRow []legacyField

func legacyResponse(payload any) (map[string]any, bool) {
	root, ok := asMap(payload)
	if !ok {
		return nil, false
	}

	return asMap(root["response"])
}

func legacyDetectError(payload any) error {
	response, ok := legacyResponse(payload)
	if !ok {
		return nil
	}

	errBody, ok := asMap(response["error"])
	if !ok {
		return nil
	}

	code := stringOf(errBody["code"])
	if code == legacyNoDataCode {
		return nil
	}

	return crm.NewAPIError(code, stringOf(errBody["message"]))
}

// legacyResult returns response.result. empty is true when the envelope
// signals that there is no data.
func legacyResult(payload any) (result map[string]any, empty bool) {
	if payload == nil {
		return nil, true
	}

	response, ok := legacyResponse(payload)
	if !ok {
		return nil, false
	}

	if _, ok := response["nodata"]; ok {
		return nil, true
	}

	if errBody, ok := asMap(response["error"]); ok && stringOf(errBody["code"]) == legacyNoDataCode {
		return nil, true
	}

	result, ok = asMap(response["result"])
	if !ok {
		return nil, true
	}

	return result, false
}

func legacyEnvelope(payload any, req *crm.Request) (map[string]any, error) {
	result, _ := legacyResult(payload)
	if result == nil {
		return nil, crm.NewUnreadableResponseError(nil, fmt.Errorf("%w: %s", errLegacyEnvelope, req.Path()))
	}

	return result, nil
}

// legacyModuleRows finds result.<Module>.row. A single module key is accepted
// when its name differs from the requested module.
func legacyModuleRows(result map[string]any, module string) (any, bool) {
	container, ok := asMap(result[module])
	if !ok && len(result) == 1 {
		for _, value := range result {
			container, ok = asMap(value)
		}
	}

	if !ok {
		return nil, false
	}

	rows, ok := container["row"]

	return rows, ok
}

func legacyRowsEmpty(payload any, req *crm.Request) bool {
	result, empty := legacyResult(payload)
	if empty {
		return true
	}

	if result == nil {
		return false
	}

	rows, ok := legacyModuleRows(result, req.Module())
	if !ok {
		return true
	}

	list, ok := asList(rows)

	return !ok || len(list) == 0
}

// cleanLegacyRows normalises row and FL, both of which arrive unwrapped when
// they hold a single item.
func cleanLegacyRows(payload any, req *crm.Request) (any, error) {
	result, err := legacyEnvelope(payload, req)
	if err != nil {
		return nil, err
	}

	rowsValue, _ := legacyModuleRows(result, req.Module())
	rows, _ := asList(rowsValue)

	cleaned := make([]legacyRow, 0, len(rows))

	for _, rowValue := range rows {
		row, ok := asMap(rowValue)
		if !ok {
			continue
		}

		cleaned = append(cleaned, cleanLegacyFields(row["FL"]))
	}

	return cleaned, nil
}

func cleanLegacyFields(value any) legacyRow {
	items, _ := asList(value)
	fields := make(legacyRow, 0, len(items))

	for _, item := range items {
		entry, ok := asMap(item)
		if !ok {
			continue
		}

		name := stringOf(entry["val"])
		if content, ok := entry["content"]; ok {
			fields = append(fields, legacyField{Name: name, Value: content})

			continue
		}

		nested := make(map[string]any, len(entry))
		for key, nestedValue := range entry {
			if key != "val" {
				nested[key] = nestedValue
			}
		}

		fields = append(fields, legacyField{Name: name, Value: nested})
	}

	return fields
}

func convertLegacyRows(cleaned any, req *crm.Request) (any, error) {
	rows, _ := cleaned.([]legacyRow)
	records := make([]crm.Record, 0, len(rows))

	for _, row := range rows {
		records = append(records, legacyRecord(row, req.Module()))
	}

	return records, nil
}

func legacyRecord(row legacyRow, module string) crm.Record {
	record := crm.Record{Fields: make(map[string]any, len(row))}

	for _, field := range row {
		record.Fields[field.Name] = field.Value
	}

	record.ID = legacyRecordID(row, module)

	if modified := stringOf(record.Fields[constants.LegacyModifiedTimeField]); modified != "" {
		parsed, err := time.ParseInLocation(constants.LegacyTimeLayout, modified, time.Local)
		if err == nil {
			record.ModifiedTime = parsed
		}
	}

	return record
}

// legacyRecordID picks <SINGULAR MODULE>ID, then the first upper-case ...ID
// field, then Id.
func legacyRecordID(row legacyRow, module string) string {
	want := strings.ToUpper(singular(module)) + "ID"

	for _, field := range row {
		if field.Name == want {
			return stringOf(field.Value)
		}
	}

	for _, field := range row {
		if strings.HasSuffix(field.Name, "ID") && isUpper(field.Name) {
			return stringOf(field.Value)
		}
	}

	for _, field := range row {
		if field.Name == "Id" {
			return stringOf(field.Value)
		}
	}

	return ""
}

func singular(module string) string {
	switch {
	case strings.HasSuffix(module, "ies"):
		return strings.TrimSuffix(module, "ies") + "y"
	case strings.HasSuffix(module, "s"):
		return strings.TrimSuffix(module, "s")
	default:
		return module
	}
}

func isUpper(s string) bool {
	for _, r := range s {
		if unicode.IsLetter(r) && !unicode.IsUpper(r) {
			return false
		}
	}

	return true
}

func legacyRecordsTransformer() crm.Transformer {
	return TransformerFuncs{
		DetectErrorFunc: legacyDetectError,
		IsEmptyFunc:     legacyRowsEmpty,
		EmptyValueFunc:  nilValue,
		CleanFunc:       cleanLegacyRows,
		ConvertFunc:     convertLegacyRows,
	}
}

func legacySingleRecordTransformer() crm.Transformer {
	return TransformerFuncs{
		DetectErrorFunc: legacyDetectError,
		IsEmptyFunc:     legacyRowsEmpty,
		EmptyValueFunc:  nilValue,
		CleanFunc:       cleanLegacyRows,
		ConvertFunc: func(cleaned any, req *crm.Request) (any, error) {
			converted, err := convertLegacyRows(cleaned, req)
			if err != nil {
				return nil, err
			}

			records, _ := converted.([]crm.Record)
			if len(records) == 0 {
				return nil, nil
			}

			return &records[0], nil
		},
	}
}

func legacyDeletedIDsTransformer() crm.Transformer {
	return TransformerFuncs{
		DetectErrorFunc: legacyDetectError,
		IsEmptyFunc: func(payload any, req *crm.Request) bool {
			result, empty := legacyResult(payload)
			if empty {
				return true
			}

			return result != nil && strings.TrimSpace(stringOf(result["DeletedIDs"])) == ""
		},
		EmptyValueFunc: emptyIDs,
		CleanFunc: func(payload any, req *crm.Request) (any, error) {
			result, err := legacyEnvelope(payload, req)
			if err != nil {
				return nil, err
			}

			return strings.Split(stringOf(result["DeletedIDs"]), ","), nil
		},
		ConvertFunc: func(cleaned any, req *crm.Request) (any, error) {
			parts, _ := cleaned.([]string)
			ids := make([]string, 0, len(parts))

			for _, part := range parts {
				if id := strings.TrimSpace(part); id != "" {
					ids = append(ids, id)
				}
			}

			return ids, nil
		},
	}
}

// legacyRecordDetailTransformer handles insert and update results, whose
// recorddetail is unwrapped for a single record.
func legacyRecordDetailTransformer() crm.Transformer {
	return TransformerFuncs{
		DetectErrorFunc: legacyDetectError,
		IsEmptyFunc: func(payload any, req *crm.Request) bool {
			result, empty := legacyResult(payload)
			if empty {
				return true
			}

			if result == nil {
				return false
			}

			details, ok := asList(result["recorddetail"])

			return !ok || len(details) == 0
		},
		EmptyValueFunc: emptyRecords,
		CleanFunc: func(payload any, req *crm.Request) (any, error) {
			result, err := legacyEnvelope(payload, req)
			if err != nil {
				return nil, err
			}

			details, _ := asList(result["recorddetail"])
			rows := make([]legacyRow, 0, len(details))

			for _, detail := range details {
				entry, ok := asMap(detail)
				if !ok {
					continue
				}

				rows = append(rows, cleanLegacyFields(entry["FL"]))
			}

			return rows, nil
		},
		ConvertFunc: convertLegacyRows,
	}
}

func legacyMessageTransformer() crm.Transformer {
	return TransformerFuncs{
		DetectErrorFunc: legacyDetectError,
		IsEmptyFunc: func(payload any, req *crm.Request) bool {
			_, empty := legacyResult(payload)

			return empty
		},
		EmptyValueFunc: nilValue,
		CleanFunc: func(payload any, req *crm.Request) (any, error) {
			return legacyEnvelope(payload, req)
		},
		ConvertFunc: func(cleaned any, req *crm.Request) (any, error) {
			result, _ := cleaned.(map[string]any)

			return stringOf(result["message"]), nil
		},
	}
}
