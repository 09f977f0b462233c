package client

import (
	"bytes"
	"encoding/json"
	"fmt"

	"github.com/fivetwenty-io/crm-client/pkg/crm"
)

// TransformerFuncs builds a crm.Transformer from plain functions. Nil
// functions fall back to: no error, never empty, nil empty value, identity
// clean and convert.
type TransformerFuncs struct {
	DetectErrorFunc func(payload any) error
	IsEmptyFunc     func(payload any, req *crm.Request) bool
	EmptyValueFunc  func(req *crm.Request) any
	CleanFunc       func(payload any, req *crm.Request) (any, error)
	ConvertFunc     func(cleaned any, req *crm.Request) (any, error)
}

// DetectError implements crm.Transformer.
func (t TransformerFuncs) DetectError(payload any) error {
	if t.DetectErrorFunc == nil {
		return nil
	}

	return t.DetectErrorFunc(payload)
}

// IsEmpty implements crm.Transformer.
func (t TransformerFuncs) IsEmpty(payload any, req *crm.Request) bool {
	if t.IsEmptyFunc == nil {
		return false
	}

	return t.IsEmptyFunc(payload, req)
}

// EmptyValue implements crm.Transformer.
func (t TransformerFuncs) EmptyValue(req *crm.Request) any {
	if t.EmptyValueFunc == nil {
		return nil
	}

	return t.EmptyValueFunc(req)
}

// Clean implements crm.Transformer.
func (t TransformerFuncs) Clean(payload any, req *crm.Request) (any, error) {
	if t.CleanFunc == nil {
		return payload, nil
	}

	return t.CleanFunc(payload, req)
}

// Convert implements crm.Transformer.
func (t TransformerFuncs) Convert(cleaned any, req *crm.Request) (any, error) {
	if t.ConvertFunc == nil {
		return cleaned, nil
	}

	return t.ConvertFunc(cleaned, req)
}

// Registry maps endpoint identities to transformers. It is built once and
// only read afterwards.
type Registry struct {
	transformers map[crm.EndpointID]crm.Transformer
}

// NewRegistry creates a registry holding the built-in transformers, replaced
// or extended by overrides.
func NewRegistry(overrides map[crm.EndpointID]crm.Transformer) *Registry {
	transformers := make(map[crm.EndpointID]crm.Transformer, len(builtinTransformers)+len(overrides))

	for id, transformer := range builtinTransformers {
		transformers[id] = transformer
	}

	for id, transformer := range overrides {
		if transformer != nil {
			transformers[id] = transformer
		}
	}

	return &Registry{transformers: transformers}
}

// Lookup returns the transformer of an endpoint.
func (r *Registry) Lookup(id crm.EndpointID) (crm.Transformer, error) {
	transformer, ok := r.transformers[id]
	if !ok {
		return nil, fmt.Errorf("%w: %s", crm.ErrNoTransformer, id)
	}

	return transformer, nil
}

var builtinTransformers = map[crm.EndpointID]crm.Transformer{
	crm.LegacyGetRecords:          legacyRecordsTransformer(),
	crm.LegacyGetMyRecords:        legacyRecordsTransformer(),
	crm.LegacySearchRecords:       legacyRecordsTransformer(),
	crm.LegacyGetRelatedRecords:   legacyRecordsTransformer(),
	crm.LegacyGetRecordByID:       legacySingleRecordTransformer(),
	crm.LegacyGetDeletedRecordIDs: legacyDeletedIDsTransformer(),
	crm.LegacyInsertRecords:       legacyRecordDetailTransformer(),
	crm.LegacyUpdateRecords:       legacyRecordDetailTransformer(),
	crm.LegacyDeleteRecords:       legacyMessageTransformer(),

	crm.ListRecords:    modernRecordsTransformer(nilValue),
	crm.SearchRecords:  modernRecordsTransformer(nilValue),
	crm.GetRecord:      modernSingleRecordTransformer(),
	crm.DeletedRecords: modernRecordsTransformer(emptyRecords),
	crm.UpsertRecords:  modernUpsertTransformer(),
}

func nilValue(*crm.Request) any { return nil }

func emptyRecords(*crm.Request) any { return []crm.Record{} }

func emptyIDs(*crm.Request) any { return []string{} }

// decodePayload decodes a response body. An empty body decodes to nil.
func decodePayload(body []byte) (any, error) {
	trimmed := bytes.TrimSpace(body)
	if len(trimmed) == 0 {
		return nil, nil
	}

	decoder := json.NewDecoder(bytes.NewReader(trimmed))
	decoder.UseNumber()

	var payload any

	err := decoder.Decode(&payload)
	if err != nil {
		return nil, crm.NewUnreadableResponseError(body, err)
	}

	if decoder.InputOffset() != int64(len(trimmed)) {
		return nil, crm.NewUnreadableResponseError(body, errTrailingData)
	}

	return payload, nil
}

// asList normalises the single-item shape: an object becomes a one-element
// list, a list is returned as is, anything else yields ok == false.
func asList(value any) ([]any, bool) {
	switch typed := value.(type) {
	case []any:
		return typed, true
	case map[string]any:
		return []any{typed}, true
	default:
		return nil, false
	}
}

func asMap(value any) (map[string]any, bool) {
	typed, ok := value.(map[string]any)

	return typed, ok
}

func stringOf(value any) string {
	switch typed := value.(type) {
	case nil:
		return ""
	case string:
		return typed
	case json.Number:
		return typed.String()
	default:
		return fmt.Sprint(typed)
	}
}
