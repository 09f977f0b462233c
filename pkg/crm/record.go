package crm

import (
	"fmt"
	"time"
)

// Record is one CRM entity as returned by any endpoint.
type Record struct {
	ID           string         `json:"id"                     yaml:"id"`
	ModifiedTime time.Time      `json:"modified_time,omitzero" yaml:"modified_time,omitempty"`
	Fields       map[string]any `json:"fields"                 yaml:"fields"`
}

// FieldString returns a field as a string, or "" when absent.
func (r Record) FieldString(field string) string {
	value, ok := r.Fields[field]
	if !ok || value == nil {
		return ""
	}

	if s, ok := value.(string); ok {
		return s
	}

	return fmt.Sprint(value)
}

// Has reports whether the record carries the field.
func (r Record) Has(field string) bool {
	_, ok := r.Fields[field]

	return ok
}
