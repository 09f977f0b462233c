package commands

import (
	"encoding/json"
	"fmt"
	"io"
	"os"
	"sort"
	"time"

	"github.com/olekukonko/tablewriter"
	"github.com/spf13/viper"
	"gopkg.in/yaml.v3"

	"github.com/fivetwenty-io/crm-client/internal/constants"
	"github.com/fivetwenty-io/crm-client/pkg/crm"
)

const (
	defaultJSONIndent = 2

	// maxTableColumns bounds the field columns shown when none are requested.
	maxTableColumns = 5
)

// StandardJSONRenderer writes data as indented JSON.
func StandardJSONRenderer[T any](w io.Writer, data T) error {
	encoder := json.NewEncoder(w)
	encoder.SetIndent("", "  ")

	err := encoder.Encode(data)
	if err != nil {
		return fmt.Errorf("encoding data to JSON: %w", err)
	}

	return nil
}

// StandardYAMLRenderer writes data as YAML.
func StandardYAMLRenderer[T any](w io.Writer, data T) error {
	encoder := yaml.NewEncoder(w)
	encoder.SetIndent(defaultJSONIndent)

	err := encoder.Encode(data)
	if err != nil {
		return fmt.Errorf("encoding data to YAML: %w", err)
	}

	return encoder.Close()
}

// OutputRenderer handles different output formats.
type OutputRenderer[T any] struct {
	RenderTable func(w io.Writer, data T) error
}

// Render outputs data in the specified format.
func (o *OutputRenderer[T]) Render(w io.Writer, data T, format string) error {
	switch format {
	case constants.FormatJSON:
		return StandardJSONRenderer(w, data)
	case constants.FormatYAML:
		return StandardYAMLRenderer(w, data)
	default:
		return o.RenderTable(w, data)
	}
}

func outputFormat() string {
	return viper.GetString("output")
}

func outputRecords(records []crm.Record, columns []string) error {
	renderer := &OutputRenderer[[]crm.Record]{
		RenderTable: func(w io.Writer, data []crm.Record) error {
			return renderRecordTable(w, data, columns)
		},
	}

	return renderer.Render(os.Stdout, records, outputFormat())
}

func outputIDs(ids []string) error {
	renderer := &OutputRenderer[[]string]{RenderTable: renderIDTable}

	return renderer.Render(os.Stdout, ids, outputFormat())
}

func renderRecordTable(w io.Writer, records []crm.Record, columns []string) error {
	if len(records) == 0 {
		_, _ = io.WriteString(w, "No records found\n")

		return nil
	}

	if len(columns) == 0 {
		columns = recordColumns(records)
	}

	header := []any{"ID", "Modified"}
	for _, column := range columns {
		header = append(header, column)
	}

	table := tablewriter.NewWriter(w)
	table.Header(header...)

	for _, record := range records {
		row := make([]string, 0, len(header))
		row = append(row, record.ID, formatTime(record.ModifiedTime))

		for _, column := range columns {
			row = append(row, record.FieldString(column))
		}

		_ = table.Append(row)
	}

	if err := table.Render(); err != nil {
		return fmt.Errorf("failed to render table: %w", err)
	}

	_, _ = fmt.Fprintf(w, "\nTotal: %d records\n", len(records))

	return nil
}

// recordColumns picks the field names of the first record, sorted and capped.
func recordColumns(records []crm.Record) []string {
	columns := make([]string, 0, len(records[0].Fields))

	for name, value := range records[0].Fields {
		if _, nested := value.(map[string]any); nested {
			continue
		}

		columns = append(columns, name)
	}

	sort.Strings(columns)

	if len(columns) > maxTableColumns {
		columns = columns[:maxTableColumns]
	}

	return columns
}

func renderIDTable(w io.Writer, ids []string) error {
	if len(ids) == 0 {
		_, _ = io.WriteString(w, "No records found\n")

		return nil
	}

	table := tablewriter.NewWriter(w)
	table.Header("ID")

	for _, id := range ids {
		_ = table.Append(id)
	}

	if err := table.Render(); err != nil {
		return fmt.Errorf("failed to render table: %w", err)
	}

	return nil
}

func formatTime(t time.Time) string {
	if t.IsZero() {
		return "-"
	}

	return t.Format(time.RFC3339)
}
