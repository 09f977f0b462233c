package commands

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/spf13/cobra"

	"github.com/fivetwenty-io/crm-client/internal/constants"
	"github.com/fivetwenty-io/crm-client/pkg/crm"
)

// NewRecordsCommand creates the records command group.
func NewRecordsCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:     "records",
		Aliases: []string{"record", "rec"},
		Short:   "Manage module records",
		Long:    "List, search, fetch and upsert records through the modern CRM API",
	}

	cmd.AddCommand(newRecordsListCommand())
	cmd.AddCommand(newRecordsGetCommand())
	cmd.AddCommand(newRecordsSearchCommand())
	cmd.AddCommand(newRecordsDeletedCommand())
	cmd.AddCommand(newRecordsUpsertCommand())

	return cmd
}

// paginationFlags are shared by the commands that may walk every page.
type paginationFlags struct {
	all         bool
	page        int
	perPage     int
	maxItems    int
	concurrency int
}

func (f *paginationFlags) register(cmd *cobra.Command) {
	cmd.Flags().BoolVar(&f.all, "all", false, "fetch all pages")
	cmd.Flags().IntVar(&f.page, "page", 1, "page to fetch when --all is not set")
	cmd.Flags().IntVar(&f.perPage, "per-page", constants.MaxPageSize, "records per page")
	cmd.Flags().IntVar(&f.maxItems, "max-items", 0, "stop after this many records (with --all)")
	cmd.Flags().IntVar(&f.concurrency, "concurrency", 1, "pages fetched concurrently (with --all)")
}

// apply shapes req for a single page or for auto-pagination.
func (f *paginationFlags) apply(req *crm.Request) {
	req.WithPageSize(f.perPage)

	if !f.all {
		req.WithParam("page", f.page).WithParam("per_page", f.perPage)

		return
	}

	req.AutoPaginated(true).Concurrency(f.concurrency)

	if f.maxItems > 0 {
		req.WithMaxItems(f.maxItems)
	}
}

func newRecordsListCommand() *cobra.Command {
	var (
		opts       crm.ListOptions
		pagination paginationFlags
	)

	cmd := &cobra.Command{
		Use:   "list MODULE",
		Short: "List records of a module",
		Long:  "List records of a module such as Leads, Contacts or Deals",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := commandContext(cmd)

			records, err := queryRecords(ctx, crm.ListRecords, args[0], &opts, &pagination)
			if err != nil {
				return fmt.Errorf("failed to list %s: %w", args[0], err)
			}

			return outputRecords(records, opts.Fields)
		},
	}

	cmd.Flags().StringSliceVar(&opts.Fields, "fields", nil, "fields to return")
	cmd.Flags().StringVar(&opts.SortBy, "sort-by", "", "field to sort by")
	cmd.Flags().StringVar(&opts.SortOrder, "sort-order", "", "sort order (asc, desc)")
	cmd.Flags().StringVar(&opts.CustomView, "cvid", "", "custom view ID")
	cmd.Flags().StringVar(&opts.Converted, "converted", "", "converted filter (true, false, both)")
	cmd.Flags().StringVar(&opts.Approved, "approved", "", "approved filter (true, false, both)")
	pagination.register(cmd)

	return cmd
}

func newRecordsSearchCommand() *cobra.Command {
	var (
		opts       crm.ListOptions
		pagination paginationFlags
	)

	cmd := &cobra.Command{
		Use:   "search MODULE",
		Short: "Search records of a module",
		Long:  "Search records by criteria, email, phone or word",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := commandContext(cmd)

			records, err := queryRecords(ctx, crm.SearchRecords, args[0], &opts, &pagination)
			if err != nil {
				return fmt.Errorf("failed to search %s: %w", args[0], err)
			}

			return outputRecords(records, opts.Fields)
		},
	}

	cmd.Flags().StringVar(&opts.Criteria, "criteria", "", "search criteria, e.g. (Last_Name:equals:Smith)")
	cmd.Flags().StringVar(&opts.Email, "email", "", "email to search for")
	cmd.Flags().StringVar(&opts.Phone, "phone", "", "phone to search for")
	cmd.Flags().StringVar(&opts.Word, "word", "", "word to search for")
	pagination.register(cmd)

	return cmd
}

func queryRecords(ctx context.Context, id crm.EndpointID, module string, opts *crm.ListOptions, pagination *paginationFlags) ([]crm.Record, error) {
	client, err := CreateClient(ctx)
	if err != nil {
		return nil, err
	}

	defer func() { _ = client.Close() }()

	req, err := client.NewQuery(id, module)
	if err != nil {
		return nil, err
	}

	params, err := opts.Params()
	if err != nil {
		return nil, err
	}

	req.WithParams(params)
	pagination.apply(req)

	resp, err := req.Execute(ctx)
	if err != nil {
		return nil, err
	}

	return resp.Records(), nil
}

func newRecordsGetCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "get MODULE RECORD_ID",
		Short: "Get a record",
		Long:  "Display a single record by ID",
		Args:  cobra.ExactArgs(2), //nolint:mnd // module and id
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := commandContext(cmd)

			client, err := CreateClient(ctx)
			if err != nil {
				return err
			}

			defer func() { _ = client.Close() }()

			record, err := client.Records(args[0]).Get(ctx, args[1])
			if err != nil {
				return fmt.Errorf("failed to get record: %w", err)
			}

			if record == nil {
				return outputRecords(nil, nil)
			}

			return outputRecords([]crm.Record{*record}, nil)
		},
	}
}

func newRecordsDeletedCommand() *cobra.Command {
	var deletedType string

	cmd := &cobra.Command{
		Use:   "deleted MODULE",
		Short: "List deleted records",
		Long:  "List records deleted from a module, from the recycle bin, permanently, or both",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := commandContext(cmd)

			client, err := CreateClient(ctx)
			if err != nil {
				return err
			}

			defer func() { _ = client.Close() }()

			records, err := client.Records(args[0]).Deleted(ctx, deletedType)
			if err != nil {
				return fmt.Errorf("failed to list deleted records: %w", err)
			}

			return outputRecords(records, []string{"type", "deleted_time"})
		},
	}

	cmd.Flags().StringVar(&deletedType, "type", "all", "deleted type (all, recycle, permanent)")

	return cmd
}

func newRecordsUpsertCommand() *cobra.Command {
	var file string

	cmd := &cobra.Command{
		Use:   "upsert MODULE",
		Short: "Insert or update records",
		Long: `Insert or update records from a JSON file.

The file holds either an array of records or an object with a "data" array.
Use "-" to read from stdin.`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := commandContext(cmd)

			records, err := readRecordsInput(file)
			if err != nil {
				return err
			}

			client, err := CreateClient(ctx)
			if err != nil {
				return err
			}

			defer func() { _ = client.Close() }()

			results, err := client.Records(args[0]).Upsert(ctx, records)
			if err != nil {
				return fmt.Errorf("failed to upsert records: %w", err)
			}

			return outputRecords(results, []string{"action", "status", "code"})
		},
	}

	cmd.Flags().StringVarP(&file, "file", "f", "-", "JSON file with records")

	return cmd
}

// readRecordsInput reads records from path, or stdin for "-".
func readRecordsInput(path string) ([]map[string]any, error) {
	var (
		data []byte
		err  error
	)

	if path == "-" {
		data, err = io.ReadAll(os.Stdin)
	} else {
		data, err = os.ReadFile(path) // #nosec G304 -- path is supplied by the user
	}

	if err != nil {
		return nil, fmt.Errorf("failed to read records: %w", err)
	}

	return parseRecordsInput(data)
}

func parseRecordsInput(data []byte) ([]map[string]any, error) {
	trimmed := strings.TrimSpace(string(data))

	var records []map[string]any

	if strings.HasPrefix(trimmed, "{") {
		var wrapped struct {
			Data []map[string]any `json:"data"`
		}

		if err := json.Unmarshal([]byte(trimmed), &wrapped); err != nil {
			return nil, fmt.Errorf("failed to parse records: %w", err)
		}

		records = wrapped.Data
	} else if err := json.Unmarshal([]byte(trimmed), &records); err != nil {
		return nil, fmt.Errorf("failed to parse records: %w", err)
	}

	if len(records) == 0 {
		return nil, constants.ErrEmptyRecordsInput
	}

	return records, nil
}

func commandContext(cmd *cobra.Command) context.Context {
	if ctx := cmd.Context(); ctx != nil {
		return ctx
	}

	return context.Background()
}
