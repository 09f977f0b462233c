package commands

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/fivetwenty-io/crm-client/pkg/crm"
)

// NewLegacyCommand creates the legacy API command group.
func NewLegacyCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "legacy",
		Short: "Work with the legacy JSON API",
		Long:  "Read and write records through the authtoken-based legacy API",
	}

	cmd.AddCommand(newLegacyGetCommand())
	cmd.AddCommand(newLegacyGetByIDCommand())
	cmd.AddCommand(newLegacySearchCommand())
	cmd.AddCommand(newLegacyRelatedCommand())
	cmd.AddCommand(newLegacyDeletedIDsCommand())
	cmd.AddCommand(newLegacyInsertCommand())
	cmd.AddCommand(newLegacyUpdateCommand())
	cmd.AddCommand(newLegacyDeleteCommand())

	return cmd
}

func newLegacyGetCommand() *cobra.Command {
	var (
		mine          bool
		selectColumns string
		sortColumn    string
		sortOrder     string
		lastModified  string
	)

	cmd := &cobra.Command{
		Use:   "get MODULE",
		Short: "Get all records of a module",
		Long:  "Fetch every record of a module, walking the 200-record windows of the legacy API",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := commandContext(cmd)

			client, err := CreateClient(ctx)
			if err != nil {
				return err
			}

			defer func() { _ = client.Close() }()

			params := crm.Params{}
			setParam(params, "selectColumns", selectColumns)
			setParam(params, "sortColumnString", sortColumn)
			setParam(params, "sortOrderString", sortOrder)
			setParam(params, "lastModifiedTime", lastModified)

			records := client.LegacyRecords(args[0])

			fetch := records.GetRecords
			if mine {
				fetch = records.GetMyRecords
			}

			result, err := fetch(ctx, params)
			if err != nil {
				return fmt.Errorf("failed to get %s: %w", args[0], err)
			}

			return outputRecords(result, nil)
		},
	}

	cmd.Flags().BoolVar(&mine, "mine", false, "only records owned by the authenticated user")
	cmd.Flags().StringVar(&selectColumns, "select-columns", "", "columns to return, e.g. Leads(First Name,Email)")
	cmd.Flags().StringVar(&sortColumn, "sort-column", "", "column to sort by")
	cmd.Flags().StringVar(&sortOrder, "sort-order", "", "sort order (asc, desc)")
	cmd.Flags().StringVar(&lastModified, "modified-since", "", "only records modified after this time (yyyy-MM-dd HH:mm:ss)")

	return cmd
}

func setParam(params crm.Params, key, value string) {
	if value != "" {
		params[key] = value
	}
}

func newLegacyGetByIDCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "get-by-id MODULE RECORD_ID",
		Short: "Get a record by ID",
		Long:  "Fetch a single record through the legacy API",
		Args:  cobra.ExactArgs(2), //nolint:mnd // module and id
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := commandContext(cmd)

			client, err := CreateClient(ctx)
			if err != nil {
				return err
			}

			defer func() { _ = client.Close() }()

			record, err := client.LegacyRecords(args[0]).GetRecordByID(ctx, args[1])
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

func newLegacySearchCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "search MODULE CRITERIA",
		Short: "Search records",
		Long:  "Search records with legacy criteria, e.g. (Last Name:Smith)",
		Args:  cobra.ExactArgs(2), //nolint:mnd // module and criteria
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := commandContext(cmd)

			client, err := CreateClient(ctx)
			if err != nil {
				return err
			}

			defer func() { _ = client.Close() }()

			records, err := client.LegacyRecords(args[0]).SearchRecords(ctx, args[1])
			if err != nil {
				return fmt.Errorf("failed to search %s: %w", args[0], err)
			}

			return outputRecords(records, nil)
		},
	}
}

func newLegacyRelatedCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "related MODULE PARENT_MODULE PARENT_ID",
		Short: "List related records",
		Long:  "List records of MODULE related to a record of PARENT_MODULE",
		Args:  cobra.ExactArgs(3), //nolint:mnd // module, parent module and parent id
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := commandContext(cmd)

			client, err := CreateClient(ctx)
			if err != nil {
				return err
			}

			defer func() { _ = client.Close() }()

			records, err := client.LegacyRecords(args[0]).GetRelatedRecords(ctx, args[1], args[2])
			if err != nil {
				return fmt.Errorf("failed to get related records: %w", err)
			}

			return outputRecords(records, nil)
		},
	}
}

func newLegacyDeletedIDsCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "deleted-ids MODULE",
		Short: "List deleted record IDs",
		Long:  "List the IDs of records deleted from a module",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := commandContext(cmd)

			client, err := CreateClient(ctx)
			if err != nil {
				return err
			}

			defer func() { _ = client.Close() }()

			ids, err := client.LegacyRecords(args[0]).GetDeletedRecordIDs(ctx)
			if err != nil {
				return fmt.Errorf("failed to get deleted record IDs: %w", err)
			}

			return outputIDs(ids)
		},
	}
}

func newLegacyInsertCommand() *cobra.Command {
	var file string

	cmd := &cobra.Command{
		Use:   "insert MODULE",
		Short: "Insert records",
		Long:  "Insert records described by an XML document",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := commandContext(cmd)

			xmlData, err := readXMLInput(file)
			if err != nil {
				return err
			}

			client, err := CreateClient(ctx)
			if err != nil {
				return err
			}

			defer func() { _ = client.Close() }()

			records, err := client.LegacyRecords(args[0]).InsertRecords(ctx, xmlData)
			if err != nil {
				return fmt.Errorf("failed to insert records: %w", err)
			}

			return outputRecords(records, nil)
		},
	}

	cmd.Flags().StringVarP(&file, "file", "f", "", "XML file with records")
	_ = cmd.MarkFlagRequired("file")

	return cmd
}

func newLegacyUpdateCommand() *cobra.Command {
	var file string

	cmd := &cobra.Command{
		Use:   "update MODULE RECORD_ID",
		Short: "Update a record",
		Long:  "Update a record with fields from an XML document",
		Args:  cobra.ExactArgs(2), //nolint:mnd // module and id
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := commandContext(cmd)

			xmlData, err := readXMLInput(file)
			if err != nil {
				return err
			}

			client, err := CreateClient(ctx)
			if err != nil {
				return err
			}

			defer func() { _ = client.Close() }()

			records, err := client.LegacyRecords(args[0]).UpdateRecords(ctx, args[1], xmlData)
			if err != nil {
				return fmt.Errorf("failed to update record: %w", err)
			}

			return outputRecords(records, nil)
		},
	}

	cmd.Flags().StringVarP(&file, "file", "f", "", "XML file with fields")
	_ = cmd.MarkFlagRequired("file")

	return cmd
}

func newLegacyDeleteCommand() *cobra.Command {
	var force bool

	cmd := &cobra.Command{
		Use:   "delete MODULE RECORD_ID",
		Short: "Delete a record",
		Long:  "Delete a record through the legacy API",
		Args:  cobra.ExactArgs(2), //nolint:mnd // module and id
		RunE: func(cmd *cobra.Command, args []string) error {
			if !force && !confirm(fmt.Sprintf("Really delete %s %s? ", args[0], args[1])) {
				_, _ = fmt.Fprintln(os.Stdout, "Delete cancelled")

				return nil
			}

			ctx := commandContext(cmd)

			client, err := CreateClient(ctx)
			if err != nil {
				return err
			}

			defer func() { _ = client.Close() }()

			message, err := client.LegacyRecords(args[0]).DeleteRecords(ctx, args[1])
			if err != nil {
				return fmt.Errorf("failed to delete record: %w", err)
			}

			_, _ = fmt.Fprintln(os.Stdout, message)

			return nil
		},
	}

	cmd.Flags().BoolVarP(&force, "force", "f", false, "delete without confirmation")

	return cmd
}

func readXMLInput(path string) (string, error) {
	data, err := os.ReadFile(path) // #nosec G304 -- path is supplied by the user
	if err != nil {
		return "", fmt.Errorf("failed to read XML input: %w", err)
	}

	return string(data), nil
}

func confirm(prompt string) bool {
	answer := promptLine(prompt + "[y/N] ")

	return answer == "y" || answer == "yes"
}
