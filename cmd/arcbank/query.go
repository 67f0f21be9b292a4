package main

import (
	"context"
	"fmt"
	"log/slog"
	"strings"

	"github.com/spf13/cobra"

	"github.com/jchantrell/arcbank/internal/catalog"
)

var queryCmd = &cobra.Command{
	Use:   "query [sql]",
	Short: "Query the catalog database from the command line",
	Long: `Query executes SQL against the catalog written by --catalog, lists its
tables, or shows a table's schema.`,
	Args: cobra.MaximumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()

		listTables, err := cmd.Flags().GetBool("tables")
		if err != nil {
			return fmt.Errorf("failed to get tables flag: %w", err)
		}
		schemaTable, err := cmd.Flags().GetString("schema")
		if err != nil {
			return fmt.Errorf("failed to get schema flag: %w", err)
		}

		if cfg.Catalog == "" {
			return fmt.Errorf("no catalog configured, pass --catalog or set catalog in arcbank.yaml")
		}

		slog.Debug("Query parameters",
			"catalog", cfg.Catalog,
			"list-tables", listTables,
			"schema", schemaTable)

		cat, err := catalog.Open(ctx, catalog.DefaultOptions(cfg.Catalog))
		if err != nil {
			return fmt.Errorf("opening catalog: %w", err)
		}
		defer cat.Close()

		switch {
		case listTables:
			tables, err := cat.Tables(ctx)
			if err != nil {
				return err
			}
			fmt.Println("Available tables:")
			for _, name := range tables {
				fmt.Printf("  %s\n", name)
			}
			return nil

		case schemaTable != "":
			return printSchema(ctx, cat, schemaTable)

		case len(args) > 0:
			return printQuery(ctx, cat, args[0])
		}

		return fmt.Errorf("no query provided, use --tables to list tables or --schema <table> to show schema")
	},
}

func printSchema(ctx context.Context, cat *catalog.Catalog, table string) error {
	tables, err := cat.Tables(ctx)
	if err != nil {
		return err
	}
	found := false
	for _, name := range tables {
		found = found || name == table
	}
	if !found {
		return fmt.Errorf("unknown table %q", table)
	}

	rows, err := cat.Query(ctx, `PRAGMA table_info(`+table+`)`)
	if err != nil {
		return fmt.Errorf("getting schema for table %s: %w", table, err)
	}
	defer rows.Close()

	fmt.Printf("Schema for table '%s':\n", table)
	fmt.Printf("%-20s %-15s %-10s %-10s %-10s\n", "Column", "Type", "NotNull", "Default", "Primary")
	fmt.Println(strings.Repeat("-", 70))

	for rows.Next() {
		var cid, notNull, primaryKey int
		var name, dataType string
		var defaultValue any

		if err := rows.Scan(&cid, &name, &dataType, &notNull, &defaultValue, &primaryKey); err != nil {
			return fmt.Errorf("scanning schema row: %w", err)
		}

		defaultStr := "NULL"
		if defaultValue != nil {
			defaultStr = fmt.Sprintf("%v", defaultValue)
		}

		fmt.Printf("%-20s %-15s %-10s %-10s %-10s\n",
			name, dataType,
			map[int]string{0: "NO", 1: "YES"}[notNull],
			defaultStr,
			map[bool]string{false: "NO", true: "YES"}[primaryKey > 0])
	}

	return rows.Err()
}

func printQuery(ctx context.Context, cat *catalog.Catalog, query string) error {
	slog.Debug("Executing SQL query", "query", query)

	rows, err := cat.Query(ctx, query)
	if err != nil {
		return err
	}
	defer rows.Close()

	columns, err := rows.Columns()
	if err != nil {
		return fmt.Errorf("getting column names: %w", err)
	}

	fmt.Println(strings.Join(columns, "\t"))
	separators := make([]string, len(columns))
	for i, col := range columns {
		separators[i] = strings.Repeat("-", len(col))
	}
	fmt.Println(strings.Join(separators, "\t"))

	values := make([]any, len(columns))
	valuePtrs := make([]any, len(columns))
	for i := range values {
		valuePtrs[i] = &values[i]
	}

	for rows.Next() {
		if err := rows.Scan(valuePtrs...); err != nil {
			return fmt.Errorf("scanning row: %w", err)
		}

		fields := make([]string, len(values))
		for i, val := range values {
			switch v := val.(type) {
			case nil:
				fields[i] = "NULL"
			case []byte:
				fields[i] = string(v)
			default:
				fields[i] = fmt.Sprint(v)
			}
		}
		fmt.Println(strings.Join(fields, "\t"))
	}

	if err := rows.Err(); err != nil {
		return fmt.Errorf("iterating rows: %w", err)
	}
	return nil
}

func init() {
	rootCmd.AddCommand(queryCmd)
	queryCmd.Flags().Bool("tables", false, "List available tables")
	queryCmd.Flags().String("schema", "", "Show schema for specified table")
}
