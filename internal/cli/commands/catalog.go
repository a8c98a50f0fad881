package commands

import (
	"fmt"
	"strings"

	"github.com/jedib0t/go-pretty/v6/table"
	"github.com/spf13/cobra"

	"github.com/leapstack-labs/relineage/internal/catalogload"
)

// CatalogOptions holds options for the catalog command.
type CatalogOptions struct {
	Driver  string
	DSN     string
	Name    string
	Schemas []string
}

// NewCatalogCommand creates the catalog command.
func NewCatalogCommand() *cobra.Command {
	opts := &CatalogOptions{}

	cmd := &cobra.Command{
		Use:   "catalog",
		Short: "Dump table schemas from a live database",
		Long: `Connect to a database and list the declared schema of every base table,
as provenance resolution would see it. Connection settings come from flags or
the catalog section of relineage.yaml.`,
		Example: `  # DuckDB file
  relineage catalog --driver duckdb --dsn warehouse.db

  # Postgres, selected schemas only
  relineage catalog --driver postgres --dsn "host=localhost dbname=shop" --schema public`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return runCatalog(cmd, opts)
		},
	}

	cmd.Flags().StringVar(&opts.Driver, "driver", "", "Database driver (postgres|duckdb)")
	cmd.Flags().StringVar(&opts.DSN, "dsn", "", "Connection string")
	cmd.Flags().StringVar(&opts.Name, "name", "", "Catalog name used as the first qualifier segment")
	cmd.Flags().StringArrayVar(&opts.Schemas, "schema", nil, "Schema to load (repeatable; default: all non-system)")

	return cmd
}

func runCatalog(cmd *cobra.Command, opts *CatalogOptions) error {
	catalogCfg := getConfig().Catalog
	if opts.Driver == "" {
		opts.Driver = catalogCfg.Driver
	}
	if opts.DSN == "" {
		opts.DSN = catalogCfg.DSN
	}
	if opts.Name == "" {
		opts.Name = catalogCfg.Name
	}
	if len(opts.Schemas) == 0 {
		opts.Schemas = catalogCfg.Schemas
	}
	if opts.Driver == "" {
		return fmt.Errorf("no driver configured (use --driver or the catalog section of relineage.yaml)")
	}
	if opts.Name == "" {
		opts.Name = opts.Driver
	}

	ctx := cmd.Context()
	loader, err := catalogload.Open(ctx, opts.Driver, opts.DSN, opts.Name, getLogger())
	if err != nil {
		return err
	}
	defer loader.Close()

	cat, err := loader.Load(ctx, opts.Schemas...)
	if err != nil {
		return err
	}

	t := table.NewWriter()
	t.SetOutputMirror(cmd.OutOrStdout())
	t.SetStyle(table.StyleLight)
	t.AppendHeader(table.Row{"Table", "Columns"})
	for _, tbl := range cat.Tables() {
		t.AppendRow(table.Row{tbl.Name(), strings.Join(tbl.RowType().FieldNames(), ", ")})
	}
	t.Render()
	return nil
}
