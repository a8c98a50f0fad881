package commands

import (
	"encoding/json"
	"fmt"
	"strconv"
	"strings"

	"github.com/spf13/cobra"

	"github.com/leapstack-labs/relineage/pkg/planfile"
)

// ResolveOptions holds options for the resolve command.
type ResolveOptions struct {
	OutputFormat string
}

// NewResolveCommand creates the resolve command.
func NewResolveCommand() *cobra.Command {
	opts := &ResolveOptions{}

	cmd := &cobra.Command{
		Use:   "resolve <plan-file> <node-id> <column>",
		Short: "Resolve the provenance of a single column",
		Long: `Resolve the base-table provenance of one output column of one plan node.
The column is addressed by its index into the node's output row.`,
		Example: `  # Origins of column 2 of node join0
  relineage resolve plan.json join0 2`,
		Args: cobra.ExactArgs(3),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runResolve(cmd, args[0], args[1], args[2], opts)
		},
	}

	cmd.Flags().StringVarP(&opts.OutputFormat, "output", "o", "", "Output format (text|json)")

	return cmd
}

func runResolve(cmd *cobra.Command, planPath, nodeID, column string, opts *ResolveOptions) error {
	format, err := outputFormat(opts.OutputFormat)
	if err != nil {
		return err
	}
	col, err := strconv.Atoi(column)
	if err != nil {
		return fmt.Errorf("column must be an index, got %q", column)
	}

	plan, err := planfile.Load(planPath)
	if err != nil {
		return err
	}
	node, ok := plan.Node(nodeID)
	if !ok {
		return fmt.Errorf("plan has no node %q (known: %s)", nodeID, strings.Join(plan.NodeIDs(), ", "))
	}

	resolver, err := newResolver(plan)
	if err != nil {
		return err
	}
	report, err := resolveColumn(resolver, node, col)
	if err != nil {
		return err
	}

	if format == "json" {
		enc := json.NewEncoder(cmd.OutOrStdout())
		enc.SetIndent("", "  ")
		return enc.Encode(report)
	}
	renderColumnReports(cmd.OutOrStdout(), []columnReport{report})
	return nil
}
