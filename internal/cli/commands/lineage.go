package commands

import (
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"strings"

	"github.com/google/uuid"
	"github.com/jedib0t/go-pretty/v6/table"
	"github.com/spf13/cobra"

	"github.com/leapstack-labs/relineage/internal/dag"
	"github.com/leapstack-labs/relineage/pkg/origin"
	"github.com/leapstack-labs/relineage/pkg/planfile"
	"github.com/leapstack-labs/relineage/pkg/provenance"
	"github.com/leapstack-labs/relineage/pkg/rel"
)

// Column provenance status values used in reports.
const (
	statusResolved = "resolved"
	statusNone     = "none"    // provably no base-table origin
	statusUnknown  = "unknown" // cannot be determined
)

type originReport struct {
	Table     string `json:"table"`
	Field     string `json:"field"`
	Ordinal   int    `json:"ordinal"`
	Derived   bool   `json:"derived"`
	Transform string `json:"transform,omitempty"`
}

type columnReport struct {
	Column  string         `json:"column"`
	Status  string         `json:"status"`
	Origins []originReport `json:"origins,omitempty"`
}

// LineageOptions holds options for the lineage command.
type LineageOptions struct {
	OutputFormat string
	NodeID       string
}

// NewLineageCommand creates the lineage command.
func NewLineageCommand() *cobra.Command {
	opts := &LineageOptions{}

	cmd := &cobra.Command{
		Use:   "lineage <plan-file>",
		Short: "Show column lineage for a plan",
		Long: `Resolve the base-table provenance of every output column of an operator
plan. For each column the command reports which base-table columns it derives
from and whether the derivation is a verbatim copy or a transformation.`,
		Example: `  # Column lineage of the plan root
  relineage lineage plan.json

  # Lineage of a specific node
  relineage lineage plan.json --node agg0

  # Output as JSON
  relineage lineage plan.json --output json`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runLineage(cmd, args[0], opts)
		},
	}

	cmd.Flags().StringVarP(&opts.OutputFormat, "output", "o", "", "Output format (text|json)")
	cmd.Flags().StringVar(&opts.NodeID, "node", "", "Resolve this node instead of the plan root")

	return cmd
}

func runLineage(cmd *cobra.Command, planPath string, opts *LineageOptions) error {
	format, err := outputFormat(opts.OutputFormat)
	if err != nil {
		return err
	}

	plan, err := planfile.Load(planPath)
	if err != nil {
		return err
	}
	node := plan.Root
	if opts.NodeID != "" {
		n, ok := plan.Node(opts.NodeID)
		if !ok {
			return fmt.Errorf("plan has no node %q (known: %s)", opts.NodeID, strings.Join(plan.NodeIDs(), ", "))
		}
		node = n
	}

	resolver, err := newResolver(plan)
	if err != nil {
		return err
	}

	reports := make([]columnReport, node.RowType().FieldCount())
	for col := range reports {
		report, err := resolveColumn(resolver, node, col)
		if err != nil {
			return err
		}
		reports[col] = report
	}

	if format == "json" {
		enc := json.NewEncoder(cmd.OutOrStdout())
		enc.SetIndent("", "  ")
		return enc.Encode(reports)
	}
	renderColumnReports(cmd.OutOrStdout(), reports)
	return nil
}

// newResolver validates the plan's shape and builds a resolver sized to it.
// Each invocation gets its own run id in the log context.
func newResolver(plan *planfile.Plan) (*provenance.Resolver, error) {
	stats, err := dag.Validate(plan.Root)
	if err != nil {
		return nil, fmt.Errorf("invalid plan: %w", err)
	}
	runLogger := getLogger().With(slog.String("run_id", uuid.NewString()))
	runLogger.Debug("resolving plan",
		slog.Int("nodes", stats.Nodes),
		slog.Int("max_depth", stats.MaxDepth),
		slog.Int("shared", stats.Shared))

	maxDepth := provenance.DefaultMaxDepth
	if stats.MaxDepth > maxDepth {
		maxDepth = stats.MaxDepth
	}
	return provenance.New(
		provenance.WithLogger(runLogger),
		provenance.WithMaxDepth(maxDepth),
	), nil
}

func resolveColumn(resolver *provenance.Resolver, node rel.Node, col int) (columnReport, error) {
	report := columnReport{Column: node.RowType().Field(col).Name}

	set, err := resolver.ColumnOrigins(node, col)
	if err != nil {
		return columnReport{}, err
	}
	switch {
	case set == nil:
		report.Status = statusUnknown
	case set.Len() == 0:
		report.Status = statusNone
	default:
		report.Status = statusResolved
		report.Origins = originReports(set)
	}
	return report, nil
}

func originReports(set *origin.Set) []originReport {
	out := make([]originReport, 0, set.Len())
	for _, o := range set.Origins() {
		out = append(out, originReport{
			Table:     strings.Join(o.Table.QualifiedName(), "."),
			Field:     o.FieldName(),
			Ordinal:   o.Ordinal,
			Derived:   o.Derived,
			Transform: o.Transform,
		})
	}
	return out
}

func renderColumnReports(w io.Writer, reports []columnReport) {
	t := table.NewWriter()
	t.SetOutputMirror(w)
	t.SetStyle(table.StyleLight)
	t.AppendHeader(table.Row{"Column", "Status", "Origin", "Derived", "Transform"})
	for _, r := range reports {
		if len(r.Origins) == 0 {
			t.AppendRow(table.Row{r.Column, r.Status, "", "", ""})
			continue
		}
		for i, o := range r.Origins {
			name, status := r.Column, r.Status
			if i > 0 {
				name, status = "", ""
			}
			t.AppendRow(table.Row{name, status, o.Table + "." + o.Field, o.Derived, o.Transform})
		}
	}
	t.Render()
}
