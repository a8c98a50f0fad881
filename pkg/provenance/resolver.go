// Package provenance answers column lineage queries over a relational
// operator plan: given a node and an index into its output row, it computes
// the set of base-table columns that output column derives from, and whether
// the derivation is a verbatim copy or a transformation.
//
// Results are three-valued. A nil set means the provenance is unknown and
// must be treated conservatively; a non-nil empty set means the column
// provably originates nowhere (a constructed value such as a literal); a
// non-empty set lists the concrete origins. The two nil-ish cases are never
// interchangeable.
package provenance

import (
	"errors"
	"fmt"
	"log/slog"

	"github.com/leapstack-labs/relineage/pkg/origin"
	"github.com/leapstack-labs/relineage/pkg/rel"
	"github.com/leapstack-labs/relineage/pkg/rex"
)

// DefaultMaxDepth bounds recursion for malformed (cyclic or absurdly deep)
// plans. Well-formed plan depth is small in practice.
const DefaultMaxDepth = 512

// ErrDepthExceeded is returned when resolution recurses past the configured
// depth bound, which indicates a malformed plan.
var ErrDepthExceeded = errors.New("provenance: max recursion depth exceeded")

// Option configures a Resolver.
type Option func(*Resolver)

// WithLogger sets the diagnostic logger. Only transform-synthesis failures
// log; resolution itself stays effect-free.
func WithLogger(logger *slog.Logger) Option {
	return func(r *Resolver) { r.logger = logger }
}

// WithMaxDepth overrides the defensive recursion bound.
func WithMaxDepth(depth int) Option {
	return func(r *Resolver) { r.maxDepth = depth }
}

// Resolver computes column origins, memoizing per (node identity, column) so
// subtrees shared by several parents are resolved once. A Resolver is cheap
// to create and not safe for concurrent use; give each concurrent resolution
// pass its own.
type Resolver struct {
	logger   *slog.Logger
	maxDepth int
	depth    int
	memo     map[memoKey]*origin.Set
}

type memoKey struct {
	node rel.Node
	col  int
}

// New creates a resolver.
func New(opts ...Option) *Resolver {
	r := &Resolver{
		logger:   slog.New(slog.DiscardHandler),
		maxDepth: DefaultMaxDepth,
		memo:     make(map[memoKey]*origin.Set),
	}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// ColumnOrigins resolves the provenance of node's col-th output column.
//
// A nil set with a nil error means the provenance cannot be determined. An
// error reports a contract violation: a column index outside the node's
// output arity, or a structurally malformed node.
func (r *Resolver) ColumnOrigins(node rel.Node, col int) (*origin.Set, error) {
	if node == nil {
		return nil, errors.New("provenance: nil node")
	}
	return r.resolve(node, col)
}

func (r *Resolver) resolve(node rel.Node, col int) (*origin.Set, error) {
	if arity := node.RowType().FieldCount(); col < 0 || col >= arity {
		return nil, fmt.Errorf("provenance: column %d out of range for %T with %d output fields", col, node, arity)
	}

	key := memoKey{node: node, col: col}
	if set, ok := r.memo[key]; ok {
		return set, nil
	}

	r.depth++
	defer func() { r.depth-- }()
	if r.depth > r.maxDepth {
		return nil, fmt.Errorf("%w (%d)", ErrDepthExceeded, r.maxDepth)
	}

	set, err := r.dispatch(node, col)
	if err != nil {
		return nil, err
	}
	r.memo[key] = set
	return set, nil
}

// dispatch selects the rule for the node's runtime variant. Operators without
// a specific rule fall through to the single-input pass-through when their
// shape allows it, else to the generic leaf rule.
func (r *Resolver) dispatch(node rel.Node, col int) (*origin.Set, error) {
	switch n := node.(type) {
	case *rel.Aggregate:
		return r.aggregateOrigins(n, col)
	case *rel.Join:
		return r.joinOrigins(n, col)
	case *rel.Correlate:
		return r.correlateOrigins(n, col)
	case *rel.SetOp:
		return r.setOpOrigins(n, col)
	case *rel.Project:
		return r.projectOrigins(n, col)
	case *rel.Match:
		return r.matchOrigins(n, col)
	case *rel.Window:
		return r.windowOrigins(n, col)
	case *rel.Calc:
		return r.calcOrigins(n, col)
	case *rel.TableFunctionScan:
		return r.tableFunctionScanOrigins(n, col)
	case rel.SingleInput:
		// Filter, Sort, Exchange, TableModify, Snapshot, Watermark and any
		// future operator whose output row is its input's: pure pass-through.
		return r.resolve(n.Input(), col)
	default:
		return r.genericOrigins(node, col)
	}
}

// collectInputOrigins unions the provenance of every input-column reference
// under expr, resolved against input. References whose own provenance is
// unknown contribute nothing; they do not poison the union.
func (r *Resolver) collectInputOrigins(expr rex.Node, input rel.Node) (*origin.Set, error) {
	set := origin.NewSet()
	var walkErr error
	rex.Walk(expr, func(n rex.Node) bool {
		ref, ok := n.(*rex.InputRef)
		if !ok {
			return true
		}
		inputSet, err := r.resolve(input, ref.Index)
		if err != nil {
			walkErr = err
			return false
		}
		set.AddAll(inputSet)
		return true
	})
	if walkErr != nil {
		return nil, walkErr
	}
	return set, nil
}
