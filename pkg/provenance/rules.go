package provenance

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/leapstack-labs/relineage/pkg/origin"
	"github.com/leapstack-labs/relineage/pkg/rel"
	"github.com/leapstack-labs/relineage/pkg/rex"
)

// aggregateOrigins: group keys are verbatim copies of input columns, so they
// delegate undecorated. Aggregate output columns union the origins of every
// call argument, marked derived with the call's textual signature.
func (r *Resolver) aggregateOrigins(n *rel.Aggregate, col int) (*origin.Set, error) {
	if col < len(n.GroupSet) {
		return r.resolve(n.In, n.GroupSet[col])
	}
	callIdx := col - len(n.GroupSet)
	if callIdx >= len(n.Calls) {
		return nil, fmt.Errorf("provenance: aggregate column %d has no group key or call", col)
	}
	call := n.Calls[callIdx]

	set := origin.NewSet()
	for _, arg := range call.Args {
		inputSet, err := r.resolve(n.In, arg)
		if err != nil {
			return nil, err
		}
		if inputSet == nil {
			continue
		}
		set.AddAll(origin.DeriveSynthesized(inputSet, call.String(), r.logger))
	}
	return set, nil
}

// joinOrigins: output columns below the left width map to the left input at
// the same index, the rest to the right input shifted by the left width. A
// column whose side can be null-padded by the join type is derived: the value
// is a direct copy but the nullability is new.
func (r *Resolver) joinOrigins(n *rel.Join, col int) (*origin.Set, error) {
	nLeft := n.Left.RowType().FieldCount()

	var set *origin.Set
	var err error
	var derived bool
	if col < nLeft {
		set, err = r.resolve(n.Left, col)
		derived = n.Kind.GeneratesNullsOnLeft()
	} else {
		set, err = r.resolve(n.Right, col-nLeft)
		derived = n.Kind.GeneratesNullsOnRight()
	}
	if err != nil {
		return nil, err
	}
	if set == nil {
		return nil, nil
	}
	if derived {
		set = origin.Derive(set)
	}
	return set, nil
}

// correlateOrigins: left columns pass through. Right columns come from a
// table function whose single operand names one left field; they resolve to
// that field, derived, with a transform built from the call text qualified by
// the produced output field name. Only single-operand table functions are
// supported.
func (r *Resolver) correlateOrigins(n *rel.Correlate, col int) (*origin.Set, error) {
	nLeft := n.Left.RowType().FieldCount()
	if col < nLeft {
		return r.resolve(n.Left, col)
	}

	scan, ok := n.Right.(*rel.TableFunctionScan)
	if !ok {
		return nil, fmt.Errorf("provenance: correlate right input is %T, want table function scan", n.Right)
	}
	if scan.Call == nil || len(scan.Call.Operands) == 0 {
		return nil, fmt.Errorf("provenance: correlate table function %q has no operand", callOp(scan.Call))
	}
	access, ok := scan.Call.Operands[0].(*rex.FieldAccess)
	if !ok {
		return nil, fmt.Errorf("provenance: correlate table function operand is %T, want field access", scan.Call.Operands[0])
	}

	// Resolve the referenced field against the left row shape by name. The
	// table function itself declares no mappings, so going through its own
	// rule would lose the lineage.
	fieldIndex := 0
	for i, name := range n.Left.RowType().FieldNames() {
		if strings.EqualFold(name, access.Field) {
			fieldIndex = i
			break
		}
	}
	set, err := r.resolve(n.Left, fieldIndex)
	if err != nil {
		return nil, err
	}
	if set == nil {
		return nil, nil
	}

	outputField := scan.RowType().Field(col - nLeft).Name
	transform := strings.ReplaceAll(scan.Call.String(), access.String(), access.Field) +
		"." + outputField
	return origin.DeriveWithTransform(set, transform), nil
}

// setOpOrigins: branches are schema-aligned by position, so the result unions
// every branch at the same index. One unknown branch makes the whole result
// unknown; a mismatched branch poisons certainty.
func (r *Resolver) setOpOrigins(n *rel.SetOp, col int) (*origin.Set, error) {
	set := origin.NewSet()
	for _, branch := range n.Branches {
		branchSet, err := r.resolve(branch, col)
		if err != nil {
			return nil, err
		}
		if branchSet == nil {
			return nil, nil
		}
		set.AddAll(branchSet)
	}
	return set, nil
}

// projectOrigins: a bare input reference is a rename/reorder and delegates
// undecorated. Any other expression unions the origins of every referenced
// input column, marked derived with no transform text.
func (r *Resolver) projectOrigins(n *rel.Project, col int) (*origin.Set, error) {
	expr := n.Exprs[col]
	if ref, ok := expr.(*rex.InputRef); ok {
		return r.resolve(n.In, ref.Index)
	}
	set, err := r.collectInputOrigins(expr, n.In)
	if err != nil {
		return nil, err
	}
	return origin.Derive(set), nil
}

// matchOrigins: partition and order key columns are copies and delegate at
// the same index. Measure columns resolve through the first pattern field
// reference found by descending first operands; a measure with no pattern
// reference is a constructed value with empty provenance.
func (r *Resolver) matchOrigins(n *rel.Match, col int) (*origin.Set, error) {
	keyCount := len(n.PartitionKeys) + len(n.OrderKeys)
	if col < keyCount {
		return r.resolve(n.In, col)
	}
	measureIdx := col - keyCount
	if measureIdx >= len(n.Measures) {
		return nil, fmt.Errorf("provenance: match column %d has no key or measure", col)
	}
	expr := n.Measures[measureIdx].Expr

	ref := searchPatternFieldRef(expr)
	if ref == nil {
		return origin.NewSet(), nil
	}
	set, err := r.resolve(n.In, ref.Index)
	if err != nil {
		return nil, err
	}
	if set == nil {
		return nil, nil
	}

	// Only a call-shaped measure yields transform text, taken from its
	// innermost first operand.
	if call, ok := expr.(*rex.Call); ok && len(call.Operands) > 0 {
		return origin.DeriveSynthesized(set, call.Operands[0].String(), r.logger), nil
	}
	return origin.Derive(set), nil
}

// searchPatternFieldRef descends through nested calls, first operand each
// time, and returns the first pattern field reference found.
func searchPatternFieldRef(expr rex.Node) *rex.PatternFieldRef {
	for {
		switch e := expr.(type) {
		case *rex.PatternFieldRef:
			return e
		case *rex.Call:
			if len(e.Operands) == 0 {
				return nil
			}
			expr = e.Operands[0]
		default:
			return nil
		}
	}
}

// windowOrigins: fields synthesized by a window group follow the planner
// naming convention "w<group>$<ordinal>". No structural tag distinguishes
// them in the row shape, so the name is parsed; a matching field unions the
// origins of the group's partition and order keys, undecorated (the keys are
// copied verbatim into the frame). One unknown key makes the whole result
// unknown. Anything else passes through.
func (r *Resolver) windowOrigins(n *rel.Window, col int) (*origin.Set, error) {
	name := n.RowType().Field(col).Name
	groupIndex, ok := parseWindowFieldName(name)
	if !ok {
		return r.resolve(n.In, col)
	}

	set := origin.NewSet()
	if len(n.Groups) == 0 {
		return set, nil
	}
	if groupIndex >= len(n.Groups) {
		return nil, fmt.Errorf("provenance: window field %q references group %d of %d", name, groupIndex, len(n.Groups))
	}
	group := n.Groups[groupIndex]
	for _, key := range group.Keys {
		keySet, err := r.resolve(n.In, key)
		if err != nil {
			return nil, err
		}
		if keySet == nil {
			return nil, nil
		}
		set.AddAll(keySet)
	}
	for _, collation := range group.OrderKeys {
		keySet, err := r.resolve(n.In, collation.Field)
		if err != nil {
			return nil, err
		}
		if keySet == nil {
			return nil, nil
		}
		set.AddAll(keySet)
	}
	return set, nil
}

// parseWindowFieldName recognizes the "w<group>$<ordinal>" convention, e.g.
// "w1$o0", and extracts the group index.
func parseWindowFieldName(name string) (int, bool) {
	if !strings.HasPrefix(name, "w") {
		return 0, false
	}
	dollar := strings.IndexByte(name, '$')
	if dollar < 0 {
		return 0, false
	}
	groupIndex, err := strconv.Atoi(name[1:dollar])
	if err != nil || groupIndex < 0 {
		return 0, false
	}
	return groupIndex, true
}

// calcOrigins: the projected expression is expanded to its full form first.
// A bare input reference delegates; a zero-operand call (a synthesized field
// like LOCALTIMESTAMP) tries the leaf fallback; anything else unions the
// referenced input columns, derived with the expression text as transform.
func (r *Resolver) calcOrigins(n *rel.Calc, col int) (*origin.Set, error) {
	if col >= len(n.Program.Projects) {
		return nil, fmt.Errorf("provenance: calc column %d has no projection", col)
	}
	expr := n.Program.ExpandLocalRefs(n.Program.Projects[col])

	switch e := expr.(type) {
	case *rex.InputRef:
		return r.resolve(n.In, e.Index)
	case *rex.Call:
		if len(e.Operands) == 0 {
			return r.calcLeafFallback(n, col), nil
		}
	}

	set, err := r.collectInputOrigins(expr, n.In)
	if err != nil {
		return nil, err
	}
	return origin.DeriveSynthesized(set, expr.String(), r.logger), nil
}

// calcLeafFallback handles fields synthesized over a scan with no expression
// input, e.g. "created_at AS LOCALTIMESTAMP" declared on the source table:
// the output field name is matched case-insensitively against the input
// table's declared schema.
func (r *Resolver) calcLeafFallback(n *rel.Calc, col int) *origin.Set {
	table := n.In.Table()
	if table == nil {
		return origin.NewSet()
	}
	target := n.RowType().Field(col).Name
	for i, name := range table.RowType().FieldNames() {
		if strings.EqualFold(name, target) {
			return origin.NewSet(origin.ColumnOrigin{Table: table, Ordinal: i})
		}
	}
	return origin.NewSet()
}

// tableFunctionScanOrigins: with no declared column mappings, a leaf function
// generates values from nothing (empty) and a non-leaf one cannot be reasoned
// about (unknown). With mappings, every entry targeting this column is
// resolved and unioned; one unknown mapping makes the whole result unknown.
func (r *Resolver) tableFunctionScanOrigins(n *rel.TableFunctionScan, col int) (*origin.Set, error) {
	if n.Mappings == nil {
		if len(n.Children) > 0 {
			return nil, nil
		}
		return origin.NewSet(), nil
	}

	set := origin.NewSet()
	for _, m := range n.Mappings {
		if m.Output != col {
			continue
		}
		if m.InputRel < 0 || m.InputRel >= len(n.Children) {
			return nil, fmt.Errorf("provenance: table function mapping references input %d of %d", m.InputRel, len(n.Children))
		}
		mapped, err := r.resolve(n.Children[m.InputRel], m.InputColumn)
		if err != nil {
			return nil, err
		}
		if mapped == nil {
			return nil, nil
		}
		if m.Derived {
			mapped = origin.Derive(mapped)
		}
		set.AddAll(mapped)
	}
	return set, nil
}

// genericOrigins is the catch-all. Non-leaf operators cannot be reasoned
// about generically (unknown). A leaf without a table constructs its values
// (empty). A leaf whose row shape differs from its table's declared shape is
// suspected of a hidden projection or rename (unknown). Otherwise the column
// maps one-to-one onto the table.
func (r *Resolver) genericOrigins(n rel.Node, col int) (*origin.Set, error) {
	if len(n.Inputs()) > 0 {
		return nil, nil
	}
	table := n.Table()
	if table == nil {
		return origin.NewSet(), nil
	}
	if table.RowType() != n.RowType() {
		return nil, nil
	}
	return origin.NewSet(origin.ColumnOrigin{Table: table, Ordinal: col}), nil
}

func callOp(c *rex.Call) string {
	if c == nil {
		return ""
	}
	return c.Op
}
