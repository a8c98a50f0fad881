package planfile

import (
	"fmt"

	"github.com/leapstack-labs/relineage/pkg/catalog"
	"github.com/leapstack-labs/relineage/pkg/rel"
	"github.com/leapstack-labs/relineage/pkg/rex"
)

type planJSON struct {
	Version int         `json:"version"`
	Tables  []tableJSON `json:"tables"`
	Nodes   []nodeJSON  `json:"nodes"`
	Root    string      `json:"root"`
}

type tableJSON struct {
	Name   []string    `json:"name"`
	Fields []fieldJSON `json:"fields"`
}

type fieldJSON struct {
	Name string `json:"name"`
	Type string `json:"type,omitempty"`
}

type nodeJSON struct {
	ID     string   `json:"id"`
	Kind   string   `json:"kind"`
	Inputs []string `json:"inputs,omitempty"`

	Table  []string    `json:"table,omitempty"`  // scan
	Fields []fieldJSON `json:"fields,omitempty"` // explicit output row shape

	Exprs     []exprJSON `json:"exprs,omitempty"`     // project, calc private list
	Projects  []exprJSON `json:"projects,omitempty"`  // calc
	Condition *exprJSON  `json:"condition,omitempty"` // filter, calc, join

	JoinType string `json:"joinType,omitempty"`

	SetOp string `json:"setOp,omitempty"`
	All   bool   `json:"all,omitempty"`

	Group []int     `json:"group,omitempty"` // aggregate keys
	Aggs  []aggJSON `json:"aggs,omitempty"`

	Groups []windowGroupJSON `json:"groups,omitempty"` // window

	Partition []int           `json:"partition,omitempty"` // match
	Order     []collationJSON `json:"order,omitempty"`     // match, sort
	Measures  []measureJSON   `json:"measures,omitempty"`

	Call     *exprJSON     `json:"call,omitempty"` // table function
	Mappings []mappingJSON `json:"mappings,omitempty"`

	Operation string `json:"operation,omitempty"` // modify
	Keys      []int  `json:"keys,omitempty"`      // exchange
	RowTime   string `json:"rowTime,omitempty"`   // watermark
}

type aggJSON struct {
	Func     string `json:"func"`
	Args     []int  `json:"args"`
	Distinct bool   `json:"distinct,omitempty"`
	Name     string `json:"name,omitempty"`
}

type collationJSON struct {
	Field int  `json:"field"`
	Desc  bool `json:"desc,omitempty"`
}

type windowGroupJSON struct {
	Keys  []int           `json:"keys"`
	Order []collationJSON `json:"order,omitempty"`
}

type measureJSON struct {
	Name string   `json:"name"`
	Expr exprJSON `json:"expr"`
}

type mappingJSON struct {
	Output  int  `json:"output"`
	Input   int  `json:"input"`
	Column  int  `json:"column"`
	Derived bool `json:"derived,omitempty"`
}

// exprJSON is a tagged union; exactly one of the variant fields is set.
type exprJSON struct {
	Input    *int       `json:"input,omitempty"`
	Local    *int       `json:"local,omitempty"`
	Pattern  *int       `json:"pattern,omitempty"`
	Alpha    string     `json:"alpha,omitempty"`
	Literal  *string    `json:"literal,omitempty"`
	Call     string     `json:"call,omitempty"`
	Operands []exprJSON `json:"operands,omitempty"`
	Field    string     `json:"field,omitempty"`
	Of       *exprJSON  `json:"of,omitempty"`
	Correl   string     `json:"correl,omitempty"`
}

type builder struct {
	catalog  *catalog.Catalog
	byID     map[string]nodeJSON
	decoded  map[string]rel.Node
	building map[string]bool
}

func (b *builder) node(id string) (rel.Node, error) {
	if n, ok := b.decoded[id]; ok {
		return n, nil
	}
	if b.building[id] {
		return nil, fmt.Errorf("node %q participates in a cycle", id)
	}
	spec, ok := b.byID[id]
	if !ok {
		return nil, fmt.Errorf("unknown node id %q", id)
	}
	b.building[id] = true
	defer delete(b.building, id)

	node, err := b.build(spec)
	if err != nil {
		return nil, fmt.Errorf("node %q: %w", id, err)
	}
	b.decoded[id] = node
	return node, nil
}

func (b *builder) inputs(spec nodeJSON, want int) ([]rel.Node, error) {
	if want >= 0 && len(spec.Inputs) != want {
		return nil, fmt.Errorf("%s node needs %d inputs, has %d", spec.Kind, want, len(spec.Inputs))
	}
	nodes := make([]rel.Node, len(spec.Inputs))
	for i, id := range spec.Inputs {
		n, err := b.node(id)
		if err != nil {
			return nil, err
		}
		nodes[i] = n
	}
	return nodes, nil
}

func (b *builder) rowType(spec nodeJSON) (*rel.RowType, error) {
	if len(spec.Fields) == 0 {
		return nil, fmt.Errorf("%s node needs explicit fields", spec.Kind)
	}
	fields := make([]rel.Field, len(spec.Fields))
	for i, f := range spec.Fields {
		fields[i] = rel.Field{Name: f.Name, Type: f.Type}
	}
	return rel.NewRowType(fields...), nil
}

func (b *builder) build(spec nodeJSON) (rel.Node, error) {
	switch spec.Kind {
	case "scan":
		table, ok := b.catalog.Lookup(spec.Table...)
		if !ok {
			return nil, fmt.Errorf("scan references undeclared table %v", spec.Table)
		}
		scan := &rel.TableScan{Source: table}
		if len(spec.Fields) > 0 {
			// An explicit row shape models a source with a hidden
			// projection or rename.
			row, err := b.rowType(spec)
			if err != nil {
				return nil, err
			}
			scan.Row = row
		}
		return scan, nil

	case "values":
		row, err := b.rowType(spec)
		if err != nil {
			return nil, err
		}
		return &rel.Values{Row: row}, nil

	case "project":
		in, err := b.inputs(spec, 1)
		if err != nil {
			return nil, err
		}
		row, err := b.rowType(spec)
		if err != nil {
			return nil, err
		}
		exprs, err := decodeExprs(spec.Exprs)
		if err != nil {
			return nil, err
		}
		if len(exprs) != row.FieldCount() {
			return nil, fmt.Errorf("project has %d exprs for %d fields", len(exprs), row.FieldCount())
		}
		return &rel.Project{In: in[0], Exprs: exprs, Row: row}, nil

	case "filter":
		in, err := b.inputs(spec, 1)
		if err != nil {
			return nil, err
		}
		cond, err := decodeOptionalExpr(spec.Condition)
		if err != nil {
			return nil, err
		}
		return &rel.Filter{In: in[0], Condition: cond}, nil

	case "calc":
		in, err := b.inputs(spec, 1)
		if err != nil {
			return nil, err
		}
		row, err := b.rowType(spec)
		if err != nil {
			return nil, err
		}
		exprs, err := decodeExprs(spec.Exprs)
		if err != nil {
			return nil, err
		}
		projects, err := decodeExprs(spec.Projects)
		if err != nil {
			return nil, err
		}
		if len(projects) != row.FieldCount() {
			return nil, fmt.Errorf("calc has %d projections for %d fields", len(projects), row.FieldCount())
		}
		cond, err := decodeOptionalExpr(spec.Condition)
		if err != nil {
			return nil, err
		}
		return &rel.Calc{In: in[0], Program: &rel.Program{
			Exprs:     exprs,
			Projects:  projects,
			Condition: cond,
			OutputRow: row,
		}}, nil

	case "join":
		in, err := b.inputs(spec, 2)
		if err != nil {
			return nil, err
		}
		kind, err := joinType(spec.JoinType)
		if err != nil {
			return nil, err
		}
		cond, err := decodeOptionalExpr(spec.Condition)
		if err != nil {
			return nil, err
		}
		return rel.NewJoin(in[0], in[1], kind, cond), nil

	case "correlate":
		in, err := b.inputs(spec, 2)
		if err != nil {
			return nil, err
		}
		return rel.NewCorrelate(in[0], in[1]), nil

	case "setop":
		in, err := b.inputs(spec, -1)
		if err != nil {
			return nil, err
		}
		if len(in) < 2 {
			return nil, fmt.Errorf("setop needs at least 2 inputs, has %d", len(in))
		}
		kind, err := setOpKind(spec.SetOp)
		if err != nil {
			return nil, err
		}
		return &rel.SetOp{Kind: kind, All: spec.All, Branches: in}, nil

	case "aggregate":
		in, err := b.inputs(spec, 1)
		if err != nil {
			return nil, err
		}
		row, err := b.rowType(spec)
		if err != nil {
			return nil, err
		}
		calls := make([]rel.AggCall, len(spec.Aggs))
		for i, a := range spec.Aggs {
			calls[i] = rel.AggCall{Func: a.Func, Args: a.Args, Distinct: a.Distinct, Name: a.Name}
		}
		if len(spec.Group)+len(calls) != row.FieldCount() {
			return nil, fmt.Errorf("aggregate has %d keys and %d calls for %d fields",
				len(spec.Group), len(calls), row.FieldCount())
		}
		return &rel.Aggregate{In: in[0], GroupSet: spec.Group, Calls: calls, Row: row}, nil

	case "window":
		in, err := b.inputs(spec, 1)
		if err != nil {
			return nil, err
		}
		row, err := b.rowType(spec)
		if err != nil {
			return nil, err
		}
		groups := make([]rel.WindowGroup, len(spec.Groups))
		for i, g := range spec.Groups {
			groups[i] = rel.WindowGroup{Keys: g.Keys, OrderKeys: collations(g.Order)}
		}
		return &rel.Window{In: in[0], Groups: groups, Row: row}, nil

	case "match":
		in, err := b.inputs(spec, 1)
		if err != nil {
			return nil, err
		}
		row, err := b.rowType(spec)
		if err != nil {
			return nil, err
		}
		measures := make([]rel.Measure, len(spec.Measures))
		for i, m := range spec.Measures {
			expr, err := decodeExpr(m.Expr)
			if err != nil {
				return nil, err
			}
			measures[i] = rel.Measure{Name: m.Name, Expr: expr}
		}
		return &rel.Match{
			In:            in[0],
			PartitionKeys: spec.Partition,
			OrderKeys:     collations(spec.Order),
			Measures:      measures,
			Row:           row,
		}, nil

	case "tablefunc":
		in, err := b.inputs(spec, -1)
		if err != nil {
			return nil, err
		}
		row, err := b.rowType(spec)
		if err != nil {
			return nil, err
		}
		var call *rex.Call
		if spec.Call != nil {
			expr, err := decodeExpr(*spec.Call)
			if err != nil {
				return nil, err
			}
			c, ok := expr.(*rex.Call)
			if !ok {
				return nil, fmt.Errorf("tablefunc call must be a call expression, got %T", expr)
			}
			call = c
		}
		var mappings []rel.ColumnMapping
		if spec.Mappings != nil {
			mappings = make([]rel.ColumnMapping, len(spec.Mappings))
			for i, m := range spec.Mappings {
				mappings[i] = rel.ColumnMapping{
					Output:      m.Output,
					InputRel:    m.Input,
					InputColumn: m.Column,
					Derived:     m.Derived,
				}
			}
		}
		return &rel.TableFunctionScan{Children: in, Call: call, Mappings: mappings, Row: row}, nil

	case "sort":
		in, err := b.inputs(spec, 1)
		if err != nil {
			return nil, err
		}
		return &rel.Sort{In: in[0], Collations: collations(spec.Order)}, nil

	case "exchange":
		in, err := b.inputs(spec, 1)
		if err != nil {
			return nil, err
		}
		return &rel.Exchange{In: in[0], Keys: spec.Keys}, nil

	case "modify":
		in, err := b.inputs(spec, 1)
		if err != nil {
			return nil, err
		}
		var target rel.Table
		if len(spec.Table) > 0 {
			t, ok := b.catalog.Lookup(spec.Table...)
			if !ok {
				return nil, fmt.Errorf("modify references undeclared table %v", spec.Table)
			}
			target = t
		}
		return &rel.TableModify{In: in[0], Operation: spec.Operation, Target: target}, nil

	case "snapshot":
		in, err := b.inputs(spec, 1)
		if err != nil {
			return nil, err
		}
		return &rel.Snapshot{In: in[0]}, nil

	case "watermark":
		in, err := b.inputs(spec, 1)
		if err != nil {
			return nil, err
		}
		return &rel.Watermark{In: in[0], RowTimeField: spec.RowTime}, nil

	default:
		return nil, fmt.Errorf("unknown node kind %q", spec.Kind)
	}
}

func joinType(s string) (rel.JoinType, error) {
	switch s {
	case "inner", "":
		return rel.JoinInner, nil
	case "left":
		return rel.JoinLeft, nil
	case "right":
		return rel.JoinRight, nil
	case "full":
		return rel.JoinFull, nil
	case "semi":
		return rel.JoinSemi, nil
	case "anti":
		return rel.JoinAnti, nil
	}
	return 0, fmt.Errorf("unknown join type %q", s)
}

func setOpKind(s string) (rel.SetOpKind, error) {
	switch s {
	case "union", "":
		return rel.SetOpUnion, nil
	case "intersect":
		return rel.SetOpIntersect, nil
	case "except":
		return rel.SetOpExcept, nil
	}
	return 0, fmt.Errorf("unknown set operation %q", s)
}

func collations(cs []collationJSON) []rel.FieldCollation {
	out := make([]rel.FieldCollation, len(cs))
	for i, c := range cs {
		out[i] = rel.FieldCollation{Field: c.Field, Descending: c.Desc}
	}
	return out
}

func decodeExprs(specs []exprJSON) ([]rex.Node, error) {
	out := make([]rex.Node, len(specs))
	for i, s := range specs {
		expr, err := decodeExpr(s)
		if err != nil {
			return nil, err
		}
		out[i] = expr
	}
	return out, nil
}

func decodeOptionalExpr(spec *exprJSON) (rex.Node, error) {
	if spec == nil {
		return nil, nil
	}
	return decodeExpr(*spec)
}

func decodeExpr(spec exprJSON) (rex.Node, error) {
	switch {
	case spec.Input != nil:
		return &rex.InputRef{Index: *spec.Input}, nil
	case spec.Local != nil:
		return &rex.LocalRef{Index: *spec.Local}, nil
	case spec.Pattern != nil:
		return &rex.PatternFieldRef{Alpha: spec.Alpha, Index: *spec.Pattern}, nil
	case spec.Literal != nil:
		return &rex.Literal{Text: *spec.Literal}, nil
	case spec.Correl != "":
		if spec.Field != "" {
			return &rex.FieldAccess{Expr: &rex.CorrelVariable{Name: spec.Correl}, Field: spec.Field}, nil
		}
		return &rex.CorrelVariable{Name: spec.Correl}, nil
	case spec.Field != "":
		if spec.Of == nil {
			return nil, fmt.Errorf("field access %q needs an %q expression", spec.Field, "of")
		}
		of, err := decodeExpr(*spec.Of)
		if err != nil {
			return nil, err
		}
		return &rex.FieldAccess{Expr: of, Field: spec.Field}, nil
	case spec.Call != "":
		operands, err := decodeExprs(spec.Operands)
		if err != nil {
			return nil, err
		}
		return &rex.Call{Op: spec.Call, Operands: operands}, nil
	}
	return nil, fmt.Errorf("expression is not one of input/local/pattern/literal/call/field/correl")
}
