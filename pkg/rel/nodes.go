package rel

import (
	"fmt"
	"strings"

	"github.com/leapstack-labs/relineage/pkg/rex"
)

// JoinType enumerates the supported join semantics.
type JoinType int

const (
	JoinInner JoinType = iota
	JoinLeft
	JoinRight
	JoinFull
	JoinSemi
	JoinAnti
)

// GeneratesNullsOnLeft reports whether rows from the left input can be
// null-padded by this join type.
func (t JoinType) GeneratesNullsOnLeft() bool { return t == JoinRight || t == JoinFull }

// GeneratesNullsOnRight reports whether rows from the right input can be
// null-padded by this join type.
func (t JoinType) GeneratesNullsOnRight() bool { return t == JoinLeft || t == JoinFull }

func (t JoinType) String() string {
	switch t {
	case JoinInner:
		return "inner"
	case JoinLeft:
		return "left"
	case JoinRight:
		return "right"
	case JoinFull:
		return "full"
	case JoinSemi:
		return "semi"
	case JoinAnti:
		return "anti"
	}
	return fmt.Sprintf("JoinType(%d)", int(t))
}

// SetOpKind enumerates set operations.
type SetOpKind int

const (
	SetOpUnion SetOpKind = iota
	SetOpIntersect
	SetOpExcept
)

func (k SetOpKind) String() string {
	switch k {
	case SetOpUnion:
		return "union"
	case SetOpIntersect:
		return "intersect"
	case SetOpExcept:
		return "except"
	}
	return fmt.Sprintf("SetOpKind(%d)", int(k))
}

// FieldCollation is one sort key.
type FieldCollation struct {
	Field      int
	Descending bool
}

// TableScan reads a base table. Row may differ from the table's declared row
// type when the scan performs a hidden projection or rename; the resolver
// refuses to guess in that case.
type TableScan struct {
	Source Table
	Row    *RowType
}

func (s *TableScan) Inputs() []Node { return nil }
func (s *TableScan) Table() Table   { return s.Source }

func (s *TableScan) RowType() *RowType {
	if s.Row != nil {
		return s.Row
	}
	return s.Source.RowType()
}

// Values produces literal rows out of thin air.
type Values struct {
	Row *RowType
}

func (v *Values) Inputs() []Node    { return nil }
func (v *Values) RowType() *RowType { return v.Row }
func (v *Values) Table() Table      { return nil }

// Project computes one output expression per output column.
type Project struct {
	In    Node
	Exprs []rex.Node
	Row   *RowType
}

func (p *Project) Inputs() []Node    { return []Node{p.In} }
func (p *Project) RowType() *RowType { return p.Row }
func (p *Project) Table() Table      { return nil }

// Filter drops rows; the row shape is the input's.
type Filter struct {
	In        Node
	Condition rex.Node
}

func (f *Filter) Inputs() []Node    { return []Node{f.In} }
func (f *Filter) Input() Node       { return f.In }
func (f *Filter) RowType() *RowType { return f.In.RowType() }
func (f *Filter) Table() Table      { return nil }

// Sort reorders rows; the row shape is the input's.
type Sort struct {
	In         Node
	Collations []FieldCollation
}

func (s *Sort) Inputs() []Node    { return []Node{s.In} }
func (s *Sort) Input() Node       { return s.In }
func (s *Sort) RowType() *RowType { return s.In.RowType() }
func (s *Sort) Table() Table      { return nil }

// Exchange redistributes rows across streams; the row shape is the input's.
type Exchange struct {
	In   Node
	Keys []int
}

func (e *Exchange) Inputs() []Node    { return []Node{e.In} }
func (e *Exchange) Input() Node       { return e.In }
func (e *Exchange) RowType() *RowType { return e.In.RowType() }
func (e *Exchange) Table() Table      { return nil }

// TableModify writes rows to a target table; for provenance purposes its
// output columns are the input's.
type TableModify struct {
	In        Node
	Operation string // "insert", "update", "delete", "merge"
	Target    Table
}

func (m *TableModify) Inputs() []Node    { return []Node{m.In} }
func (m *TableModify) Input() Node       { return m.In }
func (m *TableModify) RowType() *RowType { return m.In.RowType() }
func (m *TableModify) Table() Table      { return nil }

// Snapshot is the probe side of a temporal (lookup) join.
type Snapshot struct {
	In     Node
	Period rex.Node
}

func (s *Snapshot) Inputs() []Node    { return []Node{s.In} }
func (s *Snapshot) Input() Node       { return s.In }
func (s *Snapshot) RowType() *RowType { return s.In.RowType() }
func (s *Snapshot) Table() Table      { return nil }

// Watermark assigns event-time watermarks; columns pass through unchanged.
type Watermark struct {
	In           Node
	RowTimeField string
	Expr         rex.Node
}

func (w *Watermark) Inputs() []Node    { return []Node{w.In} }
func (w *Watermark) Input() Node       { return w.In }
func (w *Watermark) RowType() *RowType { return w.In.RowType() }
func (w *Watermark) Table() Table      { return nil }

// Join combines two inputs; the output row is the left row followed by the
// right row.
type Join struct {
	Left      Node
	Right     Node
	Kind      JoinType
	Condition rex.Node
	Row       *RowType
}

// NewJoin builds a join whose row type is the concatenation of both inputs.
func NewJoin(left, right Node, kind JoinType, condition rex.Node) *Join {
	return &Join{
		Left:      left,
		Right:     right,
		Kind:      kind,
		Condition: condition,
		Row:       concatRowTypes(left.RowType(), right.RowType()),
	}
}

func (j *Join) Inputs() []Node    { return []Node{j.Left, j.Right} }
func (j *Join) RowType() *RowType { return j.Row }
func (j *Join) Table() Table      { return nil }

// Correlate cross-applies the right side once per left row (lateral join /
// table function apply). The output row is left followed by right.
type Correlate struct {
	Left  Node
	Right Node
	Row   *RowType
}

// NewCorrelate builds a correlate whose row type is the concatenation of both
// inputs.
func NewCorrelate(left, right Node) *Correlate {
	return &Correlate{
		Left:  left,
		Right: right,
		Row:   concatRowTypes(left.RowType(), right.RowType()),
	}
}

func (c *Correlate) Inputs() []Node    { return []Node{c.Left, c.Right} }
func (c *Correlate) RowType() *RowType { return c.Row }
func (c *Correlate) Table() Table      { return nil }

// SetOp merges any number of schema-aligned branches.
type SetOp struct {
	Kind     SetOpKind
	All      bool
	Branches []Node
}

func (s *SetOp) Inputs() []Node    { return s.Branches }
func (s *SetOp) RowType() *RowType { return s.Branches[0].RowType() }
func (s *SetOp) Table() Table      { return nil }

// AggCall is one aggregate function application.
type AggCall struct {
	Func     string
	Args     []int
	Distinct bool
	Name     string
}

// String renders the call with positional arguments, e.g. "SUM($1)".
func (c AggCall) String() string {
	parts := make([]string, len(c.Args))
	for i, a := range c.Args {
		parts[i] = fmt.Sprintf("$%d", a)
	}
	args := strings.Join(parts, ", ")
	if c.Distinct {
		args = "DISTINCT " + args
	}
	return c.Func + "(" + args + ")"
}

// Aggregate groups by GroupSet and computes Calls. Output columns are the
// group keys in GroupSet order followed by one column per call.
type Aggregate struct {
	In       Node
	GroupSet []int
	Calls    []AggCall
	Row      *RowType
}

func (a *Aggregate) Inputs() []Node    { return []Node{a.In} }
func (a *Aggregate) RowType() *RowType { return a.Row }
func (a *Aggregate) Table() Table      { return nil }

// WindowGroup is one over-clause grouping: partition keys plus order keys.
type WindowGroup struct {
	Keys      []int
	OrderKeys []FieldCollation
}

// Window evaluates windowed aggregate functions. Synthesized output fields
// follow the planner naming convention "w<group>$<ordinal>" (see the window
// rule in pkg/provenance).
type Window struct {
	In     Node
	Groups []WindowGroup
	Row    *RowType
}

func (w *Window) Inputs() []Node    { return []Node{w.In} }
func (w *Window) RowType() *RowType { return w.Row }
func (w *Window) Table() Table      { return nil }

// Measure is one named MATCH_RECOGNIZE measure.
type Measure struct {
	Name string
	Expr rex.Node
}

// Match is a MATCH_RECOGNIZE (CEP) operator: partition/order keys first, then
// one output column per measure.
type Match struct {
	In            Node
	PartitionKeys []int
	OrderKeys     []FieldCollation
	Measures      []Measure
	Row           *RowType
}

func (m *Match) Inputs() []Node    { return []Node{m.In} }
func (m *Match) RowType() *RowType { return m.Row }
func (m *Match) Table() Table      { return nil }

// ColumnMapping declares how one output column of a table function relates to
// an input column.
type ColumnMapping struct {
	Output      int
	InputRel    int
	InputColumn int
	Derived     bool
}

// TableFunctionScan invokes a table function, either as a leaf source or as a
// transformation over inputs. Mappings is optional metadata; nil means the
// function declared nothing about column provenance.
type TableFunctionScan struct {
	Children []Node
	Call     *rex.Call
	Mappings []ColumnMapping
	Row      *RowType
}

func (t *TableFunctionScan) Inputs() []Node    { return t.Children }
func (t *TableFunctionScan) RowType() *RowType { return t.Row }
func (t *TableFunctionScan) Table() Table      { return nil }

// Calc is a fused filter+project program.
type Calc struct {
	In      Node
	Program *Program
}

func (c *Calc) Inputs() []Node    { return []Node{c.In} }
func (c *Calc) RowType() *RowType { return c.Program.OutputRow }
func (c *Calc) Table() Table      { return nil }

// Program is a Calc's expression program: a private expression list plus
// projections (and optionally a condition) expressed over that list. Projects
// entries are usually local references into Exprs.
type Program struct {
	Exprs     []rex.Node
	Projects  []rex.Node
	Condition rex.Node
	OutputRow *RowType
}

// ExpandLocalRefs rewrites every local reference in expr to the referenced
// expression's full form, recursively.
func (p *Program) ExpandLocalRefs(expr rex.Node) rex.Node {
	switch e := expr.(type) {
	case *rex.LocalRef:
		return p.ExpandLocalRefs(p.Exprs[e.Index])
	case *rex.Call:
		operands := make([]rex.Node, len(e.Operands))
		for i, op := range e.Operands {
			operands[i] = p.ExpandLocalRefs(op)
		}
		return &rex.Call{Op: e.Op, Operands: operands}
	case *rex.FieldAccess:
		return &rex.FieldAccess{Expr: p.ExpandLocalRefs(e.Expr), Field: e.Field}
	default:
		return expr
	}
}

func concatRowTypes(left, right *RowType) *RowType {
	fields := make([]Field, 0, left.FieldCount()+right.FieldCount())
	fields = append(fields, left.fields...)
	fields = append(fields, right.fields...)
	return NewRowType(fields...)
}
