// Package rel defines the relational operator tree that provenance queries
// read. The variant set is closed: every operator the resolver understands is
// a concrete node type in this package, and anything else falls through to
// the generic rule.
//
// Nodes are shared by reference. A plan is a DAG, not necessarily a tree: one
// input subtree may be reachable from several parents, and node identity
// (pointer identity) is what distinguishes two structurally equal nodes.
// Nothing in this package mutates a node after construction.
package rel

// Node is a relational operator.
type Node interface {
	// Inputs returns the child operators, possibly empty.
	Inputs() []Node
	// RowType describes the ordered output row shape.
	RowType() *RowType
	// Table returns the physical table backing this node, or nil for
	// every operator that is not scan-backed.
	Table() Table
}

// SingleInput is implemented by operators with exactly one input whose output
// row is positionally identical to that input's row. The resolver treats any
// such operator it has no specific rule for as a pass-through.
type SingleInput interface {
	Node
	Input() Node
}

// Table is the read-only metadata surface of a base table.
type Table interface {
	// QualifiedName is the ordered identifier chain locating the table,
	// conventionally catalog, database, table.
	QualifiedName() []string
	// RowType is the declared schema. Row-shape identity is pointer
	// identity: a scan whose RowType differs from its table's RowType is
	// performing a hidden projection.
	RowType() *RowType
}

// Field is one column of a row shape.
type Field struct {
	Name string
	Type string
}

// RowType is an ordered list of output fields.
type RowType struct {
	fields []Field
}

// NewRowType builds a row type from the given fields.
func NewRowType(fields ...Field) *RowType {
	return &RowType{fields: fields}
}

// FieldCount returns the number of fields.
func (t *RowType) FieldCount() int { return len(t.fields) }

// Field returns the i-th field.
func (t *RowType) Field(i int) Field { return t.fields[i] }

// FieldNames returns the ordered field names.
func (t *RowType) FieldNames() []string {
	names := make([]string, len(t.fields))
	for i, f := range t.fields {
		names[i] = f.Name
	}
	return names
}
