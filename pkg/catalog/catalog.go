// Package catalog provides an in-memory implementation of the read-only
// table metadata surface consumed by provenance resolution.
package catalog

import (
	"sort"
	"strings"

	"github.com/leapstack-labs/relineage/pkg/rel"
)

// Table is an immutable base-table description.
type Table struct {
	name []string
	row  *rel.RowType
}

// NewTable builds a table from its qualified name chain and declared fields.
func NewTable(qualifiedName []string, fields ...rel.Field) *Table {
	return &Table{
		name: append([]string{}, qualifiedName...),
		row:  rel.NewRowType(fields...),
	}
}

// QualifiedName returns the identifier chain locating the table.
func (t *Table) QualifiedName() []string { return t.name }

// RowType returns the declared schema. The pointer is stable for the lifetime
// of the table, so scan nodes sharing it satisfy the row-shape identity check.
func (t *Table) RowType() *rel.RowType { return t.row }

// Name returns the qualified name joined with dots.
func (t *Table) Name() string { return strings.Join(t.name, ".") }

var _ rel.Table = (*Table)(nil)

// Catalog is a lookup of tables by qualified name.
type Catalog struct {
	tables map[string]*Table
}

// New creates an empty catalog.
func New() *Catalog {
	return &Catalog{tables: make(map[string]*Table)}
}

// Add registers a table, replacing any previous entry with the same name.
func (c *Catalog) Add(t *Table) {
	c.tables[t.Name()] = t
}

// Lookup finds a table by its qualified name segments.
func (c *Catalog) Lookup(qualifiedName ...string) (*Table, bool) {
	t, ok := c.tables[strings.Join(qualifiedName, ".")]
	return t, ok
}

// Tables returns all tables sorted by qualified name.
func (c *Catalog) Tables() []*Table {
	out := make([]*Table, 0, len(c.tables))
	for _, t := range c.tables {
		out = append(out, t)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Name() < out[j].Name() })
	return out
}
