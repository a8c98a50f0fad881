// Package origin defines the column provenance record and the set algebra
// used when combining provenance across operator branches, plus the
// human-readable transform synthesizer.
package origin

import (
	"fmt"
	"strings"

	"github.com/leapstack-labs/relineage/pkg/rel"
)

// ColumnOrigin records one base-table column an output column derives from.
//
// Derived is false for verbatim pass-through and true when any transformation
// sits between the base column and the output (expression, aggregation,
// null-generating join side, ...). Transform optionally carries a readable
// reconstruction of that transformation; a non-derived origin never has one.
type ColumnOrigin struct {
	Table     rel.Table
	Ordinal   int
	Derived   bool
	Transform string
}

// key identifies an origin for set membership. Two origins are equal iff
// table qualified name, ordinal, derived flag and transform all match.
func (o ColumnOrigin) key() string {
	return fmt.Sprintf("%s#%d#%t#%s",
		strings.Join(o.Table.QualifiedName(), "."), o.Ordinal, o.Derived, o.Transform)
}

// FieldName returns the declared name of the origin column in its base table.
func (o ColumnOrigin) FieldName() string {
	return o.Table.RowType().Field(o.Ordinal).Name
}

// Set is an insertion-ordered set of column origins. Duplicates collapse; the
// order is stable for deterministic output but carries no meaning.
type Set struct {
	items []ColumnOrigin
	index map[string]struct{}
}

// NewSet builds a set from the given origins.
func NewSet(origins ...ColumnOrigin) *Set {
	s := &Set{index: make(map[string]struct{})}
	for _, o := range origins {
		s.Add(o)
	}
	return s
}

// Add inserts o unless an equal origin is already present.
func (s *Set) Add(o ColumnOrigin) {
	k := o.key()
	if _, ok := s.index[k]; ok {
		return
	}
	s.index[k] = struct{}{}
	s.items = append(s.items, o)
}

// AddAll inserts every origin of other.
func (s *Set) AddAll(other *Set) {
	if other == nil {
		return
	}
	for _, o := range other.items {
		s.Add(o)
	}
}

// Len returns the number of distinct origins.
func (s *Set) Len() int { return len(s.items) }

// Origins returns the origins in insertion order. The slice is shared; do not
// mutate it.
func (s *Set) Origins() []ColumnOrigin { return s.items }

// Equal reports whether both sets contain the same origins, order ignored.
func (s *Set) Equal(other *Set) bool {
	if s.Len() != other.Len() {
		return false
	}
	for k := range s.index {
		if _, ok := other.index[k]; !ok {
			return false
		}
	}
	return true
}
