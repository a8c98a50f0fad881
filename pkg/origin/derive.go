package origin

import "log/slog"

// Derive returns a copy of set with every origin marked derived. Any prior
// transform text is dropped: the marker records that a transformation
// happened, not what it was.
func Derive(set *Set) *Set {
	out := NewSet()
	for _, o := range set.Origins() {
		out.Add(ColumnOrigin{Table: o.Table, Ordinal: o.Ordinal, Derived: true})
	}
	return out
}

// DeriveWithTransform returns a copy of set with every origin marked derived
// and annotated with the given transform text verbatim.
func DeriveWithTransform(set *Set, transform string) *Set {
	out := NewSet()
	for _, o := range set.Origins() {
		out.Add(ColumnOrigin{Table: o.Table, Ordinal: o.Ordinal, Derived: true, Transform: transform})
	}
	return out
}

// DeriveSynthesized marks every origin derived and attaches transform text
// synthesized from expr, a textual expression with positional $N
// placeholders. When synthesis fails (no placeholders, or a placeholder count
// that does not match the set) the origins stay derived without transform
// text; failure is diagnostic, not fatal.
func DeriveSynthesized(set *Set, expr string, logger *slog.Logger) *Set {
	if set.Len() == 0 {
		return NewSet()
	}
	transform, ok := SynthesizeTransform(set, expr, logger)
	if !ok {
		return Derive(set)
	}
	return DeriveWithTransform(set, transform)
}
