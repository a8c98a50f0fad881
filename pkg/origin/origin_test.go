package origin

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/leapstack-labs/relineage/pkg/catalog"
	"github.com/leapstack-labs/relineage/pkg/rel"
)

func tbl(name []string, fields ...string) *catalog.Table {
	fs := make([]rel.Field, len(fields))
	for i, f := range fields {
		fs[i] = rel.Field{Name: f, Type: "VARCHAR"}
	}
	return catalog.NewTable(name, fs...)
}

func TestSetDeduplicates(t *testing.T) {
	users := tbl([]string{"hive", "shop", "users"}, "id", "name")

	s := NewSet()
	s.Add(ColumnOrigin{Table: users, Ordinal: 0})
	s.Add(ColumnOrigin{Table: users, Ordinal: 0})
	s.Add(ColumnOrigin{Table: users, Ordinal: 1})
	s.Add(ColumnOrigin{Table: users, Ordinal: 0, Derived: true})

	require.Equal(t, 3, s.Len(), "derived flag participates in identity")
	assert.Equal(t, 0, s.Origins()[0].Ordinal)
	assert.Equal(t, 1, s.Origins()[1].Ordinal)
	assert.True(t, s.Origins()[2].Derived)
}

func TestSetEqualIgnoresOrder(t *testing.T) {
	users := tbl([]string{"hive", "shop", "users"}, "id", "name")

	a := NewSet(
		ColumnOrigin{Table: users, Ordinal: 0},
		ColumnOrigin{Table: users, Ordinal: 1},
	)
	b := NewSet(
		ColumnOrigin{Table: users, Ordinal: 1},
		ColumnOrigin{Table: users, Ordinal: 0},
	)
	assert.True(t, a.Equal(b))

	b.Add(ColumnOrigin{Table: users, Ordinal: 1, Derived: true})
	assert.False(t, a.Equal(b))
}

func TestAddAllNilSafe(t *testing.T) {
	s := NewSet()
	s.AddAll(nil)
	assert.Equal(t, 0, s.Len())
}

func TestDerive(t *testing.T) {
	users := tbl([]string{"hive", "shop", "users"}, "id")

	in := NewSet(ColumnOrigin{Table: users, Ordinal: 0, Derived: true, Transform: "UPPER(id)"})
	out := Derive(in)

	require.Equal(t, 1, out.Len())
	o := out.Origins()[0]
	assert.True(t, o.Derived)
	assert.Empty(t, o.Transform, "deriving again discards stale transform text")

	// The input set is untouched.
	assert.Equal(t, "UPPER(id)", in.Origins()[0].Transform)
}

func TestDeriveWithTransform(t *testing.T) {
	users := tbl([]string{"hive", "shop", "users"}, "id", "name")

	in := NewSet(
		ColumnOrigin{Table: users, Ordinal: 0},
		ColumnOrigin{Table: users, Ordinal: 1},
	)
	out := DeriveWithTransform(in, "id || name")

	require.Equal(t, 2, out.Len())
	for _, o := range out.Origins() {
		assert.True(t, o.Derived)
		assert.Equal(t, "id || name", o.Transform)
	}
}

func TestDeriveSynthesizedFallsBack(t *testing.T) {
	users := tbl([]string{"hive", "shop", "users"}, "id")
	in := NewSet(ColumnOrigin{Table: users, Ordinal: 0})

	// "RAND()" has no placeholders, so synthesis fails and the origin stays
	// derived with no transform text.
	out := DeriveSynthesized(in, "RAND()", nil)
	require.Equal(t, 1, out.Len())
	assert.True(t, out.Origins()[0].Derived)
	assert.Empty(t, out.Origins()[0].Transform)
}

func TestDeriveSynthesizedEmptySet(t *testing.T) {
	out := DeriveSynthesized(NewSet(), "$0 + 1", nil)
	assert.Equal(t, 0, out.Len())
}

func TestSynthesizeTransform(t *testing.T) {
	users := tbl([]string{"hive", "shop", "users"}, "a", "b")

	set := NewSet(
		ColumnOrigin{Table: users, Ordinal: 0},
		ColumnOrigin{Table: users, Ordinal: 1},
	)
	got, ok := SynthesizeTransform(set, "$0 + $1", nil)
	require.True(t, ok)
	assert.Equal(t, "a + b", got)
}

func TestSynthesizeTransformRepeatedPlaceholder(t *testing.T) {
	users := tbl([]string{"hive", "shop", "users"}, "qty")
	set := NewSet(ColumnOrigin{Table: users, Ordinal: 0})

	got, ok := SynthesizeTransform(set, "$0 * $0", nil)
	require.True(t, ok, "a repeated placeholder counts once")
	assert.Equal(t, "qty * qty", got)
}

func TestSynthesizeTransformCountMismatch(t *testing.T) {
	users := tbl([]string{"hive", "shop", "users"}, "a", "b")
	set := NewSet(ColumnOrigin{Table: users, Ordinal: 0})

	_, ok := SynthesizeTransform(set, "$0 + $1", nil)
	assert.False(t, ok)
}

func TestSynthesizeTransformNoPlaceholders(t *testing.T) {
	users := tbl([]string{"hive", "shop", "users"}, "a")
	set := NewSet(ColumnOrigin{Table: users, Ordinal: 0})

	_, ok := SynthesizeTransform(set, "CURRENT_TIMESTAMP", nil)
	assert.False(t, ok)
}

func TestSynthesizeTransformStripsEncodingArtifacts(t *testing.T) {
	users := tbl([]string{"hive", "shop", "users"}, "name")
	set := NewSet(ColumnOrigin{Table: users, Ordinal: 0})

	got, ok := SynthesizeTransform(set, "CONCAT($0, _UTF-16LE'!')", nil)
	require.True(t, ok)
	assert.Equal(t, "CONCAT(name, '!')", got)
}

func TestSynthesizeTransformCompoundsEarlierTransforms(t *testing.T) {
	users := tbl([]string{"hive", "shop", "users"}, "price")
	set := NewSet(ColumnOrigin{Table: users, Ordinal: 0, Derived: true, Transform: "SUM(price)"})

	got, ok := SynthesizeTransform(set, "$0 / 100", nil)
	require.True(t, ok)
	assert.Equal(t, "SUM(price) / 100", got)
}

func TestQualifiedFieldNames(t *testing.T) {
	tests := []struct {
		name    string
		origins []ColumnOrigin
		want    []string
	}{
		{
			name: "same table",
			origins: []ColumnOrigin{
				{Table: tbl([]string{"hive", "shop", "users"}, "id", "name"), Ordinal: 0},
				{Table: tbl([]string{"hive", "shop", "users"}, "id", "name"), Ordinal: 1},
			},
			want: []string{"id", "name"},
		},
		{
			name: "same database",
			origins: []ColumnOrigin{
				{Table: tbl([]string{"hive", "shop", "users"}, "id"), Ordinal: 0},
				{Table: tbl([]string{"hive", "shop", "orders"}, "id"), Ordinal: 0},
			},
			want: []string{"users.id", "orders.id"},
		},
		{
			name: "same catalog",
			origins: []ColumnOrigin{
				{Table: tbl([]string{"hive", "shop", "users"}, "id"), Ordinal: 0},
				{Table: tbl([]string{"hive", "crm", "contacts"}, "id"), Ordinal: 0},
			},
			want: []string{"shop.users.id", "crm.contacts.id"},
		},
		{
			name: "different catalogs",
			origins: []ColumnOrigin{
				{Table: tbl([]string{"hive", "shop", "users"}, "id"), Ordinal: 0},
				{Table: tbl([]string{"iceberg", "shop", "users"}, "id"), Ordinal: 0},
			},
			want: []string{"hive.shop.users.id", "iceberg.shop.users.id"},
		},
		{
			name: "short name forces full qualification",
			origins: []ColumnOrigin{
				{Table: tbl([]string{"users"}, "id"), Ordinal: 0},
			},
			want: []string{"users.id"},
		},
		{
			name: "transform text replaces field name",
			origins: []ColumnOrigin{
				{Table: tbl([]string{"hive", "shop", "users"}, "id"), Ordinal: 0, Derived: true, Transform: "COUNT(id)"},
			},
			want: []string{"COUNT(id)"},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, QualifiedFieldNames(NewSet(tt.origins...)))
		})
	}
}

func TestFieldName(t *testing.T) {
	users := tbl([]string{"hive", "shop", "users"}, "id", "name")
	o := ColumnOrigin{Table: users, Ordinal: 1}
	assert.Equal(t, "name", o.FieldName())
}
