package dag

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/leapstack-labs/relineage/pkg/catalog"
	"github.com/leapstack-labs/relineage/pkg/rel"
)

func usersScan() *rel.TableScan {
	users := catalog.NewTable([]string{"hive", "shop", "users"},
		rel.Field{Name: "id"}, rel.Field{Name: "name"})
	return &rel.TableScan{Source: users}
}

func TestValidateChain(t *testing.T) {
	scan := usersScan()
	chain := &rel.Sort{In: &rel.Filter{In: scan}}

	stats, err := Validate(chain)
	require.NoError(t, err)
	assert.Equal(t, Stats{Nodes: 3, MaxDepth: 3, Shared: 0}, stats)
}

func TestValidateDiamond(t *testing.T) {
	scan := usersScan()
	left := &rel.Filter{In: scan}
	right := &rel.Filter{In: scan}
	join := rel.NewJoin(left, right, rel.JoinInner, nil)

	stats, err := Validate(join)
	require.NoError(t, err)
	assert.Equal(t, 4, stats.Nodes, "the shared scan counts once")
	assert.Equal(t, 3, stats.MaxDepth)
	assert.Equal(t, 1, stats.Shared)
}

func TestValidateUnevenDepths(t *testing.T) {
	scan := usersScan()
	deep := &rel.Filter{In: &rel.Filter{In: &rel.Filter{In: scan}}}
	join := rel.NewJoin(deep, usersScan(), rel.JoinInner, nil)

	stats, err := Validate(join)
	require.NoError(t, err)
	assert.Equal(t, 5, stats.MaxDepth, "depth follows the longest path")
}

func TestValidateCycle(t *testing.T) {
	scan := usersScan()
	f := &rel.Filter{In: scan}
	g := &rel.Filter{In: f}
	f.In = g

	_, err := Validate(g)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "cycle detected")
}

func TestValidateNilRoot(t *testing.T) {
	_, err := Validate(nil)
	require.Error(t, err)
}
