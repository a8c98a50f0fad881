package catalogload

import (
	"context"
	"testing"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/leapstack-labs/relineage/internal/testutil"
)

func newMockLoader(t *testing.T) (*Loader, sqlmock.Sqlmock) {
	t.Helper()
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	t.Cleanup(func() { _ = db.Close() })

	// Column queries run concurrently, so their order is not deterministic.
	mock.MatchExpectationsInOrder(false)
	return New(db, "warehouse", testutil.NewTestLogger(t)), mock
}

func TestLoad(t *testing.T) {
	l, mock := newMockLoader(t)

	mock.ExpectQuery(`SELECT table_schema, table_name FROM information_schema\.tables WHERE table_type = 'BASE TABLE' AND table_schema IN \('shop'\)`).
		WillReturnRows(sqlmock.NewRows([]string{"table_schema", "table_name"}).
			AddRow("shop", "orders").
			AddRow("shop", "users"))

	mock.ExpectQuery(`SELECT column_name, data_type, ordinal_position FROM information_schema\.columns`).
		WithArgs("shop", "orders").
		WillReturnRows(sqlmock.NewRows([]string{"column_name", "data_type", "ordinal_position"}).
			AddRow("user_id", "bigint", 1).
			AddRow("amount", "numeric", 2))

	mock.ExpectQuery(`SELECT column_name, data_type, ordinal_position FROM information_schema\.columns`).
		WithArgs("shop", "users").
		WillReturnRows(sqlmock.NewRows([]string{"column_name", "data_type", "ordinal_position"}).
			AddRow("id", "bigint", 1).
			AddRow("name", "text", 2))

	cat, err := l.Load(context.Background(), "shop")
	require.NoError(t, err)
	require.NoError(t, mock.ExpectationsWereMet())

	users, ok := cat.Lookup("warehouse", "shop", "users")
	require.True(t, ok)
	assert.Equal(t, []string{"id", "name"}, users.RowType().FieldNames())

	orders, ok := cat.Lookup("warehouse", "shop", "orders")
	require.True(t, ok)
	assert.Equal(t, []string{"user_id", "amount"}, orders.RowType().FieldNames())
}

func TestLoadOrdersColumnsByPosition(t *testing.T) {
	l, mock := newMockLoader(t)

	mock.ExpectQuery(`information_schema\.tables`).
		WillReturnRows(sqlmock.NewRows([]string{"table_schema", "table_name"}).
			AddRow("shop", "users"))

	// Rows arriving out of declared order still land by ordinal_position.
	mock.ExpectQuery(`information_schema\.columns`).
		WithArgs("shop", "users").
		WillReturnRows(sqlmock.NewRows([]string{"column_name", "data_type", "ordinal_position"}).
			AddRow("name", "text", 2).
			AddRow("id", "bigint", 1))

	cat, err := l.Load(context.Background(), "shop")
	require.NoError(t, err)

	users, ok := cat.Lookup("warehouse", "shop", "users")
	require.True(t, ok)
	assert.Equal(t, []string{"id", "name"}, users.RowType().FieldNames())
}

func TestLoadAllSchemasExcludesSystem(t *testing.T) {
	l, mock := newMockLoader(t)

	mock.ExpectQuery(`table_schema NOT IN \('information_schema', 'pg_catalog'\)`).
		WillReturnRows(sqlmock.NewRows([]string{"table_schema", "table_name"}))

	cat, err := l.Load(context.Background())
	require.NoError(t, err)
	require.NoError(t, mock.ExpectationsWereMet())
	assert.Empty(t, cat.Tables())
}

func TestLoadRejectsInvalidSchemaName(t *testing.T) {
	l, _ := newMockLoader(t)

	_, err := l.Load(context.Background(), "shop'; DROP TABLE users--")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "invalid schema name")
}

func TestLoadPropagatesQueryError(t *testing.T) {
	l, mock := newMockLoader(t)

	mock.ExpectQuery(`information_schema\.tables`).
		WillReturnError(assert.AnError)

	_, err := l.Load(context.Background(), "shop")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "failed to list tables")
}

func TestDriverName(t *testing.T) {
	for in, want := range map[string]string{
		"postgres": "pgx",
		"pgx":      "pgx",
		"duckdb":   "duckdb",
	} {
		got, err := driverName(in)
		require.NoError(t, err)
		assert.Equal(t, want, got)
	}

	_, err := driverName("oracle")
	require.Error(t, err)
}
