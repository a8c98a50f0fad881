// Package catalogload populates a catalog from a live database's
// information_schema, so provenance answers can name real declared columns.
package catalogload

import (
	"context"
	"database/sql"
	"fmt"
	"log/slog"
	"regexp"
	"sort"
	"strings"
	"sync"

	"golang.org/x/sync/errgroup"

	"github.com/leapstack-labs/relineage/pkg/catalog"
	"github.com/leapstack-labs/relineage/pkg/rel"
)

// columnFetchLimit bounds how many per-table column queries run at once.
const columnFetchLimit = 4

// identifierPattern is the set of schema names accepted into queries; names
// are interpolated as literals, so anything else is rejected up front.
var identifierPattern = regexp.MustCompile(`^[A-Za-z_][A-Za-z0-9_$]*$`)

// Loader reads table schemas through an open database handle.
type Loader struct {
	db          *sql.DB
	catalogName string
	logger      *slog.Logger
}

// New wraps an existing handle. catalogName becomes the first segment of
// every loaded table's qualified name. If logger is nil, a discard logger is
// used.
func New(db *sql.DB, catalogName string, logger *slog.Logger) *Loader {
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}
	return &Loader{db: db, catalogName: catalogName, logger: logger}
}

// Open connects to a database and returns a loader for it. Supported drivers
// are "postgres" (via pgx) and "duckdb".
func Open(ctx context.Context, driver, dsn, catalogName string, logger *slog.Logger) (*Loader, error) {
	name, err := driverName(driver)
	if err != nil {
		return nil, err
	}
	db, err := sql.Open(name, dsn)
	if err != nil {
		return nil, fmt.Errorf("failed to open %s connection: %w", driver, err)
	}
	if err := db.PingContext(ctx); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("failed to ping %s: %w", driver, err)
	}
	return New(db, catalogName, logger), nil
}

// Close releases the underlying handle.
func (l *Loader) Close() error { return l.db.Close() }

// Load reads every table of the given schemas into a fresh catalog. With no
// schemas, all non-system schemas are loaded.
func (l *Loader) Load(ctx context.Context, schemas ...string) (*catalog.Catalog, error) {
	for _, s := range schemas {
		if !identifierPattern.MatchString(s) {
			return nil, fmt.Errorf("invalid schema name %q", s)
		}
	}

	tables, err := l.listTables(ctx, schemas)
	if err != nil {
		return nil, err
	}
	l.logger.Debug("discovered tables", slog.Int("count", len(tables)))

	var mu sync.Mutex
	fields := make(map[tableKey][]rel.Field, len(tables))

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(columnFetchLimit)
	for _, t := range tables {
		g.Go(func() error {
			cols, err := l.listColumns(gctx, t)
			if err != nil {
				return err
			}
			mu.Lock()
			fields[t] = cols
			mu.Unlock()
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}

	cat := catalog.New()
	for t, cols := range fields {
		cat.Add(catalog.NewTable([]string{l.catalogName, t.schema, t.name}, cols...))
	}
	return cat, nil
}

type tableKey struct {
	schema string
	name   string
}

func (l *Loader) listTables(ctx context.Context, schemas []string) ([]tableKey, error) {
	query := `SELECT table_schema, table_name FROM information_schema.tables WHERE table_type = 'BASE TABLE'`
	if len(schemas) > 0 {
		quoted := make([]string, len(schemas))
		for i, s := range schemas {
			quoted[i] = "'" + s + "'"
		}
		query += ` AND table_schema IN (` + strings.Join(quoted, ", ") + `)`
	} else {
		query += ` AND table_schema NOT IN ('information_schema', 'pg_catalog')`
	}
	query += ` ORDER BY table_schema, table_name`

	rows, err := l.db.QueryContext(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("failed to list tables: %w", err)
	}
	defer rows.Close()

	var tables []tableKey
	for rows.Next() {
		var t tableKey
		if err := rows.Scan(&t.schema, &t.name); err != nil {
			return nil, fmt.Errorf("failed to scan table row: %w", err)
		}
		tables = append(tables, t)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to read tables: %w", err)
	}
	return tables, nil
}

func (l *Loader) listColumns(ctx context.Context, t tableKey) ([]rel.Field, error) {
	const query = `SELECT column_name, data_type, ordinal_position FROM information_schema.columns WHERE table_schema = $1 AND table_name = $2 ORDER BY ordinal_position`

	rows, err := l.db.QueryContext(ctx, query, t.schema, t.name)
	if err != nil {
		return nil, fmt.Errorf("failed to list columns of %s.%s: %w", t.schema, t.name, err)
	}
	defer rows.Close()

	type positioned struct {
		field rel.Field
		pos   int
	}
	var cols []positioned
	for rows.Next() {
		var p positioned
		if err := rows.Scan(&p.field.Name, &p.field.Type, &p.pos); err != nil {
			return nil, fmt.Errorf("failed to scan column row: %w", err)
		}
		cols = append(cols, p)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to read columns of %s.%s: %w", t.schema, t.name, err)
	}

	sort.Slice(cols, func(i, j int) bool { return cols[i].pos < cols[j].pos })
	fields := make([]rel.Field, len(cols))
	for i, c := range cols {
		fields[i] = c.field
	}
	return fields, nil
}
