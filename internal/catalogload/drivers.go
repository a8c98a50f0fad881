package catalogload

import (
	"fmt"

	_ "github.com/jackc/pgx/v5/stdlib" // registers the "pgx" driver
	_ "github.com/marcboeker/go-duckdb" // registers the "duckdb" driver
)

// driverName maps a user-facing driver label to its database/sql name.
func driverName(driver string) (string, error) {
	switch driver {
	case "postgres", "pgx":
		return "pgx", nil
	case "duckdb":
		return "duckdb", nil
	}
	return "", fmt.Errorf("unsupported driver %q (want postgres or duckdb)", driver)
}
