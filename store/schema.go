package store

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/goliatone/go-entitycache/model"
	"github.com/uptrace/bun"
	"github.com/uptrace/bun/dialect/pgdialect"
	"github.com/uptrace/bun/dialect/sqlitedialect"
	"github.com/uptrace/bun/schema"
)

// Driver names accepted by Open. The matching database/sql drivers must be
// registered by the caller (lib/pq, mattn/go-sqlite3).
const (
	DriverPostgres = "postgres"
	DriverSQLite   = "sqlite3"
)

// Open connects to dsn and wraps the handle with the dialect for driver.
func Open(driver, dsn string) (*bun.DB, error) {
	var dialect schema.Dialect
	switch driver {
	case DriverPostgres:
		dialect = pgdialect.New()
	case DriverSQLite:
		dialect = sqlitedialect.New()
	default:
		return nil, fmt.Errorf("store: unsupported driver %q", driver)
	}

	sqldb, err := sql.Open(driver, dsn)
	if err != nil {
		return nil, fmt.Errorf("store: open %s: %w", driver, err)
	}
	if driver == DriverSQLite {
		// a shared in-memory database lives as long as one connection does
		sqldb.SetMaxOpenConns(1)
	}

	return bun.NewDB(sqldb, dialect), nil
}

// Models lists every table owned by the store.
func Models() []any {
	return []any{
		(*model.User)(nil),
		(*model.Team)(nil),
		(*model.TeamMember)(nil),
		(*model.Organization)(nil),
		(*model.Project)(nil),
		(*model.GalleryItem)(nil),
		(*model.Version)(nil),
		(*model.Collection)(nil),
		(*model.File)(nil),
	}
}

// CreateSchema creates missing tables. Production schemas are owned by
// migrations; this is for development databases and tests.
func CreateSchema(ctx context.Context, db bun.IDB) error {
	for _, m := range Models() {
		if _, err := db.NewCreateTable().Model(m).IfNotExists().Exec(ctx); err != nil {
			return fmt.Errorf("store: create table for %T: %w", m, err)
		}
	}
	return nil
}
