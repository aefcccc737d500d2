// Package dbtest opens throwaway SQLite databases with the schema applied.
package dbtest

import (
	"context"
	"database/sql"
	"fmt"
	"testing"

	"github.com/google/uuid"
	"github.com/uptrace/bun"
	"github.com/uptrace/bun/dialect/sqlitedialect"
	"github.com/uptrace/bun/driver/sqliteshim"

	"github.com/goliatone/go-civic-auth/migrations"
)

// New returns a migrated in-memory database that is closed with the test.
// A single connection keeps every goroutine on the same memory database
// and keeps the foreign key pragma in effect.
func New(tb testing.TB) *bun.DB {
	tb.Helper()

	dsn := fmt.Sprintf("file:%s?mode=memory&cache=shared", uuid.NewString())
	sqldb, err := sql.Open(sqliteshim.ShimName, dsn)
	if err != nil {
		tb.Fatalf("open sqlite: %v", err)
	}
	sqldb.SetMaxOpenConns(1)
	sqldb.SetMaxIdleConns(1)
	sqldb.SetConnMaxLifetime(0)

	db := bun.NewDB(sqldb, sqlitedialect.New())
	tb.Cleanup(func() {
		_ = db.Close()
	})

	if err := migrations.EnableForeignKeys(context.Background(), db); err != nil {
		tb.Fatalf("foreign keys: %v", err)
	}

	if _, err := migrations.Up(context.Background(), db); err != nil {
		tb.Fatalf("migrate: %v", err)
	}

	return db
}
