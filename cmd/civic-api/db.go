package main

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5/stdlib"
	"github.com/spf13/cobra"
	"github.com/uptrace/bun"
	"github.com/uptrace/bun/dialect/pgdialect"
	"github.com/uptrace/bun/dialect/sqlitedialect"
	"github.com/uptrace/bun/driver/sqliteshim"

	"github.com/goliatone/go-civic-auth/config"
	"github.com/goliatone/go-civic-auth/migrations"
)

// openDB picks the driver from the DSN: pgx for postgres URLs, SQLite
// for everything else
func openDB(ctx context.Context, c config.DatabaseConfig, isPostgres bool) (*bun.DB, error) {
	var db *bun.DB

	if isPostgres {
		pgxCfg, err := stdlib.ParseConfig(c.DSN)
		if err != nil {
			return nil, fmt.Errorf("failed to parse postgres dsn: %w", err)
		}
		sqldb := stdlib.OpenDB(*pgxCfg)
		sqldb.SetMaxOpenConns(25)
		sqldb.SetMaxIdleConns(25)
		sqldb.SetConnMaxLifetime(30 * time.Minute)
		db = bun.NewDB(sqldb, pgdialect.New())
	} else {
		sqldb, err := sql.Open(sqliteshim.ShimName, c.DSN)
		if err != nil {
			return nil, fmt.Errorf("failed to open sqlite database: %w", err)
		}
		// SQLite serializes writers; the one connection also carries the
		// foreign key pragma
		sqldb.SetMaxOpenConns(1)
		sqldb.SetMaxIdleConns(1)
		sqldb.SetConnMaxLifetime(0)
		db = bun.NewDB(sqldb, sqlitedialect.New())
	}

	pingCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	if err := db.PingContext(pingCtx); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to ping database: %w", err)
	}

	if err := migrations.EnableForeignKeys(ctx, db); err != nil {
		db.Close()
		return nil, err
	}

	return db, nil
}

func connect(ctx context.Context) (*bun.DB, error) {
	return openDB(ctx, cfg.Database, cfg.IsPostgres())
}

var dbCmd = &cobra.Command{
	Use:   "db",
	Short: "Database management commands",
	Long:  `Commands for managing database migrations and schema.`,
}

var dbMigrateCmd = &cobra.Command{
	Use:   "migrate",
	Short: "Run database migrations",
	Long:  `Applies all pending migrations to the database with locking to prevent concurrent migrations.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()
		db, err := connect(ctx)
		if err != nil {
			return err
		}
		defer db.Close()

		group, err := migrations.Up(ctx, db)
		if err != nil {
			return err
		}

		if group.IsZero() {
			fmt.Fprintln(cmd.OutOrStdout(), "No new migrations to run (database is up to date)")
			return nil
		}

		fmt.Fprintf(cmd.OutOrStdout(), "Migrated to %s\n", group)
		return nil
	},
}

var dbRollbackCmd = &cobra.Command{
	Use:   "rollback",
	Short: "Rollback the last migration group",
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()
		db, err := connect(ctx)
		if err != nil {
			return err
		}
		defer db.Close()

		group, err := migrations.Down(ctx, db)
		if err != nil {
			return err
		}

		if group.IsZero() {
			fmt.Fprintln(cmd.OutOrStdout(), "No groups to roll back")
			return nil
		}

		fmt.Fprintf(cmd.OutOrStdout(), "Rolled back %s\n", group)
		return nil
	},
}

var dbStatusCmd = &cobra.Command{
	Use:   "status",
	Short: "Show migration status",
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()
		db, err := connect(ctx)
		if err != nil {
			return err
		}
		defer db.Close()

		ms, err := migrations.Status(ctx, db)
		if err != nil {
			return fmt.Errorf("failed to get migration status: %w", err)
		}

		out := cmd.OutOrStdout()
		fmt.Fprintf(out, "Migrations: %s\n", ms)
		fmt.Fprintf(out, "Unapplied:  %s\n", ms.Unapplied())
		fmt.Fprintf(out, "Last group: %s\n", ms.LastGroup())
		return nil
	},
}

func init() {
	dbCmd.AddCommand(dbMigrateCmd)
	dbCmd.AddCommand(dbRollbackCmd)
	dbCmd.AddCommand(dbStatusCmd)
}
