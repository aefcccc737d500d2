package migrations

import (
	"context"
	"fmt"

	"github.com/uptrace/bun"

	auth "github.com/goliatone/go-civic-auth"
)

func init() {
	Migrations.MustRegister(up_20261018000001, down_20261018000001)
}

// up_20261018000001 creates the users table. The unique constraints on
// username and email are what settles concurrent registrations.
func up_20261018000001(ctx context.Context, db *bun.DB) error {
	_, err := db.NewCreateTable().
		Model((*auth.Principal)(nil)).
		IfNotExists().
		Exec(ctx)
	if err != nil {
		return fmt.Errorf("failed to create users table: %w", err)
	}

	_, err = db.ExecContext(ctx, `CREATE INDEX IF NOT EXISTS idx_users_role ON users(role)`)
	if err != nil {
		return fmt.Errorf("failed to create index on role: %w", err)
	}

	return nil
}

func down_20261018000001(ctx context.Context, db *bun.DB) error {
	_, err := db.NewDropTable().
		Model((*auth.Principal)(nil)).
		IfExists().
		Exec(ctx)
	if err != nil {
		return fmt.Errorf("failed to drop users table: %w", err)
	}
	return nil
}
