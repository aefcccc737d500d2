package migrations

import (
	"context"
	"fmt"

	"github.com/uptrace/bun"

	"github.com/goliatone/go-civic-auth/issues"
)

func init() {
	Migrations.MustRegister(up_20261018000002, down_20261018000002)
}

func up_20261018000002(ctx context.Context, db *bun.DB) error {
	_, err := db.NewCreateTable().
		Model((*issues.Issue)(nil)).
		IfNotExists().
		ForeignKey(`("user_id") REFERENCES "users" ("id") ON DELETE SET NULL`).
		Exec(ctx)
	if err != nil {
		return fmt.Errorf("failed to create issues table: %w", err)
	}

	for _, stmt := range []string{
		`CREATE INDEX IF NOT EXISTS idx_issues_user_id ON issues(user_id)`,
		`CREATE INDEX IF NOT EXISTS idx_issues_created_at ON issues(created_at)`,
	} {
		if _, err := db.ExecContext(ctx, stmt); err != nil {
			return fmt.Errorf("failed to index issues: %w", err)
		}
	}

	return nil
}

func down_20261018000002(ctx context.Context, db *bun.DB) error {
	_, err := db.NewDropTable().
		Model((*issues.Issue)(nil)).
		IfExists().
		Exec(ctx)
	if err != nil {
		return fmt.Errorf("failed to drop issues table: %w", err)
	}
	return nil
}
