package migrations

import (
	"context"
	"fmt"

	"github.com/uptrace/bun"

	"github.com/goliatone/go-civic-auth/issues"
)

func init() {
	Migrations.MustRegister(up_20261018000003, down_20261018000003)
}

func up_20261018000003(ctx context.Context, db *bun.DB) error {
	_, err := db.NewCreateTable().
		Model((*issues.Comment)(nil)).
		IfNotExists().
		ForeignKey(`("issue_id") REFERENCES "issues" ("id") ON DELETE CASCADE`).
		ForeignKey(`("user_id") REFERENCES "users" ("id") ON DELETE SET NULL`).
		Exec(ctx)
	if err != nil {
		return fmt.Errorf("failed to create comments table: %w", err)
	}

	_, err = db.ExecContext(ctx, `CREATE INDEX IF NOT EXISTS idx_comments_issue_created ON comments(issue_id, created_at)`)
	if err != nil {
		return fmt.Errorf("failed to index comments: %w", err)
	}

	return nil
}

func down_20261018000003(ctx context.Context, db *bun.DB) error {
	_, err := db.NewDropTable().
		Model((*issues.Comment)(nil)).
		IfExists().
		Exec(ctx)
	if err != nil {
		return fmt.Errorf("failed to drop comments table: %w", err)
	}
	return nil
}
