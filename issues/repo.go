package issues

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/goliatone/go-errors"
	"github.com/goliatone/go-repository-bun"
	"github.com/google/uuid"
	"github.com/uptrace/bun"

	auth "github.com/goliatone/go-civic-auth"
)

// Issues persists issues
type Issues interface {
	repository.Repository[*Issue]

	FindIssueByID(ctx context.Context, id uuid.UUID) (*Issue, error)
	SaveIssue(ctx context.Context, issue *Issue) (*Issue, error)
	SaveIssueTx(ctx context.Context, tx bun.IDB, issue *Issue) (*Issue, error)
	ListByUser(ctx context.Context, userID uuid.UUID) ([]*Issue, error)
	ListNewestFirst(ctx context.Context) ([]*Issue, error)
	DeleteIssueTx(ctx context.Context, tx bun.IDB, id uuid.UUID) error
}

// Comments persists comments
type Comments interface {
	repository.Repository[*Comment]

	FindCommentsByIssueOrderedByCreation(ctx context.Context, issueID uuid.UUID) ([]*Comment, error)
	SaveComment(ctx context.Context, comment *Comment) (*Comment, error)
	DeleteByIssueTx(ctx context.Context, tx bun.IDB, issueID uuid.UUID) error
	AuthorNames(ctx context.Context, userIDs []uuid.UUID) (map[uuid.UUID]string, error)
}

type issues struct {
	repository.Repository[*Issue]
	db *bun.DB
}

type comments struct {
	repository.Repository[*Comment]
	db *bun.DB
}

var (
	_ Issues   = (*issues)(nil)
	_ Comments = (*comments)(nil)
)

func NewIssuesRepository(db *bun.DB) Issues {
	return &issues{
		Repository: repository.NewRepository[*Issue](db, repository.ModelHandlers[*Issue]{
			NewRecord: func() *Issue { return &Issue{} },
			GetID: func(i *Issue) uuid.UUID {
				if i == nil {
					return uuid.Nil
				}
				return i.ID
			},
			SetID: func(i *Issue, id uuid.UUID) {
				if i != nil {
					i.ID = id
				}
			},
		}),
		db: db,
	}
}

func NewCommentsRepository(db *bun.DB) Comments {
	return &comments{
		Repository: repository.NewRepository[*Comment](db, repository.ModelHandlers[*Comment]{
			NewRecord: func() *Comment { return &Comment{} },
			GetID: func(c *Comment) uuid.UUID {
				if c == nil {
					return uuid.Nil
				}
				return c.ID
			},
			SetID: func(c *Comment, id uuid.UUID) {
				if c != nil {
					c.ID = id
				}
			},
		}),
		db: db,
	}
}

func (r *issues) FindIssueByID(ctx context.Context, id uuid.UUID) (*Issue, error) {
	record := &Issue{}
	err := r.db.NewSelect().
		Model(record).
		Where("?TableAlias.id = ?", id).
		Limit(1).
		Scan(ctx)
	if err != nil {
		return nil, notFoundOr(err, "issue", id)
	}
	return record, nil
}

// SaveIssue inserts issues without an id and updates the rest
func (r *issues) SaveIssue(ctx context.Context, issue *Issue) (*Issue, error) {
	return r.SaveIssueTx(ctx, r.db, issue)
}

func (r *issues) SaveIssueTx(ctx context.Context, tx bun.IDB, issue *Issue) (*Issue, error) {
	if issue.ID == uuid.Nil {
		issue.ID = uuid.New()
		saved, err := r.Repository.CreateTx(ctx, tx, issue)
		if err != nil {
			return nil, errors.Wrap(err, errors.CategoryInternal, "failed to create issue")
		}
		return saved, nil
	}

	saved, err := r.Repository.UpdateTx(ctx, tx, issue, repository.UpdateByID(issue.ID.String()))
	if err != nil {
		return nil, notFoundOr(err, "issue", issue.ID)
	}
	return saved, nil
}

func (r *issues) ListByUser(ctx context.Context, userID uuid.UUID) ([]*Issue, error) {
	records := []*Issue{}
	err := r.db.NewSelect().
		Model(&records).
		Where("?TableAlias.user_id = ?", userID).
		Order("created_at DESC", "id ASC").
		Scan(ctx)
	if err != nil && !errors.Is(err, sql.ErrNoRows) {
		return nil, errors.Wrap(err, errors.CategoryInternal, "failed to list issues")
	}
	return records, nil
}

func (r *issues) ListNewestFirst(ctx context.Context) ([]*Issue, error) {
	records := []*Issue{}
	err := r.db.NewSelect().
		Model(&records).
		Order("created_at DESC", "id ASC").
		Scan(ctx)
	if err != nil && !errors.Is(err, sql.ErrNoRows) {
		return nil, errors.Wrap(err, errors.CategoryInternal, "failed to list issues")
	}
	return records, nil
}

func (r *issues) DeleteIssueTx(ctx context.Context, tx bun.IDB, id uuid.UUID) error {
	res, err := tx.NewDelete().
		Model((*Issue)(nil)).
		Where("id = ?", id).
		Exec(ctx)
	if err != nil {
		return errors.Wrap(err, errors.CategoryInternal, "failed to delete issue")
	}
	if n, err := res.RowsAffected(); err == nil && n == 0 {
		return notFound("issue", id)
	}
	return nil
}

func (r *comments) FindCommentsByIssueOrderedByCreation(ctx context.Context, issueID uuid.UUID) ([]*Comment, error) {
	records := []*Comment{}
	err := r.db.NewSelect().
		Model(&records).
		Where("?TableAlias.issue_id = ?", issueID).
		Order("created_at ASC", "id ASC").
		Scan(ctx)
	if err != nil && !errors.Is(err, sql.ErrNoRows) {
		return nil, errors.Wrap(err, errors.CategoryInternal, "failed to list comments")
	}
	return records, nil
}

func (r *comments) SaveComment(ctx context.Context, comment *Comment) (*Comment, error) {
	if comment.ID == uuid.Nil {
		comment.ID = uuid.New()
	}
	saved, err := r.Repository.CreateTx(ctx, r.db, comment)
	if err != nil {
		return nil, errors.Wrap(err, errors.CategoryInternal, "failed to create comment")
	}
	return saved, nil
}

func (r *comments) DeleteByIssueTx(ctx context.Context, tx bun.IDB, issueID uuid.UUID) error {
	_, err := tx.NewDelete().
		Model((*Comment)(nil)).
		Where("issue_id = ?", issueID).
		Exec(ctx)
	if err != nil {
		return errors.Wrap(err, errors.CategoryInternal, "failed to delete comments")
	}
	return nil
}

// AuthorNames resolves usernames for userIDs. Missing users are absent
// from the result.
func (r *comments) AuthorNames(ctx context.Context, userIDs []uuid.UUID) (map[uuid.UUID]string, error) {
	out := map[uuid.UUID]string{}
	if len(userIDs) == 0 {
		return out, nil
	}

	principals := []*auth.Principal{}
	err := r.db.NewSelect().
		Model(&principals).
		Column("id", "username").
		Where("?TableAlias.id IN (?)", bun.In(userIDs)).
		Scan(ctx)
	if err != nil && !errors.Is(err, sql.ErrNoRows) {
		return nil, errors.Wrap(err, errors.CategoryInternal, "failed to load comment authors")
	}

	for _, p := range principals {
		out[p.ID] = p.Username
	}
	return out, nil
}

func notFoundOr(err error, kind string, id uuid.UUID) error {
	if repository.IsRecordNotFound(err) || errors.Is(err, sql.ErrNoRows) {
		return notFound(kind, id)
	}
	return errors.Wrap(err, errors.CategoryInternal, "failed to load "+kind)
}

func notFound(kind string, id uuid.UUID) error {
	return errors.New(fmt.Sprintf("%s not found with id: %s", kind, id), errors.CategoryNotFound).
		WithCode(errors.CodeNotFound).
		WithTextCode(auth.ErrResourceNotFound.TextCode).
		WithMetadata(map[string]any{
			"kind": kind,
			"id":   id.String(),
		})
}
