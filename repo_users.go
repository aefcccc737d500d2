package auth

import (
	"context"
	"database/sql"
	"strings"
	"time"

	"github.com/goliatone/go-errors"
	"github.com/goliatone/go-repository-bun"
	"github.com/google/uuid"
	"github.com/uptrace/bun"
)

// Principals is the bun backed principal store
type Principals interface {
	repository.Repository[*Principal]
	PrincipalStore

	FindPrincipalByUsernameTx(ctx context.Context, tx bun.IDB, username string) (*Principal, error)
	FindPrincipalByIDTx(ctx context.Context, tx bun.IDB, id uuid.UUID) (*Principal, error)
	ExistsByUsernameOrEmailTx(ctx context.Context, tx bun.IDB, username, email string) (bool, error)
	InsertPrincipalTx(ctx context.Context, tx bun.IDB, principal *Principal) error
	UpdatePrincipalTx(ctx context.Context, tx bun.IDB, principal *Principal) (*Principal, error)
	DeletePrincipalTx(ctx context.Context, tx bun.IDB, principal *Principal) error
}

type principals struct {
	repository.Repository[*Principal]
	db  *bun.DB
	now func() time.Time
}

var (
	_ Principals     = (*principals)(nil)
	_ PrincipalStore = (*principals)(nil)
)

// PrincipalsOption configures the repository
type PrincipalsOption func(*principals)

// WithPrincipalsClock overrides the clock used for timestamps
func WithPrincipalsClock(now func() time.Time) PrincipalsOption {
	return func(p *principals) {
		if now != nil {
			p.now = now
		}
	}
}

func NewPrincipalsRepository(db *bun.DB, opts ...PrincipalsOption) Principals {
	repo := repository.NewRepository[*Principal](db, repository.ModelHandlers[*Principal]{
		NewRecord: func() *Principal { return &Principal{} },
		GetID: func(p *Principal) uuid.UUID {
			if p == nil {
				return uuid.Nil
			}
			return p.ID
		},
		SetID: func(p *Principal, id uuid.UUID) {
			if p != nil {
				p.ID = id
			}
		},
		GetIdentifier: func() string {
			return "username"
		},
	})

	out := &principals{
		Repository: repo,
		db:         db,
		now:        time.Now,
	}
	for _, opt := range opts {
		if opt != nil {
			opt(out)
		}
	}
	return out
}

func (a *principals) FindPrincipalByUsername(ctx context.Context, username string) (*Principal, error) {
	return a.FindPrincipalByUsernameTx(ctx, a.db, username)
}

func (a *principals) FindPrincipalByUsernameTx(ctx context.Context, tx bun.IDB, username string) (*Principal, error) {
	record := &Principal{}
	err := tx.NewSelect().
		Model(record).
		Where("?TableAlias.username = ?", username).
		Limit(1).
		Scan(ctx)
	if err != nil {
		return nil, a.mapLookupError(err, "username", username)
	}
	return record, nil
}

func (a *principals) FindPrincipalByID(ctx context.Context, id uuid.UUID) (*Principal, error) {
	return a.FindPrincipalByIDTx(ctx, a.db, id)
}

func (a *principals) FindPrincipalByIDTx(ctx context.Context, tx bun.IDB, id uuid.UUID) (*Principal, error) {
	record := &Principal{}
	err := tx.NewSelect().
		Model(record).
		Where("?TableAlias.id = ?", id).
		Limit(1).
		Scan(ctx)
	if err != nil {
		return nil, a.mapLookupError(err, "id", id.String())
	}
	return record, nil
}

func (a *principals) ExistsByUsernameOrEmail(ctx context.Context, username, email string) (bool, error) {
	return a.ExistsByUsernameOrEmailTx(ctx, a.db, username, email)
}

func (a *principals) ExistsByUsernameOrEmailTx(ctx context.Context, tx bun.IDB, username, email string) (bool, error) {
	exists, err := tx.NewSelect().
		Model((*Principal)(nil)).
		Where("?TableAlias.username = ?", username).
		WhereOr("?TableAlias.email = ?", strings.ToLower(email)).
		Exists(ctx)
	if err != nil {
		return false, errors.Wrap(err, errors.CategoryInternal, "failed to check principal uniqueness")
	}
	return exists, nil
}

// InsertPrincipal persists a new principal. The unique indexes on username
// and email are the authoritative duplicate check.
func (a *principals) InsertPrincipal(ctx context.Context, principal *Principal) error {
	return a.InsertPrincipalTx(ctx, a.db, principal)
}

func (a *principals) InsertPrincipalTx(ctx context.Context, tx bun.IDB, principal *Principal) error {
	if principal == nil {
		return errors.New("principal is required", errors.CategoryBadInput)
	}

	if !principal.Role.IsValid() {
		return ErrInvalidRole.Clone().WithMetadata(map[string]any{
			"role": string(principal.Role),
		})
	}

	if principal.ID == uuid.Nil {
		principal.ID = uuid.New()
	}

	principal.Email = strings.ToLower(principal.Email)

	now := a.now().UTC()
	principal.CreatedAt = &now
	principal.UpdatedAt = &now

	if _, err := tx.NewInsert().Model(principal).Exec(ctx); err != nil {
		if IsUniqueViolation(err) {
			return ErrDuplicateIdentity
		}
		return errors.Wrap(err, errors.CategoryInternal, "failed to insert principal")
	}

	return nil
}

func (a *principals) UpdatePrincipal(ctx context.Context, principal *Principal) (*Principal, error) {
	return a.UpdatePrincipalTx(ctx, a.db, principal)
}

func (a *principals) UpdatePrincipalTx(ctx context.Context, tx bun.IDB, principal *Principal) (*Principal, error) {
	if principal == nil || principal.ID == uuid.Nil {
		return nil, errors.New("principal id is required", errors.CategoryBadInput)
	}

	if !principal.Role.IsValid() {
		return nil, ErrInvalidRole.Clone().WithMetadata(map[string]any{
			"role": string(principal.Role),
		})
	}

	principal.Email = strings.ToLower(principal.Email)
	now := a.now().UTC()
	principal.UpdatedAt = &now

	updated, err := a.Repository.UpdateTx(ctx, tx, principal, repository.UpdateByID(principal.ID.String()))
	if err != nil {
		if IsUniqueViolation(err) {
			return nil, ErrDuplicateIdentity
		}
		if repository.IsRecordNotFound(err) {
			return nil, ErrPrincipalNotFound
		}
		return nil, errors.Wrap(err, errors.CategoryInternal, "failed to update principal")
	}

	return updated, nil
}

func (a *principals) DeletePrincipal(ctx context.Context, principal *Principal) error {
	return a.DeletePrincipalTx(ctx, a.db, principal)
}

func (a *principals) DeletePrincipalTx(ctx context.Context, tx bun.IDB, principal *Principal) error {
	if principal == nil || principal.ID == uuid.Nil {
		return errors.New("principal id is required", errors.CategoryBadInput)
	}

	res, err := tx.NewDelete().
		Model((*Principal)(nil)).
		Where("id = ?", principal.ID).
		Exec(ctx)
	if err != nil {
		return errors.Wrap(err, errors.CategoryInternal, "failed to delete principal")
	}

	if n, err := res.RowsAffected(); err == nil && n == 0 {
		return ErrPrincipalNotFound
	}

	return nil
}

func (a *principals) mapLookupError(err error, column, value string) error {
	if repository.IsRecordNotFound(err) || errors.Is(err, sql.ErrNoRows) {
		return ErrPrincipalNotFound.Clone().WithMetadata(map[string]any{
			column: value,
		})
	}
	return errors.Wrap(err, errors.CategoryInternal, "failed to load principal")
}
