package auth_test

import (
	"context"
	"fmt"
	"testing"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/uptrace/bun"
	"github.com/uptrace/bun/dialect/pgdialect"

	auth "github.com/goliatone/go-civic-auth"
)

func newMockedPrincipals(t *testing.T) (auth.Principals, sqlmock.Sqlmock) {
	t.Helper()
	sqldb, mock, err := sqlmock.New()
	require.NoError(t, err)

	db := bun.NewDB(sqldb, pgdialect.New())
	t.Cleanup(func() {
		_ = db.Close()
	})

	return auth.NewPrincipalsRepository(db), mock
}

func TestPrincipals_DriverErrorsAreNotNotFound(t *testing.T) {
	principals, mock := newMockedPrincipals(t)
	ctx := context.Background()

	mock.ExpectQuery(`SELECT .* FROM "users" AS "usr"`).
		WillReturnError(fmt.Errorf("connection reset by peer"))

	_, err := principals.FindPrincipalByUsername(ctx, "alice")
	require.Error(t, err)
	assert.False(t, auth.IsPrincipalNotFoundError(err))

	require.NoError(t, mock.ExpectationsWereMet())
}

func TestPrincipals_NoRowsIsNotFound(t *testing.T) {
	principals, mock := newMockedPrincipals(t)

	mock.ExpectQuery(`SELECT .* FROM "users" AS "usr"`).
		WillReturnRows(sqlmock.NewRows([]string{"id", "username"}))

	_, err := principals.FindPrincipalByID(context.Background(), uuid.New())
	require.Error(t, err)
	assert.True(t, auth.IsPrincipalNotFoundError(err))
}

func TestPrincipals_ExistsError(t *testing.T) {
	principals, mock := newMockedPrincipals(t)

	mock.ExpectQuery(`SELECT EXISTS`).WillReturnError(fmt.Errorf("timeout"))

	_, err := principals.ExistsByUsernameOrEmail(context.Background(), "alice", "alice@example.com")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "uniqueness")
}

func TestPrincipals_DeleteMissing(t *testing.T) {
	principals, mock := newMockedPrincipals(t)

	mock.ExpectExec(`DELETE FROM "users"`).WillReturnResult(sqlmock.NewResult(0, 0))

	err := principals.DeletePrincipal(context.Background(), &auth.Principal{ID: uuid.New()})
	require.Error(t, err)
	assert.True(t, auth.IsPrincipalNotFoundError(err))
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestPrincipals_DeleteRequiresID(t *testing.T) {
	principals, _ := newMockedPrincipals(t)
	assert.Error(t, principals.DeletePrincipal(context.Background(), &auth.Principal{}))
	assert.Error(t, principals.DeletePrincipal(context.Background(), nil))
}
