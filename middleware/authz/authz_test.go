package authz_test

import (
	"context"
	"net/http"
	"testing"

	"github.com/goliatone/go-router"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	auth "github.com/goliatone/go-civic-auth"
	"github.com/goliatone/go-civic-auth/middleware/authz"
	"github.com/goliatone/go-civic-auth/routertest"
)

type quietLogger struct{}

func (quietLogger) Debug(string, ...any) {}
func (quietLogger) Info(string, ...any)  {}
func (quietLogger) Warn(string, ...any)  {}
func (quietLogger) Error(string, ...any) {}

func TestAuthz(t *testing.T) {
	var decisions []auth.Decision
	mw := authz.New(authz.Config{
		Policy: auth.MustPolicy(auth.DefaultRules()),
		Logger: quietLogger{},
		Listeners: []authz.DecisionListener{
			func(_ router.Context, d auth.Decision) { decisions = append(decisions, d) },
		},
	})

	handler := mw(func(c router.Context) error {
		return c.NoContent(http.StatusNoContent)
	})

	alice := &auth.Principal{Username: "alice", Role: auth.RoleCitizen}

	tests := []struct {
		name      string
		path      string
		principal *auth.Principal
		wantErr   error
	}{
		{"citizen on issues", "/api/v1/issues/42", alice, nil},
		{"anonymous on issues", "/api/v1/issues/42", nil, auth.ErrUnauthenticated},
		{"citizen on admin", "/api/v1/admin/users", alice, auth.ErrForbidden},
		{"anonymous on public data", "/api/v1/data/statuses", nil, nil},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			decisions = nil
			ctx := routertest.NewContext("GET", tt.path)
			if tt.principal != nil {
				ctx.SetContext(auth.WithPrincipal(context.Background(), tt.principal))
			}

			err := handler(ctx)
			require.Len(t, decisions, 1)
			if tt.wantErr != nil {
				assert.Equal(t, tt.wantErr, err)
				assert.False(t, decisions[0].Allowed)
				assert.NotEqual(t, http.StatusNoContent, ctx.StatusCode)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, http.StatusNoContent, ctx.StatusCode)
		})
	}
}

func TestAuthz_ReadsLocals(t *testing.T) {
	mw := authz.New(authz.Config{
		Policy:     auth.MustPolicy(auth.DefaultRules()),
		ContextKey: "user",
		Logger:     quietLogger{},
	})

	ctx := routertest.NewContext("GET", "/api/v1/admin/issues")
	ctx.Locals("user", &auth.Principal{Username: "root", Role: auth.RoleAdmin})

	err := mw(func(c router.Context) error { return nil })(ctx)
	assert.NoError(t, err)
}

func TestAuthz_RequiresPolicy(t *testing.T) {
	assert.Panics(t, func() {
		authz.New(authz.Config{})
	})
}
