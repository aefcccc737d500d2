package auth_test

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	auth "github.com/goliatone/go-civic-auth"
	"github.com/goliatone/go-civic-auth/routertest"
)

func TestPrincipalFromContext(t *testing.T) {
	_, ok := auth.PrincipalFromContext(context.Background())
	assert.False(t, ok)

	_, ok = auth.PrincipalFromContext(nil) //nolint:staticcheck
	assert.False(t, ok)

	_, ok = auth.PrincipalFromContext(auth.WithPrincipal(context.Background(), nil))
	assert.False(t, ok)

	p := &auth.Principal{Username: "alice"}
	got, ok := auth.PrincipalFromContext(auth.WithPrincipal(context.Background(), p))
	assert.True(t, ok)
	assert.Same(t, p, got)
}

func TestPrincipalFromRouter(t *testing.T) {
	p := &auth.Principal{Username: "alice"}

	t.Run("request context", func(t *testing.T) {
		ctx := routertest.NewContext("GET", "/")
		ctx.SetContext(auth.WithPrincipal(ctx.Context(), p))

		got, ok := auth.PrincipalFromRouter(ctx, "")
		assert.True(t, ok)
		assert.Same(t, p, got)
	})

	t.Run("locals under a custom key", func(t *testing.T) {
		ctx := routertest.NewContext("GET", "/")
		ctx.Locals("user", p)

		got, ok := auth.PrincipalFromRouter(ctx, "user")
		assert.True(t, ok)
		assert.Same(t, p, got)

		_, ok = auth.PrincipalFromRouter(ctx, "")
		assert.False(t, ok)
	})

	t.Run("wrong type in locals", func(t *testing.T) {
		ctx := routertest.NewContext("GET", "/")
		ctx.Locals(auth.DefaultContextKey, "alice")

		_, ok := auth.PrincipalFromRouter(ctx, "")
		assert.False(t, ok)
	})
}

func TestCurrentPrincipal(t *testing.T) {
	ctx := routertest.NewContext("GET", "/")

	_, err := auth.CurrentPrincipal(ctx)
	require.Error(t, err)
	assert.Equal(t, auth.ErrUnauthenticated, err)

	p := &auth.Principal{Username: "alice"}
	ctx.Locals(auth.DefaultContextKey, p)

	got, err := auth.CurrentPrincipal(ctx)
	require.NoError(t, err)
	assert.Same(t, p, got)
}
