package auth_test

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	auth "github.com/goliatone/go-civic-auth"
)

var (
	citizen = &auth.Principal{Username: "alice", Role: auth.RoleCitizen}
	admin   = &auth.Principal{Username: "root", Role: auth.RoleAdmin}
)

func TestPolicy_DefaultRules(t *testing.T) {
	policy := auth.MustPolicy(auth.DefaultRules())

	tests := []struct {
		path      string
		method    string
		principal *auth.Principal
		allowed   bool
		reason    auth.DenyReason
	}{
		{"/api/v1/auth/login", "POST", nil, true, auth.ReasonNone},
		{"/api/v1/auth/register", "POST", citizen, true, auth.ReasonNone},
		{"/api/v1/data/categories", "GET", nil, true, auth.ReasonNone},

		{"/api/v1/issues/42", "GET", citizen, true, auth.ReasonNone},
		{"/api/v1/issues/42", "GET", nil, false, auth.ReasonUnauthenticated},
		{"/api/v1/issues/42", "GET", admin, false, auth.ReasonForbidden},
		{"/api/v1/issues", "POST", citizen, true, auth.ReasonNone},

		{"/api/v1/admin/users", "GET", citizen, false, auth.ReasonForbidden},
		{"/api/v1/admin/users", "GET", nil, false, auth.ReasonUnauthenticated},
		{"/api/v1/admin/issues/1/status", "PUT", admin, true, auth.ReasonNone},

		{"/api/v1/users/me", "GET", citizen, true, auth.ReasonNone},
		{"/api/v1/users/me", "GET", admin, true, auth.ReasonNone},
		{"/api/v1/users/me", "GET", nil, false, auth.ReasonUnauthenticated},
		{"/anything/else", "GET", nil, false, auth.ReasonUnauthenticated},
	}

	for _, tt := range tests {
		name := tt.method + " " + tt.path
		if tt.principal != nil {
			name += " as " + string(tt.principal.Role)
		}
		t.Run(name, func(t *testing.T) {
			d := policy.Authorize(tt.path, tt.method, tt.principal)
			assert.Equal(t, tt.allowed, d.Allowed)
			assert.Equal(t, tt.reason, d.Reason)
			require.NotNil(t, d.Rule)
		})
	}
}

func TestPolicy_PathNormalization(t *testing.T) {
	policy := auth.MustPolicy(auth.DefaultRules())

	// dot segments cannot climb out of a public prefix
	d := policy.Authorize("/api/v1/auth/../admin/users", "GET", citizen)
	assert.False(t, d.Allowed)
	assert.Equal(t, auth.ReasonForbidden, d.Reason)

	d = policy.Authorize("/api/v1//issues/./42", "GET", citizen)
	assert.True(t, d.Allowed)

	assert.Equal(t, "/", auth.CleanPath(""))
	assert.Equal(t, "/a/b", auth.CleanPath("a/b/"))
}

func TestPolicy_Specificity(t *testing.T) {
	policy := auth.MustPolicy([]auth.RouteRule{
		{Pattern: "/**", Requirement: auth.Authenticated()},
		{Pattern: "/api/v1/issues/**", Requirement: auth.HasRole(auth.RoleCitizen)},
		{Pattern: "/api/v1/issues/*/comments", Requirement: auth.Public()},
		{Pattern: "/api/v1/issues/*/comments", Methods: []string{"POST"}, Requirement: auth.HasRole(auth.RoleAdmin)},
	})

	rules := policy.Rules()
	require.Len(t, rules, 4)
	assert.Equal(t, []string{"POST"}, rules[0].Methods)
	assert.Equal(t, "/**", rules[3].Pattern)

	d := policy.Authorize("/api/v1/issues/7/comments", "GET", nil)
	assert.True(t, d.Allowed)

	d = policy.Authorize("/api/v1/issues/7/comments", "post", citizen)
	assert.False(t, d.Allowed)
	assert.Equal(t, auth.ReasonForbidden, d.Reason)

	d = policy.Authorize("/api/v1/issues/7", "GET", admin)
	assert.Equal(t, auth.ReasonForbidden, d.Reason)
}

func TestPolicy_NoMatch(t *testing.T) {
	rules := []auth.RouteRule{{Pattern: "/public/**", Requirement: auth.Public()}}

	d := auth.MustPolicy(rules).Authorize("/private", "GET", admin)
	assert.False(t, d.Allowed)
	assert.Nil(t, d.Rule)
	assert.True(t, d.Err() == auth.ErrUnauthenticated)

	d = auth.MustPolicy(rules, auth.WithDefaultAllow()).Authorize("/private", "GET", nil)
	assert.True(t, d.Allowed)
	assert.NoError(t, d.Err())
}

func TestPolicy_DecisionRuleIsACopy(t *testing.T) {
	policy := auth.MustPolicy(auth.DefaultRules())

	d := policy.Authorize("/api/v1/issues", "GET", citizen)
	require.NotNil(t, d.Rule)
	d.Rule.Pattern = "/changed"

	again := policy.Authorize("/api/v1/issues", "GET", citizen)
	assert.Equal(t, "/api/v1/issues/**", again.Rule.Pattern)
}

func TestNewPolicy_InvalidRules(t *testing.T) {
	tests := []struct {
		name string
		rule auth.RouteRule
	}{
		{"relative pattern", auth.RouteRule{Pattern: "api/**", Requirement: auth.Public()}},
		{"unknown role", auth.RouteRule{Pattern: "/x", Requirement: auth.HasRole("ROOT")}},
		{"double star in the middle", auth.RouteRule{Pattern: "/a/**/b", Requirement: auth.Public()}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := auth.NewPolicy([]auth.RouteRule{tt.rule})
			assert.Error(t, err)
		})
	}

	assert.Panics(t, func() {
		auth.MustPolicy([]auth.RouteRule{{Pattern: "nope"}})
	})
}
