package metrics

import (
	"context"
	"io"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/gofiber/fiber/v2"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	auth "github.com/goliatone/go-civic-auth"
	"github.com/goliatone/go-civic-auth/middleware/jwtware"
)

func TestFilterListener(t *testing.T) {
	m := New()
	listener := m.FilterListener()

	listener(nil, jwtware.OutcomeExpired)
	listener(nil, jwtware.OutcomeExpired)
	listener(nil, jwtware.OutcomeAuthenticated)

	assert.Equal(t, 2.0, testutil.ToFloat64(m.filterOutcomes.WithLabelValues("expired")))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.filterOutcomes.WithLabelValues("authenticated")))
	assert.Equal(t, 0.0, testutil.ToFloat64(m.filterOutcomes.WithLabelValues("malformed")))
}

func TestDecisionListener(t *testing.T) {
	m := New()
	listener := m.DecisionListener()

	policy := auth.MustPolicy(auth.DefaultRules())
	citizen := &auth.Principal{Username: "alice", Role: auth.RoleCitizen}

	listener(nil, policy.Authorize("/api/v1/issues", "GET", citizen))
	listener(nil, policy.Authorize("/api/v1/admin/issues", "GET", citizen))
	listener(nil, policy.Authorize("/api/v1/admin/issues", "GET", nil))

	assert.Equal(t, 1.0, testutil.ToFloat64(m.authzDecisions.WithLabelValues("allow", "/api/v1/issues/**")))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.authzDecisions.WithLabelValues("forbidden", "/api/v1/admin/**")))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.authzDecisions.WithLabelValues("unauthenticated", "/api/v1/admin/**")))
}

func TestActivitySink(t *testing.T) {
	m := New()
	sink := m.ActivitySink()

	require.NoError(t, sink.Record(context.Background(), auth.ActivityEvent{EventType: auth.ActivityEventLoginFailure}))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.activityEvents.WithLabelValues(string(auth.ActivityEventLoginFailure))))
}

func TestFiberMiddleware(t *testing.T) {
	m := New()

	app := fiber.New()
	app.Use(m.FiberMiddleware())
	app.Get("/api/v1/issues/:id", func(c *fiber.Ctx) error {
		return c.SendStatus(fiber.StatusNoContent)
	})

	resp, err := app.Test(httptest.NewRequest("GET", "/api/v1/issues/42", nil))
	require.NoError(t, err)
	assert.Equal(t, fiber.StatusNoContent, resp.StatusCode)

	assert.Equal(t, 1, testutil.CollectAndCount(m.httpRequestsTotal))
	assert.Equal(t, 0.0, testutil.ToFloat64(m.httpInFlight))
}

func TestHandler(t *testing.T) {
	m := New()
	m.FilterListener()(nil, jwtware.OutcomeAnonymous)

	rec := httptest.NewRecorder()
	m.Handler().ServeHTTP(rec, httptest.NewRequest("GET", "/metrics", nil))

	body, err := io.ReadAll(rec.Body)
	require.NoError(t, err)
	assert.True(t, strings.Contains(string(body), `civic_auth_filter_outcomes_total{outcome="anonymous"} 1`))
}
