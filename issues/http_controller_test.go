package issues_test

import (
	"context"
	"net/http"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	auth "github.com/goliatone/go-civic-auth"
	"github.com/goliatone/go-civic-auth/issues"
	"github.com/goliatone/go-civic-auth/routertest"
)

func asPrincipal(c *routertest.Context, p *auth.Principal) *routertest.Context {
	c.SetContext(auth.WithPrincipal(context.Background(), p))
	return c
}

func TestController_CreateAndGet(t *testing.T) {
	e := newEnv(t)
	ctrl := issues.NewController(e.svc, quietLogger{})
	alice := e.principal(t, "alice", auth.RoleCitizen)

	create := asPrincipal(routertest.NewContext(http.MethodPost, "/api/v1/issues"), alice).
		WithJSONBody(pothole())
	require.NoError(t, ctrl.Create(create))
	assert.Equal(t, http.StatusCreated, create.StatusCode)

	var created issues.Issue
	require.NoError(t, create.DecodeBody(&created))
	assert.Equal(t, issues.StatusPending, created.Status)
	assert.Equal(t, alice.ID, created.UserID)

	get := routertest.NewContext(http.MethodGet, "/api/v1/issues/"+created.ID.String()).
		WithParam("id", created.ID.String())
	require.NoError(t, ctrl.Get(get))
	assert.Equal(t, http.StatusOK, get.StatusCode)

	var fetched issues.Issue
	require.NoError(t, get.DecodeBody(&fetched))
	assert.Equal(t, created.ID, fetched.ID)

	mine := asPrincipal(routertest.NewContext(http.MethodGet, "/api/v1/issues/my"), alice)
	require.NoError(t, ctrl.ListMine(mine))
	var list []issues.Issue
	require.NoError(t, mine.DecodeBody(&list))
	assert.Len(t, list, 1)
}

func TestController_Errors(t *testing.T) {
	e := newEnv(t)
	ctrl := issues.NewController(e.svc, nil)
	alice := e.principal(t, "alice", auth.RoleCitizen)

	t.Run("anonymous create", func(t *testing.T) {
		c := routertest.NewContext(http.MethodPost, "/api/v1/issues").WithJSONBody(pothole())
		assert.Equal(t, auth.ErrUnauthenticated, ctrl.Create(c))
	})

	t.Run("malformed body", func(t *testing.T) {
		c := asPrincipal(routertest.NewContext(http.MethodPost, "/api/v1/issues"), alice).
			WithJSONBody("{not json")
		err := ctrl.Create(c)
		require.Error(t, err)
		assert.Equal(t, http.StatusBadRequest, auth.NewErrorResponder().Status(err))
	})

	t.Run("non uuid id", func(t *testing.T) {
		c := routertest.NewContext(http.MethodGet, "/api/v1/issues/42").WithParam("id", "42")
		err := ctrl.Get(c)
		assert.True(t, auth.IsResourceNotFoundError(err))
		assert.Equal(t, http.StatusNotFound, auth.NewErrorResponder().Status(err))
	})

	t.Run("unknown id", func(t *testing.T) {
		id := uuid.NewString()
		c := routertest.NewContext(http.MethodGet, "/api/v1/issues/"+id).WithParam("id", id)
		assert.True(t, auth.IsResourceNotFoundError(ctrl.Get(c)))
	})
}

func TestController_AdminFlow(t *testing.T) {
	e := newEnv(t)
	ctrl := issues.NewController(e.svc, nil)
	alice := e.principal(t, "alice", auth.RoleCitizen)
	root := e.principal(t, "root", auth.RoleAdmin)

	issue, err := e.svc.Create(context.Background(), alice, pothole())
	require.NoError(t, err)
	id := issue.ID.String()

	status := routertest.NewContext(http.MethodPut, "/api/v1/admin/issues/"+id+"/status").
		WithParam("id", id).
		WithJSONBody(map[string]string{"status": "resolved"})
	require.NoError(t, ctrl.UpdateStatus(status))
	var updated issues.Issue
	require.NoError(t, status.DecodeBody(&updated))
	assert.Equal(t, issues.StatusResolved, updated.Status)

	comment := asPrincipal(routertest.NewContext(http.MethodPost, "/api/v1/admin/issues/"+id+"/comments"), root).
		WithParam("id", id).
		WithJSONBody(issues.CommentRequest{Content: "Fixed this morning"})
	require.NoError(t, ctrl.AddComment(comment))
	assert.Equal(t, http.StatusCreated, comment.StatusCode)

	list := routertest.NewContext(http.MethodGet, "/api/v1/issues/"+id+"/comments").WithParam("id", id)
	require.NoError(t, ctrl.ListComments(list))
	var comments []issues.CommentView
	require.NoError(t, list.DecodeBody(&comments))
	require.Len(t, comments, 1)
	assert.Equal(t, "root", comments[0].Username)

	all := routertest.NewContext(http.MethodGet, "/api/v1/admin/issues")
	require.NoError(t, ctrl.ListAll(all))
	var everything []issues.Issue
	require.NoError(t, all.DecodeBody(&everything))
	assert.Len(t, everything, 1)

	del := routertest.NewContext(http.MethodDelete, "/api/v1/admin/issues/"+id).WithParam("id", id)
	require.NoError(t, ctrl.Delete(del))
	assert.Equal(t, http.StatusNoContent, del.StatusCode)
}

func TestController_ReferenceData(t *testing.T) {
	e := newEnv(t)
	ctrl := issues.NewController(e.svc, nil)

	c := routertest.NewContext(http.MethodGet, "/api/v1/data/categories")
	require.NoError(t, ctrl.Categories(c))
	var categories []string
	require.NoError(t, c.DecodeBody(&categories))
	assert.Contains(t, categories, "Pothole")
	assert.Contains(t, categories, "Streetlight Out")

	s := routertest.NewContext(http.MethodGet, "/api/v1/data/statuses")
	require.NoError(t, ctrl.Statuses(s))
	var statuses []string
	require.NoError(t, s.DecodeBody(&statuses))
	assert.Equal(t, []string{"PENDING", "IN_PROGRESS", "RESOLVED", "REJECTED"}, statuses)
}

func TestNewController_PanicsWithoutService(t *testing.T) {
	assert.Panics(t, func() { issues.NewController(nil, nil) })
}
