package issues

import (
	"net/http"

	"github.com/goliatone/go-errors"
	"github.com/goliatone/go-router"

	auth "github.com/goliatone/go-civic-auth"
)

type Routes struct {
	Issues        string
	MyIssues      string
	Issue         string
	IssueComments string
	AdminIssues   string
	AdminStatus   string
	AdminIssue    string
	AdminComments string
	Categories    string
	Statuses      string
}

func DefaultRoutes() *Routes {
	return &Routes{
		Issues:        "/api/v1/issues",
		MyIssues:      "/api/v1/issues/my",
		Issue:         "/api/v1/issues/:id",
		IssueComments: "/api/v1/issues/:id/comments",
		AdminIssues:   "/api/v1/admin/issues",
		AdminStatus:   "/api/v1/admin/issues/:id/status",
		AdminIssue:    "/api/v1/admin/issues/:id",
		AdminComments: "/api/v1/admin/issues/:id/comments",
		Categories:    "/api/v1/data/categories",
		Statuses:      "/api/v1/data/statuses",
	}
}

type Controller struct {
	Logger  auth.Logger
	Service *Service
	Routes  *Routes
}

func NewController(service *Service, logger auth.Logger) *Controller {
	if service == nil {
		panic("Missing issues Service in controller...")
	}
	if logger == nil {
		logger = auth.DefaultLogger()
	}
	return &Controller{
		Logger:  logger,
		Service: service,
		Routes:  DefaultRoutes(),
	}
}

// RegisterRoutes wires the citizen, admin and data endpoints. Access is
// enforced by the authorization policy, not here.
func RegisterRoutes(app auth.RouteRegistrar, c *Controller) {
	app.Post(c.Routes.Issues, c.Create).SetName("issues.create")
	app.Get(c.Routes.MyIssues, c.ListMine).SetName("issues.mine")
	app.Get(c.Routes.Issue, c.Get).SetName("issues.get")
	app.Get(c.Routes.IssueComments, c.ListComments).SetName("issues.comments")

	app.Get(c.Routes.AdminIssues, c.ListAll).SetName("admin.issues")
	app.Put(c.Routes.AdminStatus, c.UpdateStatus).SetName("admin.issues.status")
	app.Delete(c.Routes.AdminIssue, c.Delete).SetName("admin.issues.delete")
	app.Get(c.Routes.AdminComments, c.ListComments).SetName("admin.issues.comments")
	app.Post(c.Routes.AdminComments, c.AddComment).SetName("admin.issues.comments.create")

	app.Get(c.Routes.Categories, c.Categories).SetName("data.categories")
	app.Get(c.Routes.Statuses, c.Statuses).SetName("data.statuses")
}

func (c *Controller) Create(ctx router.Context) error {
	principal, err := auth.CurrentPrincipal(ctx)
	if err != nil {
		return err
	}

	payload := new(CreateIssueRequest)
	if err := ctx.Bind(payload); err != nil {
		return errors.Wrap(err, errors.CategoryBadInput, "malformed request body")
	}

	issue, err := c.Service.Create(ctx.Context(), principal, *payload)
	if err != nil {
		return err
	}

	return ctx.JSON(http.StatusCreated, issue)
}

func (c *Controller) ListMine(ctx router.Context) error {
	principal, err := auth.CurrentPrincipal(ctx)
	if err != nil {
		return err
	}

	issues, err := c.Service.ListMine(ctx.Context(), principal)
	if err != nil {
		return err
	}

	return ctx.JSON(router.StatusOK, issues)
}

func (c *Controller) Get(ctx router.Context) error {
	id, err := ParseID(ctx.Param("id"))
	if err != nil {
		return err
	}

	issue, err := c.Service.Get(ctx.Context(), id)
	if err != nil {
		return err
	}

	return ctx.JSON(router.StatusOK, issue)
}

func (c *Controller) ListAll(ctx router.Context) error {
	issues, err := c.Service.ListAll(ctx.Context())
	if err != nil {
		return err
	}
	return ctx.JSON(router.StatusOK, issues)
}

func (c *Controller) UpdateStatus(ctx router.Context) error {
	id, err := ParseID(ctx.Param("id"))
	if err != nil {
		return err
	}

	payload := new(StatusUpdateRequest)
	if err := ctx.Bind(payload); err != nil {
		return errors.Wrap(err, errors.CategoryBadInput, "malformed request body")
	}

	issue, err := c.Service.UpdateStatus(ctx.Context(), id, *payload)
	if err != nil {
		return err
	}

	return ctx.JSON(router.StatusOK, issue)
}

func (c *Controller) Delete(ctx router.Context) error {
	id, err := ParseID(ctx.Param("id"))
	if err != nil {
		return err
	}

	if err := c.Service.Delete(ctx.Context(), id); err != nil {
		return err
	}

	return ctx.NoContent(http.StatusNoContent)
}

func (c *Controller) ListComments(ctx router.Context) error {
	id, err := ParseID(ctx.Param("id"))
	if err != nil {
		return err
	}

	comments, err := c.Service.ListComments(ctx.Context(), id)
	if err != nil {
		return err
	}

	return ctx.JSON(router.StatusOK, comments)
}

func (c *Controller) AddComment(ctx router.Context) error {
	principal, err := auth.CurrentPrincipal(ctx)
	if err != nil {
		return err
	}

	id, err := ParseID(ctx.Param("id"))
	if err != nil {
		return err
	}

	payload := new(CommentRequest)
	if err := ctx.Bind(payload); err != nil {
		return errors.Wrap(err, errors.CategoryBadInput, "malformed request body")
	}

	comment, err := c.Service.AddComment(ctx.Context(), principal, id, *payload)
	if err != nil {
		return err
	}

	return ctx.JSON(http.StatusCreated, comment)
}

func (c *Controller) Categories(ctx router.Context) error {
	return ctx.JSON(router.StatusOK, Categories())
}

func (c *Controller) Statuses(ctx router.Context) error {
	return ctx.JSON(router.StatusOK, Statuses())
}
