package auth

import (
	"net/http"

	"github.com/goliatone/go-errors"
	"github.com/goliatone/go-router"
)

// RouteRegistrar captures the router methods used by the controllers.
type RouteRegistrar interface {
	Get(path string, handler router.HandlerFunc, mw ...router.MiddlewareFunc) router.RouteInfo
	Post(path string, handler router.HandlerFunc, mw ...router.MiddlewareFunc) router.RouteInfo
	Put(path string, handler router.HandlerFunc, mw ...router.MiddlewareFunc) router.RouteInfo
	Delete(path string, handler router.HandlerFunc, mw ...router.MiddlewareFunc) router.RouteInfo
}

type AuthControllerRoutes struct {
	Register string
	Login    string
	Me       string
}

// PrincipalView is the public projection of a Principal
type PrincipalView struct {
	ID       string `json:"id"`
	Username string `json:"username"`
	Email    string `json:"email"`
	Role     Role   `json:"role"`
}

func NewPrincipalView(p *Principal) PrincipalView {
	return PrincipalView{
		ID:       p.ID.String(),
		Username: p.Username,
		Email:    p.Email,
		Role:     p.Role,
	}
}

type AuthController struct {
	Logger      Logger
	Credentials *CredentialService
	Routes      *AuthControllerRoutes
}

type AuthControllerOption func(*AuthController) *AuthController

func WithControllerLogger(logger Logger) AuthControllerOption {
	return func(c *AuthController) *AuthController {
		if logger != nil {
			c.Logger = logger
		}
		return c
	}
}

func WithControllerRoutes(routes *AuthControllerRoutes) AuthControllerOption {
	return func(c *AuthController) *AuthController {
		if routes != nil {
			c.Routes = routes
		}
		return c
	}
}

func NewAuthController(credentials *CredentialService, opts ...AuthControllerOption) *AuthController {
	c := &AuthController{
		Logger:      defLogger{},
		Credentials: credentials,
		Routes: &AuthControllerRoutes{
			Register: "/api/v1/auth/register",
			Login:    "/api/v1/auth/login",
			Me:       "/api/v1/users/me",
		},
	}

	for _, opt := range opts {
		c = opt(c)
	}

	if c.Credentials == nil {
		panic("Missing CredentialService in auth controller...")
	}

	return c
}

func RegisterAuthRoutes(app RouteRegistrar, controller *AuthController) {
	app.Post(controller.Routes.Register, controller.Register).SetName("auth.register")
	app.Post(controller.Routes.Login, controller.Login).SetName("auth.login")

	app.Get(controller.Routes.Me, controller.Me).SetName("users.me.get")
	app.Put(controller.Routes.Me, controller.UpdateMe).SetName("users.me.put")
	app.Delete(controller.Routes.Me, controller.DeleteMe).SetName("users.me.delete")
}

func (a *AuthController) Register(ctx router.Context) error {
	payload := new(RegisterRequest)
	if err := ctx.Bind(payload); err != nil {
		a.Logger.Debug("register parse payload: %v", err)
		return errors.Wrap(err, errors.CategoryBadInput, "malformed request body")
	}

	_, issued, err := a.Credentials.Register(ctx.Context(), *payload)
	if err != nil {
		return err
	}

	return ctx.JSON(http.StatusCreated, issued)
}

func (a *AuthController) Login(ctx router.Context) error {
	payload := new(LoginRequest)
	if err := ctx.Bind(payload); err != nil {
		a.Logger.Debug("login parse payload: %v", err)
		return errors.Wrap(err, errors.CategoryBadInput, "malformed request body")
	}

	issued, err := a.Credentials.Login(ctx.Context(), *payload)
	if err != nil {
		return err
	}

	return ctx.JSON(router.StatusOK, issued)
}

func (a *AuthController) Me(ctx router.Context) error {
	principal, err := CurrentPrincipal(ctx)
	if err != nil {
		return err
	}
	return ctx.JSON(router.StatusOK, NewPrincipalView(principal))
}

func (a *AuthController) UpdateMe(ctx router.Context) error {
	principal, err := CurrentPrincipal(ctx)
	if err != nil {
		return err
	}

	payload := new(ProfileUpdate)
	if err := ctx.Bind(payload); err != nil {
		return errors.Wrap(err, errors.CategoryBadInput, "malformed request body")
	}

	updated, err := a.Credentials.UpdateProfile(ctx.Context(), principal, *payload)
	if err != nil {
		return err
	}

	return ctx.JSON(router.StatusOK, NewPrincipalView(updated))
}

func (a *AuthController) DeleteMe(ctx router.Context) error {
	principal, err := CurrentPrincipal(ctx)
	if err != nil {
		return err
	}

	if err := a.Credentials.DeleteAccount(ctx.Context(), principal); err != nil {
		return err
	}

	return ctx.NoContent(http.StatusNoContent)
}
