// Package api assembles the civic HTTP surface: services, the middleware
// chain and the route table.
package api

import (
	"time"

	"github.com/goliatone/go-router"
	"github.com/uptrace/bun"

	auth "github.com/goliatone/go-civic-auth"
	"github.com/goliatone/go-civic-auth/issues"
	"github.com/goliatone/go-civic-auth/metrics"
	"github.com/goliatone/go-civic-auth/middleware/authz"
	"github.com/goliatone/go-civic-auth/middleware/jwtware"
	"github.com/goliatone/go-civic-auth/middleware/requestid"
)

// API holds the wired services and controllers
type API struct {
	Tokens      *auth.TokenService
	Hasher      *auth.BcryptHasher
	Repos       auth.RepositoryManager
	Credentials *auth.CredentialService
	Issues      *issues.Service
	Policy      *auth.Policy
	Responder   *auth.ErrorResponder

	AuthController   *auth.AuthController
	IssuesController *issues.Controller

	middleware []router.MiddlewareFunc
}

type options struct {
	loggers  auth.LoggerProvider
	metrics  *metrics.Metrics
	clock    func() time.Time
	rules    []auth.RouteRule
	activity []auth.ActivitySink
}

type Option func(*options)

func WithLoggerProvider(provider auth.LoggerProvider) Option {
	return func(o *options) {
		o.loggers = provider
	}
}

func WithMetrics(m *metrics.Metrics) Option {
	return func(o *options) {
		o.metrics = m
	}
}

// WithClock fixes the clock used for tokens, error timestamps and records
func WithClock(now func() time.Time) Option {
	return func(o *options) {
		if now != nil {
			o.clock = now
		}
	}
}

// WithRules replaces DefaultRules
func WithRules(rules []auth.RouteRule) Option {
	return func(o *options) {
		o.rules = rules
	}
}

func WithActivitySink(sink auth.ActivitySink) Option {
	return func(o *options) {
		if sink != nil {
			o.activity = append(o.activity, sink)
		}
	}
}

// New wires every service against db
func New(cfg auth.Config, db *bun.DB, opts ...Option) (*API, error) {
	o := &options{
		clock: time.Now,
		rules: auth.DefaultRules(),
	}
	for _, opt := range opts {
		if opt != nil {
			opt(o)
		}
	}

	logger := func(name string) auth.Logger {
		return auth.ResolveLogger(name, o.loggers, nil)
	}

	tokens, err := auth.NewTokenServiceFromConfig(cfg, logger("tokens"))
	if err != nil {
		return nil, err
	}

	policy, err := auth.NewPolicy(o.rules)
	if err != nil {
		return nil, err
	}

	a := &API{
		Tokens: tokens,
		Hasher: auth.NewBcryptHasher(cfg.GetPasswordCost()),
		Repos:  auth.NewRepositoryManager(db, auth.WithPrincipalsClock(o.clock)),
		Policy: policy,
		Responder: auth.NewErrorResponder(
			auth.WithResponderLogger(logger("http")),
			auth.WithResponderClock(o.clock),
		),
	}

	sinks := auth.MultiActivitySink(o.activity)
	if o.metrics != nil {
		sinks = append(sinks, o.metrics.ActivitySink())
	}

	a.Credentials = auth.NewCredentialService(a.Repos.Principals(), a.Hasher, a.Tokens).
		WithLogger(logger("credentials")).
		WithActivitySink(sinks).
		WithClock(o.clock).
		WithDeterministicIDs(cfg.GetDeterministicIDs())

	a.Issues = issues.NewService(db,
		issues.NewIssuesRepository(db),
		issues.NewCommentsRepository(db),
	).WithLogger(logger("issues")).WithClock(o.clock)

	a.AuthController = auth.NewAuthController(a.Credentials,
		auth.WithControllerLogger(logger("auth-controller")),
	)
	a.IssuesController = issues.NewController(a.Issues, logger("issues-controller"))

	filter := jwtware.Config{
		TokenVerifier:  a.Tokens,
		Principals:     a.Repos.Principals(),
		PublicPrefixes: cfg.GetPublicPrefixes(),
		ContextKey:     cfg.GetContextKey(),
		Logger:         logger("filter"),
		Clock:          o.clock,
	}
	access := authz.Config{
		Policy:     a.Policy,
		ContextKey: cfg.GetContextKey(),
		Logger:     logger("authz"),
	}
	if o.metrics != nil {
		filter.OutcomeListeners = append(filter.OutcomeListeners, o.metrics.FilterListener())
		access.Listeners = append(access.Listeners, o.metrics.DecisionListener())
	}

	a.middleware = []router.MiddlewareFunc{
		requestid.New(),
		a.Responder.ErrorBoundary(),
		jwtware.New(filter),
		authz.New(access),
	}

	return a, nil
}

// Wrap runs h behind request id tagging, the error boundary, the
// authentication filter and the authorization policy, in that order
func (a *API) Wrap(h router.HandlerFunc) router.HandlerFunc {
	for i := len(a.middleware) - 1; i >= 0; i-- {
		h = a.middleware[i](h)
	}
	return h
}

// Register adds every route to app, each behind the middleware chain
func (a *API) Register(app auth.RouteRegistrar) {
	r := &guarded{app: app, wrap: a.Wrap}
	auth.RegisterAuthRoutes(r, a.AuthController)
	issues.RegisterRoutes(r, a.IssuesController)

	// unmatched paths still go through the chain, so anonymous callers
	// get 401 before they learn whether a route exists
	r.Get("/*", a.NotFound).SetName("not-found.get")
	r.Post("/*", a.NotFound).SetName("not-found.post")
	r.Put("/*", a.NotFound).SetName("not-found.put")
	r.Delete("/*", a.NotFound).SetName("not-found.delete")
}

// NotFound answers requests that matched no route
func (a *API) NotFound(ctx router.Context) error {
	return auth.ErrResourceNotFound
}

type guarded struct {
	app  auth.RouteRegistrar
	wrap func(router.HandlerFunc) router.HandlerFunc
}

func (g *guarded) Get(path string, handler router.HandlerFunc, mw ...router.MiddlewareFunc) router.RouteInfo {
	return g.app.Get(path, g.wrap(handler), mw...)
}

func (g *guarded) Post(path string, handler router.HandlerFunc, mw ...router.MiddlewareFunc) router.RouteInfo {
	return g.app.Post(path, g.wrap(handler), mw...)
}

func (g *guarded) Put(path string, handler router.HandlerFunc, mw ...router.MiddlewareFunc) router.RouteInfo {
	return g.app.Put(path, g.wrap(handler), mw...)
}

func (g *guarded) Delete(path string, handler router.HandlerFunc, mw ...router.MiddlewareFunc) router.RouteInfo {
	return g.app.Delete(path, g.wrap(handler), mw...)
}
