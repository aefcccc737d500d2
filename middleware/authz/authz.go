// Package authz enforces an auth.Policy after the authentication filter
// has run. Denials are returned as errors for the error boundary to render.
package authz

import (
	"github.com/goliatone/go-router"

	auth "github.com/goliatone/go-civic-auth"
	"github.com/goliatone/go-civic-auth/middleware/requestid"
)

// DecisionListener observes every decision, e.g. for metrics
type DecisionListener func(ctx router.Context, decision auth.Decision)

type Config struct {
	Policy     *auth.Policy
	ContextKey string
	Logger     auth.Logger
	Listeners  []DecisionListener
}

func New(config Config) router.MiddlewareFunc {
	if config.Policy == nil {
		panic("AUTH: authorization configuration: Policy is required.")
	}
	if config.Logger == nil {
		config.Logger = auth.DefaultLogger()
	}

	return func(next router.HandlerFunc) router.HandlerFunc {
		return func(ctx router.Context) error {
			principal, _ := auth.PrincipalFromRouter(ctx, config.ContextKey)

			decision := config.Policy.Authorize(ctx.Path(), ctx.Method(), principal)
			for _, listener := range config.Listeners {
				if listener != nil {
					listener(ctx, decision)
				}
			}

			if !decision.Allowed {
				rule := "<none>"
				if decision.Rule != nil {
					rule = decision.Rule.String()
				}
				config.Logger.Debug("request %s %s %s denied (%s) by %s",
					requestid.FromContext(ctx.Context()), ctx.Method(), ctx.Path(), decision.Reason, rule)
				return decision.Err()
			}

			return next(ctx)
		}
	}
}
