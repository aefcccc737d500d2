package jwtware

import (
	"context"
	"strings"
	"time"

	"github.com/goliatone/go-router"

	auth "github.com/goliatone/go-civic-auth"
	"github.com/goliatone/go-civic-auth/middleware/requestid"
)

// Outcome is how the filter resolved a request
type Outcome string

const (
	OutcomeBypassed          Outcome = "bypassed"
	OutcomeAnonymous         Outcome = "anonymous"
	OutcomeMalformed         Outcome = "malformed"
	OutcomeSignatureInvalid  Outcome = "signature_invalid"
	OutcomeExpired           Outcome = "expired"
	OutcomePrincipalNotFound Outcome = "principal_not_found"
	OutcomeLookupFailed      Outcome = "lookup_failed"
	OutcomeAuthenticated     Outcome = "authenticated"
)

// Outcomes lists every outcome, e.g. to pre-register metric labels
func Outcomes() []Outcome {
	return []Outcome{
		OutcomeBypassed,
		OutcomeAnonymous,
		OutcomeMalformed,
		OutcomeSignatureInvalid,
		OutcomeExpired,
		OutcomePrincipalNotFound,
		OutcomeLookupFailed,
		OutcomeAuthenticated,
	}
}

// TokenVerifier returns the subject of a valid token
type TokenVerifier interface {
	Verify(token string, now time.Time) (string, error)
}

// OutcomeListener is invoked once per request with the filter outcome
type OutcomeListener func(ctx router.Context, outcome Outcome)

type Config struct {
	// Filter returning true skips authentication for the request
	Filter func(router.Context) bool
	// PublicPrefixes are path prefixes that never carry credentials
	PublicPrefixes []string
	// TokenVerifier is required
	TokenVerifier TokenVerifier
	// Principals is required, it is queried on every authenticated request
	Principals auth.PrincipalFinder
	// ContextKey is the locals key the principal is published under
	ContextKey string
	// AuthScheme is matched case sensitive, followed by a single space
	AuthScheme string
	Logger     auth.Logger
	Clock      func() time.Time

	// ContextEnricher can add more values to the request context once the
	// principal is resolved
	ContextEnricher func(c context.Context, principal *auth.Principal) context.Context

	OutcomeListeners []OutcomeListener
}

// New returns the authentication filter. It never rejects a request: a
// missing or invalid credential leaves the request anonymous and the
// authorization policy downstream decides.
func New(config ...Config) router.MiddlewareFunc {
	cfg := GetDefaultConfig(config...)

	return func(next router.HandlerFunc) router.HandlerFunc {
		return func(ctx router.Context) error {
			outcome := cfg.authenticate(ctx)
			cfg.notify(ctx, outcome)
			return next(ctx)
		}
	}
}

func GetDefaultConfig(config ...Config) (cfg Config) {
	if len(config) > 0 {
		cfg = config[0]
	}

	if cfg.TokenVerifier == nil {
		panic("AUTH: authentication filter configuration: TokenVerifier is required.")
	}

	if cfg.Principals == nil {
		panic("AUTH: authentication filter configuration: Principals is required.")
	}

	if cfg.PublicPrefixes == nil {
		cfg.PublicPrefixes = []string{"/api/v1/auth/"}
	}

	if cfg.ContextKey == "" {
		cfg.ContextKey = auth.DefaultContextKey
	}

	if cfg.AuthScheme == "" {
		cfg.AuthScheme = "Bearer"
	}

	if cfg.Logger == nil {
		cfg.Logger = auth.DefaultLogger()
	}

	if cfg.Clock == nil {
		cfg.Clock = time.Now
	}

	return cfg
}

func (cfg Config) authenticate(ctx router.Context) Outcome {
	if cfg.bypass(ctx) {
		return OutcomeBypassed
	}

	raw, ok := ExtractBearerToken(ctx.Header(router.HeaderAuthorization), cfg.AuthScheme)
	if !ok {
		return OutcomeAnonymous
	}

	subject, err := cfg.TokenVerifier.Verify(raw, cfg.Clock())
	if err != nil {
		outcome := verifyOutcome(err)
		cfg.Logger.Info("request %s %s: bearer token rejected (%s): %v",
			requestid.FromContext(ctx.Context()), ctx.Path(), outcome, err)
		return outcome
	}

	principal, err := cfg.Principals.FindPrincipalByUsername(ctx.Context(), subject)
	if err != nil {
		if auth.IsPrincipalNotFoundError(err) {
			cfg.Logger.Info("request %s %s: token subject %q has no principal",
				requestid.FromContext(ctx.Context()), ctx.Path(), subject)
			return OutcomePrincipalNotFound
		}
		cfg.Logger.Error("request %s %s: principal lookup for %q failed: %v",
			requestid.FromContext(ctx.Context()), ctx.Path(), subject, err)
		return OutcomeLookupFailed
	}

	if principal == nil {
		return OutcomePrincipalNotFound
	}

	stdCtx := auth.WithPrincipal(ctx.Context(), principal)
	if cfg.ContextEnricher != nil {
		stdCtx = cfg.ContextEnricher(stdCtx, principal)
	}
	ctx.SetContext(stdCtx)
	ctx.Locals(cfg.ContextKey, principal)

	return OutcomeAuthenticated
}

func (cfg Config) bypass(ctx router.Context) bool {
	if cfg.Filter != nil && cfg.Filter(ctx) {
		return true
	}

	p := auth.CleanPath(ctx.Path())
	for _, prefix := range cfg.PublicPrefixes {
		if prefix == "" {
			continue
		}
		if strings.HasPrefix(p, prefix) || p == strings.TrimSuffix(prefix, "/") {
			return true
		}
	}
	return false
}

func (cfg Config) notify(ctx router.Context, outcome Outcome) {
	for _, listener := range cfg.OutcomeListeners {
		if listener != nil {
			listener(ctx, outcome)
		}
	}
}

// ExtractBearerToken returns the credential following "<scheme> " in the
// header value. The scheme is case sensitive and must be followed by
// exactly one space and a non empty token.
func ExtractBearerToken(header, scheme string) (string, bool) {
	prefix := scheme + " "
	if !strings.HasPrefix(header, prefix) {
		return "", false
	}

	token := header[len(prefix):]
	if token == "" || strings.ContainsAny(token, " \t") {
		return "", false
	}

	return token, true
}

func verifyOutcome(err error) Outcome {
	switch {
	case auth.IsTokenExpiredError(err):
		return OutcomeExpired
	case auth.IsSignatureInvalidError(err):
		return OutcomeSignatureInvalid
	default:
		return OutcomeMalformed
	}
}
