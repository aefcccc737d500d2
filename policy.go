package auth

import (
	"fmt"
	"path"
	"sort"
	"strings"

	"github.com/goliatone/go-errors"
)

// RequirementKind is what a route asks of the caller
type RequirementKind int

const (
	// RequirePublic allows everyone
	RequirePublic RequirementKind = iota
	// RequireAuthenticated allows any principal
	RequireAuthenticated
	// RequireRole allows principals holding a specific role
	RequireRole
)

func (k RequirementKind) String() string {
	switch k {
	case RequirePublic:
		return "PUBLIC"
	case RequireAuthenticated:
		return "AUTHENTICATED"
	case RequireRole:
		return "ROLE"
	default:
		return "UNKNOWN"
	}
}

// Requirement is the access requirement attached to a route rule
type Requirement struct {
	Kind RequirementKind
	Role Role
}

// Public is satisfied by anyone
func Public() Requirement {
	return Requirement{Kind: RequirePublic}
}

// Authenticated is satisfied by any principal
func Authenticated() Requirement {
	return Requirement{Kind: RequireAuthenticated}
}

// HasRole is satisfied by principals holding role
func HasRole(role Role) Requirement {
	return Requirement{Kind: RequireRole, Role: role}
}

func (r Requirement) String() string {
	if r.Kind == RequireRole {
		return fmt.Sprintf("ROLE(%s)", r.Role)
	}
	return r.Kind.String()
}

// RouteRule maps a path pattern to a requirement. Patterns are absolute
// slash separated paths where "*" matches exactly one segment and a
// trailing "**" matches zero or more segments. Methods is optional.
type RouteRule struct {
	Pattern     string
	Methods     []string
	Requirement Requirement
}

func (r RouteRule) String() string {
	if len(r.Methods) == 0 {
		return fmt.Sprintf("%s -> %s", r.Pattern, r.Requirement)
	}
	return fmt.Sprintf("%s %s -> %s", strings.Join(r.Methods, ","), r.Pattern, r.Requirement)
}

// DenyReason tells the error boundary which status to use
type DenyReason string

const (
	ReasonNone            DenyReason = ""
	ReasonUnauthenticated DenyReason = "unauthenticated"
	ReasonForbidden       DenyReason = "forbidden"
)

// Decision is the outcome of Authorize. Rule is nil when no rule matched.
type Decision struct {
	Allowed bool
	Reason  DenyReason
	Rule    *RouteRule
}

// Err maps a deny decision to ErrUnauthenticated or ErrForbidden
func (d Decision) Err() error {
	if d.Allowed {
		return nil
	}
	if d.Reason == ReasonForbidden {
		return ErrForbidden
	}
	return ErrUnauthenticated
}

// DefaultRules is the route table of the civic API
func DefaultRules() []RouteRule {
	return []RouteRule{
		{Pattern: "/api/v1/auth/**", Requirement: Public()},
		{Pattern: "/api/v1/data/**", Requirement: Public()},
		{Pattern: "/api/v1/issues/**", Requirement: HasRole(RoleCitizen)},
		{Pattern: "/api/v1/admin/**", Requirement: HasRole(RoleAdmin)},
		{Pattern: "/**", Requirement: Authenticated()},
	}
}

type compiledRule struct {
	rule     RouteRule
	segments []string
	literals int
	singles  int
	tail     bool
}

// Policy evaluates route rules. It is immutable after construction and
// safe for concurrent use.
type Policy struct {
	rules        []compiledRule
	defaultAllow bool
}

// PolicyOption configures a Policy
type PolicyOption func(*Policy)

// WithDefaultAllow lets requests that match no rule through
func WithDefaultAllow() PolicyOption {
	return func(p *Policy) {
		p.defaultAllow = true
	}
}

// NewPolicy compiles rules and orders them most specific first, keeping
// declaration order between rules of equal specificity.
func NewPolicy(rules []RouteRule, opts ...PolicyOption) (*Policy, error) {
	p := &Policy{}
	for _, opt := range opts {
		if opt != nil {
			opt(p)
		}
	}

	for _, rule := range rules {
		c, err := compileRule(rule)
		if err != nil {
			return nil, err
		}
		p.rules = append(p.rules, c)
	}

	sort.SliceStable(p.rules, func(i, j int) bool {
		return p.rules[i].moreSpecific(p.rules[j])
	})

	return p, nil
}

// MustPolicy is NewPolicy that panics on invalid rules
func MustPolicy(rules []RouteRule, opts ...PolicyOption) *Policy {
	p, err := NewPolicy(rules, opts...)
	if err != nil {
		panic(err)
	}
	return p
}

// Rules returns the rules in evaluation order
func (p *Policy) Rules() []RouteRule {
	out := make([]RouteRule, 0, len(p.rules))
	for _, c := range p.rules {
		out = append(out, c.rule)
	}
	return out
}

// Authorize decides whether principal may call method on requestPath.
// A nil principal is an anonymous request.
func (p *Policy) Authorize(requestPath, method string, principal *Principal) Decision {
	segments := splitPath(CleanPath(requestPath))

	for i := range p.rules {
		c := &p.rules[i]
		if !c.matches(segments, method) {
			continue
		}
		return c.decide(principal)
	}

	if p.defaultAllow {
		return Decision{Allowed: true}
	}

	return Decision{Reason: ReasonUnauthenticated}
}

// CleanPath normalizes a request path so dot segments cannot escape a
// prefix match.
func CleanPath(p string) string {
	if p == "" {
		return "/"
	}
	if !strings.HasPrefix(p, "/") {
		p = "/" + p
	}
	return path.Clean(p)
}

func compileRule(rule RouteRule) (compiledRule, error) {
	if !strings.HasPrefix(rule.Pattern, "/") {
		return compiledRule{}, invalidRule(rule, "pattern must be absolute")
	}

	switch rule.Requirement.Kind {
	case RequirePublic, RequireAuthenticated:
	case RequireRole:
		if !rule.Requirement.Role.IsValid() {
			return compiledRule{}, invalidRule(rule, "unknown role")
		}
	default:
		return compiledRule{}, invalidRule(rule, "unknown requirement")
	}

	c := compiledRule{
		rule:     rule,
		segments: splitPath(rule.Pattern),
	}

	for i, seg := range c.segments {
		switch seg {
		case "**":
			if i != len(c.segments)-1 {
				return compiledRule{}, invalidRule(rule, `"**" must be the last segment`)
			}
			c.tail = true
		case "*":
			c.singles++
		default:
			c.literals++
		}
	}

	if c.tail {
		c.segments = c.segments[:len(c.segments)-1]
	}

	return c, nil
}

func invalidRule(rule RouteRule, reason string) error {
	return errors.New("invalid route rule: "+reason, errors.CategoryValidation).
		WithMetadata(map[string]any{
			"pattern": rule.Pattern,
		})
}

func (c compiledRule) moreSpecific(o compiledRule) bool {
	if c.literals != o.literals {
		return c.literals > o.literals
	}
	if c.tail != o.tail {
		return !c.tail
	}
	if c.singles != o.singles {
		return c.singles < o.singles
	}
	cm, om := len(c.rule.Methods) > 0, len(o.rule.Methods) > 0
	if cm != om {
		return cm
	}
	return false
}

func (c compiledRule) matches(segments []string, method string) bool {
	if len(c.rule.Methods) > 0 {
		found := false
		for _, m := range c.rule.Methods {
			if strings.EqualFold(m, method) {
				found = true
				break
			}
		}
		if !found {
			return false
		}
	}

	if c.tail {
		if len(segments) < len(c.segments) {
			return false
		}
	} else if len(segments) != len(c.segments) {
		return false
	}

	for i, seg := range c.segments {
		if seg == "*" {
			continue
		}
		if seg != segments[i] {
			return false
		}
	}

	return true
}

func (c *compiledRule) decide(principal *Principal) Decision {
	rule := c.rule
	d := Decision{Rule: &rule}

	switch c.rule.Requirement.Kind {
	case RequirePublic:
		d.Allowed = true
	case RequireAuthenticated:
		if principal == nil {
			d.Reason = ReasonUnauthenticated
		} else {
			d.Allowed = true
		}
	case RequireRole:
		switch {
		case principal == nil:
			d.Reason = ReasonUnauthenticated
		case principal.Role != c.rule.Requirement.Role:
			d.Reason = ReasonForbidden
		default:
			d.Allowed = true
		}
	}

	return d
}

func splitPath(p string) []string {
	trimmed := strings.Trim(p, "/")
	if trimmed == "" {
		return nil
	}
	return strings.Split(trimmed, "/")
}
