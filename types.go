package auth

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
)

type Logger interface {
	Debug(format string, args ...any)
	Info(format string, args ...any)
	Warn(format string, args ...any)
	Error(format string, args ...any)
}

// LoggerProvider hands out named loggers, e.g. a glog base logger
type LoggerProvider interface {
	GetLogger(name string) Logger
}

// Config holds auth options
type Config interface {
	GetSigningKey() string
	GetTokenExpiration() time.Duration
	GetIssuer() string
	GetPasswordCost() int
	GetPublicPrefixes() []string
	GetContextKey() string
	GetDeterministicIDs() bool
}

// TokenCodec mints and verifies bearer tokens
type TokenCodec interface {
	Issue(subject string, role Role, now time.Time) (string, time.Time, error)
	Verify(token string, now time.Time) (string, error)
}

// PrincipalFinder is the read side of the principal store used on every
// authenticated request.
type PrincipalFinder interface {
	FindPrincipalByUsername(ctx context.Context, username string) (*Principal, error)
}

// PrincipalStore looks up and persists principals. InsertPrincipal must
// return ErrDuplicateIdentity when a unique constraint rejects the row.
type PrincipalStore interface {
	PrincipalFinder
	FindPrincipalByID(ctx context.Context, id uuid.UUID) (*Principal, error)
	ExistsByUsernameOrEmail(ctx context.Context, username, email string) (bool, error)
	InsertPrincipal(ctx context.Context, principal *Principal) error
	UpdatePrincipal(ctx context.Context, principal *Principal) (*Principal, error)
	DeletePrincipal(ctx context.Context, principal *Principal) error
}

// PasswordAuthenticator authenticates passwords
type PasswordAuthenticator interface {
	HashPassword(password string) (string, error)
	ComparePasswordAndHash(password, hash string) error
}

type defLogger struct{}

func (d defLogger) Error(format string, args ...any) {
	fmt.Printf("[ERR] AUTH "+newline(format), args...)
}

func (d defLogger) Warn(format string, args ...any) {
	fmt.Printf("[WRN] AUTH "+newline(format), args...)
}

func (d defLogger) Info(format string, args ...any) {
	fmt.Printf("[INF] AUTH "+newline(format), args...)
}

func (d defLogger) Debug(format string, args ...any) {
	fmt.Printf("[DBG] AUTH "+newline(format), args...)
}

// DefaultLogger returns the stdout logger used when none is configured
func DefaultLogger() Logger {
	return defLogger{}
}

// ResolveLogger picks a named logger from the provider, falling back to
// the given logger and finally to the stdout logger.
func ResolveLogger(name string, provider LoggerProvider, fallback Logger) Logger {
	if provider != nil {
		if lgr := provider.GetLogger(name); lgr != nil {
			return lgr
		}
	}
	if fallback != nil {
		return fallback
	}
	return defLogger{}
}

func newline(s string) string {
	if len(s) > 0 && s[len(s)-1] != '\n' {
		s += "\n"
	}
	return s
}
