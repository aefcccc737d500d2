// Package requestid tags every request with a ULID so log lines written by
// the filter, the error boundary and handlers can be correlated.
package requestid

import (
	"context"
	mathrand "math/rand"
	"strings"
	"sync"
	"time"

	"github.com/goliatone/go-router"
	"github.com/oklog/ulid/v2"
)

// HeaderName carries the request id in and out
const HeaderName = "X-Request-ID"

// maxInboundLength bounds ids accepted from clients
const maxInboundLength = 128

var (
	entropyMu sync.Mutex
	entropy   = ulid.Monotonic(mathrand.New(mathrand.NewSource(time.Now().UnixNano())), 0)
)

type ctxKey struct{}

// NewID returns a new lexicographically sortable request id
func NewID() string {
	entropyMu.Lock()
	defer entropyMu.Unlock()
	return ulid.MustNew(ulid.Timestamp(time.Now()), entropy).String()
}

// WithRequestID attaches the request id to ctx
func WithRequestID(ctx context.Context, id string) context.Context {
	return context.WithValue(ctx, ctxKey{}, id)
}

// FromContext returns the request id, empty if none was set
func FromContext(ctx context.Context) string {
	if ctx == nil {
		return ""
	}
	id, _ := ctx.Value(ctxKey{}).(string)
	return id
}

type Config struct {
	// TrustInbound reuses a client supplied X-Request-ID when it looks sane.
	// Off by default, only enable it behind a proxy that sets the header.
	TrustInbound bool
	// Generator defaults to NewID
	Generator func() string
}

func New(config ...Config) router.MiddlewareFunc {
	cfg := Config{}
	if len(config) > 0 {
		cfg = config[0]
	}
	if cfg.Generator == nil {
		cfg.Generator = NewID
	}

	return func(next router.HandlerFunc) router.HandlerFunc {
		return func(ctx router.Context) error {
			id := ""
			if cfg.TrustInbound {
				id = sanitize(ctx.Header(HeaderName))
			}
			if id == "" {
				id = cfg.Generator()
			}

			ctx.SetContext(WithRequestID(ctx.Context(), id))
			ctx.SetHeader(HeaderName, id)

			return next(ctx)
		}
	}
}

func sanitize(id string) string {
	id = strings.TrimSpace(id)
	if id == "" || len(id) > maxInboundLength {
		return ""
	}
	for _, r := range id {
		if r < 0x21 || r > 0x7e {
			return ""
		}
	}
	return id
}
