// Package routertest provides an in-memory router.Context for exercising
// handlers and middleware without a running server.
package routertest

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"strings"

	"github.com/goliatone/go-router"
)

var errEmptyBody = errors.New("empty request body")

// Context records what a handler writes. Methods that are not overridden
// panic through the nil embedded interface, so tests notice when a handler
// reaches for something unexpected.
type Context struct {
	router.Context

	method  string
	path    string
	ctx     context.Context
	headers map[string]string
	params  map[string]string
	locals  map[any]any
	body    []byte

	// Written response
	StatusCode      int
	ResponseBody    any
	ResponseHeaders map[string]string
}

// NewContext returns a Context for method and path
func NewContext(method, path string) *Context {
	return &Context{
		method:          method,
		path:            path,
		ctx:             context.Background(),
		headers:         map[string]string{},
		params:          map[string]string{},
		locals:          map[any]any{},
		ResponseHeaders: map[string]string{},
		StatusCode:      http.StatusOK,
	}
}

// WithHeader sets a request header
func (c *Context) WithHeader(key, value string) *Context {
	c.headers[strings.ToLower(key)] = value
	return c
}

// WithParam sets a route parameter
func (c *Context) WithParam(key, value string) *Context {
	c.params[key] = value
	return c
}

// WithJSONBody sets the request body to the JSON encoding of v. A string
// is used verbatim.
func (c *Context) WithJSONBody(v any) *Context {
	if s, ok := v.(string); ok {
		c.body = []byte(s)
		return c
	}
	b, err := json.Marshal(v)
	if err != nil {
		panic(err)
	}
	c.body = b
	return c
}

// DecodeBody re-encodes the recorded response body into v
func (c *Context) DecodeBody(v any) error {
	b, err := json.Marshal(c.ResponseBody)
	if err != nil {
		return err
	}
	return json.Unmarshal(b, v)
}

func (c *Context) Method() string { return c.method }

func (c *Context) Path() string { return c.path }

func (c *Context) OriginalURL() string { return c.path }

func (c *Context) Context() context.Context { return c.ctx }

func (c *Context) SetContext(ctx context.Context) { c.ctx = ctx }

func (c *Context) Header(key string) string {
	return c.headers[strings.ToLower(key)]
}

func (c *Context) SetHeader(key, val string) router.Context {
	c.ResponseHeaders[key] = val
	return c
}

func (c *Context) Param(key string, defaultValue ...string) string {
	if v, ok := c.params[key]; ok {
		return v
	}
	if len(defaultValue) > 0 {
		return defaultValue[0]
	}
	return ""
}

func (c *Context) Locals(key any, value ...any) any {
	if len(value) > 0 {
		c.locals[key] = value[0]
		return value[0]
	}
	return c.locals[key]
}

func (c *Context) Body() []byte { return c.body }

func (c *Context) Bind(v any) error {
	if len(c.body) == 0 {
		return errEmptyBody
	}
	return json.Unmarshal(c.body, v)
}

func (c *Context) Status(code int) router.Context {
	c.StatusCode = code
	return c
}

func (c *Context) JSON(code int, val any) error {
	c.StatusCode = code
	c.ResponseBody = val
	return nil
}

func (c *Context) NoContent(code int) error {
	c.StatusCode = code
	c.ResponseBody = nil
	return nil
}

// Chain applies mw around h, first middleware outermost
func Chain(h router.HandlerFunc, mw ...router.MiddlewareFunc) router.HandlerFunc {
	for i := len(mw) - 1; i >= 0; i-- {
		h = mw[i](h)
	}
	return h
}
