package auth

import (
	"fmt"
	"net/http"
	"sort"
	"strings"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/goliatone/go-errors"
	"github.com/goliatone/go-print"
	"github.com/goliatone/go-router"
)

// GenericServerErrorMessage replaces the message of every 5xx response
const GenericServerErrorMessage = "An unexpected error occurred"

// ErrorBody is the JSON body of every error response
type ErrorBody struct {
	Timestamp string `json:"timestamp"`
	Status    int    `json:"status"`
	Error     string `json:"error"`
	Message   string `json:"message"`
	Path      string `json:"path"`
}

// ErrorResponder translates errors into status codes and ErrorBody values
type ErrorResponder struct {
	logger Logger
	now    func() time.Time
}

// ErrorResponderOption configures an ErrorResponder
type ErrorResponderOption func(*ErrorResponder)

// WithResponderLogger sets the logger
func WithResponderLogger(logger Logger) ErrorResponderOption {
	return func(r *ErrorResponder) {
		if logger != nil {
			r.logger = logger
		}
	}
}

// WithResponderClock sets the clock used for the timestamp field
func WithResponderClock(now func() time.Time) ErrorResponderOption {
	return func(r *ErrorResponder) {
		if now != nil {
			r.now = now
		}
	}
}

func NewErrorResponder(opts ...ErrorResponderOption) *ErrorResponder {
	r := &ErrorResponder{
		logger: defLogger{},
		now:    time.Now,
	}
	for _, opt := range opts {
		if opt != nil {
			opt(r)
		}
	}
	return r
}

// Status maps err to an HTTP status code
func (r *ErrorResponder) Status(err error) int {
	var fiberErr *fiber.Error
	if errors.As(err, &fiberErr) {
		return fiberErr.Code
	}

	var richErr *errors.Error
	if !errors.As(err, &richErr) {
		return http.StatusInternalServerError
	}

	switch richErr.Category {
	case errors.CategoryAuth:
		return http.StatusUnauthorized
	case errors.CategoryAuthz:
		return http.StatusForbidden
	case errors.CategoryConflict:
		return http.StatusConflict
	case errors.CategoryNotFound:
		return http.StatusNotFound
	case errors.CategoryValidation, errors.CategoryBadInput:
		return http.StatusBadRequest
	}

	if richErr.Code >= 400 && richErr.Code < 600 {
		return richErr.Code
	}

	return http.StatusInternalServerError
}

// Body builds the response body for err on requestPath. Internal detail
// never reaches a 5xx body.
func (r *ErrorResponder) Body(err error, requestPath string) ErrorBody {
	status := r.Status(err)

	body := ErrorBody{
		Timestamp: r.now().UTC().Format(time.RFC3339),
		Status:    status,
		Error:     http.StatusText(status),
		Message:   GenericServerErrorMessage,
		Path:      requestPath,
	}

	if status >= http.StatusInternalServerError {
		return body
	}

	var fiberErr *fiber.Error
	if errors.As(err, &fiberErr) {
		body.Message = fiberErr.Message
		return body
	}

	var richErr *errors.Error
	if errors.As(err, &richErr) {
		body.Message = richErr.Message
		if fields := validationFields(richErr); fields != "" {
			body.Message = fmt.Sprintf("%s: %s", richErr.Message, fields)
		}
	}

	return body
}

// Respond writes the error response and logs the error
func (r *ErrorResponder) Respond(ctx router.Context, err error) error {
	body := r.Body(err, ctx.Path())

	if body.Status >= http.StatusInternalServerError {
		r.logger.Error("%s %s failed: %v", ctx.Method(), body.Path, err)
		var richErr *errors.Error
		if errors.As(err, &richErr) && len(richErr.Metadata) > 0 {
			r.logger.Debug("error metadata: %s", print.MaybePrettyJSON(richErr.Metadata))
		}
	} else {
		r.logger.Info("%s %s rejected with %d: %s", ctx.Method(), body.Path, body.Status, body.Message)
	}

	return ctx.JSON(body.Status, body)
}

// ErrorBoundary catches handler and middleware errors and renders them
func (r *ErrorResponder) ErrorBoundary() router.MiddlewareFunc {
	return func(next router.HandlerFunc) router.HandlerFunc {
		return func(ctx router.Context) error {
			if err := next(ctx); err != nil {
				return r.Respond(ctx, err)
			}
			return nil
		}
	}
}

// FiberErrorHandler renders errors raised by fiber itself, e.g. unknown routes
func (r *ErrorResponder) FiberErrorHandler(c *fiber.Ctx, err error) error {
	body := r.Body(err, c.Path())
	if body.Status >= http.StatusInternalServerError {
		r.logger.Error("%s %s failed: %v", c.Method(), body.Path, err)
	}
	return c.Status(body.Status).JSON(body)
}

func validationFields(richErr *errors.Error) string {
	if richErr.TextCode != ErrValidation.TextCode || richErr.Metadata == nil {
		return ""
	}

	fields, ok := richErr.Metadata["fields"].(map[string]any)
	if !ok || len(fields) == 0 {
		return ""
	}

	names := make([]string, 0, len(fields))
	for name := range fields {
		names = append(names, name)
	}
	sort.Strings(names)

	parts := make([]string, 0, len(names))
	for _, name := range names {
		parts = append(parts, fmt.Sprintf("%s %v", name, fields[name]))
	}
	return strings.Join(parts, "; ")
}
