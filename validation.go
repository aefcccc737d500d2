package auth

import (
	validation "github.com/go-ozzo/ozzo-validation"
	"github.com/goliatone/go-errors"
)

// ErrValidation is the base for request validation failures
var ErrValidation = errors.New("validation failed", errors.CategoryValidation).
	WithCode(errors.CodeBadRequest).
	WithTextCode("VALIDATION_FAILED")

// ValidationError converts ozzo validation errors into a go-errors error
// with one metadata entry per invalid field. Other errors pass through.
func ValidationError(err error) error {
	if err == nil {
		return nil
	}

	var fields validation.Errors
	if !errors.As(err, &fields) {
		return err
	}

	details := make(map[string]any, len(fields))
	for field, ferr := range fields {
		if ferr != nil {
			details[field] = ferr.Error()
		}
	}

	return ErrValidation.Clone().WithMetadata(map[string]any{
		"fields": details,
	})
}

// IsValidationError will check for request validation failures
func IsValidationError(err error) bool {
	return hasTextCode(err, ErrValidation.TextCode)
}
