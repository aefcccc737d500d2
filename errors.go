package auth

import (
	"strings"

	"github.com/goliatone/go-errors"
)

// Token level errors. These never leave the authentication filter.
var (
	ErrTokenMalformed = errors.New("token is malformed", errors.CategoryAuth).
				WithCode(errors.CodeUnauthorized).
				WithTextCode("TOKEN_MALFORMED")

	ErrTokenSignatureInvalid = errors.New("token signature is invalid", errors.CategoryAuth).
					WithCode(errors.CodeUnauthorized).
					WithTextCode("TOKEN_SIGNATURE_INVALID")

	ErrTokenExpired = errors.New("token is expired", errors.CategoryAuth).
			WithCode(errors.CodeUnauthorized).
			WithTextCode("TOKEN_EXPIRED")
)

// Authorization and business errors, surfaced by the error boundary.
var (
	ErrUnauthenticated = errors.New("full authentication is required to access this resource", errors.CategoryAuth).
				WithCode(errors.CodeUnauthorized).
				WithTextCode("UNAUTHENTICATED")

	ErrForbidden = errors.New("access denied", errors.CategoryAuthz).
			WithCode(errors.CodeForbidden).
			WithTextCode("FORBIDDEN")

	ErrDuplicateIdentity = errors.New("username or email already exists", errors.CategoryConflict).
				WithCode(errors.CodeConflict).
				WithTextCode("DUPLICATE_IDENTITY")

	// ErrInvalidCredentials is returned for unknown users and wrong passwords alike
	ErrInvalidCredentials = errors.New("invalid username or password", errors.CategoryAuth).
				WithCode(errors.CodeUnauthorized).
				WithTextCode("INVALID_CREDENTIALS")

	ErrResourceNotFound = errors.New("resource not found", errors.CategoryNotFound).
				WithCode(errors.CodeNotFound).
				WithTextCode("RESOURCE_NOT_FOUND")

	ErrPrincipalNotFound = errors.New("principal not found", errors.CategoryNotFound).
				WithCode(errors.CodeNotFound).
				WithTextCode("PRINCIPAL_NOT_FOUND")

	ErrInvalidRole = errors.New("invalid role", errors.CategoryValidation).
			WithCode(errors.CodeBadRequest).
			WithTextCode("INVALID_ROLE")
)

// IsTokenError reports whether err is one of the token verification failures
func IsTokenError(err error) bool {
	return IsTokenExpiredError(err) || IsMalformedError(err) || IsSignatureInvalidError(err)
}

// IsTokenExpiredError will check for expired tokens
func IsTokenExpiredError(err error) bool {
	return hasTextCode(err, ErrTokenExpired.TextCode)
}

// IsMalformedError will check for malformed tokens
func IsMalformedError(err error) bool {
	return hasTextCode(err, ErrTokenMalformed.TextCode)
}

// IsSignatureInvalidError will check for tampered tokens
func IsSignatureInvalidError(err error) bool {
	return hasTextCode(err, ErrTokenSignatureInvalid.TextCode)
}

// IsDuplicateIdentityError will check for registration conflicts
func IsDuplicateIdentityError(err error) bool {
	return hasTextCode(err, ErrDuplicateIdentity.TextCode)
}

// IsPrincipalNotFoundError will check for missing principals
func IsPrincipalNotFoundError(err error) bool {
	return hasTextCode(err, ErrPrincipalNotFound.TextCode)
}

// IsResourceNotFoundError will check for missing issues or comments
func IsResourceNotFoundError(err error) bool {
	return hasTextCode(err, ErrResourceNotFound.TextCode)
}

func hasTextCode(err error, code string) bool {
	if err == nil {
		return false
	}
	var rich *errors.Error
	if errors.As(err, &rich) {
		return rich.TextCode == code
	}
	return false
}

// IsUniqueViolation reports whether err comes from a unique index rejecting
// a row. SQLite reports it in the message, PostgreSQL with SQLSTATE 23505.
func IsUniqueViolation(err error) bool {
	if err == nil {
		return false
	}
	if isPgUniqueViolation(err) {
		return true
	}
	msg := err.Error()
	return strings.Contains(msg, "UNIQUE constraint failed") ||
		strings.Contains(msg, "duplicate key value violates unique constraint")
}
