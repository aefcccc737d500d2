package auth

import (
	"strings"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/goliatone/go-errors"
	"github.com/google/uuid"
)

const (
	// MinSigningKeyLength is the shortest HS256 secret we accept
	MinSigningKeyLength = 32
	// DefaultTokenTTL is used when no expiration is configured
	DefaultTokenTTL = 24 * time.Hour
)

var _ TokenCodec = (*TokenService)(nil)

// TokenService mints and verifies HS256 bearer tokens. It holds no mutable
// state and is safe for concurrent use.
type TokenService struct {
	signingKey []byte
	ttl        time.Duration
	issuer     string
	logger     Logger
	parser     *jwt.Parser
}

// NewTokenService creates a new TokenService instance. The signing key is
// copied; a missing or short key is a startup error.
func NewTokenService(signingKey []byte, ttl time.Duration, issuer string, logger Logger) (*TokenService, error) {
	if len(signingKey) == 0 {
		return nil, errors.New("signing key is required", errors.CategoryValidation).
			WithTextCode("SIGNING_KEY_MISSING")
	}

	if len(signingKey) < MinSigningKeyLength {
		return nil, errors.New("signing key is too short", errors.CategoryValidation).
			WithTextCode("SIGNING_KEY_TOO_SHORT").
			WithMetadata(map[string]any{
				"min_length": MinSigningKeyLength,
				"length":     len(signingKey),
			})
	}

	if ttl <= 0 {
		ttl = DefaultTokenTTL
	}

	if logger == nil {
		logger = defLogger{}
	}

	key := make([]byte, len(signingKey))
	copy(key, signingKey)

	return &TokenService{
		signingKey: key,
		ttl:        ttl,
		issuer:     issuer,
		logger:     logger,
		parser: jwt.NewParser(
			jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
			jwt.WithStrictDecoding(),
			// expiry is checked against the caller's clock in Verify
			jwt.WithoutClaimsValidation(),
		),
	}, nil
}

// NewTokenServiceFromConfig builds a TokenService from the auth config
func NewTokenServiceFromConfig(cfg Config, logger Logger) (*TokenService, error) {
	return NewTokenService(
		[]byte(cfg.GetSigningKey()),
		cfg.GetTokenExpiration(),
		cfg.GetIssuer(),
		logger,
	)
}

// TTL returns the token lifetime
func (ts *TokenService) TTL() time.Duration {
	return ts.ttl
}

// Issue mints a token for subject that expires at now + TTL, with now
// truncated to the second. The returned expiry is the encoded one.
func (ts *TokenService) Issue(subject string, role Role, now time.Time) (string, time.Time, error) {
	if strings.TrimSpace(subject) == "" {
		return "", time.Time{}, errors.New("token subject is required", errors.CategoryBadInput)
	}

	if !role.IsValid() {
		return "", time.Time{}, ErrInvalidRole.Clone().WithMetadata(map[string]any{
			"role": string(role),
		})
	}

	// JWT dates are whole seconds; the issue instant is taken at that
	// precision so exp is exactly iat + TTL
	issuedAt := now.Truncate(time.Second)

	claims := &TokenClaims{
		RegisteredClaims: jwt.RegisteredClaims{
			Issuer:    ts.issuer,
			Subject:   subject,
			IssuedAt:  jwt.NewNumericDate(issuedAt),
			ExpiresAt: jwt.NewNumericDate(issuedAt.Add(ts.ttl)),
			ID:        uuid.NewString(),
		},
		UserRole: string(role),
	}

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)

	signed, err := token.SignedString(ts.signingKey)
	if err != nil {
		return "", time.Time{}, errors.Wrap(err, errors.CategoryInternal, "failed to sign JWT")
	}

	return signed, claims.ExpiresAt.Time, nil
}

// Verify checks structure, signature and expiry of token and returns the
// subject. The error is one of ErrTokenMalformed, ErrTokenSignatureInvalid
// or ErrTokenExpired.
func (ts *TokenService) Verify(token string, now time.Time) (string, error) {
	claims := &TokenClaims{}

	if _, err := ts.parser.ParseWithClaims(token, claims, ts.keyFunc); err != nil {
		return "", ts.classify(token, err)
	}

	if claims.Subject() == "" || claims.ExpiresAt == nil {
		return "", ErrTokenMalformed
	}

	if now.After(claims.ExpiresAt.Time) {
		return "", ErrTokenExpired
	}

	return claims.Subject(), nil
}

func (ts *TokenService) keyFunc(t *jwt.Token) (any, error) {
	if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
		return nil, jwt.ErrTokenSignatureInvalid
	}
	return ts.signingKey, nil
}

// classify folds jwt parser errors into our taxonomy. The parser reports a
// signature segment that fails to decode as malformed; when header and
// payload are intact we count that as tampering instead.
func (ts *TokenService) classify(token string, err error) error {
	switch {
	case errors.Is(err, jwt.ErrTokenSignatureInvalid):
		return ErrTokenSignatureInvalid
	case errors.Is(err, jwt.ErrTokenMalformed):
		if _, _, uerr := ts.parser.ParseUnverified(token, &TokenClaims{}); uerr == nil {
			return ErrTokenSignatureInvalid
		}
		return ErrTokenMalformed
	default:
		ts.logger.Debug("token rejected by parser: %v", err)
		return ErrTokenMalformed
	}
}
