package auth

import (
	"context"
	"strings"
	"time"

	validation "github.com/go-ozzo/ozzo-validation"
	"github.com/go-ozzo/ozzo-validation/is"
	"github.com/goliatone/go-errors"
	"github.com/goliatone/hashid/pkg/hashid"
	"github.com/google/uuid"
)

// RegisterRequest is the input to Register and CreateAdmin
type RegisterRequest struct {
	Username string `json:"username"`
	Email    string `json:"email"`
	Password string `json:"password"`
}

// Validate will validate the request
func (r RegisterRequest) Validate() error {
	return validation.ValidateStruct(&r,
		validation.Field(&r.Username, validation.Required, validation.Length(3, 50)),
		validation.Field(&r.Email, validation.Required, validation.Length(6, 100), is.Email),
		validation.Field(&r.Password, validation.Required, validation.Length(6, 100)),
	)
}

// LoginRequest is the login payload
type LoginRequest struct {
	Username string `json:"username"`
	Password string `json:"password"`
}

// Validate will validate the request
func (r LoginRequest) Validate() error {
	return validation.ValidateStruct(&r,
		validation.Field(&r.Username, validation.Required),
		validation.Field(&r.Password, validation.Required),
	)
}

// ProfileUpdate changes email and/or password of the current principal.
// Empty fields are left untouched.
type ProfileUpdate struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

// Validate will validate the request
func (r ProfileUpdate) Validate() error {
	return validation.ValidateStruct(&r,
		validation.Field(&r.Email, validation.Length(6, 100), is.Email),
		validation.Field(&r.Password, validation.Length(6, 100)),
	)
}

// IssuedToken is what register and login hand back to the client
type IssuedToken struct {
	Token     string    `json:"token"`
	Username  string    `json:"username"`
	Role      Role      `json:"role"`
	ExpiresAt time.Time `json:"expires_at"`
}

type dummyComparer interface {
	CompareDummy(password string)
}

// CredentialService registers principals and exchanges passwords for tokens
type CredentialService struct {
	store            PrincipalStore
	hasher           PasswordAuthenticator
	tokens           TokenCodec
	logger           Logger
	activitySink     ActivitySink
	now              func() time.Time
	deterministicIDs bool
}

// NewCredentialService returns a new CredentialService
func NewCredentialService(store PrincipalStore, hasher PasswordAuthenticator, tokens TokenCodec) *CredentialService {
	return &CredentialService{
		store:        store,
		hasher:       hasher,
		tokens:       tokens,
		logger:       defLogger{},
		activitySink: noopActivitySink{},
		now:          time.Now,
	}
}

func (s *CredentialService) WithLogger(logger Logger) *CredentialService {
	if logger != nil {
		s.logger = logger
	}
	return s
}

// WithActivitySink configures an ActivitySink for emitting auth events.
func (s *CredentialService) WithActivitySink(sink ActivitySink) *CredentialService {
	s.activitySink = normalizeActivitySink(sink)
	return s
}

// WithClock overrides the clock used to mint tokens
func (s *CredentialService) WithClock(now func() time.Time) *CredentialService {
	if now != nil {
		s.now = now
	}
	return s
}

// WithDeterministicIDs derives principal ids from their email address
func (s *CredentialService) WithDeterministicIDs(enabled bool) *CredentialService {
	s.deterministicIDs = enabled
	return s
}

// Register creates a CITIZEN principal and mints a token for it
func (s *CredentialService) Register(ctx context.Context, req RegisterRequest) (*Principal, IssuedToken, error) {
	principal, err := s.create(ctx, req, RoleCitizen)
	if err != nil {
		s.emit(ctx, ActivityEventRegisterFailure, req.Username, nil, map[string]any{
			"error": err.Error(),
		})
		return nil, IssuedToken{}, err
	}

	issued, err := s.issue(principal)
	if err != nil {
		// undo the insert so the same registration can be retried
		if derr := s.store.DeletePrincipal(ctx, principal); derr != nil {
			s.logger.Error("register: token mint failed and principal %q could not be removed: %v", principal.Username, derr)
		} else {
			s.logger.Warn("register: token mint failed, principal %q removed", principal.Username)
		}
		s.emit(ctx, ActivityEventRegisterFailure, principal.Username, nil, map[string]any{
			"error": err.Error(),
		})
		return nil, IssuedToken{}, err
	}

	s.emit(ctx, ActivityEventRegisterSuccess, principal.Username, principal, nil)
	return principal, issued, nil
}

// CreateAdmin creates an ADMIN principal. It is not reachable over HTTP.
func (s *CredentialService) CreateAdmin(ctx context.Context, req RegisterRequest) (*Principal, error) {
	principal, err := s.create(ctx, req, RoleAdmin)
	if err != nil {
		return nil, err
	}
	s.emit(ctx, ActivityEventAdminCreated, principal.Username, principal, nil)
	return principal, nil
}

// Login checks username and password. Unknown users and wrong passwords
// both return ErrInvalidCredentials after the same amount of hashing work.
func (s *CredentialService) Login(ctx context.Context, req LoginRequest) (IssuedToken, error) {
	req.Username = strings.TrimSpace(req.Username)
	if err := req.Validate(); err != nil {
		return IssuedToken{}, ValidationError(err)
	}

	principal, err := s.store.FindPrincipalByUsername(ctx, req.Username)
	if err != nil {
		if !IsPrincipalNotFoundError(err) {
			s.logger.Error("login lookup failed for %q: %v", req.Username, err)
			return IssuedToken{}, err
		}
		if d, ok := s.hasher.(dummyComparer); ok {
			d.CompareDummy(req.Password)
		}
		s.loginFailed(ctx, req.Username, "unknown_user")
		return IssuedToken{}, ErrInvalidCredentials
	}

	if err := s.hasher.ComparePasswordAndHash(req.Password, principal.PasswordHash); err != nil {
		if !errors.Is(err, ErrMismatchedHashAndPassword) {
			s.logger.Error("login hash compare failed for %q: %v", req.Username, err)
		}
		s.loginFailed(ctx, req.Username, "password_mismatch")
		return IssuedToken{}, ErrInvalidCredentials
	}

	issued, err := s.issue(principal)
	if err != nil {
		return IssuedToken{}, err
	}

	s.emit(ctx, ActivityEventLoginSuccess, principal.Username, principal, nil)
	return issued, nil
}

// UpdateProfile changes the principal's email and/or password. Outstanding
// tokens stay valid until they expire.
func (s *CredentialService) UpdateProfile(ctx context.Context, principal *Principal, update ProfileUpdate) (*Principal, error) {
	if principal == nil {
		return nil, ErrUnauthenticated
	}

	if err := update.Validate(); err != nil {
		return nil, ValidationError(err)
	}

	current, err := s.store.FindPrincipalByID(ctx, principal.ID)
	if err != nil {
		return nil, err
	}

	changed := []string{}
	if email := strings.TrimSpace(update.Email); email != "" && !strings.EqualFold(email, current.Email) {
		current.Email = email
		changed = append(changed, "email")
	}

	if update.Password != "" {
		hash, err := s.hasher.HashPassword(update.Password)
		if err != nil {
			return nil, err
		}
		current.PasswordHash = hash
		changed = append(changed, "password")
	}

	if len(changed) == 0 {
		return current, nil
	}

	updated, err := s.store.UpdatePrincipal(ctx, current)
	if err != nil {
		return nil, err
	}

	s.emit(ctx, ActivityEventProfileUpdated, updated.Username, updated, map[string]any{
		"fields": changed,
	})
	return updated, nil
}

// DeleteAccount removes the principal. Tokens minted for it resolve to an
// anonymous request afterwards.
func (s *CredentialService) DeleteAccount(ctx context.Context, principal *Principal) error {
	if principal == nil {
		return ErrUnauthenticated
	}

	if err := s.store.DeletePrincipal(ctx, principal); err != nil {
		return err
	}

	s.emit(ctx, ActivityEventAccountDeleted, principal.Username, principal, nil)
	return nil
}

func (s *CredentialService) create(ctx context.Context, req RegisterRequest, role Role) (*Principal, error) {
	req.Username = strings.TrimSpace(req.Username)
	req.Email = strings.ToLower(strings.TrimSpace(req.Email))

	if err := req.Validate(); err != nil {
		return nil, ValidationError(err)
	}

	exists, err := s.store.ExistsByUsernameOrEmail(ctx, req.Username, req.Email)
	if err != nil {
		return nil, err
	}
	if exists {
		return nil, ErrDuplicateIdentity
	}

	hash, err := s.hasher.HashPassword(req.Password)
	if err != nil {
		return nil, err
	}

	principal := &Principal{
		ID:           uuid.New(),
		Username:     req.Username,
		Email:        req.Email,
		PasswordHash: hash,
		Role:         role,
	}

	if s.deterministicIDs {
		id, err := s.deterministicID(ctx, req.Email)
		if err != nil {
			return nil, err
		}
		if id != uuid.Nil {
			principal.ID = id
		}
	}

	if err := s.store.InsertPrincipal(ctx, principal); err != nil {
		if IsUniqueViolation(err) {
			return nil, ErrDuplicateIdentity
		}
		return nil, err
	}

	return principal, nil
}

// deterministicID derives the id from email. The derived id can still be
// held by a principal that registered with this email and later changed
// it, in which case uuid.Nil is returned and a random id is used.
func (s *CredentialService) deterministicID(ctx context.Context, email string) (uuid.UUID, error) {
	id, err := hashid.NewUUID(email)
	if err != nil {
		return uuid.Nil, nil
	}

	holder, err := s.store.FindPrincipalByID(ctx, id)
	switch {
	case err == nil:
		s.logger.Debug("derived id for %q held by %q, using a random id", email, holder.Username)
		return uuid.Nil, nil
	case IsPrincipalNotFoundError(err):
		return id, nil
	default:
		return uuid.Nil, err
	}
}

func (s *CredentialService) issue(principal *Principal) (IssuedToken, error) {
	token, expiresAt, err := s.tokens.Issue(principal.Username, principal.Role, s.now())
	if err != nil {
		s.logger.Error("failed to mint token for %q: %v", principal.Username, err)
		return IssuedToken{}, err
	}

	return IssuedToken{
		Token:     token,
		Username:  principal.Username,
		Role:      principal.Role,
		ExpiresAt: expiresAt,
	}, nil
}

func (s *CredentialService) loginFailed(ctx context.Context, username, reason string) {
	s.logger.Info("login rejected for %q: %s", username, reason)
	s.emit(ctx, ActivityEventLoginFailure, username, nil, map[string]any{
		"reason": reason,
	})
}

func (s *CredentialService) emit(ctx context.Context, eventType ActivityEventType, username string, principal *Principal, metadata map[string]any) {
	event := ActivityEvent{
		EventType:  eventType,
		Username:   username,
		Metadata:   metadata,
		OccurredAt: s.now().UTC(),
	}

	if principal != nil {
		event.UserID = principal.ID.String()
		event.Role = principal.Role
	}

	if err := s.activitySink.Record(ctx, event); err != nil {
		s.logger.Warn("activity sink failed for %s: %v", eventType, err)
	}
}
