package issues

import (
	"context"
	"strings"
	"time"

	validation "github.com/go-ozzo/ozzo-validation"
	"github.com/go-ozzo/ozzo-validation/is"
	"github.com/goliatone/go-errors"
	"github.com/google/uuid"
	"github.com/uptrace/bun"

	auth "github.com/goliatone/go-civic-auth"
)

// CreateIssueRequest is the citizen report payload
type CreateIssueRequest struct {
	Title       string  `json:"title"`
	Description string  `json:"description"`
	Category    string  `json:"category"`
	Latitude    float64 `json:"latitude"`
	Longitude   float64 `json:"longitude"`
	ImageURL    string  `json:"image_url"`
}

func (r CreateIssueRequest) Validate() error {
	categories := make([]any, 0, len(Categories()))
	for _, c := range Categories() {
		categories = append(categories, c)
	}

	return validation.ValidateStruct(&r,
		validation.Field(&r.Title, validation.Required, validation.Length(3, 200)),
		validation.Field(&r.Description, validation.Required, validation.Length(1, 5000)),
		validation.Field(&r.Category, validation.Required, validation.In(categories...)),
		validation.Field(&r.Latitude, validation.Min(-90.0), validation.Max(90.0)),
		validation.Field(&r.Longitude, validation.Min(-180.0), validation.Max(180.0)),
		validation.Field(&r.ImageURL, is.URL),
	)
}

// StatusUpdateRequest is the admin triage payload
type StatusUpdateRequest struct {
	Status string `json:"status"`
}

func (r StatusUpdateRequest) Validate() error {
	statuses := make([]any, 0, len(Statuses()))
	for _, s := range Statuses() {
		statuses = append(statuses, string(s))
	}

	return validation.ValidateStruct(&r,
		validation.Field(&r.Status, validation.Required, validation.In(statuses...)),
	)
}

// CommentRequest is the comment payload
type CommentRequest struct {
	Content string `json:"content"`
}

func (r CommentRequest) Validate() error {
	return validation.ValidateStruct(&r,
		validation.Field(&r.Content, validation.Required, validation.RuneLength(1, MaxCommentLength)),
	)
}

// CommentView is a comment as rendered to clients
type CommentView struct {
	ID        uuid.UUID `json:"id"`
	Content   string    `json:"content"`
	CreatedAt time.Time `json:"created_at"`
	Username  string    `json:"username"`
	IssueID   uuid.UUID `json:"issue_id"`
}

// Service implements the issue and comment operations. Callers pass the
// principal resolved by the authentication filter.
type Service struct {
	db       *bun.DB
	issues   Issues
	comments Comments
	logger   auth.Logger
	now      func() time.Time
}

func NewService(db *bun.DB, issues Issues, comments Comments) *Service {
	return &Service{
		db:       db,
		issues:   issues,
		comments: comments,
		logger:   auth.DefaultLogger(),
		now:      time.Now,
	}
}

func (s *Service) WithLogger(logger auth.Logger) *Service {
	if logger != nil {
		s.logger = logger
	}
	return s
}

func (s *Service) WithClock(now func() time.Time) *Service {
	if now != nil {
		s.now = now
	}
	return s
}

// Create files a new PENDING issue authored by principal
func (s *Service) Create(ctx context.Context, principal *auth.Principal, req CreateIssueRequest) (*Issue, error) {
	if principal == nil {
		return nil, auth.ErrUnauthenticated
	}

	req.Title = strings.TrimSpace(req.Title)
	req.Category = strings.TrimSpace(req.Category)
	if err := req.Validate(); err != nil {
		return nil, auth.ValidationError(err)
	}

	issue := &Issue{
		Title:       req.Title,
		Description: req.Description,
		Category:    req.Category,
		Status:      StatusPending,
		Latitude:    req.Latitude,
		Longitude:   req.Longitude,
		ImageURL:    req.ImageURL,
		UserID:      principal.ID,
		CreatedAt:   s.now().UTC(),
	}

	saved, err := s.issues.SaveIssue(ctx, issue)
	if err != nil {
		return nil, err
	}

	s.logger.Info("issue %s filed by %s", saved.ID, principal.Username)
	return saved, nil
}

// ListMine returns the principal's issues, newest first
func (s *Service) ListMine(ctx context.Context, principal *auth.Principal) ([]*Issue, error) {
	if principal == nil {
		return nil, auth.ErrUnauthenticated
	}
	return s.issues.ListByUser(ctx, principal.ID)
}

func (s *Service) Get(ctx context.Context, id uuid.UUID) (*Issue, error) {
	return s.issues.FindIssueByID(ctx, id)
}

// ListAll returns every issue, newest first
func (s *Service) ListAll(ctx context.Context) ([]*Issue, error) {
	return s.issues.ListNewestFirst(ctx)
}

func (s *Service) UpdateStatus(ctx context.Context, id uuid.UUID, req StatusUpdateRequest) (*Issue, error) {
	req.Status = strings.ToUpper(strings.TrimSpace(req.Status))
	if err := req.Validate(); err != nil {
		return nil, auth.ValidationError(err)
	}

	issue, err := s.issues.FindIssueByID(ctx, id)
	if err != nil {
		return nil, err
	}

	from := issue.Status
	issue.Status = Status(req.Status)

	saved, err := s.issues.SaveIssue(ctx, issue)
	if err != nil {
		return nil, err
	}

	s.logger.Info("issue %s status %s -> %s", id, from, saved.Status)
	return saved, nil
}

// Delete removes an issue together with its comments
func (s *Service) Delete(ctx context.Context, id uuid.UUID) error {
	return s.db.RunInTx(ctx, nil, func(ctx context.Context, tx bun.Tx) error {
		if err := s.comments.DeleteByIssueTx(ctx, tx, id); err != nil {
			return err
		}
		return s.issues.DeleteIssueTx(ctx, tx, id)
	})
}

// ListComments returns the issue's comments oldest first
func (s *Service) ListComments(ctx context.Context, issueID uuid.UUID) ([]CommentView, error) {
	if _, err := s.issues.FindIssueByID(ctx, issueID); err != nil {
		return nil, err
	}

	records, err := s.comments.FindCommentsByIssueOrderedByCreation(ctx, issueID)
	if err != nil {
		return nil, err
	}

	ids := make([]uuid.UUID, 0, len(records))
	seen := map[uuid.UUID]bool{}
	for _, c := range records {
		if c.UserID != uuid.Nil && !seen[c.UserID] {
			seen[c.UserID] = true
			ids = append(ids, c.UserID)
		}
	}

	names, err := s.comments.AuthorNames(ctx, ids)
	if err != nil {
		return nil, err
	}

	out := make([]CommentView, 0, len(records))
	for _, c := range records {
		out = append(out, newCommentView(c, names[c.UserID]))
	}
	return out, nil
}

// AddComment stores a comment authored by principal
func (s *Service) AddComment(ctx context.Context, principal *auth.Principal, issueID uuid.UUID, req CommentRequest) (CommentView, error) {
	if principal == nil {
		return CommentView{}, auth.ErrUnauthenticated
	}

	if err := req.Validate(); err != nil {
		return CommentView{}, auth.ValidationError(err)
	}

	if _, err := s.issues.FindIssueByID(ctx, issueID); err != nil {
		return CommentView{}, err
	}

	comment := &Comment{
		Content:   req.Content,
		IssueID:   issueID,
		UserID:    principal.ID,
		CreatedAt: s.now().UTC(),
	}

	saved, err := s.comments.SaveComment(ctx, comment)
	if err != nil {
		return CommentView{}, err
	}

	return newCommentView(saved, principal.Username), nil
}

func newCommentView(c *Comment, username string) CommentView {
	if username == "" {
		username = DeletedUsername
	}
	return CommentView{
		ID:        c.ID,
		Content:   c.Content,
		CreatedAt: c.CreatedAt,
		Username:  username,
		IssueID:   c.IssueID,
	}
}

// ParseID parses a path id. Anything that is not a UUID cannot name an
// existing resource and is reported as not found.
func ParseID(raw string) (uuid.UUID, error) {
	id, err := uuid.Parse(strings.TrimSpace(raw))
	if err != nil {
		return uuid.Nil, errors.New("resource not found with id: "+raw, errors.CategoryNotFound).
			WithCode(errors.CodeNotFound).
			WithTextCode(auth.ErrResourceNotFound.TextCode)
	}
	return id, nil
}
