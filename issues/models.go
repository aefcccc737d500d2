package issues

import (
	"database/sql/driver"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/uptrace/bun"
)

// Status is the triage state of an issue
type Status string

const (
	StatusPending    Status = "PENDING"
	StatusInProgress Status = "IN_PROGRESS"
	StatusResolved   Status = "RESOLVED"
	StatusRejected   Status = "REJECTED"
)

// Statuses lists every valid status in workflow order
func Statuses() []Status {
	return []Status{StatusPending, StatusInProgress, StatusResolved, StatusRejected}
}

func (s Status) IsValid() bool {
	switch s {
	case StatusPending, StatusInProgress, StatusResolved, StatusRejected:
		return true
	default:
		return false
	}
}

// Value implements driver.Valuer
func (s Status) Value() (driver.Value, error) {
	if !s.IsValid() {
		return nil, fmt.Errorf("refusing to store invalid issue status %q", string(s))
	}
	return string(s), nil
}

// Categories are the issue categories offered to citizens
func Categories() []string {
	return []string{
		"Pothole",
		"Streetlight Out",
		"Sanitation",
		"Vandalism",
		"Other",
	}
}

// DeletedUsername is shown for comments whose author no longer exists
const DeletedUsername = "Deleted User"

// MaxCommentLength bounds comment content, in characters
const MaxCommentLength = 1000

type Issue struct {
	bun.BaseModel `bun:"table:issues,alias:iss"`
	ID            uuid.UUID `bun:"id,pk,type:uuid" json:"id"`
	Title         string    `bun:"title,notnull" json:"title"`
	Description   string    `bun:"description,notnull,type:text" json:"description"`
	Category      string    `bun:"category,notnull" json:"category"`
	Status        Status    `bun:"status,notnull,type:varchar(16)" json:"status"`
	Latitude      float64   `bun:"latitude,notnull" json:"latitude"`
	Longitude     float64   `bun:"longitude,notnull" json:"longitude"`
	ImageURL      string    `bun:"image_url,nullzero" json:"image_url,omitempty"`
	UserID        uuid.UUID `bun:"user_id,nullzero,type:uuid" json:"user_id,omitempty"`
	CreatedAt     time.Time `bun:"created_at,notnull" json:"created_at"`
}

type Comment struct {
	bun.BaseModel `bun:"table:comments,alias:cmt"`
	ID            uuid.UUID `bun:"id,pk,type:uuid" json:"id"`
	Content       string    `bun:"content,notnull,type:varchar(1000)" json:"content"`
	IssueID       uuid.UUID `bun:"issue_id,notnull,type:uuid" json:"issue_id"`
	UserID        uuid.UUID `bun:"user_id,nullzero,type:uuid" json:"user_id,omitempty"`
	CreatedAt     time.Time `bun:"created_at,notnull" json:"created_at"`
}
