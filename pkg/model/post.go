package model

import (
	"time"

	"github.com/google/uuid"
	"github.com/lib/pq"
	"gorm.io/gorm"
)

// PostStatus is the public lifecycle of a blog post.
type PostStatus string

const (
	PostDraft     PostStatus = "DRAFT"
	PostApproved  PostStatus = "APPROVED"
	PostPublished PostStatus = "PUBLISHED"
	PostFailed    PostStatus = "FAILED"
)

// PostWorkflowStatus is the pipeline's internal verdict on a post, kept
// separate from the public lifecycle: it records whether the quality gate
// currently approves the content.
type PostWorkflowStatus string

const (
	WorkflowPendingReview PostWorkflowStatus = "PENDING_REVIEW"
	WorkflowApproved      PostWorkflowStatus = "APPROVED"
	WorkflowRejected      PostWorkflowStatus = "REJECTED"
)

type Post struct {
	ID                uuid.UUID `gorm:"type:uuid;primary_key;default:gen_random_uuid()"`
	OwnerID           uuid.UUID `gorm:"type:uuid;not null;index;uniqueIndex:idx_posts_auto_daily"`
	Title             string    `gorm:"not null"`
	Slug              string    `gorm:"not null;uniqueIndex"`
	Body              string    `gorm:"type:text"`
	WordCount         int       `gorm:"default:0"`
	PrimaryKeyword    string
	SecondaryKeywords pq.StringArray `gorm:"type:text[]"`
	Category          string
	InternalLink      string
	Status            PostStatus         `gorm:"type:varchar(20);default:'DRAFT';index"`
	WorkflowStatus    PostWorkflowStatus `gorm:"type:varchar(20);default:'PENDING_REVIEW'"`
	QualityScore      *float64
	RevisionCount     int  `gorm:"default:0"`
	AutoGenerated     bool `gorm:"default:false;index"`
	PublishedAt       *time.Time
	// PublishedOn is the calendar day of publication in the pipeline's
	// operating time zone. The partial unique index enforces at most one
	// auto-generated published post per owner per day at the store, so a
	// racing publish fails loudly instead of creating a duplicate.
	PublishedOn *time.Time `gorm:"type:date;uniqueIndex:idx_posts_auto_daily,where:auto_generated AND status = 'PUBLISHED'"`
	PublicURL   string
	CreatedAt   time.Time
	UpdatedAt   time.Time
	DeletedAt   gorm.DeletedAt `gorm:"index"`
}

// Owner is a ListGenius account on whose behalf content is produced.
type Owner struct {
	ID              uuid.UUID `gorm:"type:uuid;primary_key;default:gen_random_uuid()"`
	Email           string    `gorm:"not null;uniqueIndex"`
	DisplayName     string
	Plan            string `gorm:"type:varchar(20);default:'free'"`
	AutoblogEnabled bool   `gorm:"default:false;index"`
	CreatedAt       time.Time
	UpdatedAt       time.Time
}
