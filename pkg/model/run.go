package model

import (
	"time"

	"github.com/google/uuid"
)

// RunOutcome is the terminal state of one pipeline invocation.
type RunOutcome string

const (
	RunPublished RunOutcome = "PUBLISHED"
	RunDraft     RunOutcome = "DRAFT"
	RunSkipped   RunOutcome = "SKIPPED"
	RunAborted   RunOutcome = "ABORTED"
)

type StepStatus string

const (
	StepPending   StepStatus = "PENDING"
	StepRunning   StepStatus = "RUNNING"
	StepCompleted StepStatus = "COMPLETED"
	StepFailed    StepStatus = "FAILED"
)

// PipelineRun is the persisted record of one autoblog invocation for one
// owner, written once when the run reaches a terminal state.
type PipelineRun struct {
	ID         uuid.UUID `gorm:"type:uuid;primary_key"`
	OwnerID    uuid.UUID `gorm:"type:uuid;not null;index"`
	PostID     *uuid.UUID
	Outcome    RunOutcome `gorm:"type:varchar(20);not null;index"`
	Success    bool       `gorm:"default:false"`
	Error      string
	StartedAt  time.Time `gorm:"not null;index"`
	FinishedAt time.Time
	Steps      []PipelineStep `gorm:"foreignKey:RunID"`
	CreatedAt  time.Time
}

// PipelineStep is one stage execution record inside a run. Position keeps
// the append order so the step sequence can be replayed for diagnosis.
type PipelineStep struct {
	ID         uuid.UUID  `gorm:"type:uuid;primary_key;default:gen_random_uuid()"`
	RunID      uuid.UUID  `gorm:"type:uuid;not null;index"`
	Position   int        `gorm:"not null"`
	Stage      string     `gorm:"type:varchar(40);not null"`
	Status     StepStatus `gorm:"type:varchar(20);not null"`
	StartedAt  time.Time
	FinishedAt *time.Time
	DurationMS int64 `gorm:"default:0"`
	Error      string
	Payload    JSONB `gorm:"type:jsonb"`
}
