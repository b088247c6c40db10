package autoblog

import (
	"time"

	"github.com/google/uuid"

	"github.com/lightnindragon/listgenius/pkg/model"
)

// Stage names one unit of pipeline work. The full sequence of a successful
// run is check_existing, generate_topic, generate_content, quality_check,
// (revise_content, quality_check)*, publish_post.
type Stage string

const (
	StageCheckExisting   Stage = "check_existing"
	StageGenerateTopic   Stage = "generate_topic"
	StageGenerateContent Stage = "generate_content"
	StageQualityCheck    Stage = "quality_check"
	StageReviseContent   Stage = "revise_content"
	StagePublishPost     Stage = "publish_post"
)

// StagePayload is the stage-specific slice of a step record. Each stage
// carries its own concrete type so telemetry stays typed instead of a
// string-keyed bag.
type StagePayload interface {
	stagePayload()
}

type CheckExistingPayload struct {
	AlreadyPublished bool `json:"already_published"`
	LockedByOther    bool `json:"locked_by_other,omitempty"`
}

type TopicPayload struct {
	PrimaryKeyword    string   `json:"primary_keyword"`
	SecondaryKeywords []string `json:"secondary_keywords,omitempty"`
	Category          string   `json:"category"`
	Source            string   `json:"source"` // trending or fallback
}

type ContentPayload struct {
	PostID    string `json:"post_id"`
	WordCount int    `json:"word_count"`
}

type QualityPayload struct {
	Score    float64 `json:"score"`
	Approved bool    `json:"approved"`
	Attempt  int     `json:"attempt"` // 0 is the initial check
}

type RevisionPayload struct {
	Attempt   int `json:"attempt"`
	Revisions int `json:"revisions"`
}

type PublishPayload struct {
	URL string `json:"url"`
}

func (CheckExistingPayload) stagePayload() {}
func (TopicPayload) stagePayload()         {}
func (ContentPayload) stagePayload()       {}
func (QualityPayload) stagePayload()       {}
func (RevisionPayload) stagePayload()      {}
func (PublishPayload) stagePayload()       {}

// Step is one stage's execution record. Status is monotonic: once a step is
// completed or failed it never changes again.
type Step struct {
	Stage      Stage
	Status     model.StepStatus
	StartedAt  time.Time
	FinishedAt time.Time
	Duration   time.Duration
	Error      string
	Payload    StagePayload
}

func (s *Step) terminal() bool {
	return s.Status == model.StepCompleted || s.Status == model.StepFailed
}

// Run is one pipeline invocation for one owner. The orchestrator mutates it
// while executing; callers receive it frozen inside a Result.
type Run struct {
	ID         uuid.UUID
	OwnerID    uuid.UUID
	StartedAt  time.Time
	FinishedAt time.Time
	Outcome    model.RunOutcome
	PostID     string
	Error      string
	Steps      []Step
}

// Result is the orchestrator's structured output, meant for logging and
// observability consumers. Callers inspect Success and Steps rather than
// catching errors.
type Result struct {
	RunID   uuid.UUID        `json:"run_id"`
	OwnerID uuid.UUID        `json:"owner_id"`
	Success bool             `json:"success"`
	Outcome model.RunOutcome `json:"outcome"`
	PostID  string           `json:"post_id,omitempty"`
	Error   string           `json:"error,omitempty"`
	Steps   []Step           `json:"steps"`
}

func (r *Run) result() *Result {
	return &Result{
		RunID:   r.ID,
		OwnerID: r.OwnerID,
		Success: r.Outcome == model.RunPublished,
		Outcome: r.Outcome,
		PostID:  r.PostID,
		Error:   r.Error,
		Steps:   r.Steps,
	}
}

// TopicPackage is the immutable subject bundle produced once per run and
// consumed by the content generator.
type TopicPackage struct {
	PrimaryKeyword    string
	SecondaryKeywords []string
	Category          string
	InternalLink      string
	Source            string
}

// GeneratedContent identifies the persisted artifact produced by the writer
// collaborator.
type GeneratedContent struct {
	PostID    string
	WordCount int
}

// Assessment is the quality gate's verdict. The approval flag is computed by
// the scoring collaborator against its own threshold; the pipeline never
// re-thresholds the score.
type Assessment struct {
	Score    float64
	Approved bool
}
