package autoblog

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/lightnindragon/listgenius/pkg/metrics"
	"github.com/lightnindragon/listgenius/pkg/model"
)

// Guard reports whether an owner's auto post already went out today. Errors
// mean the answer is unknown and the run must not proceed.
type Guard interface {
	HasPublishedToday(ctx context.Context, ownerID uuid.UUID) (bool, error)
}

// TopicSelector produces the run's subject bundle. (nil, nil) means no topic
// survived filtering, which ends the run without being an error.
type TopicSelector interface {
	SelectTopic(ctx context.Context, ownerID uuid.UUID) (*TopicPackage, error)
}

// ContentGenerator asks the writer collaborator to produce and persist a
// post for the topic. Any failure is hard; there is no fallback.
type ContentGenerator interface {
	GenerateContent(ctx context.Context, ownerID uuid.UUID, topic *TopicPackage) (*GeneratedContent, error)
}

// QualityGate scores a persisted post.
type QualityGate interface {
	Assess(ctx context.Context, postID string) (*Assessment, error)
}

// Reviser mutates a persisted post in response to a failed quality check and
// returns the post's total revision count.
type Reviser interface {
	Revise(ctx context.Context, postID string) (int, error)
}

// Publisher promotes an approved post to its public state and returns the
// published URL. A same-day duplicate must surface as an error, never as a
// silent success.
type Publisher interface {
	Publish(ctx context.Context, postID string) (string, error)
}

// ReviewMarker parks a post that exhausted its revision attempts in the
// manual review queue.
type ReviewMarker interface {
	MarkForManualReview(ctx context.Context, postID string) error
}

// RunLocker serializes runs per owner. Acquire returns false when another
// run currently holds the owner's lock.
type RunLocker interface {
	Acquire(ctx context.Context, ownerID uuid.UUID) (bool, error)
	Release(ctx context.Context, ownerID uuid.UUID) error
}

// RunStore persists the finished run with its step telemetry.
type RunStore interface {
	SaveRun(ctx context.Context, run *model.PipelineRun) error
}

// Pipeline sequences the auto-blog stages for one owner at a time. It holds
// no mutable state of its own beyond collaborator handles, so a single
// instance may serve concurrent runs for different owners.
type Pipeline struct {
	guard     Guard
	locker    RunLocker
	topics    TopicSelector
	writer    ContentGenerator
	gate      QualityGate
	reviser   Reviser
	publisher Publisher
	reviews   ReviewMarker
	runs      RunStore
	notifier  Notifier
	logger    *zap.Logger

	maxRevisions int
	stageTimeout time.Duration
	now          func() time.Time
}

type PipelineParams struct {
	Guard     Guard
	Locker    RunLocker
	Topics    TopicSelector
	Writer    ContentGenerator
	Gate      QualityGate
	Reviser   Reviser
	Publisher Publisher
	Reviews   ReviewMarker
	Runs      RunStore
	Notifier  Notifier
	Logger    *zap.Logger

	MaxRevisionAttempts int
	StageTimeout        time.Duration
}

func NewPipeline(params PipelineParams) *Pipeline {
	if params.MaxRevisionAttempts <= 0 {
		params.MaxRevisionAttempts = 3
	}
	if params.Logger == nil {
		params.Logger = zap.NewNop()
	}
	return &Pipeline{
		guard:        params.Guard,
		locker:       params.Locker,
		topics:       params.Topics,
		writer:       params.Writer,
		gate:         params.Gate,
		reviser:      params.Reviser,
		publisher:    params.Publisher,
		reviews:      params.Reviews,
		runs:         params.Runs,
		notifier:     params.Notifier,
		logger:       params.Logger,
		maxRevisions: params.MaxRevisionAttempts,
		stageTimeout: params.StageTimeout,
		now:          time.Now,
	}
}

// Run executes the full pipeline for one owner and always returns a
// structured result; collaborator errors are contained in it, never raised.
func (p *Pipeline) Run(ctx context.Context, ownerID uuid.UUID) *Result {
	run := &Run{
		ID:        uuid.New(),
		OwnerID:   ownerID,
		StartedAt: p.now(),
	}

	logger := p.logger.With(
		zap.String("run_id", run.ID.String()),
		zap.String("owner_id", ownerID.String()),
	)
	rec := newRecorder(run, logger, p.notifier, p.now)

	defer p.persist(ctx, run, logger)

	logger.Info("starting autoblog run")

	// check_existing: the owner lock and the published-today query together
	// close the check-then-publish window for concurrent invocations.
	idx := rec.begin(StageCheckExisting)

	acquired, err := p.locker.Acquire(ctx, ownerID)
	if err != nil {
		rec.fail(ctx, idx, fmt.Errorf("acquire run lock: %w", err))
		rec.finish(ctx, model.RunAborted, "", fmt.Sprintf("acquire run lock: %v", err))
		return run.result()
	}
	if !acquired {
		rec.complete(ctx, idx, CheckExistingPayload{LockedByOther: true})
		rec.finish(ctx, model.RunSkipped, "", "another run is already in progress for this owner")
		return run.result()
	}
	defer func() {
		if err := p.locker.Release(context.WithoutCancel(ctx), ownerID); err != nil {
			logger.Warn("failed to release run lock", zap.Error(err))
		}
	}()

	guardCtx, cancel := p.stageCtx(ctx)
	alreadyPublished, err := p.guard.HasPublishedToday(guardCtx, ownerID)
	cancel()
	if err != nil {
		// Fail closed: an unverifiable idempotency check must not publish.
		rec.fail(ctx, idx, err)
		rec.finish(ctx, model.RunAborted, "", err.Error())
		return run.result()
	}
	rec.complete(ctx, idx, CheckExistingPayload{AlreadyPublished: alreadyPublished})
	if alreadyPublished {
		rec.finish(ctx, model.RunSkipped, "", "owner already published an auto post today")
		return run.result()
	}

	// generate_topic
	idx = rec.begin(StageGenerateTopic)
	topicCtx, cancel := p.stageCtx(ctx)
	topic, err := p.topics.SelectTopic(topicCtx, ownerID)
	cancel()
	if err != nil {
		rec.fail(ctx, idx, err)
		rec.finish(ctx, model.RunAborted, "", err.Error())
		return run.result()
	}
	if topic == nil {
		// Soft failure: expected empty outcome, the step itself succeeded.
		rec.complete(ctx, idx, nil)
		rec.finish(ctx, model.RunAborted, "", "no usable topic survived filtering")
		return run.result()
	}
	rec.complete(ctx, idx, TopicPayload{
		PrimaryKeyword:    topic.PrimaryKeyword,
		SecondaryKeywords: topic.SecondaryKeywords,
		Category:          topic.Category,
		Source:            topic.Source,
	})

	// generate_content
	idx = rec.begin(StageGenerateContent)
	writeCtx, cancel := p.stageCtx(ctx)
	content, err := p.writer.GenerateContent(writeCtx, ownerID, topic)
	cancel()
	if err != nil {
		rec.fail(ctx, idx, err)
		rec.finish(ctx, model.RunAborted, "", err.Error())
		return run.result()
	}
	run.PostID = content.PostID
	rec.complete(ctx, idx, ContentPayload{PostID: content.PostID, WordCount: content.WordCount})

	// quality_check with the bounded revision loop
	assessment, ok := p.assess(ctx, rec, run, content.PostID, 0)
	if !ok {
		return run.result()
	}

	attempts := 0
	for !assessment.Approved && attempts < p.maxRevisions {
		idx = rec.begin(StageReviseContent)
		reviseCtx, cancel := p.stageCtx(ctx)
		revisions, err := p.reviser.Revise(reviseCtx, content.PostID)
		cancel()
		if err != nil {
			rec.fail(ctx, idx, err)
			rec.finish(ctx, model.RunAborted, content.PostID, err.Error())
			return run.result()
		}
		attempts++
		rec.complete(ctx, idx, RevisionPayload{Attempt: attempts, Revisions: revisions})

		assessment, ok = p.assess(ctx, rec, run, content.PostID, attempts)
		if !ok {
			return run.result()
		}
	}
	metrics.RevisionAttempts.Observe(float64(attempts))

	if !assessment.Approved {
		// Revision budget exhausted. The post stays a draft for manual
		// review; unapproved content is never force-published.
		reviewCtx, cancel := p.stageCtx(ctx)
		err = p.reviews.MarkForManualReview(reviewCtx, content.PostID)
		cancel()
		if err != nil {
			rec.finish(ctx, model.RunAborted, content.PostID, fmt.Sprintf("park post for review: %v", err))
			return run.result()
		}
		rec.finish(ctx, model.RunDraft, content.PostID,
			fmt.Sprintf("quality gate not satisfied after %d revision attempts, saved as draft", attempts))
		return run.result()
	}

	// publish_post
	idx = rec.begin(StagePublishPost)
	publishCtx, cancel := p.stageCtx(ctx)
	url, err := p.publisher.Publish(publishCtx, content.PostID)
	cancel()
	if err != nil {
		rec.fail(ctx, idx, err)
		rec.finish(ctx, model.RunAborted, content.PostID, err.Error())
		return run.result()
	}
	rec.complete(ctx, idx, PublishPayload{URL: url})
	rec.finish(ctx, model.RunPublished, content.PostID, "")

	logger.Info("autoblog run published",
		zap.String("post_id", content.PostID),
		zap.String("url", url),
		zap.Int("revision_attempts", attempts),
	)

	return run.result()
}

// assess records one quality_check step. The second return value is false
// when the gate call failed and the run was aborted.
func (p *Pipeline) assess(ctx context.Context, rec *recorder, run *Run, postID string, attempt int) (*Assessment, bool) {
	idx := rec.begin(StageQualityCheck)
	assessCtx, cancel := p.stageCtx(ctx)
	assessment, err := p.gate.Assess(assessCtx, postID)
	cancel()
	if err != nil {
		rec.fail(ctx, idx, err)
		rec.finish(ctx, model.RunAborted, postID, err.Error())
		return nil, false
	}
	rec.complete(ctx, idx, QualityPayload{
		Score:    assessment.Score,
		Approved: assessment.Approved,
		Attempt:  attempt,
	})
	return assessment, true
}

func (p *Pipeline) persist(ctx context.Context, run *Run, logger *zap.Logger) {
	if p.runs == nil {
		return
	}
	if err := p.runs.SaveRun(context.WithoutCancel(ctx), ToModel(run)); err != nil {
		logger.Error("failed to persist pipeline run", zap.Error(err))
	}
}

// stageCtx bounds one external call so a hung collaborator cannot produce
// an unbounded run.
func (p *Pipeline) stageCtx(ctx context.Context) (context.Context, context.CancelFunc) {
	if p.stageTimeout <= 0 {
		return ctx, func() {}
	}
	return context.WithTimeout(ctx, p.stageTimeout)
}
