package autoblog

import (
	"context"
	"encoding/json"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/lightnindragon/listgenius/pkg/metrics"
	"github.com/lightnindragon/listgenius/pkg/model"
)

// Notifier receives live step and run telemetry. Implementations must not
// block the pipeline; failures to notify are not run failures.
type Notifier interface {
	NotifyStep(ctx context.Context, run *Run, step *Step)
	NotifyRun(ctx context.Context, run *Run)
}

// NopNotifier discards all telemetry events.
type NopNotifier struct{}

func (NopNotifier) NotifyStep(context.Context, *Run, *Step) {}
func (NopNotifier) NotifyRun(context.Context, *Run)         {}

// recorder appends one step per stage transition to the run and resolves it
// before the next stage is entered. It is not safe for concurrent use; a run
// is strictly sequential.
type recorder struct {
	run      *Run
	logger   *zap.Logger
	notifier Notifier
	now      func() time.Time
}

func newRecorder(run *Run, logger *zap.Logger, notifier Notifier, now func() time.Time) *recorder {
	if now == nil {
		now = time.Now
	}
	if notifier == nil {
		notifier = NopNotifier{}
	}
	return &recorder{run: run, logger: logger, notifier: notifier, now: now}
}

// begin appends a running step for the stage and returns its index. The
// pointer into Steps is not stable across appends, so steps are addressed by
// index until resolved.
func (r *recorder) begin(stage Stage) int {
	r.run.Steps = append(r.run.Steps, Step{
		Stage:     stage,
		Status:    model.StepRunning,
		StartedAt: r.now(),
	})
	return len(r.run.Steps) - 1
}

func (r *recorder) complete(ctx context.Context, idx int, payload StagePayload) {
	r.resolve(ctx, idx, model.StepCompleted, "", payload)
}

func (r *recorder) fail(ctx context.Context, idx int, err error) {
	msg := ""
	if err != nil {
		msg = err.Error()
	}
	r.resolve(ctx, idx, model.StepFailed, msg, nil)
}

func (r *recorder) resolve(ctx context.Context, idx int, status model.StepStatus, errMsg string, payload StagePayload) {
	step := &r.run.Steps[idx]
	if step.terminal() {
		return
	}

	step.Status = status
	step.FinishedAt = r.now()
	if step.FinishedAt.Before(step.StartedAt) {
		step.FinishedAt = step.StartedAt
	}
	step.Duration = step.FinishedAt.Sub(step.StartedAt)
	step.Error = errMsg
	if payload != nil {
		step.Payload = payload
	}

	metrics.StageDuration.WithLabelValues(string(step.Stage)).Observe(step.Duration.Seconds())
	if status == model.StepFailed {
		metrics.StageFailures.WithLabelValues(string(step.Stage)).Inc()
		r.logger.Warn("pipeline stage failed",
			zap.String("run_id", r.run.ID.String()),
			zap.String("stage", string(step.Stage)),
			zap.Duration("duration", step.Duration),
			zap.String("error", errMsg),
		)
	} else {
		r.logger.Debug("pipeline stage finished",
			zap.String("run_id", r.run.ID.String()),
			zap.String("stage", string(step.Stage)),
			zap.Duration("duration", step.Duration),
		)
	}

	r.notifier.NotifyStep(ctx, r.run, step)
}

func (r *recorder) finish(ctx context.Context, outcome model.RunOutcome, postID, errMsg string) {
	r.run.Outcome = outcome
	r.run.PostID = postID
	r.run.Error = errMsg
	r.run.FinishedAt = r.now()

	metrics.RunsTotal.WithLabelValues(string(outcome)).Inc()
	if outcome == model.RunSkipped {
		metrics.DuplicateSkips.Inc()
	}

	r.notifier.NotifyRun(ctx, r.run)
}

// ToModel projects an in-memory run onto its persisted representation.
func ToModel(run *Run) *model.PipelineRun {
	row := &model.PipelineRun{
		ID:         run.ID,
		OwnerID:    run.OwnerID,
		Outcome:    run.Outcome,
		Success:    run.Outcome == model.RunPublished,
		Error:      run.Error,
		StartedAt:  run.StartedAt,
		FinishedAt: run.FinishedAt,
	}
	if run.PostID != "" {
		if postID, err := uuid.Parse(run.PostID); err == nil {
			row.PostID = &postID
		}
	}

	row.Steps = make([]model.PipelineStep, 0, len(run.Steps))
	for i, step := range run.Steps {
		record := model.PipelineStep{
			RunID:      run.ID,
			Position:   i,
			Stage:      string(step.Stage),
			Status:     step.Status,
			StartedAt:  step.StartedAt,
			DurationMS: step.Duration.Milliseconds(),
			Error:      step.Error,
		}
		if !step.FinishedAt.IsZero() {
			finished := step.FinishedAt
			record.FinishedAt = &finished
		}
		if step.Payload != nil {
			if data, err := json.Marshal(step.Payload); err == nil {
				var payload model.JSONB
				if err := json.Unmarshal(data, &payload); err == nil {
					record.Payload = payload
				}
			}
		}
		row.Steps = append(row.Steps, record)
	}

	return row
}
