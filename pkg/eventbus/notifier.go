package eventbus

import (
	"context"

	"go.uber.org/zap"

	"github.com/lightnindragon/listgenius/pkg/autoblog"
)

// PipelineNotifier bridges pipeline telemetry onto the redis bus. Publish
// failures are logged and swallowed: losing a live event never fails a run.
type PipelineNotifier struct {
	bus    *Bus
	logger *zap.Logger
}

func NewPipelineNotifier(bus *Bus, logger *zap.Logger) *PipelineNotifier {
	return &PipelineNotifier{bus: bus, logger: logger}
}

func (n *PipelineNotifier) NotifyStep(ctx context.Context, run *autoblog.Run, step *autoblog.Step) {
	event, err := NewEvent("pipeline_step_finished", StepEvent{
		RunID:      run.ID.String(),
		OwnerID:    run.OwnerID.String(),
		Stage:      string(step.Stage),
		Status:     string(step.Status),
		DurationMS: step.Duration.Milliseconds(),
		Error:      step.Error,
	})
	if err != nil {
		return
	}
	if err := n.bus.Publish(ctx, ChannelStep, event); err != nil {
		n.logger.Debug("failed to publish step event", zap.Error(err))
	}
}

func (n *PipelineNotifier) NotifyRun(ctx context.Context, run *autoblog.Run) {
	event, err := NewEvent("pipeline_run_finished", RunEvent{
		RunID:   run.ID.String(),
		OwnerID: run.OwnerID.String(),
		Outcome: string(run.Outcome),
		PostID:  run.PostID,
		Error:   run.Error,
	})
	if err != nil {
		return
	}
	if err := n.bus.Publish(ctx, ChannelRun, event); err != nil {
		n.logger.Debug("failed to publish run event", zap.Error(err))
	}
}
