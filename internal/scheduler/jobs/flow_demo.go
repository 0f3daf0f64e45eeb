package jobs

import (
	"context"
	"errors"
	"fmt"

	"github.com/wonny/tradepilot/internal/flow"
	"github.com/wonny/tradepilot/pkg/logger"
)

// FlowDemoJob replays the quick demo on a schedule
// Skipped while any flow activity holds the sequencer
type FlowDemoJob struct {
	sequencer *flow.Sequencer
	schedule  string
	logger    *logger.Logger
}

// NewFlowDemoJob creates a new flow demo job
func NewFlowDemoJob(seq *flow.Sequencer, schedule string, log *logger.Logger) *FlowDemoJob {
	return &FlowDemoJob{
		sequencer: seq,
		schedule:  schedule,
		logger:    log,
	}
}

// Name returns the job name
func (j *FlowDemoJob) Name() string {
	return "flow_demo"
}

// Schedule returns the cron schedule
func (j *FlowDemoJob) Schedule() string {
	return j.schedule
}

// Run starts the quick demo and waits for it to end
func (j *FlowDemoJob) Run(ctx context.Context) error {
	if j.sequencer.Status().IsRunning {
		j.logger.Info("Flow busy, skipping scheduled demo")
		return nil
	}

	done, err := j.sequencer.RunQuickDemo(ctx)
	if errors.Is(err, flow.ErrRunInProgress) {
		j.logger.Info("Flow busy, skipping scheduled demo")
		return nil
	}
	if err != nil {
		return fmt.Errorf("start quick demo: %w", err)
	}

	select {
	case <-done:
		j.logger.Info("Scheduled demo finished")
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}
