package jobs

import (
	"context"
	"fmt"

	"github.com/wonny/tradepilot/internal/confluence"
	"github.com/wonny/tradepilot/pkg/logger"
)

// ConfluenceWarmupJob refreshes cached analyses of the preset combinations
type ConfluenceWarmupJob struct {
	analyzer *confluence.CachedAnalyzer
	schedule string
	logger   *logger.Logger
}

// NewConfluenceWarmupJob creates a new warmup job
func NewConfluenceWarmupJob(analyzer *confluence.CachedAnalyzer, schedule string, log *logger.Logger) *ConfluenceWarmupJob {
	return &ConfluenceWarmupJob{
		analyzer: analyzer,
		schedule: schedule,
		logger:   log,
	}
}

// Name returns the job name
func (j *ConfluenceWarmupJob) Name() string {
	return "confluence_warmup"
}

// Schedule returns the cron schedule
func (j *ConfluenceWarmupJob) Schedule() string {
	return j.schedule
}

// Run executes the warmup
func (j *ConfluenceWarmupJob) Run(ctx context.Context) error {
	n, err := j.analyzer.Warmup(ctx)
	if err != nil {
		return fmt.Errorf("warmup interrupted after %d analyses: %w", n, err)
	}
	return nil
}
