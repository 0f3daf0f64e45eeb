package flow

import (
	"context"
	"fmt"
)

// RunQuickDemo executes the first four steps with a fixed short delay,
// ignoring mode and pausing. It shares the exclusive slot with Start.
func (s *Sequencer) RunQuickDemo(ctx context.Context) (<-chan struct{}, error) {
	s.mu.Lock()
	if s.activity != ActivityIdle {
		done := s.done
		s.mu.Unlock()
		s.notify("Cannot start the quick demo while a flow is running", SeverityWarning)
		return done, ErrRunInProgress
	}
	steps := append([]Step(nil), s.steps...)
	if len(steps) > quickDemoSteps {
		steps = steps[:quickDemoSteps]
	}
	run, gen, stop, done := s.beginLocked(ActivityDemo)
	delay := s.demoDelay
	s.mu.Unlock()

	s.notify("Quick demo started", SeverityInfo)
	s.publish()

	go func() {
		defer close(done)
		s.recordStart(ctx, run)

		outcome := OutcomeCompleted
		for i, step := range steps {
			if !s.enterStep(ctx, gen, stop, i) {
				outcome = OutcomeStopped
				break
			}
			s.execute(ctx, run, i, step)
			if i < len(steps)-1 && !wait(ctx, stop, delay) {
				outcome = OutcomeStopped
				break
			}
		}

		if s.finish(gen) && outcome == OutcomeCompleted {
			s.notify("Quick demo completed", SeveritySuccess)
		}
		s.publish()
		s.recordFinish(ctx, run, outcome)
	}()
	return done, nil
}

// RunAdvancedAnalysis applies the advanced indicator set, a 4h timeframe and a
// 50000 wallet, then runs the analysis. It never moves the step index.
func (s *Sequencer) RunAdvancedAnalysis(ctx context.Context) (<-chan struct{}, error) {
	s.mu.Lock()
	if s.activity != ActivityIdle {
		done := s.done
		s.mu.Unlock()
		s.notify("Cannot run the advanced analysis while a flow is running", SeverityWarning)
		return done, ErrRunInProgress
	}
	run, gen, stop, done := s.beginLocked(ActivityAdvanced)
	s.mu.Unlock()

	s.notify("Running advanced analysis", SeverityInfo)
	s.publish()

	calls := []Step{
		{ID: "advanced-indicators", Name: "Advanced indicators", Action: func(ctx context.Context) error {
			return s.actions.SetIndicators(ctx, append([]string(nil), AdvancedIndicators...))
		}},
		{ID: "advanced-timeframe", Name: "Advanced timeframe", Action: func(ctx context.Context) error {
			return s.actions.SetTimeframe(ctx, AdvancedTimeframe)
		}},
		{ID: "advanced-wallet", Name: "Advanced wallet", Action: func(ctx context.Context) error {
			return s.actions.SetWalletAmount(ctx, AdvancedWalletAmount)
		}},
		{ID: "advanced-analysis", Name: "Advanced analysis", Action: func(ctx context.Context) error {
			return s.actions.RunAnalysis(ctx)
		}},
	}

	go func() {
		defer close(done)
		s.recordStart(ctx, run)

		outcome := OutcomeCompleted
		for i, call := range calls {
			if !s.stillOwns(ctx, gen, stop) {
				outcome = OutcomeStopped
				break
			}
			s.execute(ctx, run, i, call)
		}

		if s.finish(gen) && outcome == OutcomeCompleted {
			s.notify(fmt.Sprintf("Advanced analysis complete (%d indicators, %s)", len(AdvancedIndicators), AdvancedTimeframe), SeveritySuccess)
		}
		s.publish()
		s.recordFinish(ctx, run, outcome)
	}()
	return done, nil
}

// stillOwns reports whether gen is still the active activity
func (s *Sequencer) stillOwns(ctx context.Context, gen uint64, stop chan struct{}) bool {
	select {
	case <-stop:
		return false
	case <-ctx.Done():
		return false
	default:
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.gen == gen
}
