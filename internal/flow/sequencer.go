package flow

import (
	"context"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/wonny/tradepilot/internal/metrics"
	"github.com/wonny/tradepilot/pkg/logger"
)

// Sequencer runs an ordered list of steps against host actions.
// At most one of Start, RunQuickDemo and RunAdvancedAnalysis is active at a time.
// ⭐ SSOT: 플로우 실행 상태(isRunning/index/paused)는 Sequencer만 변경
type Sequencer struct {
	mu sync.Mutex

	actions   Actions
	steps     []Step
	mode      Mode
	prompt    FlowPrompt
	stepDelay time.Duration
	demoDelay time.Duration

	activity Activity
	index    int
	paused   bool
	gen      uint64
	gate     chan struct{} // closed by Continue
	stop     chan struct{} // closed by Stop
	done     chan struct{} // closed when the active goroutine exits

	notifier  Notifier
	observers []StatusObserver
	recorder  Recorder
	logger    *logger.Logger
}

// Option configures a Sequencer
type Option func(*Sequencer)

// WithNotifier sets the notification sink
func WithNotifier(n Notifier) Option {
	return func(s *Sequencer) { s.notifier = n }
}

// WithObserver registers a status observer
func WithObserver(o StatusObserver) Option {
	return func(s *Sequencer) { s.observers = append(s.observers, o) }
}

// WithRecorder sets the run journal
func WithRecorder(r Recorder) Option {
	return func(s *Sequencer) { s.recorder = r }
}

// WithLogger sets the logger
func WithLogger(l *logger.Logger) Option {
	return func(s *Sequencer) { s.logger = l }
}

// WithMode sets the initial pacing mode
func WithMode(m Mode) Option {
	return func(s *Sequencer) { s.mode = m }
}

// WithStepDelay sets the auto-mode post-delay of the default steps
func WithStepDelay(d time.Duration) Option {
	return func(s *Sequencer) { s.stepDelay = d }
}

// WithQuickDemoDelay sets the fixed delay between quick demo steps
func WithQuickDemoDelay(d time.Duration) Option {
	return func(s *Sequencer) { s.demoDelay = d }
}

// WithPrompt sets the initial flow prompt
func WithPrompt(p string) Option {
	return func(s *Sequencer) {
		if strings.TrimSpace(p) != "" {
			s.prompt = FlowPrompt{Prompt: p, IsCustom: true}
		}
	}
}

// WithSteps replaces the default sequence
func WithSteps(steps []Step) Option {
	return func(s *Sequencer) {
		s.steps = make([]Step, len(steps))
		copy(s.steps, steps)
	}
}

const (
	DefaultStepDelay      = 1500 * time.Millisecond
	DefaultQuickDemoDelay = 800 * time.Millisecond
	quickDemoSteps        = 4
)

// New creates a sequencer driving actions through the default 9-step sequence
func New(actions Actions, opts ...Option) *Sequencer {
	s := &Sequencer{
		actions:   actions,
		mode:      ModeAuto,
		prompt:    FlowPrompt{Prompt: DefaultPrompt},
		stepDelay: DefaultStepDelay,
		demoDelay: DefaultQuickDemoDelay,
		activity:  ActivityIdle,
		logger:    logger.Nop(),
	}
	for _, opt := range opts {
		opt(s)
	}
	if s.steps == nil {
		s.steps = s.defaultSteps()
	}
	s.logger = s.logger.WithComponent("flow")
	return s
}

// ReplaceSteps swaps the whole sequence. Refused while anything is active.
func (s *Sequencer) ReplaceSteps(steps []Step) error {
	s.mu.Lock()
	if s.activity != ActivityIdle {
		s.mu.Unlock()
		return ErrRunInProgress
	}
	s.steps = append([]Step(nil), steps...)
	s.mu.Unlock()
	s.publish()
	return nil
}

// Steps returns a copy of the configured sequence
func (s *Sequencer) Steps() []Step {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]Step(nil), s.steps...)
}

// Start begins a full run and returns a channel closed when the run's goroutine exits.
// If something is already active it only emits a warning and returns the active
// run's channel with ErrRunInProgress. Actions receive ctx; cancelling it ends the run
// like Stop would.
func (s *Sequencer) Start(ctx context.Context) (<-chan struct{}, error) {
	s.mu.Lock()
	if s.activity != ActivityIdle {
		done := s.done
		s.mu.Unlock()
		s.notify("Flow is already running", SeverityWarning)
		return done, ErrRunInProgress
	}
	if len(s.steps) == 0 {
		s.mu.Unlock()
		s.notify("No flow steps configured", SeverityWarning)
		return closedChan(), ErrNoSteps
	}

	run, gen, stop, done := s.beginLocked(ActivityRun)
	steps := append([]Step(nil), s.steps...)
	mode := s.mode
	s.mu.Unlock()

	s.notify(fmt.Sprintf("%s mode initialized", mode.Label()), SeverityInfo)
	s.publish()

	go s.runSteps(ctx, run, gen, stop, done, steps, mode)
	return done, nil
}

func (s *Sequencer) runSteps(ctx context.Context, run Run, gen uint64, stop, done chan struct{}, steps []Step, mode Mode) {
	defer close(done)
	s.recordStart(ctx, run)

	outcome := OutcomeCompleted
loop:
	for i, step := range steps {
		if !s.enterStep(ctx, gen, stop, i) {
			outcome = OutcomeStopped
			break
		}

		s.execute(ctx, run, i, step)

		if i == len(steps)-1 {
			break
		}

		switch mode {
		case ModeManual:
			gate, ok := s.pause(gen)
			if !ok {
				outcome = OutcomeStopped
				break loop
			}
			s.notify(fmt.Sprintf("%s complete. Continue when ready", step.Name), SeverityInfo)
			s.publish()
			select {
			case <-gate:
			case <-stop:
				outcome = OutcomeStopped
				break loop
			case <-ctx.Done():
				outcome = OutcomeStopped
				break loop
			}
		default:
			if !wait(ctx, stop, step.Delay) {
				outcome = OutcomeStopped
				break loop
			}
		}
	}

	if s.finish(gen) {
		if outcome == OutcomeCompleted {
			s.notify("Flow completed", SeveritySuccess)
		} else {
			s.notify("Flow cancelled", SeverityWarning)
		}
	}
	s.publish()
	s.recordFinish(ctx, run, outcome)
}

// Stop ends whatever is active. In-flight actions are not interrupted but no
// further action runs after them; pending manual gates and delays are released.
func (s *Sequencer) Stop() {
	s.mu.Lock()
	if s.activity == ActivityIdle {
		s.mu.Unlock()
		s.notify("No flow is running", SeverityWarning)
		return
	}
	activity := s.activity
	close(s.stop)
	s.gen++
	s.resetLocked()
	s.mu.Unlock()

	s.logger.WithField("activity", activity).Info("Flow stopped by user")
	s.notify("Flow stopped by user", SeverityInfo)
	s.publish()
}

// Continue resumes a run paused in manual mode. It reports whether a pause was released.
func (s *Sequencer) Continue() bool {
	s.mu.Lock()
	if !s.paused || s.gate == nil {
		s.mu.Unlock()
		return false
	}
	s.paused = false
	close(s.gate)
	s.gate = nil
	s.mu.Unlock()

	s.publish()
	return true
}

// SetMode switches pacing. Refused with a warning while anything is active.
func (s *Sequencer) SetMode(m Mode) error {
	if _, err := ParseMode(string(m)); err != nil {
		return err
	}

	s.mu.Lock()
	if s.activity != ActivityIdle {
		s.mu.Unlock()
		s.notify("Cannot change mode while a flow is running", SeverityWarning)
		return ErrRunInProgress
	}
	changed := s.mode != m
	s.mode = m
	s.mu.Unlock()

	if changed {
		s.notify(fmt.Sprintf("Switched to %s mode", m), SeverityInfo)
		s.publish()
	}
	return nil
}

// SetFlowPrompt replaces the guidance text. An empty prompt restores the default.
func (s *Sequencer) SetFlowPrompt(text string) {
	s.mu.Lock()
	if strings.TrimSpace(text) == "" {
		s.prompt = FlowPrompt{Prompt: DefaultPrompt}
	} else {
		s.prompt = FlowPrompt{Prompt: text, IsCustom: true}
	}
	s.mu.Unlock()
	s.publish()
}

// ConfirmFlowPrompt sets the prompt and acknowledges it with a success notification
func (s *Sequencer) ConfirmFlowPrompt(text string) Plan {
	s.SetFlowPrompt(text)
	plan := AdaptPrompt(s.FlowPrompt().Prompt)
	s.notify(fmt.Sprintf("Flow prompt confirmed (%s focus)", plan.Theme), SeveritySuccess)
	return plan
}

// FlowPrompt returns the current prompt
func (s *Sequencer) FlowPrompt() FlowPrompt {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.prompt
}

// Status returns a snapshot; safe to poll from any goroutine
func (s *Sequencer) Status() Status {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.statusLocked()
}

func (s *Sequencer) statusLocked() Status {
	st := Status{
		IsRunning:        s.activity != ActivityIdle,
		Activity:         s.activity,
		CurrentStepIndex: s.index,
		TotalSteps:       len(s.steps),
		Mode:             s.mode,
		IsPaused:         s.paused,
		FlowPrompt:       s.prompt,
	}
	if s.index >= 0 && s.index < len(s.steps) {
		st.CurrentStepName = s.steps[s.index].Name
	}
	return st
}

// beginLocked claims the exclusive slot for a new activity
func (s *Sequencer) beginLocked(activity Activity) (Run, uint64, chan struct{}, chan struct{}) {
	s.gen++
	s.activity = activity
	s.index = 0
	s.paused = false
	s.gate = nil
	s.stop = make(chan struct{})
	s.done = make(chan struct{})

	metrics.FlowRuns.WithLabelValues(string(activity), string(s.mode)).Inc()
	metrics.FlowRunning.Set(1)

	run := Run{
		ID:        uuid.New().String(),
		Activity:  activity,
		Mode:      s.mode,
		Prompt:    s.prompt.Prompt,
		StartedAt: time.Now(),
	}
	return run, s.gen, s.stop, s.done
}

func (s *Sequencer) resetLocked() {
	s.activity = ActivityIdle
	s.index = 0
	s.paused = false
	if s.gate != nil {
		close(s.gate)
		s.gate = nil
	}
	metrics.FlowRunning.Set(0)
}

// enterStep moves the index to i unless the run was stopped or superseded
func (s *Sequencer) enterStep(ctx context.Context, gen uint64, stop chan struct{}, i int) bool {
	select {
	case <-stop:
		return false
	case <-ctx.Done():
		return false
	default:
	}

	s.mu.Lock()
	if s.gen != gen {
		s.mu.Unlock()
		return false
	}
	s.index = i
	s.mu.Unlock()
	s.publish()
	return true
}

// pause arms the manual gate for the current step
func (s *Sequencer) pause(gen uint64) (chan struct{}, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.gen != gen {
		return nil, false
	}
	s.paused = true
	s.gate = make(chan struct{})
	return s.gate, true
}

// finish returns the sequencer to idle if gen still owns it
func (s *Sequencer) finish(gen uint64) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.gen != gen {
		return false
	}
	s.gen++
	s.resetLocked()
	return true
}

// execute runs one action. Failures are reported and never abort the run.
func (s *Sequencer) execute(ctx context.Context, run Run, index int, step Step) {
	s.logger.WithFields(map[string]interface{}{
		"run_id": run.ID,
		"step":   step.ID,
		"index":  index,
	}).Debug("Executing flow step")

	start := time.Now()
	err := call(ctx, step.Action)
	metrics.FlowStepDuration.WithLabelValues(step.ID).Observe(time.Since(start).Seconds())

	if err != nil {
		metrics.FlowSteps.WithLabelValues(step.ID, "error").Inc()
		s.logger.WithError(err).WithFields(map[string]interface{}{
			"run_id": run.ID,
			"step":   step.ID,
		}).Error("Flow step failed")
		s.notify(fmt.Sprintf("%s failed: %v", step.Name, err), SeverityError)
	} else {
		metrics.FlowSteps.WithLabelValues(step.ID, "ok").Inc()
	}

	if s.recorder != nil {
		if rerr := s.recorder.StepFinished(context.WithoutCancel(ctx), run, index, step, err); rerr != nil {
			s.logger.WithError(rerr).Warn("Failed to record flow step")
		}
	}
}

func (s *Sequencer) recordStart(ctx context.Context, run Run) {
	if s.recorder == nil {
		return
	}
	if err := s.recorder.RunStarted(context.WithoutCancel(ctx), run); err != nil {
		s.logger.WithError(err).Warn("Failed to record flow run start")
	}
}

func (s *Sequencer) recordFinish(ctx context.Context, run Run, outcome Outcome) {
	s.logger.WithFields(map[string]interface{}{
		"run_id":   run.ID,
		"activity": run.Activity,
		"outcome":  outcome,
	}).Info("Flow run finished")

	if s.recorder == nil {
		return
	}
	if err := s.recorder.RunFinished(context.WithoutCancel(ctx), run, outcome); err != nil {
		s.logger.WithError(err).Warn("Failed to record flow run finish")
	}
}

func (s *Sequencer) notify(message string, sev Severity) {
	if s.notifier == nil {
		return
	}
	s.notifier.Notify(Notification{
		Message:  message,
		Severity: sev,
		Duration: defaultDuration(sev),
	})
}

func (s *Sequencer) publish() {
	s.mu.Lock()
	st := s.statusLocked()
	observers := append([]StatusObserver(nil), s.observers...)
	s.mu.Unlock()

	for _, o := range observers {
		o(st)
	}
}

// call runs an action, converting a panic into an error
func call(ctx context.Context, action func(context.Context) error) (err error) {
	if action == nil {
		return nil
	}
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("step panicked: %v", r)
		}
	}()
	return action(ctx)
}

// wait sleeps for d unless stop or ctx fire first
func wait(ctx context.Context, stop chan struct{}, d time.Duration) bool {
	if d <= 0 {
		select {
		case <-stop:
			return false
		case <-ctx.Done():
			return false
		default:
			return true
		}
	}
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-timer.C:
		return true
	case <-stop:
		return false
	case <-ctx.Done():
		return false
	}
}

func closedChan() chan struct{} {
	ch := make(chan struct{})
	close(ch)
	return ch
}
