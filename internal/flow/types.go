package flow

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"
)

var (
	// ErrRunInProgress is returned when an entry point is refused because
	// a run, quick demo or advanced analysis is already active
	ErrRunInProgress = errors.New("flow: a run is already in progress")

	// ErrNoSteps is returned by Start when the sequence is empty
	ErrNoSteps = errors.New("flow: no steps configured")

	// ErrInvalidMode is returned by ParseMode
	ErrInvalidMode = errors.New("flow: invalid mode")
)

// Mode selects how the sequencer paces itself between steps
type Mode string

const (
	ModeAuto   Mode = "auto"
	ModeManual Mode = "manual"
)

// ParseMode validates a mode name
func ParseMode(s string) (Mode, error) {
	switch Mode(strings.ToLower(strings.TrimSpace(s))) {
	case ModeAuto:
		return ModeAuto, nil
	case ModeManual:
		return ModeManual, nil
	default:
		return "", fmt.Errorf("%w: %q", ErrInvalidMode, s)
	}
}

// Label returns the capitalized mode name
func (m Mode) Label() string {
	if m == "" {
		return ""
	}
	return strings.ToUpper(string(m[:1])) + string(m[1:])
}

// Severity of a notification
type Severity string

const (
	SeverityInfo    Severity = "info"
	SeveritySuccess Severity = "success"
	SeverityWarning Severity = "warning"
	SeverityError   Severity = "error"
)

// Notification is a toast-style message for the host
type Notification struct {
	Message  string        `json:"message"`
	Severity Severity      `json:"severity"`
	Duration time.Duration `json:"duration"`
}

func defaultDuration(sev Severity) time.Duration {
	switch sev {
	case SeverityError:
		return 5 * time.Second
	case SeverityWarning:
		return 4 * time.Second
	default:
		return 3 * time.Second
	}
}

// Notifier receives notifications. Implementations must not block for long.
type Notifier interface {
	Notify(n Notification)
}

// NotifierFunc adapts a function to Notifier
type NotifierFunc func(Notification)

// Notify calls f(n)
func (f NotifierFunc) Notify(n Notification) { f(n) }

// Actions are the host mutations the sequencer drives
type Actions interface {
	SetSymbols(ctx context.Context, symbols []string) error
	SetWalletAmount(ctx context.Context, amount string) error
	SetIndicators(ctx context.Context, indicators []string) error
	SetTimeframe(ctx context.Context, timeframe string) error
	SetMarketType(ctx context.Context, marketType string) error
	SetMarket(ctx context.Context, market string) error
	RunAnalysis(ctx context.Context) error
}

// Step is one unit of the scripted sequence
type Step struct {
	ID          string
	Name        string
	Description string
	Action      func(ctx context.Context) error
	Delay       time.Duration // post-delay in auto mode
}

// FlowPrompt is the free-text guidance steps adapt to
type FlowPrompt struct {
	Prompt   string `json:"prompt"`
	IsCustom bool   `json:"is_custom"`
}

// Activity identifies what currently holds the sequencer
type Activity string

const (
	ActivityIdle     Activity = "idle"
	ActivityRun      Activity = "run"
	ActivityDemo     Activity = "demo"
	ActivityAdvanced Activity = "advanced"
)

// Status is a read-only snapshot of the sequencer
type Status struct {
	IsRunning        bool       `json:"is_running"`
	Activity         Activity   `json:"activity"`
	CurrentStepIndex int        `json:"current_step_index"`
	TotalSteps       int        `json:"total_steps"`
	CurrentStepName  string     `json:"current_step_name"`
	Mode             Mode       `json:"mode"`
	IsPaused         bool       `json:"is_paused"`
	FlowPrompt       FlowPrompt `json:"flow_prompt"`
}

// StatusObserver is called after every state change
type StatusObserver func(Status)

// Outcome of a finished run
type Outcome string

const (
	OutcomeCompleted Outcome = "completed"
	OutcomeStopped   Outcome = "stopped"
)

// Run identifies one execution of an entry point
type Run struct {
	ID        string    `json:"id"`
	Activity  Activity  `json:"activity"`
	Mode      Mode      `json:"mode"`
	Prompt    string    `json:"prompt"`
	StartedAt time.Time `json:"started_at"`
}

// Recorder journals runs. Errors are logged, never propagated.
type Recorder interface {
	RunStarted(ctx context.Context, run Run) error
	StepFinished(ctx context.Context, run Run, index int, step Step, stepErr error) error
	RunFinished(ctx context.Context, run Run, outcome Outcome) error
}
