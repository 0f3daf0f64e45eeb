package flow

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

// fakeActions records every host mutation in call order
type fakeActions struct {
	mu       sync.Mutex
	calls    []string
	failures map[string]error
	blockers map[string]chan struct{}
}

func newFakeActions() *fakeActions {
	return &fakeActions{
		failures: map[string]error{},
		blockers: map[string]chan struct{}{},
	}
}

func (f *fakeActions) record(ctx context.Context, name, arg string) error {
	f.mu.Lock()
	entry := name
	if arg != "" {
		entry = name + ":" + arg
	}
	f.calls = append(f.calls, entry)
	block := f.blockers[name]
	err := f.failures[name]
	f.mu.Unlock()

	if block != nil {
		select {
		case <-block:
		case <-ctx.Done():
			return ctx.Err()
		}
	}
	return err
}

func (f *fakeActions) failOn(name string, err error) {
	f.mu.Lock()
	f.failures[name] = err
	f.mu.Unlock()
}

func (f *fakeActions) blockOn(name string) chan struct{} {
	ch := make(chan struct{})
	f.mu.Lock()
	f.blockers[name] = ch
	f.mu.Unlock()
	return ch
}

func (f *fakeActions) Calls() []string {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]string(nil), f.calls...)
}

func (f *fakeActions) SetSymbols(ctx context.Context, symbols []string) error {
	return f.record(ctx, "SetSymbols", strings.Join(symbols, ","))
}

func (f *fakeActions) SetWalletAmount(ctx context.Context, amount string) error {
	return f.record(ctx, "SetWalletAmount", amount)
}

func (f *fakeActions) SetIndicators(ctx context.Context, indicators []string) error {
	return f.record(ctx, "SetIndicators", strings.Join(indicators, ","))
}

func (f *fakeActions) SetTimeframe(ctx context.Context, timeframe string) error {
	return f.record(ctx, "SetTimeframe", timeframe)
}

func (f *fakeActions) SetMarketType(ctx context.Context, marketType string) error {
	return f.record(ctx, "SetMarketType", marketType)
}

func (f *fakeActions) SetMarket(ctx context.Context, market string) error {
	return f.record(ctx, "SetMarket", market)
}

func (f *fakeActions) RunAnalysis(ctx context.Context) error {
	return f.record(ctx, "RunAnalysis", "")
}

// fakeNotifier collects notifications
type fakeNotifier struct {
	mu    sync.Mutex
	items []Notification
}

func (n *fakeNotifier) Notify(note Notification) {
	n.mu.Lock()
	n.items = append(n.items, note)
	n.mu.Unlock()
}

func (n *fakeNotifier) All() []Notification {
	n.mu.Lock()
	defer n.mu.Unlock()
	return append([]Notification(nil), n.items...)
}

func (n *fakeNotifier) Has(sev Severity, fragment string) bool {
	for _, item := range n.All() {
		if item.Severity == sev && strings.Contains(item.Message, fragment) {
			return true
		}
	}
	return false
}

// fakeRecorder journals runs in memory
type fakeRecorder struct {
	mu       sync.Mutex
	started  []Run
	steps    []string
	outcomes []Outcome
}

func (r *fakeRecorder) RunStarted(_ context.Context, run Run) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.started = append(r.started, run)
	return nil
}

func (r *fakeRecorder) StepFinished(_ context.Context, _ Run, index int, step Step, stepErr error) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	entry := fmt.Sprintf("%d:%s", index, step.ID)
	if stepErr != nil {
		entry += ":error"
	}
	r.steps = append(r.steps, entry)
	return nil
}

func (r *fakeRecorder) RunFinished(_ context.Context, _ Run, outcome Outcome) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.outcomes = append(r.outcomes, outcome)
	return errors.New("journal offline")
}

type harness struct {
	seq      *Sequencer
	actions  *fakeActions
	notifier *fakeNotifier
}

func newHarness(opts ...Option) *harness {
	h := &harness{actions: newFakeActions(), notifier: &fakeNotifier{}}
	base := []Option{
		WithNotifier(h.notifier),
		WithStepDelay(time.Millisecond),
		WithQuickDemoDelay(time.Millisecond),
	}
	h.seq = New(h.actions, append(base, opts...)...)
	return h
}

func waitDone(t *testing.T, done <-chan struct{}) {
	t.Helper()
	select {
	case <-done:
	case <-time.After(2 * time.Second):
		t.Fatal("run did not finish in time")
	}
}

func waitPaused(t *testing.T, s *Sequencer, index int) {
	t.Helper()
	require.Eventually(t, func() bool {
		st := s.Status()
		return st.IsPaused && st.CurrentStepIndex == index
	}, 2*time.Second, time.Millisecond, "expected pause at step %d", index)
}
