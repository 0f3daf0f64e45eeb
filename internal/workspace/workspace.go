package workspace

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/shopspring/decimal"

	"github.com/wonny/tradepilot/internal/confluence"
	"github.com/wonny/tradepilot/internal/indicators"
	"github.com/wonny/tradepilot/pkg/logger"
)

var (
	ErrInvalidAmount     = errors.New("workspace: wallet amount must be a positive number")
	ErrInvalidTimeframe  = errors.New("workspace: unsupported timeframe")
	ErrInvalidMarketType = errors.New("workspace: unsupported market type")
	ErrNoSymbols         = errors.New("workspace: at least one symbol is required")
	ErrNoMarket          = errors.New("workspace: market is required")
	ErrNoIndicators      = errors.New("workspace: no indicators selected")
)

// Timeframes lists the accepted chart intervals
var Timeframes = []string{"1m", "5m", "15m", "1h", "4h", "1d", "1w"}

// MarketTypes lists the accepted asset classes
var MarketTypes = []string{"stocks", "crypto", "forex"}

// Analyzer scores indicator selections
type Analyzer interface {
	Analyze(ctx context.Context, selected []string) confluence.Analysis
}

// State is a snapshot of the host UI configuration
type State struct {
	Symbols      []string             `json:"symbols"`
	WalletAmount decimal.Decimal      `json:"wallet_amount"`
	Indicators   []string             `json:"indicators"`
	Timeframe    string               `json:"timeframe"`
	MarketType   string               `json:"market_type"`
	Market       string               `json:"market"`
	Analysis     *confluence.Analysis `json:"analysis,omitempty"`
	Readings     []indicators.Reading `json:"readings,omitempty"`
	AnalyzedAt   *time.Time           `json:"analyzed_at,omitempty"`
	UpdatedAt    time.Time            `json:"updated_at"`
}

// Workspace holds the configuration the flow sequencer mutates.
// It implements flow.Actions and is safe for concurrent use.
// ⭐ SSOT: 종목/지갑/지표/타임프레임/시장 상태는 Workspace에서만 관리
type Workspace struct {
	mu        sync.RWMutex
	state     State
	bars      []indicators.Bar
	analyzer  Analyzer
	evaluator *indicators.Evaluator
	listeners []func(State)
	logger    *logger.Logger
}

// New creates a workspace with default selections
func New(analyzer Analyzer, evaluator *indicators.Evaluator, log *logger.Logger) *Workspace {
	if log == nil {
		log = logger.Nop()
	}
	return &Workspace{
		state: State{
			Symbols:      []string{},
			WalletAmount: decimal.NewFromInt(10000),
			Indicators:   []string{},
			Timeframe:    "1d",
			MarketType:   "stocks",
			Market:       "NASDAQ",
			UpdatedAt:    time.Now(),
		},
		analyzer:  analyzer,
		evaluator: evaluator,
		logger:    log.WithComponent("workspace"),
	}
}

// OnChange registers a listener called with a snapshot after every mutation
func (w *Workspace) OnChange(fn func(State)) {
	w.mu.Lock()
	w.listeners = append(w.listeners, fn)
	w.mu.Unlock()
}

// SetBars replaces the price series used for indicator readings
func (w *Workspace) SetBars(bars []indicators.Bar) {
	w.mu.Lock()
	w.bars = append([]indicators.Bar(nil), bars...)
	w.mu.Unlock()
}

// Snapshot returns a deep copy of the current state
func (w *Workspace) Snapshot() State {
	w.mu.RLock()
	defer w.mu.RUnlock()
	return w.snapshotLocked()
}

func (w *Workspace) snapshotLocked() State {
	st := w.state
	st.Symbols = append([]string{}, w.state.Symbols...)
	st.Indicators = append([]string{}, w.state.Indicators...)
	if w.state.Readings != nil {
		st.Readings = append([]indicators.Reading(nil), w.state.Readings...)
	}
	if w.state.Analysis != nil {
		a := *w.state.Analysis
		st.Analysis = &a
	}
	return st
}

// SetSymbols replaces the symbol list (upper-cased, deduplicated)
func (w *Workspace) SetSymbols(ctx context.Context, symbols []string) error {
	cleaned := uniqueNonEmpty(symbols, strings.ToUpper)
	if len(cleaned) == 0 {
		return ErrNoSymbols
	}
	return w.update("symbols", cleaned, func(s *State) { s.Symbols = cleaned })
}

// SetWalletAmount parses a decimal amount; thousands separators are accepted
func (w *Workspace) SetWalletAmount(ctx context.Context, amount string) error {
	d, err := decimal.NewFromString(strings.ReplaceAll(strings.TrimSpace(amount), ",", ""))
	if err != nil {
		return fmt.Errorf("%w: %q", ErrInvalidAmount, amount)
	}
	if !d.IsPositive() {
		return fmt.Errorf("%w: %q", ErrInvalidAmount, amount)
	}
	return w.update("wallet_amount", d.String(), func(s *State) { s.WalletAmount = d })
}

// SetIndicators replaces the indicator selection. Unknown IDs are kept;
// the scorer treats them as neutral.
func (w *Workspace) SetIndicators(ctx context.Context, ids []string) error {
	cleaned := uniqueNonEmpty(ids, nil)
	return w.update("indicators", cleaned, func(s *State) { s.Indicators = cleaned })
}

// SetTimeframe sets the chart interval
func (w *Workspace) SetTimeframe(ctx context.Context, timeframe string) error {
	tf := strings.TrimSpace(timeframe)
	if !contains(Timeframes, tf) {
		return fmt.Errorf("%w: %q", ErrInvalidTimeframe, timeframe)
	}
	return w.update("timeframe", tf, func(s *State) { s.Timeframe = tf })
}

// SetMarketType sets the asset class
func (w *Workspace) SetMarketType(ctx context.Context, marketType string) error {
	mt := strings.ToLower(strings.TrimSpace(marketType))
	if !contains(MarketTypes, mt) {
		return fmt.Errorf("%w: %q", ErrInvalidMarketType, marketType)
	}
	return w.update("market_type", mt, func(s *State) { s.MarketType = mt })
}

// SetMarket sets the exchange
func (w *Workspace) SetMarket(ctx context.Context, market string) error {
	m := strings.TrimSpace(market)
	if m == "" {
		return ErrNoMarket
	}
	return w.update("market", m, func(s *State) { s.Market = m })
}

// RunAnalysis scores the selected indicators and, when bars are loaded,
// evaluates their latest readings
func (w *Workspace) RunAnalysis(ctx context.Context) error {
	w.mu.RLock()
	selected := append([]string(nil), w.state.Indicators...)
	bars := w.bars
	w.mu.RUnlock()

	if len(selected) == 0 {
		return ErrNoIndicators
	}
	if err := ctx.Err(); err != nil {
		return err
	}

	analysis := w.analyzer.Analyze(ctx, selected)

	var readings []indicators.Reading
	if len(bars) > 0 && w.evaluator != nil {
		readings = w.evaluator.Evaluate(selected, bars)
	}

	now := time.Now()
	w.logger.WithFields(map[string]interface{}{
		"indicators": len(selected),
		"score":      analysis.OverallScore,
		"status":     analysis.Status,
		"readings":   len(readings),
	}).Info("Analysis completed")

	return w.update("analysis", analysis.Status, func(s *State) {
		s.Analysis = &analysis
		s.Readings = readings
		s.AnalyzedAt = &now
	})
}

func (w *Workspace) update(field string, value interface{}, mutate func(*State)) error {
	w.mu.Lock()
	mutate(&w.state)
	w.state.UpdatedAt = time.Now()
	snapshot := w.snapshotLocked()
	listeners := append([]func(State){}, w.listeners...)
	w.mu.Unlock()

	w.logger.WithField(field, value).Debug("Workspace updated")

	for _, fn := range listeners {
		fn(snapshot)
	}
	return nil
}

func uniqueNonEmpty(values []string, transform func(string) string) []string {
	seen := make(map[string]bool, len(values))
	out := make([]string, 0, len(values))
	for _, v := range values {
		v = strings.TrimSpace(v)
		if transform != nil {
			v = transform(v)
		}
		if v == "" || seen[v] {
			continue
		}
		seen[v] = true
		out = append(out, v)
	}
	return out
}

func contains(list []string, v string) bool {
	for _, item := range list {
		if item == v {
			return true
		}
	}
	return false
}
