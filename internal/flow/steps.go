package flow

import "context"

// Step identifiers of the default sequence
const (
	StepWelcome     = "welcome"
	StepMarketType  = "market-type"
	StepMarket      = "market"
	StepSymbols     = "symbols"
	StepWallet      = "wallet"
	StepTimeframe   = "timeframe"
	StepIndicators  = "indicators"
	StepRunAnalysis = "run-analysis"
	StepReview      = "review"
)

var (
	// DefaultIndicators is the balanced selection applied by the indicators step
	DefaultIndicators = []string{"SMA", "MACD", "RSI", "BollingerBands", "Volume"}

	// AdvancedIndicators is the selection applied by RunAdvancedAnalysis
	AdvancedIndicators = []string{"EMA", "MACD", "ADX", "RSI", "Stochastic", "BollingerBands", "ATR", "OBV", "VWAP"}
)

const (
	DefaultTimeframe     = "1d"
	AdvancedTimeframe    = "4h"
	AdvancedWalletAmount = "50000"
)

// defaultSteps builds the 9-step walkthrough. Payload steps read the flow
// prompt when they execute, so a prompt changed mid-run applies to later steps.
func (s *Sequencer) defaultSteps() []Step {
	plan := func() Plan { return AdaptPrompt(s.FlowPrompt().Prompt) }
	d := s.stepDelay

	return []Step{
		{
			ID:          StepWelcome,
			Name:        "Welcome",
			Description: "Walk through configuring a technical analysis",
			Delay:       d,
		},
		{
			ID:          StepMarketType,
			Name:        "Select market type",
			Description: "Choose the asset class to analyze",
			Action: func(ctx context.Context) error {
				return s.actions.SetMarketType(ctx, plan().MarketType)
			},
			Delay: d,
		},
		{
			ID:          StepMarket,
			Name:        "Select market",
			Description: "Choose the exchange",
			Action: func(ctx context.Context) error {
				return s.actions.SetMarket(ctx, plan().Market)
			},
			Delay: d,
		},
		{
			ID:          StepSymbols,
			Name:        "Add symbols",
			Description: "Pick the symbols matching the flow prompt",
			Action: func(ctx context.Context) error {
				return s.actions.SetSymbols(ctx, plan().Symbols)
			},
			Delay: d,
		},
		{
			ID:          StepWallet,
			Name:        "Set wallet amount",
			Description: "Set the capital available for the analysis",
			Action: func(ctx context.Context) error {
				return s.actions.SetWalletAmount(ctx, plan().WalletAmount)
			},
			Delay: d,
		},
		{
			ID:          StepTimeframe,
			Name:        "Select timeframe",
			Description: "Choose the chart interval",
			Action: func(ctx context.Context) error {
				return s.actions.SetTimeframe(ctx, DefaultTimeframe)
			},
			Delay: d,
		},
		{
			ID:          StepIndicators,
			Name:        "Choose indicators",
			Description: "Apply a balanced indicator combination",
			Action: func(ctx context.Context) error {
				return s.actions.SetIndicators(ctx, append([]string(nil), DefaultIndicators...))
			},
			Delay: d,
		},
		{
			ID:          StepRunAnalysis,
			Name:        "Run analysis",
			Description: "Score the selection and evaluate the indicators",
			Action: func(ctx context.Context) error {
				return s.actions.RunAnalysis(ctx)
			},
			Delay: d,
		},
		{
			ID:          StepReview,
			Name:        "Review results",
			Description: "Inspect the confluence score and recommendations",
		},
	}
}
