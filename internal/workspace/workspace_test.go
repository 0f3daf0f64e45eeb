package workspace

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/wonny/tradepilot/internal/confluence"
	"github.com/wonny/tradepilot/internal/flow"
	"github.com/wonny/tradepilot/internal/indicators"
)

var _ flow.Actions = (*Workspace)(nil)

type directAnalyzer struct {
	analyzer *confluence.Analyzer
}

func (d directAnalyzer) Analyze(_ context.Context, selected []string) confluence.Analysis {
	return d.analyzer.Analyze(selected)
}

func newTestWorkspace() *Workspace {
	return New(directAnalyzer{confluence.NewAnalyzer(confluence.DefaultCatalog(), nil)}, indicators.NewEvaluator(nil), nil)
}

func TestNew_Defaults(t *testing.T) {
	st := newTestWorkspace().Snapshot()

	assert.Empty(t, st.Symbols)
	assert.True(t, decimal.NewFromInt(10000).Equal(st.WalletAmount))
	assert.Equal(t, "1d", st.Timeframe)
	assert.Equal(t, "stocks", st.MarketType)
	assert.Equal(t, "NASDAQ", st.Market)
	assert.Nil(t, st.Analysis)
}

func TestSetSymbols(t *testing.T) {
	w := newTestWorkspace()
	ctx := context.Background()

	require.NoError(t, w.SetSymbols(ctx, []string{"aapl", " MSFT ", "AAPL", ""}))
	assert.Equal(t, []string{"AAPL", "MSFT"}, w.Snapshot().Symbols)

	assert.ErrorIs(t, w.SetSymbols(ctx, []string{" ", ""}), ErrNoSymbols)
	assert.Equal(t, []string{"AAPL", "MSFT"}, w.Snapshot().Symbols)
}

func TestSetWalletAmount(t *testing.T) {
	tests := []struct {
		input   string
		want    string
		wantErr bool
	}{
		{"250", "250", false},
		{"12,500.50", "12500.5", false},
		{" 50000 ", "50000", false},
		{"0", "", true},
		{"-10", "", true},
		{"ten", "", true},
		{"", "", true},
	}

	for _, tt := range tests {
		t.Run(tt.input, func(t *testing.T) {
			w := newTestWorkspace()
			err := w.SetWalletAmount(context.Background(), tt.input)
			if tt.wantErr {
				assert.ErrorIs(t, err, ErrInvalidAmount)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, w.Snapshot().WalletAmount.String())
		})
	}
}

func TestSetTimeframeAndMarket(t *testing.T) {
	w := newTestWorkspace()
	ctx := context.Background()

	require.NoError(t, w.SetTimeframe(ctx, "4h"))
	assert.ErrorIs(t, w.SetTimeframe(ctx, "3d"), ErrInvalidTimeframe)

	require.NoError(t, w.SetMarketType(ctx, "Crypto"))
	assert.ErrorIs(t, w.SetMarketType(ctx, "bonds"), ErrInvalidMarketType)

	require.NoError(t, w.SetMarket(ctx, "Binance"))
	assert.ErrorIs(t, w.SetMarket(ctx, " "), ErrNoMarket)

	st := w.Snapshot()
	assert.Equal(t, "4h", st.Timeframe)
	assert.Equal(t, "crypto", st.MarketType)
	assert.Equal(t, "Binance", st.Market)
}

func TestRunAnalysis(t *testing.T) {
	w := newTestWorkspace()
	ctx := context.Background()

	assert.ErrorIs(t, w.RunAnalysis(ctx), ErrNoIndicators)

	require.NoError(t, w.SetIndicators(ctx, []string{"SMA", "RSI", "Volume", "SMA"}))
	require.NoError(t, w.RunAnalysis(ctx))

	st := w.Snapshot()
	require.NotNil(t, st.Analysis)
	assert.Equal(t, []string{"SMA", "RSI", "Volume"}, st.Indicators)
	assert.Equal(t, 0.75, st.Analysis.Balance.Coverage)
	assert.NotNil(t, st.AnalyzedAt)
	assert.Empty(t, st.Readings, "no bars loaded")
}

func TestRunAnalysis_WithBars(t *testing.T) {
	w := newTestWorkspace()
	ctx := context.Background()

	start := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)
	bars := make([]indicators.Bar, 40)
	for i := range bars {
		c := 50 + float64(i)
		bars[i] = indicators.Bar{Time: start.AddDate(0, 0, i), Open: c, High: c + 1, Low: c - 1, Close: c, Volume: 100}
	}
	w.SetBars(bars)

	require.NoError(t, w.SetIndicators(ctx, []string{"SMA", "Ichimoku"}))
	require.NoError(t, w.RunAnalysis(ctx))

	readings := w.Snapshot().Readings
	require.Len(t, readings, 2)
	assert.Equal(t, indicators.SignalBullish, readings[0].Signal)
	assert.False(t, readings[1].Supported)
}

func TestRunAnalysis_CancelledContext(t *testing.T) {
	w := newTestWorkspace()
	require.NoError(t, w.SetIndicators(context.Background(), []string{"SMA"}))

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	assert.ErrorIs(t, w.RunAnalysis(ctx), context.Canceled)
}

func TestSnapshotIsCopy(t *testing.T) {
	w := newTestWorkspace()
	require.NoError(t, w.SetSymbols(context.Background(), []string{"AAPL"}))

	st := w.Snapshot()
	st.Symbols[0] = "MUTATED"

	assert.Equal(t, []string{"AAPL"}, w.Snapshot().Symbols)
}

func TestOnChange(t *testing.T) {
	w := newTestWorkspace()

	var mu sync.Mutex
	var markets []string
	w.OnChange(func(st State) {
		mu.Lock()
		markets = append(markets, st.Market)
		mu.Unlock()
	})

	require.NoError(t, w.SetMarket(context.Background(), "NYSE"))
	require.Error(t, w.SetMarket(context.Background(), ""))

	mu.Lock()
	defer mu.Unlock()
	assert.Equal(t, []string{"NYSE"}, markets)
}

func TestDrivenBySequencer(t *testing.T) {
	w := newTestWorkspace()
	seq := flow.New(w, flow.WithStepDelay(0), flow.WithPrompt("dividend stocks with $7500"))

	done, err := seq.Start(context.Background())
	require.NoError(t, err)
	select {
	case <-done:
	case <-time.After(2 * time.Second):
		t.Fatal("flow did not finish")
	}

	st := w.Snapshot()
	assert.Equal(t, []string{"KO", "PG", "VZ"}, st.Symbols)
	assert.Equal(t, "7500", st.WalletAmount.String())
	assert.Equal(t, flow.DefaultIndicators, st.Indicators)
	require.NotNil(t, st.Analysis)
}
