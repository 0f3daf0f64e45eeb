package indicators

import (
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func risingBars(n int) []Bar {
	start := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)
	bars := make([]Bar, n)
	for i := range bars {
		c := 100 + float64(i)*0.5
		bars[i] = Bar{
			Time:   start.AddDate(0, 0, i),
			Open:   c - 0.2,
			High:   c + 1,
			Low:    c - 1,
			Close:  c,
			Volume: 1000,
		}
	}
	return bars
}

func choppyBars(n int) []Bar {
	bars := risingBars(n)
	price := 100.0
	for i := range bars {
		if i%2 == 0 {
			price += 3
		} else {
			price -= 2
		}
		bars[i].Close = price
		bars[i].High = price + 1
		bars[i].Low = price - 1
	}
	return bars
}

func TestLoadCSV(t *testing.T) {
	input := `Date,Open,High,Low,Close,Volume
2026-01-03,11,12,10,11.5,300
2026-01-01,10,11,9,10.5,100
2026-01-02,10.5,11.5,10,11,200
`
	bars, err := LoadCSV(strings.NewReader(input))
	require.NoError(t, err)
	require.Len(t, bars, 3)

	assert.Equal(t, time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC), bars[0].Time)
	assert.Equal(t, 10.5, bars[0].Close)
	assert.Equal(t, 300.0, bars[2].Volume)
	assert.Equal(t, []float64{10.5, 11, 11.5}, Closes(bars))
}

func TestLoadCSV_Errors(t *testing.T) {
	tests := []struct {
		name  string
		input string
	}{
		{"missing column", "time,open,high,low,close\n2026-01-01,1,1,1,1\n"},
		{"bad number", "time,open,high,low,close,volume\n2026-01-01,1,1,1,abc,5\n"},
		{"bad time", "time,open,high,low,close,volume\nyesterday,1,1,1,1,5\n"},
		{"ragged row", "time,open,high,low,close,volume\n2026-01-01,1,1\n"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := LoadCSV(strings.NewReader(tt.input))
			assert.Error(t, err)
		})
	}
}

func TestLoadCSV_Empty(t *testing.T) {
	_, err := LoadCSV(strings.NewReader(""))
	assert.ErrorIs(t, err, ErrNoBars)

	_, err = LoadCSV(strings.NewReader("time,open,high,low,close,volume\n"))
	assert.ErrorIs(t, err, ErrNoBars)
}

func TestEvaluate_OrderAndSupport(t *testing.T) {
	readings := NewEvaluator(nil).Evaluate([]string{"Ichimoku", "SMA", "VWAP"}, risingBars(60))

	require.Len(t, readings, 3)
	assert.Equal(t, "Ichimoku", readings[0].Indicator)
	assert.False(t, readings[0].Supported)
	assert.Equal(t, SignalNeutral, readings[0].Signal)
	assert.True(t, readings[1].Supported)
	assert.False(t, readings[2].Supported)
}

func TestEvaluate_Trend(t *testing.T) {
	readings := NewEvaluator(nil).Evaluate([]string{"SMA", "EMA", "MACD", "OBV"}, risingBars(80))

	for _, r := range readings {
		assert.True(t, r.Supported, r.Indicator)
	}
	assert.Equal(t, SignalBullish, readings[0].Signal)
	assert.Less(t, readings[0].Value, risingBars(80)[79].Close)
	assert.Equal(t, SignalBullish, readings[1].Signal)
	assert.Greater(t, readings[2].Value, 0.0)
	assert.Equal(t, SignalBullish, readings[3].Signal)
}

func TestEvaluate_Oscillators(t *testing.T) {
	readings := NewEvaluator(nil).Evaluate([]string{"RSI", "ATR"}, choppyBars(60))

	rsi := readings[0]
	assert.True(t, rsi.Supported)
	assert.Greater(t, rsi.Value, 0.0)
	assert.Less(t, rsi.Value, 100.0)

	atr := readings[1]
	assert.True(t, atr.Supported)
	assert.Greater(t, atr.Value, 0.0)
	assert.Contains(t, atr.Note, "% of close")
}

func TestEvaluate_Volume(t *testing.T) {
	bars := risingBars(30)
	bars[29].Volume = 5000

	r := NewEvaluator(nil).Evaluate([]string{"Volume"}, bars)[0]
	assert.Equal(t, 5000.0, r.Value)
	assert.Equal(t, SignalBullish, r.Signal)

	bars[29].Close = bars[28].Close - 1
	r = NewEvaluator(nil).Evaluate([]string{"Volume"}, bars)[0]
	assert.Equal(t, SignalBearish, r.Signal)
}

func TestEvaluate_InsufficientBars(t *testing.T) {
	readings := NewEvaluator(nil).Evaluate([]string{"SMA", "MACD", "RSI"}, risingBars(5))

	for _, r := range readings {
		assert.True(t, r.Supported)
		assert.Equal(t, SignalNeutral, r.Signal)
		assert.Contains(t, r.Note, "needs at least")
	}
	assert.Equal(t, "needs at least 20 bars", readings[0].Note)
}
