package indicators

import (
	"fmt"
	"sync"

	"github.com/cinar/indicator/v2/helper"
	"github.com/cinar/indicator/v2/momentum"
	"github.com/cinar/indicator/v2/trend"
	"github.com/cinar/indicator/v2/volatility"
	"github.com/cinar/indicator/v2/volume"

	"github.com/wonny/tradepilot/pkg/logger"
)

// Signal is the coarse direction a reading points to
type Signal string

const (
	SignalBullish Signal = "bullish"
	SignalBearish Signal = "bearish"
	SignalNeutral Signal = "neutral"
)

// Reading is the latest value of one indicator over a bar series
type Reading struct {
	Indicator string  `json:"indicator"`
	Value     float64 `json:"value"`
	Signal    Signal  `json:"signal"`
	Supported bool    `json:"supported"`
	Note      string  `json:"note,omitempty"`
}

const (
	maPeriod      = 20
	rsiPeriod     = 14
	macdFast      = 12
	macdSlow      = 26
	macdSignal    = 9
	atrMinBars    = 15
	obvLookback   = 10
	volumeAverage = 20
)

// Evaluator computes indicator readings from price bars
// ⭐ SSOT: 지표 값 계산은 여기서만 (cinar/indicator)
type Evaluator struct {
	logger *logger.Logger
}

// NewEvaluator creates a new evaluator
func NewEvaluator(log *logger.Logger) *Evaluator {
	if log == nil {
		log = logger.Nop()
	}
	return &Evaluator{logger: log}
}

// Supported lists the indicator IDs with a computed reading
func Supported() []string {
	return []string{"SMA", "EMA", "MACD", "RSI", "ATR", "OBV", "Volume"}
}

// Evaluate returns one reading per requested indicator, in request order.
// Indicators without an implementation are reported as unsupported.
func (e *Evaluator) Evaluate(ids []string, bars []Bar) []Reading {
	readings := make([]Reading, 0, len(ids))
	for _, id := range ids {
		var r Reading
		switch id {
		case "SMA":
			r = e.movingAverage(id, bars, func(c []float64) []float64 {
				return helper.ChanToSlice(trend.NewSmaWithPeriod[float64](maPeriod).Compute(helper.SliceToChan(c)))
			})
		case "EMA":
			r = e.movingAverage(id, bars, func(c []float64) []float64 {
				return helper.ChanToSlice(trend.NewEmaWithPeriod[float64](maPeriod).Compute(helper.SliceToChan(c)))
			})
		case "RSI":
			r = e.rsi(bars)
		case "MACD":
			r = e.macd(bars)
		case "ATR":
			r = e.atr(bars)
		case "OBV":
			r = e.obv(bars)
		case "Volume":
			r = e.volume(bars)
		default:
			r = Reading{Indicator: id, Signal: SignalNeutral, Note: "no reading available"}
		}
		readings = append(readings, r)
	}

	e.logger.WithFields(map[string]interface{}{
		"indicators": len(ids),
		"bars":       len(bars),
	}).Debug("Evaluated indicator readings")

	return readings
}

func insufficient(id string, need int) Reading {
	return Reading{
		Indicator: id,
		Signal:    SignalNeutral,
		Supported: true,
		Note:      fmt.Sprintf("needs at least %d bars", need),
	}
}

func (e *Evaluator) movingAverage(id string, bars []Bar, compute func([]float64) []float64) Reading {
	if len(bars) < maPeriod {
		return insufficient(id, maPeriod)
	}
	values := compute(Closes(bars))
	if len(values) == 0 {
		return insufficient(id, maPeriod)
	}

	ma := values[len(values)-1]
	last := bars[len(bars)-1].Close
	r := Reading{Indicator: id, Value: ma, Signal: SignalNeutral, Supported: true}
	switch {
	case last > ma:
		r.Signal = SignalBullish
		r.Note = fmt.Sprintf("close above %s%d", id, maPeriod)
	case last < ma:
		r.Signal = SignalBearish
		r.Note = fmt.Sprintf("close below %s%d", id, maPeriod)
	}
	return r
}

func (e *Evaluator) rsi(bars []Bar) Reading {
	if len(bars) < rsiPeriod+1 {
		return insufficient("RSI", rsiPeriod+1)
	}
	values := helper.ChanToSlice(momentum.NewRsiWithPeriod[float64](rsiPeriod).Compute(helper.SliceToChan(Closes(bars))))
	if len(values) == 0 {
		return insufficient("RSI", rsiPeriod+1)
	}

	rsi := values[len(values)-1]
	r := Reading{Indicator: "RSI", Value: rsi, Signal: SignalNeutral, Supported: true}
	switch {
	case rsi >= 70:
		r.Signal = SignalBearish
		r.Note = "overbought"
	case rsi <= 30:
		r.Signal = SignalBullish
		r.Note = "oversold"
	}
	return r
}

func (e *Evaluator) macd(bars []Bar) Reading {
	need := macdSlow + macdSignal
	if len(bars) < need {
		return insufficient("MACD", need)
	}

	macds, signals := trend.NewMacdWithPeriod[float64](macdFast, macdSlow, macdSignal).Compute(helper.SliceToChan(Closes(bars)))

	// both outputs share an upstream duplicator and must be drained together
	var signalValues []float64
	var wg sync.WaitGroup
	wg.Add(1)
	go func() {
		defer wg.Done()
		signalValues = helper.ChanToSlice(signals)
	}()
	macdValues := helper.ChanToSlice(macds)
	wg.Wait()

	if len(macdValues) == 0 || len(signalValues) == 0 {
		return insufficient("MACD", need)
	}

	m := macdValues[len(macdValues)-1]
	s := signalValues[len(signalValues)-1]
	r := Reading{Indicator: "MACD", Value: m, Signal: SignalNeutral, Supported: true}
	switch {
	case m > s:
		r.Signal = SignalBullish
		r.Note = "MACD above signal line"
	case m < s:
		r.Signal = SignalBearish
		r.Note = "MACD below signal line"
	}
	return r
}

func (e *Evaluator) atr(bars []Bar) Reading {
	if len(bars) < atrMinBars {
		return insufficient("ATR", atrMinBars)
	}

	highs := make([]float64, len(bars))
	lows := make([]float64, len(bars))
	for i, b := range bars {
		highs[i] = b.High
		lows[i] = b.Low
	}

	values := helper.ChanToSlice(volatility.NewAtr[float64]().Compute(
		helper.SliceToChan(highs),
		helper.SliceToChan(lows),
		helper.SliceToChan(Closes(bars)),
	))
	if len(values) == 0 {
		return insufficient("ATR", atrMinBars)
	}

	atr := values[len(values)-1]
	r := Reading{Indicator: "ATR", Value: atr, Signal: SignalNeutral, Supported: true}
	if last := bars[len(bars)-1].Close; last > 0 {
		r.Note = fmt.Sprintf("%.2f%% of close", atr/last*100)
	}
	return r
}

func (e *Evaluator) obv(bars []Bar) Reading {
	need := obvLookback + 1
	if len(bars) < need {
		return insufficient("OBV", need)
	}

	vols := make([]float64, len(bars))
	for i, b := range bars {
		vols[i] = b.Volume
	}
	values := helper.ChanToSlice(volume.NewObv[float64]().Compute(helper.SliceToChan(Closes(bars)), helper.SliceToChan(vols)))
	if len(values) <= obvLookback {
		return insufficient("OBV", need)
	}

	last := values[len(values)-1]
	prev := values[len(values)-1-obvLookback]
	r := Reading{Indicator: "OBV", Value: last, Signal: SignalNeutral, Supported: true}
	switch {
	case last > prev:
		r.Signal = SignalBullish
		r.Note = "accumulation"
	case last < prev:
		r.Signal = SignalBearish
		r.Note = "distribution"
	}
	return r
}

func (e *Evaluator) volume(bars []Bar) Reading {
	if len(bars) < 2 {
		return insufficient("Volume", 2)
	}

	window := bars
	if len(window) > volumeAverage {
		window = window[len(window)-volumeAverage:]
	}
	var sum float64
	for _, b := range window {
		sum += b.Volume
	}
	avg := sum / float64(len(window))

	last := bars[len(bars)-1]
	prevClose := bars[len(bars)-2].Close
	r := Reading{Indicator: "Volume", Value: last.Volume, Signal: SignalNeutral, Supported: true}
	if last.Volume > avg {
		switch {
		case last.Close > prevClose:
			r.Signal = SignalBullish
			r.Note = "above-average volume on an up bar"
		case last.Close < prevClose:
			r.Signal = SignalBearish
			r.Note = "above-average volume on a down bar"
		}
	}
	return r
}
