package confluence

// Strategy tags a trading horizon
type Strategy string

const (
	StrategyDayTrading      Strategy = "day-trading"
	StrategySwingTrading    Strategy = "swing-trading"
	StrategyPositionTrading Strategy = "position-trading"
)

// Combination is a named preset indicator list
type Combination struct {
	Name       string   `json:"name"`
	Indicators []string `json:"indicators"`
}

var combinations = map[Strategy][]Combination{
	StrategyDayTrading: {
		{Name: "Intraday Momentum", Indicators: []string{"EMA", "RSI", "VWAP", "ATR"}},
		{Name: "Breakout Confirmation", Indicators: []string{"MACD", "Stochastic", "Volume", "BollingerBands"}},
		{Name: "Channel Scalper", Indicators: []string{"EMA", "CCI", "OBV", "KeltnerChannels"}},
	},
	StrategySwingTrading: {
		{Name: "Classic Swing", Indicators: []string{"SMA", "MACD", "RSI", "BollingerBands", "Volume"}},
		{Name: "Pullback Hunter", Indicators: []string{"EMA", "Stochastic", "ATR", "OBV"}},
		{Name: "Cloud Reversal", Indicators: []string{"Ichimoku", "RSI", "BollingerBands", "MFI"}},
	},
	StrategyPositionTrading: {
		{Name: "Long Trend", Indicators: []string{"SMA", "ADX", "ROC", "ATR", "OBV"}},
		{Name: "Macro Cycle", Indicators: []string{"Ichimoku", "MACD", "DonchianChannels", "CMF"}},
		{Name: "Core Trend Follow", Indicators: []string{"EMA", "ADX", "RSI", "BollingerBands", "Volume"}},
	},
}

// Strategies lists the recognized strategy tags
func Strategies() []Strategy {
	return []Strategy{StrategyDayTrading, StrategySwingTrading, StrategyPositionTrading}
}

// ResolveStrategy maps a tag onto a known strategy, falling back to swing trading
func ResolveStrategy(tag string) Strategy {
	s := Strategy(tag)
	if _, ok := combinations[s]; ok {
		return s
	}
	return StrategySwingTrading
}

// OptimalCombinations returns the preset lists for a strategy.
// Unrecognized tags get the swing-trading presets.
func OptimalCombinations(strategy string) []Combination {
	return copyCombinations(combinations[ResolveStrategy(strategy)])
}

// Presets maps each strategy to its preset combinations
type Presets map[Strategy][]Combination

// DefaultPresets returns a copy of the built-in presets
func DefaultPresets() Presets {
	p := make(Presets, len(combinations))
	for s, combos := range combinations {
		p[s] = copyCombinations(combos)
	}
	return p
}

// For returns copies of the presets of a strategy, resolved like OptimalCombinations
func (p Presets) For(strategy string) []Combination {
	return copyCombinations(p[ResolveStrategy(strategy)])
}

func copyCombinations(presets []Combination) []Combination {
	out := make([]Combination, len(presets))
	for i, c := range presets {
		out[i] = Combination{
			Name:       c.Name,
			Indicators: append([]string(nil), c.Indicators...),
		}
	}
	return out
}
