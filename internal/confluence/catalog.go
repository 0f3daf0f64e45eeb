package confluence

import "sort"

// Category is one of the four analytical families an indicator belongs to
type Category string

const (
	CategoryTrend      Category = "trend"
	CategoryMomentum   Category = "momentum"
	CategoryVolatility Category = "volatility"
	CategoryVolume     Category = "volume"
)

// Categories lists the fixed categories in check order
var Categories = []Category{CategoryTrend, CategoryMomentum, CategoryVolatility, CategoryVolume}

// targetCount is the optimal number of indicators per category
var targetCount = map[Category]int{
	CategoryTrend:      2,
	CategoryMomentum:   2,
	CategoryVolatility: 1,
	CategoryVolume:     1,
}

// Indicator is the static metadata for a single indicator
type Indicator struct {
	ID        string   `json:"id"`
	Category  Category `json:"category"`
	Weight    float64  `json:"weight"`
	Synergies []string `json:"synergies"`
	Conflicts []string `json:"conflicts,omitempty"`
}

// Catalog is an immutable indicator metadata table
// ⭐ SSOT: 지표 메타데이터는 여기서만 정의
type Catalog struct {
	entries map[string]Indicator
	order   []string
}

// NewCatalog builds a catalog from the given entries.
// Later entries with a duplicate ID replace earlier ones.
func NewCatalog(indicators ...Indicator) Catalog {
	c := Catalog{entries: make(map[string]Indicator, len(indicators))}
	for _, ind := range indicators {
		if _, exists := c.entries[ind.ID]; !exists {
			c.order = append(c.order, ind.ID)
		}
		c.entries[ind.ID] = ind
	}
	return c
}

// Lookup returns the metadata for id
func (c Catalog) Lookup(id string) (Indicator, bool) {
	ind, ok := c.entries[id]
	return ind, ok
}

// Len returns the number of known indicators
func (c Catalog) Len() int {
	return len(c.entries)
}

// Indicators returns every entry in declaration order
func (c Catalog) Indicators() []Indicator {
	out := make([]Indicator, 0, len(c.order))
	for _, id := range c.order {
		out = append(out, c.entries[id])
	}
	return out
}

// ByCategory returns the entries of one category in declaration order
func (c Catalog) ByCategory(cat Category) []Indicator {
	var out []Indicator
	for _, id := range c.order {
		if c.entries[id].Category == cat {
			out = append(out, c.entries[id])
		}
	}
	return out
}

// TopByWeight returns up to n indicator IDs of a category, highest weight first
func (c Catalog) TopByWeight(cat Category, n int) []string {
	members := c.ByCategory(cat)
	sort.SliceStable(members, func(i, j int) bool {
		return members[i].Weight > members[j].Weight
	})
	if len(members) > n {
		members = members[:n]
	}
	ids := make([]string, len(members))
	for i, m := range members {
		ids[i] = m.ID
	}
	return ids
}

// DefaultCatalog returns the built-in table of 20 indicators
func DefaultCatalog() Catalog {
	return NewCatalog(
		// Trend
		Indicator{ID: "SMA", Category: CategoryTrend, Weight: 0.8, Synergies: []string{"RSI", "BollingerBands", "Volume"}},
		Indicator{ID: "EMA", Category: CategoryTrend, Weight: 0.85, Synergies: []string{"MACD", "RSI", "VWAP"}},
		Indicator{ID: "MACD", Category: CategoryTrend, Weight: 0.9, Synergies: []string{"RSI", "EMA", "Volume", "ADX"}},
		Indicator{ID: "ADX", Category: CategoryTrend, Weight: 0.75, Synergies: []string{"MACD", "ATR", "ParabolicSAR"}},
		Indicator{ID: "Ichimoku", Category: CategoryTrend, Weight: 0.7, Synergies: []string{"RSI", "Volume"}},
		Indicator{ID: "ParabolicSAR", Category: CategoryTrend, Weight: 0.6, Synergies: []string{"ADX", "ATR"}},

		// Momentum
		Indicator{ID: "RSI", Category: CategoryMomentum, Weight: 0.9, Synergies: []string{"MACD", "BollingerBands", "SMA", "EMA"}},
		Indicator{ID: "Stochastic", Category: CategoryMomentum, Weight: 0.8, Synergies: []string{"BollingerBands", "EMA"}},
		Indicator{ID: "CCI", Category: CategoryMomentum, Weight: 0.7, Synergies: []string{"BollingerBands", "ADX"}},
		Indicator{ID: "WilliamsR", Category: CategoryMomentum, Weight: 0.65, Synergies: []string{"EMA", "BollingerBands"}},
		Indicator{ID: "ROC", Category: CategoryMomentum, Weight: 0.6, Synergies: []string{"SMA", "OBV"}},

		// Volatility
		Indicator{ID: "BollingerBands", Category: CategoryVolatility, Weight: 0.9, Synergies: []string{"RSI", "Stochastic", "Volume"}},
		Indicator{ID: "ATR", Category: CategoryVolatility, Weight: 0.85, Synergies: []string{"ADX", "KeltnerChannels", "ParabolicSAR"}},
		Indicator{ID: "KeltnerChannels", Category: CategoryVolatility, Weight: 0.7, Synergies: []string{"ATR", "EMA", "RSI"}},
		Indicator{ID: "DonchianChannels", Category: CategoryVolatility, Weight: 0.65, Synergies: []string{"ADX", "ATR", "Volume"}},

		// Volume
		Indicator{ID: "Volume", Category: CategoryVolume, Weight: 0.8, Synergies: []string{"SMA", "MACD", "OBV"}},
		Indicator{ID: "OBV", Category: CategoryVolume, Weight: 0.85, Synergies: []string{"RSI", "MACD", "Volume"}},
		Indicator{ID: "VWAP", Category: CategoryVolume, Weight: 0.9, Synergies: []string{"EMA", "RSI", "Volume"}},
		Indicator{ID: "MFI", Category: CategoryVolume, Weight: 0.75, Synergies: []string{"RSI", "BollingerBands"}},
		Indicator{ID: "CMF", Category: CategoryVolume, Weight: 0.7, Synergies: []string{"MACD", "OBV"}},
	)
}
