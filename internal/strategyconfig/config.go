package strategyconfig

import "github.com/wonny/tradepilot/internal/confluence"

// Config는 지표 카탈로그와 전략 프리셋의 전체 설정
type Config struct {
	Meta       Meta           `yaml:"meta" json:"meta"`
	Indicators []IndicatorDef `yaml:"indicators" json:"indicators"`
	Strategies []StrategyDef  `yaml:"strategies" json:"strategies"`
}

// Meta 메타 정보
type Meta struct {
	ConfigID string `yaml:"config_id" json:"config_id"`
	Version  string `yaml:"version" json:"version"`
}

// IndicatorDef 카탈로그 항목 하나
type IndicatorDef struct {
	ID        string   `yaml:"id" json:"id"`
	Category  string   `yaml:"category" json:"category"`
	Weight    float64  `yaml:"weight" json:"weight"`
	Synergies []string `yaml:"synergies" json:"synergies"`
	Conflicts []string `yaml:"conflicts,omitempty" json:"conflicts,omitempty"`
}

// StrategyDef 전략 태그별 프리셋 목록
type StrategyDef struct {
	Tag          string           `yaml:"tag" json:"tag"`
	Combinations []CombinationDef `yaml:"combinations" json:"combinations"`
}

type CombinationDef struct {
	Name       string   `yaml:"name" json:"name"`
	Indicators []string `yaml:"indicators" json:"indicators"`
}

// Catalog converts the indicator section into an analyzer catalog.
// An empty section yields the built-in catalog.
func (c *Config) Catalog() confluence.Catalog {
	if len(c.Indicators) == 0 {
		return confluence.DefaultCatalog()
	}

	entries := make([]confluence.Indicator, 0, len(c.Indicators))
	for _, def := range c.Indicators {
		entries = append(entries, confluence.Indicator{
			ID:        def.ID,
			Category:  confluence.Category(def.Category),
			Weight:    def.Weight,
			Synergies: append([]string(nil), def.Synergies...),
			Conflicts: append([]string(nil), def.Conflicts...),
		})
	}
	return confluence.NewCatalog(entries...)
}

// Presets converts the strategy section into analyzer presets.
// Strategies missing from the file keep their built-in presets.
func (c *Config) Presets() confluence.Presets {
	presets := confluence.DefaultPresets()
	for _, s := range c.Strategies {
		combos := make([]confluence.Combination, 0, len(s.Combinations))
		for _, def := range s.Combinations {
			combos = append(combos, confluence.Combination{
				Name:       def.Name,
				Indicators: append([]string(nil), def.Indicators...),
			})
		}
		presets[confluence.Strategy(s.Tag)] = combos
	}
	return presets
}
