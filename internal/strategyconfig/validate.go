package strategyconfig

import (
	"fmt"

	"github.com/wonny/tradepilot/internal/confluence"
)

// ValidationError 검증 실패 (프로그램 중단)
type ValidationError struct {
	Field   string
	Message string
}

func (e ValidationError) Error() string {
	return fmt.Sprintf("%s: %s", e.Field, e.Message)
}

// Warning 권장 위반 (경고만)
type Warning struct {
	Code    string
	Message string
}

// Validate checks all required constraints
// 실패 시 error 반환 (프로그램 중단)
func Validate(cfg *Config) error {
	// === Meta ===
	if cfg.Meta.ConfigID == "" {
		return ValidationError{"meta.config_id", "required"}
	}

	// === Indicators ===
	known := make(map[string]bool, len(cfg.Indicators))
	for i, ind := range cfg.Indicators {
		field := fmt.Sprintf("indicators[%d]", i)
		if ind.ID == "" {
			return ValidationError{field + ".id", "required"}
		}
		if known[ind.ID] {
			return ValidationError{field + ".id", fmt.Sprintf("duplicate indicator %q", ind.ID)}
		}
		known[ind.ID] = true

		if !validCategory(ind.Category) {
			return ValidationError{field + ".category", fmt.Sprintf("unknown category %q", ind.Category)}
		}
		if ind.Weight <= 0 || ind.Weight > 1 {
			return ValidationError{field + ".weight", "must be in (0, 1]"}
		}
	}

	// 카탈로그 비어 있으면 기본 카탈로그 기준으로 검증
	catalog := cfg.Catalog()

	// === Strategies ===
	seen := make(map[string]bool, len(cfg.Strategies))
	for i, s := range cfg.Strategies {
		field := fmt.Sprintf("strategies[%d]", i)
		if !validStrategy(s.Tag) {
			return ValidationError{field + ".tag", fmt.Sprintf("unknown strategy %q", s.Tag)}
		}
		if seen[s.Tag] {
			return ValidationError{field + ".tag", fmt.Sprintf("duplicate strategy %q", s.Tag)}
		}
		seen[s.Tag] = true

		for j, combo := range s.Combinations {
			comboField := fmt.Sprintf("%s.combinations[%d]", field, j)
			if combo.Name == "" {
				return ValidationError{comboField + ".name", "required"}
			}
			if len(combo.Indicators) == 0 {
				return ValidationError{comboField + ".indicators", "required"}
			}
			for _, id := range combo.Indicators {
				if _, ok := catalog.Lookup(id); !ok {
					return ValidationError{comboField + ".indicators", fmt.Sprintf("indicator %q not in catalog", id)}
				}
			}
		}
	}

	return nil
}

// Warn checks recommended constraints (non-fatal)
func Warn(cfg *Config) []Warning {
	var warnings []Warning

	catalog := cfg.Catalog()

	// 카테고리가 비어 있으면 해당 카테고리 커버리지 달성 불가
	for _, cat := range confluence.Categories {
		if len(catalog.ByCategory(cat)) == 0 {
			warnings = append(warnings, Warning{
				Code:    "EMPTY_CATEGORY",
				Message: fmt.Sprintf("category %s has no indicators: coverage can never reach 1.0", cat),
			})
		}
	}

	// 시너지 대상이 카탈로그에 없으면 무시됨
	for _, ind := range catalog.Indicators() {
		for _, peer := range ind.Synergies {
			if _, ok := catalog.Lookup(peer); !ok {
				warnings = append(warnings, Warning{
					Code:    "UNKNOWN_SYNERGY",
					Message: fmt.Sprintf("%s lists unknown synergy %s", ind.ID, peer),
				})
			}
		}
	}

	return warnings
}

// === Helper Functions ===

func validCategory(s string) bool {
	for _, cat := range confluence.Categories {
		if string(cat) == s {
			return true
		}
	}
	return false
}

func validStrategy(tag string) bool {
	for _, s := range confluence.Strategies() {
		if string(s) == tag {
			return true
		}
	}
	return false
}
