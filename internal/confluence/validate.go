package confluence

import "fmt"

// Verdict is the balanced/unbalanced summary of an analysis
type Verdict struct {
	Balanced    bool     `json:"balanced"`
	Status      Status   `json:"status"`
	Score       float64  `json:"score"`
	Issues      []string `json:"issues"`
	Suggestions []string `json:"suggestions"`
}

// ValidateEquilibrium re-runs Analyze and reduces it to a verdict
func (a *Analyzer) ValidateEquilibrium(selected []string) Verdict {
	return VerdictFor(a.Analyze(selected))
}

// VerdictFor derives the verdict from an existing analysis
func VerdictFor(analysis Analysis) Verdict {
	v := Verdict{
		Balanced:    analysis.Status == StatusOptimal || analysis.Status == StatusGood,
		Status:      analysis.Status,
		Score:       analysis.OverallScore,
		Issues:      []string{},
		Suggestions: analysis.Recommendations,
	}

	m := analysis.Balance
	if m.Coverage < 0.5 {
		v.Issues = append(v.Issues, fmt.Sprintf("Low category coverage (%.0f%% of categories populated)", m.Coverage*100))
	}
	if m.Redundancy < 0.8 {
		v.Issues = append(v.Issues, fmt.Sprintf("High redundancy (metric %.2f)", m.Redundancy))
	}
	if m.Synergy < 0.3 {
		v.Issues = append(v.Issues, fmt.Sprintf("Weak synergy between selected indicators (metric %.2f)", m.Synergy))
	}
	if analysis.OverallScore < 40 {
		v.Issues = append(v.Issues, fmt.Sprintf("Low confluence score (%.1f)", analysis.OverallScore))
	}

	return v
}
