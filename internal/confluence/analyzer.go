package confluence

import (
	"fmt"
	"math"
	"sort"
	"strings"

	"github.com/wonny/tradepilot/pkg/logger"
)

// Status is the categorical equilibrium verdict
type Status string

const (
	StatusOptimal    Status = "optimal"
	StatusGood       Status = "good"
	StatusImbalanced Status = "imbalanced"
	StatusCritical   Status = "critical"
)

// BalanceMetrics are the 0..1 components of the composite score
type BalanceMetrics struct {
	Coverage   float64 `json:"coverage"`
	Diversity  float64 `json:"diversity"`
	Redundancy float64 `json:"redundancy"`
	Synergy    float64 `json:"synergy"`
}

// Analysis is the result of scoring one indicator selection
type Analysis struct {
	Selected        []string             `json:"selected"`
	OverallScore    float64              `json:"overall_score"`
	Status          Status               `json:"status"`
	CategoryScores  map[Category]float64 `json:"category_scores"`
	Recommendations []string             `json:"recommendations"`
	Balance         BalanceMetrics       `json:"balance"`
}

const (
	redundancyLimit   = 2
	redundancyPenalty = 0.1
	synergyPerPartner = 0.1
)

// Analyzer scores indicator selections against a catalog
// ⭐ SSOT: 컨플루언스 점수 계산은 여기서만
type Analyzer struct {
	catalog Catalog
	logger  *logger.Logger
}

// NewAnalyzer creates a new analyzer
func NewAnalyzer(catalog Catalog, log *logger.Logger) *Analyzer {
	if log == nil {
		log = logger.Nop()
	}
	return &Analyzer{
		catalog: catalog,
		logger:  log,
	}
}

// Catalog returns the metadata table the analyzer scores against
func (a *Analyzer) Catalog() Catalog {
	return a.catalog
}

// Analyze scores a selection. It never fails: unknown identifiers only
// dilute the synergy average and an empty selection scores zero.
func (a *Analyzer) Analyze(selected []string) Analysis {
	ids := Normalize(selected)

	analysis := Analysis{
		Selected:        ids,
		Status:          StatusCritical,
		CategoryScores:  make(map[Category]float64, len(Categories)),
		Recommendations: []string{},
	}

	counts := make(map[Category]int, len(Categories))
	inSelection := make(map[string]bool, len(ids))
	for _, id := range ids {
		inSelection[id] = true
		if ind, ok := a.catalog.Lookup(id); ok {
			counts[ind.Category]++
		}
	}

	// Category coverage
	var scoreSum float64
	populated := 0
	for _, cat := range Categories {
		score := math.Min(float64(counts[cat])/float64(targetCount[cat]), 1) * 100
		analysis.CategoryScores[cat] = score
		scoreSum += score
		if counts[cat] > 0 {
			populated++
		}
	}

	// Redundancy
	penalty := 0.0
	for _, cat := range Categories {
		if excess := counts[cat] - redundancyLimit; excess > 0 {
			penalty += float64(excess) * redundancyPenalty
		}
	}

	if len(ids) > 0 {
		analysis.Balance = BalanceMetrics{
			Coverage:   float64(populated) / float64(len(Categories)),
			Diversity:  float64(len(ids)) / float64(a.catalog.Len()),
			Redundancy: math.Max(0, 1-penalty),
			Synergy:    a.synergy(ids, inSelection),
		}

		mean := scoreSum / float64(len(Categories))
		analysis.OverallScore = mean * analysis.Balance.Coverage * analysis.Balance.Synergy * analysis.Balance.Redundancy
		analysis.Status = StatusFor(analysis.OverallScore, analysis.Balance.Coverage)
	}

	analysis.Recommendations = a.recommend(ids, counts, analysis.Balance, inSelection)

	analysis.OverallScore = round4(analysis.OverallScore)
	analysis.Balance = BalanceMetrics{
		Coverage:   round4(analysis.Balance.Coverage),
		Diversity:  round4(analysis.Balance.Diversity),
		Redundancy: round4(analysis.Balance.Redundancy),
		Synergy:    round4(analysis.Balance.Synergy),
	}

	a.logger.WithFields(map[string]interface{}{
		"selected": len(ids),
		"score":    analysis.OverallScore,
		"status":   analysis.Status,
	}).Debug("Analyzed indicator confluence")

	return analysis
}

// synergy averages the co-selected synergy partners, minus co-selected
// conflicts, over every selected identifier including unknown ones.
func (a *Analyzer) synergy(ids []string, inSelection map[string]bool) float64 {
	var sum float64
	for _, id := range ids {
		ind, ok := a.catalog.Lookup(id)
		if !ok {
			continue
		}
		partners := countSelected(ind.Synergies, inSelection)
		conflicts := countSelected(ind.Conflicts, inSelection)
		if net := partners - conflicts; net > 0 {
			sum += float64(net) * synergyPerPartner
		}
	}
	return math.Min(1, sum/float64(len(ids)))
}

func (a *Analyzer) recommend(ids []string, counts map[Category]int, m BalanceMetrics, inSelection map[string]bool) []string {
	recs := []string{}

	for _, cat := range Categories {
		if counts[cat] == 0 {
			examples := a.catalog.TopByWeight(cat, 2)
			if len(examples) > 0 {
				recs = append(recs, fmt.Sprintf("Add a %s indicator such as %s", cat, strings.Join(examples, " or ")))
			} else {
				recs = append(recs, fmt.Sprintf("Add a %s indicator", cat))
			}
		}
	}

	for _, cat := range Categories {
		if counts[cat] > redundancyLimit {
			recs = append(recs, fmt.Sprintf("Reduce redundancy in %s indicators (%d selected, %d is enough)", cat, counts[cat], redundancyLimit))
		}
	}

	if m.Coverage < 0.5 {
		recs = append(recs, "Diversify across more indicator categories")
	}
	if m.Synergy < 0.3 {
		recs = append(recs, "Pick complementary indicators that confirm each other's signals")
	}

	reported := make(map[string]bool)
	for _, id := range ids {
		ind, ok := a.catalog.Lookup(id)
		if !ok {
			continue
		}
		for _, other := range ind.Conflicts {
			if !inSelection[other] || other == id {
				continue
			}
			pair := pairKey(id, other)
			if reported[pair] {
				continue
			}
			reported[pair] = true
			recs = append(recs, fmt.Sprintf("%s conflicts with %s; consider dropping one of them", id, other))
		}
	}

	return recs
}

// StatusFor maps a score and coverage onto the equilibrium buckets
func StatusFor(score, coverage float64) Status {
	switch {
	case score >= 80 && coverage >= 0.75:
		return StatusOptimal
	case score >= 60 && coverage >= 0.5:
		return StatusGood
	case score >= 40:
		return StatusImbalanced
	default:
		return StatusCritical
	}
}

// Normalize trims, deduplicates and sorts a selection.
// Scoring does not depend on order, so the sorted form doubles as a cache key.
func Normalize(selected []string) []string {
	seen := make(map[string]bool, len(selected))
	out := make([]string, 0, len(selected))
	for _, id := range selected {
		id = strings.TrimSpace(id)
		if id == "" || seen[id] {
			continue
		}
		seen[id] = true
		out = append(out, id)
	}
	sort.Strings(out)
	return out
}

func countSelected(ids []string, inSelection map[string]bool) int {
	n := 0
	seen := make(map[string]bool, len(ids))
	for _, id := range ids {
		if inSelection[id] && !seen[id] {
			seen[id] = true
			n++
		}
	}
	return n
}

func pairKey(a, b string) string {
	if a > b {
		a, b = b, a
	}
	return a + "|" + b
}

func round4(v float64) float64 {
	return math.Round(v*10000) / 10000
}
