package confluence

import (
	"context"

	"github.com/wonny/tradepilot/internal/metrics"
	"github.com/wonny/tradepilot/pkg/logger"
	"github.com/wonny/tradepilot/pkg/redis"
)

// CachedAnalyzer memoizes analyses in Redis.
// With a disabled Redis client every call is computed directly.
type CachedAnalyzer struct {
	analyzer *Analyzer
	presets  Presets
	cache    *redis.Cache
	logger   *logger.Logger
}

// NewCachedAnalyzer wraps an analyzer with a cache
func NewCachedAnalyzer(analyzer *Analyzer, cache *redis.Cache, log *logger.Logger) *CachedAnalyzer {
	if log == nil {
		log = logger.Nop()
	}
	return &CachedAnalyzer{
		analyzer: analyzer,
		presets:  DefaultPresets(),
		cache:    cache,
		logger:   log,
	}
}

// WithPresets replaces the built-in strategy presets
func (c *CachedAnalyzer) WithPresets(p Presets) *CachedAnalyzer {
	c.presets = p
	return c
}

// Analyzer returns the wrapped analyzer
func (c *CachedAnalyzer) Analyzer() *Analyzer {
	return c.analyzer
}

// Analyze returns the cached analysis for the selection or computes and stores it.
// Cache failures are logged and never surface to the caller.
func (c *CachedAnalyzer) Analyze(ctx context.Context, selected []string) Analysis {
	key := redis.AnalysisKey(Normalize(selected))

	var cached Analysis
	found, err := c.cache.Get(ctx, key, &cached)
	switch {
	case err != nil:
		metrics.CacheRequests.WithLabelValues("error").Inc()
		c.logger.WithError(err).WithField("key", key).Warn("Analysis cache read failed")
	case found:
		metrics.CacheRequests.WithLabelValues("hit").Inc()
		metrics.ObserveAnalysis(string(cached.Status), cached.OverallScore)
		return cached
	default:
		metrics.CacheRequests.WithLabelValues("miss").Inc()
	}

	analysis := c.analyzer.Analyze(selected)
	metrics.ObserveAnalysis(string(analysis.Status), analysis.OverallScore)

	if err := c.cache.Set(ctx, key, analysis, redis.TTLMedium); err != nil {
		c.logger.WithError(err).WithField("key", key).Warn("Analysis cache write failed")
	}
	return analysis
}

// ValidateEquilibrium is the cached counterpart of Analyzer.ValidateEquilibrium
func (c *CachedAnalyzer) ValidateEquilibrium(ctx context.Context, selected []string) Verdict {
	return VerdictFor(c.Analyze(ctx, selected))
}

// Combinations returns the preset lists for a strategy, cached for TTLLong
func (c *CachedAnalyzer) Combinations(ctx context.Context, strategy string) []Combination {
	resolved := ResolveStrategy(strategy)

	var combos []Combination
	err := c.cache.GetOrSet(ctx, redis.CombinationsKey(string(resolved)), &combos, redis.TTLLong, func() (interface{}, error) {
		return c.presets.For(string(resolved)), nil
	})
	if err != nil {
		c.logger.WithError(err).WithField("strategy", resolved).Warn("Combination cache failed")
		return c.presets.For(string(resolved))
	}
	return combos
}

// Warmup pre-computes the analysis of every preset combination.
// It returns the number of analyses stored.
func (c *CachedAnalyzer) Warmup(ctx context.Context) (int, error) {
	n := 0
	for _, strategy := range Strategies() {
		for _, combo := range c.Combinations(ctx, string(strategy)) {
			if err := ctx.Err(); err != nil {
				return n, err
			}
			c.Analyze(ctx, combo.Indicators)
			n++
		}
	}
	c.logger.WithField("analyses", n).Info("Confluence cache warmed up")
	return n, nil
}
