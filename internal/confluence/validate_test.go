package confluence

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestValidateEquilibrium_Unbalanced(t *testing.T) {
	v := newTestAnalyzer().ValidateEquilibrium([]string{"SMA", "EMA", "MACD", "ADX"})

	assert.False(t, v.Balanced)
	assert.Equal(t, StatusCritical, v.Status)
	assert.Len(t, v.Issues, 3)
	assert.Contains(t, v.Issues[0], "coverage")
	assert.Contains(t, v.Issues[1], "synergy")
	assert.Contains(t, v.Issues[2], "score")
	assert.Contains(t, v.Suggestions, "Reduce redundancy in trend indicators (4 selected, 2 is enough)")
}

func TestValidateEquilibrium_Balanced(t *testing.T) {
	catalog, ids := fullySynergisticCatalog()
	v := NewAnalyzer(catalog, nil).ValidateEquilibrium(ids)

	assert.True(t, v.Balanced)
	assert.Equal(t, StatusGood, v.Status)
	assert.Equal(t, []string{"High redundancy (metric 0.70)"}, v.Issues)
}

func TestValidateEquilibrium_Empty(t *testing.T) {
	v := newTestAnalyzer().ValidateEquilibrium(nil)

	assert.False(t, v.Balanced)
	assert.Equal(t, 0.0, v.Score)
	assert.NotEmpty(t, v.Issues)
}
