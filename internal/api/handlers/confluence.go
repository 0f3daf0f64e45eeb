package handlers

import (
	"net/http"

	"github.com/wonny/tradepilot/internal/confluence"
	"github.com/wonny/tradepilot/pkg/logger"
)

// ConfluenceHandler serves indicator scoring endpoints
// ⭐ SSOT: 컨플루언스 API 핸들러는 이 구조체에서만
type ConfluenceHandler struct {
	analyzer *confluence.CachedAnalyzer
	logger   *logger.Logger
}

// NewConfluenceHandler creates a new confluence handler
func NewConfluenceHandler(analyzer *confluence.CachedAnalyzer, log *logger.Logger) *ConfluenceHandler {
	return &ConfluenceHandler{
		analyzer: analyzer,
		logger:   log,
	}
}

// SelectionRequest carries an indicator selection
type SelectionRequest struct {
	Indicators []string `json:"indicators" validate:"max=50,dive,max=64"`
}

// ListIndicators returns the indicator catalog
// GET /api/indicators
func (h *ConfluenceHandler) ListIndicators(w http.ResponseWriter, r *http.Request) {
	catalog := h.analyzer.Analyzer().Catalog()
	respondJSON(w, http.StatusOK, map[string]interface{}{
		"indicators": catalog.Indicators(),
		"count":      catalog.Len(),
	})
}

// Analyze scores a selection
// POST /api/confluence/analyze
func (h *ConfluenceHandler) Analyze(w http.ResponseWriter, r *http.Request) {
	var req SelectionRequest
	if err := decodeRequest(w, r, &req); err != nil {
		respondError(w, http.StatusBadRequest, err.Error())
		return
	}

	respondJSON(w, http.StatusOK, h.analyzer.Analyze(r.Context(), req.Indicators))
}

// Validate reports whether a selection is balanced
// POST /api/confluence/validate
func (h *ConfluenceHandler) Validate(w http.ResponseWriter, r *http.Request) {
	var req SelectionRequest
	if err := decodeRequest(w, r, &req); err != nil {
		respondError(w, http.StatusBadRequest, err.Error())
		return
	}

	respondJSON(w, http.StatusOK, h.analyzer.ValidateEquilibrium(r.Context(), req.Indicators))
}

// Combinations returns the presets for a strategy
// GET /api/confluence/combinations?strategy=day-trading
func (h *ConfluenceHandler) Combinations(w http.ResponseWriter, r *http.Request) {
	tag := r.URL.Query().Get("strategy")
	strategy := confluence.ResolveStrategy(tag)

	respondJSON(w, http.StatusOK, map[string]interface{}{
		"strategy":     strategy,
		"combinations": h.analyzer.Combinations(r.Context(), string(strategy)),
	})
}
