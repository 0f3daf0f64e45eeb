package handlers

import (
	"context"
	"errors"
	"net/http"
	"strconv"

	"github.com/gorilla/mux"

	"github.com/wonny/tradepilot/internal/flow"
	"github.com/wonny/tradepilot/internal/history"
	"github.com/wonny/tradepilot/pkg/logger"
)

// RunHistory is the read side of the run journal
type RunHistory interface {
	ListRuns(ctx context.Context, limit int) ([]history.RunRecord, error)
	GetRun(ctx context.Context, id string) (*history.RunRecord, error)
}

// FlowHandler drives the guided flow sequencer
// ⭐ SSOT: flow 제어 API는 이 구조체에서만
type FlowHandler struct {
	sequencer *flow.Sequencer
	history   RunHistory
	baseCtx   context.Context
	logger    *logger.Logger
}

// NewFlowHandler creates a new flow handler.
// Runs are bound to baseCtx, not to the request that started them.
// history may be nil when no database is configured.
func NewFlowHandler(baseCtx context.Context, seq *flow.Sequencer, runs RunHistory, log *logger.Logger) *FlowHandler {
	return &FlowHandler{
		sequencer: seq,
		history:   runs,
		baseCtx:   baseCtx,
		logger:    log,
	}
}

// ModeRequest switches auto/manual pacing
type ModeRequest struct {
	Mode string `json:"mode" validate:"required,oneof=auto manual"`
}

// PromptRequest carries free-text flow guidance
type PromptRequest struct {
	Prompt string `json:"prompt" validate:"max=2000"`
}

// Status returns the sequencer snapshot
// GET /api/flow/status
func (h *FlowHandler) Status(w http.ResponseWriter, r *http.Request) {
	respondJSON(w, http.StatusOK, h.sequencer.Status())
}

// Start begins the full scripted flow
// POST /api/flow/start
func (h *FlowHandler) Start(w http.ResponseWriter, r *http.Request) {
	h.launch(w, h.sequencer.Start)
}

// Demo runs the quick demo
// POST /api/flow/demo
func (h *FlowHandler) Demo(w http.ResponseWriter, r *http.Request) {
	h.launch(w, h.sequencer.RunQuickDemo)
}

// Advanced runs the advanced analysis preset
// POST /api/flow/advanced
func (h *FlowHandler) Advanced(w http.ResponseWriter, r *http.Request) {
	h.launch(w, h.sequencer.RunAdvancedAnalysis)
}

func (h *FlowHandler) launch(w http.ResponseWriter, start func(context.Context) (<-chan struct{}, error)) {
	_, err := start(h.baseCtx)
	switch {
	case errors.Is(err, flow.ErrRunInProgress):
		respondError(w, http.StatusConflict, "Flow is already running")
		return
	case errors.Is(err, flow.ErrNoSteps):
		respondError(w, http.StatusUnprocessableEntity, "No flow steps configured")
		return
	case err != nil:
		h.logger.WithError(err).Error("Failed to start flow")
		respondError(w, http.StatusInternalServerError, "Failed to start flow")
		return
	}

	respondJSON(w, http.StatusAccepted, h.sequencer.Status())
}

// Stop aborts the active run
// POST /api/flow/stop
func (h *FlowHandler) Stop(w http.ResponseWriter, r *http.Request) {
	h.sequencer.Stop()
	respondJSON(w, http.StatusOK, h.sequencer.Status())
}

// Continue releases a manual-mode pause
// POST /api/flow/continue
func (h *FlowHandler) Continue(w http.ResponseWriter, r *http.Request) {
	resumed := h.sequencer.Continue()
	respondJSON(w, http.StatusOK, map[string]interface{}{
		"resumed": resumed,
		"status":  h.sequencer.Status(),
	})
}

// SetMode switches pacing
// PUT /api/flow/mode
func (h *FlowHandler) SetMode(w http.ResponseWriter, r *http.Request) {
	var req ModeRequest
	if err := decodeRequest(w, r, &req); err != nil {
		respondError(w, http.StatusBadRequest, err.Error())
		return
	}

	mode, err := flow.ParseMode(req.Mode)
	if err != nil {
		respondError(w, http.StatusBadRequest, err.Error())
		return
	}

	if err := h.sequencer.SetMode(mode); err != nil {
		if errors.Is(err, flow.ErrRunInProgress) {
			respondError(w, http.StatusConflict, "Cannot change mode while a flow is running")
			return
		}
		respondError(w, http.StatusBadRequest, err.Error())
		return
	}

	respondJSON(w, http.StatusOK, h.sequencer.Status())
}

// GetPrompt returns the current flow prompt
// GET /api/flow/prompt
func (h *FlowHandler) GetPrompt(w http.ResponseWriter, r *http.Request) {
	respondJSON(w, http.StatusOK, h.sequencer.FlowPrompt())
}

// SetPrompt stores a prompt without confirming it. Empty restores the default.
// PUT /api/flow/prompt
func (h *FlowHandler) SetPrompt(w http.ResponseWriter, r *http.Request) {
	var req PromptRequest
	if err := decodeRequest(w, r, &req); err != nil {
		respondError(w, http.StatusBadRequest, err.Error())
		return
	}

	h.sequencer.SetFlowPrompt(req.Prompt)
	respondJSON(w, http.StatusOK, h.sequencer.FlowPrompt())
}

// ConfirmPrompt stores a prompt and returns the plan derived from it
// POST /api/flow/prompt/confirm
func (h *FlowHandler) ConfirmPrompt(w http.ResponseWriter, r *http.Request) {
	var req PromptRequest
	if err := decodeRequest(w, r, &req); err != nil {
		respondError(w, http.StatusBadRequest, err.Error())
		return
	}

	plan := h.sequencer.ConfirmFlowPrompt(req.Prompt)
	respondJSON(w, http.StatusOK, map[string]interface{}{
		"flow_prompt": h.sequencer.FlowPrompt(),
		"plan":        plan,
	})
}

// ListRuns returns recent journaled runs
// GET /api/flow/runs?limit=20
func (h *FlowHandler) ListRuns(w http.ResponseWriter, r *http.Request) {
	if h.history == nil {
		respondError(w, http.StatusServiceUnavailable, "Run history is not configured")
		return
	}

	limit := 20
	if v := r.URL.Query().Get("limit"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil || n <= 0 {
			respondError(w, http.StatusBadRequest, "Invalid 'limit' (expected a positive integer)")
			return
		}
		limit = n
	}

	runs, err := h.history.ListRuns(r.Context(), limit)
	if err != nil {
		h.logger.WithError(err).Error("Failed to list flow runs")
		respondError(w, http.StatusInternalServerError, "Failed to retrieve flow runs")
		return
	}

	respondJSON(w, http.StatusOK, map[string]interface{}{
		"runs":  runs,
		"count": len(runs),
	})
}

// GetRun returns one journaled run with its steps
// GET /api/flow/runs/{id}
func (h *FlowHandler) GetRun(w http.ResponseWriter, r *http.Request) {
	if h.history == nil {
		respondError(w, http.StatusServiceUnavailable, "Run history is not configured")
		return
	}

	id := mux.Vars(r)["id"]
	run, err := h.history.GetRun(r.Context(), id)
	if errors.Is(err, history.ErrRunNotFound) {
		respondError(w, http.StatusNotFound, "Flow run not found")
		return
	}
	if err != nil {
		h.logger.WithError(err).WithField("run_id", id).Error("Failed to get flow run")
		respondError(w, http.StatusInternalServerError, "Failed to retrieve flow run")
		return
	}

	respondJSON(w, http.StatusOK, run)
}
