package handlers

import (
	"errors"
	"net/http"

	"github.com/wonny/tradepilot/internal/indicators"
	"github.com/wonny/tradepilot/internal/workspace"
	"github.com/wonny/tradepilot/pkg/logger"
)

// WorkspaceHandler exposes the analysis workspace the flow drives
type WorkspaceHandler struct {
	workspace *workspace.Workspace
	logger    *logger.Logger
}

// NewWorkspaceHandler creates a new workspace handler
func NewWorkspaceHandler(ws *workspace.Workspace, log *logger.Logger) *WorkspaceHandler {
	return &WorkspaceHandler{
		workspace: ws,
		logger:    log,
	}
}

// Get returns the current workspace state
// GET /api/workspace
func (h *WorkspaceHandler) Get(w http.ResponseWriter, r *http.Request) {
	respondJSON(w, http.StatusOK, h.workspace.Snapshot())
}

// PutBars replaces the price history used for indicator readings
// PUT /api/workspace/bars (text/csv body)
func (h *WorkspaceHandler) PutBars(w http.ResponseWriter, r *http.Request) {
	r.Body = http.MaxBytesReader(w, r.Body, 8*maxBodyBytes)

	bars, err := indicators.LoadCSV(r.Body)
	if err != nil {
		status := http.StatusBadRequest
		if errors.Is(err, indicators.ErrNoBars) {
			status = http.StatusUnprocessableEntity
		}
		h.logger.WithError(err).Warn("Rejected price upload")
		respondError(w, status, err.Error())
		return
	}

	h.workspace.SetBars(bars)
	respondJSON(w, http.StatusOK, map[string]interface{}{
		"bars":  len(bars),
		"from":  bars[0].Time,
		"until": bars[len(bars)-1].Time,
	})
}
