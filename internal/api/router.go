package api

import (
	"encoding/json"
	"net/http"

	"github.com/gorilla/mux"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/wonny/tradepilot/internal/api/handlers"
	"github.com/wonny/tradepilot/pkg/logger"
)

// Handlers groups the endpoint handlers mounted by the router
type Handlers struct {
	Confluence *handlers.ConfluenceHandler
	Flow       *handlers.FlowHandler
	Workspace  *handlers.WorkspaceHandler
	Events     http.Handler // websocket hub
}

// RouterOptions toggles optional surfaces
type RouterOptions struct {
	Metrics    bool
	ControlRPS int // flow control requests per second, 0 disables limiting
}

// NewRouter creates and configures the HTTP router
// ⭐ SSOT: 라우팅 설정은 이 함수에서만
func NewRouter(h Handlers, opts RouterOptions, log *logger.Logger) http.Handler {
	r := mux.NewRouter()

	// Health check
	r.HandleFunc("/health", healthCheckHandler).Methods("GET")

	if opts.Metrics {
		r.Handle("/metrics", promhttp.Handler()).Methods("GET")
	}

	if h.Events != nil {
		r.Handle("/ws", h.Events).Methods("GET")
	}

	api := r.PathPrefix("/api").Subrouter()

	// Confluence endpoints
	api.HandleFunc("/indicators", h.Confluence.ListIndicators).Methods("GET")
	api.HandleFunc("/confluence/analyze", h.Confluence.Analyze).Methods("POST")
	api.HandleFunc("/confluence/validate", h.Confluence.Validate).Methods("POST")
	api.HandleFunc("/confluence/combinations", h.Confluence.Combinations).Methods("GET")

	// Flow read endpoints
	api.HandleFunc("/flow/status", h.Flow.Status).Methods("GET")
	api.HandleFunc("/flow/prompt", h.Flow.GetPrompt).Methods("GET")
	api.HandleFunc("/flow/runs", h.Flow.ListRuns).Methods("GET")
	api.HandleFunc("/flow/runs/{id}", h.Flow.GetRun).Methods("GET")

	// Flow control endpoints (rate limited)
	limit := func(fn http.HandlerFunc) http.Handler { return fn }
	if opts.ControlRPS > 0 {
		mw := rateLimitMiddleware(opts.ControlRPS, log)
		limit = func(fn http.HandlerFunc) http.Handler { return mw(fn) }
	}
	api.Handle("/flow/start", limit(h.Flow.Start)).Methods("POST")
	api.Handle("/flow/stop", limit(h.Flow.Stop)).Methods("POST")
	api.Handle("/flow/continue", limit(h.Flow.Continue)).Methods("POST")
	api.Handle("/flow/demo", limit(h.Flow.Demo)).Methods("POST")
	api.Handle("/flow/advanced", limit(h.Flow.Advanced)).Methods("POST")
	api.Handle("/flow/mode", limit(h.Flow.SetMode)).Methods("PUT")
	api.Handle("/flow/prompt", limit(h.Flow.SetPrompt)).Methods("PUT")
	api.Handle("/flow/prompt/confirm", limit(h.Flow.ConfirmPrompt)).Methods("POST")

	// Workspace endpoints
	api.HandleFunc("/workspace", h.Workspace.Get).Methods("GET")
	api.HandleFunc("/workspace/bars", h.Workspace.PutBars).Methods("PUT")

	// Apply middleware
	r.Use(metricsMiddleware)
	r.Use(loggingMiddleware(log))
	r.Use(recoveryMiddleware(log))

	return r
}

// healthCheckHandler returns server health status
func healthCheckHandler(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(map[string]interface{}{
		"status":  "ok",
		"service": "tradepilot-api",
	})
}
