package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
)

var (
	ConfluenceAnalyses = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "tradepilot_confluence_analyses_total",
			Help: "Total number of confluence analyses (by equilibrium status).",
		},
		[]string{"status"},
	)

	ConfluenceScore = prometheus.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "tradepilot_confluence_score",
			Help:    "Distribution of overall confluence scores.",
			Buckets: []float64{5, 10, 20, 40, 60, 80, 100},
		},
	)

	CacheRequests = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "tradepilot_analysis_cache_requests_total",
			Help: "Analysis cache lookups (by result: hit, miss, error).",
		},
		[]string{"result"},
	)

	FlowRuns = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "tradepilot_flow_runs_total",
			Help: "Flow runs started (by kind and mode).",
		},
		[]string{"kind", "mode"},
	)

	FlowSteps = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "tradepilot_flow_steps_total",
			Help: "Flow steps executed (by step and result).",
		},
		[]string{"step", "result"},
	)

	FlowStepDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "tradepilot_flow_step_duration_seconds",
			Help:    "Duration of flow step actions in seconds.",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"step"},
	)

	FlowRunning = prometheus.NewGauge(
		prometheus.GaugeOpts{
			Name: "tradepilot_flow_running",
			Help: "1 while a flow run, quick demo or advanced analysis is active.",
		},
	)

	Notifications = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "tradepilot_notifications_total",
			Help: "Notifications delivered (by sink and severity).",
		},
		[]string{"sink", "severity"},
	)

	WebsocketClients = prometheus.NewGauge(
		prometheus.GaugeOpts{
			Name: "tradepilot_websocket_clients",
			Help: "Currently connected websocket clients.",
		},
	)

	SchedulerJobRuns = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "tradepilot_scheduler_job_runs_total",
			Help: "Scheduled job executions (by job and status).",
		},
		[]string{"job", "status"},
	)

	HTTPRequests = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "tradepilot_http_requests_total",
			Help: "Total number of HTTP requests.",
		},
		[]string{"route", "method", "status"},
	)

	HTTPRequestDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "tradepilot_http_request_duration_seconds",
			Help:    "HTTP request duration in seconds.",
			Buckets: []float64{0.005, 0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1, 2.5, 5},
		},
		[]string{"route", "method"},
	)
)

func init() {
	prometheus.MustRegister(
		ConfluenceAnalyses, ConfluenceScore, CacheRequests,
		FlowRuns, FlowSteps, FlowStepDuration, FlowRunning,
		Notifications, WebsocketClients, SchedulerJobRuns,
		HTTPRequests, HTTPRequestDuration,
	)
}

// ObserveAnalysis records one confluence analysis
func ObserveAnalysis(status string, score float64) {
	ConfluenceAnalyses.WithLabelValues(status).Inc()
	ConfluenceScore.Observe(score)
}
