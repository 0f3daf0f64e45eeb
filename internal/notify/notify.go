package notify

import (
	"github.com/wonny/tradepilot/internal/flow"
	"github.com/wonny/tradepilot/internal/metrics"
	"github.com/wonny/tradepilot/pkg/logger"
)

// Multi fans a notification out to every sink
type Multi []flow.Notifier

// Notify delivers n to each sink in order
func (m Multi) Notify(n flow.Notification) {
	for _, sink := range m {
		if sink != nil {
			sink.Notify(n)
		}
	}
}

// LogNotifier writes notifications to the structured log
type LogNotifier struct {
	logger *logger.Logger
}

// NewLogNotifier creates a log sink
func NewLogNotifier(log *logger.Logger) *LogNotifier {
	return &LogNotifier{logger: log.WithComponent("notify")}
}

// Notify logs n at a level matching its severity
func (l *LogNotifier) Notify(n flow.Notification) {
	metrics.Notifications.WithLabelValues("log", string(n.Severity)).Inc()

	entry := l.logger.WithField("severity", n.Severity)
	switch n.Severity {
	case flow.SeverityError:
		entry.Error(n.Message)
	case flow.SeverityWarning:
		entry.Warn(n.Message)
	default:
		entry.Info(n.Message)
	}
}
