package observability

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Metrics groups all Prometheus instruments used by the bot.
type Metrics struct {
	ActiveSessions  prometheus.Gauge
	SessionEvents   *prometheus.CounterVec
	Commands        *prometheus.CounterVec
	GatewayRestarts prometheus.Counter
	NotifyErrors    *prometheus.CounterVec
	FeedClients     prometheus.Gauge
}

func NewMetrics(namespace string) *Metrics {
	return &Metrics{
		ActiveSessions: promauto.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "active_sessions",
			Help:      "Number of LFG sessions currently held in memory.",
		}),
		SessionEvents: promauto.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "session_events_total",
			Help:      "Session lifecycle and join protocol events by type.",
		}, []string{"event"}),
		Commands: promauto.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "commands_total",
			Help:      "Chat commands by name and outcome.",
		}, []string{"command", "outcome"}),
		GatewayRestarts: promauto.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "gateway_restarts_total",
			Help:      "Reconnect attempts made by the supervisor after a gateway failure.",
		}),
		NotifyErrors: promauto.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "notify_errors_total",
			Help:      "Failed outbound platform calls by operation.",
		}, []string{"op"}),
		FeedClients: promauto.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "feed_clients",
			Help:      "Websocket clients subscribed to the session feed.",
		}),
	}
}

// SessionEvent bumps the counter for event. Safe on a nil receiver so
// packages under test can run without metrics.
func (m *Metrics) SessionEvent(event string) {
	if m == nil {
		return
	}
	m.SessionEvents.WithLabelValues(event).Inc()
}

func (m *Metrics) SetActiveSessions(n int) {
	if m == nil {
		return
	}
	m.ActiveSessions.Set(float64(n))
}

func (m *Metrics) Command(command, outcome string) {
	if m == nil {
		return
	}
	m.Commands.WithLabelValues(command, outcome).Inc()
}

func (m *Metrics) NotifyError(op string) {
	if m == nil {
		return
	}
	m.NotifyErrors.WithLabelValues(op).Inc()
}

func MetricsHandler() http.Handler {
	return promhttp.Handler()
}
