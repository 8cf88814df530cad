package pipeline

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics tracks pipeline-level counters, registered on an injected
// registerer so tests can use an isolated registry.
type Metrics struct {
	executions *prometheus.CounterVec
	duration   *prometheus.HistogramVec
	approvals  *prometheus.CounterVec
}

// NewMetrics creates and registers the pipeline metrics.
func NewMetrics(reg prometheus.Registerer) *Metrics {
	factory := promauto.With(reg)
	return &Metrics{
		executions: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "toolgate_tool_executions_total",
			Help: "Tool executions by tool name and outcome.",
		}, []string{"tool", "outcome"}),
		duration: factory.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "toolgate_tool_duration_seconds",
			Help:    "Tool call duration from entry to terminal state.",
			Buckets: prometheus.DefBuckets,
		}, []string{"tool"}),
		approvals: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "toolgate_collaboration_responses_total",
			Help: "Collaboration responses by classification.",
		}, []string{"kind"}),
	}
}

func (m *Metrics) observe(rec Record) {
	if m == nil {
		return
	}
	outcome := "success"
	if !rec.Success {
		outcome = string(rec.Failure)
	}
	m.executions.WithLabelValues(rec.ToolName, outcome).Inc()
	m.duration.WithLabelValues(rec.ToolName).Observe(rec.Duration.Seconds())
}

// ObserveApproval counts a collaboration response classification.
func (m *Metrics) ObserveApproval(kind string) {
	if m == nil {
		return
	}
	m.approvals.WithLabelValues(kind).Inc()
}
