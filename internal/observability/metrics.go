package observability

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics is the operational surface for the two job queues and the external
// advice call. Queue depth gauges are refreshed by the maintenance sweeper.
type Metrics struct {
	QueueDepth     *prometheus.GaugeVec
	JobsProcessed  *prometheus.CounterVec
	AdviceRequests *prometheus.CounterVec
}

func NewMetrics(reg prometheus.Registerer) *Metrics {
	factory := promauto.With(reg)
	return &Metrics{
		QueueDepth: factory.NewGaugeVec(prometheus.GaugeOpts{
			Name: "veralingo_queue_depth",
			Help: "Jobs per queue by state.",
		}, []string{"queue", "state"}),
		JobsProcessed: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "veralingo_jobs_processed_total",
			Help: "Completed job executions per queue by outcome.",
		}, []string{"queue", "outcome"}),
		AdviceRequests: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "veralingo_advice_requests_total",
			Help: "External advice calls by outcome (ok, fallback).",
		}, []string{"outcome"}),
	}
}

func (m *Metrics) SetQueueDepth(queue, state string, depth int64) {
	if m == nil {
		return
	}
	m.QueueDepth.WithLabelValues(queue, state).Set(float64(depth))
}

func (m *Metrics) JobProcessed(queue, outcome string) {
	if m == nil {
		return
	}
	m.JobsProcessed.WithLabelValues(queue, outcome).Inc()
}

func (m *Metrics) AdviceRequest(outcome string) {
	if m == nil {
		return
	}
	m.AdviceRequests.WithLabelValues(outcome).Inc()
}
