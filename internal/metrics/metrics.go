package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics 引擎指标，nil 接收者上的方法都是空操作，测试里可以直接传 nil
type Metrics struct {
	verdicts      *prometheus.CounterVec
	classifyTime  prometheus.Histogram
	casRetries    *prometheus.CounterVec
	casExhausted  *prometheus.CounterVec
	notifications *prometheus.CounterVec
	anonymized    *prometheus.CounterVec
	outboxRelayed *prometheus.CounterVec
	rankingErrors prometheus.Counter
}

func New(reg prometheus.Registerer) *Metrics {
	f := promauto.With(reg)
	return &Metrics{
		verdicts: f.NewCounterVec(prometheus.CounterOpts{
			Name: "debate_moderation_verdicts_total",
			Help: "Moderation verdicts by outcome",
		}, []string{"outcome"}),
		classifyTime: f.NewHistogram(prometheus.HistogramOpts{
			Name:    "debate_moderation_duration_seconds",
			Help:    "Time spent in the content classifier",
			Buckets: []float64{0.01, 0.05, 0.1, 0.25, 0.5, 1, 2.5, 5},
		}),
		casRetries: f.NewCounterVec(prometheus.CounterOpts{
			Name: "debate_store_conflict_retries_total",
			Help: "Version conflicts retried per operation",
		}, []string{"op"}),
		casExhausted: f.NewCounterVec(prometheus.CounterOpts{
			Name: "debate_store_conflict_exhausted_total",
			Help: "Operations that gave up after repeated version conflicts",
		}, []string{"op"}),
		notifications: f.NewCounterVec(prometheus.CounterOpts{
			Name: "debate_notifications_total",
			Help: "Comment notifications by result",
		}, []string{"result"}),
		anonymized: f.NewCounterVec(prometheus.CounterOpts{
			Name: "debate_anonymized_records_total",
			Help: "Records rewritten by anonymization per class",
		}, []string{"class"}),
		outboxRelayed: f.NewCounterVec(prometheus.CounterOpts{
			Name: "debate_outbox_relay_total",
			Help: "Outbox relay attempts by result",
		}, []string{"result"}),
		rankingErrors: f.NewCounter(prometheus.CounterOpts{
			Name: "debate_ranking_cache_errors_total",
			Help: "Failed popularity ranking cache writes",
		}),
	}
}

func (m *Metrics) Verdict(outcome string) {
	if m == nil {
		return
	}
	m.verdicts.WithLabelValues(outcome).Inc()
}

func (m *Metrics) ClassifyDuration(seconds float64) {
	if m == nil {
		return
	}
	m.classifyTime.Observe(seconds)
}

func (m *Metrics) ConflictRetry(op string) {
	if m == nil {
		return
	}
	m.casRetries.WithLabelValues(op).Inc()
}

func (m *Metrics) ConflictExhausted(op string) {
	if m == nil {
		return
	}
	m.casExhausted.WithLabelValues(op).Inc()
}

func (m *Metrics) Notification(result string) {
	if m == nil {
		return
	}
	m.notifications.WithLabelValues(result).Inc()
}

func (m *Metrics) Anonymized(class string, n int) {
	if m == nil || n == 0 {
		return
	}
	m.anonymized.WithLabelValues(class).Add(float64(n))
}

func (m *Metrics) OutboxRelay(result string) {
	if m == nil {
		return
	}
	m.outboxRelayed.WithLabelValues(result).Inc()
}

func (m *Metrics) RankingError() {
	if m == nil {
		return
	}
	m.rankingErrors.Inc()
}
