// Package metrics описывает Prometheus-метрики сервиса.
package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

// Metrics набор коллекторов сервиса.
type Metrics struct {
	Uploads            *prometheus.CounterVec
	QuotaAdmissions    *prometheus.CounterVec
	PremiumActivations *prometheus.CounterVec
	UpstreamDuration   *prometheus.HistogramVec
}

// New создаёт коллекторы и регистрирует их в reg.
func New(reg prometheus.Registerer) *Metrics {
	m := &Metrics{
		Uploads: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "audioia",
			Name:      "uploads_total",
			Help:      "Upload attempts by outcome.",
		}, []string{"result"}),
		QuotaAdmissions: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "audioia",
			Name:      "quota_admissions_total",
			Help:      "Quota gate decisions.",
		}, []string{"decision", "tier"}),
		PremiumActivations: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "audioia",
			Name:      "premium_activations_total",
			Help:      "Accounts upgraded to premium by trigger.",
		}, []string{"trigger"}),
		UpstreamDuration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: "audioia",
			Name:      "upstream_duration_seconds",
			Help:      "Latency of external pipeline stages.",
			Buckets:   []float64{0.25, 0.5, 1, 2.5, 5, 10, 30, 60, 120},
		}, []string{"stage"}),
	}
	reg.MustRegister(m.Uploads, m.QuotaAdmissions, m.PremiumActivations, m.UpstreamDuration)
	return m
}

// NewNoop возвращает метрики, не привязанные ни к какому реестру. Удобно в тестах.
func NewNoop() *Metrics {
	return New(prometheus.NewRegistry())
}

// ObserveUpload учитывает исход загрузки.
func (m *Metrics) ObserveUpload(result string) {
	m.Uploads.WithLabelValues(result).Inc()
}

// ObserveAdmission учитывает решение квоты.
func (m *Metrics) ObserveAdmission(allowed bool, tier string) {
	decision := "denied"
	if allowed {
		decision = "allowed"
	}
	m.QuotaAdmissions.WithLabelValues(decision, tier).Inc()
}

// ObservePremium учитывает переход аккаунта на premium.
func (m *Metrics) ObservePremium(trigger string) {
	m.PremiumActivations.WithLabelValues(trigger).Inc()
}

// ObserveStage записывает длительность этапа, начавшегося в start.
func (m *Metrics) ObserveStage(stage string, start time.Time) {
	m.UpstreamDuration.WithLabelValues(stage).Observe(time.Since(start).Seconds())
}
