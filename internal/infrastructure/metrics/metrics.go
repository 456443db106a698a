package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

const namespace = "shopsync"

// Metrics holds the application's Prometheus collectors
type Metrics struct {
	SyncRuns          *prometheus.CounterVec
	SyncRunDuration   prometheus.Histogram
	TenantSyncs       *prometheus.CounterVec
	EntitiesSynced    *prometheus.CounterVec
	WebhooksReceived  *prometheus.CounterVec
	WebhookDuplicates prometheus.Counter
}

// New creates the collectors and registers them with reg
func New(reg prometheus.Registerer) *Metrics {
	m := &Metrics{
		SyncRuns: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "sync_runs_total",
			Help:      "Sync runs by outcome.",
		}, []string{"outcome"}),
		SyncRunDuration: prometheus.NewHistogram(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "sync_run_duration_seconds",
			Help:      "Wall time of a full sync run.",
			Buckets:   []float64{1, 5, 15, 30, 60, 120, 300, 900},
		}),
		TenantSyncs: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "tenant_syncs_total",
			Help:      "Per-tenant sync attempts by outcome.",
		}, []string{"outcome"}),
		EntitiesSynced: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "entities_synced_total",
			Help:      "Records written by sync, by entity type.",
		}, []string{"entity"}),
		WebhooksReceived: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "webhooks_received_total",
			Help:      "Webhook deliveries by topic and result.",
		}, []string{"topic", "result"}),
		WebhookDuplicates: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "webhook_duplicates_total",
			Help:      "Webhook deliveries skipped as already processed.",
		}),
	}

	if reg != nil {
		reg.MustRegister(
			m.SyncRuns,
			m.SyncRunDuration,
			m.TenantSyncs,
			m.EntitiesSynced,
			m.WebhooksReceived,
			m.WebhookDuplicates,
		)
	}
	return m
}

// ObserveSyncRun records one finished run
func (m *Metrics) ObserveSyncRun(failed int, elapsed time.Duration) {
	if m == nil {
		return
	}
	outcome := "success"
	if failed > 0 {
		outcome = "partial"
	}
	m.SyncRuns.WithLabelValues(outcome).Inc()
	m.SyncRunDuration.Observe(elapsed.Seconds())
}

// ObserveTenant records one tenant's outcome
func (m *Metrics) ObserveTenant(err error) {
	if m == nil {
		return
	}
	if err != nil {
		m.TenantSyncs.WithLabelValues("failure").Inc()
		return
	}
	m.TenantSyncs.WithLabelValues("success").Inc()
}

// AddEntities counts records written for an entity type
func (m *Metrics) AddEntities(entity string, n int) {
	if m == nil || n <= 0 {
		return
	}
	m.EntitiesSynced.WithLabelValues(entity).Add(float64(n))
}

// ObserveWebhook records a webhook delivery
func (m *Metrics) ObserveWebhook(topic, result string) {
	if m == nil {
		return
	}
	m.WebhooksReceived.WithLabelValues(topic, result).Inc()
}

// ObserveDuplicate records a skipped redelivery
func (m *Metrics) ObserveDuplicate() {
	if m == nil {
		return
	}
	m.WebhookDuplicates.Inc()
}
