package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

const namespace = "tutorgoat"

// Transition outcomes.
const (
	OutcomeApplied  = "applied"
	OutcomeRejected = "rejected"
	OutcomeConflict = "conflict"
	OutcomeFailed   = "failed"
)

// LifecycleMetrics counts inquiry status transitions.
type LifecycleMetrics struct {
	transitions *prometheus.CounterVec
	latency     *prometheus.HistogramVec
	bulkItems   *prometheus.CounterVec
}

// NewLifecycleMetrics registers transition metrics. A nil registerer yields a
// no-op recorder.
func NewLifecycleMetrics(reg prometheus.Registerer) *LifecycleMetrics {
	if reg == nil {
		return &LifecycleMetrics{}
	}
	transitions := prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "inquiry_transitions_total",
		Help:      "Inquiry status transition attempts by outcome.",
	}, []string{"from", "to", "outcome"})
	latency := prometheus.NewHistogramVec(prometheus.HistogramOpts{
		Namespace: namespace,
		Name:      "inquiry_transition_duration_seconds",
		Help:      "Time spent applying a status transition, lock included.",
		Buckets:   []float64{0.005, 0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1, 2.5},
	}, []string{"outcome"})
	bulkItems := prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "inquiry_bulk_items_total",
		Help:      "Items processed by bulk status updates.",
	}, []string{"result"})
	reg.MustRegister(transitions, latency, bulkItems)
	return &LifecycleMetrics{
		transitions: transitions,
		latency:     latency,
		bulkItems:   bulkItems,
	}
}

// ObserveTransition records one attempt. from may be empty when the inquiry
// could not be loaded.
func (m *LifecycleMetrics) ObserveTransition(from, to, outcome string, took time.Duration) {
	if m == nil || m.transitions == nil {
		return
	}
	m.transitions.WithLabelValues(normalizeLabel(from), normalizeLabel(to), normalizeLabel(outcome)).Inc()
	m.latency.WithLabelValues(normalizeLabel(outcome)).Observe(took.Seconds())
}

// ObserveBulk records the split of a finished bulk update.
func (m *LifecycleMetrics) ObserveBulk(succeeded, failed int) {
	if m == nil || m.bulkItems == nil {
		return
	}
	m.bulkItems.WithLabelValues("succeeded").Add(float64(succeeded))
	m.bulkItems.WithLabelValues("failed").Add(float64(failed))
}

// OutboxMetrics tracks publisher throughput.
type OutboxMetrics struct {
	published    *prometheus.CounterVec
	failed       *prometheus.CounterVec
	deadLettered *prometheus.CounterVec
}

func NewOutboxMetrics(reg prometheus.Registerer) *OutboxMetrics {
	if reg == nil {
		return &OutboxMetrics{}
	}
	published := prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "outbox_published_total",
		Help:      "Outbox events published to Pub/Sub.",
	}, []string{"event_type"})
	failed := prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "outbox_publish_failures_total",
		Help:      "Outbox publish attempts that failed and will be retried.",
	}, []string{"event_type"})
	deadLettered := prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "outbox_dead_lettered_total",
		Help:      "Outbox events moved to the DLQ.",
	}, []string{"event_type", "reason"})
	reg.MustRegister(published, failed, deadLettered)
	return &OutboxMetrics{published: published, failed: failed, deadLettered: deadLettered}
}

func (m *OutboxMetrics) IncPublished(eventType string) {
	if m == nil || m.published == nil {
		return
	}
	m.published.WithLabelValues(normalizeLabel(eventType)).Inc()
}

func (m *OutboxMetrics) IncFailed(eventType string) {
	if m == nil || m.failed == nil {
		return
	}
	m.failed.WithLabelValues(normalizeLabel(eventType)).Inc()
}

func (m *OutboxMetrics) IncDeadLettered(eventType, reason string) {
	if m == nil || m.deadLettered == nil {
		return
	}
	m.deadLettered.WithLabelValues(normalizeLabel(eventType), normalizeLabel(reason)).Inc()
}
