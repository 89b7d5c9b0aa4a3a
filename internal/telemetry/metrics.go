package telemetry

import (
	"github.com/prometheus/client_golang/prometheus"
)

const namespace = "storesync"

// Metrics — все Prometheus коллекторы воркера.
type Metrics struct {
	MessagesTotal           *prometheus.CounterVec
	DecodeFailures          *prometheus.CounterVec
	RetriesExhausted        prometheus.Counter
	Redeliveries            prometheus.Counter
	BackendRequests         *prometheus.CounterVec
	BackendDuration         *prometheus.HistogramVec
	CallbackLookups         *prometheus.CounterVec
	Reconnects              prometheus.Counter
	BrokerConnected         prometheus.Gauge
	MessageDuration         prometheus.Histogram
	WorkflowPanicsRecovered prometheus.Counter
}

// NewMetrics создаёт и регистрирует метрики в reg.
func NewMetrics(reg prometheus.Registerer) *Metrics {
	m := &Metrics{
		MessagesTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "messages_total",
			Help:      "Processed messages by disposition.",
		}, []string{"disposition"}),

		DecodeFailures: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "decode_failures_total",
			Help:      "Messages discarded because the body could not be decoded.",
		}, []string{"reason"}),

		RetriesExhausted: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "retries_exhausted_total",
			Help:      "Messages dropped after the retry budget was spent.",
		}),

		Redeliveries: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "redeliveries_total",
			Help:      "Messages republished with an incremented retry counter.",
		}),

		BackendRequests: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "backend_requests_total",
			Help:      "Backend calls by operation and result class.",
		}, []string{"operation", "class"}),

		BackendDuration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "backend_request_duration_seconds",
			Help:      "Backend call duration in seconds.",
			Buckets:   prometheus.DefBuckets,
		}, []string{"operation"}),

		CallbackLookups: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "callback_lookups_total",
			Help:      "Callback URL lookups by result (static, cached, resolved, unavailable).",
		}, []string{"result"}),

		Reconnects: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "broker_reconnects_total",
			Help:      "Broker connection failures followed by a reconnect attempt.",
		}),

		BrokerConnected: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "broker_connected",
			Help:      "1 while the worker is consuming from the broker.",
		}),

		MessageDuration: prometheus.NewHistogram(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "message_duration_seconds",
			Help:      "Time from delivery to applied disposition.",
			Buckets:   prometheus.DefBuckets,
		}),

		WorkflowPanicsRecovered: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "workflow_panics_recovered_total",
			Help:      "Panics recovered while executing the workflow.",
		}),
	}

	reg.MustRegister(
		m.MessagesTotal,
		m.DecodeFailures,
		m.RetriesExhausted,
		m.Redeliveries,
		m.BackendRequests,
		m.BackendDuration,
		m.CallbackLookups,
		m.Reconnects,
		m.BrokerConnected,
		m.MessageDuration,
		m.WorkflowPanicsRecovered,
	)

	return m
}

// NewLocalMetrics — метрики на собственном реестре, который никуда не экспортируется.
// Используется в тестах, CLI и как default в конструкторах.
func NewLocalMetrics() *Metrics {
	return NewMetrics(prometheus.NewRegistry())
}
