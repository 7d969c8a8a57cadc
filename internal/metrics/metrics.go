package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

const namespace = "ipn_relay"

// Metrics счётчики сервиса. Nil-получатель допустим и ничего не считает.
type Metrics struct {
	ipnReceived *prometheus.CounterVec
	forwards    *prometheus.CounterVec
	cashOuts    *prometheus.CounterVec
	alerts      *prometheus.CounterVec
	dropped     *prometheus.CounterVec
}

func NewMetrics(reg prometheus.Registerer) *Metrics {
	factory := promauto.With(reg)

	return &Metrics{
		ipnReceived: factory.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "ipn_received_total",
				Help:      "Inbound payment notifications partitioned by ingestion outcome.",
			},
			[]string{"outcome"},
		),
		forwards: factory.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "forwards_total",
				Help:      "Forward deliveries partitioned by result.",
			},
			[]string{"result"},
		),
		cashOuts: factory.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "cashouts_total",
				Help:      "Cash-out attempts partitioned by result.",
			},
			[]string{"result"},
		),
		alerts: factory.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "alerts_total",
				Help:      "Chat alerts partitioned by result.",
			},
			[]string{"result"},
		),
		dropped: factory.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "dispatch_dropped_total",
				Help:      "Background tasks dropped because the dispatch queue was full.",
			},
			[]string{"kind"},
		),
	}
}

func (m *Metrics) IPNReceived(outcome string) {
	if m == nil {
		return
	}
	m.ipnReceived.WithLabelValues(outcome).Inc()
}

func (m *Metrics) Forward(result string) {
	if m == nil {
		return
	}
	m.forwards.WithLabelValues(result).Inc()
}

func (m *Metrics) CashOut(result string) {
	if m == nil {
		return
	}
	m.cashOuts.WithLabelValues(result).Inc()
}

func (m *Metrics) Alert(result string) {
	if m == nil {
		return
	}
	m.alerts.WithLabelValues(result).Inc()
}

func (m *Metrics) Dropped(kind string) {
	if m == nil {
		return
	}
	m.dropped.WithLabelValues(kind).Inc()
}

const (
	ResultSuccess = "success"
	ResultFailure = "failure"
)
