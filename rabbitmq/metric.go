package rabbitmq

import (
	"os"

	"github.com/prometheus/client_golang/prometheus"
)

const namespace = "listen_pg_exchange"

type Metric interface {
	AddPublished(vhost, exchange string)
	AddDropped(vhost, exchange, reason string)
	SetOpenConnections(n int)
	PrometheusCollectors() []prometheus.Collector
}

var hostname, _ = os.Hostname()

type metric struct {
	published       *prometheus.CounterVec
	dropped         *prometheus.CounterVec
	openConnections prometheus.Gauge
}

func NewMetric() Metric {
	return &metric{
		published: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "publish",
			Name:      "total",
			Help:      "total number of notifications published to rabbitmq",
		}, []string{"vhost", "exchange", "host"}),
		dropped: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "dropped",
			Name:      "total",
			Help:      "total number of notifications dropped before delivery",
		}, []string{"vhost", "exchange", "reason", "host"}),
		openConnections: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Subsystem: "broker_connections",
			Name:      "open",
			Help:      "number of open rabbitmq connections",
			ConstLabels: prometheus.Labels{
				"host": hostname,
			},
		}),
	}
}

func (m *metric) PrometheusCollectors() []prometheus.Collector {
	return []prometheus.Collector{
		m.published,
		m.dropped,
		m.openConnections,
	}
}

func (m *metric) AddPublished(vhost, exchange string) {
	m.published.WithLabelValues(vhost, exchange, hostname).Inc()
}

func (m *metric) AddDropped(vhost, exchange, reason string) {
	m.dropped.WithLabelValues(vhost, exchange, reason, hostname).Inc()
}

func (m *metric) SetOpenConnections(n int) {
	m.openConnections.Set(float64(n))
}
