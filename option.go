package listenpg

import (
	"log/slog"

	"github.com/anshmain/listen-pg-exchange/postgres"
	"github.com/anshmain/listen-pg-exchange/rabbitmq"
)

type Option func(*Exchange)
type Options []Option

func (ops Options) Apply(e *Exchange) {
	for _, op := range ops {
		op(e)
	}
}

func WithLogger(l *slog.Logger) Option {
	return func(e *Exchange) {
		e.logger = l
	}
}

// WithDBClient replaces the lib/pq-backed database client, mainly for
// tests.
func WithDBClient(c postgres.Client) Option {
	return func(e *Exchange) {
		e.db = c
	}
}

// WithBrokerClient replaces the amqp091-backed broker client, mainly for
// tests.
func WithBrokerClient(c rabbitmq.Client) Option {
	return func(e *Exchange) {
		e.broker = c
	}
}

func WithMetric(m rabbitmq.Metric) Option {
	return func(e *Exchange) {
		e.metric = m
	}
}
