package rabbitmq

import (
	"fmt"
	"log/slog"

	amqp "github.com/rabbitmq/amqp091-go"
)

// Pool caches one connection+channel pair per vhost, shared by every
// exchange in that vhost. Teardown is membership-driven: a connection is
// closed only when no exchange in the vhost retains a binding. Like the
// postgres pool, it is confined to the relay's serialized task loop.
type Pool struct {
	client Client
	conns  map[string]*Connection
	metric Metric
	logger *slog.Logger
}

func NewPool(client Client, metric Metric, logger *slog.Logger) *Pool {
	return &Pool{
		client: client,
		conns:  make(map[string]*Connection),
		metric: metric,
		logger: logger,
	}
}

// Ensure returns the cached connection for vhost, opening one on miss.
func (p *Pool) Ensure(vhost string) (*Connection, error) {
	if conn, ok := p.conns[vhost]; ok {
		return conn, nil
	}

	conn, err := p.client.Open(vhost)
	if err != nil {
		return nil, err
	}
	p.conns[vhost] = conn
	p.metric.SetOpenConnections(len(p.conns))
	return conn, nil
}

// MaybeClose closes and evicts the vhost connection when inUse reports
// no live binding membership for the vhost. The predicate is evaluated
// at call time so the decision reflects current registry state, not a
// cached scope list.
func (p *Pool) MaybeClose(vhost string, inUse func(vhost string) bool) bool {
	conn, ok := p.conns[vhost]
	if !ok {
		return false
	}
	if inUse(vhost) {
		return false
	}

	delete(p.conns, vhost)
	p.metric.SetOpenConnections(len(p.conns))
	if err := p.client.Close(conn); err != nil {
		p.logger.Warn("rabbitmq connection close", "vhost", vhost, "error", err)
	}
	return true
}

// Publish sends msg to exchange on the vhost's cached connection.
func (p *Pool) Publish(vhost, exchange, routingKey string, msg amqp.Publishing) error {
	conn, ok := p.conns[vhost]
	if !ok {
		return fmt.Errorf("publish %s/%s: no connection for vhost %q", exchange, routingKey, vhost)
	}
	return p.client.Publish(conn, exchange, routingKey, msg)
}

// Open reports whether a connection is currently cached for vhost.
func (p *Pool) Open(vhost string) bool {
	_, ok := p.conns[vhost]
	return ok
}

// CloseAll tears down every cached connection.
func (p *Pool) CloseAll() {
	for vhost, conn := range p.conns {
		delete(p.conns, vhost)
		if err := p.client.Close(conn); err != nil {
			p.logger.Warn("rabbitmq connection close", "vhost", vhost, "error", err)
		}
	}
	p.metric.SetOpenConnections(0)
}
