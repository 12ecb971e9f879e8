package rabbitmq

import (
	"context"
	"crypto/tls"
	"crypto/x509"
	"fmt"

	"github.com/anshmain/listen-pg-exchange/config"
	amqp "github.com/rabbitmq/amqp091-go"
)

// Connection is one connection+channel pair serving a single vhost.
type Connection struct {
	conn *amqp.Connection
	ch   *amqp.Channel
}

// Client is the capability surface the relay core needs from the broker
// side: open a vhost connection, publish, close.
type Client interface {
	Open(vhost string) (*Connection, error)
	Publish(conn *Connection, exchange, routingKey string, msg amqp.Publishing) error
	Close(conn *Connection) error
}

type amqpClient struct {
	cfg *config.RabbitMQ
}

func NewClient(cfg *config.RabbitMQ) Client {
	return &amqpClient{cfg: cfg}
}

func (c *amqpClient) Open(vhost string) (*Connection, error) {
	uri, err := amqp.ParseURI(c.cfg.URL)
	if err != nil {
		return nil, fmt.Errorf("rabbitmq url: %w", err)
	}
	uri.Vhost = vhost

	cfg := amqp.Config{
		Heartbeat: c.cfg.Heartbeat,
		Dial:      amqp.DefaultDial(c.cfg.ConnectionTimeout),
		Properties: amqp.Table{
			"connection_name": c.cfg.ConnectionName,
		},
	}

	if c.cfg.TLS.Enabled {
		tlsCfg := &tls.Config{
			MinVersion:         tls.VersionTLS12,
			InsecureSkipVerify: c.cfg.TLS.Insecure, //nolint:gosec
		}
		if len(c.cfg.TLS.CACert) > 0 {
			pool := x509.NewCertPool()
			pool.AppendCertsFromPEM(c.cfg.TLS.CACert)
			tlsCfg.RootCAs = pool
		}
		if len(c.cfg.TLS.Cert) > 0 && len(c.cfg.TLS.Key) > 0 {
			cert, err := tls.X509KeyPair(c.cfg.TLS.Cert, c.cfg.TLS.Key)
			if err != nil {
				return nil, err
			}
			tlsCfg.Certificates = []tls.Certificate{cert}
		}
		cfg.TLSClientConfig = tlsCfg
	}

	conn, err := amqp.DialConfig(uri.String(), cfg)
	if err != nil {
		return nil, fmt.Errorf("rabbitmq dial vhost %q: %w", vhost, err)
	}

	ch, err := conn.Channel()
	if err != nil {
		_ = conn.Close()
		return nil, fmt.Errorf("rabbitmq channel vhost %q: %w", vhost, err)
	}

	return &Connection{conn: conn, ch: ch}, nil
}

func (c *amqpClient) Publish(conn *Connection, exchange, routingKey string, msg amqp.Publishing) error {
	err := conn.ch.PublishWithContext(context.Background(), exchange, routingKey, false, false, msg)
	if err != nil {
		return fmt.Errorf("rabbitmq publish %s/%s: %w", exchange, routingKey, err)
	}
	return nil
}

func (c *amqpClient) Close(conn *Connection) error {
	var firstErr error
	if conn.ch != nil {
		if err := conn.ch.Close(); err != nil {
			firstErr = err
		}
	}
	if conn.conn != nil {
		if err := conn.conn.Close(); err != nil && firstErr == nil {
			firstErr = err
		}
	}
	return firstErr
}
