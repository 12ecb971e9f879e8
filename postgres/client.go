package postgres

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/lib/pq"
)

// Notification is one inbound NOTIFY, tagged with the connection it
// arrived on so the owning exchange can be resolved by reverse lookup.
type Notification struct {
	Conn    *Conn
	Channel string
	Payload string
}

// Conn is an opaque handle for one subscription-capable connection.
type Conn struct {
	listener *pq.Listener
	done     chan struct{}
}

// Client is the capability surface the relay core needs from the
// database side: connect, listen/unlisten, close, validate, and an
// asynchronous notification feed.
type Client interface {
	Connect(dsn DSN) (*Conn, error)
	Listen(conn *Conn, channel string) error
	Unlisten(conn *Conn, channel string) error
	Close(conn *Conn) error
	Validate(ctx context.Context, dsn DSN) error
	Notifications() <-chan Notification
}

// ListenerClient implements Client on pq.Listener. Each Connect opens a
// dedicated listener connection; a pump goroutine per connection fans
// notifications into the shared feed.
type ListenerClient struct {
	notifications chan Notification
	minReconnect  time.Duration
	maxReconnect  time.Duration
	logger        *slog.Logger
}

func NewClient(minReconnect, maxReconnect time.Duration, buffer int, logger *slog.Logger) *ListenerClient {
	return &ListenerClient{
		notifications: make(chan Notification, buffer),
		minReconnect:  minReconnect,
		maxReconnect:  maxReconnect,
		logger:        logger,
	}
}

func (c *ListenerClient) Connect(dsn DSN) (*Conn, error) {
	l := pq.NewListener(dsn.String(), c.minReconnect, c.maxReconnect, c.listenerEvent)
	if err := l.Ping(); err != nil {
		_ = l.Close()
		return nil, fmt.Errorf("postgres connect %s: %w", dsn.Server(), err)
	}

	conn := &Conn{listener: l, done: make(chan struct{})}
	go c.pump(conn)
	return conn, nil
}

func (c *ListenerClient) Listen(conn *Conn, channel string) error {
	if err := conn.listener.Listen(channel); err != nil && !errors.Is(err, pq.ErrChannelAlreadyOpen) {
		return fmt.Errorf("listen %q: %w", channel, err)
	}
	return nil
}

func (c *ListenerClient) Unlisten(conn *Conn, channel string) error {
	if err := conn.listener.Unlisten(channel); err != nil && !errors.Is(err, pq.ErrChannelNotOpen) {
		return fmt.Errorf("unlisten %q: %w", channel, err)
	}
	return nil
}

func (c *ListenerClient) Close(conn *Conn) error {
	close(conn.done)
	return conn.listener.Close()
}

// Validate opens a throwaway connection, pings it, and closes it. It
// never touches pooled state.
func (c *ListenerClient) Validate(ctx context.Context, dsn DSN) error {
	db, err := sql.Open("postgres", dsn.String())
	if err != nil {
		return fmt.Errorf("postgres open %s: %w", dsn.Server(), err)
	}
	defer db.Close()
	if err := db.PingContext(ctx); err != nil {
		return fmt.Errorf("postgres ping %s: %w", dsn.Server(), err)
	}
	return nil
}

func (c *ListenerClient) Notifications() <-chan Notification {
	return c.notifications
}

func (c *ListenerClient) pump(conn *Conn) {
	for {
		select {
		case n, ok := <-conn.listener.Notify:
			if !ok {
				return
			}
			if n == nil {
				// pq sends nil after a reconnect; nothing to relay.
				continue
			}
			select {
			case c.notifications <- Notification{Conn: conn, Channel: n.Channel, Payload: n.Extra}:
			case <-conn.done:
				return
			}
		case <-conn.done:
			return
		}
	}
}

func (c *ListenerClient) listenerEvent(ev pq.ListenerEventType, err error) {
	if err != nil {
		c.logger.Error("postgres listener event", "event", int(ev), "error", err)
	}
}
