package postgres

import (
	"errors"
	"fmt"
	"log/slog"
)

// ErrNotConnected is returned when an operation references an exchange
// with no cached connection.
var ErrNotConnected = errors.New("no postgres connection for exchange")

// Entry is one pooled connection plus the server identity cached at
// connect time. Live metadata queries after a connection loss are
// unreliable, so the strings are captured once.
type Entry struct {
	Conn   *Conn
	Server string
	DBName string
}

// Pool caches one subscription connection per exchange identity. Each
// connection serves exactly one exchange, so entries carry no reference
// count. The pool is confined to the relay's serialized task loop and
// needs no locking of its own.
type Pool struct {
	client Client
	conns  map[string]*Entry
	logger *slog.Logger
}

func NewPool(client Client, logger *slog.Logger) *Pool {
	return &Pool{
		client: client,
		conns:  make(map[string]*Entry),
		logger: logger,
	}
}

// Ensure returns the cached connection for id, opening one from dsn on
// miss. Repeated calls for a connected exchange return the same entry
// without touching the client.
func (p *Pool) Ensure(id string, dsn DSN) (*Entry, error) {
	if entry, ok := p.conns[id]; ok {
		return entry, nil
	}

	conn, err := p.client.Connect(dsn)
	if err != nil {
		return nil, err
	}
	entry := &Entry{Conn: conn, Server: dsn.Server(), DBName: dsn.DBName}
	p.conns[id] = entry
	return entry, nil
}

// Close evicts and closes the cached connection for id. A missing entry
// is logged and ignored.
func (p *Pool) Close(id string) {
	entry, ok := p.conns[id]
	if !ok {
		p.logger.Warn("close requested for unknown exchange connection", "exchange", id)
		return
	}
	delete(p.conns, id)
	if err := p.client.Close(entry.Conn); err != nil {
		p.logger.Warn("postgres connection close", "exchange", id, "error", err)
	}
}

func (p *Pool) Listen(id, channel string) error {
	entry, ok := p.conns[id]
	if !ok {
		return fmt.Errorf("listen %q for %s: %w", channel, id, ErrNotConnected)
	}
	return p.client.Listen(entry.Conn, channel)
}

func (p *Pool) Unlisten(id, channel string) error {
	entry, ok := p.conns[id]
	if !ok {
		return fmt.Errorf("unlisten %q for %s: %w", channel, id, ErrNotConnected)
	}
	return p.client.Unlisten(entry.Conn, channel)
}

// Lookup resolves the exchange owning conn. Used to attribute inbound
// notifications to their exchange.
func (p *Pool) Lookup(conn *Conn) (string, *Entry, bool) {
	for id, entry := range p.conns {
		if entry.Conn == conn {
			return id, entry, true
		}
	}
	return "", nil, false
}

// CloseAll tears down every cached connection.
func (p *Pool) CloseAll() {
	for id := range p.conns {
		p.Close(id)
	}
}
