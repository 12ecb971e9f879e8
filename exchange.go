package listenpg

import (
	"context"
	"fmt"
	"log/slog"
	"sync"

	"github.com/anshmain/listen-pg-exchange/config"
	"github.com/anshmain/listen-pg-exchange/internal/bytesize"
	"github.com/anshmain/listen-pg-exchange/postgres"
	"github.com/anshmain/listen-pg-exchange/rabbitmq"
	"github.com/prometheus/client_golang/prometheus"
)

// taskQueueSize bounds the serialized request queue. Binding churn is
// rare relative to notification volume, so a small buffer suffices.
const taskQueueSize = 64

type task struct {
	fn   func() error
	errc chan error
}

// Exchange is the relay core: it owns the connection pools, the binding
// registry, and the notification translator. All mutable state is
// confined to a single task loop, so no two mutating operations run
// concurrently and reads always observe a consistent view.
//
// Lifecycle calls from the host are synchronous for declare, validate,
// delete, and policy changes; binding adds and removes are enqueued
// asynchronously and applied in submission order.
type Exchange struct {
	cfg      *config.Config
	params   ParamSource
	bindings BindingSource
	resolver Resolver

	db         postgres.Client
	dbPool     *postgres.Pool
	broker     rabbitmq.Client
	brokerPool *rabbitmq.Pool
	metric     rabbitmq.Metric

	scopes     map[string]*Scope
	registry   *registry
	maxPayload int64

	logger  *slog.Logger
	tasks   chan task
	done    chan struct{}
	stopped chan struct{}

	mu      sync.Mutex
	started bool
	closed  bool
}

// New builds an Exchange from the process config and the host
// collaborators. The loop is not running until Start is called;
// lifecycle calls made before Start block until it runs or their
// context expires.
func New(cfg *config.Config, params ParamSource, bindings BindingSource, options ...Option) (*Exchange, error) {
	cfg.SetDefault()
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("config: %w", err)
	}

	maxPayload, err := bytesize.ParseSize(cfg.MaxPayloadBytes)
	if err != nil {
		return nil, fmt.Errorf("maxPayloadBytes parse: %w", err)
	}

	e := &Exchange{
		cfg:        cfg,
		params:     params,
		bindings:   bindings,
		resolver:   NewResolver(params),
		scopes:     make(map[string]*Scope),
		registry:   newRegistry(),
		maxPayload: int64(maxPayload),
		logger:     slog.Default(),
		metric:     rabbitmq.NewMetric(),
		tasks:      make(chan task, taskQueueSize),
		done:       make(chan struct{}),
		stopped:    make(chan struct{}),
	}
	Options(options).Apply(e)

	if e.db == nil {
		e.db = postgres.NewClient(
			cfg.Postgres.MinReconnectInterval,
			cfg.Postgres.MaxReconnectInterval,
			cfg.Postgres.NotificationBuffer,
			e.logger,
		)
	}
	if e.broker == nil {
		e.broker = rabbitmq.NewClient(&cfg.RabbitMQ)
	}
	e.dbPool = postgres.NewPool(e.db, e.logger)
	e.brokerPool = rabbitmq.NewPool(e.broker, e.metric, e.logger)
	return e, nil
}

// Start launches the task loop. It returns immediately; use Close to
// stop the relay.
func (e *Exchange) Start() {
	e.mu.Lock()
	defer e.mu.Unlock()
	if e.started || e.closed {
		return
	}
	e.started = true
	go e.run()
}

// Close stops the loop and tears down every pooled connection. It does
// not return until teardown completes. Pending lifecycle calls fail
// with a "relay is closed" error instead of blocking.
func (e *Exchange) Close() {
	e.mu.Lock()
	if !e.closed {
		e.closed = true
		close(e.done)
		if !e.started {
			// The loop never ran, so nothing else will signal stopped.
			close(e.stopped)
		}
	}
	e.mu.Unlock()
	<-e.stopped
}

// PrometheusCollectors exposes the relay's metric collectors for
// registration by the host.
func (e *Exchange) PrometheusCollectors() []prometheus.Collector {
	return e.metric.PrometheusCollectors()
}

func (e *Exchange) run() {
	defer close(e.stopped)
	defer e.teardown()

	notifications := e.db.Notifications()
	for {
		select {
		case t := <-e.tasks:
			err := t.fn()
			if t.errc != nil {
				t.errc <- err
			} else if err != nil {
				e.logger.Error("binding operation", "error", err)
			}
		case n := <-notifications:
			e.handleNotification(n)
		case <-e.done:
			return
		}
	}
}

func (e *Exchange) teardown() {
	e.dbPool.CloseAll()
	e.brokerPool.CloseAll()
}

// call runs fn on the task loop and waits for its result.
func (e *Exchange) call(ctx context.Context, fn func() error) error {
	t := task{fn: fn, errc: make(chan error, 1)}
	select {
	case e.tasks <- t:
	case <-e.done:
		return newError(ErrCodeNotFound, "relay is closed", nil)
	case <-ctx.Done():
		return ctx.Err()
	}
	select {
	case err := <-t.errc:
		return err
	case <-e.stopped:
		// The loop stopped with the task still queued; it will never run.
		return newError(ErrCodeNotFound, "relay is closed", nil)
	case <-ctx.Done():
		return ctx.Err()
	}
}

// enqueue submits fn to the task loop without waiting. Submission order
// is preserved; failures are logged by the loop.
func (e *Exchange) enqueue(fn func() error) {
	select {
	case e.tasks <- task{fn: fn}:
	case <-e.done:
	}
}

// CreateScope declares an exchange: it resolves the scope's DSN and
// establishes (or reuses) its database connection. Declaring an already
// connected scope is a no-op. A connection failure rejects the
// declaration.
func (e *Exchange) CreateScope(ctx context.Context, s *Scope) error {
	if err := s.Validate(); err != nil {
		return err
	}
	return e.call(ctx, func() error {
		id := s.ID()
		if _, ok := e.scopes[id]; ok {
			return nil
		}
		dsn := e.resolver.DSN(s, e.cfg.Postgres)
		if _, err := e.dbPool.Ensure(id, dsn); err != nil {
			return newError(ErrCodeConnectFailed, "exchange "+id, err)
		}
		e.scopes[id] = s
		e.logger.Info("exchange connected", "exchange", id, "server", dsn.Server())
		return nil
	})
}

// ValidateScope tests connectivity for the scope's resolved DSN without
// caching anything. Used on declaration and policy changes to reject bad
// parameters before committing them.
func (e *Exchange) ValidateScope(ctx context.Context, s *Scope) error {
	if err := s.Validate(); err != nil {
		return err
	}
	return e.call(ctx, func() error {
		dsn := e.resolver.DSN(s, e.cfg.Postgres)
		if err := e.db.Validate(ctx, dsn); err != nil {
			return newError(ErrCodeConnectFailed, "exchange "+s.ID(), err)
		}
		return nil
	})
}

// DeleteScope tears down the scope: membership entries vanish, its
// database connection closes, and the vhost's broker connection is
// closed if no other scope there retains a binding.
func (e *Exchange) DeleteScope(ctx context.Context, s *Scope) error {
	return e.call(ctx, func() error {
		id := s.ID()
		if _, ok := e.scopes[id]; !ok {
			e.logger.Warn("delete for unknown exchange", "exchange", id)
			return nil
		}
		e.registry.dropScope(id)
		e.dbPool.Close(id)
		delete(e.scopes, id)
		e.brokerPool.MaybeClose(s.VHost, e.registry.vhostInUse)
		return nil
	})
}

// PolicyChanged re-resolves the scope's parameters, validates the new
// DSN, and only then swaps the connection, re-issuing LISTEN for every
// channel the scope is bound to. Validation failure leaves the old
// connection untouched. A failure after the swap drops membership for
// the channels the new connection never subscribed to, so registry
// state and active LISTENs always agree.
func (e *Exchange) PolicyChanged(ctx context.Context, s *Scope) error {
	return e.call(ctx, func() error {
		id := s.ID()
		if _, ok := e.scopes[id]; !ok {
			return newError(ErrCodeNotFound, "exchange "+id, nil)
		}
		dsn := e.resolver.DSN(s, e.cfg.Postgres)
		if err := e.db.Validate(ctx, dsn); err != nil {
			return newError(ErrCodeConnectFailed, "exchange "+id, err)
		}

		channels := e.registry.channelsFor(id)
		e.dbPool.Close(id)
		if _, err := e.dbPool.Ensure(id, dsn); err != nil {
			e.pruneBindings(s, channels)
			return newError(ErrCodeConnectFailed, "exchange "+id, err)
		}
		for i, channel := range channels {
			if err := e.dbPool.Listen(id, channel); err != nil {
				// Membership must agree with the LISTENs the new
				// connection actually holds.
				e.pruneBindings(s, channels[i:])
				return newError(ErrCodeConnectFailed, "relisten "+channel, err)
			}
		}
		e.scopes[id] = s
		e.logger.Info("exchange reconnected after policy change", "exchange", id, "server", dsn.Server())
		return nil
	})
}

// pruneBindings drops registry membership for channels whose LISTEN was
// lost, then reconsiders the vhost's broker connection.
func (e *Exchange) pruneBindings(s *Scope, channels []string) {
	for _, channel := range channels {
		e.registry.remove(channel, s.ID())
	}
	e.brokerPool.MaybeClose(s.VHost, e.registry.vhostInUse)
}

// AddBinding subscribes the scope to an upstream channel. The add is
// idempotent; the first add for the scope's connection issues LISTEN.
// The call returns immediately — the operation is applied in submission
// order on the task loop.
func (e *Exchange) AddBinding(s *Scope, channel string) {
	e.enqueue(func() error { return e.addBinding(s, channel) })
}

// RemoveBinding unsubscribes the scope from an upstream channel.
// UNLISTEN is issued first; membership only changes once it succeeds, so
// a failed removal leaves the binding logically present.
func (e *Exchange) RemoveBinding(s *Scope, channel string) {
	e.enqueue(func() error { return e.removeBinding(s, channel) })
}

// RemoveAllBindings removes the listed channels sequentially, stopping
// at the first failure. Prior removals stay committed.
func (e *Exchange) RemoveAllBindings(s *Scope, channels []string) {
	e.enqueue(func() error {
		for _, channel := range channels {
			if err := e.removeBinding(s, channel); err != nil {
				return err
			}
		}
		return nil
	})
}

func (e *Exchange) addBinding(s *Scope, channel string) error {
	id := s.ID()
	if _, ok := e.scopes[id]; !ok {
		return newError(ErrCodeNotFound, "bind "+channel+" to unknown exchange "+id, nil)
	}
	if e.registry.contains(channel, id) {
		return nil
	}
	if err := e.dbPool.Listen(id, channel); err != nil {
		return newError(ErrCodeConnectFailed, "bind "+channel+" to "+id, err)
	}
	e.registry.add(channel, id)
	return nil
}

func (e *Exchange) removeBinding(s *Scope, channel string) error {
	id := s.ID()
	if !e.registry.contains(channel, id) {
		return newError(ErrCodeNotFound, "unbind "+channel+" from "+id, nil)
	}
	if err := e.dbPool.Unlisten(id, channel); err != nil {
		return newError(ErrCodeConnectFailed, "unbind "+channel+" from "+id, err)
	}
	e.registry.remove(channel, id)
	e.brokerPool.MaybeClose(s.VHost, e.registry.vhostInUse)
	return nil
}

// Bindings reports the channels the scope is currently bound to. Because
// the query round-trips the task loop, it also acts as a barrier: all
// previously submitted binding operations are applied before it returns.
func (e *Exchange) Bindings(ctx context.Context, s *Scope) ([]string, error) {
	var channels []string
	err := e.call(ctx, func() error {
		channels = e.registry.channelsFor(s.ID())
		return nil
	})
	return channels, err
}
