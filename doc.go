// Package listenpg relays PostgreSQL LISTEN/NOTIFY notifications into
// RabbitMQ exchanges.
//
// Each relay-backed exchange (a [Scope]) owns one subscription
// connection to PostgreSQL, resolved through a parameter precedence
// chain: policy override, declared "x-" argument, process-wide value,
// config default. Bindings subscribe the exchange to upstream channels;
// the first binding for a channel issues LISTEN, the last removal issues
// UNLISTEN. Broker connections are pooled per vhost and closed when no
// exchange in the vhost retains a binding.
//
// # Basic usage
//
//	cfg := &config.Config{}
//	ex, err := listenpg.New(cfg, params, bindings)
//	if err != nil {
//	    log.Fatal(err)
//	}
//	ex.Start()
//	defer ex.Close()
//
//	scope := &listenpg.Scope{Name: "orders", VHost: "vhost1"}
//	if err := ex.CreateScope(ctx, scope); err != nil {
//	    log.Fatal(err)
//	}
//	ex.AddBinding(scope, "order_created")
//
// A NOTIFY on "order_created" is then published to the "orders" exchange
// with the channel name as routing key, message properties derived from
// the binding's declared arguments, and standard headers identifying the
// channel, database, server, and source exchange.
//
// Delivery is at-most-once: a failed connect or publish drops the
// notification with a structured log entry and a metric increment, and
// nothing is retried or buffered.
//
// # Concurrency
//
// All registry and pool mutations, and notification delivery itself, run
// on a single serialized task loop. Declare, validate, delete, and
// policy-change calls are synchronous; binding adds and removes are
// applied asynchronously in submission order.
package listenpg
