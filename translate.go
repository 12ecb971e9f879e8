package listenpg

import (
	"github.com/anshmain/listen-pg-exchange/postgres"
)

// handleNotification translates one inbound NOTIFY into a broker
// publish. Failures here are terminal-but-local: NOTIFY is
// fire-and-forget on the database side, so there is no caller to report
// to — drops are logged and counted, and pool state is never mutated on
// a failed attempt.
func (e *Exchange) handleNotification(n postgres.Notification) {
	id, entry, ok := e.dbPool.Lookup(n.Conn)
	if !ok {
		e.logger.Warn("notification from unknown connection", "channel", n.Channel)
		e.metric.AddDropped("", "", "unknown_connection")
		return
	}
	scope, ok := e.scopes[id]
	if !ok {
		e.logger.Warn("notification for unknown exchange", "exchange", id, "channel", n.Channel)
		e.metric.AddDropped("", "", "unknown_exchange")
		return
	}

	if e.maxPayload > 0 && int64(len(n.Payload)) > e.maxPayload {
		e.logger.Warn("notification payload exceeds cap",
			"exchange", id, "channel", n.Channel, "bytes", len(n.Payload))
		e.metric.AddDropped(scope.VHost, scope.Name, "oversize_payload")
		return
	}

	args := e.bindingArgs(scope, n.Channel)
	msg := buildMessage(args, n.Channel, entry.Server, entry.DBName, scope.Name, n.Payload)

	if _, err := e.brokerPool.Ensure(scope.VHost); err != nil {
		e.logger.Error("broker connect", "vhost", scope.VHost, "exchange", scope.Name, "error", err)
		e.metric.AddDropped(scope.VHost, scope.Name, "connect_failed")
		return
	}
	if err := e.brokerPool.Publish(scope.VHost, scope.Name, n.Channel, msg); err != nil {
		e.logger.Error("publish", "vhost", scope.VHost, "exchange", scope.Name, "channel", n.Channel,
			"error", newError(ErrCodePublishFailed, "publish "+scope.Name+"/"+n.Channel, err))
		e.metric.AddDropped(scope.VHost, scope.Name, "publish_failed")
		return
	}
	e.metric.AddPublished(scope.VHost, scope.Name)
}

// bindingArgs looks up the declared arguments of the live binding whose
// routing key matches the channel. The host collaborator is queried per
// notification rather than cached, so a binding re-declared with new
// arguments takes effect immediately.
func (e *Exchange) bindingArgs(scope *Scope, channel string) Arguments {
	for _, b := range e.bindings.BindingsForScope(scope.VHost, scope.Name) {
		if b.RoutingKey == channel {
			return b.Args
		}
	}
	return nil
}
