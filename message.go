package listenpg

import (
	"time"

	"github.com/google/uuid"
	amqp "github.com/rabbitmq/amqp091-go"
)

// Standard headers attached to every relayed message regardless of
// binding configuration.
const (
	HeaderChannel  = "x-channel"
	HeaderDatabase = "x-database"
	HeaderServer   = "x-server"
	HeaderSource   = "x-source-exchange"
)

// Binding argument keys that map to AMQP message properties.
const (
	argContentType     = "content_type"
	argContentEncoding = "content_encoding"
	argDeliveryMode    = "delivery_mode"
	argPriority        = "priority"
	argReplyTo         = "reply_to"
	argType            = "type"
)

// deriveProperties builds the AMQP properties declared on a binding.
// delivery_mode must be 1 or 2; any other value, like every other
// malformed typed value here, falls back to the property's absent form
// instead of failing the notification.
func deriveProperties(args Arguments) amqp.Publishing {
	msg := amqp.Publishing{DeliveryMode: amqp.Transient}

	if v, ok := args[argContentType].Text(); ok {
		msg.ContentType = v
	}
	if v, ok := args[argContentEncoding].Text(); ok {
		msg.ContentEncoding = v
	}
	if n, ok := args[argDeliveryMode].Int64(); ok && (n == int64(amqp.Transient) || n == int64(amqp.Persistent)) {
		msg.DeliveryMode = uint8(n)
	}
	if n, ok := args[argPriority].Int64(); ok && n >= 0 && n <= 255 {
		msg.Priority = uint8(n)
	}
	if v, ok := args[argReplyTo].Text(); ok {
		msg.ReplyTo = v
	}
	if v, ok := args[argType].Text(); ok {
		msg.Type = v
	}
	return msg
}

// buildMessage assembles the full publishing for one notification.
func buildMessage(args Arguments, channel, server, database, source, payload string) amqp.Publishing {
	msg := deriveProperties(args)
	msg.MessageId = uuid.NewString()
	msg.Timestamp = time.Now()
	msg.Body = []byte(payload)
	msg.Headers = amqp.Table{
		HeaderChannel:  channel,
		HeaderDatabase: database,
		HeaderServer:   server,
		HeaderSource:   source,
	}
	return msg
}
