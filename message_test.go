package listenpg

import (
	"testing"

	amqp "github.com/rabbitmq/amqp091-go"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDeriveProperties_DeliveryMode(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name string
		args Arguments
		want uint8
	}{
		{name: "persistent", args: Arguments{"delivery_mode": IntValue(2)}, want: 2},
		{name: "transient", args: Arguments{"delivery_mode": IntValue(1)}, want: 1},
		{name: "absent defaults to transient", args: nil, want: 1},
		{name: "out of range defaults to transient", args: Arguments{"delivery_mode": IntValue(5)}, want: 1},
		{name: "textual form", args: Arguments{"delivery_mode": StringValue("2")}, want: 2},
		{name: "malformed defaults to transient", args: Arguments{"delivery_mode": StringValue("durable")}, want: 1},
	}

	for _, tt := range tests {
		tt := tt
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			msg := deriveProperties(tt.args)
			assert.Equal(t, tt.want, msg.DeliveryMode)
		})
	}
}

func TestDeriveProperties_AllProperties(t *testing.T) {
	t.Parallel()

	msg := deriveProperties(Arguments{
		"content_type":     StringValue("application/json"),
		"content_encoding": StringValue("utf-8"),
		"delivery_mode":    IntValue(2),
		"priority":         IntValue(3),
		"reply_to":         StringValue("replies"),
		"type":             StringValue("order.event"),
	})

	assert.Equal(t, "application/json", msg.ContentType)
	assert.Equal(t, "utf-8", msg.ContentEncoding)
	assert.Equal(t, uint8(2), msg.DeliveryMode)
	assert.Equal(t, uint8(3), msg.Priority)
	assert.Equal(t, "replies", msg.ReplyTo)
	assert.Equal(t, "order.event", msg.Type)
}

func TestDeriveProperties_MalformedValuesFallBack(t *testing.T) {
	t.Parallel()

	msg := deriveProperties(Arguments{
		"priority": IntValue(300),
		"type":     NormalizeValue(3.14),
	})

	assert.Equal(t, uint8(0), msg.Priority)
	assert.Empty(t, msg.Type)
	assert.Empty(t, msg.ContentType)
}

func TestBuildMessage(t *testing.T) {
	t.Parallel()

	args := Arguments{"content_type": StringValue("application/json")}
	msg := buildMessage(args, "order_created", "db.internal:5432", "events", "orders", `{"id":1}`)

	assert.Equal(t, "application/json", msg.ContentType)
	assert.Equal(t, uint8(1), msg.DeliveryMode)
	assert.Equal(t, `{"id":1}`, string(msg.Body))
	assert.NotEmpty(t, msg.MessageId)
	assert.False(t, msg.Timestamp.IsZero())

	require.Equal(t, amqp.Table{
		HeaderChannel:  "order_created",
		HeaderDatabase: "events",
		HeaderServer:   "db.internal:5432",
		HeaderSource:   "orders",
	}, msg.Headers)
}
