package audit

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"testing"
	"time"

	amqp "github.com/rabbitmq/amqp091-go"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ticketless/admin-console/middleware"
)

type published struct {
	exchange string
	key      string
	msg      amqp.Publishing
}

type fakeChannel struct {
	sent   []published
	err    error
	closed bool
}

func (f *fakeChannel) PublishWithContext(_ context.Context, exchange, key string, _, _ bool, msg amqp.Publishing) error {
	if f.err != nil {
		return f.err
	}
	f.sent = append(f.sent, published{exchange: exchange, key: key, msg: msg})
	return nil
}

func (f *fakeChannel) Close() error {
	f.closed = true
	return nil
}

type memPublisher struct {
	events []Event
	err    error
}

func (m *memPublisher) Publish(_ context.Context, e Event) error {
	m.events = append(m.events, e)
	return m.err
}

func (m *memPublisher) Close() error { return nil }

func TestMaskEmail(t *testing.T) {
	tests := []struct {
		in   string
		want string
	}{
		{"aino@guild.fi", "ai***@guild.fi"},
		{"a@guild.fi", "a***@guild.fi"},
		{"x@y", "***"},
		{"noatsign", "no***"},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, maskEmail(tt.in), tt.in)
	}
}

func TestEvent_RoutingKey(t *testing.T) {
	assert.Equal(t, "admin.events.update", Event{Resource: "events", Action: "update"}.RoutingKey())
	assert.Equal(t, "admin.superadmin.users.delete", Event{Resource: "superadmin/users", Action: "delete"}.RoutingKey())
	assert.Equal(t, "admin.logout", Event{Action: "logout"}.RoutingKey())
}

func TestLogger_RecordLogsAndPublishes(t *testing.T) {
	var buf bytes.Buffer
	pub := &memPublisher{}
	l := New(zerolog.New(&buf), pub)
	fixed := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	l.now = func() time.Time { return fixed }

	ctx := middleware.SetRequestIDForTest(context.Background(), "req-1")
	l.Record(ctx, Event{Action: "update", Resource: "users", RecordID: 5, Fields: []string{"email"}, ActorID: 1, ActorEmail: "root@guild.fi"})

	var line map[string]any
	require.NoError(t, json.Unmarshal(buf.Bytes(), &line))
	assert.Equal(t, true, line["audit"])
	assert.Equal(t, "update", line["action"])
	assert.Equal(t, "ro***@guild.fi", line["actor_email"])
	assert.Equal(t, "req-1", line["request_id"])

	require.Len(t, pub.events, 1)
	assert.Equal(t, fixed, pub.events[0].At)
	assert.Equal(t, "req-1", pub.events[0].RequestID)
}

func TestLogger_PublishFailureIsLogged(t *testing.T) {
	var buf bytes.Buffer
	l := New(zerolog.New(&buf), &memPublisher{err: errors.New("broker gone")})

	l.Logout(context.Background(), 3)

	assert.Contains(t, buf.String(), "audit publish failed")
	assert.Contains(t, buf.String(), "broker gone")
}

func TestNew_NilPublisherOnlyLogs(t *testing.T) {
	var buf bytes.Buffer
	l := New(zerolog.New(&buf), nil)
	l.PasswordChanged(context.Background(), 2)
	assert.Contains(t, buf.String(), "password_changed")
	assert.NotContains(t, buf.String(), "publish failed")
}

func TestRabbitPublisher_Publish(t *testing.T) {
	ch := &fakeChannel{}
	p := newRabbitPublisher(ch, "ticketless.admin", 0, zerolog.Nop())
	at := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)

	err := p.Publish(context.Background(), Event{Action: "delete", Resource: "tickets", RecordID: 9, RequestID: "req-9", At: at})
	require.NoError(t, err)

	require.Len(t, ch.sent, 1)
	sent := ch.sent[0]
	assert.Equal(t, "ticketless.admin", sent.exchange)
	assert.Equal(t, "admin.tickets.delete", sent.key)
	assert.Equal(t, "application/json", sent.msg.ContentType)
	assert.Equal(t, amqp.Persistent, sent.msg.DeliveryMode)
	assert.Equal(t, "req-9", sent.msg.Headers["X-Request-ID"])

	var body Event
	require.NoError(t, json.Unmarshal(sent.msg.Body, &body))
	assert.Equal(t, int64(9), body.RecordID)

	require.NoError(t, p.Close())
	assert.True(t, ch.closed)
}

func TestRabbitPublisher_PublishError(t *testing.T) {
	p := newRabbitPublisher(&fakeChannel{err: amqp.ErrClosed}, "x", time.Second, zerolog.Nop())
	err := p.Publish(context.Background(), Event{Action: "create", Resource: "events"})
	assert.ErrorIs(t, err, amqp.ErrClosed)
}
