package amqp

import (
	"context"
	"encoding/json"
	"errors"
	"testing"
	"time"

	amqp091 "github.com/rabbitmq/amqp091-go"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest/observer"

	"programhub/internal/core"
	"programhub/pkg/domain"
)

type published struct {
	exchange string
	key      string
	msg      amqp091.Publishing
}

type fakeChannel struct {
	sent   []published
	err    error
	closed bool
}

func (f *fakeChannel) PublishWithContext(_ context.Context, exchange, key string, _, _ bool, msg amqp091.Publishing) error {
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

func entry() core.AuditEntry {
	return core.AuditEntry{
		Operation: "create_task",
		Entity:    domain.EntityTask,
		Action:    domain.ActionCreate,
		EntityID:  "t1",
		Actor:     "u1",
		Status:    core.AuditStatusSuccess,
		Timestamp: time.Date(2024, 6, 1, 9, 0, 0, 0, time.UTC),
	}
}

func TestRecordPublishesJSONWithRoutingKey(t *testing.T) {
	ch := &fakeChannel{}
	p := NewPublisher(ch, "", nil)
	p.Record(context.Background(), entry())

	require.Len(t, ch.sent, 1)
	sent := ch.sent[0]
	assert.Equal(t, DefaultExchange, sent.exchange)
	assert.Equal(t, "task.create_task", sent.key)
	assert.Equal(t, "application/json", sent.msg.ContentType)
	assert.Equal(t, amqp091.Persistent, sent.msg.DeliveryMode)

	var decoded core.AuditEntry
	require.NoError(t, json.Unmarshal(sent.msg.Body, &decoded))
	assert.Equal(t, "t1", decoded.EntityID)
	assert.Equal(t, core.AuditStatusSuccess, decoded.Status)
}

func TestRecordLogsBrokerFailure(t *testing.T) {
	obs, logs := observer.New(zapcore.WarnLevel)
	ch := &fakeChannel{err: errors.New("channel closed")}
	p := NewPublisher(ch, "audit", zap.New(obs))

	assert.NotPanics(t, func() { p.Record(context.Background(), entry()) })
	require.Equal(t, 1, logs.Len())
	assert.Equal(t, "task.create_task", logs.All()[0].ContextMap()["routing_key"])
	assert.Error(t, p.Publish(context.Background(), entry()))
}

func TestCloseClosesChannel(t *testing.T) {
	ch := &fakeChannel{}
	require.NoError(t, NewPublisher(ch, "audit", nil).Close(context.Background()))
	assert.True(t, ch.closed)
}
