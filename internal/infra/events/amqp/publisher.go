// Package amqp publishes audit entries to a RabbitMQ topic exchange so other
// systems can follow activity. Routing keys are `<entity>.<operation>`.
package amqp

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	amqp091 "github.com/rabbitmq/amqp091-go"
	"go.uber.org/zap"

	"programhub/internal/core"
)

// DefaultExchange is the topic exchange entries are published to.
const DefaultExchange = "programhub.activity"

const publishTimeout = 5 * time.Second

// Channel is the subset of *amqp091.Channel the publisher uses.
type Channel interface {
	PublishWithContext(ctx context.Context, exchange, key string, mandatory, immediate bool, msg amqp091.Publishing) error
	Close() error
}

// Publisher implements core.AuditRecorder.
type Publisher struct {
	ch       Channel
	conn     *amqp091.Connection
	exchange string
	logger   *zap.Logger
}

// Dial connects to url, declares the durable topic exchange and returns a
// publisher bound to it.
func Dial(url, exchange string, logger *zap.Logger) (*Publisher, error) {
	if exchange == "" {
		exchange = DefaultExchange
	}
	conn, err := amqp091.Dial(url)
	if err != nil {
		return nil, fmt.Errorf("connect to rabbitmq: %w", err)
	}
	ch, err := conn.Channel()
	if err != nil {
		_ = conn.Close()
		return nil, fmt.Errorf("open channel: %w", err)
	}
	if err := ch.ExchangeDeclare(exchange, amqp091.ExchangeTopic, true, false, false, false, nil); err != nil {
		_ = ch.Close()
		_ = conn.Close()
		return nil, fmt.Errorf("declare exchange %s: %w", exchange, err)
	}
	p := NewPublisher(ch, exchange, logger)
	p.conn = conn
	return p, nil
}

// NewPublisher wraps an already open channel. The exchange must exist.
func NewPublisher(ch Channel, exchange string, logger *zap.Logger) *Publisher {
	if exchange == "" {
		exchange = DefaultExchange
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Publisher{ch: ch, exchange: exchange, logger: logger}
}

// RoutingKey returns the key an entry is published under.
func RoutingKey(entry core.AuditEntry) string {
	return string(entry.Entity) + "." + entry.Operation
}

// Record publishes entry as a persistent JSON message. Failures are logged.
func (p *Publisher) Record(ctx context.Context, entry core.AuditEntry) {
	if err := p.Publish(ctx, entry); err != nil {
		p.logger.Warn("publish activity", zap.String("routing_key", RoutingKey(entry)), zap.Error(err))
	}
}

// Publish sends entry and returns the broker error, if any.
func (p *Publisher) Publish(ctx context.Context, entry core.AuditEntry) error {
	body, err := json.Marshal(entry)
	if err != nil {
		return fmt.Errorf("encode entry: %w", err)
	}
	ctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), publishTimeout)
	defer cancel()
	return p.ch.PublishWithContext(ctx, p.exchange, RoutingKey(entry), false, false, amqp091.Publishing{
		ContentType:  "application/json",
		DeliveryMode: amqp091.Persistent,
		Timestamp:    entry.Timestamp,
		Type:         entry.Operation,
		Body:         body,
	})
}

// Close releases the channel and, when dialed, the connection.
func (p *Publisher) Close(context.Context) error {
	err := p.ch.Close()
	if p.conn != nil {
		if cerr := p.conn.Close(); err == nil {
			err = cerr
		}
	}
	return err
}
