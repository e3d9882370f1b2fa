package service

import (
	"context"
	"encoding/json"
	"fmt"
	"net"
	"time"

	amqp "github.com/rabbitmq/amqp091-go"
	"go.uber.org/zap"

	q "github.com/importfull/inventory-api/internal/queue"
)

// DefaultDialTimeout bounds the TCP connect plus AMQP handshake of one
// publish.
const DefaultDialTimeout = 2 * time.Second

// EventPublisher publishes catalog events to RabbitMQ, one connection per
// event.  Errors are logged and returned so callers can ignore failures
// without interrupting the request flow.  A zero URL disables publishing.
type EventPublisher struct {
	URL         string
	DialTimeout time.Duration
	Log         *zap.Logger
}

// NewEventPublisher returns a publisher for the broker at url.
func NewEventPublisher(url string, log *zap.Logger) *EventPublisher {
	if log == nil {
		log = zap.NewNop()
	}
	return &EventPublisher{URL: url, DialTimeout: DefaultDialTimeout, Log: log.Named("rabbitmq")}
}

// PublishCatalogEvent publishes ev to the catalog.events queue.  Connecting
// and the handshake stop at ctx's deadline or DialTimeout, whichever comes
// first; messages are marked as persistent.
func (p *EventPublisher) PublishCatalogEvent(ctx context.Context, ev q.CatalogEvent) error {
	if p == nil || p.URL == "" {
		return nil
	}
	conn, err := amqp.DialConfig(p.URL, amqp.Config{Dial: p.dialer(ctx)})
	if err != nil {
		p.Log.Warn("dial failed", zap.Error(err))
		return err
	}
	defer func() { _ = conn.Close() }()

	ch, err := conn.Channel()
	if err != nil {
		p.Log.Warn("channel open failed", zap.Error(err))
		return err
	}
	defer func() { _ = ch.Close() }()

	// Ensure the queue exists (idempotent). Durable so messages survive broker restarts.
	if _, err := ch.QueueDeclare(
		q.CatalogEventsQueue, // name
		true,                 // durable
		false,                // autoDelete
		false,                // exclusive
		false,                // noWait
		nil,                  // args
	); err != nil {
		p.Log.Warn("queue declare failed", zap.Error(err))
		return err
	}

	body, err := json.Marshal(ev)
	if err != nil {
		return fmt.Errorf("marshal event: %w", err)
	}

	pub := amqp.Publishing{
		ContentType:  "application/json",
		DeliveryMode: amqp.Persistent, // store on disk
		Timestamp:    time.Now().UTC(),
		Body:         body,
	}
	if err := ch.PublishWithContext(ctx,
		"",                   // default exchange
		q.CatalogEventsQueue, // routing key = queue name
		false,                // mandatory
		false,                // immediate
		pub,
	); err != nil {
		p.Log.Warn("publish failed", zap.Error(err))
		return err
	}
	return nil
}

// dialer returns an amqp dial func whose connection carries a deadline for
// the handshake.  amqp091 clears the deadline once the connection is open.
func (p *EventPublisher) dialer(ctx context.Context) func(network, addr string) (net.Conn, error) {
	timeout := p.DialTimeout
	if timeout <= 0 {
		timeout = DefaultDialTimeout
	}
	return func(network, addr string) (net.Conn, error) {
		deadline := time.Now().Add(timeout)
		if d, ok := ctx.Deadline(); ok && d.Before(deadline) {
			deadline = d
		}
		nd := net.Dialer{Deadline: deadline}
		conn, err := nd.DialContext(ctx, network, addr)
		if err != nil {
			return nil, err
		}
		if err := conn.SetDeadline(deadline); err != nil {
			_ = conn.Close()
			return nil, err
		}
		return conn, nil
	}
}
