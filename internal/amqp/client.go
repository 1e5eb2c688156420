package amqp

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/rabbitmq/amqp091-go"

	applog "barriada/internal/log"
)

const publishTimeout = 5 * time.Second

// ErrDeliveriesClosed is returned by ConsumeLedgerEvents when the broker
// closes the delivery channel.
var ErrDeliveriesClosed = errors.New("amqp: delivery channel closed")

// Client publishes and consumes ledger events. Events go to a durable
// direct exchange and are routed to a single durable queue; the queue
// name doubles as the routing key.
type Client struct {
	mu       sync.Mutex
	conn     *amqp091.Connection
	ch       *amqp091.Channel
	exchange string
	queue    string
	log      *applog.Logger
}

// NewClient dials the broker and declares the exchange, queue and binding.
func NewClient(url, exchange, queue string) (*Client, error) {
	conn, err := amqp091.Dial(url)
	if err != nil {
		return nil, fmt.Errorf("dial AMQP: %w", err)
	}
	ch, err := conn.Channel()
	if err != nil {
		conn.Close()
		return nil, fmt.Errorf("open channel: %w", err)
	}

	c := &Client{
		conn:     conn,
		ch:       ch,
		exchange: exchange,
		queue:    queue,
		log:      applog.ForComponent(applog.ComponentAMQP),
	}
	if err := c.declareTopology(); err != nil {
		c.Close()
		return nil, fmt.Errorf("declare topology: %w", err)
	}
	return c, nil
}

func (c *Client) declareTopology() error {
	const durable, autoDelete, internal, exclusive, noWait = true, false, false, false, false

	if err := c.ch.ExchangeDeclare(c.exchange, amqp091.ExchangeDirect, durable, autoDelete, internal, noWait, nil); err != nil {
		return fmt.Errorf("exchange %s: %w", c.exchange, err)
	}
	if _, err := c.ch.QueueDeclare(c.queue, durable, autoDelete, exclusive, noWait, nil); err != nil {
		return fmt.Errorf("queue %s: %w", c.queue, err)
	}
	if err := c.ch.QueueBind(c.queue, c.queue, c.exchange, noWait, nil); err != nil {
		return fmt.Errorf("bind %s to %s: %w", c.queue, c.exchange, err)
	}
	return nil
}

// PublishLedgerEvent sends ev as a persistent JSON message. The AMQP
// message type carries the event kind.
func (c *Client) PublishLedgerEvent(ctx context.Context, ev *LedgerEvent) error {
	body, err := ev.ToJSON()
	if err != nil {
		return fmt.Errorf("encode event: %w", err)
	}
	msg := amqp091.Publishing{
		ContentType:  "application/json",
		DeliveryMode: amqp091.Persistent,
		Timestamp:    ev.Timestamp,
		Type:         string(ev.Kind),
		Body:         body,
	}

	ctx, cancel := context.WithTimeout(ctx, publishTimeout)
	defer cancel()

	c.mu.Lock()
	err = c.ch.PublishWithContext(ctx, c.exchange, c.queue, false, false, msg)
	c.mu.Unlock()
	if err != nil {
		return fmt.Errorf("publish %s: %w", ev.Kind, err)
	}

	c.log.DebugContext(ctx, "Ledger event published",
		applog.FieldOperation, applog.OpPublish,
		applog.FieldEventKind, ev.Kind,
		applog.FieldID, ev.ID)
	return nil
}

// ConsumeLedgerEvents hands each event to handler until ctx is done.
// Undecodable bodies are dropped; a handler error requeues the delivery.
func (c *Client) ConsumeLedgerEvents(ctx context.Context, handler func(context.Context, *LedgerEvent) error) error {
	deliveries, err := c.ch.Consume(c.queue, "", false, false, false, false, nil)
	if err != nil {
		return fmt.Errorf("consume %s: %w", c.queue, err)
	}
	c.log.InfoContext(ctx, "Consuming ledger events", "queue", c.queue)

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case d, ok := <-deliveries:
			if !ok {
				return ErrDeliveriesClosed
			}
			c.dispatch(ctx, d, handler)
		}
	}
}

func (c *Client) dispatch(ctx context.Context, d amqp091.Delivery, handler func(context.Context, *LedgerEvent) error) {
	ev, err := LedgerEventFromJSON(d.Body)
	if err != nil {
		c.log.WarnContext(ctx, "Dropping undecodable event", applog.FieldError, err)
		_ = d.Nack(false, false)
		return
	}
	if err := handler(ctx, ev); err != nil {
		c.log.ErrorContext(ctx, "Ledger event handler failed",
			applog.FieldEventKind, ev.Kind,
			applog.FieldID, ev.ID,
			applog.FieldError, err)
		_ = d.Nack(false, true)
		return
	}
	_ = d.Ack(false)
}

func (c *Client) Close() error {
	var errs []error
	if c.ch != nil {
		errs = append(errs, c.ch.Close())
	}
	if c.conn != nil {
		errs = append(errs, c.conn.Close())
	}
	return errors.Join(errs...)
}
