// Package amqp publishes domain events to RabbitMQ and feeds project
// deactivations to the cascade worker.
package amqp

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	"github.com/rabbitmq/amqp091-go"

	"timetrack/internal/core"
	"timetrack/internal/services"
)

// Circuit breaker states.
const (
	StateClosed int32 = iota
	StateOpen
	StateHalfOpen
)

const (
	maxFailures    = 5
	openTimeout    = 30 * time.Second
	publishTimeout = 5 * time.Second
	maxBackoff     = 30 * time.Second
)

var (
	errCircuitOpen = errors.New("circuit breaker is open")
	errMissingIDs  = errors.New("message is missing owner or project id")
)

// Client publishes on a durable direct exchange. Project deactivations are
// routed to a durable queue the cascade worker consumes; entry events are
// routed by event name and only reach queues bound by other consumers.
type Client struct {
	url          string
	exchangeName string
	queueName    string

	mu      sync.Mutex
	conn    *amqp091.Connection
	channel *amqp091.Channel

	state        int32
	failureCount int64
	lastFailure  time.Time
}

var _ services.EventPublisher = (*Client)(nil)

func NewClient(url, exchangeName, queueName string) (*Client, error) {
	c := &Client{url: url, exchangeName: exchangeName, queueName: queueName}
	if err := c.connect(); err != nil {
		return nil, err
	}
	return c, nil
}

func (c *Client) connect() error {
	conn, err := amqp091.Dial(c.url)
	if err != nil {
		return fmt.Errorf("dial AMQP: %w", err)
	}

	channel, err := conn.Channel()
	if err != nil {
		conn.Close()
		return fmt.Errorf("open channel: %w", err)
	}

	if err := setup(channel, c.exchangeName, c.queueName); err != nil {
		channel.Close()
		conn.Close()
		return fmt.Errorf("setup exchange and queue: %w", err)
	}

	c.mu.Lock()
	c.conn, c.channel = conn, channel
	c.mu.Unlock()
	return nil
}

func setup(ch *amqp091.Channel, exchange, queue string) error {
	err := ch.ExchangeDeclare(
		exchange, // name
		"direct", // type
		true,     // durable
		false,    // auto-deleted
		false,    // internal
		false,    // no-wait
		nil,      // arguments
	)
	if err != nil {
		return fmt.Errorf("declare exchange: %w", err)
	}

	_, err = ch.QueueDeclare(
		queue, // name
		true,  // durable
		false, // delete when unused
		false, // exclusive
		false, // no-wait
		nil,   // arguments
	)
	if err != nil {
		return fmt.Errorf("declare queue: %w", err)
	}

	if err := ch.QueueBind(queue, services.EventProjectDeactivated, exchange, false, nil); err != nil {
		return fmt.Errorf("bind queue: %w", err)
	}
	return nil
}

// ensureChannel returns a usable channel, redialing after a dropped
// connection.
func (c *Client) ensureChannel() (*amqp091.Channel, error) {
	c.mu.Lock()
	ch := c.channel
	c.mu.Unlock()
	if ch != nil && !ch.IsClosed() {
		return ch, nil
	}

	c.closeConn()
	if err := c.connect(); err != nil {
		return nil, err
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.channel, nil
}

// PublishEntryEvent implements services.EventPublisher.
func (c *Client) PublishEntryEvent(ctx context.Context, kind string, e core.TimeEntry) error {
	body, err := NewEntryEventMessage(kind, e).ToJSON()
	if err != nil {
		return fmt.Errorf("marshal message: %w", err)
	}
	return c.publish(ctx, kind, body)
}

// PublishProjectDeactivated implements services.EventPublisher.
func (c *Client) PublishProjectDeactivated(ctx context.Context, ownerID, projectID string, purged int64) error {
	body, err := NewProjectDeactivatedMessage(ownerID, projectID, purged).ToJSON()
	if err != nil {
		return fmt.Errorf("marshal message: %w", err)
	}
	return c.publish(ctx, services.EventProjectDeactivated, body)
}

func (c *Client) publish(ctx context.Context, routingKey string, body []byte) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if c.isCircuitOpen() {
		return fmt.Errorf("publish %s: %w", routingKey, errCircuitOpen)
	}

	ch, err := c.ensureChannel()
	if err != nil {
		c.recordFailure()
		return err
	}

	ctx, cancel := context.WithTimeout(ctx, publishTimeout)
	defer cancel()

	err = ch.PublishWithContext(
		ctx,
		c.exchangeName, // exchange
		routingKey,     // routing key
		false,          // mandatory
		false,          // immediate
		amqp091.Publishing{
			ContentType:  "application/json",
			DeliveryMode: amqp091.Persistent,
			Timestamp:    time.Now(),
			Body:         body,
		},
	)
	if err != nil {
		c.recordFailure()
		if isConnectionError(err) {
			c.closeConn()
		}
		return fmt.Errorf("publish message: %w", err)
	}

	c.recordSuccess()
	slog.DebugContext(ctx, "Published event",
		"component", "amqp",
		"routing_key", routingKey,
		"exchange", c.exchangeName)
	return nil
}

// ConsumeProjectDeactivated delivers queued deactivations to handler until
// ctx ends. Malformed messages are dropped; handler failures are requeued.
// A lost connection is redialed with exponential backoff.
func (c *Client) ConsumeProjectDeactivated(ctx context.Context, handler func(context.Context, *ProjectDeactivatedMessage) error) error {
	attempt := 0
	for {
		err := c.consumeOnce(ctx, handler, func() { attempt = 0 })
		if ctx.Err() != nil {
			return ctx.Err()
		}

		wait := exponentialBackoff(attempt)
		attempt++
		slog.WarnContext(ctx, "AMQP consumer interrupted, reconnecting",
			"component", "amqp", "error", err, "retry_in", wait)

		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-time.After(wait):
		}
		c.closeConn()
	}
}

func (c *Client) consumeOnce(ctx context.Context, handler func(context.Context, *ProjectDeactivatedMessage) error, connected func()) error {
	ch, err := c.ensureChannel()
	if err != nil {
		return err
	}

	msgs, err := ch.Consume(
		c.queueName, // queue
		"",          // consumer
		false,       // auto-ack
		false,       // exclusive
		false,       // no-local
		false,       // no-wait
		nil,         // args
	)
	if err != nil {
		return fmt.Errorf("start consuming: %w", err)
	}
	connected()
	slog.InfoContext(ctx, "Started consuming project deactivations", "component", "amqp", "queue", c.queueName)

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case delivery, ok := <-msgs:
			if !ok {
				return errors.New("message channel closed")
			}
			dispatch(ctx, delivery.Body, delivery, handler)
		}
	}
}

// acknowledger is the subset of amqp091.Delivery the dispatcher needs.
type acknowledger interface {
	Ack(multiple bool) error
	Nack(multiple, requeue bool) error
}

func dispatch(ctx context.Context, body []byte, ack acknowledger, handler func(context.Context, *ProjectDeactivatedMessage) error) {
	msg, err := ProjectDeactivatedMessageFromJSON(body)
	if err != nil {
		slog.ErrorContext(ctx, "Dropping malformed message", "component", "amqp", "error", err)
		_ = ack.Nack(false, false)
		return
	}

	if err := handler(ctx, msg); err != nil {
		slog.ErrorContext(ctx, "Failed to handle project deactivation",
			"component", "amqp", "project_id", msg.ProjectID, "error", err)
		_ = ack.Nack(false, true)
		return
	}
	_ = ack.Ack(false)
}

func (c *Client) isCircuitOpen() bool {
	if atomic.LoadInt32(&c.state) != StateOpen {
		return false
	}
	c.mu.Lock()
	last := c.lastFailure
	c.mu.Unlock()
	if time.Since(last) > openTimeout {
		atomic.CompareAndSwapInt32(&c.state, StateOpen, StateHalfOpen)
		return false
	}
	return true
}

func (c *Client) recordFailure() {
	n := atomic.AddInt64(&c.failureCount, 1)
	c.mu.Lock()
	c.lastFailure = time.Now()
	c.mu.Unlock()
	if n >= maxFailures || atomic.LoadInt32(&c.state) == StateHalfOpen {
		atomic.StoreInt32(&c.state, StateOpen)
	}
}

func (c *Client) recordSuccess() {
	atomic.StoreInt64(&c.failureCount, 0)
	atomic.StoreInt32(&c.state, StateClosed)
}

// exponentialBackoff doubles from one second, capped at maxBackoff.
func exponentialBackoff(attempt int) time.Duration {
	if attempt >= 5 {
		return maxBackoff
	}
	d := time.Second << attempt
	if d > maxBackoff {
		return maxBackoff
	}
	return d
}

func isConnectionError(err error) bool {
	if err == nil {
		return false
	}
	if errors.Is(err, amqp091.ErrClosed) {
		return true
	}
	msg := err.Error()
	for _, s := range []string{"connection refused", "connection closed", "EOF", "broken pipe", "use of closed network connection"} {
		if strings.Contains(msg, s) {
			return true
		}
	}
	return false
}

func (c *Client) closeConn() {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.channel != nil {
		c.channel.Close()
		c.channel = nil
	}
	if c.conn != nil {
		c.conn.Close()
		c.conn = nil
	}
}

func (c *Client) Close() error {
	c.closeConn()
	return nil
}
