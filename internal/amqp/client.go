package amqp

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"sync"
	"time"

	"github.com/rabbitmq/amqp091-go"
)

const (
	maxFailures     = 5
	openTimeout     = 30 * time.Second
	maxBackoff      = 30 * time.Second
	reconnectTries  = 3
	publishDeadline = 5 * time.Second
)

// requeueDelay holds back a failed event before it goes back to the queue, so a
// mirror that is down is not retried in a tight loop.
var requeueDelay = 2 * time.Second

// Client publishes and consumes record events on one exchange and queue. It
// redials lazily after the broker drops the connection.
type Client struct {
	url          string
	exchangeName string
	queueName    string

	mu      sync.Mutex
	conn    *amqp091.Connection
	channel *amqp091.Channel

	breaker breaker
}

// NewClient dials once up front so a bad URL fails at start-up.
func NewClient(url, exchangeName, queueName string) (*Client, error) {
	client := &Client{
		url:          url,
		exchangeName: exchangeName,
		queueName:    queueName,
	}

	client.mu.Lock()
	defer client.mu.Unlock()
	if err := client.connectLocked(); err != nil {
		return nil, err
	}
	return client, nil
}

func (c *Client) connectLocked() error {
	conn, err := amqp091.Dial(c.url)
	if err != nil {
		return fmt.Errorf("dial AMQP: %w", err)
	}

	channel, err := conn.Channel()
	if err != nil {
		conn.Close()
		return fmt.Errorf("open channel: %w", err)
	}

	if err := c.declare(channel); err != nil {
		channel.Close()
		conn.Close()
		return err
	}

	c.conn = conn
	c.channel = channel
	return nil
}

// declare sets up a durable direct exchange with one durable queue bound
// under its own name.
func (c *Client) declare(ch *amqp091.Channel) error {
	const durable, autoDelete, internal, exclusive, noWait = true, false, false, false, false

	if err := ch.ExchangeDeclare(c.exchangeName, amqp091.ExchangeDirect, durable, autoDelete, internal, noWait, nil); err != nil {
		return fmt.Errorf("declare exchange %s: %w", c.exchangeName, err)
	}
	if _, err := ch.QueueDeclare(c.queueName, durable, autoDelete, exclusive, noWait, nil); err != nil {
		return fmt.Errorf("declare queue %s: %w", c.queueName, err)
	}
	if err := ch.QueueBind(c.queueName, c.queueName, c.exchangeName, noWait, nil); err != nil {
		return fmt.Errorf("bind %s to %s: %w", c.queueName, c.exchangeName, err)
	}
	return nil
}

// channelFor returns an open channel, redialling with backoff when the
// previous connection was lost.
func (c *Client) channelFor(ctx context.Context) (*amqp091.Channel, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.channel != nil && !c.channel.IsClosed() {
		return c.channel, nil
	}
	c.closeLocked()

	var lastErr error
	for attempt := 0; attempt < reconnectTries; attempt++ {
		if attempt > 0 {
			select {
			case <-ctx.Done():
				return nil, ctx.Err()
			case <-time.After(exponentialBackoff(attempt - 1)):
			}
		}
		if lastErr = c.connectLocked(); lastErr == nil {
			slog.InfoContext(ctx, "Reconnected to AMQP broker", "attempt", attempt+1)
			return c.channel, nil
		}
		slog.WarnContext(ctx, "AMQP reconnect failed", "attempt", attempt+1, "error", lastErr)
	}
	return nil, lastErr
}

// PublishRecordEvent publishes a record event as a persistent JSON message.
func (c *Client) PublishRecordEvent(ctx context.Context, ev *RecordEvent) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if !c.breaker.allow() {
		return errBreakerOpen
	}

	body, err := ev.ToJSON()
	if err != nil {
		return fmt.Errorf("marshal message: %w", err)
	}

	ctx, cancel := context.WithTimeout(ctx, publishDeadline)
	defer cancel()

	ch, err := c.channelFor(ctx)
	if err != nil {
		c.breaker.failure()
		return fmt.Errorf("connect: %w", err)
	}

	msg := amqp091.Publishing{
		ContentType:  "application/json",
		DeliveryMode: amqp091.Persistent,
		MessageId:    ev.ID,
		Timestamp:    ev.Timestamp,
		Type:         string(ev.Kind),
		Body:         body,
	}
	if err := ch.PublishWithContext(ctx, c.exchangeName, c.queueName, false, false, msg); err != nil {
		c.breaker.failure()
		if isConnectionError(err) {
			c.mu.Lock()
			c.closeLocked()
			c.mu.Unlock()
		}
		return fmt.Errorf("publish message: %w", err)
	}
	c.breaker.success()

	slog.DebugContext(ctx, "Published record event",
		"id", ev.ID,
		"kind", ev.Kind,
		"records", len(ev.Records),
		"exchange", c.exchangeName,
		"queue", c.queueName)

	return nil
}

// ConsumeRecordEvents delivers record events to handler until ctx is done.
// Malformed messages are rejected; handler failures are requeued.
func (c *Client) ConsumeRecordEvents(ctx context.Context, handler func(context.Context, *RecordEvent) error) error {
	ch, err := c.channelFor(ctx)
	if err != nil {
		return fmt.Errorf("connect: %w", err)
	}

	// manual ack: a delivery is settled only after the handler has run
	deliveries, err := ch.Consume(c.queueName, "", false, false, false, false, nil)
	if err != nil {
		return fmt.Errorf("start consuming: %w", err)
	}

	slog.InfoContext(ctx, "Started consuming record events", "queue", c.queueName)

	for {
		select {
		case <-ctx.Done():
			slog.InfoContext(ctx, "Stopping message consumption", "reason", ctx.Err())
			return ctx.Err()
		case d, ok := <-deliveries:
			if !ok {
				return errors.New("delivery channel closed by broker")
			}
			settle(ctx, d.Body, &d, handler)
		}
	}
}

// acknowledger is the subset of amqp091.Delivery used to settle a message.
type acknowledger interface {
	Ack(multiple bool) error
	Nack(multiple, requeue bool) error
}

// settle acks handled events and drops undecodable ones. Events the handler
// failed on are requeued after requeueDelay, or at once when ctx ends.
func settle(ctx context.Context, body []byte, ack acknowledger, handler func(context.Context, *RecordEvent) error) {
	ev, err := RecordEventFromJSON(body)
	if err != nil {
		slog.ErrorContext(ctx, "Dropping undecodable record event", "error", err, "bytes", len(body))
		_ = ack.Nack(false, false)
		return
	}
	attrs := []any{"id", ev.ID, "kind", ev.Kind, "records", len(ev.Records)}
	if err := handler(ctx, ev); err != nil {
		slog.ErrorContext(ctx, "Record event failed, requeueing", append(attrs, "error", err, "delay", requeueDelay)...)
		t := time.NewTimer(requeueDelay)
		select {
		case <-t.C:
		case <-ctx.Done():
			t.Stop()
		}
		_ = ack.Nack(false, true)
		return
	}
	_ = ack.Ack(false)
	slog.InfoContext(ctx, "Record event processed", attrs...)
}

// exponentialBackoff returns 1s doubled per attempt, capped at maxBackoff.
func exponentialBackoff(attempt int) time.Duration {
	if attempt < 0 {
		attempt = 0
	}
	if attempt >= 5 {
		return maxBackoff
	}
	return min(time.Second<<attempt, maxBackoff)
}

func isConnectionError(err error) bool {
	if err == nil {
		return false
	}
	if errors.Is(err, amqp091.ErrClosed) {
		return true
	}
	msg := err.Error()
	for _, s := range []string{"connection", "EOF", "broken pipe", "closed"} {
		if strings.Contains(msg, s) {
			return true
		}
	}
	return false
}

// closeLocked drops the channel and connection and returns the connection's
// close error. Callers hold mu.
func (c *Client) closeLocked() error {
	var err error
	if c.channel != nil {
		_ = c.channel.Close()
		c.channel = nil
	}
	if c.conn != nil {
		err = c.conn.Close()
		c.conn = nil
	}
	if errors.Is(err, amqp091.ErrClosed) {
		return nil
	}
	return err
}

// Close drops the channel and connection. Publishing afterwards redials.
func (c *Client) Close() error {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.closeLocked()
}
