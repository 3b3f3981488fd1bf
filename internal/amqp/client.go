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
	"github.com/sony/gobreaker"
)

const (
	breakerFailures = 5
	breakerTimeout  = 30 * time.Second
	maxBackoff      = 30 * time.Second
	publishTimeout  = 2 * time.Second
	dialTimeout     = 5 * time.Second
	heartbeat       = 10 * time.Second
)

// ErrCircuitOpen is returned while the broker is considered unavailable.
var ErrCircuitOpen = errors.New("circuit breaker is open")

type Client struct {
	url          string
	exchangeName string
	queueName    string

	mu      sync.Mutex
	conn    *amqp091.Connection
	channel *amqp091.Channel

	breaker *gobreaker.CircuitBreaker
}

// newBreaker trips after breakerFailures consecutive publish failures and
// lets a single trial publish through once timeout has passed.
func newBreaker(name string, timeout time.Duration) *gobreaker.CircuitBreaker {
	return gobreaker.NewCircuitBreaker(gobreaker.Settings{
		Name:        name,
		MaxRequests: 1,
		Timeout:     timeout,
		ReadyToTrip: func(counts gobreaker.Counts) bool {
			return counts.ConsecutiveFailures >= breakerFailures
		},
		IsSuccessful: func(err error) bool {
			return err == nil || errors.Is(err, context.Canceled)
		},
		OnStateChange: func(name string, from, to gobreaker.State) {
			slog.Warn("AMQP circuit breaker state changed", "breaker", name, "from", from.String(), "to", to.String())
		},
	})
}

func NewClient(url, exchangeName, queueName string) (*Client, error) {
	client := &Client{
		url:          url,
		exchangeName: exchangeName,
		queueName:    queueName,
		breaker:      newBreaker("amqp-"+exchangeName, breakerTimeout),
	}

	if err := client.connect(); err != nil {
		return nil, err
	}

	return client, nil
}

func (c *Client) connect() error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.conn != nil && !c.conn.IsClosed() && c.channel != nil && !c.channel.IsClosed() {
		return nil
	}
	c.closeLocked()

	conn, err := amqp091.DialConfig(c.url, amqp091.Config{
		Dial:      amqp091.DefaultDial(dialTimeout),
		Heartbeat: heartbeat,
		Locale:    "en_US",
	})
	if err != nil {
		return fmt.Errorf("dial AMQP: %w", err)
	}

	channel, err := conn.Channel()
	if err != nil {
		conn.Close()
		return fmt.Errorf("open channel: %w", err)
	}

	c.conn = conn
	c.channel = channel

	if err := c.setup(); err != nil {
		c.closeLocked()
		return fmt.Errorf("setup exchange and queue: %w", err)
	}

	return nil
}

func (c *Client) setup() error {
	err := c.channel.ExchangeDeclare(
		c.exchangeName, // name
		"direct",       // type
		true,           // durable
		false,          // auto-deleted
		false,          // internal
		false,          // no-wait
		nil,            // arguments
	)
	if err != nil {
		return fmt.Errorf("declare exchange: %w", err)
	}

	_, err = c.channel.QueueDeclare(
		c.queueName, // name
		true,        // durable
		false,       // delete when unused
		false,       // exclusive
		false,       // no-wait
		nil,         // arguments
	)
	if err != nil {
		return fmt.Errorf("declare queue: %w", err)
	}

	// Routing key is the queue name for the direct exchange
	err = c.channel.QueueBind(
		c.queueName,
		c.queueName,
		c.exchangeName,
		false,
		nil,
	)
	if err != nil {
		return fmt.Errorf("bind queue: %w", err)
	}

	return nil
}

// PublishMovementEvent publishes a movement event once, through the circuit
// breaker. A connection error drops the cached connection so the next
// publish redials.
func (c *Client) PublishMovementEvent(ctx context.Context, event *MovementEvent) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	body, err := event.ToJSON()
	if err != nil {
		return fmt.Errorf("marshal message: %w", err)
	}

	_, err = c.breaker.Execute(func() (any, error) {
		return nil, c.publish(ctx, event, body)
	})
	if errors.Is(err, gobreaker.ErrOpenState) || errors.Is(err, gobreaker.ErrTooManyRequests) {
		return fmt.Errorf("publish %s: %w", event.Event, ErrCircuitOpen)
	}
	if err != nil {
		if isConnectionError(err) {
			c.mu.Lock()
			c.closeLocked()
			c.mu.Unlock()
		}
		return fmt.Errorf("publish message: %w", err)
	}

	slog.InfoContext(ctx, "Published movement event",
		"event", event.Event,
		"movement_id", event.MovementID,
		"account_id", event.AccountID,
		"exchange", c.exchangeName,
		"queue", c.queueName)
	return nil
}

func (c *Client) publish(ctx context.Context, event *MovementEvent, body []byte) error {
	if err := c.connect(); err != nil {
		return err
	}

	c.mu.Lock()
	channel := c.channel
	c.mu.Unlock()

	ctx, cancel := context.WithTimeout(ctx, publishTimeout)
	defer cancel()

	return channel.PublishWithContext(
		ctx,
		c.exchangeName, // exchange
		c.queueName,    // routing key
		false,          // mandatory
		false,          // immediate
		amqp091.Publishing{
			ContentType:  "application/json",
			DeliveryMode: amqp091.Persistent,
			MessageId:    event.MessageID,
			Type:         event.Event,
			Timestamp:    event.Timestamp,
			Body:         body,
		},
	)
}

// ConsumeMovementEvents delivers movement events to handler until ctx is
// cancelled. Deliveries that fail to decode are dropped, handler errors
// requeue the message. A closed channel triggers a reconnect.
func (c *Client) ConsumeMovementEvents(ctx context.Context, handler func(context.Context, *MovementEvent) error) error {
	for attempt := 0; ; attempt++ {
		err := c.consume(ctx, handler)
		if ctx.Err() != nil {
			slog.InfoContext(ctx, "Stopping message consumption", "reason", ctx.Err())
			return ctx.Err()
		}

		wait := exponentialBackoff(attempt)
		slog.WarnContext(ctx, "Consumer interrupted, reconnecting", "error", err, "retry_in", wait)

		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-time.After(wait):
		}

		if err := c.connect(); err != nil {
			slog.ErrorContext(ctx, "Reconnect failed", "error", err)
			continue
		}
		attempt = -1
	}
}

func (c *Client) consume(ctx context.Context, handler func(context.Context, *MovementEvent) error) error {
	c.mu.Lock()
	channel := c.channel
	c.mu.Unlock()
	if channel == nil {
		return errors.New("channel not open")
	}

	msgs, err := channel.Consume(
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

	slog.InfoContext(ctx, "Started consuming movement events", "queue", c.queueName)

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case delivery, ok := <-msgs:
			if !ok {
				return errors.New("message channel closed")
			}

			event, err := MovementEventFromJSON(delivery.Body)
			if err != nil {
				slog.ErrorContext(ctx, "Failed to unmarshal message", "error", err)
				delivery.Nack(false, false)
				continue
			}

			if err := handler(ctx, event); err != nil {
				slog.ErrorContext(ctx, "Failed to handle message",
					"error", err,
					"event", event.Event,
					"message_id", event.MessageID)
				delivery.Nack(false, true)
				continue
			}

			delivery.Ack(false)
			slog.DebugContext(ctx, "Processed movement event",
				"event", event.Event,
				"movement_id", event.MovementID)
		}
	}
}

// exponentialBackoff returns 1s, 2s, 4s ... capped at maxBackoff.
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
	msg := strings.ToLower(err.Error())
	for _, s := range []string{"connection", "eof", "broken pipe", "channel not open"} {
		if strings.Contains(msg, s) {
			return true
		}
	}
	return false
}

func (c *Client) Close() error {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.closeLocked()
}

func (c *Client) closeLocked() error {
	var err error
	if c.channel != nil {
		c.channel.Close()
		c.channel = nil
	}
	if c.conn != nil {
		err = c.conn.Close()
		c.conn = nil
	}
	return err
}
