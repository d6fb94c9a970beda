package transport

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"

	amqp "github.com/rabbitmq/amqp091-go"
	"go.uber.org/zap"

	"github.com/Checker-Finance/interledger/pkg/model"
)

// DefaultQueuePrefix is prepended to an ILP account address to form its
// RabbitMQ queue name.
const DefaultQueuePrefix = "ilp.msg."

// AMQPConfig configures a RabbitMQ-backed transport.
type AMQPConfig struct {
	URL         string
	Account     string
	Info        Info
	QueuePrefix string // defaults to DefaultQueuePrefix
}

// AMQP carries correlation envelopes over RabbitMQ, one durable queue per
// ledger account on the default exchange.
type AMQP struct {
	cfg      AMQPConfig
	logger   *zap.Logger
	handlers *handlerSet

	mu        sync.Mutex
	conn      *amqp.Connection
	channel   *amqp.Channel
	done      chan struct{}
	connected bool
}

var _ Transport = (*AMQP)(nil)

// NewAMQP creates a RabbitMQ transport. Connect must be called before use.
func NewAMQP(cfg AMQPConfig, logger *zap.Logger) *AMQP {
	if cfg.QueuePrefix == "" {
		cfg.QueuePrefix = DefaultQueuePrefix
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &AMQP{
		cfg:      cfg,
		logger:   logger,
		handlers: newHandlerSet(),
	}
}

// Connect dials the broker, declares this account's queue and starts
// consuming from it. Calling it on a live connection is a no-op. The
// consumer is connection-scoped: it runs until Close or broker-side
// channel teardown, not until the caller's context ends.
func (t *AMQP) Connect(_ context.Context) error {
	t.mu.Lock()
	defer t.mu.Unlock()

	if t.connected {
		return nil
	}

	conn, err := amqp.Dial(t.cfg.URL)
	if err != nil {
		return fmt.Errorf("connect to RabbitMQ: %w", err)
	}

	channel, err := conn.Channel()
	if err != nil {
		conn.Close()
		return fmt.Errorf("open channel: %w", err)
	}

	queue := t.queue(t.cfg.Account)
	if _, err := channel.QueueDeclare(queue, true, false, false, false, nil); err != nil {
		channel.Close()
		conn.Close()
		return fmt.Errorf("declare queue %s: %w", queue, err)
	}

	msgs, err := channel.Consume(queue, "", false, false, false, false, nil)
	if err != nil {
		channel.Close()
		conn.Close()
		return fmt.Errorf("consume from %s: %w", queue, err)
	}

	t.conn = conn
	t.channel = channel
	t.done = make(chan struct{})
	t.connected = true
	go t.consume(msgs, t.done)

	t.logger.Info("transport.amqp.connected", zap.String("queue", queue))
	return nil
}

// Info returns the ledger description.
func (t *AMQP) Info() Info { return t.cfg.Info }

// Account returns this client's ledger address.
func (t *AMQP) Account() string { return t.cfg.Account }

// SendMessage publishes msg to the queue of the account it names.
func (t *AMQP) SendMessage(ctx context.Context, msg *model.Message) error {
	t.mu.Lock()
	defer t.mu.Unlock()

	if !t.connected {
		return fmt.Errorf("transport not connected")
	}

	queue := t.queue(msg.Account)
	if _, err := t.channel.QueueDeclare(queue, true, false, false, false, nil); err != nil {
		return fmt.Errorf("declare queue %s: %w", queue, err)
	}

	data, err := json.Marshal(msg)
	if err != nil {
		return fmt.Errorf("marshal message: %w", err)
	}

	err = t.channel.PublishWithContext(ctx, "", queue, false, false, amqp.Publishing{
		ContentType: "application/json",
		Body:        data,
	})
	if err != nil {
		return fmt.Errorf("publish to %s: %w", msg.Account, err)
	}
	return nil
}

// Subscribe attaches a handler to the inbound message stream.
func (t *AMQP) Subscribe(h Handler) (cancel func()) {
	return t.handlers.add(h)
}

// Close stops the consumer and closes the channel and connection.
func (t *AMQP) Close() error {
	t.mu.Lock()
	defer t.mu.Unlock()

	if !t.connected {
		return nil
	}
	close(t.done)
	t.connected = false

	if err := t.channel.Close(); err != nil {
		t.conn.Close()
		return err
	}
	return t.conn.Close()
}

func (t *AMQP) consume(msgs <-chan amqp.Delivery, done chan struct{}) {
	for {
		select {
		case <-done:
			return
		case delivery, ok := <-msgs:
			if !ok {
				t.logger.Warn("transport.amqp.channel_closed")
				t.mu.Lock()
				t.connected = false
				t.mu.Unlock()
				return
			}

			var msg model.Message
			if err := json.Unmarshal(delivery.Body, &msg); err != nil {
				t.logger.Error("transport.amqp.unmarshal_failed", zap.Error(err))
				_ = delivery.Nack(false, false)
				continue
			}

			t.handlers.dispatch(&msg)
			_ = delivery.Ack(false)
		}
	}
}

func (t *AMQP) queue(account string) string {
	return t.cfg.QueuePrefix + account
}
