package mq

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"time"

	"github.com/rabbitmq/amqp091-go"
	"go.uber.org/zap"

	"sciencehub/pkg/metrics"
	"sciencehub/pkg/trace"
	"sciencehub/pkg/util"
)

type MessageHandler func(ctx context.Context, data json.RawMessage) error

// RetryCounter counts failed deliveries of the same message.
type RetryCounter interface {
	IncrementAndGet(ctx context.Context, key string) (int64, error)
	Reset(ctx context.Context, key string) error
}

// DeadLetterPublisher receives messages that will not be retried.
type DeadLetterPublisher interface {
	PublishToDLQ(ctx context.Context, routingKey string, payload []byte, originalError, failedAt string) error
}

type acknowledger interface {
	Ack(multiple bool) error
	Nack(multiple, requeue bool) error
}

type Consumer struct {
	channel    *amqp091.Channel
	queue      amqp091.Queue
	queueName  string
	routingKey string
	tag        string
	handler    MessageHandler
	conn       *amqp091.Connection
	logger     *zap.Logger

	retries    RetryCounter
	dlq        DeadLetterPublisher
	maxRetries int64
}

// NewConsumer creates a consumer for a specific routing key.
func NewConsumer(url, queueName, routingKey string, logger *zap.Logger) (*Consumer, error) {
	conn, err := NewConnection(url)
	if err != nil {
		return nil, err
	}

	ch, err := conn.Channel()
	if err != nil {
		conn.Close()
		return nil, fmt.Errorf("failed to open channel: %w", err)
	}

	if err := DeclareExchange(ch); err != nil {
		ch.Close()
		conn.Close()
		return nil, fmt.Errorf("failed to declare exchange: %w", err)
	}

	q, err := ch.QueueDeclare(
		queueName,
		true,
		false,
		false,
		false,
		nil,
	)
	if err != nil {
		ch.Close()
		conn.Close()
		return nil, fmt.Errorf("failed to declare queue: %w", err)
	}

	if err := ch.QueueBind(q.Name, routingKey, ExchangeName, false, nil); err != nil {
		ch.Close()
		conn.Close()
		return nil, fmt.Errorf("failed to bind queue: %w", err)
	}

	if err := DeclareDLQExchange(ch); err != nil {
		ch.Close()
		conn.Close()
		return nil, fmt.Errorf("failed to declare dlq exchange: %w", err)
	}
	if _, err := DeclareDLQQueue(ch, routingKey); err != nil {
		ch.Close()
		conn.Close()
		return nil, err
	}

	logger.Info("Consumer initialized",
		zap.String("routing_key", routingKey),
		zap.String("queue", queueName),
		zap.String("exchange", ExchangeName),
	)

	return &Consumer{
		conn:       conn,
		channel:    ch,
		queue:      q,
		queueName:  q.Name,
		routingKey: routingKey,
		tag:        queueName + "-worker",
		logger:     logger,
	}, nil
}

func (c *Consumer) SetHandler(h MessageHandler) {
	c.handler = h
}

// WithRetryPolicy dead-letters a message after maxRetries failed attempts,
// or immediately when the error is not retryable.
func (c *Consumer) WithRetryPolicy(counter RetryCounter, dlq DeadLetterPublisher, maxRetries int64) *Consumer {
	c.retries = counter
	c.dlq = dlq
	c.maxRetries = maxRetries
	return c
}

func (c *Consumer) IsConnected() bool {
	return c.conn != nil && !c.conn.IsClosed()
}

// Stop cancels the delivery stream; StartConsuming then returns.
func (c *Consumer) Stop() {
	if c.channel != nil {
		_ = c.channel.Cancel(c.tag, false)
	}
}

func (c *Consumer) Close() {
	if c.channel != nil {
		_ = c.channel.Close()
	}
	if c.conn != nil {
		_ = c.conn.Close()
	}
}

// StartConsuming starts consuming messages. This method blocks and should be called in a goroutine.
func (c *Consumer) StartConsuming() error {
	if c.handler == nil {
		return fmt.Errorf("consumer handler not set")
	}

	deliveries, err := c.channel.Consume(
		c.queue.Name,
		c.tag,
		false, // 手动ack
		false,
		false,
		false,
		nil,
	)
	if err != nil {
		return fmt.Errorf("failed to register consumer: %w", err)
	}

	c.logger.Info("Consumer started consuming messages",
		zap.String("routing_key", c.routingKey),
		zap.String("queue", c.queue.Name),
	)

	for msg := range deliveries {
		ctx := context.Background()
		if traceID, ok := msg.Headers[traceHeader].(string); ok && traceID != "" {
			ctx = trace.WithContext(ctx, traceID)
		}
		c.process(ctx, msg, msg.Body)
	}

	return nil
}

// process runs the handler and guarantees exactly one ack or nack.
func (c *Consumer) process(ctx context.Context, ack acknowledger, body []byte) {
	start := time.Now()
	defer func() {
		metrics.RecordMQConsumeLatency(c.routingKey, c.queueName, time.Since(start))
	}()

	defer func() {
		if r := recover(); r != nil {
			c.logger.Error("Handler panic recovered",
				zap.String("routing_key", c.routingKey),
				zap.String("queue", c.queueName),
				zap.Any("panic", r),
			)
			c.fail(ctx, ack, body, fmt.Errorf("handler panic: %v", r))
		}
	}()

	if err := c.handler(ctx, body); err != nil {
		c.logger.Error("Handler error",
			zap.String("routing_key", c.routingKey),
			zap.String("queue", c.queueName),
			zap.Error(err),
		)
		c.fail(ctx, ack, body, err)
		return
	}

	if c.retries != nil {
		_ = c.retries.Reset(ctx, c.retryKey(body))
	}
	if err := ack.Ack(false); err != nil {
		c.logger.Error("Failed to ack message",
			zap.String("routing_key", c.routingKey),
			zap.Error(err),
		)
	}
}

func (c *Consumer) fail(ctx context.Context, ack acknowledger, body []byte, handlerErr error) {
	if c.retries == nil || c.dlq == nil {
		if err := ack.Nack(false, true); err != nil {
			c.logger.Error("Failed to nack message", zap.String("routing_key", c.routingKey), zap.Error(err))
		}
		return
	}

	retryable, errorType := util.IsRetryableError(handlerErr)
	if retryable {
		count, err := c.retries.IncrementAndGet(ctx, c.retryKey(body))
		if err != nil || util.ShouldRetry(count, c.maxRetries, retryable) {
			if err := ack.Nack(false, true); err != nil {
				c.logger.Error("Failed to nack message", zap.String("routing_key", c.routingKey), zap.Error(err))
			}
			return
		}
	}

	c.logger.Warn("Dead-lettering message",
		zap.String("routing_key", c.routingKey),
		zap.String("error_type", errorType),
		zap.Error(handlerErr),
	)
	if err := c.dlq.PublishToDLQ(ctx, c.routingKey, body, handlerErr.Error(), c.queueName); err != nil {
		c.logger.Error("Failed to publish to DLQ", zap.Error(err))
		_ = ack.Nack(false, true)
		return
	}
	_ = c.retries.Reset(ctx, c.retryKey(body))
	if err := ack.Ack(false); err != nil {
		c.logger.Error("Failed to ack dead-lettered message", zap.Error(err))
	}
}

func (c *Consumer) retryKey(body []byte) string {
	sum := sha256.Sum256(body)
	return util.FormatRetryKey(c.queueName, hex.EncodeToString(sum[:8]))
}
