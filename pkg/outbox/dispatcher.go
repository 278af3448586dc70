package outbox

import (
	"context"
	"encoding/json"
	"errors"
	"time"

	"go.uber.org/zap"

	"sciencehub/pkg/circuitbreaker"
	"sciencehub/pkg/metrics"
	"sciencehub/pkg/trace"
)

// Store is the part of Repository the dispatcher needs.
type Store interface {
	ClaimPendingEvents(ctx context.Context, limit int) ([]*Event, error)
	MarkAsSent(ctx context.Context, eventID int64) error
	MarkAsFailed(ctx context.Context, eventID int64, maxRetries int) error
}

// EventPublisher is satisfied by *mq.Publisher.
type EventPublisher interface {
	PublishWithContext(ctx context.Context, routingKey string, payload any) error
}

// Dispatcher 负责从 outbox 中读取事件并发布到 MQ
type Dispatcher struct {
	repo       Store
	publisher  EventPublisher
	logger     *zap.Logger
	maxRetries int
	interval   time.Duration
	batchSize  int
	breaker    *circuitbreaker.CircuitBreaker
}

// NewDispatcher 创建新的 Dispatcher
func NewDispatcher(repo Store, publisher EventPublisher, logger *zap.Logger) *Dispatcher {
	return &Dispatcher{
		repo:       repo,
		publisher:  publisher,
		logger:     logger,
		maxRetries: 5,
		interval:   1 * time.Second,
		batchSize:  100,
	}
}

// WithMaxRetries 设置最大重试次数
func (d *Dispatcher) WithMaxRetries(maxRetries int) *Dispatcher {
	if maxRetries > 0 {
		d.maxRetries = maxRetries
	}
	return d
}

// WithBreaker stops claiming events while the broker keeps failing, so an
// outage does not use up every event's retry budget.
func (d *Dispatcher) WithBreaker(cb *circuitbreaker.CircuitBreaker) *Dispatcher {
	d.breaker = cb
	return d
}

// WithInterval 设置扫描间隔
func (d *Dispatcher) WithInterval(interval time.Duration) *Dispatcher {
	if interval > 0 {
		d.interval = interval
	}
	return d
}

// WithBatchSize 设置批次大小
func (d *Dispatcher) WithBatchSize(batchSize int) *Dispatcher {
	if batchSize > 0 {
		d.batchSize = batchSize
	}
	return d
}

// Start blocks until ctx is done; run it in a goroutine.
func (d *Dispatcher) Start(ctx context.Context) {
	d.logger.Info("Starting Outbox Dispatcher",
		zap.Int("max_retries", d.maxRetries),
		zap.Duration("interval", d.interval),
		zap.Int("batch_size", d.batchSize),
	)

	ticker := time.NewTicker(d.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			d.logger.Info("Outbox Dispatcher stopped")
			return
		case <-ticker.C:
			d.ProcessPendingEvents(ctx)
		}
	}
}

// ProcessPendingEvents publishes one batch and returns how many events
// were published.
func (d *Dispatcher) ProcessPendingEvents(ctx context.Context) int {
	if d.breaker != nil && !d.breaker.Allow() {
		return 0
	}
	events, err := d.repo.ClaimPendingEvents(ctx, d.batchSize)
	if err != nil {
		d.logger.Error("Failed to claim pending events", zap.Error(err))
		return 0
	}

	published := 0
	for _, event := range events {
		err := d.publishEvent(ctx, event)
		if errors.Is(err, circuitbreaker.ErrOpen) {
			// The rest of the batch is picked up again when its lease expires.
			d.logger.Warn("Broker circuit open, pausing dispatch")
			break
		}
		if err != nil {
			d.logger.Error("Failed to publish event",
				zap.Int64("event_id", event.ID),
				zap.String("routing_key", event.RoutingKey),
				zap.Error(err),
			)
			metrics.IncrementOutboxEvent(event.RoutingKey, "failed")

			if err := d.repo.MarkAsFailed(ctx, event.ID, d.maxRetries); err != nil {
				d.logger.Error("Failed to mark event as failed",
					zap.Int64("event_id", event.ID),
					zap.Error(err),
				)
			}
			continue
		}

		metrics.IncrementOutboxEvent(event.RoutingKey, "published")
		published++
		if err := d.repo.MarkAsSent(ctx, event.ID); err != nil {
			d.logger.Error("Failed to mark event as sent",
				zap.Int64("event_id", event.ID),
				zap.Error(err),
			)
		}
	}

	return published
}

func (d *Dispatcher) publishEvent(ctx context.Context, event *Event) error {
	ctx = contextWithPayloadTrace(ctx, event.Payload)
	if d.breaker == nil {
		return d.publisher.PublishWithContext(ctx, event.RoutingKey, event.Payload)
	}
	return d.breaker.Execute(func() error {
		return d.publisher.PublishWithContext(ctx, event.RoutingKey, event.Payload)
	})
}

// contextWithPayloadTrace 从 payload 中提取 trace_id（如果存在）
func contextWithPayloadTrace(ctx context.Context, payload json.RawMessage) context.Context {
	var envelope struct {
		TraceID string `json:"trace_id"`
	}
	if err := json.Unmarshal(payload, &envelope); err != nil || envelope.TraceID == "" {
		return ctx
	}
	return trace.WithContext(ctx, envelope.TraceID)
}
