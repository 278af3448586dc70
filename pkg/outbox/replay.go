package outbox

import (
	"context"
	"fmt"

	"go.uber.org/zap"

	"sciencehub/pkg/metrics"
)

// ReplayStore is the part of Repository the replay service needs.
type ReplayStore interface {
	GetEventByID(ctx context.Context, eventID int64) (*Event, error)
	GetFailedEvents(ctx context.Context, limit int) ([]*Event, error)
	RequeueFailed(ctx context.Context, limit int) (int64, error)
	MarkAsSent(ctx context.Context, eventID int64) error
	MarkAsFailed(ctx context.Context, eventID int64, maxRetries int) error
}

// ReplayService 提供重放 Outbox 事件的服务
type ReplayService struct {
	repo       ReplayStore
	publisher  EventPublisher
	logger     *zap.Logger
	maxRetries int
}

// NewReplayService 创建新的 ReplayService
func NewReplayService(repo ReplayStore, publisher EventPublisher, logger *zap.Logger) *ReplayService {
	return &ReplayService{
		repo:       repo,
		publisher:  publisher,
		logger:     logger,
		maxRetries: 5,
	}
}

// ReplayEvent publishes a single event immediately regardless of status.
func (s *ReplayService) ReplayEvent(ctx context.Context, eventID int64) error {
	event, err := s.repo.GetEventByID(ctx, eventID)
	if err != nil {
		return err
	}

	ctx = contextWithPayloadTrace(ctx, event.Payload)
	if err := s.publisher.PublishWithContext(ctx, event.RoutingKey, event.Payload); err != nil {
		if markErr := s.repo.MarkAsFailed(ctx, eventID, s.maxRetries); markErr != nil {
			return fmt.Errorf("failed to publish and mark as failed: %w (mark error: %v)", err, markErr)
		}
		return fmt.Errorf("failed to publish: %w", err)
	}

	metrics.IncrementOutboxEvent(event.RoutingKey, "replayed")
	if err := s.repo.MarkAsSent(ctx, eventID); err != nil {
		return fmt.Errorf("failed to mark as sent: %w", err)
	}
	return nil
}

// ReplayFailedEvents 重放所有失败的事件
func (s *ReplayService) ReplayFailedEvents(ctx context.Context, limit int) (int, error) {
	events, err := s.repo.GetFailedEvents(ctx, limit)
	if err != nil {
		return 0, fmt.Errorf("failed to get failed events: %w", err)
	}

	successCount := 0
	for _, event := range events {
		if err := s.ReplayEvent(ctx, event.ID); err != nil {
			s.logger.Warn("Replay failed", zap.Int64("event_id", event.ID), zap.Error(err))
			continue
		}
		successCount++
	}

	return successCount, nil
}

// RequeueFailed hands failed events back to the dispatcher. The worker's
// cron job calls it so parked events get another retry budget.
func (s *ReplayService) RequeueFailed(ctx context.Context, limit int) (int64, error) {
	n, err := s.repo.RequeueFailed(ctx, limit)
	if err != nil {
		return 0, err
	}
	if n > 0 {
		s.logger.Info("Requeued failed outbox events", zap.Int64("count", n))
	}
	return n, nil
}
