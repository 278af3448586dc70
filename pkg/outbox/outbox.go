package outbox

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

const (
	StatusPending = "pending"
	StatusSent    = "sent"
	StatusFailed  = "failed"
)

// ErrEventNotFound is returned by GetEventByID.
var ErrEventNotFound = errors.New("outbox event not found")

// Event 表示一个待发布的事件
type Event struct {
	ID            int64           `json:"id"`
	AggregateType string          `json:"aggregate_type"`
	AggregateID   *string         `json:"aggregate_id,omitempty"`
	RoutingKey    string          `json:"routing_key"`
	Payload       json.RawMessage `json:"payload"`
	Status        string          `json:"status"`
	RetryCount    int             `json:"retry_count"`
	NextRetryAt   *time.Time      `json:"next_retry_at,omitempty"`
	CreatedAt     time.Time       `json:"created_at"`
	UpdatedAt     time.Time       `json:"updated_at"`
}

// Repository 提供 Outbox 操作的接口
type Repository struct {
	db *pgxpool.Pool
	// lease keeps a claimed event invisible to other dispatchers.
	lease time.Duration
}

// NewRepository 创建新的 Outbox Repository
func NewRepository(db *pgxpool.Pool) *Repository {
	return &Repository{db: db, lease: 30 * time.Second}
}

const eventColumns = `id, aggregate_type, aggregate_id, routing_key, payload, status,
		       retry_count, next_retry_at, created_at, updated_at`

// InsertEvent 在事务中插入事件到 outbox
// 必须在事务中调用，确保与业务数据的一致性
func (r *Repository) InsertEvent(ctx context.Context, tx pgx.Tx, event *Event) error {
	query := `
		INSERT INTO outbox_events (aggregate_type, aggregate_id, routing_key, payload, status)
		VALUES ($1, $2, $3, $4, $5)
		RETURNING id, created_at, updated_at
	`

	err := tx.QueryRow(ctx, query,
		event.AggregateType,
		event.AggregateID,
		event.RoutingKey,
		event.Payload,
		event.Status,
	).Scan(&event.ID, &event.CreatedAt, &event.UpdatedAt)
	if err != nil {
		return fmt.Errorf("failed to insert outbox event: %w", err)
	}

	return nil
}

// ClaimPendingEvents leases up to limit due events. SKIP LOCKED lets
// several dispatchers run side by side without publishing the same row.
func (r *Repository) ClaimPendingEvents(ctx context.Context, limit int) ([]*Event, error) {
	query := `
		UPDATE outbox_events
		SET next_retry_at = NOW() + $2 * INTERVAL '1 second', updated_at = NOW()
		WHERE id IN (
			SELECT id FROM outbox_events
			WHERE status = 'pending'
			AND (next_retry_at IS NULL OR next_retry_at <= NOW())
			ORDER BY created_at ASC
			LIMIT $1
			FOR UPDATE SKIP LOCKED
		)
		RETURNING ` + eventColumns

	rows, err := r.db.Query(ctx, query, limit, int(r.lease.Seconds()))
	if err != nil {
		return nil, fmt.Errorf("failed to claim pending events: %w", err)
	}
	return scanEvents(rows)
}

// MarkAsSent 标记事件为已发送
func (r *Repository) MarkAsSent(ctx context.Context, eventID int64) error {
	query := `
		UPDATE outbox_events
		SET status = 'sent', next_retry_at = NULL, updated_at = NOW()
		WHERE id = $1
	`

	if _, err := r.db.Exec(ctx, query, eventID); err != nil {
		return fmt.Errorf("failed to mark event as sent: %w", err)
	}
	return nil
}

// MarkAsFailed bumps the retry count and schedules a linear backoff
// (5s, 10s, 15s...). Once maxRetries is reached the event is parked as failed.
func (r *Repository) MarkAsFailed(ctx context.Context, eventID int64, maxRetries int) error {
	query := `
		UPDATE outbox_events
		SET retry_count = retry_count + 1,
		    status = CASE WHEN retry_count + 1 >= $2 THEN 'failed' ELSE 'pending' END,
		    next_retry_at = CASE WHEN retry_count + 1 >= $2 THEN NULL
		                         ELSE NOW() + (retry_count + 1) * INTERVAL '5 seconds' END,
		    updated_at = NOW()
		WHERE id = $1
	`

	if _, err := r.db.Exec(ctx, query, eventID, maxRetries); err != nil {
		return fmt.Errorf("failed to mark event as failed: %w", err)
	}
	return nil
}

// GetEventByID 根据 ID 获取事件（用于 Replay）
func (r *Repository) GetEventByID(ctx context.Context, eventID int64) (*Event, error) {
	rows, err := r.db.Query(ctx, `SELECT `+eventColumns+` FROM outbox_events WHERE id = $1`, eventID)
	if err != nil {
		return nil, fmt.Errorf("failed to get event: %w", err)
	}
	events, err := scanEvents(rows)
	if err != nil {
		return nil, err
	}
	if len(events) == 0 {
		return nil, fmt.Errorf("%w: %d", ErrEventNotFound, eventID)
	}
	return events[0], nil
}

// RequeueFailed moves up to limit failed events back to pending with a
// fresh retry budget and returns how many were moved.
func (r *Repository) RequeueFailed(ctx context.Context, limit int) (int64, error) {
	query := `
		UPDATE outbox_events
		SET status = 'pending', retry_count = 0, next_retry_at = NULL, updated_at = NOW()
		WHERE id IN (
			SELECT id FROM outbox_events WHERE status = 'failed'
			ORDER BY created_at ASC LIMIT $1
		)
	`

	tag, err := r.db.Exec(ctx, query, limit)
	if err != nil {
		return 0, fmt.Errorf("failed to requeue failed events: %w", err)
	}
	return tag.RowsAffected(), nil
}

// GetFailedEvents 获取所有失败的事件（用于管理界面）
func (r *Repository) GetFailedEvents(ctx context.Context, limit int) ([]*Event, error) {
	query := `SELECT ` + eventColumns + `
		FROM outbox_events
		WHERE status = 'failed'
		ORDER BY created_at DESC
		LIMIT $1
	`

	rows, err := r.db.Query(ctx, query, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to query failed events: %w", err)
	}
	return scanEvents(rows)
}

func scanEvents(rows pgx.Rows) ([]*Event, error) {
	defer rows.Close()

	var events []*Event
	for rows.Next() {
		var e Event
		err := rows.Scan(
			&e.ID,
			&e.AggregateType,
			&e.AggregateID,
			&e.RoutingKey,
			&e.Payload,
			&e.Status,
			&e.RetryCount,
			&e.NextRetryAt,
			&e.CreatedAt,
			&e.UpdatedAt,
		)
		if err != nil {
			return nil, fmt.Errorf("failed to scan event: %w", err)
		}
		events = append(events, &e)
	}

	return events, rows.Err()
}
