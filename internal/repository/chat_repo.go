package repository

import (
	"context"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"

	"sciencehub/internal/model"
)

// ChatRepository stores chats, their messages and per-user read markers.
type ChatRepository struct {
	db *pgxpool.Pool
}

func NewChatRepository(db *pgxpool.Pool) *ChatRepository {
	return &ChatRepository{db: db}
}

// chatSelect expects the viewing user id as $1; unread_count counts messages
// from anyone else newer than that user's read marker.
const chatSelect = `
        SELECT ch.id, ch.application_id, ch.company_id, ch.researcher_id, ch.status, ch.created_at, ch.updated_at,
               a.project_id, p.title, c.company_name, c.logo_url, r.first_name, r.last_name, r.avatar_url,
               lm.id, lm.sender_id, lm.content, lm.message_type, lm.file_url, lm.created_at,
               (SELECT COUNT(*)
                FROM messages m
                WHERE m.chat_id = ch.id
                  AND m.sender_id::text <> $1
                  AND m.created_at > COALESCE(
                      (SELECT cr.last_read_at FROM chat_reads cr
                       WHERE cr.chat_id = ch.id AND cr.user_id::text = $1),
                      '-infinity'::timestamptz)) AS unread_count
        FROM chats ch
        JOIN applications a ON a.id = ch.application_id
        JOIN projects p ON p.id = a.project_id
        JOIN company_profiles c ON c.id = ch.company_id
        JOIN researcher_profiles r ON r.id = ch.researcher_id
        LEFT JOIN LATERAL (
            SELECT m.id, m.sender_id, m.content, m.message_type, m.file_url, m.created_at
            FROM messages m
            WHERE m.chat_id = ch.id
            ORDER BY m.created_at DESC, m.id DESC
            LIMIT 1
        ) lm ON TRUE
`

func scanChat(row pgx.Row) (*model.Chat, error) {
	var ch model.Chat
	var summary model.ChatSummary
	var (
		lastID, lastSender, lastContent, lastType *string
		lastFileURL                               *string
		lastAt                                    *time.Time
	)
	err := row.Scan(
		&ch.ID,
		&ch.ApplicationID,
		&ch.CompanyID,
		&ch.ResearcherID,
		&ch.Status,
		&ch.CreatedAt,
		&ch.UpdatedAt,
		&summary.ProjectID,
		&summary.ProjectTitle,
		&summary.CompanyName,
		&summary.CompanyLogoURL,
		&summary.ResearcherFirstName,
		&summary.ResearcherLastName,
		&summary.ResearcherAvatarURL,
		&lastID,
		&lastSender,
		&lastContent,
		&lastType,
		&lastFileURL,
		&lastAt,
		&ch.UnreadCount,
	)
	if err != nil {
		return nil, err
	}
	ch.Application = &summary
	if lastID != nil {
		ch.LastMessage = &model.Message{
			ID:          *lastID,
			ChatID:      ch.ID,
			SenderID:    *lastSender,
			Content:     *lastContent,
			MessageType: model.MessageType(*lastType),
			FileURL:     lastFileURL,
			CreatedAt:   *lastAt,
		}
	}
	return &ch, nil
}

// ListChats returns the chats of one side, most recently active first.
func (r *ChatRepository) ListChats(ctx context.Context, filter model.ChatFilter) ([]model.Chat, error) {
	query := chatSelect + `
        WHERE ($2 = '' OR ch.company_id::text = $2)
          AND ($3 = '' OR ch.researcher_id::text = $3)
        ORDER BY ch.updated_at DESC
    `
	rows, err := r.db.Query(ctx, query, filter.ViewerUserID, filter.CompanyID, filter.ResearcherID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	chats := []model.Chat{}
	for rows.Next() {
		ch, err := scanChat(rows)
		if err != nil {
			return nil, err
		}
		chats = append(chats, *ch)
	}
	return chats, rows.Err()
}

// GetChat loads one chat with unread_count computed for viewerUserID.
func (r *ChatRepository) GetChat(ctx context.Context, id, viewerUserID string) (*model.Chat, error) {
	ch, err := scanChat(r.db.QueryRow(ctx, chatSelect+` WHERE ch.id = $2`, viewerUserID, id))
	if err != nil {
		return nil, mapError(err)
	}
	return ch, nil
}

func (r *ChatRepository) ChatExistsForApplication(ctx context.Context, applicationID string) (bool, error) {
	var exists bool
	err := r.db.QueryRow(ctx,
		`SELECT EXISTS (SELECT 1 FROM chats WHERE application_id = $1)`, applicationID,
	).Scan(&exists)
	return exists, err
}

// CreateChat inserts ch. A second chat for the same application fails with
// ErrConflict.
func (r *ChatRepository) CreateChat(ctx context.Context, ch *model.Chat) error {
	query := `
        INSERT INTO chats (id, application_id, company_id, researcher_id, status)
        VALUES ($1, $2, $3, $4, $5)
        RETURNING created_at, updated_at
    `
	err := r.db.QueryRow(ctx, query,
		ch.ID, ch.ApplicationID, ch.CompanyID, ch.ResearcherID, string(ch.Status),
	).Scan(&ch.CreatedAt, &ch.UpdatedAt)
	return mapError(err)
}

func (r *ChatRepository) UpdateChatStatus(ctx context.Context, id string, status model.ChatStatus) error {
	tag, err := r.db.Exec(ctx,
		`UPDATE chats SET status = $2, updated_at = NOW() WHERE id = $1`, id, string(status),
	)
	if err != nil {
		return mapError(err)
	}
	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}

// AppendMessage stores m, moves the chat's updated_at to m.CreatedAt and
// advances the sender's read marker, all in one transaction. ErrConflict
// means the chat is not active.
func (r *ChatRepository) AppendMessage(ctx context.Context, m *model.Message) error {
	tx, err := r.db.Begin(ctx)
	if err != nil {
		return fmt.Errorf("begin tx: %w", err)
	}
	defer tx.Rollback(ctx)

	// Locks the chat row so a concurrent close waits for this message.
	tag, err := tx.Exec(ctx,
		`UPDATE chats SET updated_at = $2 WHERE id = $1 AND status = 'active'`, m.ChatID, m.CreatedAt,
	)
	if err != nil {
		return mapError(err)
	}
	if tag.RowsAffected() == 0 {
		return ErrConflict
	}

	if _, err := tx.Exec(ctx, `
        INSERT INTO messages (id, chat_id, sender_id, content, message_type, file_url, created_at, updated_at)
        VALUES ($1, $2, $3, $4, $5, $6, $7, $7)
    `, m.ID, m.ChatID, m.SenderID, m.Content, string(m.MessageType), m.FileURL, m.CreatedAt); err != nil {
		return mapError(err)
	}

	if err := upsertReadMarker(ctx, tx, m.ChatID, m.SenderID, m.CreatedAt); err != nil {
		return err
	}

	return tx.Commit(ctx)
}

const messageColumns = `id, chat_id, sender_id, content, message_type, file_url, created_at`

func scanMessage(row pgx.Row) (*model.Message, error) {
	var m model.Message
	err := row.Scan(&m.ID, &m.ChatID, &m.SenderID, &m.Content, &m.MessageType, &m.FileURL, &m.CreatedAt)
	if err != nil {
		return nil, err
	}
	return &m, nil
}

// ListMessages returns a chat's messages in ascending time order, restricted
// to those strictly after since when it is set.
func (r *ChatRepository) ListMessages(ctx context.Context, chatID string, since *time.Time) ([]model.Message, error) {
	query := `SELECT ` + messageColumns + `
        FROM messages
        WHERE chat_id = $1 AND ($2::timestamptz IS NULL OR created_at > $2::timestamptz)
        ORDER BY created_at ASC, id ASC
    `
	rows, err := r.db.Query(ctx, query, chatID, since)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	messages := []model.Message{}
	for rows.Next() {
		m, err := scanMessage(rows)
		if err != nil {
			return nil, err
		}
		messages = append(messages, *m)
	}
	return messages, rows.Err()
}

func (r *ChatRepository) GetMessage(ctx context.Context, chatID, messageID string) (*model.Message, error) {
	m, err := scanMessage(r.db.QueryRow(ctx,
		`SELECT `+messageColumns+` FROM messages WHERE chat_id = $1 AND id = $2`, chatID, messageID,
	))
	if err != nil {
		return nil, mapError(err)
	}
	return m, nil
}

// MarkChatRead moves the user's read marker forward to at. It never moves
// backward.
func (r *ChatRepository) MarkChatRead(ctx context.Context, chatID, userID string, at time.Time) error {
	return upsertReadMarker(ctx, r.db, chatID, userID, at)
}

type execer interface {
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
}

func upsertReadMarker(ctx context.Context, db execer, chatID, userID string, at time.Time) error {
	_, err := db.Exec(ctx, `
        INSERT INTO chat_reads (chat_id, user_id, last_read_at)
        VALUES ($1, $2, $3)
        ON CONFLICT (chat_id, user_id)
        DO UPDATE SET last_read_at = GREATEST(chat_reads.last_read_at, EXCLUDED.last_read_at)
    `, chatID, userID, at)
	if err != nil {
		return fmt.Errorf("upsert read marker: %w", mapError(err))
	}
	return nil
}
