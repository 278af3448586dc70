// Package chat opens a conversation for every accepted application and
// carries its messages.
package chat

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"sciencehub/internal/apperr"
	"sciencehub/internal/caller"
	"sciencehub/internal/model"
	"sciencehub/internal/repository"
	"sciencehub/pkg/logger"
	"sciencehub/pkg/metrics"
)

type Store interface {
	ListChats(ctx context.Context, filter model.ChatFilter) ([]model.Chat, error)
	GetChat(ctx context.Context, id, viewerUserID string) (*model.Chat, error)
	ChatExistsForApplication(ctx context.Context, applicationID string) (bool, error)
	CreateChat(ctx context.Context, ch *model.Chat) error
	UpdateChatStatus(ctx context.Context, id string, status model.ChatStatus) error
	AppendMessage(ctx context.Context, m *model.Message) error
	ListMessages(ctx context.Context, chatID string, since *time.Time) ([]model.Message, error)
	GetMessage(ctx context.Context, chatID, messageID string) (*model.Message, error)
	MarkChatRead(ctx context.Context, chatID, userID string, at time.Time) error
}

type Applications interface {
	GetApplication(ctx context.Context, id string) (*model.Application, error)
}

type Service struct {
	store        Store
	applications Applications
	logger       *zap.Logger
	now          func() time.Time
}

func NewService(store Store, applications Applications, logger *zap.Logger) *Service {
	return &Service{
		store:        store,
		applications: applications,
		logger:       logger,
		now:          time.Now,
	}
}

// Create opens the chat for an accepted application. It is called both by
// participants over HTTP and by the acceptance worker.
func (s *Service) Create(ctx context.Context, applicationID string) (*model.Chat, error) {
	if applicationID == "" {
		return nil, apperr.Validation("application_id is required")
	}
	a, err := s.application(ctx, applicationID)
	if err != nil {
		return nil, err
	}
	return s.create(ctx, a, "")
}

// CreateForCaller is Create restricted to the two sides of the application.
func (s *Service) CreateForCaller(ctx context.Context, c caller.Caller, applicationID string) (*model.Chat, error) {
	if applicationID == "" {
		return nil, apperr.Validation("application_id is required")
	}
	a, err := s.application(ctx, applicationID)
	if err != nil {
		return nil, err
	}
	if !(c.IsCompany() && a.CompanyID == c.CompanyID) && !(c.IsResearcher() && a.ResearcherID == c.ResearcherID) {
		return nil, apperr.Forbidden("not a participant of this application")
	}
	return s.create(ctx, a, c.UserID)
}

// create opens the chat and returns it as seen by viewerUserID.
func (s *Service) create(ctx context.Context, a *model.Application, viewerUserID string) (*model.Chat, error) {
	if a.Status != model.ApplicationAccepted {
		return nil, apperr.InvalidState("chats can only be opened for accepted applications")
	}

	exists, err := s.store.ChatExistsForApplication(ctx, a.ID)
	if err != nil {
		return nil, apperr.Internal("failed to check existing chat", err)
	}
	if exists {
		return nil, apperr.Conflict("chat already exists for this application")
	}

	ch := &model.Chat{
		ID:            uuid.NewString(),
		ApplicationID: a.ID,
		CompanyID:     a.CompanyID,
		ResearcherID:  a.ResearcherID,
		Status:        model.ChatActive,
	}
	if err := s.store.CreateChat(ctx, ch); err != nil {
		if errors.Is(err, repository.ErrConflict) {
			return nil, apperr.Conflict("chat already exists for this application")
		}
		return nil, apperr.Internal("failed to create chat", err)
	}

	logger.WithTrace(ctx, s.logger).Info("Chat opened",
		zap.String("chat_id", ch.ID),
		zap.String("application_id", a.ID),
	)
	return s.load(ctx, ch.ID, viewerUserID)
}

// ListForCaller returns the caller's chats, most recently active first, each
// with its last message and the caller's unread count.
func (s *Service) ListForCaller(ctx context.Context, c caller.Caller) ([]model.Chat, error) {
	filter := model.ChatFilter{ViewerUserID: c.UserID}
	switch {
	case c.IsCompany():
		filter.CompanyID = c.CompanyID
	case c.IsResearcher():
		filter.ResearcherID = c.ResearcherID
	default:
		return []model.Chat{}, nil
	}

	chats, err := s.store.ListChats(ctx, filter)
	if err != nil {
		return nil, apperr.Internal("failed to list chats", err)
	}
	return chats, nil
}

// Get returns a chat with its full message history.
func (s *Service) Get(ctx context.Context, c caller.Caller, id string) (*model.Chat, error) {
	ch, err := s.participantChat(ctx, c, id)
	if err != nil {
		return nil, err
	}
	messages, err := s.store.ListMessages(ctx, id, nil)
	if err != nil {
		return nil, apperr.Internal("failed to load messages", err)
	}
	ch.Messages = messages
	return ch, nil
}

func (s *Service) SendMessage(ctx context.Context, c caller.Caller, chatID string, in model.NewMessage) (*model.Message, error) {
	if in.MessageType == "" {
		in.MessageType = model.MessageText
	}
	if !in.MessageType.Valid() {
		return nil, apperr.Validation("message_type must be text or file")
	}
	if in.MessageType == model.MessageText && strings.TrimSpace(in.Content) == "" {
		return nil, apperr.Validation("content is required")
	}
	if in.MessageType == model.MessageFile && (in.FileURL == nil || *in.FileURL == "") {
		return nil, apperr.Validation("file_url is required for file messages")
	}

	ch, err := s.participantChat(ctx, c, chatID)
	if err != nil {
		return nil, err
	}
	if ch.Status != model.ChatActive {
		return nil, apperr.InvalidState("chat is %s", ch.Status)
	}

	m := &model.Message{
		ID:          uuid.NewString(),
		ChatID:      chatID,
		SenderID:    c.UserID,
		Content:     in.Content,
		MessageType: in.MessageType,
		FileURL:     in.FileURL,
		CreatedAt:   s.now().UTC().Truncate(time.Microsecond),
	}
	if err := s.store.AppendMessage(ctx, m); err != nil {
		if errors.Is(err, repository.ErrConflict) {
			return nil, apperr.InvalidState("chat is no longer active")
		}
		return nil, apperr.Internal("failed to send message", err)
	}

	metrics.IncrementMessageSent(string(m.MessageType))
	return m, nil
}

// UpdateStatus moves a chat between active, closed and archived. Any
// direction is allowed, including reopening.
func (s *Service) UpdateStatus(ctx context.Context, c caller.Caller, id string, status model.ChatStatus) (*model.Chat, error) {
	if !status.Valid() {
		return nil, apperr.Validation("status must be active, closed or archived")
	}
	if _, err := s.participantChat(ctx, c, id); err != nil {
		return nil, err
	}

	err := s.store.UpdateChatStatus(ctx, id, status)
	if errors.Is(err, repository.ErrNotFound) {
		return nil, apperr.NotFound("chat not found")
	}
	if err != nil {
		return nil, apperr.Internal("failed to update chat", err)
	}
	return s.load(ctx, id, c.UserID)
}

// ListMessagesSince returns messages strictly newer than since, oldest
// first. A nil since returns the whole history.
func (s *Service) ListMessagesSince(ctx context.Context, c caller.Caller, chatID string, since *time.Time) ([]model.Message, error) {
	if _, err := s.participantChat(ctx, c, chatID); err != nil {
		return nil, err
	}
	messages, err := s.store.ListMessages(ctx, chatID, since)
	if err != nil {
		return nil, apperr.Internal("failed to load messages", err)
	}
	return messages, nil
}

// MarkRead records that the caller has read the chat up to and including
// messageID. Marking an older message is a no-op.
func (s *Service) MarkRead(ctx context.Context, c caller.Caller, chatID, messageID string) error {
	if messageID == "" {
		return apperr.Validation("message_id is required")
	}
	if _, err := s.participantChat(ctx, c, chatID); err != nil {
		return err
	}

	m, err := s.store.GetMessage(ctx, chatID, messageID)
	if errors.Is(err, repository.ErrNotFound) {
		return apperr.NotFound("message not found")
	}
	if err != nil {
		return apperr.Internal("failed to load message", err)
	}

	if err := s.store.MarkChatRead(ctx, chatID, c.UserID, m.CreatedAt); err != nil {
		return apperr.Internal("failed to mark chat read", err)
	}
	return nil
}

func (s *Service) participantChat(ctx context.Context, c caller.Caller, id string) (*model.Chat, error) {
	ch, err := s.load(ctx, id, c.UserID)
	if err != nil {
		return nil, err
	}
	if !(c.IsCompany() && ch.CompanyID == c.CompanyID) && !(c.IsResearcher() && ch.ResearcherID == c.ResearcherID) {
		return nil, apperr.Forbidden("not a participant of this chat")
	}
	return ch, nil
}

func (s *Service) load(ctx context.Context, id, viewerUserID string) (*model.Chat, error) {
	ch, err := s.store.GetChat(ctx, id, viewerUserID)
	if errors.Is(err, repository.ErrNotFound) {
		return nil, apperr.NotFound("chat not found")
	}
	if err != nil {
		return nil, apperr.Internal("failed to load chat", err)
	}
	return ch, nil
}

func (s *Service) application(ctx context.Context, id string) (*model.Application, error) {
	a, err := s.applications.GetApplication(ctx, id)
	if errors.Is(err, repository.ErrNotFound) {
		return nil, apperr.NotFound("application not found")
	}
	if err != nil {
		return nil, apperr.Internal("failed to load application", err)
	}
	return a, nil
}
