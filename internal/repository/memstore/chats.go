package memstore

import (
	"context"
	"sort"
	"time"

	"sciencehub/internal/model"
	"sciencehub/internal/repository"
)

func (s *Store) chatView(ch *model.Chat, viewerUserID string) model.Chat {
	out := *ch
	summary := &model.ChatSummary{}
	if a, ok := s.applications[ch.ApplicationID]; ok {
		summary.ProjectID = a.ProjectID
		if p, ok := s.projects[a.ProjectID]; ok {
			summary.ProjectTitle = p.Title
		}
	}
	if c, ok := s.companies[ch.CompanyID]; ok {
		summary.CompanyName, summary.CompanyLogoURL = c.CompanyName, c.LogoURL
	}
	if r, ok := s.researchers[ch.ResearcherID]; ok {
		summary.ResearcherFirstName, summary.ResearcherLastName = r.FirstName, r.LastName
		summary.ResearcherAvatarURL = r.AvatarURL
	}
	out.Application = summary

	marker, hasMarker := s.reads[readKey{chatID: ch.ID, userID: viewerUserID}]
	for i := range s.messages {
		m := s.messages[i]
		if m.ChatID != ch.ID {
			continue
		}
		if out.LastMessage == nil || !m.CreatedAt.Before(out.LastMessage.CreatedAt) {
			last := m
			out.LastMessage = &last
		}
		if m.SenderID != viewerUserID && (!hasMarker || m.CreatedAt.After(marker)) {
			out.UnreadCount++
		}
	}
	return out
}

func (s *Store) ListChats(_ context.Context, filter model.ChatFilter) ([]model.Chat, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	chats := []model.Chat{}
	for _, ch := range s.chats {
		if filter.CompanyID != "" && ch.CompanyID != filter.CompanyID {
			continue
		}
		if filter.ResearcherID != "" && ch.ResearcherID != filter.ResearcherID {
			continue
		}
		chats = append(chats, s.chatView(ch, filter.ViewerUserID))
	}
	sort.Slice(chats, func(i, j int) bool { return chats[i].UpdatedAt.After(chats[j].UpdatedAt) })
	return chats, nil
}

func (s *Store) GetChat(_ context.Context, id, viewerUserID string) (*model.Chat, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	ch, ok := s.chats[id]
	if !ok {
		return nil, repository.ErrNotFound
	}
	out := s.chatView(ch, viewerUserID)
	return &out, nil
}

func (s *Store) ChatExistsForApplication(_ context.Context, applicationID string) (bool, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.chatByApplication(applicationID) != nil, nil
}

func (s *Store) chatByApplication(applicationID string) *model.Chat {
	for _, ch := range s.chats {
		if ch.ApplicationID == applicationID {
			return ch
		}
	}
	return nil
}

func (s *Store) CreateChat(_ context.Context, ch *model.Chat) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.applications[ch.ApplicationID]; !ok {
		return repository.ErrNotFound
	}
	if s.chatByApplication(ch.ApplicationID) != nil {
		return repository.ErrConflict
	}
	ch.CreatedAt = s.now()
	ch.UpdatedAt = ch.CreatedAt
	cp := *ch
	cp.Application, cp.LastMessage, cp.Messages, cp.UnreadCount = nil, nil, nil, 0
	s.chats[ch.ID] = &cp
	return nil
}

func (s *Store) UpdateChatStatus(_ context.Context, id string, status model.ChatStatus) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	ch, ok := s.chats[id]
	if !ok {
		return repository.ErrNotFound
	}
	ch.Status = status
	ch.UpdatedAt = s.now()
	return nil
}

func (s *Store) AppendMessage(_ context.Context, m *model.Message) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	ch, ok := s.chats[m.ChatID]
	if !ok || ch.Status != model.ChatActive {
		return repository.ErrConflict
	}
	if !m.CreatedAt.After(s.last) {
		m.CreatedAt = s.now()
	} else {
		s.last = m.CreatedAt
	}
	s.messages = append(s.messages, *m)
	ch.UpdatedAt = m.CreatedAt
	s.advanceRead(m.ChatID, m.SenderID, m.CreatedAt)
	return nil
}

func (s *Store) ListMessages(_ context.Context, chatID string, since *time.Time) ([]model.Message, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	messages := []model.Message{}
	for _, m := range s.messages {
		if m.ChatID != chatID {
			continue
		}
		if since != nil && !m.CreatedAt.After(*since) {
			continue
		}
		messages = append(messages, m)
	}
	sort.SliceStable(messages, func(i, j int) bool { return messages[i].CreatedAt.Before(messages[j].CreatedAt) })
	return messages, nil
}

func (s *Store) GetMessage(_ context.Context, chatID, messageID string) (*model.Message, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	for _, m := range s.messages {
		if m.ChatID == chatID && m.ID == messageID {
			out := m
			return &out, nil
		}
	}
	return nil, repository.ErrNotFound
}

func (s *Store) MarkChatRead(_ context.Context, chatID, userID string, at time.Time) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.advanceRead(chatID, userID, at)
	return nil
}

func (s *Store) dropMessages(chatID string) {
	kept := s.messages[:0]
	for _, m := range s.messages {
		if m.ChatID != chatID {
			kept = append(kept, m)
		}
	}
	s.messages = kept
}

func (s *Store) advanceRead(chatID, userID string, at time.Time) {
	key := readKey{chatID: chatID, userID: userID}
	if current, ok := s.reads[key]; !ok || at.After(current) {
		s.reads[key] = at
	}
}
