package model

import "time"

type ChatStatus string

const (
	ChatActive   ChatStatus = "active"
	ChatClosed   ChatStatus = "closed"
	ChatArchived ChatStatus = "archived"
)

func (s ChatStatus) Valid() bool {
	switch s {
	case ChatActive, ChatClosed, ChatArchived:
		return true
	}
	return false
}

type MessageType string

const (
	MessageText MessageType = "text"
	MessageFile MessageType = "file"
)

func (t MessageType) Valid() bool {
	return t == MessageText || t == MessageFile
}

type Chat struct {
	ID            string       `json:"id"`
	ApplicationID string       `json:"application_id"`
	CompanyID     string       `json:"company_id"`
	ResearcherID  string       `json:"researcher_id"`
	Status        ChatStatus   `json:"status"`
	CreatedAt     time.Time    `json:"created_at"`
	UpdatedAt     time.Time    `json:"updated_at"`
	Application   *ChatSummary `json:"applications,omitempty"`
	LastMessage   *Message     `json:"last_message,omitempty"`
	UnreadCount   int          `json:"unread_count"`
	Messages      []Message    `json:"messages,omitempty"`
}

// ChatSummary is the application and project context shown on a chat.
type ChatSummary struct {
	ProjectID           string  `json:"project_id"`
	ProjectTitle        string  `json:"project_title"`
	CompanyName         string  `json:"company_name"`
	CompanyLogoURL      *string `json:"company_logo_url"`
	ResearcherFirstName string  `json:"researcher_first_name"`
	ResearcherLastName  string  `json:"researcher_last_name"`
	ResearcherAvatarURL *string `json:"researcher_avatar_url"`
}

type Message struct {
	ID          string      `json:"id"`
	ChatID      string      `json:"chat_id"`
	SenderID    string      `json:"sender_id"`
	Content     string      `json:"content"`
	MessageType MessageType `json:"message_type"`
	FileURL     *string     `json:"file_url"`
	CreatedAt   time.Time   `json:"created_at"`
}

type NewMessage struct {
	Content     string      `json:"content"`
	MessageType MessageType `json:"message_type"`
	FileURL     *string     `json:"file_url"`
}

// ChatFilter narrows a chat listing to one side. ViewerUserID decides which
// messages count as unread.
type ChatFilter struct {
	CompanyID    string
	ResearcherID string
	ViewerUserID string
}
