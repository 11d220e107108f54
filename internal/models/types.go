package models

import (
	"time"
)

// Chat roles carried in Message.Role.
const (
	RoleUser      = "user"
	RoleAssistant = "assistant"
	RoleSystem    = "system"
)

// Message represents a single chat message
type Message struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

// ChatSession represents one conversation's state
type ChatSession struct {
	ID           string          `json:"id"`
	Messages     []Message       `json:"messages"`
	LastActivity time.Time       `json:"last_activity"`
	Settings     SessionSettings `json:"settings"`
}

// SessionSettings represents per-session settings
type SessionSettings struct {
	Provider     string `json:"provider"`
	Model        string `json:"model"`
	SystemPrompt string `json:"system_prompt"`
	Language     string `json:"language"`
}

// StreamRequest represents the request body sent to a provider endpoint
type StreamRequest struct {
	Messages []Message `json:"messages"`
	System   string    `json:"system,omitempty"`
	Provider string    `json:"provider,omitempty"`
	Model    string    `json:"model"`
}

// Clone returns a deep copy so callers can snapshot a session without
// racing the controller's mutations.
func (s *ChatSession) Clone() *ChatSession {
	out := &ChatSession{
		ID:           s.ID,
		Messages:     make([]Message, len(s.Messages)),
		LastActivity: s.LastActivity,
		Settings:     s.Settings,
	}
	copy(out.Messages, s.Messages)
	return out
}
