package agents

import (
	"time"

	"github.com/google/uuid"
)

// Agent statuses.
const (
	StatusActive   = "active"
	StatusInactive = "inactive"
)

// Agent is a configured WhatsApp automation persona. The pipeline only ever
// reads agents; they are managed elsewhere.
type Agent struct {
	ID            uuid.UUID   `json:"id"`
	UserID        uuid.UUID   `json:"user_id"`
	Name          string      `json:"name"`
	PhoneNumberID string      `json:"phone_number_id"`
	AccessToken   string      `json:"access_token"`
	Status        string      `json:"status"`
	Model         string      `json:"model"`
	Temperature   float32     `json:"temperature"`
	MaxTokens     int         `json:"max_tokens"`
	SystemPrompt  string      `json:"system_prompt"`
	Personality   Personality `json:"personality"`
	Context       string      `json:"context"`
	CreatedAt     time.Time   `json:"created_at"`
}

// Personality is the free-form tone configuration for generated replies.
type Personality struct {
	Tone     string `json:"tone,omitempty"`
	Language string `json:"language,omitempty"`
	Style    string `json:"style,omitempty"`
}

// IsActive reports whether the agent should auto-reply.
func (a *Agent) IsActive() bool {
	return a.Status == StatusActive
}

// Empty reports whether no personality fields are set.
func (p Personality) Empty() bool {
	return p.Tone == "" && p.Language == "" && p.Style == ""
}
