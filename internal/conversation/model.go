package conversation

import (
	"time"

	"github.com/google/uuid"
)

// Conversation statuses.
const (
	StatusActive = "active"
	StatusClosed = "closed"
)

// Message directions.
const (
	DirectionInbound  = "inbound"
	DirectionOutbound = "outbound"
)

// Message types.
const (
	TypeText     = "text"
	TypeImage    = "image"
	TypeAudio    = "audio"
	TypeVideo    = "video"
	TypeDocument = "document"
	TypeUnknown  = "unknown"
)

// Delivery statuses tracked on outbound messages.
const (
	DeliveryPending   = "pending"
	DeliverySent      = "sent"
	DeliveryDelivered = "delivered"
	DeliveryRead      = "read"
	DeliveryFailed    = "failed"
)

// Conversation is one open thread between an agent and a contact phone.
type Conversation struct {
	ID           uuid.UUID `json:"id"`
	AgentID      uuid.UUID `json:"agent_id"`
	UserID       uuid.UUID `json:"user_id"`
	ContactPhone string    `json:"contact_phone"`
	ContactName  string    `json:"contact_name"`
	Status       string    `json:"status"`
	LeadScore    int       `json:"lead_score"`
	CreatedAt    time.Time `json:"created_at"`
	UpdatedAt    time.Time `json:"updated_at"`
}

// Message is one inbound or outbound message within a conversation.
type Message struct {
	ID                uuid.UUID  `json:"id"`
	ConversationID    uuid.UUID  `json:"conversation_id"`
	AgentID           uuid.UUID  `json:"agent_id"`
	Content           string     `json:"content"`
	MessageType       string     `json:"message_type"`
	Direction         string     `json:"direction"`
	SenderPhone       string     `json:"sender_phone,omitempty"`
	SenderName        string     `json:"sender_name,omitempty"`
	WhatsAppMessageID string     `json:"whatsapp_message_id,omitempty"`
	Status            string     `json:"status"`
	DeliveredAt       *time.Time `json:"delivered_at,omitempty"`
	ReadAt            *time.Time `json:"read_at,omitempty"`
	AIGenerated       bool       `json:"ai_generated"`
	Model             string     `json:"model,omitempty"`
	TokensUsed        int        `json:"tokens_used,omitempty"`
	CreatedAt         time.Time  `json:"created_at"`
}
