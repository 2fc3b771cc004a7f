package conversation

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"time"

	"github.com/google/uuid"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"

	"github.com/nomadev-io/whatsapp-autopilot/internal/agents"
	observemetrics "github.com/nomadev-io/whatsapp-autopilot/internal/observability/metrics"
	"github.com/nomadev-io/whatsapp-autopilot/internal/whatsapp"
	"github.com/nomadev-io/whatsapp-autopilot/pkg/logging"
)

var processorTracer = otel.Tracer("autopilot.internal.conversation.processor")

type messageStore interface {
	ResolveActive(ctx context.Context, agentID, userID uuid.UUID, contactPhone, contactName string) (*Conversation, error)
	InsertInbound(ctx context.Context, msg Message) (uuid.UUID, bool, error)
	InsertOutbound(ctx context.Context, msg Message) (uuid.UUID, error)
	RecentMessages(ctx context.Context, conversationID uuid.UUID, limit int) ([]Message, error)
	MarkSent(ctx context.Context, messageID uuid.UUID, whatsappMessageID string) error
	MarkFailed(ctx context.Context, messageID uuid.UUID) error
	ApplyStatus(ctx context.Context, whatsappMessageID, status string, occurredAt time.Time) (int64, error)
}

type replyGenerator interface {
	GenerateReply(ctx context.Context, agent *agents.Agent, contactName string, history []Message, userMessage string) (*Reply, error)
}

type textSender interface {
	SendText(ctx context.Context, phoneNumberID, accessToken, to, body string) (string, error)
}

// Processor runs the per-change message pipeline: agent resolution,
// conversation resolution, inbound persistence, reply generation, outbound
// dispatch, and status tracking.
type Processor struct {
	agents       agents.Repository
	store        messageStore
	replies      replyGenerator
	sender       textSender
	logger       *logging.Logger
	metrics      *observemetrics.WebhookMetrics
	historyLimit int
}

// ProcessorConfig wires a Processor.
type ProcessorConfig struct {
	Agents       agents.Repository
	Store        messageStore
	Replies      replyGenerator
	Sender       textSender
	Logger       *logging.Logger
	Metrics      *observemetrics.WebhookMetrics
	HistoryLimit int
}

func NewProcessor(cfg ProcessorConfig) *Processor {
	if cfg.Agents == nil {
		panic("conversation: agents repository required")
	}
	if cfg.Store == nil {
		panic("conversation: store required")
	}
	if cfg.Replies == nil {
		panic("conversation: reply generator required")
	}
	if cfg.Sender == nil {
		panic("conversation: sender required")
	}
	if cfg.Logger == nil {
		cfg.Logger = logging.Default()
	}
	if cfg.HistoryLimit <= 0 {
		cfg.HistoryLimit = 10
	}
	return &Processor{
		agents:       cfg.Agents,
		store:        cfg.Store,
		replies:      cfg.Replies,
		sender:       cfg.Sender,
		logger:       cfg.Logger,
		metrics:      cfg.Metrics,
		historyLimit: cfg.HistoryLimit,
	}
}

// ProcessValue handles one webhook change value: every message and status in
// it is processed independently and yields its own Outcome. A failure in one
// item never aborts the others.
func (p *Processor) ProcessValue(ctx context.Context, value whatsapp.ChangeValue) []Outcome {
	phoneNumberID := value.Metadata.PhoneNumberID
	if phoneNumberID == "" {
		return []Outcome{Skipped("missing phone_number_id")}
	}

	agent, err := p.agents.GetByPhoneNumberID(ctx, phoneNumberID)
	if err != nil {
		if errors.Is(err, agents.ErrAgentNotFound) {
			// Deliberate silent drop: unrecognized numbers (test pings,
			// stale subscriptions) must not fail the batch.
			p.logger.Warn("no agent for phone number id", "phone_number_id", phoneNumberID)
			return []Outcome{Skipped("unknown phone_number_id")}
		}
		p.logger.Error("agent lookup failed", "error", err, "phone_number_id", phoneNumberID)
		return []Outcome{Failed(err)}
	}

	outcomes := make([]Outcome, 0, len(value.Messages)+len(value.Statuses))
	for _, msg := range value.Messages {
		outcome := p.processMessage(ctx, agent, value, msg)
		if outcome.Kind == OutcomeFailed {
			p.logger.Error("message processing failed",
				"error", outcome.Err,
				"whatsapp_message_id", msg.ID,
				"agent_id", agent.ID,
			)
		}
		p.metrics.ObserveInbound(msg.Type, string(outcome.Kind))
		outcomes = append(outcomes, outcome)
	}
	for _, status := range value.Statuses {
		outcome := p.processStatus(ctx, status)
		if outcome.Kind == OutcomeFailed {
			p.logger.Error("status processing failed", "error", outcome.Err, "whatsapp_message_id", status.ID)
		}
		p.metrics.ObserveStatus(status.Status)
		outcomes = append(outcomes, outcome)
	}
	return outcomes
}

func (p *Processor) processMessage(ctx context.Context, agent *agents.Agent, value whatsapp.ChangeValue, msg whatsapp.Message) Outcome {
	ctx, span := processorTracer.Start(ctx, "conversation.process_message")
	defer span.End()
	span.SetAttributes(
		attribute.String("autopilot.agent_id", agent.ID.String()),
		attribute.String("autopilot.whatsapp_message_id", msg.ID),
		attribute.String("autopilot.message_type", msg.Type),
	)

	contactName := value.ContactName(msg.From)
	if contactName == "" {
		contactName = msg.From
	}
	conv, err := p.store.ResolveActive(ctx, agent.ID, agent.UserID, msg.From, contactName)
	if err != nil {
		span.RecordError(err)
		return Failed(err)
	}

	content, messageType := NormalizeContent(msg)
	if messageType == TypeUnknown {
		p.logger.Warn("unsupported message type stored as placeholder",
			"type", msg.Type,
			"whatsapp_message_id", msg.ID,
		)
	}

	_, inserted, err := p.store.InsertInbound(ctx, Message{
		ConversationID:    conv.ID,
		AgentID:           agent.ID,
		Content:           content,
		MessageType:       messageType,
		SenderPhone:       msg.From,
		SenderName:        contactName,
		WhatsAppMessageID: msg.ID,
	})
	if err != nil {
		span.RecordError(err)
		return Failed(err)
	}
	if !inserted {
		// Provider redelivery of a message we already handled.
		return Skipped("duplicate message id")
	}

	if messageType != TypeText {
		return Stored()
	}
	if !agent.IsActive() {
		return Skipped("agent inactive")
	}

	return p.reply(ctx, agent, conv, contactName, content, msg.From)
}

func (p *Processor) reply(ctx context.Context, agent *agents.Agent, conv *Conversation, contactName, userMessage, to string) Outcome {
	history, err := p.store.RecentMessages(ctx, conv.ID, p.historyLimit)
	if err != nil {
		return Failed(err)
	}
	// The just-stored inbound message is part of history; the generator
	// appends the user turn itself.
	if n := len(history); n > 0 && history[n-1].Direction == DirectionInbound && history[n-1].Content == userMessage {
		history = history[:n-1]
	}

	start := time.Now()
	reply, err := p.replies.GenerateReply(ctx, agent, contactName, history, userMessage)
	if err != nil {
		return Failed(err)
	}
	p.metrics.ObserveReply(time.Since(start).Seconds(), reply.TokensUsed)

	messageID, err := p.store.InsertOutbound(ctx, Message{
		ConversationID: conv.ID,
		AgentID:        agent.ID,
		Content:        reply.Content,
		Model:          reply.Model,
		TokensUsed:     reply.TokensUsed,
	})
	if err != nil {
		return Failed(err)
	}

	wamid, err := p.sender.SendText(ctx, agent.PhoneNumberID, agent.AccessToken, to, reply.Content)
	if err != nil {
		p.metrics.ObserveSend("failed")
		if markErr := p.store.MarkFailed(ctx, messageID); markErr != nil {
			p.logger.Error("failed to mark undelivered reply", "error", markErr, "message_id", messageID)
		}
		return Failed(fmt.Errorf("conversation: dispatch reply: %w", err))
	}
	p.metrics.ObserveSend("sent")

	if err := p.store.MarkSent(ctx, messageID, wamid); err != nil {
		// The reply reached the contact; only our bookkeeping lagged.
		p.logger.Error("failed to record provider message id", "error", err, "message_id", messageID)
	}
	return Replied()
}

func (p *Processor) processStatus(ctx context.Context, status whatsapp.Status) Outcome {
	ctx, span := processorTracer.Start(ctx, "conversation.process_status")
	defer span.End()
	span.SetAttributes(
		attribute.String("autopilot.whatsapp_message_id", status.ID),
		attribute.String("autopilot.status", status.Status),
	)

	occurredAt := time.Now().UTC()
	if unix, err := strconv.ParseInt(status.Timestamp, 10, 64); err == nil {
		occurredAt = time.Unix(unix, 0).UTC()
	}

	affected, err := p.store.ApplyStatus(ctx, status.ID, status.Status, occurredAt)
	if err != nil {
		span.RecordError(err)
		return Failed(err)
	}
	if affected == 0 {
		// Status for a message we never stored, e.g. a race with dispatch.
		return Skipped("no matching message")
	}
	return Updated()
}

// NormalizeContent maps a WhatsApp message to stored (content, type).
// Media types keep a placeholder body; unrecognized types are preserved
// distinctly instead of collapsing into empty text.
func NormalizeContent(msg whatsapp.Message) (string, string) {
	switch msg.Type {
	case TypeText:
		if msg.Text != nil {
			return msg.Text.Body, TypeText
		}
		return "", TypeText
	case TypeImage:
		return "[Imagen]", TypeImage
	case TypeAudio:
		return "[Audio]", TypeAudio
	case TypeVideo:
		return "[Video]", TypeVideo
	case TypeDocument:
		if msg.Document != nil && msg.Document.Filename != "" {
			return fmt.Sprintf("[Documento: %s]", msg.Document.Filename), TypeDocument
		}
		return "[Documento]", TypeDocument
	default:
		return fmt.Sprintf("[Mensaje no soportado: %s]", msg.Type), TypeUnknown
	}
}
