package conversation

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	openai "github.com/sashabaranov/go-openai"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"

	"github.com/nomadev-io/whatsapp-autopilot/internal/agents"
	"github.com/nomadev-io/whatsapp-autopilot/pkg/logging"
)

var llmTracer = otel.Tracer("autopilot.internal.conversation.llm")

const (
	defaultTemperature = 0.7
	defaultMaxTokens   = 2000
)

type chatClient interface {
	CreateChatCompletion(ctx context.Context, request openai.ChatCompletionRequest) (openai.ChatCompletionResponse, error)
}

// Reply is a generated response plus its generation metadata.
type Reply struct {
	Content    string
	Model      string
	TokensUsed int
}

// ReplyService drafts replies with an OpenAI-compatible chat completion API,
// using each agent's configured model, temperature, and token budget.
type ReplyService struct {
	client       chatClient
	defaultModel string
	timeout      time.Duration
	logger       *logging.Logger
}

// NewReplyService returns a reply generator backed by the given chat client.
func NewReplyService(client chatClient, defaultModel string, timeout time.Duration, logger *logging.Logger) *ReplyService {
	if client == nil {
		panic("conversation: chat client cannot be nil")
	}
	if defaultModel == "" {
		defaultModel = "gpt-4o-mini"
	}
	if timeout <= 0 {
		timeout = 30 * time.Second
	}
	if logger == nil {
		logger = logging.Default()
	}
	return &ReplyService{
		client:       client,
		defaultModel: defaultModel,
		timeout:      timeout,
		logger:       logger,
	}
}

// GenerateReply builds the chat history (system prompt, prior messages,
// the new user message) and calls the completion endpoint.
func (s *ReplyService) GenerateReply(ctx context.Context, agent *agents.Agent, contactName string, history []Message, userMessage string) (*Reply, error) {
	ctx, span := llmTracer.Start(ctx, "conversation.generate_reply")
	defer span.End()

	model := agent.Model
	if model == "" {
		model = s.defaultModel
	}
	temperature := agent.Temperature
	if temperature == 0 {
		temperature = defaultTemperature
	}
	maxTokens := agent.MaxTokens
	if maxTokens == 0 {
		maxTokens = defaultMaxTokens
	}
	span.SetAttributes(
		attribute.String("autopilot.agent_id", agent.ID.String()),
		attribute.String("autopilot.llm.model", model),
	)

	messages := make([]openai.ChatCompletionMessage, 0, len(history)+2)
	messages = append(messages, openai.ChatCompletionMessage{
		Role:    openai.ChatMessageRoleSystem,
		Content: BuildSystemPrompt(agent, contactName),
	})
	for _, msg := range history {
		role := openai.ChatMessageRoleUser
		if msg.Direction == DirectionOutbound {
			role = openai.ChatMessageRoleAssistant
		}
		messages = append(messages, openai.ChatCompletionMessage{Role: role, Content: msg.Content})
	}
	messages = append(messages, openai.ChatCompletionMessage{
		Role:    openai.ChatMessageRoleUser,
		Content: userMessage,
	})

	callCtx, cancel := context.WithTimeout(ctx, s.timeout)
	defer cancel()

	resp, err := s.client.CreateChatCompletion(callCtx, openai.ChatCompletionRequest{
		Model:       model,
		Messages:    messages,
		Temperature: temperature,
		MaxTokens:   maxTokens,
	})
	if err != nil {
		span.RecordError(err)
		return nil, fmt.Errorf("conversation: completion failed: %w", err)
	}
	if len(resp.Choices) == 0 {
		err := errors.New("conversation: completion returned no choices")
		span.RecordError(err)
		return nil, err
	}

	content := strings.TrimSpace(resp.Choices[0].Message.Content)
	if content == "" {
		return nil, errors.New("conversation: completion returned empty content")
	}
	s.logger.Debug("reply generated",
		"agent_id", agent.ID,
		"model", model,
		"tokens", resp.Usage.TotalTokens,
	)
	return &Reply{
		Content:    content,
		Model:      model,
		TokensUsed: resp.Usage.TotalTokens,
	}, nil
}
