package whatsapp

import (
	"bytes"
	"context"
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"

	"github.com/nomadev-io/whatsapp-autopilot/pkg/logging"
)

var clientTracer = otel.Tracer("autopilot.internal.whatsapp.client")

// Client sends messages through the WhatsApp Cloud API. Credentials are
// per-call because each agent carries its own phone number id and token.
type Client struct {
	baseURL    string
	apiVersion string
	httpClient *http.Client
	logger     *logging.Logger
}

// NewClient creates a Cloud API client against the given Graph API base URL.
func NewClient(baseURL, apiVersion string, timeout time.Duration, logger *logging.Logger) *Client {
	if baseURL == "" {
		baseURL = "https://graph.facebook.com"
	}
	if apiVersion == "" {
		apiVersion = "v21.0"
	}
	if timeout <= 0 {
		timeout = 15 * time.Second
	}
	if logger == nil {
		logger = logging.Default()
	}
	return &Client{
		baseURL:    strings.TrimSuffix(baseURL, "/"),
		apiVersion: apiVersion,
		httpClient: &http.Client{Timeout: timeout},
		logger:     logger,
	}
}

type sendTextRequest struct {
	MessagingProduct string   `json:"messaging_product"`
	To               string   `json:"to"`
	Type             string   `json:"type"`
	Text             textBody `json:"text"`
}

type textBody struct {
	Body string `json:"body"`
}

type sendResponse struct {
	Messages []struct {
		ID string `json:"id"`
	} `json:"messages"`
	Error *struct {
		Message string `json:"message"`
		Type    string `json:"type"`
		Code    int    `json:"code"`
	} `json:"error"`
}

// SendText delivers a text message from the given phone number id and returns
// the provider-assigned message id.
func (c *Client) SendText(ctx context.Context, phoneNumberID, accessToken, to, body string) (string, error) {
	ctx, span := clientTracer.Start(ctx, "whatsapp.send_text")
	defer span.End()
	span.SetAttributes(
		attribute.String("autopilot.whatsapp.phone_number_id", phoneNumberID),
		attribute.String("autopilot.whatsapp.to", to),
	)

	payload, err := json.Marshal(sendTextRequest{
		MessagingProduct: "whatsapp",
		To:               to,
		Type:             "text",
		Text:             textBody{Body: body},
	})
	if err != nil {
		return "", fmt.Errorf("whatsapp: marshal send request: %w", err)
	}

	url := fmt.Sprintf("%s/%s/%s/messages", c.baseURL, c.apiVersion, phoneNumberID)
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(payload))
	if err != nil {
		return "", fmt.Errorf("whatsapp: create send request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", "Bearer "+accessToken)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		span.RecordError(err)
		return "", fmt.Errorf("whatsapp: send request: %w", err)
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return "", fmt.Errorf("whatsapp: read send response: %w", err)
	}

	var parsed sendResponse
	if err := json.Unmarshal(respBody, &parsed); err != nil {
		return "", fmt.Errorf("whatsapp: decode send response: %w", err)
	}
	if resp.StatusCode < 200 || resp.StatusCode >= 300 || parsed.Error != nil {
		if parsed.Error != nil {
			c.logger.Error("whatsapp send rejected",
				"status", resp.StatusCode,
				"code", parsed.Error.Code,
				"message", parsed.Error.Message,
			)
			return "", fmt.Errorf("whatsapp: send failed [%d]: %s", parsed.Error.Code, parsed.Error.Message)
		}
		return "", fmt.Errorf("whatsapp: send failed with status %d", resp.StatusCode)
	}
	if len(parsed.Messages) == 0 || parsed.Messages[0].ID == "" {
		return "", fmt.Errorf("whatsapp: send response missing message id")
	}
	return parsed.Messages[0].ID, nil
}

// VerifySignature validates the X-Hub-Signature-256 header over the raw body.
// Signature format: "sha256=<hex>".
func VerifySignature(body []byte, signature, appSecret string) bool {
	if signature == "" || !strings.HasPrefix(signature, "sha256=") {
		return false
	}
	sig, err := hex.DecodeString(strings.TrimPrefix(signature, "sha256="))
	if err != nil {
		return false
	}
	mac := hmac.New(sha256.New, []byte(appSecret))
	mac.Write(body)
	return hmac.Equal(sig, mac.Sum(nil))
}
