package whatsapp

import (
	"context"
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/nomadev-io/whatsapp-autopilot/pkg/logging"
)

func TestSendText(t *testing.T) {
	var gotAuth string
	var gotBody sendTextRequest
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/v21.0/12345/messages" {
			t.Errorf("unexpected path: %s", r.URL.Path)
		}
		gotAuth = r.Header.Get("Authorization")
		if err := json.NewDecoder(r.Body).Decode(&gotBody); err != nil {
			t.Fatalf("decode request: %v", err)
		}
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"messages":[{"id":"wamid.OUT1"}]}`))
	}))
	defer srv.Close()

	client := NewClient(srv.URL, "v21.0", 5*time.Second, logging.Default())
	id, err := client.SendText(context.Background(), "12345", "token-abc", "5551234", "hello there")
	if err != nil {
		t.Fatalf("SendText: %v", err)
	}
	if id != "wamid.OUT1" {
		t.Errorf("expected wamid.OUT1, got %s", id)
	}
	if gotAuth != "Bearer token-abc" {
		t.Errorf("unexpected auth header: %s", gotAuth)
	}
	if gotBody.MessagingProduct != "whatsapp" || gotBody.To != "5551234" || gotBody.Text.Body != "hello there" {
		t.Errorf("unexpected request body: %+v", gotBody)
	}
}

func TestSendTextAPIError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusBadRequest)
		_, _ = w.Write([]byte(`{"error":{"message":"invalid token","type":"OAuthException","code":190}}`))
	}))
	defer srv.Close()

	client := NewClient(srv.URL, "v21.0", 5*time.Second, logging.Default())
	if _, err := client.SendText(context.Background(), "12345", "bad", "5551234", "hi"); err == nil {
		t.Fatal("expected error for rejected send")
	}
}

func TestSendTextMissingID(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`{"messages":[]}`))
	}))
	defer srv.Close()

	client := NewClient(srv.URL, "v21.0", 5*time.Second, logging.Default())
	if _, err := client.SendText(context.Background(), "12345", "tok", "5551234", "hi"); err == nil {
		t.Fatal("expected error for empty message list")
	}
}

func TestVerifySignature(t *testing.T) {
	body := []byte(`{"entry":[]}`)
	secret := "app-secret"
	mac := hmac.New(sha256.New, []byte(secret))
	mac.Write(body)
	valid := "sha256=" + hex.EncodeToString(mac.Sum(nil))

	if !VerifySignature(body, valid, secret) {
		t.Error("expected valid signature to verify")
	}
	if VerifySignature(body, valid, "wrong-secret") {
		t.Error("expected mismatched secret to fail")
	}
	if VerifySignature(body, "sha256=zzzz", secret) {
		t.Error("expected malformed hex to fail")
	}
	if VerifySignature(body, "", secret) {
		t.Error("expected empty signature to fail")
	}
}

func TestDecodeWebhookPayload(t *testing.T) {
	raw := `{
		"object": "whatsapp_business_account",
		"entry": [{
			"id": "entry-1",
			"changes": [{
				"field": "messages",
				"value": {
					"messaging_product": "whatsapp",
					"metadata": {"display_phone_number": "15550001111", "phone_number_id": "123"},
					"contacts": [{"profile": {"name": "Ana"}, "wa_id": "5551234"}],
					"messages": [{
						"from": "5551234",
						"id": "wamid.A",
						"timestamp": "1714000000",
						"type": "text",
						"text": {"body": "hola"}
					}]
				}
			}]
		}]
	}`

	var payload WebhookPayload
	if err := json.Unmarshal([]byte(raw), &payload); err != nil {
		t.Fatalf("unmarshal: %v", err)
	}
	if len(payload.Entry) != 1 || len(payload.Entry[0].Changes) != 1 {
		t.Fatalf("unexpected shape: %+v", payload)
	}
	value := payload.Entry[0].Changes[0].Value
	if value.Metadata.PhoneNumberID != "123" {
		t.Errorf("unexpected phone number id: %s", value.Metadata.PhoneNumberID)
	}
	if value.Messages[0].Text == nil || value.Messages[0].Text.Body != "hola" {
		t.Errorf("unexpected message content: %+v", value.Messages[0])
	}
	if got := value.ContactName("5551234"); got != "Ana" {
		t.Errorf("expected contact name Ana, got %q", got)
	}
	if got := value.ContactName("other"); got != "" {
		t.Errorf("expected empty name for unknown wa_id, got %q", got)
	}
}
