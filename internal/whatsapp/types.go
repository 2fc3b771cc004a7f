package whatsapp

import "encoding/json"

// WebhookPayload is the top-level WhatsApp Cloud API webhook body.
type WebhookPayload struct {
	Object string  `json:"object"`
	Entry  []Entry `json:"entry"`
}

type Entry struct {
	ID      string   `json:"id"`
	Changes []Change `json:"changes"`
}

type Change struct {
	Value ChangeValue `json:"value"`
	Field string      `json:"field"`
}

type ChangeValue struct {
	MessagingProduct string     `json:"messaging_product"`
	Metadata         Metadata   `json:"metadata"`
	Contacts         []Contact  `json:"contacts,omitempty"`
	Messages         []Message  `json:"messages,omitempty"`
	Statuses         []Status   `json:"statuses,omitempty"`
	Errors           []APIError `json:"errors,omitempty"`
}

type Metadata struct {
	DisplayPhoneNumber string `json:"display_phone_number"`
	PhoneNumberID      string `json:"phone_number_id"`
}

type Contact struct {
	Profile ProfileInfo `json:"profile"`
	WaID    string      `json:"wa_id"`
}

type ProfileInfo struct {
	Name string `json:"name"`
}

// Message is one inbound message object. Exactly one of the typed content
// fields is set, matching the Type tag.
type Message struct {
	From      string           `json:"from"`
	ID        string           `json:"id"`
	Timestamp string           `json:"timestamp"`
	Type      string           `json:"type"`
	Text      *TextContent     `json:"text,omitempty"`
	Image     *MediaContent    `json:"image,omitempty"`
	Video     *MediaContent    `json:"video,omitempty"`
	Audio     *MediaContent    `json:"audio,omitempty"`
	Document  *DocumentContent `json:"document,omitempty"`
	Context   *ContextInfo     `json:"context,omitempty"`
	Errors    []APIError       `json:"errors,omitempty"`

	// Raw content for types we do not model explicitly.
	Interactive *json.RawMessage `json:"interactive,omitempty"`
}

type TextContent struct {
	Body string `json:"body"`
}

type MediaContent struct {
	ID       string `json:"id"`
	MimeType string `json:"mime_type,omitempty"`
	SHA256   string `json:"sha256,omitempty"`
	Caption  string `json:"caption,omitempty"`
}

type DocumentContent struct {
	ID       string `json:"id"`
	MimeType string `json:"mime_type,omitempty"`
	SHA256   string `json:"sha256,omitempty"`
	Caption  string `json:"caption,omitempty"`
	Filename string `json:"filename,omitempty"`
}

type ContextInfo struct {
	From string `json:"from"`
	ID   string `json:"id"`
}

// Status is a delivery/read receipt for a previously sent message.
type Status struct {
	ID          string     `json:"id"`
	Status      string     `json:"status"`
	Timestamp   string     `json:"timestamp"`
	RecipientID string     `json:"recipient_id"`
	Errors      []APIError `json:"errors,omitempty"`
}

type APIError struct {
	Code    int    `json:"code"`
	Title   string `json:"title"`
	Message string `json:"message,omitempty"`
}

// ContactName returns the display name reported for the given wa_id, if any.
func (v ChangeValue) ContactName(waID string) string {
	for _, c := range v.Contacts {
		if c.WaID == waID {
			return c.Profile.Name
		}
	}
	return ""
}
