package messenger

import (
	"fmt"

	json "github.com/goccy/go-json"
)

// Message is the content of a "message" event.
type Message struct {
	MID         string       `json:"mid"`
	Text        string       `json:"text,omitempty"`
	IsEcho      bool         `json:"is_echo,omitempty"`
	QuickReply  *QuickReply  `json:"quick_reply,omitempty"`
	Attachments []Attachment `json:"attachments,omitempty"`
}

type QuickReply struct {
	Payload string `json:"payload"`
}

type Attachment struct {
	Type    string            `json:"type"`
	Payload AttachmentPayload `json:"payload"`
}

type AttachmentPayload struct {
	URL string `json:"url,omitempty"`
}

// Postback is the content of a "postback" event.
type Postback struct {
	Title   string `json:"title,omitempty"`
	Payload string `json:"payload"`
}

// Read is the content of a "read" event. Everything sent before Watermark has been read.
type Read struct {
	Watermark int64 `json:"watermark"`
}

// Delivery is the content of a "delivery" event.
type Delivery struct {
	MIDs      []string `json:"mids,omitempty"`
	Watermark int64    `json:"watermark"`
}

// Optin is the content of an "optin" event.
type Optin struct {
	Ref     string `json:"ref,omitempty"`
	UserRef string `json:"user_ref,omitempty"`
}

func (e *Event) AsMessage() (*Message, error) {
	var m Message
	return &m, e.decode(EventMessage, &m)
}

func (e *Event) AsPostback() (*Postback, error) {
	var p Postback
	return &p, e.decode(EventPostback, &p)
}

func (e *Event) AsRead() (*Read, error) {
	var r Read
	return &r, e.decode(EventRead, &r)
}

func (e *Event) AsDelivery() (*Delivery, error) {
	var d Delivery
	return &d, e.decode(EventDelivery, &d)
}

func (e *Event) AsOptin() (*Optin, error) {
	var o Optin
	return &o, e.decode(EventOptin, &o)
}

func (e *Event) decode(want EventType, v any) error {
	if e.Type != want {
		return fmt.Errorf("%w: have %q, want %q", ErrWrongEventType, e.Type, want)
	}
	if err := json.Unmarshal(e.Content, v); err != nil {
		return fmt.Errorf("messenger: decode %s content: %w", want, err)
	}
	return nil
}

// OutgoingMessage is the "message" object of a Send API request.
type OutgoingMessage struct {
	Text       string              `json:"text,omitempty"`
	Attachment *OutgoingAttachment `json:"attachment,omitempty"`
}

type OutgoingAttachment struct {
	Type    string            `json:"type"`
	Payload AttachmentPayload `json:"payload"`
}

func TextMessage(text string) OutgoingMessage {
	return OutgoingMessage{Text: text}
}

func ImageMessage(url string) OutgoingMessage {
	return OutgoingMessage{Attachment: &OutgoingAttachment{Type: "image", Payload: AttachmentPayload{URL: url}}}
}
