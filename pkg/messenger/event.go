package messenger

import (
	"context"
	"fmt"

	json "github.com/goccy/go-json"
	"github.com/tidwall/gjson"
	"github.com/tidwall/sjson"
)

// Keys consumed by ParseEvent before the event type is resolved.
const (
	keySender    = "sender"
	keyRecipient = "recipient"
	keyTimestamp = "timestamp"
)

// Event is one messaging item of a webhook notification.
type Event struct {
	SenderID    string
	RecipientID string
	PageID      string
	PageToken   string

	// Timestamp is nil when the item carried none.
	Timestamp *int64
	Type      EventType
	// Content is the value stored under the Type key.
	Content json.RawMessage
	// Raw is the item without sender, recipient and timestamp.
	Raw json.RawMessage

	graph *GraphClient
}

// EventOption customises ParseEvent.
type EventOption func(*Event)

// WithGraph binds the Graph client used by UserInfo and Reply.
func WithGraph(g *GraphClient) EventOption {
	return func(e *Event) { e.graph = g }
}

// ParseEvent builds an Event from a single messaging item:
//
//	{"sender":{"id":..},"recipient":{"id":..},"timestamp":..,"<type>":<content>}
//
// data is never modified. After sender, recipient and timestamp are removed
// exactly one key must remain; it names the event type. Unknown type names are
// accepted here and rejected by Callback.
func ParseEvent(data []byte, pageID, pageToken string, opts ...EventOption) (*Event, error) {
	if !gjson.ValidBytes(data) {
		return nil, fmt.Errorf("%w: invalid json", ErrMalformedEvent)
	}
	root := gjson.ParseBytes(data)
	if !root.IsObject() {
		return nil, fmt.Errorf("%w: messaging item is not an object", ErrMalformedEvent)
	}

	sender := root.Get(keySender + ".id")
	if !sender.Exists() || sender.String() == "" {
		return nil, fmt.Errorf("%w: missing sender.id", ErrMalformedEvent)
	}
	recipient := root.Get(keyRecipient + ".id")
	if !recipient.Exists() || recipient.String() == "" {
		return nil, fmt.Errorf("%w: missing recipient.id", ErrMalformedEvent)
	}

	e := &Event{
		SenderID:    sender.String(),
		RecipientID: recipient.String(),
		PageID:      pageID,
		PageToken:   pageToken,
	}
	for _, o := range opts {
		o(e)
	}

	if ts := root.Get(keyTimestamp); ts.Exists() && ts.Type != gjson.Null {
		if ts.Type != gjson.Number {
			return nil, fmt.Errorf("%w: timestamp is not a number", ErrMalformedEvent)
		}
		v := ts.Int()
		e.Timestamp = &v
	}

	var keys []string
	var content string
	root.ForEach(func(k, v gjson.Result) bool {
		switch k.String() {
		case keySender, keyRecipient, keyTimestamp:
			return true
		}
		if len(keys) == 0 {
			content = v.Raw
		}
		keys = append(keys, k.String())
		return true
	})
	switch len(keys) {
	case 0:
		return nil, ErrNoEventType
	case 1:
	default:
		return nil, &AmbiguousEventError{Keys: keys}
	}
	e.Type = EventType(keys[0])
	e.Content = json.RawMessage(content)

	raw := root.Raw
	for _, k := range []string{keySender, keyRecipient, keyTimestamp} {
		var err error
		if raw, err = sjson.Delete(raw, k); err != nil {
			return nil, fmt.Errorf("%w: %v", ErrMalformedEvent, err)
		}
	}
	e.Raw = json.RawMessage(raw)
	return e, nil
}

// Callback returns the handler m has for this event's type.
func (e *Event) Callback(m *CallbackManager) (Handler, error) {
	return m.GetCallback(e.Type)
}

// UserInfo fetches the sender's public profile with the page token. The
// decoded body is returned without further validation.
func (e *Event) UserInfo(ctx context.Context) (map[string]any, error) {
	return e.client().UserProfile(ctx, e.SenderID, e.PageToken)
}

// Reply sends msg to the sender of e. msg is marshalled as the "message"
// object of the Send API request.
func (e *Event) Reply(ctx context.Context, msg any) error {
	return e.client().SendMessage(ctx, e.SenderID, e.PageToken, msg)
}

func (e *Event) client() *GraphClient {
	if e.graph != nil {
		return e.graph
	}
	return DefaultGraph
}
