package messenger

// EventType names the kind of a webhook notification. It is the key of the
// content field inside a messaging item.
type EventType string

const (
	EventMessage  EventType = "message"
	EventPostback EventType = "postback"
	EventRead     EventType = "read"
	EventDelivery EventType = "delivery"
	EventOptin    EventType = "optin"
)

var eventTypes = []EventType{EventMessage, EventPostback, EventRead, EventDelivery, EventOptin}

// EventTypes returns the supported event types in canonical order.
func EventTypes() []EventType {
	out := make([]EventType, len(eventTypes))
	copy(out, eventTypes)
	return out
}

// Valid reports whether t is one of the supported event types.
func (t EventType) Valid() bool {
	for _, v := range eventTypes {
		if v == t {
			return true
		}
	}
	return false
}

func (t EventType) String() string { return string(t) }
