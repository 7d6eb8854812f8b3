package messenger

import (
	"errors"
	"fmt"
	"strings"
)

var (
	// ErrNotCallable is returned when a nil handler is registered.
	ErrNotCallable = errors.New("messenger: callback must be a non-nil handler")
	// ErrMalformedEvent is returned when a messaging item lacks sender/recipient ids
	// or is not a JSON object.
	ErrMalformedEvent = errors.New("messenger: malformed event")
	// ErrNoEventType is returned when nothing is left after sender, recipient
	// and timestamp are removed.
	ErrNoEventType = errors.New("messenger: event has no type field")
	// ErrNotPageObject is returned for envelopes whose object is not "page".
	ErrNotPageObject = errors.New("messenger: webhook object is not a page")
	// ErrWrongEventType is returned by the typed content accessors.
	ErrWrongEventType = errors.New("messenger: content accessor does not match event type")
)

// UnknownEventTypeError reports a lookup or registration for a type outside
// the supported set.
type UnknownEventTypeError struct {
	Type  EventType
	Valid []EventType
}

func (e *UnknownEventTypeError) Error() string {
	names := make([]string, len(e.Valid))
	for i, t := range e.Valid {
		names[i] = string(t)
	}
	return fmt.Sprintf("messenger: event type %q does not exist, must be one of: [%s]",
		string(e.Type), strings.Join(names, ", "))
}

func unknownType(t EventType) error {
	return &UnknownEventTypeError{Type: t, Valid: EventTypes()}
}

// AmbiguousEventError is returned when a messaging item carries more than one
// candidate event field. Keys are listed in document order.
type AmbiguousEventError struct {
	Keys []string
}

func (e *AmbiguousEventError) Error() string {
	return fmt.Sprintf("messenger: ambiguous event, %d candidate type fields: [%s]",
		len(e.Keys), strings.Join(e.Keys, ", "))
}

// GraphError is a non-2xx answer from the Graph API.
type GraphError struct {
	Endpoint string
	Status   int
	Body     []byte
}

func (e *GraphError) Error() string {
	return fmt.Sprintf("messenger: graph %s status %d: %s", e.Endpoint, e.Status, string(e.Body))
}
