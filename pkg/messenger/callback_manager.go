package messenger

import (
	"context"
	"sync"

	"github.com/sirupsen/logrus"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"

	"github.com/mejooo/fb_messenger/pkg/metrics"
)

// Handler is invoked for every dispatched Event of the type it is registered
// for. The returned value is handed back to the dispatcher unchanged; nil is a
// fine answer.
type Handler interface {
	HandleEvent(ctx context.Context, e *Event) (any, error)
}

// HandlerFunc adapts a plain function to Handler.
type HandlerFunc func(ctx context.Context, e *Event) (any, error)

func (f HandlerFunc) HandleEvent(ctx context.Context, e *Event) (any, error) { return f(ctx, e) }

type passthrough struct{}

func (passthrough) HandleEvent(_ context.Context, e *Event) (any, error) { return e, nil }

// Passthrough returns its input event unchanged. Every event type starts bound
// to it.
var Passthrough Handler = passthrough{}

// CallbackManager maps each EventType to its Handler. The key set is fixed to
// EventTypes(); SetCallback can only replace an entry.
type CallbackManager struct {
	mu        sync.RWMutex
	callbacks map[EventType]Handler
	log       *logrus.Logger
}

func NewCallbackManager(log *logrus.Logger) *CallbackManager {
	if log == nil {
		log = logrus.StandardLogger()
	}
	m := &CallbackManager{callbacks: make(map[EventType]Handler, len(eventTypes)), log: log}
	for _, t := range eventTypes {
		m.callbacks[t] = Passthrough
	}
	return m
}

// SetCallback registers h for t. A nil h is rejected before t is checked.
func (m *CallbackManager) SetCallback(h Handler, t EventType) error {
	if isNil(h) {
		return ErrNotCallable
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.callbacks[t]; !ok {
		return unknownType(t)
	}
	m.callbacks[t] = h
	m.log.WithField("event_type", string(t)).Debug("callback registered")
	return nil
}

// GetCallback returns the Handler registered for t.
func (m *CallbackManager) GetCallback(t EventType) (Handler, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	h, ok := m.callbacks[t]
	if !ok {
		return nil, unknownType(t)
	}
	return h, nil
}

// Dispatch looks up the handler for e.Type and runs it synchronously.
func (m *CallbackManager) Dispatch(ctx context.Context, e *Event) (any, error) {
	h, err := e.Callback(m)
	if err != nil {
		metrics.DispatchTotal.WithLabelValues("unknown", "unknown_type").Inc()
		return nil, err
	}

	ctx, span := otel.Tracer("messenger").Start(ctx, "messenger.dispatch")
	defer span.End()
	span.SetAttributes(
		attribute.String("messenger.event_type", string(e.Type)),
		attribute.String("messenger.page_id", e.PageID),
	)

	out, err := h.HandleEvent(ctx, e)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		metrics.DispatchTotal.WithLabelValues(string(e.Type), "error").Inc()
		m.log.WithError(err).WithFields(logrus.Fields{
			"event_type": string(e.Type),
			"sender_id":  e.SenderID,
		}).Warn("handler failed")
		return out, err
	}
	metrics.DispatchTotal.WithLabelValues(string(e.Type), "ok").Inc()
	return out, nil
}

func isNil(h Handler) bool {
	if h == nil {
		return true
	}
	if f, ok := h.(HandlerFunc); ok && f == nil {
		return true
	}
	return false
}
