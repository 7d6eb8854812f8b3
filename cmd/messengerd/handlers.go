package main

import (
	"context"

	"github.com/sirupsen/logrus"

	"github.com/mejooo/fb_messenger/pkg/messenger"
)

type echoBot struct {
	log *logrus.Logger
}

// onMessage echoes text messages. Echoes of the page's own messages are ignored.
func (b *echoBot) onMessage(ctx context.Context, e *messenger.Event) (any, error) {
	m, err := e.AsMessage()
	if err != nil {
		return nil, err
	}
	if m.IsEcho || m.Text == "" {
		return nil, nil
	}
	return nil, e.Reply(ctx, messenger.TextMessage(m.Text))
}

func (b *echoBot) onPostback(_ context.Context, e *messenger.Event) (any, error) {
	p, err := e.AsPostback()
	if err != nil {
		return nil, err
	}
	b.log.WithFields(logrus.Fields{"sender_id": e.SenderID, "payload": p.Payload}).Info("postback")
	return p, nil
}

func registerHandlers(m *messenger.CallbackManager, log *logrus.Logger) {
	b := &echoBot{log: log}
	for t, h := range map[messenger.EventType]messenger.HandlerFunc{
		messenger.EventMessage:  b.onMessage,
		messenger.EventPostback: b.onPostback,
	} {
		if err := m.SetCallback(h, t); err != nil {
			log.WithError(err).Fatal("register callback")
		}
	}
}
