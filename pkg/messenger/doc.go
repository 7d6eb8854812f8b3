// Package messenger parses Facebook Messenger webhook notifications into
// Events, routes each Event to the Handler registered for its type, and
// answers the sender through the Graph API.
//
// A typical webhook handler looks like:
//
//	callbacks := messenger.NewCallbackManager(log)
//	_ = callbacks.SetCallback(messenger.HandlerFunc(func(ctx context.Context, e *messenger.Event) (any, error) {
//	    return nil, e.Reply(ctx, messenger.TextMessage("hi"))
//	}), messenger.EventMessage)
//
//	ev, err := messenger.ParseEvent(item, pageID, pageToken, messenger.WithGraph(graph))
//	if err != nil { ... }
//	_, err = callbacks.Dispatch(ctx, ev)
//
// The CallbackManager is owned by the application and passed to whoever
// dispatches; there is no package-level registry.
package messenger
