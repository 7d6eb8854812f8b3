package messenger

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/valyala/fasthttp"
)

type stubDoer struct {
	req     fasthttp.Request
	timeout time.Duration
	calls   int

	status int
	body   string
	err    error
}

func (s *stubDoer) DoTimeout(req *fasthttp.Request, resp *fasthttp.Response, timeout time.Duration) error {
	s.calls++
	s.timeout = timeout
	req.CopyTo(&s.req)
	if s.err != nil {
		return s.err
	}
	resp.SetStatusCode(s.status)
	resp.SetBodyString(s.body)
	return nil
}

func parsedEvent(t *testing.T, g *GraphClient) *Event {
	t.Helper()
	ev, err := ParseEvent([]byte(`{"sender":{"id":"U1"},"recipient":{"id":"P1"},"message":{"text":"hi"}}`), "P1", "tok", WithGraph(g))
	require.NoError(t, err)
	return ev
}

func TestReplyPostsSendRequest(t *testing.T) {
	doer := &stubDoer{status: 200, body: `{"recipient_id":"U1","message_id":"m"}`}
	ev := parsedEvent(t, NewGraphClient(GraphConfig{}, doer, testLogger()))

	require.NoError(t, ev.Reply(context.Background(), map[string]any{"text": "hello"}))
	require.Equal(t, 1, doer.calls)

	req := &doer.req
	assert.Equal(t, fasthttp.MethodPost, string(req.Header.Method()))
	assert.Equal(t, "graph.facebook.com", string(req.URI().Host()))
	assert.Equal(t, "/v2.6/me/messages", string(req.URI().Path()))
	assert.Equal(t, "tok", string(req.URI().QueryArgs().Peek("access_token")))
	assert.Equal(t, "application/json", string(req.Header.ContentType()))
	assert.JSONEq(t, `{"recipient":{"id":"U1"},"message":{"text":"hello"}}`, string(req.Body()))
	assert.Equal(t, DefaultGraphTimeout, doer.timeout)
}

func TestReplyWithOutgoingMessage(t *testing.T) {
	doer := &stubDoer{status: 200}
	ev := parsedEvent(t, NewGraphClient(GraphConfig{}, doer, testLogger()))

	require.NoError(t, ev.Reply(context.Background(), ImageMessage("https://example.com/a.png")))
	assert.JSONEq(t, `{"recipient":{"id":"U1"},"message":{"attachment":{"type":"image","payload":{"url":"https://example.com/a.png"}}}}`, string(doer.req.Body()))

	require.NoError(t, ev.Reply(context.Background(), TextMessage("plain")))
	assert.JSONEq(t, `{"recipient":{"id":"U1"},"message":{"text":"plain"}}`, string(doer.req.Body()))
}

func TestReplyErrors(t *testing.T) {
	t.Run("status", func(t *testing.T) {
		doer := &stubDoer{status: 400, body: `{"error":{"message":"bad token"}}`}
		ev := parsedEvent(t, NewGraphClient(GraphConfig{}, doer, testLogger()))

		err := ev.Reply(context.Background(), TextMessage("x"))
		var ge *GraphError
		require.ErrorAs(t, err, &ge)
		assert.Equal(t, 400, ge.Status)
		assert.Equal(t, "send_message", ge.Endpoint)
		assert.Contains(t, string(ge.Body), "bad token")
	})

	t.Run("transport", func(t *testing.T) {
		dial := errors.New("dial tcp: refused")
		doer := &stubDoer{err: dial}
		ev := parsedEvent(t, NewGraphClient(GraphConfig{}, doer, testLogger()))

		require.ErrorIs(t, ev.Reply(context.Background(), TextMessage("x")), dial)
	})
}

func TestUserInfo(t *testing.T) {
	doer := &stubDoer{status: 200, body: `{"first_name":"Ada","last_name":"L","id":"U1"}`}
	g := NewGraphClient(GraphConfig{BaseURL: "https://graph.example.com/", Version: "v19.0", Timeout: time.Second}, doer, testLogger())
	ev := parsedEvent(t, g)

	info, err := ev.UserInfo(context.Background())
	require.NoError(t, err)
	assert.Equal(t, "Ada", info["first_name"])

	req := &doer.req
	assert.Equal(t, fasthttp.MethodGet, string(req.Header.Method()))
	assert.Equal(t, "graph.example.com", string(req.URI().Host()))
	assert.Equal(t, "/v19.0/U1", string(req.URI().Path()))
	assert.Equal(t, "first_name,last_name,profile_pic,locale,timezone,gender", string(req.URI().QueryArgs().Peek("fields")))
	assert.Equal(t, "tok", string(req.URI().QueryArgs().Peek("access_token")))
	assert.Equal(t, time.Second, doer.timeout)
}

func TestUserInfoErrors(t *testing.T) {
	doer := &stubDoer{status: 500, body: `oops`}
	ev := parsedEvent(t, NewGraphClient(GraphConfig{}, doer, testLogger()))

	_, err := ev.UserInfo(context.Background())
	var ge *GraphError
	require.ErrorAs(t, err, &ge)
	assert.Equal(t, 500, ge.Status)

	doer.status = 200
	doer.body = `not json`
	_, err = ev.UserInfo(context.Background())
	require.Error(t, err)
}

func TestEventWithoutGraphUsesDefault(t *testing.T) {
	ev, err := ParseEvent([]byte(`{"sender":{"id":"U1"},"recipient":{"id":"P1"},"message":{}}`), "P1", "tok")
	require.NoError(t, err)
	require.Same(t, DefaultGraph, ev.client())
}
