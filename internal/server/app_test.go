package server

import (
	"context"
	"io"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/valyala/fasthttp"

	"github.com/mejooo/fb_messenger/pkg/messenger"
)

type recordingDoer struct {
	bodies []string
	status int
}

func (d *recordingDoer) DoTimeout(req *fasthttp.Request, resp *fasthttp.Response, _ time.Duration) error {
	d.bodies = append(d.bodies, string(req.Body()))
	resp.SetStatusCode(d.status)
	return nil
}

func newTestApp(t *testing.T) (*App, *recordingDoer) {
	t.Helper()
	log := logrus.New()
	log.SetOutput(io.Discard)

	doer := &recordingDoer{status: 200}
	graph := messenger.NewGraphClient(messenger.GraphConfig{}, doer, log)
	callbacks := messenger.NewCallbackManager(log)
	require.NoError(t, callbacks.SetCallback(messenger.HandlerFunc(func(ctx context.Context, e *messenger.Event) (any, error) {
		m, err := e.AsMessage()
		if err != nil {
			return nil, err
		}
		return nil, e.Reply(ctx, messenger.TextMessage("echo: "+m.Text))
	}), messenger.EventMessage))

	return NewApp(RootConfig{}, log, callbacks, graph, "page-tok", "verify-me"), doer
}

func serve(h fasthttp.RequestHandler, method, uri, body string) *fasthttp.RequestCtx {
	var req fasthttp.Request
	req.Header.SetMethod(method)
	req.SetRequestURI(uri)
	if body != "" {
		req.SetBodyString(body)
	}
	ctx := &fasthttp.RequestCtx{}
	ctx.Init(&req, nil, nil)
	h(ctx)
	return ctx
}

func TestWebhookDispatchesAndReplies(t *testing.T) {
	app, doer := newTestApp(t)
	body := `{"object":"page","entry":[{"id":"P1","time":1,"messaging":[
		{"sender":{"id":"U1"},"recipient":{"id":"P1"},"timestamp":5,"message":{"mid":"m1","text":"hi"}},
		{"sender":{"id":"U1"},"recipient":{"id":"P1"},"timestamp":6,"read":{"watermark":5}}
	]}]}`

	ctx := serve(app.WebhookHandler(), fasthttp.MethodPost, "/webhook", body)
	require.Equal(t, fasthttp.StatusOK, ctx.Response.StatusCode())
	assert.Equal(t, "EVENT_RECEIVED", string(ctx.Response.Body()))

	require.Len(t, doer.bodies, 1)
	assert.JSONEq(t, `{"recipient":{"id":"U1"},"message":{"text":"echo: hi"}}`, doer.bodies[0])
}

func TestWebhookHandlerFailureStillAcknowledged(t *testing.T) {
	app, doer := newTestApp(t)
	doer.status = 500
	body := `{"object":"page","entry":[{"id":"P1","messaging":[{"sender":{"id":"U1"},"recipient":{"id":"P1"},"message":{"text":"hi"}}]}]}`

	ctx := serve(app.WebhookHandler(), fasthttp.MethodPost, "/webhook", body)
	require.Equal(t, fasthttp.StatusOK, ctx.Response.StatusCode())
	require.Len(t, doer.bodies, 1)
}

func TestWebhookRejectsBadBodies(t *testing.T) {
	app, doer := newTestApp(t)
	h := app.WebhookHandler()

	for _, body := range []string{
		`not json`,
		`{"object":"user","entry":[]}`,
		`{"object":"page","entry":[{"id":"P1","messaging":[{"sender":{"id":"U1"},"recipient":{"id":"P1"},"message":{},"read":{}}]}]}`,
	} {
		ctx := serve(h, fasthttp.MethodPost, "/webhook", body)
		assert.Equal(t, fasthttp.StatusBadRequest, ctx.Response.StatusCode(), body)
		assert.Equal(t, "application/json", string(ctx.Response.Header.ContentType()))
	}
	require.Empty(t, doer.bodies)
}

func TestVerifyHandshake(t *testing.T) {
	app, _ := newTestApp(t)
	h := app.WebhookHandler()

	ctx := serve(h, fasthttp.MethodGet, "/webhook?hub.mode=subscribe&hub.verify_token=verify-me&hub.challenge=12345", "")
	require.Equal(t, fasthttp.StatusOK, ctx.Response.StatusCode())
	assert.Equal(t, "12345", string(ctx.Response.Body()))

	ctx = serve(h, fasthttp.MethodGet, "/webhook?hub.mode=subscribe&hub.verify_token=wrong&hub.challenge=12345", "")
	assert.Equal(t, fasthttp.StatusForbidden, ctx.Response.StatusCode())

	ctx = serve(h, fasthttp.MethodGet, "/webhook?hub.mode=unsubscribe&hub.verify_token=verify-me&hub.challenge=1", "")
	assert.Equal(t, fasthttp.StatusForbidden, ctx.Response.StatusCode())
}

func TestVerifyRequiresConfiguredToken(t *testing.T) {
	log := logrus.New()
	log.SetOutput(io.Discard)
	h := VerifyPreHandler("/webhook", "", log).Wrap(func(ctx *fasthttp.RequestCtx) { ctx.SetStatusCode(418) })

	ctx := serve(h, fasthttp.MethodGet, "/webhook?hub.mode=subscribe&hub.verify_token=&hub.challenge=1", "")
	assert.Equal(t, fasthttp.StatusForbidden, ctx.Response.StatusCode())

	ctx = serve(h, fasthttp.MethodPost, "/webhook", "{}")
	assert.Equal(t, 418, ctx.Response.StatusCode())
}

func TestHealthAndNotFound(t *testing.T) {
	app, _ := newTestApp(t)
	h := app.WebhookHandler()

	ctx := serve(h, fasthttp.MethodGet, "/health", "")
	require.Equal(t, 200, ctx.Response.StatusCode())
	assert.Equal(t, "ok", string(ctx.Response.Body()))

	ctx = serve(h, fasthttp.MethodGet, "/nope", "")
	assert.Equal(t, 404, ctx.Response.StatusCode())
}

func TestLoadConfig(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte(`
server:
  listen: ":9090"
logging:
  level: debug
messenger:
  page_token_env: MY_PAGE_TOKEN
  graph:
    version: v19.0
    timeout_ms: 2500
`), 0o644))

	cfg, err := LoadConfig(path)
	require.NoError(t, err)
	assert.Equal(t, ":9090", cfg.Server.Listen)
	assert.Equal(t, "/webhook", cfg.Server.WebhookPath)
	assert.Equal(t, "debug", cfg.Logging.Level)
	assert.Equal(t, "MY_PAGE_TOKEN", cfg.Messenger.PageTokenEnv)
	assert.Equal(t, "FB_VERIFY_TOKEN", cfg.Messenger.VerifyTokenEnv)

	gc := cfg.Messenger.GraphConfig()
	assert.Equal(t, "v19.0", gc.Version)
	assert.Equal(t, 2500*time.Millisecond, gc.Timeout)

	_, err = LoadConfig(filepath.Join(t.TempDir(), "missing.yaml"))
	require.Error(t, err)
}

func TestNewLogger(t *testing.T) {
	log := NewLogger(LoggingCfg{Level: "warn"})
	assert.Equal(t, logrus.WarnLevel, log.GetLevel())

	log = NewLogger(LoggingCfg{Level: "nonsense", File: filepath.Join(t.TempDir(), "out.log")})
	assert.Equal(t, logrus.InfoLevel, log.GetLevel())
}
