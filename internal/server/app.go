package server

import (
	json "github.com/goccy/go-json"
	"github.com/sirupsen/logrus"
	"github.com/valyala/fasthttp"

	"github.com/mejooo/fb_messenger/pkg/messenger"
	"github.com/mejooo/fb_messenger/pkg/metrics"
)

// App routes webhook traffic for a single page: every event is parsed with the
// configured page token and dispatched synchronously through Callbacks.
type App struct {
	Cfg       RootConfig
	Log       *logrus.Logger
	Callbacks *messenger.CallbackManager
	Graph     *messenger.GraphClient

	pageToken   string
	verifyToken string
}

func NewApp(cfg RootConfig, log *logrus.Logger, callbacks *messenger.CallbackManager, graph *messenger.GraphClient, pageToken, verifyToken string) *App {
	metrics.RegisterAll()
	cfg.applyDefaults()
	return &App{
		Cfg:         cfg,
		Log:         log,
		Callbacks:   callbacks,
		Graph:       graph,
		pageToken:   pageToken,
		verifyToken: verifyToken,
	}
}

// Handler is the fallback for everything that is not the webhook.
func (a *App) Handler() fasthttp.RequestHandler {
	return func(ctx *fasthttp.RequestCtx) {
		if string(ctx.Path()) == "/health" {
			ctx.SetStatusCode(200)
			ctx.SetBodyString("ok")
			return
		}
		ctx.SetStatusCode(404)
	}
}

// WebhookHandler wraps the verification pre-handler around the event endpoint.
func (a *App) WebhookHandler() fasthttp.RequestHandler {
	base := a.Handler()
	path := a.Cfg.Server.WebhookPath
	verify := VerifyPreHandler(path, a.verifyToken, a.Log)
	events := func(ctx *fasthttp.RequestCtx) {
		if string(ctx.Path()) != path || !ctx.IsPost() {
			base(ctx)
			return
		}
		metrics.ReceivedTotal.Inc()

		evs, err := messenger.ParseEnvelope(ctx.PostBody(), a.pageToken, messenger.WithGraph(a.Graph))
		if err != nil {
			metrics.ParseErrors.Inc()
			a.Log.WithError(err).Warn("rejecting webhook body")
			writeJSON(ctx, map[string]string{"error": err.Error()}, fasthttp.StatusBadRequest)
			return
		}
		metrics.ParsedTotal.Add(float64(len(evs)))

		failed := 0
		for _, ev := range evs {
			if _, err := a.Callbacks.Dispatch(ctx, ev); err != nil {
				failed++
			}
		}
		a.Log.WithFields(logrus.Fields{"events": len(evs), "failed": failed}).Debug("webhook dispatched")

		// Messenger redelivers on anything but 200; handler failures are not
		// retried here.
		ctx.SetStatusCode(fasthttp.StatusOK)
		ctx.SetBodyString("EVENT_RECEIVED")
	}
	return verify.Wrap(events)
}

func writeJSON(ctx *fasthttp.RequestCtx, v any, code int) {
	b, _ := json.Marshal(v)
	ctx.Response.Header.SetContentType("application/json")
	ctx.SetStatusCode(code)
	ctx.SetBody(b)
}
