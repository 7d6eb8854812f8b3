package server

import (
	"crypto/subtle"

	"github.com/sirupsen/logrus"
	"github.com/valyala/fasthttp"

	"github.com/mejooo/fb_messenger/pkg/metrics"
)

type Middleware func(fasthttp.RequestHandler) fasthttp.RequestHandler
type wrapper struct{ mw Middleware }

func (w wrapper) Wrap(next fasthttp.RequestHandler) fasthttp.RequestHandler { return w.mw(next) }

// VerifyPreHandler answers the subscription handshake Messenger sends with
// GET {path}?hub.mode=subscribe&hub.verify_token=..&hub.challenge=.. and passes
// every other request through.
func VerifyPreHandler(path, verifyToken string, log *logrus.Logger) wrapper {
	return wrapper{mw: func(next fasthttp.RequestHandler) fasthttp.RequestHandler {
		return func(ctx *fasthttp.RequestCtx) {
			if !ctx.IsGet() || string(ctx.Path()) != path {
				next(ctx)
				return
			}
			q := ctx.QueryArgs()
			mode := string(q.Peek("hub.mode"))
			token := q.Peek("hub.verify_token")
			if mode == "subscribe" && verifyToken != "" &&
				subtle.ConstantTimeCompare(token, []byte(verifyToken)) == 1 {
				metrics.VerifyTotal.WithLabelValues("ok").Inc()
				log.Info("webhook subscription verified")
				ctx.SetContentType("text/plain")
				ctx.SetStatusCode(fasthttp.StatusOK)
				ctx.SetBody(q.Peek("hub.challenge"))
				return
			}
			metrics.VerifyTotal.WithLabelValues("rejected").Inc()
			log.WithField("mode", mode).Warn("webhook subscription rejected")
			ctx.SetStatusCode(fasthttp.StatusForbidden)
		}
	}}
}
