// Command messengerd serves a Facebook Messenger webhook for one page.
//
// It answers the subscription handshake, parses every notification into
// events and dispatches them synchronously to the registered handlers. The
// bundled handlers echo text messages back to the sender and log postbacks.
//
// Configuration:
//   - YAML: see config.example.yaml (listen, logging, metrics, tracing, graph)
//   - Secrets: never in YAML. Page and verify tokens are read from the env
//     vars the config names (FB_PAGE_TOKEN / FB_VERIFY_TOKEN by default).
//
// Observability:
//   - Logging: Logrus (JSON), optional rotated file via lumberjack
//   - Metrics: Prometheus /metrics endpoint
//   - Tracing: OpenTelemetry → OTLP
package main

import (
	"context"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/sirupsen/logrus"
	flag "github.com/spf13/pflag"
	"github.com/valyala/fasthttp"

	"github.com/mejooo/fb_messenger/internal/server"
	"github.com/mejooo/fb_messenger/pkg/messenger"
	"github.com/mejooo/fb_messenger/pkg/tracing"
)

func main() {
	// ---- Flags -----------------------------------------------------------------
	var cfgPath string
	flag.StringVarP(&cfgPath, "config", "c", "config.yaml", "Path to YAML configuration")
	flag.Parse()

	// ---- Load config -----------------------------------------------------------
	cfg, err := server.LoadConfig(cfgPath)
	if err != nil {
		logrus.Fatalf("config: %v", err)
	}

	// ---- Logger (Logrus) -------------------------------------------------------
	log := server.NewLogger(cfg.Logging)
	log.WithField("config", cfgPath).Info("configuration loaded")

	// ---- Tracing (OTLP) --------------------------------------------------------
	shutdownTracer, terr := tracing.Setup(tracing.Options{
		ServiceName:  cfg.Tracing.ServiceName,
		SampleRatio:  cfg.Tracing.SampleRatio,
		OTLPEndpoint: cfg.Tracing.OTLPEndpoint,
	})
	if terr != nil {
		log.WithError(terr).Warn("tracing init failed (continuing without exporter)")
	}
	defer func() {
		_ = shutdownTracer(context.Background())
	}()

	// ---- Secrets (from env only) ----------------------------------------------
	pageToken := os.Getenv(cfg.Messenger.PageTokenEnv)
	if pageToken == "" {
		log.Fatalf("missing env %s (page access token)", cfg.Messenger.PageTokenEnv)
	}
	verifyToken := os.Getenv(cfg.Messenger.VerifyTokenEnv)
	if verifyToken == "" {
		log.Warnf("env %s not set, subscription handshakes will be refused", cfg.Messenger.VerifyTokenEnv)
	}

	// ---- Graph client + callbacks ---------------------------------------------
	graph := messenger.NewGraphClient(cfg.Messenger.GraphConfig(), &fasthttp.Client{
		Name:                "fb_messenger",
		MaxConnsPerHost:     64,
		MaxIdleConnDuration: 30 * time.Second,
	}, log)
	callbacks := messenger.NewCallbackManager(log)
	registerHandlers(callbacks, log)

	// ---- App (HTTP routing) -----------------------------------------------------
	app := server.NewApp(cfg, log, callbacks, graph, pageToken, verifyToken)

	// ---- Metrics server (Prometheus) ------------------------------------------
	if cfg.Metrics.PrometheusListen != "" {
		go func() {
			mux := http.NewServeMux()
			mux.Handle("/metrics", promhttp.Handler())
			srv := &http.Server{
				Addr:              cfg.Metrics.PrometheusListen,
				Handler:           mux,
				ReadHeaderTimeout: 5 * time.Second,
			}
			log.WithField("listen", cfg.Metrics.PrometheusListen).Info("metrics server started")
			if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
				log.WithError(err).Error("metrics server exited")
			}
		}()
	}

	srv := &fasthttp.Server{
		Handler:            app.WebhookHandler(),
		ReadTimeout:        time.Duration(cfg.Server.ReadTimeoutMS) * time.Millisecond,
		WriteTimeout:       time.Duration(cfg.Server.WriteTimeoutMS) * time.Millisecond,
		MaxRequestBodySize: cfg.Server.MaxBodyBytes,
	}

	// ---- Serve HTTP or HTTPS based on config ----------------------------------
	go func() {
		if cfg.Server.TLS.Enabled {
			log.WithFields(logrus.Fields{
				"listen": cfg.Server.Listen,
				"cert":   cfg.Server.TLS.CertFile,
				"key":    cfg.Server.TLS.KeyFile,
			}).Info("serving HTTPS")
			if err := srv.ListenAndServeTLS(cfg.Server.Listen, cfg.Server.TLS.CertFile, cfg.Server.TLS.KeyFile); err != nil {
				log.WithError(err).Fatal("server exited")
			}
		} else {
			log.WithFields(logrus.Fields{"listen": cfg.Server.Listen, "path": cfg.Server.WebhookPath}).Info("serving HTTP")
			if err := srv.ListenAndServe(cfg.Server.Listen); err != nil {
				log.WithError(err).Fatal("server exited")
			}
		}
	}()

	// ---- Graceful shutdown on signals -----------------------------------------
	sigc := make(chan os.Signal, 1)
	signal.Notify(sigc, os.Interrupt, syscall.SIGTERM)
	s := <-sigc
	log.WithField("signal", s.String()).Info("shutting down")

	if err := srv.ShutdownWithContext(context.Background()); err != nil {
		log.WithError(err).Warn("server shutdown error")
	}
	log.Info("bye")
}
