package metrics

import (
	"sync"

	"github.com/prometheus/client_golang/prometheus"
)

var (
	ReceivedTotal  = prometheus.NewCounter(prometheus.CounterOpts{Name: "messenger_webhook_received_total", Help: "webhook POSTs received"})
	ParsedTotal    = prometheus.NewCounter(prometheus.CounterOpts{Name: "messenger_events_parsed_total", Help: "messaging items parsed into events"})
	ParseErrors    = prometheus.NewCounter(prometheus.CounterOpts{Name: "messenger_parse_errors_total", Help: "webhook bodies rejected by the parser"})
	VerifyTotal    = prometheus.NewCounterVec(prometheus.CounterOpts{Name: "messenger_verify_total", Help: "subscription handshakes"}, []string{"outcome"})
	DispatchTotal  = prometheus.NewCounterVec(prometheus.CounterOpts{Name: "messenger_dispatch_total", Help: "events dispatched to handlers"}, []string{"type", "outcome"})
	GraphRequests  = prometheus.NewCounterVec(prometheus.CounterOpts{Name: "messenger_graph_requests_total", Help: "graph api calls"}, []string{"endpoint", "outcome"})
	GraphLatencyMS = prometheus.NewHistogramVec(prometheus.HistogramOpts{Name: "messenger_graph_latency_ms", Help: "graph api latency", Buckets: []float64{10, 25, 50, 100, 250, 500, 1000, 2500, 5000}}, []string{"endpoint"})
)

var once sync.Once

// RegisterAll registers the collectors with the default registry. Safe to call
// more than once.
func RegisterAll() {
	once.Do(func() {
		prometheus.MustRegister(ReceivedTotal, ParsedTotal, ParseErrors, VerifyTotal, DispatchTotal, GraphRequests, GraphLatencyMS)
	})
}
