package tracing

import (
	"context"
	"strings"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/propagation"
	sdkresource "go.opentelemetry.io/otel/sdk/resource"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	semconv "go.opentelemetry.io/otel/semconv/v1.17.0"

	"go.opentelemetry.io/otel/exporters/otlp/otlptrace/otlptracegrpc"
	"google.golang.org/grpc"
	"google.golang.org/grpc/credentials/insecure"
)

type Options struct {
	ServiceName  string
	SampleRatio  float64
	OTLPEndpoint string // host:port or http://host:port; empty disables export
}

// Setup installs a global tracer provider and returns its shutdown func. On
// exporter errors the returned shutdown is still safe to call.
func Setup(opts Options) (func(context.Context) error, error) {
	res, _ := sdkresource.New(
		context.Background(),
		sdkresource.WithAttributes(semconv.ServiceName(opts.ServiceName)),
	)
	sampler := sdktrace.ParentBased(sdktrace.TraceIDRatioBased(opts.SampleRatio))
	tpOpts := []sdktrace.TracerProviderOption{sdktrace.WithSampler(sampler), sdktrace.WithResource(res)}

	if opts.OTLPEndpoint != "" {
		conn, err := grpc.NewClient(trimScheme(opts.OTLPEndpoint), grpc.WithTransportCredentials(insecure.NewCredentials()))
		if err != nil {
			return noop, err
		}
		exp, err := otlptracegrpc.New(context.Background(), otlptracegrpc.WithGRPCConn(conn))
		if err != nil {
			return noop, err
		}
		tpOpts = append(tpOpts, sdktrace.WithBatcher(exp, sdktrace.WithMaxExportBatchSize(256), sdktrace.WithBatchTimeout(500*time.Millisecond)))
	}

	tp := sdktrace.NewTracerProvider(tpOpts...)
	otel.SetTracerProvider(tp)
	otel.SetTextMapPropagator(propagation.TraceContext{})
	return tp.Shutdown, nil
}

func noop(context.Context) error { return nil }

func trimScheme(s string) string {
	s = strings.TrimPrefix(s, "http://")
	return strings.TrimPrefix(s, "https://")
}
