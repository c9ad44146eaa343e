//
// Copyright (C) 2026 Nimbus Authors. All rights reserved.
//
// nimbus is licensed under the Apache License Version 2.0.
//

// Package trace bootstraps the OpenTelemetry trace pipeline: it builds an
// OTLP exporter, installs the global tracer provider, and returns a cleanup
// function that flushes buffered spans.
package trace

import (
	"context"
	"fmt"
	"net/url"
	"os"
	"strings"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/exporters/otlp/otlptrace"
	"go.opentelemetry.io/otel/exporters/otlp/otlptrace/otlptracegrpc"
	"go.opentelemetry.io/otel/exporters/otlp/otlptrace/otlptracehttp"
	"go.opentelemetry.io/otel/propagation"
	"go.opentelemetry.io/otel/sdk/resource"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	semconv "go.opentelemetry.io/otel/semconv/v1.21.0"

	"github.com/nimbus-ai/nimbus/telemetry"
)

const (
	// ProtocolGRPC uses gRPC protocol for the OTLP exporter.
	ProtocolGRPC string = "grpc"
	// ProtocolHTTP uses HTTP protocol for the OTLP exporter.
	ProtocolHTTP string = "http"

	defaultGRPCEndpoint = "localhost:4317"
	defaultHTTPEndpoint = "localhost:4318"

	envTracesEndpoint  = "OTEL_EXPORTER_OTLP_TRACES_ENDPOINT"
	envGenericEndpoint = "OTEL_EXPORTER_OTLP_ENDPOINT"
)

type options struct {
	protocol           string
	endpoint           string
	endpointURL        string
	headers            map[string]string
	serviceName        string
	serviceNamespace   string
	serviceVersion     string
	resourceAttributes []attribute.KeyValue
}

// Option configures the trace pipeline.
type Option func(*options)

// WithProtocol sets the OTLP exporter protocol, "grpc" or "http".
func WithProtocol(protocol string) Option {
	return func(o *options) {
		o.protocol = protocol
	}
}

// WithEndpoint sets the collector endpoint as host:port.
func WithEndpoint(endpoint string) Option {
	return func(o *options) {
		o.endpoint = endpoint
	}
}

// WithEndpointURL sets the collector endpoint as a full URL, optionally
// including a path. Takes precedence over WithEndpoint.
func WithEndpointURL(endpointURL string) Option {
	return func(o *options) {
		o.endpointURL = endpointURL
	}
}

// WithHeaders sets extra headers sent with each export request.
func WithHeaders(headers map[string]string) Option {
	return func(o *options) {
		o.headers = headers
	}
}

// WithServiceName sets the service.name resource attribute.
func WithServiceName(name string) Option {
	return func(o *options) {
		o.serviceName = name
	}
}

// WithServiceNamespace sets the service.namespace resource attribute.
func WithServiceNamespace(namespace string) Option {
	return func(o *options) {
		o.serviceNamespace = namespace
	}
}

// WithServiceVersion sets the service.version resource attribute.
func WithServiceVersion(version string) Option {
	return func(o *options) {
		o.serviceVersion = version
	}
}

// WithResourceAttributes appends extra resource attributes. These take
// precedence over OTEL_RESOURCE_ATTRIBUTES for the same keys.
func WithResourceAttributes(attrs ...attribute.KeyValue) Option {
	return func(o *options) {
		o.resourceAttributes = append(o.resourceAttributes, attrs...)
	}
}

// Start initializes the global trace pipeline and returns a cleanup function
// that flushes and shuts down the provider.
func Start(ctx context.Context, opts ...Option) (clean func() error, err error) {
	opt := &options{
		protocol:         ProtocolGRPC,
		serviceName:      telemetry.ServiceName,
		serviceNamespace: telemetry.ServiceNamespace,
		serviceVersion:   telemetry.ServiceVersion,
	}
	for _, o := range opts {
		o(opt)
	}

	res, err := buildResource(ctx, opt)
	if err != nil {
		return nil, fmt.Errorf("build resource: %w", err)
	}

	exporter, err := newExporter(ctx, opt)
	if err != nil {
		return nil, err
	}

	tracerProvider := sdktrace.NewTracerProvider(
		sdktrace.WithResource(res),
		sdktrace.WithBatcher(exporter),
	)
	otel.SetTracerProvider(tracerProvider)
	otel.SetTextMapPropagator(propagation.NewCompositeTextMapPropagator(
		propagation.TraceContext{},
		propagation.Baggage{},
	))
	telemetry.Tracer = tracerProvider.Tracer(telemetry.InstrumentName)

	return func() error {
		return tracerProvider.Shutdown(context.Background())
	}, nil
}

func newExporter(ctx context.Context, opt *options) (*otlptrace.Exporter, error) {
	switch opt.protocol {
	case ProtocolHTTP:
		httpOpts := []otlptracehttp.Option{otlptracehttp.WithInsecure()}
		if opt.endpointURL != "" {
			endpoint, urlPath, err := parseEndpointURL(opt.endpointURL)
			if err != nil {
				return nil, fmt.Errorf("parse endpoint URL: %w", err)
			}
			httpOpts = append(httpOpts,
				otlptracehttp.WithEndpoint(endpoint),
				otlptracehttp.WithURLPath(urlPath),
			)
		} else {
			endpoint := opt.endpoint
			if endpoint == "" {
				endpoint = tracesEndpoint(opt.protocol)
			}
			httpOpts = append(httpOpts, otlptracehttp.WithEndpoint(endpoint))
		}
		if len(opt.headers) > 0 {
			httpOpts = append(httpOpts, otlptracehttp.WithHeaders(opt.headers))
		}
		return otlptracehttp.New(ctx, httpOpts...)
	default:
		endpoint := opt.endpoint
		if opt.endpointURL != "" {
			parsed, _, err := parseEndpointURL(opt.endpointURL)
			if err != nil {
				return nil, fmt.Errorf("parse endpoint URL: %w", err)
			}
			endpoint = parsed
		}
		if endpoint == "" {
			endpoint = tracesEndpoint(opt.protocol)
		}
		conn, err := telemetry.NewGRPCConn(endpoint)
		if err != nil {
			return nil, err
		}
		grpcOpts := []otlptracegrpc.Option{otlptracegrpc.WithGRPCConn(conn)}
		if len(opt.headers) > 0 {
			grpcOpts = append(grpcOpts, otlptracegrpc.WithHeaders(opt.headers))
		}
		return otlptracegrpc.New(ctx, grpcOpts...)
	}
}

// tracesEndpoint resolves the collector endpoint from the standard OTLP
// environment variables, with a protocol-specific default.
func tracesEndpoint(protocol string) string {
	if ep := os.Getenv(envTracesEndpoint); ep != "" {
		return ep
	}
	if ep := os.Getenv(envGenericEndpoint); ep != "" {
		return ep
	}
	if protocol == ProtocolHTTP {
		return defaultHTTPEndpoint
	}
	return defaultGRPCEndpoint
}

// parseEndpointURL splits an endpoint URL into host:port and URL path.
// A missing scheme is tolerated; a missing path implies "/".
func parseEndpointURL(raw string) (endpoint, urlPath string, err error) {
	if !strings.Contains(raw, "://") {
		raw = "http://" + raw
	}
	u, err := url.Parse(raw)
	if err != nil {
		return "", "", err
	}
	if u.Host == "" {
		return "", "", fmt.Errorf("endpoint URL %q has no host", raw)
	}
	urlPath = u.Path
	if urlPath == "" {
		urlPath = "/"
	}
	return u.Host, urlPath, nil
}

// buildResource merges service identity, environment configuration, and
// explicit attributes. Environment variables win over code-configured
// service identity; explicit attributes win over the environment.
func buildResource(ctx context.Context, opt *options) (*resource.Resource, error) {
	base, err := resource.New(ctx, resource.WithAttributes(
		semconv.ServiceNameKey.String(opt.serviceName),
		semconv.ServiceNamespaceKey.String(opt.serviceNamespace),
		semconv.ServiceVersionKey.String(opt.serviceVersion),
	))
	if err != nil {
		return nil, err
	}
	envRes, err := resource.New(ctx, resource.WithFromEnv())
	if err != nil {
		return nil, err
	}
	merged, err := resource.Merge(base, envRes)
	if err != nil {
		return nil, err
	}
	if len(opt.resourceAttributes) == 0 {
		return merged, nil
	}
	custom, err := resource.New(ctx, resource.WithAttributes(opt.resourceAttributes...))
	if err != nil {
		return nil, err
	}
	return resource.Merge(merged, custom)
}
