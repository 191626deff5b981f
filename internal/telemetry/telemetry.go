// Package telemetry exports toursync's traces, metrics, and logs to an OTLP
// gRPC collector.
//
// The sync engine opens a span per cache refresh and counts fetches, failures,
// and changed entries; package logging mirrors every slog record. Both go
// through the global OpenTelemetry providers, which stay no-ops unless
// [Setup] runs, so a config without a telemetry block costs nothing.
package telemetry

import (
	"context"
	"errors"
	"fmt"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/exporters/otlp/otlplog/otlploggrpc"
	"go.opentelemetry.io/otel/exporters/otlp/otlpmetric/otlpmetricgrpc"
	"go.opentelemetry.io/otel/exporters/otlp/otlptrace/otlptracegrpc"
	"go.opentelemetry.io/otel/log/global"
	sdklog "go.opentelemetry.io/otel/sdk/log"
	sdkmetric "go.opentelemetry.io/otel/sdk/metric"
	"go.opentelemetry.io/otel/sdk/resource"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	semconv "go.opentelemetry.io/otel/semconv/v1.26.0"
	"google.golang.org/grpc"
	"google.golang.org/grpc/credentials"
	"google.golang.org/grpc/credentials/insecure"

	"github.com/njoerd114/toursync/internal/config"
)

// DefaultServiceName is the service.name used when Config leaves it empty.
const DefaultServiceName = "toursync"

// Config is the exporter setup derived from the YAML telemetry block.
type Config struct {
	// OTLPEndpoint is the collector's gRPC host:port.
	OTLPEndpoint string

	// Insecure dials the collector without TLS.
	Insecure bool

	// ServiceName is reported as service.name. Empty means DefaultServiceName.
	ServiceName string

	// ServiceVersion is reported as service.version when set.
	ServiceVersion string

	// Headers are attached as gRPC metadata to every export, typically an
	// Authorization header for hosted collectors.
	Headers map[string]string
}

// ShutdownFunc flushes buffered telemetry and closes the collector
// connection. Give it a fresh context; the run context is usually cancelled
// by then.
type ShutdownFunc func(context.Context) error

// FromConfig converts the YAML telemetry block. It returns false when the
// block is absent, meaning telemetry is disabled.
func FromConfig(c *config.TelemetryConfig) (Config, bool) {
	if c == nil {
		return Config{}, false
	}
	return Config{
		OTLPEndpoint: c.OTLPEndpoint,
		Insecure:     c.Insecure,
		ServiceName:  c.ServiceName,
		Headers:      c.Headers,
	}, true
}

// Setup installs trace, metric, and log providers as the OTel globals, all
// exporting over one gRPC connection to cfg.OTLPEndpoint.
//
// The returned ShutdownFunc is never nil. When Setup fails, everything built
// so far has been released and the func does nothing.
func Setup(ctx context.Context, cfg Config) (ShutdownFunc, error) {
	if cfg.OTLPEndpoint == "" {
		return noopShutdown, errors.New("telemetry: OTLP endpoint is required")
	}

	res, err := newResource(cfg)
	if err != nil {
		return noopShutdown, err
	}
	conn, err := dial(cfg)
	if err != nil {
		return noopShutdown, err
	}

	p := &providers{conn: conn}
	if err := p.start(ctx, cfg.Headers, res); err != nil {
		_ = p.shutdown(ctx)
		return noopShutdown, err
	}
	return p.shutdown, nil
}

// newResource describes this process. The service attributes are schemaless
// so they merge with resource.Default regardless of its semconv version.
func newResource(cfg Config) (*resource.Resource, error) {
	name := cfg.ServiceName
	if name == "" {
		name = DefaultServiceName
	}
	svc := resource.NewSchemaless(semconv.ServiceName(name))
	if cfg.ServiceVersion != "" {
		svc = resource.NewSchemaless(semconv.ServiceName(name), semconv.ServiceVersion(cfg.ServiceVersion))
	}
	res, err := resource.Merge(resource.Default(), svc)
	if err != nil {
		return nil, fmt.Errorf("building OTel resource: %w", err)
	}
	return res, nil
}

func dial(cfg Config) (*grpc.ClientConn, error) {
	creds := credentials.NewTLS(nil)
	if cfg.Insecure {
		creds = insecure.NewCredentials()
	}
	conn, err := grpc.NewClient(cfg.OTLPEndpoint, grpc.WithTransportCredentials(creds))
	if err != nil {
		return nil, fmt.Errorf("dialling OTLP collector at %q: %w", cfg.OTLPEndpoint, err)
	}
	return conn, nil
}

// providers owns the SDK providers and their shared connection. Fields stay
// nil until the matching provider is started.
type providers struct {
	conn   *grpc.ClientConn
	tracer *sdktrace.TracerProvider
	meter  *sdkmetric.MeterProvider
	logger *sdklog.LoggerProvider
}

func (p *providers) start(ctx context.Context, headers map[string]string, res *resource.Resource) error {
	traceExp, err := otlptracegrpc.New(ctx,
		otlptracegrpc.WithGRPCConn(p.conn),
		otlptracegrpc.WithHeaders(headers),
	)
	if err != nil {
		return fmt.Errorf("creating OTLP trace exporter: %w", err)
	}
	p.tracer = sdktrace.NewTracerProvider(
		sdktrace.WithBatcher(traceExp),
		sdktrace.WithResource(res),
	)

	metricExp, err := otlpmetricgrpc.New(ctx,
		otlpmetricgrpc.WithGRPCConn(p.conn),
		otlpmetricgrpc.WithHeaders(headers),
	)
	if err != nil {
		return fmt.Errorf("creating OTLP metric exporter: %w", err)
	}
	p.meter = sdkmetric.NewMeterProvider(
		sdkmetric.WithReader(sdkmetric.NewPeriodicReader(metricExp)),
		sdkmetric.WithResource(res),
	)

	logExp, err := otlploggrpc.New(ctx,
		otlploggrpc.WithGRPCConn(p.conn),
		otlploggrpc.WithHeaders(headers),
	)
	if err != nil {
		return fmt.Errorf("creating OTLP log exporter: %w", err)
	}
	p.logger = sdklog.NewLoggerProvider(
		sdklog.WithProcessor(sdklog.NewBatchProcessor(logExp)),
		sdklog.WithResource(res),
	)

	// Globals are only swapped once every exporter exists.
	otel.SetTracerProvider(p.tracer)
	otel.SetMeterProvider(p.meter)
	global.SetLoggerProvider(p.logger)
	return nil
}

// shutdown flushes whichever providers were started, then closes the
// connection.
func (p *providers) shutdown(ctx context.Context) error {
	var errs []error
	if p.tracer != nil {
		if err := p.tracer.Shutdown(ctx); err != nil {
			errs = append(errs, fmt.Errorf("trace provider shutdown: %w", err))
		}
	}
	if p.meter != nil {
		if err := p.meter.Shutdown(ctx); err != nil {
			errs = append(errs, fmt.Errorf("metric provider shutdown: %w", err))
		}
	}
	if p.logger != nil {
		if err := p.logger.Shutdown(ctx); err != nil {
			errs = append(errs, fmt.Errorf("log provider shutdown: %w", err))
		}
	}
	if err := p.conn.Close(); err != nil {
		errs = append(errs, fmt.Errorf("OTLP gRPC connection close: %w", err))
	}
	return errors.Join(errs...)
}

func noopShutdown(context.Context) error { return nil }
