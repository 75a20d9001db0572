package telemetry

import (
	"context"
	"errors"
	"net/url"
	"strings"
	"sync"
	"time"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/exporters/otlp/otlptrace"
	"go.opentelemetry.io/otel/exporters/otlp/otlptrace/otlptracegrpc"
	"go.opentelemetry.io/otel/sdk/resource"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	semconv "go.opentelemetry.io/otel/semconv/v1.24.0"
	"go.opentelemetry.io/otel/trace"
)

var (
	tracerName = "github.com/unkn0wn-root/themesync/internal/telemetry"
	hostKey    = attribute.Key("themesync.source.host")
)

type Stage string

const (
	StageRun     Stage = "run"
	StageFetch   Stage = "fetch"
	StageExtract Stage = "extract"
	StageParse   Stage = "parse"
	StageMerge   Stage = "merge"
	StagePersist Stage = "persist"
)

type Instrumenter interface {
	Start(ctx context.Context, info StageStart) (context.Context, StageSpan)
	Shutdown(ctx context.Context) error
}

type StageStart struct {
	Stage    Stage
	RunID    string
	Location string
}

type StageResult struct {
	Err        error
	StatusCode int
	Bytes      int
	Entries    int
}

type StageSpan interface {
	End(result StageResult)
}

type providerOptions struct {
	exporter       sdktrace.SpanExporter
	spanProcessors []sdktrace.SpanProcessor
}

type Option func(*providerOptions)

func WithSpanProcessor(proc sdktrace.SpanProcessor) Option {
	return func(opts *providerOptions) {
		if proc != nil {
			opts.spanProcessors = append(opts.spanProcessors, proc)
		}
	}
}

func WithExporter(exp sdktrace.SpanExporter) Option {
	return func(opts *providerOptions) {
		if exp != nil {
			opts.exporter = exp
		}
	}
}

type manager struct {
	tracer   trace.Tracer
	provider *sdktrace.TracerProvider
	shutdown sync.Once
}

func New(cfg Config, opts ...Option) (Instrumenter, error) {
	builder := providerOptions{}
	for _, opt := range opts {
		opt(&builder)
	}

	if !cfg.Enabled() && builder.exporter == nil && len(builder.spanProcessors) == 0 {
		return Noop(), nil
	}

	res, err := resource.New(
		context.Background(),
		resource.WithSchemaURL(semconv.SchemaURL),
		resource.WithAttributes(buildResourceAttributes(cfg)...),
	)
	if err != nil {
		return nil, err
	}

	exporter := builder.exporter
	if exporter == nil && cfg.Enabled() {
		exporter, err = newExporter(cfg)
		if err != nil {
			return nil, err
		}
	}

	var tpOpts []sdktrace.TracerProviderOption
	tpOpts = append(tpOpts, sdktrace.WithResource(res))
	if exporter != nil {
		tpOpts = append(tpOpts, sdktrace.WithBatcher(exporter))
	}
	for _, proc := range builder.spanProcessors {
		tpOpts = append(tpOpts, sdktrace.WithSpanProcessor(proc))
	}

	tp := sdktrace.NewTracerProvider(tpOpts...)
	return &manager{tracer: tp.Tracer(tracerName), provider: tp}, nil
}

func (m *manager) Start(ctx context.Context, info StageStart) (context.Context, StageSpan) {
	kind := trace.SpanKindInternal
	if info.Stage == StageFetch {
		kind = trace.SpanKindClient
	}
	ctx, span := m.tracer.Start(
		ctx,
		spanNameFor(info),
		trace.WithSpanKind(kind),
		trace.WithAttributes(buildSpanAttributes(info)...),
	)
	return ctx, &stageSpan{span: span}
}

func (m *manager) Shutdown(ctx context.Context) error {
	if m == nil || m.provider == nil {
		return nil
	}
	var shutdownErr error
	m.shutdown.Do(func() {
		shutdownErr = m.provider.Shutdown(ctx)
	})
	return shutdownErr
}

type stageSpan struct {
	span trace.Span
}

func (s *stageSpan) End(result StageResult) {
	if s == nil || s.span == nil {
		return
	}

	if result.StatusCode > 0 {
		s.span.SetAttributes(semconv.HTTPStatusCodeKey.Int(result.StatusCode))
	}
	if result.Bytes > 0 {
		s.span.SetAttributes(attribute.Int("themesync.bytes", result.Bytes))
	}
	if result.Entries > 0 {
		s.span.SetAttributes(attribute.Int("themesync.entries", result.Entries))
	}

	if result.Err != nil {
		s.span.RecordError(result.Err)
		s.span.SetStatus(codes.Error, result.Err.Error())
	} else {
		s.span.SetStatus(codes.Ok, "OK")
	}
	s.span.End()
}

func Noop() Instrumenter {
	return noopInstrumenter{}
}

type noopInstrumenter struct{}

type noopSpan struct{}

func (noopInstrumenter) Start(ctx context.Context, _ StageStart) (context.Context, StageSpan) {
	return ctx, noopSpan{}
}

func (noopInstrumenter) Shutdown(context.Context) error { return nil }

func (noopSpan) End(StageResult) {}

func newExporter(cfg Config) (sdktrace.SpanExporter, error) {
	if strings.TrimSpace(cfg.Endpoint) == "" {
		return nil, errors.New("telemetry endpoint is required")
	}

	timeout := cfg.DialTimeout
	if timeout <= 0 {
		timeout = 5 * time.Second
	}

	ctx, cancel := context.WithTimeout(context.Background(), timeout)
	defer cancel()

	clientOpts := []otlptracegrpc.Option{
		otlptracegrpc.WithEndpoint(cfg.Endpoint),
	}
	if cfg.Insecure {
		clientOpts = append(clientOpts, otlptracegrpc.WithInsecure())
	}
	if len(cfg.Headers) > 0 {
		clientOpts = append(clientOpts, otlptracegrpc.WithHeaders(cfg.Headers))
	}

	client := otlptracegrpc.NewClient(clientOpts...)
	return otlptrace.New(ctx, client)
}

func buildResourceAttributes(cfg Config) []attribute.KeyValue {
	name := cfg.ServiceName
	if strings.TrimSpace(name) == "" {
		name = defaultServiceName
	}
	attrs := []attribute.KeyValue{
		semconv.ServiceName(name),
	}
	if strings.TrimSpace(cfg.Version) != "" {
		attrs = append(attrs, semconv.ServiceVersion(cfg.Version))
	}
	return attrs
}

func buildSpanAttributes(info StageStart) []attribute.KeyValue {
	attrs := []attribute.KeyValue{
		attribute.String("themesync.stage", string(info.Stage)),
	}
	if id := strings.TrimSpace(info.RunID); id != "" {
		attrs = append(attrs, attribute.String("themesync.run_id", id))
	}
	if loc := strings.TrimSpace(info.Location); loc != "" {
		attrs = append(attrs, attribute.String("themesync.location", loc))
		if u, err := url.Parse(loc); err == nil && u.Host != "" {
			attrs = append(attrs, hostKey.String(u.Host))
		}
	}
	return attrs
}

func spanNameFor(info StageStart) string {
	name := "themesync." + string(info.Stage)
	if info.Stage == StageFetch && info.Location != "" {
		if u, err := url.Parse(info.Location); err == nil && u.Host != "" {
			return name + " " + u.Host
		}
	}
	return name
}
