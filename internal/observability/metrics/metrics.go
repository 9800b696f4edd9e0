package metrics

import (
	"context"
	"fmt"
	"strings"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/exporters/otlp/otlpmetric/otlpmetricgrpc"
	"go.opentelemetry.io/otel/exporters/otlp/otlpmetric/otlpmetrichttp"
	"go.opentelemetry.io/otel/metric"
	"go.opentelemetry.io/otel/metric/noop"
	sdkmetric "go.opentelemetry.io/otel/sdk/metric"
	"go.uber.org/fx"
	"go.uber.org/zap"
)

// Config configures the metrics provider.
type Config struct {
	Enabled          bool
	ExporterEndpoint string
	ExporterProtocol string
	ServiceName      string
	Environment      string
}

// Metrics exposes application-level instruments.
type Metrics struct {
	intakeIngested     metric.Int64Counter
	intakeDeduplicated metric.Int64Counter
	knowledgeCompiled  metric.Int64Counter
	agentSyncFailed    metric.Int64Counter
}

// NewProvider configures and registers the meter provider.
func NewProvider(lc fx.Lifecycle, cfg Config, log *zap.Logger) (metric.MeterProvider, error) {
	if !cfg.Enabled {
		provider := noop.NewMeterProvider()
		otel.SetMeterProvider(provider)
		return provider, nil
	}

	exporter, err := newExporter(cfg.ExporterProtocol, cfg.ExporterEndpoint)
	if err != nil {
		return nil, err
	}

	reader := sdkmetric.NewPeriodicReader(exporter, sdkmetric.WithInterval(10*time.Second))
	provider := sdkmetric.NewMeterProvider(sdkmetric.WithReader(reader))
	otel.SetMeterProvider(provider)

	if lc != nil {
		lc.Append(fx.Hook{
			OnStop: func(ctx context.Context) error {
				if log != nil {
					log.Info("shutting down meter provider")
				}
				return provider.Shutdown(ctx)
			},
		})
	}

	return provider, nil
}

// New configures the domain metrics instruments.
func New(cfg Config, provider metric.MeterProvider) (*Metrics, error) {
	name := strings.TrimSpace(cfg.ServiceName)
	if name == "" {
		name = "firmline"
	}
	meter := provider.Meter(name)

	intakeIngested, err := meter.Int64Counter("firmline_intake_ingested_total")
	if err != nil {
		return nil, err
	}
	intakeDeduplicated, err := meter.Int64Counter("firmline_intake_deduplicated_total")
	if err != nil {
		return nil, err
	}
	knowledgeCompiled, err := meter.Int64Counter("firmline_knowledge_compiled_total")
	if err != nil {
		return nil, err
	}
	agentSyncFailed, err := meter.Int64Counter("firmline_agent_sync_failed_total")
	if err != nil {
		return nil, err
	}

	return &Metrics{
		intakeIngested:     intakeIngested,
		intakeDeduplicated: intakeDeduplicated,
		knowledgeCompiled:  knowledgeCompiled,
		agentSyncFailed:    agentSyncFailed,
	}, nil
}

// RecordIntakeIngested increments ingested lead counts.
func (m *Metrics) RecordIntakeIngested(ctx context.Context, category string) {
	if m == nil {
		return
	}
	m.intakeIngested.Add(ctx, 1, metric.WithAttributes(
		attribute.String("category", strings.TrimSpace(category)),
	))
}

// RecordIntakeDeduplicated increments idempotency dedup hits.
func (m *Metrics) RecordIntakeDeduplicated(ctx context.Context) {
	if m == nil {
		return
	}
	m.intakeDeduplicated.Add(ctx, 1)
}

// RecordKnowledgeCompiled increments knowledge compilation counts.
func (m *Metrics) RecordKnowledgeCompiled(ctx context.Context) {
	if m == nil {
		return
	}
	m.knowledgeCompiled.Add(ctx, 1)
}

// RecordAgentSyncFailed increments agent-configuration push failures.
func (m *Metrics) RecordAgentSyncFailed(ctx context.Context) {
	if m == nil {
		return
	}
	m.agentSyncFailed.Add(ctx, 1)
}

func newExporter(protocol, endpoint string) (sdkmetric.Exporter, error) {
	switch strings.ToLower(strings.TrimSpace(protocol)) {
	case "", "grpc":
		return otlpmetricgrpc.New(context.Background(),
			otlpmetricgrpc.WithEndpoint(endpoint),
			otlpmetricgrpc.WithInsecure(),
		)
	case "http", "http/protobuf":
		return otlpmetrichttp.New(context.Background(),
			otlpmetrichttp.WithEndpoint(endpoint),
			otlpmetrichttp.WithInsecure(),
		)
	default:
		return nil, fmt.Errorf("unsupported otlp protocol %q", protocol)
	}
}
