package logging

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"time"

	"go.opentelemetry.io/contrib/bridges/otelslog"
	"go.opentelemetry.io/otel/exporters/otlp/otlplog/otlploggrpc"
	sdklog "go.opentelemetry.io/otel/sdk/log"
	"go.opentelemetry.io/otel/sdk/resource"
	"google.golang.org/grpc"
	"google.golang.org/grpc/credentials/insecure"

	"github.com/eco2-team/backend/domains/basket/internal/constants"
	"github.com/eco2-team/backend/domains/basket/internal/redact"
)

const (
	defaultExportEndpoint = "otel-collector.observability.svc.cluster.local:4317"
	shutdownTimeout       = 5 * time.Second
)

// ExportConfig controls OTLP log export.
//
//	slog → otelslog → RedactionProcessor → BatchProcessor → OTLP/gRPC
type ExportConfig struct {
	Endpoint string
	Enabled  bool
}

// DefaultExportConfig reads OTEL_LOGS_ENABLED and OTEL_EXPORTER_OTLP_ENDPOINT.
// Log export is off unless explicitly enabled.
func DefaultExportConfig() *ExportConfig {
	return &ExportConfig{
		Endpoint: getEnv(constants.EnvOTelEndpoint, defaultExportEndpoint),
		Enabled:  os.Getenv(constants.EnvOTelLogsEnabled) == "true",
	}
}

// LoggerProvider wraps the OpenTelemetry LoggerProvider.
type LoggerProvider struct {
	provider *sdklog.LoggerProvider
}

// InitProvider builds the OTLP log pipeline. It returns nil when export is
// disabled. local receives redaction failures.
func InitProvider(ctx context.Context, cfg *ExportConfig, res *resource.Resource, policy *redact.Policy, local *Logger) (*LoggerProvider, error) {
	if cfg == nil {
		cfg = DefaultExportConfig()
	}
	if !cfg.Enabled {
		return nil, nil
	}

	conn, err := grpc.NewClient(
		cfg.Endpoint,
		grpc.WithTransportCredentials(insecure.NewCredentials()),
	)
	if err != nil {
		return nil, fmt.Errorf(constants.ErrOTLPConn, err)
	}

	exporter, err := otlploggrpc.New(ctx, otlploggrpc.WithGRPCConn(conn))
	if err != nil {
		return nil, fmt.Errorf(constants.ErrLogExporter, err)
	}

	return NewProvider(res, policy, local, sdklog.NewBatchProcessor(exporter,
		sdklog.WithMaxQueueSize(2048),
		sdklog.WithExportMaxBatchSize(512),
		sdklog.WithExportInterval(time.Second),
	))
}

// NewProvider returns a LoggerProvider that redacts every record before
// handing it to next.
func NewProvider(res *resource.Resource, policy *redact.Policy, local *Logger, next sdklog.Processor) (*LoggerProvider, error) {
	if next == nil {
		return nil, errors.New(constants.ErrNextRequired)
	}
	redactor, err := NewRedactionProcessor(policy, local)
	if err != nil {
		return nil, err
	}

	opts := []sdklog.LoggerProviderOption{
		sdklog.WithProcessor(redactor),
		sdklog.WithProcessor(next),
	}
	if res != nil {
		opts = append(opts, sdklog.WithResource(res))
	}
	return &LoggerProvider{provider: sdklog.NewLoggerProvider(opts...)}, nil
}

// Handler returns an slog handler that emits into this provider. Pass it as
// Config.Export to tee application logs into the pipeline.
func (lp *LoggerProvider) Handler() slog.Handler {
	return otelslog.NewHandler(constants.ServiceName, otelslog.WithLoggerProvider(lp.provider))
}

// Shutdown flushes pending records and stops the exporter.
func (lp *LoggerProvider) Shutdown(ctx context.Context) error {
	if lp == nil || lp.provider == nil {
		return nil
	}

	ctx, cancel := context.WithTimeout(ctx, shutdownTimeout)
	defer cancel()

	return lp.provider.Shutdown(ctx)
}
